package record

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-asterix/asterix/adata"
	"github.com/go-asterix/asterix/bitio"
	"github.com/go-asterix/asterix/diag"
	"github.com/go-asterix/asterix/schema"
)

func simpleCat() *schema.Category {
	item010 := &schema.ItemDef{
		ID:     "010",
		Format: schema.Fixed,
		Rule:   schema.Mandatory,
		Fixed: &schema.FixedLayout{
			Bytes:     1,
			BitFields: []schema.BitField{{Name: "SIC", FromBit: 8, ToBit: 1, Encoding: schema.UnsignedInt}},
		},
	}
	item040 := &schema.ItemDef{
		ID:     "040",
		Format: schema.Fixed,
		Fixed: &schema.FixedLayout{
			Bytes:     1,
			BitFields: []schema.BitField{{Name: "v", FromBit: 8, ToBit: 1, Encoding: schema.UnsignedInt}},
		},
	}
	uap := &schema.UAP{
		Name: "default",
		Entries: []schema.UAPEntry{
			{Position: 1, ItemID: "010"},
			{Position: 2, ItemID: "040"},
			{Position: 3, Spare: true},
			{Position: 4, Spare: true},
			{Position: 5, Spare: true},
			{Position: 6, Spare: true},
			{Position: 7, Spare: true},
		},
	}
	return &schema.Category{
		Number:     34,
		DefaultUAP: "default",
		Items:      map[string]*schema.ItemDef{"010": item010, "040": item040},
		UAPs:       map[string]*schema.UAP{"default": uap},
	}
}

func TestDecodeBasicRecord(t *testing.T) {
	cat := simpleCat()
	// FSPEC 0xC0 = bits 1,2 set, FX=0. Then item 010 byte, item 040 byte.
	cur := bitio.NewCursor([]byte{0xC0, 0x07, 0x09}, 0)

	rec, _ := Decode(cat, cur)
	require.NotNil(t, rec)
	require.Len(t, rec.Items, 2)
	require.Equal(t, "010", rec.Items[0].Name)
	require.Equal(t, "040", rec.Items[1].Name)
	require.Empty(t, rec.Diagnostics)
	require.Equal(t, 0, cur.Remaining())
}

func TestDecodeMandatoryMissing(t *testing.T) {
	cat := simpleCat()
	// FSPEC 0x40 = only bit 2 set -> item 010 (mandatory) absent.
	cur := bitio.NewCursor([]byte{0x40, 0x09}, 0)

	rec, _ := Decode(cat, cur)
	require.NotNil(t, rec)
	require.Len(t, rec.Items, 1)
	require.Len(t, rec.Diagnostics, 1)
	require.Equal(t, diag.MandatoryMissing, rec.Diagnostics[0].Kind)
}

func TestDecodeSparePresent(t *testing.T) {
	cat := simpleCat()
	// FSPEC: bit1 + bit3(spare) set -> 0b10100000 = 0xA0, FX=0
	cur := bitio.NewCursor([]byte{0xA0, 0x07}, 0)

	rec, _ := Decode(cat, cur)
	require.NotNil(t, rec)
	require.Len(t, rec.Items, 1)
	require.Len(t, rec.Diagnostics, 1)
	require.Equal(t, diag.SparePresent, rec.Diagnostics[0].Kind)
}

func TestDecodeUAPOverrun(t *testing.T) {
	cat := simpleCat()
	// FSPEC sets 7 bits in octet 1, FX=1, then a second octet with bit 1
	// set -> position 8, beyond the UAP's declared span of 7. Bytes for
	// items 010/040 are supplied so Truncated can't preempt UAPOverrun.
	cur := bitio.NewCursor([]byte{0xFF, 0x80, 0x07, 0x09}, 0)

	rec, log := Decode(cat, cur)
	require.Nil(t, rec)
	require.True(t, log.HasFatal())
	require.Equal(t, diag.UAPOverrun, log.Entries()[len(log.Entries())-1].Kind)
}

func TestDecodeOneRecordUnderrun(t *testing.T) {
	cat := simpleCat()
	buf := []byte{0xC0, 0x07, 0x09, 0xAA, 0xBB} // 2 extra trailing bytes
	rec := DecodeOne(cat, buf, 100)

	require.NotNil(t, rec)
	found := false
	for _, d := range rec.Diagnostics {
		if d.Kind == diag.RecordUnderrun {
			found = true
		}
	}
	require.True(t, found)
}

func TestDecodeOneExactNoUnderrun(t *testing.T) {
	cat := simpleCat()
	buf := []byte{0xC0, 0x07, 0x09}
	rec := DecodeOne(cat, buf, 0)

	require.NotNil(t, rec)
	for _, d := range rec.Diagnostics {
		require.NotEqual(t, diag.RecordUnderrun, d.Kind)
	}
}

func TestDecodeTruncatedFSPEC(t *testing.T) {
	cat := simpleCat()
	cur := bitio.NewCursor([]byte{0x81}, 0) // FX=1 but no second octet

	rec, log := Decode(cat, cur)
	require.Nil(t, rec)
	require.True(t, log.HasFatal())
	require.Equal(t, diag.Truncated, log.Entries()[0].Kind)
}

func TestRecordDecoderTracingDoesNotAffectResult(t *testing.T) {
	cat := simpleCat()
	cur := bitio.NewCursor([]byte{0xC0, 0x07, 0x09}, 0)

	d := &Decoder{}
	rec, _ := d.Decode(cat, cur)
	require.NotNil(t, rec)
	require.Len(t, rec.Items, 2)
}

func TestDecodeDiscriminatedUAP(t *testing.T) {
	item000 := &schema.ItemDef{
		ID:     "000",
		Format: schema.Fixed,
		Fixed:  &schema.FixedLayout{Bytes: 1, BitFields: []schema.BitField{{Name: "type", FromBit: 8, ToBit: 1, Encoding: schema.UnsignedInt}}},
	}
	uapA := &schema.UAP{Name: "A", Entries: []schema.UAPEntry{{Position: 1, ItemID: "000"}, {Position: 2, Spare: true}, {Position: 3, Spare: true}, {Position: 4, Spare: true}, {Position: 5, Spare: true}, {Position: 6, Spare: true}, {Position: 7, Spare: true}}}
	cat := &schema.Category{
		Number: 2,
		Items:  map[string]*schema.ItemDef{"000": item000},
		UAPs:   map[string]*schema.UAP{"A": uapA},
		Discriminator: &schema.DiscriminatorRule{
			ByteOffset: 1, // record's single FSPEC octet sits at offset 0
			FromBit:    8,
			ToBit:      1,
			ValueToUAP: map[uint64]string{1: "A"},
		},
	}

	// FSPEC byte (0x80, bit1 set FX=0) then item 000 = type 1
	cur := bitio.NewCursor([]byte{0x80, 0x01}, 0)
	rec, _ := Decode(cat, cur)
	require.NotNil(t, rec)
	require.Equal(t, "A", rec.UAP)

	g := rec.Items[0].Node.(*adata.Group)
	require.Equal(t, int64(1), g.Get("type").(*adata.Scalar).Value)
}
