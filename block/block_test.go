package block

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-asterix/asterix/diag"
	"github.com/go-asterix/asterix/registry"
	"github.com/go-asterix/asterix/schema"
)

func cat34() *schema.Category {
	item010 := &schema.ItemDef{
		ID:     "010",
		Format: schema.Fixed,
		Rule:   schema.Mandatory,
		Fixed: &schema.FixedLayout{
			Bytes:     1,
			BitFields: []schema.BitField{{Name: "SIC", FromBit: 8, ToBit: 1, Encoding: schema.UnsignedInt}},
		},
	}
	uap := &schema.UAP{
		Name: "default",
		Entries: []schema.UAPEntry{
			{Position: 1, ItemID: "010"},
			{Position: 2, Spare: true},
			{Position: 3, Spare: true},
			{Position: 4, Spare: true},
			{Position: 5, Spare: true},
			{Position: 6, Spare: true},
			{Position: 7, Spare: true},
		},
	}
	return &schema.Category{
		Number:     34,
		Edition:    "1.27",
		DefaultUAP: "default",
		Items:      map[string]*schema.ItemDef{"010": item010},
		UAPs:       map[string]*schema.UAP{"default": uap},
	}
}

func regWith(cats ...*schema.Category) *registry.Registry {
	r := registry.New()
	for _, c := range cats {
		_ = r.Register(c)
	}
	return r
}

func TestDecodeSingleBlockSingleRecord(t *testing.T) {
	reg := regWith(cat34())
	// CAT=34, LEN=0x0005 (3 header + 2 payload), FSPEC 0x80 (bit1, FX=0), SIC byte.
	buf := []byte{34, 0x00, 0x05, 0x80, 0x09}

	result := Decode(buf, 0, reg)
	require.Len(t, result.Blocks, 1)
	require.Empty(t, result.Diagnostics)
	b := result.Blocks[0]
	require.Equal(t, 34, b.Category)
	require.Equal(t, "1.27", b.Edition)
	require.Len(t, b.Records, 1)
	require.Equal(t, 0, b.Range.Start)
	require.Equal(t, 5, b.Range.End)
}

func TestDecodeMultipleRecordsInOneBlock(t *testing.T) {
	reg := regWith(cat34())
	// Two records back to back within one block: LEN = 3 + 2 + 2 = 7.
	buf := []byte{34, 0x00, 0x07, 0x80, 0x01, 0x80, 0x02}

	result := Decode(buf, 0, reg)
	require.Len(t, result.Blocks, 1)
	require.Len(t, result.Blocks[0].Records, 2)
	require.Empty(t, result.Diagnostics)
}

func TestDecodeUnknownCategorySkipsBlock(t *testing.T) {
	reg := regWith(cat34())
	// CAT=99 unknown, LEN=5, followed by a valid CAT34 block.
	buf := []byte{
		99, 0x00, 0x05, 0xAA, 0xBB,
		34, 0x00, 0x05, 0x80, 0x09,
	}

	result := Decode(buf, 0, reg)
	require.Len(t, result.Blocks, 1)
	require.Equal(t, 34, result.Blocks[0].Category)
	require.Len(t, result.Diagnostics, 1)
	require.Equal(t, diag.UnknownCategory, result.Diagnostics[0].Kind)
}

func TestDecodeInvalidBlockLengthTooSmall(t *testing.T) {
	reg := regWith(cat34())
	buf := []byte{34, 0x00, 0x02} // LEN must be >= 3

	result := Decode(buf, 0, reg)
	require.Empty(t, result.Blocks)
	require.Len(t, result.Diagnostics, 1)
	require.Equal(t, diag.InvalidBlockLength, result.Diagnostics[0].Kind)
}

func TestDecodeInvalidBlockLengthExceedsBuffer(t *testing.T) {
	reg := regWith(cat34())
	buf := []byte{34, 0x00, 0x20, 0x80, 0x09} // LEN says 32 bytes, only 5 present

	result := Decode(buf, 0, reg)
	require.Empty(t, result.Blocks)
	require.Len(t, result.Diagnostics, 1)
	require.Equal(t, diag.InvalidBlockLength, result.Diagnostics[0].Kind)
}

func TestDecodeTruncatedHeader(t *testing.T) {
	reg := regWith(cat34())
	buf := []byte{34, 0x00} // missing second LEN byte

	result := Decode(buf, 0, reg)
	require.Empty(t, result.Blocks)
	require.Len(t, result.Diagnostics, 1)
	require.Equal(t, diag.InvalidBlockLength, result.Diagnostics[0].Kind)
}

func TestDecodeFatalRecordAbandonsBlockContinuesNext(t *testing.T) {
	reg := regWith(cat34())
	// First block: a single-byte payload holding FSPEC octet 0x81 (FX=1),
	// so the record's continuation octet is truncated -> fatal, abandoning
	// the rest of this block. Second block: a valid CAT34 record.
	buf := []byte{
		34, 0x00, 0x04, 0x81,
		34, 0x00, 0x05, 0x80, 0x09,
	}

	result := Decode(buf, 0, reg)
	require.Len(t, result.Blocks, 2)
	require.Empty(t, result.Blocks[0].Records)
	require.Len(t, result.Blocks[1].Records, 1)

	foundFatal := false
	for _, d := range result.Diagnostics {
		if d.Severity == diag.Fatal {
			foundFatal = true
		}
	}
	require.True(t, foundFatal)
}

func TestDecoderTracingDoesNotAffectResult(t *testing.T) {
	reg := regWith(cat34())
	d := NewDecoder(reg)
	// Log left at its zero value (disabled); Decode must behave identically
	// to the package-level convenience function regardless.
	buf := []byte{34, 0x00, 0x05, 0x80, 0x09}

	result := d.Decode(buf, 0)
	require.Len(t, result.Blocks, 1)
	require.Empty(t, result.Diagnostics)
}
