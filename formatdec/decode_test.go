package formatdec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-asterix/asterix/adata"
	"github.com/go-asterix/asterix/bitio"
	"github.com/go-asterix/asterix/diag"
	"github.com/go-asterix/asterix/schema"
)

func sacSicItem() *schema.ItemDef {
	return &schema.ItemDef{
		ID:     "010",
		Format: schema.Fixed,
		Fixed: &schema.FixedLayout{
			Bytes: 2,
			BitFields: []schema.BitField{
				{Name: "SAC", FromBit: 16, ToBit: 9, Encoding: schema.UnsignedInt},
				{Name: "SIC", FromBit: 8, ToBit: 1, Encoding: schema.UnsignedInt},
			},
		},
	}
}

func TestDecodeFixed(t *testing.T) {
	var log diag.Log
	cur := bitio.NewCursor([]byte{0x00, 0x07}, 0)
	ctx := NewContext(&log, 48)

	node, err := Decode(sacSicItem(), cur, ctx)
	require.NoError(t, err)
	g := node.(*adata.Group)
	require.Equal(t, int64(7), g.Get("SIC").(*adata.Scalar).Value)
	require.Equal(t, 0, cur.Remaining())
}

func TestDecodeFixedTruncated(t *testing.T) {
	var log diag.Log
	cur := bitio.NewCursor([]byte{0x00}, 0)
	ctx := NewContext(&log, 48)

	_, err := Decode(sacSicItem(), cur, ctx)
	require.ErrorIs(t, err, ErrAborted)
	require.Equal(t, 1, log.Len())
	require.Equal(t, diag.Truncated, log.Entries()[0].Kind)
}

func variableItem() *schema.ItemDef {
	return &schema.ItemDef{
		ID:     "020",
		Format: schema.Variable,
		Variable: &schema.VariableLayout{
			Groups: [][]schema.BitField{
				{{Name: "A", FromBit: 8, ToBit: 2, Encoding: schema.UnsignedInt}},
				{{Name: "B", FromBit: 8, ToBit: 2, Encoding: schema.UnsignedInt}},
			},
		},
	}
}

func TestDecodeVariableSingleOctet(t *testing.T) {
	var log diag.Log
	cur := bitio.NewCursor([]byte{0b00000100}, 0) // data=2, FX=0
	ctx := NewContext(&log, 48)

	node, err := Decode(variableItem(), cur, ctx)
	require.NoError(t, err)
	g := node.(*adata.Group)
	require.Equal(t, int64(2), g.Get("A").(*adata.Scalar).Value)
	require.Equal(t, 0, cur.Remaining())
}

func TestDecodeVariableExtension(t *testing.T) {
	var log diag.Log
	cur := bitio.NewCursor([]byte{0b00000101, 0b00000110}, 0) // first FX=1, second FX=0
	ctx := NewContext(&log, 48)

	node, err := Decode(variableItem(), cur, ctx)
	require.NoError(t, err)
	g := node.(*adata.Group)
	require.Equal(t, int64(2), g.Get("A").(*adata.Scalar).Value)
	require.Equal(t, int64(3), g.Get("B").(*adata.Scalar).Value)
}

func TestDecodeVariableExtensionTooLong(t *testing.T) {
	var log diag.Log
	allOnes := make([]byte, 20)
	for i := range allOnes {
		allOnes[i] = 0xFF // FX always set
	}
	cur := bitio.NewCursor(allOnes, 0)
	ctx := NewContext(&log, 48)
	ctx.MaxVariableExtensions = 3

	_, err := Decode(variableItem(), cur, ctx)
	require.ErrorIs(t, err, ErrAborted)
	require.Equal(t, diag.ExtensionTooLong, log.Entries()[0].Kind)
}

func TestDecodeRepetitiveZeroCount(t *testing.T) {
	inner := &schema.ItemDef{ID: "inner", Format: schema.Fixed, Fixed: &schema.FixedLayout{Bytes: 1, BitFields: []schema.BitField{{Name: "v", FromBit: 8, ToBit: 1}}}}
	item := &schema.ItemDef{ID: "161", Format: schema.Repetitive, Repetitive: &schema.RepetitiveLayout{Inner: inner}}

	var log diag.Log
	cur := bitio.NewCursor([]byte{0x00}, 0)
	ctx := NewContext(&log, 48)

	node, err := Decode(item, cur, ctx)
	require.NoError(t, err)
	seq := node.(*adata.Sequence)
	require.Empty(t, seq.Items)
}

func TestDecodeRepetitiveCount(t *testing.T) {
	inner := &schema.ItemDef{ID: "inner", Format: schema.Fixed, Fixed: &schema.FixedLayout{Bytes: 1, BitFields: []schema.BitField{{Name: "v", FromBit: 8, ToBit: 1}}}}
	item := &schema.ItemDef{ID: "161", Format: schema.Repetitive, Repetitive: &schema.RepetitiveLayout{Inner: inner}}

	var log diag.Log
	cur := bitio.NewCursor([]byte{0x02, 0x11, 0x22}, 0)
	ctx := NewContext(&log, 48)

	node, err := Decode(item, cur, ctx)
	require.NoError(t, err)
	seq := node.(*adata.Sequence)
	require.Len(t, seq.Items, 2)
	require.Equal(t, int64(0x11), seq.Items[0].(*adata.Group).Get("v").(*adata.Scalar).Value)
}

func TestDecodeRepetitiveInvalidCount(t *testing.T) {
	inner := &schema.ItemDef{ID: "inner", Format: schema.Fixed, Fixed: &schema.FixedLayout{Bytes: 4, BitFields: []schema.BitField{{Name: "v", FromBit: 32, ToBit: 1}}}}
	item := &schema.ItemDef{ID: "161", Format: schema.Repetitive, Repetitive: &schema.RepetitiveLayout{Inner: inner}}

	var log diag.Log
	cur := bitio.NewCursor([]byte{0x05, 0x00, 0x00}, 0) // REP=5, inner=4 bytes, only 2 remaining
	ctx := NewContext(&log, 48)

	_, err := Decode(item, cur, ctx)
	require.ErrorIs(t, err, ErrAborted)
	require.Equal(t, diag.InvalidRepetition, log.Entries()[0].Kind)
}

func TestDecodeExplicit(t *testing.T) {
	item := &schema.ItemDef{ID: "RE", Format: schema.Explicit, Explicit: &schema.ExplicitLayout{}}
	var log diag.Log
	cur := bitio.NewCursor([]byte{0x03, 0xAA, 0xBB}, 0) // L=3 inclusive -> 2 payload bytes
	ctx := NewContext(&log, 48)

	node, err := Decode(item, cur, ctx)
	require.NoError(t, err)
	op := node.(*adata.Opaque)
	require.Equal(t, []byte{0xAA, 0xBB}, op.Bytes)
	require.Equal(t, 0, cur.Remaining())
}

func TestDecodeExplicitInvalidLength(t *testing.T) {
	item := &schema.ItemDef{ID: "RE", Format: schema.Explicit, Explicit: &schema.ExplicitLayout{}}
	var log diag.Log
	cur := bitio.NewCursor([]byte{0x00}, 0)
	ctx := NewContext(&log, 48)

	_, err := Decode(item, cur, ctx)
	require.ErrorIs(t, err, ErrAborted)
	require.Equal(t, diag.InvalidExplicitLength, log.Entries()[0].Kind)
}

func TestDecodeBDSUnknownRegister(t *testing.T) {
	item := &schema.ItemDef{ID: "250", Format: schema.BDS, BDS: &schema.BDSLayout{Registers: map[byte]schema.BDSRegister{}}}
	var log diag.Log
	cur := bitio.NewCursor([]byte{0x10, 1, 2, 3, 4, 5, 6, 7}, 0)
	ctx := NewContext(&log, 48)

	node, err := Decode(item, cur, ctx)
	require.NoError(t, err)
	op := node.(*adata.Opaque)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7}, op.Bytes)
}

func TestDecodeBDSKnownRegister(t *testing.T) {
	item := &schema.ItemDef{
		ID:     "250",
		Format: schema.BDS,
		BDS: &schema.BDSLayout{Registers: map[byte]schema.BDSRegister{
			0x20: {Register: 0x20, Name: "Aircraft Identification", BitFields: []schema.BitField{
				{Name: "v", FromBit: 56, ToBit: 1, Encoding: schema.UnsignedInt},
			}},
		}},
	}
	var log diag.Log
	cur := bitio.NewCursor([]byte{0x20, 0, 0, 0, 0, 0, 0, 9}, 0)
	ctx := NewContext(&log, 48)

	node, err := Decode(item, cur, ctx)
	require.NoError(t, err)
	g := node.(*adata.Group)
	require.Equal(t, int64(9), g.Get("v").(*adata.Scalar).Value)
}

func TestDecodeCompoundSkipsSpareAndUnset(t *testing.T) {
	sub1 := &schema.ItemDef{ID: "SUB1", Format: schema.Fixed, Fixed: &schema.FixedLayout{Bytes: 1, BitFields: []schema.BitField{{Name: "v", FromBit: 8, ToBit: 1}}}}
	item := &schema.ItemDef{
		ID:     "230",
		Format: schema.Compound,
		Compound: &schema.CompoundLayout{SubItems: []schema.CompoundSubItem{
			{BitPosition: 1, Item: sub1},
			{BitPosition: 2, Spare: true},
		}},
	}
	var log diag.Log
	// primary bitmap byte: bit position 1 set (MSB, mask 0x80), FX=0
	cur := bitio.NewCursor([]byte{0b10000000, 0x05}, 0)
	ctx := NewContext(&log, 48)

	node, err := Decode(item, cur, ctx)
	require.NoError(t, err)
	g := node.(*adata.Group)
	require.Len(t, g.Fields, 1)
	require.Equal(t, "SUB1", g.Fields[0].Name)
	require.Equal(t, 0, cur.Remaining())
}

func TestDecodeNestingTooDeep(t *testing.T) {
	var item *schema.ItemDef
	sub := &schema.ItemDef{ID: "inner", Format: schema.Compound}
	item = &schema.ItemDef{
		ID:     "outer",
		Format: schema.Compound,
		Compound: &schema.CompoundLayout{SubItems: []schema.CompoundSubItem{
			{BitPosition: 1, Item: sub},
		}},
	}
	sub.Compound = &schema.CompoundLayout{SubItems: []schema.CompoundSubItem{{BitPosition: 1, Item: item}}}

	var log diag.Log
	data := make([]byte, 0, 32)
	for i := 0; i < 16; i++ {
		data = append(data, 0b10000000)
	}
	cur := bitio.NewCursor(data, 0)
	ctx := NewContext(&log, 48)
	ctx.MaxDepth = 2

	_, err := Decode(item, cur, ctx)
	require.ErrorIs(t, err, ErrAborted)
	require.Equal(t, diag.NestingTooDeep, log.Entries()[0].Kind)
}
