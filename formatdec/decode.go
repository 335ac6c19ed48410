package formatdec

import (
	"errors"
	"fmt"

	"github.com/go-asterix/asterix/adata"
	"github.com/go-asterix/asterix/bitfield"
	"github.com/go-asterix/asterix/bitio"
	"github.com/go-asterix/asterix/diag"
	"github.com/go-asterix/asterix/schema"
)

// ErrAborted is returned by Decode when a fatal condition aborted the
// item's decode. The diagnostic describing why has already been appended
// to ctx.Log by the time this is returned; callers should not also log it.
var ErrAborted = errors.New("formatdec: item decode aborted")

// Decode dispatches item to the format decoder matching item.Format,
// reading from cur and recording diagnostics in ctx.Log. It returns
// ErrAborted (with the reason already in ctx.Log) on a fatal condition.
func Decode(item *schema.ItemDef, cur *bitio.Cursor, ctx *Context) (adata.Node, error) {
	switch item.Format {
	case schema.Fixed:
		return decodeFixed(item, cur, ctx)
	case schema.Variable:
		return decodeVariable(item, cur, ctx)
	case schema.Compound:
		return decodeCompound(item, cur, ctx)
	case schema.Repetitive:
		return decodeRepetitive(item, cur, ctx)
	case schema.Explicit:
		return decodeExplicit(item, cur, ctx)
	case schema.BDS:
		return decodeBDS(item, cur, ctx)
	default:
		return nil, fmt.Errorf("formatdec: unknown format %v for item %s", item.Format, item.ID)
	}
}

func (ctx *Context) abort(kind diag.Kind, item string, msg string, args ...interface{}) error {
	d := diag.New(kind, diag.Fatal, msg, args...).WithItem(ctx.Category, item)
	if ctx.Log != nil {
		ctx.Log.Add(d)
	}
	return ErrAborted
}

func decodeFixed(item *schema.ItemDef, cur *bitio.Cursor, ctx *Context) (adata.Node, error) {
	fl := item.Fixed
	window, start, err := cur.Window(fl.Bytes)
	if err != nil {
		return nil, ctx.abort(diag.Truncated, item.ID, "fixed item %s: %v", item.ID, err)
	}

	group := &adata.Group{Range_: adata.ByteRange{Start: start, End: start + fl.Bytes}}
	siblings := map[string]uint64{}
	bctx := bitfield.Context{Log: ctx.Log, Category: ctx.Category, Item: item.ID, ByteOffset: start, SiblingRaw: siblings}

	for _, bf := range fl.BitFields {
		sc, err := bitfield.Extract(window, bf, bctx)
		if err != nil {
			return nil, ctx.abort(diag.Truncated, item.ID, "fixed item %s field %s: %v", item.ID, bf.Name, err)
		}
		sc.Range_ = adata.ByteRange{Start: start, End: start + fl.Bytes}
		siblings[bf.Name] = sc.Raw
		if bf.Name == "" {
			continue
		}
		group.Fields = append(group.Fields, adata.Field{Name: bf.Name, Node: sc})
	}
	return group, nil
}

func decodeVariable(item *schema.ItemDef, cur *bitio.Cursor, ctx *Context) (adata.Node, error) {
	vl := item.Variable
	maxExt := ctx.MaxVariableExtensions
	if vl.MaxExtensions > 0 {
		maxExt = vl.MaxExtensions
	}

	start := cur.Offset()
	group := &adata.Group{}
	siblings := map[string]uint64{}

	for i := 0; ; i++ {
		if i >= maxExt {
			return nil, ctx.abort(diag.ExtensionTooLong, item.ID, "variable item %s exceeded %d extension octets", item.ID, maxExt)
		}
		b, byteStart, err := cur.Window(1)
		if err != nil {
			return nil, ctx.abort(diag.Truncated, item.ID, "variable item %s octet %d: %v", item.ID, i, err)
		}

		bfs := groupLayout(vl, i)
		bctx := bitfield.Context{Log: ctx.Log, Category: ctx.Category, Item: item.ID, ByteOffset: byteStart, SiblingRaw: siblings}
		for _, bf := range bfs {
			sc, err := bitfield.Extract(b, bf, bctx)
			if err != nil {
				return nil, ctx.abort(diag.Truncated, item.ID, "variable item %s octet %d field %s: %v", item.ID, i, bf.Name, err)
			}
			sc.Range_ = adata.ByteRange{Start: byteStart, End: byteStart + 1}
			siblings[bf.Name] = sc.Raw
			if bf.Name == "" {
				continue
			}
			group.Fields = append(group.Fields, adata.Field{Name: bf.Name, Node: sc})
		}

		if b[0]&0x01 == 0 {
			break
		}
	}

	group.Range_ = adata.ByteRange{Start: start, End: cur.Offset()}
	return group, nil
}

// groupLayout returns the bit-field layout for the i'th extension octet,
// reusing the last declared group for any octet beyond those declared.
func groupLayout(vl *schema.VariableLayout, i int) []schema.BitField {
	if i < len(vl.Groups) {
		return vl.Groups[i]
	}
	return vl.Groups[len(vl.Groups)-1]
}

func decodeCompound(item *schema.ItemDef, cur *bitio.Cursor, ctx *Context) (adata.Node, error) {
	if ctx.Depth >= ctx.MaxDepth {
		return nil, ctx.abort(diag.NestingTooDeep, item.ID, "compound item %s exceeded nesting depth %d", item.ID, ctx.MaxDepth)
	}

	cl := item.Compound
	start := cur.Offset()

	bitmap, err := readPrimaryBitmap(cur, ctx, item.ID)
	if err != nil {
		return nil, err
	}

	group := &adata.Group{}
	child := ctx.child()
	for _, sub := range cl.SubItems {
		set := bitmap[sub.BitPosition]
		if !set {
			continue
		}
		if sub.Spare {
			if ctx.Log != nil {
				ctx.Log.Add(diag.New(diag.SparePresent, diag.Recoverable,
					"compound item %s: spare bit %d set", item.ID, sub.BitPosition).
					WithItem(ctx.Category, item.ID))
			}
			continue
		}
		node, err := Decode(sub.Item, cur, child)
		if err != nil {
			return nil, err
		}
		group.Fields = append(group.Fields, adata.Field{Name: sub.Item.ID, Node: node})
	}

	group.Range_ = adata.ByteRange{Start: start, End: cur.Offset()}
	return group, nil
}

// readPrimaryBitmap reads a Compound item's Variable-shaped primary
// subfield bitmap and returns which 1-based bit positions were set.
func readPrimaryBitmap(cur *bitio.Cursor, ctx *Context, itemID string) (map[int]bool, error) {
	set := map[int]bool{}
	maxExt := ctx.MaxVariableExtensions

	for octet := 0; ; octet++ {
		if octet >= maxExt {
			return nil, ctx.abort(diag.ExtensionTooLong, itemID, "compound item %s primary bitmap exceeded %d octets", itemID, maxExt)
		}
		b, err := cur.ReadByte()
		if err != nil {
			return nil, ctx.abort(diag.Truncated, itemID, "compound item %s primary bitmap octet %d: %v", itemID, octet, err)
		}
		for bit := 0; bit < 7; bit++ {
			pos := octet*7 + bit + 1
			if b&(1<<uint(7-bit)) != 0 {
				set[pos] = true
			}
		}
		if b&0x01 == 0 {
			break
		}
	}
	return set, nil
}

func decodeRepetitive(item *schema.ItemDef, cur *bitio.Cursor, ctx *Context) (adata.Node, error) {
	rl := item.Repetitive
	start := cur.Offset()

	rep, err := cur.ReadByte()
	if err != nil {
		return nil, ctx.abort(diag.Truncated, item.ID, "repetitive item %s: reading REP: %v", item.ID, err)
	}

	if innerSize, ok := staticSize(rl.Inner); ok {
		need := int(rep) * innerSize
		if need > cur.Remaining() {
			return nil, ctx.abort(diag.InvalidRepetition, item.ID,
				"repetitive item %s: REP=%d * inner_size=%d exceeds remaining %d", item.ID, rep, innerSize, cur.Remaining())
		}
	}

	seq := &adata.Sequence{}
	if ctx.Depth >= ctx.MaxDepth {
		return nil, ctx.abort(diag.NestingTooDeep, item.ID, "repetitive item %s exceeded nesting depth %d", item.ID, ctx.MaxDepth)
	}
	child := ctx.child()
	for i := 0; i < int(rep); i++ {
		node, err := Decode(rl.Inner, cur, child)
		if err != nil {
			return nil, err
		}
		seq.Items = append(seq.Items, node)
	}

	seq.Range_ = adata.ByteRange{Start: start, End: cur.Offset()}
	return seq, nil
}

// staticSize reports the byte size of item if it can be determined
// without reading any bytes (only Fixed items qualify); used by the
// Repetitive decoder's early-failure precomputation.
func staticSize(item *schema.ItemDef) (int, bool) {
	if item.Format == schema.Fixed && item.Fixed != nil {
		return item.Fixed.Bytes, true
	}
	return 0, false
}

func decodeExplicit(item *schema.ItemDef, cur *bitio.Cursor, ctx *Context) (adata.Node, error) {
	start := cur.Offset()
	l, ok := cur.PeekByte()
	if !ok {
		return nil, ctx.abort(diag.Truncated, item.ID, "explicit item %s: reading length byte: end of buffer", item.ID)
	}
	if l == 0 || int(l) > cur.Remaining() {
		return nil, ctx.abort(diag.InvalidExplicitLength, item.ID, "explicit item %s: invalid length byte %d (remaining %d)", item.ID, l, cur.Remaining())
	}

	buf, _, err := cur.Window(int(l))
	if err != nil {
		return nil, ctx.abort(diag.Truncated, item.ID, "explicit item %s: %v", item.ID, err)
	}

	return &adata.Opaque{
		Range_: adata.ByteRange{Start: start, End: start + int(l)},
		Bytes:  append([]byte(nil), buf[1:]...),
	}, nil
}

func decodeBDS(item *schema.ItemDef, cur *bitio.Cursor, ctx *Context) (adata.Node, error) {
	window, start, err := cur.Window(8)
	if err != nil {
		return nil, ctx.abort(diag.Truncated, item.ID, "bds item %s: %v", item.ID, err)
	}
	register := window[0]
	payload := window[1:]

	reg, ok := item.BDS.Registers[register]
	if !ok {
		return &adata.Opaque{
			Range_: adata.ByteRange{Start: start, End: start + 8},
			Bytes:  append([]byte(nil), payload...),
		}, nil
	}

	group := &adata.Group{Range_: adata.ByteRange{Start: start, End: start + 8}}
	siblings := map[string]uint64{}
	bctx := bitfield.Context{Log: ctx.Log, Category: ctx.Category, Item: item.ID, ByteOffset: start, SiblingRaw: siblings}
	for _, bf := range reg.BitFields {
		sc, err := bitfield.Extract(payload, bf, bctx)
		if err != nil {
			return nil, ctx.abort(diag.Truncated, item.ID, "bds item %s register %d field %s: %v", item.ID, register, bf.Name, err)
		}
		sc.Range_ = adata.ByteRange{Start: start, End: start + 8}
		siblings[bf.Name] = sc.Raw
		if bf.Name == "" {
			continue
		}
		group.Fields = append(group.Fields, adata.Field{Name: bf.Name, Node: sc})
	}
	return group, nil
}
