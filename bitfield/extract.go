// Package bitfield implements the per-field bit slicing, scaling, and
// encoding logic the Format Decoders delegate to: given an N-byte window
// and a bit-field descriptor, extract a scalar value per spec §4.5.
package bitfield

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-asterix/asterix/adata"
	"github.com/go-asterix/asterix/diag"
	"github.com/go-asterix/asterix/schema"
)

// Context carries the ambient information Extract needs beyond the window
// and bit-field descriptor: where to report diagnostics, where the window
// sits in the original buffer, and the already-decoded sibling fields of
// the same item (needed to resolve a FixedPoint field's scale exponent
// when it names another field via ScaleExponentParam).
type Context struct {
	Log        *diag.Log
	Category   int
	Item       string
	ByteOffset int

	// SiblingRaw holds the raw decoded value of every bit-field already
	// extracted from the same item, keyed by name, in declaration
	// order (a field may only reference an earlier sibling).
	SiblingRaw map[string]uint64
}

// maxWindowBytes bounds the byte span Extract will pack into a uint64
// accumulator; the schema's bit-field width is already capped at 64 bits
// by convention (spec §4.5), so an aligned field never needs more than 8
// bytes — this allows one extra byte of misalignment slack.
const maxWindowBytes = 9

// Extract reads the bits [bf.ToBit, bf.FromBit] (ASTERIX numbering) out of
// window and decodes them per bf.Encoding, returning a Scalar. window must
// be at least large enough to contain bf's declared bit range; Extract
// does not itself know the item's total byte length.
func Extract(window []byte, bf schema.BitField, ctx Context) (*adata.Scalar, error) {
	raw, err := rawBits(window, bf.FromBit, bf.ToBit)
	if err != nil {
		return nil, err
	}

	width := bf.Width()

	if bf.Spare {
		if raw != 0 && ctx.Log != nil {
			ctx.Log.Add(diag.New(diag.SparePresent, diag.Recoverable,
				"spare bit-field %q non-zero (raw=%#x)", bf.Name, raw).
				WithItem(ctx.Category, ctx.Item))
		}
		return &adata.Scalar{Raw: raw}, nil
	}

	sc := &adata.Scalar{Raw: raw}

	switch bf.Encoding {
	case schema.UnsignedInt, schema.Octal, schema.Hex:
		sc.Value = int64(raw)

	case schema.TwosComplementInt:
		sc.Value = signExtend(raw, width)

	case schema.IEEEFloat:
		switch width {
		case 32:
			sc.Value = float64(math.Float32frombits(uint32(raw)))
		case 64:
			sc.Value = math.Float64frombits(raw)
		default:
			return nil, fmt.Errorf("bitfield: ieee-float width %d unsupported (want 32 or 64)", width)
		}

	case schema.ASCII6:
		sc.Value = decodeASCII6(raw, width, ctx)

	case schema.ASCII8:
		sc.Value = decodeASCII8(raw, width)

	case schema.Bitmap:
		sc.Value = int64(raw)
		if len(bf.EnumMap) > 0 {
			sc.Label = bitmapLabels(raw, bf.EnumMap)
		}

	case schema.FixedPoint:
		signed := int64(raw)
		if bf.Signed {
			signed = signExtend(raw, width)
		}
		exp := bf.ScaleExponentBase
		if bf.ScaleExponentParam != "" {
			f, ok := ctx.SiblingRaw[bf.ScaleExponentParam]
			if !ok {
				return nil, fmt.Errorf("bitfield: scale exponent param %q not found among decoded siblings", bf.ScaleExponentParam)
			}
			exp = bf.ScaleExponentBase - int(f)
		}
		scale := bf.Scale
		if scale == 0 {
			scale = 1
		}
		sc.Value = float64(signed) * scale * math.Pow(2, float64(exp))

	case schema.EnumEncoding:
		label, ok := bf.EnumMap[raw]
		if !ok {
			if ctx.Log != nil {
				ctx.Log.Add(diag.New(diag.UnknownEnum, diag.Recoverable,
					"bit-field %q: no label for code %d", bf.Name, raw).
					WithItem(ctx.Category, ctx.Item))
			}
		}
		sc.Value = adata.Enum{Code: raw, Label: label}
		sc.Label = label

	default:
		sc.Value = int64(raw)
	}

	return sc, nil
}

// rawBits packs the bits [toBit, fromBit] of window (ASTERIX numbering: 1
// is the LSB of the last byte) into a uint64, right-aligned.
func rawBits(window []byte, fromBit, toBit int) (uint64, error) {
	if fromBit < toBit {
		return 0, fmt.Errorf("bitfield: from_bit %d < to_bit %d", fromBit, toBit)
	}
	width := fromBit - toBit + 1
	if width > 64 {
		return 0, fmt.Errorf("bitfield: width %d exceeds 64-bit accumulator", width)
	}

	n := len(window)
	// Byte index counted from the end of window (0 = last byte).
	lowByte := (toBit - 1) / 8
	highByte := (fromBit - 1) / 8
	if highByte >= n {
		return 0, fmt.Errorf("bitfield: bit range [%d,%d] exceeds window of %d bytes", toBit, fromBit, n)
	}
	span := highByte - lowByte + 1
	if span > maxWindowBytes {
		return 0, fmt.Errorf("bitfield: bit range spans %d bytes, exceeds accumulator capacity", span)
	}

	start := n - 1 - highByte
	end := n - lowByte // exclusive
	sub := window[start:end]

	toBitSub := toBit - lowByte*8
	shift := uint(toBitSub - 1)

	// The last byte's bits below toBit are dropped before it joins the
	// accumulator, so a 9-byte span still fits in 64 bits.
	var acc uint64
	last := len(sub) - 1
	for _, b := range sub[:last] {
		acc = acc<<8 | uint64(b)
	}
	acc = acc<<(8-shift) | uint64(sub[last])>>shift

	if width < 64 {
		acc &= (uint64(1) << uint(width)) - 1
	}
	return acc, nil
}

// signExtend interprets raw as a width-bit two's-complement integer.
func signExtend(raw uint64, width int) int64 {
	if width >= 64 {
		return int64(raw)
	}
	signBit := uint64(1) << uint(width-1)
	if raw&signBit != 0 {
		return int64(raw) - int64(uint64(1)<<uint(width))
	}
	return int64(raw)
}

func bitmapLabels(raw uint64, enumMap map[uint64]string) string {
	masks := make([]uint64, 0, len(enumMap))
	for mask := range enumMap {
		masks = append(masks, mask)
	}
	sort.Slice(masks, func(i, j int) bool { return masks[i] < masks[j] })

	var labels []string
	for _, mask := range masks {
		if mask != 0 && raw&mask == mask {
			labels = append(labels, enumMap[mask])
		}
	}
	return strings.Join(labels, ",")
}
