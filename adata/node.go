// Package adata defines the decoded output tree: the shapes a decoded
// ASTERIX record is rendered into, independent of the schema that drove the
// decode. A Node is one of Group, Scalar, Sequence, or Opaque.
package adata

// ByteRange marks the absolute byte span (within the top-level block) a node
// was decoded from, for diagnostics and for callers that want to re-slice
// the original buffer.
type ByteRange struct {
	Start int
	End   int
}

// Len returns the number of bytes the range covers.
func (r ByteRange) Len() int { return r.End - r.Start }

// Node is the common interface satisfied by every decoded tree element.
type Node interface {
	// Range returns the byte span this node was decoded from.
	Range() ByteRange
	node()
}

// Group is a composite node whose children are named fields, in item
// declaration order. It represents a Fixed, Variable, or Compound item, or
// a BDS item whose register has a declared layout.
type Group struct {
	Range_ ByteRange
	Fields []Field
}

// Field pairs a name with its decoded node, preserving declaration order
// (unlike a bare map, which a Go map would not).
type Field struct {
	Name string
	Node Node
}

func (g *Group) Range() ByteRange { return g.Range_ }
func (*Group) node()              {}

// Get returns the node for the named field, or nil if absent.
func (g *Group) Get(name string) Node {
	for _, f := range g.Fields {
		if f.Name == name {
			return f.Node
		}
	}
	return nil
}

// Scalar is a leaf node: a single decoded value extracted from a bit-field.
type Scalar struct {
	Range_ ByteRange

	// Raw is the unscaled, unsigned bit pattern extracted from the wire,
	// widened to uint64. Always populated, even when Value holds a more
	// useful decoded representation, so callers needing an alternate
	// interpretation never have to re-decode the bits themselves.
	Raw uint64

	// Value holds the decoded representation: int64, float64, string,
	// or an Enum, depending on the bit-field's encoding; nil for a spare
	// bit-field.
	Value interface{}

	// Label is set when the bit-field's encoding is an enumerated value
	// with a matching schema-declared label; empty otherwise.
	Label string
}

func (s *Scalar) Range() ByteRange { return s.Range_ }
func (*Scalar) node()              {}

// Sequence is a repeated-item node: the decoded result of a Repetitive
// format item, one Node per repetition.
type Sequence struct {
	Range_ ByteRange
	Items  []Node
}

func (s *Sequence) Range() ByteRange { return s.Range_ }
func (*Sequence) node()              {}

// Opaque holds raw undecoded bytes: the payload of an Explicit item, or of
// a BDS item whose register number has no declared layout.
type Opaque struct {
	Range_ ByteRange
	Bytes  []byte
}

func (o *Opaque) Range() ByteRange { return o.Range_ }
func (*Opaque) node()              {}
