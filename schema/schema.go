// Package schema is the pure, behavior-free in-memory representation of an
// ASTERIX category definition: its item catalog, their format-specific
// layouts, bit-field descriptors, and User Application Profile. Nothing in
// this package reads bytes; schemaload populates it, formatdec/bitfield/
// record/block consume it.
package schema

import (
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Format names one of the six ASTERIX item wire shapes.
type Format int

const (
	Fixed Format = iota
	Variable
	Compound
	Repetitive
	Explicit
	BDS
)

func (f Format) String() string {
	switch f {
	case Fixed:
		return "fixed"
	case Variable:
		return "variable"
	case Compound:
		return "compound"
	case Repetitive:
		return "repetitive"
	case Explicit:
		return "explicit"
	case BDS:
		return "bds"
	default:
		return "unknown"
	}
}

// Rule names whether an item is required to be present per its UAP entry.
type Rule int

const (
	Optional Rule = iota
	Mandatory
)

// Encoding names how a bit-field's raw bits are interpreted.
type Encoding int

const (
	UnsignedInt Encoding = iota
	TwosComplementInt
	IEEEFloat
	ASCII6
	ASCII8
	Octal
	Hex
	Bitmap
	FixedPoint
	EnumEncoding
)

// BitField describes one contiguous bit range within an item's byte
// window, in ASTERIX numbering (bit 1 = LSB of the last byte, 8N = MSB of
// the first byte; FromBit >= ToBit).
type BitField struct {
	Name     string
	FromBit  int
	ToBit    int
	Encoding Encoding
	Signed   bool

	// Scale multiplies the raw integer for FixedPoint encoding: value =
	// raw * Scale * 2^(ScaleExponentBase - f), where f is either a
	// schema constant (ScaleExponentBase used alone, ScaleExponentParam
	// empty) or a sibling bit-field's decoded raw value (when
	// ScaleExponentParam names one).
	Scale              float64
	ScaleExponentBase  int
	ScaleExponentParam string

	Unit string

	// EnumMap maps raw codes to labels for Bitmap/EnumEncoding fields.
	EnumMap map[uint64]string

	// Spare marks a bit-field that is reserved; if its bits are
	// non-zero on the wire, the bitfield extractor reports
	// diag.SparePresent instead of a decoded value.
	Spare bool
}

// Width returns the bit-field's width in bits.
func (b BitField) Width() int { return b.FromBit - b.ToBit + 1 }

// FixedLayout is the payload for a Fixed-format item: an exact byte length
// and the bit-fields that partition it.
type FixedLayout struct {
	Bytes     int
	BitFields []BitField
}

// VariableLayout is the payload for a Variable-format item: the bit-field
// layout of each 7-data-bit octet group, indexed by extension position
// (index 0 is the first octet). If fewer groups are declared than octets
// actually present on the wire, the last declared group's layout is reused
// for any further extension octets.
type VariableLayout struct {
	Groups [][]BitField

	// MaxExtensions caps the number of extension octets this item may
	// consume; 0 means "use the decoder's configured default".
	MaxExtensions int
}

// CompoundSubItem is one bit position in a Compound item's primary
// subfield bitmap.
type CompoundSubItem struct {
	// BitPosition is this sub-item's position in the primary bitmap,
	// counting from the MSB of the first bitmap octet (position 1).
	BitPosition int
	Spare       bool
	// Item is the nested Item Definition decoded when this bit is set;
	// nil when Spare is true.
	Item *ItemDef
}

// CompoundLayout is the payload for a Compound-format item.
type CompoundLayout struct {
	SubItems []CompoundSubItem
}

// RepetitiveLayout is the payload for a Repetitive-format item: a 1-byte
// REP count followed by REP copies of Inner.
type RepetitiveLayout struct {
	Inner *ItemDef
}

// ExplicitLayout is the payload for an Explicit-format item; it carries no
// further structure beyond the length-prefixed opaque payload the decoder
// reads.
type ExplicitLayout struct{}

// BDSRegister describes one known Comm-B register's content layout.
type BDSRegister struct {
	Register  byte
	Name      string
	BitFields []BitField
}

// BDSLayout is the payload for a BDS-format item: a register catalog
// keyed by register number, populated from schema data. Unregistered
// register numbers decode to an Opaque node whose Bytes hold the 7 payload
// bytes; the register number is not stored in the node (its byte range
// still covers all 8 bytes).
type BDSLayout struct {
	Registers map[byte]BDSRegister
}

// ItemDef is one category item definition.
type ItemDef struct {
	ID     string
	Name   string
	Format Format
	Rule   Rule

	Fixed      *FixedLayout
	Variable   *VariableLayout
	Compound   *CompoundLayout
	Repetitive *RepetitiveLayout
	Explicit   *ExplicitLayout
	BDS        *BDSLayout
}

// UAPEntry is one FSPEC bit position's UAP binding.
type UAPEntry struct {
	// Position is the 1-based FSPEC presence-bit index (FX bits are not
	// counted; position 1 is the first presence bit of the first
	// octet).
	Position int
	Spare    bool
	// ItemID names the ItemDef this position selects; empty when
	// Spare is true.
	ItemID string
}

// UAP is one User Application Profile: an ordered set of FSPEC bit
// bindings.
type UAP struct {
	Name    string
	Entries []UAPEntry
}

// MaxPosition returns the highest FSPEC bit position this UAP declares, or
// 0 for an empty UAP.
func (u *UAP) MaxPosition() int {
	max := 0
	for _, e := range u.Entries {
		if e.Position > max {
			max = e.Position
		}
	}
	return max
}

// Entry returns the UAPEntry at the given 1-based position, and whether it
// exists.
func (u *UAP) Entry(position int) (UAPEntry, bool) {
	for _, e := range u.Entries {
		if e.Position == position {
			return e, true
		}
	}
	return UAPEntry{}, false
}

// DiscriminatorRule names how to select among multiple UAPs for one
// category using a look-ahead read of a field within the record, relative
// to the record's start (not the FSPEC's).
type DiscriminatorRule struct {
	// ByteOffset is the 0-based byte offset from the very start of the
	// record (i.e. from the first FSPEC octet, before FSPEC is parsed)
	// at which the discriminator field is read, per spec's "byte
	// offset/bits relative to record start". Schema authors for a
	// category whose discriminator sits in the first post-FSPEC item
	// must therefore account for the FSPEC's own length when it is
	// fixed, or declare a discriminator that reads the FSPEC content
	// itself.
	ByteOffset int
	FromBit    int
	ToBit      int

	// ValueToUAP maps the discriminator's raw decoded value to a UAP
	// name (looked up in Category.UAPs).
	ValueToUAP map[uint64]string
}

// Category is one loaded ASTERIX category schema: its full item catalog
// and one or more UAPs.
type Category struct {
	Number  int
	Edition string

	Items map[string]*ItemDef

	// UAPs holds every UAP declared for this category, keyed by name.
	// A single-UAP category uses the DefaultUAP name as its only key.
	UAPs map[string]*UAP

	// DefaultUAP names the UAP to use when Discriminator is nil.
	DefaultUAP string

	// Discriminator is non-nil for categories that multiplex UAPs by a
	// look-ahead field; schemaload rejects a multi-UAP category schema
	// that has more than one UAP but no Discriminator.
	Discriminator *DiscriminatorRule
}

// ActiveUAP returns the category's default UAP. Callers needing
// discriminator-based selection use Discriminator directly; this is the
// common-case accessor for single-UAP categories.
func (c *Category) ActiveUAP() *UAP {
	return c.UAPs[c.DefaultUAP]
}

// Fingerprint returns a content hash of the category's structural shape,
// stored by the Category Registry with each registered edition and
// reported by its List. It is not a cryptographic digest; it need only be
// stable for a stable schema and cheap to compute.
func (c *Category) Fingerprint() uint64 {
	h := xxhash.New()
	writeInt(h, c.Number)
	writeString(h, c.Edition)
	writeString(h, c.DefaultUAP)

	ids := make([]string, 0, len(c.Items))
	for id := range c.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		item := c.Items[id]
		writeString(h, id)
		writeString(h, item.Name)
		writeInt(h, int(item.Format))
		writeInt(h, int(item.Rule))
	}

	uapNames := make([]string, 0, len(c.UAPs))
	for name := range c.UAPs {
		uapNames = append(uapNames, name)
	}
	sort.Strings(uapNames)
	for _, name := range uapNames {
		uap := c.UAPs[name]
		writeString(h, name)
		for _, e := range uap.Entries {
			writeInt(h, e.Position)
			writeString(h, e.ItemID)
		}
	}

	return h.Sum64()
}

func writeInt(h *xxhash.Digest, n int) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(n >> (8 * i))
	}
	_, _ = h.Write(buf[:])
}

func writeString(h *xxhash.Digest, s string) {
	_, _ = h.Write([]byte(s))
	_, _ = h.Write([]byte{0})
}

