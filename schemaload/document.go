// Package schemaload parses category schema documents (YAML) into the
// schema package's in-memory Schema Model, and validates them per the
// internal-consistency rules the Schema Model itself does not enforce at
// construction time.
package schemaload

// categoryDoc mirrors the on-disk YAML shape of one category schema
// document. Field names match the wire vocabulary (fspec bit, from/to bit,
// REP, etc.) rather than the in-memory schema package's Go-idiomatic
// names, since this is the boundary where schema authors write YAML.
type categoryDoc struct {
	Category int    `yaml:"category"`
	Edition  string `yaml:"edition"`

	Items []itemDoc `yaml:"items"`
	UAPs  []uapDoc  `yaml:"uaps"`

	DefaultUAP    string            `yaml:"default_uap"`
	Discriminator *discriminatorDoc `yaml:"discriminator"`
}

type itemDoc struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// Format is one of: fixed, variable, compound, repetitive,
	// explicit, bds.
	Format string `yaml:"format"`
	// Rule is one of: mandatory, optional. Defaults to optional.
	Rule string `yaml:"rule"`

	Fixed      *fixedDoc      `yaml:"fixed"`
	Variable   *variableDoc   `yaml:"variable"`
	Compound   *compoundDoc   `yaml:"compound"`
	Repetitive *repetitiveDoc `yaml:"repetitive"`
	BDS        *bdsDoc        `yaml:"bds"`
	// Explicit has no payload fields; its presence in the document is
	// signaled purely by format: explicit.
}

type bitFieldDoc struct {
	Name    string `yaml:"name"`
	From    int    `yaml:"from_bit"`
	To      int    `yaml:"to_bit"`
	// Encoding is one of: unsigned, signed, float, ascii6, ascii8,
	// octal, hex, bitmap, fixed_point, enum. Defaults to unsigned.
	Encoding string `yaml:"encoding"`

	Scale              float64           `yaml:"scale"`
	ScaleExponentBase  int               `yaml:"scale_exponent_base"`
	ScaleExponentParam string            `yaml:"scale_exponent_param"`
	Unit               string            `yaml:"unit"`
	Enum               map[uint64]string `yaml:"enum"`
	Spare              bool              `yaml:"spare"`
}

type fixedDoc struct {
	Bytes     int           `yaml:"bytes"`
	BitFields []bitFieldDoc `yaml:"bit_fields"`
}

type variableDoc struct {
	Groups        [][]bitFieldDoc `yaml:"groups"`
	MaxExtensions int             `yaml:"max_extensions"`
}

type compoundSubItemDoc struct {
	BitPosition int      `yaml:"bit_position"`
	Spare       bool     `yaml:"spare"`
	Item        *itemDoc `yaml:"item"`
}

type compoundDoc struct {
	SubItems []compoundSubItemDoc `yaml:"sub_items"`
}

type repetitiveDoc struct {
	Inner *itemDoc `yaml:"inner"`
}

type bdsRegisterDoc struct {
	Register  byte          `yaml:"register"`
	Name      string        `yaml:"name"`
	BitFields []bitFieldDoc `yaml:"bit_fields"`
}

type bdsDoc struct {
	Registers []bdsRegisterDoc `yaml:"registers"`
}

type uapEntryDoc struct {
	Position int    `yaml:"position"`
	Spare    bool   `yaml:"spare"`
	ItemID   string `yaml:"item_id"`
}

type uapDoc struct {
	Name    string        `yaml:"name"`
	Entries []uapEntryDoc `yaml:"entries"`
}

type discriminatorDoc struct {
	ByteOffset int               `yaml:"byte_offset"`
	FromBit    int               `yaml:"from_bit"`
	ToBit      int               `yaml:"to_bit"`
	ValueToUAP map[uint64]string `yaml:"value_to_uap"`
}
