package schemaload

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/go-asterix/asterix/schema"
)

// SchemaError reports a malformed or internally inconsistent schema
// document rejected at load time, per spec §4.3.
type SchemaError struct {
	Category int
	Item     string
	Reason   string
}

func (e *SchemaError) Error() string {
	if e.Item != "" {
		return fmt.Sprintf("schemaload: category %d item %s: %s", e.Category, e.Item, e.Reason)
	}
	return fmt.Sprintf("schemaload: category %d: %s", e.Category, e.Reason)
}

// LoadFile reads and parses a single category schema document from path.
func LoadFile(path string) (*schema.Category, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schemaload: opening %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a single category schema document from r.
func Load(r io.Reader) (*schema.Category, error) {
	var doc categoryDoc
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("schemaload: parsing yaml: %w", err)
	}
	return build(&doc)
}

// build converts a parsed categoryDoc into a validated schema.Category,
// deterministically and idempotently (no global state is touched).
func build(doc *categoryDoc) (*schema.Category, error) {
	cat := &schema.Category{
		Number:     doc.Category,
		Edition:    doc.Edition,
		Items:      map[string]*schema.ItemDef{},
		UAPs:       map[string]*schema.UAP{},
		DefaultUAP: doc.DefaultUAP,
	}

	for _, id := range doc.Items {
		item, err := buildItem(cat.Number, &id)
		if err != nil {
			return nil, err
		}
		if _, dup := cat.Items[item.ID]; dup {
			return nil, &SchemaError{Category: cat.Number, Item: item.ID, Reason: "duplicate item id"}
		}
		cat.Items[item.ID] = item
	}

	for _, ud := range doc.UAPs {
		u, err := buildUAP(cat, &ud)
		if err != nil {
			return nil, err
		}
		cat.UAPs[u.Name] = u
	}

	if len(cat.UAPs) == 0 {
		return nil, &SchemaError{Category: cat.Number, Reason: "no uaps declared"}
	}
	if len(cat.UAPs) > 1 && doc.Discriminator == nil {
		return nil, &SchemaError{Category: cat.Number, Reason: "category declares multiple uaps but no discriminator rule"}
	}
	if cat.DefaultUAP == "" {
		if len(cat.UAPs) == 1 {
			for name := range cat.UAPs {
				cat.DefaultUAP = name
			}
		} else {
			return nil, &SchemaError{Category: cat.Number, Reason: "default_uap required when more than one uap is declared"}
		}
	}
	if _, ok := cat.UAPs[cat.DefaultUAP]; !ok {
		return nil, &SchemaError{Category: cat.Number, Reason: fmt.Sprintf("default_uap %q is not a declared uap", cat.DefaultUAP)}
	}

	if doc.Discriminator != nil {
		if doc.Discriminator.FromBit < doc.Discriminator.ToBit {
			return nil, &SchemaError{Category: cat.Number, Reason: "discriminator from_bit must be >= to_bit"}
		}
		cat.Discriminator = &schema.DiscriminatorRule{
			ByteOffset: doc.Discriminator.ByteOffset,
			FromBit:    doc.Discriminator.FromBit,
			ToBit:      doc.Discriminator.ToBit,
			ValueToUAP: doc.Discriminator.ValueToUAP,
		}
		for _, uapName := range doc.Discriminator.ValueToUAP {
			if _, ok := cat.UAPs[uapName]; !ok {
				return nil, &SchemaError{Category: cat.Number, Reason: fmt.Sprintf("discriminator refers to undeclared uap %q", uapName)}
			}
		}
	}

	return cat, nil
}

func buildItem(category int, id *itemDoc) (*schema.ItemDef, error) {
	if id.ID == "" {
		return nil, &SchemaError{Category: category, Reason: "item with empty id"}
	}

	format, err := parseFormat(id.Format)
	if err != nil {
		return nil, &SchemaError{Category: category, Item: id.ID, Reason: err.Error()}
	}

	item := &schema.ItemDef{
		ID:     id.ID,
		Name:   id.Name,
		Format: format,
		Rule:   parseRule(id.Rule),
	}

	switch format {
	case schema.Fixed:
		if id.Fixed == nil {
			return nil, &SchemaError{Category: category, Item: id.ID, Reason: "fixed item missing fixed: block"}
		}
		fl, err := buildFixed(category, id.ID, id.Fixed)
		if err != nil {
			return nil, err
		}
		item.Fixed = fl
	case schema.Variable:
		if id.Variable == nil {
			return nil, &SchemaError{Category: category, Item: id.ID, Reason: "variable item missing variable: block"}
		}
		vl, err := buildVariable(category, id.ID, id.Variable)
		if err != nil {
			return nil, err
		}
		item.Variable = vl
	case schema.Compound:
		if id.Compound == nil {
			return nil, &SchemaError{Category: category, Item: id.ID, Reason: "compound item missing compound: block"}
		}
		cl, err := buildCompound(category, id.ID, id.Compound)
		if err != nil {
			return nil, err
		}
		item.Compound = cl
	case schema.Repetitive:
		if id.Repetitive == nil || id.Repetitive.Inner == nil {
			return nil, &SchemaError{Category: category, Item: id.ID, Reason: "repetitive item missing repetitive.inner block"}
		}
		inner, err := buildItem(category, id.Repetitive.Inner)
		if err != nil {
			return nil, err
		}
		item.Repetitive = &schema.RepetitiveLayout{Inner: inner}
	case schema.Explicit:
		item.Explicit = &schema.ExplicitLayout{}
	case schema.BDS:
		if id.BDS == nil {
			return nil, &SchemaError{Category: category, Item: id.ID, Reason: "bds item missing bds: block"}
		}
		item.BDS = buildBDS(id.BDS)
	}

	return item, nil
}

func buildFixed(category int, itemID string, fd *fixedDoc) (*schema.FixedLayout, error) {
	fl := &schema.FixedLayout{Bytes: fd.Bytes}
	total := 0
	occupied := make([]bool, fd.Bytes*8+1)
	for _, bf := range fd.BitFields {
		sbf, err := buildBitField(&bf)
		if err != nil {
			return nil, &SchemaError{Category: category, Item: itemID, Reason: err.Error()}
		}
		if sbf.ToBit > sbf.FromBit {
			return nil, &SchemaError{Category: category, Item: itemID, Reason: fmt.Sprintf("bit-field %q: to_bit must be <= from_bit", sbf.Name)}
		}
		if sbf.FromBit > fd.Bytes*8 || sbf.ToBit < 1 {
			return nil, &SchemaError{Category: category, Item: itemID, Reason: fmt.Sprintf("bit-field %q: bit range out of item bounds", sbf.Name)}
		}
		for bit := sbf.ToBit; bit <= sbf.FromBit; bit++ {
			if occupied[bit] {
				return nil, &SchemaError{Category: category, Item: itemID, Reason: fmt.Sprintf("bit-field %q: bit %d already claimed", sbf.Name, bit)}
			}
			occupied[bit] = true
		}
		total += sbf.Width()
		fl.BitFields = append(fl.BitFields, sbf)
	}
	if total != fd.Bytes*8 {
		return nil, &SchemaError{Category: category, Item: itemID, Reason: fmt.Sprintf("bit-fields cover %d bits, want %d (%d bytes)", total, fd.Bytes*8, fd.Bytes)}
	}
	return fl, nil
}

func buildVariable(category int, itemID string, vd *variableDoc) (*schema.VariableLayout, error) {
	if len(vd.Groups) == 0 {
		return nil, &SchemaError{Category: category, Item: itemID, Reason: "variable item must declare at least one group"}
	}
	vl := &schema.VariableLayout{MaxExtensions: vd.MaxExtensions}
	for gi, group := range vd.Groups {
		var bfs []schema.BitField
		total := 0
		for _, bf := range group {
			sbf, err := buildBitField(&bf)
			if err != nil {
				return nil, &SchemaError{Category: category, Item: itemID, Reason: err.Error()}
			}
			total += sbf.Width()
			bfs = append(bfs, sbf)
		}
		if total != 7 {
			return nil, &SchemaError{Category: category, Item: itemID, Reason: fmt.Sprintf("group %d: bit-fields cover %d of the 7 data bits per octet", gi, total)}
		}
		vl.Groups = append(vl.Groups, bfs)
	}
	return vl, nil
}

func buildCompound(category int, itemID string, cd *compoundDoc) (*schema.CompoundLayout, error) {
	cl := &schema.CompoundLayout{}
	seen := map[int]bool{}
	for _, sub := range cd.SubItems {
		if seen[sub.BitPosition] {
			return nil, &SchemaError{Category: category, Item: itemID, Reason: fmt.Sprintf("duplicate compound bit position %d", sub.BitPosition)}
		}
		seen[sub.BitPosition] = true

		entry := schema.CompoundSubItem{BitPosition: sub.BitPosition, Spare: sub.Spare}
		if !sub.Spare {
			if sub.Item == nil {
				return nil, &SchemaError{Category: category, Item: itemID, Reason: fmt.Sprintf("compound bit %d: non-spare sub-item missing item: block", sub.BitPosition)}
			}
			subItem, err := buildItem(category, sub.Item)
			if err != nil {
				return nil, err
			}
			entry.Item = subItem
		}
		cl.SubItems = append(cl.SubItems, entry)
	}
	if len(cl.SubItems) == 0 {
		return nil, &SchemaError{Category: category, Item: itemID, Reason: "compound item declares no sub-items"}
	}
	return cl, nil
}

func buildBDS(bd *bdsDoc) *schema.BDSLayout {
	bl := &schema.BDSLayout{Registers: map[byte]schema.BDSRegister{}}
	for _, r := range bd.Registers {
		var bfs []schema.BitField
		for _, bf := range r.BitFields {
			sbf, _ := buildBitField(&bf)
			bfs = append(bfs, sbf)
		}
		bl.Registers[r.Register] = schema.BDSRegister{Register: r.Register, Name: r.Name, BitFields: bfs}
	}
	return bl
}

func buildBitField(bf *bitFieldDoc) (schema.BitField, error) {
	enc, err := parseEncoding(bf.Encoding)
	if err != nil {
		return schema.BitField{}, err
	}
	return schema.BitField{
		Name:               bf.Name,
		FromBit:            bf.From,
		ToBit:              bf.To,
		Encoding:           enc,
		Signed:             enc == schema.TwosComplementInt,
		Scale:              bf.Scale,
		ScaleExponentBase:  bf.ScaleExponentBase,
		ScaleExponentParam: bf.ScaleExponentParam,
		Unit:               bf.Unit,
		EnumMap:            bf.Enum,
		Spare:              bf.Spare,
	}, nil
}

func buildUAP(cat *schema.Category, ud *uapDoc) (*schema.UAP, error) {
	if ud.Name == "" {
		return nil, &SchemaError{Category: cat.Number, Reason: "uap with empty name"}
	}
	u := &schema.UAP{Name: ud.Name}
	seen := map[int]bool{}
	for _, e := range ud.Entries {
		if seen[e.Position] {
			return nil, &SchemaError{Category: cat.Number, Reason: fmt.Sprintf("uap %q: duplicate position %d", ud.Name, e.Position)}
		}
		seen[e.Position] = true
		if !e.Spare {
			if _, ok := cat.Items[e.ItemID]; !ok {
				return nil, &SchemaError{Category: cat.Number, Reason: fmt.Sprintf("uap %q: position %d refers to undeclared item %q", ud.Name, e.Position, e.ItemID)}
			}
		}
		u.Entries = append(u.Entries, schema.UAPEntry{Position: e.Position, Spare: e.Spare, ItemID: e.ItemID})
	}
	for i := 1; i <= u.MaxPosition(); i++ {
		if !seen[i] {
			return nil, &SchemaError{Category: cat.Number, Reason: fmt.Sprintf("uap %q: position %d has no entry (uap indices must be dense)", ud.Name, i)}
		}
	}
	return u, nil
}

func parseFormat(s string) (schema.Format, error) {
	switch s {
	case "fixed":
		return schema.Fixed, nil
	case "variable":
		return schema.Variable, nil
	case "compound":
		return schema.Compound, nil
	case "repetitive":
		return schema.Repetitive, nil
	case "explicit":
		return schema.Explicit, nil
	case "bds":
		return schema.BDS, nil
	default:
		return 0, fmt.Errorf("unknown format %q", s)
	}
}

func parseRule(s string) schema.Rule {
	if s == "mandatory" {
		return schema.Mandatory
	}
	return schema.Optional
}

func parseEncoding(s string) (schema.Encoding, error) {
	switch s {
	case "", "unsigned":
		return schema.UnsignedInt, nil
	case "signed":
		return schema.TwosComplementInt, nil
	case "float":
		return schema.IEEEFloat, nil
	case "ascii6":
		return schema.ASCII6, nil
	case "ascii8":
		return schema.ASCII8, nil
	case "octal":
		return schema.Octal, nil
	case "hex":
		return schema.Hex, nil
	case "bitmap":
		return schema.Bitmap, nil
	case "fixed_point":
		return schema.FixedPoint, nil
	case "enum":
		return schema.EnumEncoding, nil
	default:
		return 0, fmt.Errorf("unknown encoding %q", s)
	}
}
