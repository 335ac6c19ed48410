// Package diag implements the decoder's diagnostics taxonomy: structured
// values describing recoverable and fatal conditions encountered while
// decoding, accumulated per record and per block rather than raised as
// panics or returned as a single terminal error.
package diag

import "fmt"

// Severity classifies whether decoding can continue past a Diagnostic.
type Severity int

const (
	// Recoverable diagnostics describe a condition the decoder worked
	// around; the enclosing record or block is still emitted.
	Recoverable Severity = iota
	// Fatal diagnostics describe a condition that aborted decoding of
	// the enclosing record (the rest of that block's records are
	// abandoned; block decoding continues with the next block).
	Fatal
)

func (s Severity) String() string {
	if s == Fatal {
		return "fatal"
	}
	return "recoverable"
}

// Kind identifies the condition a Diagnostic reports.
type Kind string

const (
	// Truncated reports a read that needed more bytes than remained.
	Truncated Kind = "truncated"
	// InvalidBlockLength reports a block LEN field inconsistent with the
	// bytes actually available.
	InvalidBlockLength Kind = "invalid_block_length"
	// UnknownCategory reports a block whose CAT has no registered
	// schema; its LEN-framed bytes are skipped and decoding continues.
	UnknownCategory Kind = "unknown_category"
	// InvalidRepetition reports a Repetitive item whose declared REP
	// count does not fit the bytes available for it.
	InvalidRepetition Kind = "invalid_repetition"
	// InvalidExplicitLength reports an Explicit item whose declared
	// length byte is zero or larger than the bytes available.
	InvalidExplicitLength Kind = "invalid_explicit_length"
	// ExtensionTooLong reports a Variable item whose FX chain exceeded
	// the schema's configured extension cap.
	ExtensionTooLong Kind = "extension_too_long"
	// NestingTooDeep reports a Compound/Repetitive item whose recursive
	// decode exceeded the configured nesting depth cap.
	NestingTooDeep Kind = "nesting_too_deep"
	// SparePresent reports a spare bit-field that was non-zero on the
	// wire; informational, never changes the decoded value.
	SparePresent Kind = "spare_present"
	// UnknownEnum reports a bit-field with an enumerated encoding whose
	// wire value has no matching schema label; the raw value is still
	// surfaced.
	UnknownEnum Kind = "unknown_enum"
	// CharacterDecodeWarning reports a six-bit character whose code
	// point has no mapping in the IA-5 subset table; rendered as '?'.
	CharacterDecodeWarning Kind = "character_decode_warning"
	// RecordUnderrun reports a record.DecodeOne call whose FSPEC+item
	// decode consumed fewer bytes than the caller-supplied buffer held.
	RecordUnderrun Kind = "record_underrun"
	// SchemaError reports a structurally invalid schema rejected at
	// load time.
	SchemaError Kind = "schema_error"
	// MandatoryMissing reports a UAP entry marked Mandatory whose FSPEC
	// bit was not set.
	MandatoryMissing Kind = "mandatory_missing"
	// UAPOverrun reports an incoming FSPEC bit set beyond the bits the
	// active UAP declares, so the rest of the record cannot be safely
	// decoded.
	UAPOverrun Kind = "uap_overrun"
)

// Diagnostic is one accumulated decode-time finding.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Message  string

	// ByteOffset is the absolute offset (within the top-level input)
	// the condition was detected at, or -1 if not applicable.
	ByteOffset int
	// BitOffset is the bit within ByteOffset's byte (ASTERIX
	// convention, bit 8 is MSB), or -1 if not applicable. For FSPEC
	// diagnostics raised by package record, ByteOffset is the record's
	// start and BitOffset is the 1-based FSPEC presence-bit position.
	BitOffset int

	// Category is the ASTERIX category the diagnostic was raised while
	// decoding, or 0 if not yet known (e.g. UnknownCategory itself).
	Category int
	// Item is the item ID the diagnostic pertains to, empty if the
	// diagnostic is record- or block-scoped rather than item-scoped.
	Item string
}

func (d Diagnostic) Error() string {
	loc := ""
	if d.ByteOffset >= 0 {
		loc = fmt.Sprintf(" at byte %d", d.ByteOffset)
		if d.BitOffset >= 0 {
			loc = fmt.Sprintf(" at byte %d bit %d", d.ByteOffset, d.BitOffset)
		}
	}
	if d.Item != "" {
		return fmt.Sprintf("%s (%s)%s: %s [item %s]", d.Kind, d.Severity, loc, d.Message, d.Item)
	}
	return fmt.Sprintf("%s (%s)%s: %s", d.Kind, d.Severity, loc, d.Message)
}

// New builds a Diagnostic with no byte/bit position (ByteOffset/BitOffset
// set to -1). Use WithOffset to attach a position.
func New(kind Kind, sev Severity, msg string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Kind:       kind,
		Severity:   sev,
		Message:    fmt.Sprintf(msg, args...),
		ByteOffset: -1,
		BitOffset:  -1,
	}
}

// WithOffset returns a copy of d with ByteOffset and BitOffset set.
func (d Diagnostic) WithOffset(byteOffset, bitOffset int) Diagnostic {
	d.ByteOffset = byteOffset
	d.BitOffset = bitOffset
	return d
}

// WithItem returns a copy of d tagged with the given category and item ID.
func (d Diagnostic) WithItem(category int, item string) Diagnostic {
	d.Category = category
	d.Item = item
	return d
}

// Log accumulates diagnostics in emission order.
type Log struct {
	entries []Diagnostic
}

// Add appends d to the log.
func (l *Log) Add(d Diagnostic) {
	l.entries = append(l.entries, d)
}

// Entries returns the accumulated diagnostics in emission order. The
// returned slice is owned by the caller; the Log keeps its own.
func (l *Log) Entries() []Diagnostic {
	out := make([]Diagnostic, len(l.entries))
	copy(out, l.entries)
	return out
}

// HasFatal reports whether any accumulated diagnostic is Fatal.
func (l *Log) HasFatal() bool {
	for _, d := range l.entries {
		if d.Severity == Fatal {
			return true
		}
	}
	return false
}

// Len returns the number of accumulated diagnostics.
func (l *Log) Len() int { return len(l.entries) }

// Merge appends another Log's entries onto l, preserving order.
func (l *Log) Merge(other *Log) {
	if other == nil {
		return
	}
	l.entries = append(l.entries, other.entries...)
}
