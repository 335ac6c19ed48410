// Package block implements the Block Decoder (C7): reads the top-level
// CAT+LEN framing and iterates records within a block, per spec §4.7.
package block

import (
	"github.com/go-asterix/asterix/adata"
	"github.com/go-asterix/asterix/bitio"
	"github.com/go-asterix/asterix/clog"
	"github.com/go-asterix/asterix/diag"
	"github.com/go-asterix/asterix/record"
	"github.com/go-asterix/asterix/registry"
)

// DecodedBlock is one decoded ASTERIX data block.
type DecodedBlock struct {
	Category int
	Edition  string
	Records  []*record.Record
	Range    adata.ByteRange
}

// Result is the aggregate outcome of decoding every block found in an
// input byte slice.
type Result struct {
	Blocks      []DecodedBlock
	Diagnostics []diag.Diagnostic
}

// Decoder reads CAT+LEN-framed blocks against a Registry of loaded
// category schemas. Its zero value's Log is disabled, matching the
// teacher's Clog default; SetLog enables verbose per-diagnostic tracing
// without changing decode semantics (decoding stays referentially
// transparent regardless of whether tracing is on).
type Decoder struct {
	Registry *registry.Registry
	Log      clog.Clog
}

// NewDecoder returns a Decoder bound to reg with tracing disabled.
func NewDecoder(reg *registry.Registry) *Decoder {
	return &Decoder{Registry: reg}
}

// SetLog installs l as the decoder's tracing sink.
func (d *Decoder) SetLog(l clog.Clog) { d.Log = l }

// Decode reads zero or more CAT+LEN-framed blocks from buf until it is
// exhausted, looking up each block's category in the Decoder's Registry.
// An unregistered category is recoverable: the block decoder skips its
// LEN-framed bytes and continues with the next block. An invalid or
// unreadable LEN is fatal: no later block can be located, so the rest of
// buf is consumed without further decoding.
func (d *Decoder) Decode(buf []byte, base int) Result {
	var result Result
	var log diag.Log

	cur := bitio.NewCursor(buf, base)
	for cur.Remaining() > 0 {
		decodeOneBlock(cur, d.Registry, &result, &log)
	}

	result.Diagnostics = log.Entries()
	for _, entry := range result.Diagnostics {
		if entry.Severity == diag.Fatal {
			d.Log.Error("%s", entry.Error())
		} else {
			d.Log.Warn("%s", entry.Error())
		}
	}
	return result
}

// Decode is a convenience entry point for callers that don't need a
// persistent Decoder (e.g. one-off decodes, tests): it builds an
// unlogged Decoder bound to reg and decodes buf with it.
func Decode(buf []byte, base int, reg *registry.Registry) Result {
	return NewDecoder(reg).Decode(buf, base)
}

func decodeOneBlock(cur *bitio.Cursor, reg *registry.Registry, result *Result, log *diag.Log) {
	start := cur.Offset()

	cat, err := cur.ReadByte()
	if err != nil {
		log.Add(diag.New(diag.Truncated, diag.Fatal, "block header: reading CAT: %v", err).WithOffset(start, -1))
		// Nothing more can be read; force the loop to terminate by
		// draining the cursor.
		cur.ReadBytes(cur.Remaining())
		return
	}

	lenBytes, err := cur.ReadBytes(2)
	if err != nil {
		log.Add(diag.New(diag.InvalidBlockLength, diag.Fatal, "block header: reading LEN: %v", err).WithOffset(start, -1).WithItem(int(cat), ""))
		cur.ReadBytes(cur.Remaining())
		return
	}
	length := int(lenBytes[0])<<8 | int(lenBytes[1])

	if length < 3 || length-3 > cur.Remaining() {
		log.Add(diag.New(diag.InvalidBlockLength, diag.Fatal,
			"cat %d: len %d invalid (remaining %d)", cat, length, cur.Remaining()+3).WithOffset(start, -1).WithItem(int(cat), ""))
		cur.ReadBytes(cur.Remaining())
		return
	}

	cat32 := int(cat)
	schemaCat, ok := reg.Lookup(cat32)
	if !ok {
		log.Add(diag.New(diag.UnknownCategory, diag.Recoverable, "category %d not registered", cat32).WithOffset(start, -1))
		cur.ReadBytes(length - 3)
		return
	}

	payload, _, err := cur.Window(length - 3)
	if err != nil {
		log.Add(diag.New(diag.InvalidBlockLength, diag.Fatal, "cat %d: could not take payload slice: %v", cat32, err).WithOffset(start, -1))
		return
	}

	decoded := DecodedBlock{
		Category: cat32,
		Edition:  schemaCat.Edition,
		Range:    adata.ByteRange{Start: start, End: start + 3 + len(payload)},
	}

	sub := bitio.NewCursor(payload, cur.Offset()-len(payload))
	for sub.Remaining() > 0 {
		rec, recLog := record.Decode(schemaCat, sub)
		log.Merge(recLog)
		if rec == nil {
			// Fatal within a record desynchronizes the remaining
			// bytes of this block; abandon it and move to the next
			// block (spec §7).
			break
		}
		decoded.Records = append(decoded.Records, rec)
	}

	result.Blocks = append(result.Blocks, decoded)
}
