// Package formatdec implements the six ASTERIX format-variant decoders
// (Fixed, Variable, Compound, Repetitive, Explicit, BDS) as a tagged
// dispatch over schema.Format rather than a decoder class hierarchy, per
// the reimplementation note in the source design (inheritance over a
// DataItemFormat base is replaced with a sum-type match).
package formatdec

import (
	"github.com/go-asterix/asterix/diag"
)

// DefaultMaxDepth bounds Compound/Repetitive recursion; the deepest
// observed ASTERIX compound nesting is 3.
const DefaultMaxDepth = 8

// DefaultMaxVariableExtensions bounds the number of extension octets a
// Variable-format item or a Compound item's primary bitmap may consume.
// The FSPEC has its own cap in package record.
const DefaultMaxVariableExtensions = 8

// Context carries the ambient state a Decode call needs beyond the item
// and cursor: recursion depth bookkeeping, configured caps, the
// diagnostics log, and the category/record context for diagnostic
// annotation.
type Context struct {
	Log      *diag.Log
	Category int

	Depth    int
	MaxDepth int

	MaxVariableExtensions int
}

// NewContext returns a Context with caps defaulted where the caller left
// them at zero.
func NewContext(log *diag.Log, category int) *Context {
	return &Context{
		Log:                   log,
		Category:              category,
		MaxDepth:              DefaultMaxDepth,
		MaxVariableExtensions: DefaultMaxVariableExtensions,
	}
}

// child returns a copy of ctx with Depth incremented, for recursive decode
// calls (Compound sub-items, Repetitive inner records).
func (ctx *Context) child() *Context {
	c := *ctx
	c.Depth = ctx.Depth + 1
	return &c
}
