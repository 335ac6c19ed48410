// Package bitio provides a byte cursor over an immutable input slice.
//
// A Cursor tracks a monotonically advancing byte offset into a caller-owned
// slice. Reads that would pass the end of the slice fail deterministically
// without mutating cursor state, per the bounds-checking discipline the
// decoder requires on adversarial input.
package bitio

import "fmt"

// TruncatedError reports a read that would have advanced past the end of
// the buffer.
type TruncatedError struct {
	Need   int
	Have   int
	Offset int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("bitio: truncated at offset %d: need %d bytes, have %d", e.Offset, e.Need, e.Have)
}

// Cursor is a read cursor over an immutable byte slice. The zero Cursor is
// not usable; construct one with NewCursor.
type Cursor struct {
	buf  []byte
	pos  int
	base int
}

// NewCursor wraps buf for reading. base is the absolute byte offset of
// buf[0] within the top-level block, used to annotate diagnostics and
// node byte ranges with positions meaningful to the caller.
func NewCursor(buf []byte, base int) *Cursor {
	return &Cursor{buf: buf, base: base}
}

// Base returns the absolute offset of the cursor's underlying buffer.
func (c *Cursor) Base() int { return c.base }

// Offset returns the cursor's current absolute position (base + local
// position).
func (c *Cursor) Offset() int { return c.base + c.pos }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// Len returns the total length of the wrapped buffer.
func (c *Cursor) Len() int { return len(c.buf) }

// PeekByte returns the next byte without advancing the cursor. ok is false
// at end of buffer.
func (c *Cursor) PeekByte() (b byte, ok bool) {
	if c.pos >= len(c.buf) {
		return 0, false
	}
	return c.buf[c.pos], true
}

// PeekBytes returns the next n bytes without advancing the cursor. It
// fails with *TruncatedError if fewer than n bytes remain.
func (c *Cursor) PeekBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("bitio: negative read length %d", n)
	}
	if n > c.Remaining() {
		return nil, &TruncatedError{Need: n, Have: c.Remaining(), Offset: c.Offset()}
	}
	return c.buf[c.pos : c.pos+n], nil
}

// ReadBytes advances the cursor by n and returns the n bytes it passed
// over. On failure the cursor is left unmodified.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	b, err := c.PeekBytes(n)
	if err != nil {
		return nil, err
	}
	c.pos += n
	return b, nil
}

// ReadByte reads and advances over a single byte.
func (c *Cursor) ReadByte() (byte, error) {
	b, err := c.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Window reads the next n bytes and returns them as a scoped sub-slice,
// advancing the parent cursor by n. Callers use the window for bit-field
// extraction; because the window is bounded to exactly n bytes, a
// misbehaving bit-field descriptor cannot read into the next item.
func (c *Cursor) Window(n int) ([]byte, int, error) {
	start := c.Offset()
	b, err := c.ReadBytes(n)
	if err != nil {
		return nil, 0, err
	}
	return b, start, nil
}

// Rewind resets the cursor's local position to zero, re-exposing the full
// buffer. Used by decoders that need a look-ahead read (e.g. a
// discriminator item) before committing to FSPEC-driven consumption.
func (c *Cursor) Rewind() { c.pos = 0 }

// Sub returns a new Cursor over the remaining unread bytes, sharing no
// mutable state with the parent (advancing the sub-cursor never advances
// c). Its base offset continues from c's current absolute offset.
func (c *Cursor) Sub() *Cursor {
	return NewCursor(c.buf[c.pos:], c.Offset())
}
