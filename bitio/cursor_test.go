package bitio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorReadBytes(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02, 0x03, 0x04}, 100)

	b, err := c.ReadBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, b)
	require.Equal(t, 102, c.Offset())
	require.Equal(t, 2, c.Remaining())
}

func TestCursorTruncated(t *testing.T) {
	c := NewCursor([]byte{0x01}, 0)

	_, err := c.ReadBytes(5)
	require.Error(t, err)

	var terr *TruncatedError
	require.True(t, errors.As(err, &terr))
	require.Equal(t, 5, terr.Need)
	require.Equal(t, 1, terr.Have)

	// failed read must not advance the cursor
	require.Equal(t, 1, c.Remaining())
}

func TestCursorPeekDoesNotAdvance(t *testing.T) {
	c := NewCursor([]byte{0xAA, 0xBB}, 0)

	b, ok := c.PeekByte()
	require.True(t, ok)
	require.Equal(t, byte(0xAA), b)
	require.Equal(t, 2, c.Remaining())

	_, err := c.PeekBytes(2)
	require.NoError(t, err)
	require.Equal(t, 2, c.Remaining())
}

func TestCursorPeekByteAtEnd(t *testing.T) {
	c := NewCursor(nil, 0)
	_, ok := c.PeekByte()
	require.False(t, ok)
}

func TestCursorWindowScopesAdvance(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3, 4, 5, 6}, 10)

	w, start, err := c.Window(3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, w)
	require.Equal(t, 10, start)
	require.Equal(t, 13, c.Offset())
	require.Equal(t, 3, c.Remaining())
}

func TestCursorSubIsIndependent(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3}, 0)
	_, _ = c.ReadByte()

	sub := c.Sub()
	_, _ = sub.ReadBytes(2)

	require.Equal(t, 2, c.Remaining(), "advancing the sub-cursor must not affect the parent")
	require.Equal(t, 0, sub.Remaining())
}
