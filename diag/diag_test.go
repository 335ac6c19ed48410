package diag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultsOffsetsToUnset(t *testing.T) {
	d := New(Truncated, Fatal, "need %d, have %d", 4, 1)
	require.Equal(t, -1, d.ByteOffset)
	require.Equal(t, -1, d.BitOffset)
	require.Equal(t, "need 4, have 1", d.Message)
}

func TestWithOffsetAndItem(t *testing.T) {
	d := New(UnknownEnum, Recoverable, "code 9 has no label").
		WithOffset(12, 3).
		WithItem(48, "I062/220")

	require.Equal(t, 12, d.ByteOffset)
	require.Equal(t, 3, d.BitOffset)
	require.Equal(t, 48, d.Category)
	require.Equal(t, "I062/220", d.Item)
	require.Contains(t, d.Error(), "I062/220")
}

func TestLogHasFatal(t *testing.T) {
	var l Log
	require.False(t, l.HasFatal())

	l.Add(New(SparePresent, Recoverable, "spare bit set"))
	require.False(t, l.HasFatal())

	l.Add(New(UAPOverrun, Fatal, "bit %d beyond UAP span", 30))
	require.True(t, l.HasFatal())
	require.Equal(t, 2, l.Len())
}

func TestLogMerge(t *testing.T) {
	var a, b Log
	a.Add(New(Truncated, Fatal, "a"))
	b.Add(New(SparePresent, Recoverable, "b"))

	a.Merge(&b)
	require.Equal(t, 2, a.Len())
	require.Equal(t, Kind("truncated"), a.Entries()[0].Kind)
	require.Equal(t, Kind("spare_present"), a.Entries()[1].Kind)
}

func TestLogMergeNil(t *testing.T) {
	var a Log
	a.Add(New(Truncated, Fatal, "a"))
	a.Merge(nil)
	require.Equal(t, 1, a.Len())
}
