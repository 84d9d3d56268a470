package textbuf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuffer_RollbackToMark(t *testing.T) {
	var b Buffer
	b.WriteString("NAD+BY")
	m := b.Mark()
	b.WriteString("++")
	require.Equal(t, "++", b.Since(m))
	require.NoError(t, b.Rollback(m))
	require.Equal(t, "NAD+BY", b.Pending())
	require.Equal(t, int64(6), b.Len())
}

func TestBuffer_RollbackAcrossFlushFails(t *testing.T) {
	var b Buffer
	var out bytes.Buffer
	m := b.Mark()
	b.WriteString("UNH+1")
	require.NoError(t, b.Flush(&out))
	require.Equal(t, "UNH+1", out.String())
	require.ErrorIs(t, b.Rollback(m), ErrMarkFlushed)

	after := b.Mark()
	b.WriteString("'BGM")
	require.NoError(t, b.Rollback(after))
	require.Equal(t, "", b.Pending())
	require.ErrorIs(t, b.Rollback(after+10), ErrMarkAhead)
}

func TestBuffer_FlushToKeepsTail(t *testing.T) {
	var b Buffer
	var out bytes.Buffer
	b.WriteString("UNH+1'")
	seg := b.Mark()
	b.WriteString("BGM+220+")
	tail := b.Mark()
	b.WriteString("++")

	require.NoError(t, b.FlushTo(&out, seg))
	require.Equal(t, "UNH+1'", out.String())
	require.Equal(t, "BGM+220+++", b.Pending())

	require.NoError(t, b.Rollback(tail))
	require.ErrorIs(t, b.Rollback(seg-1), ErrMarkFlushed)
	require.NoError(t, b.FlushTo(&out, seg))
	require.ErrorIs(t, b.FlushTo(&out, b.Mark()+1), ErrMarkAhead)
	require.NoError(t, b.Flush(&out))
	require.Equal(t, "UNH+1'BGM+220+", out.String())
}
