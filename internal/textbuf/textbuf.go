// Package textbuf provides the append-only output buffer used by the encoder.
//
// Writers take a Mark before emitting text that may have to be unwound and
// call Rollback to return to it. Flush hands the pending text to the sink;
// marks taken before a flush can no longer be rolled back to.
package textbuf

import (
	"errors"
	"io"
)

var (
	// ErrMarkFlushed is returned when rolling back to a mark that precedes the
	// last flush.
	ErrMarkFlushed = errors.New("textbuf: mark precedes flushed output")
	// ErrMarkAhead is returned when rolling back to a mark beyond the end of
	// the buffer.
	ErrMarkAhead = errors.New("textbuf: mark is ahead of buffer end")
)

// Mark is an absolute output offset.
type Mark int64

// Buffer accumulates output text between flushes.
type Buffer struct {
	pending []byte
	flushed int64 // absolute offset of pending[0]
}

// WriteString appends s.
func (b *Buffer) WriteString(s string) {
	b.pending = append(b.pending, s...)
}

// Mark returns a checkpoint at the current end of output.
func (b *Buffer) Mark() Mark { return Mark(b.flushed + int64(len(b.pending))) }

// Rollback truncates the output back to m.
func (b *Buffer) Rollback(m Mark) error {
	off := int64(m)
	if off < b.flushed {
		return ErrMarkFlushed
	}
	if off > b.flushed+int64(len(b.pending)) {
		return ErrMarkAhead
	}
	b.pending = b.pending[:off-b.flushed]
	return nil
}

// Since returns the text written after m that is still pending. It returns
// an empty string when m has been flushed or is ahead of the buffer.
func (b *Buffer) Since(m Mark) string {
	off := int64(m) - b.flushed
	if off < 0 || off > int64(len(b.pending)) {
		return ""
	}
	return string(b.pending[off:])
}

// Len reports the absolute number of bytes written, flushed or not.
func (b *Buffer) Len() int64 { return b.flushed + int64(len(b.pending)) }

// Pending returns the text not yet flushed.
func (b *Buffer) Pending() string { return string(b.pending) }

// Flush writes the pending text to w. On a short or failed write the
// unwritten tail stays pending.
func (b *Buffer) Flush(w io.Writer) error {
	return b.FlushTo(w, b.Mark())
}

// FlushTo writes the pending text before m to w and keeps the rest pending.
// Marks at or after m stay valid for Rollback.
func (b *Buffer) FlushTo(w io.Writer, m Mark) error {
	end := int64(m) - b.flushed
	if end > int64(len(b.pending)) {
		return ErrMarkAhead
	}
	if end <= 0 {
		return nil
	}
	n, err := w.Write(b.pending[:end])
	if n > 0 {
		b.flushed += int64(n)
		b.pending = append(b.pending[:0], b.pending[n:]...)
	}
	if err != nil {
		return err
	}
	if int64(n) < end {
		return io.ErrShortWrite
	}
	return nil
}
