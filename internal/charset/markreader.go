package charset

import (
	"bufio"
	"errors"
	"io"
)

// ErrMarkInvalid is returned by Reset when no mark is set or when more bytes
// than the mark window have been read since the mark.
var ErrMarkInvalid = errors.New("charset: mark not set or mark window exceeded")

// MarkReader is a byte source that can return to a previously marked offset
// as long as no more than limit bytes were read past the mark.
type MarkReader struct {
	r       io.ByteReader
	limit   int
	marked  bool
	rec     []byte // bytes read since the mark
	replay  int    // next index of rec to hand out after a Reset
	pos     int64
	markPos int64
}

// NewMarkReader wraps r. A limit <= 0 disables marking.
func NewMarkReader(r io.Reader, limit int) *MarkReader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &MarkReader{r: br, limit: limit}
}

// ReadByte implements io.ByteReader.
func (m *MarkReader) ReadByte() (byte, error) {
	if m.replay < len(m.rec) {
		b := m.rec[m.replay]
		m.replay++
		m.pos++
		return b, nil
	}
	b, err := m.r.ReadByte()
	if err != nil {
		return 0, err
	}
	m.pos++
	if m.marked {
		if len(m.rec) < m.limit {
			m.rec = append(m.rec, b)
			m.replay = len(m.rec)
		} else {
			m.marked = false
			m.rec = nil
			m.replay = 0
		}
	}
	return b, nil
}

// Mark records the current offset. It returns false when marking is
// disabled.
func (m *MarkReader) Mark() bool {
	if m.limit <= 0 {
		return false
	}
	if m.replay < len(m.rec) {
		m.rec = append([]byte(nil), m.rec[m.replay:]...)
	} else {
		m.rec = m.rec[:0]
	}
	m.replay = 0
	m.marked = true
	m.markPos = m.pos
	return true
}

// Marked reports whether a Reset would currently succeed.
func (m *MarkReader) Marked() bool { return m.marked }

// Reset rewinds to the marked offset. The mark stays valid.
func (m *MarkReader) Reset() error {
	if !m.marked {
		return ErrMarkInvalid
	}
	m.replay = 0
	m.pos = m.markPos
	return nil
}

// Skip reads and discards n bytes. It returns io.ErrUnexpectedEOF when the
// source ends first.
func (m *MarkReader) Skip(n int64) error {
	for i := int64(0); i < n; i++ {
		if _, err := m.ReadByte(); err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
	return nil
}

// Offset returns the number of bytes handed out so far.
func (m *MarkReader) Offset() int64 { return m.pos }

// MarkOffset returns the offset recorded by the last Mark.
func (m *MarkReader) MarkOffset() int64 { return m.markPos }
