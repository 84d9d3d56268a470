package goedi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"

	"github.com/reoring/goedi/internal/charset"
)

// SegmentListener frames sub-documents inside one stream: it is consulted
// for every segment found and its answer becomes the result of
// MoveToNextSegment.
type SegmentListener interface {
	OnSegment(r *SegmentReader) (bool, error)
}

// SegmentListenerFunc adapts a function to SegmentListener.
type SegmentListenerFunc func(r *SegmentReader) (bool, error)

// OnSegment calls f(r).
func (f SegmentListenerFunc) OnSegment(r *SegmentReader) (bool, error) { return f(r) }

// SegmentReader slices a character stream into segments at the active
// segment delimiter. It is not safe for concurrent use.
type SegmentReader struct {
	src      *charset.MarkReader
	dec      *charset.Decoder
	delims   *DelimiterStack
	listener SegmentListener
	logger   *slog.Logger

	buf     []rune
	widths  []int // source bytes charged to buf[i]
	carry   int   // bytes of discarded characters not yet charged
	eof     bool
	chars   int64
	segNo   int
	readAll int64 // bytes logically consumed

	marked  bool
	markPos int64

	current    string
	hasCurrent bool
	truncated  bool
	fields     []string
	split      bool
}

// NewSegmentReader reads segments from r using d as the root delimiter set.
func NewSegmentReader(r io.Reader, d Delimiters, opts ...ReaderOpt) (*SegmentReader, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	opt := lastOpt(opts)
	cs, err := charset.Lookup(opt.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownEncoding, err)
	}
	limit := opt.MarkLimit
	if limit == 0 {
		limit = DefaultMarkLimit
	}
	src := charset.NewMarkReader(r, limit)
	return &SegmentReader{
		src:      src,
		dec:      charset.NewDecoder(src, cs),
		delims:   NewDelimiterStack(d),
		listener: opt.Listener,
		logger:   loggerOrDefault(opt.Logger),
	}, nil
}

// Delimiters returns the active delimiter set.
func (r *SegmentReader) Delimiters() Delimiters { return r.delims.Current() }

// PushDelimiters activates d for the following segments until PopDelimiters.
func (r *SegmentReader) PushDelimiters(d Delimiters) error {
	if err := d.Validate(); err != nil {
		return err
	}
	r.delims.Push(d)
	r.split = false
	return nil
}

// PopDelimiters restores the previously active delimiter set.
func (r *SegmentReader) PopDelimiters() error {
	if err := r.delims.Pop(); err != nil {
		return err
	}
	r.split = false
	return nil
}

// SetListener replaces the segment listener; nil removes it.
func (r *SegmentReader) SetListener(l SegmentListener) { r.listener = l }

// SegmentNumber returns the number of segments found so far.
func (r *SegmentReader) SegmentNumber() int { return r.segNo }

// CharsRead returns the number of characters decoded from the source,
// including folded CR/LF and skipped whitespace.
func (r *SegmentReader) CharsRead() int64 { return r.chars }

// Truncated reports whether the current segment ended at end of input
// instead of at a segment delimiter.
func (r *SegmentReader) Truncated() bool { return r.truncated }

// Encoding returns the canonical name of the active character encoding.
func (r *SegmentReader) Encoding() string { return r.dec.Charset().Name }

// Peek returns up to n characters without consuming them. Fewer are
// returned only at end of input. With skipLeadingWhitespace, whitespace in
// front of the buffered text is discarded first.
func (r *SegmentReader) Peek(n int, skipLeadingWhitespace bool) (string, error) {
	if err := r.fill(n, skipLeadingWhitespace); err != nil {
		return "", err
	}
	if n > len(r.buf) {
		n = len(r.buf)
	}
	return string(r.buf[:n]), nil
}

// Consume returns up to n characters and removes them from the buffer.
func (r *SegmentReader) Consume(n int) (string, error) {
	s, err := r.Peek(n, false)
	if err != nil {
		return "", err
	}
	r.consume(len([]rune(s)))
	return s, nil
}

// Mark records the current source position so that ChangeEncoding can
// rewind to it. It returns false when marking is disabled.
func (r *SegmentReader) Mark() bool {
	r.marked = r.src.Mark()
	r.markPos = r.src.Offset()
	return r.marked
}

// ChangeEncoding switches the character encoding at the current logical
// position. The source is rewound to the mark and the bytes consumed since
// then are skipped, so buffered but unconsumed characters are decoded again.
// Without a usable mark the call changes nothing and returns the current
// encoding. An unknown name is an error.
func (r *SegmentReader) ChangeEncoding(name string) (string, error) {
	cs, err := charset.Lookup(name)
	if err != nil {
		return r.Encoding(), fmt.Errorf("%w: %v", ErrUnknownEncoding, err)
	}
	prev := r.Encoding()
	if !r.marked || !r.src.Marked() || r.readAll < r.markPos {
		r.logger.Debug("encoding change ignored: no usable mark",
			slog.String("encoding", prev),
			slog.String("requested", cs.Name),
			slog.Bool("marked", r.marked))
		return prev, nil
	}
	if err := r.src.Reset(); err != nil {
		r.logger.Debug("encoding change ignored", slog.String("encoding", prev), slog.Any("error", err))
		return prev, nil
	}
	if err := r.src.Skip(r.readAll - r.markPos); err != nil {
		return prev, err
	}
	r.dec = charset.NewDecoder(r.src, cs)
	r.buf = r.buf[:0]
	r.widths = r.widths[:0]
	r.carry = 0
	r.eof = false
	r.logger.Debug("encoding changed",
		slog.String("from", prev),
		slog.String("to", cs.Name),
		slog.Int64("offset", r.readAll))
	return cs.Name, nil
}

// MoveToNextSegment advances to the next segment. Already buffered text
// (from Peek) is scanned first unless clearBuffer is set, in which case it is
// discarded. A delimiter preceded by an odd number of escape strings is
// literal: one escape is removed and scanning continues. It returns false at
// end of input when no segment text remains; a non-empty tail without a
// delimiter is returned as a truncated segment. With a listener attached, the
// listener's decision is returned.
func (r *SegmentReader) MoveToNextSegment(clearBuffer bool) (bool, error) {
	r.hasCurrent = false
	r.truncated = false
	r.split = false
	r.fields = nil
	if clearBuffer {
		r.consume(len(r.buf))
	}
	d := r.delims.Current()
	delim := []rune(d.Segment)
	esc := []rune(d.Escape)

	i := 0
	found := false
	for !found {
		if i == len(r.buf) {
			ok, err := r.pull(false)
			if err != nil {
				return false, err
			}
			if !ok {
				break
			}
		}
		i++
		if !hasRuneSuffix(r.buf[:i], delim) {
			continue
		}
		start := i - len(delim)
		if escapesBefore(r.buf[:start], esc)%2 == 1 {
			r.remove(start-len(esc), start)
			i -= len(esc)
			continue
		}
		r.current = string(r.buf[:start])
		r.consume(i)
		found = true
	}
	if !found {
		tail := string(r.buf)
		r.consume(len(r.buf))
		if strings.TrimSpace(tail) == "" {
			return false, nil
		}
		r.current = tail
		r.truncated = true
	}

	r.segNo++
	r.hasCurrent = true
	if r.listener == nil {
		return true, nil
	}
	accept, err := r.listener.OnSegment(r)
	if err != nil {
		r.hasCurrent = false
		return false, err
	}
	if !accept {
		r.logger.Debug("segment not accepted by listener", slog.Int("segment", r.segNo))
	}
	r.hasCurrent = accept
	return accept, nil
}

// CurrentSegment returns the raw text of the current segment.
func (r *SegmentReader) CurrentSegment() (string, error) {
	if !r.hasCurrent {
		return "", ErrNoCurrentSegment
	}
	return r.current, nil
}

// CurrentSegmentFields splits the current segment at the active field
// delimiter. When segments end with a bare "\n", a trailing "\r" on the last
// field is dropped.
func (r *SegmentReader) CurrentSegmentFields() ([]string, error) {
	if !r.hasCurrent {
		return nil, ErrNoCurrentSegment
	}
	if r.split {
		return r.fields, nil
	}
	d := r.delims.Current()
	fields := Split(r.current, d.Field, d.Escape)
	if d.Segment == "\n" && len(fields) > 0 {
		last := len(fields) - 1
		fields[last] = strings.TrimSuffix(fields[last], "\r")
	}
	r.fields = fields
	r.split = true
	return fields, nil
}

// fill buffers up to n characters.
func (r *SegmentReader) fill(n int, skipWhitespace bool) error {
	for len(r.buf) < n {
		ok, err := r.pull(skipWhitespace)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	return nil
}

// pull appends the next kept character to the buffer. Folded CR/LF (and
// leading whitespace when asked) are dropped and their bytes charged to the
// next kept character. It returns false at end of input.
func (r *SegmentReader) pull(skipLeadingWhitespace bool) (bool, error) {
	if r.eof {
		return false, nil
	}
	fold := r.delims.Current().FoldCRLF
	for {
		c, err := r.dec.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.eof = true
				return false, nil
			}
			return false, err
		}
		r.chars++
		if fold && (c.R == '\r' || c.R == '\n') {
			r.carry += c.Width
			continue
		}
		if skipLeadingWhitespace && len(r.buf) == 0 && unicode.IsSpace(c.R) {
			r.carry += c.Width
			continue
		}
		r.buf = append(r.buf, c.R)
		r.widths = append(r.widths, c.Width+r.carry)
		r.carry = 0
		return true, nil
	}
}

// consume drops the first n buffered characters and accounts their bytes.
func (r *SegmentReader) consume(n int) {
	for _, w := range r.widths[:n] {
		r.readAll += int64(w)
	}
	r.buf = append(r.buf[:0], r.buf[n:]...)
	r.widths = append(r.widths[:0], r.widths[n:]...)
}

// remove deletes buf[from:to], charging its bytes to the character at to.
func (r *SegmentReader) remove(from, to int) {
	w := 0
	for _, x := range r.widths[from:to] {
		w += x
	}
	if to < len(r.widths) {
		r.widths[to] += w
	} else {
		r.carry += w
	}
	r.buf = append(r.buf[:from], r.buf[to:]...)
	r.widths = append(r.widths[:from], r.widths[to:]...)
}

func hasRuneSuffix(s, suffix []rune) bool {
	if len(suffix) == 0 || len(s) < len(suffix) {
		return false
	}
	tail := s[len(s)-len(suffix):]
	for i := range suffix {
		if tail[i] != suffix[i] {
			return false
		}
	}
	return true
}

// escapesBefore counts consecutive escape strings ending at the end of s.
func escapesBefore(s, esc []rune) int {
	if len(esc) == 0 {
		return 0
	}
	n := 0
	for hasRuneSuffix(s, esc) {
		n++
		s = s[:len(s)-len(esc)]
	}
	return n
}
