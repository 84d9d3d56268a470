package goedi

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/reoring/goedi/internal/textbuf"
	"github.com/reoring/goedi/mapping"
)

type frameKind uint8

const (
	frameGroup frameKind = iota
	frameField
	frameComponent
	frameSubComponent
)

// frame is one open level of the document. Frames live by value in the
// encoder's stack; pointers into it are not kept across pushes.
type frame struct {
	kind frameKind
	tag  string
	// implicit frames stand for transparent groups and are never named by
	// the producer.
	implicit bool

	group *mapping.SegmentGroup
	field *mapping.Field
	comp  *mapping.Component

	// last is the index of the most recently opened field, component or
	// subcomponent (-1 for none); repeats counts its occurrences.
	last    int
	repeats int
	// child and childCount track the group cursor.
	child      int
	childCount int

	fieldsDone bool
	// content is the end of the last text written inside this frame.
	content textbuf.Mark
}

func (f *frame) leaf() bool {
	switch f.kind {
	case frameField:
		return f.field.IsLeaf()
	case frameComponent:
		return f.comp.IsLeaf()
	case frameSubComponent:
		return true
	}
	return false
}

// Encoder writes delimited text from open/close/text events that follow the
// shape of a mapping model. It is not safe for concurrent use; the model may
// be shared between encoders.
//
// Any error except from Flush leaves the encoder failed: later calls return
// the same error.
type Encoder struct {
	w      io.Writer
	model  *mapping.Model
	delims *DelimiterStack
	opt    EncodeOpt
	logger *slog.Logger

	buf   textbuf.Buffer
	stack []frame
	// safe marks the start of the segment being written; output before it
	// can no longer be unwound.
	safe     textbuf.Mark
	segments int
	done     bool
	err      error
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer, m *mapping.Model, d Delimiters, opts ...EncodeOpt) (*Encoder, error) {
	if m == nil {
		return nil, fmt.Errorf("goedi: nil mapping model")
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("goedi: invalid mapping model: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	opt := lastOpt(opts)
	return &Encoder{
		w:      w,
		model:  m,
		delims: NewDelimiterStack(d),
		opt:    opt,
		logger: loggerOrDefault(opt.Logger),
		stack:  make([]frame, 0, 16),
	}, nil
}

// Path returns the tags of the explicitly opened elements, outermost first.
func (e *Encoder) Path() []string {
	out := make([]string, 0, len(e.stack))
	for i := range e.stack {
		if !e.stack[i].implicit {
			out = append(out, e.stack[i].tag)
		}
	}
	return out
}

// Delimiters returns the active delimiter set.
func (e *Encoder) Delimiters() Delimiters { return e.delims.Current() }

// PushDelimiters switches to d for the following output.
func (e *Encoder) PushDelimiters(d Delimiters) error {
	if err := d.Validate(); err != nil {
		return err
	}
	e.delims.Push(d)
	return nil
}

// PopDelimiters restores the previous delimiter set.
func (e *Encoder) PopDelimiters() error { return e.delims.Pop() }

// Flush writes all output that can no longer change. Text of the segment
// being written stays buffered until the segment ends.
func (e *Encoder) Flush() error {
	return e.buf.FlushTo(e.w, e.safe)
}

// Open enters the element named tag.
func (e *Encoder) Open(tag string) error {
	if err := e.usable(); err != nil {
		return err
	}
	if len(e.stack) == 0 {
		root := &e.model.Root
		if !root.IsTransparent() {
			if !matches(root, tag) {
				return e.fail(e.mismatch(tag))
			}
			return e.fail(e.enter(root, tag))
		}
		// A transparent root stays on the stack until Finish.
		e.push(frame{kind: frameGroup, group: root, implicit: true, last: -1, child: -1})
	}
	path := e.Path()
	for {
		top := len(e.stack) - 1
		ok, err := e.openIn(top, tag)
		if err != nil {
			return e.fail(err)
		}
		if ok {
			return nil
		}
		if !e.stack[top].implicit || top == 0 {
			break
		}
		if err := e.pop(); err != nil {
			return e.fail(err)
		}
	}
	return e.fail(mismatchIssue(path, tag))
}

// Close leaves the innermost open element, which must be named tag. It
// returns true once the root element is closed; the output is then flushed.
// A model with a transparent root has no closing element and ends with
// Finish instead.
func (e *Encoder) Close(tag string) (bool, error) {
	if err := e.usable(); err != nil {
		return false, err
	}
	top := len(e.stack) - 1
	for top >= 0 && e.stack[top].implicit {
		top--
	}
	if top < 0 || e.stack[top].tag != tag {
		innermost := ""
		if top >= 0 {
			innermost = e.stack[top].tag
		}
		iss := newIssue(e.Path(), CodeUnexpectedClose,
			fmt.Sprintf("close %q, innermost open element is %q", tag, innermost),
			map[string]any{"tag": tag, "open": e.Path()})
		return false, e.fail(Issues{iss})
	}
	for len(e.stack) > top {
		if err := e.pop(); err != nil {
			return false, e.fail(err)
		}
	}
	if len(e.stack) > 0 {
		return false, nil
	}
	return true, e.complete()
}

// Finish ends the document. It is a no-op once the root element has been
// closed. Otherwise no explicitly opened element may remain: the transparent
// groups still open are closed and the output is flushed.
func (e *Encoder) Finish() error {
	if e.done && e.err == nil {
		return nil
	}
	if err := e.usable(); err != nil {
		return err
	}
	if hasExplicit(e.stack) {
		path := e.Path()
		iss := newIssue(path, CodeTruncated, "open elements "+strings.Join(path, " > "), map[string]any{"open": path})
		return e.fail(Issues{iss})
	}
	if len(e.stack) == 0 && !e.model.Root.IsTransparent() {
		iss := newIssue(nil, CodeTruncated, fmt.Sprintf("root element %q was never opened", e.model.Root.Tag), nil)
		return e.fail(Issues{iss})
	}
	for len(e.stack) > 0 {
		if err := e.pop(); err != nil {
			return e.fail(err)
		}
	}
	return e.complete()
}

func (e *Encoder) complete() error {
	e.done = true
	if e.opt.TerminateSegments && e.segments > 0 {
		e.buf.WriteString(e.delims.Current().Segment)
	}
	e.safe = e.buf.Mark()
	return e.fail(e.buf.Flush(e.w))
}

// Text appends s to the open leaf element, escaping delimiter strings.
// Whitespace outside leaf elements is ignored.
func (e *Encoder) Text(s string) error {
	if err := e.usable(); err != nil {
		return err
	}
	top := len(e.stack) - 1
	if top < 0 || !e.stack[top].leaf() {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		iss := newIssue(e.Path(), CodeTextNotAllowed, fmt.Sprintf("%q", s), map[string]any{"open": e.Path()})
		return e.fail(Issues{iss})
	}
	if s == "" {
		return nil
	}
	e.buf.WriteString(e.delims.Current().Escaped(s))
	m := e.buf.Mark()
	for i := range e.stack {
		e.stack[i].content = m
	}
	return nil
}

func (e *Encoder) usable() error {
	if e.err != nil {
		return e.err
	}
	if e.done {
		return ErrDocumentClosed
	}
	return nil
}

func (e *Encoder) fail(err error) error {
	if err != nil {
		e.err = err
	}
	return err
}

func (e *Encoder) mismatch(tag string) error {
	return mismatchIssue(e.Path(), tag)
}

func mismatchIssue(path []string, tag string) Issues {
	detail := "no open element"
	if len(path) > 0 {
		detail = "open elements " + strings.Join(path, " > ")
	}
	return Issues{newIssue(path, CodeSchemaMismatch, detail, map[string]any{"tag": tag, "open": path})}
}

// openIn tries to open tag as a child of stack[i].
func (e *Encoder) openIn(i int, tag string) (bool, error) {
	f := &e.stack[i]
	switch f.kind {
	case frameGroup:
		if f.group.IsSegment() && !f.fieldsDone {
			if ok := e.openField(i, tag); ok {
				return true, nil
			}
		}
		return e.openChild(i, tag)
	case frameField:
		return e.openComponent(i, tag), nil
	case frameComponent:
		return e.openSubComponent(i, tag), nil
	}
	return false, nil
}

func (e *Encoder) openField(i int, tag string) bool {
	s := &e.stack[i]
	fields := s.group.Fields
	d := e.delims.Current()
	if s.last >= 0 && fields[s.last].Tag == tag {
		if limit := fields[s.last].Max(); limit == mapping.Unbounded || s.repeats < limit {
			rep := d.FieldRepeat
			if rep == "" {
				rep = d.Field
			}
			e.buf.WriteString(rep)
			s.repeats++
			e.push(frame{kind: frameField, tag: tag, field: &fields[s.last], last: -1})
			return true
		}
	}
	for j := s.last + 1; j < len(fields); j++ {
		if fields[j].Tag != tag {
			continue
		}
		e.logSkipped(s, fields[s.last+1:j])
		e.buf.WriteString(strings.Repeat(d.Field, j-s.last))
		s.last, s.repeats = j, 1
		e.push(frame{kind: frameField, tag: tag, field: &fields[j], last: -1})
		return true
	}
	return false
}

func (e *Encoder) openComponent(i int, tag string) bool {
	f := &e.stack[i]
	comps := f.field.Components
	for k := f.last + 1; k < len(comps); k++ {
		if comps[k].Tag != tag {
			continue
		}
		e.buf.WriteString(strings.Repeat(e.delims.Current().Component, k-max(f.last, 0)))
		f.last = k
		e.push(frame{kind: frameComponent, tag: tag, comp: &comps[k], last: -1})
		return true
	}
	return false
}

func (e *Encoder) openSubComponent(i int, tag string) bool {
	c := &e.stack[i]
	subs := c.comp.SubComponents
	for k := c.last + 1; k < len(subs); k++ {
		if subs[k].Tag != tag {
			continue
		}
		e.buf.WriteString(strings.Repeat(e.delims.Current().SubComponent, k-max(c.last, 0)))
		c.last = k
		e.push(frame{kind: frameSubComponent, tag: tag, last: -1})
		return true
	}
	return false
}

// openChild matches tag against the child groups of stack[i], repeating the
// current child while its maxOccurs allows and otherwise moving forward.
func (e *Encoder) openChild(i int, tag string) (bool, error) {
	g := e.stack[i].group
	children := g.Groups
	pick := -1
	if c := e.stack[i].child; c >= 0 && matches(&children[c], tag) {
		if limit := children[c].Max(); limit == mapping.Unbounded || e.stack[i].childCount < limit {
			pick = c
		}
	}
	if pick < 0 {
		for j := e.stack[i].child + 1; j < len(children); j++ {
			if matches(&children[j], tag) {
				pick = j
				break
			}
		}
	}
	if pick < 0 {
		return false, nil
	}
	if g.IsSegment() && !e.stack[i].fieldsDone {
		if err := e.finishFields(i); err != nil {
			return false, err
		}
	}
	f := &e.stack[i]
	if pick == f.child {
		f.childCount++
	} else {
		f.child, f.childCount = pick, 1
	}
	return true, e.enter(&children[pick], tag)
}

// enter pushes the frame for g. Transparent groups are entered implicitly and
// tag is resolved inside them.
func (e *Encoder) enter(g *mapping.SegmentGroup, tag string) error {
	if g.IsTransparent() {
		e.push(frame{kind: frameGroup, group: g, implicit: true, last: -1, child: -1})
		ok, err := e.openChild(len(e.stack)-1, tag)
		if err != nil {
			return err
		}
		if !ok {
			return e.mismatch(tag)
		}
		return nil
	}
	if g.IsSegment() {
		if e.segments > 0 {
			e.buf.WriteString(e.delims.Current().Segment)
		}
		e.safe = e.buf.Mark()
		if err := e.buf.Flush(e.w); err != nil {
			return err
		}
		e.buf.WriteString(g.Segcode)
		e.segments++
	}
	e.push(frame{kind: frameGroup, tag: tag, group: g, last: -1, child: -1})
	return nil
}

func (e *Encoder) push(f frame) {
	f.content = e.buf.Mark()
	e.stack = append(e.stack, f)
	if !f.implicit {
		e.logger.Debug("open", slog.String("tag", f.tag), slog.Int("depth", len(e.stack)))
	}
}

// pop finalizes and removes the innermost frame. Omitted trailing children
// are either padded with delimiters or, for truncatable elements, unwound
// back to the last written text.
func (e *Encoder) pop() error {
	top := len(e.stack) - 1
	f := &e.stack[top]
	d := e.delims.Current()
	switch f.kind {
	case frameGroup:
		if f.group.IsSegment() && !f.fieldsDone {
			if err := e.finishFields(top); err != nil {
				return err
			}
		}
	case frameField:
		if !f.field.IsLeaf() {
			if err := e.finish(f, f.field.Truncatable, d.Component, len(f.field.Components)); err != nil {
				return err
			}
		}
	case frameComponent:
		if !f.comp.IsLeaf() {
			if err := e.finish(f, f.comp.Truncatable, d.SubComponent, len(f.comp.SubComponents)); err != nil {
				return err
			}
		}
	}
	e.stack = e.stack[:top]
	return nil
}

func (e *Encoder) finishFields(i int) error {
	s := &e.stack[i]
	e.logSkipped(s, s.group.Fields[s.last+1:])
	s.fieldsDone = true
	if s.group.Truncatable {
		return e.buf.Rollback(s.content)
	}
	e.buf.WriteString(strings.Repeat(e.delims.Current().Field, len(s.group.Fields)-1-s.last))
	return nil
}

// finish closes a composite: n children, the last opened at f.last.
func (e *Encoder) finish(f *frame, truncatable bool, delim string, n int) error {
	if truncatable {
		return e.buf.Rollback(f.content)
	}
	e.buf.WriteString(strings.Repeat(delim, n-1-max(f.last, 0)))
	return nil
}

func (e *Encoder) logSkipped(s *frame, skipped []mapping.Field) {
	for k := range skipped {
		if skipped[k].Required {
			e.logger.Debug("required field not written",
				slog.String("segment", s.group.Segcode),
				slog.String("tag", skipped[k].Tag))
		}
	}
}

func hasExplicit(frames []frame) bool {
	for i := range frames {
		if !frames[i].implicit {
			return true
		}
	}
	return false
}

func matches(g *mapping.SegmentGroup, tag string) bool {
	if tag == "" {
		return false
	}
	if g.IsTransparent() {
		return g.FirstTag() == tag
	}
	return g.Tag == tag
}
