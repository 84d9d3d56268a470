package goedi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/reoring/goedi/internal/textbuf"
)

// Translate re-delimits a message read from r with the from set and writes
// it to w with the to set. Every unit keeps its position: fields, field
// repeats, components and subcomponents are cut from the source, their text
// is unescaped and escaped again for the target. With opt.Truncate trailing
// empty units are dropped at every level. It returns the number of segments
// written.
func Translate(ctx context.Context, r io.Reader, w io.Writer, from, to Delimiters, opt TranslateOpt) (int, error) {
	if err := to.Validate(); err != nil {
		return 0, err
	}
	rd, err := NewSegmentReader(r, from, opt.Reader)
	if err != nil {
		return 0, err
	}
	logger := loggerOrDefault(opt.Reader.Logger)
	tr := translator{from: from, to: to, truncate: opt.Truncate}
	var buf textbuf.Buffer
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		ok, err := rd.MoveToNextSegment(false)
		if err != nil {
			return n, err
		}
		if !ok {
			break
		}
		seg, err := rd.CurrentSegment()
		if err != nil {
			return n, err
		}
		if strings.TrimSpace(seg) == "" {
			continue
		}
		tr.from = rd.Delimiters()
		out, err := tr.segment(seg)
		if err != nil {
			iss, _ := AsIssues(err)
			for i := range iss {
				iss[i].Segment = rd.SegmentNumber()
			}
			return n, err
		}
		if n > 0 {
			buf.WriteString(to.Segment)
		}
		buf.WriteString(out)
		if err := buf.Flush(w); err != nil {
			return n, err
		}
		n++
	}
	if opt.TerminateSegments && n > 0 {
		buf.WriteString(to.Segment)
		if err := buf.Flush(w); err != nil {
			return n, err
		}
	}
	logger.Debug("translated", slog.Int("segments", n), slog.String("encoding", rd.Encoding()))
	return n, nil
}

type translator struct {
	from, to Delimiters
	truncate bool
}

func (t *translator) segment(seg string) (string, error) {
	fields := cutUnescaped(seg, t.from.Field, t.from.Escape, t.from.markers())
	tokens := make([]string, 0, 2*len(fields))
	for i, f := range fields {
		if i > 0 {
			tokens = append(tokens, t.to.Field)
		}
		if i == 0 {
			// The segment tag is never repeated or composite.
			tokens = append(tokens, t.to.Escaped(unescape(f, t.from.Escape, t.from.markers())))
			continue
		}
		s, err := t.field(f)
		if err != nil {
			return "", err
		}
		tokens = append(tokens, s)
	}
	return t.join(tokens, LevelField), nil
}

func (t *translator) field(f string) (string, error) {
	if t.from.FieldRepeat == "" {
		return t.level(f, LevelComponent)
	}
	reps := cutUnescaped(f, t.from.FieldRepeat, t.from.Escape, t.from.markers())
	sep := t.to.FieldRepeat
	if sep == "" && len(reps) > 1 {
		return "", singleIssue(CodeInvalidDelimiters, "target delimiters cannot express field repeats")
	}
	tokens := make([]string, 0, 2*len(reps))
	for i, r := range reps {
		if i > 0 {
			tokens = append(tokens, sep)
		}
		s, err := t.level(r, LevelComponent)
		if err != nil {
			return "", err
		}
		tokens = append(tokens, s)
	}
	return t.join(tokens, LevelField), nil
}

// level cuts text into units of lvl and renders each of them one level down.
func (t *translator) level(text string, lvl Level) (string, error) {
	if lvl > LevelSubComponent || t.from.Delimiter(lvl) == "" {
		return t.to.Escaped(unescape(text, t.from.Escape, t.from.markers())), nil
	}
	parts := cutUnescaped(text, t.from.Delimiter(lvl), t.from.Escape, t.from.markers())
	sep := t.to.Delimiter(lvl)
	if sep == "" && len(parts) > 1 {
		return "", singleIssue(CodeInvalidDelimiters, fmt.Sprintf("target delimiters have no %s separator", lvl))
	}
	tokens := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			tokens = append(tokens, sep)
		}
		s, err := t.level(p, lvl+1)
		if err != nil {
			return "", err
		}
		tokens = append(tokens, s)
	}
	return t.join(tokens, lvl), nil
}

func (t *translator) join(tokens []string, lvl Level) string {
	if t.truncate {
		return ConcatAndTruncate(tokens, lvl, t.to)
	}
	return strings.Join(tokens, "")
}

// cutUnescaped splits s at delim, leaving escape sequences intact so that
// finer levels can still recognize them.
func cutUnescaped(s, delim, esc string, marks []string) []string {
	if delim == "" {
		return []string{s}
	}
	var out []string
	start := 0
	for i := 0; i < len(s); {
		if esc != "" && strings.HasPrefix(s[i:], esc) {
			i += len(esc)
			i += escapedWidth(s[i:], marks)
			continue
		}
		if strings.HasPrefix(s[i:], delim) {
			out = append(out, s[start:i])
			i += len(delim)
			start = i
			continue
		}
		i++
	}
	return append(out, s[start:])
}

// unescape removes escape strings, keeping the text they protect. A
// trailing escape with nothing after it is kept.
func unescape(s, esc string, marks []string) string {
	if esc == "" || !strings.Contains(s, esc) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], esc) {
			if i+len(esc) == len(s) {
				b.WriteString(esc)
				break
			}
			i += len(esc)
			w := escapedWidth(s[i:], marks)
			b.WriteString(s[i : i+w])
			i += w
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// escapedWidth is the byte length of the unit an escape protects: a whole
// marker when one starts s, otherwise one character.
func escapedWidth(s string, marks []string) int {
	if s == "" {
		return 0
	}
	for _, m := range marks {
		if strings.HasPrefix(s, m) {
			return len(m)
		}
	}
	_, w := utf8.DecodeRuneInString(s)
	return w
}
