package goedi

import (
	"fmt"
	"sort"
	"strings"
)

// Level identifies a structural unit of a segmented message.
type Level int

const (
	LevelSegment Level = iota
	LevelField
	LevelComponent
	LevelSubComponent
)

func (l Level) String() string {
	switch l {
	case LevelSegment:
		return "segment"
	case LevelField:
		return "field"
	case LevelComponent:
		return "component"
	case LevelSubComponent:
		return "subcomponent"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Delimiters is the punctuation of a message. Segment and Field are required;
// the other markers are optional and empty when the syntax has no such level.
type Delimiters struct {
	Segment      string `json:"segment" yaml:"segment"`
	Field        string `json:"field" yaml:"field"`
	Component    string `json:"component,omitempty" yaml:"component,omitempty"`
	SubComponent string `json:"subComponent,omitempty" yaml:"subComponent,omitempty"`
	Escape       string `json:"escape,omitempty" yaml:"escape,omitempty"`
	FieldRepeat  string `json:"fieldRepeat,omitempty" yaml:"fieldRepeat,omitempty"`
	// FoldCRLF discards CR and LF characters while reading.
	FoldCRLF bool `json:"foldCRLF,omitempty" yaml:"foldCRLF,omitempty"`
	// DecimalMark is carried for UNA round-trips only; it never splits text.
	DecimalMark string `json:"decimalMark,omitempty" yaml:"decimalMark,omitempty"`
}

// EDIFACTDelimiters returns the UN/EDIFACT default service characters
// (UNA:+.? ').
func EDIFACTDelimiters() Delimiters {
	return Delimiters{
		Segment:     "'",
		Field:       "+",
		Component:   ":",
		Escape:      "?",
		FieldRepeat: "*",
		DecimalMark: ".",
		FoldCRLF:    true,
	}
}

// X12Delimiters returns the common ANSI X12 separators. X12 has no release
// character.
func X12Delimiters() Delimiters {
	return Delimiters{
		Segment:     "~",
		Field:       "*",
		Component:   ":",
		FieldRepeat: "^",
		FoldCRLF:    true,
	}
}

// HL7Delimiters returns the HL7 v2 encoding characters (|^~\&).
func HL7Delimiters() Delimiters {
	return Delimiters{
		Segment:      "\r",
		Field:        "|",
		Component:    "^",
		SubComponent: "&",
		Escape:       "\\",
		FieldRepeat:  "~",
	}
}

// Delimiter returns the separator between units of the given level.
func (d Delimiters) Delimiter(l Level) string {
	switch l {
	case LevelSegment:
		return d.Segment
	case LevelField:
		return d.Field
	case LevelComponent:
		return d.Component
	case LevelSubComponent:
		return d.SubComponent
	}
	return ""
}

// Validate checks that Segment and Field are set, that all configured
// markers are distinct, and that no marker relies on CR/LF when those are
// folded away.
func (d Delimiters) Validate() error {
	var iss Issues
	bad := func(detail string) {
		iss = AppendIssues(iss, newIssue(nil, CodeInvalidDelimiters, detail, nil))
	}
	if d.Segment == "" {
		bad("segment delimiter is empty")
	}
	if d.Field == "" {
		bad("field delimiter is empty")
	}
	named := []struct {
		name, val string
	}{
		{"segment", d.Segment},
		{"field", d.Field},
		{"component", d.Component},
		{"subComponent", d.SubComponent},
		{"escape", d.Escape},
		{"fieldRepeat", d.FieldRepeat},
	}
	seen := map[string]string{}
	for _, n := range named {
		if n.val == "" {
			continue
		}
		if prev, ok := seen[n.val]; ok {
			bad(fmt.Sprintf("%s and %s share %q", prev, n.name, n.val))
			continue
		}
		seen[n.val] = n.name
		if d.FoldCRLF && strings.ContainsAny(n.val, "\r\n") {
			bad(fmt.Sprintf("%s delimiter %q contains CR/LF while foldCRLF is set", n.name, n.val))
		}
	}
	if len(iss) > 0 {
		return iss
	}
	return nil
}

// Removable reports whether token carries no content at the given level:
// it is empty, or it is the delimiter of that level or of a finer one. At
// field level and above the field repeat marker is removable as well.
func (d Delimiters) Removable(l Level, token string) bool {
	if token == "" {
		return true
	}
	for lv := l; lv <= LevelSubComponent; lv++ {
		if del := d.Delimiter(lv); del != "" && token == del {
			return true
		}
	}
	return l <= LevelField && d.FieldRepeat != "" && token == d.FieldRepeat
}

// Escaped prefixes every delimiter and escape occurrence in text with the
// escape string. Without an escape string text is returned unchanged.
func (d Delimiters) Escaped(text string) string {
	if d.Escape == "" || text == "" {
		return text
	}
	marks := d.markers()
	var b strings.Builder
	b.Grow(len(text) + 4)
	for i := 0; i < len(text); {
		matched := ""
		for _, m := range marks {
			if strings.HasPrefix(text[i:], m) {
				matched = m
				break
			}
		}
		if matched == "" {
			b.WriteByte(text[i])
			i++
			continue
		}
		b.WriteString(d.Escape)
		b.WriteString(matched)
		i += len(matched)
	}
	return b.String()
}

// markers returns the configured markers, longest first so multi-character
// delimiters win over their prefixes.
func (d Delimiters) markers() []string {
	var out []string
	for _, m := range []string{d.Segment, d.Field, d.Component, d.SubComponent, d.FieldRepeat, d.Escape} {
		if m != "" {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// DelimiterStack scopes delimiter overrides. The root set is never popped.
type DelimiterStack struct {
	sets []Delimiters
}

// NewDelimiterStack returns a stack holding root.
func NewDelimiterStack(root Delimiters) *DelimiterStack {
	return &DelimiterStack{sets: []Delimiters{root}}
}

// Push installs d, saving the current set.
func (s *DelimiterStack) Push(d Delimiters) { s.sets = append(s.sets, d) }

// Pop restores the previously active set.
func (s *DelimiterStack) Pop() error {
	if len(s.sets) <= 1 {
		return ErrDelimiterStackUnderflow
	}
	s.sets = s.sets[:len(s.sets)-1]
	return nil
}

// Current returns the active set.
func (s *DelimiterStack) Current() Delimiters { return s.sets[len(s.sets)-1] }

// Depth returns the number of sets on the stack, root included.
func (s *DelimiterStack) Depth() int { return len(s.sets) }
