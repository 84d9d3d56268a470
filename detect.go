package goedi

import (
	"fmt"
	"strings"
	"unicode"
)

// Syntax names the interchange family recognized from a service segment.
type Syntax int

const (
	SyntaxUnknown Syntax = iota
	SyntaxEDIFACT
	SyntaxX12
)

func (s Syntax) String() string {
	switch s {
	case SyntaxEDIFACT:
		return "edifact"
	case SyntaxX12:
		return "x12"
	}
	return "unknown"
}

const (
	unaLength = 9
	isaLength = 106
)

// DetectDelimiters looks at the leading service segment of r and activates
// the delimiters it declares. A UNA service string advice is parsed and
// consumed; an ISA header is parsed but left in place since it is a data
// segment; a bare UNB selects the EDIFACT defaults. Otherwise nothing changes
// and SyntaxUnknown is returned with the active set.
func DetectDelimiters(r *SegmentReader) (Delimiters, Syntax, error) {
	head, err := r.Peek(3, true)
	if err != nil {
		return r.Delimiters(), SyntaxUnknown, err
	}
	fold := r.Delimiters().FoldCRLF
	var (
		d      Delimiters
		syntax Syntax
	)
	switch head {
	case "UNA":
		una, err := r.Peek(unaLength, false)
		if err != nil {
			return r.Delimiters(), SyntaxUnknown, err
		}
		if d, err = ParseUNA(una, fold); err != nil {
			return r.Delimiters(), SyntaxUnknown, err
		}
		if _, err := r.Consume(unaLength); err != nil {
			return r.Delimiters(), SyntaxUnknown, err
		}
		syntax = SyntaxEDIFACT
	case "UNB":
		d = EDIFACTDelimiters()
		d.FoldCRLF = fold
		syntax = SyntaxEDIFACT
	case "ISA":
		isa, err := r.Peek(isaLength, false)
		if err != nil {
			return r.Delimiters(), SyntaxUnknown, err
		}
		if d, err = ParseISA(isa, fold); err != nil {
			return r.Delimiters(), SyntaxUnknown, err
		}
		syntax = SyntaxX12
	default:
		return r.Delimiters(), SyntaxUnknown, nil
	}
	if err := r.PushDelimiters(d); err != nil {
		return r.Delimiters(), SyntaxUnknown, err
	}
	return d, syntax, nil
}

// ParseUNA reads the six service characters of a UNA segment:
// component, field, decimal mark, release, repetition and segment
// terminator. A space in the release or repetition position means none.
func ParseUNA(una string, foldCRLF bool) (Delimiters, error) {
	rs := []rune(una)
	if len(rs) < unaLength || string(rs[:3]) != "UNA" {
		return Delimiters{}, singleIssue(CodeTruncated, fmt.Sprintf("UNA needs %d characters, got %q", unaLength, una))
	}
	opt := func(r rune) string {
		if r == ' ' {
			return ""
		}
		return string(r)
	}
	d := Delimiters{
		Component:   string(rs[3]),
		Field:       string(rs[4]),
		DecimalMark: string(rs[5]),
		Escape:      opt(rs[6]),
		FieldRepeat: opt(rs[7]),
		Segment:     string(rs[8]),
		FoldCRLF:    foldCRLF && !strings.ContainsAny(string(rs[3:9]), "\r\n"),
	}
	return d, d.Validate()
}

// ParseISA reads the separators of a fixed-width X12 ISA segment: field at
// position 3, repetition at 82 (ISA11, a letter before version 4020 and then
// ignored), component at 104 (ISA16) and the segment terminator at 105.
func ParseISA(isa string, foldCRLF bool) (Delimiters, error) {
	rs := []rune(isa)
	if len(rs) < isaLength || string(rs[:3]) != "ISA" {
		return Delimiters{}, singleIssue(CodeTruncated, fmt.Sprintf("ISA needs %d characters, got %d", isaLength, len(rs)))
	}
	d := Delimiters{
		Field:     string(rs[3]),
		Component: string(rs[104]),
		Segment:   string(rs[105]),
		FoldCRLF:  foldCRLF && rs[105] != '\n' && rs[105] != '\r',
	}
	if rep := rs[82]; !unicode.IsLetter(rep) && !unicode.IsDigit(rep) && rep != ' ' {
		d.FieldRepeat = string(rep)
	}
	return d, d.Validate()
}

// edifactCharsets maps UNB syntax identifiers (S001/0001) to charset names.
var edifactCharsets = map[string]string{
	"UNOA": "US-ASCII",
	"UNOB": "US-ASCII",
	"UNOC": "ISO-8859-1",
	"UNOD": "ISO-8859-2",
	"UNOE": "ISO-8859-5",
	"UNOF": "ISO-8859-7",
	"UNOG": "ISO-8859-3",
	"UNOH": "ISO-8859-4",
	"UNOI": "ISO-8859-6",
	"UNOJ": "ISO-8859-8",
	"UNOK": "ISO-8859-9",
	"UNOW": "UTF-8",
	"UNOY": "UTF-8",
}

// EDIFACTCharset returns the charset name for a UNB syntax identifier such
// as "UNOC" (a trailing ":version" is ignored).
func EDIFACTCharset(syntaxID string) (string, bool) {
	id, _, _ := strings.Cut(strings.TrimSpace(syntaxID), ":")
	cs, ok := edifactCharsets[strings.ToUpper(id)]
	return cs, ok
}
