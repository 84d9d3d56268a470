package goedi

import "strings"

// chunkKind classifies a run of characters produced by the first split pass.
type chunkKind uint8

const (
	chunkPlain chunkKind = iota
	chunkDelimiter
	chunkEscape
)

func (k chunkKind) String() string {
	switch k {
	case chunkPlain:
		return "PLAIN"
	case chunkDelimiter:
		return "DELIMITER"
	case chunkEscape:
		return "ESCAPE"
	}
	return "UNKNOWN"
}

type chunk struct {
	kind chunkKind
	text string
}

// Split breaks value at unescaped occurrences of delimiter. An escape
// directly before a delimiter makes that delimiter literal; anywhere else the
// escape is kept as text. The last field is always emitted, so a trailing
// delimiter yields a trailing empty field. An empty delimiter means a single
// space and an empty escape disables escaping. Empty input yields an empty
// slice.
func Split(value, delimiter, escape string) []string {
	if value == "" {
		return []string{}
	}
	if delimiter == "" {
		delimiter = " "
	}
	return joinChunks(classify(value, delimiter, escape), escape)
}

// SplitRef is Split for an optional value: a nil value yields nil.
func SplitRef(value *string, delimiter, escape string) []string {
	if value == nil {
		return nil
	}
	return Split(*value, delimiter, escape)
}

// classify scans value left to right, cutting the current plain run whenever
// it ends with the delimiter or the escape string.
func classify(value, delimiter, escape string) []chunk {
	var out []chunk
	start := 0
	cut := func(end int, kind chunkKind, marker string) {
		if p := end - len(marker); p > start {
			out = append(out, chunk{kind: chunkPlain, text: value[start:p]})
		}
		out = append(out, chunk{kind: kind, text: marker})
		start = end
	}
	for end := 1; end <= len(value); end++ {
		run := value[start:end]
		switch {
		case strings.HasSuffix(run, delimiter):
			cut(end, chunkDelimiter, delimiter)
		case escape != "" && strings.HasSuffix(run, escape):
			cut(end, chunkEscape, escape)
		}
	}
	if start < len(value) {
		out = append(out, chunk{kind: chunkPlain, text: value[start:]})
	}
	return out
}

func joinChunks(chunks []chunk, escape string) []string {
	fields := make([]string, 0, 4)
	var cur strings.Builder
	escaping := false
	for _, c := range chunks {
		if escaping {
			escaping = false
			if c.kind == chunkDelimiter {
				cur.WriteString(c.text)
				continue
			}
			cur.WriteString(escape)
		}
		switch c.kind {
		case chunkPlain:
			cur.WriteString(c.text)
		case chunkDelimiter:
			fields = append(fields, cur.String())
			cur.Reset()
		case chunkEscape:
			escaping = true
		}
	}
	if escaping {
		// Nothing left to escape: keep the marker as text.
		cur.WriteString(escape)
	}
	return append(fields, cur.String())
}

// ConcatAndTruncate drops trailing tokens that carry no content at level
// (see Delimiters.Removable) and concatenates the rest verbatim. Tokens are
// expected to interleave content with the delimiters that separate it.
func ConcatAndTruncate(tokens []string, level Level, d Delimiters) string {
	n := len(tokens)
	for n > 0 && d.Removable(level, tokens[n-1]) {
		n--
	}
	return strings.Join(tokens[:n], "")
}
