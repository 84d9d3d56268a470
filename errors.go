package goedi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/goedi/i18n"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidDelimiters = "invalid_delimiters"
	CodeSchemaMismatch    = "schema_mismatch"
	CodeUnexpectedClose   = "unexpected_close"
	CodeTextNotAllowed    = "text_not_allowed"
	CodeNoCurrentSegment  = "no_current_segment"
	CodeLimitExceeded     = "limit_exceeded"
	CodeParseError        = "parse_error"
	CodeTruncated         = "truncated"
)

// Sentinel errors for reader and stack state.
var (
	// ErrNoCurrentSegment is returned when fields are requested before
	// MoveToNextSegment was called or after its last call returned false.
	ErrNoCurrentSegment = errors.New("goedi: no current segment: MoveToNextSegment was never called or its last call returned false")
	// ErrDelimiterStackUnderflow is returned when popping the root delimiter set.
	ErrDelimiterStackUnderflow = errors.New("goedi: cannot pop the root delimiter set")
	// ErrUnknownEncoding is returned by ChangeEncoding for unsupported charset names.
	ErrUnknownEncoding = errors.New("goedi: unknown character encoding")
	// ErrDocumentClosed is returned when events arrive after the root group closed.
	ErrDocumentClosed = errors.New("goedi: document already closed")
)

// Issue represents a single codec error entry.
type Issue struct {
	Path    string // Open-tag path rendered as a JSON Pointer (for example: /Order/NAD/C082).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints.
	Cause   error  // Optional: underlying error.
	Offset  int64  // Character offset in the input (-1 when unknown).
	// Segment is the 1-based segment number the issue refers to (0 when unknown).
	Segment int
	// Params carries structured parameters (e.g., {"tag":"DTM","open":[...]})
	// for i18n and observability.
	Params map[string]any
}

// Issues is a collection of codec errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. schema_mismatch at /Order/NAD: unexpected tag "XYZ"
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
		if it.Message != "" {
			fmt.Fprintf(b, ": %s", it.Message)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Unwrap exposes the causes so errors.Is can see through Issues.
func (iss Issues) Unwrap() []error {
	var out []error
	for _, it := range iss {
		if it.Cause != nil {
			out = append(out, it.Cause)
		}
	}
	return out
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// HasCode reports whether err carries an Issue with the given code.
func HasCode(err error, code string) bool {
	iss, ok := AsIssues(err)
	if !ok {
		return false
	}
	for _, it := range iss {
		if it.Code == code {
			return true
		}
	}
	return false
}

func singleIssue(code, detail string) Issues {
	return Issues{newIssue(nil, code, detail, nil)}
}

// newIssue builds an Issue whose message is the translated code text followed
// by detail.
func newIssue(path []string, code, detail string, params map[string]any) Issue {
	data := map[string]string{}
	for k, v := range params {
		if s, ok := v.(string); ok {
			data[k] = s
		}
	}
	msg := i18n.T(code, data)
	if detail != "" {
		msg += ": " + detail
	}
	return Issue{Path: pointer(path), Code: code, Message: msg, Offset: -1, Params: params}
}

// pointer renders an open-tag path as a JSON Pointer, escaping '~' and '/'
// per RFC6901.
func pointer(parts []string) string {
	if len(parts) == 0 {
		return "/"
	}
	b := &strings.Builder{}
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(strings.ReplaceAll(strings.ReplaceAll(p, "~", "~0"), "/", "~1"))
	}
	return b.String()
}
