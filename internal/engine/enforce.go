package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Enforcement wrapper for EventSource to apply nesting depth and text size
// limits and to check that close events balance open events.

// EnforceOptions controls runtime enforcement behavior.
type EnforceOptions struct {
	MaxDepth int
	// MaxTextBytes bounds the text of a single element (summed over its
	// text events).
	MaxTextBytes int64
	// IssueSink is an optional callback receiving each issue before it is
	// returned as an error.
	IssueSink func(SimpleIssue)
}

// SimpleIssue is a minimal issue representation used by internal helpers.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
	Offset  int64
}

// IssueError is a lightweight error carrying a SimpleIssue.
type IssueError struct{ SimpleIssue }

func (e IssueError) Error() string { return e.SimpleIssue.Message }

// WrapWithEnforcement returns an EventSource that enforces opt on inner.
func WrapWithEnforcement(inner EventSource, opt EnforceOptions) EventSource {
	return &enforcingEventSource{inner: inner, opt: opt}
}

type enforcingEventSource struct {
	inner EventSource
	opt   EnforceOptions
	open  []string
	text  int64
}

func (e *enforcingEventSource) NextEvent() (Event, error) {
	ev, err := e.inner.NextEvent()
	if err != nil {
		if errors.Is(err, io.EOF) && len(e.open) > 0 {
			return Event{}, e.issue("truncated", fmt.Sprintf("input ended with %d open elements", len(e.open)), -1)
		}
		return Event{}, err
	}
	switch ev.Kind {
	case EventOpen:
		e.open = append(e.open, ev.Name)
		e.text = 0
		if e.opt.MaxDepth > 0 && len(e.open) > e.opt.MaxDepth {
			return Event{}, e.issue("limit_exceeded", "max depth exceeded", ev.Offset)
		}
	case EventClose:
		n := len(e.open)
		if n == 0 || e.open[n-1] != ev.Name {
			return Event{}, e.issue("unexpected_close", "close "+ev.Name+" does not match the innermost open element", ev.Offset)
		}
		e.open = e.open[:n-1]
		e.text = 0
	case EventText:
		e.text += int64(len(ev.Text))
		if e.opt.MaxTextBytes > 0 && e.text > e.opt.MaxTextBytes {
			return Event{}, e.issue("limit_exceeded", "max text bytes exceeded", ev.Offset)
		}
	}
	return ev, nil
}

func (e *enforcingEventSource) issue(code, msg string, off int64) error {
	si := SimpleIssue{Code: code, Path: pointer(e.open), Message: msg, Offset: off}
	if e.opt.IssueSink != nil {
		e.opt.IssueSink(si)
	}
	return IssueError{si}
}

var jsonPointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func pointer(parts []string) string {
	if len(parts) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(jsonPointerEscaper.Replace(p))
	}
	return b.String()
}
