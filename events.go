package goedi

import (
	"context"
	"errors"
	"io"
	"log/slog"

	eng "github.com/reoring/goedi/internal/engine"
	"github.com/reoring/goedi/mapping"
)

// Event model shared with the document sources under source/.
type (
	EventKind   = eng.EventKind
	Event       = eng.Event
	EventSource = eng.EventSource
)

const (
	EventOpen  = eng.EventOpen
	EventClose = eng.EventClose
	EventText  = eng.EventText
)

// EncodeFrom pumps src through an Encoder writing to w until the root
// element closes or src ends. Depth, text size and close balance are checked
// per opt before events reach the encoder. The context is checked between
// events.
func EncodeFrom(ctx context.Context, w io.Writer, m *mapping.Model, d Delimiters, src EventSource, opts ...EncodeOpt) error {
	enc, err := NewEncoder(w, m, d, opts...)
	if err != nil {
		return err
	}
	opt := lastOpt(opts)
	eo := eng.EnforceOptions{
		MaxDepth:     opt.MaxDepth,
		MaxTextBytes: opt.MaxTextBytes,
	}
	if sink := opt.IssueSink; sink != nil {
		eo.IssueSink = func(si eng.SimpleIssue) { sink(fromEngine(si)) }
	}
	return enc.Drain(ctx, eng.WrapWithEnforcement(src, eo))
}

// Drain feeds every event of src to the encoder. At the end of src it calls
// Finish, so the document must be complete: the root element closed, or for
// a transparent root no element left open.
func (e *Encoder) Drain(ctx context.Context, src EventSource) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, err := src.NextEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return e.report(e.Finish())
			}
			var ie eng.IssueError
			if errors.As(err, &ie) {
				// Enforcement already handed it to the sink.
				return toIssues(err)
			}
			return e.report(toIssues(err))
		}
		switch ev.Kind {
		case EventOpen:
			err = e.Open(ev.Name)
		case EventClose:
			_, err = e.Close(ev.Name)
		case EventText:
			err = e.Text(ev.Text)
		}
		if err != nil {
			if iss, ok := AsIssues(err); ok {
				for i := range iss {
					if iss[i].Offset < 0 {
						iss[i].Offset = ev.Offset
					}
				}
			}
			e.logger.Debug("encode failed", slog.String("path", pointer(e.Path())), slog.Any("error", err))
			return e.report(err)
		}
	}
}

// toIssues converts engine issues and other source errors to Issues.
func toIssues(err error) error {
	if _, ok := AsIssues(err); ok {
		return err
	}
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return AppendIssues(nil, fromEngine(ie.SimpleIssue))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return AppendIssues(nil, Issue{Code: CodeParseError, Message: err.Error(), Cause: err, Offset: -1})
}

func fromEngine(si eng.SimpleIssue) Issue {
	return Issue{Code: si.Code, Path: si.Path, Message: si.Message, Offset: si.Offset}
}

// report hands every issue in err to EncodeOpt.IssueSink.
func (e *Encoder) report(err error) error {
	if e.opt.IssueSink == nil {
		return err
	}
	if iss, ok := AsIssues(err); ok {
		for _, is := range iss {
			e.opt.IssueSink(is)
		}
	}
	return err
}
