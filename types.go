package goedi

import "log/slog"

// DefaultMarkLimit is the mark window used when ReaderOpt.MarkLimit is zero.
const DefaultMarkLimit = 4096

// ReaderOpt configures a SegmentReader.
type ReaderOpt struct {
	// Encoding names the initial character encoding (default UTF-8).
	Encoding string
	// MarkLimit bounds how many bytes may be read past a Mark before
	// ChangeEncoding stops working. Zero means DefaultMarkLimit; a negative
	// value disables marking.
	MarkLimit int
	// Listener, when set, decides whether each segment becomes current.
	Listener SegmentListener
	Logger   *slog.Logger
}

// EncodeOpt configures an Encoder.
type EncodeOpt struct {
	// TerminateSegments writes the segment delimiter after the last segment
	// as well, as EDIFACT and X12 interchanges do.
	TerminateSegments bool
	// MaxDepth and MaxTextBytes bound event streams pumped by EncodeFrom
	// (zero disables the check).
	MaxDepth     int
	MaxTextBytes int64
	// IssueSink, when set, receives each issue before it is returned.
	IssueSink func(Issue)
	Logger    *slog.Logger
}

// TranslateOpt configures Translate.
type TranslateOpt struct {
	// Truncate drops trailing empty fields, components and subcomponents.
	Truncate bool
	// TerminateSegments ends every output segment with the delimiter,
	// including the last one.
	TerminateSegments bool
	Reader            ReaderOpt
}

func lastOpt[T any](opts []T) T {
	var opt T
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	return opt
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
