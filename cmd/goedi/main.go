package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	json "github.com/goccy/go-json"

	goedi "github.com/reoring/goedi"
	"github.com/reoring/goedi/profile"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "split":
		err = splitCmd(ctx, os.Args[2:], os.Stdout)
	case "translate":
		err = translateCmd(ctx, os.Args[2:], os.Stdout)
	case "detect":
		err = detectCmd(os.Args[2:], os.Stdout)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fatalf("goedi %s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "goedi CLI\n\nUsage:\n"+
		"  goedi split [-profile P] [-detect] [-encoding E] [-v] [file]\n"+
		"  goedi translate -from P -to P [-truncate] [-terminate] [-encoding E] [-v] [file]\n"+
		"  goedi detect [-v] [file]\n\n"+
		"P is a built-in profile ("+strings.Join(profile.Names(), ", ")+") or a profile YAML file.\n"+
		"Input is read from stdin when no file is given.")
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openInput(fs *flag.FlagSet) (io.ReadCloser, error) {
	switch fs.NArg() {
	case 0:
		return io.NopCloser(os.Stdin), nil
	case 1:
		return os.Open(fs.Arg(0))
	}
	return nil, fmt.Errorf("expected at most one input file, got %d", fs.NArg())
}

// segmentRecord is one line of split output.
type segmentRecord struct {
	N         int      `json:"n"`
	Fields    []string `json:"fields"`
	Truncated bool     `json:"truncated,omitempty"`
}

func splitCmd(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	var prof, encoding string
	var detect, verbose bool
	fs.StringVar(&prof, "profile", "edifact", "delimiter profile name or YAML file")
	fs.BoolVar(&detect, "detect", false, "detect delimiters from UNA/ISA/UNB and the EDIFACT charset from UNB")
	fs.StringVar(&encoding, "encoding", "", "input character encoding (default from profile, else UTF-8)")
	fs.BoolVar(&verbose, "v", false, "enable debug logs")
	_ = fs.Parse(args)

	p, err := profile.Resolve(prof)
	if err != nil {
		return err
	}
	if encoding == "" {
		encoding = p.Encoding
	}
	in, err := openInput(fs)
	if err != nil {
		return err
	}
	defer in.Close()

	logger := newLogger(verbose)
	r, err := goedi.NewSegmentReader(bufio.NewReader(in), p.Delimiters, goedi.ReaderOpt{Encoding: encoding, Logger: logger})
	if err != nil {
		return err
	}
	if detect {
		if err := detectAndSwitch(r, logger); err != nil {
			return err
		}
	}

	w := bufio.NewWriter(stdout)
	enc := json.NewEncoder(w)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := r.MoveToNextSegment(false)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		fields, err := r.CurrentSegmentFields()
		if err != nil {
			return err
		}
		rec := segmentRecord{N: r.SegmentNumber(), Fields: fields, Truncated: r.Truncated()}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return w.Flush()
}

// detectAndSwitch activates the delimiters declared by the service segments
// and, for EDIFACT, the charset named by the UNB syntax identifier. The UNB
// segment stays unread.
func detectAndSwitch(r *goedi.SegmentReader, logger *slog.Logger) error {
	marked := r.Mark()
	d, syntax, err := goedi.DetectDelimiters(r)
	if err != nil {
		return err
	}
	logger.Debug("delimiters detected", slog.String("syntax", syntax.String()), slog.String("segment", d.Segment))
	if syntax != goedi.SyntaxEDIFACT || !marked {
		return nil
	}
	cs, ok, err := peekUNBCharset(r)
	if err != nil || !ok {
		return err
	}
	name, err := r.ChangeEncoding(cs)
	if err != nil {
		return err
	}
	logger.Debug("encoding selected", slog.String("encoding", name))
	return nil
}

// peekUNBCharset looks at the UNB header without consuming it.
func peekUNBCharset(r *goedi.SegmentReader) (string, bool, error) {
	d := r.Delimiters()
	head, err := r.Peek(16, true)
	if err != nil {
		return "", false, err
	}
	if !strings.HasPrefix(head, "UNB"+d.Field) {
		return "", false, nil
	}
	syntaxID := strings.TrimPrefix(head, "UNB"+d.Field)
	if d.Component != "" {
		syntaxID, _, _ = strings.Cut(syntaxID, d.Component)
	}
	syntaxID, _, _ = strings.Cut(syntaxID, d.Field)
	cs, ok := goedi.EDIFACTCharset(syntaxID)
	return cs, ok, nil
}

func translateCmd(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("translate", flag.ExitOnError)
	var from, to, encoding string
	var truncate, terminate, verbose bool
	fs.StringVar(&from, "from", "", "source delimiter profile name or YAML file")
	fs.StringVar(&to, "to", "", "target delimiter profile name or YAML file")
	fs.BoolVar(&truncate, "truncate", false, "drop trailing empty fields, components and subcomponents")
	fs.BoolVar(&terminate, "terminate", true, "end the last segment with the segment delimiter")
	fs.StringVar(&encoding, "encoding", "", "input character encoding")
	fs.BoolVar(&verbose, "v", false, "enable debug logs")
	_ = fs.Parse(args)
	if from == "" || to == "" {
		fs.Usage()
		os.Exit(2)
	}
	src, err := profile.Resolve(from)
	if err != nil {
		return err
	}
	dst, err := profile.Resolve(to)
	if err != nil {
		return err
	}
	if encoding == "" {
		encoding = src.Encoding
	}
	in, err := openInput(fs)
	if err != nil {
		return err
	}
	defer in.Close()

	logger := newLogger(verbose)
	w := bufio.NewWriter(stdout)
	n, err := goedi.Translate(ctx, bufio.NewReader(in), w, src.Delimiters, dst.Delimiters, goedi.TranslateOpt{
		Truncate:          truncate,
		TerminateSegments: terminate,
		Reader:            goedi.ReaderOpt{Encoding: encoding, Logger: logger},
	})
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	logger.Debug("translate done", slog.Int("segments", n))
	return err
}

func detectCmd(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	var verbose bool
	fs.BoolVar(&verbose, "v", false, "enable debug logs")
	_ = fs.Parse(args)
	in, err := openInput(fs)
	if err != nil {
		return err
	}
	defer in.Close()

	logger := newLogger(verbose)
	r, err := goedi.NewSegmentReader(bufio.NewReader(in), goedi.EDIFACTDelimiters(), goedi.ReaderOpt{Logger: logger})
	if err != nil {
		return err
	}
	d, syntax, err := goedi.DetectDelimiters(r)
	if err != nil {
		return err
	}
	if syntax == goedi.SyntaxUnknown {
		return fmt.Errorf("no UNA, UNB or ISA header found")
	}
	p := profile.Profile{Name: syntax.String(), Delimiters: d}
	if syntax == goedi.SyntaxEDIFACT {
		if cs, ok, err := peekUNBCharset(r); err != nil {
			return err
		} else if ok {
			p.Encoding = cs
		}
	}
	return profile.Encode(stdout, p)
}
