package goedi_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goedi "github.com/reoring/goedi"
)

func newReader(t *testing.T, in string, d goedi.Delimiters, opts ...goedi.ReaderOpt) *goedi.SegmentReader {
	t.Helper()
	r, err := goedi.NewSegmentReader(strings.NewReader(in), d, opts...)
	require.NoError(t, err)
	return r
}

func segments(t *testing.T, r *goedi.SegmentReader) []string {
	t.Helper()
	var out []string
	for {
		ok, err := r.MoveToNextSegment(false)
		require.NoError(t, err)
		if !ok {
			return out
		}
		s, err := r.CurrentSegment()
		require.NoError(t, err)
		out = append(out, s)
	}
}

func TestSegmentReader_Segments(t *testing.T) {
	edifact := goedi.EDIFACTDelimiters()
	noFold := edifact
	noFold.FoldCRLF = false

	cases := []struct {
		name string
		in   string
		d    goedi.Delimiters
		want []string
	}{
		{"basic", "SEG1'SEG2'", edifact, []string{"SEG1", "SEG2"}},
		{"escaped terminator", "FTX+AAA+++A?'B'C'", edifact, []string{"FTX+AAA+++A'B", "C"}},
		{"even escapes end the segment", "A??'B'", edifact, []string{"A??", "B"}},
		{"three escapes", "A???'B'", edifact, []string{"A??'B"}},
		{"truncated tail", "A'B", edifact, []string{"A", "B"}},
		{"folded newlines", "A'\r\nB'\r\n", edifact, []string{"A", "B"}},
		{"unfolded trailing newline", "A'\n", noFold, []string{"A"}},
		{"empty input", "", edifact, nil},
		{"multi char terminator", "A~\nB~\n", goedi.Delimiters{Segment: "~\n", Field: "*"}, []string{"A", "B"}},
		{"utf8", "NAD+Müller'NAD+Ødegård'", edifact, []string{"NAD+Müller", "NAD+Ødegård"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, segments(t, newReader(t, tc.in, tc.d)))
		})
	}
}

func TestSegmentReader_FieldsAndCounters(t *testing.T) {
	r := newReader(t, "UNH+1+ORDERS:D:96A:UN'NAD+BY+1234567890123::9++ACME?+CORP'", goedi.EDIFACTDelimiters())

	ok, err := r.MoveToNextSegment(false)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = r.MoveToNextSegment(false)
	require.NoError(t, err)
	require.True(t, ok)

	fields, err := r.CurrentSegmentFields()
	require.NoError(t, err)
	assert.Equal(t, []string{"NAD", "BY", "1234567890123::9", "", "ACME+CORP"}, fields)
	assert.Equal(t, 2, r.SegmentNumber())
	assert.False(t, r.Truncated())

	ok, err = r.MoveToNextSegment(false)
	require.NoError(t, err)
	require.False(t, ok)
	assert.Equal(t, int64(58), r.CharsRead())
}

func TestSegmentReader_NoCurrentSegment(t *testing.T) {
	r := newReader(t, "A'", goedi.EDIFACTDelimiters())
	_, err := r.CurrentSegmentFields()
	require.ErrorIs(t, err, goedi.ErrNoCurrentSegment)

	assert.Equal(t, []string{"A"}, segments(t, r))
	_, err = r.CurrentSegment()
	require.ErrorIs(t, err, goedi.ErrNoCurrentSegment)
}

func TestSegmentReader_TruncatedFlag(t *testing.T) {
	r := newReader(t, "A'B", goedi.EDIFACTDelimiters())
	ok, err := r.MoveToNextSegment(false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, r.Truncated())
	ok, err = r.MoveToNextSegment(false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, r.Truncated())
}

func TestSegmentReader_StripsCRWithNewlineSegments(t *testing.T) {
	d := goedi.Delimiters{Segment: "\n", Field: "|"}
	r := newReader(t, "A|B\r\nC|D\r\n", d)
	var got [][]string
	for {
		ok, err := r.MoveToNextSegment(false)
		require.NoError(t, err)
		if !ok {
			break
		}
		f, err := r.CurrentSegmentFields()
		require.NoError(t, err)
		got = append(got, f)
	}
	assert.Equal(t, [][]string{{"A", "B"}, {"C", "D"}}, got)
}

func TestSegmentReader_PeekAndConsume(t *testing.T) {
	r := newReader(t, "  \nUNA:+.? 'UNB+UNOC:3'", goedi.EDIFACTDelimiters())

	head, err := r.Peek(3, true)
	require.NoError(t, err)
	assert.Equal(t, "UNA", head)

	una, err := r.Consume(9)
	require.NoError(t, err)
	assert.Equal(t, "UNA:+.? '", una)

	assert.Equal(t, []string{"UNB+UNOC:3"}, segments(t, r))

	short, err := r.Peek(10, false)
	require.NoError(t, err)
	assert.Equal(t, "", short)
}

func TestSegmentReader_PeekedTextBelongsToNextSegment(t *testing.T) {
	r := newReader(t, "ABC'DEF'", goedi.EDIFACTDelimiters())
	p, err := r.Peek(6, false)
	require.NoError(t, err)
	assert.Equal(t, "ABC'DE", p)
	assert.Equal(t, []string{"ABC", "DEF"}, segments(t, r))
}

func TestSegmentReader_ClearBufferDiscardsPeek(t *testing.T) {
	r := newReader(t, "XXABC'DEF'", goedi.EDIFACTDelimiters())
	_, err := r.Peek(2, false)
	require.NoError(t, err)
	ok, err := r.MoveToNextSegment(true)
	require.NoError(t, err)
	require.True(t, ok)
	s, err := r.CurrentSegment()
	require.NoError(t, err)
	assert.Equal(t, "ABC", s)
}

func TestSegmentReader_ListenerFramesSubDocuments(t *testing.T) {
	in := "UNH+1'BGM+220'UNT+2+1'UNH+2'UNT+1+2'"
	var seen []int
	stopAtTrailer := goedi.SegmentListenerFunc(func(r *goedi.SegmentReader) (bool, error) {
		seen = append(seen, r.SegmentNumber())
		s, err := r.CurrentSegment()
		if err != nil {
			return false, err
		}
		return !strings.HasPrefix(s, "UNT"), nil
	})
	r := newReader(t, in, goedi.EDIFACTDelimiters(), goedi.ReaderOpt{Listener: stopAtTrailer})

	assert.Equal(t, []string{"UNH+1", "BGM+220"}, segments(t, r))
	_, err := r.CurrentSegmentFields()
	require.ErrorIs(t, err, goedi.ErrNoCurrentSegment)

	r.SetListener(nil)
	assert.Equal(t, []string{"UNH+2", "UNT+1+2"}, segments(t, r))
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestSegmentReader_PushPopDelimiters(t *testing.T) {
	r := newReader(t, "A+B'C*D~E+F'", goedi.EDIFACTDelimiters())

	ok, err := r.MoveToNextSegment(false)
	require.NoError(t, err)
	require.True(t, ok)
	f, err := r.CurrentSegmentFields()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, f)

	require.NoError(t, r.PushDelimiters(goedi.X12Delimiters()))
	ok, err = r.MoveToNextSegment(false)
	require.NoError(t, err)
	require.True(t, ok)
	f, err = r.CurrentSegmentFields()
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D"}, f)

	require.NoError(t, r.PopDelimiters())
	require.ErrorIs(t, r.PopDelimiters(), goedi.ErrDelimiterStackUnderflow)
	ok, err = r.MoveToNextSegment(false)
	require.NoError(t, err)
	require.True(t, ok)
	f, err = r.CurrentSegmentFields()
	require.NoError(t, err)
	assert.Equal(t, []string{"E", "F"}, f)

	require.Error(t, r.PushDelimiters(goedi.Delimiters{}))
}

func TestSegmentReader_InitialEncoding(t *testing.T) {
	in := []byte("NAD+M\xfcller'")
	r, err := goedi.NewSegmentReader(bytes.NewReader(in), goedi.EDIFACTDelimiters(), goedi.ReaderOpt{Encoding: "ISO-8859-1"})
	require.NoError(t, err)
	assert.Equal(t, "ISO-8859-1", r.Encoding())
	assert.Equal(t, []string{"NAD+Müller"}, segments(t, r))

	_, err = goedi.NewSegmentReader(bytes.NewReader(in), goedi.EDIFACTDelimiters(), goedi.ReaderOpt{Encoding: "klingon"})
	require.ErrorIs(t, err, goedi.ErrUnknownEncoding)
}

func TestSegmentReader_ChangeEncodingResumesAtLogicalOffset(t *testing.T) {
	latin1 := []byte("UNB+UNOC:3'NAD+M\xfcller'FTX+\xe9t\xe9'")
	r, err := goedi.NewSegmentReader(bytes.NewReader(latin1), goedi.EDIFACTDelimiters())
	require.NoError(t, err)
	require.True(t, r.Mark())

	ok, err := r.MoveToNextSegment(false)
	require.NoError(t, err)
	require.True(t, ok)
	fields, err := r.CurrentSegmentFields()
	require.NoError(t, err)
	cs, ok := goedi.EDIFACTCharset(strings.Split(fields[1], ":")[0])
	require.True(t, ok)

	// Decoded lookahead must be decoded again under the new charset.
	_, err = r.Peek(8, false)
	require.NoError(t, err)

	name, err := r.ChangeEncoding(cs)
	require.NoError(t, err)
	assert.Equal(t, "ISO-8859-1", name)
	assert.Equal(t, "ISO-8859-1", r.Encoding())

	assert.Equal(t, []string{"NAD+Müller", "FTX+été"}, segments(t, r))
}

func TestSegmentReader_ChangeEncodingWithoutMarkIsNoop(t *testing.T) {
	in := []byte("UNB+UNOC:3'NAD+M\xfcller'")

	r, err := goedi.NewSegmentReader(bytes.NewReader(in), goedi.EDIFACTDelimiters(), goedi.ReaderOpt{MarkLimit: -1})
	require.NoError(t, err)
	assert.False(t, r.Mark())
	_, err = r.MoveToNextSegment(false)
	require.NoError(t, err)
	name, err := r.ChangeEncoding("ISO-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "UTF-8", name)

	// Mark window exceeded.
	r, err = goedi.NewSegmentReader(bytes.NewReader(in), goedi.EDIFACTDelimiters(), goedi.ReaderOpt{MarkLimit: 4})
	require.NoError(t, err)
	require.True(t, r.Mark())
	_, err = r.MoveToNextSegment(false)
	require.NoError(t, err)
	name, err = r.ChangeEncoding("ISO-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "UTF-8", name)

	_, err = r.ChangeEncoding("klingon")
	require.ErrorIs(t, err, goedi.ErrUnknownEncoding)
}
