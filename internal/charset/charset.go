// Package charset decodes a byte stream one rune at a time while keeping
// exact track of how many source bytes each rune consumed, so a reader can
// rewind to a mark and continue under a different character encoding.
package charset

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// UTF8 is the canonical name of the default encoding.
const UTF8 = "UTF-8"

// ErrUnknown is returned by Lookup for names no registry knows.
var ErrUnknown = errors.New("charset: unknown encoding")

// Charset is a resolved character encoding.
type Charset struct {
	Name string
	enc  encoding.Encoding
}

// Lookup resolves an IANA or WHATWG encoding name. IANA names win so that
// "ISO-8859-1" keeps its exact meaning instead of the windows-1252 alias.
func Lookup(name string) (Charset, error) {
	n := strings.TrimSpace(name)
	if n == "" || strings.EqualFold(n, "utf8") || strings.EqualFold(n, UTF8) {
		return Charset{Name: UTF8, enc: unicode.UTF8}, nil
	}
	if enc, err := ianaindex.IANA.Encoding(n); err == nil && enc != nil {
		canon, err := ianaindex.MIME.Name(enc)
		if err != nil || canon == "" {
			if canon, err = ianaindex.IANA.Name(enc); err != nil {
				canon = strings.ToUpper(n)
			}
		}
		return Charset{Name: canon, enc: enc}, nil
	}
	if enc, err := htmlindex.Get(n); err == nil && enc != nil {
		canon, err := htmlindex.Name(enc)
		if err != nil {
			canon = strings.ToLower(n)
		}
		return Charset{Name: canon, enc: enc}, nil
	}
	return Charset{}, fmt.Errorf("%w: %q", ErrUnknown, name)
}

func (c Charset) isUTF8() bool { return c.enc == nil || c.enc == unicode.UTF8 }

// Encoding returns the x/text encoding, for writers that need to encode.
func (c Charset) Encoding() encoding.Encoding {
	if c.enc == nil {
		return unicode.UTF8
	}
	return c.enc
}

// Decoder yields runes from a MarkReader together with their byte widths.
type Decoder struct {
	src   *MarkReader
	cs    Charset
	tr    transform.Transformer
	pend  []byte
	dst   [64]byte
	queue []Rune
	carry int
}

// Rune is a decoded character and the number of source bytes it accounts for.
type Rune struct {
	R     rune
	Width int
}

// NewDecoder starts decoding src with cs from src's current offset.
func NewDecoder(src *MarkReader, cs Charset) *Decoder {
	d := &Decoder{src: src, cs: cs}
	if !cs.isUTF8() {
		d.tr = cs.enc.NewDecoder()
	}
	return d
}

// Charset returns the decoder's charset.
func (d *Decoder) Charset() Charset { return d.cs }

// ReadRune returns the next rune. Bytes consumed without producing output
// (byte order marks, shift sequences) are added to the width of the next rune.
func (d *Decoder) ReadRune() (Rune, error) {
	if len(d.queue) > 0 {
		r := d.queue[0]
		d.queue = d.queue[1:]
		return r, nil
	}
	if d.tr == nil {
		return d.readUTF8()
	}
	return d.readTransformed()
}

func (d *Decoder) readUTF8() (Rune, error) {
	for !utf8.FullRune(d.pend) {
		b, err := d.src.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(d.pend) > 0 {
				break
			}
			return Rune{}, err
		}
		d.pend = append(d.pend, b)
	}
	r, n := utf8.DecodeRune(d.pend)
	d.pend = append(d.pend[:0], d.pend[n:]...)
	return Rune{R: r, Width: n}, nil
}

func (d *Decoder) readTransformed() (Rune, error) {
	for {
		atEOF := false
		b, err := d.src.ReadByte()
		switch {
		case errors.Is(err, io.EOF):
			atEOF = true
		case err != nil:
			return Rune{}, err
		default:
			d.pend = append(d.pend, b)
		}
		if atEOF && len(d.pend) == 0 {
			return Rune{}, io.EOF
		}
		nDst, nSrc, terr := d.tr.Transform(d.dst[:], d.pend, atEOF)
		d.pend = append(d.pend[:0], d.pend[nSrc:]...)
		if nDst > 0 {
			d.enqueue(d.dst[:nDst], nSrc+d.carry)
			d.carry = 0
			r := d.queue[0]
			d.queue = d.queue[1:]
			return r, nil
		}
		d.carry += nSrc
		if terr != nil && !errors.Is(terr, transform.ErrShortSrc) {
			return Rune{}, terr
		}
		if atEOF {
			if len(d.pend) > 0 {
				w := len(d.pend) + d.carry
				d.pend = d.pend[:0]
				d.carry = 0
				return Rune{R: utf8.RuneError, Width: w}, nil
			}
			return Rune{}, io.EOF
		}
	}
}

// enqueue splits UTF-8 output into runes. When one transform step yields
// several runes the consumed width is charged to the last of them.
func (d *Decoder) enqueue(out []byte, width int) {
	for len(out) > 0 {
		r, n := utf8.DecodeRune(out)
		d.queue = append(d.queue, Rune{R: r})
		out = out[n:]
	}
	d.queue[len(d.queue)-1].Width = width
}
