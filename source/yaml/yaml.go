// Package yaml turns YAML documents into encoder events using yaml.v3.
// The element rendition is the same as for JSON documents: mapping keys
// become tags, scalars become text, null becomes an empty element and a
// sequence repeats the element named by its key. Aliases are followed.
package yaml

import (
	"errors"
	"fmt"
	"io"

	y3 "gopkg.in/yaml.v3"

	goedi "github.com/reoring/goedi"
	eng "github.com/reoring/goedi/internal/engine"
)

// maxAliasDepth bounds alias expansion chains.
const maxAliasDepth = 64

// NewReader returns an EventSource over the first YAML document in r.
func NewReader(r io.Reader) goedi.EventSource { return eng.Events(NewTokens(r)) }

// NewTokens returns a token source over the first YAML document in r.
func NewTokens(r io.Reader) eng.TokenSource { return &source{dec: y3.NewDecoder(r)} }

type source struct {
	dec    *y3.Decoder
	toks   []eng.Token
	loaded bool
	i      int
	err    error
}

func (s *source) NextToken() (eng.Token, error) {
	if !s.loaded {
		s.loaded = true
		var doc y3.Node
		if err := s.dec.Decode(&doc); err != nil {
			s.err = err
		} else {
			s.err = s.walk(&doc, 0)
		}
	}
	if s.i < len(s.toks) {
		t := s.toks[s.i]
		s.i++
		return t, nil
	}
	if s.err != nil {
		return eng.Token{}, s.err
	}
	return eng.Token{}, io.EOF
}

// Location reports the line of the next token, -1 when unknown.
func (s *source) Location() int64 {
	if s.i < len(s.toks) {
		return s.toks[s.i].Offset
	}
	return -1
}

func (s *source) add(kind eng.Kind, n *y3.Node) *eng.Token {
	s.toks = append(s.toks, eng.Token{Kind: kind, Offset: int64(n.Line)})
	return &s.toks[len(s.toks)-1]
}

func (s *source) walk(n *y3.Node, aliases int) error {
	switch n.Kind {
	case y3.DocumentNode:
		if len(n.Content) == 0 {
			return nil
		}
		return s.walk(n.Content[0], aliases)
	case y3.AliasNode:
		if aliases >= maxAliasDepth || n.Alias == nil {
			return fmt.Errorf("yaml: line %d: alias %q too deep or unresolved", n.Line, n.Value)
		}
		return s.walk(n.Alias, aliases+1)
	case y3.MappingNode:
		s.add(eng.KindBeginObject, n)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != y3.ScalarNode {
				return fmt.Errorf("yaml: line %d: mapping key must be a scalar", k.Line)
			}
			s.add(eng.KindKey, k).String = k.Value
			if err := s.walk(n.Content[i+1], aliases); err != nil {
				return err
			}
		}
		s.add(eng.KindEndObject, n)
		return nil
	case y3.SequenceNode:
		s.add(eng.KindBeginArray, n)
		for _, c := range n.Content {
			if err := s.walk(c, aliases); err != nil {
				return err
			}
		}
		s.add(eng.KindEndArray, n)
		return nil
	case y3.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			s.add(eng.KindNull, n)
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return err
			}
			s.add(eng.KindBool, n).Bool = b
		case "!!int", "!!float":
			s.add(eng.KindNumber, n).Number = n.Value
		default:
			s.add(eng.KindString, n).String = n.Value
		}
		return nil
	}
	return errors.New("yaml: unsupported node kind")
}
