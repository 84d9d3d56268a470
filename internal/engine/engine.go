// Package engine carries the event model shared by the encoder and the
// structured-document sources, plus the enforcement wrapper applied to event
// streams before they reach an encoder.
package engine

import (
	"errors"
	"io"
)

// Kind represents token kinds from a structured-document source.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

// Token represents a streaming token with approximate input offset.
type Token struct {
	Kind   Kind
	String string
	Number string
	Bool   bool
	Offset int64
}

// TokenSource is the minimal interface a document driver implements.
type TokenSource interface {
	NextToken() (Token, error)
	Location() int64
}

// EventKind is the kind of an encoder event.
type EventKind int

const (
	EventOpen EventKind = iota
	EventClose
	EventText
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventClose:
		return "close"
	case EventText:
		return "text"
	}
	return "unknown"
}

// Event is one open, close or text step of a document tree.
type Event struct {
	Kind EventKind
	// Name is the element tag for open and close events.
	Name string
	// Text is the character data of a text event.
	Text string
	// Offset is the approximate input offset, -1 when unknown.
	Offset int64
}

// EventSource yields events in document order and io.EOF after the last one.
type EventSource interface {
	NextEvent() (Event, error)
}

// ErrShape is returned when a token stream has no element tree rendition.
var ErrShape = errors.New("engine: document shape has no element rendition")

type treeFrame struct {
	array bool
	// key is the element name the frame was entered under ("" for the root).
	key string
}

// treeEvents renders a token stream as elements: object keys become tags,
// scalars become text, null becomes an empty element and an array repeats
// the element named by its key once per item.
type treeEvents struct {
	src     TokenSource
	stack   []treeFrame
	pending string
	hasKey  bool
	queue   []Event
	started bool
	ended   bool
}

// Events returns an EventSource over a token stream whose root is an object.
func Events(src TokenSource) EventSource { return &treeEvents{src: src} }

func (t *treeEvents) NextEvent() (Event, error) {
	for len(t.queue) == 0 {
		if err := t.step(); err != nil {
			return Event{}, err
		}
	}
	ev := t.queue[0]
	t.queue = t.queue[1:]
	return ev, nil
}

func (t *treeEvents) emit(kind EventKind, name, text string, off int64) {
	t.queue = append(t.queue, Event{Kind: kind, Name: name, Text: text, Offset: off})
}

func (t *treeEvents) step() error {
	tok, err := t.src.NextToken()
	if err != nil {
		if errors.Is(err, io.EOF) && t.started && !t.ended {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	if t.ended {
		return ErrShape
	}
	if !t.started {
		if tok.Kind != KindBeginObject {
			return ErrShape
		}
		t.started = true
		t.stack = append(t.stack, treeFrame{})
		return nil
	}
	top := &t.stack[len(t.stack)-1]

	switch tok.Kind {
	case KindKey:
		t.pending, t.hasKey = tok.String, true
		return nil
	case KindEndObject:
		f := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		if len(t.stack) == 0 {
			t.ended = true
			return io.EOF
		}
		t.emit(EventClose, f.key, "", tok.Offset)
		return nil
	case KindEndArray:
		t.stack = t.stack[:len(t.stack)-1]
		return nil
	}

	// A value: its name comes from the pending key or the enclosing array.
	var name string
	switch {
	case top.array:
		name = top.key
	case t.hasKey:
		name, t.hasKey = t.pending, false
	default:
		return ErrShape
	}
	switch tok.Kind {
	case KindBeginArray:
		if top.array {
			return ErrShape
		}
		t.stack = append(t.stack, treeFrame{array: true, key: name})
	case KindBeginObject:
		t.emit(EventOpen, name, "", tok.Offset)
		t.stack = append(t.stack, treeFrame{key: name})
	case KindNull:
		t.emit(EventOpen, name, "", tok.Offset)
		t.emit(EventClose, name, "", tok.Offset)
	default:
		t.emit(EventOpen, name, "", tok.Offset)
		t.emit(EventText, "", scalarText(tok), tok.Offset)
		t.emit(EventClose, name, "", tok.Offset)
	}
	return nil
}

func scalarText(tok Token) string {
	switch tok.Kind {
	case KindNumber:
		return tok.Number
	case KindBool:
		if tok.Bool {
			return "true"
		}
		return "false"
	}
	return tok.String
}
