package goedi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_ChunkKinds(t *testing.T) {
	got := classify("AB?+C+", "+", "?")
	want := []chunk{
		{kind: chunkPlain, text: "AB"},
		{kind: chunkEscape, text: "?"},
		{kind: chunkDelimiter, text: "+"},
		{kind: chunkPlain, text: "C"},
		{kind: chunkDelimiter, text: "+"},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, "ESCAPE", chunkEscape.String())
}
