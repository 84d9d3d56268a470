package goedi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goedi "github.com/reoring/goedi"
)

func TestDelimiters_Validate(t *testing.T) {
	for name, d := range map[string]goedi.Delimiters{
		"edifact": goedi.EDIFACTDelimiters(),
		"x12":     goedi.X12Delimiters(),
		"hl7":     goedi.HL7Delimiters(),
	} {
		require.NoError(t, d.Validate(), name)
	}

	bad := goedi.Delimiters{Segment: "'", Field: "'", Escape: "?"}
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, goedi.HasCode(err, goedi.CodeInvalidDelimiters))

	err = goedi.Delimiters{Field: "+"}.Validate()
	require.Error(t, err)

	err = goedi.Delimiters{Segment: "\n", Field: "|", FoldCRLF: true}.Validate()
	require.Error(t, err)
}

func TestDelimiters_Escaped(t *testing.T) {
	d := goedi.EDIFACTDelimiters()
	assert.Equal(t, "ACME?+CORP?:?'??", d.Escaped("ACME+CORP:'?"))
	assert.Equal(t, "plain", d.Escaped("plain"))

	x := goedi.X12Delimiters()
	assert.Equal(t, "A*B", x.Escaped("A*B"), "no escape configured")
}

func TestDelimiters_Removable(t *testing.T) {
	d := goedi.HL7Delimiters()
	assert.True(t, d.Removable(goedi.LevelField, ""))
	assert.True(t, d.Removable(goedi.LevelField, "^"))
	assert.True(t, d.Removable(goedi.LevelField, "~"))
	assert.False(t, d.Removable(goedi.LevelComponent, "|"))
	assert.False(t, d.Removable(goedi.LevelComponent, "~"))
	assert.True(t, d.Removable(goedi.LevelComponent, "&"))
	assert.False(t, d.Removable(goedi.LevelField, "X"))
}

func TestDelimiterStack(t *testing.T) {
	s := goedi.NewDelimiterStack(goedi.EDIFACTDelimiters())
	require.ErrorIs(t, s.Pop(), goedi.ErrDelimiterStackUnderflow)

	s.Push(goedi.X12Delimiters())
	assert.Equal(t, 2, s.Depth())
	assert.Equal(t, "~", s.Current().Segment)

	require.NoError(t, s.Pop())
	assert.Equal(t, "'", s.Current().Segment)
	assert.Equal(t, 1, s.Depth())
	assert.Equal(t, "component", goedi.LevelComponent.String())
}
