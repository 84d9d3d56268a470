package yaml_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goedi "github.com/reoring/goedi"
	"github.com/reoring/goedi/mapping"
	"github.com/reoring/goedi/source/yaml"
)

func model() *mapping.Model {
	return &mapping.Model{Root: mapping.Group("Order",
		mapping.Segment("NAD", "party", mapping.Leaf("qualifier"), mapping.Leaf("id"), mapping.Leaf("name")).Truncate().Occurs(0, mapping.Unbounded),
		mapping.Segment("LIN", "line", mapping.Leaf("item").Repeat(mapping.Unbounded), mapping.Leaf("flag")).Truncate(),
	)}
}

func TestNewReader_EncodesDocument(t *testing.T) {
	doc := `
Order:
  party:
    - qualifier: BY
      name: &acme "ACME:CORP"
    - qualifier: SU
      id: ~
      name: *acme
  line:
    item: [1, 2.5]
    flag: true
`
	var out strings.Builder
	err := goedi.EncodeFrom(context.Background(), &out, model(), goedi.EDIFACTDelimiters(), yaml.NewReader(strings.NewReader(doc)))
	require.NoError(t, err)
	assert.Equal(t, "NAD+BY++ACME?:CORP'NAD+SU++ACME?:CORP'LIN+1*2.5+true", out.String())
}

func TestNewReader_Errors(t *testing.T) {
	err := goedi.EncodeFrom(context.Background(), &strings.Builder{}, model(), goedi.EDIFACTDelimiters(),
		yaml.NewReader(strings.NewReader("Order: [unclosed")))
	require.True(t, goedi.HasCode(err, goedi.CodeParseError), "got %v", err)

	err = goedi.EncodeFrom(context.Background(), &strings.Builder{}, model(), goedi.EDIFACTDelimiters(),
		yaml.NewReader(strings.NewReader("Order:\n  ? [a]\n  : b\n")))
	require.True(t, goedi.HasCode(err, goedi.CodeParseError), "got %v", err)

	err = goedi.EncodeFrom(context.Background(), &strings.Builder{}, model(), goedi.EDIFACTDelimiters(),
		yaml.NewReader(strings.NewReader("Order:\n  party:\n    qualifier: BY\n  price: 3\n")))
	require.True(t, goedi.HasCode(err, goedi.CodeSchemaMismatch), "got %v", err)
}
