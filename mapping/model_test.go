package mapping_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goedi/mapping"
)

func orders() *mapping.Model {
	return &mapping.Model{
		Name: "ORDERS",
		Root: mapping.Group("Order",
			mapping.Segment("UNH", "header", mapping.Leaf("ref"), mapping.Composite("type", mapping.Comp("id"), mapping.Comp("version"))),
			mapping.Transparent(
				mapping.Segment("NAD", "party",
					mapping.Leaf("qualifier"),
					mapping.Composite("id", mapping.Comp("code"), mapping.Comp("list", mapping.Sub("agency"), mapping.Sub("scheme"))),
				).Truncate().Occurs(0, mapping.Unbounded),
			),
		),
	}
}

func TestModel_Helpers(t *testing.T) {
	m := orders()
	root := &m.Root
	assert.False(t, root.IsSegment())
	assert.False(t, root.IsTransparent())
	assert.Equal(t, 1, root.Max())

	nad := &root.Groups[1]
	assert.True(t, nad.IsTransparent())
	assert.Equal(t, "party", nad.FirstTag())
	assert.Equal(t, mapping.Unbounded, nad.Groups[0].Max())
	assert.True(t, nad.Groups[0].IsSegment())
	assert.True(t, nad.Groups[0].Truncatable)

	f := nad.Groups[0].Fields[1]
	assert.False(t, f.IsLeaf())
	assert.True(t, f.Components[0].IsLeaf())
	assert.False(t, f.Components[1].IsLeaf())
	rep3 := mapping.Leaf("LIN").Repeat(3)
	assert.Equal(t, 3, rep3.Max())
	repUnbounded := mapping.Leaf("LIN").Repeat(-5)
	assert.Equal(t, mapping.Unbounded, repUnbounded.Max())
	leaf := mapping.Leaf("x")
	assert.Equal(t, 1, leaf.Max())
}

func TestModel_FirstTagNested(t *testing.T) {
	g := mapping.Transparent(mapping.Transparent(mapping.Group("inner")))
	assert.Equal(t, "inner", g.FirstTag())
	empty := mapping.Transparent()
	assert.Equal(t, "", empty.FirstTag())
}

func TestModel_WithDoesNotAlias(t *testing.T) {
	base := mapping.Group("g", mapping.Group("a"))
	x := base.With(mapping.Group("b"))
	y := base.With(mapping.Group("c"))
	require.Len(t, x.Groups, 2)
	require.Len(t, y.Groups, 2)
	assert.Equal(t, "b", x.Groups[1].Tag)
	assert.Equal(t, "c", y.Groups[1].Tag)
	assert.Len(t, base.Groups, 1)
}

func TestModel_Validate(t *testing.T) {
	require.NoError(t, orders().Validate())

	bad := &mapping.Model{Root: mapping.Group("root",
		mapping.Segment("BGM", ""),
		mapping.Transparent(),
		mapping.Group("range").Occurs(3, 2),
		mapping.Segment("DTM", "date", mapping.Leaf(""), mapping.Composite("c", mapping.Comp("", mapping.Sub("")))),
	)}
	err := bad.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `segment "BGM" has no tag`)
	assert.Contains(t, msg, "transparent group has no children")
	assert.Contains(t, msg, "maxOccurs 2 is below minOccurs 3")
	assert.Contains(t, msg, "root/date: field 0 has no tag")
	assert.Contains(t, msg, "component 0 has no tag")
	assert.Contains(t, msg, "subcomponent 0 has no tag")

	unbounded := &mapping.Model{Root: mapping.Group("r", mapping.Group("x").Occurs(5, mapping.Unbounded))}
	assert.NoError(t, unbounded.Validate())
}

func TestModel_SharedReadOnly(t *testing.T) {
	m := orders()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Validate())
			assert.Equal(t, "party", m.Root.Groups[1].FirstTag())
		}()
	}
	wg.Wait()
}
