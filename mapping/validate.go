package mapping

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks structural rules the encoder depends on: segments and
// all field levels are tagged, occurrence bounds are consistent, and
// transparent groups have a first child to stand in for them.
func (m *Model) Validate() error {
	var errs []error
	walkGroup(&m.Root, nil, &errs)
	return errors.Join(errs...)
}

func walkGroup(g *SegmentGroup, path []string, errs *[]error) {
	name := g.Tag
	if name == "" {
		name = "(transparent)"
	}
	path = append(path, name)
	at := strings.Join(path, "/")
	fail := func(format string, a ...any) {
		*errs = append(*errs, fmt.Errorf("mapping: %s: %s", at, fmt.Sprintf(format, a...)))
	}

	if g.IsSegment() && g.IsTransparent() {
		fail("segment %q has no tag", g.Segcode)
	}
	if g.IsTransparent() && len(g.Groups) == 0 {
		fail("transparent group has no children")
	}
	if g.MinOccurs < 0 {
		fail("minOccurs %d is negative", g.MinOccurs)
	}
	if limit := g.Max(); limit != Unbounded && limit < g.MinOccurs {
		fail("maxOccurs %d is below minOccurs %d", limit, g.MinOccurs)
	}
	if !g.IsSegment() && len(g.Fields) > 0 {
		fail("fields declared on a group without segcode")
	}
	for i := range g.Fields {
		f := &g.Fields[i]
		if f.Tag == "" {
			fail("field %d has no tag", i)
		}
		if f.MaxLength > 0 && f.MinLength > f.MaxLength {
			fail("field %s: minLength %d exceeds maxLength %d", f.Tag, f.MinLength, f.MaxLength)
		}
		for j := range f.Components {
			c := &f.Components[j]
			if c.Tag == "" {
				fail("field %s: component %d has no tag", f.Tag, j)
			}
			for k := range c.SubComponents {
				if c.SubComponents[k].Tag == "" {
					fail("field %s: component %s: subcomponent %d has no tag", f.Tag, c.Tag, k)
				}
			}
		}
	}
	for i := range g.Groups {
		walkGroup(&g.Groups[i], path, errs)
	}
}
