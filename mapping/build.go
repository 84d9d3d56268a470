package mapping

// Group returns a tagged group holding children.
func Group(tag string, children ...SegmentGroup) SegmentGroup {
	return SegmentGroup{Tag: tag, MinOccurs: 1, MaxOccurs: 1, Groups: children}
}

// Transparent returns an unnamed group holding children.
func Transparent(children ...SegmentGroup) SegmentGroup {
	return SegmentGroup{MinOccurs: 1, MaxOccurs: 1, Groups: children}
}

// Segment returns a segment writing segcode followed by fields.
func Segment(segcode, tag string, fields ...Field) SegmentGroup {
	return SegmentGroup{Tag: tag, Segcode: segcode, MinOccurs: 1, MaxOccurs: 1, Fields: fields}
}

// Occurs returns a copy of g with the given cardinality.
func (g SegmentGroup) Occurs(min, max int) SegmentGroup {
	g.MinOccurs, g.MaxOccurs = min, max
	return g
}

// Truncate returns a copy of g whose trailing empty fields are dropped.
func (g SegmentGroup) Truncate() SegmentGroup {
	g.Truncatable = true
	return g
}

// With returns a copy of g with children appended.
func (g SegmentGroup) With(children ...SegmentGroup) SegmentGroup {
	g.Groups = append(append([]SegmentGroup(nil), g.Groups...), children...)
	return g
}

// Leaf returns a simple field.
func Leaf(tag string) Field { return Field{Tag: tag} }

// Composite returns a field made of components.
func Composite(tag string, components ...Component) Field {
	return Field{Tag: tag, Components: components}
}

// Repeat returns a copy of f allowed to occur max times in a row.
func (f Field) Repeat(max int) Field {
	f.MaxOccurs = max
	return f
}

// Require returns a copy of f marked required.
func (f Field) Require() Field {
	f.Required = true
	return f
}

// Truncate returns a copy of f whose trailing empty components are dropped.
func (f Field) Truncate() Field {
	f.Truncatable = true
	return f
}

// Comp returns a component, composite when subs are given.
func Comp(tag string, subs ...SubComponent) Component {
	return Component{Tag: tag, SubComponents: subs}
}

// Truncate returns a copy of c whose trailing empty subcomponents are dropped.
func (c Component) Truncate() Component {
	c.Truncatable = true
	return c
}

// Sub returns a subcomponent.
func Sub(tag string) SubComponent { return SubComponent{Tag: tag} }
