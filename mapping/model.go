// Package mapping holds the mapping model: the schema tree that drives the
// encoder. A model is plain data. Once built it must not be mutated, and it
// may then be shared by any number of concurrent encoders.
//
// The encoder uses tags, segment codes, occurrence limits, field repeats and
// truncation. Required, MinLength, MaxLength and DataType are descriptive
// only: they are carried for consumers and checked for consistency by
// Validate, but encoded text is never checked against them. A required field
// left out is only logged at debug level.
package mapping

// Unbounded marks a MaxOccurs without upper limit.
const Unbounded = -1

// Model is the root of a mapping model.
type Model struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Root    SegmentGroup
}

// SegmentGroup is a group of segments. A group with a Segcode is itself a
// Segment: it writes that code, then its Fields, then nested groups as
// following segments. A group without Tag is transparent: producers never
// name it and its first child's tag stands in for it.
type SegmentGroup struct {
	Tag         string
	Description string
	MinOccurs   int
	// MaxOccurs of 0 means 1; Unbounded allows any number.
	MaxOccurs int

	Segcode     string
	Truncatable bool
	Fields      []Field

	Groups []SegmentGroup
}

// Field is a data element of a segment. A field without Components is a leaf.
type Field struct {
	Tag         string
	Required    bool
	Truncatable bool
	MinLength   int
	MaxLength   int
	DataType    string
	// MaxOccurs of 0 means 1; Unbounded allows any number of repeats.
	MaxOccurs  int
	Components []Component
}

// Component is part of a composite field. A component without
// SubComponents is a leaf.
type Component struct {
	Tag           string
	Required      bool
	Truncatable   bool
	MinLength     int
	MaxLength     int
	DataType      string
	SubComponents []SubComponent
}

// SubComponent is always a leaf.
type SubComponent struct {
	Tag       string
	Required  bool
	MinLength int
	MaxLength int
	DataType  string
}

// IsSegment reports whether g writes a segment.
func (g *SegmentGroup) IsSegment() bool { return g.Segcode != "" }

// IsTransparent reports whether g is an unnamed wrapper.
func (g *SegmentGroup) IsTransparent() bool { return g.Tag == "" }

// Max returns the effective maximum occurrence count (Unbounded or >= 1).
func (g *SegmentGroup) Max() int { return effectiveMax(g.MaxOccurs) }

// FirstTag returns the tag a producer uses to enter g. For a transparent
// group this is the first tag found down its first children.
func (g *SegmentGroup) FirstTag() string {
	for cur := g; cur != nil; {
		if !cur.IsTransparent() {
			return cur.Tag
		}
		if len(cur.Groups) == 0 {
			return ""
		}
		cur = &cur.Groups[0]
	}
	return ""
}

// Max returns the effective maximum occurrence count of the field.
func (f *Field) Max() int { return effectiveMax(f.MaxOccurs) }

// IsLeaf reports whether the field carries text directly.
func (f *Field) IsLeaf() bool { return len(f.Components) == 0 }

// IsLeaf reports whether the component carries text directly.
func (c *Component) IsLeaf() bool { return len(c.SubComponents) == 0 }

func effectiveMax(n int) int {
	if n == 0 {
		return 1
	}
	if n < 0 {
		return Unbounded
	}
	return n
}
