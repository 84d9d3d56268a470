// Package profile names delimiter sets and reads them from YAML files.
//
// A profile file lists the markers it sets and may start from a built-in
// profile:
//
//	name: partner-a
//	base: edifact
//	encoding: ISO-8859-1
//	segment: "~"
//	escape: ""
//
// Unknown keys are rejected.
package profile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	goedi "github.com/reoring/goedi"
)

// Profile is a named delimiter set with an optional character encoding.
type Profile struct {
	Name       string           `yaml:"name,omitempty"`
	Encoding   string           `yaml:"encoding,omitempty"`
	Delimiters goedi.Delimiters `yaml:",inline"`
}

var builtins = map[string]func() goedi.Delimiters{
	"edifact": goedi.EDIFACTDelimiters,
	"x12":     goedi.X12Delimiters,
	"hl7":     goedi.HL7Delimiters,
}

// Names lists the built-in profiles.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for n := range builtins {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Lookup returns a built-in profile by case-insensitive name.
func Lookup(name string) (Profile, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	mk, ok := builtins[n]
	if !ok {
		return Profile{}, fmt.Errorf("profile: unknown profile %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return Profile{Name: n, Delimiters: mk()}, nil
}

// file is the on-disk shape. Pointers tell unset keys, which keep the value
// of the base profile, from keys set to empty.
type file struct {
	Name         string  `yaml:"name"`
	Base         string  `yaml:"base"`
	Encoding     string  `yaml:"encoding"`
	Segment      *string `yaml:"segment"`
	Field        *string `yaml:"field"`
	Component    *string `yaml:"component"`
	SubComponent *string `yaml:"subComponent"`
	Escape       *string `yaml:"escape"`
	FieldRepeat  *string `yaml:"fieldRepeat"`
	FoldCRLF     *bool   `yaml:"foldCRLF"`
	DecimalMark  *string `yaml:"decimalMark"`
}

// LoadYAML reads one profile document from r and validates its delimiters.
func LoadYAML(r io.Reader) (Profile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f file
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return Profile{}, fmt.Errorf("profile: empty document")
		}
		return Profile{}, fmt.Errorf("profile: %w", err)
	}
	var p Profile
	if f.Base != "" {
		base, err := Lookup(f.Base)
		if err != nil {
			return Profile{}, err
		}
		p = base
	}
	if f.Name != "" {
		p.Name = f.Name
	}
	if f.Encoding != "" {
		p.Encoding = f.Encoding
	}
	d := &p.Delimiters
	set(&d.Segment, f.Segment)
	set(&d.Field, f.Field)
	set(&d.Component, f.Component)
	set(&d.SubComponent, f.SubComponent)
	set(&d.Escape, f.Escape)
	set(&d.FieldRepeat, f.FieldRepeat)
	set(&d.DecimalMark, f.DecimalMark)
	if f.FoldCRLF != nil {
		d.FoldCRLF = *f.FoldCRLF
	}
	if err := d.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// LoadFile reads a profile from a YAML file.
func LoadFile(path string) (Profile, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Profile{}, err
	}
	defer fh.Close()
	return LoadYAML(fh)
}

// Resolve returns the built-in profile called nameOrPath, or loads the file
// of that name when no built-in matches.
func Resolve(nameOrPath string) (Profile, error) {
	if p, err := Lookup(nameOrPath); err == nil {
		return p, nil
	}
	return LoadFile(nameOrPath)
}

// Encode writes p in the format read by LoadYAML.
func Encode(w io.Writer, p Profile) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
