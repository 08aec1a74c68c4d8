// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dtd parses document type definitions and provides the validation
// model used when repairing bibliographic XML dumps: entity replacement text,
// element content models, and attribute lists with defaults.
//
// The subset implemented covers external DTDs of the kind bibliography dumps
// ship with: general and parameter entities (with character and entity
// references in their values), ELEMENT declarations with EMPTY, ANY, mixed,
// and children content, ATTLIST declarations with enumerated types and
// #REQUIRED / #IMPLIED / #FIXED / literal defaults, NOTATION declarations
// (ignored), comments, and INCLUDE/IGNORE conditional sections. External
// entity declarations (SYSTEM/PUBLIC) are skipped; a reference to one is an
// undeclared-entity error at use time.
package dtd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AttrMode says how an attribute declaration constrains its presence.
type AttrMode int

const (
	// AttrImplied attributes are optional with no default.
	AttrImplied AttrMode = iota
	// AttrRequired attributes must appear on every element instance.
	AttrRequired
	// AttrFixed attributes must, when present, carry the declared value;
	// when absent the declared value is supplied.
	AttrFixed
	// AttrDefault attributes receive the declared literal when absent.
	AttrDefault
)

// Attr is one attribute definition from an ATTLIST declaration.
type Attr struct {
	// Name is the attribute name.
	Name string

	// Type is the declared type keyword (CDATA, ID, NMTOKEN, ...) or
	// "ENUM" for enumerated types.
	Type string

	// Enum lists the permitted values for enumerated and NOTATION types.
	Enum []string

	// Mode constrains presence and defaulting.
	Mode AttrMode

	// Default is the declared literal for AttrFixed and AttrDefault modes,
	// with entity and character references expanded.
	Default string
}

// Element is one element type declaration.
type Element struct {
	// Name is the element type name.
	Name string

	// Content is the declared content model.
	Content *ContentModel
}

// DTD holds the declarations accumulated from one or more subsets. Parse
// order matters: the first binding of an entity or attribute wins, so the
// internal subset must be parsed before the external one.
type DTD struct {
	// Elements maps element type names to their declarations.
	Elements map[string]*Element

	// Entities maps general entity names to fully expanded replacement
	// text. Populated by Resolve.
	Entities map[string]string

	attlists    map[string][]*Attr
	rawEntities map[string]string
	paramEnts   map[string]string
	resolved    bool
}

// New returns an empty DTD ready for ParseBytes.
func New() *DTD {
	return &DTD{
		Elements:    make(map[string]*Element),
		Entities:    make(map[string]string),
		attlists:    make(map[string][]*Attr),
		rawEntities: make(map[string]string),
		paramEnts:   make(map[string]string),
	}
}

// Parse parses a complete DTD from data and resolves entity references.
func Parse(data []byte) (*DTD, error) {
	d := New()
	if err := d.ParseBytes(data); err != nil {
		return nil, err
	}
	if err := d.Resolve(); err != nil {
		return nil, err
	}
	return d, nil
}

// ParseFile parses the DTD in the named file.
func ParseFile(path string) (*DTD, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading DTD %s: %w", path, err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing DTD %s: %w", path, err)
	}
	return d, nil
}

// ParseBytes parses one subset's declarations into the DTD. It may be called
// more than once; earlier bindings win over later ones.
func (d *DTD) ParseBytes(data []byte) error {
	p := &parser{dtd: d, src: string(data), line: 1}
	return p.run()
}

// Declared reports whether the element type has a declaration.
func (d *DTD) Declared(name string) bool {
	_, ok := d.Elements[name]
	return ok
}

// Attrs returns the attribute definitions for an element type in declaration
// order, or nil when no ATTLIST mentions it.
func (d *DTD) Attrs(elem string) []*Attr {
	return d.attlists[elem]
}

// Resolve expands character and entity references inside general entity
// values and attribute defaults. It must be called once after the last
// ParseBytes and before the entity map or attribute defaults are used.
func (d *DTD) Resolve() error {
	for name := range d.rawEntities {
		val, err := d.expandEntity(name, nil)
		if err != nil {
			return err
		}
		d.Entities[name] = val
	}
	for elem, attrs := range d.attlists {
		for _, a := range attrs {
			if a.Mode != AttrFixed && a.Mode != AttrDefault {
				continue
			}
			val, err := d.expandText(a.Default, nil)
			if err != nil {
				return fmt.Errorf("default for %s/%s: %w", elem, a.Name, err)
			}
			a.Default = val
		}
	}
	d.resolved = true
	return nil
}

// predefined holds the five entities every XML processor knows.
var predefined = map[string]string{
	"lt":   "<",
	"gt":   ">",
	"amp":  "&",
	"apos": "'",
	"quot": `"`,
}

const maxEntityDepth = 16

// expandEntity returns the fully expanded value of a general entity,
// following nested references and detecting loops.
func (d *DTD) expandEntity(name string, active []string) (string, error) {
	if v, ok := predefined[name]; ok {
		return v, nil
	}
	if v, ok := d.Entities[name]; ok && d.resolved {
		return v, nil
	}
	raw, ok := d.rawEntities[name]
	if !ok {
		return "", fmt.Errorf("reference to undeclared entity %q", name)
	}
	for _, a := range active {
		if a == name {
			return "", fmt.Errorf("entity %q references itself", name)
		}
	}
	if len(active) >= maxEntityDepth {
		return "", fmt.Errorf("entity %q nested too deeply", name)
	}
	return d.expandText(raw, append(active, name))
}

// expandText replaces &#N;, &#xN; and &name; references in s.
func (d *DTD) expandText(s string, active []string) (string, error) {
	if !strings.ContainsRune(s, '&') {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		if c != '&' {
			b.WriteByte(c)
			i++
			continue
		}
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			return "", fmt.Errorf("unterminated reference in %q", s)
		}
		ref := s[i+1 : i+end]
		i += end + 1
		switch {
		case strings.HasPrefix(ref, "#x"), strings.HasPrefix(ref, "#X"):
			n, err := strconv.ParseUint(ref[2:], 16, 32)
			if err != nil {
				return "", fmt.Errorf("bad character reference &%s;", ref)
			}
			b.WriteRune(rune(n))
		case strings.HasPrefix(ref, "#"):
			n, err := strconv.ParseUint(ref[1:], 10, 32)
			if err != nil {
				return "", fmt.Errorf("bad character reference &%s;", ref)
			}
			b.WriteRune(rune(n))
		default:
			val, err := d.expandEntity(ref, active)
			if err != nil {
				return "", err
			}
			b.WriteString(val)
		}
	}
	return b.String(), nil
}

// addElement records an element declaration. A duplicate declaration for the
// same element type is an error.
func (d *DTD) addElement(name string, cm *ContentModel) error {
	if _, ok := d.Elements[name]; ok {
		return fmt.Errorf("element %q declared twice", name)
	}
	d.Elements[name] = &Element{Name: name, Content: cm}
	return nil
}

// addAttr records one ATTLIST definition. The first definition of an
// attribute for an element wins; later ones are ignored.
func (d *DTD) addAttr(elem string, a *Attr) {
	for _, have := range d.attlists[elem] {
		if have.Name == a.Name {
			return
		}
	}
	d.attlists[elem] = append(d.attlists[elem], a)
}

// addEntity records a general entity; first binding wins.
func (d *DTD) addEntity(name, raw string) {
	if _, ok := d.rawEntities[name]; ok {
		return
	}
	d.rawEntities[name] = raw
}

// addParamEntity records a parameter entity; first binding wins.
func (d *DTD) addParamEntity(name, raw string) {
	if _, ok := d.paramEnts[name]; ok {
		return
	}
	d.paramEnts[name] = raw
}
