// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dump

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/pdiddy/pubdex/internal/dtd"
)

// validator applies DTD constraints to the token stream and fills in
// declared attribute defaults.
type validator struct {
	dtd       *dtd.DTD
	docName   string
	frames    []frame
	rootDone  bool
	defaulted int64
}

// frame tracks one open element and its content-model match.
type frame struct {
	name  string
	model *dtd.ContentModel
	match *dtd.Match
}

// doctype processes a DOCTYPE directive: parse it, assemble the DTD from the
// internal and external subsets, and expose its entities to the decoder.
// Directives other than DOCTYPE pass through untouched.
func (v *validator) doctype(directive []byte, entities map[string]string, searchPath []string, res *Result) error {
	if !strings.HasPrefix(strings.TrimLeft(string(directive), " \t\r\n"), "DOCTYPE") {
		return nil
	}
	if v.dtd != nil {
		return fmt.Errorf("multiple document type declarations")
	}
	dt, err := parseDocType(directive)
	if err != nil {
		return err
	}
	d, path, err := loadDTD(dt, searchPath)
	if err != nil {
		return err
	}
	for name, val := range d.Entities {
		entities[name] = val
	}
	v.dtd = d
	v.docName = dt.Name
	res.Root = dt.Name
	res.DTDPath = path
	return nil
}

// start validates an opening tag and returns it with DTD defaults appended
// to its attributes.
func (v *validator) start(el xml.StartElement) (xml.StartElement, error) {
	name := tagName(el.Name)
	if v.rootDone {
		return el, fmt.Errorf("element <%s> after the document root was closed", name)
	}
	if len(v.frames) == 0 && name != v.docName {
		return el, fmt.Errorf("root element <%s> does not match DOCTYPE <%s>", name, v.docName)
	}

	elem, ok := v.dtd.Elements[name]
	if !ok {
		return el, fmt.Errorf("undeclared element <%s>", name)
	}
	if len(v.frames) > 0 {
		parent := &v.frames[len(v.frames)-1]
		if err := parent.match.Step(name); err != nil {
			return el, fmt.Errorf("in <%s>: %w", parent.name, err)
		}
	}

	attrs, err := v.applyAttrs(name, el.Attr)
	if err != nil {
		return el, err
	}
	el.Attr = attrs

	v.frames = append(v.frames, frame{
		name:  name,
		model: elem.Content,
		match: elem.Content.NewMatch(),
	})
	return el, nil
}

// end closes the innermost element, checking its content model completed.
func (v *validator) end(xml.EndElement) error {
	f := v.frames[len(v.frames)-1]
	v.frames = v.frames[:len(v.frames)-1]
	if err := f.match.Close(); err != nil {
		return fmt.Errorf("in <%s>: %w", f.name, err)
	}
	if len(v.frames) == 0 {
		v.rootDone = true
	}
	return nil
}

// text rejects character data where the content model forbids it.
// Whitespace-only runs are ignorable everywhere.
func (v *validator) text(data []byte) error {
	if isBlank(data) {
		return nil
	}
	if len(v.frames) == 0 {
		return fmt.Errorf("character data outside the root element")
	}
	f := &v.frames[len(v.frames)-1]
	if !f.model.AllowsText() {
		return fmt.Errorf("character data not allowed in <%s>", f.name)
	}
	return nil
}

// applyAttrs checks an element's attributes against its ATTLIST and appends
// missing defaults in declaration order.
func (v *validator) applyAttrs(elem string, attrs []xml.Attr) ([]xml.Attr, error) {
	decls := v.dtd.Attrs(elem)

	for _, a := range attrs {
		name := tagName(a.Name)
		d := findDecl(decls, name)
		if d == nil {
			return nil, fmt.Errorf("undeclared attribute %q on <%s>", name, elem)
		}
		if (d.Type == "ENUM" || d.Type == "NOTATION") && !inEnum(d.Enum, a.Value) {
			return nil, fmt.Errorf("attribute %s on <%s>: value %q not among %v",
				name, elem, a.Value, d.Enum)
		}
		if d.Mode == dtd.AttrFixed && a.Value != d.Default {
			return nil, fmt.Errorf("attribute %s on <%s>: #FIXED value must be %q",
				name, elem, d.Default)
		}
	}

	for _, d := range decls {
		if hasAttr(attrs, d.Name) {
			continue
		}
		switch d.Mode {
		case dtd.AttrRequired:
			return nil, fmt.Errorf("missing required attribute %q on <%s>", d.Name, elem)
		case dtd.AttrDefault, dtd.AttrFixed:
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: d.Name}, Value: d.Default})
			v.defaulted++
		}
	}
	return attrs, nil
}

func findDecl(decls []*dtd.Attr, name string) *dtd.Attr {
	for _, d := range decls {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func hasAttr(attrs []xml.Attr, name string) bool {
	for _, a := range attrs {
		if tagName(a.Name) == name {
			return true
		}
	}
	return false
}

func inEnum(vals []string, v string) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}
