// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dump

import (
	"bufio"
	"encoding/xml"
	"io"
)

// xmlWriter serializes decoder tokens back to text. encoding/xml's Encoder
// escapes newlines in character data as numeric references, which would fold
// a line-oriented dump onto one line; this writer keeps newlines and tabs
// literal, escapes only what XML requires, and collapses childless elements
// to <name/>, so a repaired file re-repairs to identical bytes.
type xmlWriter struct {
	w    *bufio.Writer
	werr error

	// open is set between a start tag and the token after it, so the
	// closing '>' can become '/>' when the element turns out empty.
	open bool
}

func newXMLWriter(w io.Writer) *xmlWriter {
	return &xmlWriter{w: bufio.NewWriterSize(w, 64*1024)}
}

func (x *xmlWriter) ws(s string) {
	if x.werr == nil {
		_, x.werr = x.w.WriteString(s)
	}
}

func (x *xmlWriter) wb(c byte) {
	if x.werr == nil {
		x.werr = x.w.WriteByte(c)
	}
}

// closeOpen finishes a held-back start tag with '>'.
func (x *xmlWriter) closeOpen() {
	if x.open {
		x.open = false
		x.wb('>')
	}
}

// Declaration writes the UTF-8 XML declaration.
func (x *xmlWriter) Declaration() error {
	x.ws(`<?xml version="1.0" encoding="UTF-8"?>`)
	return x.werr
}

// Raw writes s verbatim.
func (x *xmlWriter) Raw(s string) error {
	x.closeOpen()
	x.ws(s)
	return x.werr
}

// Start writes a start tag, holding back the closing '>'.
func (x *xmlWriter) Start(el xml.StartElement) error {
	x.closeOpen()
	x.wb('<')
	x.ws(tagName(el.Name))
	for _, a := range el.Attr {
		x.wb(' ')
		x.ws(tagName(a.Name))
		x.ws(`="`)
		x.escapeAttr(a.Value)
		x.wb('"')
	}
	x.open = true
	return x.werr
}

// End closes the current element, as <name/> when nothing followed the
// start tag.
func (x *xmlWriter) End(el xml.EndElement) error {
	if x.open {
		x.open = false
		x.ws("/>")
		return x.werr
	}
	x.ws("</")
	x.ws(tagName(el.Name))
	x.wb('>')
	return x.werr
}

// Text writes character data with minimal escaping.
func (x *xmlWriter) Text(data []byte) error {
	x.closeOpen()
	for _, c := range data {
		switch c {
		case '&':
			x.ws("&amp;")
		case '<':
			x.ws("&lt;")
		case '>':
			x.ws("&gt;")
		case '\r':
			x.ws("&#13;")
		default:
			x.wb(c)
		}
	}
	return x.werr
}

func (x *xmlWriter) Comment(data []byte) error {
	x.closeOpen()
	x.ws("<!--")
	x.ws(string(data))
	x.ws("-->")
	return x.werr
}

func (x *xmlWriter) ProcInst(pi xml.ProcInst) error {
	x.closeOpen()
	x.ws("<?")
	x.ws(pi.Target)
	if len(pi.Inst) > 0 {
		x.wb(' ')
		x.ws(string(pi.Inst))
	}
	x.ws("?>")
	return x.werr
}

func (x *xmlWriter) Directive(data []byte) error {
	x.closeOpen()
	x.ws("<!")
	x.ws(string(data))
	x.wb('>')
	return x.werr
}

// Flush drains the buffer and reports any write error seen so far.
func (x *xmlWriter) Flush() error {
	x.closeOpen()
	if x.werr != nil {
		return x.werr
	}
	return x.w.Flush()
}

// escapeAttr writes an attribute value. Whitespace is escaped so a reparse
// cannot normalize it away.
func (x *xmlWriter) escapeAttr(s string) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			x.ws("&amp;")
		case '<':
			x.ws("&lt;")
		case '>':
			x.ws("&gt;")
		case '"':
			x.ws("&quot;")
		case '\n':
			x.ws("&#10;")
		case '\t':
			x.ws("&#9;")
		case '\r':
			x.ws("&#13;")
		default:
			x.wb(c)
		}
	}
}

// tagName renders an element or attribute name, keeping any prefix.
func tagName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
