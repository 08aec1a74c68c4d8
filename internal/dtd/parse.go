// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dtd

import (
	"fmt"
	"strings"
)

// parser walks one subset's text and feeds declarations into the DTD.
type parser struct {
	dtd  *DTD
	src  string
	pos  int
	line int
}

func (p *parser) run() error {
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil
		}
		switch {
		case p.has("<!--"):
			if err := p.comment(); err != nil {
				return err
			}
		case p.has("<!["):
			if err := p.conditional(); err != nil {
				return err
			}
		case p.has("<!"):
			if err := p.declaration(); err != nil {
				return err
			}
		case p.has("<?"):
			if err := p.procInst(); err != nil {
				return err
			}
		case p.src[p.pos] == '%':
			if err := p.paramRef(); err != nil {
				return err
			}
		default:
			return p.errf("unexpected content %q", snippet(p.src[p.pos:]))
		}
	}
}

func (p *parser) has(prefix string) bool {
	return strings.HasPrefix(p.src[p.pos:], prefix)
}

func (p *parser) errf(format string, args ...any) error {
	return fmt.Errorf("dtd line %d: %s", p.line, fmt.Sprintf(format, args...))
}

// advanceTo moves the cursor, counting newlines along the way.
func (p *parser) advanceTo(pos int) {
	p.line += strings.Count(p.src[p.pos:pos], "\n")
	p.pos = pos
}

func (p *parser) skipSpace() {
	i := p.pos
	for i < len(p.src) && isSpaceByte(p.src[i]) {
		i++
	}
	p.advanceTo(i)
}

func (p *parser) comment() error {
	end := strings.Index(p.src[p.pos+4:], "-->")
	if end < 0 {
		return p.errf("unterminated comment")
	}
	p.advanceTo(p.pos + 4 + end + 3)
	return nil
}

func (p *parser) procInst() error {
	end := strings.Index(p.src[p.pos+2:], "?>")
	if end < 0 {
		return p.errf("unterminated processing instruction")
	}
	p.advanceTo(p.pos + 2 + end + 2)
	return nil
}

// declaration reads one <!KEYWORD ...> declaration, expands parameter
// entities in its text, and dispatches on the keyword.
func (p *parser) declaration() error {
	start := p.pos + 2
	i := start
	var quote byte
	for i < len(p.src) {
		c := p.src[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			raw := p.src[start:i]
			p.advanceTo(i + 1)
			expanded, err := p.expandParams(raw, 0)
			if err != nil {
				return err
			}
			return p.parseDecl(expanded)
		}
		i++
	}
	return p.errf("unterminated declaration")
}

// conditional handles <![INCLUDE[...]]> and <![IGNORE[...]]> sections.
func (p *parser) conditional() error {
	rel := strings.IndexByte(p.src[p.pos+3:], '[')
	if rel < 0 {
		return p.errf("malformed conditional section")
	}
	kwRaw := p.src[p.pos+3 : p.pos+3+rel]
	kw, err := p.expandParams(kwRaw, 0)
	if err != nil {
		return err
	}
	kw = strings.TrimSpace(kw)

	bodyStart := p.pos + 3 + rel + 1
	bodyLine := p.line + strings.Count(p.src[p.pos:bodyStart], "\n")
	end, ok := condEnd(p.src, bodyStart)
	if !ok {
		return p.errf("unterminated conditional section")
	}
	body := p.src[bodyStart:end]
	p.advanceTo(end + 3)

	switch kw {
	case "INCLUDE":
		sub := &parser{dtd: p.dtd, src: body, line: bodyLine}
		return sub.run()
	case "IGNORE":
		return nil
	default:
		return p.errf("bad conditional section keyword %q", kw)
	}
}

// condEnd finds the "]]>" closing the section whose body starts at from,
// skipping over nested sections.
func condEnd(s string, from int) (int, bool) {
	depth := 1
	for i := from; i+2 < len(s); i++ {
		switch {
		case s[i] == '<' && s[i+1] == '!' && s[i+2] == '[':
			depth++
			i += 2
		case s[i] == ']' && s[i+1] == ']' && s[i+2] == '>':
			depth--
			if depth == 0 {
				return i, true
			}
			i += 2
		}
	}
	return 0, false
}

// paramRef expands a parameter entity reference appearing between
// declarations by parsing its replacement text in place.
func (p *parser) paramRef() error {
	j := p.pos + 1
	for j < len(p.src) && isNameByte(p.src[j]) {
		j++
	}
	if j == p.pos+1 || j >= len(p.src) || p.src[j] != ';' {
		return p.errf("malformed parameter entity reference")
	}
	name := p.src[p.pos+1 : j]
	val, ok := p.dtd.paramEnts[name]
	if !ok {
		return p.errf("reference to undeclared parameter entity %q", name)
	}
	line := p.line
	p.advanceTo(j + 1)
	sub := &parser{dtd: p.dtd, src: val, line: line}
	return sub.run()
}

const maxParamDepth = 16

// expandParams replaces %name; references in declaration text. Replacement
// text is padded with spaces outside literals, matching how validating
// parsers splice parameter entities into declarations.
func (p *parser) expandParams(s string, depth int) (string, error) {
	if depth > maxParamDepth {
		return "", p.errf("parameter entities nested too deeply")
	}
	if !strings.ContainsRune(s, '%') {
		return s, nil
	}
	var b strings.Builder
	var quote byte
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
		}
		if c != '%' || i+1 >= len(s) || !isNameStartByte(s[i+1]) {
			b.WriteByte(c)
			i++
			continue
		}
		j := i + 1
		for j < len(s) && isNameByte(s[j]) {
			j++
		}
		if j >= len(s) || s[j] != ';' {
			b.WriteByte(c)
			i++
			continue
		}
		name := s[i+1 : j]
		val, ok := p.dtd.paramEnts[name]
		if !ok {
			return "", p.errf("reference to undeclared parameter entity %q", name)
		}
		expanded, err := p.expandParams(val, depth+1)
		if err != nil {
			return "", err
		}
		if quote == 0 {
			b.WriteByte(' ')
			b.WriteString(expanded)
			b.WriteByte(' ')
		} else {
			b.WriteString(expanded)
		}
		i = j + 1
	}
	return b.String(), nil
}

// parseDecl dispatches one declaration with parameters already expanded.
func (p *parser) parseDecl(raw string) error {
	t := &toks{s: raw}
	kw, _, err := t.next()
	if err != nil {
		return p.errf("%v", err)
	}
	switch kw {
	case "ELEMENT":
		name, _, err := t.next()
		if err != nil || name == "" {
			return p.errf("element declaration missing name")
		}
		cm, err := parseContentModel(t.rest())
		if err != nil {
			return p.errf("element %s: %v", name, err)
		}
		if err := p.dtd.addElement(name, cm); err != nil {
			return p.errf("%v", err)
		}
	case "ATTLIST":
		return p.parseAttlist(t)
	case "ENTITY":
		return p.parseEntity(t)
	case "NOTATION":
		// Notations carry no validation weight here.
	default:
		return p.errf("unsupported declaration <!%s ...>", kw)
	}
	return nil
}

func (p *parser) parseEntity(t *toks) error {
	tok, _, err := t.next()
	if err != nil {
		return p.errf("%v", err)
	}
	param := false
	if tok == "%" {
		param = true
		tok, _, err = t.next()
		if err != nil {
			return p.errf("%v", err)
		}
	}
	name := tok
	if name == "" {
		return p.errf("entity declaration missing name")
	}

	val, lit, err := t.next()
	if err != nil {
		return p.errf("entity %s: %v", name, err)
	}
	if !lit {
		switch val {
		case "SYSTEM", "PUBLIC":
			// External entities are not fetched; a use of this entity will
			// surface as an undeclared-entity error.
			return nil
		default:
			return p.errf("malformed entity declaration %q", name)
		}
	}

	if param {
		p.dtd.addParamEntity(name, val)
	} else {
		p.dtd.addEntity(name, val)
	}
	return nil
}

func (p *parser) parseAttlist(t *toks) error {
	elem, _, err := t.next()
	if err != nil || elem == "" {
		return p.errf("attlist declaration missing element name")
	}
	for {
		attName, _, err := t.next()
		if err != nil {
			return p.errf("attlist %s: %v", elem, err)
		}
		if attName == "" {
			return nil
		}

		typTok, _, err := t.next()
		if err != nil || typTok == "" {
			return p.errf("attlist %s/%s: missing type", elem, attName)
		}
		a := &Attr{Name: attName}
		switch {
		case typTok[0] == '(':
			a.Type = "ENUM"
			a.Enum = splitEnum(typTok)
		case typTok == "NOTATION":
			grp, _, err := t.next()
			if err != nil || grp == "" || grp[0] != '(' {
				return p.errf("attlist %s/%s: malformed NOTATION type", elem, attName)
			}
			a.Type = "NOTATION"
			a.Enum = splitEnum(grp)
		default:
			a.Type = typTok
		}

		def, lit, err := t.next()
		if err != nil {
			return p.errf("attlist %s/%s: %v", elem, attName, err)
		}
		switch {
		case lit:
			a.Mode = AttrDefault
			a.Default = def
		case def == "#REQUIRED":
			a.Mode = AttrRequired
		case def == "#IMPLIED":
			a.Mode = AttrImplied
		case def == "#FIXED":
			v, lit2, err := t.next()
			if err != nil || !lit2 {
				return p.errf("attlist %s/%s: #FIXED requires a literal", elem, attName)
			}
			a.Mode = AttrFixed
			a.Default = v
		default:
			return p.errf("attlist %s/%s: bad default %q", elem, attName, def)
		}

		p.dtd.addAttr(elem, a)
	}
}

// toks tokenizes declaration text: whitespace-separated words, quoted
// literals, and balanced parenthesized groups.
type toks struct {
	s   string
	pos int
}

// next returns the next token and whether it was a quoted literal. The empty
// string with no error means end of input.
func (t *toks) next() (string, bool, error) {
	for t.pos < len(t.s) && isSpaceByte(t.s[t.pos]) {
		t.pos++
	}
	if t.pos >= len(t.s) {
		return "", false, nil
	}
	c := t.s[t.pos]
	if c == '"' || c == '\'' {
		end := strings.IndexByte(t.s[t.pos+1:], c)
		if end < 0 {
			return "", false, fmt.Errorf("unterminated literal")
		}
		tok := t.s[t.pos+1 : t.pos+1+end]
		t.pos += end + 2
		return tok, true, nil
	}
	if c == '(' {
		depth := 0
		start := t.pos
		for i := t.pos; i < len(t.s); i++ {
			switch t.s[i] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					t.pos = i + 1
					return t.s[start:t.pos], false, nil
				}
			}
		}
		return "", false, fmt.Errorf("unbalanced parentheses")
	}
	start := t.pos
	for t.pos < len(t.s) {
		c := t.s[t.pos]
		if isSpaceByte(c) || c == '(' || c == '"' || c == '\'' {
			break
		}
		t.pos++
	}
	return t.s[start:t.pos], false, nil
}

// rest returns the unconsumed remainder, trimmed.
func (t *toks) rest() string {
	return strings.TrimSpace(t.s[t.pos:])
}

// splitEnum turns "(a|b|c)" into its trimmed values.
func splitEnum(group string) []string {
	group = strings.TrimSpace(group)
	group = strings.TrimPrefix(group, "(")
	group = strings.TrimSuffix(group, ")")
	parts := strings.Split(group, "|")
	vals := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			vals = append(vals, v)
		}
	}
	return vals
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isNameStartByte(c byte) bool {
	return c == '_' || c == ':' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isNameByte(c byte) bool {
	return isNameStartByte(c) || c == '.' || c == '-' || (c >= '0' && c <= '9')
}

func snippet(s string) string {
	if len(s) > 20 {
		return s[:20] + "..."
	}
	return s
}
