// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dtd

import (
	"fmt"
	"sort"
	"strings"
)

// ContentKind classifies an element's declared content.
type ContentKind int

const (
	// Empty elements permit no content at all.
	Empty ContentKind = iota
	// Any elements permit character data and any declared element.
	Any
	// Mixed elements permit character data interleaved with the listed
	// child elements in any order.
	Mixed
	// Children elements permit only child elements, in an order described
	// by the model expression; whitespace between them is ignored.
	Children
)

// ContentModel is one element's compiled content declaration. For Children
// models the expression is compiled into position automaton tables used by
// Match.
type ContentModel struct {
	// Kind classifies the model.
	Kind ContentKind

	// Names lists the permitted child elements of a Mixed model.
	Names []string

	expr     *cmNode
	posNames []string
	first    []int
	last     []int
	follow   [][]int
	nullable bool
}

// AllowsText reports whether character data may appear in the element.
func (c *ContentModel) AllowsText() bool {
	return c.Kind == Mixed || c.Kind == Any
}

// Match checks a sequence of child elements against a content model. Step is
// called for each child in document order and Close when the element ends.
type Match struct {
	cm      *ContentModel
	states  []int
	started bool
}

// NewMatch starts matching one element instance against the model.
func (c *ContentModel) NewMatch() *Match {
	return &Match{cm: c}
}

// Step consumes the next child element name.
func (m *Match) Step(child string) error {
	switch m.cm.Kind {
	case Empty:
		return fmt.Errorf("declared EMPTY but contains <%s>", child)
	case Any:
		return nil
	case Mixed:
		for _, n := range m.cm.Names {
			if n == child {
				return nil
			}
		}
		return fmt.Errorf("child <%s> not permitted", child)
	}

	var allowed []int
	if !m.started {
		allowed = m.cm.first
	} else {
		for _, p := range m.states {
			allowed = union(allowed, m.cm.follow[p])
		}
	}

	var next []int
	for _, p := range allowed {
		if m.cm.posNames[p] == child {
			next = append(next, p)
		}
	}
	if len(next) == 0 {
		return fmt.Errorf("child <%s> not permitted here (expected %s)",
			child, m.cm.expected(allowed))
	}
	m.states = next
	m.started = true
	return nil
}

// Close verifies the element ended in an accepting state.
func (m *Match) Close() error {
	if m.cm.Kind != Children {
		return nil
	}
	if !m.started {
		if m.cm.nullable {
			return nil
		}
		return fmt.Errorf("content incomplete (expected %s)", m.cm.expected(m.cm.first))
	}
	for _, p := range m.states {
		for _, l := range m.cm.last {
			if p == l {
				return nil
			}
		}
	}
	var allowed []int
	for _, p := range m.states {
		allowed = union(allowed, m.cm.follow[p])
	}
	return fmt.Errorf("content incomplete (expected %s)", m.cm.expected(allowed))
}

// expected renders the element names reachable from the given positions.
func (c *ContentModel) expected(positions []int) string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range positions {
		n := c.posNames[p]
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return "end of element"
	}
	sort.Strings(names)
	return strings.Join(names, " | ")
}

const (
	opName   byte = 'n'
	opSeq    byte = ','
	opChoice byte = '|'
)

// cmNode is one node of a children-model expression tree.
type cmNode struct {
	op   byte
	name string
	pos  int
	mod  byte // 0, '?', '*' or '+'
	kids []*cmNode
}

// parseContentModel parses the content specification text of an ELEMENT
// declaration.
func parseContentModel(spec string) (*ContentModel, error) {
	spec = strings.TrimSpace(spec)
	switch spec {
	case "":
		return nil, fmt.Errorf("missing content model")
	case "EMPTY":
		return &ContentModel{Kind: Empty}, nil
	case "ANY":
		return &ContentModel{Kind: Any}, nil
	}
	if spec[0] != '(' {
		return nil, fmt.Errorf("content model must be parenthesized: %q", spec)
	}
	if strings.Contains(spec, "#PCDATA") {
		return parseMixed(spec)
	}

	p := &cmParser{s: spec}
	root, err := p.parseCP()
	if err != nil {
		return nil, err
	}
	p.skip()
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("trailing content in model: %q", p.s[p.pos:])
	}
	cm := &ContentModel{Kind: Children, expr: root}
	cm.compile()
	return cm, nil
}

// parseMixed handles (#PCDATA), (#PCDATA)* and (#PCDATA|a|b)* forms.
func parseMixed(spec string) (*ContentModel, error) {
	star := strings.HasSuffix(spec, "*")
	inner := strings.TrimSpace(strings.TrimSuffix(spec, "*"))
	if !strings.HasPrefix(inner, "(") || !strings.HasSuffix(inner, ")") {
		return nil, fmt.Errorf("malformed mixed content model: %q", spec)
	}
	parts := strings.Split(inner[1:len(inner)-1], "|")
	if strings.TrimSpace(parts[0]) != "#PCDATA" {
		return nil, fmt.Errorf("mixed content must start with #PCDATA: %q", spec)
	}
	var names []string
	for _, part := range parts[1:] {
		name := strings.TrimSpace(part)
		if name == "" || !validName(name) {
			return nil, fmt.Errorf("bad name %q in mixed content model", part)
		}
		names = append(names, name)
	}
	if len(names) > 0 && !star {
		return nil, fmt.Errorf("mixed content with elements requires a trailing *: %q", spec)
	}
	return &ContentModel{Kind: Mixed, Names: names}, nil
}

// cmParser is a recursive-descent parser for children content expressions.
type cmParser struct {
	s   string
	pos int
}

func (p *cmParser) skip() {
	for p.pos < len(p.s) && isSpaceByte(p.s[p.pos]) {
		p.pos++
	}
}

// parseCP parses one content particle: a name or a group, with an optional
// occurrence modifier.
func (p *cmParser) parseCP() (*cmNode, error) {
	p.skip()
	if p.pos >= len(p.s) {
		return nil, fmt.Errorf("unexpected end of content model")
	}

	var n *cmNode
	var err error
	if p.s[p.pos] == '(' {
		n, err = p.parseGroup()
	} else {
		n, err = p.parseName()
	}
	if err != nil {
		return nil, err
	}

	if p.pos < len(p.s) {
		switch p.s[p.pos] {
		case '?', '*', '+':
			n.mod = p.s[p.pos]
			p.pos++
		}
	}
	return n, nil
}

// parseGroup parses a parenthesized sequence or choice. A single-particle
// group is wrapped so group modifiers stay distinct from the particle's own.
func (p *cmParser) parseGroup() (*cmNode, error) {
	p.pos++ // consume '('
	first, err := p.parseCP()
	if err != nil {
		return nil, err
	}

	group := &cmNode{op: opSeq, kids: []*cmNode{first}}
	for {
		p.skip()
		if p.pos >= len(p.s) {
			return nil, fmt.Errorf("unbalanced parentheses in content model")
		}
		c := p.s[p.pos]
		if c == ')' {
			p.pos++
			return group, nil
		}
		if c != ',' && c != '|' {
			return nil, fmt.Errorf("unexpected %q in content model", string(c))
		}
		if len(group.kids) == 1 {
			group.op = c
		} else if group.op != c {
			return nil, fmt.Errorf("cannot mix ',' and '|' in one group")
		}
		p.pos++
		kid, err := p.parseCP()
		if err != nil {
			return nil, err
		}
		group.kids = append(group.kids, kid)
	}
}

func (p *cmParser) parseName() (*cmNode, error) {
	if !isNameStartByte(p.s[p.pos]) {
		return nil, fmt.Errorf("unexpected %q in content model", string(p.s[p.pos]))
	}
	start := p.pos
	for p.pos < len(p.s) && isNameByte(p.s[p.pos]) {
		p.pos++
	}
	return &cmNode{op: opName, name: p.s[start:p.pos]}, nil
}

func validName(s string) bool {
	if s == "" || !isNameStartByte(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isNameByte(s[i]) {
			return false
		}
	}
	return true
}

// compile builds the position automaton (nullable, first, last, follow) for
// a children expression.
func (c *ContentModel) compile() {
	var assign func(n *cmNode)
	assign = func(n *cmNode) {
		if n.op == opName {
			n.pos = len(c.posNames)
			c.posNames = append(c.posNames, n.name)
		}
		for _, k := range n.kids {
			assign(k)
		}
	}
	assign(c.expr)
	c.follow = make([][]int, len(c.posNames))

	var walk func(n *cmNode) (nullable bool, first, last []int)
	walk = func(n *cmNode) (nullable bool, first, last []int) {
		switch n.op {
		case opName:
			nullable = false
			first = []int{n.pos}
			last = []int{n.pos}
		case opSeq:
			nullable = true
			var carry []int
			for _, k := range n.kids {
				kNull, kFirst, kLast := walk(k)
				for _, p := range carry {
					c.follow[p] = union(c.follow[p], kFirst)
				}
				if nullable {
					first = union(first, kFirst)
				}
				if kNull {
					carry = union(carry, kLast)
				} else {
					carry = kLast
				}
				nullable = nullable && kNull
			}
			last = carry
		case opChoice:
			for _, k := range n.kids {
				kNull, kFirst, kLast := walk(k)
				nullable = nullable || kNull
				first = union(first, kFirst)
				last = union(last, kLast)
			}
		}
		switch n.mod {
		case '?':
			nullable = true
		case '*':
			nullable = true
			for _, p := range last {
				c.follow[p] = union(c.follow[p], first)
			}
		case '+':
			for _, p := range last {
				c.follow[p] = union(c.follow[p], first)
			}
		}
		return nullable, first, last
	}
	c.nullable, c.first, c.last = walk(c.expr)
}

// union appends the members of b not already in a.
func union(a, b []int) []int {
	for _, x := range b {
		found := false
		for _, y := range a {
			if x == y {
				found = true
				break
			}
		}
		if !found {
			a = append(a, x)
		}
	}
	return a
}
