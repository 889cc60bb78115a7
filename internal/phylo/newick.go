package phylo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrSyntax = errors.New("newick syntax error")

// Parse reads a single newick tree. Branch lengths default to 0 when
// omitted; names may be empty. Whitespace between tokens is ignored.
func Parse(text string) (*Node, error) {
	p := &parser{in: strings.TrimSpace(text)}
	if len(p.in) == 0 {
		return nil, ErrEmptyTree
	}
	root, err := p.subtree(nil)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eat(';') {
		return nil, fmt.Errorf("%w: missing terminating semicolon at offset %d", ErrSyntax, p.pos)
	}
	p.skipSpace()
	if p.pos != len(p.in) {
		return nil, fmt.Errorf("%w: trailing input at offset %d", ErrSyntax, p.pos)
	}
	return root, nil
}

type parser struct {
	in  string
	pos int
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.in) {
		return 0, false
	}
	return p.in[p.pos], true
}

func (p *parser) eat(c byte) bool {
	if b, ok := p.peek(); ok && b == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for p.pos < len(p.in) {
		switch p.in[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) subtree(parent *Node) (*Node, error) {
	p.skipSpace()
	n := &Node{Parent: parent}
	if p.eat('(') {
		for {
			child, err := p.subtree(n)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
			p.skipSpace()
			if p.eat(',') {
				continue
			}
			if p.eat(')') {
				break
			}
			return nil, fmt.Errorf("%w: expected ',' or ')' at offset %d", ErrSyntax, p.pos)
		}
	}
	p.skipSpace()
	n.Name = p.label()
	p.skipSpace()
	if p.eat(':') {
		p.skipSpace()
		length, err := p.number()
		if err != nil {
			return nil, err
		}
		n.Length = length
	}
	return n, nil
}

func (p *parser) label() string {
	start := p.pos
	for p.pos < len(p.in) {
		switch p.in[p.pos] {
		case '(', ')', ',', ':', ';', ' ', '\t', '\n', '\r':
			return p.in[start:p.pos]
		default:
			p.pos++
		}
	}
	return p.in[start:p.pos]
}

func (p *parser) number() (float64, error) {
	start := p.pos
	for p.pos < len(p.in) {
		c := p.in[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return 0, fmt.Errorf("%w: expected branch length at offset %d", ErrSyntax, start)
	}
	v, err := strconv.ParseFloat(p.in[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad branch length %q", ErrSyntax, p.in[start:p.pos])
	}
	return v, nil
}
