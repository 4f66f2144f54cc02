package wat

import "fmt"

// node is one s-expression: either an atom/string token or a list.
type node struct {
	kind tokKind // tokAtom, tokString, or tokLParen for lists
	text string
	list []node
	line int
}

func (n *node) isList() bool   { return n.kind == tokLParen }
func (n *node) isAtom() bool   { return n.kind == tokAtom }
func (n *node) isString() bool { return n.kind == tokString }

// head returns the leading keyword of a list, or "" when n is not a
// list starting with an atom.
func (n *node) head() string {
	if n.isList() && len(n.list) > 0 && n.list[0].isAtom() {
		return n.list[0].text
	}
	return ""
}

func (n *node) errf(format string, args ...any) error {
	return fmt.Errorf("line %d: "+format, append([]any{n.line}, args...)...)
}

// buildTree parses the token stream into a sequence of top-level
// s-expressions.
func buildTree(toks []token) ([]node, error) {
	var top []node
	pos := 0
	for pos < len(toks) {
		n, next, err := buildNode(toks, pos)
		if err != nil {
			return nil, err
		}
		top = append(top, n)
		pos = next
	}
	return top, nil
}

func buildNode(toks []token, pos int) (node, int, error) {
	t := toks[pos]
	switch t.kind {
	case tokAtom, tokString:
		return node{kind: t.kind, text: t.text, line: t.line}, pos + 1, nil
	case tokRParen:
		return node{}, 0, fmt.Errorf("line %d: unexpected ')'", t.line)
	}
	// List.
	n := node{kind: tokLParen, line: t.line}
	pos++
	for {
		if pos >= len(toks) {
			return node{}, 0, fmt.Errorf("line %d: unclosed '('", t.line)
		}
		if toks[pos].kind == tokRParen {
			return n, pos + 1, nil
		}
		child, next, err := buildNode(toks, pos)
		if err != nil {
			return node{}, 0, err
		}
		n.list = append(n.list, child)
		pos = next
	}
}
