// Package ast defines the immutable syntax tree that cops inspect.
//
// Node types and child layouts follow the Ruby parser gem conventions:
// a method call is (send receiver :name args...), a regexp literal is
// (regexp (str "...") (regopt)), and so on. Children are either *Node or
// raw literal values (Symbol, string, int64, float64, bool or nil).
//
// Trees are built bottom-up through a Builder, which records the parent of
// every child. The parent link is for lookup only; nothing in a tree is
// mutated once the root has been built.
package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Symbol is a Ruby symbol literal such as a method name.
type Symbol string

func (s Symbol) String() string { return ":" + string(s) }

// Node is one syntactic construct of the analyzed source.
type Node struct {
	typ      string
	children []any
	rng      Range
	parent   *Node
	index    int
	buf      *Buffer
}

// Type returns the node kind, e.g. "send" or "while_post".
func (n *Node) Type() string { return n.typ }

// IsType reports whether the node's type is one of types.
func (n *Node) IsType(types ...string) bool {
	for _, t := range types {
		if n.typ == t {
			return true
		}
	}
	return false
}

// Children returns the ordered children. The slice is shared; callers must
// not modify it.
func (n *Node) Children() []any { return n.children }

// NumChildren returns len(Children()).
func (n *Node) NumChildren() int { return len(n.children) }

// Child returns the i-th child or nil when i is out of range.
func (n *Node) Child(i int) any {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// NodeChild returns the i-th child if it is a node.
func (n *Node) NodeChild(i int) *Node {
	c, _ := n.Child(i).(*Node)
	return c
}

// Range returns the node's byte range in its buffer.
func (n *Node) Range() Range { return n.rng }

// Parent returns the enclosing node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Index returns the node's position among its parent's children, or -1 for
// a root.
func (n *Node) Index() int {
	if n.parent == nil {
		return -1
	}
	return n.index
}

// Buffer returns the buffer the node was parsed from.
func (n *Node) Buffer() *Buffer { return n.buf }

// Source returns the text covered by the node.
func (n *Node) Source() string {
	if n.buf == nil {
		return ""
	}
	return n.buf.Slice(n.rng)
}

// Position returns the start position of the node.
func (n *Node) Position() Position {
	if n.buf == nil {
		return Position{}
	}
	return n.buf.Position(n.rng.Start)
}

// Receiver returns the receiver of a send/csend node.
func (n *Node) Receiver() *Node {
	if !n.IsType("send", "csend") {
		return nil
	}
	return n.NodeChild(0)
}

// MethodName returns the selector of a send/csend node.
func (n *Node) MethodName() Symbol {
	if !n.IsType("send", "csend") {
		return ""
	}
	s, _ := n.Child(1).(Symbol)
	return s
}

// Arguments returns the argument children of a send/csend node.
func (n *Node) Arguments() []any {
	if !n.IsType("send", "csend") || len(n.children) < 2 {
		return nil
	}
	return n.children[2:]
}

// String renders the node as an s-expression, e.g.
// (send (lvar :str) :match (regexp (str "x") (regopt))).
func (n *Node) String() string {
	var b strings.Builder
	writeSexp(&b, n)
	return b.String()
}

func writeSexp(b *strings.Builder, v any) {
	switch x := v.(type) {
	case *Node:
		b.WriteByte('(')
		b.WriteString(x.typ)
		for _, c := range x.children {
			b.WriteByte(' ')
			writeSexp(b, c)
		}
		b.WriteByte(')')
	case nil:
		b.WriteString("nil")
	case Symbol:
		b.WriteString(x.String())
	case string:
		b.WriteString(strconv.Quote(x))
	default:
		fmt.Fprint(b, x)
	}
}
