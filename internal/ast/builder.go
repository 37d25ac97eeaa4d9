package ast

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidChild is returned when a child is neither a node nor a
	// supported literal value.
	ErrInvalidChild = errors.New("ast: invalid child value")
	// ErrReparented is returned when a node is attached to a second parent.
	ErrReparented = errors.New("ast: node already has a parent")
	// ErrRangeNotContained is returned when a child's range escapes its parent.
	ErrRangeNotContained = errors.New("ast: child range not contained in parent")
)

// Builder assembles trees over one buffer.
type Builder struct {
	buf *Buffer
}

// NewBuilder returns a Builder producing nodes that reference buf.
func NewBuilder(buf *Buffer) *Builder {
	return &Builder{buf: buf}
}

// Buffer returns the buffer nodes are built over.
func (b *Builder) Buffer() *Buffer { return b.buf }

// Node creates a node and adopts its children. Every child node must be
// parentless and lie inside rng. A nil *Node child is stored as nil, the
// marker for an absent slot.
func (b *Builder) Node(typ string, rng Range, children ...any) (*Node, error) {
	if !rng.Valid() {
		return nil, fmt.Errorf("ast: %s: invalid range %s", typ, rng)
	}
	if b.buf != nil && rng.End > b.buf.Len() {
		return nil, fmt.Errorf("ast: %s: range %s exceeds buffer of %d bytes", typ, rng, b.buf.Len())
	}
	n := &Node{typ: typ, rng: rng, buf: b.buf}
	n.children = append([]any(nil), children...)
	for i, c := range n.children {
		switch x := c.(type) {
		case *Node:
			if x == nil {
				n.children[i] = nil
				continue
			}
			if x.parent != nil {
				return nil, fmt.Errorf("%w: %s under %s", ErrReparented, x.typ, typ)
			}
			if !rng.Contains(x.rng) {
				return nil, fmt.Errorf("%w: %s %s under %s %s", ErrRangeNotContained, x.typ, x.rng, typ, rng)
			}
		case nil, Symbol, string, int64, float64, bool:
		default:
			return nil, fmt.Errorf("%w: %T at index %d of %s", ErrInvalidChild, c, i, typ)
		}
	}
	for i, c := range n.children {
		if x, ok := c.(*Node); ok {
			x.parent = n
			x.index = i
		}
	}
	return n, nil
}

// MustNode is like Node but panics on error. Intended for tests and for
// trees whose shape is known to be valid.
func (b *Builder) MustNode(typ string, rng Range, children ...any) *Node {
	n, err := b.Node(typ, rng, children...)
	if err != nil {
		panic(err)
	}
	return n
}
