package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildModifierIf builds the tree for `do_something if str.match(/x/)`.
func buildModifierIf(t *testing.T) (root, call *Node) {
	t.Helper()
	buf := NewBuffer("test.rb", []byte("do_something if str.match(/x/)"))
	b := NewBuilder(buf)

	recv := b.MustNode("send", Range{16, 19}, nil, Symbol("str"))
	re := b.MustNode("regexp", Range{26, 29},
		b.MustNode("str", Range{27, 28}, "x"),
		b.MustNode("regopt", Range{29, 29}),
	)
	call = b.MustNode("send", Range{16, 30}, recv, Symbol("match"), re)
	body := b.MustNode("send", Range{0, 12}, nil, Symbol("do_something"))
	root = b.MustNode("if", Range{0, 30}, call, body, nil)
	return root, call
}

func TestBuffer_Position(t *testing.T) {
	t.Parallel()
	buf := NewBuffer("a.rb", []byte("ab\ncdé\nf"))

	assert.Equal(t, Position{Line: 1, Column: 1}, buf.Position(0))
	assert.Equal(t, Position{Line: 2, Column: 1}, buf.Position(3))
	// é is two bytes; column counts runes.
	assert.Equal(t, Position{Line: 2, Column: 4}, buf.Position(7))
	assert.Equal(t, Position{Line: 3, Column: 2}, buf.Position(100))
	assert.Equal(t, 3, buf.LineCount())
	assert.Equal(t, "cdé", buf.Line(2))
	assert.Equal(t, "", buf.Line(4))
}

func TestBuffer_Slice(t *testing.T) {
	t.Parallel()
	buf := NewBuffer("a.rb", []byte("hello"))
	assert.Equal(t, "ell", buf.Slice(Range{1, 4}))
	assert.Equal(t, "", buf.Slice(Range{3, 9}))
	assert.Equal(t, "", buf.Slice(Range{4, 2}))
}

func TestBuilder_SetsParents(t *testing.T) {
	t.Parallel()
	root, call := buildModifierIf(t)

	assert.Nil(t, root.Parent())
	assert.Equal(t, -1, root.Index())
	assert.Same(t, root, call.Parent())
	assert.Equal(t, 0, call.Index())
	assert.Equal(t, "str.match(/x/)", call.Source())
	assert.Equal(t, Symbol("match"), call.MethodName())
	assert.Equal(t, "str", call.Receiver().Source())
	require.Len(t, call.Arguments(), 1)
	assert.Equal(t, "/x/", call.Arguments()[0].(*Node).Source())
}

func TestBuilder_RejectsEscapingChild(t *testing.T) {
	t.Parallel()
	b := NewBuilder(NewBuffer("a.rb", []byte("0123456789")))
	child := b.MustNode("int", Range{5, 9}, int64(5))

	_, err := b.Node("array", Range{0, 6}, child)
	require.ErrorIs(t, err, ErrRangeNotContained)
}

func TestBuilder_RejectsReparenting(t *testing.T) {
	t.Parallel()
	b := NewBuilder(NewBuffer("a.rb", []byte("0123456789")))
	child := b.MustNode("int", Range{1, 2}, int64(1))
	b.MustNode("array", Range{0, 3}, child)

	_, err := b.Node("array", Range{0, 4}, child)
	require.ErrorIs(t, err, ErrReparented)
}

func TestBuilder_RejectsInvalidChildValue(t *testing.T) {
	t.Parallel()
	b := NewBuilder(NewBuffer("a.rb", []byte("x")))
	_, err := b.Node("weird", Range{0, 1}, struct{}{})
	require.ErrorIs(t, err, ErrInvalidChild)
}

func TestBuilder_NilNodeChildIsAbsentSlot(t *testing.T) {
	t.Parallel()
	b := NewBuilder(NewBuffer("a.rb", []byte("x")))
	var missing *Node
	n, err := b.Node("if", Range{0, 1}, missing, nil)
	require.NoError(t, err)
	require.Equal(t, 2, n.NumChildren())
	assert.Nil(t, n.Child(0))
	assert.Equal(t, "(if nil nil)", n.String())
}

func TestNode_String(t *testing.T) {
	t.Parallel()
	root, _ := buildModifierIf(t)
	assert.Equal(t,
		`(if (send (send nil :str) :match (regexp (str "x") (regopt))) (send nil :do_something) nil)`,
		root.String())
}

func TestWalk_PreOrder(t *testing.T) {
	t.Parallel()
	root, _ := buildModifierIf(t)

	var types []string
	Walk(root, func(n *Node) bool {
		types = append(types, n.Type())
		return true
	})
	assert.Equal(t, []string{"if", "send", "send", "regexp", "str", "regopt", "send"}, types)
}

func TestWalk_SkipChildren(t *testing.T) {
	t.Parallel()
	root, _ := buildModifierIf(t)

	var count int
	Walk(root, func(n *Node) bool {
		count++
		return n.Type() != "send"
	})
	// if, the match send (children skipped), do_something send
	assert.Equal(t, 3, count)
}

func TestEqual(t *testing.T) {
	t.Parallel()
	b := NewBuilder(NewBuffer("a.rb", []byte("a == a")))
	left := b.MustNode("send", Range{0, 1}, nil, Symbol("a"))
	right := b.MustNode("send", Range{5, 6}, nil, Symbol("a"))
	other := b.MustNode("lvar", Range{5, 6}, Symbol("a"))

	assert.True(t, Equal(left, right))
	assert.False(t, Equal(left, other))
	assert.True(t, Equal(Symbol("x"), Symbol("x")))
	assert.False(t, Equal(Symbol("x"), "x"))
	assert.False(t, Equal(left, nil))
	assert.True(t, Equal(nil, nil))
}

func TestAncestors(t *testing.T) {
	t.Parallel()
	root, call := buildModifierIf(t)
	re := call.NodeChild(2)
	assert.Equal(t, []*Node{call, root}, Ancestors(re))
}

func TestValueUsed(t *testing.T) {
	t.Parallel()
	buf := NewBuffer("a.rb", []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	b := NewBuilder(buf)
	leaf := func(start int) *Node {
		return b.MustNode("send", Range{start, start + 1}, nil, Symbol("x"))
	}

	t.Run("root", func(t *testing.T) {
		assert.False(t, ValueUsed(leaf(0)))
	})

	t.Run("begin non-last and last", func(t *testing.T) {
		first, last := leaf(0), leaf(2)
		b.MustNode("begin", Range{0, 3}, first, last)
		assert.False(t, ValueUsed(first))
		// last child of a root begin defers to the root, which is unused
		assert.False(t, ValueUsed(last))
	})

	t.Run("if condition and branch", func(t *testing.T) {
		cond, then := leaf(0), leaf(2)
		b.MustNode("if", Range{0, 3}, cond, then, nil)
		assert.True(t, ValueUsed(cond))
		assert.False(t, ValueUsed(then))
	})

	t.Run("while condition and body", func(t *testing.T) {
		cond, body := leaf(0), leaf(2)
		b.MustNode("while", Range{0, 3}, cond, body)
		assert.True(t, ValueUsed(cond))
		assert.False(t, ValueUsed(body))
	})

	t.Run("argument", func(t *testing.T) {
		arg := leaf(2)
		b.MustNode("send", Range{0, 3}, nil, Symbol("method"), arg)
		assert.True(t, ValueUsed(arg))
	})

	t.Run("return", func(t *testing.T) {
		val := leaf(2)
		b.MustNode("return", Range{0, 3}, val)
		assert.True(t, ValueUsed(val))
	})

	t.Run("transparent array under assignment", func(t *testing.T) {
		elem := leaf(3)
		arr := b.MustNode("array", Range{2, 5}, elem)
		b.MustNode("lvasgn", Range{0, 5}, Symbol("v"), arr)
		assert.True(t, ValueUsed(elem))
	})

	t.Run("for body", func(t *testing.T) {
		v, enum, body := leaf(0), leaf(2), leaf(4)
		b.MustNode("for", Range{0, 5}, v, enum, body)
		assert.True(t, ValueUsed(enum))
		assert.False(t, ValueUsed(body))
	})
}
