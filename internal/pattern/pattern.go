// Package pattern compiles textual node patterns into matchers over
// ast.Node trees.
//
// A pattern is an s-expression describing the shape of a subtree:
//
//	(send {str regexp} :match _)
//
// Node types match by name, `_` matches anything, and literals (`nil`,
// `true`, `false`, `:sym`, `"str"`, numbers) match child values. `{a b}`
// tries alternatives left to right, `[a b]` requires all, `!a` negates.
// `(type children...)` matches a node with exactly those children unless a
// single `...` stands in for any number of them. `$p` captures what p
// matched into the next numbered slot. `%N` matches a value structurally
// equal to capture N, where `%0` is the node under test. `name?(args)`
// and `#name` call predicates and `^p` matches p against the parent.
package pattern

import (
	"maps"

	"github.com/jward/copper/internal/ast"
)

// PredicateFunc tests a value. args holds the evaluated arguments from the
// pattern, with back-references already resolved to their bound values.
type PredicateFunc func(v any, args ...any) bool

// Option configures compilation.
type Option func(*options)

type options struct {
	preds map[string]PredicateFunc
}

// WithPredicate makes name callable from the pattern as `#name` or, when
// it ends with `?`, as `name?`.
func WithPredicate(name string, fn PredicateFunc) Option {
	return func(o *options) {
		o.preds[name] = fn
	}
}

// Captures holds the values bound by a successful match, indexed from 0
// for the first `$` in the pattern.
type Captures []any

// Node returns capture i as a node, or nil when it is not one.
func (c Captures) Node(i int) *ast.Node {
	if i < 0 || i >= len(c) {
		return nil
	}
	n, _ := c[i].(*ast.Node)
	return n
}

// Pattern is a compiled node pattern. It holds no per-match state and is
// safe for concurrent use.
type Pattern struct {
	src      string
	root     matcher
	captures int
}

// Compile parses src and returns the compiled pattern. Malformed source
// yields a *SyntaxError.
func Compile(src string, opts ...Option) (*Pattern, error) {
	o := options{preds: maps.Clone(builtinPredicates)}
	for _, opt := range opts {
		opt(&o)
	}
	root, captures, err := parse(src, o.preds)
	if err != nil {
		return nil, err
	}
	return &Pattern{
		src:      src,
		root:     compile(root, o.preds),
		captures: captures,
	}, nil
}

// MustCompile is like Compile but panics on error. For package-level
// pattern variables.
func MustCompile(src string, opts ...Option) *Pattern {
	p, err := Compile(src, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source the pattern was compiled from.
func (p *Pattern) String() string { return p.src }

// NumCaptures returns how many values a successful match binds.
func (p *Pattern) NumCaptures() int { return p.captures }

// Match tests v and returns the captured values on success.
func (p *Pattern) Match(v any) (Captures, bool) {
	st := &state{
		slots: make([]any, p.captures+1),
		bound: make([]bool, p.captures+1),
	}
	st.slots[0] = v
	st.bound[0] = true
	if !p.root(st, v) {
		return nil, false
	}
	return Captures(st.slots[1:]), true
}

// Matches reports whether v matches, discarding captures.
func (p *Pattern) Matches(v any) bool {
	_, ok := p.Match(v)
	return ok
}

var builtinPredicates = map[string]PredicateFunc{
	// identity: the very same node, or an equal literal
	"equal?": func(v any, args ...any) bool {
		if len(args) != 1 {
			return false
		}
		return v == args[0]
	},
	"eql?": func(v any, args ...any) bool {
		return len(args) == 1 && ast.Equal(v, args[0])
	},
	"nil?": func(v any, _ ...any) bool {
		return isNil(v)
	},
	"empty?": func(v any, _ ...any) bool {
		switch x := v.(type) {
		case *ast.Node:
			return x != nil && x.NumChildren() == 0
		case string:
			return x == ""
		}
		return false
	},
}
