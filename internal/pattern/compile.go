package pattern

import "github.com/jward/copper/internal/ast"

// state carries the capture slots of one match attempt. trail records the
// order slots were bound in so a failed union branch can undo them.
type state struct {
	slots []any
	bound []bool
	trail []int
}

func (st *state) bind(slot int, v any) {
	if st.bound[slot] {
		return
	}
	st.slots[slot] = v
	st.bound[slot] = true
	st.trail = append(st.trail, slot)
}

func (st *state) rollback(mark int) {
	for _, slot := range st.trail[mark:] {
		st.slots[slot] = nil
		st.bound[slot] = false
	}
	st.trail = st.trail[:mark]
}

type matcher func(st *state, v any) bool

func compile(e *expr, preds map[string]PredicateFunc) matcher {
	switch e.kind {
	case exprWildcard:
		return func(*state, any) bool { return true }

	case exprType:
		name := e.name
		return func(_ *state, v any) bool {
			n, ok := v.(*ast.Node)
			return ok && n != nil && n.Type() == name
		}

	case exprLiteral:
		want := e.value
		return func(_ *state, v any) bool {
			if want == nil {
				return isNil(v)
			}
			return v == want
		}

	case exprCapture:
		slot := e.slot
		sub := compile(e.subs[0], preds)
		return func(st *state, v any) bool {
			if !sub(st, v) {
				return false
			}
			st.bind(slot, v)
			return true
		}

	case exprUnion:
		subs := compileAll(e.subs, preds)
		return func(st *state, v any) bool {
			mark := len(st.trail)
			for _, sub := range subs {
				if sub(st, v) {
					return true
				}
				st.rollback(mark)
			}
			return false
		}

	case exprAll:
		subs := compileAll(e.subs, preds)
		return func(st *state, v any) bool {
			for _, sub := range subs {
				if !sub(st, v) {
					return false
				}
			}
			return true
		}

	case exprNot:
		sub := compile(e.subs[0], preds)
		return func(st *state, v any) bool {
			mark := len(st.trail)
			ok := sub(st, v)
			st.rollback(mark)
			return !ok
		}

	case exprParent:
		sub := compile(e.subs[0], preds)
		return func(st *state, v any) bool {
			n, ok := v.(*ast.Node)
			if !ok || n == nil || n.Parent() == nil {
				return false
			}
			return sub(st, n.Parent())
		}

	case exprBackref:
		slot := e.slot
		return func(st *state, v any) bool {
			return st.bound[slot] && ast.Equal(v, st.slots[slot])
		}

	case exprPredicate:
		fn := preds[e.name]
		args := e.args
		return func(st *state, v any) bool {
			vals := make([]any, len(args))
			for i, a := range args {
				if a.kind == exprBackref {
					if !st.bound[a.slot] {
						return false
					}
					vals[i] = st.slots[a.slot]
					continue
				}
				vals[i] = a.value
			}
			return fn(v, vals...)
		}

	case exprSeq:
		return compileSeq(e, preds)
	}
	panic("pattern: unknown expression kind")
}

func compileAll(es []*expr, preds map[string]PredicateFunc) []matcher {
	out := make([]matcher, len(es))
	for i, e := range es {
		out[i] = compile(e, preds)
	}
	return out
}

// compileSeq matches a node's type against the head and its children
// positionally. With a rest marker the elements before it match a prefix
// and the elements after it match a suffix of the children.
func compileSeq(e *expr, preds map[string]PredicateFunc) matcher {
	heads := make(map[string]bool, len(e.head))
	for _, h := range e.head {
		heads[h] = true
	}
	anyHead := len(heads) == 0

	rest := -1
	for i, sub := range e.subs {
		if sub.kind == exprRest {
			rest = i
		}
	}
	var prefix, suffix []matcher
	if rest < 0 {
		prefix = compileAll(e.subs, preds)
	} else {
		prefix = compileAll(e.subs[:rest], preds)
		suffix = compileAll(e.subs[rest+1:], preds)
	}

	return func(st *state, v any) bool {
		n, ok := v.(*ast.Node)
		if !ok || n == nil {
			return false
		}
		if !anyHead && !heads[n.Type()] {
			return false
		}
		children := n.Children()
		if rest < 0 && len(children) != len(prefix) {
			return false
		}
		if rest >= 0 && len(children) < len(prefix)+len(suffix) {
			return false
		}
		for i, m := range prefix {
			if !m(st, children[i]) {
				return false
			}
		}
		offset := len(children) - len(suffix)
		for i, m := range suffix {
			if !m(st, children[offset+i]) {
				return false
			}
		}
		return true
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	n, ok := v.(*ast.Node)
	return ok && n == nil
}
