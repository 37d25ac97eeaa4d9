package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"
	"github.com/sirupsen/logrus"

	"github.com/jward/copper/internal/ast"
	"github.com/jward/copper/internal/pattern"
)

// nodeArg unwraps a proxied *ast.Node. Risor nil maps to a nil node.
func nodeArg(fn string, obj object.Object) (*ast.Node, *object.Error) {
	if _, ok := obj.(*object.NilType); ok {
		return nil, nil
	}
	proxy, ok := obj.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected proxy (Node), got %s", fn, obj.Type())
	}
	n, ok := proxy.Interface().(*ast.Node)
	if !ok {
		return nil, object.Errorf("%s: expected *ast.Node, got %T", fn, proxy.Interface())
	}
	return n, nil
}

// wrapNode proxies n, returning Risor nil instead of a proxied Go nil.
func wrapNode(n *ast.Node) object.Object {
	if n == nil {
		return object.Nil
	}
	p, err := object.NewProxy(n)
	if err != nil {
		return object.Errorf("proxy error: %v", err)
	}
	return p
}

// wrapValue converts a node child into a Risor value.
func wrapValue(v any) object.Object {
	switch v := v.(type) {
	case nil:
		return object.Nil
	case *ast.Node:
		return wrapNode(v)
	case ast.Symbol:
		return object.NewString(string(v))
	case string:
		return object.NewString(v)
	case int64:
		return object.NewInt(v)
	case float64:
		return object.NewFloat(v)
	case bool:
		return object.NewBool(v)
	default:
		return object.NewString(fmt.Sprint(v))
	}
}

// resolvePattern finds a named pattern, or compiles p as pattern text
// through the cache.
func resolvePattern(fn string, cache *pattern.Cache, named map[string]*pattern.Pattern, obj object.Object) (*pattern.Pattern, *object.Error) {
	s, ok := obj.(*object.String)
	if !ok {
		return nil, object.Errorf("%s: pattern must be a string, got %s", fn, obj.Type())
	}
	if p, ok := named[s.Value()]; ok {
		return p, nil
	}
	p, err := cache.Get(s.Value())
	if err != nil {
		return nil, object.Errorf("%s: %v", fn, err)
	}
	return p, nil
}

// makeMatchesFn creates the "matches" host function.
//
// matches(pattern, node) → bool
func makeMatchesFn(cache *pattern.Cache, named map[string]*pattern.Pattern) *object.Builtin {
	return object.NewBuiltin("matches", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("matches", 2, len(args))
		}
		p, perr := resolvePattern("matches", cache, named, args[0])
		if perr != nil {
			return perr
		}
		n, nerr := nodeArg("matches", args[1])
		if nerr != nil {
			return nerr
		}
		return object.NewBool(n != nil && p.Matches(n))
	})
}

// makeCapturesFn creates the "captures" host function.
//
// captures(pattern, node) → list of captured sources, or nil on no match
func makeCapturesFn(cache *pattern.Cache, named map[string]*pattern.Pattern) *object.Builtin {
	return object.NewBuiltin("captures", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("captures", 2, len(args))
		}
		p, perr := resolvePattern("captures", cache, named, args[0])
		if perr != nil {
			return perr
		}
		n, nerr := nodeArg("captures", args[1])
		if nerr != nil {
			return nerr
		}
		if n == nil {
			return object.Nil
		}
		caps, ok := p.Match(n)
		if !ok {
			return object.Nil
		}
		items := make([]object.Object, len(caps))
		for i, c := range caps {
			switch c := c.(type) {
			case *ast.Node:
				items[i] = object.NewString(c.Source())
			case nil:
				items[i] = object.Nil
			default:
				items[i] = wrapValue(c)
			}
		}
		return object.NewList(items)
	})
}

// nodeFn builds a single-argument host function over a node.
func nodeFn(name string, fn func(n *ast.Node) object.Object) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		n, err := nodeArg(name, args[0])
		if err != nil {
			return err
		}
		if n == nil {
			return object.Nil
		}
		return fn(n)
	})
}

// source(node) → string
func makeSourceFn() *object.Builtin {
	return nodeFn("source", func(n *ast.Node) object.Object { return object.NewString(n.Source()) })
}

// node_type(node) → string
func makeNodeTypeFn() *object.Builtin {
	return nodeFn("node_type", func(n *ast.Node) object.Object { return object.NewString(n.Type()) })
}

// parent(node) → Node or nil
func makeParentFn() *object.Builtin {
	return nodeFn("parent", func(n *ast.Node) object.Object { return wrapNode(n.Parent()) })
}

// value_used(node) → bool
func makeValueUsedFn() *object.Builtin {
	return nodeFn("value_used", func(n *ast.Node) object.Object { return object.NewBool(ast.ValueUsed(n)) })
}

// method_name(node) → string, empty for non-calls
func makeMethodNameFn() *object.Builtin {
	return nodeFn("method_name", func(n *ast.Node) object.Object { return object.NewString(string(n.MethodName())) })
}

// receiver(node) → Node or nil
func makeReceiverFn() *object.Builtin {
	return nodeFn("receiver", func(n *ast.Node) object.Object { return wrapNode(n.Receiver()) })
}

// arguments(node) → list
func makeArgumentsFn() *object.Builtin {
	return nodeFn("arguments", func(n *ast.Node) object.Object {
		args := n.Arguments()
		items := make([]object.Object, len(args))
		for i, a := range args {
			items[i] = wrapValue(a)
		}
		return object.NewList(items)
	})
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	entry *logrus.Entry
}

func (l *logObject) Info(msg string) {
	l.entry.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.entry.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.entry.Error(msg)
}
