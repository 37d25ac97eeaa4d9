// Package cop holds the rule engine: the Rule interface, the registry rules
// are dispatched from, the commissioner that walks a tree and feeds nodes
// to interested rules, and the offense model rules report into.
package cop

import "github.com/jward/copper/internal/ast"

// Rule inspects nodes of the types it declares interest in.
//
// Check must treat the tree as read-only. It reports findings through
// ctx.AddOffense; a returned error is isolated to this rule and node.
type Rule interface {
	Name() string
	Severity() Severity
	NodeTypes() []string
	Check(ctx *Context, n *ast.Node) error
}

// Describer is implemented by rules that carry a human description, shown
// by `copper cops`.
type Describer interface {
	Description() string
}

// Autocorrector is implemented by rules that report whether they can
// correct their offenses.
type Autocorrector interface {
	Correctable() bool
}

// Base implements the metadata half of Rule. Built-in rules embed it.
type Base struct {
	RuleName        string
	DefaultSeverity Severity
	Types           []string
	Desc            string
	Autocorrect     bool
}

func (b Base) Name() string        { return b.RuleName }
func (b Base) Severity() Severity  { return b.DefaultSeverity }
func (b Base) NodeTypes() []string { return b.Types }
func (b Base) Description() string { return b.Desc }
func (b Base) Correctable() bool   { return b.Autocorrect }

type overridden struct {
	Rule
	sev Severity
}

func (o overridden) Severity() Severity { return o.sev }

func (o overridden) Description() string {
	if d, ok := o.Rule.(Describer); ok {
		return d.Description()
	}
	return ""
}

func (o overridden) Correctable() bool {
	a, ok := o.Rule.(Autocorrector)
	return ok && a.Correctable()
}

// WithSeverity returns r reporting at sev instead of its default.
func WithSeverity(r Rule, sev Severity) Rule {
	if o, ok := r.(overridden); ok {
		r = o.Rule
	}
	if r.Severity() == sev {
		return r
	}
	return overridden{Rule: r, sev: sev}
}
