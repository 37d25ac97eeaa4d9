package cop

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jward/copper/internal/ast"
)

// Investigation is the outcome of running the rules over one tree.
type Investigation struct {
	File     string
	Offenses []Offense
	Errors   []*RuleEvaluationError

	index map[OffenseKey]int
}

func (inv *Investigation) seen(key OffenseKey) bool {
	_, ok := inv.index[key]
	return ok
}

func (inv *Investigation) add(off Offense) {
	inv.index[off.Key()] = len(inv.Offenses)
	inv.Offenses = append(inv.Offenses, off)
}

func (inv *Investigation) fail(log *logrus.Entry, r Rule, key OffenseKey, err error) {
	rerr := &RuleEvaluationError{Rule: r.Name(), Range: key.Range, Err: err}
	log.WithField("range", key.Range.String()).WithError(err).Warn("cop: correction failed")
	inv.Errors = append(inv.Errors, rerr)
}

// MarkRejected flags the offense with key as having lost its correction
// to a conflicting edit. Unknown keys are ignored.
func (inv *Investigation) MarkRejected(key OffenseKey) {
	if i, ok := inv.index[key]; ok && inv.Offenses[i].Status == Corrected {
		inv.Offenses[i].Status = CorrectionRejected
	}
}

// Corrected counts offenses whose correction was staged and not rejected.
func (inv *Investigation) Corrected() int {
	n := 0
	for _, o := range inv.Offenses {
		if o.Status == Corrected {
			n++
		}
	}
	return n
}

// InvestigateOptions controls a single investigation.
type InvestigateOptions struct {
	// Corrector receives the edits of offenses that carry a correction.
	// Nil disables autocorrection.
	Corrector Stager
	// Context is handed to rules through Context.Context. Nil means
	// context.Background.
	Context context.Context
}

// Commissioner walks a tree and dispatches each node to the rules the
// registry lists for its type.
type Commissioner struct {
	reg *Registry
	log *logrus.Logger
}

// NewCommissioner returns a commissioner over reg. A nil logger gets a
// default one.
func NewCommissioner(reg *Registry, log *logrus.Logger) *Commissioner {
	if log == nil {
		log = logrus.New()
	}
	return &Commissioner{reg: reg, log: log}
}

// Registry returns the rules the commissioner dispatches to.
func (c *Commissioner) Registry() *Registry { return c.reg }

// Investigate runs every interested rule on every node of root in a single
// pre-order walk. Rule failures are isolated: they are logged, recorded in
// Errors, and the walk continues.
func (c *Commissioner) Investigate(root *ast.Node, opts InvestigateOptions) *Investigation {
	inv := &Investigation{index: make(map[OffenseKey]int)}
	if root == nil {
		return inv
	}
	buf := root.Buffer()
	if buf != nil {
		inv.File = buf.Name()
	}

	runCtx := opts.Context
	if runCtx == nil {
		runCtx = context.Background()
	}
	contexts := make(map[string]*Context)
	contextFor := func(r Rule) *Context {
		ctx, ok := contexts[r.Name()]
		if !ok {
			ctx = &Context{
				rule:   r,
				inv:    inv,
				buf:    buf,
				stager: opts.Corrector,
				ctx:    runCtx,
				log:    c.log.WithFields(logrus.Fields{"cop": r.Name(), "file": inv.File}),
			}
			contexts[r.Name()] = ctx
		}
		return ctx
	}

	ast.Walk(root, func(n *ast.Node) bool {
		for _, r := range c.reg.ForTypes(n.Type()) {
			c.check(contextFor(r), r, n)
		}
		return true
	})
	return inv
}

func (c *Commissioner) check(ctx *Context, r Rule, n *ast.Node) {
	var err error
	func() {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		err = r.Check(ctx, n)
	}()
	if err == nil {
		return
	}

	rerr := &RuleEvaluationError{Rule: r.Name(), NodeType: n.Type(), Range: n.Range(), Err: err}
	ctx.log.WithFields(logrus.Fields{
		"node":  n.Type(),
		"range": n.Range().String(),
	}).WithError(err).Warn("cop: rule evaluation failed")
	ctx.inv.Errors = append(ctx.inv.Errors, rerr)
}
