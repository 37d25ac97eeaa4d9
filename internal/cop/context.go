package cop

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jward/copper/internal/ast"
)

// Stager records source edits on behalf of an offense. The corrector
// implements it.
type Stager interface {
	Stage(r ast.Range, replacement string, owner OffenseKey) error
}

// Correction computes the edits that fix one offense.
type Correction func(e *Editor) error

type pendingEdit struct {
	rng  ast.Range
	text string
}

// Editor collects the edits of one correction. They reach the corrector
// only if the correction returns nil.
type Editor struct {
	buf   *ast.Buffer
	edits []pendingEdit
}

// Buffer returns the source being corrected.
func (e *Editor) Buffer() *ast.Buffer { return e.buf }

// Replace swaps the text in r for text.
func (e *Editor) Replace(r ast.Range, text string) {
	e.edits = append(e.edits, pendingEdit{rng: r, text: text})
}

// Remove deletes the text in r.
func (e *Editor) Remove(r ast.Range) { e.Replace(r, "") }

// InsertBefore inserts text at the start of r.
func (e *Editor) InsertBefore(r ast.Range, text string) {
	e.Replace(ast.Range{Start: r.Start, End: r.Start}, text)
}

// InsertAfter inserts text at the end of r.
func (e *Editor) InsertAfter(r ast.Range, text string) {
	e.Replace(ast.Range{Start: r.End, End: r.End}, text)
}

// Context is what a rule sees while checking nodes of one investigation.
type Context struct {
	rule   Rule
	inv    *Investigation
	buf    *ast.Buffer
	stager Stager
	log    *logrus.Entry
	ctx    context.Context
}

// Context returns the context of the run the investigation belongs to.
// Rules that block or evaluate scripts pass it on.
func (c *Context) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Buffer returns the source buffer under investigation.
func (c *Context) Buffer() *ast.Buffer { return c.buf }

// Autocorrect reports whether corrections passed to AddOffense are staged.
func (c *Context) Autocorrect() bool { return c.stager != nil }

// Logger returns a logger tagged with the rule and file.
func (c *Context) Logger() *logrus.Entry { return c.log }

// AddOffense reports a finding at r. fix may be nil when the rule has no
// correction. Reporting the same (rule, range, message) twice is a no-op.
func (c *Context) AddOffense(r ast.Range, message string, fix Correction) {
	off := Offense{
		Rule:     c.rule.Name(),
		Message:  message,
		Range:    r,
		Severity: c.rule.Severity(),
		Status:   Unsupported,
	}
	if c.buf != nil {
		off.Location = c.buf.Position(r.Start)
	}
	if c.inv.seen(off.Key()) {
		return
	}
	if fix != nil {
		off.Status = c.correct(off.Key(), fix)
	}
	c.inv.add(off)
}

func (c *Context) correct(key OffenseKey, fix Correction) Status {
	if c.stager == nil {
		return Uncorrected
	}
	ed := &Editor{buf: c.buf}
	if err := fix(ed); err != nil {
		c.inv.fail(c.log, c.rule, key, fmt.Errorf("correction: %w", err))
		return Uncorrected
	}
	if len(ed.edits) == 0 {
		return Uncorrected
	}
	for _, e := range ed.edits {
		if !e.rng.Valid() {
			c.inv.fail(c.log, c.rule, key, fmt.Errorf("correction: invalid range %s", e.rng))
			return Uncorrected
		}
	}
	for _, e := range ed.edits {
		if err := c.stager.Stage(e.rng, e.text, key); err != nil {
			c.inv.fail(c.log, c.rule, key, fmt.Errorf("correction: %w", err))
			return Uncorrected
		}
	}
	return Corrected
}
