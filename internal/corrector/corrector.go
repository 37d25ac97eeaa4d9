// Package corrector reconciles the edits staged by rule corrections into a
// single rewritten source. Overlapping edits are resolved in favor of the
// earlier one and the loser is reported, never silently merged.
package corrector

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/jward/copper/internal/ast"
	"github.com/jward/copper/internal/cop"
)

var (
	// ErrInvalidRange is returned when an edit's range is negative or
	// inverted.
	ErrInvalidRange = errors.New("corrector: invalid range")
	// ErrFinalized is returned when a corrector is used after Finalize.
	ErrFinalized = errors.New("corrector: already finalized")
)

// Reason explains why an edit was rejected.
type Reason string

const (
	ReasonOutOfBounds Reason = "out-of-bounds"
	ReasonConflict    Reason = "conflict"
)

// Edit replaces the text in Range with Text. A zero-width range inserts.
type Edit struct {
	Range ast.Range
	Text  string
	Owner cop.OffenseKey

	seq int
}

// Rejection is an edit that was not applied.
type Rejection struct {
	Edit
	Reason Reason
	// ConflictsWith is the owner of the accepted edit this one lost to.
	// Only set for ReasonConflict.
	ConflictsWith cop.OffenseKey
}

// Result is the outcome of Finalize.
type Result struct {
	Source   []byte
	Applied  []Edit
	Rejected []Rejection
}

// Changed reports whether any edit was applied.
func (r *Result) Changed() bool { return len(r.Applied) > 0 }

// Corrector stages edits for one file's correction pass. It is not safe
// for concurrent use; each worker owns its own.
type Corrector struct {
	edits     []Edit
	finalized bool
}

// New returns an empty corrector.
func New() *Corrector {
	return &Corrector{}
}

// Stage records an edit on behalf of owner.
func (c *Corrector) Stage(r ast.Range, replacement string, owner cop.OffenseKey) error {
	if c.finalized {
		return ErrFinalized
	}
	if !r.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRange, r)
	}
	c.edits = append(c.edits, Edit{Range: r, Text: replacement, Owner: owner, seq: len(c.edits)})
	return nil
}

// Replace is Stage under its usual name.
func (c *Corrector) Replace(r ast.Range, text string, owner cop.OffenseKey) error {
	return c.Stage(r, text, owner)
}

// Remove deletes the text in r.
func (c *Corrector) Remove(r ast.Range, owner cop.OffenseKey) error {
	return c.Stage(r, "", owner)
}

// InsertBefore inserts text at the start of r.
func (c *Corrector) InsertBefore(r ast.Range, text string, owner cop.OffenseKey) error {
	return c.Stage(ast.Range{Start: r.Start, End: r.Start}, text, owner)
}

// InsertAfter inserts text at the end of r.
func (c *Corrector) InsertAfter(r ast.Range, text string, owner cop.OffenseKey) error {
	return c.Stage(ast.Range{Start: r.End, End: r.End}, text, owner)
}

// Len returns the number of staged edits.
func (c *Corrector) Len() int { return len(c.edits) }

func overlaps(a, b ast.Range) bool {
	return a.Start < b.End && b.Start < a.End
}

// Finalize resolves the staged edits against original and rebuilds the
// source in one pass.
//
// Edits are ordered by start, then end, then staging order. An edit is
// accepted unless it overlaps an edit accepted before it. Edits that only
// touch at a boundary, and insertions at the same offset, do not overlap.
//
// The edits of one owner are applied together or not at all. When any of
// them is rejected, every edit of that owner is rejected with the same
// reason and resolution runs again without them, until no further owner
// is dropped.
func (c *Corrector) Finalize(original []byte) (*Result, error) {
	if c.finalized {
		return nil, ErrFinalized
	}
	c.finalized = true

	edits := append([]Edit(nil), c.edits...)
	sort.SliceStable(edits, func(i, j int) bool {
		a, b := edits[i], edits[j]
		if a.Range.Start != b.Range.Start {
			return a.Range.Start < b.Range.Start
		}
		if a.Range.End != b.Range.End {
			return a.Range.End < b.Range.End
		}
		return a.seq < b.seq
	})

	dropped := make(map[cop.OffenseKey]Rejection)
	var res *Result
	for {
		var grew bool
		res, grew = resolve(edits, len(original), dropped)
		if !grew {
			break
		}
	}

	var out bytes.Buffer
	out.Grow(len(original))
	cursor := 0
	for _, e := range res.Applied {
		out.Write(original[cursor:e.Range.Start])
		out.WriteString(e.Text)
		cursor = e.Range.End
	}
	out.Write(original[cursor:])
	res.Source = out.Bytes()
	return res, nil
}

// resolve runs one acceptance sweep over sorted edits. Owners in dropped
// are rejected outright. It reports whether an owner was newly dropped,
// in which case the sweep's accepted set may hold that owner's edits and
// must be recomputed.
func resolve(edits []Edit, size int, dropped map[cop.OffenseKey]Rejection) (*Result, bool) {
	res := &Result{}
	grew := false
	drop := func(r Rejection) {
		if _, ok := dropped[r.Owner]; !ok {
			dropped[r.Owner] = r
			grew = true
		}
		res.Rejected = append(res.Rejected, r)
	}
	for _, e := range edits {
		if cause, ok := dropped[e.Owner]; ok {
			res.Rejected = append(res.Rejected, Rejection{Edit: e, Reason: cause.Reason, ConflictsWith: cause.ConflictsWith})
			continue
		}
		if e.Range.End > size {
			drop(Rejection{Edit: e, Reason: ReasonOutOfBounds})
			continue
		}
		// accepted ends never decrease, so only the tail can overlap
		conflict := -1
		for j := len(res.Applied) - 1; j >= 0 && res.Applied[j].Range.End > e.Range.Start; j-- {
			if overlaps(res.Applied[j].Range, e.Range) {
				conflict = j
				break
			}
		}
		if conflict >= 0 {
			drop(Rejection{Edit: e, Reason: ReasonConflict, ConflictsWith: res.Applied[conflict].Owner})
			continue
		}
		res.Applied = append(res.Applied, e)
	}
	return res, grew
}
