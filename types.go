package copper

import (
	"github.com/jward/copper/internal/cop"
	"github.com/jward/copper/internal/formatter"
)

// Public type aliases for the internal types that appear in the Engine
// API. External consumers use these names; no conversion is needed.

type Offense = cop.Offense
type OffenseKey = cop.OffenseKey
type Severity = cop.Severity
type Status = cop.Status
type Rule = cop.Rule
type RuleEvaluationError = cop.RuleEvaluationError

// FileReport is the result of inspecting one file.
type FileReport struct {
	Path string
	// Original is the source as read. Source is the source after every
	// applied correction; the two are equal when nothing was corrected.
	Original []byte
	Source   []byte
	// Offenses holds the corrected offenses of every pass followed by all
	// offenses of the final pass.
	Offenses []Offense
	// Errors are the isolated rule failures of every pass.
	Errors []error
	// Passes is the number of investigations run. Zero for a cache hit.
	Passes int
	Cached bool

	// final is what a fresh inspection of Source would report.
	final []Offense
	// foundIn holds, for offenses corrected before the final pass, the
	// source their ranges refer to.
	foundIn map[OffenseKey][]byte
}

// Changed reports whether corrections rewrote the source.
func (r *FileReport) Changed() bool { return string(r.Original) != string(r.Source) }

// File converts the report for a formatter. Offenses of the final pass
// refer to Source; offenses corrected earlier refer to the source of the
// pass that reported them.
func (r *FileReport) File() formatter.File {
	return formatter.File{Path: r.Path, Source: r.Source, Offenses: r.Offenses, FoundIn: r.foundIn}
}

// FoundIn returns the source o's range refers to.
func (r *FileReport) FoundIn(o Offense) []byte {
	if src, ok := r.foundIn[o.Key()]; ok {
		return src
	}
	return r.Source
}

// MaxSeverity returns the highest severity reported, and false when there
// are no offenses.
func (r *FileReport) MaxSeverity() (Severity, bool) {
	if len(r.Offenses) == 0 {
		return 0, false
	}
	top := r.Offenses[0].Severity
	for _, o := range r.Offenses[1:] {
		if o.Severity > top {
			top = o.Severity
		}
	}
	return top, true
}
