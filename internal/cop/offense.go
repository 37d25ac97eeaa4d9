package cop

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jward/copper/internal/ast"
)

// Severity ranks offenses. The zero value is Info.
type Severity int

const (
	Info Severity = iota
	Refactor
	Convention
	Warning
	Error
	Fatal
)

var severityNames = [...]string{"info", "refactor", "convention", "warning", "error", "fatal"}

func (s Severity) String() string {
	if s < Info || s > Fatal {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// Code returns the one-letter code used in text output: I, R, C, W, E or F.
func (s Severity) Code() string {
	if s < Info || s > Fatal {
		return "?"
	}
	return strings.ToUpper(severityNames[s][:1])
}

// ParseSeverity accepts a severity name or its one-letter code, in any case.
func ParseSeverity(name string) (Severity, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range severityNames {
		if name == n || name == n[:1] {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("cop: unknown severity %q", name)
}

func (s Severity) MarshalText() ([]byte, error) {
	if s < Info || s > Fatal {
		return nil, fmt.Errorf("cop: invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Status describes what happened to an offense's correction.
type Status int

const (
	// Unsupported means the rule has no correction.
	Unsupported Status = iota
	// Uncorrected means a correction exists but was not applied, either
	// because autocorrect is off or because the correction failed.
	Uncorrected
	// Corrected means the correction's edits were applied.
	Corrected
	// CorrectionRejected means the edits lost a conflict to another
	// offense's edits and were not applied this run.
	CorrectionRejected
)

func (s Status) String() string {
	switch s {
	case Unsupported:
		return "unsupported"
	case Uncorrected:
		return "uncorrected"
	case Corrected:
		return "corrected"
	case CorrectionRejected:
		return "correction_rejected"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// OffenseKey identifies an offense. Two offenses with the same key are the
// same finding.
type OffenseKey struct {
	Rule    string
	Range   ast.Range
	Message string
}

func (k OffenseKey) String() string {
	return fmt.Sprintf("%s@%s", k.Rule, k.Range)
}

// Offense is one finding reported by a rule.
type Offense struct {
	Rule     string
	Message  string
	Range    ast.Range
	Location ast.Position
	Severity Severity
	Status   Status
}

// Key returns the offense's identity.
func (o Offense) Key() OffenseKey {
	return OffenseKey{Rule: o.Rule, Range: o.Range, Message: o.Message}
}

// Correctable reports whether the rule offered a correction.
func (o Offense) Correctable() bool { return o.Status != Unsupported }

// Corrected reports whether the correction was applied.
func (o Offense) Corrected() bool { return o.Status == Corrected }

// SortOffenses orders offenses by position, then by rule name.
func SortOffenses(offs []Offense) {
	sort.SliceStable(offs, func(i, j int) bool {
		a, b := offs[i], offs[j]
		if a.Range.Start != b.Range.Start {
			return a.Range.Start < b.Range.Start
		}
		if a.Range.End != b.Range.End {
			return a.Range.End < b.Range.End
		}
		return a.Rule < b.Rule
	})
}
