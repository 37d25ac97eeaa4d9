package cop

import (
	"errors"
	"fmt"

	"github.com/jward/copper/internal/ast"
)

var (
	// ErrDuplicateRule is returned when a rule name is registered twice.
	ErrDuplicateRule = errors.New("cop: duplicate rule")
	// ErrRegistrySealed is returned by Register after Seal.
	ErrRegistrySealed = errors.New("cop: registry is sealed")
	// ErrNoNodeTypes is returned when a rule declares no node types.
	ErrNoNodeTypes = errors.New("cop: rule declares no node types")
)

// RuleEvaluationError records a rule that failed or panicked on a node.
// It affects only that rule on that node.
type RuleEvaluationError struct {
	Rule     string
	NodeType string
	Range    ast.Range
	Err      error
}

func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("cop %s: evaluating %s at %s: %v", e.Rule, e.NodeType, e.Range, e.Err)
}

func (e *RuleEvaluationError) Unwrap() error { return e.Err }
