package cops

import (
	"fmt"

	"github.com/jward/copper/internal/ast"
	"github.com/jward/copper/internal/cop"
	"github.com/jward/copper/internal/pattern"
)

var identicalOperands = pattern.MustCompile(
	`{(send $_ {:== :!= :=== :<=> :=~ :> :>= :< :<= :| :^ :&} %1) ({and or} $_ %1)}`,
)

// BinaryOperatorWithIdenticalOperands flags comparisons and boolean
// operators whose two sides are the same expression, such as `x == x`.
type BinaryOperatorWithIdenticalOperands struct {
	cop.Base
}

// NewBinaryOperatorWithIdenticalOperands returns the
// Lint/BinaryOperatorWithIdenticalOperands cop.
func NewBinaryOperatorWithIdenticalOperands() *BinaryOperatorWithIdenticalOperands {
	return &BinaryOperatorWithIdenticalOperands{Base: cop.Base{
		RuleName:        "Lint/BinaryOperatorWithIdenticalOperands",
		DefaultSeverity: cop.Warning,
		Types:           []string{"send", "and", "or"},
		Desc:            "Checks for places where binary operator has identical operands.",
	}}
}

func (r *BinaryOperatorWithIdenticalOperands) Check(ctx *cop.Context, n *ast.Node) error {
	if !identicalOperands.Matches(n) {
		return nil
	}
	ctx.AddOffense(n.Range(), fmt.Sprintf("Binary operator `%s` has identical operands.", operator(n)), nil)
	return nil
}

func operator(n *ast.Node) string {
	switch n.Type() {
	case "and":
		return "&&"
	case "or":
		return "||"
	}
	return string(n.MethodName())
}
