package cops

import (
	"github.com/jward/copper/internal/ast"
	"github.com/jward/copper/internal/cop"
	"github.com/jward/copper/internal/pattern"
)

const redundantMatchMsg = "Use `=~` in places where the `MatchData` returned by `#match` will not be used."

var (
	// match is a generic name, so only flag it with a string or regexp
	// literal on one side
	matchCall = pattern.MustCompile(`{(send {str regexp} :match _) (send _ :match {str regexp})}`)

	onlyTruthinessMatters = pattern.MustCompile(`^({if while until case while_post until_post} equal?(%0) ...)`)
)

// RedundantMatch flags String#match and Regexp#match calls whose MatchData
// is thrown away, where `=~` would do.
//
//	do_something if str.match(/regex/)  # bad
//	do_something if str =~ /regex/      # good
//	method(str.match(/regex/))          # good, the result is used
type RedundantMatch struct {
	cop.Base
}

// NewRedundantMatch returns the Performance/RedundantMatch cop.
func NewRedundantMatch() *RedundantMatch {
	return &RedundantMatch{Base: cop.Base{
		RuleName:        "Performance/RedundantMatch",
		DefaultSeverity: cop.Convention,
		Types:           []string{"send"},
		Desc:            "Use `=~` instead of `String#match` or `Regexp#match` in a context where the returned `MatchData` is not needed.",
		Autocorrect:     true,
	}}
}

func (r *RedundantMatch) Check(ctx *cop.Context, n *ast.Node) error {
	if !matchCall.Matches(n) {
		return nil
	}
	if ast.ValueUsed(n) && !onlyTruthinessMatters.Matches(n) {
		return nil
	}
	ctx.AddOffense(n.Range(), redundantMatchMsg, func(e *cop.Editor) error {
		// match(/re/) with an implicit receiver has nothing to put left of =~
		recv := n.Receiver()
		args := n.Arguments()
		if recv == nil || len(args) != 1 {
			return nil
		}
		arg, ok := args[0].(*ast.Node)
		if !ok {
			return nil
		}
		e.Replace(n.Range(), recv.Source()+" =~ "+arg.Source())
		return nil
	})
	return nil
}
