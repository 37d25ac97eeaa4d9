package ast

// transparentParents pass the question of whether a value is used on to
// their own parent.
var transparentParents = map[string]bool{
	"array": true, "block": true, "defined?": true, "dstr": true, "dsym": true,
	"eflipflop": true, "erange": true, "float": true, "hash": true,
	"iflipflop": true, "irange": true, "not": true, "pair": true,
	"regexp": true, "str": true, "sym": true, "when": true, "xstr": true,
}

// ValueUsed reports whether the value n evaluates to is consumed by the
// surrounding code. When unsure it answers true.
func ValueUsed(n *Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	index := n.Index()

	switch {
	case transparentParents[parent.typ]:
		return ValueUsed(parent)
	case parent.IsType("begin", "kwbegin"):
		// the last expression determines the value of the group
		if index == len(parent.children)-1 {
			return ValueUsed(parent)
		}
		return false
	case parent.IsType("for"):
		// (for <var> <enum> <body>)
		if index == 2 {
			return ValueUsed(parent)
		}
		return true
	case parent.IsType("case", "if"):
		// (if <condition> <then> <else>)
		if index == 0 {
			return true
		}
		return ValueUsed(parent)
	case parent.IsType("while", "until", "while_post", "until_post"):
		// loops always evaluate to nil
		return index == 0
	default:
		return true
	}
}
