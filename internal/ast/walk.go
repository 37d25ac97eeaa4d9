package ast

// Walk visits n and its descendants in pre-order, depth first. When fn
// returns false the node's children are skipped.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		if child, ok := c.(*Node); ok {
			Walk(child, fn)
		}
	}
}

// Ancestors returns the chain of enclosing nodes, nearest first.
func Ancestors(n *Node) []*Node {
	var out []*Node
	for p := n.Parent(); p != nil; p = p.Parent() {
		out = append(out, p)
	}
	return out
}

// Equal reports structural equality: same type and pairwise equal children
// for nodes, ordinary equality for literal values. Ranges are ignored.
func Equal(a, b any) bool {
	na, aIsNode := a.(*Node)
	nb, bIsNode := b.(*Node)
	if aIsNode != bIsNode {
		return false
	}
	if !aIsNode {
		return a == b
	}
	if na == nb {
		return true
	}
	if na == nil || nb == nil {
		return false
	}
	if na.typ != nb.typ || len(na.children) != len(nb.children) {
		return false
	}
	for i := range na.children {
		if !Equal(na.children[i], nb.children[i]) {
			return false
		}
	}
	return true
}
