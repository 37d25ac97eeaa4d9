package parser

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/copper/internal/ast"
)

// scope tracks the local variables visible at a point in the program, so
// a bare identifier can be told apart from a method call.
type scope struct {
	vars   map[string]bool
	parent *scope
}

func (s *scope) declare(name string) { s.vars[name] = true }

func (s *scope) has(name string) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.vars[name] {
			return true
		}
	}
	return false
}

// rubyConverter rewrites a tree-sitter-ruby CST into parser-style nodes:
// (send recv :meth args...), (if cond then else), (regexp (str ..) (regopt))
// and so on. Kinds without a dedicated mapping keep their tree-sitter type
// and their converted named children.
type rubyConverter struct {
	src   []byte
	b     *ast.Builder
	scope *scope
	err   error
}

func newRubyConverter(buf *ast.Buffer) *rubyConverter {
	return &rubyConverter{
		src:   buf.Bytes(),
		b:     ast.NewBuilder(buf),
		scope: &scope{vars: make(map[string]bool)},
	}
}

func rangeOf(n *sitter.Node) ast.Range {
	return ast.Range{Start: int(n.StartByte()), End: int(n.EndByte())}
}

func (c *rubyConverter) text(n *sitter.Node) string { return n.Content(c.src) }

// mk builds a node, widening rng to cover every child node. Typed nil
// children are stored as plain nil.
func (c *rubyConverter) mk(typ string, rng ast.Range, children ...any) *ast.Node {
	for i, ch := range children {
		n, ok := ch.(*ast.Node)
		if !ok {
			continue
		}
		if n == nil {
			children[i] = nil
			continue
		}
		rng = rng.Join(n.Range())
	}
	n, err := c.b.Node(typ, rng, children...)
	if err != nil {
		if c.err == nil {
			c.err = err
		}
		return nil
	}
	return n
}

// enter opens a scope and returns the function that closes it. Method and
// class bodies start from an empty scope, blocks see their enclosing one.
func (c *rubyConverter) enter(isolated bool) func() {
	prev := c.scope
	parent := prev
	if isolated {
		parent = nil
	}
	c.scope = &scope{vars: make(map[string]bool), parent: parent}
	return func() { c.scope = prev }
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		if ch == nil || ch.Type() == "comment" {
			continue
		}
		out = append(out, ch)
	}
	return out
}

func same(a, b *sitter.Node) bool {
	return a != nil && b != nil &&
		a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func without(nodes []*sitter.Node, drop ...*sitter.Node) []*sitter.Node {
	out := nodes[:0:0]
outer:
	for _, n := range nodes {
		for _, d := range drop {
			if same(n, d) {
				continue outer
			}
		}
		out = append(out, n)
	}
	return out
}

func firstOfType(nodes []*sitter.Node, types ...string) *sitter.Node {
	for _, n := range nodes {
		for _, t := range types {
			if n.Type() == t {
				return n
			}
		}
	}
	return nil
}

// bodyContainers hold statement lists that flatten into their owner.
var bodyContainers = map[string]bool{
	"body_statement": true,
	"block_body":     true,
	"then":           true,
	"do":             true,
}

var skipped = map[string]bool{
	"comment":         true,
	"empty_statement": true,
	"heredoc_body":    true,
	"uninterpreted":   true,
}

func (c *rubyConverter) statements(nodes []*sitter.Node) []*ast.Node {
	var out []*ast.Node
	for _, n := range nodes {
		switch {
		case bodyContainers[n.Type()]:
			out = append(out, c.statements(namedChildren(n))...)
		case skipped[n.Type()]:
		default:
			if conv := c.expr(n); conv != nil {
				out = append(out, conv)
			}
		}
	}
	return out
}

// body folds a statement list into nil, the single statement, or a begin.
func (c *rubyConverter) body(nodes []*sitter.Node) *ast.Node {
	stmts := c.statements(nodes)
	switch len(stmts) {
	case 0:
		return nil
	case 1:
		return stmts[0]
	}
	return c.mk("begin", stmts[0].Range(), nodesToAny(stmts)...)
}

func nodesToAny(nodes []*ast.Node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

func (c *rubyConverter) exprs(nodes []*sitter.Node) []any {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		if skipped[n.Type()] {
			continue
		}
		if conv := c.expr(n); conv != nil {
			out = append(out, conv)
		}
	}
	return out
}

func (c *rubyConverter) program(root *sitter.Node) *ast.Node {
	return c.body(namedChildren(root))
}

func (c *rubyConverter) expr(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	rng := rangeOf(n)
	switch n.Type() {
	case "comment", "empty_statement", "heredoc_body":
		return nil
	case "nil", "true", "false", "self":
		return c.mk(n.Type(), rng)
	case "integer":
		return c.number("int", c.text(n), rng)
	case "float":
		return c.number("float", c.text(n), rng)
	case "identifier":
		name := c.text(n)
		if c.scope.has(name) {
			return c.mk("lvar", rng, ast.Symbol(name))
		}
		return c.mk("send", rng, nil, ast.Symbol(name))
	case "constant":
		return c.mk("const", rng, nil, ast.Symbol(c.text(n)))
	case "scope_resolution":
		return c.mk("const", rng, c.expr(n.ChildByFieldName("scope")), ast.Symbol(c.fieldText(n, "name")))
	case "instance_variable":
		return c.mk("ivar", rng, ast.Symbol(c.text(n)))
	case "class_variable":
		return c.mk("cvar", rng, ast.Symbol(c.text(n)))
	case "global_variable":
		return c.mk("gvar", rng, ast.Symbol(c.text(n)))
	case "string", "bare_string":
		return c.str(n)
	case "chained_string":
		return c.mk("dstr", rng, c.exprs(namedChildren(n))...)
	case "simple_symbol", "symbol":
		return c.mk("sym", rng, ast.Symbol(strings.TrimPrefix(c.text(n), ":")))
	case "hash_key_symbol", "bare_symbol":
		return c.mk("sym", rng, ast.Symbol(c.text(n)))
	case "delimited_symbol":
		return c.dsym(n)
	case "regex":
		return c.regexp(n)
	case "array", "string_array", "symbol_array":
		return c.mk("array", rng, c.exprs(namedChildren(n))...)
	case "hash":
		return c.mk("hash", rng, c.exprs(namedChildren(n))...)
	case "pair":
		return c.pair(n)
	case "parenthesized_statements":
		return c.mk("begin", rng, nodesToAny(c.statements(namedChildren(n)))...)
	case "begin":
		return c.mk("kwbegin", rng, nodesToAny(c.statements(namedChildren(n)))...)
	case "interpolation":
		return c.mk("begin", rng, nodesToAny(c.statements(namedChildren(n)))...)
	case "call":
		return c.call(n)
	case "element_reference":
		obj := n.ChildByFieldName("object")
		children := []any{c.expr(obj), ast.Symbol("[]")}
		children = append(children, c.exprs(without(namedChildren(n), obj))...)
		return c.mk("send", rng, children...)
	case "assignment":
		return c.assignment(n)
	case "operator_assignment":
		return c.opAssignment(n)
	case "binary":
		return c.binary(n)
	case "unary":
		return c.unary(n)
	case "if", "elsif":
		return c.conditional(n, false)
	case "unless":
		return c.conditional(n, true)
	case "conditional":
		// the ternary operator is an if
		return c.conditional(n, false)
	case "if_modifier", "unless_modifier":
		body := c.expr(n.ChildByFieldName("body"))
		cond := c.expr(n.ChildByFieldName("condition"))
		if n.Type() == "unless_modifier" {
			return c.mk("if", rng, cond, nil, body)
		}
		return c.mk("if", rng, cond, body, nil)
	case "while", "until":
		cond := c.expr(n.ChildByFieldName("condition"))
		body := c.body(namedChildren(n.ChildByFieldName("body")))
		return c.mk(n.Type(), rng, cond, body)
	case "while_modifier", "until_modifier":
		return c.loopModifier(n)
	case "for":
		return c.forLoop(n)
	case "case":
		return c.caseExpr(n)
	case "return", "break", "next", "yield":
		return c.mk(n.Type(), rng, c.argumentsOf(n)...)
	case "super":
		if firstOfType(namedChildren(n), "argument_list") == nil {
			return c.mk("zsuper", rng)
		}
		return c.mk("super", rng, c.argumentsOf(n)...)
	case "block_argument":
		return c.mk("block_pass", rng, c.exprs(namedChildren(n))...)
	case "splat_argument":
		return c.mk("splat", rng, c.exprs(namedChildren(n))...)
	case "hash_splat_argument":
		return c.mk("kwsplat", rng, c.exprs(namedChildren(n))...)
	case "range":
		typ := "irange"
		if op := n.ChildByFieldName("operator"); op != nil && c.text(op) == "..." {
			typ = "erange"
		}
		return c.mk(typ, rng, c.expr(n.ChildByFieldName("begin")), c.expr(n.ChildByFieldName("end")))
	case "method":
		return c.def(n, nil)
	case "singleton_method":
		return c.def(n, n.ChildByFieldName("object"))
	case "class", "module", "singleton_class":
		return c.namespace(n)
	case "heredoc_beginning":
		return c.mk("dstr", rng)
	}
	return c.mk(n.Type(), rng, c.exprs(namedChildren(n))...)
}

func (c *rubyConverter) fieldText(n *sitter.Node, field string) string {
	if f := n.ChildByFieldName(field); f != nil {
		return c.text(f)
	}
	return ""
}

func (c *rubyConverter) number(typ, text string, rng ast.Range) *ast.Node {
	clean := strings.ReplaceAll(text, "_", "")
	switch typ {
	case "int":
		if v, err := strconv.ParseInt(clean, 0, 64); err == nil {
			return c.mk(typ, rng, v)
		}
	case "float":
		if v, err := strconv.ParseFloat(clean, 64); err == nil {
			return c.mk(typ, rng, v)
		}
	}
	// out of range or an unusual radix: keep the literal text
	return c.mk(typ, rng, text)
}

// argumentsOf converts the argument_list child of n, if any.
func (c *rubyConverter) argumentsOf(n *sitter.Node) []any {
	list := firstOfType(namedChildren(n), "argument_list")
	if list == nil {
		return nil
	}
	return c.arguments(list)
}

// arguments converts a call's argument list. Trailing key/value pairs are
// gathered into one implicit hash.
func (c *rubyConverter) arguments(list *sitter.Node) []any {
	var out, pairs []any
	var pairRng ast.Range
	flush := func() {
		if len(pairs) > 0 {
			out = append(out, c.mk("hash", pairRng, pairs...))
			pairs = nil
		}
	}
	for _, a := range namedChildren(list) {
		conv := c.expr(a)
		if conv == nil {
			continue
		}
		if a.Type() == "pair" || a.Type() == "hash_splat_argument" {
			if len(pairs) == 0 {
				pairRng = rangeOf(a)
			}
			pairs = append(pairs, conv)
			continue
		}
		flush()
		out = append(out, conv)
	}
	flush()
	return out
}

func (c *rubyConverter) call(n *sitter.Node) *ast.Node {
	recvNode := n.ChildByFieldName("receiver")
	methodNode := n.ChildByFieldName("method")
	argsNode := n.ChildByFieldName("arguments")
	blockNode := n.ChildByFieldName("block")

	typ := "send"
	if op := n.ChildByFieldName("operator"); op != nil && c.text(op) == "&." {
		typ = "csend"
	}
	name := "call"
	if methodNode != nil {
		name = c.text(methodNode)
	}

	children := []any{c.expr(recvNode), ast.Symbol(name)}
	if argsNode != nil {
		children = append(children, c.arguments(argsNode)...)
	}

	// the send stops where the attached block starts
	sendRng := ast.Range{Start: int(n.StartByte()), End: int(n.StartByte())}
	for _, part := range []*sitter.Node{recvNode, methodNode, argsNode} {
		if part != nil && int(part.EndByte()) > sendRng.End {
			sendRng.End = int(part.EndByte())
		}
	}
	if blockNode == nil {
		sendRng = rangeOf(n)
	}
	send := c.mk(typ, sendRng, children...)
	if blockNode == nil {
		return send
	}

	defer c.enter(false)()
	parts := namedChildren(blockNode)
	params := firstOfType(parts, "block_parameters")
	args := c.params(params, int(blockNode.StartByte()))
	body := c.body(without(parts, params))
	return c.mk("block", rangeOf(n), send, args, body)
}

// params converts a parameter list and declares its names in the current
// scope. A missing list yields an empty args node at offset at.
func (c *rubyConverter) params(list *sitter.Node, at int) *ast.Node {
	if list == nil {
		return c.mk("args", ast.Range{Start: at, End: at})
	}
	var children []any
	for _, p := range namedChildren(list) {
		if conv := c.param(p); conv != nil {
			children = append(children, conv)
		}
	}
	return c.mk("args", rangeOf(list), children...)
}

func (c *rubyConverter) param(p *sitter.Node) *ast.Node {
	rng := rangeOf(p)
	named := func(typ string, extra ...any) *ast.Node {
		name := c.fieldText(p, "name")
		if name == "" {
			return c.mk(typ, rng, extra...)
		}
		c.scope.declare(name)
		return c.mk(typ, rng, append([]any{ast.Symbol(name)}, extra...)...)
	}
	switch p.Type() {
	case "identifier":
		name := c.text(p)
		c.scope.declare(name)
		return c.mk("arg", rng, ast.Symbol(name))
	case "optional_parameter":
		return named("optarg", c.expr(p.ChildByFieldName("value")))
	case "keyword_parameter":
		if v := p.ChildByFieldName("value"); v != nil {
			return named("kwoptarg", c.expr(v))
		}
		return named("kwarg")
	case "splat_parameter":
		return named("restarg")
	case "hash_splat_parameter":
		return named("kwrestarg")
	case "block_parameter":
		return named("blockarg")
	case "destructured_parameter":
		var children []any
		for _, inner := range namedChildren(p) {
			if conv := c.param(inner); conv != nil {
				children = append(children, conv)
			}
		}
		return c.mk("mlhs", rng, children...)
	case "forward_parameter":
		return c.mk("forward_arg", rng)
	}
	return c.mk(p.Type(), rng, c.exprs(namedChildren(p))...)
}

// target converts an assignment target into the node type and the leading
// children of its assignment node. Locals are declared here, before the
// value is converted.
func (c *rubyConverter) target(n *sitter.Node) (string, []any) {
	switch n.Type() {
	case "identifier":
		name := c.text(n)
		c.scope.declare(name)
		return "lvasgn", []any{ast.Symbol(name)}
	case "instance_variable":
		return "ivasgn", []any{ast.Symbol(c.text(n))}
	case "class_variable":
		return "cvasgn", []any{ast.Symbol(c.text(n))}
	case "global_variable":
		return "gvasgn", []any{ast.Symbol(c.text(n))}
	case "constant":
		return "casgn", []any{nil, ast.Symbol(c.text(n))}
	case "scope_resolution":
		return "casgn", []any{c.expr(n.ChildByFieldName("scope")), ast.Symbol(c.fieldText(n, "name"))}
	case "call":
		typ := "send"
		if op := n.ChildByFieldName("operator"); op != nil && c.text(op) == "&." {
			typ = "csend"
		}
		return typ, []any{c.expr(n.ChildByFieldName("receiver")), ast.Symbol(c.fieldText(n, "method") + "=")}
	case "element_reference":
		obj := n.ChildByFieldName("object")
		out := []any{c.expr(obj), ast.Symbol("[]=")}
		return "send", append(out, c.exprs(without(namedChildren(n), obj))...)
	case "left_assignment_list", "destructured_left_assignment":
		return "mlhs", c.mlhsTargets(n)
	case "rest_assignment":
		var inner []any
		if parts := namedChildren(n); len(parts) > 0 {
			typ, lead := c.target(parts[0])
			inner = append(inner, c.mk(typ, rangeOf(parts[0]), lead...))
		}
		return "splat", inner
	}
	return "asgn", []any{c.expr(n)}
}

func (c *rubyConverter) mlhsTargets(n *sitter.Node) []any {
	var out []any
	for _, t := range namedChildren(n) {
		typ, lead := c.target(t)
		out = append(out, c.mk(typ, rangeOf(t), lead...))
	}
	return out
}

func (c *rubyConverter) value(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "right_assignment_list" {
		return c.mk("array", rangeOf(n), c.exprs(namedChildren(n))...)
	}
	return c.expr(n)
}

func (c *rubyConverter) assignment(n *sitter.Node) *ast.Node {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	rng := rangeOf(n)
	if left == nil {
		return c.mk("asgn", rng, c.value(right))
	}
	typ, lead := c.target(left)
	if typ == "mlhs" {
		lhs := c.mk("mlhs", rangeOf(left), lead...)
		return c.mk("masgn", rng, lhs, c.value(right))
	}
	return c.mk(typ, rng, append(lead, c.value(right))...)
}

func (c *rubyConverter) opAssignment(n *sitter.Node) *ast.Node {
	left := n.ChildByFieldName("left")
	op := c.fieldText(n, "operator")
	rng := rangeOf(n)

	typ, lead := c.target(left)
	lhs := c.mk(typ, rangeOf(left), lead...)
	value := c.expr(n.ChildByFieldName("right"))
	switch op {
	case "||=":
		return c.mk("or_asgn", rng, lhs, value)
	case "&&=":
		return c.mk("and_asgn", rng, lhs, value)
	}
	return c.mk("op_asgn", rng, lhs, ast.Symbol(strings.TrimSuffix(op, "=")), value)
}

func (c *rubyConverter) binary(n *sitter.Node) *ast.Node {
	rng := rangeOf(n)
	left := c.expr(n.ChildByFieldName("left"))
	op := c.fieldText(n, "operator")
	right := c.expr(n.ChildByFieldName("right"))
	switch op {
	case "and", "&&":
		return c.mk("and", rng, left, right)
	case "or", "||":
		return c.mk("or", rng, left, right)
	}
	return c.mk("send", rng, left, ast.Symbol(op), right)
}

func (c *rubyConverter) unary(n *sitter.Node) *ast.Node {
	rng := rangeOf(n)
	op := c.fieldText(n, "operator")
	operand := n.ChildByFieldName("operand")
	switch op {
	case "!", "not":
		return c.mk("send", rng, c.expr(operand), ast.Symbol("!"))
	case "defined?":
		return c.mk("defined?", rng, c.expr(operand))
	case "-":
		if operand != nil && (operand.Type() == "integer" || operand.Type() == "float") {
			typ := "int"
			if operand.Type() == "float" {
				typ = "float"
			}
			return c.number(typ, "-"+c.text(operand), rng)
		}
		return c.mk("send", rng, c.expr(operand), ast.Symbol("-@"))
	case "+":
		return c.mk("send", rng, c.expr(operand), ast.Symbol("+@"))
	}
	return c.mk("send", rng, c.expr(operand), ast.Symbol(op))
}

// conditional handles if, elsif, unless and the ternary operator. unless
// swaps its branches so every form reads (if cond then else).
func (c *rubyConverter) conditional(n *sitter.Node, negated bool) *ast.Node {
	cond := c.expr(n.ChildByFieldName("condition"))
	then := c.branch(n.ChildByFieldName("consequence"))
	alt := c.branch(n.ChildByFieldName("alternative"))
	if negated {
		then, alt = alt, then
	}
	return c.mk("if", rangeOf(n), cond, then, alt)
}

func (c *rubyConverter) branch(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "then", "else":
		return c.body(namedChildren(n))
	}
	return c.expr(n)
}

// loopModifier handles `body while cond`. A begin...end body runs before
// the condition is first checked, which makes it a post-condition loop.
func (c *rubyConverter) loopModifier(n *sitter.Node) *ast.Node {
	typ := strings.TrimSuffix(n.Type(), "_modifier")
	bodyNode := n.ChildByFieldName("body")
	body := c.expr(bodyNode)
	cond := c.expr(n.ChildByFieldName("condition"))
	if bodyNode != nil && bodyNode.Type() == "begin" {
		typ += "_post"
	}
	return c.mk(typ, rangeOf(n), cond, body)
}

func (c *rubyConverter) forLoop(n *sitter.Node) *ast.Node {
	pat := n.ChildByFieldName("pattern")
	var iter *ast.Node
	if pat != nil {
		typ, lead := c.target(pat)
		iter = c.mk(typ, rangeOf(pat), lead...)
	}
	value := n.ChildByFieldName("value")
	if value != nil && value.Type() == "in" {
		if inner := namedChildren(value); len(inner) > 0 {
			value = inner[0]
		}
	}
	enum := c.expr(value)
	body := c.body(namedChildren(n.ChildByFieldName("body")))
	return c.mk("for", rangeOf(n), iter, enum, body)
}

// caseExpr builds (case subject when... else).
func (c *rubyConverter) caseExpr(n *sitter.Node) *ast.Node {
	subjectNode := n.ChildByFieldName("value")
	children := []any{c.expr(subjectNode)}
	var alt *ast.Node
	for _, ch := range without(namedChildren(n), subjectNode) {
		switch ch.Type() {
		case "when":
			children = append(children, c.when(ch))
		case "else":
			alt = c.body(namedChildren(ch))
		}
	}
	return c.mk("case", rangeOf(n), append(children, alt)...)
}

// when builds (when pattern... body).
func (c *rubyConverter) when(n *sitter.Node) *ast.Node {
	var children []any
	var body *ast.Node
	for _, ch := range namedChildren(n) {
		switch ch.Type() {
		case "pattern":
			children = append(children, c.exprs(namedChildren(ch))...)
		case "then":
			body = c.body(namedChildren(ch))
		default:
			if conv := c.expr(ch); conv != nil {
				children = append(children, conv)
			}
		}
	}
	return c.mk("when", rangeOf(n), append(children, body)...)
}

// def builds (def :name args body), or (defs recv :name args body) when
// object is set.
func (c *rubyConverter) def(n *sitter.Node, object *sitter.Node) *ast.Node {
	var recv *ast.Node
	if object != nil {
		recv = c.expr(object)
	}
	nameNode := n.ChildByFieldName("name")
	name := ""
	at := int(n.StartByte())
	if nameNode != nil {
		name = c.text(nameNode)
		at = int(nameNode.EndByte())
	}

	defer c.enter(true)()
	parts := namedChildren(n)
	params := n.ChildByFieldName("parameters")
	if params == nil {
		params = firstOfType(parts, "method_parameters")
	}
	args := c.params(params, at)
	body := c.body(without(parts, nameNode, params, object))

	if object != nil {
		return c.mk("defs", rangeOf(n), recv, ast.Symbol(name), args, body)
	}
	return c.mk("def", rangeOf(n), ast.Symbol(name), args, body)
}

// namespace builds (class name super body), (module name body) and
// (sclass expr body).
func (c *rubyConverter) namespace(n *sitter.Node) *ast.Node {
	parts := namedChildren(n)
	rng := rangeOf(n)
	switch n.Type() {
	case "singleton_class":
		valueNode := n.ChildByFieldName("value")
		value := c.expr(valueNode)
		defer c.enter(true)()
		return c.mk("sclass", rng, value, c.body(without(parts, valueNode)))
	case "module":
		nameNode := n.ChildByFieldName("name")
		name := c.expr(nameNode)
		defer c.enter(true)()
		return c.mk("module", rng, name, c.body(without(parts, nameNode)))
	}
	nameNode := n.ChildByFieldName("name")
	superNode := n.ChildByFieldName("superclass")
	name := c.expr(nameNode)
	var super *ast.Node
	if superNode != nil {
		if inner := namedChildren(superNode); len(inner) > 0 {
			super = c.expr(inner[0])
		}
	}
	defer c.enter(true)()
	return c.mk("class", rng, name, super, c.body(without(parts, nameNode, superNode)))
}

func (c *rubyConverter) pair(n *sitter.Node) *ast.Node {
	keyNode := n.ChildByFieldName("key")
	var key *ast.Node
	if keyNode != nil && keyNode.Type() == "hash_key_symbol" {
		key = c.mk("sym", rangeOf(keyNode), ast.Symbol(c.text(keyNode)))
	} else {
		key = c.expr(keyNode)
	}
	return c.mk("pair", rangeOf(n), key, c.expr(n.ChildByFieldName("value")))
}

// strPart is a run of literal text or one interpolation.
type strPart struct {
	rng    ast.Range
	text   string
	interp *sitter.Node
}

// strParts splits a string-like node into literal runs and
// interpolations. Escapes are decoded unless raw is set.
func (c *rubyConverter) strParts(n *sitter.Node, raw bool) []strPart {
	var parts []strPart
	appendText := func(rng ast.Range, text string) {
		if k := len(parts) - 1; k >= 0 && parts[k].interp == nil && parts[k].rng.End == rng.Start {
			parts[k].rng.End = rng.End
			parts[k].text += text
			return
		}
		parts = append(parts, strPart{rng: rng, text: text})
	}
	for _, ch := range namedChildren(n) {
		switch ch.Type() {
		case "string_content", "heredoc_content":
			appendText(rangeOf(ch), c.text(ch))
		case "escape_sequence":
			text := c.text(ch)
			if !raw {
				text = unescape(text)
			}
			appendText(rangeOf(ch), text)
		case "interpolation":
			parts = append(parts, strPart{rng: rangeOf(ch), interp: ch})
		}
	}
	return parts
}

func (c *rubyConverter) partNodes(parts []strPart) []any {
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		if p.interp != nil {
			out = append(out, c.expr(p.interp))
			continue
		}
		out = append(out, c.mk("str", p.rng, p.text))
	}
	return out
}

func interpolated(parts []strPart) bool {
	for _, p := range parts {
		if p.interp != nil {
			return true
		}
	}
	return false
}

func joinText(parts []strPart) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.text)
	}
	return b.String()
}

func (c *rubyConverter) str(n *sitter.Node) *ast.Node {
	src := c.text(n)
	raw := strings.HasPrefix(src, "'") || strings.HasPrefix(src, "%q")
	parts := c.strParts(n, raw)
	if interpolated(parts) {
		return c.mk("dstr", rangeOf(n), c.partNodes(parts)...)
	}
	return c.mk("str", rangeOf(n), joinText(parts))
}

func (c *rubyConverter) dsym(n *sitter.Node) *ast.Node {
	parts := c.strParts(n, false)
	if interpolated(parts) {
		return c.mk("dsym", rangeOf(n), c.partNodes(parts)...)
	}
	return c.mk("sym", rangeOf(n), ast.Symbol(joinText(parts)))
}

// regexp builds (regexp (str ..) ... (regopt :flag...)). Escapes stay as
// written since they mean something to the regexp engine.
func (c *rubyConverter) regexp(n *sitter.Node) *ast.Node {
	children := c.partNodes(c.strParts(n, true))

	src := c.text(n)
	i := len(src)
	for i > 0 && src[i-1] >= 'a' && src[i-1] <= 'z' {
		i--
	}
	flags := src[i:]
	var opts []any
	for _, f := range flags {
		opts = append(opts, ast.Symbol(string(f)))
	}
	end := int(n.EndByte())
	children = append(children, c.mk("regopt", ast.Range{Start: end - len(flags), End: end}, opts...))
	return c.mk("regexp", rangeOf(n), children...)
}

var escapes = map[byte]string{
	'n': "\n", 't': "\t", 'r': "\r", 's': " ", '0': "\x00", 'e': "\x1b",
	'a': "\a", 'b': "\b", 'f': "\f", 'v': "\v",
}

// unescape decodes a single double-quoted escape sequence. Anything
// unknown stands for itself.
func unescape(seq string) string {
	if len(seq) < 2 || seq[0] != '\\' {
		return seq
	}
	if s, ok := escapes[seq[1]]; ok && len(seq) == 2 {
		return s
	}
	switch seq[1] {
	case 'u':
		if v, err := strconv.ParseUint(strings.Trim(seq[2:], "{}"), 16, 32); err == nil {
			return string(rune(v))
		}
	case 'x':
		if v, err := strconv.ParseUint(seq[2:], 16, 8); err == nil {
			return string([]byte{byte(v)})
		}
	}
	return seq[1:]
}
