package pattern

import "fmt"

type exprKind uint8

const (
	exprType exprKind = iota
	exprWildcard
	exprLiteral
	exprCapture
	exprUnion
	exprAll
	exprNot
	exprSeq
	exprRest
	exprBackref
	exprPredicate
	exprParent
)

// expr is the parsed form of a pattern. Only the fields relevant to kind
// are set.
type expr struct {
	kind  exprKind
	pos   int
	name  string // type or predicate name
	value any    // literal value
	slot  int    // capture or back-reference slot
	head  []string
	subs  []*expr
	args  []*expr
}

type parser struct {
	src      string
	toks     []token
	i        int
	captures int
	backrefs []*expr
	preds    map[string]PredicateFunc
}

func parse(src string, preds map[string]PredicateFunc) (*expr, int, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, 0, err
	}
	p := &parser{src: src, toks: toks, preds: preds}
	if p.peek().kind == tokEOF {
		return nil, 0, p.errorf(p.peek(), "empty pattern")
	}
	root, err := p.parseExpr(false)
	if err != nil {
		return nil, 0, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, 0, p.errorf(tok, "unexpected %s after pattern", tok.kind)
	}
	for _, br := range p.backrefs {
		if br.slot > p.captures {
			return nil, 0, p.errorAt(br.pos, fmt.Sprintf("back-reference %%%d has no matching capture", br.slot))
		}
	}
	return root, p.captures, nil
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	tok := p.toks[p.i]
	if tok.kind != tokEOF {
		p.i++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return p.errorAt(tok.pos, fmt.Sprintf(format, args...))
}

func (p *parser) errorAt(pos int, reason string) error {
	return syntaxErr(p.src, pos, reason)
}

// parseExpr parses one pattern term. Inside a negation captures are not
// allowed since a negated match never binds anything.
func (p *parser) parseExpr(negated bool) (*expr, error) {
	tok := p.next()
	switch tok.kind {
	case tokWildcard:
		return &expr{kind: exprWildcard, pos: tok.pos}, nil
	case tokLiteral:
		return &expr{kind: exprLiteral, pos: tok.pos, value: tok.value}, nil
	case tokBackref:
		e := &expr{kind: exprBackref, pos: tok.pos, slot: tok.value.(int)}
		p.backrefs = append(p.backrefs, e)
		return e, nil
	case tokCaret:
		sub, err := p.parseExpr(negated)
		if err != nil {
			return nil, err
		}
		return &expr{kind: exprParent, pos: tok.pos, subs: []*expr{sub}}, nil
	case tokDollar:
		if negated {
			return nil, p.errorf(tok, "capture inside negation")
		}
		p.captures++
		slot := p.captures
		sub, err := p.parseExpr(negated)
		if err != nil {
			return nil, err
		}
		return &expr{kind: exprCapture, pos: tok.pos, slot: slot, subs: []*expr{sub}}, nil
	case tokBang:
		sub, err := p.parseExpr(true)
		if err != nil {
			return nil, err
		}
		return &expr{kind: exprNot, pos: tok.pos, subs: []*expr{sub}}, nil
	case tokLParen:
		return p.parseSeq(tok, negated)
	case tokLBrace:
		return p.parseUnion(tok, negated)
	case tokLBracket:
		return p.parseAll(tok, negated)
	case tokIdent:
		return p.parseIdent(tok)
	case tokHash:
		return p.parsePredicate(tok, tok.text)
	case tokEllipsis:
		return nil, p.errorf(tok, "'...' is only allowed inside a sequence")
	case tokEOF:
		return nil, p.errorf(tok, "unexpected end of pattern")
	default:
		return nil, p.errorf(tok, "unexpected %s", tok.kind)
	}
}

func (p *parser) parseIdent(tok token) (*expr, error) {
	switch tok.text {
	case "nil":
		return &expr{kind: exprLiteral, pos: tok.pos, value: nil}, nil
	case "true":
		return &expr{kind: exprLiteral, pos: tok.pos, value: true}, nil
	case "false":
		return &expr{kind: exprLiteral, pos: tok.pos, value: false}, nil
	}
	if tok.text[len(tok.text)-1] == '?' {
		return p.parsePredicate(tok, tok.text)
	}
	return &expr{kind: exprType, pos: tok.pos, name: tok.text}, nil
}

func (p *parser) parsePredicate(tok token, name string) (*expr, error) {
	if _, ok := p.preds[name]; !ok {
		return nil, p.errorf(tok, "unknown predicate %q", name)
	}
	e := &expr{kind: exprPredicate, pos: tok.pos, name: name}
	if p.peek().kind != tokLParen {
		return e, nil
	}
	p.next()
	if p.peek().kind == tokRParen {
		p.next()
		return e, nil
	}
	for {
		arg := p.next()
		switch arg.kind {
		case tokLiteral:
			e.args = append(e.args, &expr{kind: exprLiteral, pos: arg.pos, value: arg.value})
		case tokBackref:
			br := &expr{kind: exprBackref, pos: arg.pos, slot: arg.value.(int)}
			p.backrefs = append(p.backrefs, br)
			e.args = append(e.args, br)
		case tokIdent:
			lit, err := p.parseIdent(arg)
			if err != nil {
				return nil, err
			}
			if lit.kind != exprLiteral {
				return nil, p.errorf(arg, "predicate arguments must be literals or back-references")
			}
			e.args = append(e.args, lit)
		default:
			return nil, p.errorf(arg, "predicate arguments must be literals or back-references")
		}
		switch sep := p.next(); sep.kind {
		case tokComma:
			continue
		case tokRParen:
			return e, nil
		default:
			return nil, p.errorf(sep, "expected ',' or ')' in predicate arguments")
		}
	}
}

// parseSeq parses `(head children...)`. The head is restricted to a type
// name, a wildcard, or a union of those.
func (p *parser) parseSeq(open token, negated bool) (*expr, error) {
	e := &expr{kind: exprSeq, pos: open.pos}
	head := p.next()
	switch head.kind {
	case tokIdent:
		e.head = []string{head.text}
	case tokWildcard:
	case tokLBrace:
		for {
			t := p.next()
			if t.kind == tokRBrace {
				break
			}
			if t.kind != tokIdent {
				return nil, p.errorf(t, "sequence head union may only contain node types")
			}
			e.head = append(e.head, t.text)
		}
		if len(e.head) == 0 {
			return nil, p.errorf(head, "empty union")
		}
	case tokRParen:
		return nil, p.errorf(head, "empty sequence")
	default:
		return nil, p.errorf(head, "sequence must start with a node type")
	}

	rest := false
	for {
		tok := p.peek()
		switch tok.kind {
		case tokRParen:
			p.next()
			return e, nil
		case tokEOF:
			return nil, p.errorf(open, "unclosed '('")
		case tokEllipsis:
			p.next()
			if rest {
				return nil, p.errorf(tok, "only one '...' is allowed per sequence")
			}
			rest = true
			e.subs = append(e.subs, &expr{kind: exprRest, pos: tok.pos})
		default:
			sub, err := p.parseExpr(negated)
			if err != nil {
				return nil, err
			}
			e.subs = append(e.subs, sub)
		}
	}
}

// parseUnion parses `{a b ...}`. Each branch must bind the same number of
// captures so the slots line up no matter which branch wins.
func (p *parser) parseUnion(open token, negated bool) (*expr, error) {
	e := &expr{kind: exprUnion, pos: open.pos}
	base := p.captures
	end := -1
	for {
		tok := p.peek()
		switch tok.kind {
		case tokRBrace:
			p.next()
			if len(e.subs) == 0 {
				return nil, p.errorf(open, "empty union")
			}
			p.captures = end
			return e, nil
		case tokEOF:
			return nil, p.errorf(open, "unclosed '{'")
		}
		p.captures = base
		sub, err := p.parseExpr(negated)
		if err != nil {
			return nil, err
		}
		if end >= 0 && p.captures != end {
			return nil, p.errorf(tok, "union branches must have the same number of captures")
		}
		end = p.captures
		e.subs = append(e.subs, sub)
	}
}

func (p *parser) parseAll(open token, negated bool) (*expr, error) {
	e := &expr{kind: exprAll, pos: open.pos}
	for {
		tok := p.peek()
		switch tok.kind {
		case tokRBracket:
			p.next()
			if len(e.subs) == 0 {
				return nil, p.errorf(open, "empty conjunction")
			}
			return e, nil
		case tokEOF:
			return nil, p.errorf(open, "unclosed '['")
		}
		sub, err := p.parseExpr(negated)
		if err != nil {
			return nil, err
		}
		e.subs = append(e.subs, sub)
	}
}
