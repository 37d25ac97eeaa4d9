package pattern

import (
	"strconv"
	"strings"

	"github.com/jward/copper/internal/ast"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokCaret
	tokDollar
	tokBang
	tokComma
	tokEllipsis
	tokWildcard
	tokIdent
	tokHash
	tokBackref
	tokLiteral
)

var tokenNames = map[tokenKind]string{
	tokEOF:      "end of pattern",
	tokLParen:   "'('",
	tokRParen:   "')'",
	tokLBrace:   "'{'",
	tokRBrace:   "'}'",
	tokLBracket: "'['",
	tokRBracket: "']'",
	tokCaret:    "'^'",
	tokDollar:   "'$'",
	tokBang:     "'!'",
	tokComma:    "','",
	tokEllipsis: "'...'",
	tokWildcard: "wildcard",
	tokIdent:    "identifier",
	tokHash:     "predicate reference",
	tokBackref:  "back-reference",
	tokLiteral:  "literal",
}

func (k tokenKind) String() string { return tokenNames[k] }

type token struct {
	kind  tokenKind
	text  string
	pos   int
	value any // literal value or back-reference slot
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '{', '}', '[', ']', ',':
		return true
	}
	return false
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// lex splits pattern source into tokens.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		start := i
		single := func(k tokenKind) {
			toks = append(toks, token{kind: k, text: src[i : i+1], pos: i})
			i++
		}
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			single(tokLParen)
		case c == ')':
			single(tokRParen)
		case c == '{':
			single(tokLBrace)
		case c == '}':
			single(tokRBrace)
		case c == '[':
			single(tokLBracket)
		case c == ']':
			single(tokRBracket)
		case c == '^':
			single(tokCaret)
		case c == '$':
			single(tokDollar)
		case c == '!':
			single(tokBang)
		case c == ',':
			single(tokComma)
		case c == '.':
			if !strings.HasPrefix(src[i:], "...") {
				return nil, syntaxErr(src, i, "unexpected '.'")
			}
			toks = append(toks, token{kind: tokEllipsis, text: "...", pos: i})
			i += 3
		case c == ':':
			i++
			if strings.HasPrefix(src[i:], "[]") {
				// index operators :[] and :[]=
				i += 2
			}
			for i < len(src) && !isDelimiter(src[i]) {
				i++
			}
			if i == start+1 {
				return nil, syntaxErr(src, start, "empty symbol")
			}
			toks = append(toks, token{kind: tokLiteral, text: src[start:i], pos: start, value: ast.Symbol(src[start+1 : i])})
		case c == '"' || c == '\'':
			end, val, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokLiteral, text: src[start:end], pos: start, value: val})
			i = end
		case c == '%':
			i++
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i == start+1 {
				return nil, syntaxErr(src, start, "'%' must be followed by a capture index")
			}
			n, err := strconv.Atoi(src[start+1 : i])
			if err != nil {
				return nil, syntaxErr(src, start, "invalid capture index")
			}
			toks = append(toks, token{kind: tokBackref, text: src[start:i], pos: start, value: n})
		case c == '#':
			i++
			for i < len(src) && isIdentChar(src[i]) {
				i++
			}
			if i < len(src) && src[i] == '?' {
				i++
			}
			if i == start+1 {
				return nil, syntaxErr(src, start, "'#' must be followed by a predicate name")
			}
			toks = append(toks, token{kind: tokHash, text: src[start+1 : i], pos: start})
		case c == '-' || isDigit(c):
			tok, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i += len(tok.text)
		case isIdentStart(c):
			for i < len(src) && isIdentChar(src[i]) {
				i++
			}
			if i < len(src) && src[i] == '?' {
				i++
			}
			text := src[start:i]
			kind := tokIdent
			if text[0] == '_' && !strings.HasSuffix(text, "?") {
				kind = tokWildcard
			}
			toks = append(toks, token{kind: kind, text: text, pos: start})
		default:
			return nil, syntaxErr(src, i, "unexpected character "+strconv.QuoteRune(rune(c)))
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func lexString(src string, start int) (int, string, error) {
	quote := src[start]
	i := start + 1
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case quote:
			raw := src[start : i+1]
			if quote == '\'' {
				return i + 1, strings.ReplaceAll(raw[1:len(raw)-1], `\'`, `'`), nil
			}
			val, err := strconv.Unquote(raw)
			if err != nil {
				return 0, "", syntaxErr(src, start, "invalid string literal")
			}
			return i + 1, val, nil
		}
		i++
	}
	return 0, "", syntaxErr(src, start, "unterminated string literal")
}

func lexNumber(src string, start int) (token, error) {
	i := start
	if src[i] == '-' {
		i++
	}
	digits := i
	for i < len(src) && isDigit(src[i]) {
		i++
	}
	if i == digits {
		return token{}, syntaxErr(src, start, "'-' must be followed by a number")
	}
	isFloat := false
	if i+1 < len(src) && src[i] == '.' && isDigit(src[i+1]) {
		isFloat = true
		i++
		for i < len(src) && isDigit(src[i]) {
			i++
		}
	}
	text := src[start:i]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, syntaxErr(src, start, "invalid float literal")
		}
		return token{kind: tokLiteral, text: text, pos: start, value: f}, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return token{}, syntaxErr(src, start, "invalid integer literal")
	}
	return token{kind: tokLiteral, text: text, pos: start, value: n}, nil
}
