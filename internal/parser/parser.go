// Package parser turns source text into ast trees. Ruby is parsed with the
// tree-sitter grammar and converted into the node shapes cops match on.
package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"github.com/jward/copper/internal/ast"
)

// ErrUnsupportedLanguage is returned for languages without a grammar.
var ErrUnsupportedLanguage = errors.New("parser: unsupported language")

// SyntaxError reports source the grammar could not parse cleanly.
type SyntaxError struct {
	File   string
	Offset int
	Pos    ast.Position
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: syntax error: %s", e.File, e.Pos.Line, e.Pos.Column, e.Msg)
}

// extToLanguage maps file extensions to language names.
var extToLanguage = map[string]string{
	".rb":      "ruby",
	".rake":    "ruby",
	".gemspec": "ruby",
	".ru":      "ruby",
}

// baseToLanguage maps extensionless file names to language names.
var baseToLanguage = map[string]string{
	"Gemfile":   "ruby",
	"Rakefile":  "ruby",
	"Guardfile": "ruby",
}

var (
	grammars     map[string]*sitter.Language
	grammarsOnce sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		grammars = map[string]*sitter.Language{
			"ruby": ruby.GetLanguage(),
		}
	})
}

// LanguageForFile returns the language of path based on its extension or
// well-known name. Returns ("", false) if it is not recognized.
func LanguageForFile(path string) (string, bool) {
	if lang, ok := baseToLanguage[filepath.Base(path)]; ok {
		return lang, true
	}
	lang, ok := extToLanguage[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// GrammarForLanguage returns the tree-sitter grammar for lang.
func GrammarForLanguage(lang string) (*sitter.Language, bool) {
	initGrammars()
	g, ok := grammars[lang]
	return g, ok
}

// Parse parses src as lang and returns the converted tree with its buffer.
// An empty program yields a nil root. Unparseable input yields a
// *SyntaxError.
func Parse(ctx context.Context, lang, name string, src []byte) (*ast.Node, *ast.Buffer, error) {
	grammar, ok := GrammarForLanguage(lang)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(grammar)

	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, nil, fmt.Errorf("parser: %s: %w", name, err)
	}
	defer tree.Close()

	buf := ast.NewBuffer(name, src)
	root := tree.RootNode()
	if root.HasError() {
		return nil, buf, syntaxError(buf, root)
	}

	c := newRubyConverter(buf)
	node := c.program(root)
	if c.err != nil {
		return nil, buf, fmt.Errorf("parser: %s: %w", name, c.err)
	}
	return node, buf, nil
}

// syntaxError locates the first ERROR or MISSING node under n.
func syntaxError(buf *ast.Buffer, n *sitter.Node) error {
	bad := firstError(n)
	if bad == nil {
		bad = n
	}
	offset := int(bad.StartByte())
	msg := "unexpected " + strings.TrimSpace(truncate(bad.Content(buf.Bytes()), 20))
	if bad.IsMissing() {
		msg = "missing " + bad.Type()
	} else if bad.StartByte() == bad.EndByte() {
		msg = "unexpected end of input"
	}
	return &SyntaxError{File: buf.Name(), Offset: offset, Pos: buf.Position(offset), Msg: msg}
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		if bad := firstError(child); bad != nil {
			return bad
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
