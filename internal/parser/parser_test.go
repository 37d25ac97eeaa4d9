package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/copper/internal/ast"
)

func parseRuby(t *testing.T, src string) *ast.Node {
	t.Helper()
	root, buf, err := Parse(context.Background(), "ruby", "test.rb", []byte(src))
	require.NoError(t, err)
	require.NotNil(t, buf)
	return root
}

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"app/models/user.rb", "ruby", true},
		{"lib/tasks/db.rake", "ruby", true},
		{"copper.gemspec", "ruby", true},
		{"config.ru", "ruby", true},
		{"Gemfile", "ruby", true},
		{"sub/Rakefile", "ruby", true},
		{"MAIN.RB", "ruby", true},
		{"main.go", "", false},
		{"README", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, ok := LanguageForFile(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_UnsupportedLanguage(t *testing.T) {
	t.Parallel()
	_, _, err := Parse(context.Background(), "cobol", "x.cbl", []byte("x"))
	require.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()
	root, buf, err := Parse(context.Background(), "ruby", "empty.rb", []byte("# just a comment\n"))
	require.NoError(t, err)
	assert.Nil(t, root)
	assert.Equal(t, "empty.rb", buf.Name())
}

func TestParse_SyntaxError(t *testing.T) {
	t.Parallel()
	_, _, err := Parse(context.Background(), "ruby", "bad.rb", []byte("def foo(\n"))
	require.Error(t, err)

	var serr *SyntaxError
	require.True(t, errors.As(err, &serr), "want *SyntaxError, got %T", err)
	assert.Equal(t, "bad.rb", serr.File)
	assert.GreaterOrEqual(t, serr.Pos.Line, 1)
	assert.Contains(t, serr.Error(), "bad.rb:")
}

func TestParse_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"modifier if with match",
			"do_something if str.match(/regex/)",
			`(if (send (send nil :str) :match (regexp (str "regex") (regopt))) (send nil :do_something) nil)`,
		},
		{
			"while loop",
			"while regex.match('str'); do_something; end",
			`(while (send (send nil :regex) :match (str "str")) (send nil :do_something))`,
		},
		{
			"local variable",
			"x = 1\nx.match(/a/)",
			`(begin (lvasgn :x (int 1)) (send (lvar :x) :match (regexp (str "a") (regopt))))`,
		},
		{
			"ternary",
			"a ? b : c",
			`(if (send nil :a) (send nil :b) (send nil :c))`,
		},
		{
			"unless swaps branches",
			"unless a\n  b\nend",
			`(if (send nil :a) nil (send nil :b))`,
		},
		{
			"post-condition loop",
			"begin\n  foo\nend while bar",
			`(while_post (send nil :bar) (kwbegin (send nil :foo)))`,
		},
		{
			"keyword arguments",
			"foo(a: 1)",
			`(send nil :foo (hash (pair (sym :a) (int 1))))`,
		},
		{
			"block with parameter",
			"[1, 2].each { |x| puts x }",
			`(block (send (array (int 1) (int 2)) :each) (args (arg :x)) (send nil :puts (lvar :x)))`,
		},
		{
			"regexp flags",
			"/x/i",
			`(regexp (str "x") (regopt :i))`,
		},
		{
			"interpolation",
			`"a#{b}c"`,
			`(dstr (str "a") (begin (send nil :b)) (str "c"))`,
		},
		{
			"method definition",
			"def foo(a)\n  a\nend",
			`(def :foo (args (arg :a)) (lvar :a))`,
		},
		{
			"case when",
			"case x\nwhen 1 then y\nelse z\nend",
			`(case (send nil :x) (when (int 1) (send nil :y)) (send nil :z))`,
		},
		{
			"comparison",
			"a == a",
			`(send (send nil :a) :== (send nil :a))`,
		},
		{
			"boolean operators",
			"a && b || c",
			`(or (and (send nil :a) (send nil :b)) (send nil :c))`,
		},
		{
			"safe navigation",
			"a&.b",
			`(csend (send nil :a) :b)`,
		},
		{
			"return value",
			"return regex.match('str')",
			`(return (send (send nil :regex) :match (str "str")))`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := parseRuby(t, tt.src)
			require.NotNil(t, root)
			assert.Equal(t, tt.want, root.String())
		})
	}
}

func TestParse_RangesMapToSource(t *testing.T) {
	t.Parallel()
	root := parseRuby(t, "do_something if str.match(/regex/)")

	call := root.NodeChild(0)
	require.NotNil(t, call)
	assert.Equal(t, "str.match(/regex/)", call.Source())
	assert.Equal(t, "str", call.Receiver().Source())
	assert.Equal(t, "/regex/", call.Arguments()[0].(*ast.Node).Source())
	assert.Same(t, root, call.Parent())
	assert.Equal(t, ast.Position{Line: 1, Column: 17}, call.Position())
}

func TestParse_BlockSendExcludesBlock(t *testing.T) {
	t.Parallel()
	root := parseRuby(t, "items.each do |i|\n  i\nend")

	require.Equal(t, "block", root.Type())
	assert.Equal(t, "items.each", root.NodeChild(0).Source())
}
