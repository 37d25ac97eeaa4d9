package cops

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/copper/internal/cop"
	"github.com/jward/copper/internal/corrector"
	"github.com/jward/copper/internal/parser"
)

func newCommissioner(t *testing.T) *cop.Commissioner {
	t.Helper()
	reg := cop.NewRegistry()
	require.NoError(t, RegisterDefaults(reg))
	reg.Seal()
	log, _ := test.NewNullLogger()
	return cop.NewCommissioner(reg, log)
}

// inspect runs the default cops over src and, when autocorrect is set,
// returns the corrected source too.
func inspect(t *testing.T, src string, autocorrect bool) ([]cop.Offense, string) {
	t.Helper()
	root, _, err := parser.Parse(context.Background(), "ruby", "test.rb", []byte(src))
	require.NoError(t, err)

	var opts cop.InvestigateOptions
	var corr *corrector.Corrector
	if autocorrect {
		corr = corrector.New()
		opts.Corrector = corr
	}
	inv := newCommissioner(t).Investigate(root, opts)
	require.Empty(t, inv.Errors)
	if !autocorrect {
		return inv.Offenses, src
	}
	res, err := corr.Finalize([]byte(src))
	require.NoError(t, err)
	return inv.Offenses, string(res.Source)
}

func offensesFor(offs []cop.Offense, rule string) []cop.Offense {
	var out []cop.Offense
	for _, o := range offs {
		if o.Rule == rule {
			out = append(out, o)
		}
	}
	return out
}

const redundantMatch = "Performance/RedundantMatch"

func TestRedundantMatch_Flags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		src       string
		corrected string
	}{
		{
			"modifier if",
			"do_something if str.match(/regex/)",
			"do_something if str =~ /regex/",
		},
		{
			"while condition",
			"while regex.match('str'); do_something; end",
			"while regex =~ 'str'; do_something; end",
		},
		{
			"until condition",
			"until regex.match('str')\n  do_something\nend",
			"until regex =~ 'str'\n  do_something\nend",
		},
		{
			"if condition",
			"if /re/.match(str)\n  x\nend",
			"if /re/ =~ str\n  x\nend",
		},
		{
			"case subject",
			"case str.match(/re/)\nwhen nil then x\nend",
			"case str =~ /re/\nwhen nil then x\nend",
		},
		{
			"post-condition loop",
			"begin\n  x\nend while str.match(/re/)",
			"begin\n  x\nend while str =~ /re/",
		},
		{
			"discarded statement",
			"str.match(/re/)\nputs 1",
			"str =~ /re/\nputs 1",
		},
		{
			"ternary condition",
			"str.match(/re/) ? a : b",
			"str =~ /re/ ? a : b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			offs, corrected := inspect(t, tt.src, true)
			got := offensesFor(offs, redundantMatch)
			require.Len(t, got, 1)
			assert.Equal(t, redundantMatchMsg, got[0].Message)
			assert.Equal(t, cop.Convention, got[0].Severity)
			assert.Equal(t, cop.Corrected, got[0].Status)
			assert.Equal(t, tt.corrected, corrected)
		})
	}
}

func TestRedundantMatch_Ignores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{"argument", "method(str.match(/regex/))"},
		{"two arguments", "regexp.match(str, 3)"},
		{"two arguments in condition", "do_something if regexp.match(str, 3)"},
		{"returned", "return regex.match('str')"},
		{"implicit method return", "def foo\n  str.match(/re/)\nend"},
		{"assigned", "m = str.match(/re/)"},
		{"no literal", "do_something if a.match(b)"},
		{"already =~", "do_something if str =~ /regex/"},
		{"inside condition but not the condition", "if foo(str.match(/re/))\n  x\nend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			offs, _ := inspect(t, tt.src, false)
			assert.Empty(t, offensesFor(offs, redundantMatch))
		})
	}
}

func TestRedundantMatch_Location(t *testing.T) {
	t.Parallel()
	offs, _ := inspect(t, "x = 1\ndo_something if str.match(/regex/)", false)
	got := offensesFor(offs, redundantMatch)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Location.Line)
	assert.Equal(t, 17, got[0].Location.Column)
	assert.Equal(t, "str.match(/regex/)", "x = 1\ndo_something if str.match(/regex/)"[got[0].Range.Start:got[0].Range.End])
}

func TestRedundantMatch_WithoutAutocorrectIsUncorrected(t *testing.T) {
	t.Parallel()
	offs, src := inspect(t, "do_something if str.match(/regex/)", false)
	got := offensesFor(offs, redundantMatch)
	require.Len(t, got, 1)
	assert.Equal(t, cop.Uncorrected, got[0].Status)
	assert.Equal(t, "do_something if str.match(/regex/)", src)
}

func TestRedundantMatch_ImplicitReceiverIsNotCorrected(t *testing.T) {
	t.Parallel()
	offs, corrected := inspect(t, "x if match(/re/)", true)
	got := offensesFor(offs, redundantMatch)
	require.Len(t, got, 1)
	assert.Equal(t, cop.Uncorrected, got[0].Status)
	assert.Equal(t, "x if match(/re/)", corrected)
}

func TestRedundantMatch_Idempotent(t *testing.T) {
	t.Parallel()
	src := "do_something if str.match(/regex/)\nwhile regex.match('str'); do_something; end\n"

	offs, corrected := inspect(t, src, true)
	require.Len(t, offensesFor(offs, redundantMatch), 2)

	again, unchanged := inspect(t, corrected, true)
	assert.Empty(t, again)
	assert.Equal(t, corrected, unchanged)
}

const identical = "Lint/BinaryOperatorWithIdenticalOperands"

func TestIdenticalOperands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src     string
		message string
	}{
		{"a == a", "Binary operator `==` has identical operands."},
		{"x.y != x.y", "Binary operator `!=` has identical operands."},
		{"foo(1) && foo(1)", "Binary operator `&&` has identical operands."},
		{"a || a", "Binary operator `||` has identical operands."},
		{"a == b", ""},
		{"a + a", ""},
		{"x = 1\nx == y", ""},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			offs, _ := inspect(t, tt.src, true)
			got := offensesFor(offs, identical)
			if tt.message == "" {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.message, got[0].Message)
			assert.Equal(t, cop.Warning, got[0].Severity)
			assert.Equal(t, cop.Unsupported, got[0].Status)
		})
	}
}

func TestRegisterDefaults_Duplicate(t *testing.T) {
	t.Parallel()
	reg := cop.NewRegistry()
	require.NoError(t, RegisterDefaults(reg))
	require.ErrorIs(t, RegisterDefaults(reg), cop.ErrDuplicateRule)
	assert.Equal(t, []string{identical, redundantMatch}, reg.Names())
}

func TestDefaults_Described(t *testing.T) {
	t.Parallel()
	for _, r := range Defaults() {
		d, ok := r.(cop.Describer)
		require.True(t, ok, r.Name())
		assert.NotEmpty(t, d.Description())
	}
}
