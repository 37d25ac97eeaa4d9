package formatter

import (
	"bytes"
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/copper/internal/ast"
	"github.com/jward/copper/internal/cop"
)

func TestColorizer(t *testing.T) {
	t.Parallel()

	const red = "\x1b[31mfoo\x1b[0m"
	tests := []struct {
		name string
		opts ColorOptions
		want string
	}{
		{"auto on a terminal", ColorOptions{Mode: ColorAuto, IsTerminal: true}, red},
		{"auto off a terminal", ColorOptions{Mode: ColorAuto}, "foo"},
		{"forced off a terminal", ColorOptions{Mode: ColorAlways}, red},
		{"never on a terminal", ColorOptions{Mode: ColorNever, IsTerminal: true}, "foo"},
		{"globally disabled on a terminal", ColorOptions{Mode: ColorAuto, IsTerminal: true, GloballyDisabled: true}, "foo"},
		{"globally disabled off a terminal", ColorOptions{Mode: ColorAuto, GloballyDisabled: true}, "foo"},
		{"globally disabled beats forcing", ColorOptions{Mode: ColorAlways, GloballyDisabled: true}, "foo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := NewColorizer(tt.opts)
			assert.Equal(t, tt.want, c.Colorize("foo", color.FgRed))
			assert.Equal(t, tt.want, c.Red("foo"))
			assert.Equal(t, tt.want != "foo", c.Enabled())
		})
	}
}

func TestColorizer_NamedColors(t *testing.T) {
	t.Parallel()
	c := NewColorizer(ColorOptions{Mode: ColorAlways})

	tests := []struct {
		fn   func(string) string
		attr color.Attribute
	}{
		{c.Black, color.FgBlack},
		{c.Red, color.FgRed},
		{c.Green, color.FgGreen},
		{c.Yellow, color.FgYellow},
		{c.Blue, color.FgBlue},
		{c.Magenta, color.FgMagenta},
		{c.Cyan, color.FgCyan},
		{c.White, color.FgWhite},
	}
	for _, tt := range tests {
		assert.Equal(t, c.Colorize("foo", tt.attr), tt.fn("foo"))
	}
}

func TestColorizer_IndependentInstances(t *testing.T) {
	t.Parallel()
	on := NewColorizer(ColorOptions{Mode: ColorAlways})
	off := NewColorizer(ColorOptions{Mode: ColorNever})

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.Equal(t, "\x1b[32mok\x1b[0m", on.Green("ok"))
		}()
		go func() {
			defer wg.Done()
			assert.Equal(t, "ok", off.Green("ok"))
		}()
	}
	wg.Wait()
}

func TestParseColorMode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ColorAlways, ParseColorMode("always"))
	assert.Equal(t, ColorNever, ParseColorMode("never"))
	assert.Equal(t, ColorAuto, ParseColorMode("auto"))
	assert.Equal(t, ColorAuto, ParseColorMode(""))
}

func TestDetectTerminal(t *testing.T) {
	t.Parallel()
	assert.False(t, DetectTerminal(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, DetectTerminal(f))
}

const source = "x = 1\ndo_something if str.match(/regex/)\n"

func sampleFiles() []File {
	return []File{
		{
			Path:   "app/a.rb",
			Source: []byte(source),
			Offenses: []cop.Offense{
				{
					Rule:     "Performance/RedundantMatch",
					Message:  "Use `=~` in places where the `MatchData` returned by `#match` will not be used.",
					Range:    ast.Range{Start: 22, End: 40},
					Location: ast.Position{Line: 2, Column: 17},
					Severity: cop.Convention,
					Status:   cop.Uncorrected,
				},
				{
					Rule:     "Lint/Debugger",
					Message:  "Remove it.",
					Range:    ast.Range{Start: 0, End: 1},
					Location: ast.Position{Line: 1, Column: 1},
					Severity: cop.Warning,
					Status:   cop.Unsupported,
				},
			},
		},
		{Path: "app/b.rb", Source: []byte("ok\n")},
	}
}

func TestTextFormatter(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	require.NoError(t, NewTextFormatter(nil).Format(&out, sampleFiles()))

	want := "app/a.rb:1:1: W: Lint/Debugger: Remove it.\n" +
		"x = 1\n" +
		"^\n" +
		"app/a.rb:2:17: C: [Correctable] Performance/RedundantMatch: Use `=~` in places where the `MatchData` returned by `#match` will not be used.\n" +
		"do_something if str.match(/regex/)\n" +
		"                ^^^^^^^^^^^^^^^^^^\n" +
		"\n" +
		"2 files inspected, 2 offenses detected, 1 offense autocorrectable\n"
	assert.Equal(t, want, out.String())
}

func TestTextFormatter_NoOffenses(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	require.NoError(t, NewTextFormatter(nil).Format(&out, []File{{Path: "a.rb"}}))
	assert.Equal(t, "\n1 file inspected, no offenses detected\n", out.String())
}

func TestTextFormatter_WideCharacters(t *testing.T) {
	t.Parallel()
	src := "s = \"日本\"; s.match(/x/)"
	files := []File{{
		Path:   "w.rb",
		Source: []byte(src),
		Offenses: []cop.Offense{{
			Rule:     "Performance/RedundantMatch",
			Message:  "m",
			Range:    ast.Range{Start: 14, End: 26},
			Location: ast.Position{Line: 1, Column: 11},
			Severity: cop.Convention,
			Status:   cop.Corrected,
		}},
	}}
	var out bytes.Buffer
	require.NoError(t, NewTextFormatter(nil).Format(&out, files))
	lines := bytes.Split(out.Bytes(), []byte("\n"))
	assert.Equal(t, "w.rb:1:11: C: [Corrected] Performance/RedundantMatch: m", string(lines[0]))
	// the two CJK characters are double width
	assert.Equal(t, "            ^^^^^^^^^^^^", string(lines[2]))
	assert.Contains(t, out.String(), "1 offense corrected")
}

func TestTextFormatter_EarlierPassOffenses(t *testing.T) {
	t.Parallel()
	original := []byte("a if s.match(/x/)\nb if t.match(/y/)\n")
	corrected := func(start, end, line int) cop.Offense {
		return cop.Offense{
			Rule:     "Performance/RedundantMatch",
			Message:  "m",
			Range:    ast.Range{Start: start, End: end},
			Location: ast.Position{Line: line, Column: 6},
			Severity: cop.Convention,
			Status:   cop.Corrected,
		}
	}
	first, second := corrected(5, 17, 1), corrected(23, 35, 2)
	files := []File{{
		Path:     "t.rb",
		Source:   []byte("a if s =~ /x/\nb if t =~ /y/\n"),
		Offenses: []cop.Offense{second, first},
		FoundIn: map[cop.OffenseKey][]byte{
			first.Key():  original,
			second.Key(): original,
		},
	}}

	var out bytes.Buffer
	require.NoError(t, NewTextFormatter(nil).Format(&out, files))
	want := "t.rb:1:6: C: [Corrected] Performance/RedundantMatch: m\n" +
		"a if s.match(/x/)\n" +
		"     ^^^^^^^^^^^^\n" +
		"t.rb:2:6: C: [Corrected] Performance/RedundantMatch: m\n" +
		"b if t.match(/y/)\n" +
		"     ^^^^^^^^^^^^\n" +
		"\n" +
		"1 file inspected, 2 offenses detected, 2 offenses corrected\n"
	assert.Equal(t, want, out.String())

	var js bytes.Buffer
	require.NoError(t, (&JSONFormatter{RunID: "r"}).Format(&js, files))
	var got jsonReport
	require.NoError(t, json.Unmarshal(js.Bytes(), &got))
	loc := got.Files[0].Offenses[1].Location
	assert.Equal(t, 2, loc.LastLine)
	assert.Equal(t, 18, loc.LastColumn)
}

func TestJSONFormatter(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	f := &JSONFormatter{Version: "1.2.3", RunID: "run-1"}
	require.NoError(t, f.Format(&out, sampleFiles()))

	var got jsonReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "run-1", got.Metadata.RunID)
	assert.Equal(t, "1.2.3", got.Metadata.Version)
	assert.Equal(t, jsonSummary{OffenseCount: 2, InspectedFileCount: 2}, got.Summary)

	require.Len(t, got.Files, 2)
	require.Len(t, got.Files[0].Offenses, 2)
	assert.NotNil(t, got.Files[1].Offenses)

	o := got.Files[0].Offenses[1]
	assert.Equal(t, "convention", o.Severity)
	assert.Equal(t, "Performance/RedundantMatch", o.CopName)
	assert.True(t, o.Correctable)
	assert.False(t, o.Corrected)
	assert.Equal(t, jsonLocation{
		StartLine: 2, StartColumn: 17, LastLine: 2, LastColumn: 35,
		StartOffset: 22, EndOffset: 40, Length: 18,
	}, o.Location)
	assert.Contains(t, out.String(), `"files": [`)
}

func TestNewJSONFormatter_RunID(t *testing.T) {
	t.Parallel()
	a, b := NewJSONFormatter("v"), NewJSONFormatter("v")
	assert.Len(t, a.RunID, 36)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestNew(t *testing.T) {
	t.Parallel()
	f, err := New("text", nil, "")
	require.NoError(t, err)
	assert.IsType(t, &TextFormatter{}, f)

	f, err = New("json", nil, "1")
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)

	_, err = New("xml", nil, "")
	require.ErrorIs(t, err, ErrUnknownFormat)
}
