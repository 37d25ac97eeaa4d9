package formatter

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/jward/copper/internal/ast"
	"github.com/jward/copper/internal/cop"
)

// TextFormatter prints one clang-style block per offense:
//
//	app/user.rb:3:17: C: [Corrected] Performance/RedundantMatch: Use `=~` ...
//	  do_something if str.match(/regex/)
//	                  ^^^^^^^^^^^^^^^^^^
//
// followed by a summary line.
type TextFormatter struct {
	colors *Colorizer
}

// NewTextFormatter returns a TextFormatter. A nil Colorizer disables color.
func NewTextFormatter(colors *Colorizer) *TextFormatter {
	if colors == nil {
		colors = NewColorizer(ColorOptions{Mode: ColorNever})
	}
	return &TextFormatter{colors: colors}
}

func (f *TextFormatter) Format(w io.Writer, files []File) error {
	bw := bufio.NewWriter(w)
	for _, file := range files {
		bufs := newBuffers(file)
		for _, o := range sorted(file.Offenses) {
			f.writeOffense(bw, file.Path, bufs.of(o), o)
		}
	}
	f.writeSummary(bw, Summarize(files))
	return bw.Flush()
}

func (f *TextFormatter) severity(s cop.Severity) string {
	switch s {
	case cop.Info:
		return f.colors.Green(s.Code())
	case cop.Refactor, cop.Convention:
		return f.colors.Yellow(s.Code())
	case cop.Warning:
		return f.colors.Magenta(s.Code())
	default:
		return f.colors.Colorize(s.Code(), color.FgRed, color.Bold)
	}
}

func (f *TextFormatter) writeOffense(w io.Writer, path string, buf *ast.Buffer, o cop.Offense) {
	var label string
	switch o.Status {
	case cop.Corrected:
		label = f.colors.Green("[Corrected]") + " "
	case cop.Uncorrected, cop.CorrectionRejected:
		label = f.colors.Yellow("[Correctable]") + " "
	}
	fmt.Fprintf(w, "%s:%d:%d: %s: %s%s: %s\n",
		f.colors.Cyan(path), o.Location.Line, o.Location.Column,
		f.severity(o.Severity), label, o.Rule, o.Message)

	if buf == nil || !buf.InBounds(o.Range) {
		return
	}
	line := buf.Line(o.Location.Line)
	if line == "" {
		return
	}
	prefix := []rune(line)
	if n := o.Location.Column - 1; n < len(prefix) {
		prefix = prefix[:n]
	}
	highlighted := buf.Slice(o.Range)
	if i := strings.IndexByte(highlighted, '\n'); i >= 0 {
		highlighted = highlighted[:i]
	}
	width := max(runewidth.StringWidth(highlighted), 1)

	fmt.Fprintln(w, line)
	fmt.Fprintln(w, strings.Repeat(" ", runewidth.StringWidth(string(prefix)))+f.colors.Yellow(strings.Repeat("^", width)))
}

func (f *TextFormatter) writeSummary(w io.Writer, s Summary) {
	fmt.Fprintln(w)
	fmt.Fprint(w, pluralize(s.Files, "file"), " inspected, ")
	if s.Offenses == 0 {
		fmt.Fprintln(w, f.colors.Green("no offenses"), "detected")
		return
	}
	fmt.Fprint(w, f.colors.Red(pluralize(s.Offenses, "offense")), " detected")
	if s.Corrected > 0 {
		fmt.Fprint(w, ", ", f.colors.Green(pluralize(s.Corrected, "offense")), " corrected")
	}
	if s.Correctable > 0 {
		fmt.Fprint(w, ", ", f.colors.Yellow(pluralize(s.Correctable, "offense")), " autocorrectable")
	}
	fmt.Fprintln(w)
}
