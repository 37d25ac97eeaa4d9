// Package formatter renders inspection results for people and machines.
package formatter

import (
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// ColorMode selects when output is colorized.
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ParseColorMode maps a config or flag value to a ColorMode. Unknown values
// mean auto.
func ParseColorMode(s string) ColorMode {
	switch s {
	case "always", "on", "true":
		return ColorAlways
	case "never", "off", "false":
		return ColorNever
	default:
		return ColorAuto
	}
}

// ColorOptions is everything a Colorizer decides on. It is fixed at
// construction so concurrent formatters never share mutable state.
type ColorOptions struct {
	Mode ColorMode
	// IsTerminal reports whether the destination is a terminal.
	IsTerminal bool
	// GloballyDisabled turns color off regardless of Mode, as NO_COLOR does.
	GloballyDisabled bool
}

// Colorizer wraps strings in ANSI color sequences when enabled.
type Colorizer struct {
	enabled bool
}

// NewColorizer decides once whether color is on: never when globally
// disabled, otherwise when forced or when auto and writing to a terminal.
func NewColorizer(opts ColorOptions) *Colorizer {
	enabled := false
	if !opts.GloballyDisabled {
		switch opts.Mode {
		case ColorAlways:
			enabled = true
		case ColorAuto:
			enabled = opts.IsTerminal
		}
	}
	return &Colorizer{enabled: enabled}
}

// Enabled reports whether Colorize changes its input.
func (c *Colorizer) Enabled() bool { return c.enabled }

// Colorize returns s wrapped in the given attributes, or s unchanged when
// color is off.
func (c *Colorizer) Colorize(s string, attrs ...color.Attribute) string {
	if !c.enabled {
		return s
	}
	col := color.New(attrs...)
	col.EnableColor()
	return col.Sprint(s)
}

func (c *Colorizer) Black(s string) string   { return c.Colorize(s, color.FgBlack) }
func (c *Colorizer) Red(s string) string     { return c.Colorize(s, color.FgRed) }
func (c *Colorizer) Green(s string) string   { return c.Colorize(s, color.FgGreen) }
func (c *Colorizer) Yellow(s string) string  { return c.Colorize(s, color.FgYellow) }
func (c *Colorizer) Blue(s string) string    { return c.Colorize(s, color.FgBlue) }
func (c *Colorizer) Magenta(s string) string { return c.Colorize(s, color.FgMagenta) }
func (c *Colorizer) Cyan(s string) string    { return c.Colorize(s, color.FgCyan) }
func (c *Colorizer) White(s string) string   { return c.Colorize(s, color.FgWhite) }

// DetectTerminal reports whether w is a terminal.
func DetectTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// NoColorEnv reports whether the NO_COLOR convention is in effect.
func NoColorEnv() bool {
	return os.Getenv("NO_COLOR") != ""
}
