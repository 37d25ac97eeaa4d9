package formatter

import (
	"errors"
	"fmt"
	"io"

	"github.com/jward/copper/internal/ast"
	"github.com/jward/copper/internal/cop"
)

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("formatter: unknown format")

// File is one inspected file as a formatter sees it. Source is the text
// the offense ranges refer to, except for offenses listed in FoundIn.
type File struct {
	Path     string
	Source   []byte
	Offenses []cop.Offense
	// FoundIn maps offenses that were corrected in an earlier pass to the
	// source they were reported against.
	FoundIn map[cop.OffenseKey][]byte
}

// Formatter writes the results of one run.
type Formatter interface {
	Format(w io.Writer, files []File) error
}

// New returns the formatter registered under name: "text" or "json".
func New(name string, colors *Colorizer, version string) (Formatter, error) {
	switch name {
	case "", "text":
		return NewTextFormatter(colors), nil
	case "json":
		return NewJSONFormatter(version), nil
	default:
		return nil, fmt.Errorf("%w %q (want text|json)", ErrUnknownFormat, name)
	}
}

// Summary counts what a run found.
type Summary struct {
	Files       int
	Offenses    int
	Corrected   int
	Correctable int
}

// Summarize tallies files.
func Summarize(files []File) Summary {
	s := Summary{Files: len(files)}
	for _, f := range files {
		for _, o := range f.Offenses {
			s.Offenses++
			switch o.Status {
			case cop.Corrected:
				s.Corrected++
			case cop.Uncorrected, cop.CorrectionRejected:
				s.Correctable++
			}
		}
	}
	return s
}

func pluralize(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// sorted returns a sorted copy of offs.
func sorted(offs []cop.Offense) []cop.Offense {
	out := make([]cop.Offense, len(offs))
	copy(out, offs)
	cop.SortOffenses(out)
	return out
}

// buffers hands out the buffer each offense of one file refers to.
type buffers struct {
	file    File
	final   *ast.Buffer
	earlier map[*byte]*ast.Buffer
}

func newBuffers(f File) *buffers {
	b := &buffers{file: f}
	if f.Source != nil {
		b.final = ast.NewBuffer(f.Path, f.Source)
	}
	return b
}

func (b *buffers) of(o cop.Offense) *ast.Buffer {
	src, ok := b.file.FoundIn[o.Key()]
	if !ok {
		return b.final
	}
	if len(src) == 0 {
		return nil
	}
	if b.earlier == nil {
		b.earlier = make(map[*byte]*ast.Buffer)
	}
	buf, ok := b.earlier[&src[0]]
	if !ok {
		buf = ast.NewBuffer(b.file.Path, src)
		b.earlier[&src[0]] = buf
	}
	return buf
}
