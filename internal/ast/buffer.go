package ast

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// Range is a half-open byte interval [Start, End) into a Buffer.
type Range struct {
	Start int
	End   int
}

// Len returns the number of bytes covered.
func (r Range) Len() int { return r.End - r.Start }

// Empty reports whether the range covers no bytes.
func (r Range) Empty() bool { return r.Start == r.End }

// Valid reports whether the range is well formed.
func (r Range) Valid() bool { return r.Start >= 0 && r.Start <= r.End }

// Contains reports whether other lies entirely within r.
func (r Range) Contains(other Range) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// Join returns the smallest range covering both r and other.
func (r Range) Join(other Range) Range {
	if other.Start < r.Start {
		r.Start = other.Start
	}
	if other.End > r.End {
		r.End = other.End
	}
	return r
}

func (r Range) String() string {
	return fmt.Sprintf("%d...%d", r.Start, r.End)
}

// Position is a human-readable location. Line and Column are 1-based;
// Column counts runes, not bytes.
type Position struct {
	Line   int
	Column int
}

// Buffer holds the original source of one file plus a line index.
type Buffer struct {
	name       string
	src        []byte
	lineStarts []int
}

// NewBuffer wraps src. The slice is not copied and must not be modified
// afterwards.
func NewBuffer(name string, src []byte) *Buffer {
	starts := []int{0}
	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Buffer{name: name, src: src, lineStarts: starts}
}

// Name returns the file name the buffer was created with.
func (b *Buffer) Name() string { return b.name }

// Bytes returns the underlying source. Callers must not modify it.
func (b *Buffer) Bytes() []byte { return b.src }

// Len returns the size of the source in bytes.
func (b *Buffer) Len() int { return len(b.src) }

// InBounds reports whether r is a valid range of this buffer.
func (b *Buffer) InBounds(r Range) bool {
	return r.Valid() && r.End <= len(b.src)
}

// Slice returns the source text covered by r, or "" when r is out of bounds.
func (b *Buffer) Slice(r Range) string {
	if !b.InBounds(r) {
		return ""
	}
	return string(b.src[r.Start:r.End])
}

// LineCount returns the number of lines, counting a trailing partial line.
func (b *Buffer) LineCount() int { return len(b.lineStarts) }

// Position converts a byte offset into a line/column pair. Offsets past the
// end clamp to the end of the buffer.
func (b *Buffer) Position(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(b.src) {
		offset = len(b.src)
	}
	line := sort.Search(len(b.lineStarts), func(i int) bool {
		return b.lineStarts[i] > offset
	}) - 1
	start := b.lineStarts[line]
	return Position{
		Line:   line + 1,
		Column: utf8.RuneCount(b.src[start:offset]) + 1,
	}
}

// Line returns the text of the 1-based line n without its terminator.
func (b *Buffer) Line(n int) string {
	if n < 1 || n > len(b.lineStarts) {
		return ""
	}
	start := b.lineStarts[n-1]
	end := len(b.src)
	if n < len(b.lineStarts) {
		end = b.lineStarts[n] - 1
	}
	if end > start && b.src[end-1] == '\r' {
		end--
	}
	return string(b.src[start:end])
}
