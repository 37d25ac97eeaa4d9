package pattern

import "fmt"

// SyntaxError reports malformed pattern source. It is returned by Compile
// and carries the byte offset of the offending token.
type SyntaxError struct {
	Pattern string
	Offset  int
	Reason  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("pattern: %s at offset %d in %q", e.Reason, e.Offset, e.Pattern)
}

func syntaxErr(src string, pos int, reason string) *SyntaxError {
	return &SyntaxError{Pattern: src, Offset: pos, Reason: reason}
}
