package copper

import "errors"

// Version is reported by the CLI and in JSON output.
const Version = "0.4.0"

var (
	// ErrInfiniteCorrectionLoop is returned when autocorrection revisits a
	// source it already produced, or runs out of passes.
	ErrInfiniteCorrectionLoop = errors.New("copper: infinite correction loop")
	// ErrUnknownCop is returned by New when an Only name matches no cop.
	ErrUnknownCop = errors.New("copper: unknown cop")
)

// SyntaxCop is the rule name reported for source that does not parse.
const SyntaxCop = "Lint/Syntax"
