// Package copper is a static analyzer and autocorrector for Ruby source,
// built on tree-sitter. Source is parsed into a parser-gem shaped tree,
// rules ("cops") inspect the nodes they register interest in, and their
// corrections are merged into a rewritten file.
//
// # Pipeline
//
// For each file, copper:
//
//  1. Parses the source with tree-sitter and converts the concrete
//     syntax tree into ast.Node values (send, lvar, if, regexp, ...).
//  2. Walks the tree once, dispatching each node to the cops registered
//     for its type. A cop that panics or errors is isolated: its failure
//     is recorded and every other cop still runs.
//  3. In autocorrect mode, stages each offense's edits in a corrector,
//     applies the non-overlapping ones, re-parses the result and repeats
//     until a pass changes nothing.
//
// # Usage
//
//	e, err := copper.New(copper.WithAutocorrect(true))
//	if err != nil { ... }
//	defer e.Close()
//
//	reports, err := e.InspectDirectory(ctx, "path/to/project")
//
// # Cops
//
// Built-in cops are written in Go (see internal/cops). Further cops are
// Risor scripts described by a YAML manifest: the embedded defaults live
// under scripts/, and a project adds its own through the scripts section
// of .copper.yml. Scripts match nodes with the node pattern language of
// internal/pattern:
//
//	(send nil :puts (send $(_ ...) :inspect))
//
// # Caching
//
// [WithCache] stores each file's offenses in SQLite keyed by content hash
// and a digest of the configuration and scripts. Unchanged files are
// reported from the cache without being parsed.
package copper
