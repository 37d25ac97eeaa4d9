package store

import (
	"time"

	"github.com/jward/copper/internal/ast"
	"github.com/jward/copper/internal/cop"
)

// Inspection is one file's cached result under one configuration.
type Inspection struct {
	Path        string
	ContentHash string
	ConfigHash  string
	Offenses    []cop.Offense
	InspectedAt time.Time
}

// record is the msgpack form of a cop.Offense.
type record struct {
	Rule     string `msgpack:"rule"`
	Message  string `msgpack:"msg"`
	Start    int    `msgpack:"start"`
	End      int    `msgpack:"end"`
	Line     int    `msgpack:"line"`
	Column   int    `msgpack:"col"`
	Severity uint8  `msgpack:"sev"`
	Status   uint8  `msgpack:"status"`
}

func toRecord(o cop.Offense) record {
	return record{
		Rule:     o.Rule,
		Message:  o.Message,
		Start:    o.Range.Start,
		End:      o.Range.End,
		Line:     o.Location.Line,
		Column:   o.Location.Column,
		Severity: uint8(o.Severity),
		Status:   uint8(o.Status),
	}
}

func (r record) offense() cop.Offense {
	return cop.Offense{
		Rule:     r.Rule,
		Message:  r.Message,
		Range:    ast.Range{Start: r.Start, End: r.End},
		Location: ast.Position{Line: r.Line, Column: r.Column},
		Severity: cop.Severity(r.Severity),
		Status:   cop.Status(r.Status),
	}
}
