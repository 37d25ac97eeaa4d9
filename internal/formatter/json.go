package formatter

import (
	"encoding/json"
	"io"

	"github.com/google/uuid"

	"github.com/jward/copper/internal/cop"
)

// JSONFormatter writes one JSON document per run.
type JSONFormatter struct {
	// Version is reported as metadata.copper_version.
	Version string
	// RunID identifies the run; a random UUID when empty.
	RunID string
}

// NewJSONFormatter returns a JSONFormatter with a fresh run id.
func NewJSONFormatter(version string) *JSONFormatter {
	return &JSONFormatter{Version: version, RunID: uuid.New().String()}
}

type jsonReport struct {
	Metadata jsonMetadata `json:"metadata"`
	Files    []jsonFile   `json:"files"`
	Summary  jsonSummary  `json:"summary"`
}

type jsonMetadata struct {
	RunID   string `json:"run_id"`
	Version string `json:"copper_version"`
}

type jsonFile struct {
	Path     string        `json:"path"`
	Offenses []jsonOffense `json:"offenses"`
}

type jsonOffense struct {
	Severity    string       `json:"severity"`
	Message     string       `json:"message"`
	CopName     string       `json:"cop_name"`
	Corrected   bool         `json:"corrected"`
	Correctable bool         `json:"correctable"`
	Location    jsonLocation `json:"location"`
}

type jsonLocation struct {
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	LastLine    int `json:"last_line"`
	LastColumn  int `json:"last_column"`
	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`
	Length      int `json:"length"`
}

type jsonSummary struct {
	OffenseCount       int `json:"offense_count"`
	CorrectedCount     int `json:"corrected_count"`
	InspectedFileCount int `json:"inspected_file_count"`
}

func (f *JSONFormatter) Format(w io.Writer, files []File) error {
	runID := f.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	s := Summarize(files)
	rep := jsonReport{
		Metadata: jsonMetadata{RunID: runID, Version: f.Version},
		Files:    make([]jsonFile, 0, len(files)),
		Summary: jsonSummary{
			OffenseCount:       s.Offenses,
			CorrectedCount:     s.Corrected,
			InspectedFileCount: s.Files,
		},
	}
	for _, file := range files {
		bufs := newBuffers(file)
		jf := jsonFile{Path: file.Path, Offenses: make([]jsonOffense, 0, len(file.Offenses))}
		for _, o := range sorted(file.Offenses) {
			loc := jsonLocation{
				StartLine:   o.Location.Line,
				StartColumn: o.Location.Column,
				LastLine:    o.Location.Line,
				LastColumn:  o.Location.Column,
				StartOffset: o.Range.Start,
				EndOffset:   o.Range.End,
				Length:      o.Range.Len(),
			}
			if buf := bufs.of(o); buf != nil && buf.InBounds(o.Range) {
				last := buf.Position(o.Range.End)
				loc.LastLine, loc.LastColumn = last.Line, last.Column
			}
			jf.Offenses = append(jf.Offenses, jsonOffense{
				Severity:    o.Severity.String(),
				Message:     o.Message,
				CopName:     o.Rule,
				Corrected:   o.Status == cop.Corrected,
				Correctable: o.Correctable(),
				Location:    loc,
			})
		}
		rep.Files = append(rep.Files, jf)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
