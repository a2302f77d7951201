// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperpal/pkg/types"
)

// ResultsFile is the on-disk form of a session's ranked papers. It can be
// reloaded to review or give feedback on an old session without querying
// arXiv or the judge again.
type ResultsFile struct {
	Query   ResultsQuery        `yaml:"query"`
	Results []types.RankedEntry `yaml:"results"`
	Summary ResultsSummary      `yaml:"summary"`
}

// ResultsQuery stores the query in a serializable form.
type ResultsQuery struct {
	Topic      string     `yaml:"topic,omitempty"`
	Mode       types.Mode `yaml:"mode"`
	Categories []string   `yaml:"categories,omitempty"`
	Keywords   []string   `yaml:"keywords,omitempty"`
	Window     string     `yaml:"window,omitempty"`
	DateFrom   string     `yaml:"date_from,omitempty"`
	DateTo     string     `yaml:"date_to,omitempty"`
}

// ResultsSummary stores batch statistics and a timestamp.
type ResultsSummary struct {
	Candidates     int       `yaml:"candidates"`
	Scored         int       `yaml:"scored"`
	Failed         int       `yaml:"failed"`
	Ranked         int       `yaml:"ranked"`
	ProfileVersion int       `yaml:"profile_version"`
	Text           string    `yaml:"text,omitempty"`
	Timestamp      time.Time `yaml:"timestamp"`
}

const dateFmt = "2006-01-02"

// WriteResults encodes r as a ResultsFile.
func WriteResults(w io.Writer, r Report) error {
	q := r.Query
	rf := ResultsFile{
		Query: ResultsQuery{
			Topic:      strings.TrimSpace(r.Topic),
			Mode:       q.Mode,
			Categories: q.Categories,
			Keywords:   q.Keywords,
			Window:     q.Window.Label,
		},
		Results: r.Ranked,
		Summary: ResultsSummary{
			Candidates:     r.Candidates,
			Scored:         r.Scored,
			Failed:         r.Failed,
			Ranked:         len(r.Ranked),
			ProfileVersion: r.ProfileVersion,
			Text:           strings.TrimSpace(r.Summary),
			Timestamp:      r.Generated,
		},
	}
	if !q.Window.From.IsZero() {
		rf.Query.DateFrom = q.Window.From.Format(dateFmt)
	}
	if !q.Window.To.IsZero() {
		rf.Query.DateTo = q.Window.To.Format(dateFmt)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&rf); err != nil {
		return fmt.Errorf("marshaling results file: %w", err)
	}
	return enc.Close()
}

// ReadResultsFile loads a previously written results file.
func ReadResultsFile(path string) (*ResultsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading results file: %w", err)
	}
	var rf ResultsFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing results file: %w", err)
	}
	return &rf, nil
}

// Ranked returns the stored results as a RankedSet.
func (f *ResultsFile) Ranked() types.RankedSet {
	return types.RankedSet(f.Results)
}
