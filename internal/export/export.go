// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes a session's ranked papers to disk: a Markdown
// report with the summary on top, the same report rendered to HTML, a YAML
// results file that can be reloaded, and a CSL-YAML bibliography for
// reference managers.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/paperpal/pkg/types"
)

// Format names accepted in export.formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatYAML     = "yaml"
	FormatCSL      = "csl"
)

var extensions = map[string]string{
	FormatMarkdown: ".md",
	FormatHTML:     ".html",
	FormatYAML:     ".yaml",
	FormatCSL:      ".csl.yaml",
}

// Report is everything one export covers.
type Report struct {
	Topic          string
	Query          types.QuerySpec
	Generated      time.Time
	Summary        string
	Ranked         types.RankedSet
	Candidates     int
	Scored         int
	Failed         int
	ProfileVersion int
}

// Exporter writes reports into Dir in each of Formats.
type Exporter struct {
	Dir     string
	Formats []string
}

// New returns an Exporter for cfg.
func New(cfg types.ExportConfig) *Exporter {
	return &Exporter{Dir: cfg.OutputDir, Formats: cfg.Formats}
}

// Write exports r in every configured format and returns the paths it
// wrote, Markdown first when present. A format that fails does not stop
// the others; the failures are joined into the returned error. An empty
// ranking writes nothing.
func (e *Exporter) Write(r Report) ([]string, error) {
	if len(r.Ranked) == 0 || len(e.Formats) == 0 {
		return nil, nil
	}
	if r.Generated.IsZero() {
		r.Generated = time.Now()
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	base := filepath.Join(e.Dir, BaseName(r.Topic, r.Generated))
	var (
		paths []string
		errs  []error
	)
	for _, f := range e.Formats {
		ext, ok := extensions[f]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown export format %q", f))
			continue
		}
		path := base + ext
		if err := e.writeOne(f, path, r); err != nil {
			errs = append(errs, fmt.Errorf("writing %s: %w", f, err))
			continue
		}
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}

func (e *Exporter) writeOne(format, path string, r Report) error {
	var buf bytes.Buffer
	switch format {
	case FormatMarkdown:
		if err := WriteMarkdown(&buf, r); err != nil {
			return err
		}
	case FormatHTML:
		var md bytes.Buffer
		if err := WriteMarkdown(&md, r); err != nil {
			return err
		}
		if err := RenderHTML(&buf, reportTitle(r), md.Bytes()); err != nil {
			return err
		}
	case FormatYAML:
		if err := WriteResults(&buf, r); err != nil {
			return err
		}
	case FormatCSL:
		if err := WriteCSL(&buf, r.Ranked); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// BaseName is the file stem for a report: results_<topic>_<timestamp>,
// with every non-alphanumeric rune in the topic replaced by '_'.
func BaseName(topic string, at time.Time) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = "general"
	}
	safe := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, topic)
	return fmt.Sprintf("results_%s_%s", safe, at.Format("20060102_150405"))
}

func reportTitle(r Report) string {
	if t := strings.TrimSpace(r.Topic); t != "" {
		return "Paper recommendations: " + t
	}
	return "Paper recommendations"
}
