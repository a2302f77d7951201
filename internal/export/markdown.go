// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bufio"
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// WriteMarkdown renders r as a Markdown report: a header block, the
// summary when there is one, then every ranked paper with its score,
// rationale and abstract.
func WriteMarkdown(w io.Writer, r Report) error {
	bw := bufio.NewWriter(w)

	topic := strings.TrimSpace(r.Topic)
	if topic == "" {
		topic = "General"
	}
	fmt.Fprintf(bw, "# %s\n\n", reportTitle(r))
	fmt.Fprintf(bw, "- **Date**: %s\n", r.Generated.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(bw, "- **Topic**: %s\n", topic)
	if r.Query.Mode != "" {
		fmt.Fprintf(bw, "- **Mode**: %s\n", r.Query.Mode)
	}
	if win := r.Query.Window; !win.From.IsZero() {
		fmt.Fprintf(bw, "- **Window**: %s to %s\n", win.From.Format("2006-01-02"), win.To.Format("2006-01-02"))
	}
	if r.Candidates > 0 {
		fmt.Fprintf(bw, "- **Candidates**: %d (scored %d, failed %d)\n", r.Candidates, r.Scored, r.Failed)
	}
	fmt.Fprintf(bw, "- **Papers**: %d\n\n", len(r.Ranked))

	if s := strings.TrimSpace(r.Summary); s != "" {
		fmt.Fprintf(bw, "---\n\n## Summary\n\n%s\n\n", s)
	}
	bw.WriteString("---\n\n")

	for i, e := range r.Ranked {
		p := e.Paper
		fmt.Fprintf(bw, "## %d. %s\n\n", i+1, p.Title)
		fmt.Fprintf(bw, "- **Score**: %.1f\n", e.Result.Score)
		fmt.Fprintf(bw, "- **arXiv ID**: %s\n", p.ID)
		if !p.SubmittedAt.IsZero() {
			fmt.Fprintf(bw, "- **Published**: %s\n", p.SubmittedAt.Format("2006-01-02"))
		}
		if len(p.Authors) > 0 {
			fmt.Fprintf(bw, "- **Authors**: %s\n", strings.Join(p.Authors, ", "))
		}
		if len(p.Categories) > 0 {
			fmt.Fprintf(bw, "- **Categories**: %s\n", strings.Join(p.Categories, ", "))
		}
		if p.URL != "" {
			fmt.Fprintf(bw, "- **Link**: %s\n", p.URL)
		}
		bw.WriteString("\n")
		if e.Result.Rationale != "" {
			fmt.Fprintf(bw, "### Why it scored\n%s\n\n", e.Result.Rationale)
		}
		if p.Abstract != "" {
			fmt.Fprintf(bw, "### Abstract\n%s\n\n", p.Abstract)
		}
		bw.WriteString("---\n\n")
	}
	return bw.Flush()
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts a Markdown document into a standalone HTML page.
func RenderHTML(w io.Writer, title string, md []byte) error {
	var body bytes.Buffer
	if err := markdown.Convert(md, &body); err != nil {
		return fmt.Errorf("converting markdown: %w", err)
	}
	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>%s</title>
<style>
body { font-family: 'Segoe UI', Arial, sans-serif; line-height: 1.6; max-width: 820px; margin: 0 auto; padding: 40px 20px; color: #333; }
h1, h2, h3 { color: #2c3e50; }
hr { border: 0; border-top: 1px solid #ddd; }
</style>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(title), body.String())
	return err
}
