// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/paperpal/internal/session"
	"github.com/pdiddy/paperpal/pkg/types"
)

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#6C7A89")
)

var styles = struct {
	Title   lipgloss.Style
	Score   lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Score:   lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1),
}

// printResult writes a session result for a human reader.
func printResult(w io.Writer, res *session.Result) {
	if res.Interrupted {
		fmt.Fprintln(w, styles.Warning.Render("Interrupted: showing papers scored so far."))
	}
	fmt.Fprintf(w, "%s\n\n", styles.Title.Render(resultTitle(res)))
	printRanked(w, res.Displayed)

	if len(res.Ranked) > len(res.Displayed) {
		fmt.Fprintln(w, styles.Muted.Render(fmt.Sprintf("(%d more above threshold not shown)", len(res.Ranked)-len(res.Displayed))))
	}
	if res.Summary != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.Box.Render("Summary\n\n"+res.Summary))
	}
	for _, msg := range res.Warnings {
		fmt.Fprintln(w, styles.Warning.Render("warning: "+msg))
	}
	for _, p := range res.Reports {
		fmt.Fprintln(w, styles.Muted.Render("Saved "+p))
	}
	fmt.Fprintln(w, styles.Muted.Render(fmt.Sprintf("%d candidates, %d scored, %d failed, %d ranked in %s",
		res.Candidates, res.Scoring.Scored, res.Scoring.Failed, len(res.Ranked), res.Elapsed.Round(100*time.Millisecond))))
}

func resultTitle(res *session.Result) string {
	topic := res.Query.Topic
	if topic == "" {
		topic = "all topics"
	}
	return fmt.Sprintf("%s, %s (%s)", topic, res.Query.Window.Label, res.Query.Mode)
}

// printRanked writes the numbered ranking feedback positions refer to.
func printRanked(w io.Writer, ranked types.RankedSet) {
	if len(ranked) == 0 {
		fmt.Fprintln(w, "No papers passed the threshold.")
		return
	}
	for i, e := range ranked {
		p := e.Paper
		fmt.Fprintf(w, "%2d. %s  %s\n", i+1, styles.Score.Render(fmt.Sprintf("[%.1f]", e.Result.Score)), p.Title)
		meta := []string{p.ID}
		if !p.SubmittedAt.IsZero() {
			meta = append(meta, p.SubmittedAt.Format("2006-01-02"))
		}
		if a := authorLine(p.Authors); a != "" {
			meta = append(meta, a)
		}
		fmt.Fprintf(w, "    %s\n", styles.Muted.Render(strings.Join(meta, " | ")))
		if e.Result.Rationale != "" {
			fmt.Fprintf(w, "    %s\n", e.Result.Rationale)
		}
	}
}

func authorLine(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1, 2, 3:
		return strings.Join(authors, ", ")
	default:
		return strings.Join(authors[:3], ", ") + " et al."
	}
}

// printProfile writes one profile version.
func printProfile(w io.Writer, p types.InterestProfile) {
	if p.Version == 0 {
		fmt.Fprintln(w, "No interest profile yet. Give feedback on a search or use 'paperpal profile add'.")
		return
	}
	fmt.Fprintln(w, styles.Title.Render(fmt.Sprintf("Profile v%d", p.Version)),
		styles.Muted.Render("updated "+p.UpdatedAt.Local().Format("2006-01-02 15:04")))
	fmt.Fprintln(w)
	if p.Text != "" {
		fmt.Fprintln(w, p.Text)
	}
	if len(p.Exclusions) > 0 {
		fmt.Fprintf(w, "\nExcluded: %s\n", strings.Join(p.Exclusions, ", "))
	}
}
