// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperpal/internal/query"
	"github.com/pdiddy/paperpal/internal/session"
	"github.com/pdiddy/paperpal/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [request]",
	Short: "Retrieve, score and rank recent papers",
	Long: `Search retrieves papers from arXiv for a time window, scores every
candidate against the topic and your interest profile, and prints those at
or above the threshold, best first.

The request may be plain text such as "LLM agents from last week"; a
trailing time phrase becomes the window. Flags override what the text says.

Modes:
  filtered    arXiv keyword search on the topic (fast, may miss papers)
  exhaustive  every paper in the configured categories, judged on the topic

Press Ctrl-C while scoring to stop early and keep the papers scored so far.`,
	Example: `  paperpal search "graph neural networks from last week"
  paperpal search --topic "retrieval augmented generation" --time 3days
  paperpal search --mode exhaustive --categories cs.CL --time "2026-03-01 to 2026-03-07"`,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.String("topic", "", "research topic (overrides the request text)")
	f.StringSlice("keywords", nil, "extra search keywords")
	f.String("time", "", "time window: today, 3days, week, 2weeks, month, 'last 10 days', 'since 2026-03-01', ...")
	f.String("mode", "", "retrieval mode: filtered or exhaustive")
	f.StringSlice("categories", nil, "arXiv categories (e.g. cs.AI,cs.LG)")
	f.Float64("threshold", 0, "minimum score to rank a paper (default from config)")
	f.Int("max-results", 0, "cap on retrieved candidates (default from config)")
	f.String("filter", "", "CEL prefilter over paper fields, e.g. 'size(paper.authors) < 20'")
	f.Bool("all", false, "show every paper above the threshold, not just the first max_display")
	f.Bool("no-summary", false, "skip the summary of the top papers")
	f.Bool("no-export", false, "do not write report files")
	f.Bool("json", false, "print the result as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	req := searchRequest(cmd, strings.Join(args, " "))

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.orch.Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(os.Stdout, res)
	return nil
}

// searchRequest combines the free-text request with explicit flags.
func searchRequest(cmd *cobra.Command, text string) session.Request {
	f := cmd.Flags()
	topic, window := query.ParseRequest(text)
	if v, _ := f.GetString("topic"); v != "" {
		topic = v
	}
	if v, _ := f.GetString("time"); v != "" {
		window = v
	}
	keywords, _ := f.GetStringSlice("keywords")
	mode, _ := f.GetString("mode")
	categories, _ := f.GetStringSlice("categories")
	maxResults, _ := f.GetInt("max-results")
	expr, _ := f.GetString("filter")
	all, _ := f.GetBool("all")
	noSummary, _ := f.GetBool("no-summary")
	noExport, _ := f.GetBool("no-export")

	req := session.Request{
		Intent: query.Intent{
			Topic:      topic,
			Keywords:   keywords,
			Window:     window,
			Mode:       types.Mode(mode),
			Categories: categories,
			MaxResults: maxResults,
		},
		Filter:    expr,
		All:       all,
		NoSummary: noSummary,
		NoExport:  noExport,
	}
	if f.Changed("threshold") {
		t, _ := f.GetFloat64("threshold")
		req.Threshold = &t
	}
	return req
}
