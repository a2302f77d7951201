// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperpal/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past searches",
	Long: fmt.Sprintf(`History lists recorded searches, newest first. The last %d are kept.
Use 'history last' to reprint the most recent ranking, the one feedback
refers to.`, store.MaxRuns),
	RunE: runHistoryList,
}

var historyLastCmd = &cobra.Command{
	Use:   "last",
	Short: "Reprint the most recent ranking",
	RunE:  runHistoryLast,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete recorded searches and feedback (profiles are kept)",
	RunE:  runHistoryClear,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of runs to list")
	historyCmd.Flags().Bool("json", false, "output as JSON")
	historyClearCmd.Flags().Bool("yes", false, "do not ask for confirmation")

	historyCmd.AddCommand(historyLastCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := a.store.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	if len(runs) == 0 {
		fmt.Println("No searches recorded yet.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-16s  %-10s  %-30s  %-12s  %s\n", "Started", "Mode", "Topic", "Window", "Scored/Failed")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))
	for _, r := range runs {
		topic := r.Topic
		if topic == "" {
			topic = "-"
		}
		if len(topic) > 30 {
			topic = topic[:27] + "..."
		}
		status := fmt.Sprintf("%d/%d", r.Scored, r.Failed)
		if r.Interrupted {
			status += " (interrupted)"
		}
		fmt.Fprintf(os.Stdout, "%-16s  %-10s  %-30s  %-12s  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.Mode, topic, r.Window, status)
	}
	return nil
}

func runHistoryLast(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.store.LastRun(cmd.Context())
	if errors.Is(err, store.ErrNoRuns) {
		fmt.Println("No searches recorded yet.")
		return nil
	}
	if err != nil {
		return err
	}

	topic := run.Topic
	if topic == "" {
		topic = "all topics"
	}
	fmt.Printf("%s\n\n", styles.Title.Render(fmt.Sprintf("%s, %s (%s) on %s",
		topic, run.Window, run.Mode, run.StartedAt.Local().Format("2006-01-02 15:04"))))
	printRanked(os.Stdout, run.Ranked)
	if run.Summary != "" {
		fmt.Println()
		fmt.Println(styles.Box.Render("Summary\n\n" + run.Summary))
	}
	if run.ReportPath != "" {
		fmt.Println(styles.Muted.Render("Report: " + run.ReportPath))
	}
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		ok, err := confirm("Delete all recorded searches and feedback?")
		if err != nil || !ok {
			return err
		}
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.ClearHistory(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("History cleared.")
	return nil
}
