// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paperpal/internal/query"
	"github.com/pdiddy/paperpal/internal/session"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Search and give feedback in a loop (the default)",
	RunE:  runInteractive,
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

const (
	actionFeedback = "feedback"
	actionSearch   = "search"
	actionProfile  = "profile"
	actionQuit     = "quit"
)

// runInteractive loops search, show, feedback until the user quits. All
// searches in the loop share one Orchestrator, so feedback always refers
// to the ranking just shown.
func runInteractive(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	action := actionSearch
	for {
		switch action {
		case actionSearch:
			if err := interactiveSearch(ctx, a); err != nil {
				return quietAbort(err)
			}
			if ctx.Err() != nil {
				fmt.Println(styles.Muted.Render("Stopped. Use 'paperpal feedback' to comment on these results."))
				return nil
			}
		case actionFeedback:
			if err := interactiveFeedback(ctx, a); err != nil {
				return quietAbort(err)
			}
		case actionProfile:
			p, err := a.store.LatestProfile(ctx)
			if err != nil {
				return err
			}
			printProfile(os.Stdout, p)
		case actionQuit:
			return nil
		}

		action, err = nextAction(ctx, a.orch.Last() != nil)
		if err != nil {
			return quietAbort(err)
		}
	}
}

func interactiveSearch(ctx context.Context, a *app) error {
	var text string
	window := query.DefaultWindow
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("What are you looking for?").
			Description(`A topic, optionally with a time phrase ("RAG evaluation from last week"). Empty searches everything.`).
			Value(&text),
		huh.NewSelect[string]().
			Title("Time window (used when the request names none)").
			Options(
				huh.NewOption("Today", "today"),
				huh.NewOption("Last 3 days", "3days"),
				huh.NewOption("Last week", "week"),
				huh.NewOption("Last 2 weeks", "2weeks"),
				huh.NewOption("Last month", "month"),
			).
			Value(&window),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return err
	}

	topic, phrase := query.ParseRequest(text)
	if phrase == "" {
		phrase = window
	}
	res, err := a.orch.Run(ctx, session.Request{Intent: query.Intent{Topic: topic, Window: phrase}})
	if err != nil {
		// A failed search is reported and the loop continues.
		fmt.Fprintln(os.Stderr, styles.Error.Render("Search failed: "+err.Error()))
		return nil
	}
	printResult(os.Stdout, res)
	return nil
}

func interactiveFeedback(ctx context.Context, a *app) error {
	var text string
	err := huh.NewForm(huh.NewGroup(
		huh.NewText().
			Title("Feedback").
			Description(`Refer to papers by number ("paper 1 and paper 3 are great") or name topics ("no more surveys").`).
			Value(&text),
	)).RunWithContext(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	res, err := a.orch.Feedback(ctx, text)
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.Error.Render("Feedback failed: "+err.Error()))
		return nil
	}
	printFeedback(os.Stdout, res)
	if res.Err != nil {
		fmt.Fprintln(os.Stderr, styles.Warning.Render(res.Err.Error()))
	}
	return nil
}

func nextAction(ctx context.Context, haveResults bool) (string, error) {
	opts := []huh.Option[string]{huh.NewOption("New search", actionSearch)}
	if haveResults {
		opts = append([]huh.Option[string]{huh.NewOption("Give feedback on these results", actionFeedback)}, opts...)
	}
	opts = append(opts,
		huh.NewOption("Show my profile", actionProfile),
		huh.NewOption("Quit", actionQuit),
	)

	var choice string
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().Title("Next").Options(opts...).Value(&choice),
	)).RunWithContext(ctx)
	return choice, err
}

// confirm asks a yes/no question.
func confirm(question string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().Title(question).Affirmative("Yes").Negative("No").Value(&ok).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// quietAbort treats leaving a prompt as a normal exit.
func quietAbort(err error) error {
	if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
