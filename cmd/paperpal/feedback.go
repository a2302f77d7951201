// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperpal/internal/session"
	"github.com/pdiddy/paperpal/pkg/types"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <text>",
	Short: "Tell paperpal what you thought of the last ranking",
	Long: `Feedback updates your interest profile. Refer to papers by their
position in the most recent search ("paper 2 is great", "the third one is
off-topic") or name topics ("no more surveys", "more on theory").

Topics you reject are kept as exclusions and are never dropped when the
profile is compressed.`,
	Example: `  paperpal feedback "paper 1 and 4 are spot on, I dislike benchmark papers"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runFeedback,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedback(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.orch.Feedback(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	printFeedback(os.Stdout, res)
	if res.Err != nil {
		return res.Err
	}
	return nil
}

func printFeedback(w io.Writer, res *session.FeedbackResult) {
	for _, s := range res.Update.Signals {
		fmt.Fprintln(w, styles.Muted.Render("  "+describeSignal(s)))
	}
	for _, n := range res.Update.Notes {
		fmt.Fprintln(w, styles.Warning.Render("  "+n))
	}
	switch {
	case res.Err != nil:
		fmt.Fprintf(w, "Profile unchanged (still v%d).\n", res.Prior.Version)
	case res.Changed():
		msg := fmt.Sprintf("Profile updated: v%d -> v%d", res.Prior.Version, res.Next.Version)
		if res.Update.Compressed {
			msg += " (compressed)"
		}
		fmt.Fprintln(w, styles.Title.Render(msg))
		if len(res.Next.Exclusions) > 0 {
			fmt.Fprintf(w, "Excluded: %s\n", strings.Join(res.Next.Exclusions, ", "))
		}
	default:
		fmt.Fprintln(w, "Nothing to update.")
	}
}

func describeSignal(s types.FeedbackSignal) string {
	verb := "liked"
	if s.Polarity == types.Negative {
		verb = "disliked"
	}
	if s.PaperIndex > 0 {
		return fmt.Sprintf("%s paper %d: %s", verb, s.PaperIndex, s.PaperTitle)
	}
	return fmt.Sprintf("%s topic: %s", verb, s.Phrase)
}
