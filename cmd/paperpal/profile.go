// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperpal/internal/memory"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show and edit your interest profile",
	Long: `Profile manages the interest profile the judge scores papers against.
Every change creates a new version; old versions are kept and can be shown
with --version.`,
	RunE: runProfileShow,
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current profile (or an older version)",
	RunE:  runProfileShow,
}

var profileAddCmd = &cobra.Command{
	Use:     "add <text>",
	Short:   "Add a note to the profile as written",
	Example: `  paperpal profile add "I work on efficient transformer inference."`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runProfileAdd,
}

var profileResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Start over with an empty profile",
	RunE:  runProfileReset,
}

var profileHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored profile versions and recent feedback",
	RunE:  runProfileHistory,
}

func init() {
	profileCmd.PersistentFlags().Int("version", 0, "profile version to show (default latest)")
	profileResetCmd.Flags().Bool("yes", false, "do not ask for confirmation")

	profileCmd.AddCommand(profileShowCmd, profileAddCmd, profileResetCmd, profileHistoryCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	v, _ := cmd.Flags().GetInt("version")
	p, err := a.store.LatestProfile(cmd.Context())
	if v > 0 {
		p, err = a.store.Profile(cmd.Context(), v)
	}
	if err != nil {
		return err
	}
	printProfile(os.Stdout, p)
	return nil
}

func runProfileAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	prior, err := a.store.LatestProfile(ctx)
	if err != nil {
		return err
	}
	next, err := a.memory.Append(ctx, prior, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if next.Version == prior.Version {
		fmt.Println("Nothing to add.")
		return nil
	}
	if err := a.store.SaveProfile(ctx, next); err != nil {
		return err
	}
	fmt.Println(styles.Title.Render(fmt.Sprintf("Profile updated: v%d -> v%d", prior.Version, next.Version)))
	return nil
}

func runProfileReset(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		ok, err := confirm("Reset your interest profile? Older versions stay in history.")
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	prior, err := a.store.LatestProfile(ctx)
	if err != nil {
		return err
	}
	// Reset never calls the judge, so no API key is needed here.
	next := memory.NewManager(nil, a.cfg.Memory, log, a.metrics).Reset(prior)
	if err := a.store.SaveProfile(ctx, next); err != nil {
		return err
	}
	fmt.Printf("Profile reset (now v%d).\n", next.Version)
	return nil
}

func runProfileHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	versions, err := a.store.ProfileVersions(ctx)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Println("No profile versions yet.")
		return nil
	}
	for _, v := range versions {
		p, err := a.store.Profile(ctx, v)
		if err != nil {
			return err
		}
		fmt.Printf("v%-4d %s  %s\n", p.Version, p.UpdatedAt.Local().Format("2006-01-02 15:04"), preview(p.Text, 60))
	}

	events, err := a.store.Feedback(ctx, 10)
	if err != nil {
		return err
	}
	if len(events) > 0 {
		fmt.Println()
		fmt.Println(styles.Title.Render("Recent feedback"))
		for _, ev := range events {
			fmt.Printf("%s  %s\n", ev.At.Local().Format("2006-01-02 15:04"), ev.Text)
		}
	}
	return nil
}

// preview returns the first line of s cut to n runes.
func preview(s string, n int) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	if s == "" {
		return styles.Muted.Render("(empty)")
	}
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}
