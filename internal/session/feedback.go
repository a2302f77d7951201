// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/paperpal/internal/memory"
	"github.com/pdiddy/paperpal/internal/store"
	"github.com/pdiddy/paperpal/pkg/types"
)

// FeedbackResult reports what feedback did to the profile.
type FeedbackResult struct {
	RunID  string
	Prior  types.InterestProfile
	Next   types.InterestProfile
	Update memory.UpdateReport

	// Err is set when the profile could not be updated. Prior is then
	// still the current profile and nothing was persisted.
	Err error
}

// Changed reports whether a new profile version was saved.
func (r *FeedbackResult) Changed() bool {
	return r.Err == nil && r.Next.Version != r.Prior.Version
}

// Feedback folds text into the profile. Paper positions in text refer to
// the displayed ranking of the most recent session: the one this
// Orchestrator ran last, or else the last run in the store.
//
// A failed update is not an error of Feedback itself: it is reported in
// FeedbackResult.Err and leaves the stored profile untouched. The returned
// error covers loading state and persisting a successful update.
func (o *Orchestrator) Feedback(ctx context.Context, text string) (*FeedbackResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: feedback is empty", types.ErrConfigInvalid)
	}

	runID, ranked, err := o.lastRanking(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := o.Store.LatestProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	ev := types.FeedbackEvent{Text: text, At: o.now()}
	res := &FeedbackResult{RunID: runID, Prior: profile, Next: profile}

	next, report, err := o.Memory.Update(ctx, profile, ev, ranked)
	res.Update = report
	if err != nil {
		res.Err = err
		o.logger().WithError(err).Warn("feedback not applied")
		return res, nil
	}
	res.Next = next

	if next.Version != profile.Version {
		if err := o.Store.SaveProfile(ctx, next); err != nil {
			res.Next = profile
			return res, fmt.Errorf("saving profile: %w", err)
		}
	}
	if err := o.Store.RecordFeedback(ctx, runID, ev, res.Next.Version); err != nil {
		o.logger().WithError(err).Warn("recording feedback failed")
	}
	return res, nil
}

func (o *Orchestrator) lastRanking(ctx context.Context) (string, types.RankedSet, error) {
	if last := o.Last(); last != nil {
		return last.RunID, last.Displayed, nil
	}
	run, err := o.Store.LastRun(ctx)
	if errors.Is(err, store.ErrNoRuns) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("loading last session: %w", err)
	}
	return run.ID, run.Ranked, nil
}
