// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scoring fans candidate papers out to the judge through a bounded
// worker pool and turns the results into a thresholded, deterministically
// ordered RankedSet.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paperpal/internal/judge"
	"github.com/pdiddy/paperpal/internal/metrics"
	"github.com/pdiddy/paperpal/pkg/types"
)

// canceledReason marks papers that were never sent to the judge because
// the batch was cancelled.
const canceledReason = "canceled"

// maxAttempts is the first call plus one retry.
const maxAttempts = 2

// Coordinator scores batches of papers.
type Coordinator struct {
	Judge judge.Judge

	// CallTimeout bounds every judge call; a timeout counts as a failure.
	CallTimeout time.Duration

	// RetryDelay is the pause before the single retry.
	RetryDelay time.Duration

	// Cache holds successful results keyed by profile version, topic and
	// paper. Nil disables caching.
	Cache *cache.Cache

	// Progress receives a line every progressEvery completions; nil is silent.
	Progress io.Writer

	Log     logrus.FieldLogger
	Metrics *metrics.Metrics
}

const progressEvery = 25

// NewCoordinator configures a Coordinator with a score cache of the given TTL.
func NewCoordinator(j judge.Judge, callTimeout, cacheTTL time.Duration, log logrus.FieldLogger, m *metrics.Metrics) *Coordinator {
	c := &Coordinator{
		Judge:       j,
		CallTimeout: callTimeout,
		RetryDelay:  time.Second,
		Log:         log,
		Metrics:     m,
	}
	if cacheTTL > 0 {
		c.Cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return c
}

// Outcome is the full account of one scoring batch.
type Outcome struct {
	// Results has exactly one entry per input paper, in input order.
	Results []types.ScoreResult

	// Ranked holds the ok results at or above the threshold, best first.
	Ranked types.RankedSet

	Scored         int
	Failed         int
	Canceled       int
	BelowThreshold int
	CacheHits      int

	// ProfileVersion is the snapshot every paper in the batch was scored against.
	ProfileVersion int

	// Interrupted is set when the batch stopped early on cancellation.
	Interrupted bool
}

// Attempted returns the number of papers that reached the judge or the cache.
func (o Outcome) Attempted() int { return o.Scored + o.Failed }

// ScoreAndRank scores every paper against the same profile snapshot with
// at most concurrency judge calls in flight, then ranks.
//
// Each paper gets one retry. Results are matched to papers by position,
// never by completion order. When ctx is cancelled no further papers are
// submitted, calls already running finish or time out, unsubmitted papers
// are reported as failed with reason "canceled", and the partial ranking
// is returned with Interrupted set. A batch where every call fails yields
// an empty ranking and a nil error.
func (c *Coordinator) ScoreAndRank(ctx context.Context, papers []types.Paper, profile types.InterestProfile, topic string, threshold float64, concurrency int) (Outcome, error) {
	if concurrency < 1 {
		return Outcome{}, fmt.Errorf("%w: concurrency %d must be at least 1", types.ErrConfigInvalid, concurrency)
	}
	if threshold < types.MinScore || threshold > types.MaxScore {
		return Outcome{}, fmt.Errorf("%w: threshold %v outside %v..%v", types.ErrConfigInvalid, threshold, types.MinScore, types.MaxScore)
	}

	snapshot := profile.Clone()
	results := make([]types.ScoreResult, len(papers))
	hits := make([]bool, len(papers))

	// Running calls outlive cancellation; CallTimeout still bounds them.
	callCtx := context.WithoutCancel(ctx)

	var (
		g        errgroup.Group
		mu       sync.Mutex
		finished int
	)
	g.SetLimit(concurrency)
	done := func() {
		mu.Lock()
		defer mu.Unlock()
		finished++
		if c.Progress != nil && (finished%progressEvery == 0 || finished == len(papers)) {
			fmt.Fprintf(c.Progress, "  scored %d/%d\n", finished, len(papers))
		}
	}

	for i, p := range papers {
		if ctx.Err() != nil {
			break
		}
		if r, ok := c.cached(snapshot, topic, p.ID); ok {
			results[i] = r
			hits[i] = true
			done()
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = c.scoreOne(ctx, callCtx, p, snapshot, topic)
			done()
			return nil
		})
	}
	_ = g.Wait()

	out := Outcome{Results: results, ProfileVersion: snapshot.Version, Interrupted: ctx.Err() != nil}
	entries := make([]types.RankedEntry, 0, len(papers))
	for i, p := range papers {
		r := &results[i]
		if r.Status == "" {
			*r = types.ScoreResult{PaperID: p.ID, Status: types.ScoreFailed, Err: canceledReason}
		}
		switch {
		case r.Status == types.ScoreOK:
			out.Scored++
			if hits[i] {
				out.CacheHits++
				c.Metrics.Score("cached")
			} else {
				c.Metrics.Score("ok")
				c.store(snapshot, topic, *r)
			}
		case r.Err == canceledReason:
			out.Canceled++
			c.Metrics.Score("canceled")
		default:
			out.Failed++
			c.Metrics.Score("failed")
		}
		entries = append(entries, types.RankedEntry{Paper: p, Result: *r})
	}

	out.Ranked = Rank(entries, threshold)
	out.BelowThreshold = out.Scored - len(out.Ranked)

	c.logger().WithFields(logrus.Fields{
		"papers":          len(papers),
		"scored":          out.Scored,
		"failed":          out.Failed,
		"canceled":        out.Canceled,
		"cache_hits":      out.CacheHits,
		"ranked":          len(out.Ranked),
		"profile_version": out.ProfileVersion,
	}).Info("scoring batch finished")
	return out, nil
}

// scoreOne calls the judge at most twice for p. The retry is skipped when
// the batch has been cancelled.
func (c *Coordinator) scoreOne(batchCtx, callCtx context.Context, p types.Paper, profile types.InterestProfile, topic string) types.ScoreResult {
	res := types.ScoreResult{PaperID: p.ID, Status: types.ScoreFailed}
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if !c.pause(batchCtx) {
				break
			}
		}
		res.Attempts = attempt

		v, err := c.call(callCtx, p, profile, topic)
		if err == nil {
			res.Status = types.ScoreOK
			res.Score = v.Score
			res.Rationale = v.Rationale
			res.Err = ""
			return res
		}
		lastErr = err
		c.logger().WithFields(logrus.Fields{"paper": p.ID, "attempt": attempt}).WithError(err).Debug("judge call failed")
	}

	res.Err = lastErr.Error()
	c.logger().WithField("paper", p.ID).WithError(lastErr).Warn("paper not scored")
	return res
}

// pause waits RetryDelay before a retry. It reports false when the batch
// is cancelled first.
func (c *Coordinator) pause(batchCtx context.Context) bool {
	if batchCtx.Err() != nil {
		return false
	}
	if c.RetryDelay <= 0 {
		return true
	}
	select {
	case <-batchCtx.Done():
		return false
	case <-time.After(c.RetryDelay):
		return true
	}
}

func (c *Coordinator) call(ctx context.Context, p types.Paper, profile types.InterestProfile, topic string) (judge.Verdict, error) {
	if c.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.CallTimeout)
		defer cancel()
	}
	v, err := c.Judge.Score(ctx, p, profile, topic)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, types.ErrJudgeCallFailed) {
			err = fmt.Errorf("%w: timed out after %v: %v", types.ErrJudgeCallFailed, c.CallTimeout, err)
		}
		return judge.Verdict{}, err
	}
	if v.Score < types.MinScore || v.Score > types.MaxScore {
		return judge.Verdict{}, fmt.Errorf("%w: score %v out of range", types.ErrMalformedResponse, v.Score)
	}
	return v, nil
}

func cacheKey(profile types.InterestProfile, topic, paperID string) string {
	return fmt.Sprintf("%d|%s|%s", profile.Version, topic, paperID)
}

func (c *Coordinator) cached(profile types.InterestProfile, topic, paperID string) (types.ScoreResult, bool) {
	if c.Cache == nil {
		return types.ScoreResult{}, false
	}
	v, ok := c.Cache.Get(cacheKey(profile, topic, paperID))
	if !ok {
		return types.ScoreResult{}, false
	}
	r, ok := v.(types.ScoreResult)
	return r, ok
}

func (c *Coordinator) store(profile types.InterestProfile, topic string, r types.ScoreResult) {
	if c.Cache == nil {
		return
	}
	c.Cache.SetDefault(cacheKey(profile, topic, r.PaperID), r)
}

// Rank keeps ok results scoring at least threshold and orders them by
// score descending, then submission time descending, then ID ascending.
// The order is total, so equal inputs always rank identically.
func Rank(entries []types.RankedEntry, threshold float64) types.RankedSet {
	ranked := make(types.RankedSet, 0, len(entries))
	for _, e := range entries {
		if e.Result.OK() && e.Result.Score >= threshold {
			ranked = append(ranked, e)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Result.Score != b.Result.Score {
			return a.Result.Score > b.Result.Score
		}
		if !a.Paper.SubmittedAt.Equal(b.Paper.SubmittedAt) {
			return a.Paper.SubmittedAt.After(b.Paper.SubmittedAt)
		}
		return a.Paper.ID < b.Paper.ID
	})
	return ranked
}

func (c *Coordinator) logger() logrus.FieldLogger {
	if c.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return c.Log
}
