// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session runs one discovery session end to end: retrieve
// candidates, score and rank them against the current interest profile,
// summarise and export the top of the ranking, and record the run. It
// also folds later feedback on that ranking into the profile.
//
// Retrieval failures abort a session. Scoring failures only reduce the
// number of scored papers. Summary, export and history failures are
// reported as warnings and never discard the ranking.
package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/paperpal/internal/export"
	"github.com/pdiddy/paperpal/internal/filter"
	"github.com/pdiddy/paperpal/internal/judge"
	"github.com/pdiddy/paperpal/internal/memory"
	"github.com/pdiddy/paperpal/internal/query"
	"github.com/pdiddy/paperpal/internal/scoring"
	"github.com/pdiddy/paperpal/internal/source"
	"github.com/pdiddy/paperpal/internal/store"
	"github.com/pdiddy/paperpal/pkg/types"
)

// Store is the persistence a session needs.
type Store interface {
	LatestProfile(ctx context.Context) (types.InterestProfile, error)
	SaveProfile(ctx context.Context, p types.InterestProfile) error
	RecordRun(ctx context.Context, r store.Run) (string, error)
	LastRun(ctx context.Context) (store.Run, error)
	RecordFeedback(ctx context.Context, runID string, ev types.FeedbackEvent, profileVersion int) error
}

// Exporter writes reports to disk.
type Exporter interface {
	Write(r export.Report) ([]string, error)
}

// Orchestrator wires the pipeline stages together. One Orchestrator can
// run many sessions; feedback always applies to the most recent one.
type Orchestrator struct {
	Source *source.Fetcher
	Scorer *scoring.Coordinator
	Judge  judge.Judge
	Memory *memory.Manager
	Store  Store

	// Exporter is optional; nil disables export.
	Exporter Exporter

	Scoring types.ScoringConfig
	Session types.SessionConfig

	// Out receives progress lines for the user; nil is silent.
	Out io.Writer

	Log logrus.FieldLogger
	Now func() time.Time

	mu   sync.Mutex
	last *Result
}

// Request describes one session.
type Request struct {
	Intent query.Intent

	// Filter overrides the configured CEL prefilter when non-empty.
	Filter string

	// Threshold overrides the configured score threshold when non-nil.
	Threshold *float64

	// All displays every ranked paper regardless of MaxDisplay.
	All bool

	NoSummary bool
	NoExport  bool
}

// Result is everything a session produced.
type Result struct {
	RunID       string
	Query       types.QuerySpec
	SearchQuery string
	Source      source.Report

	// Candidates is the number of papers retrieved; Filtered counts those
	// the prefilter removed before scoring.
	Candidates int
	Filtered   int

	Scoring scoring.Outcome

	// Ranked is the full ranking; Displayed is its head, capped at
	// MaxDisplay. Feedback positions refer to Displayed.
	Ranked    types.RankedSet
	Displayed types.RankedSet

	Summary     string
	Reports     []string
	Warnings    []string
	Profile     types.InterestProfile
	Interrupted bool
	Started     time.Time
	Elapsed     time.Duration
}

// Run executes one session. When ctx is cancelled mid-way the papers
// scored so far are ranked and returned with Interrupted set and a nil
// error; summary and export are skipped for interrupted runs.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	started := o.now()
	res := &Result{Started: started}

	profile, err := o.Store.LatestProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	res.Profile = profile

	spec, err := query.Build(req.Intent, o.Session, started)
	if err != nil {
		return nil, err
	}
	res.Query = spec

	expr := req.Filter
	if expr == "" {
		expr = o.Session.Filter
	}
	pre, err := filter.Compile(expr)
	if err != nil {
		return nil, err
	}

	log := o.logger().WithFields(logrus.Fields{
		"mode":            spec.Mode,
		"topic":           spec.Topic,
		"window":          spec.Window.Label,
		"profile_version": profile.Version,
	})

	stream, err := o.Source.Stream(spec)
	if err != nil {
		return nil, err
	}
	res.SearchQuery = stream.Query()
	o.printf("Searching arXiv (%s, %s to %s)...\n", spec.Mode,
		spec.Window.From.Format("2006-01-02"), spec.Window.To.Format("2006-01-02"))

	papers, err := source.Collect(stream.Papers(ctx))
	res.Source = stream.Report()
	switch {
	case err == nil:
	case ctx.Err() != nil:
		res.Interrupted = true
		log.WithField("collected", len(papers)).Warn("retrieval interrupted")
	default:
		return nil, fmt.Errorf("retrieving candidates: %w", err)
	}
	for _, g := range res.Source.Gaps {
		res.Warnings = append(res.Warnings, fmt.Sprintf("page at offset %d skipped after %d attempts: %s", g.Start, g.Attempts, g.Err))
	}
	res.Candidates = len(papers)

	if pre != nil {
		kept, dropped, errs := pre.Apply(papers)
		res.Filtered = dropped
		if errs > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("filter could not evaluate %d papers; they were dropped", errs))
		}
		papers = kept
	}
	o.printf("Found %d candidates (%d duplicates, %d filtered out)\n", res.Candidates, res.Source.Duplicates, res.Filtered)

	threshold := o.Scoring.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if len(papers) > 0 {
		o.printf("Scoring %d papers with up to %d workers...\n", len(papers), o.Scoring.MaxWorkers)
	}
	outcome, err := o.Scorer.ScoreAndRank(ctx, papers, profile, spec.Topic, threshold, o.Scoring.MaxWorkers)
	if err != nil {
		return nil, err
	}
	res.Scoring = outcome
	res.Ranked = outcome.Ranked
	res.Interrupted = res.Interrupted || outcome.Interrupted
	if outcome.Failed > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d papers could not be scored", outcome.Failed))
	}

	res.Displayed = res.Ranked
	if n := o.Session.MaxDisplay; !req.All && n > 0 && len(res.Displayed) > n {
		res.Displayed = res.Displayed[:n]
	}

	if !res.Interrupted {
		if o.Session.AutoSummary && !req.NoSummary && len(res.Displayed) > 0 {
			res.Summary = o.summarize(ctx, spec.Topic, res)
		}
		if o.Exporter != nil && !req.NoExport {
			paths, err := o.Exporter.Write(export.Report{
				Topic:          spec.Topic,
				Query:          spec,
				Generated:      started,
				Summary:        res.Summary,
				Ranked:         res.Displayed,
				Candidates:     res.Candidates,
				Scored:         outcome.Scored,
				Failed:         outcome.Failed,
				ProfileVersion: profile.Version,
			})
			res.Reports = paths
			if err != nil {
				res.Warnings = append(res.Warnings, "export: "+err.Error())
				log.WithError(err).Warn("export failed")
			}
		}
	}

	run := store.Run{
		StartedAt:      started,
		Topic:          spec.Topic,
		Mode:           spec.Mode,
		Window:         spec.Window.Label,
		Candidates:     res.Candidates,
		Scored:         outcome.Scored,
		Failed:         outcome.Failed,
		Canceled:       outcome.Canceled,
		Interrupted:    res.Interrupted,
		ProfileVersion: profile.Version,
		Summary:        res.Summary,
		Ranked:         res.Displayed,
	}
	if len(res.Reports) > 0 {
		run.ReportPath = res.Reports[0]
	}
	// The run is recorded even after cancellation so feedback can refer to it.
	id, err := o.Store.RecordRun(context.WithoutCancel(ctx), run)
	if err != nil {
		res.Warnings = append(res.Warnings, "history: "+err.Error())
		log.WithError(err).Warn("recording run failed")
	}
	res.RunID = id
	res.Elapsed = o.now().Sub(started)

	o.mu.Lock()
	o.last = res
	o.mu.Unlock()

	log.WithFields(logrus.Fields{
		"candidates":  res.Candidates,
		"scored":      outcome.Scored,
		"failed":      outcome.Failed,
		"ranked":      len(res.Ranked),
		"interrupted": res.Interrupted,
		"elapsed":     res.Elapsed.Round(time.Millisecond).String(),
	}).Info("session finished")
	return res, nil
}

// Last returns the most recent result of this Orchestrator, if any.
func (o *Orchestrator) Last() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

func (o *Orchestrator) summarize(ctx context.Context, topic string, res *Result) string {
	top := res.Displayed
	if n := o.Session.SummaryTopN; n > 0 && len(top) > n {
		top = top[:n]
	}
	o.printf("Summarizing top %d papers...\n", len(top))
	summary, err := o.Judge.Summarize(ctx, topic, top)
	if err != nil {
		res.Warnings = append(res.Warnings, "summary: "+err.Error())
		o.logger().WithError(err).Warn("summary failed")
		return ""
	}
	return summary
}

func (o *Orchestrator) printf(format string, args ...any) {
	if o.Out != nil {
		fmt.Fprintf(o.Out, format, args...)
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) logger() logrus.FieldLogger {
	if o.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return o.Log
}
