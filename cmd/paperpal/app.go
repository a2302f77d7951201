// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/pdiddy/paperpal/internal/config"
	"github.com/pdiddy/paperpal/internal/export"
	"github.com/pdiddy/paperpal/internal/judge"
	"github.com/pdiddy/paperpal/internal/memory"
	"github.com/pdiddy/paperpal/internal/metrics"
	"github.com/pdiddy/paperpal/internal/scoring"
	"github.com/pdiddy/paperpal/internal/session"
	"github.com/pdiddy/paperpal/internal/source"
	"github.com/pdiddy/paperpal/internal/store"
	"github.com/pdiddy/paperpal/pkg/types"
)

// app holds the components one command invocation needs.
type app struct {
	cfg     types.Config
	store   *store.Store
	metrics *metrics.Metrics
	memory  *memory.Manager
	orch    *session.Orchestrator
}

// newApp loads configuration and opens the store. With withJudge set it
// also builds the judge and the full session pipeline, which requires an
// API key; commands that only read history pass false.
func newApp(withJudge bool) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: st, metrics: metrics.New()}
	if !withJudge {
		return a, nil
	}

	j, err := judge.NewOpenAI(cfg.Judge, log, a.metrics)
	if err != nil {
		st.Close()
		return nil, err
	}
	a.memory = memory.NewManager(j, cfg.Memory, log, a.metrics)

	scorer := scoring.NewCoordinator(j, cfg.Judge.Timeout, cfg.Scoring.CacheTTL, log, a.metrics)
	scorer.Progress = os.Stderr

	a.orch = &session.Orchestrator{
		Source:   source.NewFetcher(source.NewArxivPager(cfg.Source), cfg.Source, log, a.metrics),
		Scorer:   scorer,
		Judge:    j,
		Memory:   a.memory,
		Store:    st,
		Exporter: export.New(cfg.Export),
		Scoring:  cfg.Scoring,
		Session:  cfg.Session,
		Out:      os.Stderr,
		Log:      log,
	}
	return a, nil
}

// Close writes the metrics file, when configured, and closes the store.
func (a *app) Close() error {
	if a.cfg.MetricsFile != "" {
		if err := a.metrics.WriteFile(a.cfg.MetricsFile); err != nil {
			log.WithError(err).Warn("writing metrics failed")
		}
	}
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}
