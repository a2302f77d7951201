// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config assembles the paperpal configuration from defaults, a
// config file, and the environment, and validates it before any work starts.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperpal/pkg/types"
)

// DefaultCategories is the category set used when none is configured.
var DefaultCategories = []string{
	"cs.AI", "cs.LG", "cs.CL", "cs.CV", "cs.NE", "cs.RO", "cs.IR", "stat.ML",
}

const defaultUserAgent = "paperpal/0.1"

var validate = validator.New()

// Default returns the built-in configuration.
func Default() types.Config {
	return types.Config{
		Source: types.SourceConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   60 * time.Second,
				UserAgent: defaultUserAgent,
			},
			PageSize:             200,
			MaxResults:           200,
			ExhaustiveMaxResults: 5000,
			PageTimeout:          60 * time.Second,
			RequestInterval:      3 * time.Second,
			TooOldTolerance:      100,
			Backoff: types.BackoffConfig{
				MaxAttempts: 3,
				BaseDelay:   2 * time.Second,
				Multiplier:  2,
			},
		},
		Judge: types.JudgeConfig{
			Model:             "gpt-4o-mini",
			BaseURL:           "https://api.openai.com/v1",
			Timeout:           60 * time.Second,
			RequestsPerSecond: 0,
		},
		Scoring: types.ScoringConfig{
			Threshold:  5.0,
			MaxWorkers: 32,
			CacheTTL:   time.Hour,
		},
		Memory: types.MemoryConfig{
			MaxLength:    2000,
			TargetLength: 1500,
		},
		Session: types.SessionConfig{
			Mode:        types.ModeExhaustive,
			Categories:  append([]string(nil), DefaultCategories...),
			AutoSummary: true,
			SummaryTopN: 10,
			MaxDisplay:  20,
		},
		Export: types.ExportConfig{
			OutputDir: "output",
			Formats:   []string{"markdown"},
		},
		DataDir:  "data",
		LogLevel: "info",
	}
}

// SetDefaults registers every default on v so that config files and
// environment variables only need to name what they change.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("source.timeout", d.Source.Timeout)
	v.SetDefault("source.user_agent", d.Source.UserAgent)
	v.SetDefault("source.page_size", d.Source.PageSize)
	v.SetDefault("source.max_results", d.Source.MaxResults)
	v.SetDefault("source.exhaustive_max_results", d.Source.ExhaustiveMaxResults)
	v.SetDefault("source.page_timeout", d.Source.PageTimeout)
	v.SetDefault("source.request_interval", d.Source.RequestInterval)
	v.SetDefault("source.too_old_tolerance", d.Source.TooOldTolerance)
	v.SetDefault("source.backoff.max_attempts", d.Source.Backoff.MaxAttempts)
	v.SetDefault("source.backoff.base_delay", d.Source.Backoff.BaseDelay)
	v.SetDefault("source.backoff.multiplier", d.Source.Backoff.Multiplier)

	v.SetDefault("judge.model", d.Judge.Model)
	v.SetDefault("judge.base_url", d.Judge.BaseURL)
	v.SetDefault("judge.timeout", d.Judge.Timeout)
	v.SetDefault("judge.requests_per_second", d.Judge.RequestsPerSecond)

	v.SetDefault("scoring.threshold", d.Scoring.Threshold)
	v.SetDefault("scoring.max_workers", d.Scoring.MaxWorkers)
	v.SetDefault("scoring.cache_ttl", d.Scoring.CacheTTL)

	v.SetDefault("memory.max_length", d.Memory.MaxLength)
	v.SetDefault("memory.target_length", d.Memory.TargetLength)

	v.SetDefault("session.mode", string(d.Session.Mode))
	v.SetDefault("session.categories", d.Session.Categories)
	v.SetDefault("session.auto_summary", d.Session.AutoSummary)
	v.SetDefault("session.summary_top_n", d.Session.SummaryTopN)
	v.SetDefault("session.max_display", d.Session.MaxDisplay)
	v.SetDefault("session.filter", d.Session.Filter)

	v.SetDefault("export.output_dir", d.Export.OutputDir)
	v.SetDefault("export.formats", d.Export.Formats)

	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("metrics_file", d.MetricsFile)

	// The OpenAI client conventions are honored without the PAPERPAL_ prefix.
	_ = v.BindEnv("judge.api_key", "PAPERPAL_JUDGE_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("judge.base_url", "PAPERPAL_JUDGE_BASE_URL", "OPENAI_BASE_URL")
	_ = v.BindEnv("judge.model", "PAPERPAL_JUDGE_MODEL", "OPENAI_MODEL")
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("%w: decoding: %v", types.ErrConfigInvalid, err)
	}
	if err := Validate(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against its struct constraints. Every violation is
// listed in the returned error, which wraps types.ErrConfigInvalid.
func Validate(cfg types.Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", types.ErrConfigInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", types.ErrConfigInvalid, strings.Join(msgs, "; "))
}
