// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP client timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// UserAgent is the User-Agent header sent with HTTP requests (e.g. "paperpal/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// BackoffConfig is a bounded exponential backoff policy: attempt n waits
// BaseDelay * Multiplier^(n-1) before retrying.
type BackoffConfig struct {
	MaxAttempts int           `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	BaseDelay   time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay" validate:"gte=0"`
	Multiplier  float64       `json:"multiplier" yaml:"multiplier" mapstructure:"multiplier" validate:"gte=1"`
}

// SourceConfig holds settings for the paper source.
type SourceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// PageSize is the number of entries requested per page (default 200).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size" validate:"gte=1,lte=2000"`

	// MaxResults caps yielded papers in filtered mode (default 200).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results" validate:"gte=1"`

	// ExhaustiveMaxResults caps yielded papers in exhaustive mode (default 5000).
	ExhaustiveMaxResults int `json:"exhaustive_max_results" yaml:"exhaustive_max_results" mapstructure:"exhaustive_max_results" validate:"gte=1"`

	// PageTimeout bounds a single page fetch.
	PageTimeout time.Duration `json:"page_timeout" yaml:"page_timeout" mapstructure:"page_timeout" validate:"gt=0"`

	// RequestInterval is the minimum spacing between page requests (default 3s).
	RequestInterval time.Duration `json:"request_interval" yaml:"request_interval" mapstructure:"request_interval" validate:"gte=0"`

	// TooOldTolerance is how many out-of-window entries exhaustive mode
	// accepts before it stops paging (default 100).
	TooOldTolerance int `json:"too_old_tolerance" yaml:"too_old_tolerance" mapstructure:"too_old_tolerance" validate:"gte=0"`

	Backoff BackoffConfig `json:"backoff" yaml:"backoff" mapstructure:"backoff"`
}

// JudgeConfig holds settings for the LLM judge.
type JudgeConfig struct {
	// Model is the chat model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model" mapstructure:"model" validate:"required"`

	// BaseURL is the OpenAI-compatible API root.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// APIKey is the authentication key for the judge API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Timeout bounds a single judge call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// RequestsPerSecond rate-limits judge calls; 0 disables the limit.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
}

// ScoringConfig holds settings for the scoring coordinator.
type ScoringConfig struct {
	// Threshold is the minimum score a paper needs to be ranked (default 5.0).
	Threshold float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold" validate:"gte=0,lte=10"`

	// MaxWorkers bounds concurrent judge calls (default 32).
	MaxWorkers int `json:"max_workers" yaml:"max_workers" mapstructure:"max_workers" validate:"gte=1,lte=256"`

	// CacheTTL keeps successful scores for re-runs in the same session.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl" validate:"gte=0"`
}

// MemoryConfig holds settings for preference memory.
type MemoryConfig struct {
	// MaxLength triggers compression when the profile text exceeds it (default 2000).
	MaxLength int `json:"max_length" yaml:"max_length" mapstructure:"max_length" validate:"gt=0"`

	// TargetLength is the length compression aims for (default 1500).
	TargetLength int `json:"target_length" yaml:"target_length" mapstructure:"target_length" validate:"gt=0,ltfield=MaxLength"`
}

// SessionConfig holds settings for the session orchestrator.
type SessionConfig struct {
	Mode       Mode     `json:"mode" yaml:"mode" mapstructure:"mode" validate:"oneof=filtered exhaustive"`
	Categories []string `json:"categories" yaml:"categories" mapstructure:"categories" validate:"dive,required"`

	// AutoSummary generates a summary of the top papers after ranking.
	AutoSummary bool `json:"auto_summary" yaml:"auto_summary" mapstructure:"auto_summary"`

	// SummaryTopN is how many top papers the summary covers (default 10).
	SummaryTopN int `json:"summary_top_n" yaml:"summary_top_n" mapstructure:"summary_top_n" validate:"gte=1"`

	// MaxDisplay caps printed results (default 20); 0 prints all.
	MaxDisplay int `json:"max_display" yaml:"max_display" mapstructure:"max_display" validate:"gte=0"`

	// Filter is an optional CEL expression that candidates must satisfy
	// before scoring.
	Filter string `json:"filter,omitempty" yaml:"filter,omitempty" mapstructure:"filter"`
}

// ExportConfig holds settings for writing results to disk.
type ExportConfig struct {
	OutputDir string   `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir" validate:"required"`
	Formats   []string `json:"formats" yaml:"formats" mapstructure:"formats" validate:"dive,oneof=markdown html yaml csl"`
}

// Config is the full paperpal configuration.
type Config struct {
	Source  SourceConfig  `json:"source" yaml:"source" mapstructure:"source"`
	Judge   JudgeConfig   `json:"judge" yaml:"judge" mapstructure:"judge"`
	Scoring ScoringConfig `json:"scoring" yaml:"scoring" mapstructure:"scoring"`
	Memory  MemoryConfig  `json:"memory" yaml:"memory" mapstructure:"memory"`
	Session SessionConfig `json:"session" yaml:"session" mapstructure:"session"`
	Export  ExportConfig  `json:"export" yaml:"export" mapstructure:"export"`

	// DataDir holds the SQLite database.
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir" validate:"required"`

	// MetricsFile, when set, receives Prometheus text-format metrics at exit.
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`

	LogLevel string `json:"log_level" yaml:"log_level" mapstructure:"log_level" validate:"oneof=debug info warn error"`
}
