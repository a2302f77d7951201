// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperpal/pkg/types"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.Scoring.Threshold)
	assert.Equal(t, 32, cfg.Scoring.MaxWorkers)
	assert.Equal(t, 200, cfg.Source.PageSize)
	assert.Equal(t, 3, cfg.Source.Backoff.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Source.Backoff.BaseDelay)
	assert.Equal(t, types.ModeExhaustive, cfg.Session.Mode)
	assert.Equal(t, DefaultCategories, cfg.Session.Categories)
	assert.Equal(t, 2000, cfg.Memory.MaxLength)
	assert.Equal(t, "paperpal/0.1", cfg.Source.UserAgent)
}

func TestLoadFromYAML(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
scoring:
  threshold: 6.5
  max_workers: 4
session:
  mode: filtered
  categories: [cs.LG]
source:
  page_timeout: 5s
`)))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 6.5, cfg.Scoring.Threshold)
	assert.Equal(t, 4, cfg.Scoring.MaxWorkers)
	assert.Equal(t, types.ModeFiltered, cfg.Session.Mode)
	assert.Equal(t, []string{"cs.LG"}, cfg.Session.Categories)
	assert.Equal(t, 5*time.Second, cfg.Source.PageTimeout)
	// Untouched keys keep defaults.
	assert.Equal(t, 200, cfg.Source.PageSize)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Config)
		field  string
	}{
		{"threshold above ten", func(c *types.Config) { c.Scoring.Threshold = 11 }, "Threshold"},
		{"zero workers", func(c *types.Config) { c.Scoring.MaxWorkers = 0 }, "MaxWorkers"},
		{"unknown mode", func(c *types.Config) { c.Session.Mode = "everything" }, "Mode"},
		{"target not below max", func(c *types.Config) { c.Memory.TargetLength = 2500 }, "TargetLength"},
		{"backoff multiplier below one", func(c *types.Config) { c.Source.Backoff.Multiplier = 0.5 }, "Multiplier"},
		{"unknown export format", func(c *types.Config) { c.Export.Formats = []string{"pdf"} }, "Formats"},
		{"bad log level", func(c *types.Config) { c.LogLevel = "loud" }, "LogLevel"},
		{"missing model", func(c *types.Config) { c.Judge.Model = "" }, "Model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrConfigInvalid)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
