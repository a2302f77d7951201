// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperpal/pkg/types"
)

var now = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		expr string
		from time.Time
	}{
		{"", now.AddDate(0, 0, -1)},
		{"today", now.AddDate(0, 0, -1)},
		{"3days", now.AddDate(0, 0, -3)},
		{"week", now.AddDate(0, 0, -7)},
		{"2weeks", now.AddDate(0, 0, -14)},
		{"month", now.AddDate(0, -1, 0)},
		{"3 days", now.AddDate(0, 0, -3)},
		{"last 5 days", now.AddDate(0, 0, -5)},
		{"past 2 weeks", now.AddDate(0, 0, -14)},
		{"Last Week", now.AddDate(0, 0, -7)},
		{"this month", now.AddDate(0, -1, 0)},
		{"past 3 months", now.AddDate(0, -3, 0)},
		{"last two months", now.AddDate(0, -2, 0)},
		{"this quarter", now.AddDate(0, -3, 0)},
		{"half a year", now.AddDate(0, -6, 0)},
		{"this year", now.AddDate(-1, 0, 0)},
		{"last 2 years", now.AddDate(-2, 0, 0)},
		{"recently", now.AddDate(0, 0, -7)},
		{"whenever", now.AddDate(0, 0, -1)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			w, err := ParseWindow(tt.expr, now)
			require.NoError(t, err)
			assert.Equal(t, tt.from, w.From)
			assert.Equal(t, now, w.To)
		})
	}
}

func TestParseWindowExplicitRanges(t *testing.T) {
	jan1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	jan31End := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)

	for _, expr := range []string{
		"from 2026-01-01 to 2026-01-31",
		"2026-01-01 ~ 2026-01-31",
		"2026/1/1 to 2026/1/31",
	} {
		t.Run(expr, func(t *testing.T) {
			w, err := ParseWindow(expr, now)
			require.NoError(t, err)
			assert.Equal(t, jan1, w.From)
			assert.Equal(t, jan31End, w.To)
			assert.Equal(t, expr, w.Label)
			assert.True(t, w.Contains(time.Date(2026, 1, 31, 18, 0, 0, 0, time.UTC)))
		})
	}
}

func TestParseWindowSince(t *testing.T) {
	w, err := ParseWindow("since 2026-03-01", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, now, w.To)

	_, err = ParseWindow("since 2027-01-01", now)
	assert.ErrorIs(t, err, types.ErrConfigInvalid)
}

func TestParseWindowRejectsReversedRange(t *testing.T) {
	_, err := ParseWindow("from 2026-02-01 to 2026-01-01", now)
	assert.ErrorIs(t, err, types.ErrConfigInvalid)
}

func TestParseWindowLabel(t *testing.T) {
	w, err := ParseWindow("  past 3 days ", now)
	require.NoError(t, err)
	assert.Equal(t, "past 3 days", w.Label)
	assert.Equal(t, 3, w.Days())

	w, err = ParseWindow("", now)
	require.NoError(t, err)
	assert.Equal(t, DefaultWindow, w.Label)
}

func TestIsWindow(t *testing.T) {
	assert.True(t, IsWindow("last week"))
	assert.True(t, IsWindow("3days"))
	assert.True(t, IsWindow("2026-01-01 ~ 2026-01-02"))
	assert.False(t, IsWindow("diffusion models"))
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		text, topic, window string
	}{
		{"LLM papers from last week", "LLM", "last week"},
		{"reinforcement learning papers in the past 3 days", "reinforcement learning", "past 3 days"},
		{"find me recent diffusion papers", "diffusion", ""},
		{"graph neural networks since 2026-03-01", "graph neural networks", "since 2026-03-01"},
		{"multimodal learning", "multimodal learning", ""},
		{"robot grasping today", "robot grasping", "today"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			topic, window := ParseRequest(tt.text)
			assert.Equal(t, tt.topic, topic)
			assert.Equal(t, tt.window, window)
		})
	}
}

func TestBuild(t *testing.T) {
	defaults := types.SessionConfig{Mode: "exhaustive", Categories: []string{"cs.AI", "cs.LG"}}

	t.Run("defaults fill mode and categories", func(t *testing.T) {
		spec, err := Build(Intent{Topic: " offline RL ", Window: "3 days"}, defaults, now)
		require.NoError(t, err)
		assert.Equal(t, types.ModeExhaustive, spec.Mode)
		assert.Equal(t, []string{"cs.AI", "cs.LG"}, spec.Categories)
		assert.Equal(t, "offline RL", spec.Topic)
		assert.Equal(t, now.AddDate(0, 0, -3), spec.Window.From)
	})

	t.Run("filtered with keywords", func(t *testing.T) {
		spec, err := Build(Intent{
			Mode:       types.ModeFiltered,
			Keywords:   []string{"reinforcement learning", " ", "Reinforcement Learning", "RL"},
			Categories: []string{"cs.LG"},
			MaxResults: 50,
		}, defaults, now)
		require.NoError(t, err)
		assert.Equal(t, []string{"reinforcement learning", "RL"}, spec.Keywords)
		assert.Equal(t, []string{"cs.LG"}, spec.Categories)
		assert.Equal(t, 50, spec.MaxResults)
	})

	t.Run("filtered without terms is invalid", func(t *testing.T) {
		_, err := Build(Intent{Mode: types.ModeFiltered}, defaults, now)
		assert.ErrorIs(t, err, types.ErrConfigInvalid)
	})

	t.Run("exhaustive without categories is invalid", func(t *testing.T) {
		_, err := Build(Intent{}, types.SessionConfig{Mode: "exhaustive"}, now)
		assert.ErrorIs(t, err, types.ErrConfigInvalid)
	})

	t.Run("bad window", func(t *testing.T) {
		_, err := Build(Intent{Window: "from 2026-05-01 to 2026-04-01"}, defaults, now)
		assert.ErrorIs(t, err, types.ErrConfigInvalid)
	})
}
