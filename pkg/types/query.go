// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paperpal pipeline:
// papers, query specs, score results, ranked entries, interest profiles,
// feedback events, configuration, and the error taxonomy.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how candidates are retrieved.
type Mode string

const (
	// ModeFiltered runs a keyword query inside the chosen categories.
	ModeFiltered Mode = "filtered"

	// ModeExhaustive enumerates every paper in the chosen categories
	// within the window and lets the judge do all filtering.
	ModeExhaustive Mode = "exhaustive"
)

// TimeWindow is an inclusive submission-date range.
type TimeWindow struct {
	From time.Time `json:"from" yaml:"from"`
	To   time.Time `json:"to" yaml:"to"`

	// Label is the expression the window was parsed from (e.g. "3 days").
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// Days returns the window length rounded up to whole days.
func (w TimeWindow) Days() int {
	d := w.To.Sub(w.From)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// QuerySpec is the retrieval request handed to the paper source.
type QuerySpec struct {
	Mode       Mode       `json:"mode" yaml:"mode"`
	Window     TimeWindow `json:"window" yaml:"window"`
	Categories []string   `json:"categories" yaml:"categories"`

	// Topic is the user's current focus. Filtered mode searches for it;
	// exhaustive mode passes it to the judge only.
	Topic string `json:"topic,omitempty" yaml:"topic,omitempty"`

	// Keywords override Topic as the filtered-mode search terms.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// MaxResults caps the number of yielded papers.
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// SearchTerms returns the terms a filtered query matches against.
func (q QuerySpec) SearchTerms() []string {
	if len(q.Keywords) > 0 {
		return q.Keywords
	}
	if t := strings.TrimSpace(q.Topic); t != "" {
		return []string{t}
	}
	return nil
}

// Validate checks mode-specific invariants before any network call.
func (q QuerySpec) Validate() error {
	switch q.Mode {
	case ModeFiltered:
		if len(q.SearchTerms()) == 0 {
			return fmt.Errorf("%w: filtered mode needs a topic or keywords", ErrConfigInvalid)
		}
	case ModeExhaustive:
		if len(q.Categories) == 0 {
			return fmt.Errorf("%w: exhaustive mode needs at least one category", ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrConfigInvalid, q.Mode)
	}
	if q.Window.From.IsZero() || q.Window.To.IsZero() || q.Window.From.After(q.Window.To) {
		return fmt.Errorf("%w: invalid time window %s..%s", ErrConfigInvalid,
			q.Window.From.Format(time.DateOnly), q.Window.To.Format(time.DateOnly))
	}
	return nil
}
