// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// InterestProfile is a versioned snapshot of the user's preferences. It is
// a value: updates produce a new profile with a higher Version and leave
// the old one untouched.
type InterestProfile struct {
	Version int `json:"version" yaml:"version"`

	// Text is the free-form preference memory the judge reads.
	Text string `json:"text" yaml:"text"`

	// Exclusions are topics the user asked never to see. They are kept
	// outside Text so compression cannot drop them.
	Exclusions []string `json:"exclusions,omitempty" yaml:"exclusions,omitempty"`

	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// IsEmpty reports whether the profile carries no preferences.
func (p InterestProfile) IsEmpty() bool {
	return strings.TrimSpace(p.Text) == "" && len(p.Exclusions) == 0
}

// Context renders the profile as the judge sees it.
func (p InterestProfile) Context() string {
	var b strings.Builder
	if t := strings.TrimSpace(p.Text); t != "" {
		b.WriteString(t)
	} else {
		b.WriteString("No preference history yet.")
	}
	if len(p.Exclusions) > 0 {
		b.WriteString("\n\nUser is NOT interested in: ")
		b.WriteString(strings.Join(p.Exclusions, ", "))
	}
	return b.String()
}

// Clone returns a copy that shares no slices with p.
func (p InterestProfile) Clone() InterestProfile {
	c := p
	c.Exclusions = append([]string(nil), p.Exclusions...)
	return c
}

// FeedbackEvent is one piece of free-form user feedback on a RankedSet.
type FeedbackEvent struct {
	Text string    `json:"text" yaml:"text"`
	At   time.Time `json:"at" yaml:"at"`
}

// Polarity is the direction of a feedback signal.
type Polarity string

const (
	Positive Polarity = "positive"
	Negative Polarity = "negative"
)

// FeedbackSignal is one resolved piece of feedback. PaperIndex is the
// 1-based position in the RankedSet the feedback was given on, or 0 when
// the signal names a topic instead of a paper.
type FeedbackSignal struct {
	Polarity   Polarity `json:"polarity" yaml:"polarity"`
	PaperIndex int      `json:"paper_index,omitempty" yaml:"paper_index,omitempty"`
	PaperID    string   `json:"paper_id,omitempty" yaml:"paper_id,omitempty"`
	PaperTitle string   `json:"paper_title,omitempty" yaml:"paper_title,omitempty"`
	Phrase     string   `json:"phrase,omitempty" yaml:"phrase,omitempty"`
}
