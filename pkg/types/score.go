// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ScoreStatus records whether a paper was scored.
type ScoreStatus string

const (
	ScoreOK     ScoreStatus = "ok"
	ScoreFailed ScoreStatus = "failed"
)

// MinScore and MaxScore bound a valid judge score.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// ScoreResult is the judge's verdict for one paper. The coordinator emits
// exactly one per submitted paper.
type ScoreResult struct {
	PaperID   string      `json:"paper_id" yaml:"paper_id"`
	Score     float64     `json:"score" yaml:"score"`
	Rationale string      `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Status    ScoreStatus `json:"status" yaml:"status"`

	// Attempts counts judge calls made for this paper (0 when never submitted).
	Attempts int `json:"attempts,omitempty" yaml:"attempts,omitempty"`

	// Err carries the last failure message for failed results.
	Err string `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the paper was scored successfully.
func (r ScoreResult) OK() bool { return r.Status == ScoreOK }

// RankedEntry pairs a paper with its score.
type RankedEntry struct {
	Paper  Paper       `json:"paper" yaml:"paper"`
	Result ScoreResult `json:"result" yaml:"result"`
}

// RankedSet is the ordered, thresholded output of a scoring batch. It is
// derived data and is never mutated after ranking.
type RankedSet []RankedEntry

// At returns the entry at the 1-based display position n.
func (s RankedSet) At(n int) (RankedEntry, bool) {
	if n < 1 || n > len(s) {
		return RankedEntry{}, false
	}
	return s[n-1], true
}

// Papers returns the papers in rank order.
func (s RankedSet) Papers() []Paper {
	out := make([]Paper, len(s))
	for i, e := range s {
		out[i] = e.Paper
	}
	return out
}
