// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package judge asks an LLM to score papers against an interest profile,
// summarize ranked results, and maintain the preference memory text.
//
// Transport failures and timeouts wrap types.ErrJudgeCallFailed; answers
// that cannot be parsed or fall outside the allowed range wrap
// types.ErrMalformedResponse.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/paperpal/pkg/types"
)

// Verdict is the judge's score for one paper.
type Verdict struct {
	Score     float64
	Rationale string
}

// Compression is the result of shortening a preference memory.
type Compression struct {
	Text    string
	Removed []string
}

// Judge is the LLM boundary. Every method is a single call; retrying is
// the caller's decision.
type Judge interface {
	// Score rates paper against profile on a 0-10 scale. topic is the
	// user's current focus and may be empty.
	Score(ctx context.Context, paper types.Paper, profile types.InterestProfile, topic string) (Verdict, error)

	// Summarize writes a narrative overview of entries, best first.
	Summarize(ctx context.Context, topic string, entries []types.RankedEntry) (string, error)

	// UpdateProfile rewrites current to reflect the feedback lines in signals.
	UpdateProfile(ctx context.Context, current, signals string) (string, error)

	// CompressProfile shortens text toward target characters.
	CompressProfile(ctx context.Context, text string, target int) (Compression, error)
}

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// scoreFieldRe recovers a score from answers that are almost JSON.
var scoreFieldRe = regexp.MustCompile(`"score"\s*:\s*"?(-?[0-9]+(?:\.[0-9]+)?)`)

type verdictJSON struct {
	Score     json.RawMessage `json:"score"`
	Reason    string          `json:"reason"`
	Rationale string          `json:"rationale"`
}

// ParseVerdict extracts a Verdict from a judge answer. The answer may wrap
// the JSON object in prose or a code fence. Missing, non-numeric, or
// out-of-range scores are malformed.
func ParseVerdict(answer string) (Verdict, error) {
	raw := jsonObjectRe.FindString(answer)
	if raw == "" {
		return Verdict{}, fmt.Errorf("%w: no JSON object in %q", types.ErrMalformedResponse, truncate(answer, 120))
	}

	var v verdictJSON
	var score float64
	if err := json.Unmarshal([]byte(raw), &v); err == nil && len(v.Score) > 0 {
		s, perr := strconv.ParseFloat(strings.Trim(string(v.Score), `"`), 64)
		if perr != nil {
			return Verdict{}, fmt.Errorf("%w: score %s is not a number", types.ErrMalformedResponse, v.Score)
		}
		score = s
	} else if m := scoreFieldRe.FindStringSubmatch(raw); m != nil {
		score, _ = strconv.ParseFloat(m[1], 64)
	} else {
		return Verdict{}, fmt.Errorf("%w: no score in %q", types.ErrMalformedResponse, truncate(raw, 120))
	}

	if math.IsNaN(score) || score < types.MinScore || score > types.MaxScore {
		return Verdict{}, fmt.Errorf("%w: score %v outside %v..%v", types.ErrMalformedResponse, score, types.MinScore, types.MaxScore)
	}

	rationale := v.Reason
	if rationale == "" {
		rationale = v.Rationale
	}
	return Verdict{Score: score, Rationale: strings.TrimSpace(rationale)}, nil
}

// ParseCompression reads the COMPRESSED_MEMORY / REMOVED_TOPICS answer
// format. An answer without markers is taken as the compressed text.
func ParseCompression(answer string) (Compression, error) {
	text := answer
	var removed string
	if i := strings.Index(text, "REMOVED_TOPICS:"); i >= 0 {
		removed = text[i+len("REMOVED_TOPICS:"):]
		text = text[:i]
	}
	if i := strings.Index(text, "COMPRESSED_MEMORY:"); i >= 0 {
		text = text[i+len("COMPRESSED_MEMORY:"):]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Compression{}, fmt.Errorf("%w: empty compressed memory", types.ErrMalformedResponse)
	}

	c := Compression{Text: text}
	for _, t := range strings.Split(removed, ",") {
		t = strings.TrimSpace(t)
		if t == "" || strings.EqualFold(t, "none") {
			continue
		}
		c.Removed = append(c.Removed, t)
	}
	return c, nil
}

// unwrap joins hard-wrapped lines inside paragraphs and keeps blank-line
// paragraph breaks and list items.
func unwrap(text string) string {
	var paras []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			paras = append(paras, strings.Join(cur, " "))
			cur = nil
		}
	}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "#"), strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
			flush()
			cur = append(cur, line)
			flush()
		default:
			cur = append(cur, line)
		}
	}
	flush()
	return strings.Join(paras, "\n\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
