// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/paperpal/pkg/types"
)

// Intent is what the user asked for before defaults are applied.
type Intent struct {
	Topic      string
	Keywords   []string
	Window     string
	Mode       types.Mode
	Categories []string
	MaxResults int
}

// Build applies defaults to in, parses its window against now, and
// validates the result. The configured mode and categories fill whatever
// the intent leaves empty.
func Build(in Intent, defaults types.SessionConfig, now time.Time) (types.QuerySpec, error) {
	window, err := ParseWindow(in.Window, now)
	if err != nil {
		return types.QuerySpec{}, err
	}

	mode := in.Mode
	if mode == "" {
		mode = types.Mode(defaults.Mode)
	}
	if mode == "" {
		mode = types.ModeExhaustive
	}

	cats := in.Categories
	if len(cats) == 0 {
		cats = defaults.Categories
	}

	spec := types.QuerySpec{
		Mode:       mode,
		Window:     window,
		Categories: append([]string(nil), cats...),
		Topic:      strings.TrimSpace(in.Topic),
		Keywords:   cleanKeywords(in.Keywords),
		MaxResults: in.MaxResults,
	}
	if err := spec.Validate(); err != nil {
		return types.QuerySpec{}, err
	}
	return spec, nil
}

func cleanKeywords(kws []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, k := range kws {
		k = strings.TrimSpace(k)
		if k == "" || seen[strings.ToLower(k)] {
			continue
		}
		seen[strings.ToLower(k)] = true
		out = append(out, k)
	}
	return out
}

var (
	// "... from last week", "... in the past 3 days", "... since 2026-01-01"
	trailingWindowRe = regexp.MustCompile(`(?i)\s*(?:,\s*)?(?:(?:from|in|over|during|within)\s+(?:the\s+)?)?((?:last|past|previous|this)\s+(?:\d+|\w+)?\s*(?:days?|weeks?|months?|years?|quarter)|today|yesterday|since\s+\S+|from\s+\S+\s+to\s+\S+|\d{4}[-/]\d{1,2}[-/]\d{1,2}\s*(?:~|to)\s*\d{4}[-/]\d{1,2}[-/]\d{1,2})\s*$`)

	topicNoiseRe = regexp.MustCompile(`(?i)^(?:(?:find|show|get|search|search for|look for|give|me|some|any|the|recent|new|latest)\s+)*|\s+(?:papers?|articles?|preprints?|work)$`)
)

// ParseRequest splits a free-form request such as "LLM papers from last
// week" into its topic and window expression. A request without a
// recognisable window keeps the whole text as topic and an empty window.
func ParseRequest(text string) (topic, window string) {
	text = strings.TrimSpace(text)
	if m := trailingWindowRe.FindStringSubmatchIndex(text); m != nil {
		window = strings.TrimSpace(text[m[2]:m[3]])
		if IsWindow(window) {
			text = strings.TrimSpace(text[:m[0]])
		} else {
			window = ""
		}
	}
	for {
		next := strings.TrimSpace(topicNoiseRe.ReplaceAllString(text, ""))
		if next == text {
			break
		}
		text = next
	}
	return text, window
}
