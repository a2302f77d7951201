// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query turns what the user typed into a validated QuerySpec:
// natural-language time windows, free-form requests such as
// "LLM papers from last week", and the configured defaults for mode and
// categories.
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paperpal/pkg/types"
)

// DefaultWindow is used when no expression is given or none is recognised.
const DefaultWindow = "today"

// Shortcuts are the compact window names accepted on the command line.
var Shortcuts = map[string]string{
	"today":  "Today",
	"3days":  "Last 3 days",
	"week":   "Last week",
	"2weeks": "Last 2 weeks",
	"month":  "Last month",
}

type unit int

const (
	days unit = iota
	weeks
	months
	years
)

type span struct {
	unit unit
	n    int
}

var shortcutSpans = map[string]span{
	"today":  {days, 1},
	"3days":  {days, 3},
	"week":   {weeks, 1},
	"2weeks": {weeks, 2},
	"month":  {months, 1},
}

// Fixed phrases, checked in order before numeric ones.
var phraseSpans = []struct {
	re   *regexp.Regexp
	span span
}{
	{regexp.MustCompile(`\b(?:today|last day|past day|yesterday)\b`), span{days, 1}},
	{regexp.MustCompile(`\b(?:this|last|past) week\b|^recent(?:ly)?$`), span{weeks, 1}},
	{regexp.MustCompile(`\b(?:this|last|past) month\b`), span{months, 1}},
	{regexp.MustCompile(`\bthis quarter\b`), span{months, 3}},
	{regexp.MustCompile(`\bhalf (?:a )?year\b`), span{months, 6}},
	{regexp.MustCompile(`\b(?:this|last|past) year\b`), span{years, 1}},
}

var (
	numericRe = regexp.MustCompile(`\b(?:(?:last|past|previous)\s+)?(\d+|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)\s*-?\s*(days?|weeks?|months?|years?)\b`)

	dateRe      = `(\d{4}[-/]\d{1,2}[-/]\d{1,2})`
	fromToRe    = regexp.MustCompile(`\bfrom\s+` + dateRe + `\s+(?:to|until|through)\s+` + dateRe)
	simpleRange = regexp.MustCompile(dateRe + `\s*(?:~|to|-{1,2})\s*` + dateRe)
	sinceRe     = regexp.MustCompile(`\bsince\s+` + dateRe)
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

// ParseWindow interprets expr relative to now. It accepts the Shortcuts,
// relative phrases ("last week", "past 3 days", "this year", "two
// months"), and explicit ranges ("from 2026-01-01 to 2026-01-31",
// "2026-01-01 ~ 2026-01-31", "since 2026-01-01"). Relative windows end at
// now; explicit ranges end at the last second of their end date. Anything
// unrecognised falls back to the last day, as does an empty expression.
//
// An explicit range whose end precedes its start is an error.
func ParseWindow(expr string, now time.Time) (types.TimeWindow, error) {
	label := strings.TrimSpace(expr)
	s := strings.ToLower(label)
	if s == "" {
		return relative(span{days, 1}, now, DefaultWindow), nil
	}

	if sp, ok := shortcutSpans[s]; ok {
		return relative(sp, now, label), nil
	}

	if m := fromToRe.FindStringSubmatch(s); m != nil {
		return explicit(m[1], m[2], now, label)
	}
	if m := simpleRange.FindStringSubmatch(s); m != nil {
		return explicit(m[1], m[2], now, label)
	}
	if m := sinceRe.FindStringSubmatch(s); m != nil {
		from, err := parseDate(m[1], now.Location())
		if err != nil {
			return types.TimeWindow{}, err
		}
		if from.After(now) {
			return types.TimeWindow{}, fmt.Errorf("%w: window starts in the future (%s)", types.ErrConfigInvalid, m[1])
		}
		return types.TimeWindow{From: from, To: now, Label: label}, nil
	}

	if m := numericRe.FindStringSubmatch(s); m != nil {
		n, ok := numberWords[m[1]]
		if !ok {
			n, _ = strconv.Atoi(m[1])
		}
		if n > 0 {
			return relative(span{unitOf(m[2]), n}, now, label), nil
		}
	}

	for _, p := range phraseSpans {
		if p.re.MatchString(s) {
			return relative(p.span, now, label), nil
		}
	}

	return relative(span{days, 1}, now, label), nil
}

// IsWindow reports whether expr is something ParseWindow recognises rather
// than falls back on.
func IsWindow(expr string) bool {
	s := strings.ToLower(strings.TrimSpace(expr))
	if _, ok := shortcutSpans[s]; ok {
		return true
	}
	if fromToRe.MatchString(s) || simpleRange.MatchString(s) || sinceRe.MatchString(s) || numericRe.MatchString(s) {
		return true
	}
	for _, p := range phraseSpans {
		if p.re.MatchString(s) {
			return true
		}
	}
	return false
}

func unitOf(word string) unit {
	switch strings.TrimSuffix(word, "s") {
	case "week":
		return weeks
	case "month":
		return months
	case "year":
		return years
	default:
		return days
	}
}

func relative(sp span, now time.Time, label string) types.TimeWindow {
	var from time.Time
	switch sp.unit {
	case weeks:
		from = now.AddDate(0, 0, -7*sp.n)
	case months:
		from = now.AddDate(0, -sp.n, 0)
	case years:
		from = now.AddDate(-sp.n, 0, 0)
	default:
		from = now.AddDate(0, 0, -sp.n)
	}
	return types.TimeWindow{From: from, To: now, Label: label}
}

func explicit(a, b string, now time.Time, label string) (types.TimeWindow, error) {
	from, err := parseDate(a, now.Location())
	if err != nil {
		return types.TimeWindow{}, err
	}
	to, err := parseDate(b, now.Location())
	if err != nil {
		return types.TimeWindow{}, err
	}
	to = to.Add(24*time.Hour - time.Second)
	if to.Before(from) {
		return types.TimeWindow{}, fmt.Errorf("%w: window ends before it starts (%s > %s)", types.ErrConfigInvalid, a, b)
	}
	return types.TimeWindow{From: from, To: to, Label: label}, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.ReplaceAll(s, "/", "-")
	t, err := time.ParseInLocation("2006-1-2", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q: %w", types.ErrConfigInvalid, s, err)
	}
	return t, nil
}
