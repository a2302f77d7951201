// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package memory

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/paperpal/pkg/types"
)

// Resolution is the deterministic reading of one feedback text against
// the RankedSet it was given on.
type Resolution struct {
	Signals []types.FeedbackSignal

	// Notes explain clauses that were ignored.
	Notes []string
}

// Exclusions returns the topic phrases the feedback asked to avoid.
func (r Resolution) Exclusions() []string {
	var out []string
	for _, s := range r.Signals {
		if s.Polarity == types.Negative && s.PaperIndex == 0 && s.Phrase != "" {
			out = append(out, s.Phrase)
		}
	}
	return out
}

// Interests returns the topic phrases the feedback asked for.
func (r Resolution) Interests() []string {
	var out []string
	for _, s := range r.Signals {
		if s.Polarity == types.Positive && s.PaperIndex == 0 && s.Phrase != "" {
			out = append(out, s.Phrase)
		}
	}
	return out
}

// negatedPositive matches "not great", "isn't that good", "never interesting".
const negatedPositive = `(?:\bnot|n't|\bnever)\s+(?:\w+\s+)?(?:great|good|interesting|useful|relevant|excellent|nice|helpful|perfect)\b|`

var (
	clauseSplitRe = regexp.MustCompile(`(?i)[,;!?\n]+|\.(?:\s|$)|\bbut\b|\bwhile\b|\bhowever\b`)
	andSplitRe    = regexp.MustCompile(`(?i)\s+and\s+`)

	// "no. 3" loses its period before clauses are split.
	abbrevNoRe = regexp.MustCompile(`(?i)\bno\.\s*(\d)`)

	// paper 3, paper #3, #3, no 3, number 3, the 3rd one
	paperRefRe = regexp.MustCompile(`(?i)(?:\bpapers?\s*#?\s*|#\s*|\bno\.?\s*|\bnumber\s+)(\d+)|\b(\d+)(?:st|nd|rd|th)\s+(?:one|paper)\b`)

	ordinalRefRe = regexp.MustCompile(`(?i)\bthe\s+(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth)(?:\s+(?:one|paper))?\b|\b(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth)\s+(?:one|paper)\b`)

	negativeCueRe = regexp.MustCompile(`(?i)` + negatedPositive + `\bnot\s+(?:interested|relevant|useful|for me)\b|\b(?:don'?t|do not|doesn'?t|does not)\s+(?:like|care|want)\b|\bdislike[sd]?\b|\bhate[sd]?\b|\bboring\b|\birrelevant\b|\buninteresting\b|\bskip\b|\bavoid\b|\bno more\b|\bless\b|\bfewer\b|\bbad\b|\bmeh\b`)

	positiveCueRe = regexp.MustCompile(`(?i)\bgreat\b|\blike[sd]?\b|\blove[sd]?\b|\binteresting\b|\binterested\b|\bmore\b|\bgood\b|\brelevant\b|\buseful\b|\bexcellent\b|\bawesome\b|\bnice\b|\bwant\b|\bperfect\b|\bspot on\b`)

	negativeTopicRe = regexp.MustCompile(`(?i)(?:not\s+interested\s+in|(?:don'?t|do not)\s+(?:like|want|care about)|dislike[sd]?|hate[sd]?|avoid|skip|no more|less|fewer)\s+(.+)`)
	positiveTopicRe = regexp.MustCompile(`(?i)(?:interested\s+in|like[sd]?|love[sd]?|more|want)\s+(.+)`)

	leadingFillerRe  = regexp.MustCompile(`(?i)^(?:(?:the|a|an|any|all|those|these|some|papers?|articles?|work|works|stuff)\s+)*(?:(?:on|about|in|of|regarding)\s+)?`)
	trailingFillerRe = regexp.MustCompile(`(?i)(?:\s+(?:papers?|articles?|work|stuff|anymore|please|in general|topics?|like|such as|a lot|too|as well))+$`)
)

// vagueWords are topic phrases that only point back at a paper.
var vagueWords = map[string]bool{
	"like": true, "that": true, "this": true, "it": true, "them": true,
	"those": true, "these": true, "one": true, "ones": true, "such as": true,
	"and": true, "or": true,
}

var ordinals = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

// Resolve maps feedback onto ranked. Paper references are 1-based
// positions in ranked. Each clause contributes at most one polarity;
// negative cues win over positive ones. A clause that names papers may
// also name a topic ("avoid surveys like paper 3"). Clauses that name
// papers without a polarity, name positions outside ranked, or carry no
// cue at all are ignored and explained in Notes.
func Resolve(feedback string, ranked types.RankedSet) Resolution {
	var res Resolution
	for _, clause := range splitClauses(feedback) {
		polarity := polarityOf(clause)
		refs := paperRefs(clause)

		if len(refs) > 0 {
			if polarity == "" {
				res.Notes = append(res.Notes, fmt.Sprintf("ambiguous: %q names a paper but not whether you liked it", clause))
				continue
			}
			for _, n := range refs {
				e, ok := ranked.At(n)
				if !ok {
					res.Notes = append(res.Notes, fmt.Sprintf("paper %d is not in the last results (1..%d)", n, len(ranked)))
					continue
				}
				res.Signals = append(res.Signals, types.FeedbackSignal{
					Polarity:   polarity,
					PaperIndex: n,
					PaperID:    e.Paper.ID,
					PaperTitle: e.Paper.Title,
				})
			}
			if phrase := topicPhrase(stripRefs(clause), polarity); phrase != "" {
				res.Signals = append(res.Signals, types.FeedbackSignal{Polarity: polarity, Phrase: phrase})
			}
			continue
		}

		if polarity == "" {
			res.Notes = append(res.Notes, fmt.Sprintf("no preference found in %q", clause))
			continue
		}
		phrase := topicPhrase(clause, polarity)
		if phrase == "" {
			res.Notes = append(res.Notes, fmt.Sprintf("no topic found in %q", clause))
			continue
		}
		res.Signals = append(res.Signals, types.FeedbackSignal{Polarity: polarity, Phrase: phrase})
	}
	return res
}

func splitClauses(text string) []string {
	var out []string
	text = abbrevNoRe.ReplaceAllString(text, "no $1")
	for _, c := range clauseSplitRe.Split(text, -1) {
		c = strings.TrimSpace(c)
		c = strings.TrimPrefix(c, "and ")
		if c != "" {
			out = append(out, splitOnAnd(c)...)
		}
	}
	return out
}

// splitOnAnd splits clause at "and" only where both sides carry their own
// cue, so "paper 1 is great and paper 3 is boring" becomes two clauses
// while "I dislike surveys and benchmarks" and "paper 1 and paper 3 are
// great" stay whole.
func splitOnAnd(clause string) []string {
	parts := andSplitRe.Split(clause, -1)
	var out []string
	cur := parts[0]
	for _, p := range parts[1:] {
		if polarityOf(cur) != "" && polarityOf(p) != "" {
			out = append(out, cur)
			cur = p
			continue
		}
		cur += " and " + p
	}
	return append(out, cur)
}

// stripRefs removes paper references so they are not read as topics.
func stripRefs(clause string) string {
	clause = paperRefRe.ReplaceAllString(clause, " ")
	clause = ordinalRefRe.ReplaceAllString(clause, " ")
	return strings.Join(strings.Fields(clause), " ")
}

func polarityOf(clause string) types.Polarity {
	switch {
	case negativeCueRe.MatchString(clause):
		return types.Negative
	case positiveCueRe.MatchString(clause):
		return types.Positive
	default:
		return ""
	}
}

// paperRefs returns the distinct 1-based positions clause mentions, in
// order of appearance.
func paperRefs(clause string) []int {
	seen := map[int]bool{}
	var out []int
	add := func(n int) {
		if n > 0 && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, m := range paperRefRe.FindAllStringSubmatch(clause, -1) {
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		n, err := strconv.Atoi(digits)
		if err == nil {
			add(n)
		}
	}
	for _, m := range ordinalRefRe.FindAllStringSubmatch(clause, -1) {
		word := m[1]
		if word == "" {
			word = m[2]
		}
		add(ordinals[strings.ToLower(word)])
	}
	return out
}

// topicPhrase extracts what a topic-level clause is about.
func topicPhrase(clause string, polarity types.Polarity) string {
	re := positiveTopicRe
	if polarity == types.Negative {
		re = negativeTopicRe
	}
	m := re.FindStringSubmatch(clause)
	if m == nil {
		return ""
	}
	phrase := strings.TrimSpace(m[1])
	phrase = leadingFillerRe.ReplaceAllString(phrase, "")
	phrase = trailingFillerRe.ReplaceAllString(phrase, "")
	phrase = strings.Trim(phrase, ` "'`)
	if phrase == "" || vagueWords[strings.ToLower(phrase)] {
		return ""
	}

	// Singularize the last word of each conjunct: "surveys and benchmarks".
	words := strings.Fields(phrase)
	for i, w := range words {
		if i == len(words)-1 || strings.EqualFold(words[i+1], "and") || strings.EqualFold(words[i+1], "or") {
			words[i] = singular(w)
		}
	}
	return strings.Join(words, " ")
}

// singular strips a plural "s" from regular nouns. Words like "robotics",
// "analysis" and "corpus" are left alone.
func singular(w string) string {
	lw := strings.ToLower(w)
	if len(lw) <= 3 || !strings.HasSuffix(lw, "s") {
		return w
	}
	for _, suffix := range []string{"ss", "ics", "is", "us", "ous"} {
		if strings.HasSuffix(lw, suffix) {
			return w
		}
	}
	return w[:len(w)-1]
}

// renderSignals turns a resolution into the feedback lines the judge
// folds into the memory text.
func renderSignals(res Resolution, raw string) string {
	var lines []string
	for _, s := range res.Signals {
		switch {
		case s.PaperIndex > 0 && s.Polarity == types.Positive:
			lines = append(lines, fmt.Sprintf("User is interested in papers like: %q", s.PaperTitle))
		case s.PaperIndex > 0:
			lines = append(lines, fmt.Sprintf("User is NOT interested in papers like: %q", s.PaperTitle))
		case s.Polarity == types.Positive:
			lines = append(lines, "User is interested in papers about: "+s.Phrase)
		default:
			lines = append(lines, "User is NOT interested in: "+s.Phrase)
		}
	}
	lines = append(lines, fmt.Sprintf("User feedback: %q", strings.TrimSpace(raw)))
	return strings.Join(lines, "\n")
}
