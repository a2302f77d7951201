// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/paperpal/pkg/types"
)

// scorePromptTmpl asks for a 0-10 relevance score against the profile.
var scorePromptTmpl = template.Must(template.New("score").Parse(`You rate how well an academic paper matches one researcher's interests.

Researcher preferences:
{{.Profile}}
{{if .Topic}}
Current focus: {{.Topic}}
{{end}}
Paper:
Title: {{.Paper.Title}}
Authors: {{.Authors}}
Categories: {{.Categories}}
Abstract: {{.Paper.Abstract}}

Scoring guide:
- 9-10: squarely on the researcher's interests or current focus
- 7-8: clearly related and likely useful
- 5-6: some overlap, worth a look
- 3-4: weak connection
- 0-2: unrelated, or a topic the researcher excluded

Respond with a JSON object only, no other text:
{"score": <number from 0 to 10>, "reason": "<one sentence>"}
`))

// summaryPromptTmpl asks for a narrative overview of the top papers.
var summaryPromptTmpl = template.Must(template.New("summary").Funcs(funcs).Parse(`Write a research digest of the following papers for a researcher{{if .Topic}} following "{{.Topic}}"{{end}}.

Group related papers into themes, say what each contributes, and close with the trends you see. Refer to papers by their number. Aim for 500 to 800 words of plain prose with short paragraphs. Do not hard-wrap lines.

{{range $i, $e := .Entries}}[{{inc $i}}] {{$e.Paper.Title}} (score {{printf "%.1f" $e.Result.Score}})
{{$e.Paper.Abstract}}

{{end}}`))

// updatePromptTmpl folds new feedback into the preference memory.
var updatePromptTmpl = template.Must(template.New("update").Parse(`You maintain a short memory of a researcher's paper preferences.

Current memory:
{{if .Current}}{{.Current}}{{else}}(empty){{end}}

New feedback:
{{.Signals}}

Rewrite the memory so it reflects the new feedback:
- keep every existing preference unless the feedback contradicts it
- when feedback contradicts an old preference, the feedback wins
- merge duplicates and keep related topics together
- state likes and dislikes as plain sentences
- keep it concise

Respond with the updated memory text only.
`))

// compressPromptTmpl shortens an over-long memory.
var compressPromptTmpl = template.Must(template.New("compress").Parse(`The following memory of a researcher's paper preferences has grown to {{.Length}} characters. Shorten it to at most {{.Target}} characters.

- keep the strongest and most recent preferences
- keep every explicit dislike
- merge overlapping topics into broader ones
- drop one-off or weak signals

Memory:
{{.Text}}

Respond in exactly this format:
COMPRESSED_MEMORY:
<the shortened memory>
REMOVED_TOPICS:
<comma-separated topics you dropped, or none>
`))

var funcs = template.FuncMap{"inc": func(i int) int { return i + 1 }}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderScorePrompt(p types.Paper, profile types.InterestProfile, topic string) (string, error) {
	return render(scorePromptTmpl, struct {
		Paper      types.Paper
		Profile    string
		Topic      string
		Authors    string
		Categories string
	}{
		Paper:      p,
		Profile:    profile.Context(),
		Topic:      strings.TrimSpace(topic),
		Authors:    strings.Join(p.Authors, ", "),
		Categories: strings.Join(p.Categories, ", "),
	})
}
