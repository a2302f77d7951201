// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperpal/pkg/types"
)

var generated = time.Date(2026, 3, 15, 9, 5, 7, 0, time.UTC)

func sampleReport() Report {
	return Report{
		Topic: "offline RL",
		Query: types.QuerySpec{
			Mode:       types.ModeFiltered,
			Categories: []string{"cs.LG"},
			Keywords:   []string{"offline reinforcement learning"},
			Window: types.TimeWindow{
				From:  time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
				To:    generated,
				Label: "3 days",
			},
		},
		Generated:      generated,
		Summary:        "Both papers push conservative value estimates.",
		Candidates:     12,
		Scored:         11,
		Failed:         1,
		ProfileVersion: 4,
		Ranked: types.RankedSet{
			{
				Paper: types.Paper{
					ID: "2603.01234", Title: "Conservative Offline RL", Abstract: "We study CQL.",
					Authors: []string{"Ada Lovelace", "Plato"}, Categories: []string{"cs.LG", "cs.AI"},
					PrimaryCategory: "cs.LG",
					SubmittedAt:     time.Date(2026, 3, 13, 17, 0, 0, 0, time.UTC),
					URL:             "https://arxiv.org/abs/2603.01234",
				},
				Result: types.ScoreResult{PaperID: "2603.01234", Score: 9, Rationale: "Direct match.", Status: types.ScoreOK},
			},
			{
				Paper:  types.Paper{ID: "2603.05678", Title: "Implicit Q-Learning Revisited"},
				Result: types.ScoreResult{PaperID: "2603.05678", Score: 7.5, Status: types.ScoreOK},
			},
		},
	}
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "results_offline_RL_20260315_090507", BaseName("offline RL", generated))
	assert.Equal(t, "results_general_20260315_090507", BaseName("  ", generated))
	assert.Equal(t, "results_LLM___agents_20260315_090507", BaseName("LLM / agents", generated))
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, sampleReport()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Paper recommendations: offline RL\n"))
	assert.Contains(t, out, "- **Window**: 2026-03-12 to 2026-03-15")
	assert.Contains(t, out, "- **Candidates**: 12 (scored 11, failed 1)")
	assert.Contains(t, out, "## 1. Conservative Offline RL")
	assert.Contains(t, out, "- **Score**: 9.0")
	assert.Contains(t, out, "- **Authors**: Ada Lovelace, Plato")
	assert.Contains(t, out, "### Why it scored\nDirect match.")
	assert.Contains(t, out, "## 2. Implicit Q-Learning Revisited")

	summary := strings.Index(out, "## Summary")
	first := strings.Index(out, "## 1.")
	require.NotEqual(t, -1, summary)
	assert.Less(t, summary, first, "summary comes before the papers")
}

func TestWriteMarkdownWithoutSummary(t *testing.T) {
	r := sampleReport()
	r.Summary = ""
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, r))
	assert.NotContains(t, buf.String(), "## Summary")
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, "A & B", []byte("# Title\n\n- **bold** item\n")))
	out := buf.String()
	assert.Contains(t, out, "<title>A &amp; B</title>")
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<strong>bold</strong>")
}

func TestWriteResultsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.yaml")

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, sampleReport()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	rf, err := ReadResultsFile(path)
	require.NoError(t, err)
	assert.Equal(t, "offline RL", rf.Query.Topic)
	assert.Equal(t, types.ModeFiltered, rf.Query.Mode)
	assert.Equal(t, "2026-03-12", rf.Query.DateFrom)
	assert.Equal(t, "3 days", rf.Query.Window)
	assert.Equal(t, 4, rf.Summary.ProfileVersion)
	assert.Equal(t, 2, rf.Summary.Ranked)

	ranked := rf.Ranked()
	require.Len(t, ranked, 2)
	e, ok := ranked.At(1)
	require.True(t, ok)
	assert.Equal(t, "2603.01234", e.Paper.ID)
	assert.Equal(t, 9.0, e.Result.Score)
}

func TestReadResultsFileMissing(t *testing.T) {
	_, err := ReadResultsFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestWriteCSL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSL(&buf, sampleReport().Ranked))

	var items []CSLItem
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &items))
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "arxiv:2603.01234", first.ID)
	assert.Equal(t, "article", first.Type)
	assert.Equal(t, "arXiv:2603.01234", first.Number)
	assert.Equal(t, "https://arxiv.org/abs/2603.01234", first.URL)
	assert.Equal(t, []CSLName{{Given: "Ada", Family: "Lovelace"}, {Literal: "Plato"}}, first.Author)
	require.NotNil(t, first.Issued)
	assert.Equal(t, [][]int{{2026, 3, 13}}, first.Issued.DateParts)

	assert.Nil(t, items[1].Issued)
	assert.Empty(t, items[1].Author)
}

func TestParseAuthorName(t *testing.T) {
	tests := []struct {
		in   string
		want CSLName
	}{
		{"Ada Lovelace", CSLName{Given: "Ada", Family: "Lovelace"}},
		{"  John  von Neumann ", CSLName{Given: "John von", Family: "Neumann"}},
		{"Plato", CSLName{Literal: "Plato"}},
		{"", CSLName{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseAuthorName(tt.in))
		})
	}
}

func TestExporterWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	e := &Exporter{Dir: dir, Formats: []string{FormatMarkdown, FormatHTML, FormatYAML, FormatCSL}}

	paths, err := e.Write(sampleReport())
	require.NoError(t, err)
	require.Len(t, paths, 4)

	base := filepath.Join(dir, "results_offline_RL_20260315_090507")
	assert.Equal(t, []string{base + ".md", base + ".html", base + ".yaml", base + ".csl.yaml"}, paths)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestExporterWriteReportsBadFormat(t *testing.T) {
	e := &Exporter{Dir: t.TempDir(), Formats: []string{"pdf", FormatMarkdown}}
	paths, err := e.Write(sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown export format "pdf"`)
	assert.Len(t, paths, 1, "other formats are still written")
}

func TestExporterWriteEmptyRanking(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	e := &Exporter{Dir: dir, Formats: []string{FormatMarkdown}}
	r := sampleReport()
	r.Ranked = nil

	paths, err := e.Write(r)
	require.NoError(t, err)
	assert.Empty(t, paths)
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
