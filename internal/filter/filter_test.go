// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperpal/pkg/types"
)

var now = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func papers() []types.Paper {
	return []types.Paper{
		{ID: "1", Title: "A Survey of Robot Learning", Categories: []string{"cs.RO", "cs.LG"}, SubmittedAt: now.AddDate(0, 0, -1)},
		{ID: "2", Title: "Offline RL at Scale", Categories: []string{"cs.LG"}, SubmittedAt: now.AddDate(0, 0, -3)},
		{ID: "3", Title: "Grasping with Diffusion", Categories: []string{"cs.RO"}, PrimaryCategory: "cs.RO", SubmittedAt: now.AddDate(0, 0, -5)},
	}
}

func ids(ps []types.Paper) []string {
	var out []string
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{`"cs.RO" in paper.categories`, []string{"1", "3"}},
		{`!paper.title.lowerAscii().contains("survey")`, []string{"2", "3"}},
		{`paper.age_days < 4.0`, []string{"1", "2"}},
		{`paper.primary_category == "cs.RO"`, []string{"3"}},
		{`"cs.RO" in paper.categories && !paper.title.contains("Survey")`, []string{"3"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := Compile(tt.expr)
			require.NoError(t, err)
			f.Now = func() time.Time { return now }

			kept, dropped, errs := f.Apply(papers())
			assert.Equal(t, tt.want, ids(kept))
			assert.Equal(t, 3-len(tt.want), dropped)
			assert.Zero(t, errs)
		})
	}
}

func TestCompileEmptyKeepsEverything(t *testing.T) {
	f, err := Compile("  ")
	require.NoError(t, err)
	assert.Nil(t, f)

	kept, dropped, _ := f.Apply(papers())
	assert.Len(t, kept, 3)
	assert.Zero(t, dropped)

	ok, err := f.Match(types.Paper{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", f.String())
}

func TestCompileErrors(t *testing.T) {
	for _, expr := range []string{
		`paper.title.contains(`,
		`"not a bool"`,
		`1 + 2`,
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := Compile(expr)
			assert.ErrorIs(t, err, types.ErrConfigInvalid)
		})
	}
}

func TestEvalErrorDropsPaper(t *testing.T) {
	f, err := Compile(`paper.missing == "x"`)
	require.NoError(t, err)

	kept, dropped, errs := f.Apply(papers())
	assert.Empty(t, kept)
	assert.Equal(t, 3, dropped)
	assert.Equal(t, 3, errs)
}
