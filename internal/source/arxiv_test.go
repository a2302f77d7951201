// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperpal/pkg/types"
)

const arxivFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <opensearch:totalResults>5</opensearch:totalResults>
  <entry>
    <id>http://arxiv.org/abs/2603.01234v2</id>
    <updated>2026-03-09T10:00:00Z</updated>
    <published>2026-03-08T09:30:00Z</published>
    <title>Offline Reinforcement
      Learning at Scale</title>
    <summary>  We study offline RL.
    </summary>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <link href="http://arxiv.org/abs/2603.01234v2" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2603.01234v2" rel="related" type="application/pdf"/>
    <arxiv:primary_category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.AI" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2603.00001v1</id>
    <updated>2026-03-07T00:00:00Z</updated>
    <published>2026-03-07T00:00:00Z</published>
    <title>Second</title>
    <summary>Second abstract.</summary>
    <author><name>Grace Hopper</name></author>
  </entry>
</feed>`

func withArxivServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	old := arxivAPIBase
	arxivAPIBase = ts.URL
	t.Cleanup(func() { arxivAPIBase = old })
}

func TestArxivPagerParsesFeed(t *testing.T) {
	var gotQuery, gotStart, gotMax, gotSort, gotUA string
	withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = q.Get("search_query")
		gotStart = q.Get("start")
		gotMax = q.Get("max_results")
		gotSort = q.Get("sortBy")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(arxivFixture))
	})

	pager := &ArxivPager{UserAgent: "paperpal-test"}
	page, err := pager.Page(context.Background(), PageRequest{Query: "cat:cs.LG", Start: 0, Size: 2})
	require.NoError(t, err)

	assert.Equal(t, "cat:cs.LG", gotQuery)
	assert.Equal(t, "0", gotStart)
	assert.Equal(t, "2", gotMax)
	assert.Equal(t, "submittedDate", gotSort)
	assert.Equal(t, "paperpal-test", gotUA)

	assert.Equal(t, 5, page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Papers, 2)

	p := page.Papers[0]
	assert.Equal(t, "2603.01234", p.ID)
	assert.Equal(t, "Offline Reinforcement Learning at Scale", p.Title)
	assert.Equal(t, "We study offline RL.", p.Abstract)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, p.Authors)
	assert.Equal(t, []string{"cs.LG", "cs.AI"}, p.Categories)
	assert.Equal(t, "cs.LG", p.PrimaryCategory)
	assert.Equal(t, "http://arxiv.org/pdf/2603.01234v2", p.PDFURL)
	assert.Equal(t, "http://arxiv.org/abs/2603.01234v2", p.URL)
	assert.Equal(t, time.Date(2026, 3, 8, 9, 30, 0, 0, time.UTC), p.SubmittedAt)
	assert.Equal(t, time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC), p.UpdatedAt)
}

func TestArxivPagerLastPage(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(arxivFixture))
	})

	page, err := (&ArxivPager{}).Page(context.Background(), PageRequest{Query: "cat:cs.LG", Start: 3, Size: 2})
	require.NoError(t, err)
	assert.False(t, page.HasMore)
}

func TestArxivPagerStatusHandling(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		unavailable bool
	}{
		{"forbidden is fatal", http.StatusForbidden, true},
		{"unauthorized is fatal", http.StatusUnauthorized, true},
		{"bad request is fatal", http.StatusBadRequest, true},
		{"server error is transient", http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := (&ArxivPager{}).Page(context.Background(), PageRequest{Query: "cat:cs.LG", Size: 10})
			require.Error(t, err)
			assert.Equal(t, tt.unavailable, errors.Is(err, types.ErrSourceUnavailable))
		})
	}
}

func TestArxivPagerThroughFetcher(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(arxivFixture))
	})

	f := testFetcher(&ArxivPager{})
	f.PageSize = 10
	spec := types.QuerySpec{
		Mode:       types.ModeExhaustive,
		Categories: []string{"cs.LG"},
		Window: types.TimeWindow{
			From: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		},
	}
	s, err := f.Stream(spec)
	require.NoError(t, err)

	got, err := Collect(s.Papers(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, []string{"2603.01234"}, ids(got))
	assert.Equal(t, 1, s.Report().TooOld)
}

func TestFetcherBackoffBoundsRateLimitedRequests(t *testing.T) {
	var hits int32
	withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	f := testFetcher(NewArxivPager(types.SourceConfig{}))
	s, err := f.Stream(exhaustive(3))
	require.NoError(t, err)

	_, err = Collect(s.Papers(context.Background()))
	require.Error(t, err)
	assert.Equal(t, int32(f.Backoff.MaxAttempts), atomic.LoadInt32(&hits))
}

func TestExtractArxivID(t *testing.T) {
	assert.Equal(t, "2301.07041", extractArxivID("http://arxiv.org/abs/2301.07041v1"))
	assert.Equal(t, "2301.07041", extractArxivID("http://arxiv.org/abs/2301.07041"))
	assert.Equal(t, "hep-th/9901001", extractArxivID("http://arxiv.org/abs/hep-th/9901001v3"))
	assert.Equal(t, "", extractArxivID("http://arxiv.org/api/errors#incorrect_id_format"))
}
