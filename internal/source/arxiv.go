// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paperpal/internal/httputil"
	"github.com/pdiddy/paperpal/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivPager pages through the arXiv Atom API sorted by submission date,
// newest first.
type ArxivPager struct {
	Client    *http.Client
	UserAgent string

	// RateLimitRetry handles HTTP 429/503 inside one page attempt. Leave
	// it zero when the pager runs under a Fetcher, whose Backoff then
	// bounds every request.
	RateLimitRetry httputil.Backoff
}

// NewArxivPager returns a pager for use under a Fetcher. It makes one
// request per page attempt, so the Fetcher's Backoff is the only retry
// policy.
func NewArxivPager(cfg types.SourceConfig) *ArxivPager {
	return &ArxivPager{
		Client:    &http.Client{Timeout: cfg.Timeout},
		UserAgent: cfg.UserAgent,
	}
}

// Name returns the pager identifier.
func (a *ArxivPager) Name() string { return "arxiv" }

// Page fetches req.Size entries starting at req.Start. HTTP 400, 401 and
// 403 are reported as types.ErrSourceUnavailable; other failures are
// plain errors the Fetcher may retry.
func (a *ArxivPager) Page(ctx context.Context, req PageRequest) (Page, error) {
	if req.Query == "" {
		return Page{}, fmt.Errorf("%w: empty arXiv query", types.ErrSourceUnavailable)
	}

	params := url.Values{}
	params.Set("search_query", req.Query)
	params.Set("start", strconv.Itoa(req.Start))
	params.Set("max_results", strconv.Itoa(req.Size))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("creating request: %w", err)
	}
	if a.UserAgent != "" {
		httpReq.Header.Set("User-Agent", a.UserAgent)
	}

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	retry := a.RateLimitRetry
	if retry.MaxAttempts == 0 {
		retry = httputil.Backoff{MaxAttempts: 1}
	}

	resp, err := httputil.DoWithRetry(ctx, client, httpReq, retry)
	if err != nil {
		return Page{}, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Page{}, fmt.Errorf("%w: arXiv API returned HTTP %d: %s",
			types.ErrSourceUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	default:
		return Page{}, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return Page{}, fmt.Errorf("parsing arXiv response: %w", err)
	}

	page := Page{Total: feed.TotalResults}
	for _, entry := range feed.Entries {
		if p, ok := entry.toPaper(); ok {
			page.Papers = append(page.Papers, p)
		}
	}
	page.HasMore = len(feed.Entries) > 0 && req.Start+len(feed.Entries) < feed.TotalResults
	return page, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	TotalResults int          `xml:"http://a9.com/-/spec/opensearch/1.1/ totalResults"`
	Entries      []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID              string          `xml:"id"`
	Title           string          `xml:"title"`
	Summary         string          `xml:"summary"`
	Published       string          `xml:"published"`
	Updated         string          `xml:"updated"`
	Authors         []arxivAuthor   `xml:"author"`
	Links           []arxivLink     `xml:"link"`
	Categories      []arxivCategory `xml:"category"`
	PrimaryCategory arxivCategory   `xml:"http://arxiv.org/schemas/atom primary_category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// toPaper converts a feed entry. Entries without a parseable arXiv ID
// (the API's error entries, for one) are dropped.
func (e arxivEntry) toPaper() (types.Paper, bool) {
	id := extractArxivID(e.ID)
	if id == "" {
		return types.Paper{}, false
	}

	p := types.Paper{
		ID:              id,
		Title:           collapseSpace(e.Title),
		Abstract:        collapseSpace(e.Summary),
		URL:             strings.TrimSpace(e.ID),
		PrimaryCategory: e.PrimaryCategory.Term,
	}
	for _, a := range e.Authors {
		if n := strings.TrimSpace(a.Name); n != "" {
			p.Authors = append(p.Authors, n)
		}
	}
	for _, c := range e.Categories {
		if c.Term != "" {
			p.Categories = append(p.Categories, c.Term)
		}
	}
	for _, l := range e.Links {
		switch {
		case l.Title == "pdf" || l.Type == "application/pdf":
			p.PDFURL = l.Href
		case l.Rel == "alternate" && l.Href != "":
			p.URL = l.Href
		}
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		p.SubmittedAt = t
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Updated)); err == nil {
		p.UpdatedAt = t
	}
	return p, true
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := strings.TrimSpace(idURL[idx+len(prefix):])

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
