// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source retrieves candidate papers from a paginated catalog.
//
// A Pager fetches one page; the Fetcher turns pages into a lazy,
// deduplicated stream of papers inside a time window, retrying failed
// pages with bounded backoff and recording pages that never succeed as
// gaps instead of aborting.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paperpal/internal/httputil"
	"github.com/pdiddy/paperpal/internal/metrics"
	"github.com/pdiddy/paperpal/pkg/types"
)

// PageRequest asks for Size entries starting at offset Start.
type PageRequest struct {
	Query string
	Start int
	Size  int
}

// Page is one page of catalog entries in submission order, newest first.
type Page struct {
	Papers []types.Paper

	// Total is the catalog's count of matching entries, 0 when unknown.
	Total int

	// HasMore reports whether entries exist beyond this page.
	HasMore bool
}

// Pager fetches one page from a paper catalog. Implementations return an
// error wrapping types.ErrSourceUnavailable for failures that retrying
// cannot fix (bad credentials, rejected query).
type Pager interface {
	Name() string
	Page(ctx context.Context, req PageRequest) (Page, error)
}

// maxConsecutiveGaps stops enumeration when the catalog keeps failing
// past the first page.
const maxConsecutiveGaps = 3

// Gap is a page that failed after every retry.
type Gap struct {
	Start    int    `json:"start" yaml:"start"`
	Size     int    `json:"size" yaml:"size"`
	Attempts int    `json:"attempts" yaml:"attempts"`
	Err      string `json:"error" yaml:"error"`
}

// Report counts what one pass over a stream saw.
type Report struct {
	Pages      int   `json:"pages" yaml:"pages"`
	Raw        int   `json:"raw" yaml:"raw"`
	Yielded    int   `json:"yielded" yaml:"yielded"`
	Duplicates int   `json:"duplicates" yaml:"duplicates"`
	TooOld     int   `json:"too_old" yaml:"too_old"`
	TooNew     int   `json:"too_new" yaml:"too_new"`
	Gaps       []Gap `json:"gaps,omitempty" yaml:"gaps,omitempty"`
}

// Fetcher paginates a Pager.
type Fetcher struct {
	Pager Pager

	// PageSize is the number of entries requested per page.
	PageSize int

	// MaxResults and ExhaustiveMaxResults cap yielded papers per mode
	// when the QuerySpec leaves MaxResults at zero.
	MaxResults           int
	ExhaustiveMaxResults int

	// PageTimeout bounds every page attempt.
	PageTimeout time.Duration

	// TooOldTolerance is how many out-of-window entries exhaustive mode
	// accepts before it stops. Filtered mode stops at the first one.
	TooOldTolerance int

	Backoff httputil.Backoff

	// Limiter paces page requests; nil means unpaced.
	Limiter *rate.Limiter

	Log     logrus.FieldLogger
	Metrics *metrics.Metrics
}

// NewFetcher configures a Fetcher from cfg.
func NewFetcher(p Pager, cfg types.SourceConfig, log logrus.FieldLogger, m *metrics.Metrics) *Fetcher {
	f := &Fetcher{
		Pager:                p,
		PageSize:             cfg.PageSize,
		MaxResults:           cfg.MaxResults,
		ExhaustiveMaxResults: cfg.ExhaustiveMaxResults,
		PageTimeout:          cfg.PageTimeout,
		TooOldTolerance:      cfg.TooOldTolerance,
		Backoff:              httputil.FromConfig(cfg.Backoff),
		Log:                  log,
		Metrics:              m,
	}
	if cfg.RequestInterval > 0 {
		f.Limiter = rate.NewLimiter(rate.Every(cfg.RequestInterval), 1)
	}
	return f
}

// Stream validates spec and returns a lazy stream over its results. No
// network call happens until the stream is iterated.
func (f *Fetcher) Stream(spec types.QuerySpec) (*Stream, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if f.Pager == nil {
		return nil, fmt.Errorf("%w: no pager configured", types.ErrConfigInvalid)
	}

	limit := spec.MaxResults
	if limit <= 0 {
		limit = f.MaxResults
		if spec.Mode == types.ModeExhaustive {
			limit = f.ExhaustiveMaxResults
		}
	}

	return &Stream{
		f:     f,
		spec:  spec,
		query: BuildQuery(spec),
		limit: limit,
	}, nil
}

// Stream is a restartable sequence of papers for one QuerySpec.
type Stream struct {
	f      *Fetcher
	spec   types.QuerySpec
	query  string
	limit  int
	report Report
}

// Query returns the catalog query string the stream pages through.
func (s *Stream) Query() string { return s.query }

// Report returns the counts from the most recent pass.
func (s *Stream) Report() Report { return s.report }

// Papers returns an iterator over the stream. Every call starts again at
// offset zero. A non-nil error ends the sequence: it wraps
// types.ErrSourceUnavailable when retrieval could not start, or is the
// context error when ctx is done.
func (s *Stream) Papers(ctx context.Context) iter.Seq2[types.Paper, error] {
	return func(yield func(types.Paper, error) bool) {
		s.report = Report{}
		f := s.f
		log := f.logger().WithField("query", s.query)

		pageSize := f.PageSize
		if pageSize <= 0 {
			pageSize = 200
		}

		seen := make(map[string]bool)
		start := 0
		total := 0
		consecutiveGaps := 0

		for {
			if err := ctx.Err(); err != nil {
				yield(types.Paper{}, err)
				return
			}

			page, attempts, err := s.fetch(ctx, PageRequest{Query: s.query, Start: start, Size: pageSize})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					yield(types.Paper{}, ctxErr)
					return
				}
				if start == 0 || errors.Is(err, types.ErrSourceUnavailable) {
					if !errors.Is(err, types.ErrSourceUnavailable) {
						err = fmt.Errorf("%w: %s: %v", types.ErrSourceUnavailable, f.Pager.Name(), err)
					}
					yield(types.Paper{}, err)
					return
				}

				gap := Gap{Start: start, Size: pageSize, Attempts: attempts, Err: err.Error()}
				s.report.Gaps = append(s.report.Gaps, gap)
				f.Metrics.Page("gap")
				log.WithFields(logrus.Fields{"start": start, "attempts": attempts}).
					WithError(fmt.Errorf("%w: %v", types.ErrSourcePageFailed, err)).
					Warn("page skipped")

				consecutiveGaps++
				start += pageSize
				if consecutiveGaps >= maxConsecutiveGaps || (total > 0 && start >= total) {
					return
				}
				continue
			}
			consecutiveGaps = 0
			s.report.Pages++
			f.Metrics.Page("ok")
			if page.Total > 0 {
				total = page.Total
			}
			log.WithFields(logrus.Fields{"start": start, "entries": len(page.Papers), "total": page.Total}).Debug("page fetched")

			if len(page.Papers) == 0 {
				return
			}

			for _, p := range page.Papers {
				s.report.Raw++
				if seen[p.ID] {
					s.report.Duplicates++
					f.Metrics.Paper("duplicate")
					continue
				}
				seen[p.ID] = true

				d := p.LatestDate()
				if d.After(s.spec.Window.To) {
					s.report.TooNew++
					f.Metrics.Paper("too_new")
					continue
				}
				if d.Before(s.spec.Window.From) {
					s.report.TooOld++
					f.Metrics.Paper("too_old")
					if s.spec.Mode == types.ModeFiltered || s.report.TooOld > f.TooOldTolerance {
						return
					}
					continue
				}

				s.report.Yielded++
				f.Metrics.Paper("yielded")
				if !yield(p, nil) {
					return
				}
				if s.limit > 0 && s.report.Yielded >= s.limit {
					return
				}
			}

			if !page.HasMore {
				return
			}
			start += pageSize
		}
	}
}

// fetch gets one page under the backoff policy, pacing every attempt
// through the limiter and bounding it with the page timeout.
func (s *Stream) fetch(ctx context.Context, req PageRequest) (Page, int, error) {
	f := s.f
	var page Page
	attempts, err := httputil.Retry(ctx, f.Backoff, func(ctx context.Context, attempt int) error {
		if f.Limiter != nil {
			if err := f.Limiter.Wait(ctx); err != nil {
				return httputil.Stop(err)
			}
		}

		pctx := ctx
		if f.PageTimeout > 0 {
			var cancel context.CancelFunc
			pctx, cancel = context.WithTimeout(ctx, f.PageTimeout)
			defer cancel()
		}

		p, err := f.Pager.Page(pctx, req)
		if err != nil {
			if errors.Is(err, types.ErrSourceUnavailable) || ctx.Err() != nil {
				return httputil.Stop(err)
			}
			f.logger().WithFields(logrus.Fields{"start": req.Start, "attempt": attempt}).WithError(err).Debug("page attempt failed")
			return err
		}
		page = p
		return nil
	})
	return page, attempts, err
}

func (f *Fetcher) logger() logrus.FieldLogger {
	if f.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return f.Log
}

// Collect drains seq into a slice. It returns the papers gathered before
// the first error along with that error.
func Collect(seq iter.Seq2[types.Paper, error]) ([]types.Paper, error) {
	var out []types.Paper
	for p, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, nil
}

// BuildQuery renders spec as an arXiv search_query expression.
//
// Filtered: (cat:A OR cat:B) AND (ti:"kw" OR abs:"kw" ...).
// Exhaustive: the category clause alone. Topic and keywords never narrow
// an exhaustive enumeration.
func BuildQuery(spec types.QuerySpec) string {
	var cats []string
	for _, c := range spec.Categories {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, "cat:"+c)
		}
	}
	catClause := group(cats)

	if spec.Mode == types.ModeExhaustive {
		return catClause
	}

	var terms []string
	for _, kw := range spec.SearchTerms() {
		kw = strings.Join(strings.Fields(strings.ReplaceAll(kw, `"`, "")), " ")
		if kw == "" {
			continue
		}
		terms = append(terms, fmt.Sprintf(`ti:"%s"`, kw), fmt.Sprintf(`abs:"%s"`, kw))
	}
	termClause := group(terms)

	switch {
	case catClause == "":
		return termClause
	case termClause == "":
		return catClause
	default:
		return catClause + " AND " + termClause
	}
}

func group(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return "(" + strings.Join(parts, " OR ") + ")"
	}
}
