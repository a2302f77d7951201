// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers and the bounded backoff policy
// shared by the paper source and the judge.
package httputil

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/pdiddy/paperpal/pkg/types"
)

// Backoff is an explicit, bounded retry policy. Attempt n (1-based) that
// fails waits BaseDelay * Multiplier^(n-1) before attempt n+1. Nothing is
// retried more than MaxAttempts times in total.
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultBackoff is three attempts starting at two seconds, doubling.
var DefaultBackoff = Backoff{MaxAttempts: 3, BaseDelay: 2 * time.Second, Multiplier: 2}

// FromConfig converts the configured policy, filling zero fields from
// DefaultBackoff.
func FromConfig(c types.BackoffConfig) Backoff {
	b := Backoff{MaxAttempts: c.MaxAttempts, BaseDelay: c.BaseDelay, Multiplier: c.Multiplier}
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = DefaultBackoff.MaxAttempts
	}
	if b.Multiplier < 1 {
		b.Multiplier = DefaultBackoff.Multiplier
	}
	return b
}

// Delay returns the wait after the given failed attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(b.BaseDelay) * math.Pow(b.Multiplier, float64(attempt-1)))
}

// Permanent marks an error that must not be retried.
type Permanent struct{ Err error }

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// Stop wraps err so Retry returns it immediately.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &Permanent{Err: err}
}

// Retry calls fn until it succeeds, returns a Permanent error, or the
// policy is exhausted. It returns the number of attempts made and the last
// error (unwrapped from Permanent). A cancelled context during a wait
// returns ctx.Err().
func Retry(ctx context.Context, b Backoff, fn func(ctx context.Context, attempt int) error) (int, error) {
	limit := b.MaxAttempts
	if limit <= 0 {
		limit = 1
	}

	var err error
	for attempt := 1; attempt <= limit; attempt++ {
		err = fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		var perm *Permanent
		if errors.As(err, &perm) {
			return attempt, perm.Err
		}
		if attempt == limit {
			break
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(b.Delay(attempt)):
		}
	}
	return limit, err
}

// retryableStatus reports whether an HTTP status is worth retrying.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) and 503 (Service Unavailable) per the backoff policy.
//
// On each retried response the body is drained and closed before sleeping.
// If the context is cancelled during a backoff wait the function returns
// ctx.Err(). After exhausting attempts the last response is returned so
// the caller can inspect it. Transport errors are returned as-is.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, b Backoff) (*http.Response, error) {
	limit := b.MaxAttempts
	if limit <= 0 {
		limit = 1
	}

	for attempt := 1; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if !retryableStatus(resp.StatusCode) || attempt >= limit {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(b.Delay(attempt)):
		}
	}
}
