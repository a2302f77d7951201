// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Error kinds shared across components. Callers wrap them with %w and test
// with errors.Is.
var (
	// ErrSourceUnavailable means retrieval could not start at all. Fatal
	// for the session.
	ErrSourceUnavailable = errors.New("paper source unavailable")

	// ErrSourcePageFailed means one page kept failing after backoff. The
	// page becomes a gap and enumeration continues.
	ErrSourcePageFailed = errors.New("paper source page failed")

	// ErrJudgeCallFailed covers transport errors and timeouts on a judge call.
	ErrJudgeCallFailed = errors.New("judge call failed")

	// ErrMalformedResponse means the judge answered but the answer could
	// not be parsed or was out of range.
	ErrMalformedResponse = errors.New("judge returned malformed response")

	// ErrProfileUpdateFailed means a feedback update or compression did not
	// complete. The prior profile stays current.
	ErrProfileUpdateFailed = errors.New("profile update failed")

	// ErrProfileLoad means the stored profile could not be read.
	ErrProfileLoad = errors.New("profile load failed")

	// ErrConfigInvalid rejects a configuration or query before any work starts.
	ErrConfigInvalid = errors.New("invalid configuration")
)
