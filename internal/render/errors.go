// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"context"
	"errors"
)

var (
	// ErrSourceMissing is returned when there is no typesetting source to
	// submit. It is the caller's mistake, so no fallback applies.
	ErrSourceMissing = errors.New("render: typesetting source is empty")

	// ErrNoJobID is returned when the renderer accepted the submission but
	// answered without a job identifier.
	ErrNoJobID = errors.New("render: renderer returned no job id")

	// ErrPollTimeout is returned when the job was not ready within the
	// attempt ceiling or the wait budget.
	ErrPollTimeout = errors.New("render: job not ready before the poll budget ran out")

	// ErrRendererUnavailable is returned when the renderer could not be
	// reached or refused the submission.
	ErrRendererUnavailable = errors.New("render: renderer unavailable")
)

// IsFallbackEligible reports whether a render error should be answered by
// the local fallback renderer. Empty sources, missing job ids and an
// abandoned caller context are not.
func IsFallbackEligible(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrSourceMissing), errors.Is(err, ErrNoJobID):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}
