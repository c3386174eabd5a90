// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RenderStatus is the lifecycle state of a render job.
type RenderStatus string

const (
	RenderPending  RenderStatus = "pending"
	RenderReady    RenderStatus = "ready"
	RenderFailed   RenderStatus = "failed"
	RenderTimedOut RenderStatus = "timed_out"
)

// RenderJob tracks one submission of a typesetting source to a renderer.
// The rendered bytes are returned to the caller, never stored on the job.
type RenderJob struct {
	// Source is the typesetting source that was submitted.
	Source []byte `json:"-" yaml:"-"`

	// JobID is the opaque identifier returned by the renderer. Empty until
	// the submission is accepted.
	JobID string `json:"job_id,omitempty" yaml:"job_id,omitempty"`

	// Backend names the backend that handled the job ("http", "container").
	Backend string `json:"backend" yaml:"backend"`

	// Status is the current lifecycle state.
	Status RenderStatus `json:"status" yaml:"status"`

	// Attempts counts poll attempts made so far.
	Attempts int `json:"attempts" yaml:"attempts"`

	// StartedAt is when the job was submitted.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	// FinishedAt is when the job reached a terminal state.
	FinishedAt time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// NewRenderJob returns a pending job for source.
func NewRenderJob(backend string, source []byte) *RenderJob {
	return &RenderJob{
		Source:    source,
		Backend:   backend,
		Status:    RenderPending,
		StartedAt: time.Now(),
	}
}

// Finish moves the job to a terminal status.
func (j *RenderJob) Finish(status RenderStatus) {
	j.Status = status
	j.FinishedAt = time.Now()
}

// Elapsed returns the time spent on the job so far.
func (j *RenderJob) Elapsed() time.Duration {
	if j.FinishedAt.IsZero() {
		return time.Since(j.StartedAt)
	}
	return j.FinishedAt.Sub(j.StartedAt)
}

// Stage is a step of the citation sheet pipeline:
// Building -> Rendering -> {Rendered | Fallback} -> Composing -> Done | Failed.
type Stage string

const (
	StageBuilding  Stage = "building"
	StageRendering Stage = "rendering"
	StageRendered  Stage = "rendered"
	StageFallback  Stage = "fallback"
	StageComposing Stage = "composing"
	StageDone      Stage = "done"
	StageFailed    Stage = "failed"
)

// SheetRecord summarises one produced citation sheet for the ledger.
type SheetRecord struct {
	ID           string        `json:"id" yaml:"id"`
	ReferenceKey string        `json:"reference_key" yaml:"reference_key"`
	EntryType    string        `json:"entry_type" yaml:"entry_type"`
	Conference   string        `json:"conference,omitempty" yaml:"conference,omitempty"`
	Stage        Stage         `json:"stage" yaml:"stage"`
	Degraded     bool          `json:"degraded" yaml:"degraded"`
	Backend      string        `json:"backend,omitempty" yaml:"backend,omitempty"`
	JobID        string        `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Attempts     int           `json:"attempts" yaml:"attempts"`
	Pages        int           `json:"pages" yaml:"pages"`
	Error        string        `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at" yaml:"created_at"`
	Elapsed      time.Duration `json:"elapsed" yaml:"elapsed"`
}
