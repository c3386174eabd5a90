// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sheet produces annotated documents: it formats the citation,
// renders the citation sheet (falling back to a local renderer when the
// primary one fails), merges the sheet into the document, and checks the
// result with an independent reader.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/citeassist/internal/bibtex"
	"github.com/pdiddy/citeassist/internal/compose"
	"github.com/pdiddy/citeassist/internal/fallback"
	"github.com/pdiddy/citeassist/internal/latex"
	"github.com/pdiddy/citeassist/internal/pdf"
	"github.com/pdiddy/citeassist/internal/render"
	"github.com/pdiddy/citeassist/internal/verify"
	"github.com/pdiddy/citeassist/pkg/types"
)

// Recorder stores a summary of every produced sheet. Implementations must be
// safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, rec types.SheetRecord) error
}

// Request describes one citation sheet.
type Request struct {
	// Fields are the bibliographic fields, including entryType and
	// referenceKey.
	Fields types.CitationFields

	// Related papers are listed on the sheet. Optional.
	Related []types.RelatedPaper

	// Tag overrides the conference acronym from Fields. Optional.
	Tag string

	// SheetURL links the hosted copy of the annotated document. When empty
	// and the producer has a sheet base URL, a link is derived from the
	// sheet id.
	SheetURL string

	// PageSize sizes the citation page. Zero means the size of the
	// document's first page.
	PageSize types.PageSize
}

// Result is the outcome of Produce.
type Result struct {
	// ID identifies the sheet in the ledger.
	ID string

	// Text is the canonical BibTeX entry. It depends only on the request.
	Text string

	// Bytes is the serialized composite document.
	Bytes []byte

	// Stage is the last stage reached: StageDone on success, StageFailed
	// otherwise.
	Stage types.Stage

	// Degraded is set when the fallback renderer produced the sheet.
	Degraded bool

	// Job is the primary render job, if one was submitted.
	Job *types.RenderJob

	// Pages is the page count of the composite document.
	Pages int
}

// Producer runs the citation sheet pipeline. It is safe for concurrent use;
// each call to Produce owns the document passed to it.
type Producer struct {
	backend      render.Backend
	fallback     *fallback.Renderer
	compositor   *compose.Compositor
	recorder     Recorder
	sheetBaseURL string
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures a Producer.
type Option func(*Producer)

// WithRecorder records every produced sheet.
func WithRecorder(r Recorder) Option {
	return func(p *Producer) { p.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Producer) { p.logger = l }
}

// WithSheetBaseURL links each sheet to "<base>/preprint/<id>" unless the
// request carries its own link.
func WithSheetBaseURL(base string) Option {
	return func(p *Producer) { p.sheetBaseURL = strings.TrimRight(base, "/") }
}

// NewProducer wires the pipeline stages together.
func NewProducer(backend render.Backend, fb *fallback.Renderer, comp *compose.Compositor, opts ...Option) *Producer {
	p := &Producer{
		backend:    backend,
		fallback:   fb,
		compositor: comp,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Produce appends the citation sheet for req to doc and returns the
// serialized result. doc is modified in place and must not be used
// elsewhere until Produce returns.
//
// On failure the returned Result is non-nil with Stage set to StageFailed,
// together with the error.
func (p *Producer) Produce(ctx context.Context, doc *pdf.Document, req Request) (*Result, error) {
	started := p.now()
	res := &Result{ID: uuid.NewString(), Stage: types.StageBuilding}
	log := p.logger.With(slog.String("sheet", res.ID), slog.String("ref", req.Fields.ReferenceKey()))

	fail := func(err error) (*Result, error) {
		log.Error("citation sheet failed", slog.String("stage", string(res.Stage)), slog.Any("error", err))
		res.Stage = types.StageFailed
		p.record(ctx, req, res, started, err)
		return res, err
	}

	text, err := bibtex.Format(req.Fields)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", render.ErrSourceMissing, err))
	}
	res.Text = text

	size := p.pageSize(doc, req.PageSize)
	source := latex.Source(p.content(req, res.ID, text), size)

	res.Stage = types.StageRendering
	data, job, err := p.backend.Render(ctx, []byte(source))
	res.Job = job
	switch {
	case err == nil:
		res.Stage = types.StageRendered
		log.Info("citation rendered", slog.String("backend", p.backend.Name()), jobAttrs(job))
	case !render.IsFallbackEligible(err):
		return fail(err)
	default:
		log.Warn("primary renderer failed, using fallback (degraded mode)",
			slog.String("backend", p.backend.Name()), slog.Any("error", err), jobAttrs(job))
		if data, err = p.renderFallback(res, size, text); err != nil {
			return fail(err)
		}
	}

	tag := req.Tag
	if tag == "" {
		tag = req.Fields.Value(types.FieldConference)
	}

	res.Stage = types.StageComposing
	_, err = p.compositor.Merge(doc, data, tag)
	if errors.Is(err, compose.ErrInvalidCitationDocument) && !res.Degraded {
		log.Warn("rendered citation unusable, using fallback (degraded mode)", slog.Any("error", err))
		if data, err = p.renderFallback(res, size, text); err != nil {
			return fail(err)
		}
		res.Stage = types.StageComposing
		_, err = p.compositor.Merge(doc, data, tag)
	}
	if err != nil {
		return fail(err)
	}

	out := doc.Bytes()
	summary, err := verify.Inspect(out)
	if err != nil {
		return fail(&compose.Error{Step: "verifying", Err: err})
	}

	res.Bytes = out
	res.Pages = summary.Pages
	res.Stage = types.StageDone
	log.Info("citation sheet produced",
		slog.Int("pages", res.Pages),
		slog.Bool("degraded", res.Degraded),
		slog.Duration("elapsed", p.now().Sub(started)),
	)
	p.record(ctx, req, res, started, nil)
	return res, nil
}

func (p *Producer) renderFallback(res *Result, size types.PageSize, text string) ([]byte, error) {
	res.Stage = types.StageFallback
	res.Degraded = true
	data, err := p.fallback.Render(size, text)
	if err != nil {
		return nil, fmt.Errorf("fallback render: %w", err)
	}
	return data, nil
}

// pageSize returns want, or the first page's media box size of doc.
func (p *Producer) pageSize(doc *pdf.Document, want types.PageSize) types.PageSize {
	if !want.IsZero() {
		return want
	}
	box, err := doc.MediaBox(1)
	if err != nil {
		return fallback.DefaultPageSize
	}
	return types.PageSize{Width: box.Width(), Height: box.Height()}
}

func (p *Producer) content(req Request, id, text string) latex.Content {
	c := latex.Content{
		Citation:    text,
		OfficialURL: req.Fields.Value(types.FieldURL),
		SheetURL:    req.SheetURL,
	}
	if c.SheetURL == "" && p.sheetBaseURL != "" {
		c.SheetURL = p.sheetBaseURL + "/preprint/" + id
	}
	for _, r := range req.Related {
		if s := r.String(); s != "" {
			c.Related = append(c.Related, s)
		}
	}
	return c
}

func (p *Producer) record(ctx context.Context, req Request, res *Result, started time.Time, failure error) {
	if p.recorder == nil {
		return
	}
	rec := types.SheetRecord{
		ID:           res.ID,
		ReferenceKey: req.Fields.ReferenceKey(),
		EntryType:    req.Fields.EntryType(),
		Conference:   req.Fields.Value(types.FieldConference),
		Stage:        res.Stage,
		Degraded:     res.Degraded,
		Pages:        res.Pages,
		CreatedAt:    started.UTC(),
		Elapsed:      p.now().Sub(started),
	}
	if req.Tag != "" {
		rec.Conference = req.Tag
	}
	if res.Job != nil {
		rec.Backend = res.Job.Backend
		rec.JobID = res.Job.JobID
		rec.Attempts = res.Job.Attempts
	}
	if failure != nil {
		rec.Error = failure.Error()
	}
	// Ledger errors are logged only. Cancelled requests are recorded too.
	if err := p.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		p.logger.Warn("recording citation sheet", slog.String("sheet", res.ID), slog.Any("error", err))
	}
}

func jobAttrs(job *types.RenderJob) slog.Attr {
	if job == nil {
		return slog.Group("job")
	}
	return slog.Group("job",
		slog.String("id", job.JobID),
		slog.String("status", string(job.Status)),
		slog.Int("attempts", job.Attempts),
		slog.Duration("elapsed", job.Elapsed()),
	)
}
