// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/pdiddy/citeassist/internal/container"
	"github.com/pdiddy/citeassist/pkg/types"
)

// DefaultImage is the LaTeX image used by the container backend. It reads
// the source on stdin and writes the PDF to stdout.
const DefaultImage = "citeassist/pdflatex:latest"

// ContainerBackend compiles sources by piping them through a LaTeX
// container image. It depends on a container.Runtime (docker or podman)
// injected at construction time.
type ContainerBackend struct {
	runtime container.Runtime
	image   string
	policy  PollPolicy
	logger  *slog.Logger
}

// NewContainerBackend creates a backend that runs image through rt. It
// verifies that the image exists locally before returning. The policy's
// Timeout bounds each compilation.
func NewContainerBackend(rt container.Runtime, image string, policy PollPolicy, logger *slog.Logger) (*ContainerBackend, error) {
	if image == "" {
		image = DefaultImage
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("%w: LaTeX image not available in %s: %v", ErrRendererUnavailable, rt.Name(), err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ContainerBackend{
		runtime: rt,
		image:   image,
		policy:  policy.withDefaults(),
		logger:  logger,
	}, nil
}

// Name implements Backend.
func (b *ContainerBackend) Name() string { return string(types.BackendContainer) }

// Render implements Backend. The job has no remote id; it counts as a
// single attempt.
func (b *ContainerBackend) Render(ctx context.Context, source []byte) ([]byte, *types.RenderJob, error) {
	job := types.NewRenderJob(b.Name(), source)
	if len(bytes.TrimSpace(source)) == 0 {
		job.Finish(types.RenderFailed)
		return nil, job, ErrSourceMissing
	}

	runCtx, cancel := context.WithTimeout(ctx, b.policy.Timeout)
	defer cancel()

	job.Attempts = 1
	var out bytes.Buffer
	err := b.runtime.Run(runCtx, b.image, bytes.NewReader(source), &out)
	switch {
	case err == nil && out.Len() > 0:
		job.Finish(types.RenderReady)
		b.logger.Info("container render finished",
			slog.String("runtime", b.runtime.Name()),
			slog.Int("bytes", out.Len()),
			slog.Duration("elapsed", job.Elapsed()))
		return out.Bytes(), job, nil
	case ctx.Err() != nil:
		job.Finish(types.RenderFailed)
		return nil, job, ctx.Err()
	case runCtx.Err() != nil:
		job.Finish(types.RenderTimedOut)
		return nil, job, fmt.Errorf("%w: container compile exceeded %s", ErrPollTimeout, b.policy.Timeout)
	case err != nil:
		job.Finish(types.RenderFailed)
		return nil, job, fmt.Errorf("%w: %v", ErrRendererUnavailable, err)
	default:
		job.Finish(types.RenderFailed)
		return nil, job, fmt.Errorf("%w: %s produced empty output", ErrRendererUnavailable, b.image)
	}
}
