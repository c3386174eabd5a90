// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render turns typesetting sources into PDF bytes. The HTTP backend
// submits the source to a remote render service and polls for the finished
// job; the container backend compiles it locally.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/citeassist/internal/httputil"
	"github.com/pdiddy/citeassist/pkg/types"
)

const (
	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the submission rate to the renderer, in requests
	// per second, shared by every job using the client.
	DefaultRateLimit = 10.0

	// maxJobIDBytes is the longest job id accepted.
	maxJobIDBytes = 4096
)

// Backend renders a typesetting source into PDF bytes.
type Backend interface {
	// Name identifies the backend in logs and job records.
	Name() string

	// Render produces the PDF for source. The returned job is never nil when
	// the source was accepted, even on failure.
	Render(ctx context.Context, source []byte) ([]byte, *types.RenderJob, error)
}

// Client talks to an asynchronous render service: POST {base} returns a job
// id, GET {base}/{id} returns the PDF once it is ready. Client is safe for
// concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	token      string
	userAgent  string
	policy     PollPolicy
	maxRetries int
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken sends the token as a bearer Authorization header.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRateLimit sets the maximum submission rate in requests per second.
// Non-positive values disable limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithPollPolicy sets the policy used by Render.
func WithPollPolicy(p PollPolicy) ClientOption {
	return func(c *Client) {
		c.policy = p.withDefaults()
	}
}

// WithSubmitRetries sets how often a throttled submission is retried.
func WithSubmitRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the render service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:    strings.TrimRight(baseURL, "/"),
		policy:     DefaultPollPolicy(),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig creates a client from render settings.
func NewClientFromConfig(cfg types.RenderConfig, logger *slog.Logger) (*Client, error) {
	policy, err := PolicyFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewClient(cfg.BaseURL,
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithToken(cfg.Token),
		WithUserAgent(cfg.UserAgent),
		WithRateLimit(cfg.RateLimit),
		WithPollPolicy(policy),
		WithLogger(logger),
	), nil
}

// Name implements Backend.
func (c *Client) Name() string { return string(types.BackendHTTP) }

// Render implements Backend using the client's poll policy.
func (c *Client) Render(ctx context.Context, source []byte) ([]byte, *types.RenderJob, error) {
	return c.SubmitAndWait(ctx, source, c.policy)
}

// SubmitAndWait submits source and waits for the rendered PDF under policy.
func (c *Client) SubmitAndWait(ctx context.Context, source []byte, policy PollPolicy) ([]byte, *types.RenderJob, error) {
	job := types.NewRenderJob(c.Name(), source)

	id, err := c.Submit(ctx, source)
	if err != nil {
		job.Finish(types.RenderFailed)
		return nil, job, err
	}
	job.JobID = id

	c.logger.Debug("render job submitted", slog.String("job_id", id))

	data, err := c.Wait(ctx, job, policy)
	if err != nil {
		return nil, job, err
	}

	c.logger.Info("render job ready",
		slog.String("job_id", id),
		slog.Int("attempts", job.Attempts),
		slog.Duration("elapsed", job.Elapsed()),
		slog.Int("bytes", len(data)))
	return data, job, nil
}

// Submit posts source to the renderer and returns the job id. Throttled
// submissions (429, 503) are retried; everything else is reported at once.
// Submissions are paced by the client's rate limiter; polls are not.
func (c *Client) Submit(ctx context.Context, source []byte) (string, error) {
	if len(bytes.TrimSpace(source)) == 0 {
		return "", ErrSourceMissing
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", c.ctxErr(ctx, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(source))
	if err != nil {
		return "", fmt.Errorf("%w: building request: %v", ErrRendererUnavailable, err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	c.setHeaders(req)

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.maxRetries, c.logger)
	if err != nil {
		return "", c.ctxErr(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJobIDBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: reading job id: %v", ErrRendererUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrRendererUnavailable, resp.StatusCode, snippet(body))
	}
	if len(body) > maxJobIDBytes {
		return "", fmt.Errorf("%w: job id exceeds %d bytes", ErrRendererUnavailable, maxJobIDBytes)
	}

	id := strings.TrimSpace(string(body))
	if id == "" {
		return "", ErrNoJobID
	}
	return id, nil
}

// Poll asks once whether the job is ready. It returns the PDF and true only
// for a 200 response with a non-empty body. Every other outcome means "not
// ready yet" and is logged at debug level. The request is bounded by the
// client policy's RequestTimeout.
func (c *Client) Poll(ctx context.Context, jobID string) ([]byte, bool) {
	req, err := c.pollRequest(ctx, jobID)
	if err != nil {
		c.logger.Debug("poll request", slog.String("job_id", jobID), slog.Any("error", err))
		return nil, false
	}
	return c.poll(req, jobID, c.policy.RequestTimeout)
}

func (c *Client) pollRequest(ctx context.Context, jobID string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building poll request: %v", ErrRendererUnavailable, err)
	}
	c.setHeaders(req)
	return req, nil
}

// poll sends req once, bounded by timeout.
func (c *Client) poll(req *http.Request, jobID string, timeout time.Duration) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	defer cancel()
	log := c.logger.With(slog.String("job_id", jobID))

	resp, err := c.httpClient.Do(req.Clone(ctx))
	if err != nil {
		log.Debug("poll failed", slog.Any("error", err))
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		log.Debug("job not ready", slog.Int("status", resp.StatusCode))
		return nil, false
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Debug("reading job output", slog.Any("error", err))
		return nil, false
	}
	if len(data) == 0 {
		log.Debug("job returned an empty body")
		return nil, false
	}
	return data, true
}

// Wait polls until the job is ready or MaxAttempts requests have been sent,
// which yields ErrPollTimeout. Only requests actually sent count as
// attempts. The policy Timeout, when it expires first, also yields
// ErrPollTimeout; if ctx itself is cancelled its error is returned instead.
// The first attempt is made immediately and no delay follows the last one.
// Attempts are counted on job.
func (c *Client) Wait(ctx context.Context, job *types.RenderJob, policy PollPolicy) ([]byte, error) {
	policy = policy.withDefaults()

	waitCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	req, err := c.pollRequest(waitCtx, job.JobID)
	if err != nil {
		job.Finish(types.RenderFailed)
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		if waitCtx.Err() != nil {
			return nil, c.waitErr(ctx, job)
		}

		job.Attempts = attempt
		if data, ok := c.poll(req, job.JobID, policy.RequestTimeout); ok {
			job.Finish(types.RenderReady)
			return data, nil
		}

		if err := ctx.Err(); err != nil {
			job.Finish(types.RenderFailed)
			return nil, err
		}
		if attempt >= policy.MaxAttempts {
			job.Finish(types.RenderTimedOut)
			return nil, fmt.Errorf("%w: job %s not ready after %d attempts", ErrPollTimeout, job.JobID, attempt)
		}

		timer := time.NewTimer(policy.Backoff.Delay(attempt))
		select {
		case <-waitCtx.Done():
			timer.Stop()
			return nil, c.waitErr(ctx, job)
		case <-timer.C:
		}
	}
}

// waitErr classifies the end of a wait: the parent context going away is
// the caller's doing, anything else is the poll budget.
func (c *Client) waitErr(ctx context.Context, job *types.RenderJob) error {
	if err := ctx.Err(); err != nil {
		job.Finish(types.RenderFailed)
		return err
	}
	job.Finish(types.RenderTimedOut)
	return fmt.Errorf("%w: job %s not ready within the wait budget (%d attempts)", ErrPollTimeout, job.JobID, job.Attempts)
}

func (c *Client) ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", ErrRendererUnavailable, err)
}

func (c *Client) setHeaders(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
