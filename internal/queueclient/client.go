// Package queueclient is a typed client for the queue engine's REST API.
//
// The client is stateless: every method maps one operation onto one HTTP
// request and classifies any failure as *Error. It holds no cache.
package queueclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// maxErrorBody caps how much of a failed response is read for the detail message.
const maxErrorBody = 4096

// Client talks to one queue engine.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is left as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client from validated settings.
func New(config Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid engine base_url: %w", err)
	}

	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: config.Timeout},
		logger:  logger,
	}
	if config.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the engine address this client targets
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Status fetches the engine's worker count and job summary (GET /status).
func (c *Client) Status(ctx context.Context) (SystemStatus, error) {
	var status SystemStatus
	if err := c.getJSON(ctx, "fetch_status", "/status", &status); err != nil {
		return SystemStatus{}, err
	}
	return status, nil
}

// ListJobs fetches the full job list (GET /jobs).
func (c *Client) ListJobs(ctx context.Context) ([]Job, error) {
	var jobs []Job
	if err := c.getJSON(ctx, "list_jobs", "/jobs", &jobs); err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []Job{}
	}
	return jobs, nil
}

// ListDLQ fetches the dead-letter queue (GET /dlq).
func (c *Client) ListDLQ(ctx context.Context) ([]DlqEntry, error) {
	var entries []DlqEntry
	if err := c.getJSON(ctx, "list_dlq", "/dlq", &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []DlqEntry{}
	}
	return entries, nil
}

// RetryJob requeues a dead-lettered job (POST /dlq/retry/{id}).
func (c *Client) RetryJob(ctx context.Context, jobID string) error {
	_, err := c.do(ctx, "retry_job", http.MethodPost, "/dlq/retry/"+url.PathEscape(jobID))
	return err
}

// DeleteJob removes a job from the engine (DELETE /jobs/{id}).
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	_, err := c.do(ctx, "delete_job", http.MethodDelete, "/jobs/"+url.PathEscape(jobID))
	return err
}

// FetchLog returns the raw text of a job's latest log (GET /logs/{id}).
func (c *Client) FetchLog(ctx context.Context, jobID string) (string, error) {
	body, err := c.do(ctx, "fetch_log", http.MethodGet, "/logs/"+url.PathEscape(jobID))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out interface{}) error {
	body, err := c.do(ctx, op, http.MethodGet, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Op: op, Kind: KindDecode, Err: err}
	}
	return nil
}

// do performs one request. It never retries.
func (c *Client) do(ctx context.Context, op, method, path string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Op: op, Kind: classifyTransport(ctx, err), Err: err}
		}
	}

	target := c.baseURL.String() + path
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json, text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Kind: classifyTransport(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{
			Op:         op,
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(snippet),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Kind: classifyTransport(ctx, err), Err: err}
	}

	c.logger.Debug("engine request completed",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(body))

	return body, nil
}

func classifyTransport(ctx context.Context, err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}

// errorDetail extracts {"detail": "..."} from an engine error body, falling
// back to the trimmed raw body.
func errorDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(body))
}
