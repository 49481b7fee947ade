// Package httpx provides the retrying HTTP client used for all calls to the
// ranking backend.
package httpx

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/locustsocial/feedsync/internal/logger"
)

// Defaults for the retry policy. Base and max bound the exponential
// backoff; Retry-After from the server overrides the computed wait.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 300 * time.Millisecond
	DefaultMaxDelay    = 6 * time.Second
	DefaultTimeout     = 30 * time.Second

	// dateRetryAfterDelay is used when Retry-After carries an HTTP-date
	// instead of integer seconds.
	dateRetryAfterDelay = 1500 * time.Millisecond

	// minJitter is the floor of the jitter range added to each wait.
	minJitter      = 100 * time.Millisecond
	jitterFraction = 0.2

	maxDrainBytes = 4 << 10
)

// BuildRequest constructs a fresh request for one attempt. A new request is
// built per attempt so that requests with bodies can be retried.
type BuildRequest func(ctx context.Context) (*http.Request, error)

// Client executes HTTP requests with exponential backoff, jitter, and
// Retry-After support. It holds no per-call mutable state and is safe for
// concurrent use.
type Client struct {
	httpClient *http.Client
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     logger.Logger

	// overridable in tests
	sleep     func(ctx context.Context, d time.Duration) error
	randFloat func() float64
}

// Config holds client options. Zero values fall back to the defaults above.
type Config struct {
	Timeout   time.Duration
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// New creates a retrying Client.
func New(cfg Config, log logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseDelay:  cfg.BaseDelay,
		maxDelay:   cfg.MaxDelay,
		logger:     log,
		sleep:      sleepContext,
		randFloat:  rand.Float64,
	}
}

// Do executes the request with up to maxAttempts attempts. A 2xx response is
// returned immediately. On other statuses the client waits
// min(maxDelay, baseDelay*2^(attempt-1)) — or the server's Retry-After on
// 429/503 — plus uniform jitter, and retries. When attempts are exhausted
// the last response is returned as-is; the caller decides whether the
// failure propagates. Transport errors are not retried.
func (c *Client) Do(ctx context.Context, build BuildRequest, maxAttempts int) (*http.Response, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 1; ; attempt++ {
		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		if attempt >= maxAttempts {
			return resp, nil
		}

		wait := c.waitFor(resp, attempt)
		jitterRange := time.Duration(float64(wait) * jitterFraction)
		if jitterRange < minJitter {
			jitterRange = minJitter
		}
		wait += time.Duration(c.randFloat() * float64(jitterRange))

		c.logger.Warn("retrying backend request",
			logger.String("url", req.URL.String()),
			logger.Int("status", resp.StatusCode),
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", maxAttempts),
			logger.Duration("wait", wait))

		drainBody(resp)

		if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
			return nil, sleepErr
		}
	}
}

// waitFor computes the pre-jitter wait before the next attempt. A server
// Retry-After overrides the exponential backoff on 429/503.
func (c *Client) waitFor(resp *http.Response, attempt int) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				return time.Duration(secs) * time.Second
			}
			// HTTP-date form: don't parse, just wait a short fixed interval.
			return dateRetryAfterDelay
		}
	}

	wait := c.baseDelay << (attempt - 1)
	if wait > c.maxDelay || wait <= 0 {
		wait = c.maxDelay
	}
	return wait
}

// drainBody discards and closes a response body so the underlying
// connection can be reused by the next attempt.
func drainBody(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, resp.Body, maxDrainBytes)
	_ = resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
