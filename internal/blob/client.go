// Package blob downloads attachment bytes from object storage or plain
// HTTP URLs for the content push path.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Fetcher retrieves attachment bytes. Both methods cap the bytes read at
// one past the configured maximum so callers can detect oversize payloads
// with a simple length check.
type Fetcher interface {
	// Download fetches an object by bucket and path.
	Download(ctx context.Context, bucket, objectPath string) ([]byte, error)

	// FetchURL fetches an opaque HTTP(S) URL.
	FetchURL(ctx context.Context, rawURL string) ([]byte, error)
}

const (
	// DefaultEndpoint is the storage REST endpoint objects are read from.
	DefaultEndpoint = "https://firebasestorage.googleapis.com"

	// DefaultMaxBytes caps attachment downloads at 10MB.
	DefaultMaxBytes = 10 << 20

	defaultTimeout = 30 * time.Second
)

// Config holds blob client options.
type Config struct {
	Endpoint string
	MaxBytes int64
	Timeout  time.Duration
}

// Client is an HTTP-backed Fetcher.
type Client struct {
	endpoint string
	maxBytes int64
	http     *http.Client
}

// NewClient creates a blob Client.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		endpoint: cfg.Endpoint,
		maxBytes: cfg.MaxBytes,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

// Download fetches object bytes via the storage REST download form
// /v0/b/<bucket>/o/<encodedPath>?alt=media.
func (c *Client) Download(ctx context.Context, bucket, objectPath string) ([]byte, error) {
	target := fmt.Sprintf("%s/v0/b/%s/o/%s?alt=media",
		c.endpoint, url.PathEscape(bucket), url.PathEscape(objectPath))
	return c.fetch(ctx, target)
}

// FetchURL fetches an opaque HTTP(S) URL.
func (c *Client) FetchURL(ctx context.Context, rawURL string) ([]byte, error) {
	return c.fetch(ctx, rawURL)
}

func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", target, resp.StatusCode)
	}

	// Read one byte past the cap; the caller's length check detects oversize.
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return data, nil
}
