// Package backend is the HTTP client for the external ranking backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/locustsocial/feedsync/internal/domain"
	"github.com/locustsocial/feedsync/internal/httpx"
	"github.com/locustsocial/feedsync/internal/logger"
)

// authHeader carries the shared secret on every backend call.
const authHeader = "X-Firebase-Token"

// bodyPreviewLimit bounds how much of an error response body is kept for
// logs and error messages.
const bodyPreviewLimit = 400

// StatusError is returned when the backend answered with a non-2xx status
// after the retry budget was spent.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// Config holds backend client options.
type Config struct {
	BaseURL     string
	Secret      string
	MaxAttempts int
	Timeout     time.Duration
}

// Client talks to the ranking backend. All mutating calls go through the
// retrying HTTP client; the raw rank passthrough used by the proxy does not
// retry.
type Client struct {
	baseURL     string
	secret      string
	retry       *httpx.Client
	plain       *http.Client
	maxAttempts int
	logger      logger.Logger
}

// New creates a backend Client.
func New(cfg Config, retry *httpx.Client, log logger.Logger) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = httpx.DefaultMaxAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = httpx.DefaultTimeout
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		secret:      cfg.Secret,
		retry:       retry,
		plain:       &http.Client{Timeout: cfg.Timeout},
		maxAttempts: cfg.MaxAttempts,
		logger:      log,
	}
}

// PostPush is the outbound content payload: record identity, text fields,
// and the optional attachment bytes.
type PostPush struct {
	ID            string
	Title         string
	Body          string
	Image         []byte
	ImageFilename string
}

// Attached reports whether the push carries attachment bytes.
func (p *PostPush) Attached() bool {
	return len(p.Image) > 0
}

// PushPost sends a multipart {firebase_id, title, body, image?} payload to
// POST /api/posts. A non-2xx status after retries is returned as a
// *StatusError so the caller can propagate it for redelivery.
func (c *Client) PushPost(ctx context.Context, push *PostPush) error {
	build := func(ctx context.Context) (*http.Request, error) {
		var buf bytes.Buffer
		form := multipart.NewWriter(&buf)

		_ = form.WriteField("firebase_id", push.ID)
		_ = form.WriteField("title", push.Title)
		_ = form.WriteField("body", push.Body)

		if push.Attached() {
			name := push.ImageFilename
			if name == "" {
				name = "upload.jpg"
			}
			part, err := form.CreateFormFile("image", name)
			if err != nil {
				return nil, fmt.Errorf("create image part: %w", err)
			}
			if _, err := part.Write(push.Image); err != nil {
				return nil, fmt.Errorf("write image part: %w", err)
			}
		}

		if err := form.Close(); err != nil {
			return nil, fmt.Errorf("close form: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/posts", &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set(authHeader, c.secret)
		req.Header.Set("Content-Type", form.FormDataContentType())
		return req, nil
	}

	resp, err := c.retry.Do(ctx, build, c.maxAttempts)
	if err != nil {
		return fmt.Errorf("push post %s: %w", push.ID, err)
	}
	defer resp.Body.Close()

	preview := readPreview(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: preview}
	}

	c.logger.Info("backend accepted post",
		logger.String("post_id", push.ID),
		logger.Int("status", resp.StatusCode),
		logger.Bool("attached", push.Attached()))
	return nil
}

// userEvent is the JSON body for POST /api/user-event.
type userEvent struct {
	UID            string  `json:"uid"`
	EType          string  `json:"etype"`
	FirebasePostID string  `json:"firebase_post_id"`
	Weight         float64 `json:"weight"`
}

// PushUserEvent sends one interaction delta event.
func (c *Client) PushUserEvent(ctx context.Context, actorID, etype, postID string, weight float64) error {
	payload, err := json.Marshal(userEvent{
		UID:            actorID,
		EType:          etype,
		FirebasePostID: postID,
		Weight:         weight,
	})
	if err != nil {
		return fmt.Errorf("marshal user event: %w", err)
	}

	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/api/user-event", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set(authHeader, c.secret)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	resp, err := c.retry.Do(ctx, build, c.maxAttempts)
	if err != nil {
		return fmt.Errorf("push user event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: readPreview(resp.Body)}
	}
	return nil
}

// rankReply mirrors the backend's rank response. next_cursor may arrive as
// a string, an integer, or a decimal, so it is captured raw and normalized.
type rankReply struct {
	PostIDs    []string        `json:"post_ids"`
	NextCursor json.RawMessage `json:"next_cursor"`
}

// Rank queries GET /api/rank and normalizes the reply.
func (c *Client) Rank(ctx context.Context, uid string, limit int, cursor string) (domain.RankResponse, error) {
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rankURL(uid, strconv.Itoa(limit), cursor), http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set(authHeader, c.secret)
		return req, nil
	}

	resp, err := c.retry.Do(ctx, build, c.maxAttempts)
	if err != nil {
		return domain.RankResponse{}, fmt.Errorf("rank query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.RankResponse{}, &StatusError{StatusCode: resp.StatusCode, Body: readPreview(resp.Body)}
	}

	var reply rankReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return domain.RankResponse{}, fmt.Errorf("decode rank response: %w", err)
	}

	return domain.RankResponse{
		PostIDs:    reply.PostIDs,
		NextCursor: normalizeCursor(reply.NextCursor),
	}, nil
}

// RawRank performs a single, non-retried rank query and returns the raw
// response for verbatim passthrough. The caller must close the body.
func (c *Client) RawRank(ctx context.Context, uid, limit, cursor string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rankURL(uid, limit, cursor), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set(authHeader, c.secret)
	return c.plain.Do(req)
}

func (c *Client) rankURL(uid, limit, cursor string) string {
	q := url.Values{}
	q.Set("uid", uid)
	q.Set("limit", limit)
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	return c.baseURL + "/api/rank?" + q.Encode()
}

// normalizeCursor coerces the backend's next_cursor to a string. Accepts
// "15", 15, or 15.0; absent, null, empty, or unparseable all mean end of
// feed and yield "".
func normalizeCursor(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatInt(int64(n), 10)
	}

	return ""
}

func readPreview(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, bodyPreviewLimit))
	return string(b)
}
