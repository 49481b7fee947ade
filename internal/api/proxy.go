package api

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/locustsocial/feedsync/internal/logger"
)

// RankPassthrough performs one un-retried rank request against the
// backend.
type RankPassthrough interface {
	RawRank(ctx context.Context, uid, limit, cursor string) (*http.Response, error)
}

// ProxyHandler forwards rank requests from browsers straight to the
// backend, adding the shared secret the browser must never hold.
type ProxyHandler struct {
	backend RankPassthrough
	logger  logger.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(backend RankPassthrough, log logger.Logger) *ProxyHandler {
	return &ProxyHandler{backend: backend, logger: log}
}

// Rank handles GET /rankProxy. Status, content type, and body come back
// verbatim from the backend.
func (h *ProxyHandler) Rank(c *gin.Context) {
	resp, err := h.backend.RawRank(
		c.Request.Context(),
		c.Query("uid"),
		c.Query("limit"),
		c.Query("cursor"),
	)
	if err != nil {
		h.logger.Error("rank passthrough failed", logger.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "rank backend unreachable"})
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}

	c.Status(resp.StatusCode)
	c.Header("Content-Type", contentType)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		h.logger.Warn("rank passthrough body copy failed", logger.Error(err))
	}
}
