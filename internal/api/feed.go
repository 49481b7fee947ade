package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/locustsocial/feedsync/internal/domain"
	"github.com/locustsocial/feedsync/internal/logger"
)

// FeedPages serves ranked and recency feed pages.
type FeedPages interface {
	Ranked(ctx context.Context, uid, cursor string) (domain.FeedPage, error)
	Recent(ctx context.Context, cursor string) (domain.FeedPage, error)
}

// FeedHandler serves feed pages to clients.
type FeedHandler struct {
	feed   FeedPages
	logger logger.Logger
}

// NewFeedHandler creates a FeedHandler.
func NewFeedHandler(feed FeedPages, log logger.Logger) *FeedHandler {
	return &FeedHandler{feed: feed, logger: log}
}

// Ranked handles GET /api/v1/feed?uid=...&cursor=...
func (h *FeedHandler) Ranked(c *gin.Context) {
	uid := c.Query("uid")
	if uid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid is required"})
		return
	}

	page, err := h.feed.Ranked(c.Request.Context(), uid, c.Query("cursor"))
	if err != nil {
		h.logger.Error("ranked feed failed",
			logger.String("uid", uid),
			logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "feed unavailable"})
		return
	}

	c.JSON(http.StatusOK, page)
}

// Recent handles GET /api/v1/feed/recent?cursor=...
func (h *FeedHandler) Recent(c *gin.Context) {
	page, err := h.feed.Recent(c.Request.Context(), c.Query("cursor"))
	if err != nil {
		if errors.Is(err, domain.ErrBadCursor) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed cursor"})
			return
		}
		h.logger.Error("recent feed failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "feed unavailable"})
		return
	}

	c.JSON(http.StatusOK, page)
}
