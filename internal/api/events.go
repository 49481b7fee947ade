package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/locustsocial/feedsync/internal/domain"
	"github.com/locustsocial/feedsync/internal/logger"
)

// ContentEvents processes content write events synchronously.
type ContentEvents interface {
	Handle(ctx context.Context, event *domain.ContentWriteEvent) error
}

// InteractionEvents accepts interaction write events for asynchronous
// processing. Enqueue reports false when the queue is full.
type InteractionEvents interface {
	Enqueue(event *domain.InteractionWriteEvent) bool
}

// EventHandler ingests write events from the event platform.
type EventHandler struct {
	content      ContentEvents
	interactions InteractionEvents
	logger       logger.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(content ContentEvents, interactions InteractionEvents, log logger.Logger) *EventHandler {
	return &EventHandler{content: content, interactions: interactions, logger: log}
}

type contentEventRequest struct {
	ID     string         `json:"id" binding:"required"`
	Before map[string]any `json:"before"`
	After  map[string]any `json:"after"`
}

// PostWrite handles POST /api/v1/events/posts. The event is processed
// inline; a terminal push failure returns 502 so the event platform
// redelivers.
func (h *EventHandler) PostWrite(c *gin.Context) {
	var req contentEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}

	event := &domain.ContentWriteEvent{
		ID:     req.ID,
		Before: req.Before,
		After:  req.After,
	}

	if err := h.content.Handle(c.Request.Context(), event); err != nil {
		h.logger.Error("content event processing failed",
			logger.String("post_id", req.ID),
			logger.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "push failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

type interactionEventRequest struct {
	ActorID   string                      `json:"actor_id" binding:"required"`
	ContentID string                      `json:"content_id" binding:"required"`
	Before    *domain.InteractionSnapshot `json:"before"`
	After     *domain.InteractionSnapshot `json:"after"`
}

// InteractionWrite handles POST /api/v1/events/interactions. Events are
// queued and forwarded in the background; signal deltas are best-effort, so
// acceptance is all the caller learns.
func (h *EventHandler) InteractionWrite(c *gin.Context) {
	var req interactionEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}

	event := &domain.InteractionWriteEvent{
		ActorID:   req.ActorID,
		ContentID: req.ContentID,
		Before:    req.Before,
		After:     req.After,
	}

	if !h.interactions.Enqueue(event) {
		h.logger.Warn("interaction queue full, dropping event",
			logger.String("actor_id", req.ActorID),
			logger.String("post_id", req.ContentID))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue full"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
