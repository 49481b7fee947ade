package forwarder

import (
	"context"
	"time"

	"github.com/locustsocial/feedsync/internal/domain"
	"github.com/locustsocial/feedsync/internal/logger"
	"github.com/locustsocial/feedsync/internal/metrics"
)

// UserEventPusher sends one signal delta to the ranking backend.
type UserEventPusher interface {
	PushUserEvent(ctx context.Context, actorID, etype, postID string, weight float64) error
}

// InteractionStamper records when an interaction record was last forwarded.
type InteractionStamper interface {
	StampPushed(ctx context.Context, actorID, contentID string, at time.Time) error
}

// InteractionForwarder reacts to interaction-record writes by diffing the
// before/after snapshots and forwarding each changed signal as its own
// event. Signals are fire-and-forget toward the backend: a failed delta is
// logged and dropped, never redelivered.
type InteractionForwarder struct {
	pusher  UserEventPusher
	stamper InteractionStamper
	metrics *metrics.Collector
	logger  logger.Logger

	now func() time.Time
}

// NewInteractionForwarder creates an InteractionForwarder.
func NewInteractionForwarder(
	pusher UserEventPusher,
	stamper InteractionStamper,
	m *metrics.Collector,
	log logger.Logger,
) *InteractionForwarder {
	return &InteractionForwarder{
		pusher:  pusher,
		stamper: stamper,
		metrics: m,
		logger:  log,
		now:     time.Now,
	}
}

// Handle processes one interaction write event. Each delta is pushed
// independently; one failing does not stop the rest.
func (f *InteractionForwarder) Handle(ctx context.Context, event *domain.InteractionWriteEvent) {
	if event.Deleted() {
		return
	}

	deltas := event.Deltas()
	if len(deltas) == 0 {
		return
	}

	pushed := 0
	for _, d := range deltas {
		if err := f.pusher.PushUserEvent(ctx, event.ActorID, d.Type, event.ContentID, d.Weight); err != nil {
			f.metrics.RecordInteractionEvent(d.Type, metrics.OutcomeFailed)
			f.logger.Error("failed to forward interaction signal",
				logger.String("actor_id", event.ActorID),
				logger.String("post_id", event.ContentID),
				logger.String("etype", d.Type),
				logger.Float64("weight", d.Weight),
				logger.Error(err))
			continue
		}
		f.metrics.RecordInteractionEvent(d.Type, metrics.OutcomeOK)
		pushed++
	}

	if pushed == 0 {
		return
	}

	if err := f.stamper.StampPushed(ctx, event.ActorID, event.ContentID, f.now()); err != nil {
		f.logger.Warn("failed to stamp interaction push time",
			logger.String("actor_id", event.ActorID),
			logger.String("post_id", event.ContentID),
			logger.Error(err))
	}
}
