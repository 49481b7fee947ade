package forwarder

import (
	"context"

	"github.com/locustsocial/feedsync/internal/domain"
)

// InteractionQueue feeds interaction write events to the worker pool.
type InteractionQueue struct {
	dispatcher *Dispatcher
	forwarder  *InteractionForwarder
}

// NewInteractionQueue creates an InteractionQueue.
func NewInteractionQueue(d *Dispatcher, f *InteractionForwarder) *InteractionQueue {
	return &InteractionQueue{dispatcher: d, forwarder: f}
}

// Enqueue submits one event for background forwarding. It reports false
// when the queue is full or the dispatcher has stopped.
func (q *InteractionQueue) Enqueue(event *domain.InteractionWriteEvent) bool {
	return q.dispatcher.Submit(func(ctx context.Context) {
		q.forwarder.Handle(ctx, event)
	})
}
