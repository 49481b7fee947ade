package forwarder

import (
	"context"
	"sync"
	"time"

	"github.com/locustsocial/feedsync/internal/logger"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
	jobTimeout       = 30 * time.Second
)

// Dispatcher runs fire-and-forget jobs on a fixed worker pool. Interaction
// forwarding is submitted here so the interactive write path never waits on
// backend calls; completion is observed only through logs and metrics.
type Dispatcher struct {
	jobs   chan func(context.Context)
	logger logger.Logger

	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Zero values fall back to defaults.
func NewDispatcher(workers, queueSize int, log logger.Logger) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	d := &Dispatcher{
		jobs:   make(chan func(context.Context), queueSize),
		logger: log,
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Submit queues a job without blocking. It returns false when the queue is
// full or the dispatcher is stopped; the event is dropped and the caller
// relies on platform redelivery or the next natural write.
func (d *Dispatcher) Submit(job func(context.Context)) (accepted bool) {
	defer func() {
		// Submitting to a closed channel panics during shutdown races.
		if recover() != nil {
			accepted = false
		}
	}()

	select {
	case d.jobs <- job:
		return true
	default:
		d.logger.Warn("dispatcher queue full, dropping job",
			logger.Int("queue_size", cap(d.jobs)))
		return false
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.jobs)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for job := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		job(ctx)
		cancel()
	}
}
