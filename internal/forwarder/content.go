package forwarder

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/locustsocial/feedsync/internal/backend"
	"github.com/locustsocial/feedsync/internal/blob"
	"github.com/locustsocial/feedsync/internal/domain"
	"github.com/locustsocial/feedsync/internal/imageref"
	"github.com/locustsocial/feedsync/internal/logger"
	"github.com/locustsocial/feedsync/internal/metrics"
	"github.com/locustsocial/feedsync/internal/synchash"
)

// PostReader re-reads content records during the debounce window and writes
// sync bookkeeping after a successful push.
type PostReader interface {
	Get(ctx context.Context, id string) (*domain.ContentRecord, error)
	SetSyncState(ctx context.Context, id, hash string, at time.Time) error
}

// ContentPusher sends the outbound content payload.
type ContentPusher interface {
	PushPost(ctx context.Context, push *backend.PostPush) error
}

// ContentConfig holds forwarder tunables.
type ContentConfig struct {
	// DefaultBucket is used for bare-path attachment references that do
	// not name a bucket themselves.
	DefaultBucket string

	// MaxImageBytes caps attachment size; oversized attachments are
	// dropped and the push proceeds text-only.
	MaxImageBytes int64
}

// ContentForwarder reacts to content-record write events: it fingerprints
// the material fields, skips no-op writes, coalesces edit bursts, fetches
// the attachment, pushes to the backend, and records sync bookkeeping.
type ContentForwarder struct {
	posts    PostReader
	fetcher  blob.Fetcher
	pusher   ContentPusher
	debounce *Debouncer
	cfg      ContentConfig
	metrics  *metrics.Collector
	logger   logger.Logger
	tracer   trace.Tracer

	// overridable in tests
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewContentForwarder creates a ContentForwarder.
func NewContentForwarder(
	posts PostReader,
	fetcher blob.Fetcher,
	pusher ContentPusher,
	debounce *Debouncer,
	cfg ContentConfig,
	m *metrics.Collector,
	log logger.Logger,
) *ContentForwarder {
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = blob.DefaultMaxBytes
	}
	return &ContentForwarder{
		posts:    posts,
		fetcher:  fetcher,
		pusher:   pusher,
		debounce: debounce,
		cfg:      cfg,
		metrics:  m,
		logger:   log,
		tracer:   otel.Tracer("content-forwarder"),
		sleep:    sleepContext,
		now:      time.Now,
	}
}

// Handle processes one content write event. A non-nil return means the push
// terminally failed and the event platform should redeliver; every earlier
// stage either skips cleanly or degrades.
func (f *ContentForwarder) Handle(ctx context.Context, event *domain.ContentWriteEvent) error {
	if event.Deleted() {
		f.metrics.RecordContentSkip(metrics.SkipDeleted)
		f.logger.Debug("content record deleted, nothing to push",
			logger.String("post_id", event.ID))
		return nil
	}

	after := event.AfterRecord()
	title := after.Title()
	body := after.Body()

	ref := imageref.Resolve(event.After)
	fingerprint := synchash.Compute(title, body, ref)

	if skip, reason := f.shouldSkip(event, fingerprint); skip {
		f.metrics.RecordContentSkip(reason)
		f.logger.Debug("content push skipped",
			logger.String("post_id", event.ID),
			logger.String("reason", reason))
		return nil
	}

	superseded, err := f.debounceBurst(ctx, event.ID, fingerprint)
	if err != nil {
		return err
	}
	if superseded {
		f.metrics.RecordContentSkip(metrics.SkipSuperseded)
		f.logger.Info("newer content detected, skipping older push",
			logger.String("post_id", event.ID))
		return nil
	}

	push := &backend.PostPush{ID: event.ID, Title: title, Body: body}
	f.attachImage(ctx, push, ref)

	if err := f.push(ctx, push); err != nil {
		return err
	}

	// Bookkeeping write. A failure here is logged only: the push already
	// succeeded, and the fingerprint skip check heals the gap on the next
	// natural write.
	if err := f.posts.SetSyncState(ctx, event.ID, fingerprint, f.now()); err != nil {
		f.logger.Error("failed to record sync state",
			logger.String("post_id", event.ID),
			logger.Error(err))
	}

	return nil
}

// shouldSkip applies the fingerprint skip check: an unchanged fingerprint
// is a no-op, and a write whose only change is our own bookkeeping fields
// is an echo.
func (f *ContentForwarder) shouldSkip(event *domain.ContentWriteEvent, fingerprint string) (bool, string) {
	currHash := domain.SyncHashOf(event.After)
	if currHash != "" && currHash == fingerprint {
		return true, metrics.SkipHashMatch
	}

	prevHash := domain.SyncHashOf(event.Before)
	if prevHash != "" && prevHash == fingerprint && currHash == "" {
		return true, metrics.SkipEcho
	}

	return false, ""
}

// debounceBurst coalesces rapid edits to the same record: when a write for
// this id arrived within the window, wait the window out, re-read the
// record, and report superseded when a newer fingerprint landed meanwhile.
// This is racy by construction; it reduces duplicate pushes, it does not
// eliminate them.
func (f *ContentForwarder) debounceBurst(ctx context.Context, id, fingerprint string) (bool, error) {
	if !f.debounce.ShouldDelay(id) {
		return false, nil
	}

	f.logger.Info("debounced edit burst",
		logger.String("post_id", id),
		logger.Duration("window", f.debounce.Window()))

	if err := f.sleep(ctx, f.debounce.Window()); err != nil {
		return false, err
	}

	fresh, err := f.posts.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			f.logger.Warn("re-read after debounce failed, pushing anyway",
				logger.String("post_id", id),
				logger.Error(err))
		}
		return false, nil
	}

	freshRef := imageref.Resolve(fresh.Raw)
	freshFingerprint := synchash.Compute(fresh.Title(), fresh.Body(), freshRef)
	return freshFingerprint != fingerprint, nil
}

// attachImage fetches the attachment bytes when a reference resolved.
// Every failure here is non-fatal: the push proceeds text-only.
func (f *ContentForwarder) attachImage(ctx context.Context, push *backend.PostPush, ref imageref.Ref) {
	if ref.ObjectPath != "" {
		bucket := ref.Bucket
		if bucket == "" {
			bucket = f.cfg.DefaultBucket
		}
		if bucket == "" {
			f.logger.Warn("no bucket configured, skipping storage download",
				logger.String("post_id", push.ID),
				logger.String("object_path", ref.ObjectPath))
		} else if data, err := f.fetcher.Download(ctx, bucket, ref.ObjectPath); err != nil {
			f.logger.Error("storage download failed, will try HTTP if available",
				logger.String("post_id", push.ID),
				logger.String("bucket", bucket),
				logger.String("object_path", ref.ObjectPath),
				logger.Error(err))
		} else if int64(len(data)) > f.cfg.MaxImageBytes {
			f.logger.Warn("image exceeds size cap, skipping attachment",
				logger.String("post_id", push.ID),
				logger.Int("bytes", len(data)),
				logger.Int64("cap", f.cfg.MaxImageBytes))
			return
		} else {
			push.Image = data
			push.ImageFilename = attachmentName(ref.ObjectPath)
			return
		}
	}

	if ref.HTTPURL == "" {
		return
	}

	data, err := f.fetcher.FetchURL(ctx, ref.HTTPURL)
	if err != nil {
		f.logger.Error("http image fetch failed",
			logger.String("post_id", push.ID),
			logger.String("url", ref.HTTPURL),
			logger.Error(err))
		return
	}
	if int64(len(data)) > f.cfg.MaxImageBytes {
		f.logger.Warn("http image exceeds size cap, skipping attachment",
			logger.String("post_id", push.ID),
			logger.Int("bytes", len(data)),
			logger.Int64("cap", f.cfg.MaxImageBytes))
		return
	}

	push.Image = data
	push.ImageFilename = "upload.jpg"
}

func (f *ContentForwarder) push(ctx context.Context, push *backend.PostPush) error {
	ctx, span := f.tracer.Start(ctx, "content.push",
		trace.WithAttributes(
			attribute.String("post_id", push.ID),
			attribute.Bool("attached", push.Attached()),
		))
	defer span.End()

	start := f.now()
	err := f.pusher.PushPost(ctx, push)
	elapsed := f.now().Sub(start)

	if err != nil {
		f.metrics.RecordContentPush(metrics.OutcomeFailed, elapsed)
		span.RecordError(err)
		return fmt.Errorf("push post %s: %w", push.ID, err)
	}

	f.metrics.RecordContentPush(metrics.OutcomeOK, elapsed)
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func attachmentName(objectPath string) string {
	if name := path.Base(objectPath); name != "." && name != "/" {
		return name
	}
	return "upload.jpg"
}
