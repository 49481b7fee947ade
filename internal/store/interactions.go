package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/locustsocial/feedsync/internal/domain"
)

// InteractionRepository stamps interaction push markers. The interaction
// state itself is written by the client apps; this pipeline only records
// when it last forwarded a delta, for observability.
type InteractionRepository struct {
	db *sqlx.DB
}

// NewInteractionRepository creates an InteractionRepository.
func NewInteractionRepository(db *sqlx.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// Get returns the interaction record keyed by (actor, content), or
// domain.ErrNotFound.
func (r *InteractionRepository) Get(ctx context.Context, actorID, contentID string) (*domain.InteractionRecord, error) {
	var rec domain.InteractionRecord
	query := `
		SELECT actor_id, content_id, liked, saved, view_seconds, last_event_at, last_pushed_at
		FROM interactions
		WHERE actor_id = $1 AND content_id = $2
	`
	if err := r.db.GetContext(ctx, &rec, query, actorID, contentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get interaction %s/%s: %w", actorID, contentID, err)
	}
	return &rec, nil
}

// StampPushed records the time of the last successful delta forwarding.
// A missing record is not an error: the interaction may have been removed
// between the event and the stamp.
func (r *InteractionRepository) StampPushed(ctx context.Context, actorID, contentID string, at time.Time) error {
	query := `
		UPDATE interactions
		SET last_pushed_at = $3
		WHERE actor_id = $1 AND content_id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, actorID, contentID, at.UTC()); err != nil {
		return fmt.Errorf("stamp interaction %s/%s: %w", actorID, contentID, err)
	}
	return nil
}
