package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/locustsocial/feedsync/internal/domain"
)

// PostRepository reads content records by key and writes sync bookkeeping.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository creates a PostRepository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Get returns the content record with the given id, or domain.ErrNotFound.
func (r *PostRepository) Get(ctx context.Context, id string) (*domain.ContentRecord, error) {
	var row struct {
		ID        string    `db:"id"`
		Data      []byte    `db:"data"`
		CreatedAt time.Time `db:"created_at"`
	}

	query := `SELECT id, data, created_at FROM posts WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}

	return decodeContentRow(row.ID, row.Data, row.CreatedAt)
}

// RecentKey is the (created_at, id) position a recency page resumes after.
type RecentKey struct {
	CreatedAt time.Time
	ID        string
}

// ListRecent returns up to limit records ordered by creation time
// descending, id descending as the tie-break. When after is non-nil the
// page starts strictly after that key.
func (r *PostRepository) ListRecent(ctx context.Context, limit int, after *RecentKey) ([]domain.ContentRecord, error) {
	query := `SELECT id, data, created_at FROM posts`
	args := []any{}
	if after != nil {
		query += ` WHERE (created_at, id) < ($1, $2)`
		args = append(args, after.CreatedAt, after.ID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recent posts: %w", err)
	}
	defer rows.Close()

	var records []domain.ContentRecord
	for rows.Next() {
		var id string
		var data []byte
		var createdAt time.Time
		if err := rows.Scan(&id, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("scan post row: %w", err)
		}
		rec, err := decodeContentRow(id, data, createdAt)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post rows: %w", err)
	}

	return records, nil
}

// SetSyncState merges the sync bookkeeping fields into the document. Only
// these two fields are ever written by the pipeline.
func (r *PostRepository) SetSyncState(ctx context.Context, id, hash string, at time.Time) error {
	query := `
		UPDATE posts
		SET data = data || jsonb_build_object($2::text, $3::text, $4::text, to_char($5::timestamptz, 'YYYY-MM-DD"T"HH24:MI:SS.US"Z"'))
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, id, domain.SyncHashField, hash, domain.SyncedAtField, at.UTC())
	if err != nil {
		return fmt.Errorf("set sync state for %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func decodeContentRow(id string, data []byte, createdAt time.Time) (*domain.ContentRecord, error) {
	raw := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode post document %s: %w", id, err)
		}
	}

	rec := &domain.ContentRecord{
		ID:        id,
		Raw:       raw,
		CreatedAt: createdAt,
	}
	if hash, ok := raw[domain.SyncHashField].(string); ok {
		rec.SyncHash = hash
	}
	if stamp, ok := raw[domain.SyncedAtField].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, stamp); err == nil {
			rec.SyncedAt = &t
		}
	}
	return rec, nil
}
