package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locustsocial/feedsync/internal/store"
)

func TestInteractionRepository_Get(t *testing.T) {
	db, mock := newMockDB(t)
	repo := store.NewInteractionRepository(db)
	eventAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT actor_id, content_id, liked, saved, view_seconds, last_event_at, last_pushed_at").
		WithArgs("user-1", "post-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"actor_id", "content_id", "liked", "saved", "view_seconds", "last_event_at", "last_pushed_at",
		}).AddRow("user-1", "post-1", true, false, 42.5, eventAt, nil))

	rec, err := repo.Get(context.Background(), "user-1", "post-1")
	require.NoError(t, err)

	assert.True(t, rec.Liked)
	assert.False(t, rec.Saved)
	assert.InDelta(t, 42.5, rec.ViewSeconds, 0.001)
	assert.Nil(t, rec.LastPushedAt)
}

func TestInteractionRepository_StampPushed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := store.NewInteractionRepository(db)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE interactions").
		WithArgs("user-1", "post-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.StampPushed(context.Background(), "user-1", "post-1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInteractionRepository_StampPushedMissingRowIsNotAnError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := store.NewInteractionRepository(db)

	mock.ExpectExec("UPDATE interactions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.StampPushed(context.Background(), "user-1", "gone", time.Now()))
}
