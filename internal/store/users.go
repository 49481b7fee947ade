package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/locustsocial/feedsync/internal/domain"
)

// UserRepository reads user documents for author hydration.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Get returns the author resolved from the user document with the given id,
// or domain.ErrNotFound.
func (r *UserRepository) Get(ctx context.Context, id string) (*domain.Author, error) {
	var data []byte
	query := `SELECT data FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &data, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}

	raw := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode user document %s: %w", id, err)
		}
	}

	return decodeAuthor(id, raw), nil
}

// decodeAuthor maps a raw user document to an Author. The handle falls back
// across the field names used by successive app versions, ending at the
// email local part and finally "user".
func decodeAuthor(id string, raw map[string]any) *domain.Author {
	str := func(key string) string {
		s, _ := raw[key].(string)
		return s
	}

	email := str("email")

	handle := str("idForUsers")
	if handle == "" {
		handle = str("handle")
	}
	if handle == "" && email != "" {
		handle, _, _ = strings.Cut(email, "@")
	}
	if handle == "" {
		handle = "user"
	}

	displayName := str("displayName")
	if displayName == "" {
		displayName = "Unknown"
	}

	return &domain.Author{
		ID:          id,
		Handle:      handle,
		DisplayName: displayName,
		Email:       email,
		AvatarURL:   str("avatarURL"),
		Bio:         str("bio"),
	}
}
