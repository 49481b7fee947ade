package feed

import (
	"errors"

	"github.com/google/uuid"

	"github.com/locustsocial/feedsync/internal/domain"
)

// errNoAuthor marks documents with no authorId; those are skipped during
// hydration, matching how clients always treated them.
var errNoAuthor = errors.New("post has no author")

// Legacy documents often omit media dimensions; clients assumed a square.
const defaultMediaEdge = 600

// decodePost turns a stored content document into a feed Post without its
// author, returning the author id for the caller to resolve. Documents were
// written by many app versions, so every field tolerates absence.
func decodePost(rec *domain.ContentRecord) (domain.Post, string, error) {
	authorID := rec.AuthorID()
	if authorID == "" {
		return domain.Post{}, "", errNoAuthor
	}

	post := domain.Post{
		ID:           rec.ID,
		Title:        rec.Title(),
		Text:         rec.Body(),
		Media:        decodeMedia(rec.Raw),
		Tags:         decodeTags(rec.Raw),
		CreatedAt:    rec.CreatedAt,
		LikeCount:    rawInt(rec.Raw, "likeCount"),
		SaveCount:    rawInt(rec.Raw, "saveCount"),
		CommentCount: rawInt(rec.Raw, "commentCount"),
	}
	return post, authorID, nil
}

func decodeMedia(raw map[string]any) []domain.Media {
	items, _ := raw["media"].([]any)
	media := make([]domain.Media, 0, len(items))

	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		url, _ := m["url"].(string)
		if url == "" {
			continue
		}

		id, _ := m["id"].(string)
		if id == "" {
			id = uuid.NewString()
		}
		thumb, _ := m["thumbURL"].(string)
		if thumb == "" {
			thumb = url
		}
		width := intOrDefault(m["width"], defaultMediaEdge)
		height := intOrDefault(m["height"], defaultMediaEdge)

		media = append(media, domain.Media{
			ID:       id,
			Type:     "image",
			URL:      url,
			ThumbURL: thumb,
			Width:    width,
			Height:   height,
		})
	}
	return media
}

func decodeTags(raw map[string]any) []string {
	items, _ := raw["tags"].([]any)
	tags := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}

func rawInt(raw map[string]any, key string) int {
	return intOrDefault(raw[key], 0)
}

// intOrDefault accepts both JSON numbers (float64 after unmarshal) and
// native ints.
func intOrDefault(v any, def int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return def
	}
}
