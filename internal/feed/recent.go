package feed

import (
	"context"
	"fmt"

	"github.com/locustsocial/feedsync/internal/domain"
	"github.com/locustsocial/feedsync/internal/store"
)

// Recent returns one recency-ordered page. It is the fallback feed: no
// ranking backend involved, ordering comes straight from the store's
// (created_at, id) index. A malformed cursor returns domain.ErrBadCursor.
func (a *Assembler) Recent(ctx context.Context, cursor string) (domain.FeedPage, error) {
	var after *store.RecentKey
	if cursor != "" {
		ts, id, err := DecodeCursor(cursor)
		if err != nil {
			return domain.FeedPage{}, err
		}
		after = &store.RecentKey{CreatedAt: ts, ID: id}
	}

	records, err := a.posts.ListRecent(ctx, PageLimit, after)
	if err != nil {
		return domain.FeedPage{}, fmt.Errorf("list recent page: %w", err)
	}

	items := make([]domain.Post, 0, len(records))
	for i := range records {
		if post, ok := a.assemble(ctx, &records[i]); ok {
			items = append(items, post)
		}
	}

	page := domain.FeedPage{Items: items}
	// A short read means the feed is exhausted; only a full page earns a
	// resume cursor.
	if len(records) == PageLimit {
		last := records[len(records)-1]
		next := EncodeCursor(last.CreatedAt, last.ID)
		page.NextCursor = &next
	}
	return page, nil
}
