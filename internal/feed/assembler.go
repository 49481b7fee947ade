package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/locustsocial/feedsync/internal/domain"
	"github.com/locustsocial/feedsync/internal/logger"
	"github.com/locustsocial/feedsync/internal/metrics"
	"github.com/locustsocial/feedsync/internal/store"
)

// PageLimit is the fixed feed page size.
const PageLimit = 15

// Ranker returns an ordered id page for a user from the ranking backend.
type Ranker interface {
	Rank(ctx context.Context, uid string, limit int, cursor string) (domain.RankResponse, error)
}

// PostSource reads content records for hydration.
type PostSource interface {
	Get(ctx context.Context, id string) (*domain.ContentRecord, error)
	ListRecent(ctx context.Context, limit int, after *store.RecentKey) ([]domain.ContentRecord, error)
}

// AuthorStore resolves user sub-records.
type AuthorStore interface {
	Get(ctx context.Context, id string) (*domain.Author, error)
}

// AuthorCache is the short-TTL author lookaside. Get returns nil on a miss.
type AuthorCache interface {
	Get(ctx context.Context, uid string) *domain.Author
	Set(ctx context.Context, author *domain.Author)
}

// Assembler builds feed pages: ranked pages by hydrating the backend's id
// ordering, and recency pages straight from the store.
type Assembler struct {
	ranker  Ranker
	posts   PostSource
	users   AuthorStore
	authors AuthorCache
	metrics *metrics.Collector
	logger  logger.Logger

	now func() time.Time
}

// NewAssembler creates an Assembler.
func NewAssembler(
	ranker Ranker,
	posts PostSource,
	users AuthorStore,
	authors AuthorCache,
	m *metrics.Collector,
	log logger.Logger,
) *Assembler {
	return &Assembler{
		ranker:  ranker,
		posts:   posts,
		users:   users,
		authors: authors,
		metrics: m,
		logger:  log,
		now:     time.Now,
	}
}

// Ranked returns one page of the personalized feed. When the ranking
// backend is unreachable the page comes back empty rather than failing the
// request; the client falls back to the recency feed on its own.
func (a *Assembler) Ranked(ctx context.Context, uid, cursor string) (domain.FeedPage, error) {
	start := a.now()
	defer func() { a.metrics.RecordFeedLatency(a.now().Sub(start)) }()

	resp, err := a.ranker.Rank(ctx, uid, PageLimit, cursor)
	if err != nil {
		a.logger.Error("rank request failed, serving empty page",
			logger.String("uid", uid),
			logger.Error(err))
		return domain.FeedPage{Items: []domain.Post{}}, nil
	}

	items := a.hydrate(ctx, resp.PostIDs)

	page := domain.FeedPage{Items: items}
	if resp.NextCursor != "" {
		next := resp.NextCursor
		page.NextCursor = &next
	}
	return page, nil
}

// hydrate fetches and decodes every ranked id concurrently, then walks the
// id list to rebuild the page in rank order. Ids that fail to hydrate are
// dropped, never reordered around.
func (a *Assembler) hydrate(ctx context.Context, ids []string) []domain.Post {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	hydrated := make(map[string]domain.Post, len(ids))

	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			post, ok := a.hydrateOne(ctx, id)
			if !ok {
				return
			}
			mu.Lock()
			hydrated[id] = post
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	items := make([]domain.Post, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if post, ok := hydrated[id]; ok {
			items = append(items, post)
		}
	}

	if missing := len(seen) - len(items); missing > 0 {
		a.metrics.RecordHydrationMissing(missing)
		a.logger.Warn("dropped ranked ids during hydration",
			logger.Int("missing", missing),
			logger.Int("ranked", len(ids)))
	}
	return items
}

func (a *Assembler) hydrateOne(ctx context.Context, id string) (domain.Post, bool) {
	rec, err := a.posts.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.logger.Warn("post fetch failed during hydration",
				logger.String("post_id", id),
				logger.Error(err))
		}
		return domain.Post{}, false
	}
	return a.assemble(ctx, rec)
}

// assemble decodes a record and attaches its resolved author.
func (a *Assembler) assemble(ctx context.Context, rec *domain.ContentRecord) (domain.Post, bool) {
	post, authorID, err := decodePost(rec)
	if err != nil {
		a.logger.Warn("skipping undecodable post",
			logger.String("post_id", rec.ID),
			logger.Error(err))
		return domain.Post{}, false
	}

	author := a.resolveAuthor(ctx, authorID)
	if author == nil {
		a.logger.Warn("skipping post with unresolvable author",
			logger.String("post_id", rec.ID),
			logger.String("author_id", authorID))
		return domain.Post{}, false
	}

	post.Author = *author
	return post, true
}

func (a *Assembler) resolveAuthor(ctx context.Context, uid string) *domain.Author {
	if author := a.authors.Get(ctx, uid); author != nil {
		return author
	}

	author, err := a.users.Get(ctx, uid)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.logger.Warn("author lookup failed",
				logger.String("author_id", uid),
				logger.Error(err))
		}
		return nil
	}

	a.authors.Set(ctx, author)
	return author
}
