package attachment

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/store"
)

const defaultFetchConcurrency = 4

// MetadataSource fetches attachment metadata by token.
type MetadataSource interface {
	AttachmentMetadata(ctx context.Context, token string) (domain.AttachmentMetadata, error)
}

// Loader fills a metadata store and builds previews.
type Loader struct {
	src         MetadataSource
	resolver    *Resolver
	cache       *store.AttachmentMetadataStore
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// NewLoader builds a loader caching into cache.
func NewLoader(src MetadataSource, resolver *Resolver, cache *store.AttachmentMetadataStore, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		src:         src,
		resolver:    resolver,
		cache:       cache,
		concurrency: defaultFetchConcurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Load fetches metadata for every token not yet cached. Tokens are fetched
// concurrently and independently; the failures are returned keyed by token.
func (l *Loader) Load(ctx context.Context, tokens []string) map[string]error {
	missing := make([]string, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if t == "" || seen[t] || l.cache.Has(t) {
			continue
		}
		seen[t] = true
		missing = append(missing, t)
	}
	if len(missing) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		fetched = make(map[string]domain.AttachmentMetadata, len(missing))
		failed  map[string]error
	)
	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for _, token := range missing {
		g.Go(func() error {
			meta, err := l.src.AttachmentMetadata(ctx, token)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if failed == nil {
					failed = make(map[string]error)
				}
				failed[token] = err
				return nil
			}
			meta.Token = token
			fetched[token] = meta
			return nil
		})
	}
	_ = g.Wait()

	if len(fetched) > 0 {
		l.cache.Append(fetched)
	}
	for token, err := range failed {
		l.logger.Warn("attachment metadata unavailable", zap.String("token", token), zap.Error(err))
	}
	return failed
}

// Preview loads token's metadata if needed and resolves its link.
func (l *Loader) Preview(ctx context.Context, token string) (Preview, error) {
	if failed := l.Load(ctx, []string{token}); failed[token] != nil {
		return Preview{}, failed[token]
	}
	meta, _ := l.cache.Get(token)
	return NewPreview(token, meta, l.resolver.Resolve(ctx, token), l.now()), nil
}

// Previews builds previews for every token whose metadata is available, in order.
func (l *Loader) Previews(ctx context.Context, tokens []string) []Preview {
	l.Load(ctx, tokens)
	now := l.now()
	out := make([]Preview, 0, len(tokens))
	for _, token := range tokens {
		meta, ok := l.cache.Get(token)
		if !ok {
			continue
		}
		out = append(out, NewPreview(token, meta, l.resolver.Resolve(ctx, token), now))
	}
	return out
}
