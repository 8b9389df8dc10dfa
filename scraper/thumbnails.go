package scraper

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-gallery/models"
)

// ThumbnailCache keeps recently fetched preview images in memory so a
// result list can be rendered without refetching.
type ThumbnailCache struct {
	fetcher Fetcher
	cache   *lru.Cache[string, []byte]
	metrics *Metrics
	logger  *slog.Logger
}

// NewThumbnailCache builds a cache holding at most size thumbnails.
func NewThumbnailCache(fetcher Fetcher, size int, metrics *Metrics, logger *slog.Logger) (*ThumbnailCache, error) {
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create thumbnail cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ThumbnailCache{
		fetcher: fetcher,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Get returns a cached thumbnail.
func (t *ThumbnailCache) Get(url string) ([]byte, bool) {
	return t.cache.Get(url)
}

// Len returns the number of cached thumbnails.
func (t *ThumbnailCache) Len() int {
	return t.cache.Len()
}

// Fetch returns the thumbnail at url, fetching it on a cache miss.
func (t *ThumbnailCache) Fetch(ctx context.Context, url string) ([]byte, error) {
	if data, ok := t.cache.Get(url); ok {
		t.metrics.IncCacheHit()
		return data, nil
	}
	data, err := t.fetcher.GetBytes(ctx, url)
	if err != nil {
		return nil, err
	}
	t.cache.Add(url, data)
	return data, nil
}

// Preload fetches the thumbnail of every record in order. Records without a
// thumbnail and failed fetches are skipped; cancellation is checked before
// each record. sink, when set, is called after every record.
func (t *ThumbnailCache) Preload(ctx context.Context, records []models.ImageRecord, sink func(completed, total int)) error {
	total := len(records)
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		if record.ThumbURL != "" {
			if _, err := t.Fetch(ctx, record.ThumbURL); err != nil {
				t.logger.Warn("thumbnail fetch failed",
					slog.String("url", record.ThumbURL),
					slog.Any("error", err),
				)
			}
		}
		if sink != nil {
			sink(i+1, total)
		}
	}
	return nil
}
