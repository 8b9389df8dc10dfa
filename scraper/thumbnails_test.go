package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/aluiziolira/go-scrape-gallery/models"
)

func TestThumbnailPreloadCachesAndSkips(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.pages["https://cdn.test/1.th.jpg"] = "one"
	fetcher.pages["https://cdn.test/2.th.jpg"] = "two"

	cache, err := NewThumbnailCache(fetcher, 8, NewMetrics(), quietLogger())
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	records := []models.ImageRecord{
		{ThumbURL: "https://cdn.test/1.th.jpg"},
		{ThumbURL: ""},
		{ThumbURL: "https://cdn.test/missing.th.jpg"},
		{ThumbURL: "https://cdn.test/2.th.jpg"},
	}
	var calls int
	if err := cache.Preload(context.Background(), records, func(completed, total int) {
		calls++
		if total != 4 || completed != calls {
			t.Fatalf("progress %d/%d on call %d", completed, total, calls)
		}
	}); err != nil {
		t.Fatalf("preload: %v", err)
	}
	if calls != 4 {
		t.Fatalf("progress calls = %d, want 4", calls)
	}
	if cache.Len() != 2 {
		t.Fatalf("cached = %d, want 2", cache.Len())
	}

	data, err := cache.Fetch(context.Background(), "https://cdn.test/1.th.jpg")
	if err != nil || string(data) != "one" {
		t.Fatalf("fetch = %q, %v", data, err)
	}
	if fetcher.count("https://cdn.test/1.th.jpg") != 1 {
		t.Fatalf("cached thumbnail fetched again")
	}
}

func TestThumbnailPreloadCancelled(t *testing.T) {
	fetcher := newStubFetcher()
	cache, err := NewThumbnailCache(fetcher, 4, nil, quietLogger())
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = cache.Preload(ctx, []models.ImageRecord{{ThumbURL: "https://cdn.test/1.th.jpg"}}, nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if len(fetcher.calls) != 0 {
		t.Fatalf("fetch issued after cancellation")
	}
}

func TestNewThumbnailCacheRejectsZeroSize(t *testing.T) {
	if _, err := NewThumbnailCache(newStubFetcher(), 0, nil, nil); err == nil {
		t.Fatalf("expected error for zero size")
	}
}
