package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-scrape-gallery/config"
)

func newTestSession(fetcher Fetcher) *Session {
	return NewSession(config.DefaultConfig(), fetcher, NewMetrics(), quietLogger())
}

func TestSessionScrapesItemsInPageOrder(t *testing.T) {
	seed := galleryHost + "/album/cars"
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", seed, htmlResponder(buildListingPage([]string{"/i/c", "/i/a", "/i/b"}, "")))
	for _, id := range []string{"a", "b", "c"} {
		transport.RegisterResponder("GET", galleryHost+"/i/"+id, htmlResponder(buildItemPage(id, "Car "+id)))
	}

	var events []Progress
	result, err := newTestSession(newMockFetcher(transport)).Start(context.Background(), seed, func(p Progress) {
		events = append(events, p)
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if result.TotalImages != 3 || len(result.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(result.Records))
	}
	for i, want := range []string{"Car c", "Car a", "Car b"} {
		if result.Records[i].Title != want {
			t.Fatalf("record %d title = %q, want %q", i, result.Records[i].Title, want)
		}
	}
	if result.TotalSize != "4.5 MB" {
		t.Fatalf("total size = %q, want 4.5 MB", result.TotalSize)
	}
	if result.PageCount != 1 {
		t.Fatalf("pages = %d, want 1", result.PageCount)
	}
	if len(events) != 3 || events[2].Extracted != 3 {
		t.Fatalf("progress events = %+v", events)
	}
}

func TestSessionCancelledMidScrapeReturnsNoResult(t *testing.T) {
	seed := galleryHost + "/album/cars"
	fetcher := newStubFetcher()
	fetcher.pages[seed] = buildListingPage([]string{"/i/1", "/i/2", "/i/3"}, "")
	for _, id := range []string{"1", "2", "3"} {
		fetcher.pages[galleryHost+"/i/"+id] = buildItemPage(id, "Item "+id)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	extracted := 0
	result, err := newTestSession(fetcher).Start(ctx, seed, func(p Progress) {
		extracted = p.Extracted
		if p.Extracted == 1 {
			cancel()
		}
	})

	if result != nil {
		t.Fatalf("cancelled scrape returned a result with %d records", len(result.Records))
	}
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if extracted != 1 {
		t.Fatalf("extracted = %d, want 1", extracted)
	}
	if fetcher.count(galleryHost+"/i/2") != 0 {
		t.Fatalf("item 2 fetched after cancellation")
	}
}

func TestSessionCancelledWhileFetchingItem(t *testing.T) {
	seed := galleryHost + "/album/cars"
	item := galleryHost + "/i/1"
	fetcher := newStubFetcher()
	fetcher.pages[seed] = buildListingPage([]string{"/i/1", "/i/2"}, "")
	fetcher.errs[item] = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fetcher.onCall = func(url string) {
		if url == item {
			cancel()
		}
	}

	result, err := newTestSession(fetcher).Start(ctx, seed, nil)
	if result != nil {
		t.Fatalf("cancelled scrape returned a result")
	}
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected ErrCancelled wrapping context.Canceled, got %v", err)
	}
}

func TestSessionAbortsOnExtractionError(t *testing.T) {
	seed := galleryHost + "/album/cars"
	fetcher := newStubFetcher()
	fetcher.pages[seed] = buildListingPage([]string{"/i/1", "/i/2", "/i/3"}, "")
	fetcher.pages[galleryHost+"/i/1"] = buildItemPage("1", "Item 1")
	fetcher.pages[galleryHost+"/i/2"] = "<html><body>removed</body></html>"
	fetcher.pages[galleryHost+"/i/3"] = buildItemPage("3", "Item 3")

	result, err := newTestSession(fetcher).Start(context.Background(), seed, nil)
	if result != nil {
		t.Fatalf("expected no result on extraction failure")
	}
	if !IsExtractionError(err) {
		t.Fatalf("expected extraction error, got %v", err)
	}
	if fetcher.count(galleryHost+"/i/3") != 0 {
		t.Fatalf("scrape continued past the malformed item")
	}
}

func TestSessionAbortsOnNetworkError(t *testing.T) {
	seed := galleryHost + "/album/cars"
	fetcher := newStubFetcher()
	fetcher.pages[seed] = buildListingPage([]string{"/i/1", "/i/gone"}, "")
	fetcher.pages[galleryHost+"/i/1"] = buildItemPage("1", "Item 1")

	_, err := newTestSession(fetcher).Start(context.Background(), seed, nil)
	var netErr *NetworkError
	if !errors.As(err, &netErr) || netErr.Kind() != "not_found" {
		t.Fatalf("expected not_found network error, got %v", err)
	}
}

func TestSessionEmptyListing(t *testing.T) {
	seed := galleryHost + "/album/empty"
	fetcher := newStubFetcher()
	fetcher.pages[seed] = buildListingPage(nil, "")

	result, err := newTestSession(fetcher).Start(context.Background(), seed, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if result.TotalImages != 0 || result.TotalSize != "0 B" {
		t.Fatalf("result = %+v", result)
	}
}

func TestSessionRejectsInvalidSeed(t *testing.T) {
	fetcher := newStubFetcher()
	for _, seed := range []string{"", "gallery.test/album", "ftp://gallery.test/album", "http://"} {
		if _, err := newTestSession(fetcher).Start(context.Background(), seed, nil); !errors.Is(err, ErrInvalidSeedURL) {
			t.Fatalf("seed %q: expected ErrInvalidSeedURL, got %v", seed, err)
		}
	}
	if len(fetcher.calls) != 0 {
		t.Fatalf("invalid seeds must not trigger requests")
	}
}
