package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-scrape-gallery/config"
)

const galleryHost = "http://gallery.test"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func newMockFetcher(transport *httpmock.MockTransport) *CollyFetcher {
	f := NewFetcher(config.DefaultConfig(), NewMetrics())
	f.WithTransport(transport)
	return f
}

func buildListingPage(items []string, next string) string {
	var builder strings.Builder
	builder.WriteString("<html><body><div id=\"content-listing-tabs\">")
	for _, item := range items {
		fmt.Fprintf(&builder, "<div class=\"list-item\"><a class=\"image-container\" href=\"%s\"><img src=\"/th/%s.jpg\"></a></div>", item, item)
	}
	builder.WriteString("</div>")
	if next != "" {
		builder.WriteString("<ul class=\"content-listing-pagination visible\">")
		fmt.Fprintf(&builder, "<li class=\"pagination-next\"><a href=\"%s\">Next</a></li>", next)
		builder.WriteString("</ul>")
	}
	builder.WriteString("</body></html>")
	return builder.String()
}

func buildItemPage(id, title string) string {
	return fmt.Sprintf(`<html><head><meta property="og:title" content="%[2]s"></head><body>
<div class="content-width">
  <div class="header">
    <div class="header-content-left"><h1 class="viewer-title">%[2]s</h1></div>
    <div class="header-content-right">
      <a class="btn btn-download default" href="https://cdn.gallery.test/%[1]s.jpg" title="1920x1080 - JPG 1.5 MB">Download</a>
    </div>
  </div>
  <div class="header">
    <div class="header-content-left">by <a class="user-link" href="/ana">ana</a></div>
    <div class="header-content-right">
      <span>120</span>
      <span>7</span>
    </div>
  </div>
  <div class="panel-share"><div class="panel-share-item">
    <div class="panel-share-input-label copy-hover-display"><h4>Direct link</h4><input value="https://cdn.gallery.test/%[1]s.jpg"></div>
    <div class="panel-share-input-label copy-hover-display"><h4>Medium link</h4><input value="https://cdn.gallery.test/%[1]s.md.jpg"></div>
    <div class="panel-share-input-label copy-hover-display"><h4>Thumbnail link</h4><input value="https://cdn.gallery.test/%[1]s.th.jpg"></div>
  </div></div>
  <p class="description-meta">Uploaded <span title="2023-05-01 10:00:00">2 years ago</span></p>
</div>
</body></html>`, id, title)
}

// stubFetcher serves canned bodies keyed by URL and counts requests.
type stubFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	errs   map[string]error
	calls  map[string]int
	onCall func(url string)
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages: make(map[string]string),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (s *stubFetcher) GetText(ctx context.Context, url string) (string, error) {
	body, err := s.GetBytes(ctx, url)
	return string(body), err
}

func (s *stubFetcher) GetBytes(_ context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	s.calls[url]++
	body, ok := s.pages[url]
	err := s.errs[url]
	hook := s.onCall
	s.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newNetworkError(url, 404, nil)
	}
	return []byte(body), nil
}

func (s *stubFetcher) count(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}
