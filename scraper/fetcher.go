package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aluiziolira/go-scrape-gallery/config"
	"github.com/gocolly/colly/v2"
)

// Fetcher issues single GET requests. Implementations must not retry.
type Fetcher interface {
	GetText(ctx context.Context, url string) (string, error)
	GetBytes(ctx context.Context, url string) ([]byte, error)
}

// CollyFetcher fetches through a colly collector configured with the
// gallery's fixed User-Agent. Each call runs on a fresh clone so callbacks
// never leak between requests.
type CollyFetcher struct {
	collector *colly.Collector
	metrics   *Metrics
}

// NewFetcher builds a fetcher from cfg. metrics may be nil.
func NewFetcher(cfg *config.Config, metrics *Metrics) *CollyFetcher {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(0),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	return &CollyFetcher{
		collector: collector,
		metrics:   metrics,
	}
}

// WithTransport replaces the HTTP transport, e.g. with an httpmock transport in tests.
func (f *CollyFetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// GetText fetches url and returns its body as text.
func (f *CollyFetcher) GetText(ctx context.Context, url string) (string, error) {
	body, err := f.GetBytes(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetBytes fetches url and returns its raw body.
func (f *CollyFetcher) GetBytes(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := f.collector.Clone()
	var (
		body   []byte
		status int
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	start := time.Now()
	err := c.Visit(url)
	f.metrics.ObserveDuration(time.Since(start))

	if err != nil {
		netErr := newNetworkError(url, status, err)
		f.metrics.IncRequest("error")
		f.metrics.IncError(netErr.Kind())
		slog.Debug("request failed",
			slog.String("url", url),
			slog.Int("status", status),
			slog.String("category", netErr.Kind()),
			slog.Any("error", err),
		)
		return nil, netErr
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		f.metrics.IncRequest("error")
		return nil, newNetworkError(url, status, fmt.Errorf("unexpected status %d", status))
	}

	f.metrics.IncRequest("ok")
	return body, nil
}
