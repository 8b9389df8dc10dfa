package scraper

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	listingSelector  = "#content-listing-tabs"
	itemLinkSelector = "a.image-container"
	nextPageSelector = "li.pagination-next a"
)

// ListingPage is what a single gallery listing page links to.
type ListingPage struct {
	Items []string
	Next  string
}

// Crawler walks listing pages by following their "next" link and yields the
// item page URLs it finds.
type Crawler struct {
	fetcher  Fetcher
	metrics  *Metrics
	logger   *slog.Logger
	maxPages int
}

// NewCrawler builds a crawler. maxPages <= 0 means no page limit.
func NewCrawler(fetcher Fetcher, metrics *Metrics, logger *slog.Logger, maxPages int) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		fetcher:  fetcher,
		metrics:  metrics,
		logger:   logger,
		maxPages: maxPages,
	}
}

// CrawlRun is one traversal started by Crawl.
type CrawlRun struct {
	crawler  *Crawler
	ctx      context.Context
	seed     string
	consumed bool
	pages    int
}

// Crawl prepares a traversal starting at seed. Nothing is fetched until the
// run's Items sequence is ranged over.
func (c *Crawler) Crawl(ctx context.Context, seed string) *CrawlRun {
	return &CrawlRun{crawler: c, ctx: ctx, seed: seed}
}

// Pages returns how many listing pages the run has fetched so far.
func (r *CrawlRun) Pages() int {
	return r.pages
}

// Items returns a lazy, single-use sequence of item URLs in discovery order.
// Every listing page is fetched at most once, so self-referential or cyclic
// pagination terminates. A non-nil error is always the last element.
func (r *CrawlRun) Items() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if r.consumed {
			return
		}
		r.consumed = true

		c := r.crawler
		ctx := r.ctx
		visited := make(map[string]struct{})
		yielded := make(map[string]struct{})
		next := normalizeURL(r.seed)

		for next != "" {
			if err := ctx.Err(); err != nil {
				c.logger.Debug("crawl cancelled", slog.String("next", next))
				yield("", fmt.Errorf("%w: %w", ErrCancelled, err))
				return
			}
			if _, seen := visited[next]; seen {
				c.logger.Debug("pagination revisits page, stopping", slog.String("url", next))
				break
			}
			if c.maxPages > 0 && len(visited) >= c.maxPages {
				c.logger.Info("page limit reached", slog.Int("max_pages", c.maxPages))
				break
			}
			visited[next] = struct{}{}

			c.logger.Debug("fetching page", slog.String("url", next), slog.Int("page", len(visited)))
			html, err := c.fetcher.GetText(ctx, next)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					err = fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
				}
				yield("", err)
				return
			}
			r.pages++
			c.metrics.IncPages()

			page, err := ParseListingPage(next, html)
			if err != nil {
				yield("", err)
				return
			}
			c.logger.Debug("extracted links",
				slog.String("url", next),
				slog.Int("items", len(page.Items)),
				slog.Bool("has_next", page.Next != ""),
			)

			for _, item := range page.Items {
				if _, dup := yielded[item]; dup {
					continue
				}
				yielded[item] = struct{}{}
				if !yield(item, nil) {
					return
				}
			}
			next = page.Next
		}

		c.logger.Debug("crawl done", slog.Int("pages", r.pages), slog.Int("items", len(yielded)))
	}
}

// ParseListingPage extracts the item links and the next page link from a
// listing page. Relative links resolve against pageURL.
func ParseListingPage(pageURL, html string) (ListingPage, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ListingPage{}, fmt.Errorf("parse page url %q: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ListingPage{}, fmt.Errorf("parse listing %s: %w", pageURL, err)
	}

	scope := doc.Find(listingSelector)
	if scope.Length() == 0 {
		scope = doc.Selection
	}

	var page ListingPage
	scope.Find(itemLinkSelector).Each(func(_ int, s *goquery.Selection) {
		if link := resolveLink(base, s.AttrOr("href", "")); link != "" {
			page.Items = append(page.Items, link)
		}
	})
	page.Next = resolveLink(base, doc.Find(nextPageSelector).First().AttrOr("href", ""))
	return page, nil
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""
	return abs.String()
}

func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	u.Fragment = ""
	return u.String()
}
