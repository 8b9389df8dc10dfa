package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/aluiziolira/go-scrape-gallery/config"
	"github.com/aluiziolira/go-scrape-gallery/models"
	"github.com/aluiziolira/go-scrape-gallery/parser"
)

// Progress is reported after every extracted record.
type Progress struct {
	Message   string
	ItemURL   string
	Extracted int
}

// ProgressFunc receives scrape progress on the scraping goroutine.
type ProgressFunc func(Progress)

// Session runs one crawl-and-extract pass over a gallery.
type Session struct {
	crawler   *Crawler
	extractor *Extractor
	metrics   *Metrics
	logger    *slog.Logger
}

// NewSession wires a crawler and an extractor around fetcher.
func NewSession(cfg *config.Config, fetcher Fetcher, metrics *Metrics, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		crawler:   NewCrawler(fetcher, metrics, logger, cfg.MaxPages),
		extractor: NewExtractor(fetcher, logger),
		metrics:   metrics,
		logger:    logger,
	}
}

// Start crawls from seed and extracts every item in discovery order.
//
// Cancellation is checked before each item; a cancelled scrape returns
// ErrCancelled and no result. Any network or extraction failure aborts the
// whole scrape, since totals computed over a partial set would be wrong.
func (s *Session) Start(ctx context.Context, seed string, sink ProgressFunc) (*models.ScrapeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ValidateSeedURL(seed); err != nil {
		return nil, err
	}

	logger := s.logger.With(slog.String("session", uuid.NewString()))
	logger.Info("scrape started", slog.String("seed", seed))

	start := time.Now()
	var records []models.ImageRecord

	run := s.crawler.Crawl(ctx, seed)
	for itemURL, err := range run.Items() {
		if err != nil {
			return nil, s.fail(logger, err)
		}
		if err := ctx.Err(); err != nil {
			logger.Info("scrape cancelled", slog.Int("discarded", len(records)))
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}

		record, err := s.extractor.Extract(ctx, itemURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
			}
			return nil, s.fail(logger, err)
		}
		records = append(records, *record)
		s.metrics.IncItems()

		if sink != nil {
			sink(Progress{
				Message:   fmt.Sprintf("Extracted: %s", itemURL),
				ItemURL:   itemURL,
				Extracted: len(records),
			})
		}
	}

	totalBytes, totalSize, err := parser.Summarize(records)
	if err != nil {
		return nil, s.fail(logger, err)
	}

	result := &models.ScrapeResult{
		Records:     records,
		SeedURL:     seed,
		StartTime:   start,
		EndTime:     time.Now(),
		PageCount:   run.Pages(),
		TotalImages: len(records),
		TotalBytes:  totalBytes,
		TotalSize:   totalSize,
	}

	logger.Info("scrape complete",
		slog.Int("images", result.TotalImages),
		slog.String("total_size", result.TotalSize),
		slog.Duration("duration", result.EndTime.Sub(start)),
	)
	return result, nil
}

func (s *Session) fail(logger *slog.Logger, err error) error {
	if errors.Is(err, ErrCancelled) {
		logger.Info("scrape cancelled")
		return err
	}
	kind := errorTypeLabel(err)
	s.metrics.IncError(kind)
	logger.Error("scrape aborted", slog.String("category", kind), slog.Any("error", err))
	return err
}

// ValidateSeedURL checks that seed is an absolute http(s) URL.
func ValidateSeedURL(seed string) error {
	u, err := url.Parse(seed)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSeedURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSeedURL, seed)
	}
	return nil
}
