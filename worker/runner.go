// Package worker runs scrape, download, export and thumbnail operations on
// background goroutines and reports their outcome through callbacks.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/aluiziolira/go-scrape-gallery/config"
	"github.com/aluiziolira/go-scrape-gallery/models"
	"github.com/aluiziolira/go-scrape-gallery/pipeline"
	"github.com/aluiziolira/go-scrape-gallery/scraper"
)

// Kind identifies a class of operation. At most one operation of each kind
// runs at a time.
type Kind string

const (
	KindScrape     Kind = "scrape"
	KindDownload   Kind = "download"
	KindExport     Kind = "export"
	KindThumbnails Kind = "thumbnails"
)

var (
	// ErrBusy is returned when an operation of the same kind is still running.
	ErrBusy = errors.New("worker: operation already running")
	// ErrClosed is returned after Shutdown.
	ErrClosed = errors.New("worker: runner closed")
)

// ScrapeCallbacks receive the events of one scrape. Exactly one of
// OnComplete, OnError and OnCancelled fires. All run on the worker goroutine.
type ScrapeCallbacks struct {
	OnProgress  func(scraper.Progress)
	OnComplete  func(*models.ScrapeResult)
	OnError     func(error)
	OnCancelled func()
}

// DownloadCallbacks receive the events of one asset download.
type DownloadCallbacks struct {
	OnProgress  func(completed, total int)
	OnComplete  func(*pipeline.DownloadReport)
	OnError     func(error)
	OnCancelled func()
}

// ExportCallbacks receive the outcome of one export.
type ExportCallbacks struct {
	OnComplete func(path string)
	OnError    func(error)
}

// ThumbnailCallbacks receive the events of one thumbnail preload.
type ThumbnailCallbacks struct {
	OnProgress  func(completed, total int)
	OnComplete  func()
	OnError     func(error)
	OnCancelled func()
}

// Runner owns the background goroutines. The zero value is not usable.
type Runner struct {
	cfg        *config.Config
	fetcher    scraper.Fetcher
	metrics    *scraper.Metrics
	logger     *slog.Logger
	thumbnails *scraper.ThumbnailCache

	mu     sync.Mutex // guards active/closed
	active map[Kind]context.CancelFunc
	closed bool

	wg sync.WaitGroup
}

// New builds a runner that performs all network access through fetcher.
func New(cfg *config.Config, fetcher scraper.Fetcher, metrics *scraper.Metrics, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	thumbnails, err := scraper.NewThumbnailCache(fetcher, cfg.ThumbnailCacheSize, metrics, logger)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:        cfg,
		fetcher:    fetcher,
		metrics:    metrics,
		logger:     logger,
		thumbnails: thumbnails,
		active:     make(map[Kind]context.CancelFunc),
	}, nil
}

// Thumbnails returns the cache filled by PreloadThumbnails.
func (r *Runner) Thumbnails() *scraper.ThumbnailCache {
	return r.thumbnails
}

// Active reports whether an operation of kind is running.
func (r *Runner) Active(kind Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[kind]
	return ok
}

// Cancel stops the running operation of kind, if any.
func (r *Runner) Cancel(kind Kind) bool {
	r.mu.Lock()
	cancel, ok := r.active[kind]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Wait blocks until every started operation has delivered its outcome.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown cancels every running operation, waits for them and refuses new ones.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	r.closed = true
	for _, cancel := range r.active {
		cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// Scrape crawls seed in the background.
func (r *Runner) Scrape(ctx context.Context, seed string, cb ScrapeCallbacks) error {
	if err := scraper.ValidateSeedURL(seed); err != nil {
		return err
	}

	var result *models.ScrapeResult
	return r.start(ctx, KindScrape, "", func(ctx context.Context, logger *slog.Logger) error {
		session := scraper.NewSession(r.cfg, r.fetcher, r.metrics, logger)
		var err error
		result, err = session.Start(ctx, seed, cb.OnProgress)
		return err
	}, outcome{
		complete:  func() { call(cb.OnComplete, result) },
		fail:      cb.OnError,
		cancelled: cb.OnCancelled,
	})
}

// Download saves the assets of job.Records into job.DestDir in the background.
func (r *Runner) Download(ctx context.Context, job models.DownloadJob, cb DownloadCallbacks) error {
	if job.DestDir == "" {
		return fmt.Errorf("%w: empty destination", pipeline.ErrInvalidDirectory)
	}
	if _, err := models.ParseQuality(string(job.Quality)); err != nil {
		return err
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	var report *pipeline.DownloadReport
	return r.start(ctx, KindDownload, job.ID, func(ctx context.Context, logger *slog.Logger) error {
		downloader := pipeline.NewDownloader(r.fetcher, r.metrics, logger)
		var err error
		report, err = downloader.DownloadAssets(ctx, job.Records, job.DestDir, job.Quality, cb.OnProgress)
		return err
	}, outcome{
		complete:  func() { call(cb.OnComplete, report) },
		fail:      cb.OnError,
		cancelled: cb.OnCancelled,
	})
}

// Export writes job.Records as JSON or CSV in the background. Invalid
// arguments are rejected before anything is started.
func (r *Runner) Export(ctx context.Context, job models.DownloadJob, cb ExportCallbacks) error {
	if err := pipeline.CheckExport(job.DestDir, job.Format, job.Filename); err != nil {
		return err
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	var path string
	return r.start(ctx, KindExport, job.ID, func(ctx context.Context, _ *slog.Logger) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", pipeline.ErrCancelled, err)
		}
		return pipeline.Export(job.Records, job.DestDir, job.Format, job.Filename, func(p string) { path = p })
	}, outcome{
		complete: func() { call(cb.OnComplete, path) },
		fail:     cb.OnError,
	})
}

// PreloadThumbnails fetches the thumbnails of records into the cache.
func (r *Runner) PreloadThumbnails(ctx context.Context, records []models.ImageRecord, cb ThumbnailCallbacks) error {
	return r.start(ctx, KindThumbnails, "", func(ctx context.Context, _ *slog.Logger) error {
		return r.thumbnails.Preload(ctx, records, cb.OnProgress)
	}, outcome{
		complete:  cb.OnComplete,
		fail:      cb.OnError,
		cancelled: cb.OnCancelled,
	})
}

type outcome struct {
	complete  func()
	fail      func(error)
	cancelled func()
}

func (r *Runner) start(parent context.Context, kind Kind, id string, work func(context.Context, *slog.Logger) error, done outcome) error {
	if parent == nil {
		parent = context.Background()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if _, busy := r.active[kind]; busy {
		r.mu.Unlock()
		return ErrBusy
	}
	ctx, cancel := context.WithCancel(parent)
	r.active[kind] = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	logger := r.logger.With(slog.String("op", string(kind)))
	if id != "" {
		logger = logger.With(slog.String("job", id))
	}

	go func() {
		defer r.wg.Done()

		err := r.safeRun(ctx, logger, work)

		r.mu.Lock()
		delete(r.active, kind)
		r.mu.Unlock()
		cancel()

		switch {
		case err == nil:
			if done.complete != nil {
				done.complete()
			}
		case isCancelled(err) && done.cancelled != nil:
			done.cancelled()
		default:
			logger.Debug("operation failed", slog.Any("error", err))
			call(done.fail, err)
		}
	}()
	return nil
}

func (r *Runner) safeRun(ctx context.Context, logger *slog.Logger, work func(context.Context, *slog.Logger) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("operation panicked", slog.Any("panic", p))
			err = fmt.Errorf("worker: panic: %v", p)
		}
	}()
	return work(ctx, logger)
}

func isCancelled(err error) bool {
	return errors.Is(err, scraper.ErrCancelled) ||
		errors.Is(err, pipeline.ErrCancelled) ||
		errors.Is(err, context.Canceled)
}

func call[T any](fn func(T), v T) {
	if fn != nil {
		fn(v)
	}
}
