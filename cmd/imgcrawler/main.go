package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"

	"github.com/aluiziolira/go-scrape-gallery/config"
	"github.com/aluiziolira/go-scrape-gallery/models"
	"github.com/aluiziolira/go-scrape-gallery/pipeline"
	"github.com/aluiziolira/go-scrape-gallery/scraper"
	"github.com/aluiziolira/go-scrape-gallery/worker"
)

const exitCancelled = 130

func main() {
	os.Exit(run())
}

func run() int {
	defaults := config.DefaultConfig()

	configFile := flag.String("config", "", "YAML configuration file")
	envFile := flag.String("env", ".env", "dotenv file with IMGCRAWLER_* variables")
	seedURL := flag.String("url", "", "Gallery album or listing URL to crawl")
	maxPages := flag.Int("pages", defaults.MaxPages, "Maximum listing pages to crawl (0 = no limit)")
	timeout := flag.Duration("timeout", defaults.Timeout, "Per-request timeout")
	userAgent := flag.String("user-agent", defaults.UserAgent, "User-Agent header sent with every request")
	respectRobots := flag.Bool("respect-robots", defaults.RespectRobotsTxt, "Respect robots.txt directives")
	outputDir := flag.String("out", defaults.OutputDir, "Destination directory")
	format := flag.String("format", defaults.Format, "Output: image, json or csv")
	quality := flag.String("quality", defaults.Quality, "Image quality: high or low")
	exportName := flag.String("name", defaults.ExportName, "Export file name for json and csv")
	presaved := flag.String("presaved", "", "Load records from a previous JSON export instead of crawling")
	preload := flag.Bool("thumbs", defaults.PreloadThumbnails, "Preload thumbnails before downloading")
	metricsAddr := flag.String("metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	if *configFile != "" {
		if err := cfg.LoadFile(*configFile); err != nil {
			slog.Error("loading config file", slog.Any("error", err))
			return 1
		}
	}
	if err := config.LoadDotEnv(*envFile); err != nil {
		slog.Error("loading env file", slog.Any("error", err))
		return 1
	}
	if err := cfg.ApplyEnv(); err != nil {
		slog.Error("invalid environment", slog.Any("error", err))
		return 1
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.SeedURL = *seedURL
		case "pages":
			cfg.MaxPages = *maxPages
		case "timeout":
			cfg.Timeout = *timeout
		case "user-agent":
			cfg.UserAgent = *userAgent
		case "respect-robots":
			cfg.RespectRobotsTxt = *respectRobots
		case "out":
			cfg.OutputDir = *outputDir
		case "format":
			cfg.Format = strings.ToLower(*format)
		case "quality":
			cfg.Quality = strings.ToLower(*quality)
		case "name":
			cfg.ExportName = *exportName
		case "presaved":
			cfg.PresavedFile = *presaved
		case "thumbs":
			cfg.PreloadThumbnails = *preload
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "v":
			cfg.Verbose = *verbose
		}
	})
	if cfg.SeedURL == "" && flag.NArg() > 0 {
		cfg.SeedURL = flag.Arg(0)
	}
	if cfg.Verbose {
		level.Set(slog.LevelDebug)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return 1
	}
	if cfg.SeedURL == "" && cfg.PresavedFile == "" {
		fmt.Fprintln(os.Stderr, "usage: imgcrawler [flags] <gallery-url>  (or -presaved file.json)")
		flag.PrintDefaults()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := scraper.NewMetrics()
	fetcher := scraper.NewFetcher(cfg, metrics)
	runner, err := worker.New(cfg, fetcher, metrics, logger)
	if err != nil {
		slog.Error("initialising runner", slog.Any("error", err))
		return 1
	}
	defer runner.Shutdown()

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	start := time.Now()
	result, err := loadRecords(ctx, cfg, runner)
	if err != nil {
		return exitCode(err)
	}

	if cfg.PreloadThumbnails {
		if err := preloadThumbnails(ctx, runner, result.Records); err != nil {
			return exitCode(err)
		}
	}

	job := models.DownloadJob{
		Records:  result.Records,
		DestDir:  cfg.OutputDir,
		Format:   models.Format(cfg.Format),
		Quality:  models.Quality(cfg.Quality),
		Filename: cfg.ExportName,
	}
	output, err := save(ctx, runner, job)
	if err != nil {
		return exitCode(err)
	}

	printSummary(result, time.Since(start), output)
	return 0
}

// loadRecords produces the record list either from a presaved export or by
// scraping the seed URL.
func loadRecords(ctx context.Context, cfg *config.Config, runner *worker.Runner) (*models.ScrapeResult, error) {
	if cfg.PresavedFile != "" {
		result, err := pipeline.LoadPresaved(cfg.PresavedFile)
		if err != nil {
			slog.Error("presaved file rejected", slog.String("path", cfg.PresavedFile), slog.Any("error", err))
			return nil, err
		}
		slog.Info("loaded presaved records",
			slog.String("path", cfg.PresavedFile),
			slog.Int("images", result.TotalImages),
			slog.String("total_size", result.TotalSize),
		)
		return result, nil
	}

	type outcome struct {
		result *models.ScrapeResult
		err    error
	}
	done := make(chan outcome, 1)
	err := runner.Scrape(ctx, cfg.SeedURL, worker.ScrapeCallbacks{
		OnProgress: func(p scraper.Progress) {
			slog.Info(p.Message, slog.Int("extracted", p.Extracted))
		},
		OnComplete:  func(r *models.ScrapeResult) { done <- outcome{result: r} },
		OnError:     func(err error) { done <- outcome{err: err} },
		OnCancelled: func() { done <- outcome{err: scraper.ErrCancelled} },
	})
	if err != nil {
		slog.Error("scrape not started", slog.Any("error", err))
		return nil, err
	}

	o := <-done
	switch {
	case errors.Is(o.err, scraper.ErrCancelled):
		slog.Warn("scrape cancelled, nothing was saved")
	case o.err != nil:
		slog.Error("scrape failed", slog.String("category", scraper.ErrorKind(o.err)), slog.Any("error", o.err))
	default:
		slog.Info("scrape finished",
			slog.Int("images", o.result.TotalImages),
			slog.String("total_size", o.result.TotalSize),
		)
	}
	return o.result, o.err
}

func preloadThumbnails(ctx context.Context, runner *worker.Runner, records []models.ImageRecord) error {
	bar := newProgressBar(len(records), "thumbnails", "thumb")
	done := make(chan error, 1)
	err := runner.PreloadThumbnails(ctx, records, worker.ThumbnailCallbacks{
		OnProgress:  func(completed, _ int) { _ = bar.Set(completed) },
		OnComplete:  func() { done <- nil },
		OnError:     func(err error) { done <- err },
		OnCancelled: func() { done <- scraper.ErrCancelled },
	})
	if err != nil {
		return err
	}
	err = <-done
	_ = bar.Finish()
	if err != nil {
		slog.Warn("thumbnail preload stopped", slog.Any("error", err))
		return err
	}
	slog.Debug("thumbnails cached", slog.Int("count", runner.Thumbnails().Len()))
	return nil
}

// save writes job to disk and returns a description of what was written.
func save(ctx context.Context, runner *worker.Runner, job models.DownloadJob) (string, error) {
	if job.Format != models.FormatImage {
		if err := os.MkdirAll(job.DestDir, 0o755); err != nil {
			slog.Error("creating output directory", slog.Any("error", err))
			return "", err
		}
		done := make(chan error, 1)
		var path string
		err := runner.Export(ctx, job, worker.ExportCallbacks{
			OnComplete: func(p string) {
				path = p
				done <- nil
			},
			OnError: func(err error) { done <- err },
		})
		if err == nil {
			err = <-done
		}
		if err != nil {
			slog.Error("export failed", slog.Any("error", err))
			return "", err
		}
		return path, nil
	}

	bar := newProgressBar(len(job.Records), "downloading", "image")
	done := make(chan error, 1)
	var report *pipeline.DownloadReport
	err := runner.Download(ctx, job, worker.DownloadCallbacks{
		OnProgress: func(completed, _ int) { _ = bar.Set(completed) },
		OnComplete: func(r *pipeline.DownloadReport) {
			report = r
			done <- nil
		},
		OnError:     func(err error) { done <- err },
		OnCancelled: func() { done <- pipeline.ErrCancelled },
	})
	if err == nil {
		err = <-done
	}
	_ = bar.Finish()
	if err != nil {
		if errors.Is(err, pipeline.ErrCancelled) {
			slog.Warn("download cancelled, files already written were kept")
		} else {
			slog.Error("download failed", slog.Any("error", err))
		}
		return "", err
	}

	abs, _ := filepath.Abs(job.DestDir)
	return fmt.Sprintf("%s (%d new, %d existing, %d skipped, %d failed)",
		abs, report.Downloaded, report.Existing, report.Skipped, report.Failed), nil
}

func newProgressBar(total int, description, unit string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetItsString(unit),
		progressbar.OptionShowIts(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func exitCode(err error) int {
	if errors.Is(err, scraper.ErrCancelled) || errors.Is(err, pipeline.ErrCancelled) {
		return exitCancelled
	}
	return 1
}

func printSummary(result *models.ScrapeResult, duration time.Duration, output string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Done")
	if result.SeedURL != "" {
		fmt.Printf("  Seed:          %s\n", result.SeedURL)
		fmt.Printf("  Pages:         %d\n", result.PageCount)
	}
	fmt.Printf("  Images:        %d\n", result.TotalImages)
	fmt.Printf("  Total size:    %s\n", result.TotalSize)
	fmt.Printf("  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Printf("  Output:        %s\n", output)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
