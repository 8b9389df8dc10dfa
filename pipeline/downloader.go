package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-scrape-gallery/models"
	"github.com/aluiziolira/go-scrape-gallery/scraper"
)

// AssetFetcher downloads raw asset bytes.
type AssetFetcher interface {
	GetBytes(ctx context.Context, url string) ([]byte, error)
}

// DownloadReport summarises one DownloadAssets call.
type DownloadReport struct {
	Total      int
	Downloaded int
	Existing   int
	Skipped    int
	Failed     int
	Files      []string
}

// Downloader saves the image assets of scraped records to disk, one at a time.
type Downloader struct {
	fetcher AssetFetcher
	metrics *scraper.Metrics
	logger  *slog.Logger
}

// NewDownloader builds a downloader. metrics and logger may be nil.
func NewDownloader(fetcher AssetFetcher, metrics *scraper.Metrics, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{fetcher: fetcher, metrics: metrics, logger: logger}
}

// AssetFilename is the on-disk name of a record's asset for quality q. Both
// the title and the extension are sanitized, so the name has no separators.
func AssetFilename(record models.ImageRecord, q models.Quality) string {
	name := Sanitize(record.Title)
	if q == models.QualityLow {
		name += "_Lq_"
	}
	return name + Sanitize(record.Extension)
}

// assetPath joins name onto destDir and refuses any result outside destDir.
func assetPath(destDir, name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	target := filepath.Join(destDir, name)
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes %q", ErrInvalidFilename, name, destDir)
	}
	return target, nil
}

// DownloadAssets downloads every record's asset into destDir in order.
//
// Records without a link for the chosen quality are skipped. Files that were
// already present before the call are left alone, so re-running a download
// does not fetch them again. A failed fetch is logged and counted, and the
// loop moves on. A failed write aborts. Cancellation is checked before each
// record; files already written stay on disk. sink is called after every
// record that was handled.
func (d *Downloader) DownloadAssets(ctx context.Context, records []models.ImageRecord, destDir string, quality models.Quality, sink func(completed, total int)) (*DownloadReport, error) {
	if destDir == "" {
		return nil, fmt.Errorf("%w: empty destination", ErrInvalidDirectory)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %q: %w", destDir, err)
	}

	report := &DownloadReport{Total: len(records)}
	written := make(map[string]struct{})

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			d.logger.Info("download cancelled",
				slog.Int("completed", i),
				slog.Int("total", report.Total),
			)
			return report, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		if err := d.downloadOne(ctx, record, destDir, quality, written, report); err != nil {
			return report, err
		}
		if sink != nil {
			sink(i+1, report.Total)
		}
	}

	d.logger.Info("download complete",
		slog.String("dir", destDir),
		slog.Int("downloaded", report.Downloaded),
		slog.Int("existing", report.Existing),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

func (d *Downloader) downloadOne(ctx context.Context, record models.ImageRecord, destDir string, quality models.Quality, written map[string]struct{}, report *DownloadReport) error {
	assetURL := record.AssetURL(quality)
	if assetURL == "" {
		report.Skipped++
		d.metrics.IncAsset("skipped")
		d.logger.Warn("record has no asset link, skipping",
			slog.String("title", record.Title),
			slog.String("quality", string(quality)),
		)
		return nil
	}

	target, err := assetPath(destDir, AssetFilename(record, quality))
	if err != nil {
		report.Failed++
		d.metrics.IncAsset("failed")
		d.logger.Warn("record has no usable file name, skipping",
			slog.String("title", record.Title),
			slog.Any("error", err),
		)
		return nil
	}
	if _, ours := written[target]; ours {
		resolved, err := ResolveCollision(target)
		if err != nil {
			return err
		}
		target = resolved
	} else {
		free, err := notExists(target)
		if err != nil {
			return err
		}
		if !free {
			report.Existing++
			d.metrics.IncAsset("existing")
			d.logger.Debug("already downloaded", slog.String("path", target))
			return nil
		}
	}

	data, err := d.fetcher.GetBytes(ctx, assetURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
		}
		report.Failed++
		d.metrics.IncAsset("failed")
		d.logger.Warn("asset download failed",
			slog.String("url", assetURL),
			slog.String("category", scraper.ErrorKind(err)),
			slog.Any("error", err),
		)
		return nil
	}

	if err := writeFileAtomic(target, data); err != nil {
		return err
	}
	written[target] = struct{}{}
	report.Downloaded++
	report.Files = append(report.Files, target)
	d.metrics.IncAsset("downloaded")
	d.logger.Debug("saved asset", slog.String("path", target), slog.Int("bytes", len(data)))
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %q: %w", tmp, err)
	}
	return nil
}
