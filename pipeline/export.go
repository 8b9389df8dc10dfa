package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-scrape-gallery/models"
)

// Export writes records to destDir/filename in the given format and calls
// onComplete with the written path exactly once on success.
//
// destDir must already exist. The format extension is appended to filename
// when missing, and an existing file is never overwritten.
func Export(records []models.ImageRecord, destDir string, format models.Format, filename string, onComplete func(path string)) error {
	if err := CheckExport(destDir, format, filename); err != nil {
		return err
	}

	name := strings.TrimSpace(filename)
	ext := "." + string(format)
	if !strings.EqualFold(filepath.Ext(name), ext) {
		name += ext
	}
	target, err := ResolveCollision(filepath.Join(destDir, name))
	if err != nil {
		return err
	}

	writer, err := newRecordWriter(format, target)
	if err != nil {
		return err
	}
	if err := writer.Write(records); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	if err := writer.Validate(); err != nil {
		return err
	}

	slog.Info("export complete",
		slog.String("path", target),
		slog.String("format", string(format)),
		slog.Int("records", len(records)),
	)
	if onComplete != nil {
		onComplete(target)
	}
	return nil
}

// CheckExport validates export arguments without touching any file.
func CheckExport(destDir string, format models.Format, filename string) error {
	if format != models.FormatJSON && format != models.FormatCSV {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
	info, err := os.Stat(destDir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDirectory, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %q is not a directory", ErrInvalidDirectory, destDir)
	}
	if !validFilename(filename) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return nil
}
