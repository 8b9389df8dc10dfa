package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-gallery/models"
)

func sampleRecords() []models.ImageRecord {
	return []models.ImageRecord{
		{
			ImageLink:  "https://gallery.test/i/1",
			ImageURL:   "https://cdn.test/1.jpg",
			LQURL:      "https://cdn.test/1.md.jpg",
			ThumbURL:   "https://cdn.test/1.th.jpg",
			Title:      "First",
			Extension:  ".jpg",
			ImageType:  "JPG",
			Size:       "1.5 MB",
			Resolution: "1920x1080",
			Views:      "10",
			Likes:      "2",
			Uploader:   "ana",
			Uploaded:   "2023-05-01 10:00:00",
		},
		{
			ImageLink: "https://gallery.test/i/2",
			ImageURL:  "https://cdn.test/2.png",
			Title:     "Second, with comma",
			Extension: ".png",
			ImageType: "PNG",
			Size:      "500 KB",
		},
	}
}

func TestExportJSON(t *testing.T) {
	dir := t.TempDir()
	var completed []string

	if err := Export(sampleRecords(), dir, models.FormatJSON, "dump", func(path string) {
		completed = append(completed, path)
	}); err != nil {
		t.Fatalf("export: %v", err)
	}

	want := filepath.Join(dir, "dump.json")
	if len(completed) != 1 || completed[0] != want {
		t.Fatalf("onComplete calls = %v", completed)
	}

	data := readFile(t, want)
	if !strings.HasPrefix(data, "[\n    {\n        \"image_link\"") {
		t.Fatalf("unexpected layout:\n%s", data)
	}
	var decoded []map[string]string
	if err := json.Unmarshal([]byte(data), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 2 || len(decoded[0]) != models.FieldCount || decoded[1]["title"] != "Second, with comma" {
		t.Fatalf("decoded = %v", decoded)
	}
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	var path string
	if err := Export(sampleRecords(), dir, models.FormatCSV, "table.csv", func(p string) { path = p }); err != nil {
		t.Fatalf("export: %v", err)
	}
	if path != filepath.Join(dir, "table.csv") {
		t.Fatalf("path = %q", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "image_link" || rows[0][1] != "image_url" || len(rows[0]) != models.FieldCount {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[2][4] != "Second, with comma" || rows[2][2] != "" {
		t.Fatalf("unexpected row: %v", rows[2])
	}
}

func TestExportEmptyCSVStillHasHeader(t *testing.T) {
	dir := t.TempDir()
	if err := Export(nil, dir, models.FormatCSV, "empty", nil); err != nil {
		t.Fatalf("export: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "empty.csv")); !strings.HasPrefix(got, "image_link,image_url,") {
		t.Fatalf("empty export = %q", got)
	}
}

func TestExportNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "dump.json"))

	var path string
	if err := Export(sampleRecords(), dir, models.FormatJSON, "dump", func(p string) { path = p }); err != nil {
		t.Fatalf("export: %v", err)
	}
	if path != filepath.Join(dir, "dump 0.json") {
		t.Fatalf("path = %q", path)
	}
	if got := readFile(t, filepath.Join(dir, "dump.json")); got != "x" {
		t.Fatalf("existing export overwritten")
	}
}

func TestExportRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "plain"))

	tests := []struct {
		name     string
		dir      string
		format   models.Format
		filename string
		want     error
	}{
		{"missing directory", filepath.Join(dir, "nope"), models.FormatJSON, "dump", ErrInvalidDirectory},
		{"file as directory", filepath.Join(dir, "plain"), models.FormatJSON, "dump", ErrInvalidDirectory},
		{"image format", dir, models.FormatImage, "dump", ErrInvalidFormat},
		{"unknown format", dir, models.Format("xml"), "dump", ErrInvalidFormat},
		{"empty name", dir, models.FormatCSV, "", ErrInvalidFilename},
		{"separator in name", dir, models.FormatCSV, "a/b", ErrInvalidFilename},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			err := Export(sampleRecords(), tt.dir, tt.format, tt.filename, func(string) { called = true })
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if called {
				t.Fatalf("onComplete called on failure")
			}
		})
	}
}
