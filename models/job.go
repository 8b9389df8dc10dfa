package models

import (
	"fmt"
	"strings"
)

// Format selects what a download job writes to disk.
type Format string

const (
	FormatImage Format = "image"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// Quality selects which asset link an image download uses.
type Quality string

const (
	QualityHigh Quality = "high"
	QualityLow  Quality = "low"
)

// ParseFormat maps user input onto a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatImage, FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// ParseQuality maps user input onto a Quality.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(strings.ToLower(strings.TrimSpace(s))); q {
	case QualityHigh, QualityLow:
		return q, nil
	default:
		return "", fmt.Errorf("unknown quality %q", s)
	}
}

// AssetURL returns the link matching q, which may be empty.
func (r ImageRecord) AssetURL(q Quality) string {
	if q == QualityLow {
		return r.LQURL
	}
	return r.ImageURL
}

// DownloadJob describes one user-triggered download or export.
type DownloadJob struct {
	ID       string
	Records  []ImageRecord
	DestDir  string
	Format   Format
	Quality  Quality
	Filename string
}
