package parser

import (
	"fmt"
	"strings"
)

// DownloadTitle is the decoded title attribute of an item's download button,
// which the gallery renders as "<resolution> - <TYPE> <number> <unit>".
type DownloadTitle struct {
	Resolution string
	ImageType  string
	Size       string
}

// ParseDownloadTitle decodes a download button title such as "1920x1080 - JPG 5.2 MB".
func ParseDownloadTitle(title string) (DownloadTitle, error) {
	resolution, rest, found := strings.Cut(title, "-")
	if !found {
		return DownloadTitle{}, fmt.Errorf("download title %q: missing separator", title)
	}

	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return DownloadTitle{}, fmt.Errorf("download title %q: missing resolution", title)
	}

	fields := strings.Fields(rest)
	if len(fields) < 3 {
		return DownloadTitle{}, fmt.Errorf("download title %q: want \"<type> <number> <unit>\"", title)
	}

	size := fields[len(fields)-2] + " " + fields[len(fields)-1]
	if _, err := ParseSize(size); err != nil {
		return DownloadTitle{}, fmt.Errorf("download title %q: %w", title, err)
	}

	return DownloadTitle{
		Resolution: resolution,
		ImageType:  strings.Join(fields[:len(fields)-2], " "),
		Size:       size,
	}, nil
}

// NormalizeCount trims the whitespace the gallery leaves around view and like counters.
func NormalizeCount(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
