package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-gallery/models"
	"github.com/aluiziolira/go-scrape-gallery/parser"
)

const (
	downloadButtonSelector = "a.btn-download"
	headerMetaSelector     = "div.header div.header-content-right"
	sharePanelSelector     = "div.panel-share div.panel-share-item"
	shareInputSelector     = "div.panel-share-input-label"
	titleSelector          = "h1.viewer-title"
	uploaderSelector       = ".user-link"
)

// Extractor turns item pages into records.
type Extractor struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewExtractor builds an extractor that fetches through fetcher.
func NewExtractor(fetcher Fetcher, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{fetcher: fetcher, logger: logger}
}

// Extract fetches itemURL and parses it into a record.
func (e *Extractor) Extract(ctx context.Context, itemURL string) (*models.ImageRecord, error) {
	html, err := e.fetcher.GetText(ctx, itemURL)
	if err != nil {
		return nil, err
	}
	record, err := ParseItemPage(itemURL, html)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("extracted item",
		slog.String("url", itemURL),
		slog.String("title", record.Title),
		slog.String("size", record.Size),
	)
	return record, nil
}

// ParseItemPage extracts a record from an item page. A missing download
// button, metadata block, share panel or title yields an *ExtractionError.
func ParseItemPage(itemURL, html string) (*models.ImageRecord, error) {
	base, err := url.Parse(itemURL)
	if err != nil {
		return nil, &ExtractionError{URL: itemURL, Anchor: "item url", Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ExtractionError{URL: itemURL, Anchor: "document", Err: err}
	}

	record := &models.ImageRecord{ImageLink: itemURL}

	button := doc.Find(downloadButtonSelector).First()
	if button.Length() == 0 {
		return nil, &ExtractionError{URL: itemURL, Anchor: "download button"}
	}
	encoded, ok := button.Attr("title")
	if !ok || strings.TrimSpace(encoded) == "" {
		return nil, &ExtractionError{URL: itemURL, Anchor: "download button title"}
	}
	decoded, err := parser.ParseDownloadTitle(encoded)
	if err != nil {
		return nil, &ExtractionError{URL: itemURL, Anchor: "download button title", Err: err}
	}
	record.Resolution = decoded.Resolution
	record.ImageType = decoded.ImageType
	record.Size = decoded.Size
	record.ImageURL = resolveLink(base, button.AttrOr("href", ""))

	meta := doc.Find(headerMetaSelector).Last()
	if meta.Length() == 0 {
		return nil, &ExtractionError{URL: itemURL, Anchor: "metadata block"}
	}
	counts := nonEmptyLines(meta.Text())
	if len(counts) < 2 {
		return nil, &ExtractionError{
			URL:    itemURL,
			Anchor: "metadata block",
			Err:    fmt.Errorf("want view and like counts, got %d lines", len(counts)),
		}
	}
	record.Views = parser.NormalizeCount(counts[0])
	record.Likes = parser.NormalizeCount(counts[1])

	panel := doc.Find(sharePanelSelector).First()
	inputs := panel.Find(shareInputSelector)
	if inputs.Length() == 0 {
		return nil, &ExtractionError{URL: itemURL, Anchor: "share panel"}
	}
	inputs.Each(func(_ int, s *goquery.Selection) {
		label := strings.ToLower(s.Find("h4, label").First().Text())
		link := resolveLink(base, s.Find("input").First().AttrOr("value", ""))
		switch {
		case link == "":
		case strings.Contains(label, "thumb"):
			record.ThumbURL = link
		case strings.Contains(label, "medium"):
			record.LQURL = link
		case strings.Contains(label, "direct") && record.ImageURL == "":
			record.ImageURL = link
		}
	})

	record.Title = strings.TrimSpace(doc.Find(titleSelector).First().Text())
	if record.Title == "" {
		record.Title = strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	}
	if record.Title == "" {
		return nil, &ExtractionError{URL: itemURL, Anchor: "title"}
	}

	record.Uploader = strings.TrimSpace(doc.Find(uploaderSelector).First().Text())
	record.Uploaded = uploadedAt(doc)
	record.Extension = extensionFor(record.ImageURL, record.ImageType)

	if err := parser.ValidateRecord(record); err != nil {
		return nil, &ExtractionError{URL: itemURL, Anchor: "record", Err: err}
	}
	return record, nil
}

// IsExtractionError reports whether err came from a malformed item page.
func IsExtractionError(err error) bool {
	var extraction *ExtractionError
	return errors.As(err, &extraction)
}

func uploadedAt(doc *goquery.Document) string {
	if v, ok := doc.Find("[data-uploaded]").First().Attr("data-uploaded"); ok {
		return strings.TrimSpace(v)
	}
	span := doc.Find(".description-meta span[title]").First()
	if v := strings.TrimSpace(span.AttrOr("title", "")); v != "" {
		return v
	}
	return strings.TrimSpace(span.Text())
}

func extensionFor(assetURL, imageType string) string {
	if u, err := url.Parse(assetURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && ext != "." {
			return ext
		}
	}
	if kind := strings.Fields(imageType); len(kind) > 0 {
		return "." + strings.ToLower(kind[0])
	}
	return ""
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
