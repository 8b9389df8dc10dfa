package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-gallery/models"
)

// ValidateRecord ensures the scraper captured the required fields.
func ValidateRecord(r *models.ImageRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.ImageURL) == "" {
		return fmt.Errorf("record missing image url for %s", r.ImageLink)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("record missing title for %s", r.ImageLink)
	}
	if _, err := ParseSize(r.Size); err != nil {
		return fmt.Errorf("record %s: %w", r.Title, err)
	}
	return nil
}
