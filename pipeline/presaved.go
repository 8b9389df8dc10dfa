package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aluiziolira/go-scrape-gallery/models"
	"github.com/aluiziolira/go-scrape-gallery/parser"
)

// LoadPresaved reads a JSON export back into a result. The file must hold a
// non-empty array of objects, each with exactly the record keys and a valid
// record (image_url, title and a parseable size). Anything else is rejected
// with ErrSchemaValidation and no partial result.
func LoadPresaved(path string) (*models.ScrapeResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presaved file: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: top level is not an array: %w", ErrSchemaValidation, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrSchemaValidation)
	}

	records := make([]models.ImageRecord, 0, len(raw))
	for i, element := range raw {
		record, err := decodePresavedRecord(element)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %w", ErrSchemaValidation, i, err)
		}
		records = append(records, record)
	}

	totalBytes, totalSize, err := parser.Summarize(records)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaValidation, err)
	}

	return &models.ScrapeResult{
		Records:     records,
		TotalImages: len(records),
		TotalBytes:  totalBytes,
		TotalSize:   totalSize,
	}, nil
}

func decodePresavedRecord(element json.RawMessage) (models.ImageRecord, error) {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(element, &object); err != nil || object == nil {
		return models.ImageRecord{}, fmt.Errorf("not an object")
	}
	if len(object) != models.FieldCount {
		return models.ImageRecord{}, fmt.Errorf("has %d keys, want %d", len(object), models.FieldCount)
	}
	// encoding/json matches keys case-insensitively, so key names are checked here.
	for _, field := range (models.ImageRecord{}).Fields() {
		if _, ok := object[field.Key]; !ok {
			return models.ImageRecord{}, fmt.Errorf("missing key %q", field.Key)
		}
	}

	var record models.ImageRecord
	decoder := json.NewDecoder(bytes.NewReader(element))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&record); err != nil {
		return models.ImageRecord{}, err
	}
	if err := parser.ValidateRecord(&record); err != nil {
		return models.ImageRecord{}, err
	}
	return record, nil
}
