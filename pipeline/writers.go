package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aluiziolira/go-scrape-gallery/models"
)

// RecordWriter persists a list of records to a single file.
type RecordWriter interface {
	Write(records []models.ImageRecord) error
	Close() error
	Validate() error
}

func newRecordWriter(format models.Format, filename string) (RecordWriter, error) {
	switch format {
	case models.FormatJSON:
		return NewJSONWriter(filename)
	case models.FormatCSV:
		return NewCSVWriter(filename)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
}

// CSVWriter writes records as CSV. The header is the union of all record keys
// in the order they are first seen, so it is written on Close.
type CSVWriter struct {
	path   string
	file   *os.File
	header []string
	seen   map[string]struct{}
	rows   []map[string]string
}

// NewCSVWriter creates filename for writing.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}
	return &CSVWriter{
		path: filename,
		file: f,
		seen: make(map[string]struct{}),
	}, nil
}

// Write buffers records as rows.
func (cw *CSVWriter) Write(records []models.ImageRecord) error {
	for _, record := range records {
		row := make(map[string]string, models.FieldCount)
		for _, field := range record.Fields() {
			if _, ok := cw.seen[field.Key]; !ok {
				cw.seen[field.Key] = struct{}{}
				cw.header = append(cw.header, field.Key)
			}
			row[field.Key] = field.Value
		}
		cw.rows = append(cw.rows, row)
	}
	return nil
}

// Close writes the header and every buffered row, then closes the file.
func (cw *CSVWriter) Close() error {
	header := cw.header
	if len(header) == 0 {
		for _, field := range (models.ImageRecord{}).Fields() {
			header = append(header, field.Key)
		}
	}

	writer := csv.NewWriter(cw.file)
	if err := writer.Write(header); err != nil {
		cw.file.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	line := make([]string, len(header))
	for _, row := range cw.rows {
		for i, key := range header {
			line[i] = row[key]
		}
		if err := writer.Write(line); err != nil {
			cw.file.Close()
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		cw.file.Close()
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has content.
func (cw *CSVWriter) Validate() error {
	return validateNonEmpty(cw.path, "csv")
}

// JSONWriter writes records as one pretty-printed JSON array.
type JSONWriter struct {
	path    string
	file    *os.File
	records []models.ImageRecord
}

// NewJSONWriter creates filename for writing.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}
	return &JSONWriter{path: filename, file: f, records: []models.ImageRecord{}}, nil
}

// Write buffers records.
func (jw *JSONWriter) Write(records []models.ImageRecord) error {
	jw.records = append(jw.records, records...)
	return nil
}

// Close encodes the buffered records and closes the file.
func (jw *JSONWriter) Close() error {
	buffer := bufio.NewWriter(jw.file)
	encoder := json.NewEncoder(buffer)
	encoder.SetIndent("", "    ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(jw.records); err != nil {
		jw.file.Close()
		return fmt.Errorf("encode json records: %w", err)
	}
	if err := buffer.Flush(); err != nil {
		jw.file.Close()
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	return validateNonEmpty(jw.path, "json")
}

func validateNonEmpty(path, kind string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s file: %w", kind, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s file is empty", kind)
	}
	return nil
}
