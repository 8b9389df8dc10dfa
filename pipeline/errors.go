// Package pipeline writes scraped records to disk: image assets, JSON and CSV
// exports, and presaved result files.
package pipeline

import "errors"

var (
	// ErrInvalidDirectory is returned when an export targets a missing directory.
	ErrInvalidDirectory = errors.New("pipeline: invalid directory")
	// ErrInvalidFormat is returned for export formats other than json and csv.
	ErrInvalidFormat = errors.New("pipeline: invalid format")
	// ErrInvalidFilename is returned for empty or unsafe export names.
	ErrInvalidFilename = errors.New("pipeline: invalid filename")
	// ErrSchemaValidation is returned when a presaved file is malformed.
	ErrSchemaValidation = errors.New("pipeline: schema validation failed")
	// ErrCancelled is returned when a download is stopped by its context.
	ErrCancelled = errors.New("pipeline: cancelled")
)
