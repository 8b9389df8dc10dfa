// Package parser converts the gallery's presentation strings into typed values.
package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/aluiziolira/go-scrape-gallery/models"
)

// ErrInvalidUnit is returned for size units outside B, KB, MB and GB.
var ErrInvalidUnit = errors.New("invalid size unit")

var unitFactors = map[string]float64{
	"B":  1,
	"KB": 1024,
	"MB": 1024 * 1024,
	"GB": 1024 * 1024 * 1024,
}

var humanUnits = []string{"B", "KB", "MB", "GB", "TB"}

// ToBytes converts size expressed in unit into bytes, rounded to three decimals.
// Non-positive sizes yield 0.
func ToBytes(size float64, unit string) (float64, error) {
	if !validUnit(unit) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
	}
	factor, ok := unitFactors[unit]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
	}
	if size <= 0 {
		return 0, nil
	}
	return math.Round(size*factor*1000) / 1000, nil
}

func validUnit(unit string) bool {
	if len(unit) < 1 || len(unit) > 2 {
		return false
	}
	for _, r := range unit {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// ToHumanReadable formats a byte count as "<value> <unit>" with at most two decimals.
func ToHumanReadable(bytes float64) string {
	value := bytes
	i := 0
	for value >= 1024 && i < len(humanUnits)-1 {
		value /= 1024
		i++
	}

	formatted := strconv.FormatFloat(value, 'f', 2, 64)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimSuffix(formatted, ".")
	return formatted + " " + humanUnits[i]
}

// ParseSize parses a "<number> <unit>" string such as "5.2 MB" into bytes.
func ParseSize(s string) (float64, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, fmt.Errorf("size %q: want \"<number> <unit>\"", s)
	}
	number, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("size %q: %w", s, err)
	}
	return ToBytes(number, fields[1])
}

// Summarize returns the summed size of records in bytes and in human readable form.
func Summarize(records []models.ImageRecord) (float64, string, error) {
	var total float64
	for i, record := range records {
		bytes, err := ParseSize(record.Size)
		if err != nil {
			return 0, "", fmt.Errorf("record %d (%s): %w", i, record.ImageLink, err)
		}
		total += bytes
	}
	return total, ToHumanReadable(total), nil
}
