package parser

import (
	"errors"
	"math"
	"testing"

	"github.com/aluiziolira/go-scrape-gallery/models"
)

func TestToBytes(t *testing.T) {
	tests := []struct {
		name     string
		size     float64
		unit     string
		expected float64
	}{
		{name: "bytes", size: 512, unit: "B", expected: 512},
		{name: "kilobytes", size: 1.5, unit: "KB", expected: 1536},
		{name: "megabytes", size: 5.2, unit: "MB", expected: 5452595.2},
		{name: "gigabytes", size: 2, unit: "GB", expected: 2147483648},
		{name: "zero", size: 0, unit: "MB", expected: 0},
		{name: "negative", size: -5, unit: "KB", expected: 0},
		{name: "rounded to three decimals", size: 0.0001234, unit: "KB", expected: 0.126},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBytes(tt.size, tt.unit)
			if err != nil {
				t.Fatalf("ToBytes(%v, %q) error: %v", tt.size, tt.unit, err)
			}
			if math.Abs(got-tt.expected) > 1e-6 {
				t.Fatalf("ToBytes(%v, %q) = %v, want %v", tt.size, tt.unit, got, tt.expected)
			}
		})
	}
}

func TestToBytesInvalidUnit(t *testing.T) {
	for _, unit := range []string{"xyz", "", "K1", "kb", "TB", "M B"} {
		if _, err := ToBytes(5.0, unit); !errors.Is(err, ErrInvalidUnit) {
			t.Fatalf("ToBytes(5, %q) error = %v, want ErrInvalidUnit", unit, err)
		}
	}
}

func TestToHumanReadable(t *testing.T) {
	tests := []struct {
		bytes    float64
		expected string
	}{
		{bytes: 0, expected: "0 B"},
		{bytes: 1023, expected: "1023 B"},
		{bytes: 1024, expected: "1 KB"},
		{bytes: 1536, expected: "1.5 KB"},
		{bytes: 5452595.2, expected: "5.2 MB"},
		{bytes: 3 * 1024 * 1024 * 1024, expected: "3 GB"},
		{bytes: 1024 * 1024 * 1024 * 1024 * 2.25, expected: "2.25 TB"},
		{bytes: 1024 * 1024 * 1024 * 1024 * 4096, expected: "4096 TB"},
	}

	for _, tt := range tests {
		if got := ToHumanReadable(tt.bytes); got != tt.expected {
			t.Errorf("ToHumanReadable(%v) = %q, want %q", tt.bytes, got, tt.expected)
		}
	}
}

func TestHumanReadableRoundTrip(t *testing.T) {
	cases := []struct {
		size float64
		unit string
	}{
		{1, "B"}, {700, "B"}, {0.5, "KB"}, {3.33, "KB"}, {999, "KB"},
		{5.2, "MB"}, {12.75, "MB"}, {1.01, "GB"}, {512, "GB"},
	}

	for _, c := range cases {
		bytes, err := ToBytes(c.size, c.unit)
		if err != nil {
			t.Fatalf("ToBytes(%v, %q): %v", c.size, c.unit, err)
		}
		human := ToHumanReadable(bytes)
		back, err := ParseSize(human)
		if err != nil {
			t.Fatalf("ParseSize(%q): %v", human, err)
		}
		if math.Abs(back-bytes)/bytes > 0.01 {
			t.Fatalf("round trip %v %s -> %q -> %v bytes, want ~%v", c.size, c.unit, human, back, bytes)
		}
	}
}

func TestParseSize(t *testing.T) {
	if got, err := ParseSize("5.2 MB"); err != nil || got != 5452595.2 {
		t.Fatalf("ParseSize(5.2 MB) = %v, %v", got, err)
	}
	if got, err := ParseSize("1,024 KB"); err != nil || got != 1024*1024 {
		t.Fatalf("ParseSize(1,024 KB) = %v, %v", got, err)
	}
	for _, bad := range []string{"", "5.2", "5.2MB", "five MB", "5 MB extra"} {
		if _, err := ParseSize(bad); err == nil {
			t.Fatalf("ParseSize(%q) should fail", bad)
		}
	}
}

func TestSummarize(t *testing.T) {
	records := []models.ImageRecord{
		{ImageLink: "a", Size: "1 MB"},
		{ImageLink: "b", Size: "512 KB"},
		{ImageLink: "c", Size: "512 KB"},
	}
	total, human, err := Summarize(records)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if total != 2*1024*1024 || human != "2 MB" {
		t.Fatalf("summarize = %v %q, want 2097152 \"2 MB\"", total, human)
	}

	records = append(records, models.ImageRecord{ImageLink: "d", Size: "huge"})
	if _, _, err := Summarize(records); err == nil {
		t.Fatalf("expected error for unparseable size")
	}
}
