// Package models defines data structures for the scraper.
package models

import "time"

// FieldCount is the number of keys every serialized ImageRecord carries.
const FieldCount = 13

// ImageRecord represents one gallery item scraped from its detail page.
type ImageRecord struct {
	ImageLink  string `csv:"image_link" json:"image_link"`
	ImageURL   string `csv:"image_url" json:"image_url"`
	LQURL      string `csv:"lq_url" json:"lq_url"`
	ThumbURL   string `csv:"thumb_url" json:"thumb_url"`
	Title      string `csv:"title" json:"title"`
	Extension  string `csv:"extension" json:"extension"`
	ImageType  string `csv:"image_type" json:"image_type"`
	Size       string `csv:"size" json:"size"`
	Resolution string `csv:"resolution" json:"resolution"`
	Views      string `csv:"views" json:"views"`
	Likes      string `csv:"likes" json:"likes"`
	Uploader   string `csv:"uploader" json:"uploader"`
	Uploaded   string `csv:"uploaded" json:"uploaded"`
}

// Field is a single serialized key/value pair of a record.
type Field struct {
	Key   string
	Value string
}

// Fields returns the record's key/value pairs in serialization order.
func (r ImageRecord) Fields() []Field {
	return []Field{
		{"image_link", r.ImageLink},
		{"image_url", r.ImageURL},
		{"lq_url", r.LQURL},
		{"thumb_url", r.ThumbURL},
		{"title", r.Title},
		{"extension", r.Extension},
		{"image_type", r.ImageType},
		{"size", r.Size},
		{"resolution", r.Resolution},
		{"views", r.Views},
		{"likes", r.Likes},
		{"uploader", r.Uploader},
		{"uploaded", r.Uploaded},
	}
}

// ScrapeResult holds the records of one completed scrape, in discovery order.
type ScrapeResult struct {
	Records     []ImageRecord
	SeedURL     string
	StartTime   time.Time
	EndTime     time.Time
	PageCount   int
	TotalImages int
	TotalBytes  float64
	TotalSize   string
}
