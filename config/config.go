package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds scraper and downloader configuration.
type Config struct {
	SeedURL            string        `yaml:"seed_url"`
	MaxPages           int           `yaml:"max_pages"`
	Timeout            time.Duration `yaml:"timeout"`
	UserAgent          string        `yaml:"user_agent"`
	RespectRobotsTxt   bool          `yaml:"respect_robots_txt"`
	OutputDir          string        `yaml:"output_dir"`
	Format             string        `yaml:"format"`  // image, json, or csv
	Quality            string        `yaml:"quality"` // high or low
	ExportName         string        `yaml:"export_name"`
	PresavedFile       string        `yaml:"presaved_file"`
	ThumbnailCacheSize int           `yaml:"thumbnail_cache_size"`
	PreloadThumbnails  bool          `yaml:"preload_thumbnails"`
	MetricsAddr        string        `yaml:"metrics_addr"`
	Verbose            bool          `yaml:"verbose"`
}

// DefaultConfig returns defaults matching what the gallery expects from a browser.
func DefaultConfig() *Config {
	return &Config{
		SeedURL:            "",
		MaxPages:           0,
		Timeout:            30 * time.Second,
		UserAgent:          "Mozilla/5.0",
		RespectRobotsTxt:   false,
		OutputDir:          "downloads",
		Format:             "image",
		Quality:            "high",
		ExportName:         "images",
		ThumbnailCacheSize: 256,
		PreloadThumbnails:  false,
		MetricsAddr:        "",
		Verbose:            false,
	}
}

// LoadFile overlays the YAML document at path onto cfg.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}
	return nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.SeedURL != "" {
		parsedURL, err := url.Parse(c.SeedURL)
		if err != nil {
			return fmt.Errorf("invalid seed URL: %w", err)
		}
		if parsedURL.Host == "" {
			return fmt.Errorf("seed URL must include a host")
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("seed URL must use http or https")
		}
	}

	if c.MaxPages < 0 {
		return fmt.Errorf("max pages cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	if c.Format != "image" && c.Format != "json" && c.Format != "csv" {
		return fmt.Errorf("output format must be image, json, or csv")
	}
	if c.Quality != "high" && c.Quality != "low" {
		return fmt.Errorf("quality must be high or low")
	}
	if c.Format != "image" && c.ExportName == "" {
		return fmt.Errorf("export name cannot be empty for %s output", c.Format)
	}
	if c.ThumbnailCacheSize <= 0 {
		return fmt.Errorf("thumbnail cache size must be positive")
	}

	return nil
}
