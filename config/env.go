package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix namespaces every environment variable the tool reads.
const EnvPrefix = "IMGCRAWLER_"

// LoadDotEnv reads a .env file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// EnvString returns the trimmed value of EnvPrefix+name when it is set and non-empty.
func EnvString(name string) (string, bool) {
	value, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// EnvInt parses EnvPrefix+name as an integer.
func EnvInt(name string) (int, bool, error) {
	value, ok := EnvString(name)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	return n, true, nil
}

// EnvBool parses EnvPrefix+name as a boolean.
func EnvBool(name string) (bool, bool, error) {
	value, ok := EnvString(name)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	return b, true, nil
}

// EnvDuration parses EnvPrefix+name as a time.Duration such as "45s".
func EnvDuration(name string) (time.Duration, bool, error) {
	value, ok := EnvString(name)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	return d, true, nil
}

// ApplyEnv overlays IMGCRAWLER_* variables onto cfg.
func (c *Config) ApplyEnv() error {
	if v, ok := EnvString("SEED_URL"); ok {
		c.SeedURL = v
	}
	if v, ok, err := EnvInt("MAX_PAGES"); err != nil {
		return err
	} else if ok {
		c.MaxPages = v
	}
	if v, ok := EnvString("USER_AGENT"); ok {
		c.UserAgent = v
	}
	if v, ok := EnvString("OUTPUT_DIR"); ok {
		c.OutputDir = v
	}
	if v, ok := EnvString("FORMAT"); ok {
		c.Format = strings.ToLower(v)
	}
	if v, ok := EnvString("QUALITY"); ok {
		c.Quality = strings.ToLower(v)
	}
	if v, ok := EnvString("METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	if v, ok, err := EnvBool("PRELOAD_THUMBNAILS"); err != nil {
		return err
	} else if ok {
		c.PreloadThumbnails = v
	}
	if v, ok, err := EnvDuration("TIMEOUT"); err != nil {
		return err
	} else if ok {
		c.Timeout = v
	}
	if v, ok := EnvString("EXPORT_NAME"); ok {
		c.ExportName = v
	}
	if v, ok := EnvString("PRESAVED_FILE"); ok {
		c.PresavedFile = v
	}
	if v, ok, err := EnvBool("RESPECT_ROBOTS_TXT"); err != nil {
		return err
	} else if ok {
		c.RespectRobotsTxt = v
	}
	if v, ok, err := EnvInt("THUMBNAIL_CACHE_SIZE"); err != nil {
		return err
	} else if ok {
		c.ThumbnailCacheSize = v
	}
	if v, ok, err := EnvBool("VERBOSE"); err != nil {
		return err
	} else if ok {
		c.Verbose = v
	}
	return nil
}
