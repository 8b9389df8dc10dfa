package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const illegalChars = `\/:*?"<>|`

var sanitizer = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// Sanitize replaces characters that are not allowed in file names with '_'.
// The rune count is unchanged.
func Sanitize(name string) string {
	return sanitizer.Replace(name)
}

// ResolveCollision returns path if nothing exists there, otherwise the first
// free "<base> <n><ext>" for n = 0, 1, ...
func ResolveCollision(path string) (string, error) {
	free, err := notExists(path)
	if err != nil || free {
		return path, err
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 0; ; n++ {
		candidate := fmt.Sprintf("%s %d%s", base, n, ext)
		free, err := notExists(candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
}

func notExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, fs.ErrNotExist):
		return true, nil
	default:
		return false, fmt.Errorf("stat %q: %w", path, err)
	}
}

func validFilename(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, illegalChars)
}
