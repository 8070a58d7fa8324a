package cache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/matsen/citegraph/internal/paper"
)

// DirName is the cache directory name under the user cache root.
const DirName = "citegraph"

// FileSuffix is appended to the sanitized root id for default cache files.
const FileSuffix = ".cache.jsonl"

var nonFilenameChars = regexp.MustCompile(`[^\w _\-,.+()]+`)

// Dir returns the default cache directory. Respects XDG_CACHE_HOME on
// Linux and falls back to ~/.cache; uses the platform cache dir elsewhere.
func Dir() (string, error) {
	if runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		root := os.Getenv("XDG_CACHE_HOME")
		if root == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("locating home directory: %w", err)
			}
			root = filepath.Join(home, ".cache")
		}
		return filepath.Join(root, DirName), nil
	}

	root, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating cache directory: %w", err)
	}
	return filepath.Join(root, DirName), nil
}

// FileName returns a filesystem-safe cache file name for a root paper.
func FileName(root paper.Identifier) string {
	name := string(root.Kind()) + "-" + root.Value()
	return nonFilenameChars.ReplaceAllString(name, "-") + FileSuffix
}

// DefaultPath returns the default cache file for a traversal from root.
func DefaultPath(root paper.Identifier) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName(root)), nil
}

// IsSQLitePath reports whether path selects the SQLite backend.
func IsSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	default:
		return false
	}
}

// OpenBackend opens the backend matching the file extension of path. A
// SQLite file that cannot be opened is moved aside and recreated, so a
// damaged cache never aborts a run.
func OpenBackend(path string, logger *slog.Logger) (Backend, error) {
	if !IsSQLitePath(path) {
		return NewJSONLBackend(path), nil
	}

	b, err := OpenSQLiteBackend(path)
	if err == nil {
		return b, nil
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, err
	}

	aside := path + ".corrupt"
	if logger != nil {
		logger.Warn("ignoring unreadable cache database", "path", path, "moved_to", aside, "error", err)
	}
	if renameErr := os.Rename(path, aside); renameErr != nil {
		return nil, fmt.Errorf("moving unreadable cache aside: %w", renameErr)
	}
	return OpenSQLiteBackend(path)
}
