package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/getAsterisk/stackwalk/internal/core/errors"
)

// ConfigFileNames are searched, in order, by FindConfigFile.
var ConfigFileNames = []string{"stackwalk.toml", ".stackwalk.toml"}

type ResolvedPaths struct {
	Root      string
	OutputDir string
	DBPath    string
}

// ResolvePaths anchors the relative paths of cfg at the indexed root.
func ResolvePaths(cfg *Config, root string) (ResolvedPaths, error) {
	if strings.TrimSpace(root) == "" {
		return ResolvedPaths{}, errors.New(errors.CodeValidationError, "root must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return ResolvedPaths{}, errors.Wrap(err, errors.CodeInternal, "resolve root")
	}

	resolved := ResolvedPaths{
		Root:      filepath.Clean(abs),
		OutputDir: ResolveRelative(abs, cfg.Output.Dir),
	}
	if cfg.DB.Enabled {
		resolved.DBPath = ResolveRelative(abs, cfg.DB.Path)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// FindConfigFile walks up from start looking for one of ConfigFileNames.
// It returns "" when none exists.
func FindConfigFile(start string) string {
	abs, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	dir := abs
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// IsWithin reports whether path equals dir or lies below it.
func IsWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
