package app

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/getAsterisk/stackwalk/internal/core/errors"
	"github.com/getAsterisk/stackwalk/internal/shared/util"
)

type sourceFile struct {
	abs      string
	rel      string
	language string
}

type discovery struct {
	files       []sourceFile
	skipped     []string
	diagnostics []Diagnostic
}

func compileExcludes(patterns []string, label string) (*util.Excludes, error) {
	e, err := util.CompileExcludes(patterns)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid "+label+" pattern")
	}
	return e, nil
}

// discover walks root and classifies every regular file. The root itself is
// never excluded; unreadable subdirectories become warnings.
func (ix *Indexer) discover(ctx context.Context, root string) (*discovery, error) {
	d := &discovery{}

	var gi *ignore.GitIgnore
	if ix.cfg.Index.GitignoreEnabled() {
		gi = loadGitignore(root)
	}

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, ok := util.SlashRel(root, path)
		if !ok {
			return nil
		}

		if walkErr != nil {
			if path == root {
				return walkErr
			}
			slog.Warn("failed to read path during discovery", "path", rel, "error", walkErr)
			d.diagnostics = append(d.diagnostics, Diagnostic{
				Path:     rel,
				Severity: SeverityWarning,
				Code:     errors.CodePermissionDenied,
				Message:  walkErr.Error(),
			})
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			if path == root {
				return nil
			}
			if ix.excludeDirs.Match(rel) || (gi != nil && gi.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		if ix.excludeFiles.Match(rel) || (gi != nil && gi.MatchesPath(rel)) {
			return nil
		}

		language, ok := ix.parser.LanguageFor(path)
		if !ok {
			slog.Debug("skipping unsupported file", "path", rel)
			d.skipped = append(d.skipped, rel)
			return nil
		}
		if max := ix.cfg.Index.MaxFileBytes; max > 0 {
			if info, err := entry.Info(); err == nil && info.Size() > max {
				slog.Debug("skipping oversized file", "path", rel, "size", info.Size(), "limit", max)
				d.skipped = append(d.skipped, rel)
				return nil
			}
		}

		d.files = append(d.files, sourceFile{abs: path, rel: rel, language: language})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.AddContext(errors.Wrap(ctx.Err(), errors.CodeCanceled, "discovery canceled"), errors.CtxPath, root)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodePermissionDenied, "walk root"), errors.CtxPath, root)
	}
	return d, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
