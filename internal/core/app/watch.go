package app

import (
	"context"
	"log/slog"

	"github.com/getAsterisk/stackwalk/internal/core/watcher"
	"github.com/getAsterisk/stackwalk/internal/shared/util"
)

// Watch indexes root once, then re-indexes it after every debounced batch
// of source changes until ctx is done. Each run is a full IndexDirectory;
// unchanged files come from the result cache. onResult receives every run,
// including failed ones.
func (ix *Indexer) Watch(ctx context.Context, root string, onResult func(*Result, error)) error {
	abs, err := checkRoot(root)
	if err != nil {
		return err
	}

	runs := make(chan struct{}, 1)
	w, err := watcher.NewWatcher(ix.cfg.Watch.Debounce, ix.cfg.Exclude.Dirs, ix.cfg.Exclude.Files, func(paths []string) {
		slog.Info("source changes detected", "files", len(paths))
		select {
		case runs <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	w.SetExtensions(ix.parser.SupportedExtensions())
	w.SetLimiter(util.PerMinute(ix.cfg.Watch.MaxRunsPerMinute))
	if err := w.Watch([]string{abs}); err != nil {
		return err
	}

	onResult(ix.IndexDirectory(ctx, abs))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-runs:
			res, err := ix.IndexDirectory(ctx, abs)
			if ctx.Err() != nil {
				return nil
			}
			onResult(res, err)
		}
	}
}
