package cliapp

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/getAsterisk/stackwalk/internal/core/app"
	"github.com/getAsterisk/stackwalk/internal/core/config"
)

// runWatchUI shows watch runs in a full-screen dashboard. watch is started
// in the background and stopped when the dashboard quits.
func runWatchUI(ctx context.Context, opts *cliOptions, root string, watch func(context.Context, runReporter) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newDashboard(root), tea.WithAltScreen(), tea.WithContext(ctx),
		tea.WithOutput(opts.stdout))

	done := make(chan error, 1)
	go func() {
		err := watch(ctx, func(cfg *config.Config, res *app.Result, err error) {
			msg := runMsg{result: res, err: err}
			if err == nil {
				msg.written, msg.err = writeOutputs(cfg, res)
			}
			p.Send(msg)
		})
		done <- err
		p.Quit()
	}()

	_, runErr := p.Run()
	cancel()
	watchErr := <-done

	if watchErr != nil {
		return watchErr
	}
	if runErr != nil && !stderrors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}

// redirectLogging sends logs to a state file so they do not tear the
// dashboard. The returned function closes the file.
func redirectLogging(opts *cliOptions) (func(), error) {
	logPath := resolveLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir for %s: %w", logPath, err)
	}
	if fi, err := os.Lstat(logPath); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("refusing to write logs to symlink path %s", logPath)
	}
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", logPath, err)
	}
	if err := configureLogging(f, opts.verbose, opts.logFormat); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() {
		_ = configureLogging(io.Discard, opts.verbose, opts.logFormat)
		_ = f.Close()
	}, nil
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "stackwalk", "stackwalk.log")
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "stackwalk", "stackwalk.log")
	}
	return "stackwalk.log"
}
