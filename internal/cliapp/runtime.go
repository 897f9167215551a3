package cliapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	coreapp "github.com/getAsterisk/stackwalk/internal/core/app"
	"github.com/getAsterisk/stackwalk/internal/core/config"
	"github.com/getAsterisk/stackwalk/internal/core/errors"
	"github.com/getAsterisk/stackwalk/internal/engine/matcher"
	"github.com/getAsterisk/stackwalk/internal/shared/observability"
)

// Run executes the command line and returns the process exit code.
func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	opts := &cliOptions{stdout: stdout, stderr: stderr}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
	return 0
}

func configureLogging(w io.Writer, verbose bool, format string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// loadConfig reads the explicit --config file, else the nearest config file
// above root, else the built-in defaults. Env overrides apply last.
func loadConfig(path, root string) (*config.Config, string, error) {
	if path == "" {
		path = config.FindConfigFile(root)
	}
	if path == "" {
		cfg := config.Default()
		config.ApplyEnvOverrides(cfg)
		return cfg, "", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	config.ApplyEnvOverrides(cfg)
	slog.Debug("loaded config", "path", path)
	return cfg, path, nil
}

func applyRunFlags(cfg *config.Config, opts *cliOptions) {
	if opts.dbPath != "" {
		cfg.DB.Enabled = true
		cfg.DB.Path = opts.dbPath
	}
	if opts.metricsAddr != "" {
		cfg.Observability.MetricsAddr = opts.metricsAddr
	}
}

// startObservability starts the metrics server and tracing exporter that cfg
// asks for and returns a function that shuts both down.
func startObservability(ctx context.Context, cfg *config.Config) (func(), error) {
	var cleanups []func(context.Context) error

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		srv := observability.NewServer(addr)
		if err := srv.Start(ctx); err != nil {
			return nil, fmt.Errorf("start metrics server: %w", err)
		}
		cleanups = append(cleanups, srv.Stop)
	}
	if cfg.Observability.EnableTracing && cfg.Observability.OTLPEndpoint != "" {
		shutdown, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
		if err != nil {
			slog.Warn("tracing disabled", "error", err)
		} else {
			cleanups = append(cleanups, shutdown)
		}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](shutdownCtx); err != nil {
				slog.Warn("observability shutdown failed", "error", err)
			}
		}
	}, nil
}

func newIndexer(cfg *config.Config, root string) (*coreapp.Indexer, error) {
	store, err := coreapp.OpenStore(cfg, root)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	ix, err := coreapp.NewIndexer(cfg, coreapp.WithStore(store))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return ix, nil
}

func writeOutputs(cfg *config.Config, res *coreapp.Result) ([]string, error) {
	paths, err := config.ResolvePaths(cfg, res.Root)
	if err != nil {
		return nil, err
	}
	return coreapp.WriteOutputs(res, cfg, paths.OutputDir)
}

func writeAndReport(opts *cliOptions, cfg *config.Config, res *coreapp.Result) error {
	written, err := writeOutputs(cfg, res)
	if err != nil {
		return err
	}
	printSummary(opts.stdout, res, written)
	return nil
}

func runIndex(ctx context.Context, opts *cliOptions, root string) error {
	cfg, _, err := loadConfig(opts.configPath, root)
	if err != nil {
		return err
	}
	applyRunFlags(cfg, opts)

	stopObservability, err := startObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopObservability()

	ix, err := newIndexer(cfg, root)
	if err != nil {
		return err
	}
	defer ix.Close()

	res, err := ix.IndexDirectory(ctx, root)
	if err != nil {
		return err
	}
	return writeAndReport(opts, cfg, res)
}

// runReporter receives every watch run together with the configuration it
// ran under.
type runReporter func(cfg *config.Config, res *coreapp.Result, err error)

// runWatch re-indexes root on source changes, printing a summary per run or
// feeding the dashboard with --ui.
func runWatch(ctx context.Context, opts *cliOptions, root string) error {
	cfg, cfgPath, err := loadConfig(opts.configPath, root)
	if err != nil {
		return err
	}
	applyRunFlags(cfg, opts)

	if opts.ui {
		restoreLogging, err := redirectLogging(opts)
		if err != nil {
			return err
		}
		defer restoreLogging()
	}

	stopObservability, err := startObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopObservability()

	if opts.ui {
		return runWatchUI(ctx, opts, root, func(ctx context.Context, report runReporter) error {
			return watchLoop(ctx, opts, cfg, cfgPath, root, report)
		})
	}
	return watchLoop(ctx, opts, cfg, cfgPath, root, func(cfg *config.Config, res *coreapp.Result, err error) {
		if err != nil {
			slog.Error("indexing failed", "root", root, "error", err)
			return
		}
		if err := writeAndReport(opts, cfg, res); err != nil {
			slog.Error("failed to write outputs", "error", err)
		}
	})
}

// watchLoop runs Indexer.Watch until ctx is done. When the config file
// changes the Indexer is rebuilt with the reloaded configuration.
func watchLoop(ctx context.Context, opts *cliOptions, cfg *config.Config, cfgPath, root string, report runReporter) error {
	reloaded := make(chan *config.Config, 1)
	if cfgPath != "" {
		cw := config.NewWatcher(cfgPath, func(next *config.Config) {
			applyRunFlags(next, opts)
			select {
			case reloaded <- next:
			default:
			}
		})
		if err := cw.Start(ctx); err != nil {
			slog.Warn("config hot reload disabled", "path", cfgPath, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	for {
		ix, err := newIndexer(cfg, root)
		if err != nil {
			return err
		}

		runCfg := cfg
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- ix.Watch(runCtx, root, func(res *coreapp.Result, err error) {
				report(runCfg, res, err)
			})
		}()

		var next *config.Config
		select {
		case next = <-reloaded:
			cancel()
			err = <-done
		case err = <-done:
			cancel()
		}
		_ = ix.Close()

		if err != nil {
			return err
		}
		if next == nil || ctx.Err() != nil {
			return nil
		}
		cfg = next
	}
}

func runImpact(ctx context.Context, opts *cliOptions, key, root string) error {
	cfg, _, err := loadConfig(opts.configPath, root)
	if err != nil {
		return err
	}
	ix, err := coreapp.NewIndexer(cfg)
	if err != nil {
		return err
	}
	defer ix.Close()

	res, err := ix.IndexDirectory(ctx, root)
	if err != nil {
		return err
	}
	report, err := res.Graph.AnalyzeImpact(key)
	if err != nil {
		return err
	}

	fmt.Fprintln(opts.stdout, titleStyle("impact "+report.Target))
	printKeys(opts.stdout, "direct", report.DirectCallers)
	printKeys(opts.stdout, "transitive", report.TransitiveCallers)

	if opts.chainFrom == "" {
		return nil
	}
	from, ok := res.Graph.Lookup(opts.chainFrom)
	if !ok {
		return errors.AddContext(errors.New(errors.CodeNotFound, "chain start not found"), errors.CtxSymbol, opts.chainFrom)
	}
	to, _ := res.Graph.Lookup(report.Target)
	chain, ok := res.Graph.FindCallChain(from, to)
	if !ok {
		fmt.Fprintf(opts.stdout, "%s%s\n", labelStyle.Render("chain"), statusStyle.Render("unreachable"))
		return nil
	}
	keys := make([]string, 0, len(chain))
	for _, id := range chain {
		keys = append(keys, res.Graph.Key(id))
	}
	fmt.Fprintf(opts.stdout, "%s%s\n", labelStyle.Render("chain"), strings.Join(keys, " -> "))
	return nil
}

func printKeys(w io.Writer, label string, keys []string) {
	if len(keys) == 0 {
		fmt.Fprintf(w, "%s%s\n", labelStyle.Render(label), statusStyle.Render("none"))
		return
	}
	for _, k := range keys {
		fmt.Fprintf(w, "%s%s\n", labelStyle.Render(label), k)
	}
}

func runLanguages(opts *cliOptions, root string) error {
	cfg, _, err := loadConfig(opts.configPath, root)
	if err != nil {
		return err
	}
	table := matcher.NewTable(cfg.Languages)

	for _, name := range slices.Sorted(maps.Keys(cfg.Languages)) {
		lang := cfg.Languages[name]
		state := successStyle.Render("enabled")
		if !lang.IsEnabled() {
			state = statusStyle.Render("disabled")
		}
		roles := make([]string, 0)
		for _, role := range table.Roles(name) {
			roles = append(roles, string(role))
		}
		fmt.Fprintf(opts.stdout, "%s %s\n", titleStyle(name), state)
		fmt.Fprintf(opts.stdout, "  %s%s\n", labelStyle.Render("grammar"), lang.Grammar)
		fmt.Fprintf(opts.stdout, "  %s%s\n", labelStyle.Render("extensions"), strings.Join(lang.Extensions, " "))
		fmt.Fprintf(opts.stdout, "  %s%s\n", labelStyle.Render("roles"), strings.Join(roles, " "))
	}
	for _, warning := range table.Validate() {
		fmt.Fprintf(opts.stdout, "%s %s\n", warningStyle.Render("warning"), warning)
	}
	return nil
}
