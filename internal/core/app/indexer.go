package app

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/getAsterisk/stackwalk/internal/core/config"
	"github.com/getAsterisk/stackwalk/internal/core/errors"
	"github.com/getAsterisk/stackwalk/internal/engine/extract"
	"github.com/getAsterisk/stackwalk/internal/engine/graph"
	"github.com/getAsterisk/stackwalk/internal/engine/matcher"
	"github.com/getAsterisk/stackwalk/internal/engine/parser"
	"github.com/getAsterisk/stackwalk/internal/shared/observability"
	"github.com/getAsterisk/stackwalk/internal/shared/util"
)

// Indexer runs indexing passes over directory trees. One Indexer may run
// many passes; per-file results are cached between them and reused for files
// whose content did not change. IndexDirectory is not safe for concurrent
// use on the same Indexer.
type Indexer struct {
	cfg       *config.Config
	table     *matcher.Table
	parser    *parser.Parser
	extractor fileExtractor
	cache     *resultCache
	store     graph.Store
	workers   int
	now       func() time.Time

	excludeDirs  *util.Excludes
	excludeFiles *util.Excludes
}

// fileExtractor turns one parsed file into blocks and calls.
type fileExtractor interface {
	Extract(relPath, language string, root parser.Node) (*extract.FileResult, error)
}

type Option func(*Indexer)

// WithStore persists every completed run. Close closes the store.
func WithStore(store graph.Store) Option {
	return func(ix *Indexer) {
		if store != nil {
			ix.store = store
		}
	}
}

func WithWorkers(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.workers = n
		}
	}
}

// WithCacheSize overrides index.cache_size. Zero or less disables caching.
func WithCacheSize(n int) Option {
	return func(ix *Indexer) {
		ix.cache = newResultCache(n)
	}
}

// NewIndexer prepares grammars, matcher tables and exclude patterns for cfg.
// A nil cfg uses the built-in defaults.
func NewIndexer(cfg *config.Config, opts ...Option) (*Indexer, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	table := matcher.NewTable(cfg.Languages)
	for _, warning := range table.Validate() {
		slog.Warn("incomplete matcher table", "detail", warning)
	}

	p, err := parser.NewParser(cfg)
	if err != nil {
		return nil, err
	}
	excludeDirs, err := compileExcludes(cfg.Exclude.Dirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	excludeFiles, err := compileExcludes(cfg.Exclude.Files, "exclude file")
	if err != nil {
		return nil, err
	}

	ix := &Indexer{
		cfg:          cfg,
		table:        table,
		parser:       p,
		extractor:    extract.NewExtractor(table, cfg.Languages),
		cache:        newResultCache(cfg.Index.CacheSize),
		store:        graph.NoopStore{},
		workers:      cfg.Index.Workers,
		now:          time.Now,
		excludeDirs:  excludeDirs,
		excludeFiles: excludeFiles,
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.workers <= 0 {
		ix.workers = 1
	}
	return ix, nil
}

func (ix *Indexer) Config() *config.Config { return ix.cfg }

func (ix *Indexer) Parser() *parser.Parser { return ix.parser }

func (ix *Indexer) Table() *matcher.Table { return ix.table }

// CacheStats returns the hit and miss counts of the per-file result cache.
func (ix *Indexer) CacheStats() (hits, misses uint64) {
	return ix.cache.stats()
}

// IndexDirectory indexes cfg's languages under root once with a throwaway
// Indexer.
func IndexDirectory(ctx context.Context, cfg *config.Config, root string) (*Result, error) {
	ix, err := NewIndexer(cfg)
	if err != nil {
		return nil, err
	}
	return ix.IndexDirectory(ctx, root)
}

type fileWork struct {
	result      *extract.FileResult
	outcome     FileOutcome
	diagnostics []Diagnostic
}

// IndexDirectory discovers supported files under root, extracts them in
// parallel and resolves their calls into one graph. Per-file failures become
// diagnostics; only an unusable root or cancellation fail the run.
func (ix *Indexer) IndexDirectory(ctx context.Context, root string) (*Result, error) {
	abs, err := checkRoot(root)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.Tracer.Start(ctx, "Indexer.IndexDirectory",
		trace.WithAttributes(attribute.String("root", abs)))
	defer span.End()

	started := ix.now()
	res := &Result{
		RunID:     uuid.NewString(),
		Root:      abs,
		StartedAt: started,
	}

	found, err := ix.discoverPhase(ctx, abs)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	res.Skipped = found.skipped
	res.Diagnostics = append(res.Diagnostics, found.diagnostics...)
	observability.FilesTotal.WithLabelValues("skipped").Add(float64(len(found.skipped)))

	work, err := ix.extractPhase(ctx, found.files)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	results := make([]*extract.FileResult, 0, len(work))
	for _, w := range work {
		res.Files = append(res.Files, w.outcome)
		res.Diagnostics = append(res.Diagnostics, w.diagnostics...)
		if w.result != nil {
			results = append(results, w.result)
		}
	}

	run, g := ix.resolvePhase(ctx, results)
	res.Blocks = run.Blocks
	res.Graph = g
	res.CallStack = g.Stack
	res.Stats = summarize(res, g)
	res.Stats.Duration = time.Since(started)
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	res.Stats.HeapMB = mem.HeapAlloc / 1024 / 1024

	ix.persist(ctx, res)

	span.SetAttributes(
		attribute.Int("files", res.Stats.Files),
		attribute.Int("blocks", res.Stats.Blocks),
		attribute.Int("edges", res.Stats.Edges),
	)
	slog.Info("indexed directory",
		"root", abs,
		"files", res.Stats.Files,
		"cached", res.Stats.Cached,
		"failed", res.Stats.Failed,
		"blocks", res.Stats.Blocks,
		"edges", res.Stats.Edges,
		"duration", res.Stats.Duration,
	)
	return res, nil
}

func observePhase(phase string, start time.Time) {
	observability.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

func (ix *Indexer) discoverPhase(ctx context.Context, root string) (*discovery, error) {
	ctx, span := observability.Tracer.Start(ctx, "discover")
	defer span.End()
	defer observePhase("discover", time.Now())

	found, err := ix.discover(ctx, root)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("files", len(found.files)), attribute.Int("skipped", len(found.skipped)))
	return found, nil
}

// extractPhase runs indexFile over files on a bounded pool. Results keep the
// discovery order. Cancellation stops dispatching new files; files already
// started run to completion.
func (ix *Indexer) extractPhase(ctx context.Context, files []sourceFile) ([]fileWork, error) {
	ctx, span := observability.Tracer.Start(ctx, "extract")
	defer span.End()
	defer observePhase("extract", time.Now())

	work := make([]fileWork, len(files))
	g := new(errgroup.Group)
	g.SetLimit(ix.workers)
	for i, f := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			work[i] = ix.indexFile(f)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeCanceled, "indexing canceled"), errors.CtxOperation, "extract")
	}
	return work, nil
}

func (ix *Indexer) indexFile(f sourceFile) fileWork {
	w := fileWork{outcome: FileOutcome{Path: f.rel, Language: f.language}}

	src, err := os.ReadFile(f.abs)
	if err != nil {
		code := errors.CodeInternal
		if stderrors.Is(err, fs.ErrPermission) {
			code = errors.CodePermissionDenied
		}
		return ix.fail(w, errors.Wrap(err, code, "read file"))
	}

	hash := contentHash(src)
	if fr, ok := ix.cache.get(f.rel, hash); ok {
		w.result = fr
		w.outcome.Cached = true
		w.outcome.Blocks = len(fr.Blocks)
		w.outcome.Calls = len(fr.Calls)
		w.diagnostics = syntaxDiagnostics(fr)
		observability.FilesTotal.WithLabelValues("cached").Inc()
		return w
	}

	tree, err := ix.parser.Parse(f.language, src)
	if err != nil {
		return ix.fail(w, err)
	}
	defer tree.Close()

	fr, err := ix.extractor.Extract(f.rel, f.language, tree.Root())
	if err != nil {
		return ix.fail(w, err)
	}
	fr.SyntaxErrors = tree.HasError()
	ix.cache.put(f.rel, hash, fr)

	w.result = fr
	w.outcome.Blocks = len(fr.Blocks)
	w.outcome.Calls = len(fr.Calls)
	w.diagnostics = syntaxDiagnostics(fr)
	observability.FilesTotal.WithLabelValues("indexed").Inc()
	return w
}

func (ix *Indexer) fail(w fileWork, err error) fileWork {
	err = errors.AddContext(err, errors.CtxPath, w.outcome.Path)
	slog.Warn("failed to index file", "path", w.outcome.Path, "error", err)
	observability.FilesTotal.WithLabelValues("failed").Inc()
	w.outcome.Failed = true
	w.diagnostics = append(w.diagnostics, Diagnostic{
		Path:     w.outcome.Path,
		Severity: SeverityError,
		Code:     errors.CodeOf(err),
		Message:  err.Error(),
	})
	return w
}

func syntaxDiagnostics(fr *extract.FileResult) []Diagnostic {
	if !fr.SyntaxErrors {
		return nil
	}
	return []Diagnostic{{
		Path:     fr.Path,
		Severity: SeverityWarning,
		Code:     errors.CodeParseFailure,
		Message:  "syntax errors recovered; blocks may be incomplete",
	}}
}

func (ix *Indexer) resolvePhase(ctx context.Context, results []*extract.FileResult) (*graph.Run, *graph.CallGraph) {
	_, span := observability.Tracer.Start(ctx, "resolve")
	defer span.End()
	defer observePhase("resolve", time.Now())

	run := graph.Merge(results)
	g := graph.Build(run, graph.NewResolver(run, ix.cfg.Languages, graph.PolicyFromConfig(ix.cfg)))
	g.RecordMetrics()
	return run, g
}

// persist hands the run to the store. A store failure is reported as a
// diagnostic and does not fail the run.
func (ix *Indexer) persist(ctx context.Context, res *Result) {
	defer observePhase("persist", time.Now())

	snap := &graph.Snapshot{
		RunID:       res.RunID,
		Root:        res.Root,
		StartedAt:   res.StartedAt,
		Duration:    res.Stats.Duration,
		Files:       res.Stats.Files,
		Blocks:      res.Blocks,
		Graph:       res.Graph,
		Diagnostics: res.DiagnosticRecords(),
	}
	if err := ix.store.SaveResult(ctx, snap); err != nil {
		slog.Warn("failed to persist run", "run_id", res.RunID, "error", err)
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Code:     errors.CodeOf(err),
			Message:  "persist run: " + err.Error(),
		})
	}
}

func summarize(res *Result, g *graph.CallGraph) Stats {
	gs := g.Stats()
	s := Stats{
		Files:     len(res.Files),
		Skipped:   len(res.Skipped),
		Blocks:    gs.Blocks,
		Calls:     gs.Calls,
		Edges:     gs.Edges,
		Externals: gs.Externals,
	}
	for _, f := range res.Files {
		switch {
		case f.Failed:
			s.Failed++
		case f.Cached:
			s.Cached++
		default:
			s.Indexed++
		}
	}
	return s
}

func (ix *Indexer) Close() error {
	return ix.store.Close()
}
