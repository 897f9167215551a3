package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/getAsterisk/stackwalk/internal/core/config"
	"github.com/getAsterisk/stackwalk/internal/engine/graph"
	"github.com/getAsterisk/stackwalk/internal/output"
	"github.com/getAsterisk/stackwalk/internal/shared/util"
)

type outputTargets struct {
	JSON    string
	YAML    string
	DOT     string
	Mermaid string
	TSV     string
}

func resolveOutputTargets(cfg *config.Config, root, dir string) outputTargets {
	project := strings.TrimSpace(cfg.Output.Project)
	if project == "" {
		project = filepath.Base(root)
	}
	path := func(enabled bool, suffix string) string {
		if !enabled {
			return ""
		}
		return filepath.Join(dir, project+suffix)
	}
	return outputTargets{
		JSON:    path(cfg.Output.JSON, ".json"),
		YAML:    path(cfg.Output.YAML, ".yaml"),
		DOT:     path(cfg.Output.DOT, "_call_graph.dot"),
		Mermaid: path(cfg.Output.Mermaid, "_call_graph.mmd"),
		TSV:     path(cfg.Output.TSV, "_call_graph.tsv"),
	}
}

// Report builds the JSON/YAML report of res.
func (r *Result) Report() *output.Report {
	rep := output.NewReport(r.RunID, r.Root, r.StartedAt, r.Blocks, r.Graph)
	rep.Diagnostics = r.DiagnosticRecords()
	rep.Skipped = r.Skipped
	return rep
}

// WriteOutputs renders every output enabled in cfg into dir and returns the
// written paths in a fixed order.
func WriteOutputs(res *Result, cfg *config.Config, dir string) ([]string, error) {
	targets := resolveOutputTargets(cfg, res.Root, dir)
	var written []string

	write := func(path, kind string, render func() (string, error)) error {
		if path == "" {
			return nil
		}
		content, err := render()
		if err != nil {
			return fmt.Errorf("generate %s output: %w", kind, err)
		}
		if err := util.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s output %q: %w", kind, path, err)
		}
		written = append(written, path)
		return nil
	}

	report := res.Report()
	steps := []struct {
		path   string
		kind   string
		render func() (string, error)
	}{
		{targets.JSON, "JSON", bytesRenderer(report.JSON)},
		{targets.YAML, "YAML", bytesRenderer(report.YAML)},
		{targets.DOT, "DOT", output.NewDOTGenerator(res.Graph).Generate},
		{targets.Mermaid, "Mermaid", output.NewMermaidGenerator(res.Graph).Generate},
		{targets.TSV, "TSV", output.NewTSVGenerator(res.Graph).Generate},
	}
	for _, s := range steps {
		if err := write(s.path, s.kind, s.render); err != nil {
			return written, err
		}
	}
	return written, nil
}

func bytesRenderer(fn func() ([]byte, error)) func() (string, error) {
	return func() (string, error) {
		data, err := fn()
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// OpenStore opens the SQLite store configured for root, or a no-op store
// when persistence is disabled.
func OpenStore(cfg *config.Config, root string) (graph.Store, error) {
	paths, err := config.ResolvePaths(cfg, root)
	if err != nil {
		return nil, err
	}
	if paths.DBPath == "" {
		return graph.NoopStore{}, nil
	}
	store, err := graph.OpenStore(paths.DBPath, cfg.DB.BusyTimeout)
	if err != nil {
		return nil, err
	}
	return store, nil
}
