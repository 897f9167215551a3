package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getAsterisk/stackwalk/internal/core/config"
)

func TestWriteOutputs(t *testing.T) {
	root := pythonProject(t)
	cfg := config.Default()
	cfg.Output.Project = "demo"
	cfg.Output.JSON = true
	cfg.Output.YAML = true
	cfg.Output.DOT = true
	cfg.Output.Mermaid = true
	cfg.Output.TSV = true

	res, err := IndexDirectory(context.Background(), cfg, root)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	written, err := WriteOutputs(res, cfg, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "demo.json"),
		filepath.Join(dir, "demo.yaml"),
		filepath.Join(dir, "demo_call_graph.dot"),
		filepath.Join(dir, "demo_call_graph.mmd"),
		filepath.Join(dir, "demo_call_graph.tsv"),
	}, written)

	data, err := os.ReadFile(filepath.Join(dir, "demo.json"))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, res.RunID, decoded["run_id"])
	assert.Contains(t, decoded["skipped"], "notes.txt")
}

func TestWriteOutputsDefaultsProjectToRootName(t *testing.T) {
	root := pythonProject(t)
	cfg := config.Default()
	cfg.Output.JSON = false
	cfg.Output.DOT = true

	res, err := IndexDirectory(context.Background(), cfg, root)
	require.NoError(t, err)

	dir := t.TempDir()
	written, err := WriteOutputs(res, cfg, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, filepath.Base(root)+"_call_graph.dot")}, written)
}
