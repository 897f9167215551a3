package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/getAsterisk/stackwalk/internal/core/errors"
	"github.com/getAsterisk/stackwalk/internal/shared/util"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcher_RejectsBadPattern(t *testing.T) {
	_, err := NewWatcher(time.Millisecond, []string{"[unclosed"}, nil, func([]string) {})
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestWatcher_AnchoredExcludes(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(time.Millisecond, []string{"vendor/cache"}, []string{"gen/*.py"}, func([]string) {})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	w.roots = []string{root}

	if !w.shouldExcludeDir(filepath.Join(root, "vendor", "cache")) {
		t.Fatal("expected vendor/cache to be excluded")
	}
	if w.shouldExcludeDir(filepath.Join(root, "src", "cache")) {
		t.Fatal("anchored pattern must not match src/cache")
	}
	if !w.shouldExcludeFile(filepath.Join(root, "gen", "a.py")) {
		t.Fatal("expected gen/a.py to be excluded")
	}
	if w.shouldExcludeFile(filepath.Join(root, "a.py")) {
		t.Fatal("a.py at the root must not be excluded")
	}
}

func waitFor(t *testing.T, ch <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-ch:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change to %s", want)
		}
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(100*time.Millisecond, []string{"exclude_dir"}, []string{"*.exclude"}, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	testFile := filepath.Join(tmpDir, "test.py")
	if err := os.WriteFile(testFile, []byte("def f():\n    pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, testFile, 2*time.Second)

	excludeFile := filepath.Join(tmpDir, "test.exclude")
	if err := os.WriteFile(excludeFile, []byte("exclude me"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case paths := <-changedFiles:
		for _, p := range paths {
			if filepath.Base(p) == "test.exclude" {
				t.Error("excluded file triggered event")
			}
		}
	case <-time.After(500 * time.Millisecond):
	}

	subdir := filepath.Join(tmpDir, "newdir")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	subFile := filepath.Join(subdir, "nested.py")
	if err := os.WriteFile(subFile, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, subFile, 2*time.Second)
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(100*time.Millisecond, nil, nil, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	oldPath := filepath.Join(tmpDir, "old.rs")
	newPath := filepath.Join(tmpDir, "new.rs")
	if err := os.WriteFile(oldPath, []byte("fn main() {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, newPath, 2*time.Second)
}

func TestWatcher_ExtensionFilter(t *testing.T) {
	w, err := NewWatcher(10*time.Millisecond, nil, []string{"*.min.js"}, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.SetExtensions([]string{".py", " .RS "})

	tests := []struct {
		path    string
		exclude bool
	}{
		{"main.py", false},
		{"lib.rs", false},
		{"README.md", true},
		{"app.js", true},
	}
	for _, tt := range tests {
		if got := w.shouldExcludeFile(tt.path); got != tt.exclude {
			t.Errorf("shouldExcludeFile(%q) = %v, want %v", tt.path, got, tt.exclude)
		}
	}

	w.SetExtensions(nil)
	if w.shouldExcludeFile("app.js") {
		t.Error("expected every extension to pass with an empty filter")
	}
	if !w.shouldExcludeFile("app.min.js") {
		t.Error("expected exclude glob to apply without an extension filter")
	}
}

func TestWatcher_ContentHashing(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "hash_target.py")
	content := []byte("def main():\n    pass\n")
	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatal(err)
	}

	changedFiles := make(chan []string, 10)
	w, err := NewWatcher(50*time.Millisecond, nil, nil, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	// Rewriting identical content must not produce a batch.
	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case paths := <-changedFiles:
		t.Fatalf("unexpected batch for identical content: %v", paths)
	case <-time.After(300 * time.Millisecond):
	}

	if err := os.WriteFile(testFile, []byte("def main():\n    print(1)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, testFile, time.Second)
}

func TestWatcher_LimiterDelaysBatches(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 4)
	w, err := NewWatcher(20*time.Millisecond, nil, nil, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	// One token up front, then one every 400ms.
	w.SetLimiter(util.NewLimiter(2.5, 1))

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	first := filepath.Join(tmpDir, "a.py")
	if err := os.WriteFile(first, []byte("a = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, first, time.Second)

	start := time.Now()
	second := filepath.Join(tmpDir, "b.py")
	if err := os.WriteFile(second, []byte("b = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, second, 2*time.Second)
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("expected the second batch to be throttled, fired after %v", elapsed)
	}
}
