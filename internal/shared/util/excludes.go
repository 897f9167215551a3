package util

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Excludes is a compiled set of [exclude] globs. A pattern that contains a
// separator is anchored: it matches the slash path relative to the indexed
// root. Any other pattern matches the base name at every depth.
type Excludes struct {
	patterns []excludeGlob
}

type excludeGlob struct {
	g        glob.Glob
	anchored bool
}

// CompileExcludes compiles patterns such as "node_modules", "*.min.js" or
// "gen/**". Windows separators and a leading "./" are accepted.
func CompileExcludes(patterns []string) (*Excludes, error) {
	e := &Excludes{patterns: make([]excludeGlob, 0, len(patterns))}
	for _, p := range patterns {
		clean, anchored := cleanPattern(p)
		if clean == "" {
			continue
		}
		g, err := glob.Compile(clean, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		e.patterns = append(e.patterns, excludeGlob{g: g, anchored: anchored})
	}
	return e, nil
}

func cleanPattern(p string) (string, bool) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	anchored := strings.Contains(strings.TrimSuffix(p, "/"), "/")
	clean := path.Clean(p)
	if clean == "." {
		return "", false
	}
	return strings.TrimPrefix(clean, "./"), anchored
}

// Match reports whether the root-relative slash path rel is excluded. A nil
// set excludes nothing.
func (e *Excludes) Match(rel string) bool {
	if e == nil || rel == "" {
		return false
	}
	name := path.Base(rel)
	for _, p := range e.patterns {
		target := name
		if p.anchored {
			target = rel
		}
		if p.g.Match(target) {
			return true
		}
	}
	return false
}

func (e *Excludes) Len() int {
	if e == nil {
		return 0
	}
	return len(e.patterns)
}

// SlashRel returns target relative to root with forward slashes. ok is false
// when target lies outside root.
func SlashRel(root, target string) (string, bool) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	if rel == "." {
		return "", true
	}
	return rel, true
}
