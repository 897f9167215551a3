package graph

import (
	"path"
	"sort"

	"github.com/getAsterisk/stackwalk/internal/core/config"
	"github.com/getAsterisk/stackwalk/internal/engine/extract"
)

type moduleEntry struct {
	file string
	dir  string
	segs []string
}

// ModuleIndex maps module paths to the files that define them, per language.
type ModuleIndex struct {
	byLang map[string][]moduleEntry
}

func NewModuleIndex(run *Run, languages map[string]config.Language) *ModuleIndex {
	idx := &ModuleIndex{byLang: make(map[string][]moduleEntry)}
	for _, fr := range run.Files {
		lang := languages[fr.Language]
		idx.byLang[fr.Language] = append(idx.byLang[fr.Language], moduleEntry{
			file: fr.Path,
			dir:  path.Dir(fr.Path),
			segs: extract.ModuleSegments(fr.Path, lang),
		})
	}
	return idx
}

// Lookup returns the files of language whose module path and target share
// a common tail, best match first. Longer shared tails rank higher, then
// files closer to importer, then path order.
func (m *ModuleIndex) Lookup(language string, target []string, importer string) []string {
	if len(target) == 0 {
		return nil
	}
	importerDir := path.Dir(importer)

	type candidate struct {
		file      string
		matched   int
		proximity int
	}
	var found []candidate
	for _, e := range m.byLang[language] {
		n := sharedTail(e.segs, target)
		if n == 0 || (n < len(e.segs) && n < len(target)) {
			continue
		}
		found = append(found, candidate{
			file:      e.file,
			matched:   n,
			proximity: sharedDirPrefix(e.dir, importerDir),
		})
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].matched != found[j].matched {
			return found[i].matched > found[j].matched
		}
		if found[i].proximity != found[j].proximity {
			return found[i].proximity > found[j].proximity
		}
		return found[i].file < found[j].file
	})

	out := make([]string, len(found))
	for i, c := range found {
		out[i] = c.file
	}
	return out
}

// Siblings returns the other files of language in file's directory, in path
// order.
func (m *ModuleIndex) Siblings(language, file string) []string {
	dir := path.Dir(file)
	var out []string
	for _, e := range m.byLang[language] {
		if e.dir == dir && e.file != file {
			out = append(out, e.file)
		}
	}
	sort.Strings(out)
	return out
}

// sharedTail counts equal trailing segments.
func sharedTail(a, b []string) int {
	n := 0
	for i, j := len(a)-1, len(b)-1; i >= 0 && j >= 0 && a[i] == b[j]; i, j = i-1, j-1 {
		n++
	}
	return n
}

func sharedDirPrefix(a, b string) int {
	if a == "." || b == "." {
		return 0
	}
	as, bs := splitDir(a), splitDir(b)
	n := 0
	for n < len(as) && n < len(bs) && as[n] == bs[n] {
		n++
	}
	return n
}

func splitDir(dir string) []string {
	var out []string
	for dir != "." && dir != "/" && dir != "" {
		out = append([]string{path.Base(dir)}, out...)
		dir = path.Dir(dir)
	}
	return out
}
