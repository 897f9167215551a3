package extract

import (
	"path"
	"strings"

	"github.com/getAsterisk/stackwalk/internal/core/config"
)

// Segmenter splits qualified names and import paths into segments using a
// language's separators. Forward slashes always separate.
type Segmenter struct {
	separators []string
	extensions []string
	relative   []string
}

func NewSegmenter(lang config.Language) Segmenter {
	return Segmenter{
		separators: lang.Separators,
		extensions: lang.Extensions,
		relative:   lang.RelativePrefixes,
	}
}

// Split breaks text into non-empty segments. Quotes are stripped, as is a
// trailing source file extension of the language, and "." or ".." path
// components are dropped.
func (s Segmenter) Split(text string) []string {
	text = strings.Trim(strings.TrimSpace(text), "\"'`")
	lower := strings.ToLower(text)
	for _, ext := range s.extensions {
		if ext != "" && strings.HasSuffix(lower, ext) && len(text) > len(ext) {
			text = text[:len(text)-len(ext)]
			break
		}
	}
	for _, sep := range s.separators {
		if sep != "" && sep != "/" {
			text = strings.ReplaceAll(text, sep, "/")
		}
	}

	parts := strings.Split(text, "/")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "." || p == ".." {
			continue
		}
		out = append(out, p)
	}
	return out
}

// StripRelative drops leading segments that only anchor a path relative to
// the importing file or crate, such as "crate" or "super".
func (s Segmenter) StripRelative(segs []string) []string {
	for len(segs) > 0 && s.IsRelative(segs[0]) {
		segs = segs[1:]
	}
	return segs
}

func (s Segmenter) IsRelative(seg string) bool {
	for _, r := range s.relative {
		if seg == r {
			return true
		}
	}
	return false
}

// ModuleName is the name a file's implicit module block carries: the file
// stem, or the directory name for index files such as __init__.py.
func ModuleName(relPath string, lang config.Language) string {
	segs := ModuleSegments(relPath, lang)
	if len(segs) == 0 {
		return stem(relPath)
	}
	return segs[len(segs)-1]
}

// ModuleSegments is the slash-separated module path of relPath with the
// extension removed and a trailing index stem collapsed into its directory.
// With directory modules every file in a directory shares the directory's
// path.
func ModuleSegments(relPath string, lang config.Language) []string {
	p := path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	dir, file := path.Split(p)

	var segs []string
	for _, d := range strings.Split(strings.Trim(dir, "/"), "/") {
		if d != "" && d != "." {
			segs = append(segs, d)
		}
	}
	if lang.DirectoryModules {
		return segs
	}

	name := stem(file)
	for _, idx := range lang.IndexFiles {
		if name == idx && len(segs) > 0 {
			return segs
		}
	}
	return append(segs, name)
}

func stem(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}

// expandBraces expands one trailing brace group, so "a::{b, c}" becomes
// "a::b" and "a::c". Text without braces is returned unchanged; nested or
// malformed groups yield nothing.
func expandBraces(text string) []string {
	open := strings.IndexByte(text, '{')
	if open < 0 {
		if strings.ContainsAny(text, "},") {
			return nil
		}
		return []string{text}
	}
	closing := strings.LastIndexByte(text, '}')
	if closing < open || strings.TrimSpace(text[closing+1:]) != "" {
		return nil
	}
	inner := text[open+1 : closing]
	if strings.ContainsAny(inner, "{}") {
		return nil
	}

	prefix := text[:open]
	var out []string
	for _, item := range strings.Split(inner, ",") {
		item = strings.TrimSpace(item)
		if item == "" || strings.ContainsAny(item, " \t\n") {
			continue
		}
		out = append(out, prefix+item)
	}
	return out
}

// compact removes all whitespace from a node's text.
func compact(text string) string {
	return strings.Join(strings.Fields(text), "")
}
