package extract

import (
	"strings"

	"github.com/getAsterisk/stackwalk/internal/core/config"
	"github.com/getAsterisk/stackwalk/internal/engine/parser"
)

// importRoles holds the projection kinds used to read import statements.
type importRoles struct {
	path  config.Kinds
	name  config.Kinds
	alias config.Kinds
}

// bindings derives local name bindings from an import statement.
//
// The statement's import_path projection, when present, is a prefix shared
// by every imported name. Each import_name node contributes one binding;
// when there are none the path itself is the imported name. A name node may
// carry its own path and alias, e.g. aliased imports or Go import specs.
func bindings(n parser.Node, roles importRoles, seg Segmenter) []ImportBinding {
	base := first(project(n, roles.path, true))
	names := project(n, roles.name, true)

	var prefix []string
	switch {
	case len(names) > 0 && base != nil:
		prefix = seg.Split(base.Text())
	case len(names) == 0 && base != nil:
		names = []parser.Node{base}
	case len(names) == 0:
		return nil
	}

	span := n.Span()
	var out []ImportBinding
	for _, nameNode := range names {
		var alias string
		if a := first(project(nameNode, roles.alias, true)); a != nil {
			alias = compact(a.Text())
		}

		target := nameNode
		if t := first(project(nameNode, roles.path, true)); t != nil {
			target = t
		} else if alias != "" {
			if t := first(project(nameNode, roles.name, false)); t != nil {
				target = t
			}
		}

		expanded := expandBraces(strings.TrimSpace(target.Text()))
		for _, text := range expanded {
			segs := append(append([]string(nil), prefix...), seg.Split(text)...)
			// "use a::{self, b}" imports module a itself under its own name.
			if len(segs) > 1 && seg.IsRelative(segs[len(segs)-1]) {
				segs = segs[:len(segs)-1]
			}
			if len(segs) == 0 {
				continue
			}

			local := segs[len(segs)-1]
			if alias != "" && len(expanded) == 1 {
				local = alias
			}
			if !bindable(local) {
				continue
			}
			out = append(out, ImportBinding{Local: local, Path: segs, Span: span})
		}
	}
	return out
}

// bindable rejects wildcard and blank imports, which bind no usable name.
func bindable(local string) bool {
	switch local {
	case "", "_", ".", "*":
		return false
	}
	return !strings.ContainsAny(local, "{},*")
}
