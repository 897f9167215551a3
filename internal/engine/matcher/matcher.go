// Package matcher maps the logical roles the indexer understands onto the
// concrete grammar node kinds configured for each language.
package matcher

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/getAsterisk/stackwalk/internal/core/config"
)

type Role string

const (
	RoleModule             Role = "module"
	RoleClassDefinition    Role = "class_definition"
	RoleFunctionDefinition Role = "function_definition"
	RoleMethodDefinition   Role = "method_definition"
	RoleScopeDefinition    Role = "scope_definition"
	RoleCallExpression     Role = "call_expression"
	RoleImportStatement    Role = "import_statement"

	// Projection roles select a field or child of an already classified node.
	RoleCallTarget     Role = "call_target"
	RoleDefinitionName Role = "definition_name"
	RoleImportPath     Role = "import_path"
	RoleImportName     Role = "import_name"
	RoleImportAlias    Role = "import_alias"
)

// BlockRoles are checked in this order; the first configured match wins.
var BlockRoles = []Role{
	RoleModule,
	RoleClassDefinition,
	RoleMethodDefinition,
	RoleFunctionDefinition,
	RoleScopeDefinition,
}

var knownRoles = map[Role]bool{
	RoleModule:             true,
	RoleClassDefinition:    true,
	RoleFunctionDefinition: true,
	RoleMethodDefinition:   true,
	RoleScopeDefinition:    true,
	RoleCallExpression:     true,
	RoleImportStatement:    true,
	RoleCallTarget:         true,
	RoleDefinitionName:     true,
	RoleImportPath:         true,
	RoleImportName:         true,
	RoleImportAlias:        true,
}

// IsKnown reports whether r is part of the fixed role enumeration.
func IsKnown(r Role) bool {
	return knownRoles[r]
}

// IsBlockRole reports whether nodes with this role open a block.
func IsBlockRole(r Role) bool {
	for _, br := range BlockRoles {
		if br == r {
			return true
		}
	}
	return false
}

// Classification is the result of matching one node kind against a
// language's table.
type Classification struct {
	Block  Role // empty when the node does not open a block
	Call   bool
	Import bool
}

func (c Classification) IsZero() bool {
	return c.Block == "" && !c.Call && !c.Import
}

type languageTable struct {
	roles map[Role]config.Kinds
	// byKind caches the classification of every configured node kind.
	byKind map[string]Classification
}

// Table is the immutable per-run matcher table. It is safe for concurrent use.
type Table struct {
	languages map[string]*languageTable
}

// NewTable builds a Table from the enabled languages of cfg. Unknown roles
// are ignored.
func NewTable(languages map[string]config.Language) *Table {
	t := &Table{languages: make(map[string]*languageTable, len(languages))}
	for name, lang := range languages {
		if !lang.IsEnabled() {
			continue
		}
		lt := &languageTable{
			roles:  make(map[Role]config.Kinds, len(lang.Matchers)),
			byKind: make(map[string]Classification),
		}
		for rawRole, kinds := range lang.Matchers {
			role := Role(rawRole)
			if !IsKnown(role) {
				slog.Debug("ignoring unknown matcher role", "language", name, "role", rawRole)
				continue
			}
			lt.roles[role] = kinds
		}
		lt.index()
		t.languages[name] = lt
	}
	return t
}

func (lt *languageTable) index() {
	for i := len(BlockRoles) - 1; i >= 0; i-- {
		role := BlockRoles[i]
		for _, kind := range lt.roles[role] {
			c := lt.byKind[kind]
			c.Block = role
			lt.byKind[kind] = c
		}
	}
	for _, kind := range lt.roles[RoleCallExpression] {
		c := lt.byKind[kind]
		c.Call = true
		lt.byKind[kind] = c
	}
	for _, kind := range lt.roles[RoleImportStatement] {
		c := lt.byKind[kind]
		c.Import = true
		lt.byKind[kind] = c
	}
}

// Lookup returns the node kinds configured for role in language. The second
// result is false when the role is unconfigured, which is not an error.
func (t *Table) Lookup(language string, role Role) (config.Kinds, bool) {
	lt, ok := t.languages[language]
	if !ok {
		return nil, false
	}
	kinds, ok := lt.roles[role]
	if !ok || len(kinds) == 0 {
		return nil, false
	}
	return kinds, true
}

// Classify tests kind against every block and observation role of language.
func (t *Table) Classify(language, kind string) Classification {
	lt, ok := t.languages[language]
	if !ok {
		return Classification{}
	}
	return lt.byKind[kind]
}

// Has reports whether language is present in the table.
func (t *Table) Has(language string) bool {
	_, ok := t.languages[language]
	return ok
}

// Languages returns the configured language ids in sorted order.
func (t *Table) Languages() []string {
	out := make([]string, 0, len(t.languages))
	for name := range t.languages {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Roles returns the configured roles of language in sorted order.
func (t *Table) Roles(language string) []Role {
	lt, ok := t.languages[language]
	if !ok {
		return nil
	}
	out := make([]Role, 0, len(lt.roles))
	for role := range lt.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate reports node kinds that are claimed by more than one block role
// or by both the call and import roles of the same language. These are
// configuration warnings; classification still resolves them in BlockRoles
// order.
func (t *Table) Validate() []string {
	var warnings []string
	for _, name := range t.Languages() {
		lt := t.languages[name]
		owners := make(map[string][]Role)
		for _, role := range BlockRoles {
			for _, kind := range lt.roles[role] {
				owners[kind] = append(owners[kind], role)
			}
		}
		kinds := make([]string, 0, len(owners))
		for kind := range owners {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			if roles := owners[kind]; len(roles) > 1 {
				warnings = append(warnings, fmt.Sprintf("languages.%s: node kind %q is mapped to several block roles %v", name, kind, roles))
			}
		}
		for _, kind := range lt.roles[RoleCallExpression] {
			if lt.roles[RoleImportStatement].Contains(kind) {
				warnings = append(warnings, fmt.Sprintf("languages.%s: node kind %q is both a call and an import", name, kind))
			}
		}
	}
	return warnings
}
