package parser

import (
	"testing"

	"github.com/getAsterisk/stackwalk/internal/core/config"
	"github.com/getAsterisk/stackwalk/internal/core/errors"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewParser(config.Default())
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	return p
}

func findKind(n Node, kind string) Node {
	if n.Kind() == kind {
		return n
	}
	for _, child := range n.Children() {
		if found := findKind(child, kind); found != nil {
			return found
		}
	}
	return nil
}

func TestLanguageFor(t *testing.T) {
	p := newTestParser(t)

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"src/main.py", "python", true},
		{"lib/MOD.RS", "rust", true},
		{"web/app.tsx", "tsx", true},
		{"web/app.ts", "typescript", true},
		{"README.md", "", false},
		{"Makefile", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := p.LanguageFor(tt.path)
			if ok != tt.ok || got != tt.want {
				t.Errorf("LanguageFor(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParsePython(t *testing.T) {
	p := newTestParser(t)
	source := []byte("from utils import helper\n\ndef main():\n    helper()\n")

	tree, err := p.Parse("python", source)
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	root := tree.Root()
	if root.Kind() != "module" {
		t.Fatalf("expected module root, got %s", root.Kind())
	}
	if tree.HasError() {
		t.Error("expected error-free tree")
	}
	if span := root.Span(); span.StartByte != 0 || span.Start.Line != 1 {
		t.Errorf("unexpected root span %+v", span)
	}

	fn := findKind(root, "function_definition")
	if fn == nil {
		t.Fatal("expected a function_definition node")
	}
	names := fn.Field("name")
	if len(names) != 1 || names[0].Text() != "main" {
		t.Fatalf("expected name field main, got %v", names)
	}
	if fn.Span().Start.Line != 3 {
		t.Errorf("expected main on line 3, got %d", fn.Span().Start.Line)
	}

	imp := findKind(root, "import_from_statement")
	if imp == nil {
		t.Fatal("expected import_from_statement")
	}
	if mod := imp.Field("module_name"); len(mod) != 1 || mod[0].Text() != "utils" {
		t.Errorf("expected module_name utils, got %v", mod)
	}

	call := findKind(root, "call")
	if call == nil {
		t.Fatal("expected call node")
	}
	if fn := call.Field("function"); len(fn) != 1 || fn[0].Text() != "helper" {
		t.Errorf("expected call function helper, got %v", fn)
	}
}

func TestParseRustUseDeclaration(t *testing.T) {
	p := newTestParser(t)
	tree, err := p.Parse("rust", []byte("use foo::bar;\n\nfn main() { bar(); }\n"))
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	use := findKind(tree.Root(), "use_declaration")
	if use == nil {
		t.Fatal("expected use_declaration")
	}
	arg := use.Field("argument")
	if len(arg) != 1 || arg[0].Text() != "foo::bar" {
		t.Fatalf("expected argument foo::bar, got %v", arg)
	}
}

func TestParseRecoversFromSyntaxErrors(t *testing.T) {
	p := newTestParser(t)
	tree, err := p.Parse("python", []byte("def broken(:\n    pass\n"))
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	defer tree.Close()
	if !tree.HasError() {
		t.Error("expected HasError for malformed source")
	}
}

func TestParseUnknownLanguage(t *testing.T) {
	p := newTestParser(t)
	_, err := p.Parse("cobol", []byte("IDENTIFICATION DIVISION."))
	if !errors.IsCode(err, errors.CodeNotSupported) {
		t.Fatalf("expected NOT_SUPPORTED, got %v", err)
	}
}

func TestNewGrammarLoaderRejectsUnknownGrammar(t *testing.T) {
	_, err := NewGrammarLoader([]string{"python", "brainfuck"})
	if !errors.IsCode(err, errors.CodeNotSupported) {
		t.Fatalf("expected NOT_SUPPORTED, got %v", err)
	}
}

func TestGrammarLoaderLoadsEverySupportedGrammar(t *testing.T) {
	gl, err := NewGrammarLoader(SupportedGrammars())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range SupportedGrammars() {
		if _, ok := gl.Language(id); !ok {
			t.Errorf("expected grammar %s to be loaded", id)
		}
		if _, ok := gl.Pool(id); !ok {
			t.Errorf("expected pool for grammar %s", id)
		}
	}
}
