package compose

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shotscribe/internal/config"
	"shotscribe/internal/services"
)

func TestBuiltinTemplatesAreValid(t *testing.T) {
	lib := NewLibrary("")
	for _, category := range Categories {
		result := lib.Validate(category, "default")
		if !result.Valid() {
			t.Fatalf("%s/default invalid: %v", category, result.Errors)
		}
	}
}

func TestValidateReportsMissingPieces(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, CategoryRewrite, "thin", "# Thin\n{original_script}\n")
	result := NewLibrary(dir).Validate(CategoryRewrite, "thin")
	if result.Valid() {
		t.Fatal("expected validation errors")
	}
	joined := strings.Join(result.Errors, "\n")
	for _, want := range []string{"{fields_definition}", "{user_instruction}", "output format"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %v", want, result.Errors)
		}
	}
}

func TestValidateMissingTemplate(t *testing.T) {
	result := NewLibrary("").Validate(CategoryBreakdown, "nope")
	if result.Valid() || !strings.Contains(result.Errors[0], "does not exist") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCustomTemplateShadowsBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, CategoryBreakdown, "default", "# Custom default\nbody")
	writeTemplate(t, dir, CategoryBreakdown, "story", "# Storyboard\nbody")
	lib := NewLibrary(dir)

	text, err := lib.Load(CategoryBreakdown, "default")
	if err != nil || !strings.HasPrefix(text, "# Custom default") {
		t.Fatalf("expected custom template, got %q %v", text, err)
	}
	list, err := lib.List(CategoryBreakdown)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Name != "default" || list[0].Builtin || list[1].Description != "Storyboard" {
		t.Fatalf("unexpected list %+v", list)
	}
	builtins, err := NewLibrary("").List(CategoryRewrite)
	if err != nil || len(builtins) != 1 || !builtins[0].Builtin || builtins[0].Description != "Script rewrite" {
		t.Fatalf("unexpected builtin list %+v %v", builtins, err)
	}
}

func TestLoadRejectsPathTraversal(t *testing.T) {
	if _, err := NewLibrary(t.TempDir()).Load(CategoryBreakdown, "../secret"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCopyTemplate(t *testing.T) {
	dir := t.TempDir()
	lib := NewLibrary(dir)
	dest, err := lib.Copy(CategoryBreakdown, "default", "mine")
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if dest != filepath.Join(dir, "breakdown", "mine.md") {
		t.Fatalf("unexpected destination %s", dest)
	}
	if !lib.Validate(CategoryBreakdown, "mine").Valid() {
		t.Fatal("copied template should validate")
	}
	if _, err := lib.Copy(CategoryBreakdown, "default", "mine"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if _, err := NewLibrary("").Copy(CategoryBreakdown, "default", "x"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error without templates dir, got %v", err)
	}
}

func TestRenderAndSplit(t *testing.T) {
	rendered := Render("Hello {name}, {missing} and {name}\n# User Prompt\n{task}", map[string]string{
		"name": "Ann",
		"task": "go",
	})
	if !strings.Contains(rendered, "Hello Ann, {missing} and Ann") {
		t.Fatalf("unexpected render %q", rendered)
	}
	system, user := SplitPrompt(rendered)
	if system != "Hello Ann, {missing} and Ann" || user != "go" {
		t.Fatalf("unexpected split %q / %q", system, user)
	}

	system, user = SplitPrompt("# 系统\n内容\n# 用户提示词\n")
	if system != "# 系统\n内容" || user != DefaultUserPrompt {
		t.Fatalf("unexpected chinese split %q / %q", system, user)
	}
	if _, user := SplitPrompt("no heading"); user != DefaultUserPrompt {
		t.Fatalf("expected default user prompt, got %q", user)
	}
}

func TestSplitOnlyMatchesLineStart(t *testing.T) {
	system, user := SplitPrompt("see the # User Prompt section\nbody")
	if user != DefaultUserPrompt || !strings.Contains(system, "body") {
		t.Fatalf("heading inside a line must not split: %q / %q", system, user)
	}
}

func TestRenderFields(t *testing.T) {
	out := RenderFields([]config.Field{
		{Key: "shot", Description: "number", Required: true},
		{Key: "framing", Description: "size", Type: "enum", Options: []string{"close-up", "wide"}},
		{Key: "visual", Description: "what", MinLength: 10, MaxLength: 50, Required: true},
	})
	want := "- **shot**: number (required)\n" +
		"- **framing**: size\n  - Options: close-up, wide\n" +
		"- **visual**: what\n  - Length: at least 10 characters, at most 50 characters (required)"
	if out != want {
		t.Fatalf("unexpected fields:\n%s\nwant:\n%s", out, want)
	}
}

func TestParseCategory(t *testing.T) {
	if c, err := ParseCategory(" Rewrite "); err != nil || c != CategoryRewrite {
		t.Fatalf("unexpected %v %v", c, err)
	}
	if _, err := ParseCategory("other"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func writeTemplate(t *testing.T, dir string, category Category, name, body string) {
	t.Helper()
	path := filepath.Join(dir, string(category), name+".md")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}
