package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writePrompt(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestListPrompts(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "math-tutor.md", "You are a math tutor.")
	writePrompt(t, dir, "code-review.md", "You review code.")
	writePrompt(t, dir, "notes.txt", "not a prompt")

	prompts, err := ListPrompts(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(prompts) != 2 {
		t.Fatalf("got %d prompts, want 2 (non-md files skipped)", len(prompts))
	}
	byID := map[string]Prompt{}
	for _, p := range prompts {
		byID[p.ID] = p
	}
	p, ok := byID["math-tutor"]
	if !ok {
		t.Fatal("math-tutor prompt missing")
	}
	if p.Name != "math tutor" {
		t.Errorf("name = %q, want dashes replaced with spaces", p.Name)
	}
	if p.Filename != "math-tutor.md" {
		t.Errorf("filename = %q", p.Filename)
	}
}

func TestListPromptsMissingDir(t *testing.T) {
	if _, err := ListPrompts(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestLoadPrompt(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "math-tutor.md", "You are a math tutor.")

	content, err := LoadPrompt(dir, "math-tutor")
	if err != nil {
		t.Fatal(err)
	}
	if content != "You are a math tutor." {
		t.Errorf("content = %q", content)
	}

	if _, err := LoadPrompt(dir, "missing"); !errors.Is(err, ErrPromptNotFound) {
		t.Errorf("err = %v, want ErrPromptNotFound", err)
	}
}

func TestLoadPromptRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"../secrets", "a/b", `a\b`, ""} {
		if _, err := LoadPrompt(dir, name); !errors.Is(err, ErrPromptNotFound) {
			t.Errorf("LoadPrompt(%q): err = %v, want ErrPromptNotFound", name, err)
		}
	}
}
