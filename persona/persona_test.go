package persona

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseWithFrontmatter(t *testing.T) {
	doc := `---
name: Felix
ack: "Fine, I'm Felix."
---
You are Felix, a sarcastic cat who answers reluctantly.`

	p, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.Name != "Felix" {
		t.Fatalf("Name = %q, want Felix", p.Name)
	}
	if p.Ack != "Fine, I'm Felix." {
		t.Fatalf("Ack = %q", p.Ack)
	}
	if p.Prompt != "You are Felix, a sarcastic cat who answers reluctantly." {
		t.Fatalf("Prompt = %q", p.Prompt)
	}
}

func TestParseWithoutFrontmatter(t *testing.T) {
	p, err := Parse("just a persona prompt\n")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.Name != "" || p.Ack != "" {
		t.Fatalf("expected empty frontmatter fields, got %+v", p)
	}
	if p.Prompt != "just a persona prompt" {
		t.Fatalf("Prompt = %q", p.Prompt)
	}
}

func TestParseInvalidFrontmatter(t *testing.T) {
	doc := "---\nname: [broken\n---\nbody"
	if _, err := Parse(doc); err == nil {
		t.Fatalf("Parse() expected error for invalid frontmatter")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persona.md")
	if err := os.WriteFile(path, []byte("---\nname: Felix\n---\nprompt body"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Name != "Felix" || p.Prompt != "prompt body" {
		t.Fatalf("Load() = %+v", p)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Fatalf("Load() expected error for missing file")
	}
}
