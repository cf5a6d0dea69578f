package translator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testPrompts = `prompts:
  english_to_sql:
    description: custom
    system: "You write MariaDB SQL for the world database."
  explain:
    system: "Explain the query."
`

func writePrompts(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write prompts: %v", err)
	}
}

func TestDefaultPromptBook(t *testing.T) {
	b := DefaultPromptBook()

	p, ok := b.Get(DefaultPromptName)
	if !ok {
		t.Fatal("default prompt missing")
	}
	if !strings.Contains(p.System, "Return ONLY SQL") {
		t.Errorf("default prompt = %q", p.System)
	}
	if got := b.System("does-not-exist"); got != p.System {
		t.Error("unknown prompt should fall back to the default")
	}
}

func TestLoadPromptBook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	writePrompts(t, path, testPrompts)

	b, err := LoadPromptBook(path)
	if err != nil {
		t.Fatalf("LoadPromptBook() error = %v", err)
	}
	if got := b.System(DefaultPromptName); got != "You write MariaDB SQL for the world database." {
		t.Errorf("System() = %q", got)
	}
	if _, ok := b.Get("explain"); !ok {
		t.Error("explain prompt missing")
	}
	if len(b.Names()) != 2 {
		t.Errorf("Names() = %v, want 2 entries", b.Names())
	}
}

func TestLoadPromptBook_Errors(t *testing.T) {
	if _, err := LoadPromptBook(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadPromptBook() should fail for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	writePrompts(t, path, "prompts: [unclosed")
	if _, err := LoadPromptBook(path); err == nil {
		t.Error("LoadPromptBook() should fail for invalid YAML")
	}

	b, err := LoadPromptBook("")
	if err != nil || b == nil {
		t.Errorf("LoadPromptBook(\"\") = %v, %v; want default book", b, err)
	}
}

func TestPromptBook_HotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	writePrompts(t, path, testPrompts)

	b, err := LoadPromptBook(path)
	if err != nil {
		t.Fatalf("LoadPromptBook() error = %v", err)
	}

	reloaded := make(chan struct{}, 4)
	b.SetOnReload(func() { reloaded <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := b.StartWatching(ctx); err != nil {
		t.Fatalf("StartWatching() error = %v", err)
	}

	writePrompts(t, path, `prompts:
  english_to_sql:
    system: "Updated prompt."
`)

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("prompt book was not reloaded")
	}
	if got := b.System(DefaultPromptName); got != "Updated prompt." {
		t.Errorf("System() after reload = %q", got)
	}
}
