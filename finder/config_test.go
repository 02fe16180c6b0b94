package finder

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advfind.yaml")
	src := `
highlight:
  colors: ["red", "blue"]
behavior:
  reapply_debounce: 250ms
  persistent_highlights: false
library:
  categories:
    - id: ids
      label: Identifiers
      patterns:
        - id: ticket
          label: Ticket
          pattern: 'TCK-\d+'
          tags: [support]
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !slices.Equal(cfg.Highlight.Colors, []string{"red", "blue"}) {
		t.Errorf("colors: got %v", cfg.Highlight.Colors)
	}
	if cfg.Highlight.BaseClass != "afe-highlight" {
		t.Errorf("base class default: got %q", cfg.Highlight.BaseClass)
	}
	if cfg.Behavior.ReapplyDebounce != 250*time.Millisecond {
		t.Errorf("debounce: got %v", cfg.Behavior.ReapplyDebounce)
	}
	if cfg.Persistent() {
		t.Error("persistent: got true, want false")
	}
	if cfg.Behavior.ExcludeContextWords != 3 || cfg.Behavior.ExportContextChars != 100 {
		t.Errorf("behavior defaults: got %+v", cfg.Behavior)
	}
	p, meta, ok := cfg.Library.Lookup("ticket")
	if !ok || p.Pattern != `TCK-\d+` || meta.CategoryLabel != "Identifiers" {
		t.Errorf("library: got %+v %+v %v", p, meta, ok)
	}
	if _, _, ok := cfg.Library.Lookup("email"); ok {
		t.Error("configured library should replace the default one")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Persistent() {
		t.Error("persistent default: got false")
	}
	if len(cfg.Highlight.TermClasses) != 4 || cfg.Highlight.Colors[0] != "#ffff00" {
		t.Errorf("highlight defaults: got %+v", cfg.Highlight)
	}
	if cfg.Behavior.ReapplyDebounce != 500*time.Millisecond {
		t.Errorf("debounce: got %v", cfg.Behavior.ReapplyDebounce)
	}
	n := 0
	for range cfg.Library.All() {
		n++
	}
	if n != 3 {
		t.Errorf("default library: got %d patterns, want 3", n)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
