package finder

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/advfind/finder/internal/exclude"
	"github.com/hazyhaar/advfind/finder/internal/highlight"
	"github.com/hazyhaar/advfind/finder/internal/proximity"
	"github.com/hazyhaar/advfind/finder/internal/reactive"
	"github.com/hazyhaar/advfind/finder/internal/walker"
)

// Config is the top-level configuration.
type Config struct {
	Highlight HighlightConfig `yaml:"highlight"`
	Behavior  BehaviorConfig  `yaml:"behavior"`
	Walker    WalkerConfig    `yaml:"walker"`
	Store     StoreConfig     `yaml:"store"`
	Browser   BrowserConfig   `yaml:"browser"`
	Library   Library         `yaml:"library"`
}

// HighlightConfig is the class contract and its colours.
type HighlightConfig struct {
	Element        string   `yaml:"element"`
	BaseClass      string   `yaml:"base_class"`
	CurrentClass   string   `yaml:"current_class"`
	ProximityClass string   `yaml:"proximity_class"`
	TermClasses    []string `yaml:"term_classes"`
	Colors         []string `yaml:"colors"`
	ProximityColor string   `yaml:"proximity_color"`
	CurrentColor   string   `yaml:"current_color"`
}

// BehaviorConfig tunes matching and reactivity.
type BehaviorConfig struct {
	ExcludeContextWords  int           `yaml:"exclude_context_words"`
	ExportContextChars   int           `yaml:"export_context_chars"`
	ReapplyDebounce      time.Duration `yaml:"reapply_debounce"`
	PersistentHighlights *bool         `yaml:"persistent_highlights"`
}

// WalkerConfig tunes text enumeration.
type WalkerConfig struct {
	SkipTags      []string `yaml:"skip_tags"`
	ContainerTags []string `yaml:"container_tags"`
}

// StoreConfig locates the page-state database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// BrowserConfig controls page loading through Chrome.
type BrowserConfig struct {
	Remote  string        `yaml:"remote"`
	Stealth bool          `yaml:"stealth"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	var c Config
	c.applyDefaults()
	return c
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("finder: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("finder: parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	h := &c.Highlight
	if h.Element == "" {
		h.Element = "mark"
	}
	if h.BaseClass == "" {
		h.BaseClass = "afe-highlight"
	}
	if h.CurrentClass == "" {
		h.CurrentClass = "afe-highlight-current"
	}
	if h.ProximityClass == "" {
		h.ProximityClass = "afe-highlight-proximity"
	}
	if len(h.TermClasses) == 0 {
		h.TermClasses = []string{"afe-highlight-term-0", "afe-highlight-term-1", "afe-highlight-term-2", "afe-highlight-term-3"}
	}
	if len(h.Colors) == 0 {
		h.Colors = []string{"#ffff00", "#FFA07A", "#98FB98", "#ADD8E6"}
	}
	if h.ProximityColor == "" {
		h.ProximityColor = "lightgreen"
	}
	if h.CurrentColor == "" {
		h.CurrentColor = "lightblue"
	}

	b := &c.Behavior
	if b.ExcludeContextWords <= 0 {
		b.ExcludeContextWords = exclude.DefaultContextWords
	}
	if b.ExportContextChars <= 0 {
		b.ExportContextChars = 100
	}
	if b.ReapplyDebounce <= 0 {
		b.ReapplyDebounce = reactive.DefaultDebounce
	}
	if b.PersistentHighlights == nil {
		on := true
		b.PersistentHighlights = &on
	}

	if c.Walker.SkipTags == nil {
		c.Walker.SkipTags = walker.DefaultSkipTags
	}
	if c.Walker.ContainerTags == nil {
		c.Walker.ContainerTags = proximity.DefaultContainerTags
	}
	if c.Store.Path == "" {
		c.Store.Path = "advfind.db"
	}
	if c.Browser.Timeout <= 0 {
		c.Browser.Timeout = 30 * time.Second
	}
	if len(c.Library.Categories) == 0 {
		c.Library = DefaultLibrary
	}
}

// Persistent reports whether applied queries are saved per page.
func (c Config) Persistent() bool {
	return c.Behavior.PersistentHighlights != nil && *c.Behavior.PersistentHighlights
}

func (c Config) highlightConfig() highlight.Config {
	return highlight.Config{
		Element:             c.Highlight.Element,
		BaseClass:           c.Highlight.BaseClass,
		CurrentClass:        c.Highlight.CurrentClass,
		ProximityClass:      c.Highlight.ProximityClass,
		TermClasses:         c.Highlight.TermClasses,
		ContainerTags:       c.Walker.ContainerTags,
		SkipTags:            c.Walker.SkipTags,
		ExcludeContextWords: c.Behavior.ExcludeContextWords,
	}
}

func (c Config) palette() highlight.Palette {
	return highlight.Palette{
		Terms:     c.Highlight.Colors,
		Proximity: c.Highlight.ProximityColor,
		Current:   c.Highlight.CurrentColor,
	}
}
