package finder

import "iter"

// Library is the configured pattern library.
type Library struct {
	Categories []Category `yaml:"categories" json:"categories"`
}

// Category groups related patterns.
type Category struct {
	ID       string    `yaml:"id" json:"id"`
	Label    string    `yaml:"label" json:"label"`
	Patterns []Pattern `yaml:"patterns" json:"patterns"`
}

// Pattern is a named raw pattern.
type Pattern struct {
	ID      string   `yaml:"id" json:"id"`
	Label   string   `yaml:"label" json:"label"`
	Pattern string   `yaml:"pattern" json:"pattern"`
	Tags    []string `yaml:"tags" json:"tags,omitempty"`
}

// Lookup returns the pattern with id and the metadata stamped on its
// marks.
func (l Library) Lookup(id string) (Pattern, *PatternMetadata, bool) {
	for _, c := range l.Categories {
		for _, p := range c.Patterns {
			if p.ID == id {
				return p, &PatternMetadata{
					ID:            p.ID,
					Label:         p.Label,
					CategoryID:    c.ID,
					CategoryLabel: c.Label,
					Tags:          p.Tags,
				}, true
			}
		}
	}
	return Pattern{}, nil, false
}

// All yields every pattern with its category.
func (l Library) All() iter.Seq2[Category, Pattern] {
	return func(yield func(Category, Pattern) bool) {
		for _, c := range l.Categories {
			for _, p := range c.Patterns {
				if !yield(c, p) {
					return
				}
			}
		}
	}
}

// DefaultLibrary is used when the configuration defines no categories.
var DefaultLibrary = Library{Categories: []Category{
	{
		ID:    "contact",
		Label: "Contact details",
		Patterns: []Pattern{
			{ID: "email", Label: "Email address", Pattern: `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`, Tags: []string{"pii"}},
			{ID: "url", Label: "Web address", Pattern: `https?://[^\s<>"]+`},
		},
	},
	{
		ID:    "dates",
		Label: "Dates",
		Patterns: []Pattern{
			{ID: "iso-date", Label: "ISO 8601 date", Pattern: `\d{4}-\d{2}-\d{2}`},
		},
	},
}}
