package highlight

import (
	"fmt"
	"strings"
)

// Palette holds the colours of the class contract.
type Palette struct {
	Terms     []string
	Proximity string
	Current   string
}

// StyleSheet renders the CSS for the configured classes. Term colours cycle
// like term classes do; the current rule comes last so it wins.
func StyleSheet(cfg Config, p Palette) string {
	cfg.defaults()
	var sb strings.Builder
	fmt.Fprintf(&sb, ".%s { color: black; }\n", cfg.BaseClass)
	if len(p.Terms) > 0 {
		for i, class := range cfg.TermClasses {
			fmt.Fprintf(&sb, ".%s { background-color: %s; }\n", class, p.Terms[i%len(p.Terms)])
		}
	}
	if p.Proximity != "" {
		fmt.Fprintf(&sb, ".%s { background-color: %s; }\n", cfg.ProximityClass, p.Proximity)
	}
	if p.Current != "" {
		fmt.Fprintf(&sb, ".%s.%s { background-color: %s; outline: 2px solid %s; }\n",
			cfg.BaseClass, cfg.CurrentClass, p.Current, p.Current)
	}
	return sb.String()
}
