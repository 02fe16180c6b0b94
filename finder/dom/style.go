package dom

import (
	"strconv"
	"strings"

	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

// StyleResolver decides whether an element renders invisibly by itself.
// Ancestors are checked by the caller during descent.
type StyleResolver interface {
	Hidden(n *html.Node) bool
}

// InlineStyle resolves visibility from the hidden attribute and the inline
// style attribute. Stylesheet rules are not evaluated.
type InlineStyle struct{}

// Hidden implements StyleResolver.
func (InlineStyle) Hidden(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if HasAttr(n, "hidden") {
		return true
	}
	style := Attr(n, "style")
	if style == "" {
		return false
	}
	decls, err := parser.ParseDeclarations(terminate(style))
	if err != nil {
		return false
	}
	for _, d := range decls {
		val := strings.ToLower(strings.TrimSpace(d.Value))
		switch strings.ToLower(d.Property) {
		case "display":
			if val == "none" {
				return true
			}
		case "visibility":
			if val == "hidden" || val == "collapse" {
				return true
			}
		case "opacity":
			if f, err := strconv.ParseFloat(val, 64); err == nil && f == 0 {
				return true
			}
		case "width", "height":
			if isZeroLength(val) {
				return true
			}
		}
	}
	return false
}

// terminate appends the final ';' douceur needs to read the value of the
// last declaration.
func terminate(style string) string {
	style = strings.TrimSpace(style)
	if strings.HasSuffix(style, ";") {
		return style
	}
	return style + ";"
}

func isZeroLength(v string) bool {
	v = strings.TrimSuffix(v, "px")
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && f == 0
}

// StyleFunc adapts a function to StyleResolver.
type StyleFunc func(n *html.Node) bool

// Hidden implements StyleResolver.
func (f StyleFunc) Hidden(n *html.Node) bool { return f(n) }
