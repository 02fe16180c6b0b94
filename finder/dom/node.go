package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attr returns the value of attribute key or "".
func Attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

// HasAttr reports whether n carries attribute key.
func HasAttr(n *html.Node, key string) bool {
	_, ok := lookupAttr(n, key)
	return ok
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Classes returns the class list of n.
func Classes(n *html.Node) []string {
	return strings.Fields(Attr(n, "class"))
}

// HasClass reports whether n's class list contains class.
func HasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, c := range Classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

func joinClasses(cs []string) string { return strings.Join(cs, " ") }

// TextContent concatenates every text node under n.
func TextContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// Contains reports whether n is root or one of its descendants.
func Contains(root, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}

// Closest returns the nearest ancestor of n (n included) whose tag is in
// tags, or nil. The search stops at shadow root boundaries.
func Closest(n *html.Node, tags map[string]bool) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if IsShadowRoot(n) {
			return nil
		}
		if tags[n.Data] {
			return n
		}
	}
	return nil
}

// IsShadowRoot reports whether n is a declarative shadow root template.
func IsShadowRoot(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Template && HasAttr(n, "shadowrootmode")
}

// IsOpenShadowRoot reports whether n is a shadow root open to script access.
func IsOpenShadowRoot(n *html.Node) bool {
	return IsShadowRoot(n) && strings.EqualFold(Attr(n, "shadowrootmode"), "open")
}

// Element builds a detached element with the given attributes.
func Element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// Text builds a detached text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Describe returns a short human label for n, used in errors and logs.
func Describe(n *html.Node) string {
	if n == nil {
		return "<nil>"
	}
	switch n.Type {
	case html.TextNode:
		s := n.Data
		if len(s) > 20 {
			s = s[:20] + "..."
		}
		return "#text " + strings.TrimSpace(s)
	case html.DocumentNode:
		return "#document"
	case html.ElementNode:
		if id := Attr(n, "id"); id != "" {
			return "<" + n.Data + "#" + id + ">"
		}
		return "<" + n.Data + ">"
	default:
		return "#node"
	}
}
