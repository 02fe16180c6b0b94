package dom

import "golang.org/x/net/html"

// Viewport answers layout questions the tree alone cannot.
type Viewport interface {
	// InView reports whether n's box intersects the visible area.
	InView(n *html.Node) bool
	// ScrollIntoView centres n in the visible area.
	ScrollIntoView(n *html.Node)
}

// RecordingViewport keeps the list of scroll requests. Visible, when set,
// decides InView; otherwise nothing is considered on screen.
type RecordingViewport struct {
	Visible  func(n *html.Node) bool
	Scrolled []*html.Node
}

// InView implements Viewport.
func (v *RecordingViewport) InView(n *html.Node) bool {
	if v.Visible == nil {
		return false
	}
	return v.Visible(n)
}

// ScrollIntoView implements Viewport.
func (v *RecordingViewport) ScrollIntoView(n *html.Node) {
	v.Scrolled = append(v.Scrolled, n)
}
