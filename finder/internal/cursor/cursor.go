// Package cursor moves a "current" flag over the marks of a document with
// wrap-around next/previous navigation.
package cursor

import (
	"golang.org/x/net/html"

	"github.com/hazyhaar/advfind/finder/dom"
)

// None is the index when nothing is selected.
const None = -1

// Cursor is the navigation state over an ordered list of marks. The list is
// replaced wholesale by Reset after every apply.
type Cursor struct {
	doc   *dom.Document
	class string
	marks []*html.Node
	index int
}

// New creates a cursor flagging the selected mark with class.
func New(doc *dom.Document, class string) *Cursor {
	return &Cursor{doc: doc, class: class, index: None}
}

// Reset replaces the mark list, which must be in document order, and
// clears the selection.
func (c *Cursor) Reset(marks []*html.Node) {
	if c.index != None && c.index < len(c.marks) {
		c.doc.RemoveClass(c.marks[c.index], c.class)
	}
	c.marks = marks
	c.index = None
}

// Len returns the number of marks.
func (c *Cursor) Len() int { return len(c.marks) }

// Index returns the selected index or None.
func (c *Cursor) Index() int { return c.index }

// Current returns the selected mark or nil.
func (c *Cursor) Current() *html.Node {
	if c.index == None {
		return nil
	}
	return c.marks[c.index]
}

// Next selects the following mark, wrapping to the first.
func (c *Cursor) Next() int {
	n := len(c.marks)
	if n == 0 {
		return None
	}
	if c.index == None {
		return c.move(0)
	}
	return c.move((c.index + 1) % n)
}

// Previous selects the preceding mark, wrapping to the last.
func (c *Cursor) Previous() int {
	n := len(c.marks)
	if n == 0 {
		return None
	}
	if c.index == None {
		return c.move(n - 1)
	}
	return c.move((c.index - 1 + n) % n)
}

func (c *Cursor) move(i int) int {
	if c.index != None {
		c.doc.RemoveClass(c.marks[c.index], c.class)
	}
	c.index = i
	el := c.marks[i]
	c.doc.AddClass(el, c.class)
	if vp := c.doc.Viewport; vp != nil && !vp.InView(el) {
		vp.ScrollIntoView(el)
	}
	return i
}
