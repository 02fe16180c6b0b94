package dom

import (
	"fmt"

	"golang.org/x/net/html"
)

// Op is the type of mutation observed.
type Op string

const (
	OpInsert Op = "insert" // child nodes added
	OpRemove Op = "remove" // child nodes removed
	OpText   Op = "text"   // character data changed
	OpAttr   Op = "attr"   // attribute set or removed
)

// Record is a single mutation.
type Record struct {
	Op       Op
	Target   *html.Node   // parent for insert/remove, the node itself otherwise
	Nodes    []*html.Node // added or removed nodes
	Name     string       // attribute name for OpAttr
	OldValue string
}

// ObserverFunc receives the records of one delivery. It runs on the
// goroutine that performed the mutation and must not mutate the document.
type ObserverFunc func([]Record)

// Observation is the handle returned by Observe.
type Observation struct {
	doc *Document
	id  int
}

// Disconnect stops delivery. Safe to call twice.
func (o *Observation) Disconnect() {
	o.doc.obsMu.Lock()
	delete(o.doc.observers, o.id)
	o.doc.obsMu.Unlock()
}

// Observe registers fn for every future mutation of the document,
// including its shadow roots and frames.
func (d *Document) Observe(fn ObserverFunc) *Observation {
	d.obsMu.Lock()
	defer d.obsMu.Unlock()
	d.nextObs++
	d.observers[d.nextObs] = fn
	return &Observation{doc: d, id: d.nextObs}
}

// Batch runs fn and delivers every record it produced as one batch once fn
// returns. Nested calls deliver when the outermost one completes.
func (d *Document) Batch(fn func()) {
	d.depth++
	defer func() {
		d.depth--
		if d.depth == 0 {
			d.deliver()
		}
	}()
	fn()
}

func (d *Document) emit(rec Record) {
	d.pending = append(d.pending, rec)
	if d.depth == 0 {
		d.deliver()
	}
}

func (d *Document) deliver() {
	if len(d.pending) == 0 {
		return
	}
	records := d.pending
	d.pending = nil

	d.obsMu.Lock()
	fns := make([]ObserverFunc, 0, len(d.observers))
	for _, fn := range d.observers {
		fns = append(fns, fn)
	}
	d.obsMu.Unlock()

	for _, fn := range fns {
		fn(records)
	}
}

// InsertBefore inserts child into parent before ref (append when ref is nil).
func (d *Document) InsertBefore(parent, child, ref *html.Node) error {
	if child.Parent != nil {
		return fmt.Errorf("dom: insert %s: node already attached", Describe(child))
	}
	if ref != nil && ref.Parent != parent {
		return fmt.Errorf("dom: insert before %s: not a child of %s", Describe(ref), Describe(parent))
	}
	parent.InsertBefore(child, ref)
	d.emit(Record{Op: OpInsert, Target: parent, Nodes: []*html.Node{child}})
	return nil
}

// AppendChild appends child to parent.
func (d *Document) AppendChild(parent, child *html.Node) error {
	return d.InsertBefore(parent, child, nil)
}

// RemoveChild detaches child from parent.
func (d *Document) RemoveChild(parent, child *html.Node) error {
	if child.Parent != parent {
		return fmt.Errorf("dom: remove %s: not a child of %s", Describe(child), Describe(parent))
	}
	parent.RemoveChild(child)
	d.emit(Record{Op: OpRemove, Target: parent, Nodes: []*html.Node{child}})
	return nil
}

// Remove detaches n from its parent, if any.
func (d *Document) Remove(n *html.Node) error {
	if n.Parent == nil {
		return nil
	}
	return d.RemoveChild(n.Parent, n)
}

// ReplaceChild puts repl where old was.
func (d *Document) ReplaceChild(parent, repl, old *html.Node) error {
	if err := d.InsertBefore(parent, repl, old); err != nil {
		return err
	}
	return d.RemoveChild(parent, old)
}

// SetText changes the data of a text node.
func (d *Document) SetText(n *html.Node, text string) {
	if n.Data == text {
		return
	}
	old := n.Data
	n.Data = text
	d.emit(Record{Op: OpText, Target: n, OldValue: old})
}

// SetAttr sets an attribute.
func (d *Document) SetAttr(n *html.Node, key, val string) {
	old, had := lookupAttr(n, key)
	if had && old == val {
		return
	}
	setAttr(n, key, val)
	d.emit(Record{Op: OpAttr, Target: n, Name: key, OldValue: old})
}

// RemoveAttr deletes an attribute.
func (d *Document) RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			d.emit(Record{Op: OpAttr, Target: n, Name: key, OldValue: a.Val})
			return
		}
	}
}

// AddClass adds class to n's class list.
func (d *Document) AddClass(n *html.Node, class string) {
	if HasClass(n, class) {
		return
	}
	cur := Attr(n, "class")
	if cur == "" {
		d.SetAttr(n, "class", class)
		return
	}
	d.SetAttr(n, "class", cur+" "+class)
}

// RemoveClass drops class from n's class list.
func (d *Document) RemoveClass(n *html.Node, class string) {
	if !HasClass(n, class) {
		return
	}
	var kept []string
	for _, c := range Classes(n) {
		if c != class {
			kept = append(kept, c)
		}
	}
	d.SetAttr(n, "class", joinClasses(kept))
}

// Unwrap replaces el with its children.
func (d *Document) Unwrap(el *html.Node) error {
	parent := el.Parent
	if parent == nil {
		return nil
	}
	for c := el.FirstChild; c != nil; {
		next := c.NextSibling
		if err := d.RemoveChild(el, c); err != nil {
			return err
		}
		if err := d.InsertBefore(parent, c, el); err != nil {
			return err
		}
		c = next
	}
	return d.RemoveChild(parent, el)
}

// Normalize merges adjacent text nodes and drops empty ones in n's subtree.
func (d *Document) Normalize(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch c.Type {
		case html.TextNode:
			for next != nil && next.Type == html.TextNode {
				after := next.NextSibling
				d.SetText(c, c.Data+next.Data)
				_ = d.RemoveChild(n, next)
				next = after
			}
			if c.Data == "" {
				_ = d.RemoveChild(n, c)
			}
		case html.ElementNode:
			d.Normalize(c)
		}
		c = next
	}
}
