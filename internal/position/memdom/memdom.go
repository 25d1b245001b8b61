// Package memdom is an in-memory element tree that satisfies the position
// collaborator interfaces. It backs fixture files and browser snapshots.
package memdom

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
	"github.com/xkilldash9x/anchorpoint/internal/position"
)

// RootID is the reserved id of the document node.
const RootID = "#document"

// defaultDocumentElementID is used when a snapshot leaves the id empty.
const defaultDocumentElementID = "html"

var (
	// ErrDuplicateID is returned when two snapshot elements share an id.
	ErrDuplicateID = errors.New("memdom: duplicate element id")
	// ErrMissingID is returned for snapshot elements without an id.
	ErrMissingID = errors.New("memdom: element without id")
	// ErrUnknownParent is returned when an offset parent id does not resolve.
	ErrUnknownParent = errors.New("memdom: unknown offset parent")
)

// Node is a single element. Handles are pointers, so they compare by identity.
type Node struct {
	id           string
	rect         *schemas.Rect
	offsetWidth  float64
	offsetHeight float64
	parent       *Node
	clientTop    float64
	clientLeft   float64
	scrollTop    float64
	scrollLeft   float64
	style        schemas.StyleSources
}

var (
	_ position.Element       = (*Node)(nil)
	_ position.CurrentStyler = (*Node)(nil)
	_ position.InlineStyler  = (*Node)(nil)
)

func newNode(s schemas.ElementSnapshot) *Node {
	n := &Node{
		id:           s.ID,
		offsetWidth:  s.OffsetWidth,
		offsetHeight: s.OffsetHeight,
		clientTop:    s.ClientTop,
		clientLeft:   s.ClientLeft,
		scrollTop:    s.ScrollTop,
		scrollLeft:   s.ScrollLeft,
		style:        s.Style,
	}
	if s.Rect != nil {
		r := *s.Rect
		n.rect = &r
	}
	return n
}

// ID returns the element id.
func (n *Node) ID() string { return n.id }

func (n *Node) BoundingClientRect() (schemas.Rect, bool) {
	if n.rect == nil {
		return schemas.Rect{}, false
	}
	return *n.rect, true
}

func (n *Node) OffsetWidth() float64  { return n.offsetWidth }
func (n *Node) OffsetHeight() float64 { return n.offsetHeight }
func (n *Node) ClientTop() float64    { return n.clientTop }
func (n *Node) ClientLeft() float64   { return n.clientLeft }
func (n *Node) ScrollTop() float64    { return n.scrollTop }
func (n *Node) ScrollLeft() float64   { return n.scrollLeft }

// OffsetParent returns an untyped nil when there is no parent so callers can
// compare against nil.
func (n *Node) OffsetParent() position.Element {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *Node) CurrentStyle(prop string) (string, bool) {
	if n.style.Current == nil {
		return "", false
	}
	v, ok := n.style.Current[prop]
	return v, ok
}

func (n *Node) InlineStyle(prop string) (string, bool) {
	if n.style.Inline == nil {
		return "", false
	}
	v, ok := n.style.Inline[prop]
	return v, ok
}

// SetScroll moves the element's own scroll position.
func (n *Node) SetScroll(top, left float64) {
	n.scrollTop, n.scrollLeft = top, left
}

// SetRect replaces the bounding client rect. Nil clears it.
func (n *Node) SetRect(r *schemas.Rect) {
	if r == nil {
		n.rect = nil
		return
	}
	c := *r
	n.rect = &c
}

// SetOffsetParent relinks the element. Nil detaches it.
func (n *Node) SetOffsetParent(parent *Node) {
	n.parent = parent
}

// Document is an element tree plus its root and scrolling element.
type Document struct {
	root   *Node
	docEl  *Node
	nodes  map[string]*Node
	window *Window
}

var (
	_ position.Document      = (*Document)(nil)
	_ position.ElementLookup = (*Document)(nil)
)

func (d *Document) Root() position.Element            { return d.root }
func (d *Document) DocumentElement() position.Element { return d.docEl }

// Window returns the window the document was built with.
func (d *Document) Window() *Window { return d.window }

// Lookup resolves an element id, including RootID and the document element.
func (d *Document) Lookup(id string) (position.Element, bool) {
	n, ok := d.Node(id)
	if !ok {
		return nil, false
	}
	return n, true
}

// Node returns the concrete node for id.
func (d *Document) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Window holds the viewport scroll position.
type Window struct {
	pageX, pageY float64
	computed     bool
}

var (
	_ position.Window         = (*Window)(nil)
	_ position.ComputedStyler = (*Window)(nil)
)

func (w *Window) PageXOffset() float64 { return w.pageX }
func (w *Window) PageYOffset() float64 { return w.pageY }

// SetPageOffset scrolls the window.
func (w *Window) SetPageOffset(x, y float64) {
	w.pageX, w.pageY = x, y
}

// ComputedStyle reads the computed style map of a memdom node. It reports
// nothing when the window was captured without getComputedStyle.
func (w *Window) ComputedStyle(el position.Element, prop string) (string, bool) {
	if !w.computed {
		return "", false
	}
	n, ok := el.(*Node)
	if !ok || n.style.Computed == nil {
		return "", false
	}
	v, ok := n.style.Computed[prop]
	return v, ok
}

// FromSnapshot builds a document from a snapshot. Offset parent ids are
// resolved after all elements exist, so forward and self references work.
func FromSnapshot(snap *schemas.LayoutSnapshot) (*Document, error) {
	docElSnap := snap.DocumentElement
	if docElSnap.ID == "" {
		docElSnap.ID = defaultDocumentElementID
	}

	doc := &Document{
		root:  &Node{id: RootID},
		docEl: newNode(docElSnap),
		nodes: make(map[string]*Node, len(snap.Elements)+2),
		window: &Window{
			pageX:    snap.Window.PageXOffset,
			pageY:    snap.Window.PageYOffset,
			computed: snap.Window.ComputedStyle,
		},
	}
	doc.nodes[RootID] = doc.root
	doc.nodes[doc.docEl.id] = doc.docEl

	for i, es := range snap.Elements {
		if es.ID == "" {
			return nil, fmt.Errorf("element %d: %w", i, ErrMissingID)
		}
		if _, exists := doc.nodes[es.ID]; exists {
			return nil, fmt.Errorf("element %q: %w", es.ID, ErrDuplicateID)
		}
		doc.nodes[es.ID] = newNode(es)
	}

	link := func(es schemas.ElementSnapshot) error {
		if es.OffsetParent == "" {
			return nil
		}
		parent, ok := doc.nodes[es.OffsetParent]
		if !ok {
			return fmt.Errorf("element %q references %q: %w", es.ID, es.OffsetParent, ErrUnknownParent)
		}
		doc.nodes[es.ID].parent = parent
		return nil
	}
	if err := link(docElSnap); err != nil {
		return nil, err
	}
	for _, es := range snap.Elements {
		if err := link(es); err != nil {
			return nil, err
		}
	}
	return doc, nil
}
