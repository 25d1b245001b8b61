// internal/position/element.go
package position

import "github.com/xkilldash9x/anchorpoint/api/schemas"

// Element is a read-only handle to a rendered element. Implementations must
// be comparable (pointer handles work) since the ancestor walk compares
// handles against the document root.
type Element interface {
	// BoundingClientRect returns the viewport-relative border box. ok is false
	// when the rendering engine reports no box at all.
	BoundingClientRect() (rect schemas.Rect, ok bool)
	OffsetWidth() float64
	OffsetHeight() float64
	// OffsetParent returns the native positioning parent, or nil when absent
	// (detached or fixed-position elements).
	OffsetParent() Element
	ClientTop() float64
	ClientLeft() float64
	ScrollTop() float64
	ScrollLeft() float64
}

// CurrentStyler is implemented by elements that expose the vendor-legacy
// currentStyle object.
type CurrentStyler interface {
	CurrentStyle(prop string) (string, bool)
}

// InlineStyler is implemented by elements that expose their inline style
// attribute.
type InlineStyler interface {
	InlineStyle(prop string) (string, bool)
}

// Document gives access to the two document-level handles the engine needs.
type Document interface {
	// Root is the document node itself. Offset-parent walks end here.
	Root() Element
	// DocumentElement is the scrolling root (<html>).
	DocumentElement() Element
}

// Window exposes the viewport scroll position.
type Window interface {
	PageXOffset() float64
	PageYOffset() float64
}

// ComputedStyler is implemented by windows that support getComputedStyle.
type ComputedStyler interface {
	ComputedStyle(el Element, prop string) (string, bool)
}

// ElementLookup resolves element ids (as used in placement requests) to handles.
type ElementLookup interface {
	Lookup(id string) (Element, bool)
}
