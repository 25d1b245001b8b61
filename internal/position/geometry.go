// internal/position/geometry.go
package position

import "github.com/xkilldash9x/anchorpoint/api/schemas"

// RawRect reads the viewport-relative geometry of el. A zero (or missing)
// width or height falls back to the element's offset size, which is what
// inline elements without a box report.
func RawRect(el Element) schemas.Rect {
	rect, ok := el.BoundingClientRect()
	if !ok {
		rect = schemas.Rect{}
	}
	if rect.Width == 0 {
		rect.Width = el.OffsetWidth()
	}
	if rect.Height == 0 {
		rect.Height = el.OffsetHeight()
	}
	return rect
}

// Offset returns the document-relative rect of el: the viewport rect shifted
// by the current scroll of the document, so the result does not depend on
// where the page is scrolled to.
func (p *Positioner) Offset(el Element) schemas.Rect {
	rect := RawRect(el)
	x, y := p.pageOffset()
	rect.Top += y
	rect.Left += x
	return rect
}

// pageOffset prefers the window's page offset and falls back per axis to the
// document element's scroll position when the window reports zero.
func (p *Positioner) pageOffset() (x, y float64) {
	x, y = p.win.PageXOffset(), p.win.PageYOffset()
	if x != 0 && y != 0 {
		return x, y
	}
	docEl := p.doc.DocumentElement()
	if docEl == nil {
		return x, y
	}
	if x == 0 {
		x = docEl.ScrollLeft()
	}
	if y == 0 {
		y = docEl.ScrollTop()
	}
	return x, y
}
