// internal/position/resolver.go
package position

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
)

// OffsetParent returns the closest non-statically positioned ancestor of el,
// starting from its native offset parent. It returns the document root when
// the chain runs out, when el has no offset parent, or when the walk is
// truncated (cycle or depth bound).
func (p *Positioner) OffsetParent(el Element) Element {
	root := p.doc.Root()
	seen := map[Element]struct{}{el: {}}
	current := el.OffsetParent()

	for depth := 0; current != nil; depth++ {
		if current == root {
			return root
		}
		if _, dup := seen[current]; dup {
			p.logger.Warn("Offset parent chain loops back on itself, treating as document root.",
				zap.Int("depth", depth))
			return root
		}
		if depth >= p.maxDepth {
			p.logger.Warn("Offset parent chain exceeds depth bound, treating as document root.",
				zap.Int("max_depth", p.maxDepth))
			return root
		}
		if !p.IsStaticPositioned(current) {
			return current
		}
		seen[current] = struct{}{}
		current = current.OffsetParent()
	}
	return root
}

// Position returns el's rect relative to its positioning ancestor's content
// box, accounting for that ancestor's border and scroll. When the ancestor is
// the document root this equals Offset(el).
func (p *Positioner) Position(el Element) schemas.Rect {
	rect := p.Offset(el)

	var origin schemas.Offset
	parent := p.OffsetParent(el)
	if parent != p.doc.Root() {
		parentRect := p.Offset(parent)
		origin.Top = parentRect.Top + parent.ClientTop() - parent.ScrollTop()
		origin.Left = parentRect.Left + parent.ClientLeft() - parent.ScrollLeft()
	}

	rect.Top -= origin.Top
	rect.Left -= origin.Left
	return rect
}
