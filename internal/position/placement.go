// internal/position/placement.go
package position

import (
	"strings"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
)

// ParsePlacement splits a "<place>[-<align>]" token. Unknown places become
// top, unknown or missing alignments become center.
func ParsePlacement(token string) schemas.PlacementSpec {
	parts := strings.Split(token, "-")
	spec := schemas.PlacementSpec{
		Place: schemas.Side(parts[0]),
		Align: schemas.SideCenter,
	}
	if len(parts) > 1 {
		spec.Align = schemas.Side(parts[1])
	}
	if !spec.Place.IsPlace() {
		spec.Place = schemas.SideTop
	}
	if !spec.Align.IsAlign() {
		spec.Align = schemas.SideCenter
	}
	return spec
}

// ComputeLeft returns the left coordinate of a target of the given width.
func ComputeLeft(spec schemas.PlacementSpec, host schemas.Rect, targetWidth float64) float64 {
	switch spec.Place {
	case schemas.SideLeft:
		return host.Left - targetWidth
	case schemas.SideRight:
		return host.Left + host.Width
	}

	// Vertical alignments on a horizontal axis snap to the right edge.
	switch spec.Align {
	case schemas.SideLeft:
		return host.Left
	case schemas.SideCenter:
		return host.Left + host.Width/2 - targetWidth/2
	default:
		return host.Left + host.Width - targetWidth
	}
}

// ComputeTop returns the top coordinate of a target of the given height.
func ComputeTop(spec schemas.PlacementSpec, host schemas.Rect, targetHeight float64) float64 {
	switch spec.Place {
	case schemas.SideTop:
		return host.Top - targetHeight
	case schemas.SideBottom:
		return host.Top + host.Height
	}

	switch spec.Align {
	case schemas.SideTop:
		return host.Top
	case schemas.SideCenter:
		return host.Top + host.Height/2 - targetHeight/2
	default:
		return host.Top + host.Height - targetHeight
	}
}

// Place computes the target offset for an already resolved host rect.
func Place(host schemas.Rect, targetWidth, targetHeight float64, token string) schemas.Offset {
	spec := ParsePlacement(token)
	return schemas.Offset{
		Top:  ComputeTop(spec, host, targetHeight),
		Left: ComputeLeft(spec, host, targetWidth),
	}
}
