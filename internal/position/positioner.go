// internal/position/positioner.go
package position

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
)

// DefaultMaxAncestorDepth bounds the offset parent walk.
const DefaultMaxAncestorDepth = 256

// ErrUnknownElement is returned by Evaluate when a request names an element
// the lookup cannot resolve.
var ErrUnknownElement = errors.New("position: unknown element")

// Positioner computes element placement against an injected document and
// window. It holds no mutable state and is safe for concurrent use as long as
// the collaborators are.
type Positioner struct {
	doc      Document
	win      Window
	logger   *zap.Logger
	probes   []StyleProbe
	maxDepth int
}

// Option configures a Positioner.
type Option func(*Positioner)

// WithStyleProbes replaces the style probe chain.
func WithStyleProbes(probes ...StyleProbe) Option {
	return func(p *Positioner) {
		p.probes = probes
	}
}

// WithMaxAncestorDepth sets the walk bound. Non-positive values are ignored.
func WithMaxAncestorDepth(depth int) Option {
	return func(p *Positioner) {
		if depth > 0 {
			p.maxDepth = depth
		}
	}
}

// New creates a Positioner. A nil logger is replaced with a no-op logger.
func New(doc Document, win Window, logger *zap.Logger, opts ...Option) *Positioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Positioner{
		doc:      doc,
		win:      win,
		logger:   logger.Named("position"),
		maxDepth: DefaultMaxAncestorDepth,
	}
	// The default names are all known, so this cannot fail.
	p.probes, _ = ProbesByName(win, DefaultProbeOrder)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PositionElements returns the coordinates for target relative to host. When
// appendToBody is set the target is rendered under the document root and
// needs document-relative coordinates; otherwise it sits in normal flow next
// to host and needs coordinates relative to host's positioning ancestor.
func (p *Positioner) PositionElements(host, target Element, token string, appendToBody bool) schemas.Offset {
	var hostRect schemas.Rect
	if appendToBody {
		hostRect = p.Offset(host)
	} else {
		hostRect = p.Position(host)
	}
	return Place(hostRect, target.OffsetWidth(), target.OffsetHeight(), token)
}

// Evaluate resolves a request against elements found through lookup and
// returns the placement together with the geometry it was derived from.
func (p *Positioner) Evaluate(req schemas.PlacementRequest, lookup ElementLookup) (schemas.PlacementResult, error) {
	host, ok := lookup.Lookup(req.Host)
	if !ok {
		return schemas.PlacementResult{}, fmt.Errorf("host %q: %w", req.Host, ErrUnknownElement)
	}
	target, ok := lookup.Lookup(req.Target)
	if !ok {
		return schemas.PlacementResult{}, fmt.Errorf("target %q: %w", req.Target, ErrUnknownElement)
	}

	spec := ParsePlacement(req.Placement)
	var hostRect schemas.Rect
	if req.AppendToBody {
		hostRect = p.Offset(host)
	} else {
		hostRect = p.Position(host)
	}
	width, height := target.OffsetWidth(), target.OffsetHeight()

	result := schemas.PlacementResult{
		Request:      req,
		Spec:         spec,
		HostRect:     hostRect,
		TargetWidth:  width,
		TargetHeight: height,
		Offset: schemas.Offset{
			Top:  ComputeTop(spec, hostRect, height),
			Left: ComputeLeft(spec, hostRect, width),
		},
	}
	p.logger.Debug("Resolved placement.",
		zap.String("host", req.Host),
		zap.String("target", req.Target),
		zap.Stringer("spec", spec),
		zap.Bool("append_to_body", req.AppendToBody),
		zap.Float64("top", result.Offset.Top),
		zap.Float64("left", result.Offset.Left))
	return result, nil
}
