package schemas

// -- Geometry Schemas --

// Rect is a pixel rectangle. Top and Left are measured from an origin that
// depends on where the rect came from (viewport, document or an ancestor).
// Width and Height are never negative.
type Rect struct {
	Top    float64 `json:"top" yaml:"top"`
	Left   float64 `json:"left" yaml:"left"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Offset is the computed top/left coordinate pair for a target element.
type Offset struct {
	Top  float64 `json:"top" yaml:"top"`
	Left float64 `json:"left" yaml:"left"`
}

// -- Snapshot Schemas --

// StyleSources holds the three places a positioning style can be read from.
// A nil map means the source is not available in the hosting environment,
// which is different from an available source that has no value.
type StyleSources struct {
	Computed map[string]string `json:"computed,omitempty" yaml:"computed,omitempty"`
	Current  map[string]string `json:"current,omitempty" yaml:"current,omitempty"`
	Inline   map[string]string `json:"inline,omitempty" yaml:"inline,omitempty"`
}

// ElementSnapshot is a point-in-time read of a single element.
type ElementSnapshot struct {
	ID string `json:"id" yaml:"id"`
	// Rect is the viewport-relative bounding client rect. Nil when the
	// rendering engine reported no box.
	Rect         *Rect        `json:"rect,omitempty" yaml:"rect,omitempty"`
	OffsetWidth  float64      `json:"offsetWidth" yaml:"offset_width"`
	OffsetHeight float64      `json:"offsetHeight" yaml:"offset_height"`
	OffsetParent string       `json:"offsetParent,omitempty" yaml:"offset_parent,omitempty"`
	ClientTop    float64      `json:"clientTop" yaml:"client_top"`
	ClientLeft   float64      `json:"clientLeft" yaml:"client_left"`
	ScrollTop    float64      `json:"scrollTop" yaml:"scroll_top"`
	ScrollLeft   float64      `json:"scrollLeft" yaml:"scroll_left"`
	Style        StyleSources `json:"style" yaml:"style"`
}

// WindowSnapshot captures the window-level scroll position.
type WindowSnapshot struct {
	PageXOffset float64 `json:"pageXOffset" yaml:"page_x_offset"`
	PageYOffset float64 `json:"pageYOffset" yaml:"page_y_offset"`
	// ComputedStyle reports whether getComputedStyle exists on the window.
	ComputedStyle bool `json:"computedStyle" yaml:"computed_style"`
}

// LayoutSnapshot is everything the placement engine reads, captured in one go.
// The browser adapter produces it as JSON; hand-written fixtures use YAML.
type LayoutSnapshot struct {
	URL             string             `json:"url,omitempty" yaml:"url,omitempty"`
	Window          WindowSnapshot     `json:"window" yaml:"window"`
	DocumentElement ElementSnapshot    `json:"documentElement" yaml:"document_element"`
	Elements        []ElementSnapshot  `json:"elements" yaml:"elements"`
	Placements      []PlacementRequest `json:"placements,omitempty" yaml:"placements,omitempty"`
}
