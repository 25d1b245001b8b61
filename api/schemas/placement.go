package schemas

// -- Placement Schemas --

// Side names an edge of the host, or its center when used as an alignment.
type Side string

const (
	SideTop    Side = "top"
	SideRight  Side = "right"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
	SideCenter Side = "center"
)

// IsPlace reports whether s is a valid place (any side but center).
func (s Side) IsPlace() bool {
	switch s {
	case SideTop, SideRight, SideBottom, SideLeft:
		return true
	}
	return false
}

// IsAlign reports whether s is a valid alignment.
func (s Side) IsAlign() bool {
	return s.IsPlace() || s == SideCenter
}

// PlacementSpec is the parsed form of a placement token like "bottom-right".
type PlacementSpec struct {
	Place Side `json:"place" yaml:"place"`
	Align Side `json:"align" yaml:"align"`
}

// String renders the spec back into token form.
func (p PlacementSpec) String() string {
	return string(p.Place) + "-" + string(p.Align)
}

// PlacementRequest asks for the position of Target relative to Host. Host and
// Target are element ids within a snapshot.
type PlacementRequest struct {
	Host         string `json:"host" yaml:"host"`
	Target       string `json:"target" yaml:"target"`
	Placement    string `json:"placement" yaml:"placement"`
	AppendToBody bool   `json:"appendToBody" yaml:"append_to_body"`
}

// PlacementResult is a fully resolved placement with the intermediate geometry
// that produced it.
type PlacementResult struct {
	Request      PlacementRequest `json:"request"`
	Spec         PlacementSpec    `json:"spec"`
	HostRect     Rect             `json:"hostRect"`
	TargetWidth  float64          `json:"targetWidth"`
	TargetHeight float64          `json:"targetHeight"`
	Offset       Offset           `json:"offset"`
}

// PlaceRequest is a pure placement computation over raw geometry.
type PlaceRequest struct {
	Host      Rect    `json:"host" yaml:"host"`
	Width     float64 `json:"width" yaml:"width"`
	Height    float64 `json:"height" yaml:"height"`
	Placement string  `json:"placement" yaml:"placement"`
}

// PlaceResponse carries the parsed token and the computed offset.
type PlaceResponse struct {
	Spec   PlacementSpec `json:"spec"`
	Offset Offset        `json:"offset"`
}

// EvaluateResponse lists results in request order.
type EvaluateResponse struct {
	URL     string            `json:"url,omitempty"`
	Results []PlacementResult `json:"results"`
}
