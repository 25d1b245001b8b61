package schemas

import "time"

// RecordedSnapshot is one line of a snapshot recording. Seq starts at 1 for
// each run.
type RecordedSnapshot struct {
	RunID      string            `json:"runId"`
	Seq        int               `json:"seq"`
	CapturedAt time.Time         `json:"capturedAt"`
	Snapshot   LayoutSnapshot    `json:"snapshot"`
	Results    []PlacementResult `json:"results,omitempty"`
}
