// internal/engine/engine_test.go
package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
	"github.com/xkilldash9x/anchorpoint/internal/config"
	"github.com/xkilldash9x/anchorpoint/internal/position"
)

func positioned(value string) schemas.StyleSources {
	return schemas.StyleSources{Computed: map[string]string{"position": value}}
}

// layout places a host inside a bordered, scrolled, relatively positioned
// container. In container coordinates the host sits at {58, 42}; in document
// coordinates at {100, 60}.
func layout(placements ...schemas.PlacementRequest) *schemas.LayoutSnapshot {
	return &schemas.LayoutSnapshot{
		URL:    "http://fixture.test/",
		Window: schemas.WindowSnapshot{ComputedStyle: true},
		Elements: []schemas.ElementSnapshot{
			{ID: "body", Rect: &schemas.Rect{Width: 800, Height: 600}, Style: positioned("static")},
			{
				ID: "container", Rect: &schemas.Rect{Top: 50, Left: 20, Width: 400, Height: 300}, OffsetParent: "body",
				ClientTop: 2, ClientLeft: 3, ScrollTop: 10, ScrollLeft: 5,
				Style: positioned("relative"),
			},
			{ID: "host", Rect: &schemas.Rect{Top: 100, Left: 60, Width: 40, Height: 20}, OffsetParent: "container"},
			{ID: "tip", OffsetWidth: 10, OffsetHeight: 6, OffsetParent: "body"},
		},
		Placements: placements,
	}
}

func newEngine(t *testing.T, mutate ...func(*config.Config)) *Engine {
	t.Helper()
	cfg := config.NewDefaultConfig()
	for _, m := range mutate {
		m(cfg)
	}
	e, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return e
}

func TestNew_ValidatesDependencies(t *testing.T) {
	_, err := New(nil, zaptest.NewLogger(t))
	assert.Error(t, err)
	_, err = New(config.NewDefaultConfig(), nil)
	assert.Error(t, err)
}

func TestEvaluateSnapshot(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := newEngine(t, func(c *config.Config) { c.SimulateCfg.Concurrency = 2 })
	snap := layout(
		schemas.PlacementRequest{Host: "host", Target: "tip", Placement: "bottom-left"},
		schemas.PlacementRequest{Host: "host", Target: "tip", Placement: "bottom-left", AppendToBody: true},
		schemas.PlacementRequest{Host: "host", Target: "tip"},
		schemas.PlacementRequest{Host: "host", Target: "tip", Placement: "right-top"},
	)

	results, err := e.EvaluateSnapshot(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, schemas.Offset{Top: 78, Left: 42}, results[0].Offset)
	assert.Equal(t, schemas.Offset{Top: 120, Left: 60}, results[1].Offset)
	// Empty placement falls back to the configured default.
	assert.Equal(t, "top", results[2].Request.Placement)
	assert.Equal(t, schemas.Offset{Top: 52, Left: 57}, results[2].Offset)
	assert.Equal(t, schemas.Offset{Top: 58, Left: 82}, results[3].Offset)
}

func TestEvaluate_ConfigOverrides(t *testing.T) {
	e := newEngine(t, func(c *config.Config) {
		c.PositionCfg.AppendToBody = true
		c.PositionCfg.DefaultPlacement = "left"
	})
	results, err := e.Evaluate(context.Background(), layout(), []schemas.PlacementRequest{{Host: "host", Target: "tip"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Request.AppendToBody)
	assert.Equal(t, schemas.Offset{Top: 107, Left: 50}, results[0].Offset)
}

func TestEvaluate_Errors(t *testing.T) {
	e := newEngine(t)

	t.Run("UnknownElement", func(t *testing.T) {
		_, err := e.Evaluate(context.Background(), layout(), []schemas.PlacementRequest{
			{Host: "host", Target: "tip"},
			{Host: "ghost", Target: "tip"},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, position.ErrUnknownElement))
		assert.Contains(t, err.Error(), "placement 1")
	})

	t.Run("BadSnapshot", func(t *testing.T) {
		snap := layout()
		snap.Elements[2].OffsetParent = "nowhere"
		_, err := e.EvaluateSnapshot(context.Background(), snap)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to build document from snapshot")
	})

	t.Run("BadProbe", func(t *testing.T) {
		bad := newEngine(t, func(c *config.Config) { c.PositionCfg.StyleProbes = []string{"runtime"} })
		_, err := bad.EvaluateSnapshot(context.Background(), layout())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to configure style probes")
	})

	t.Run("CanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := e.Evaluate(ctx, layout(), []schemas.PlacementRequest{{Host: "host", Target: "tip"}})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := newEngine(t, func(c *config.Config) { c.SimulateCfg.Concurrency = 3 })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	in := make(chan schemas.RecordedSnapshot)
	out := make(chan Evaluation)
	require.NoError(t, e.Start(ctx, in, out))
	assert.ErrorIs(t, e.Start(ctx, in, out), ErrAlreadyRunning)

	const records = 5
	go func() {
		defer close(in)
		for i := 1; i <= records; i++ {
			snap := layout(schemas.PlacementRequest{Host: "host", Target: "tip", Placement: "bottom-left"})
			if i == records {
				snap.Placements[0].Host = "ghost"
			}
			select {
			case in <- schemas.RecordedSnapshot{RunID: "run", Seq: i, Snapshot: *snap}:
			case <-ctx.Done():
				return
			}
		}
	}()

	seen := make(map[int]Evaluation)
	for ev := range out {
		seen[ev.Record.Seq] = ev
	}
	e.Stop()

	require.Len(t, seen, records)
	for i := 1; i < records; i++ {
		require.NoError(t, seen[i].Err)
		assert.Equal(t, schemas.Offset{Top: 78, Left: 42}, seen[i].Results[0].Offset)
	}
	assert.ErrorIs(t, seen[records].Err, position.ErrUnknownElement)

	// The pool can be restarted once stopped.
	in2 := make(chan schemas.RecordedSnapshot)
	out2 := make(chan Evaluation)
	require.NoError(t, e.Start(ctx, in2, out2))
	close(in2)
	for range out2 {
	}
	e.Stop()
}

func TestRestartWithoutDrainingOutput(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := newEngine(t, func(c *config.Config) { c.SimulateCfg.Concurrency = 8 })
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop on an idle engine is a no-op.
	e.Stop()

	for i := 0; i < 500; i++ {
		in := make(chan schemas.RecordedSnapshot)
		out := make(chan Evaluation, 1)
		require.NoError(t, e.Start(ctx, in, out))
		close(in)
		e.Stop()

		_, open := <-out
		require.False(t, open, "iteration %d: out must be closed once Stop returns", i)
	}
}
