package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
	"github.com/xkilldash9x/anchorpoint/internal/config"
	"github.com/xkilldash9x/anchorpoint/internal/position"
	"github.com/xkilldash9x/anchorpoint/internal/position/memdom"
)

// Engine evaluates placement requests against layout snapshots. Each request
// in a batch runs on its own goroutine, bounded by simulate.concurrency.
type Engine struct {
	cfg    config.Interface
	logger *zap.Logger

	// stateLock protects isRunning and done.
	stateLock sync.Mutex
	isRunning bool
	// done is closed after the current run's workers exit and out is closed.
	done chan struct{}
}

// New creates an Engine.
func New(cfg config.Interface, logger *zap.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Engine{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "placement_engine")),
	}, nil
}

func (e *Engine) concurrency() int {
	if n := e.cfg.Simulate().Concurrency; n > 0 {
		return n
	}
	return 4
}

// Positioner builds a positioner over doc configured from the position
// settings.
func (e *Engine) Positioner(doc *memdom.Document) (*position.Positioner, error) {
	posCfg := e.cfg.Position()
	probes, err := position.ProbesByName(doc.Window(), posCfg.StyleProbes)
	if err != nil {
		return nil, fmt.Errorf("failed to configure style probes: %w", err)
	}
	return position.New(doc, doc.Window(), e.logger,
		position.WithStyleProbes(probes...),
		position.WithMaxAncestorDepth(posCfg.MaxAncestorDepth),
	), nil
}

// EvaluateSnapshot resolves the placements listed in snap.
func (e *Engine) EvaluateSnapshot(ctx context.Context, snap *schemas.LayoutSnapshot) ([]schemas.PlacementResult, error) {
	return e.Evaluate(ctx, snap, snap.Placements)
}

// Evaluate resolves reqs against snap. Results are in request order. An empty
// placement uses position.default_placement, and position.append_to_body
// forces document-relative placement for every request.
func (e *Engine) Evaluate(ctx context.Context, snap *schemas.LayoutSnapshot, reqs []schemas.PlacementRequest) ([]schemas.PlacementResult, error) {
	doc, err := memdom.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to build document from snapshot: %w", err)
	}
	p, err := e.Positioner(doc)
	if err != nil {
		return nil, err
	}

	posCfg := e.cfg.Position()
	results := make([]schemas.PlacementResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency())

	for i, req := range reqs {
		i, req := i, req
		if req.Placement == "" {
			req.Placement = posCfg.DefaultPlacement
		}
		if posCfg.AppendToBody {
			req.AppendToBody = true
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := p.Evaluate(req, doc)
			if err != nil {
				return fmt.Errorf("placement %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debug("Evaluated snapshot.", zap.String("url", snap.URL), zap.Int("placements", len(reqs)))
	return results, nil
}
