// File: cmd/browse.go
package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
	"github.com/xkilldash9x/anchorpoint/internal/browser"
	"github.com/xkilldash9x/anchorpoint/internal/config"
	"github.com/xkilldash9x/anchorpoint/internal/engine"
	"github.com/xkilldash9x/anchorpoint/internal/observability"
	"github.com/xkilldash9x/anchorpoint/internal/recording"
)

// geometrySource is a live page that geometry can be read from.
type geometrySource interface {
	Navigate(ctx context.Context, url string) error
	Capture(ctx context.Context, hostSelector, targetSelector string) (*schemas.LayoutSnapshot, error)
	Apply(ctx context.Context, targetSelector string, offset schemas.Offset) error
	Close()
}

type browserSource struct {
	session *browser.Session
	snap    *browser.Snapshotter
}

func (b browserSource) Navigate(ctx context.Context, url string) error {
	return b.session.Navigate(ctx, url)
}

func (b browserSource) Capture(ctx context.Context, hostSelector, targetSelector string) (*schemas.LayoutSnapshot, error) {
	return b.snap.Capture(ctx, hostSelector, targetSelector)
}

func (b browserSource) Apply(ctx context.Context, targetSelector string, offset schemas.Offset) error {
	return b.snap.Apply(ctx, targetSelector, offset)
}

func (b browserSource) Close() { b.session.Close() }

// newGeometrySource is replaced in tests.
var newGeometrySource = func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (geometrySource, error) {
	session, err := browser.NewSession(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return browserSource{session: session, snap: session.Snapshotter()}, nil
}

type browseOptions struct {
	host, target, placement string
	appendToBody, apply     bool
	persist                 bool
	repeat                  int
	interval                time.Duration
	record                  string
}

// newBrowseCmd creates the `browse` command, which measures a live page in
// headless Chrome.
func newBrowseCmd() *cobra.Command {
	var opts browseOptions

	browseCmd := &cobra.Command{
		Use:   "browse URL",
		Short: "Captures host and target geometry from a live page and computes the placement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if opts.repeat < 1 {
				return fmt.Errorf("--repeat must be at least 1")
			}
			if opts.placement == "" {
				opts.placement = cfg.Position().DefaultPlacement
			}
			return runBrowse(ctx, cmd, cfg, normalizeURL(args[0]), opts)
		},
	}

	f := browseCmd.Flags()
	f.StringVar(&opts.host, "host", "", "CSS selector of the host element")
	f.StringVar(&opts.target, "target", "", "CSS selector of the target element")
	f.StringVarP(&opts.placement, "placement", "p", "", "placement token (default from config)")
	f.BoolVar(&opts.appendToBody, "append-to-body", false, "place the target relative to the document")
	f.BoolVar(&opts.apply, "apply", false, "write the computed offset onto the target")
	f.IntVar(&opts.repeat, "repeat", 1, "number of captures")
	f.DurationVar(&opts.interval, "interval", time.Second, "minimum time between captures")
	f.StringVar(&opts.record, "record", "", "append each capture to a JSON Lines recording")
	f.BoolVar(&opts.persist, "store", false, "persist each capture to the configured PostgreSQL store")
	f.Bool("headless", true, "run Chrome headless")
	bindFlag(f, "headless", "browser.headless")
	_ = browseCmd.MarkFlagRequired("host")
	_ = browseCmd.MarkFlagRequired("target")
	return browseCmd
}

func runBrowse(ctx context.Context, cmd *cobra.Command, cfg config.Interface, url string, opts browseOptions) error {
	runID := uuid.New().String()
	logger := observability.GetLogger().With(zap.String("run_id", runID))

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return err
	}

	var recorder *recording.Recorder
	if opts.record != "" {
		recorder, err = recording.Create(opts.record, runID, logger)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := recorder.Close(); cerr != nil {
				logger.Warn("Failed to close recording", zap.Error(cerr))
			}
		}()
	}

	var captures captureStore
	if opts.persist {
		var cleanup func()
		captures, cleanup, err = openStore(ctx, cfg.Database(), logger)
		if err != nil {
			return err
		}
		defer cleanup()
	}

	src, err := newGeometrySource(ctx, cfg.Browser(), logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer src.Close()

	if err := src.Navigate(ctx, url); err != nil {
		return err
	}

	req := schemas.PlacementRequest{
		Host:         browser.HostID,
		Target:       browser.TargetID,
		Placement:    opts.placement,
		AppendToBody: opts.appendToBody,
	}

	// Burst 1 lets the first capture run immediately.
	limiter := rate.NewLimiter(rate.Every(opts.interval), 1)
	for i := 1; i <= opts.repeat; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("capture %d: %w", i, err)
		}

		snap, err := src.Capture(ctx, opts.host, opts.target)
		if err != nil {
			return fmt.Errorf("capture %d: %w", i, err)
		}
		snap.Placements = []schemas.PlacementRequest{req}

		results, err := eng.EvaluateSnapshot(ctx, snap)
		if err != nil {
			return fmt.Errorf("capture %d: %w", i, err)
		}
		logger.Info("Computed placement",
			zap.Int("capture", i),
			zap.String("placement", results[0].Spec.String()),
			zap.Float64("top", results[0].Offset.Top),
			zap.Float64("left", results[0].Offset.Left),
		)

		if opts.apply {
			if err := src.Apply(ctx, opts.target, results[0].Offset); err != nil {
				return fmt.Errorf("capture %d: %w", i, err)
			}
		}
		if recorder != nil {
			if err := recorder.Record(snap, results); err != nil {
				return err
			}
		}
		if captures != nil {
			rec := schemas.RecordedSnapshot{
				RunID:      runID,
				Seq:        i,
				CapturedAt: time.Now().UTC(),
				Snapshot:   *snap,
				Results:    results,
			}
			if err := captures.PersistRecord(ctx, rec); err != nil {
				return fmt.Errorf("capture %d: %w", i, err)
			}
		}
		if err := printResults(cmd.OutOrStdout(), cfg.Output(), schemas.EvaluateResponse{URL: snap.URL, Results: results}); err != nil {
			return err
		}
	}
	return nil
}

// normalizeURL defaults bare hosts to https.
func normalizeURL(u string) string {
	if strings.Contains(u, "://") || strings.HasPrefix(u, "about:") || strings.HasPrefix(u, "data:") {
		return u
	}
	return "https://" + u
}
