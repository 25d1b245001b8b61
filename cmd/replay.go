// File: cmd/replay.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
	"github.com/xkilldash9x/anchorpoint/internal/config"
	"github.com/xkilldash9x/anchorpoint/internal/engine"
	"github.com/xkilldash9x/anchorpoint/internal/observability"
	"github.com/xkilldash9x/anchorpoint/internal/recording"
)

// errDrift is returned by replay --fail-on-drift when a recomputed result
// differs from the recorded one.
var errDrift = errors.New("recomputed placements differ from the recording")

// replayLine is the output for one replayed record.
type replayLine struct {
	RunID   string                    `json:"runId"`
	Seq     int                       `json:"seq"`
	URL     string                    `json:"url,omitempty"`
	Results []schemas.PlacementResult `json:"results,omitempty"`
	// Drift is a diff of recorded against recomputed results.
	Drift string `json:"drift,omitempty"`
	Error string `json:"error,omitempty"`
}

type replayOptions struct {
	follow, fromStart, poll, failOnDrift bool
	runID                                string
}

// newReplayCmd creates the `replay` command, which recomputes placements from
// a recording made by `browse --record`.
func newReplayCmd() *cobra.Command {
	var opts replayOptions

	replayCmd := &cobra.Command{
		Use:   "replay [RECORDING]",
		Short: "Recomputes placements from a snapshot recording and reports drift",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			switch {
			case opts.runID != "" && len(args) > 0:
				return fmt.Errorf("give either a RECORDING file or --run, not both")
			case opts.runID == "" && len(args) == 0:
				return fmt.Errorf("a RECORDING file or --run is required")
			case opts.runID != "" && opts.follow:
				return fmt.Errorf("--follow only works with a RECORDING file")
			}

			eng, err := engine.New(cfg, observability.GetLogger())
			if err != nil {
				return err
			}
			if opts.follow {
				return followRecording(ctx, cmd.OutOrStdout(), cfg, eng, args[0], opts)
			}

			var (
				records []schemas.RecordedSnapshot
				source  string
			)
			if opts.runID != "" {
				records, err = loadStoredRun(ctx, cfg, opts.runID)
				source = "run " + opts.runID
			} else {
				records, err = recording.ReadFile(args[0])
				source = args[0]
			}
			if err != nil {
				return err
			}
			return replayRecords(ctx, cmd.OutOrStdout(), cfg, eng, source, records, opts)
		},
	}

	replayCmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "keep watching the recording for new captures")
	replayCmd.Flags().BoolVar(&opts.fromStart, "from-start", false, "with --follow, replay existing captures first")
	replayCmd.Flags().BoolVar(&opts.poll, "poll", false, "with --follow, poll for changes instead of using inotify")
	replayCmd.Flags().BoolVar(&opts.failOnDrift, "fail-on-drift", false, "exit with an error when any placement drifted")
	replayCmd.Flags().StringVar(&opts.runID, "run", "", "replay a run from the PostgreSQL store instead of a file")
	return replayCmd
}

// loadStoredRun reads a run back from the capture store.
func loadStoredRun(ctx context.Context, cfg config.Interface, runID string) ([]schemas.RecordedSnapshot, error) {
	s, cleanup, err := openStore(ctx, cfg.Database(), observability.GetLogger())
	if err != nil {
		return nil, err
	}
	defer cleanup()

	records, err := s.LoadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("run '%s' has no stored captures", runID)
	}
	return records, nil
}

func replayRecords(ctx context.Context, w io.Writer, cfg config.Interface, eng *engine.Engine, source string, records []schemas.RecordedSnapshot, opts replayOptions) error {
	drifted := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		results, evalErr := eng.EvaluateSnapshot(ctx, &rec.Snapshot)
		line := buildReplayLine(rec, results, evalErr)
		if line.Drift != "" {
			drifted++
		}
		if err := printReplayLine(w, cfg.Output(), line); err != nil {
			return err
		}
	}

	observability.GetLogger().Info("Replay complete",
		zap.String("source", source), zap.Int("records", len(records)), zap.Int("drifted", drifted))
	if opts.failOnDrift && drifted > 0 {
		return fmt.Errorf("%d of %d records: %w", drifted, len(records), errDrift)
	}
	return nil
}

// followRecording tails the recording and evaluates captures as they arrive
// until ctx is done.
func followRecording(ctx context.Context, w io.Writer, cfg config.Interface, eng *engine.Engine, path string, opts replayOptions) error {
	var watchOpts []recording.WatcherOption
	if opts.fromStart {
		watchOpts = append(watchOpts, recording.FromStart())
	}
	if opts.poll {
		watchOpts = append(watchOpts, recording.WithPolling())
	}
	watcher := recording.NewWatcher(path, observability.GetLogger(), watchOpts...)

	g, gctx := errgroup.WithContext(ctx)
	records := make(chan schemas.RecordedSnapshot)
	evaluations := make(chan engine.Evaluation)
	if err := eng.Start(gctx, records, evaluations); err != nil {
		return err
	}
	defer eng.Stop()

	// Output across workers is unordered, so each record is printed whole.
	g.Go(func() error {
		return watcher.Watch(gctx, records)
	})
	g.Go(func() error {
		for ev := range evaluations {
			line := buildReplayLine(ev.Record, ev.Results, ev.Err)
			if err := printReplayLine(w, cfg.Output(), line); err != nil {
				return err
			}
			if opts.failOnDrift && line.Drift != "" {
				return fmt.Errorf("record %d: %w", ev.Record.Seq, errDrift)
			}
		}
		return nil
	})
	return g.Wait()
}

func buildReplayLine(rec schemas.RecordedSnapshot, results []schemas.PlacementResult, err error) replayLine {
	line := replayLine{RunID: rec.RunID, Seq: rec.Seq, URL: rec.Snapshot.URL, Results: results}
	if err != nil {
		line.Error = err.Error()
		return line
	}
	if len(rec.Results) > 0 {
		line.Drift = cmp.Diff(rec.Results, results)
	}
	return line
}

func printReplayLine(w io.Writer, out config.OutputConfig, line replayLine) error {
	if out.Format == "json" {
		// One record per line regardless of output.pretty.
		compact := out
		compact.Pretty = false
		return writeJSON(w, compact, line)
	}

	status := "ok"
	switch {
	case line.Error != "":
		status = "error: " + line.Error
	case line.Drift != "":
		status = "drift"
	}
	if _, err := fmt.Fprintf(w, "run=%s seq=%d %s\n", line.RunID, line.Seq, status); err != nil {
		return err
	}
	if line.Drift != "" {
		_, err := fmt.Fprint(w, line.Drift)
		return err
	}
	return printResults(w, out, schemas.EvaluateResponse{Results: line.Results})
}
