package engine

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
)

// ErrAlreadyRunning is returned by Start when the worker pool is active.
var ErrAlreadyRunning = errors.New("engine: already running")

// Evaluation is the outcome of evaluating one recorded snapshot.
type Evaluation struct {
	Record  schemas.RecordedSnapshot
	Results []schemas.PlacementResult
	Err     error
}

// Start launches the worker pool. Workers consume records from in until it is
// closed or ctx is done, and out is closed once every worker has exited.
// Evaluations are not ordered.
func (e *Engine) Start(ctx context.Context, in <-chan schemas.RecordedSnapshot, out chan<- Evaluation) error {
	e.stateLock.Lock()
	if e.isRunning {
		e.stateLock.Unlock()
		return ErrAlreadyRunning
	}
	e.isRunning = true
	done := make(chan struct{})
	e.done = done
	e.stateLock.Unlock()

	concurrency := e.concurrency()
	e.logger.Info("Starting evaluation worker pool", zap.Int("concurrency", concurrency))

	// Each run owns its WaitGroup; Stop waits on done instead.
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go e.runWorker(ctx, &wg, i+1, in, out)
	}
	go func() {
		wg.Wait()
		close(out)
		close(done)
	}()
	return nil
}

// Stop waits for the workers to finish and out to be closed. Workers exit
// when the input channel is closed or the context passed to Start is done.
// Stop without a running pool returns immediately.
func (e *Engine) Stop() {
	e.stateLock.Lock()
	done := e.done
	e.stateLock.Unlock()
	if done == nil {
		return
	}

	e.logger.Debug("Waiting for evaluation workers to finish.")
	<-done

	e.stateLock.Lock()
	if e.done == done {
		e.isRunning = false
		e.done = nil
	}
	e.stateLock.Unlock()
}

func (e *Engine) runWorker(ctx context.Context, wg *sync.WaitGroup, workerID int, in <-chan schemas.RecordedSnapshot, out chan<- Evaluation) {
	defer wg.Done()
	logger := e.logger.With(zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Context cancelled, worker shutting down.", zap.Error(ctx.Err()))
			return
		case rec, ok := <-in:
			if !ok {
				logger.Debug("Input closed and drained, worker shutting down.")
				return
			}
			results, err := e.EvaluateSnapshot(ctx, &rec.Snapshot)
			if err != nil {
				logger.Warn("Failed to evaluate recorded snapshot",
					zap.String("run_id", rec.RunID), zap.Int("seq", rec.Seq), zap.Error(err))
			}
			select {
			case out <- Evaluation{Record: rec, Results: results, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}
