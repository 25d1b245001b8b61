// internal/recording/watcher.go
package recording

import (
	"context"
	"fmt"
	"io"

	"github.com/hpcloud/tail"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
)

// Watcher follows a recording as another process appends to it.
type Watcher struct {
	logger *zap.Logger
	path   string
	// fromStart replays lines already in the file before following.
	fromStart bool
	// poll uses stat polling instead of inotify.
	poll bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// FromStart makes the watcher emit existing records first.
func FromStart() WatcherOption {
	return func(w *Watcher) { w.fromStart = true }
}

// WithPolling switches change detection to polling, for filesystems without
// inotify support.
func WithPolling() WatcherOption {
	return func(w *Watcher) { w.poll = true }
}

// NewWatcher returns a watcher for the recording at path.
func NewWatcher(path string, logger *zap.Logger, opts ...WatcherOption) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		logger: logger.Named("recording-watcher"),
		path:   path,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch sends each record to out until ctx is done. Undecodable lines are
// logged and skipped. out is closed when Watch returns.
func (w *Watcher) Watch(ctx context.Context, out chan<- schemas.RecordedSnapshot) error {
	defer close(out)

	expanded, err := homedir.Expand(w.path)
	if err != nil {
		return fmt.Errorf("failed to expand recording path '%s': %w", w.path, err)
	}

	whence := io.SeekEnd
	if w.fromStart {
		whence = io.SeekStart
	}
	t, err := tail.TailFile(expanded, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Poll:      w.poll,
		Location:  &tail.SeekInfo{Offset: 0, Whence: whence},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to tail recording: %w", err)
	}
	defer func() {
		t.Stop()
		t.Cleanup()
	}()

	w.logger.Info("Watching recording.", zap.String("path", expanded), zap.Bool("from_start", w.fromStart))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping recording watcher.")
			return nil

		case line, ok := <-t.Lines:
			if !ok {
				w.logger.Info("Recording tailer channel closed.")
				return nil
			}
			if line.Err != nil {
				w.logger.Warn("Error reading from recording", zap.Error(line.Err))
				continue
			}
			entry, ok, err := decodeLine([]byte(line.Text))
			if err != nil {
				w.logger.Warn("Skipping undecodable record", zap.Error(err))
				continue
			}
			if !ok {
				continue
			}
			select {
			case out <- entry:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
