// internal/recording/recorder.go
package recording

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxLineSize bounds a single recorded snapshot.
const maxLineSize = 8 * 1024 * 1024

// Recorder appends snapshots to a JSON Lines file. It is safe for concurrent
// use.
type Recorder struct {
	mu     sync.Mutex
	file   *os.File
	runID  string
	seq    int
	logger *zap.Logger
	now    func() time.Time
}

// Create opens path for appending, creating it when missing. Every record
// written through the returned Recorder carries runID.
func Create(path, runID string, logger *zap.Logger) (*Recorder, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand recording path '%s': %w", path, err)
	}
	f, err := os.OpenFile(expanded, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording '%s': %w", expanded, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		file:   f,
		runID:  runID,
		logger: logger.Named("recorder"),
		now:    time.Now,
	}, nil
}

// Record writes snap and the results computed from it as one line.
func (r *Recorder) Record(snap *schemas.LayoutSnapshot, results []schemas.PlacementResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	entry := schemas.RecordedSnapshot{
		RunID:      r.runID,
		Seq:        r.seq,
		CapturedAt: r.now().UTC(),
		Snapshot:   *snap,
		Results:    results,
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode recorded snapshot: %w", err)
	}
	if _, err := r.file.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("failed to write recorded snapshot: %w", err)
	}
	r.logger.Debug("Recorded snapshot.", zap.String("run_id", r.runID), zap.Int("seq", r.seq))
	return nil
}

// Close flushes and closes the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.file.Sync(); err != nil {
		r.file.Close()
		return fmt.Errorf("failed to sync recording: %w", err)
	}
	return r.file.Close()
}

// ReadFile loads every snapshot in a recording. Blank lines are skipped.
func ReadFile(path string) ([]schemas.RecordedSnapshot, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand recording path '%s': %w", path, err)
	}
	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording '%s': %w", expanded, err)
	}
	defer f.Close()

	var out []schemas.RecordedSnapshot
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		entry, ok, err := decodeLine(scanner.Bytes())
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", expanded, line, err)
		}
		if ok {
			out = append(out, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recording '%s': %w", expanded, err)
	}
	return out, nil
}

// decodeLine reports ok=false for blank lines.
func decodeLine(b []byte) (schemas.RecordedSnapshot, bool, error) {
	var entry schemas.RecordedSnapshot
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return entry, false, nil
	}
	if err := json.Unmarshal(b, &entry); err != nil {
		return entry, false, fmt.Errorf("failed to decode recorded snapshot: %w", err)
	}
	return entry, true, nil
}
