// internal/browser/snapshot.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ids given to the captured host and target elements.
const (
	HostID   = "host"
	TargetID = "target"
)

const defaultActionTimeout = 10 * time.Second

var (
	// ErrElementNotFound is returned when a selector matches nothing.
	ErrElementNotFound = errors.New("browser: element not found")
	// ErrUnsupportedElement is returned when a selector matches the document
	// element, or when host and target resolve to the same element.
	ErrUnsupportedElement = errors.New("browser: unsupported host or target element")
)

// Snapshotter reads element geometry out of a live page.
type Snapshotter struct {
	logger *zap.Logger
	// evalFunc runs script and stores its JSON result in res.
	evalFunc func(ctx context.Context, script string, res *[]byte) error
	timeout  time.Duration
}

// newSnapshotter evaluates scripts through run.
func newSnapshotter(logger *zap.Logger, run func(ctx context.Context, actions ...chromedp.Action) error, timeout time.Duration) *Snapshotter {
	return &Snapshotter{
		logger:  logger,
		timeout: timeout,
		evalFunc: func(ctx context.Context, script string, res *[]byte) error {
			// A *[]byte target receives the raw JSON value untouched.
			return run(ctx, chromedp.Evaluate(script, res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithReturnByValue(true).WithSilent(true)
			}))
		},
	}
}

func (s *Snapshotter) actionTimeout() time.Duration {
	if s.timeout > 0 {
		return s.timeout
	}
	return defaultActionTimeout
}

// evaluate runs script and returns its JSON result.
func (s *Snapshotter) evaluate(ctx context.Context, what, script string) ([]byte, error) {
	timeout := s.actionTimeout()
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var res []byte
	if err := s.evalFunc(opCtx, script, &res); err != nil {
		if opCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("timeout during %s after %v: %w", what, timeout, opCtx.Err())
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("context error during %s: %w", what, err)
		}
		return nil, fmt.Errorf("failed JS evaluation for %s: %w", what, err)
	}
	return res, nil
}

// scriptResult is the envelope every script returns.
type scriptResult struct {
	Missing     string                  `json:"missing,omitempty"`
	Unsupported string                  `json:"unsupported,omitempty"`
	Reason      string                  `json:"reason,omitempty"`
	Applied     bool                    `json:"applied,omitempty"`
	Snapshot    *schemas.LayoutSnapshot `json:"snapshot,omitempty"`
}

// Capture reads the host, the target and both offset parent chains in a
// single evaluation, so the snapshot is consistent. The host gets id HostID
// and the target TargetID.
func (s *Snapshotter) Capture(ctx context.Context, hostSelector, targetSelector string) (*schemas.LayoutSnapshot, error) {
	res, err := s.evaluate(ctx, "geometry capture", captureScript(hostSelector, targetSelector))
	if err != nil {
		return nil, err
	}
	out, err := decodeResult(res)
	if err != nil {
		return nil, err
	}
	if out.Missing != "" {
		s.logger.Debug("Capture selector matched nothing.", zap.String("selector", out.Missing))
		return nil, fmt.Errorf("selector '%s': %w", out.Missing, ErrElementNotFound)
	}
	if out.Unsupported != "" {
		return nil, fmt.Errorf("selector '%s' %s: %w", out.Unsupported, out.Reason, ErrUnsupportedElement)
	}
	if out.Snapshot == nil {
		return nil, fmt.Errorf("capture returned no snapshot (payload: %s)", string(res))
	}
	s.logger.Debug("Captured layout snapshot.",
		zap.String("url", out.Snapshot.URL), zap.Int("elements", len(out.Snapshot.Elements)))
	return out.Snapshot, nil
}

// Apply writes the offset onto the target as absolute positioning.
func (s *Snapshotter) Apply(ctx context.Context, targetSelector string, offset schemas.Offset) error {
	res, err := s.evaluate(ctx, "apply", applyScript(targetSelector, offset))
	if err != nil {
		return err
	}
	out, err := decodeResult(res)
	if err != nil {
		return err
	}
	if out.Missing != "" {
		return fmt.Errorf("selector '%s': %w", out.Missing, ErrElementNotFound)
	}
	if !out.Applied {
		return fmt.Errorf("apply did not confirm (payload: %s)", string(res))
	}
	return nil
}

func decodeResult(res []byte) (*scriptResult, error) {
	var out scriptResult
	if err := json.Unmarshal(res, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal script result: %w (payload: %s)", err, string(res))
	}
	return &out, nil
}

// jsonEncode encodes a value for safe embedding in a script.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
