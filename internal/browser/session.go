// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/anchorpoint/internal/config"
)

// Session is a single headless Chrome tab.
type Session struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cfg       config.BrowserConfig
	logger    *zap.Logger
	closeOnce sync.Once
}

// allocatorOptions translates the browser configuration into chromedp
// allocator options.
func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		// Later flags win, so this overrides the default headless flag.
		chromedp.Flag("headless", cfg.Headless),
	)
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}
	for _, arg := range cfg.Args {
		key, value, found := parseFlagArg(arg)
		if found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

// parseFlagArg splits "--key=value" style arguments. chromedp adds the dashes
// back itself.
func parseFlagArg(arg string) (key, value string, found bool) {
	key, value, found = strings.Cut(arg, "=")
	return strings.TrimLeft(key, "-"), value, found
}

// NewSession launches a browser and opens a tab. The browser lives until
// Close is called or parent is canceled.
func NewSession(parent context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	logger = logger.Named("browser")
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocatorOptions(cfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Sugar().Debugf))

	cancel := func() {
		tabCancel()
		allocCancel()
	}

	// Running with no actions starts the browser and attaches the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Debug("Browser session started.", zap.Bool("headless", cfg.Headless))
	return &Session{
		ctx:    tabCtx,
		cancel: cancel,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// RunActions runs chromedp actions on the tab. ctx carries the operation's
// deadline; the session context carries the CDP connection.
func (s *Session) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url, waits for the body and then for the configured
// post-load settle time.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx := ctx
	if s.cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, s.cfg.NavigationTimeout)
		defer cancel()
	}

	s.logger.Info("Navigating", zap.String("url", url))
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if s.cfg.PostLoadWait > 0 {
		actions = append(actions, chromedp.Sleep(s.cfg.PostLoadWait))
	}

	if err := s.RunActions(navCtx, actions...); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation to '%s' timed out after %v: %w", url, s.cfg.NavigationTimeout, navCtx.Err())
		}
		return fmt.Errorf("failed to navigate to '%s': %w", url, err)
	}
	return nil
}

// Snapshotter returns a snapshotter bound to this session.
func (s *Session) Snapshotter() *Snapshotter {
	return newSnapshotter(s.logger.Named("snapshot"), s.RunActions, s.cfg.ActionTimeout)
}

// Close shuts down the tab and the browser process.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing browser session.")
		s.cancel()
	})
}
