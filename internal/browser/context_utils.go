// internal/browser/context_utils.go
package browser

import "context"

// CombineContext returns a context derived from primary (so chromedp values
// such as the target connection are inherited) that is also canceled when
// secondary is done. Callers must call the returned cancel func.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	stop := context.AfterFunc(secondary, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}
