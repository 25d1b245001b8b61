// internal/browser/context_utils_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type sessionKey struct{}

func TestCombineContext_Cancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	cases := []struct {
		name   string
		cancel func(cancelPrimary, cancelSecondary, cancelCombined context.CancelFunc)
	}{
		{"Primary", func(p, _, _ context.CancelFunc) { p() }},
		{"Secondary", func(_, s, _ context.CancelFunc) { s() }},
		{"OwnCancel", func(_, _, c context.CancelFunc) { c() }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			primary, cancelPrimary := context.WithCancel(context.WithValue(context.Background(), sessionKey{}, "tab-1"))
			defer cancelPrimary()
			secondary, cancelSecondary := context.WithCancel(context.Background())
			defer cancelSecondary()

			combined, cancel := CombineContext(primary, secondary)
			defer cancel()

			assert.Equal(t, "tab-1", combined.Value(sessionKey{}))
			require.NoError(t, combined.Err())

			tc.cancel(cancelPrimary, cancelSecondary, cancel)
			assert.Eventually(t, func() bool { return combined.Err() != nil }, time.Second, 5*time.Millisecond)
			assert.ErrorIs(t, combined.Err(), context.Canceled)
		})
	}
}

func TestCombineContext_KeepsPrimaryDeadline(t *testing.T) {
	deadline := time.Now().Add(time.Minute)
	primary, cancelPrimary := context.WithDeadline(context.Background(), deadline)
	defer cancelPrimary()

	combined, cancel := CombineContext(primary, context.Background())
	defer cancel()

	got, ok := combined.Deadline()
	require.True(t, ok)
	assert.True(t, got.Equal(deadline))
}
