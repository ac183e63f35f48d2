package epoch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRef struct{ alive bool }

func (f *fakeRef) Upgrade() bool { return f.alive }

func TestTickerAdvancesCounter(t *testing.T) {
	ref := &fakeRef{alive: true}
	ticker := Start(ref)
	defer ticker.Stop()

	require.Eventually(t, func() bool {
		return ticker.Counter.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTickerSelfTerminatesWhenRefDies(t *testing.T) {
	ref := &fakeRef{alive: true}
	ticker := Start(ref)

	require.Eventually(t, func() bool {
		return ticker.Counter.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	ref.alive = false

	done := make(chan struct{})
	go func() {
		ticker.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not self-terminate after its engine ref died")
	}
}

func TestTickerStopIsIdempotent(t *testing.T) {
	ticker := Start(&fakeRef{alive: true})
	ticker.Stop()
	ticker.Stop()
}

func TestDeadlineExpiredAdvancesOnExpiry(t *testing.T) {
	d := NewDeadline()

	require.False(t, d.Expired(0))
	require.True(t, d.Expired(1))

	// Expired advanced the deadline to counter+1 == 2; the same counter
	// value must not re-trip immediately.
	require.False(t, d.Expired(1))
	require.True(t, d.Expired(2))
}
