package actor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"
)

// newTestHandle builds a Handle whose consumer loop runs exactly like
// run(), minus the wazero module/runtime teardown, so the command-queue
// semantics (FIFO ordering, stop-drops-queued, panic recovery) can be
// exercised without compiling a real guest component.
func newTestHandle(t *testing.T) *Handle {
	t.Helper()
	h := &Handle{
		commands: make(chan *command, commandQueueDepth),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		state:    Running,
		logger:   slog.Default(),
	}
	go func() {
		defer close(h.done)
		defer h.setState(Terminated)
		for {
			select {
			case <-h.stopCh:
				return
			default:
			}
			select {
			case <-h.stopCh:
				return
			case cmd := <-h.commands:
				value, err := h.runOne(context.Background(), cmd, nil, nil, nil)
				cmd.reply <- result{value: value, err: err}
			}
		}
	}()
	return h
}

func TestCallFIFOOrdering(t *testing.T) {
	h := newTestHandle(t)
	defer h.Close()

	var (
		mu    sync.Mutex
		order []int
	)

	for i := 0; i < 20; i++ {
		i := i
		_, err := h.Call(context.Background(), func(ctx context.Context, mod api.Module) (any, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		})
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		require.Equal(t, i, v)
	}
}

func TestCallAfterCloseReturnsChannelClosed(t *testing.T) {
	h := newTestHandle(t)
	h.Close()

	_, err := h.Call(context.Background(), func(ctx context.Context, mod api.Module) (any, error) {
		return nil, nil
	})
	require.ErrorIs(t, err, ErrChannelClosed)
}

func TestCallPropagatesRunError(t *testing.T) {
	h := newTestHandle(t)
	defer h.Close()

	sentinel := fmt.Errorf("collaborator failed")
	_, err := h.Call(context.Background(), func(ctx context.Context, mod api.Module) (any, error) {
		return nil, sentinel
	})
	require.ErrorIs(t, err, sentinel)
}

func TestCallRecoversGuestPanic(t *testing.T) {
	h := newTestHandle(t)
	defer h.Close()

	_, err := h.Call(context.Background(), func(ctx context.Context, mod api.Module) (any, error) {
		panic("guest trapped")
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "recovered panic")

	// The actor must still be usable after recovering one call's panic
	// (spec §4.E: "an error in one guest call never terminates the
	// actor").
	v, err := h.Call(context.Background(), func(ctx context.Context, mod api.Module) (any, error) {
		return "still alive", nil
	})
	require.NoError(t, err)
	require.Equal(t, "still alive", v)
}

func TestCloseDropsQueuedCommandsAfterInFlightCompletes(t *testing.T) {
	h := newTestHandle(t)

	started := make(chan struct{})
	release := make(chan struct{})
	inFlightDone := make(chan struct{})
	go func() {
		_, _ = h.Call(context.Background(), func(ctx context.Context, mod api.Module) (any, error) {
			close(started)
			<-release
			return nil, nil
		})
		close(inFlightDone)
	}()
	<-started

	queuedRan := make(chan struct{}, 1)
	queuedSent := make(chan struct{})
	go func() {
		cmd := &command{
			run: func(ctx context.Context, mod api.Module) (any, error) {
				queuedRan <- struct{}{}
				return nil, nil
			},
			reply: make(chan result, 1),
		}
		select {
		case h.commands <- cmd:
			close(queuedSent)
		case <-h.stopCh:
		}
	}()
	<-queuedSent

	h.closeOnce.Do(func() {
		h.setState(Terminating)
		close(h.stopCh)
	})
	close(release)
	<-inFlightDone
	<-h.done

	select {
	case <-queuedRan:
		t.Fatal("queued command ran after Close, spec requires it to be dropped un-run")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestIsGuestGoroutine(t *testing.T) {
	require.False(t, IsGuestGoroutine(context.Background()))
	ctx := context.WithValue(context.Background(), guestThreadKey{}, true)
	require.True(t, IsGuestGoroutine(ctx))
}

func TestStateString(t *testing.T) {
	require.Equal(t, "loading", Loading.String())
	require.Equal(t, "running", Running.String())
	require.Equal(t, "terminating", Terminating.String())
	require.Equal(t, "terminated", Terminated.String())
}
