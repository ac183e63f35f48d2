package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSharedIsAProcessWideSingleton(t *testing.T) {
	ctx := context.Background()
	a := Shared(ctx)
	b := Shared(ctx)
	require.Same(t, a, b)
}

func TestNewRuntimeReturnsIndependentRuntimes(t *testing.T) {
	ctx := context.Background()
	e := Shared(ctx)

	rt1 := e.NewRuntime(ctx)
	defer rt1.Close(ctx)
	rt2 := e.NewRuntime(ctx)
	defer rt2.Close(ctx)

	// Each actor gets its own Runtime so their host-module namespaces
	// never collide, even though both share this Engine's configuration
	// and compilation cache.
	require.NotSame(t, rt1, rt2)
}

func TestWeakUpgradeReflectsRelease(t *testing.T) {
	e := &Engine{} // a standalone instance, not the process-wide Shared one
	w := e.Weak()

	require.True(t, w.Upgrade())
	w.Release()
	require.False(t, w.Upgrade())
}
