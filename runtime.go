// Package extensionrt ties the extension runtime's components together:
// a process-wide Runtime wraps the shared engine and epoch ticker (spec
// §4.B, §4.C) and exposes LoadExtension, the public entry point
// corresponding to spec §4.E's load_extension(bytes, manifest, granter).
package extensionrt

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/klyx-dev/extensionrt/internal/actor"
	"github.com/klyx-dev/extensionrt/internal/capability"
	"github.com/klyx-dev/extensionrt/internal/collaborator"
	"github.com/klyx-dev/extensionrt/internal/engine"
	"github.com/klyx-dev/extensionrt/internal/epoch"
	"github.com/klyx-dev/extensionrt/manifest"
)

// Handle is the caller-visible extension actor handle (re-exported from
// internal/actor so callers outside this module never import an internal
// package directly).
type Handle = actor.Handle

// Runtime is the process-wide bring-up: the shared engine plus the epoch
// ticker that drives cooperative guest preemption. Exactly one Runtime
// should exist per process (spec §4.B: "constructed once per process").
type Runtime struct {
	engine *engine.Engine
	weak   *engine.Weak
	ticker *epoch.Ticker

	baseWorkDir string
}

// NewRuntime constructs the process-wide engine and starts its epoch
// ticker. baseWorkDir is where every extension's per-instance work
// directory (base_work_dir/<id>, spec §4.D) is created.
func NewRuntime(ctx context.Context, baseWorkDir string) *Runtime {
	eng := engine.Shared(ctx)
	weak := eng.Weak()
	ticker := epoch.Start(weak)
	return &Runtime{engine: eng, weak: weak, ticker: ticker, baseWorkDir: baseWorkDir}
}

// LoadExtension implements load_extension(bytes, manifest, granter) (spec
// §4.E) against this Runtime's shared engine and ticker.
func (r *Runtime) LoadExtension(ctx context.Context, bytes []byte, m manifest.Manifest, granter capability.Granter, collab collaborator.Set) (*Handle, error) {
	return actor.Load(ctx, bytes, m, actor.Options{
		Engine:      r.engine,
		Ticker:      r.ticker,
		Granter:     granter,
		Collab:      collab,
		BaseWorkDir: r.baseWorkDir,
	})
}

// Shutdown stops the epoch ticker and releases the engine's compilation
// cache concurrently, matching the pack's errgroup-based coordinated
// shutdown idiom rather than sequencing two independent teardowns by
// hand. Callers must have already closed every extension Handle.
func (r *Runtime) Shutdown(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.weak.Release()
		r.ticker.Stop()
		return nil
	})
	g.Go(func() error {
		return r.engine.Close(gctx)
	})
	return g.Wait()
}
