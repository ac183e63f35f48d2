// Package actor implements the per-extension single-consumer command
// queue spec §4.E describes: one actor task owns the guest component
// instance and its store-equivalent state for the lifetime of an
// extension, and every caller reaches the guest only by enqueuing a
// closure and awaiting a one-shot reply.
package actor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/klyx-dev/extensionrt/internal/abi"
	"github.com/klyx-dev/extensionrt/internal/binaryinspect"
	"github.com/klyx-dev/extensionrt/internal/capability"
	"github.com/klyx-dev/extensionrt/internal/collaborator"
	"github.com/klyx-dev/extensionrt/internal/engine"
	"github.com/klyx-dev/extensionrt/internal/epoch"
	"github.com/klyx-dev/extensionrt/internal/hostimport"
	"github.com/klyx-dev/extensionrt/internal/rtlog"
	"github.com/klyx-dev/extensionrt/internal/sandbox"
	"github.com/klyx-dev/extensionrt/manifest"
)

// commandQueueDepth bounds how many calls may be in flight (sent but not
// yet picked up by the consumer loop) before Call blocks the caller. A
// depth greater than zero is what makes "already-queued closures are
// dropped un-run" (spec §5 "Cancellation") a real distinct case from "the
// in-progress one completes".
const commandQueueDepth = 64

// ErrChannelClosed is returned by Call when the actor has already exited
// (spec §4.E: "Fails with ChannelClosed if the actor has exited").
var ErrChannelClosed = fmt.Errorf("actor: channel closed")

// guestThreadKey marks a context as flowing through the actor's consumer
// loop, the Go analogue of the thread-local flag spec §4.E's load step 8
// sets before the loop starts; a process-wide panic handler installed by
// the host process can check IsGuestGoroutine(ctx) to discriminate guest
// panics from host ones without us needing real goroutine-local storage.
type guestThreadKey struct{}

// IsGuestGoroutine reports whether ctx descends from an actor's consumer
// loop.
func IsGuestGoroutine(ctx context.Context) bool {
	v, _ := ctx.Value(guestThreadKey{}).(bool)
	return v
}

// command is a boxed closure awaiting access to the guest module, plus
// the one-shot reply channel its result is forwarded to.
type command struct {
	run   func(ctx context.Context, mod api.Module) (any, error)
	reply chan result
}

type result struct {
	value any
	err   error
}

// Handle is the caller-visible actor handle (spec §3 "Actor handle"):
// the outbound command channel, the manifest, the work directory, the
// negotiated ABI version, and a way to wait for the actor task to exit.
// Dropping (discarding) a Handle without calling Close leaks the
// goroutine until GC finalizes nothing -- callers must Close it.
type Handle struct {
	Manifest   manifest.Manifest
	WorkDir    string
	ABIVersion binaryinspect.Version

	commands  chan *command
	closeOnce sync.Once
	stopCh    chan struct{}
	done      chan struct{}

	mu    sync.Mutex
	state State

	logger *slog.Logger
	rt     wazero.Runtime
}

// State reports the actor's current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handle) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

// Call enqueues run, awaits the actor's execution of it against the
// guest module, and returns its result. Calls issued by one goroutine are
// served in the order they were sent (spec §4.E testable property 5);
// calls from different goroutines interleave in send order, unordered
// across callers.
func (h *Handle) Call(ctx context.Context, run func(ctx context.Context, mod api.Module) (any, error)) (any, error) {
	cmd := &command{run: run, reply: make(chan result, 1)}
	select {
	case h.commands <- cmd:
	case <-h.stopCh:
		return nil, ErrChannelClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-cmd.reply:
		return r.value, r.err
	case <-ctx.Done():
		// Spec §5 "Cancellation": dropping the caller's future discards the
		// reply but the actor still runs the closure to completion.
		return nil, ctx.Err()
	}
}

// Close signals the actor to stop (spec's "dropping the actor handle").
// Already-queued closures are dropped un-run; any in-flight call
// completes; the actor task then exits. Close blocks until the task has
// exited and the underlying wazero.Runtime has been released.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		h.setState(Terminating)
		close(h.stopCh)
	})
	<-h.done
}

// Options bundles everything Load needs beyond the raw component bytes
// and manifest, following the teacher's functional-options-over-struct
// idiom (internal/sandbox.ModuleConfig, wazero's own RuntimeConfig) only
// loosely -- a plain struct is clearer here since every field is
// mandatory for a successful load.
type Options struct {
	Engine      *engine.Engine
	Ticker      *epoch.Ticker
	Granter     capability.Granter
	Collab      collaborator.Set
	BaseWorkDir string
	Logger      *slog.Logger
}

// Load implements load_extension(bytes, manifest, granter) (spec §4.E).
// On any failure before step 8 it tears down whatever it already built
// and returns the error; callers never receive a Handle in the Loading
// state.
func Load(ctx context.Context, bytes []byte, m manifest.Manifest, opts Options) (*Handle, error) {
	logger := opts.Logger
	if logger == nil {
		logger = rtlog.ForExtension(m)
	}

	// Step 1: parse the API version from the raw bytes.
	version, err := binaryinspect.ParseVersion(m.ID, bytes)
	if err != nil {
		return nil, fmt.Errorf("actor: load %s: parse version: %w", m, err)
	}

	// Step 5 (checked early, before any compile cost is paid): select a
	// binding whose minimum version is satisfied.
	binding, err := abi.Select(version)
	if err != nil {
		return nil, fmt.Errorf("actor: load %s: %w", m, err)
	}

	stripped, err := binaryinspect.Strip(bytes)
	if err != nil {
		return nil, fmt.Errorf("actor: load %s: strip: %w", m, err)
	}
	cacheKey := contentCacheKey(m.ID, stripped)

	rt := opts.Engine.NewRuntime(ctx)
	succeeded := false
	defer func() {
		if !succeeded {
			_ = rt.Close(ctx)
		}
	}()

	// Step 2: compile.
	compiled, err := opts.Engine.Compile(ctx, rt, cacheKey, stripped)
	if err != nil {
		return nil, fmt.Errorf("actor: load %s: compile: %w", m, err)
	}

	// Step 3: sandbox state (resource table, work dir, granter).
	sb, err := sandbox.Build(opts.BaseWorkDir, m, opts.Granter)
	if err != nil {
		return nil, fmt.Errorf("actor: load %s: sandbox: %w", m, err)
	}

	// The host-import surface must be instantiated before the guest
	// component, since the guest's import section resolves against it by
	// name at instantiation time.
	dispatcher := hostimport.New(m, sb, opts.Granter, opts.Collab)
	hostMod, err := dispatcher.Instantiate(ctx, rt)
	if err != nil {
		return nil, fmt.Errorf("actor: load %s: host imports: %w", m, err)
	}

	// Step 4: create the store-equivalent state -- in wazero terms, the
	// instantiated api.Module plus our own epoch deadline.
	deadline := epoch.NewDeadline()

	// Step 6: instantiate the guest component asynchronously.
	guestMod, err := rt.InstantiateModule(ctx, compiled, sb.ModuleConfig())
	if err != nil {
		return nil, fmt.Errorf("actor: load %s: instantiate: %w", m, err)
	}

	// Step 7: invoke init-extension.
	if err := binding.InitExtension(ctx, guestMod); err != nil {
		return nil, fmt.Errorf("actor: load %s: init-extension: %w", m, err)
	}

	h := &Handle{
		Manifest:   m,
		WorkDir:    sb.WorkDir,
		ABIVersion: version,
		commands:   make(chan *command, commandQueueDepth),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
		state:      Running,
		logger:     logger,
		rt:         rt,
	}
	succeeded = true

	// Step 8: spawn the consumer task.
	go h.run(ctx, guestMod, hostMod, deadline, opts.Ticker)

	logger.Info("extension loaded", slog.String("abi_version", version.String()))
	return h, nil
}

// run is the actor's consumer loop: the only goroutine ever touching
// guestMod. It flags its context as a guest goroutine before pulling the
// first command (spec §4.E step 8), and recovers panics at the call
// boundary so one misbehaving guest call never takes down the actor
// (spec §4.E "Failure semantics").
func (h *Handle) run(parent context.Context, guestMod, hostMod api.Module, deadline *epoch.Deadline, ticker *epoch.Ticker) {
	ctx := context.WithValue(parent, guestThreadKey{}, true)
	defer close(h.done)
	defer func() {
		h.setState(Terminated)
		_ = guestMod.Close(ctx)
		_ = hostMod.Close(ctx)
		_ = h.rt.Close(ctx)
	}()

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
			value, err := h.runOne(ctx, cmd, guestMod, deadline, ticker)
			cmd.reply <- result{value: value, err: err}
		}
	}
}

// runOne executes a single command with panic recovery and epoch-deadline
// bookkeeping, isolating one caller's crash from the rest of the actor's
// lifetime.
func (h *Handle) runOne(ctx context.Context, cmd *command, guestMod api.Module, deadline *epoch.Deadline, ticker *epoch.Ticker) (value any, err error) {
	callID := uuid.NewString()
	logger := rtlog.WithCall(h.logger, callID)

	callCtx := ctx
	var cancel context.CancelFunc
	if ticker != nil {
		callCtx, cancel = withEpochCancellation(ctx, deadline, ticker)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			rtlog.GuestPanic(ctx, logger, r)
			err = fmt.Errorf("actor: extension %s: recovered panic: %v", h.Manifest, r)
		}
	}()

	return cmd.run(callCtx, guestMod)
}

// withEpochCancellation starts a background watcher that cancels the
// returned context once ticker's counter crosses deadline, implementing
// the store's "async-yield-and-update(1)" contract (spec §4.C, §4.E step
// 4) in terms of wazero's CloseOnContextDone mechanism. The watcher exits
// either when the call's own cancel is invoked or when it has fired once.
func withEpochCancellation(parent context.Context, deadline *epoch.Deadline, ticker *epoch.Ticker) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	stop := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(epoch.Tick)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				if deadline.Expired(ticker.Counter.Load()) {
					cancel()
					return
				}
			}
		}
	}()
	return ctx, func() {
		close(stop)
		cancel()
		<-done
	}
}

func contentCacheKey(extensionID string, stripped []byte) string {
	sum := sha256.Sum256(stripped)
	return extensionID + ":" + hex.EncodeToString(sum[:])
}
