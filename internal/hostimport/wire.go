// Package hostimport implements every guest-callable host function (spec
// §4.F). Every exported function obeys the same envelope: a concrete
// success payload, a guest-visible error string, or a trap when host-side
// argument preparation itself fails (spec's "Conversion rule"). This file
// holds the shared JSON-over-guest-memory wire plumbing every operation
// in the sibling files is built on; see internal/abi/wire.go for the
// mirror-image host-to-guest convention.
package hostimport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/klyx-dev/extensionrt/manifest"
)

const exportRealloc = "cabi_realloc"

// i32 is a shorthand matching the teacher's own convention (see the
// wapc-go-style host function builders this package follows) for
// wiring up api.GoModuleFunction signatures.
const i32 = api.ValueTypeI32

// readArg reads and JSON-decodes the (argPtr, argLen) pair every guest
// call passes as its first two stack slots into arg. A failure here is a
// trap (host-side preparation failure), never a guest-visible error.
func readArg[Arg any](mod api.Module, stack []uint64) (arg Arg) {
	ptr, length := uint32(stack[0]), uint32(stack[1])
	if length == 0 {
		return arg
	}
	buf, ok := mod.Memory().Read(ptr, length)
	if !ok {
		panic(fmt.Errorf("hostimport: argument out of range (ptr=%d len=%d)", ptr, length))
	}
	if err := json.Unmarshal(buf, &arg); err != nil {
		panic(fmt.Errorf("hostimport: decode argument: %w", err))
	}
	return arg
}

// errorLiftPrefix formats spec §4.F's uniform error-lift prefix:
// `from extension "<name>" version <version>:`.
func errorLiftPrefix(m manifest.Manifest) string {
	return fmt.Sprintf("from extension %q version %s:", m.Name, m.Version)
}

// writeResult JSON-encodes result (success path) or lifts err into a
// guest-visible error string (spec's "Conversion rule": a collaborator
// error becomes a returnable error string, never a trap), allocates a
// guest buffer via the guest's own cabi_realloc export, writes the
// 12-byte (flag, dataPtr, dataLen) header followed by the payload, and
// returns the header's address for the stack.
func writeResult(ctx context.Context, mod api.Module, m manifest.Manifest, result any, collaboratorErr error) uint32 {
	var (
		flag    uint32
		payload []byte
	)
	if collaboratorErr != nil {
		flag = 1
		payload = []byte(errorLiftPrefix(m) + " " + collaboratorErr.Error())
	} else {
		var err error
		payload, err = json.Marshal(result)
		if err != nil {
			panic(fmt.Errorf("hostimport: encode result: %w", err))
		}
	}

	dataPtr := guestAlloc(ctx, mod, uint32(len(payload)))
	if len(payload) > 0 && !mod.Memory().Write(dataPtr, payload) {
		panic(fmt.Errorf("hostimport: write result payload out of range"))
	}

	headerPtr := guestAlloc(ctx, mod, 12)
	header := make([]byte, 12)
	putLE32(header[0:4], flag)
	putLE32(header[4:8], dataPtr)
	putLE32(header[8:12], uint32(len(payload)))
	if !mod.Memory().Write(headerPtr, header) {
		panic(fmt.Errorf("hostimport: write result header out of range"))
	}
	return headerPtr
}

func guestAlloc(ctx context.Context, mod api.Module, size uint32) uint32 {
	if size == 0 {
		return 0
	}
	realloc := mod.ExportedFunction(exportRealloc)
	if realloc == nil {
		panic(fmt.Errorf("hostimport: guest does not export %q", exportRealloc))
	}
	results, err := realloc.Call(ctx, 0, 0, 1, uint64(size))
	if err != nil {
		panic(fmt.Errorf("hostimport: %s: %w", exportRealloc, err))
	}
	return uint32(results[0])
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// bind wraps a typed (ctx, Arg) -> (Result, error) handler into the raw
// api.GoModuleFunc signature every host import export uses: two i32
// stack slots in (argPtr, argLen), one i32 slot out (resultPtr). The
// returned error from fn is always treated as a collaborator error
// (lifted to a guest-visible string); argument decoding failures above
// already panic as traps before fn ever runs.
func bind[Arg, Result any](d *Dispatcher, fn func(ctx context.Context, arg Arg) (Result, error)) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		arg := readArg[Arg](mod, stack)
		result, err := fn(ctx, arg)
		stack[0] = uint64(writeResult(ctx, mod, d.manifest, result, err))
	}
}

// bindVoid is bind for operations with no return payload beyond success
// or error (fire-and-forget or plain-error host imports).
func bindVoid[Arg any](d *Dispatcher, fn func(ctx context.Context, arg Arg) error) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		arg := readArg[Arg](mod, stack)
		err := fn(ctx, arg)
		stack[0] = uint64(writeResult(ctx, mod, d.manifest, struct{}{}, err))
	}
}

func exportFunc(builder wazero.HostModuleBuilder, name string, fn api.GoModuleFunc) wazero.HostModuleBuilder {
	return builder.
		NewFunctionBuilder().
		WithGoModuleFunction(fn, []api.ValueType{i32, i32}, []api.ValueType{i32}).
		WithParameterNames("arg_ptr", "arg_len").
		Export(name)
}
