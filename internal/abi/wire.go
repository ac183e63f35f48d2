// Wire calling convention shared by every ABI variant.
//
// wazero compiles core WebAssembly modules; it has no built-in awareness
// of the Component Model's canonical ABI. We implement just enough of
// that canonical ABI ourselves to cross the boundary: every guest export
// takes (argPtr, argLen uint32) and returns a single resultPtr uint32
// pointing at a fixed 12-byte header (flag uint32, dataPtr uint32,
// dataLen uint32) followed by its payload bytes, with arguments and
// results JSON-encoded. The guest is expected to export "cabi_realloc"
// (the canonical ABI's standard allocator export) so the host can hand it
// a buffer sized for the argument before calling the operation.
//
// This mirrors, at a coarser grain, the ptr/len memory-exchange protocol
// wapc-go's wazero engine uses for its own host/guest calling convention.
package abi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

const exportRealloc = "cabi_realloc"

// callWire invokes export with arg JSON-marshaled, and unmarshals the
// guest's JSON result into result (ignored if nil). ok reports whether the
// guest returned success; when ok is false, errMsg carries the guest's
// error string, matching the result<T, string> shape every ABI operation
// spec §4.H lists returns.
func callWire(ctx context.Context, mod api.Module, export string, arg any, result any) (ok bool, errMsg string, err error) {
	fn := mod.ExportedFunction(export)
	if fn == nil {
		return false, "", fmt.Errorf("abi: guest does not export %q", export)
	}

	argJSON, err := json.Marshal(arg)
	if err != nil {
		return false, "", fmt.Errorf("abi: marshal argument for %q: %w", export, err)
	}

	argPtr, err := guestAlloc(ctx, mod, uint32(len(argJSON)))
	if err != nil {
		return false, "", fmt.Errorf("abi: allocate guest buffer for %q: %w", export, err)
	}
	if len(argJSON) > 0 {
		if !mod.Memory().Write(argPtr, argJSON) {
			return false, "", fmt.Errorf("abi: write argument into guest memory for %q", export)
		}
	}

	results, err := fn.Call(ctx, uint64(argPtr), uint64(len(argJSON)))
	if err != nil {
		return false, "", fmt.Errorf("abi: call %q: %w", export, err)
	}
	if len(results) != 1 {
		return false, "", fmt.Errorf("abi: %q returned %d results, want 1", export, len(results))
	}

	header, ok := mod.Memory().Read(uint32(results[0]), 12)
	if !ok {
		return false, "", fmt.Errorf("abi: %q result header out of range", export)
	}
	flag := le32(header[0:4])
	dataPtr := le32(header[4:8])
	dataLen := le32(header[8:12])

	var data []byte
	if dataLen > 0 {
		data, ok = mod.Memory().Read(dataPtr, dataLen)
		if !ok {
			return false, "", fmt.Errorf("abi: %q result payload out of range", export)
		}
	}

	if flag != 0 {
		return false, string(data), nil
	}
	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return false, "", fmt.Errorf("abi: unmarshal result of %q: %w", export, err)
		}
	}
	return true, "", nil
}

func guestAlloc(ctx context.Context, mod api.Module, size uint32) (uint32, error) {
	if size == 0 {
		return 0, nil
	}
	realloc := mod.ExportedFunction(exportRealloc)
	if realloc == nil {
		return 0, fmt.Errorf("abi: guest does not export %q", exportRealloc)
	}
	// (old_ptr=0, old_size=0, align=1, new_size=size) per the canonical
	// ABI's realloc signature, used here purely as an allocator.
	results, err := realloc.Call(ctx, 0, 0, 1, uint64(size))
	if err != nil {
		return 0, err
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("abi: %q returned %d results, want 1", exportRealloc, len(results))
	}
	return uint32(results[0]), nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
