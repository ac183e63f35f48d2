// Package sandbox prepares the per-extension environment spec §4.D
// describes: a work directory, a scoped virtual filesystem exposed to the
// guest under exactly one preopened directory (under two aliases), a
// baseline environment, and the path-containment helper every
// path-accepting host import relies on.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tetratelabs/wazero"

	"github.com/klyx-dev/extensionrt/internal/capability"
	"github.com/klyx-dev/extensionrt/internal/relpath"
	"github.com/klyx-dev/extensionrt/internal/resource"
	"github.com/klyx-dev/extensionrt/manifest"
)

// State is the per-extension-instance sandbox: resource table, work
// directory, manifest, and capability granter (spec §3 "Sandbox state").
// The host-import surface is intentionally not stored here — it is
// reference-counted and shared across every extension, and is injected
// into the dispatcher separately (see internal/hostimport).
type State struct {
	Manifest manifest.Manifest
	WorkDir  string
	Table    *resource.Table
	Granter  capability.Granter
}

// Build computes the work directory for manifest.ID under baseWorkDir,
// ensures it exists (non-recursively — a missing baseWorkDir is an error,
// not silently created), and returns the sandbox State.
func Build(baseWorkDir string, m manifest.Manifest, granter capability.Granter) (*State, error) {
	workDir := filepath.Join(baseWorkDir, m.ID)
	if err := os.Mkdir(workDir, 0o755); err != nil && !os.IsExist(err) {
		return nil, fmt.Errorf("sandbox: create work dir %q: %w", workDir, err)
	}
	return &State{
		Manifest: m,
		WorkDir:  workDir,
		Table:    resource.NewTable(),
		Granter:  granter,
	}, nil
}

// ModuleConfig builds the wazero.ModuleConfig for this sandbox: stdio
// inherited, PWD and RUST_BACKTRACE=full set, and the work directory
// preopened under both "." and its own literal path, each with full
// read/write/metadata permissions. No other directory is ever reachable
// from the guest.
func (s *State) ModuleConfig() wazero.ModuleConfig {
	pwd := s.WorkDir
	if filepath.Separator == '\\' {
		pwd = strings.ReplaceAll(pwd, `\`, "/")
	}

	fsConfig := wazero.NewFSConfig().
		WithDirMount(s.WorkDir, ".").
		WithDirMount(s.WorkDir, s.WorkDir)

	return wazero.NewModuleConfig().
		WithStdin(os.Stdin).
		WithStdout(os.Stdout).
		WithStderr(os.Stderr).
		WithEnv("PWD", pwd).
		WithEnv("RUST_BACKTRACE", "full").
		WithFSConfig(fsConfig).
		WithName(s.Manifest.ID)
}

// WritablePath joins rel onto the work directory and rejects any result
// that would escape it. rel is parsed with relpath so ".." components can
// only cancel within the subtree (spec §4.D, testable property 2, and
// scenario S6).
func (s *State) WritablePath(rel string) (string, error) {
	return writablePathFromExtension(s.WorkDir, rel)
}

func writablePathFromExtension(workDir, rel string) (string, error) {
	p, err := relpath.Parse(rel, relpath.Posix)
	if err != nil {
		return "", fmt.Errorf("sandbox: %q escapes the work directory: %w", rel, err)
	}
	abs := filepath.Join(workDir, filepath.FromSlash(p.String()))

	// Belt-and-braces: relpath.Parse already rejects any ".." that would
	// pop past the root, but filepath.Join on a platform-specific
	// separator deserves its own containment check before any caller
	// touches the filesystem with abs.
	cleanWorkDir := filepath.Clean(workDir) + string(os.PathSeparator)
	if abs != filepath.Clean(workDir) && !strings.HasPrefix(filepath.Clean(abs)+string(os.PathSeparator), cleanWorkDir) {
		return "", fmt.Errorf("sandbox: %q escapes the work directory", rel)
	}
	return abs, nil
}

// currentPlatform is used by platform.current-platform (spec §4.F) to map
// the Go-native GOOS/GOARCH pair onto the canonical identifiers the guest
// expects. It is an InvariantViolation (fatal, not a guest error) for the
// host process itself to be running on a platform the guest ABI has no
// name for.
func CurrentPlatform() (os_, arch string, err error) {
	switch runtime.GOOS {
	case "darwin":
		os_ = "mac"
	case "linux":
		os_ = "linux"
	case "windows":
		os_ = "windows"
	case "android":
		os_ = "android"
	case "ios":
		os_ = "ios"
	default:
		return "", "", fmt.Errorf("sandbox: unsupported platform os %q", runtime.GOOS)
	}
	switch runtime.GOARCH {
	case "arm64":
		arch = "aarch64"
	case "386":
		arch = "x86"
	case "amd64":
		arch = "x86_64"
	default:
		return "", "", fmt.Errorf("sandbox: unsupported platform arch %q", runtime.GOARCH)
	}
	return os_, arch, nil
}
