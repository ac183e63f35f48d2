package hostimport

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/klyx-dev/extensionrt/internal/capability"
	"github.com/klyx-dev/extensionrt/internal/collaborator"
	"github.com/klyx-dev/extensionrt/internal/relpath"
	"github.com/klyx-dev/extensionrt/internal/sandbox"
	"github.com/klyx-dev/extensionrt/manifest"
)

// HostModuleName is the namespace every guest-callable host function is
// exported under.
const HostModuleName = "klyx:extension/host"

// Dispatcher implements every guest-callable host function against one
// extension's sandbox, collaborators, and capability granter. A
// Dispatcher is built once per extension instance and shared across that
// extension's whole lifetime; internal/actor is what actually serializes
// access to the guest instance that invokes it, so none of these methods
// need their own locking beyond what resource.Table already provides.
type Dispatcher struct {
	manifest manifest.Manifest
	sandbox  *sandbox.State
	granter  capability.Granter
	collab   collaborator.Set
}

// New returns a Dispatcher for one extension instance.
func New(m manifest.Manifest, sb *sandbox.State, granter capability.Granter, collab collaborator.Set) *Dispatcher {
	return &Dispatcher{manifest: m, sandbox: sb, granter: granter, collab: collab}
}

// Instantiate registers every host import under HostModuleName against
// rt and instantiates the resulting host module, so the guest component
// can link against it during its own instantiation.
func (d *Dispatcher) Instantiate(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	b := rt.NewHostModuleBuilder(HostModuleName)

	b = exportFunc(b, "worktree.id", bind(d, d.worktreeID))
	b = exportFunc(b, "worktree.root-path", bind(d, d.worktreeRootPath))
	b = exportFunc(b, "worktree.read-text-file", bind(d, d.worktreeReadTextFile))
	b = exportFunc(b, "worktree.which", bind(d, d.worktreeWhich))
	b = exportFunc(b, "worktree.shell-env", bind(d, d.worktreeShellEnv))

	b = exportFunc(b, "project.worktree-ids", bind(d, d.projectWorktreeIDs))

	b = exportFunc(b, "key-value-store.insert", bindVoid(d, d.kvInsert))

	b = exportFunc(b, "http-client.fetch", bind(d, d.httpFetch))
	b = exportFunc(b, "http-client.fetch-stream", bind(d, d.httpFetchStream))
	b = exportFunc(b, "http-response-stream.next-chunk", bind(d, d.httpStreamNextChunk))

	b = exportFunc(b, "platform.current-platform", bind(d, d.currentPlatform))

	b = exportFunc(b, "process.run-command", bind(d, d.processRunCommand))

	b = exportFunc(b, "nodejs.npm-install-package", bindVoid(d, d.npmInstallPackage))
	b = exportFunc(b, "nodejs.node-binary-path", bind(d, d.nodeBinaryPath))
	b = exportFunc(b, "nodejs.npm-package-latest-version", bind(d, d.npmPackageLatestVersion))
	b = exportFunc(b, "nodejs.npm-package-installed-version", bind(d, d.npmPackageInstalledVersion))

	b = exportFunc(b, "extension-imports.download-file", bindVoid(d, d.downloadFile))
	b = exportFunc(b, "extension-imports.unzip-file", bindVoid(d, d.unzipFile))
	b = exportFunc(b, "extension-imports.make-file-executable", bindVoid(d, d.makeFileExecutable))
	b = exportFunc(b, "extension-imports.set-language-server-installation-status", bindVoid(d, d.setLanguageServerInstallationStatus))
	b = exportFunc(b, "extension-imports.get-settings", bind(d, d.getSettings))

	b = exportFunc(b, "system.show-toast", bindVoid(d, d.showToast))

	b = exportFunc(b, "github.latest-github-release", bind(d, d.latestGithubRelease))
	b = exportFunc(b, "github.github-release-by-tag-name", bind(d, d.githubReleaseByTagName))

	return b.Instantiate(ctx)
}

// --- worktree.* -------------------------------------------------------

// The "worktree" value a guest holds is the worktree's own ID, the same
// uint32 the host passes into exports like language-server-command and
// that project.worktree-ids returns -- not a resource-table handle.
// Worktree delegates themselves never cross into the resource table:
// they are looked up directly against the collaborator set keyed by that
// ID (collaborator.Set.Worktrees), which is how the host registers one
// worktree delegate per ID up front.
type worktreeHandleArg struct {
	Worktree uint32 `json:"worktree"`
}

func (d *Dispatcher) lookupWorktree(id uint32) (collaborator.Worktree, error) {
	wt, ok := d.collab.Worktrees[id]
	if !ok {
		return nil, fmt.Errorf("hostimport: no worktree registered for id %d", id)
	}
	return wt, nil
}

func (d *Dispatcher) worktreeID(_ context.Context, arg worktreeHandleArg) (uint32, error) {
	wt, err := d.lookupWorktree(arg.Worktree)
	if err != nil {
		// An unregistered worktree ID can only mean the host handed the
		// guest an ID it never registered a delegate for: a host bug, not
		// something the guest's own request caused -- panic like any
		// other host-side preparation failure rather than returning it.
		panic(err)
	}
	return wt.ID(), nil
}

func (d *Dispatcher) worktreeRootPath(_ context.Context, arg worktreeHandleArg) (string, error) {
	wt, err := d.lookupWorktree(arg.Worktree)
	if err != nil {
		panic(err)
	}
	return wt.RootPath(), nil
}

type worktreeReadTextFileArg struct {
	Worktree uint32 `json:"worktree"`
	Path     string `json:"path"`
}

func (d *Dispatcher) worktreeReadTextFile(ctx context.Context, arg worktreeReadTextFileArg) (string, error) {
	wt, err := d.lookupWorktree(arg.Worktree)
	if err != nil {
		panic(err)
	}
	p, err := relpath.Parse(arg.Path, relpath.Posix)
	if err != nil {
		// A malformed path is the guest's own mistake, not a collaborator
		// failure, but it is still returnable rather than fatal: nothing
		// escaped the sandbox, the guest just asked for a bad path.
		return "", err
	}
	return wt.ReadTextFile(ctx, p)
}

type worktreeWhichArg struct {
	Worktree uint32 `json:"worktree"`
	Binary   string `json:"binary"`
}

type worktreeWhichResult struct {
	Path  string `json:"path"`
	Found bool   `json:"found"`
}

func (d *Dispatcher) worktreeWhich(ctx context.Context, arg worktreeWhichArg) (worktreeWhichResult, error) {
	wt, err := d.lookupWorktree(arg.Worktree)
	if err != nil {
		panic(err)
	}
	path, found, err := wt.Which(ctx, arg.Binary)
	if err != nil {
		return worktreeWhichResult{}, err
	}
	return worktreeWhichResult{Path: path, Found: found}, nil
}

func (d *Dispatcher) worktreeShellEnv(ctx context.Context, arg worktreeHandleArg) (map[string]string, error) {
	wt, err := d.lookupWorktree(arg.Worktree)
	if err != nil {
		panic(err)
	}
	return wt.ShellEnv(ctx)
}

// --- project.* ---------------------------------------------------------

type noArg struct{}

func (d *Dispatcher) projectWorktreeIDs(ctx context.Context, _ noArg) ([]uint32, error) {
	if d.collab.Project == nil {
		panic(fmt.Errorf("hostimport: no project collaborator configured"))
	}
	return d.collab.Project.WorktreeIDs(ctx)
}

// --- key-value-store.* ---------------------------------------------------

type kvInsertArg struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (d *Dispatcher) kvInsert(ctx context.Context, arg kvInsertArg) error {
	if d.collab.KV == nil {
		panic(fmt.Errorf("hostimport: no key-value-store collaborator configured"))
	}
	return d.collab.KV.Insert(ctx, arg.Key, arg.Value)
}

// --- platform.current-platform -----------------------------------------

type currentPlatformResult struct {
	OS   string `json:"os"`
	Arch string `json:"arch"`
}

func (d *Dispatcher) currentPlatform(_ context.Context, _ noArg) (currentPlatformResult, error) {
	os_, arch, err := sandbox.CurrentPlatform()
	if err != nil {
		// Unsupported platform is an InvariantViolation: fatal, never
		// masked as a guest error (spec §7).
		panic(err)
	}
	return currentPlatformResult{OS: os_, Arch: arch}, nil
}
