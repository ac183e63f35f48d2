// Package collaborator declares every external dependency the host-import
// dispatcher mediates but never implements itself (spec §1: "Out of
// scope ... treated as external collaborators and referenced only through
// their interfaces"). The concrete HTTP client, code-hosting client,
// package manager, process runner, toast/settings backends, and file
// downloader all live outside this module; callers of internal/actor's
// Load inject implementations of these interfaces.
package collaborator

import (
	"context"

	"github.com/klyx-dev/extensionrt/internal/relpath"
)

// Worktree is the delegate a guest reaches by worktree ID (see
// collaborator.Set.Worktrees) for filesystem-shaped project operations.
type Worktree interface {
	ID() uint32
	RootPath() string
	ReadTextFile(ctx context.Context, path relpath.RelPath) (string, error)
	Which(ctx context.Context, binary string) (path string, found bool, err error)
	ShellEnv(ctx context.Context) (map[string]string, error)
}

// Project exposes the worktrees composing the project the extension is
// running against.
type Project interface {
	WorktreeIDs(ctx context.Context) ([]uint32, error)
}

// KVStore is a simple per-extension persistent key/value store.
type KVStore interface {
	Insert(ctx context.Context, key, value string) error
}

// HTTPMethod enumerates the methods the wire request shape supports
// (spec §6).
type HTTPMethod string

const (
	MethodGet     HTTPMethod = "GET"
	MethodHead    HTTPMethod = "HEAD"
	MethodPost    HTTPMethod = "POST"
	MethodPut     HTTPMethod = "PUT"
	MethodDelete  HTTPMethod = "DELETE"
	MethodOptions HTTPMethod = "OPTIONS"
	MethodPatch   HTTPMethod = "PATCH"
)

// RedirectPolicy controls how the collaborator follows redirects.
type RedirectPolicy struct {
	Mode  RedirectMode
	Limit int // only meaningful when Mode == RedirectFollowLimit
}

type RedirectMode int

const (
	RedirectNoFollow RedirectMode = iota // default
	RedirectFollowLimit
	RedirectFollowAll
)

// HTTPRequest is the normalized shape passed to the HTTP collaborator
// (spec §6). Header keys are case-sensitive as stored; duplicate guest
// header entries are collapsed to the last write before this struct is
// built (see internal/hostimport).
type HTTPRequest struct {
	Method   HTTPMethod
	URL      string
	Headers  map[string]string
	Body     []byte
	Redirect RedirectPolicy
}

// HTTPResponse is a unary fetch result.
type HTTPResponse struct {
	Status  uint16
	Headers map[string]string
	Body    []byte
}

// ResponseStream is a pull-based, reference-counted byte-chunk stream
// backing http-client.fetch-stream (spec §4.F, scenario S5). Dropping the
// guest's handle to a stream releases only the resource-table slot;
// Close is called once per holder and the stream itself is only torn down
// once every holder has released it.
type ResponseStream interface {
	NextChunk(ctx context.Context) (chunk []byte, ok bool, err error)
	// Close decrements this holder's reference. Implementations own their
	// own refcounting since the runtime never assumes a single owner.
	Close() error
}

// HTTPClient is the unary + streaming HTTP collaborator.
type HTTPClient interface {
	Fetch(ctx context.Context, req HTTPRequest) (HTTPResponse, error)
	FetchStream(ctx context.Context, req HTTPRequest) (ResponseStream, error)
}

// ProcessOutput is the result of a spawned process.
type ProcessOutput struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode *int
}

// ProcessRunner spawns external commands on the guest's behalf, only ever
// reached after the capability granter allows the call.
type ProcessRunner interface {
	Run(ctx context.Context, command string, args []string, env map[string]string) (ProcessOutput, error)
}

// NodeJS mediates the Node.js/npm toolchain operations the spec exposes
// as pure delegations plus one capability-gated install.
type NodeJS interface {
	NodeBinaryPath(ctx context.Context) (string, error)
	NpmInstallPackage(ctx context.Context, workDir, name, version string) error
	NpmPackageLatestVersion(ctx context.Context, name string) (string, error)
	NpmPackageInstalledVersion(ctx context.Context, workDir, name string) (*string, error)
}

// DownloadType enumerates the archive formats download-file can unpack
// into place as it writes.
type DownloadType int

const (
	DownloadGzip DownloadType = iota
	DownloadGzipTar
	DownloadZip
	DownloadUncompressed
)

// Downloader fetches a URL to a path on disk, capability-gated by URL.
type Downloader interface {
	Download(ctx context.Context, url, destPath string, kind DownloadType) error
}

// Unzipper extracts an archive already on disk.
type Unzipper interface {
	Unzip(ctx context.Context, src, dst string) error
}

// ToastDuration enumerates the two toast lifetimes the spec allows.
type ToastDuration int

const (
	ToastShort ToastDuration = iota
	ToastLong
)

// Toaster surfaces a fire-and-forget user-facing notification.
type Toaster interface {
	ShowToast(message string, duration ToastDuration)
}

// SettingsProvider resolves an editor setting by location/category/key,
// returning it JSON-serialized per spec §4.F.
type SettingsProvider interface {
	GetSettings(ctx context.Context, location, category, key string) (json string, err error)
}

// ReleaseAsset and Release are the guest-visible shape every code-hosting
// release lookup normalizes to (spec §4.F): {version, assets}.
type ReleaseAsset struct {
	Name        string
	DownloadURL string
}

type Release struct {
	Version string
	Assets  []ReleaseAsset
}

// ReleaseOptions narrows a latest-release lookup (e.g. pre-release
// inclusion); left opaque to the collaborator's own schema.
type ReleaseOptions map[string]string

// CodeHost resolves releases from a code-hosting site (e.g. GitHub).
type CodeHost interface {
	LatestRelease(ctx context.Context, repo string, opts ReleaseOptions) (Release, error)
	ReleaseByTag(ctx context.Context, repo, tag string) (Release, error)
}

// LanguageServerInstallationStatus enumerates the fire-and-forget status
// values set-language-server-installation-status reports.
type LanguageServerInstallationStatus int

const (
	StatusCheckingForUpdate LanguageServerInstallationStatus = iota
	StatusDownloading
	StatusNone
	StatusFailed
)

// InstallationStatusSink receives fire-and-forget status updates.
type InstallationStatusSink interface {
	SetLanguageServerInstallationStatus(name string, status LanguageServerInstallationStatus)
}

// Set bundles every collaborator the dispatcher mediates. A field left
// nil disables the host imports that need it; calling one of those
// imports then traps (host-side preparation failure), not a guest error,
// since an unconfigured collaborator is a runtime misconfiguration, not
// something the guest's own request caused.
type Set struct {
	Worktrees map[uint32]Worktree
	Project   Project
	KV        KVStore
	HTTP      HTTPClient
	Process   ProcessRunner
	NodeJS    NodeJS
	Download  Downloader
	Unzip     Unzipper
	Toaster   Toaster
	Settings  SettingsProvider
	CodeHost  CodeHost
	Status    InstallationStatusSink
}
