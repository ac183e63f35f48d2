package hostimport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/klyx-dev/extensionrt/internal/capability"
	"github.com/klyx-dev/extensionrt/internal/collaborator"
	"github.com/klyx-dev/extensionrt/internal/sandbox"
	"github.com/klyx-dev/extensionrt/manifest"
)

type recordingNodeJS struct {
	installWorkDir string
	installName    string
	installVersion string
}

func (r *recordingNodeJS) NodeBinaryPath(ctx context.Context) (string, error) {
	return "/usr/bin/node", nil
}

func (r *recordingNodeJS) NpmInstallPackage(ctx context.Context, workDir, name, version string) error {
	r.installWorkDir, r.installName, r.installVersion = workDir, name, version
	return nil
}

func (r *recordingNodeJS) NpmPackageLatestVersion(ctx context.Context, name string) (string, error) {
	return "1.0.0", nil
}

func (r *recordingNodeJS) NpmPackageInstalledVersion(ctx context.Context, workDir, name string) (*string, error) {
	return nil, nil
}

func newTestDispatcher(t *testing.T, granter capability.Granter, collab collaborator.Set) (*Dispatcher, *sandbox.State) {
	t.Helper()
	sb, err := sandbox.Build(t.TempDir(), manifest.Manifest{ID: "ext1"}, granter)
	require.NoError(t, err)
	return New(manifest.Manifest{ID: "ext1"}, sb, granter, collab), sb
}

func TestNpmInstallPackageConsultsGranterBeforeInstalling(t *testing.T) {
	nodejs := &recordingNodeJS{}
	d, _ := newTestDispatcher(t, capability.DenyAll{}, collaborator.Set{NodeJS: nodejs})

	err := d.npmInstallPackage(context.Background(), npmInstallPackageArg{Name: "left-pad", Version: "1.0.0"})
	require.Error(t, err)
	require.Empty(t, nodejs.installName, "collaborator must not be reached when the granter denies the request")
}

func TestNpmInstallPackageInstallsIntoSandboxWorkDirNotGuestArg(t *testing.T) {
	nodejs := &recordingNodeJS{}
	d, sb := newTestDispatcher(t, capability.AllowAll{}, collaborator.Set{NodeJS: nodejs})

	err := d.npmInstallPackage(context.Background(), npmInstallPackageArg{Name: "left-pad", Version: "1.0.0"})
	require.NoError(t, err)
	require.Equal(t, sb.WorkDir, nodejs.installWorkDir)
	require.Equal(t, "left-pad", nodejs.installName)
}

func TestNpmInstallPackagePanicsWithoutCollaborator(t *testing.T) {
	d, _ := newTestDispatcher(t, capability.AllowAll{}, collaborator.Set{})
	require.Panics(t, func() {
		_ = d.npmInstallPackage(context.Background(), npmInstallPackageArg{Name: "left-pad"})
	})
}
