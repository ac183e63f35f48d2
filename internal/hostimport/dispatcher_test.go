package hostimport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/klyx-dev/extensionrt/internal/capability"
	"github.com/klyx-dev/extensionrt/internal/collaborator"
	"github.com/klyx-dev/extensionrt/internal/relpath"
)

type fakeWorktree struct {
	id   uint32
	root string
}

func (w *fakeWorktree) ID() uint32       { return w.id }
func (w *fakeWorktree) RootPath() string { return w.root }
func (w *fakeWorktree) ReadTextFile(ctx context.Context, path relpath.RelPath) (string, error) {
	return "", nil
}
func (w *fakeWorktree) Which(ctx context.Context, binary string) (string, bool, error) {
	return "", false, nil
}
func (w *fakeWorktree) ShellEnv(ctx context.Context) (map[string]string, error) {
	return map[string]string{"PATH": "/usr/bin"}, nil
}

func TestWorktreeRootPathResolvesByRegisteredID(t *testing.T) {
	wt := &fakeWorktree{id: 7, root: "/work/ext1"}
	d, _ := newTestDispatcher(t, capability.AllowAll{}, collaborator.Set{
		Worktrees: map[uint32]collaborator.Worktree{7: wt},
	})

	path, err := d.worktreeRootPath(context.Background(), worktreeHandleArg{Worktree: 7})
	require.NoError(t, err)
	require.Equal(t, "/work/ext1", path)
}

func TestWorktreeShellEnvPanicsForUnregisteredID(t *testing.T) {
	d, _ := newTestDispatcher(t, capability.AllowAll{}, collaborator.Set{
		Worktrees: map[uint32]collaborator.Worktree{7: &fakeWorktree{id: 7}},
	})

	require.Panics(t, func() {
		_, _ = d.worktreeShellEnv(context.Background(), worktreeHandleArg{Worktree: 99})
	})
}
