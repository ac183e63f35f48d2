package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klyx-dev/extensionrt/internal/capability"
	"github.com/klyx-dev/extensionrt/manifest"
)

func TestBuildCreatesWorkDir(t *testing.T) {
	base := t.TempDir()
	s, err := Build(base, manifest.Manifest{ID: "ext1"}, capability.DenyAll{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "ext1"), s.WorkDir)

	info, err := os.Stat(s.WorkDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWritablePathStaysInsideWorkDir(t *testing.T) {
	base := t.TempDir()
	s, err := Build(base, manifest.Manifest{ID: "ext1"}, capability.DenyAll{})
	require.NoError(t, err)

	p, err := s.WritablePath("sub/file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.WorkDir, "sub", "file.txt"), p)

	p, err = s.WritablePath("a/../b")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.WorkDir, "b"), p)
}

func TestWritablePathRejectsEscape(t *testing.T) {
	base := t.TempDir()
	s, err := Build(base, manifest.Manifest{ID: "ext1"}, capability.DenyAll{})
	require.NoError(t, err)

	_, err = s.WritablePath("../outside")
	assert.Error(t, err)

	_, err = s.WritablePath("a/../../outside")
	assert.Error(t, err)
}
