package relpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStripsDotSlashAndTrailingSeparator(t *testing.T) {
	p, err := Parse("./a/b/", Posix)
	require.NoError(t, err)
	assert.Equal(t, "a/b", p.String())
}

func TestParseRejectsAbsolute(t *testing.T) {
	_, err := Parse("/etc/passwd", Posix)
	assert.Error(t, err)
}

func TestParseRejectsWindowsAbsolute(t *testing.T) {
	_, err := Parse(`C:\Users\me`, Windows)
	assert.Error(t, err)
}

func TestParseDotDotPopsWithinRoot(t *testing.T) {
	p, err := Parse("a/b/../c", Posix)
	require.NoError(t, err)
	assert.Equal(t, "a/c", p.String())
}

func TestParseDotDotEscapingRootFails(t *testing.T) {
	_, err := Parse("../outside", Posix)
	assert.Error(t, err)

	_, err = Parse("a/../../outside", Posix)
	assert.Error(t, err)
}

func TestParseWindowsBackslashNormalizesToForwardSlash(t *testing.T) {
	p, err := Parse(`a\b\c`, Windows)
	require.NoError(t, err)
	assert.Equal(t, "a/b/c", p.String())
}

func TestDisplayRoundTrip(t *testing.T) {
	for _, style := range []Style{Posix, Windows} {
		p, err := Parse("a/b/c", style)
		require.NoError(t, err)
		displayed := p.Display(style)
		reparsed, err := Parse(displayed, style)
		require.NoError(t, err)
		assert.Equal(t, p.Display(style), reparsed.Display(style))
	}
}

func TestJoin(t *testing.T) {
	a, _ := Parse("a/b", Posix)
	b, _ := Parse("c", Posix)
	assert.Equal(t, "a/b/c", Join(a, b).String())
	assert.Equal(t, "c", Join(Empty, b).String())
	assert.Equal(t, "a/b", Join(a, Empty).String())
}

func TestParent(t *testing.T) {
	p, _ := Parse("a/b/c", Posix)
	parent, ok := p.Parent()
	require.True(t, ok)
	assert.Equal(t, "a/b", parent.String())

	_, ok = Empty.Parent()
	assert.False(t, ok)
}
