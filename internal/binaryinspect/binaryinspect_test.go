package binaryinspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// componentHeader is the 8-byte magic+version prefix used by every test
// fixture binary: "\0asm" followed by a version/layer field. The exact
// layer value doesn't matter to the section walker, which treats it as an
// opaque 8-byte prefix to preserve.
var componentHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x0d, 0x00, 0x01, 0x00}

func customSection(name string, content []byte) []byte {
	var sec []byte
	sec = appendULEB128(sec, uint64(len(name)))
	sec = append(sec, name...)
	sec = append(sec, content...)
	return appendSection(nil, sectionIDCustom, sec)
}

func buildBinary(sections ...[]byte) []byte {
	out := append([]byte(nil), componentHeader...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

func TestParseVersionS1Valid(t *testing.T) {
	bin := buildBinary(customSection(VersionSectionName, []byte{0x00, 0x01, 0x00, 0x03, 0x00, 0x06}))
	v, err := ParseVersion("ext1", bin)
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 1, Minor: 3, Patch: 6}, v)
}

func TestParseVersionS1InvalidLength(t *testing.T) {
	bin := buildBinary(customSection(VersionSectionName, []byte{0x00, 0x01, 0x00, 0x03, 0x00}))
	_, err := ParseVersion("ext1", bin)
	require.Error(t, err)
	assert.IsType(t, ErrInvalidVersion{}, err)
}

func TestParseVersionS1Missing(t *testing.T) {
	bin := buildBinary(customSection("name", []byte("hello")))
	_, err := ParseVersion("ext1", bin)
	require.Error(t, err)
	assert.IsType(t, ErrMissingVersion{}, err)
}

func TestParseVersionConsumesTrailingMalformedSections(t *testing.T) {
	good := customSection(VersionSectionName, []byte{0x00, 0x01, 0x00, 0x03, 0x00, 0x06})
	bin := buildBinary(good)
	// Append a section claiming a size larger than the remaining bytes.
	bin = append(bin, 0x00, 0xff, 0xff, 0xff, 0xff, 0x0f)
	_, err := ParseVersion("ext1", bin)
	assert.Error(t, err, "a malformed trailing section must surface as an error, not be silently ignored")
}

func TestStripDropsUnknownCustomSectionsAndKeepsAllowlisted(t *testing.T) {
	version := customSection(VersionSectionName, []byte{0x00, 0x01, 0x00, 0x03, 0x00, 0x06})
	name := customSection("name", []byte("my-extension"))
	producers := customSection("producers", []byte("rustc"))
	bin := buildBinary(version, name, producers)

	out, err := Strip(bin)
	require.NoError(t, err)

	v, err := ParseVersion("ext1", out)
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 1, Minor: 3, Patch: 6}, v)

	var sawName, sawProducers bool
	err = walkSections(out, func(_ int, id byte, n string, _ []byte) error {
		if n == "name" {
			sawName = true
		}
		if n == "producers" {
			sawProducers = true
		}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, sawName, "name section must be preserved")
	assert.False(t, sawProducers, "unlisted custom sections must be dropped")
}

func TestStripIsIdempotentAndDeterministic(t *testing.T) {
	version := customSection(VersionSectionName, []byte{0x00, 0x01, 0x00, 0x03, 0x00, 0x06})
	producers := customSection("producers", []byte("rustc"))
	bin := buildBinary(version, producers)

	once, err := Strip(bin)
	require.NoError(t, err)
	twice, err := Strip(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	again, err := Strip(bin)
	require.NoError(t, err)
	assert.Equal(t, once, again, "strip must be a deterministic function of its input")
}

func TestStripPreservesNestedCoreModule(t *testing.T) {
	coreHeader := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	coreName := customSection("name", []byte("inner"))
	coreProducers := customSection("producers", []byte("rustc"))
	coreModule := append(append([]byte(nil), coreHeader...), append(coreName, coreProducers...)...)

	outer := buildBinary(appendSection(nil, sectionIDCoreModule, coreModule))
	out, err := Strip(outer)
	require.NoError(t, err)

	var sawCoreName, sawCoreProducers bool
	err = walkSections(out, func(_ int, id byte, n string, _ []byte) error {
		if id == sectionIDCustom && n == "name" {
			sawCoreName = true
		}
		if id == sectionIDCustom && n == "producers" {
			sawCoreProducers = true
		}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, sawCoreName)
	assert.False(t, sawCoreProducers)
}
