package abi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/klyx-dev/extensionrt/internal/binaryinspect"
)

func TestSelectExactVersionMatch(t *testing.T) {
	b, err := Select(MinVersionV1_3_6)
	require.NoError(t, err)
	require.Equal(t, MinVersionV1_3_6, b.Version())
}

func TestSelectNewerCompatibleVersion(t *testing.T) {
	// Spec scenario S2: a guest reporting a newer version than any
	// registered variant is served by the latest variant whose minimum is
	// still satisfied.
	newer := binaryinspect.Version{Major: 1, Minor: 4, Patch: 0}
	b, err := Select(newer)
	require.NoError(t, err)
	require.Equal(t, MinVersionV1_3_6, b.Version())
}

func TestSelectOlderVersionUnsupported(t *testing.T) {
	older := binaryinspect.Version{Major: 1, Minor: 0, Patch: 0}
	_, err := Select(older)
	require.Error(t, err)
	var unsupported ErrUnsupportedVersion
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, older, unsupported.Detected)
}
