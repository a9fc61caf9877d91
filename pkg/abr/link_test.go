package abr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkByIdentifier_PaddedIDsMatch(t *testing.T) {
	res := LinkByIdentifier(
		[]string{"abc"},
		[]string{"abc\x00\x00"},
	)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 0, res.Matches[0])
	assert.Empty(t, res.UnmatchedPresets)
}

func TestLinkByIdentifier_WhitespaceTrimmed(t *testing.T) {
	res := LinkByIdentifier(
		[]string{" brush-7 "},
		[]string{"brush-7\x00"},
	)
	require.Len(t, res.Matches, 1)
}

func TestLinkByIdentifier_UnmatchedPresetLeavesSamplesAlone(t *testing.T) {
	res := LinkByIdentifier(
		[]string{"abc", "def"},
		[]string{"xyz"},
	)
	assert.Empty(t, res.Matches)
	assert.Equal(t, []int{0}, res.UnmatchedPresets)
}

func TestLinkByIdentifier_DuplicateSamplesFlagged(t *testing.T) {
	res := LinkByIdentifier(
		[]string{"abc", "abc\x00", "def"},
		[]string{"abc"},
	)
	assert.Equal(t, []string{"abc"}, res.DuplicateSamples)
	// First occurrence wins.
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 0, res.Matches[0])
}

func TestLinkByIdentifier_EmptyIDsNeverMatch(t *testing.T) {
	res := LinkByIdentifier(
		[]string{"", "\x00\x00"},
		[]string{"", "abc"},
	)
	assert.Empty(t, res.Matches)
	assert.Len(t, res.UnmatchedPresets, 2)
}
