package rle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip_Depth8(t *testing.T) {
	width, height := 100, 100
	mask := make([]byte, width*height)

	// Mix of runs and gradients to exercise both encoder paths.
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < 50 {
				mask[y*width+x] = byte(y)
			} else {
				mask[y*width+x] = byte(x)
			}
		}
	}

	compressed, err := Encode(mask, width, height, 8)
	require.NoError(t, err)
	require.NotEmpty(t, compressed)
	t.Logf("8-bit compressed size: %d / %d", len(compressed), width*height)

	decoded, n, err := Decode(compressed, width, height, 8)
	require.NoError(t, err)
	assert.Equal(t, len(compressed), n, "self-terminating decode should consume the whole stream")
	assert.Equal(t, mask, decoded)
}

func TestRoundTrip_Depth16(t *testing.T) {
	width, height := 64, 32
	mask := make([]byte, width*height)
	for i := range mask {
		mask[i] = byte(i * 7)
	}

	compressed, err := Encode(mask, width, height, 16)
	require.NoError(t, err)

	decoded, _, err := Decode(compressed, width, height, 16)
	require.NoError(t, err)
	assert.Equal(t, mask, decoded, "16-bit samples should truncate back to the high byte")
}

func TestDecode_Runs(t *testing.T) {
	// 2x2 mask: replicate run of 3 (control -2), then one literal (control 0).
	src := []byte{
		0x00, 0x03, 0x00, 0x02, // scanline table, discarded
		0xFE, 0xAA, // repeat 0xAA three times
		0x00, 0x55, // one literal
	}
	decoded, n, err := Decode(src, 2, 2, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xAA, 0xAA, 0x55}, decoded)
	assert.Equal(t, len(src), n)
}

func TestDecode_SentinelSkipped(t *testing.T) {
	src := []byte{
		0x00, 0x02, // scanline table (height 1)
		0x80,       // -128 no-op
		0x01, 1, 2, // two literals
	}
	decoded, _, err := Decode(src, 2, 1, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, decoded)
}

func TestDecode_TruncatedInputYieldsPartial(t *testing.T) {
	src := []byte{
		0x00, 0x09, // scanline table (height 1)
		0x03, 7, 7, // literal run of 4 cut short after 2 samples
	}
	decoded, n, err := Decode(src, 4, 1, 8)
	require.NoError(t, err, "malformed stream must not fail, only truncate")
	assert.Equal(t, []byte{7, 7, 0, 0}, decoded)
	assert.Equal(t, len(src), n)
}

func TestDecode_UnsupportedDepth(t *testing.T) {
	_, _, err := Decode([]byte{0, 0}, 1, 1, 24)
	assert.Error(t, err)
}

func TestDecode_StopsAtExpectedLength(t *testing.T) {
	// Replicate run longer than the mask: decode stops at width*height.
	src := []byte{
		0x00, 0x02, // scanline table
		0x81, 0xFF, // repeat 0xFF 128 times
	}
	decoded, _, err := Decode(src, 3, 1, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF}, decoded)
}
