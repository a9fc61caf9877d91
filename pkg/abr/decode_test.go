package abr

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zirnworks/Pictaflux/pkg/brush"
)

func makeBrush(t *testing.T, width, height int, id string) *RawBrush {
	t.Helper()
	mask := make([]byte, width*height)
	for i := range mask {
		mask[i] = byte(i * 13)
	}
	return &RawBrush{
		Identifier: id,
		Width:      width,
		Height:     height,
		AlphaMask:  mask,
		Spacing:    0.25,
		Diameter:   max(width, height),
	}
}

func TestDecode_TruncatedHeaderFatal(t *testing.T) {
	_, err := Decode([]byte{0x00})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecode_VersionDispatch(t *testing.T) {
	legacy, err := EncodeLegacyPack([]*RawBrush{makeBrush(t, 4, 4, "")}, false)
	require.NoError(t, err)
	v6, err := EncodePack([]*RawBrush{makeBrush(t, 4, 4, "a")}, nil, false)
	require.NoError(t, err)

	setVersion := func(data []byte, v uint16) []byte {
		out := bytes.Clone(data)
		binary.BigEndian.PutUint16(out, v)
		return out
	}

	for _, v := range []uint16{1, 2} {
		brushes, err := Decode(setVersion(legacy, v))
		require.NoError(t, err, "version %d", v)
		assert.Len(t, brushes, 1)
	}
	for _, v := range []uint16{6, 8, 10} {
		brushes, err := Decode(setVersion(v6, v))
		require.NoError(t, err, "version %d", v)
		assert.Len(t, brushes, 1)
	}
	for _, v := range []uint16{3, 11} {
		_, err := Decode(setVersion(v6, v))
		assert.ErrorIs(t, err, ErrUnsupportedVersion, "version %d", v)
	}
}

func TestDecode_LegacyRoundTrip(t *testing.T) {
	src := []*RawBrush{
		makeBrush(t, 8, 6, ""),
		makeBrush(t, 16, 16, ""),
	}
	src[0].Spacing = 0.5

	for _, compress := range []bool{false, true} {
		data, err := EncodeLegacyPack(src, compress)
		require.NoError(t, err)

		brushes, err := Decode(data)
		require.NoError(t, err)
		require.Len(t, brushes, 2)

		assert.Equal(t, 8, brushes[0].Width)
		assert.Equal(t, 6, brushes[0].Height)
		assert.Equal(t, 8, brushes[0].Diameter, "diameter is max(width, height)")
		assert.InDelta(t, 0.5, brushes[0].Spacing, 1e-9)
		assert.Equal(t, src[0].AlphaMask, brushes[0].AlphaMask)
		assert.Equal(t, src[1].AlphaMask, brushes[1].AlphaMask)
		assert.Nil(t, brushes[0].Dynamics, "legacy packs carry no dynamics")
	}
}

func TestDecode_CorruptEntryIsolated(t *testing.T) {
	// Hand-build a two-entry legacy pack whose first entry declares a
	// bounding box of width -5. The entry must be skipped and the second
	// one still decode.
	var corrupt bytes.Buffer
	writeUint32(&corrupt, 0) // misc
	writeUint16(&corrupt, 25)
	writeInt32(&corrupt, 0)  // top
	writeInt32(&corrupt, 0)  // left
	writeInt32(&corrupt, 10) // bottom
	writeInt32(&corrupt, -5) // right: width -5
	writeUint16(&corrupt, 8)
	corrupt.WriteByte(0)

	good := makeBrush(t, 4, 4, "")
	var goodEntry bytes.Buffer
	writeUint32(&goodEntry, 0)
	writeUint16(&goodEntry, 25)
	require.NoError(t, writeSampledPixels(&goodEntry, good, false))

	var pack bytes.Buffer
	writeUint16(&pack, 2) // version
	writeUint16(&pack, 2) // count
	for _, entry := range [][]byte{corrupt.Bytes(), goodEntry.Bytes()} {
		writeUint16(&pack, legacyTypeSampled)
		writeUint32(&pack, uint32(len(entry)))
		pack.Write(entry)
	}

	brushes, err := Decode(pack.Bytes())
	require.NoError(t, err)
	require.Len(t, brushes, 1)
	assert.Equal(t, good.AlphaMask, brushes[0].AlphaMask)
}

func TestDecode_DeclaredLengthResyncs(t *testing.T) {
	// Trailing junk inside an entry's declared span must not desynchronize
	// the next entry: the loop advances by declared length, not bytes read.
	b1 := makeBrush(t, 4, 4, "")
	b2 := makeBrush(t, 5, 5, "")

	var e1 bytes.Buffer
	writeUint32(&e1, 0)
	writeUint16(&e1, 25)
	require.NoError(t, writeSampledPixels(&e1, b1, false))
	e1.Write([]byte{0xAB, 0xCD, 0xEF}) // junk past the mask

	var e2 bytes.Buffer
	writeUint32(&e2, 0)
	writeUint16(&e2, 25)
	require.NoError(t, writeSampledPixels(&e2, b2, false))

	var pack bytes.Buffer
	writeUint16(&pack, 2)
	writeUint16(&pack, 2)
	for _, entry := range [][]byte{e1.Bytes(), e2.Bytes()} {
		writeUint16(&pack, legacyTypeSampled)
		writeUint32(&pack, uint32(len(entry)))
		pack.Write(entry)
	}

	brushes, err := Decode(pack.Bytes())
	require.NoError(t, err)
	require.Len(t, brushes, 2)
	assert.Equal(t, b2.AlphaMask, brushes[1].AlphaMask)
}

func presetDescriptor(entries ...Value) Value {
	return obj("", "Dscr", kv(keyPresetList, list(entries...)))
}

func TestDecode_V6MergeAttachesMetadata(t *testing.T) {
	brushes := []*RawBrush{
		makeBrush(t, 8, 8, "abc"),
		makeBrush(t, 8, 8, "keepme"),
	}

	desc := presetDescriptor(
		obj("", "brushPreset",
			kv(keyName, text("Soft Round")),
			kv(keySampleID, text("abc\x00\x00")), // padded differently than the sample
			kv(keyTipShape, obj("", "Brsh", kv(keySpacing, percent(40)))),
			kv(keyUseTipDynamics, boolean(true)),
			kv(keySizeDyn, controllerObj(2, 0, 0, 20)),
		),
		obj("", "brushPreset",
			kv(keyName, text("Orphan")),
			kv(keySampleID, text("xyz")),
		),
	)

	data, err := EncodePack(brushes, &desc, true)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, decoded, 2)

	matched := decoded[0]
	assert.Equal(t, "Soft Round", matched.Name)
	require.NotNil(t, matched.Dynamics)
	assert.Equal(t, brush.ControlPressure, matched.Dynamics.Size.Source)
	assert.InDelta(t, 0.2, matched.Dynamics.Size.Minimum, 1e-9)
	assert.InDelta(t, 0.4, matched.Spacing, 1e-9, "descriptor spacing preferred")

	unmatched := decoded[1]
	assert.Nil(t, unmatched.Dynamics, "unmatched sample keeps default dynamics")
	assert.InDelta(t, brush.DefaultSpacing, unmatched.Spacing, 1e-9)
}

func TestDecode_V6WithoutDescriptor(t *testing.T) {
	data, err := EncodePack([]*RawBrush{makeBrush(t, 8, 4, "solo")}, nil, true)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, "solo", decoded[0].Identifier)
	assert.Nil(t, decoded[0].Dynamics)
}

func TestBlocks_Inspection(t *testing.T) {
	desc := presetDescriptor()
	data, err := EncodePack([]*RawBrush{makeBrush(t, 4, 4, "a")}, &desc, false)
	require.NoError(t, err)

	version, blocks, err := Blocks(data)
	require.NoError(t, err)
	assert.Equal(t, 6, version)
	require.Len(t, blocks, 2)
	assert.Equal(t, sampleBlockKey, blocks[0].Key)
	assert.Equal(t, descBlockKey, blocks[1].Key)
}

func TestImport_BuildsPresets(t *testing.T) {
	brushes := []*RawBrush{makeBrush(t, 8, 8, "abc")}
	desc := presetDescriptor(
		obj("", "brushPreset",
			kv(keyName, text("Inky")),
			kv(keySampleID, text("abc")),
		),
	)
	data, err := EncodePack(brushes, &desc, true)
	require.NoError(t, err)

	presets, err := Import(context.Background(), data, brush.SoftwareFactory{})
	require.NoError(t, err)
	require.Len(t, presets, 1)

	p := presets[0]
	assert.Equal(t, "Inky", p.Name)
	assert.NotEmpty(t, p.ID)
	assert.NotNil(t, p.Tip.Image)
	assert.Equal(t, 8, p.Tip.Diameter)

	// Same bytes import to the same preset ID.
	again, err := Import(context.Background(), data, brush.SoftwareFactory{})
	require.NoError(t, err)
	assert.Equal(t, p.ID, again[0].ID)
}

func TestImport_CanceledContext(t *testing.T) {
	data, err := EncodePack([]*RawBrush{makeBrush(t, 4, 4, "a")}, nil, false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Import(ctx, data, brush.SoftwareFactory{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImport_FatalVersionYieldsNothing(t *testing.T) {
	data := []byte{0x00, 0x03, 0x00, 0x00}
	presets, err := Import(context.Background(), data, brush.SoftwareFactory{})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
	assert.Empty(t, presets)
}
