package abr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Zirnworks/Pictaflux/pkg/brush"
	"github.com/Zirnworks/Pictaflux/pkg/compress/rle"
)

const (
	// Container signature introducing each resource block in v6+ packs.
	blockSignature = "8BIM"
	sampleBlockKey = "samp"
	descBlockKey   = "desc"

	// legacyTypeSampled is the only legacy entry type carrying pixel data.
	legacyTypeSampled = 2

	// Corruption guard on decoded bounding boxes.
	maxBrushDim = 5000

	// Fixed region between a v6 sample's identifier and its bounding box.
	sampleOverhead = 264

	// Version prefix at the head of the descriptor block payload.
	descVersion = 16

	minHeaderSize = 4
)

// Decode parses a brush-pack buffer into raw brushes, dynamics attached where
// the descriptor block provided them. Fatal errors (truncated header,
// unknown version) reject the whole pack; malformed individual entries are
// skipped with a warning and decoding resumes at the next declared boundary.
func Decode(data []byte) ([]*RawBrush, error) {
	if len(data) < minHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	r := NewReader(data)
	version, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	switch {
	case version == 1 || version == 2:
		return decodeLegacy(r), nil
	case version >= 6 && version <= 10:
		return decodeResourceBlocks(r), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
}

// decodeLegacy handles version 1-2 packs: a brush count followed by typed,
// length-declared entries. The declared end offset is always honored, success
// or failure, so one corrupt entry cannot desynchronize the rest.
func decodeLegacy(r *Reader) []*RawBrush {
	count, err := r.ReadUint16()
	if err != nil {
		return nil
	}

	var brushes []*RawBrush
	for i := 0; i < int(count); i++ {
		typ, err := r.ReadUint16()
		if err != nil {
			break
		}
		size, err := r.ReadUint32()
		if err != nil {
			break
		}
		end := r.Position() + int(size)

		if typ == legacyTypeSampled {
			b, err := decodeLegacyBrush(r)
			if err != nil {
				slog.Warn("skipping malformed brush entry", "index", i, "error", err)
			} else {
				b.Name = fmt.Sprintf("Brush %d", len(brushes)+1)
				brushes = append(brushes, b)
			}
		}

		if err := r.Seek(end); err != nil {
			// Declared length runs past the buffer; nothing left to resync to.
			break
		}
	}
	return brushes
}

func decodeLegacyBrush(r *Reader) (*RawBrush, error) {
	if err := r.Skip(4); err != nil { // misc field
		return nil, err
	}
	spacingPct, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}

	b, err := decodeSampledPixels(r)
	if err != nil {
		return nil, err
	}
	b.Spacing = float64(spacingPct) / 100
	return b, nil
}

// decodeSampledPixels reads the bounding-box / depth / compression / mask
// sequence shared by legacy entries and v6 samples.
func decodeSampledPixels(r *Reader) (*RawBrush, error) {
	top, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	left, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	bottom, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	right, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	width := int(right - left)
	height := int(bottom - top)
	if width <= 0 || height <= 0 || width > maxBrushDim || height > maxBrushDim {
		return nil, fmt.Errorf("abr: implausible brush bounds %dx%d", width, height)
	}

	depth, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	compression, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}

	mask, err := decodeMask(r, width, height, int(depth), compression)
	if err != nil {
		return nil, err
	}
	return &RawBrush{
		Width:     width,
		Height:    height,
		AlphaMask: mask,
		Diameter:  max(width, height),
	}, nil
}

// decodeMask reads one alpha-mask channel, raw or run-length packed. Depths
// other than 8/16 are unsupported: the mask is filled with the maximum value
// and the corresponding byte span skipped so downstream offsets stay aligned.
func decodeMask(r *Reader, width, height, depth int, compression uint8) ([]byte, error) {
	if depth != 8 && depth != 16 {
		mask := make([]byte, width*height)
		for i := range mask {
			mask[i] = 0xFF
		}
		if err := r.Skip(width * height * depth / 8); err != nil {
			return nil, err
		}
		return mask, nil
	}

	if compression == 0 {
		sampleSize := depth / 8
		raw, err := r.ReadBytes(width * height * sampleSize)
		if err != nil {
			return nil, err
		}
		if depth == 8 {
			mask := make([]byte, len(raw))
			copy(mask, raw)
			return mask, nil
		}
		mask := make([]byte, width*height)
		for i := range mask {
			mask[i] = raw[i*2] // 16-bit samples truncate to the high byte
		}
		return mask, nil
	}

	start := r.Position()
	rest, err := r.ReadBytes(r.Remaining())
	if err != nil {
		return nil, err
	}
	mask, n, err := rle.Decode(rest, width, height, depth)
	if err != nil {
		return nil, err
	}
	if err := r.Seek(start + n); err != nil {
		return nil, err
	}
	return mask, nil
}

// Block records one tagged resource block of a v6+ container: key, payload
// offset, declared payload size.
type Block struct {
	Key    string
	Offset int
	Size   int
}

// Blocks returns the container version and, for resource-block packs, the
// recorded blocks without decoding any payloads. Used for pack inspection.
func Blocks(data []byte) (int, []Block, error) {
	if len(data) < minHeaderSize {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	r := NewReader(data)
	version, err := r.ReadUint16()
	if err != nil {
		return 0, nil, err
	}
	switch {
	case version == 1 || version == 2:
		return int(version), nil, nil
	case version >= 6 && version <= 10:
		if err := r.Skip(2); err != nil {
			return int(version), nil, nil
		}
		return int(version), scanBlocks(r), nil
	}
	return int(version), nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
}

// scanBlocks records the flat run of tagged resource blocks until the
// container signature no longer matches.
func scanBlocks(r *Reader) []Block {
	var blocks []Block
	for r.Remaining() >= 12 {
		mark := r.Position()
		sig, err := r.ReadSignature()
		if err != nil || sig != blockSignature {
			r.Seek(mark)
			break
		}
		key, err := r.ReadSignature()
		if err != nil {
			break
		}
		size, err := r.ReadUint32()
		if err != nil {
			break
		}
		blocks = append(blocks, Block{Key: key, Offset: r.Position(), Size: int(size)})
		if err := r.Seek(r.Position() + int(size)); err != nil {
			break
		}
	}
	return blocks
}

// decodeResourceBlocks handles version 6-10 packs: a flat run of tagged
// resource blocks scanned and recorded first, then decoded, so the sample and
// descriptor blocks may appear in either order.
func decodeResourceBlocks(r *Reader) []*RawBrush {
	if err := r.Skip(2); err != nil { // sub-version
		return nil
	}

	var brushes []*RawBrush
	var metas []presetMeta
	for _, b := range scanBlocks(r) {
		payload, ok := slice(r, b.Offset, b.Size)
		if !ok {
			slog.Warn("resource block overruns buffer", "key", b.Key, "offset", b.Offset, "size", b.Size)
			continue
		}
		switch b.Key {
		case sampleBlockKey:
			brushes = decodeSampleBlock(payload)
		case descBlockKey:
			metas = decodeDescriptorBlock(payload)
		}
	}

	mergePresets(brushes, metas)
	return brushes
}

func slice(r *Reader, offset, size int) ([]byte, bool) {
	if offset < 0 || size < 0 || offset+size > len(r.data) {
		return nil, false
	}
	return r.data[offset : offset+size], true
}

// decodeSampleBlock walks the size-prefixed sample concatenation. Each sample
// is followed by padding up to a 4-byte boundary; its declared end is always
// honored regardless of decode outcome.
func decodeSampleBlock(data []byte) []*RawBrush {
	r := NewReader(data)
	var brushes []*RawBrush
	for i := 0; r.Remaining() > 4; i++ {
		size, err := r.ReadUint32()
		if err != nil {
			break
		}
		end := r.Position() + int(size)
		alignedEnd := (end + 3) &^ 3

		b, err := decodeSample(r)
		if err != nil {
			slog.Warn("skipping malformed brush sample", "index", i, "error", err)
		} else {
			brushes = append(brushes, b)
		}

		if alignedEnd > len(data) {
			// Final sample (padding absent at the end of the block) or a
			// declared length past the buffer; either way nothing follows.
			break
		}
		if err := r.Seek(alignedEnd); err != nil {
			break
		}
	}
	return brushes
}

func decodeSample(r *Reader) (*RawBrush, error) {
	idLen, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	id, err := r.ReadBytes(int(idLen))
	if err != nil {
		return nil, err
	}
	if err := r.Skip(sampleOverhead); err != nil {
		return nil, err
	}

	b, err := decodeSampledPixels(r)
	if err != nil {
		return nil, err
	}
	b.Identifier = string(id)
	b.Spacing = brush.DefaultSpacing
	return b, nil
}

// decodeDescriptorBlock decodes the metadata tree and normalizes its preset
// list. A truncated tree keeps whatever presets decoded cleanly.
func decodeDescriptorBlock(data []byte) []presetMeta {
	r := NewReader(data)
	if err := r.Skip(4); err != nil { // descriptor version prefix
		return nil
	}
	root, err := DecodeDescriptor(r)
	if err != nil {
		slog.Warn("descriptor block truncated", "position", r.Position(), "error", err)
	}
	return descriptorPresets(root)
}

// DescriptorTree decodes and returns the descriptor block's metadata tree,
// when the pack has one. Partial trees from truncated blocks are returned
// as-is with their Truncated markers set.
func DescriptorTree(data []byte) (Value, bool) {
	_, blocks, err := Blocks(data)
	if err != nil {
		return Value{}, false
	}
	for _, b := range blocks {
		if b.Key != descBlockKey {
			continue
		}
		if b.Offset+b.Size > len(data) {
			return Value{}, false
		}
		r := NewReader(data[b.Offset : b.Offset+b.Size])
		if err := r.Skip(4); err != nil {
			return Value{}, false
		}
		root, _ := DecodeDescriptor(r)
		return root, true
	}
	return Value{}, false
}

// mergePresets links descriptor presets to samples by identifier and overlays
// names, dynamics, and spacing onto the matched samples. Unmatched entries on
// either side are left as-is.
func mergePresets(brushes []*RawBrush, metas []presetMeta) {
	if len(brushes) == 0 || len(metas) == 0 {
		return
	}
	sampleIDs := make([]string, len(brushes))
	for i, b := range brushes {
		sampleIDs[i] = b.Identifier
	}
	presetIDs := make([]string, len(metas))
	for i, m := range metas {
		presetIDs[i] = m.Identifier
	}

	res := LinkByIdentifier(sampleIDs, presetIDs)
	for _, dup := range res.DuplicateSamples {
		slog.Warn("duplicate sample identifier, first occurrence wins", "id", dup)
	}
	for pi, si := range res.Matches {
		m := metas[pi]
		if m.Name != "" {
			brushes[si].Name = m.Name
		}
		dyn := m.Dynamics
		brushes[si].Dynamics = &dyn
		if m.Spacing > 0 {
			brushes[si].Spacing = m.Spacing
		}
	}
}

// Import runs the whole pipeline: decode the pack, then build a preset per
// brush. Tip building is the only potentially slow step, so the context is
// checked between brushes; no decoding runs concurrently. A factory failure
// keeps the preset with tip rendering unavailable.
func Import(ctx context.Context, data []byte, factory brush.ImageFactory) ([]*brush.Preset, error) {
	raws, err := Decode(data)
	if err != nil {
		return nil, err
	}

	presets := make([]*brush.Preset, 0, len(raws))
	for i, rb := range raws {
		if err := ctx.Err(); err != nil {
			return presets, err
		}
		name := rb.Name
		if name == "" {
			name = fmt.Sprintf("Brush %d", i+1)
		}
		tip, err := brush.NewTip(name, rb.AlphaMask, rb.Width, rb.Height, rb.Spacing, factory)
		if err != nil {
			if tip == nil {
				slog.Warn("dropping brush with unbuildable tip", "name", name, "error", err)
				continue
			}
			slog.Warn("tip image unavailable", "name", name, "error", err)
		}

		dyn := brush.DefaultDynamics()
		if rb.Dynamics != nil {
			dyn = *rb.Dynamics
		} else if rb.Spacing > 0 {
			dyn.Spacing = rb.Spacing
		}
		presets = append(presets, brush.NewPreset(name, tip, dyn))
	}
	return presets, nil
}
