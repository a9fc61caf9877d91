// Package rle implements the PackBits-style run-length codec used for the
// alpha-mask channels of sampled brushes.
//
// A compressed channel starts with a per-scanline length table (one big-endian
// uint16 per row). The table is redundant for decoding, which is
// self-terminating, so Decode consumes and discards it. The body is a sequence
// of runs, each introduced by a signed control byte n:
//
//	n >= 0        copy the next n+1 samples verbatim
//	-128 < n < 0  repeat the next sample 1-n times
//	n == -128     no-op
//
// A sample is one byte at 8-bit depth, or a big-endian 16-bit value at 16-bit
// depth. Mask precision is 8 bits regardless of source depth, so 16-bit
// samples are truncated to their high byte.
package rle

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Decode decompresses one alpha-mask channel of width x height samples from
// src. It returns the 8-bit mask, the number of input bytes consumed, and an
// error only for unsupported depths. A truncated src yields a partial mask:
// decoding stops at the end of input without error.
func Decode(src []byte, width, height, bitDepth int) ([]byte, int, error) {
	if bitDepth != 8 && bitDepth != 16 {
		return nil, 0, fmt.Errorf("rle: unsupported bit depth %d", bitDepth)
	}
	if width <= 0 || height <= 0 {
		return nil, 0, fmt.Errorf("rle: invalid dimensions %dx%d", width, height)
	}

	sampleSize := bitDepth / 8
	mask := make([]byte, width*height)

	// Scanline length table, present but not needed.
	pos := 2 * height
	if pos > len(src) {
		return mask, len(src), nil
	}

	out := 0
	for out < len(mask) && pos < len(src) {
		n := int8(src[pos])
		pos++

		switch {
		case n == -128:
			// Sentinel, skip.
		case n >= 0:
			count := int(n) + 1
			for i := 0; i < count && out < len(mask); i++ {
				if pos+sampleSize > len(src) {
					return mask, len(src), nil
				}
				mask[out] = src[pos] // high byte at 16-bit depth
				pos += sampleSize
				out++
			}
		default:
			count := 1 - int(n)
			if pos+sampleSize > len(src) {
				return mask, len(src), nil
			}
			val := src[pos]
			pos += sampleSize
			for i := 0; i < count && out < len(mask); i++ {
				mask[out] = val
				out++
			}
		}
	}
	return mask, pos, nil
}

// Encode compresses an 8-bit mask of width x height samples, producing the
// scanline length table followed by the packed rows. At 16-bit depth each
// sample is written as a big-endian 16-bit value with the mask byte in the
// high position, mirroring what Decode truncates back out.
func Encode(mask []byte, width, height, bitDepth int) ([]byte, error) {
	if bitDepth != 8 && bitDepth != 16 {
		return nil, fmt.Errorf("rle: unsupported bit depth %d", bitDepth)
	}
	if len(mask) != width*height {
		return nil, fmt.Errorf("rle: mask length %d does not match %dx%d", len(mask), width, height)
	}

	var body bytes.Buffer
	lengths := make([]uint16, height)
	for y := 0; y < height; y++ {
		before := body.Len()
		encodeRow(&body, mask[y*width:(y+1)*width], bitDepth)
		lengths[y] = uint16(body.Len() - before)
	}

	var out bytes.Buffer
	out.Grow(2*height + body.Len())
	for _, l := range lengths {
		var hdr [2]byte
		binary.BigEndian.PutUint16(hdr[:], l)
		out.Write(hdr[:])
	}
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func encodeRow(buf *bytes.Buffer, row []byte, bitDepth int) {
	i := 0
	for i < len(row) {
		runLen := 1
		for i+runLen < len(row) && runLen < 128 && row[i+runLen] == row[i] {
			runLen++
		}

		if runLen > 1 {
			buf.WriteByte(byte(int8(-(runLen - 1))))
			writeSample(buf, row[i], bitDepth)
			i += runLen
			continue
		}

		// Literal run: consume until a run of 3 identical samples starts.
		litLen := 1
		for i+litLen < len(row) && litLen < 128 {
			if i+litLen+2 < len(row) &&
				row[i+litLen] == row[i+litLen+1] &&
				row[i+litLen] == row[i+litLen+2] {
				break
			}
			litLen++
		}
		buf.WriteByte(byte(int8(litLen - 1)))
		for k := 0; k < litLen; k++ {
			writeSample(buf, row[i+k], bitDepth)
		}
		i += litLen
	}
}

func writeSample(buf *bytes.Buffer, v byte, bitDepth int) {
	buf.WriteByte(v)
	if bitDepth == 16 {
		buf.WriteByte(0)
	}
}
