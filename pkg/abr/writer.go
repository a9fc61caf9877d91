package abr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"

	"github.com/Zirnworks/Pictaflux/pkg/compress/rle"
)

// The writer is the decoder's counterpart: it produces legacy and
// resource-block packs from raw brushes plus an optional descriptor tree.
// Round-trip fixtures for the decoder come from here, and re-export of edited
// packs builds on the same primitives.

// EncodeLegacyPack builds a version-2 pack. With compress set the masks are
// run-length packed, otherwise stored raw.
func EncodeLegacyPack(brushes []*RawBrush, compress bool) ([]byte, error) {
	var out bytes.Buffer
	writeUint16(&out, 2) // version
	writeUint16(&out, uint16(len(brushes)))

	for _, b := range brushes {
		var entry bytes.Buffer
		writeUint32(&entry, 0) // misc
		writeUint16(&entry, uint16(math.Round(b.Spacing*100)))
		if err := writeSampledPixels(&entry, b, compress); err != nil {
			return nil, err
		}

		writeUint16(&out, legacyTypeSampled)
		writeUint32(&out, uint32(entry.Len()))
		out.Write(entry.Bytes())
	}
	return out.Bytes(), nil
}

// EncodePack builds a version-6 resource-block pack: a sample block holding
// the brushes and, when desc is non-nil, a descriptor block holding the
// metadata tree.
func EncodePack(brushes []*RawBrush, desc *Value, compress bool) ([]byte, error) {
	var samp bytes.Buffer
	for _, b := range brushes {
		var sample bytes.Buffer
		if len(b.Identifier) > 255 {
			return nil, fmt.Errorf("abr: identifier too long: %d bytes", len(b.Identifier))
		}
		sample.WriteByte(byte(len(b.Identifier)))
		sample.WriteString(b.Identifier)
		sample.Write(make([]byte, sampleOverhead))
		if err := writeSampledPixels(&sample, b, compress); err != nil {
			return nil, err
		}

		writeUint32(&samp, uint32(sample.Len()))
		samp.Write(sample.Bytes())
		for samp.Len()%4 != 0 {
			samp.WriteByte(0)
		}
	}

	var out bytes.Buffer
	writeUint16(&out, 6) // version
	writeUint16(&out, 2) // sub-version
	writeBlock(&out, sampleBlockKey, samp.Bytes())

	if desc != nil {
		var payload bytes.Buffer
		writeUint32(&payload, descVersion)
		if err := encodeValue(&payload, *desc, true); err != nil {
			return nil, err
		}
		writeBlock(&out, descBlockKey, payload.Bytes())
	}
	return out.Bytes(), nil
}

func writeBlock(out *bytes.Buffer, key string, payload []byte) {
	out.WriteString(blockSignature)
	out.WriteString(key)
	writeUint32(out, uint32(len(payload)))
	out.Write(payload)
}

func writeSampledPixels(out *bytes.Buffer, b *RawBrush, compress bool) error {
	if b.Width <= 0 || b.Height <= 0 || len(b.AlphaMask) != b.Width*b.Height {
		return fmt.Errorf("abr: mask length %d does not match %dx%d", len(b.AlphaMask), b.Width, b.Height)
	}
	writeInt32(out, 0)               // top
	writeInt32(out, 0)               // left
	writeInt32(out, int32(b.Height)) // bottom
	writeInt32(out, int32(b.Width))  // right
	writeUint16(out, 8)              // depth

	if !compress {
		out.WriteByte(0)
		out.Write(b.AlphaMask)
		return nil
	}
	out.WriteByte(1)
	packed, err := rle.Encode(b.AlphaMask, b.Width, b.Height, 8)
	if err != nil {
		return err
	}
	out.Write(packed)
	return nil
}

// encodeValue serializes a descriptor value. topLevel objects are written as
// a bare object body (no leading tag), matching how the descriptor block
// embeds its root.
func encodeValue(out *bytes.Buffer, v Value, topLevel bool) error {
	if !topLevel {
		switch v.Kind {
		case KindObject:
			out.WriteString(tagObject)
		case KindList:
			out.WriteString(tagList)
		case KindDouble:
			out.WriteString(tagDouble)
		case KindUnitDouble:
			out.WriteString(tagUnitDouble)
		case KindInteger:
			out.WriteString(tagInteger)
		case KindBool:
			out.WriteString(tagBool)
		case KindText:
			out.WriteString(tagText)
		case KindEnum:
			out.WriteString(tagEnum)
		default:
			return fmt.Errorf("abr: cannot encode descriptor kind %d", v.Kind)
		}
	}

	switch v.Kind {
	case KindObject:
		writeUnicodeString(out, v.Name)
		writeDescKey(out, v.Class)
		writeUint32(out, uint32(len(v.Keys)))
		for _, kv := range v.Keys {
			writeDescKey(out, kv.Key)
			if err := encodeValue(out, kv.Value, false); err != nil {
				return err
			}
		}
	case KindList:
		writeUint32(out, uint32(len(v.Items)))
		for _, item := range v.Items {
			if err := encodeValue(out, item, false); err != nil {
				return err
			}
		}
	case KindDouble:
		writeFloat64(out, v.Number)
	case KindUnitDouble:
		unit := v.Unit
		if len(unit) != 4 {
			return fmt.Errorf("abr: unit class must be 4 bytes, got %q", unit)
		}
		out.WriteString(unit)
		writeFloat64(out, v.Number)
	case KindInteger:
		writeInt32(out, int32(v.Number))
	case KindBool:
		if v.Bool {
			out.WriteByte(1)
		} else {
			out.WriteByte(0)
		}
	case KindText:
		writeUnicodeString(out, v.Text)
	case KindEnum:
		typ, val, ok := splitEnum(v.Enum)
		if !ok {
			return fmt.Errorf("abr: enum %q is not type.value", v.Enum)
		}
		writeDescKey(out, typ)
		writeDescKey(out, val)
	default:
		return fmt.Errorf("abr: cannot encode descriptor kind %d", v.Kind)
	}
	return nil
}

func splitEnum(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

// writeDescKey writes a key in tag form when it is exactly 4 bytes, otherwise
// length-prefixed.
func writeDescKey(out *bytes.Buffer, key string) {
	if len(key) == 4 {
		writeUint32(out, 0)
		out.WriteString(key)
		return
	}
	writeUint32(out, uint32(len(key)))
	out.WriteString(key)
}

// writeUnicodeString writes a UTF-16BE string with a trailing null, the
// character count up front.
func writeUnicodeString(out *bytes.Buffer, s string) {
	units := utf16.Encode([]rune(s))
	units = append(units, 0)
	writeUint32(out, uint32(len(units)))
	for _, u := range units {
		writeUint16(out, u)
	}
}

func writeUint16(out *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	out.Write(b[:])
}

func writeUint32(out *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	out.Write(b[:])
}

func writeInt32(out *bytes.Buffer, v int32) {
	writeUint32(out, uint32(v))
}

func writeFloat64(out *bytes.Buffer, v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	out.Write(b[:])
}
