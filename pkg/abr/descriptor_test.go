package abr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tree-building helpers shared with the decoder and dynamics tests.

func obj(name, class string, keys ...KeyedValue) Value {
	return Value{Kind: KindObject, Name: name, Class: class, Keys: keys}
}

func kv(key string, v Value) KeyedValue {
	return KeyedValue{Key: key, Value: v}
}

func list(items ...Value) Value {
	return Value{Kind: KindList, Items: items}
}

func text(s string) Value {
	return Value{Kind: KindText, Text: s}
}

func boolean(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

func integer(n int) Value {
	return Value{Kind: KindInteger, Number: float64(n)}
}

func percent(n float64) Value {
	return Value{Kind: KindUnitDouble, Unit: unitPercent, Number: n}
}

func angleDeg(n float64) Value {
	return Value{Kind: KindUnitDouble, Unit: unitAngle, Number: n}
}

func encodeDescriptor(t *testing.T, v Value) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, encodeValue(&buf, v, true))
	return buf.Bytes()
}

func TestDescriptor_RoundTrip(t *testing.T) {
	src := obj("", "Dscr",
		kv("Nm  ", text("Chalk 23")),
		kv("Spcn", percent(25)),
		kv("Angl", angleDeg(45)),
		kv("Cnt ", integer(3)),
		kv("flipX", boolean(true)),
		kv("doubleKey", Value{Kind: KindDouble, Number: 1.5}),
		kv("Md  ", Value{Kind: KindEnum, Enum: "BlnM.Nrml"}),
		kv("sub", obj("inner", "Brsh",
			kv("Dmtr", Value{Kind: KindUnitDouble, Unit: unitPixel, Number: 17}),
		)),
		kv("lst", list(integer(1), integer(2))),
	)

	decoded, err := DecodeDescriptor(NewReader(encodeDescriptor(t, src)))
	require.NoError(t, err)
	assert.False(t, decoded.Truncated)
	assert.Equal(t, "Dscr", decoded.Class)

	name, ok := decoded.String("Nm  ")
	require.True(t, ok)
	assert.Equal(t, "Chalk 23", name)

	spacing, ok := decoded.Float("Spcn")
	require.True(t, ok)
	assert.InDelta(t, 0.25, spacing, 1e-9, "percent unit normalizes to a fraction")

	angle, ok := decoded.Float("Angl")
	require.True(t, ok)
	assert.InDelta(t, 45, angle, 1e-9, "angle unit stays in degrees")

	n, ok := decoded.Int("Cnt ")
	require.True(t, ok)
	assert.Equal(t, 3, n)

	flip, ok := decoded.Flag("flipX")
	require.True(t, ok)
	assert.True(t, flip)

	d, ok := decoded.Float("doubleKey")
	require.True(t, ok)
	assert.InDelta(t, 1.5, d, 1e-9)

	enum, ok := decoded.Lookup("Md  ")
	require.True(t, ok)
	assert.Equal(t, "BlnM.Nrml", enum.Enum)

	sub, ok := decoded.Object("sub")
	require.True(t, ok)
	assert.Equal(t, "inner", sub.Name)
	diam, ok := sub.Float("Dmtr")
	require.True(t, ok)
	assert.InDelta(t, 17, diam, 1e-9, "pixel unit passes through")

	lst, ok := decoded.Lookup("lst")
	require.True(t, ok)
	require.Len(t, lst.Items, 2)
	assert.Equal(t, float64(2), lst.Items[1].Number)
}

func TestDescriptor_KeyForms(t *testing.T) {
	// A 4-byte key encodes in tag form (length 0), longer keys with an
	// explicit length; both must decode.
	src := obj("", "Dscr",
		kv("Spcn", integer(1)),
		kv("sampledData", integer(2)),
	)
	decoded, err := DecodeDescriptor(NewReader(encodeDescriptor(t, src)))
	require.NoError(t, err)

	_, ok := decoded.Int("Spcn")
	assert.True(t, ok)
	_, ok = decoded.Int("sampledData")
	assert.True(t, ok)
}

func TestDescriptor_UnknownTagTruncatesLocally(t *testing.T) {
	// Object with two good keys, then a bogus tag, then a key that must be
	// abandoned. Siblings decoded before the failure are kept.
	var buf bytes.Buffer
	writeUnicodeString(&buf, "")
	writeDescKey(&buf, "Dscr")
	writeUint32(&buf, 4)

	writeDescKey(&buf, "one ")
	buf.WriteString(tagInteger)
	writeInt32(&buf, 1)

	writeDescKey(&buf, "two ")
	buf.WriteString(tagInteger)
	writeInt32(&buf, 2)

	writeDescKey(&buf, "bad ")
	buf.WriteString("WAT?")
	writeInt32(&buf, 99)

	writeDescKey(&buf, "lost")
	buf.WriteString(tagInteger)
	writeInt32(&buf, 4)

	decoded, err := DecodeDescriptor(NewReader(buf.Bytes()))
	require.Error(t, err)
	assert.True(t, decoded.Truncated)
	require.Len(t, decoded.Keys, 2)

	one, ok := decoded.Int("one ")
	require.True(t, ok)
	assert.Equal(t, 1, one)
	two, ok := decoded.Int("two ")
	require.True(t, ok)
	assert.Equal(t, 2, two)
	_, ok = decoded.Int("lost")
	assert.False(t, ok)
}

func TestDescriptor_NestedTruncationKeepsAncestorKeys(t *testing.T) {
	// The failure happens inside a nested object; the parent keeps its
	// earlier keys and the partial child, both marked truncated.
	var buf bytes.Buffer
	writeUnicodeString(&buf, "")
	writeDescKey(&buf, "Dscr")
	writeUint32(&buf, 2)

	writeDescKey(&buf, "good")
	buf.WriteString(tagInteger)
	writeInt32(&buf, 7)

	writeDescKey(&buf, "chld")
	buf.WriteString(tagObject)
	writeUnicodeString(&buf, "")
	writeDescKey(&buf, "Brsh")
	writeUint32(&buf, 1)
	writeDescKey(&buf, "bad ")
	buf.WriteString("NOPE")

	decoded, err := DecodeDescriptor(NewReader(buf.Bytes()))
	require.Error(t, err)
	assert.True(t, decoded.Truncated)

	good, ok := decoded.Int("good")
	require.True(t, ok)
	assert.Equal(t, 7, good)

	child, ok := decoded.Object("chld")
	require.True(t, ok)
	assert.True(t, child.Truncated)
}

func TestDescriptor_ReferenceConsumedAndDiscarded(t *testing.T) {
	// A reference value is fully consumed so the following key still decodes.
	var buf bytes.Buffer
	writeUnicodeString(&buf, "")
	writeDescKey(&buf, "Dscr")
	writeUint32(&buf, 2)

	writeDescKey(&buf, "ref ")
	buf.WriteString(tagReference)
	writeUint32(&buf, 2)
	buf.WriteString("Idnt")
	writeUint32(&buf, 42)
	buf.WriteString("Clss")
	writeUnicodeString(&buf, "layer")
	writeDescKey(&buf, "Lyr ")

	writeDescKey(&buf, "aftr")
	buf.WriteString(tagInteger)
	writeInt32(&buf, 5)

	decoded, err := DecodeDescriptor(NewReader(buf.Bytes()))
	require.NoError(t, err)

	ref, ok := decoded.Lookup("ref ")
	require.True(t, ok)
	assert.Equal(t, KindReference, ref.Kind)

	after, ok := decoded.Int("aftr")
	require.True(t, ok)
	assert.Equal(t, 5, after)
}

func TestDescriptor_BlobSkipped(t *testing.T) {
	var buf bytes.Buffer
	writeUnicodeString(&buf, "")
	writeDescKey(&buf, "Dscr")
	writeUint32(&buf, 2)

	writeDescKey(&buf, "blob")
	buf.WriteString(tagRaw)
	writeUint32(&buf, 3)
	buf.Write([]byte{0xDE, 0xAD, 0xBF})

	writeDescKey(&buf, "aftr")
	buf.WriteString(tagBool)
	buf.WriteByte(1)

	decoded, err := DecodeDescriptor(NewReader(buf.Bytes()))
	require.NoError(t, err)

	blob, ok := decoded.Lookup("blob")
	require.True(t, ok)
	assert.Equal(t, KindRaw, blob.Kind)

	after, ok := decoded.Flag("aftr")
	require.True(t, ok)
	assert.True(t, after)
}
