package abr

import (
	"errors"
	"fmt"
	"unicode/utf16"
)

// The descriptor grammar is a recursive tagged-value tree: every value is
// preceded by a 4-byte type tag. Objects carry a name, a class key, and an
// ordered list of keyed child values.
const (
	tagObject     = "Objc"
	tagGlobal     = "GlbO" // same body as Objc
	tagList       = "VlLs"
	tagDouble     = "doub"
	tagUnitDouble = "UntF"
	tagInteger    = "long"
	tagBool       = "bool"
	tagText       = "TEXT"
	tagEnum       = "enum"
	tagRaw        = "tdta"
	tagReference  = "obj "
	tagClass      = "type"
	tagGlobClass  = "GlbC"
	tagAlias      = "alis"
	tagObjArray   = "ObAr"
	tagPath       = "Pth "
)

// Unit classes carried by UntF values.
const (
	unitPercent = "#Prc"
	unitAngle   = "#Ang"
	unitPixel   = "#Pxl"
)

// Kind discriminates the Value union.
type Kind int

const (
	KindInvalid Kind = iota
	KindObject
	KindList
	KindDouble
	KindUnitDouble
	KindInteger
	KindBool
	KindText
	KindEnum
	KindRaw
	KindClass
	KindAlias
	KindPath
	KindReference
)

// Value is one node of a decoded descriptor tree, a tagged union over the
// grammar's variants. Unknown-tag truncation is an explicit, checked state
// rather than an implicit catch.
type Value struct {
	Kind Kind

	Name  string       // object: descriptor name
	Class string       // object/class: class key
	Keys  []KeyedValue // object: ordered fields
	Items []Value      // list, object array

	Number float64 // double, unit double, integer
	Unit   string  // unit double: unit class
	Bool   bool
	Text   string
	Enum   string // enum: "type.value"

	// Truncated marks an object whose remaining keys were abandoned at an
	// unrecognized tag. Already-decoded keys are kept.
	Truncated bool
}

// KeyedValue is one (key, value) field of an object.
type KeyedValue struct {
	Key   string
	Value Value
}

// Lookup returns the first field with the given key.
func (v Value) Lookup(key string) (Value, bool) {
	for _, kv := range v.Keys {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return Value{}, false
}

// Object returns the sub-object at key, if present.
func (v Value) Object(key string) (Value, bool) {
	c, ok := v.Lookup(key)
	if !ok || c.Kind != KindObject {
		return Value{}, false
	}
	return c, true
}

// Float returns the numeric field at key, normalized by unit class:
// percentages map to [0,1] fractions, angles stay in degrees, pixels and
// plain numbers pass through.
func (v Value) Float(key string) (float64, bool) {
	c, ok := v.Lookup(key)
	if !ok {
		return 0, false
	}
	switch c.Kind {
	case KindDouble, KindInteger:
		return c.Number, true
	case KindUnitDouble:
		if c.Unit == unitPercent {
			return c.Number / 100, true
		}
		return c.Number, true
	}
	return 0, false
}

// Int returns the integer field at key.
func (v Value) Int(key string) (int, bool) {
	c, ok := v.Lookup(key)
	if !ok || (c.Kind != KindInteger && c.Kind != KindDouble) {
		return 0, false
	}
	return int(c.Number), true
}

// Flag returns the boolean field at key.
func (v Value) Flag(key string) (bool, bool) {
	c, ok := v.Lookup(key)
	if !ok || c.Kind != KindBool {
		return false, false
	}
	return c.Bool, true
}

// String returns the text field at key.
func (v Value) String(key string) (string, bool) {
	c, ok := v.Lookup(key)
	if !ok || c.Kind != KindText {
		return "", false
	}
	return c.Text, true
}

// errUnknownTag aborts the current object's remaining keys. The enclosing
// block owner reseeks to the block's declared end, since the stream position
// is unreliable past an unrecognized tag.
var errUnknownTag = errors.New("abr: unknown descriptor tag")

// DecodeDescriptor decodes one full descriptor (an object body without a
// leading tag) from r. On an unknown tag the partial tree is returned along
// with the error; every object on the path to the failure is marked
// Truncated.
func DecodeDescriptor(r *Reader) (Value, error) {
	return decodeObjectBody(r)
}

func decodeObjectBody(r *Reader) (Value, error) {
	v := Value{Kind: KindObject}

	name, err := readUnicodeString(r)
	if err != nil {
		return v, err
	}
	v.Name = name

	if v.Class, err = readKey(r); err != nil {
		return v, err
	}

	count, err := r.ReadUint32()
	if err != nil {
		return v, err
	}

	for i := 0; i < int(count); i++ {
		key, err := readKey(r)
		if err != nil {
			v.Truncated = true
			return v, err
		}
		tag, err := r.ReadSignature()
		if err != nil {
			v.Truncated = true
			return v, err
		}
		child, err := decodeValue(r, tag)
		if err != nil {
			// Keep the siblings decoded so far; the failure propagates so
			// enclosing objects stop as well.
			v.Truncated = true
			if child.Kind != KindInvalid {
				v.Keys = append(v.Keys, KeyedValue{Key: key, Value: child})
			}
			return v, err
		}
		v.Keys = append(v.Keys, KeyedValue{Key: key, Value: child})
	}
	return v, nil
}

func decodeValue(r *Reader, tag string) (Value, error) {
	switch tag {
	case tagObject, tagGlobal:
		return decodeObjectBody(r)

	case tagList:
		v := Value{Kind: KindList}
		count, err := r.ReadUint32()
		if err != nil {
			return v, err
		}
		for i := 0; i < int(count); i++ {
			itemTag, err := r.ReadSignature()
			if err != nil {
				return v, err
			}
			item, err := decodeValue(r, itemTag)
			if err != nil {
				if item.Kind != KindInvalid {
					v.Items = append(v.Items, item)
				}
				return v, err
			}
			v.Items = append(v.Items, item)
		}
		return v, nil

	case tagObjArray:
		v := Value{Kind: KindList}
		count, err := r.ReadUint32()
		if err != nil {
			return v, err
		}
		for i := 0; i < int(count); i++ {
			item, err := decodeObjectBody(r)
			if err != nil {
				v.Items = append(v.Items, item)
				return v, err
			}
			v.Items = append(v.Items, item)
		}
		return v, nil

	case tagDouble:
		n, err := r.ReadFloat64()
		return Value{Kind: KindDouble, Number: n}, err

	case tagUnitDouble:
		unit, err := r.ReadSignature()
		if err != nil {
			return Value{Kind: KindUnitDouble}, err
		}
		n, err := r.ReadFloat64()
		return Value{Kind: KindUnitDouble, Unit: unit, Number: n}, err

	case tagInteger:
		n, err := r.ReadInt32()
		return Value{Kind: KindInteger, Number: float64(n)}, err

	case tagBool:
		b, err := r.ReadUint8()
		return Value{Kind: KindBool, Bool: b != 0}, err

	case tagText:
		s, err := readUnicodeString(r)
		return Value{Kind: KindText, Text: s}, err

	case tagEnum:
		typ, err := readKey(r)
		if err != nil {
			return Value{Kind: KindEnum}, err
		}
		val, err := readKey(r)
		return Value{Kind: KindEnum, Enum: typ + "." + val}, err

	case tagRaw:
		// Opaque blob, skipped.
		n, err := r.ReadUint32()
		if err != nil {
			return Value{Kind: KindRaw}, err
		}
		return Value{Kind: KindRaw, Number: float64(n)}, r.Skip(int(n))

	case tagAlias, tagPath:
		n, err := r.ReadUint32()
		kind := KindAlias
		if tag == tagPath {
			kind = KindPath
		}
		if err != nil {
			return Value{Kind: kind}, err
		}
		return Value{Kind: kind}, r.Skip(int(n))

	case tagClass, tagGlobClass:
		// Type-descriptor shorthand: name + class key, nothing else.
		if _, err := readUnicodeString(r); err != nil {
			return Value{Kind: KindClass}, err
		}
		class, err := readKey(r)
		return Value{Kind: KindClass, Class: class}, err

	case tagReference:
		return decodeReference(r)
	}
	return Value{}, fmt.Errorf("%w: %q at %d", errUnknownTag, tag, r.Position())
}

// decodeReference consumes an object-reference value. References are not
// needed by this system; their sub-forms are fully read and discarded so the
// cursor lands on the next value.
func decodeReference(r *Reader) (Value, error) {
	v := Value{Kind: KindReference}
	count, err := r.ReadUint32()
	if err != nil {
		return v, err
	}
	for i := 0; i < int(count); i++ {
		form, err := r.ReadSignature()
		if err != nil {
			return v, err
		}
		// Every form starts with a name + class key pair except the two
		// bare numeric ones.
		switch form {
		case "prop":
			if err := skipNameAndClass(r); err != nil {
				return v, err
			}
			if _, err := readKey(r); err != nil {
				return v, err
			}
		case "Clss":
			if err := skipNameAndClass(r); err != nil {
				return v, err
			}
		case "Enmr":
			if err := skipNameAndClass(r); err != nil {
				return v, err
			}
			if _, err := readKey(r); err != nil {
				return v, err
			}
			if _, err := readKey(r); err != nil {
				return v, err
			}
		case "rele":
			if err := skipNameAndClass(r); err != nil {
				return v, err
			}
			if _, err := r.ReadInt32(); err != nil {
				return v, err
			}
		case "Idnt", "indx":
			if _, err := r.ReadUint32(); err != nil {
				return v, err
			}
		case "name":
			if err := skipNameAndClass(r); err != nil {
				return v, err
			}
			if _, err := readUnicodeString(r); err != nil {
				return v, err
			}
		default:
			return v, fmt.Errorf("%w: reference form %q at %d", errUnknownTag, form, r.Position())
		}
	}
	return v, nil
}

func skipNameAndClass(r *Reader) error {
	if _, err := readUnicodeString(r); err != nil {
		return err
	}
	_, err := readKey(r)
	return err
}

// readKey reads an object key: a 4-byte tag when the length field is zero,
// otherwise a variable-length ASCII string.
func readKey(r *Reader) (string, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return r.ReadSignature()
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readUnicodeString reads a length-prefixed UTF-16BE string. The length is a
// character count and usually includes a trailing null, which is stripped.
func readUnicodeString(r *Reader) (string, error) {
	count, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	b, err := r.ReadBytes(int(count) * 2)
	if err != nil {
		return "", err
	}
	units := make([]uint16, count)
	for i := range units {
		units[i] = uint16(b[i*2])<<8 | uint16(b[i*2+1])
	}
	for len(units) > 0 && units[len(units)-1] == 0 {
		units = units[:len(units)-1]
	}
	return string(utf16.Decode(units)), nil
}
