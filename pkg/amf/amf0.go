package amf

import "fmt"

// amf0Context is the per-invocation state for AMF0 encode/decode: the
// object reference table (spec §3) and, on decode, the AMF3 context created
// by the most recent AVM+ marker.
type amf0Context struct {
	objects *objectTable
	amf3    *amf3Context
}

func newAMF0Context() *amf0Context {
	return &amf0Context{objects: newObjectTable()}
}

// EncodeAMF0Sequence encodes a sequence of top-level values as AMF0,
// concatenated with no outer framing (spec §4.5).
func EncodeAMF0Sequence(values ...Value) ([]byte, error) {
	w := NewWriter()
	defer w.Release()
	c := newAMF0Context()
	for i, v := range values {
		if err := c.encodeValue(w, v); err != nil {
			return nil, fmt.Errorf("amf0 value %d: %w", i, err)
		}
	}
	out := make([]byte, len(w.Bytes()))
	copy(out, w.Bytes())
	return out, nil
}

// DecodeAMF0Sequence decodes every top-level value remaining in data.
func DecodeAMF0Sequence(data []byte) ([]Value, error) {
	r := NewReader(data)
	c := newAMF0Context()
	var values []Value
	for r.Len() > 0 {
		v, err := c.decodeValue(r)
		if err != nil {
			return nil, fmt.Errorf("amf0 value %d: %w", len(values), err)
		}
		values = append(values, v)
	}
	return values, nil
}

// EncodeAMF0 encodes a single value with a fresh object reference table
// (used by the envelope codec, where each header/message body is its own
// top-level AMF0 payload).
func EncodeAMF0(w *Writer, v Value) error {
	return newAMF0Context().encodeValue(w, v)
}

// DecodeAMF0 decodes a single value with a fresh object reference table
// from r, decoding that value as AMF3 if an AVM+ marker is its own leading
// byte.
func DecodeAMF0(r *Reader) (Value, error) {
	return newAMF0Context().decodeValue(r)
}

func (c *amf0Context) encodeValue(w *Writer, v Value) error {
	switch v.Kind {
	case KindNull:
		return w.WriteU8(markerNull)
	case KindUndefined:
		return w.WriteU8(markerUndefined)
	case KindBool:
		if err := w.WriteU8(markerBoolean); err != nil {
			return err
		}
		if v.Bool {
			return w.WriteU8(1)
		}
		return w.WriteU8(0)
	case KindInteger:
		if err := w.WriteU8(markerNumber); err != nil {
			return err
		}
		return w.WriteF64BE(float64(v.Integer))
	case KindDouble:
		if err := w.WriteU8(markerNumber); err != nil {
			return err
		}
		return w.WriteF64BE(v.Double)
	case KindString:
		return c.encodeStringValue(w, v.Str)
	case KindXMLDocument:
		if err := w.WriteU8(markerXMLDocument); err != nil {
			return err
		}
		if err := w.WriteU32BE(uint32(len(v.Str))); err != nil {
			return err
		}
		return w.WriteUTF8(v.Str)
	case KindDate:
		return c.encodeDate(w, v)
	case KindArray:
		return c.encodeArrayOrReference(w, v)
	case KindObject:
		return c.encodeObjectOrReference(w, v)
	default:
		// Dict, ByteArray and XML have no AMF0 marker: callers that need
		// them in an AMF0 stream must
		// switch to AMF3 explicitly (spec §4.5, "AVM+ object marker").
		return fmt.Errorf("value kind %s has no AMF0 representation: %w", v.Kind, ErrTypeError)
	}
}

// encodeStringValue picks between the short (u16-length) and long
// (u32-length) string markers on the actual UTF-8 byte length (spec §4.5).
// AMF0 strings are never entered into the reference table.
func (c *amf0Context) encodeStringValue(w *Writer, s string) error {
	n := len(s)
	if n > 0xFFFFFFFF {
		return fmt.Errorf("string length %d: %w", n, ErrRangeError)
	}
	if n < 0x10000 {
		if err := w.WriteU8(markerString); err != nil {
			return err
		}
		if err := w.WriteU16BE(uint16(n)); err != nil {
			return err
		}
		return w.WriteBytes([]byte(s))
	}
	if err := w.WriteU8(markerLongString); err != nil {
		return err
	}
	if err := w.WriteU32BE(uint32(n)); err != nil {
		return err
	}
	return w.WriteBytes([]byte(s))
}

func (c *amf0Context) encodeDate(w *Writer, v Value) error {
	// Dates are not added to the AMF0 object table (spec §4.5): two equal
	// Date values are always emitted in full, never as a Reference.
	if err := w.WriteU8(markerDate); err != nil {
		return err
	}
	if err := w.WriteF64BE(v.DateMillis); err != nil {
		return err
	}
	return w.WriteI16BE(v.DateTZOffs) // timezone offset, ignored on decode
}

// encodeArrayOrReference interns v before encoding its elements, so a
// self-referential array writes a Reference marker to itself instead of
// recursing forever (spec §3: "added... BEFORE children are processed").
func (c *amf0Context) encodeArrayOrReference(w *Writer, v Value) error {
	idx, seen := c.objects.lookupOrReserve(v)
	if seen {
		return c.encodeReference(w, idx)
	}
	if err := w.WriteU8(markerStrictArray); err != nil {
		return err
	}
	if err := w.WriteU32BE(uint32(len(v.Array))); err != nil {
		return err
	}
	for i, elem := range v.Array {
		if err := c.encodeValue(w, elem); err != nil {
			return fmt.Errorf("array element %d: %w", i, err)
		}
	}
	return nil
}

func (c *amf0Context) encodeObjectOrReference(w *Writer, v Value) error {
	idx, seen := c.objects.lookupOrReserve(v)
	if seen {
		return c.encodeReference(w, idx)
	}
	obj := v.Obj
	if obj.HasClassName {
		if err := w.WriteU8(markerTypedObject); err != nil {
			return err
		}
		if err := c.encodeUTF8(w, obj.ClassName); err != nil {
			return err
		}
	} else if err := w.WriteU8(markerObject); err != nil {
		return err
	}
	for _, p := range obj.Sealed {
		if err := c.encodeProperty(w, p); err != nil {
			return err
		}
	}
	for _, p := range obj.Dynamic {
		if err := c.encodeProperty(w, p); err != nil {
			return err
		}
	}
	if err := w.WriteU16BE(0); err != nil { // empty key prefix of the end marker
		return err
	}
	return w.WriteU8(markerObjectEnd)
}

func (c *amf0Context) encodeProperty(w *Writer, p Property) error {
	if len(p.Name) > 0xFFFF {
		return fmt.Errorf("property name length %d: %w", len(p.Name), ErrRangeError)
	}
	if err := w.WriteU16BE(uint16(len(p.Name))); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte(p.Name)); err != nil {
		return err
	}
	return c.encodeValue(w, p.Value)
}

func (c *amf0Context) encodeReference(w *Writer, idx int) error {
	if idx < 0 || idx > 0xFFFF {
		return fmt.Errorf("reference index %d out of u16 range: %w", idx, ErrRangeError)
	}
	if err := w.WriteU8(markerReference); err != nil {
		return err
	}
	return w.WriteU16BE(uint16(idx))
}

// decodeValue reads one AMF0-encoded value, decoding the value that follows
// an AVM+ marker as AMF3 (spec §4.5).
func (c *amf0Context) decodeValue(r *Reader) (Value, error) {
	marker, err := r.ReadU8()
	if err != nil {
		return Value{}, err
	}
	switch marker {
	case markerNumber:
		f, err := r.ReadF64BE()
		if err != nil {
			return Value{}, err
		}
		return Double(f), nil
	case markerBoolean:
		b, err := r.ReadU8()
		if err != nil {
			return Value{}, err
		}
		return Bool(b != 0), nil
	case markerString:
		return c.decodeShortString(r)
	case markerObject:
		return c.decodeObject(r, "")
	case markerNull:
		return Null(), nil
	case markerUndefined:
		return Undefined(), nil
	case markerReference:
		idx, err := r.ReadU16BE()
		if err != nil {
			return Value{}, err
		}
		return c.objects.get(int(idx))
	case markerECMAArray:
		return c.decodeECMAArray(r)
	case markerStrictArray:
		return c.decodeStrictArray(r)
	case markerDate:
		return c.decodeDate(r)
	case markerLongString:
		return c.decodeLongString(r)
	case markerXMLDocument:
		s, err := r.ReadU32BE()
		if err != nil {
			return Value{}, err
		}
		body, err := r.ReadUTF8(int(s))
		if err != nil {
			return Value{}, err
		}
		return XMLDocument(body), nil
	case markerTypedObject:
		name, err := c.decodeUTF8(r)
		if err != nil {
			return Value{}, err
		}
		return c.decodeObject(r, name)
	case markerUnsupported:
		return Null(), nil
	case markerMovieClip, markerRecordSet:
		return Value{}, fmt.Errorf("amf0 reserved marker 0x%02x: %w", marker, ErrUnsupported)
	case markerAVMPlus:
		return c.decodeAVMPlus(r)
	default:
		return Value{}, fmt.Errorf("amf0 marker 0x%02x: %w", marker, ErrBadMarker)
	}
}

// encodeUTF8 writes a u16-length-prefixed string with no type marker, the
// shape used for a typed object's class name (spec §4.5).
func (c *amf0Context) encodeUTF8(w *Writer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("utf8 length %d: %w", len(s), ErrRangeError)
	}
	if err := w.WriteU16BE(uint16(len(s))); err != nil {
		return err
	}
	return w.WriteUTF8(s)
}

func (c *amf0Context) decodeUTF8(r *Reader) (string, error) {
	n, err := r.ReadU16BE()
	if err != nil {
		return "", err
	}
	return r.ReadUTF8(int(n))
}

func (c *amf0Context) decodeShortString(r *Reader) (Value, error) {
	s, err := c.decodeUTF8(r)
	if err != nil {
		return Value{}, err
	}
	return String(s), nil
}

func (c *amf0Context) decodeLongString(r *Reader) (Value, error) {
	n, err := r.ReadU32BE()
	if err != nil {
		return Value{}, err
	}
	s, err := r.ReadUTF8(int(n))
	if err != nil {
		return Value{}, err
	}
	return String(s), nil
}

func (c *amf0Context) decodeDate(r *Reader) (Value, error) {
	ms, err := r.ReadF64BE()
	if err != nil {
		return Value{}, err
	}
	if _, err := r.ReadI16BE(); err != nil { // timezone offset, ignored
		return Value{}, err
	}
	// Not interned: see encodeDate.
	return Date(ms, 0), nil
}

// decodeObject reads the key/value pairs up to the object-end marker
// (empty-key + 0x09), reserving its reference-table slot before any member
// is read so a self-referential member can resolve (spec §3).
func (c *amf0Context) decodeObject(r *Reader, className string) (Value, error) {
	idx := c.objects.reserve(Value{})
	var props []Property
	for {
		keyLen, err := r.ReadU16BE()
		if err != nil {
			return Value{}, err
		}
		if keyLen == 0 {
			end, err := r.ReadU8()
			if err != nil {
				return Value{}, err
			}
			if end != markerObjectEnd {
				return Value{}, fmt.Errorf("amf0 object: expected end marker, got 0x%02x: %w", end, ErrBadMarker)
			}
			break
		}
		key, err := r.ReadUTF8(int(keyLen))
		if err != nil {
			return Value{}, err
		}
		val, err := c.decodeValue(r)
		if err != nil {
			return Value{}, fmt.Errorf("object property %q: %w", key, err)
		}
		props = append(props, Property{Name: key, Value: val})
	}
	var result Value
	if className != "" {
		result = TypedObject(className, nil, props, true)
	} else {
		result = AnonymousObject(props)
	}
	c.objects.fill(idx, result)
	return result, nil
}

func (c *amf0Context) decodeECMAArray(r *Reader) (Value, error) {
	count, err := r.ReadU32BE()
	if err != nil {
		return Value{}, err
	}
	_ = count // an associative-array length hint; the wire terminates with the object-end marker regardless
	v, err := c.decodeObject(r, "")
	return v, err
}

func (c *amf0Context) decodeStrictArray(r *Reader) (Value, error) {
	n, err := r.ReadU32BE()
	if err != nil {
		return Value{}, err
	}
	prealloc := n
	if prealloc > maxPreallocEntries {
		prealloc = maxPreallocEntries // the slice still grows as elements are decoded
	}
	idx := c.objects.reserve(Value{})
	elems := make([]Value, 0, prealloc)
	for i := uint32(0); i < n; i++ {
		elem, err := c.decodeValue(r)
		if err != nil {
			return Value{}, fmt.Errorf("array element %d: %w", i, err)
		}
		elems = append(elems, elem)
	}
	result := Array(elems)
	c.objects.fill(idx, result)
	return result, nil
}

// decodeAVMPlus decodes the value following an AVM+ marker as AMF3: each
// marker resets the reference tables to a fresh AMF3 context, so tables are
// never shared across switches (spec §4.5/§4.6).
func (c *amf0Context) decodeAVMPlus(r *Reader) (Value, error) {
	c.amf3 = newAMF3Context()
	return c.amf3.decodeValue(r)
}
