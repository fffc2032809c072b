package amf

import (
	"fmt"
	"strconv"
)

// amf3Context holds the three reference tables for a single AMF3
// top-level payload (spec §3: "Tables reset at the boundary of each
// top-level AMF3 payload").
type amf3Context struct {
	objects *objectTable
	strings *stringTable
	traits  *traitTable
}

func newAMF3Context() *amf3Context {
	return &amf3Context{
		objects: newObjectTable(),
		strings: newStringTable(),
		traits:  newTraitTable(),
	}
}

// EncodeAMF3Sequence encodes values as a concatenated AMF3 stream sharing
// one set of reference tables, the shape an AMF3-framed RPC argument list
// or message body needs.
func EncodeAMF3Sequence(values ...Value) ([]byte, error) {
	w := NewWriter()
	defer w.Release()
	ctx := newAMF3Context()
	for i, v := range values {
		if err := ctx.encodeValue(w, v); err != nil {
			return nil, fmt.Errorf("amf3 value %d: %w", i, err)
		}
	}
	out := make([]byte, len(w.Bytes()))
	copy(out, w.Bytes())
	return out, nil
}

// DecodeAMF3Sequence decodes a concatenated AMF3 stream until exhaustion,
// sharing one set of reference tables across all values.
func DecodeAMF3Sequence(data []byte) ([]Value, error) {
	r := NewReader(data)
	ctx := newAMF3Context()
	var out []Value
	for r.Len() > 0 {
		v, err := ctx.decodeValue(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// EncodeAMF3 encodes a single AMF3 value with a fresh set of reference
// tables onto an existing Writer (used when the caller is composing a
// larger stream, e.g. the envelope codec after its AMF3-switch marker).
func EncodeAMF3(w *Writer, v Value) error {
	return newAMF3Context().encodeValue(w, v)
}

// DecodeAMF3 decodes a single AMF3 value with a fresh set of reference
// tables from r.
func DecodeAMF3(r *Reader) (Value, error) {
	return newAMF3Context().decodeValue(r)
}

func (c *amf3Context) encodeValue(w *Writer, v Value) error {
	switch v.Kind {
	case KindNull, KindUndefined:
		marker := amf3Null
		if v.Kind == KindUndefined {
			marker = amf3Undefined
		}
		return w.WriteU8(byte(marker))
	case KindBool:
		if v.Bool {
			return w.WriteU8(amf3True)
		}
		return w.WriteU8(amf3False)
	case KindInteger:
		if v.Integer >= MinI29 && v.Integer <= MaxI29 {
			if err := w.WriteU8(amf3Integer); err != nil {
				return err
			}
			return w.EncodeU29(v.Integer)
		}
		// Out of U29 range: demote to Double per spec §4.2/§4.6/§8.
		if err := w.WriteU8(amf3Double); err != nil {
			return err
		}
		return w.WriteF64BE(float64(v.Integer))
	case KindDouble:
		if err := w.WriteU8(amf3Double); err != nil {
			return err
		}
		return w.WriteF64BE(v.Double)
	case KindString:
		if err := w.WriteU8(amf3String); err != nil {
			return err
		}
		return c.encodeStringValue(w, v.Str)
	case KindXML:
		return c.encodeRefOrInline(w, v, amf3XML, func() error { return c.encodeXMLBody(w, v.Str) })
	case KindXMLDocument:
		return c.encodeRefOrInline(w, v, amf3XMLDoc, func() error { return c.encodeXMLBody(w, v.Str) })
	case KindByteArray:
		return c.encodeRefOrInline(w, v, amf3ByteArray, func() error { return c.encodeByteArrayBody(w, v.Bytes) })
	case KindDate:
		return c.encodeRefOrInline(w, v, amf3Date, func() error { return c.encodeDateBody(w, v) })
	case KindArray:
		return c.encodeRefOrInline(w, v, amf3Array, func() error { return c.encodeArrayBody(w, v.Array) })
	case KindObject:
		return c.encodeRefOrInline(w, v, amf3Object, func() error { return c.encodeObjectBody(w, v.Obj) })
	case KindDict:
		return c.encodeRefOrInline(w, v, amf3Dict, func() error { return c.encodeDictBody(w, v.Dict) })
	default:
		return fmt.Errorf("encode amf3: %w: kind %s", ErrBadMarker, v.Kind)
	}
}

// encodeRefOrInline writes marker, then either a back-reference header or
// an inline body, reserving v's object-table slot before recursing into
// its children (spec §3/§4.6: "The object/container is interned BEFORE
// its children/fields").
func (c *amf3Context) encodeRefOrInline(w *Writer, v Value, marker byte, body func() error) error {
	if err := w.WriteU8(marker); err != nil {
		return err
	}
	idx, seen := c.objects.lookupOrReserve(v)
	if seen {
		return w.WriteVarU29(uint32(idx) << 1)
	}
	return body()
}

func (c *amf3Context) encodeStringValue(w *Writer, s string) error {
	if s == "" {
		return w.WriteVarU29(1)
	}
	if idx, seen := c.strings.lookupOrAdd(s); seen {
		return w.WriteVarU29(uint32(idx) << 1)
	}
	if err := w.WriteVarU29(uint32(len(s))<<1 | 1); err != nil {
		return err
	}
	return w.WriteUTF8(s)
}

func (c *amf3Context) encodeXMLBody(w *Writer, s string) error {
	if err := w.WriteVarU29(uint32(len(s))<<1 | 1); err != nil {
		return err
	}
	return w.WriteUTF8(s)
}

func (c *amf3Context) encodeByteArrayBody(w *Writer, b []byte) error {
	if err := w.WriteVarU29(uint32(len(b))<<1 | 1); err != nil {
		return err
	}
	return w.WriteBytes(b)
}

func (c *amf3Context) encodeDateBody(w *Writer, v Value) error {
	if err := w.WriteVarU29(1); err != nil { // inline marker, value carries no further refs
		return err
	}
	return w.WriteF64BE(v.DateMillis)
}

// encodeArrayBody writes a dense array: header, empty associative
// terminator, then each element. spec's Value model has no mixed
// associative/dense Array case (that decodes to an Object instead), so the
// associative portion is always empty on encode.
func (c *amf3Context) encodeArrayBody(w *Writer, items []Value) error {
	if err := w.WriteVarU29(uint32(len(items))<<1 | 1); err != nil {
		return err
	}
	if err := c.encodeStringValue(w, ""); err != nil {
		return err
	}
	for i, item := range items {
		if err := c.encodeValue(w, item); err != nil {
			return fmt.Errorf("array element %d: %w", i, err)
		}
	}
	return nil
}

func (c *amf3Context) encodeObjectBody(w *Writer, obj *Object) error {
	if obj.ClassName == arrayCollectionClassName {
		// ext/serializer.c's ser3_write_array: a 0-member, non-dynamic,
		// non-externalizable trait followed directly by the wrapped array
		// value — not a named sealed member (spec §4.6).
		if err := c.encodeTraitHeader(w, Trait{ClassName: obj.ClassName}); err != nil {
			return err
		}
		inner, ok := findArrayCollectionInner(obj)
		if !ok {
			return fmt.Errorf("amf3 ArrayCollection: missing inner array: %w", ErrTypeError)
		}
		return c.encodeValue(w, inner)
	}

	trait := Trait{
		ClassName:      obj.ClassName,
		Externalizable: obj.Externalizable,
		Dynamic:        obj.IsDynamic,
		Members:        propertyNames(obj.Sealed),
	}
	if err := c.encodeTraitHeader(w, trait); err != nil {
		return err
	}
	if obj.Externalizable {
		return w.WriteBytes(obj.ExternalBody)
	}
	for i, p := range obj.Sealed {
		if err := c.encodeValue(w, p.Value); err != nil {
			return fmt.Errorf("sealed member %q (%d): %w", p.Name, i, err)
		}
	}
	if trait.Dynamic {
		for _, p := range obj.Dynamic {
			if err := c.encodeStringValue(w, p.Name); err != nil {
				return err
			}
			if err := c.encodeValue(w, p.Value); err != nil {
				return fmt.Errorf("dynamic member %q: %w", p.Name, err)
			}
		}
		if err := c.encodeStringValue(w, ""); err != nil {
			return err
		}
	}
	return nil
}

func propertyNames(props []Property) []string {
	if len(props) == 0 {
		return nil
	}
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name
	}
	return names
}

// encodeTraitHeader writes the trait sub-value: a back-reference if a trait
// with the same class name and the exact same (class_name, externalizable,
// dynamic, members) schema was already emitted in this invocation (spec
// §4.3/§4.4/§8), else an inline trait record.
//
// The U29 written here is read back by decodeObject as a whole (bit0 of
// that field is the object's own ref(0)/inline(1) flag, always 1 on this
// path since we only get here once encodeRefOrInline has decided the
// object itself is not a back-reference). Everything from bit1 up is the
// trait sub-value decodeTraitHeader works with: bit0 trait-ref(0)/
// inline(1), bit1 externalizable, bit2 dynamic, bits3+ member count
// (ext/serializer.c's header construction: header = 0x03, |= 0x01<<2 for
// externalizable, |= 0x02<<2 for dynamic, |= members_len<<4).
func (c *amf3Context) encodeTraitHeader(w *Writer, trait Trait) error {
	if idx, seen := c.traits.lookupOrAdd(trait); seen {
		// bit0 of the sub-value clear: trait back-reference, remaining
		// bits the index.
		return w.WriteVarU29(uint32(idx)<<2 | 0x01)
	}
	sub := uint32(len(trait.Members))<<3 | 0x01 // bit0 set: inline trait
	if trait.Externalizable {
		sub |= 0x02
	}
	if trait.Dynamic {
		sub |= 0x04
	}
	if err := w.WriteVarU29(sub<<1 | 0x01); err != nil {
		return err
	}
	if err := c.encodeStringValue(w, trait.ClassName); err != nil {
		return err
	}
	for _, m := range trait.Members {
		if err := c.encodeStringValue(w, m); err != nil {
			return err
		}
	}
	return nil
}

func (c *amf3Context) encodeDictBody(w *Writer, entries []DictEntry) error {
	if err := w.WriteVarU29(uint32(len(entries))<<1 | 1); err != nil {
		return err
	}
	if err := w.WriteVarU29(0); err != nil { // weak-keys flag, always emitted false (spec §4.9)
		return err
	}
	for _, e := range entries {
		if err := c.encodeValue(w, e.Key); err != nil {
			return err
		}
		if err := c.encodeValue(w, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// --- decode ---

func (c *amf3Context) decodeValue(r *Reader) (Value, error) {
	marker, err := r.ReadU8()
	if err != nil {
		return Value{}, err
	}
	switch marker {
	case amf3Undefined:
		return Undefined(), nil
	case amf3Null:
		return Null(), nil
	case amf3False:
		return Bool(false), nil
	case amf3True:
		return Bool(true), nil
	case amf3Integer:
		i, err := r.DecodeU29()
		if err != nil {
			return Value{}, err
		}
		return Integer(i), nil
	case amf3Double:
		d, err := r.ReadF64BE()
		if err != nil {
			return Value{}, err
		}
		return Double(d), nil
	case amf3String:
		s, err := c.decodeStringValue(r)
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case amf3XML:
		return c.decodeRefOrInline(r, func(header uint32) (Value, error) {
			s, err := c.decodeInlineUTF8(r, header)
			if err != nil {
				return Value{}, err
			}
			return XML(s), nil
		})
	case amf3XMLDoc:
		return c.decodeRefOrInline(r, func(header uint32) (Value, error) {
			s, err := c.decodeInlineUTF8(r, header)
			if err != nil {
				return Value{}, err
			}
			return XMLDocument(s), nil
		})
	case amf3ByteArray:
		return c.decodeRefOrInline(r, func(header uint32) (Value, error) {
			b, err := r.ReadBytes(int(header >> 1))
			if err != nil {
				return Value{}, err
			}
			return ByteArray(b), nil
		})
	case amf3Date:
		return c.decodeRefOrInline(r, func(uint32) (Value, error) {
			millis, err := r.ReadF64BE()
			if err != nil {
				return Value{}, err
			}
			return Date(millis, 0), nil
		})
	case amf3Array:
		return c.decodeArray(r)
	case amf3Object:
		return c.decodeObject(r)
	case amf3Dict:
		return c.decodeDict(r)
	default:
		return Value{}, fmt.Errorf("amf3 marker 0x%02x: %w", marker, ErrBadMarker)
	}
}

// decodeRefOrInline reads the U29 reference header shared by Date,
// ByteArray, XML and XMLDocument, resolving a back-reference or reserving a
// slot and decoding the inline body. The inline header is passed to body,
// since its upper bits carry the payload length.
func (c *amf3Context) decodeRefOrInline(r *Reader, body func(header uint32) (Value, error)) (Value, error) {
	header, err := r.ReadVarU29()
	if err != nil {
		return Value{}, err
	}
	if header&1 == 0 {
		return c.objects.get(int(header >> 1))
	}
	idx := c.objects.reserve(Value{})
	v, err := body(header)
	if err != nil {
		return Value{}, err
	}
	c.objects.fill(idx, v)
	return v, nil
}

// decodeInlineUTF8 reads the inline body of an XML or XMLDocument value.
// header's low bit is always 1 here: this path is only reached from the
// inline branch of decodeRefOrInline, which has already consumed the
// header; its upper bits are the byte length.
func (c *amf3Context) decodeInlineUTF8(r *Reader, header uint32) (string, error) {
	return r.ReadUTF8(int(header >> 1))
}

func (c *amf3Context) decodeStringValue(r *Reader) (string, error) {
	u, err := r.ReadVarU29()
	if err != nil {
		return "", err
	}
	if u&1 == 0 {
		return c.strings.get(int(u >> 1))
	}
	length := int(u >> 1)
	if length == 0 {
		return "", nil
	}
	s, err := r.ReadUTF8(length)
	if err != nil {
		return "", err
	}
	c.strings.add(s)
	return s, nil
}

func (c *amf3Context) decodeArray(r *Reader) (Value, error) {
	u, err := r.ReadVarU29()
	if err != nil {
		return Value{}, err
	}
	if u&1 == 0 {
		return c.objects.get(int(u >> 1))
	}
	denseLen := int(u >> 1)
	if denseLen < 0 || denseLen > maxPreallocEntries {
		denseLen = 0 // ignore an implausible length for preallocation; still decoded incrementally below
	}
	idx := c.objects.reserve(Value{})

	var assoc []Property
	for {
		key, err := c.decodeStringValue(r)
		if err != nil {
			return Value{}, err
		}
		if key == "" {
			break
		}
		val, err := c.decodeValue(r)
		if err != nil {
			return Value{}, err
		}
		assoc = append(assoc, Property{Name: key, Value: val})
	}

	dense := make([]Value, 0, denseLen)
	for i := 0; i < int(u>>1); i++ {
		val, err := c.decodeValue(r)
		if err != nil {
			return Value{}, err
		}
		dense = append(dense, val)
	}

	var result Value
	if len(assoc) > 0 {
		dynamic := make([]Property, 0, len(assoc)+len(dense))
		dynamic = append(dynamic, assoc...)
		for i, v := range dense {
			dynamic = append(dynamic, Property{Name: strconv.Itoa(i), Value: v})
		}
		result = AnonymousObject(dynamic)
	} else {
		result = Array(dense)
	}
	c.objects.fill(idx, result)
	return result, nil
}

func (c *amf3Context) decodeObject(r *Reader) (Value, error) {
	u, err := r.ReadVarU29()
	if err != nil {
		return Value{}, err
	}
	if u&1 == 0 {
		return c.objects.get(int(u >> 1))
	}

	trait, err := c.decodeTraitHeader(r, u>>1)
	if err != nil {
		return Value{}, err
	}

	idx := c.objects.reserve(Value{})

	if trait.ClassName == arrayCollectionClassName {
		// ext/serializer.c's ser3_write_array: the trait carries no
		// members; the wrapped array follows as a directly nested AMF3
		// value, not a named sealed member (spec §4.6).
		inner, err := c.decodeValue(r)
		if err != nil {
			return Value{}, fmt.Errorf("amf3 ArrayCollection: %w", err)
		}
		// The wrapper's own slot resolves to the same value as the inner
		// array's slot, so a back-reference to either form resolves.
		c.objects.fill(idx, inner)
		return inner, nil
	}

	obj := &Object{
		ClassName:      trait.ClassName,
		HasClassName:   trait.ClassName != "",
		IsDynamic:      trait.Dynamic,
		Externalizable: trait.Externalizable,
	}

	if trait.Externalizable {
		// The remainder of the stream is opaque to the codec; callers that
		// need the decoded payload register an AMFExternalizable reader at
		// the Serializer layer and re-decode ExternalBody themselves.
		rest := r.Bytes()[r.Pos():]
		obj.ExternalBody = append([]byte(nil), rest...)
		r.SetPos(len(r.Bytes()))
	} else {
		obj.Sealed = make([]Property, 0, len(trait.Members))
		for _, name := range trait.Members {
			val, err := c.decodeValue(r)
			if err != nil {
				return Value{}, fmt.Errorf("sealed member %q: %w", name, err)
			}
			obj.Sealed = append(obj.Sealed, Property{Name: name, Value: val})
		}
		if trait.Dynamic {
			for {
				key, err := c.decodeStringValue(r)
				if err != nil {
					return Value{}, err
				}
				if key == "" {
					break
				}
				val, err := c.decodeValue(r)
				if err != nil {
					return Value{}, err
				}
				obj.Dynamic = append(obj.Dynamic, Property{Name: key, Value: val})
			}
		}
	}

	result := Value{Kind: KindObject, Obj: obj}
	c.objects.fill(idx, result)
	return result, nil
}

// findArrayCollectionInner extracts the inner array an ArrayCollection
// wraps. RocketAMF-style encoders place it as sole sealed member or as a
// single externalizable-free dynamic property; this codec accepts either
// shape defensively.
func findArrayCollectionInner(obj *Object) (Value, bool) {
	for _, p := range obj.Sealed {
		if p.Value.Kind == KindArray {
			return p.Value, true
		}
	}
	for _, p := range obj.Dynamic {
		if p.Value.Kind == KindArray {
			return p.Value, true
		}
	}
	return Value{}, false
}

// decodeTraitHeader reads a trait sub-value: the caller (decodeObject) has
// already stripped the object's own ref/inline bit, so sub's own bit0 is
// the trait-ref(0)/inline(1) flag, bit1 externalizable, bit2 dynamic, and
// bits3+ the member count (mirrors encodeTraitHeader).
func (c *amf3Context) decodeTraitHeader(r *Reader, sub uint32) (Trait, error) {
	if sub&1 == 0 {
		// bit0 clear: trait reference, remaining bits the index.
		idx := int(sub >> 1)
		return c.traits.get(idx)
	}
	externalizable := sub&0x02 != 0
	dynamic := sub&0x04 != 0
	memberCount := int(sub >> 3)
	if memberCount < 0 || memberCount > maxPreallocEntries {
		return Trait{}, fmt.Errorf("trait member count %d: %w", memberCount, ErrOutOfBounds)
	}
	className, err := c.decodeStringValue(r)
	if err != nil {
		return Trait{}, err
	}
	members := make([]string, 0, memberCount)
	for i := 0; i < memberCount; i++ {
		name, err := c.decodeStringValue(r)
		if err != nil {
			return Trait{}, err
		}
		members = append(members, name)
	}
	trait := Trait{ClassName: className, Externalizable: externalizable, Dynamic: dynamic, Members: members}
	c.traits.add(trait)
	return trait, nil
}

func (c *amf3Context) decodeDict(r *Reader) (Value, error) {
	u, err := r.ReadVarU29()
	if err != nil {
		return Value{}, err
	}
	if u&1 == 0 {
		return c.objects.get(int(u >> 1))
	}
	count := int(u >> 1)
	if count < 0 || count > maxPreallocEntries {
		return Value{}, fmt.Errorf("dict entry count %d: %w", count, ErrOutOfBounds)
	}
	if _, err := r.ReadVarU29(); err != nil { // weak-keys flag, discarded (spec §4.9)
		return Value{}, err
	}
	idx := c.objects.reserve(Value{})
	entries := make([]DictEntry, 0, count)
	for i := 0; i < count; i++ {
		key, err := c.decodeValue(r)
		if err != nil {
			return Value{}, err
		}
		val, err := c.decodeValue(r)
		if err != nil {
			return Value{}, err
		}
		entries = append(entries, DictEntry{Key: key, Value: val})
	}
	result := DictValue(entries)
	c.objects.fill(idx, result)
	return result, nil
}
