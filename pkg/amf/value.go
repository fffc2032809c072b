// Package amf implements the Action Message Format (AMF0 and AMF3) binary
// codec: byte-level reading and writing, the AMF3 variable-length integer,
// the per-invocation reference tables, trait records, and the marker-level
// encoders/decoders for both wire variants. Class-to-type mapping lives in
// the sibling pkg/amf/classmap package; envelope framing lives in
// pkg/envelope.
package amf

import "fmt"

// Kind discriminates the cases of Value.
type Kind int

const (
	KindNull Kind = iota
	KindUndefined
	KindBool
	KindInteger
	KindDouble
	KindString
	KindArray
	KindObject
	KindDict
	KindByteArray
	KindXML
	KindXMLDocument
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindUndefined:
		return "Undefined"
	case KindBool:
		return "Bool"
	case KindInteger:
		return "Integer"
	case KindDouble:
		return "Double"
	case KindString:
		return "String"
	case KindArray:
		return "Array"
	case KindObject:
		return "Object"
	case KindDict:
		return "Dict"
	case KindByteArray:
		return "ByteArray"
	case KindXML:
		return "XML"
	case KindXMLDocument:
		return "XMLDocument"
	case KindDate:
		return "Date"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Property is a single named member of an Object, in encounter order.
type Property struct {
	Name  string
	Value Value
}

// DictEntry is a single key/value pair of a Dict, in encounter order.
type DictEntry struct {
	Key   Value
	Value Value
}

// Object is the AMF representation of a typed or anonymous object: an
// optional class name, an ordered sealed member list (driven by a Trait on
// the wire), an ordered dynamic member list, and — for externalizable
// objects — an opaque body handled entirely by a user type's
// AMFExternalizable implementation.
type Object struct {
	ClassName      string
	HasClassName   bool
	Sealed         []Property
	Dynamic        []Property
	IsDynamic      bool // trait-level "dynamic" flag; true whenever Dynamic may be read/written
	Externalizable bool
	ExternalBody   []byte
}

// Value is the tagged union described by spec §3: exactly one of the
// type-specific fields below is meaningful, selected by Kind.
type Value struct {
	Kind Kind

	Bool    bool
	Integer int32
	Double  float64
	Str     string // String, XML, XMLDocument payload

	Array []Value
	Obj   *Object
	Dict  []DictEntry
	Bytes []byte // ByteArray payload

	DateMillis  float64
	DateTZOffs  int16
}

// Null is the shared Null value.
func Null() Value { return Value{Kind: KindNull} }

// Undefined is the shared Undefined value (distinct from Null on the wire).
func Undefined() Value { return Value{Kind: KindUndefined} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Integer wraps a 29-bit signed integer. Callers must keep v within
// [-2^28, 2^28-1]; the AMF3 encoder demotes out-of-range values to Double
// itself (spec §4.2) but constructing an out-of-range Integer Value
// directly is a caller error.
func Integer(v int32) Value { return Value{Kind: KindInteger, Integer: v} }

// Double wraps an IEEE-754 double.
func Double(v float64) Value { return Value{Kind: KindDouble, Double: v} }

// String wraps a UTF-8 string.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// XML wraps an e4x-style XML payload.
func XML(s string) Value { return Value{Kind: KindXML, Str: s} }

// XMLDocument wraps a legacy XML document payload.
func XMLDocument(s string) Value { return Value{Kind: KindXMLDocument, Str: s} }

// Array wraps an ordered sequence of values.
func Array(vs []Value) Value { return Value{Kind: KindArray, Array: vs} }

// ByteArray wraps an opaque byte payload.
func ByteArray(b []byte) Value { return Value{Kind: KindByteArray, Bytes: b} }

// Date wraps a millisecond timestamp. The timezone offset is carried for
// wire fidelity but ignored on decode per spec §4.5/§4.6.
func Date(millis float64, tzOffsetMinutes int16) Value {
	return Value{Kind: KindDate, DateMillis: millis, DateTZOffs: tzOffsetMinutes}
}

// DictValue wraps an ordered key/value sequence (AMF3 Dictionary).
func DictValue(entries []DictEntry) Value { return Value{Kind: KindDict, Dict: entries} }

// AnonymousObject wraps a dynamic Object with no class name and no sealed
// members, the shape every untyped AMF0 object and ECMA array decodes to.
func AnonymousObject(dynamic []Property) Value {
	return Value{Kind: KindObject, Obj: &Object{Dynamic: dynamic, IsDynamic: true}}
}

// TypedObject wraps an Object carrying a class name and a sealed member
// list driven by a Trait; dynamic may be nil for a purely sealed object.
func TypedObject(className string, sealed, dynamic []Property, isDynamic bool) Value {
	return Value{Kind: KindObject, Obj: &Object{
		ClassName: className, HasClassName: true, Sealed: sealed, Dynamic: dynamic, IsDynamic: isDynamic,
	}}
}

// ExternalizableObject wraps an Object whose body is an opaque,
// already-serialized byte blob (spec §4.6: delegated to a user type's
// external reader/writer capability, dispatched at the Serializer layer —
// see pkg/amf/serializer.go).
func ExternalizableObject(className string, body []byte) Value {
	return Value{Kind: KindObject, Obj: &Object{
		ClassName: className, HasClassName: true, Externalizable: true, ExternalBody: body,
	}}
}

// ArrayCollectionValue wraps items as a Flex flex.messaging.io.ArrayCollection
// object, the AMF3 wire shape decodeAVMPlus/decodeObject unwrap back to a
// plain Array on the way in (spec §4.6). The inverse of that unwrap: a
// caller that wants a value to round-trip as ArrayCollection rather than a
// bare Array on encode constructs it with this.
func ArrayCollectionValue(items []Value) Value {
	return Value{Kind: KindObject, Obj: &Object{
		ClassName:    arrayCollectionClassName,
		HasClassName: true,
		Sealed:       []Property{{Name: "source", Value: Array(items)}},
	}}
}

// IsNil reports whether v is Null or Undefined, the two cases that collapse
// to an absent value in most host languages.
func (v Value) IsNil() bool { return v.Kind == KindNull || v.Kind == KindUndefined }

// referenceable reports whether v's kind participates in the object
// reference table (spec §3: Object, Array, Dict, Date, ByteArray, XML,
// XMLDocument — every complex value).
func (k Kind) referenceable() bool {
	switch k {
	case KindObject, KindArray, KindDict, KindDate, KindByteArray, KindXML, KindXMLDocument:
		return true
	default:
		return false
	}
}
