package amf

import (
	"reflect"
	"testing"
)

func TestAMF0_ScalarRoundTrip(t *testing.T) {
	cases := []Value{
		Null(),
		Undefined(),
		Bool(true),
		Bool(false),
		Double(3.5),
		Integer(42), // AMF0 has no Integer marker: round-trips as Double
		String(""),
		String("hello"),
		XMLDocument("<a/>"),
		Date(1700000000000, 90), // timezone offset is ignored on decode
	}
	for _, v := range cases {
		data, err := EncodeAMF0Sequence(v)
		if err != nil {
			t.Fatalf("encode %+v: %v", v, err)
		}
		got, err := DecodeAMF0Sequence(data)
		if err != nil {
			t.Fatalf("decode %+v: %v", v, err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 value, got %d", len(got))
		}
		want := v
		if v.Kind == KindInteger {
			want = Double(float64(v.Integer))
		}
		if v.Kind == KindDate {
			want = Date(v.DateMillis, 0)
		}
		if !reflect.DeepEqual(got[0], want) {
			t.Errorf("round-trip %+v: got %+v, want %+v", v, got[0], want)
		}
	}
}

func TestAMF0_LongStringThreshold(t *testing.T) {
	long := make([]byte, 70000)
	for i := range long {
		long[i] = 'x'
	}
	v := String(string(long))
	data, err := EncodeAMF0Sequence(v)
	if err != nil {
		t.Fatal(err)
	}
	if data[0] != markerLongString {
		t.Fatalf("expected markerLongString, got 0x%02x", data[0])
	}
	got, err := DecodeAMF0Sequence(data)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Str != string(long) {
		t.Errorf("long string round-trip mismatch")
	}
}

func TestAMF0_AnonymousObjectRoundTrip(t *testing.T) {
	v := AnonymousObject([]Property{{Name: "a", Value: Integer(1)}, {Name: "b", Value: String("two")}})
	data, err := EncodeAMF0Sequence(v)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeAMF0Sequence(data)
	if err != nil {
		t.Fatal(err)
	}
	want := []Property{{Name: "a", Value: Double(1)}, {Name: "b", Value: String("two")}}
	if !reflect.DeepEqual(got[0].Obj.Dynamic, want) {
		t.Errorf("got %+v, want %+v", got[0].Obj.Dynamic, want)
	}
}

func TestAMF0_TypedObjectRoundTrip(t *testing.T) {
	v := TypedObject("com.example.Thing", nil, []Property{{Name: "n", Value: String("x")}}, true)
	data, err := EncodeAMF0Sequence(v)
	if err != nil {
		t.Fatal(err)
	}
	if data[0] != markerTypedObject {
		t.Fatalf("expected markerTypedObject, got 0x%02x", data[0])
	}
	got, err := DecodeAMF0Sequence(data)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Obj.ClassName != "com.example.Thing" {
		t.Errorf("class name = %q", got[0].Obj.ClassName)
	}
}

func TestAMF0_StrictArrayRoundTrip(t *testing.T) {
	v := Array([]Value{Double(1), String("a"), Bool(false)})
	data, err := EncodeAMF0Sequence(v)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeAMF0Sequence(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got[0], v) {
		t.Errorf("got %+v, want %+v", got[0], v)
	}
}

func TestAMF0_ReferenceEncodesRepeatedObject(t *testing.T) {
	obj := AnonymousObject([]Property{{Name: "a", Value: Double(1)}})
	data, err := EncodeAMF0Sequence(obj, obj)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeAMF0Sequence(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 values, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0], got[1]) {
		t.Errorf("both decoded values should be equal: %+v vs %+v", got[0], got[1])
	}
}

func TestAMF0_ReferenceOutOfRange(t *testing.T) {
	_, err := DecodeAMF0Sequence([]byte{markerReference, 0x00, 0x05})
	if err == nil {
		t.Fatal("expected ErrBadReference for an empty object table")
	}
}

func TestAMF0_SwitchesToAMF3(t *testing.T) {
	w := NewWriter()
	defer w.Release()
	if err := w.WriteU8(markerAVMPlus); err != nil {
		t.Fatal(err)
	}
	if err := EncodeAMF3(w, String("via amf3")); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeAMF0Sequence(w.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Str != "via amf3" {
		t.Fatalf("got %+v", got)
	}
}

func TestAMF0_UnsupportedMarker(t *testing.T) {
	got, err := DecodeAMF0Sequence([]byte{markerUnsupported})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Kind != KindNull {
		t.Fatalf("got %+v, want a single Null", got)
	}
}

func TestAMF0_DictHasNoAMF0Representation(t *testing.T) {
	v := DictValue(nil)
	if _, err := EncodeAMF0Sequence(v); err == nil {
		t.Fatal("expected ErrTypeError encoding a Dict in AMF0")
	}
}
