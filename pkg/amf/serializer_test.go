package amf

import (
	"errors"
	"testing"

	"github.com/flexamf/amf/pkg/amf/classmap"
)

type widget struct {
	Name  string  `amf:"name"`
	Count float64 `amf:"count"`
}

func TestSerializer_ScalarsAndContainers(t *testing.T) {
	s := NewSerializer(nil)

	v, err := s.ToValue(map[string]any{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindObject || !v.Obj.IsDynamic {
		t.Fatalf("map -> %+v", v)
	}

	v, err = s.ToValue([]any{1, "two", true})
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindArray || len(v.Array) != 3 {
		t.Fatalf("slice -> %+v", v)
	}
	if v.Array[0].Kind != KindInteger || v.Array[0].Integer != 1 {
		t.Errorf("element 0 = %+v", v.Array[0])
	}

	v, err = s.ToValue(int64(MaxI29) + 1)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindDouble {
		t.Fatalf("overflow int64 -> %+v, want Double", v)
	}
}

func TestSerializer_RegisteredStructRoundTrip(t *testing.T) {
	m := classmap.NewMapper(classmap.WithSeedMessages(false))
	if err := m.Map("com.example.Widget", widget{}); err != nil {
		t.Fatal(err)
	}
	s := NewSerializer(m)
	d := NewDeserializer(m)

	v, err := s.ToValue(widget{Name: "gear", Count: 3})
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindObject || v.Obj.ClassName != "com.example.Widget" {
		t.Fatalf("got %+v", v)
	}

	native, err := d.MaterializeObject(v)
	if err != nil {
		t.Fatal(err)
	}
	w, ok := native.(*widget)
	if !ok {
		t.Fatalf("got %T", native)
	}
	if w.Name != "gear" || w.Count != 3 {
		t.Errorf("got %+v", w)
	}
}

func TestSerializer_UnregisteredStructIsUnsupported(t *testing.T) {
	s := NewSerializer(nil)
	if _, err := s.ToValue(widget{Name: "x"}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("got %v, want ErrUnsupported", err)
	}
}

func TestSerializer_GenericObjectRoundTrip(t *testing.T) {
	s := NewSerializer(nil)
	g := &classmap.GenericObject{
		ClassName: "com.example.Unknown",
		Sealed:    []classmap.Prop{{Name: "a", Value: "x"}},
	}
	v, err := s.ToValue(g)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindObject || v.Obj.ClassName != "com.example.Unknown" {
		t.Fatalf("got %+v", v)
	}
	if v.Obj.Sealed[0].Value.Str != "x" {
		t.Errorf("got %+v", v.Obj.Sealed)
	}
}

func TestSerializer_UseArrayCollection(t *testing.T) {
	m := classmap.NewMapper(classmap.WithUseArrayCollection(true))
	s := NewSerializer(m)
	v, err := s.ToValue([]any{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindObject || v.Obj.ClassName != arrayCollectionClassName {
		t.Fatalf("got %+v, want ArrayCollection wrapper", v)
	}
}

func TestSerializer_Serialize_AMF0AndAMF3(t *testing.T) {
	s := NewSerializer(nil)
	d := NewDeserializer(nil)

	data0, err := s.Serialize(0, "hello")
	if err != nil {
		t.Fatal(err)
	}
	got0, err := d.Deserialize(0, NewReader(data0))
	if err != nil {
		t.Fatal(err)
	}
	if got0.Str != "hello" {
		t.Errorf("amf0 round-trip: got %+v", got0)
	}

	data3, err := s.Serialize(3, "hello")
	if err != nil {
		t.Fatal(err)
	}
	got3, err := d.Deserialize(3, NewReader(data3))
	if err != nil {
		t.Fatal(err)
	}
	if got3.Str != "hello" {
		t.Errorf("amf3 round-trip: got %+v", got3)
	}

	if _, err := s.Serialize(99, "x"); !errors.Is(err, ErrArgError) {
		t.Fatalf("got %v, want ErrArgError", err)
	}
}

func TestDeserializer_FromValue(t *testing.T) {
	v := AnonymousObject([]Property{{Name: "a", Value: Integer(1)}})
	v.Obj.Sealed = []Property{{Name: "b", Value: String("s")}}

	native, err := FromValue(v)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := native.(map[string]any)
	if !ok {
		t.Fatalf("got %T", native)
	}
	if m["a"] != int32(1) || m["b"] != "s" {
		t.Errorf("got %+v", m)
	}
}

func TestDeserializer_FromValue_DoesNotMutateSealed(t *testing.T) {
	obj := &Object{Sealed: []Property{{Name: "a", Value: Integer(1)}}}
	v := Value{Kind: KindObject, Obj: obj}
	if _, err := FromValue(v); err != nil {
		t.Fatal(err)
	}
	if len(obj.Sealed) != 1 {
		t.Fatalf("Sealed mutated: %+v", obj.Sealed)
	}
}

func TestSerializer_ExternalizableRoundTrip(t *testing.T) {
	m := classmap.NewMapper(classmap.WithSeedMessages(false))
	if err := m.Map("com.example.Ext", extType{}); err != nil {
		t.Fatal(err)
	}
	s := NewSerializer(m)
	d := NewDeserializer(m)

	v, err := s.ToValue(&extType{Payload: "p"})
	if err != nil {
		t.Fatal(err)
	}
	if !v.Obj.Externalizable {
		t.Fatalf("got %+v", v.Obj)
	}
	native, err := d.MaterializeObject(v)
	if err != nil {
		t.Fatal(err)
	}
	e, ok := native.(*extType)
	if !ok {
		t.Fatalf("got %T", native)
	}
	if e.Payload != "p" {
		t.Errorf("got %+v", e)
	}
}

type extType struct {
	Payload string
}

func (e *extType) WriteExternal(w *Writer) error {
	return w.WriteUTF8(e.Payload)
}

func (e *extType) ReadExternal(r *Reader) error {
	s, err := r.ReadUTF8(r.Len())
	if err != nil {
		return err
	}
	e.Payload = s
	return nil
}
