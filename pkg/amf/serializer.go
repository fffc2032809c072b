package amf

import (
	"fmt"
	"reflect"
	"time"

	"github.com/flexamf/amf/pkg/amf/classmap"
)

// Serializer turns native Go values into AMF bytes, consulting mapper for
// the remote class name and ordered properties of a registered struct
// (spec §4.8). It holds no reference-table state itself — each Serialize
// call gets fresh tables, per spec §5 ("reference tables are created fresh
// at the start of each top-level codec invocation").
type Serializer struct {
	mapper *classmap.Mapper
}

// NewSerializer returns a Serializer using mapper for class-name and
// property resolution. A nil mapper is replaced with classmap.NewMapper().
func NewSerializer(mapper *classmap.Mapper) *Serializer {
	if mapper == nil {
		mapper = classmap.NewMapper()
	}
	return &Serializer{mapper: mapper}
}

// Mapper returns the Serializer's class mapper, for custom encoders
// implementing AMFEncoder that need GetRemoteName/ExtractProps directly.
func (s *Serializer) Mapper() *classmap.Mapper { return s.mapper }

// Serialize converts value to a Value tree (via ToValue) and encodes it as
// AMF0 (version 0) or AMF3 (version 3).
func (s *Serializer) Serialize(version int, value any) ([]byte, error) {
	v, err := s.ToValue(value)
	if err != nil {
		return nil, err
	}
	switch version {
	case 0:
		return EncodeAMF0Sequence(v)
	case 3:
		w := NewWriter()
		defer w.Release()
		if err := EncodeAMF3(w, v); err != nil {
			return nil, err
		}
		out := make([]byte, len(w.Bytes()))
		copy(out, w.Bytes())
		return out, nil
	default:
		return nil, fmt.Errorf("amf version %d: %w", version, ErrArgError)
	}
}

// WriteArray is the streaming helper a custom AMFEncoder uses to emit a Go
// slice as an AMF3 array directly onto w (spec §4.8: "write_array").
func (s *Serializer) WriteArray(w *Writer, items []any) error {
	values := make([]Value, len(items))
	for i, item := range items {
		v, err := s.ToValue(item)
		if err != nil {
			return fmt.Errorf("array element %d: %w", i, err)
		}
		values[i] = v
	}
	return EncodeAMF3(w, Array(values))
}

// WriteObject is the streaming helper a custom AMFEncoder uses to emit a
// registered struct (or *classmap.GenericObject) as an AMF3 object
// directly onto w (spec §4.8: "write_object").
func (s *Serializer) WriteObject(w *Writer, obj any) error {
	v, err := s.ToValue(obj)
	if err != nil {
		return err
	}
	return EncodeAMF3(w, v)
}

// ToValue converts a native Go value into the Value tree the codec
// encodes. AMFEncoder is honored first; then the common Go scalar/
// container shapes; then, for anything object-like, the Serializer's
// Mapper resolves a remote class name and ordered properties.
//
// A plain map[string]any becomes an anonymous dynamic Object; Go's
// randomized map iteration order means its property order on the wire is
// not stable across encodes of the same map, unlike a registered struct's
// field order (cached once per type by the Mapper).
func (s *Serializer) ToValue(value any) (Value, error) {
	if value == nil {
		return Null(), nil
	}
	if v, ok := value.(Value); ok {
		return v, nil
	}
	if enc, ok := value.(AMFEncoder); ok {
		return enc.EncodeAMF(s)
	}

	switch v := value.(type) {
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case []byte:
		return ByteArray(v), nil
	case time.Time:
		return Date(float64(v.UnixMilli()), 0), nil
	case int:
		return s.integerOrDouble(int64(v)), nil
	case int32:
		return s.integerOrDouble(int64(v)), nil
	case int64:
		return s.integerOrDouble(v), nil
	case uint:
		return s.integerOrDouble(int64(v)), nil
	case uint32:
		return s.integerOrDouble(int64(v)), nil
	case float32:
		return Double(float64(v)), nil
	case float64:
		return Double(v), nil
	case map[string]any:
		return s.mapToValue(v)
	}

	if g, ok := value.(*classmap.GenericObject); ok {
		return s.genericToValue(g)
	}
	if ext, ok := value.(AMFExternalizable); ok {
		return s.externalizableToValue(value, ext)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return s.sliceToValue(rv)
	case reflect.Struct, reflect.Pointer:
		return s.structToValue(value)
	default:
		return Value{}, fmt.Errorf("serialize %T: %w", value, ErrUnsupported)
	}
}

func (s *Serializer) integerOrDouble(v int64) Value {
	if v >= MinI29 && v <= MaxI29 {
		return Integer(int32(v))
	}
	return Double(float64(v))
}

func (s *Serializer) mapToValue(m map[string]any) (Value, error) {
	props := make([]Property, 0, len(m))
	for k, val := range m {
		cv, err := s.ToValue(val)
		if err != nil {
			return Value{}, fmt.Errorf("map key %q: %w", k, err)
		}
		props = append(props, Property{Name: k, Value: cv})
	}
	return AnonymousObject(props), nil
}

func (s *Serializer) sliceToValue(rv reflect.Value) (Value, error) {
	items := make([]Value, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		v, err := s.ToValue(rv.Index(i).Interface())
		if err != nil {
			return Value{}, fmt.Errorf("array element %d: %w", i, err)
		}
		items[i] = v
	}
	if s.useArrayCollection(rv.Interface()) {
		return ArrayCollectionValue(items), nil
	}
	return Array(items), nil
}

func (s *Serializer) useArrayCollection(value any) bool {
	if hint, ok := value.(ArrayCollectionHint); ok {
		return hint.UseArrayCollection()
	}
	return s.mapper.UseArrayCollection()
}

func (s *Serializer) structToValue(value any) (Value, error) {
	name, ok := s.mapper.GetRemoteName(value)
	if !ok {
		return Value{}, fmt.Errorf("serialize %T: unregistered type: %w", value, ErrUnsupported)
	}
	props, err := s.mapper.ExtractProps(value)
	if err != nil {
		return Value{}, err
	}
	sealed := make([]Property, len(props))
	for i, p := range props {
		cv, err := s.ToValue(p.Value)
		if err != nil {
			return Value{}, fmt.Errorf("property %q: %w", p.Name, err)
		}
		sealed[i] = Property{Name: p.Name, Value: cv}
	}
	return TypedObject(name, sealed, nil, false), nil
}

func (s *Serializer) genericToValue(g *classmap.GenericObject) (Value, error) {
	sealed, err := s.convertProps(g.Sealed)
	if err != nil {
		return Value{}, err
	}
	dynamic, err := s.convertProps(g.Dynamic)
	if err != nil {
		return Value{}, err
	}
	return TypedObject(g.ClassName, sealed, dynamic, len(dynamic) > 0), nil
}

func (s *Serializer) convertProps(props []classmap.Prop) ([]Property, error) {
	if len(props) == 0 {
		return nil, nil
	}
	out := make([]Property, len(props))
	for i, p := range props {
		cv, err := s.ToValue(p.Value)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", p.Name, err)
		}
		out[i] = Property{Name: p.Name, Value: cv}
	}
	return out, nil
}

func (s *Serializer) externalizableToValue(value any, ext AMFExternalizable) (Value, error) {
	name, ok := s.mapper.GetRemoteName(value)
	if !ok {
		return Value{}, fmt.Errorf("serialize %T: unregistered externalizable type: %w", value, ErrUnsupported)
	}
	w := NewWriter()
	defer w.Release()
	if err := ext.WriteExternal(w); err != nil {
		return Value{}, err
	}
	body := make([]byte, len(w.Bytes()))
	copy(body, w.Bytes())
	return ExternalizableObject(name, body), nil
}
