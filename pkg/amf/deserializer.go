package amf

import (
	"errors"
	"fmt"

	"github.com/flexamf/amf/pkg/amf/classmap"
)

// Deserializer turns AMF bytes into Value trees and, on request, native Go
// instances via its Mapper (spec §4.8). Like Serializer it holds no
// reference-table state of its own.
type Deserializer struct {
	mapper *classmap.Mapper
}

// NewDeserializer returns a Deserializer using mapper for Materialize
// lookups made through MaterializeObject. A nil mapper is replaced with
// classmap.NewMapper().
func NewDeserializer(mapper *classmap.Mapper) *Deserializer {
	if mapper == nil {
		mapper = classmap.NewMapper()
	}
	return &Deserializer{mapper: mapper}
}

// Mapper returns the Deserializer's class mapper.
func (d *Deserializer) Mapper() *classmap.Mapper { return d.mapper }

// Deserialize decodes a single top-level value from source as AMF0
// (version 0) or AMF3 (version 3), advancing source's position past it.
func (d *Deserializer) Deserialize(version int, source Source) (Value, error) {
	r := asReader(source)
	var v Value
	var err error
	switch version {
	case 0:
		v, err = newAMF0Context().decodeValue(r)
	case 3:
		v, err = DecodeAMF3(r)
	default:
		return Value{}, fmt.Errorf("amf version %d: %w", version, ErrArgError)
	}
	if err != nil {
		return Value{}, err
	}
	if source != r {
		source.SetPos(r.Pos())
	}
	return v, nil
}

// ReadObject decodes a single AMF3 object value from r — the entry point a
// custom decoder uses when it already knows the next marker is an object
// (spec §4.8: "read_object() -> Value" for custom decoders).
func (d *Deserializer) ReadObject(r *Reader) (Value, error) {
	return newAMF3Context().decodeObject(r)
}

// MaterializeObject converts a decoded Object Value into a native Go
// instance via the Mapper: a pointer to the registered struct for
// v.Obj.ClassName, populated through InjectProps, or a *classmap.GenericObject
// carrying the raw properties when no local type is registered.
//
// Externalizable objects are handed to the materialized instance's
// ReadExternal if it implements AMFExternalizable; otherwise
// ErrUnsupported, matching spec §4.6's "if the type has none, raise
// Unsupported".
func (d *Deserializer) MaterializeObject(v Value) (any, error) {
	if v.Kind != KindObject {
		return nil, fmt.Errorf("materialize: value kind %s is not Object: %w", v.Kind, ErrTypeError)
	}
	obj := v.Obj
	native := d.mapper.Materialize(obj.ClassName)

	if obj.Externalizable {
		ext, ok := native.(AMFExternalizable)
		if !ok {
			return nil, fmt.Errorf("materialize %q: %w", obj.ClassName, ErrUnsupported)
		}
		r := NewReader(obj.ExternalBody)
		if err := ext.ReadExternal(r); err != nil {
			return nil, err
		}
		return native, nil
	}

	sealed, err := toProps(obj.Sealed)
	if err != nil {
		return nil, err
	}
	dynamic, err := toProps(obj.Dynamic)
	if err != nil {
		return nil, err
	}
	if err := d.mapper.InjectProps(native, sealed, dynamic); err != nil {
		if errors.Is(err, classmap.ErrNoSetter) {
			return nil, fmt.Errorf("materialize %q: %w: %w", obj.ClassName, ErrTypeError, err)
		}
		return nil, err
	}
	return native, nil
}

// toProps converts the decoded AMF Property list's Values into native Go
// values (the inverse of Serializer.ToValue for the scalar/container
// cases), since classmap.Prop is deliberately independent of amf.Value.
func toProps(props []Property) ([]classmap.Prop, error) {
	if len(props) == 0 {
		return nil, nil
	}
	out := make([]classmap.Prop, len(props))
	for i, p := range props {
		native, err := FromValue(p.Value)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", p.Name, err)
		}
		out[i] = classmap.Prop{Name: p.Name, Value: native}
	}
	return out, nil
}

// FromValue converts a decoded Value into the closest native Go
// representation: scalars to their Go type, Array to []any, Object to a
// map[string]any (dynamic+sealed merged) or, recursively, []any when it
// decoded from an ArrayCollection-unwrapped array already (Kind Array).
// Use Deserializer.MaterializeObject instead when a typed Object should
// become a registered struct rather than a generic map.
func FromValue(v Value) (any, error) {
	switch v.Kind {
	case KindNull, KindUndefined:
		return nil, nil
	case KindBool:
		return v.Bool, nil
	case KindInteger:
		return v.Integer, nil
	case KindDouble:
		return v.Double, nil
	case KindString, KindXML, KindXMLDocument:
		return v.Str, nil
	case KindByteArray:
		return v.Bytes, nil
	case KindDate:
		return v.DateMillis, nil
	case KindArray:
		out := make([]any, len(v.Array))
		for i, e := range v.Array {
			n, err := FromValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case KindDict:
		out := make(map[any]any, len(v.Dict))
		for _, e := range v.Dict {
			k, err := FromValue(e.Key)
			if err != nil {
				return nil, err
			}
			val, err := FromValue(e.Value)
			if err != nil {
				return nil, err
			}
			out[k] = val
		}
		return out, nil
	case KindObject:
		out := make(map[string]any, len(v.Obj.Sealed)+len(v.Obj.Dynamic))
		for _, props := range [][]Property{v.Obj.Sealed, v.Obj.Dynamic} {
			for _, p := range props {
				n, err := FromValue(p.Value)
				if err != nil {
					return nil, err
				}
				out[p.Name] = n
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value kind %s: %w", v.Kind, ErrUnsupported)
	}
}

// asReader returns source as a *Reader, wrapping a foreign Source
// implementation without mutating it mid-decode (Deserialize copies the
// final position back via source.SetPos once decoding succeeds).
func asReader(source Source) *Reader {
	if r, ok := source.(*Reader); ok {
		return r
	}
	r := NewReader(source.Bytes())
	r.SetPos(source.Pos())
	return r
}
