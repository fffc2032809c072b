// Package classmap implements the class-mapping layer: a bidirectional
// registry between AMF "remote" class names and local Go types, ordered
// property extraction/injection over a registered type's exported fields,
// and a generic fallback representation for remote classes with no local
// type. Property access is driven entirely by reflection and the `amf`
// struct tag, the same convention encoding/json uses for this problem.
package classmap

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrNoSetter is returned by InjectProps when a property has no matching
// field and the target has no dynamic-property bag to fall back to (spec
// §4.4: "otherwise raise TypeError").
var ErrNoSetter = errors.New("classmap: no field or dynamic bag for property")

// ErrNotObjectLike is returned by ExtractProps when value is not a struct,
// a pointer to one, or a *GenericObject.
var ErrNotObjectLike = errors.New("classmap: value is not object-like")

// Prop is a single named property value, the classmap-level equivalent of
// an amf.Property, deliberately independent of pkg/amf's Value type so
// this package stays a leaf with no codec dependency.
type Prop struct {
	Name  string
	Value any
}

// GenericObject is the materialized form of a remote class with no
// registered local type: a "typed key-value mapping" tagged with the
// remote class name (spec §4.4), round-tripping its properties verbatim.
type GenericObject struct {
	ClassName string
	Sealed    []Prop
	Dynamic   []Prop
}

// Mapper is the long-lived, bidirectional class-name registry (spec §5:
// "intended to be long-lived and may be shared across codec instances").
// The registry write path (Map) is guarded by mu; the property cache uses
// sync.Map so reads proceed lock-free once a type has been observed.
type Mapper struct {
	mu                 sync.RWMutex
	remoteToLocal      map[string]reflect.Type
	localToRemote      map[reflect.Type]string
	cache              propertyCache
	useArrayCollection bool
}

// Option configures a Mapper at construction.
type Option func(*mapperConfig)

type mapperConfig struct {
	seedMessages       bool
	useArrayCollection bool
}

// WithSeedMessages controls whether the six default Flex messaging class
// pairs (ext/class_mapping.c's ruby_classes/as_classes) are registered.
// Defaults to true.
func WithSeedMessages(enabled bool) Option {
	return func(c *mapperConfig) { c.seedMessages = enabled }
}

// WithUseArrayCollection sets the encoder's default for whether a plain Go
// slice is wrapped as a flex.messaging.io.ArrayCollection object
// (ext/serializer.c's use_array_collection toggle). Defaults to false; see
// DESIGN.md for why.
func WithUseArrayCollection(enabled bool) Option {
	return func(c *mapperConfig) { c.useArrayCollection = enabled }
}

// NewMapper returns a Mapper seeded with the six default Flex messaging
// class pairs unless WithSeedMessages(false) is passed.
func NewMapper(opts ...Option) *Mapper {
	cfg := mapperConfig{seedMessages: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	m := &Mapper{
		remoteToLocal:      make(map[string]reflect.Type),
		localToRemote:      make(map[reflect.Type]string),
		useArrayCollection: cfg.useArrayCollection,
	}
	if cfg.seedMessages {
		for _, p := range seedPairs() {
			_ = m.Map(p.remote, p.local)
		}
	}
	return m
}

// UseArrayCollection reports the encoder's default for wrapping plain
// arrays as ArrayCollection objects.
func (m *Mapper) UseArrayCollection() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.useArrayCollection
}

// Map registers a bidirectional association between remoteName and the Go
// type of local (a zero value or pointer to one). Re-registering either
// side under a new partner replaces the stale reverse entry, keeping both
// directions consistent (spec §4.4).
func (m *Mapper) Map(remoteName string, local any) error {
	t := reflect.TypeOf(local)
	if t == nil {
		return fmt.Errorf("classmap: Map(%q): nil local value", remoteName)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("classmap: Map(%q): local type %s is not a struct", remoteName, t)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if oldType, ok := m.remoteToLocal[remoteName]; ok {
		delete(m.localToRemote, oldType)
	}
	if oldName, ok := m.localToRemote[t]; ok {
		delete(m.remoteToLocal, oldName)
	}
	m.remoteToLocal[remoteName] = t
	m.localToRemote[t] = remoteName
	return nil
}

// GetRemoteName looks up the remote class name for an object-like value: a
// registered struct (or pointer to one), or a *GenericObject carrying its
// own tag. A plain key-value mapping value (map[string]any, or any other
// non-struct) returns ("", false) per spec §4.4.
func (m *Mapper) GetRemoteName(value any) (string, bool) {
	if g, ok := value.(*GenericObject); ok {
		return g.ClassName, g.ClassName != ""
	}
	t := reflect.TypeOf(value)
	if t == nil {
		return "", false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return "", false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.localToRemote[t]
	return name, ok
}

// Materialize constructs a new local instance for remoteName: a pointer to
// a zero value of the registered type, or a *GenericObject tagged with
// remoteName when no local type is registered (spec §4.4).
func (m *Mapper) Materialize(remoteName string) any {
	m.mu.RLock()
	t, ok := m.remoteToLocal[remoteName]
	m.mu.RUnlock()
	if !ok {
		return &GenericObject{ClassName: remoteName}
	}
	return reflect.New(t).Interface()
}

// ExtractProps reads the ordered (name, value) pairs of value: for a
// registered struct (or pointer to one), its exported fields in
// declaration order, cached per type on first use (spec §4.4); for a
// *GenericObject, its stored Sealed properties verbatim.
func (m *Mapper) ExtractProps(value any) ([]Prop, error) {
	if g, ok := value.(*GenericObject); ok {
		return g.Sealed, nil
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("classmap: ExtractProps: nil pointer: %w", ErrNotObjectLike)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("classmap: ExtractProps: %T: %w", value, ErrNotObjectLike)
	}
	fields := m.cache.fieldsFor(rv.Type())
	props := make([]Prop, 0, len(fields))
	for _, f := range fields {
		props = append(props, Prop{Name: f.name, Value: rv.FieldByIndex(f.index).Interface()})
	}
	return props, nil
}

// InjectProps sets props on obj, one field per matching name, then the
// same for dynamicProps. A *GenericObject simply stores both lists back
// (it has no fields to set). For a registered struct, a property with no
// matching field is passed to SetDynamicProperty if obj satisfies
// DynamicPropertyHolder, else InjectProps fails with ErrNoSetter (spec §4.4:
// "otherwise raise TypeError").
func (m *Mapper) InjectProps(obj any, props, dynamicProps []Prop) error {
	if g, ok := obj.(*GenericObject); ok {
		g.Sealed = props
		g.Dynamic = dynamicProps
		return nil
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("classmap: InjectProps: %T: %w", obj, ErrNotObjectLike)
	}
	elem := rv.Elem()
	fields := m.cache.fieldsFor(elem.Type())
	byName := make(map[string]fieldSpec, len(fields))
	for _, f := range fields {
		byName[f.name] = f
	}

	holder, isDynamicHolder := obj.(DynamicPropertyHolder)

	setAll := func(list []Prop) error {
		for _, p := range list {
			f, ok := byName[p.Name]
			if !ok {
				if isDynamicHolder {
					holder.SetDynamicProperty(p.Name, p.Value)
					continue
				}
				return fmt.Errorf("classmap: property %q on %T: %w", p.Name, obj, ErrNoSetter)
			}
			if err := setField(elem.FieldByIndex(f.index), p.Value); err != nil {
				return fmt.Errorf("classmap: property %q on %T: %w", p.Name, obj, err)
			}
		}
		return nil
	}
	if err := setAll(props); err != nil {
		return err
	}
	return setAll(dynamicProps)
}

// DynamicPropertyHolder lets a registered struct accept properties with no
// matching field instead of InjectProps failing with ErrNoSetter — the Go
// equivalent of RocketAMF's "fall back to a generic index-assignment
// operation" (spec §4.4).
type DynamicPropertyHolder interface {
	SetDynamicProperty(name string, value any)
}

// setField assigns value into field, converting between AMF's native Go
// representations (float64, string, bool, []any, map[string]any, []byte)
// and the field's declared type where the conversion is unambiguous.
func setField(field reflect.Value, value any) error {
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return nil
	}
	if rv.Type().ConvertibleTo(field.Type()) {
		switch field.Kind() {
		case reflect.String, reflect.Bool,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			field.Set(rv.Convert(field.Type()))
			return nil
		}
	}
	return fmt.Errorf("cannot assign %T into field of type %s", value, field.Type())
}
