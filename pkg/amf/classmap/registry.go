package classmap

import (
	"reflect"
	"strings"
	"sync"
)

// fieldSpec is one exported, taggable struct field of a registered local
// type, in declaration order (spec §4.4: "The property name list is cached
// per local type on first use").
type fieldSpec struct {
	name  string
	index []int // reflect.Value.FieldByIndex path, to reach promoted embedded fields
}

// typeFields walks t's exported fields, including fields promoted through
// embedded structs at any depth (the AbstractMessage/AsyncMessage chain in
// messages.go), honoring the `amf:"name"` tag and `amf:"-"` to skip a field.
func typeFields(t reflect.Type) []fieldSpec {
	var out []fieldSpec
	walkFields(t, nil, &out)
	return out
}

func walkFields(t reflect.Type, prefix []int, out *[]fieldSpec) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		idx := append(append([]int(nil), prefix...), i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			walkFields(f.Type, idx, out)
			continue
		}
		tag := f.Tag.Get("amf")
		if tag == "-" {
			continue
		}
		name := f.Name
		if tag != "" {
			name = strings.SplitN(tag, ",", 2)[0]
		}
		*out = append(*out, fieldSpec{name: name, index: idx})
	}
}

// propertyCache memoizes typeFields per reflect.Type, the fast path spec
// §4.4 calls for ("cached per local type on first use"); a sync.Map gives
// lock-free reads once a type has been observed once.
type propertyCache struct {
	m sync.Map // reflect.Type -> []fieldSpec
}

func (c *propertyCache) fieldsFor(t reflect.Type) []fieldSpec {
	if v, ok := c.m.Load(t); ok {
		return v.([]fieldSpec)
	}
	fields := typeFields(t)
	actual, _ := c.m.LoadOrStore(t, fields)
	return actual.([]fieldSpec)
}
