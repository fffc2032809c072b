package classmap

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewMapper_SeedsFlexMessagingClasses(t *testing.T) {
	m := NewMapper()
	local := m.Materialize("flex.messaging.messages.RemotingMessage")
	if _, ok := local.(*RemotingMessage); !ok {
		t.Fatalf("Materialize returned %T, want *RemotingMessage", local)
	}
	name, ok := m.GetRemoteName(RemotingMessage{})
	if !ok || name != "flex.messaging.messages.RemotingMessage" {
		t.Fatalf("GetRemoteName = %q, %v", name, ok)
	}
}

func TestNewMapper_SeedMessagesDisabled(t *testing.T) {
	m := NewMapper(WithSeedMessages(false))
	local := m.Materialize("flex.messaging.messages.RemotingMessage")
	if _, ok := local.(*GenericObject); !ok {
		t.Fatalf("Materialize returned %T, want *GenericObject (no seed)", local)
	}
}

func TestMapper_WithUseArrayCollection(t *testing.T) {
	m := NewMapper(WithUseArrayCollection(true))
	if !m.UseArrayCollection() {
		t.Fatal("expected UseArrayCollection() true")
	}
	m2 := NewMapper()
	if m2.UseArrayCollection() {
		t.Fatal("expected UseArrayCollection() false by default")
	}
}

type point struct {
	X float64 `amf:"x"`
	Y float64 `amf:"y"`
}

func TestMapper_MapAndExtractInjectRoundTrip(t *testing.T) {
	m := NewMapper(WithSeedMessages(false))
	if err := m.Map("com.example.Point", point{}); err != nil {
		t.Fatal(err)
	}

	name, ok := m.GetRemoteName(point{X: 1, Y: 2})
	if !ok || name != "com.example.Point" {
		t.Fatalf("GetRemoteName = %q, %v", name, ok)
	}

	props, err := m.ExtractProps(point{X: 1, Y: 2})
	if err != nil {
		t.Fatal(err)
	}
	want := []Prop{{Name: "x", Value: 1.0}, {Name: "y", Value: 2.0}}
	if !reflect.DeepEqual(props, want) {
		t.Errorf("ExtractProps = %+v, want %+v", props, want)
	}

	local := m.Materialize("com.example.Point")
	p, ok := local.(*point)
	if !ok {
		t.Fatalf("Materialize returned %T, want *point", local)
	}
	if err := m.InjectProps(p, props, nil); err != nil {
		t.Fatal(err)
	}
	if p.X != 1 || p.Y != 2 {
		t.Errorf("got %+v", p)
	}
}

func TestMapper_RemapReplacesStaleReverseEntry(t *testing.T) {
	m := NewMapper(WithSeedMessages(false))
	if err := m.Map("com.example.Point", point{}); err != nil {
		t.Fatal(err)
	}
	if err := m.Map("com.example.Point2", point{}); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.GetRemoteName(point{}); !ok {
		t.Fatal("expected point to still resolve to a remote name")
	}
	name, _ := m.GetRemoteName(point{})
	if name != "com.example.Point2" {
		t.Errorf("got %q, want com.example.Point2", name)
	}
	if _, ok := m.Materialize("com.example.Point").(*GenericObject); !ok {
		t.Error("expected stale remote name to fall back to GenericObject")
	}
}

func TestMapper_GenericObjectFallbackForUnregisteredClass(t *testing.T) {
	m := NewMapper(WithSeedMessages(false))
	local := m.Materialize("com.example.Unknown")
	g, ok := local.(*GenericObject)
	if !ok {
		t.Fatalf("got %T, want *GenericObject", local)
	}
	if g.ClassName != "com.example.Unknown" {
		t.Errorf("ClassName = %q", g.ClassName)
	}
	if err := m.InjectProps(g, []Prop{{Name: "a", Value: 1}}, []Prop{{Name: "b", Value: 2}}); err != nil {
		t.Fatal(err)
	}
	if len(g.Sealed) != 1 || len(g.Dynamic) != 1 {
		t.Errorf("got sealed=%+v dynamic=%+v", g.Sealed, g.Dynamic)
	}
	name, ok := m.GetRemoteName(g)
	if !ok || name != "com.example.Unknown" {
		t.Fatalf("GetRemoteName(generic) = %q, %v", name, ok)
	}
}

type dynamicHolder struct {
	Known string         `amf:"known"`
	extra map[string]any `amf:"-"`
}

func (d *dynamicHolder) SetDynamicProperty(name string, value any) {
	if d.extra == nil {
		d.extra = map[string]any{}
	}
	d.extra[name] = value
}

func TestMapper_InjectProps_DynamicPropertyHolderFallback(t *testing.T) {
	m := NewMapper(WithSeedMessages(false))
	if err := m.Map("com.example.Dynamic", dynamicHolder{}); err != nil {
		t.Fatal(err)
	}
	d := &dynamicHolder{}
	err := m.InjectProps(d, []Prop{{Name: "known", Value: "k"}}, []Prop{{Name: "unknown", Value: "v"}})
	if err != nil {
		t.Fatal(err)
	}
	if d.Known != "k" {
		t.Errorf("Known = %q", d.Known)
	}
	if d.extra["unknown"] != "v" {
		t.Errorf("extra = %+v", d.extra)
	}
}

type noDynamic struct {
	Known string `amf:"known"`
}

func TestMapper_InjectProps_ErrNoSetter(t *testing.T) {
	m := NewMapper(WithSeedMessages(false))
	if err := m.Map("com.example.Strict", noDynamic{}); err != nil {
		t.Fatal(err)
	}
	n := &noDynamic{}
	err := m.InjectProps(n, []Prop{{Name: "unrecognized", Value: "v"}}, nil)
	if !errors.Is(err, ErrNoSetter) {
		t.Fatalf("got %v, want ErrNoSetter", err)
	}
}

func TestMapper_ExtractProps_NotObjectLike(t *testing.T) {
	m := NewMapper(WithSeedMessages(false))
	if _, err := m.ExtractProps(42); !errors.Is(err, ErrNotObjectLike) {
		t.Fatalf("got %v, want ErrNotObjectLike", err)
	}
}

func TestMapper_EmbeddedFieldPromotion(t *testing.T) {
	m := NewMapper() // seeds AsyncMessage etc.
	props, err := m.ExtractProps(CommandMessage{
		AsyncMessage: AsyncMessage{
			AbstractMessage: AbstractMessage{ClientID: "c1"},
			CorrelationID:   "corr",
		},
		Operation: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	byName := map[string]any{}
	for _, p := range props {
		byName[p.Name] = p.Value
	}
	if byName["clientId"] != "c1" || byName["correlationId"] != "corr" || byName["operation"] != 5.0 {
		t.Errorf("got %+v", byName)
	}
}
