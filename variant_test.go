package quill

import (
	"errors"
	"reflect"
	"testing"
)

type figure interface{ area() float64 }

type dot struct{}
type circle float64
type rect struct {
	W int `quill:"w"`
	H int `quill:"h"`
}
type line struct {
	Tuple
	From, To int
}
type named struct{ N int }

func (dot) area() float64      { return 0 }
func (c circle) area() float64 { return float64(c) }
func (r rect) area() float64   { return float64(r.W * r.H) }
func (line) area() float64     { return 0 }
func (*named) area() float64   { return 0 }
func (*named) QuillVariant() string {
	return "Labelled"
}

func init() {
	MustRegisterEnum[figure](dot{}, circle(0), rect{}, line{}, &named{})
}

func TestRegisterEnum_Kinds(t *testing.T) {
	enum, ok := LookupEnum(reflect.TypeFor[figure]())
	if !ok {
		t.Fatal("figure not registered")
	}

	want := []struct {
		name string
		kind VariantKind
	}{
		{"dot", VariantUnit},
		{"circle", VariantNewtype},
		{"rect", VariantStruct},
		{"line", VariantTuple},
		{"Labelled", VariantStruct},
	}
	if len(enum.Variants) != len(want) {
		t.Fatalf("len(Variants) = %d, want %d", len(enum.Variants), len(want))
	}
	for i, w := range want {
		v := enum.Variants[i]
		if v.Name != w.name || v.Kind != w.kind {
			t.Errorf("Variants[%d] = %s/%s, want %s/%s", i, v.Name, v.Kind, w.name, w.kind)
		}
	}
}

type badEnum interface{ bad() }
type badA struct{}
type badB struct{}

func (badA) bad() {}
func (badB) bad() {}

func TestRegisterEnum_Rejects(t *testing.T) {
	tests := []struct {
		name string
		reg  func() error
	}{
		{"not interface", func() error { return RegisterEnum[int](1) }},
		{"no variants", func() error { return RegisterEnum[badEnum]() }},
		{"nil variant", func() error { return RegisterEnum[badEnum](nil) }},
		{"duplicate", func() error { return RegisterEnum[badEnum](badA{}, badA{}) }},
		{"already registered", func() error { return RegisterEnum[figure](badShape{}) }},
		{"variant reused", func() error { return RegisterEnum[otherShape](dot{}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.reg(); !errors.Is(err, ErrInvalidEnum) {
				t.Errorf("RegisterEnum() error = %v, want ErrInvalidEnum", err)
			}
		})
	}
}

type badShape struct{}

func (badShape) area() float64 { return 0 }

type otherShape interface{ area() float64 }

func TestMustRegisterEnum_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustRegisterEnum() should panic")
		}
	}()
	MustRegisterEnum[int]()
}

func TestVariant_Encoding(t *testing.T) {
	tests := []struct {
		name  string
		thing figure
		want  string
	}{
		{"unit", dot{}, "---\ndot"},
		{"newtype", circle(1.5), "---\ncircle: 1.5"},
		{"struct", rect{W: 2, H: 3}, "---\nrect: \n  w: 2\n  h: 3"},
		{"tuple", line{From: 1, To: 4}, "---\nline: \n  - 1\n  - 4"},
		{"pointer struct", &named{N: 5}, "---\nLabelled: \n  n: 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Marshal(tt.thing)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %q, want %q", data, tt.want)
			}

			var back figure
			if err := Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			if !reflect.DeepEqual(back, tt.thing) {
				t.Errorf("Unmarshal() = %#v, want %#v", back, tt.thing)
			}
		})
	}
}

func TestVariant_InContainers(t *testing.T) {
	type drawing struct {
		Shapes []figure          `quill:"shapes"`
		ByName map[string]figure `quill:"by_name"`
		Spare  figure            `quill:"spare"`
	}
	thing := drawing{
		Shapes: []figure{dot{}, circle(2), rect{W: 1, H: 1}},
		ByName: map[string]figure{"l": line{From: 0, To: 1}},
	}
	want := "---\nshapes: \n  - dot\n  - \n    circle: 2.0\n  - \n    rect: \n      w: 1\n      h: 1\n" +
		"by_name: \n  l: \n    line: \n      - 0\n      - 1\nspare: ~"

	data, err := Marshal(thing)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != want {
		t.Fatalf("Marshal() =\n%s\nwant\n%s", data, want)
	}

	var back drawing
	if err := Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !reflect.DeepEqual(back, thing) {
		t.Errorf("Unmarshal() = %#v, want %#v", back, thing)
	}
}

func TestVariant_ConcreteTarget(t *testing.T) {
	var c circle
	if err := Unmarshal([]byte("---\ncircle: 4.0"), &c); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if c != 4 {
		t.Errorf("circle = %v, want 4", c)
	}

	err := Unmarshal([]byte("---\nrect: \n  w: 1\n  h: 1"), &c)
	if !errors.Is(err, ErrUnknownVariant) {
		t.Errorf("Unmarshal() error = %v, want ErrUnknownVariant", err)
	}
}

func TestVariant_UnitAcceptsNullPayload(t *testing.T) {
	var s figure
	if err := Unmarshal([]byte("---\ndot: ~"), &s); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if s != (dot{}) {
		t.Errorf("Unmarshal() = %#v, want dot{}", s)
	}
}
