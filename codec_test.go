package quill_test

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/zoobzio/quill"
)

type Basic struct {
	X int
	Y string
	Z bool
}

type Inner struct {
	V uint16
}

type Outer struct {
	Inner Inner
}

type OriginalType struct {
	V uint16
}

type NewType struct {
	OriginalType
}

type GenericInstructions struct {
	Typ    string      `quill:"type"`
	Config quill.Value `quill:"config"`
}

// Sequence holds one registered variant of each kind.
type Sequence interface{ isSequence() }

type First struct{}
type Second struct{}
type Size uint
type Rgb struct {
	quill.Tuple
	R, G, B uint8
}
type Color struct {
	R uint8 `quill:"r"`
	G uint8 `quill:"g"`
	B uint8 `quill:"b"`
}

func (First) isSequence()  {}
func (Second) isSequence() {}
func (Size) isSequence()   {}
func (Rgb) isSequence()    {}
func (Color) isSequence()  {}

func init() {
	quill.MustRegisterEnum[Sequence](First{}, Second{}, Size(0), Rgb{}, Color{})
}

func ptr[T any](v T) *T { return &v }

// roundTrip checks both directions against a pinned document.
func roundTrip[T any](t *testing.T, thing T, want string) {
	t.Helper()

	got, err := quill.Marshal(thing)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(got) != want {
		t.Fatalf("Marshal() =\n%s\nwant\n%s", got, want)
	}

	var back T
	if err := quill.Unmarshal([]byte(want), &back); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !reflect.DeepEqual(back, thing) {
		t.Errorf("Unmarshal() = %#v, want %#v", back, thing)
	}
}

func TestInt(t *testing.T) {
	roundTrip(t, 256, "---\n256")
}

func TestFloat(t *testing.T) {
	roundTrip(t, 25.6, "---\n25.6")
}

func TestVec(t *testing.T) {
	roundTrip(t, []int{1, 2, 3}, "---\n- 1\n- 2\n- 3")
}

func TestMap(t *testing.T) {
	roundTrip(t, map[string]int{"y": 2, "x": 1}, "---\nx: 1\ny: 2")
}

func TestBasicStruct(t *testing.T) {
	thing := Basic{X: -4, Y: "hi\tquoted", Z: true}
	roundTrip(t, thing, "---\nx: -4\ny: \"hi\\tquoted\"\nz: true")
}

func TestNestedVec(t *testing.T) {
	thing := [][]int{{1, 2, 3}, {4, 5, 6}}
	roundTrip(t, thing, "---\n- \n  - 1\n  - 2\n  - 3\n- \n  - 4\n  - 5\n  - 6")
}

func TestNestedStruct(t *testing.T) {
	roundTrip(t, Outer{Inner: Inner{V: 512}}, "---\ninner: \n  v: 512")
}

func TestOption(t *testing.T) {
	roundTrip(t, []*int{ptr(1), nil, ptr(3)}, "---\n- 1\n- ~\n- 3")
}

func TestUnit(t *testing.T) {
	roundTrip(t, []struct{}{{}, {}}, "---\n- ~\n- ~")
}

func TestUnitVariant(t *testing.T) {
	roundTrip[Sequence](t, First{}, "---\nFirst")
}

func TestNewtypeStruct(t *testing.T) {
	roundTrip(t, NewType{OriginalType{V: 1}}, "---\nv: 1")
}

func TestNewtypeVariant(t *testing.T) {
	roundTrip[Sequence](t, Size(127), "---\nSize: 127")
}

func TestTupleVariant(t *testing.T) {
	roundTrip[Sequence](t, Rgb{R: 32, G: 64, B: 96}, "---\nRgb: \n  - 32\n  - 64\n  - 96")
}

func TestStructVariant(t *testing.T) {
	roundTrip[Sequence](t, Color{R: 32, G: 64, B: 96}, "---\nColor: \n  r: 32\n  g: 64\n  b: 96")
}

func TestValueField(t *testing.T) {
	thing := GenericInstructions{
		Typ: "primary",
		Config: quill.Seq(
			quill.Null(),
			quill.Bool(true),
			quill.Int(65535),
			quill.Float(0.54321),
			quill.Str("s"),
			quill.MapOf(),
		),
	}
	want := "---\ntype: primary\nconfig: \n  - ~\n  - true\n  - 65535\n  - 0.54321\n  - s\n  - {}"

	got, err := quill.Marshal(thing)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(got) != want {
		t.Fatalf("Marshal() =\n%s\nwant\n%s", got, want)
	}

	var back GenericInstructions
	if err := quill.Unmarshal(got, &back); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if back.Typ != thing.Typ || !quill.Equal(back.Config, thing.Config) {
		t.Errorf("Unmarshal() = %v, want %v", back, thing)
	}
}

func TestMarshal_Layout(t *testing.T) {
	tests := []struct {
		name  string
		thing any
		want  string
	}{
		{"nil", nil, "---\n~"},
		{"empty slice", []int{}, "---\n[]"},
		{"nil slice", []int(nil), "---\n[]"},
		{"empty map", map[string]int{}, "---\n{}"},
		{"empty string", "", "---\n\"\""},
		{"string true", "true", "---\n\"true\""},
		{"string number", "12", "---\n\"12\""},
		{"integral float", 3.0, "---\n3.0"},
		{"negative zero", math.Copysign(0, -1), "---\n-0.0"},
		{"large float", 1e21, "---\n1e+21"},
		{"small float", 1e-5, "---\n1e-05"},
		{"infinity", math.Inf(1), "---\n.inf"},
		{"float32", float32(0.1), "---\n0.1"},
		{"max uint64", uint64(math.MaxUint64), "---\n18446744073709551615"},
		{"int keys", map[int]string{10: "b", 2: "a"}, "---\n2: a\n10: b"},
		{"bool keys", map[bool]int{true: 1, false: 0}, "---\nfalse: 0\ntrue: 1"},
		{"empty nested", map[string][]int{"a": {}, "b": nil}, "---\na: []\nb: []"},
		{"map in seq", []map[string]int{{"a": 1}}, "---\n- \n  a: 1"},
		{"array", [2]string{"a", "b c"}, "---\n- a\n- b c"},
		{"quoted key", map[string]int{"a: b": 1}, "---\n\"a: b\": 1"},
		{"pointer to struct", &Inner{V: 7}, "---\nv: 7"},
		{"nil pointer", (*Inner)(nil), "---\n~"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := quill.Marshal(tt.thing)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarshal_Unsupported(t *testing.T) {
	tests := []struct {
		name  string
		thing any
	}{
		{"channel", make(chan int)},
		{"func", func() {}},
		{"complex", complex(1, 2)},
		{"struct key", map[Inner]int{{V: 1}: 1}},
		{"nested channel", map[string]any{"c": make(chan int)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quill.Marshal(tt.thing)
			if !errors.Is(err, quill.ErrUnsupportedType) {
				t.Errorf("Marshal() error = %v, want ErrUnsupportedType", err)
			}
		})
	}
}

func TestMarshal_ErrorPath(t *testing.T) {
	thing := map[string][]any{"list": {1, make(chan int)}}
	_, err := quill.Marshal(thing)

	var encErr *quill.EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("Marshal() error = %v, want *EncodeError", err)
	}
	if encErr.Path != "list[1]" {
		t.Errorf("Path = %q, want %q", encErr.Path, "list[1]")
	}
}

func TestMarshal_ValueScalarKeys(t *testing.T) {
	m := quill.NewMapping(
		quill.Entry{Key: quill.Int(2), Value: quill.Str("two")},
		quill.Entry{Key: quill.Bool(true), Value: quill.Null()},
	)

	got, err := quill.Marshal(quill.FromMapping(m))
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var back quill.Value
	if err := quill.Unmarshal(got, &back); err != nil {
		t.Fatalf("Unmarshal(%q) error: %v", got, err)
	}
	if !quill.Equal(back, quill.FromMapping(m)) {
		t.Errorf("round trip = %v, want %v", back, quill.FromMapping(m))
	}
}

func TestMarshal_MaxDepth(t *testing.T) {
	v := quill.Int(1)
	for i := 0; i < 10; i++ {
		v = quill.Seq(v)
	}

	var buf writerFunc = func(p []byte) (int, error) { return len(p), nil }
	err := quill.NewEncoder(buf, quill.WithMaxDepth(5)).Encode(v)
	if !errors.Is(err, quill.ErrMaxDepth) {
		t.Errorf("Encode() error = %v, want ErrMaxDepth", err)
	}
}

type selfRef struct {
	Next *selfRef
}

func TestMarshal_Cycle(t *testing.T) {
	n := &selfRef{}
	n.Next = n

	_, err := quill.Marshal(n)
	if !errors.Is(err, quill.ErrMaxDepth) {
		t.Errorf("Marshal() error = %v, want ErrMaxDepth", err)
	}
}

// Loop is a newtype wrapper around itself.
type Loop struct {
	*Loop
}

func TestMarshal_NewtypeCycle(t *testing.T) {
	l := &Loop{}
	l.Loop = l

	_, err := quill.Marshal(l)
	if !errors.Is(err, quill.ErrMaxDepth) {
		t.Errorf("Marshal() error = %v, want ErrMaxDepth", err)
	}
}

func TestUnmarshal_NewtypeCycle(t *testing.T) {
	err := quill.Unmarshal([]byte("---\n1"), &Loop{})
	if !errors.Is(err, quill.ErrMaxDepth) {
		t.Errorf("Unmarshal() error = %v, want ErrMaxDepth", err)
	}
}

func TestIdempotentFormatting(t *testing.T) {
	things := []any{
		map[string]any{"b": []any{1, "two", 3.5, nil}, "a": map[string]any{}},
		[]string{"", " lead", "trail ", "- dash", "#hash", "a: b", "x #y", "\u00e9", "\x7f", " "},
		Basic{X: 1, Y: "line\nbreak", Z: false},
		[]Sequence{First{}, Size(3), Rgb{R: 1}, Color{B: 2}},
		[][]map[string][]int{{{"k": {1}}}, {}},
	}

	for _, thing := range things {
		first, err := quill.Marshal(thing)
		if err != nil {
			t.Fatalf("Marshal(%v) error: %v", thing, err)
		}
		back := reflect.New(reflect.TypeOf(thing))
		if err := quill.Unmarshal(first, back.Interface()); err != nil {
			t.Fatalf("Unmarshal(%q) error: %v", first, err)
		}
		second, err := quill.Marshal(back.Elem().Interface())
		if err != nil {
			t.Fatalf("Marshal(decoded) error: %v", err)
		}
		if string(first) != string(second) {
			t.Errorf("not a fixed point:\n%q\n%q", first, second)
		}
	}
}

func TestValueRoundTrip(t *testing.T) {
	values := []quill.Value{
		quill.Null(),
		quill.Bool(false),
		quill.Int(math.MinInt64),
		quill.Int(math.MaxInt64),
		quill.Float(-2.5),
		quill.Float(1e300),
		quill.Float(math.Inf(-1)),
		quill.Str("~"),
		quill.Str("multi\nline\ttext \"quoted\" \\"),
		quill.Str("\x00\x1b\u0085\ufeff\u2028"),
		quill.Seq(),
		quill.Seq(quill.Seq(), quill.MapOf(), quill.Seq(quill.Null())),
		quill.MapOf(
			quill.Pair("z", quill.Int(1)),
			quill.Pair("a", quill.MapOf(quill.Pair("k", quill.Seq(quill.Str("v"))))),
			quill.Entry{Key: quill.Int(3), Value: quill.Bool(true)},
			quill.Entry{Key: quill.Null(), Value: quill.Float(0.5)},
		),
	}

	for _, want := range values {
		data, err := quill.Marshal(want)
		if err != nil {
			t.Fatalf("Marshal(%v) error: %v", want, err)
		}
		var got quill.Value
		if err := quill.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal(%q) error: %v", data, err)
		}
		if !quill.Equal(got, want) {
			t.Errorf("round trip of %v gave %v (text %q)", want, got, data)
		}
	}
}

func TestToValueFromValue(t *testing.T) {
	thing := Basic{X: 9, Y: "y", Z: true}

	v, err := quill.ToValue(thing)
	if err != nil {
		t.Fatalf("ToValue() error: %v", err)
	}
	if got, _ := v.Get(quill.Str("x")); !quill.Equal(got, quill.Int(9)) {
		t.Errorf("x = %v, want 9", got)
	}

	var back Basic
	if err := quill.FromValue(v, &back); err != nil {
		t.Fatalf("FromValue() error: %v", err)
	}
	if back != thing {
		t.Errorf("FromValue() = %+v, want %+v", back, thing)
	}
}

func TestCodec(t *testing.T) {
	c := quill.New(quill.WithStrictFields())
	if c.ContentType() != "application/yaml" {
		t.Errorf("ContentType() = %q", c.ContentType())
	}

	data, err := c.Marshal(Inner{V: 3})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var in Inner
	if err := c.Unmarshal(data, &in); err != nil || in.V != 3 {
		t.Fatalf("Unmarshal() = %+v, %v", in, err)
	}

	err = c.Unmarshal([]byte("---\nv: 1\nw: 2"), &in)
	if !errors.Is(err, quill.ErrStructureMismatch) {
		t.Errorf("strict Unmarshal() error = %v, want ErrStructureMismatch", err)
	}
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
