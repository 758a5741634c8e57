// Package testing provides fixtures and assertions for code built on quill.
package testing

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/zoobzio/quill"
)

// User is a record fixture covering optional and untyped fields.
type User struct {
	ID    string      `quill:"id"`
	Name  string      `quill:"name"`
	Email *string     `quill:"email"`
	Tags  []string    `quill:"tags,optional"`
	Extra quill.Value `quill:"extra,optional"`
}

// Shape is an enum fixture with one variant of each kind.
type Shape interface {
	isShape()
}

// Point is the unit variant of Shape.
type Point struct{}

// Radius is the payload of Circle.
type Radius float64

// Circle is the newtype variant of Shape.
type Circle struct {
	Radius
}

// Segment is the tuple variant of Shape.
type Segment struct {
	quill.Tuple
	From int
	To   int
}

// Rect is the struct variant of Shape.
type Rect struct {
	W int `quill:"w"`
	H int `quill:"h"`
}

func (Point) isShape()   {}
func (Circle) isShape()  {}
func (Segment) isShape() {}
func (Rect) isShape()    {}

func init() {
	quill.MustRegisterEnum[Shape](Point{}, Circle{}, Segment{}, Rect{})
}

// Drawing nests every fixture kind.
type Drawing struct {
	Title  string         `quill:"title"`
	Owner  *User          `quill:"owner"`
	Shapes []Shape        `quill:"shapes"`
	Layers map[string]int `quill:"layers"`
}

// SampleDrawing returns a populated Drawing.
func SampleDrawing() Drawing {
	email := "alice@example.com"
	return Drawing{
		Title: "plan: ground floor",
		Owner: &User{
			ID:    "u-1",
			Name:  "Alice",
			Email: &email,
			Tags:  []string{"admin", "true"},
			Extra: quill.MapOf(quill.Pair("level", quill.Int(3))),
		},
		Shapes: []Shape{
			Point{},
			Circle{Radius: 2},
			Segment{From: 1, To: 5},
			Rect{W: 3, H: 4},
		},
		Layers: map[string]int{"walls": 1, "doors": 2},
	}
}

// AssertRoundTrip encodes v, compares the document with want when want is
// non-empty, decodes it into a fresh T and requires the result to equal v.
// The decoded value must also re-encode to the same document.
func AssertRoundTrip[T any](tb testing.TB, v T, want string) {
	tb.Helper()

	data, err := quill.Marshal(v)
	if err != nil {
		tb.Fatalf("Marshal(%#v) error: %v", v, err)
	}
	if want != "" && string(data) != want {
		tb.Fatalf("Marshal(%#v) =\n%s\nwant\n%s", v, data, want)
	}

	var got T
	if err := quill.Unmarshal(data, &got); err != nil {
		tb.Fatalf("Unmarshal(%q) error: %v", data, err)
	}
	if !reflect.DeepEqual(got, v) {
		tb.Fatalf("Unmarshal(%q) = %#v, want %#v", data, got, v)
	}

	again, err := quill.Marshal(got)
	if err != nil {
		tb.Fatalf("Marshal(decoded) error: %v", err)
	}
	if !bytes.Equal(again, data) {
		tb.Fatalf("re-encoded document differs:\n%s\nwant\n%s", again, data)
	}
}

// AssertCodecRoundTrip passes v through c and requires the decoded value to equal v.
func AssertCodecRoundTrip[T any](tb testing.TB, c quill.Codec, v T) {
	tb.Helper()

	data, err := c.Marshal(v)
	if err != nil {
		tb.Fatalf("%s Marshal error: %v", c.ContentType(), err)
	}
	var got T
	if err := c.Unmarshal(data, &got); err != nil {
		tb.Fatalf("%s Unmarshal error: %v", c.ContentType(), err)
	}
	if !reflect.DeepEqual(got, v) {
		tb.Fatalf("%s round-trip = %#v, want %#v", c.ContentType(), got, v)
	}
}

// MustValue converts v to a Value or fails the test.
func MustValue(tb testing.TB, v any) quill.Value {
	tb.Helper()

	val, err := quill.ToValue(v)
	if err != nil {
		tb.Fatalf("ToValue(%#v) error: %v", v, err)
	}
	return val
}
