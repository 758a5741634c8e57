// Package quill provides a canonical, YAML-compatible text codec for Go
// values.
//
// Every value has exactly one textual form. Encoding the same value twice
// yields identical bytes, and decoding then re-encoding a canonical document
// reproduces it exactly.
//
// # Format
//
// A document starts with a "---" marker line, indents by two spaces, and
// has no trailing newline:
//
//	---
//	name: quill
//	tags:
//	  - a
//	  - b
//	empty: {}
//	note: "tab\there"
//
// Mapping keys are sorted by the total order over values (see Compare);
// record fields keep their declaration order. Strings are written bare when
// that reads back as the same string and double-quoted otherwise. Null is
// "~", booleans are "true"/"false", and floats always carry a fraction or
// exponent so they never read back as integers.
//
// # Basic Usage
//
//	type Point struct {
//	    X int `quill:"x"`
//	    Y int `quill:"y"`
//	}
//
//	data, _ := quill.Marshal(Point{X: 1, Y: 2})
//	// ---
//	// x: 1
//	// y: 2
//
//	var p Point
//	err := quill.Unmarshal(data, &p)
//
// # Type Mapping
//
//   - bool, integers, floats, string: scalars
//   - pointers: optional values, nil is "~"
//   - slices and arrays: sequences, nil or empty is "[]"
//   - maps with scalar keys: mappings in key order
//   - structs: records, in field order
//   - struct{}: unit, "~"
//   - a struct with one embedded untagged field: transparent newtype
//   - a struct embedding Tuple: sequence of its fields
//   - Value and any: the dynamic value tree
//
// # Variants
//
// Sum types are interfaces registered with RegisterEnum:
//
//	type Shape interface{ isShape() }
//
//	type Empty struct{}
//	type Radius float64
//	type Rgb struct {
//	    quill.Tuple
//	    R, G, B uint8
//	}
//	type Rect struct{ W, H int }
//
//	quill.MustRegisterEnum[Shape](Empty{}, Radius(0), Rgb{}, Rect{})
//
// Unit variants encode as their name ("Empty"), newtype variants as
// "Radius: 1.5", and tuple and struct variants as a single-entry mapping
// from name to a sequence or mapping block.
//
// # Other Formats
//
// The yaml, json and msgpack subpackages convert between Value and general
// YAML, JSON and MessagePack, and each offers a Codec with the same type
// mapping as this package.
//
// # Observability
//
// Processor emits capitan signals around each encode and decode.
package quill
