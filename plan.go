package quill

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zoobzio/sentinel"
)

// tagName is the struct tag read for field names and options.
const tagName = "quill"

func init() {
	sentinel.Tag(tagName)
}

// Tuple marks a struct whose fields encode positionally as a sequence.
// Embed it as the first field:
//
//	type Rgb struct {
//	    quill.Tuple
//	    R, G, B uint8
//	}
type Tuple struct{}

var tupleType = reflect.TypeFor[Tuple]()

// shape is the layout a struct type encodes to.
type shape uint8

const (
	shapeRecord  shape = iota // mapping over fields in declaration order
	shapeUnit                 // no fields, encodes as ~
	shapeNewtype              // one embedded untagged field, encodes as that field
	shapeTuple                // Tuple marker, encodes as a sequence
)

// fieldPlan describes how to reach and name one field.
type fieldPlan struct {
	name     string
	index    []int
	optional bool
	embedded bool
}

// structPlan is the immutable layout of a struct type.
type structPlan struct {
	typeName string
	shape    shape
	fields   []fieldPlan
	byName   map[string]int
}

// buildStructPlan creates the plan for struct type rt from its metadata.
//
// A struct with one embedded, untagged field is a newtype wrapper: the check
// is explicit so a wrapper never gets a key of its own.
func buildStructPlan(rt reflect.Type) (*structPlan, error) {
	spec := describe(rt)
	plan := &structPlan{typeName: spec.TypeName}
	tuple := false

	for _, field := range spec.Fields {
		if !isExportedName(field.Name) {
			continue
		}
		sf := rt.FieldByIndex(field.Index)
		if sf.Anonymous && sf.Type == tupleType {
			tuple = true
			continue
		}

		tag, hasTag := field.Tags[tagName]
		if !hasTag {
			tag, hasTag = sf.Tag.Lookup(tagName)
		}
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = strings.ToLower(sf.Name)
		}

		plan.fields = append(plan.fields, fieldPlan{
			name:     name,
			index:    field.Index,
			optional: opts == "optional" || sf.Type.Kind() == reflect.Pointer,
			embedded: sf.Anonymous && !hasTag,
		})
	}

	switch {
	case tuple:
		plan.shape = shapeTuple
	case len(plan.fields) == 0:
		plan.shape = shapeUnit
	case len(plan.fields) == 1 && plan.fields[0].embedded:
		plan.shape = shapeNewtype
	default:
		plan.shape = shapeRecord
		plan.byName = make(map[string]int, len(plan.fields))
		for i, f := range plan.fields {
			if _, dup := plan.byName[f.name]; dup {
				return nil, fmt.Errorf("quill: duplicate field name %q in %s: %w", f.name, rt, ErrUnsupportedType)
			}
			plan.byName[f.name] = i
		}
	}

	return plan, nil
}

// describe returns field metadata for rt, preferring what sentinel already
// holds when it matches the type's direct fields.
func describe(rt reflect.Type) sentinel.Metadata {
	if spec, ok := sentinel.Lookup(rt.String()); ok && sameLayout(spec, rt) {
		return spec
	}
	return scanStruct(rt)
}

// sameLayout guards against metadata registered for a different type with
// the same name, or metadata with promoted fields flattened in.
func sameLayout(spec sentinel.Metadata, rt reflect.Type) bool {
	if spec.TypeName != rt.Name() {
		return false
	}
	exported := 0
	for i := 0; i < rt.NumField(); i++ {
		if rt.Field(i).IsExported() {
			exported++
		}
	}
	if len(spec.Fields) != exported {
		return false
	}
	for _, f := range spec.Fields {
		if len(f.Index) != 1 || f.Index[0] >= rt.NumField() {
			return false
		}
		sf := rt.Field(f.Index[0])
		if sf.Name != f.Name || sf.Type != f.ReflectType {
			return false
		}
	}
	return true
}

// scanStruct builds metadata for rt's exported direct fields.
func scanStruct(rt reflect.Type) sentinel.Metadata {
	spec := sentinel.Metadata{
		TypeName:    rt.Name(),
		PackageName: rt.PkgPath(),
		Fields:      make([]sentinel.FieldMetadata, 0, rt.NumField()),
	}

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}

		fm := sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        make(map[string]string),
		}
		if val, ok := sf.Tag.Lookup(tagName); ok {
			fm.Tags[tagName] = val
		}

		switch sf.Type.Kind() {
		case reflect.Struct:
			fm.Kind = sentinel.KindStruct
		case reflect.Ptr:
			fm.Kind = sentinel.KindPointer
		case reflect.Slice, reflect.Array:
			fm.Kind = sentinel.KindSlice
		case reflect.Map:
			fm.Kind = sentinel.KindMap
		case reflect.Interface:
			fm.Kind = sentinel.KindInterface
		default:
			fm.Kind = sentinel.KindScalar
		}

		spec.Fields = append(spec.Fields, fm)
	}

	return spec
}

func isExportedName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
