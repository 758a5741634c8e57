package quill

import (
	"fmt"
	"reflect"
	"sync"
)

// VariantKind classifies a sum-type variant by its payload shape.
type VariantKind uint8

const (
	// VariantUnit has no payload and encodes as its bare name.
	VariantUnit VariantKind = iota

	// VariantNewtype wraps one value and encodes as "Name: value".
	VariantNewtype

	// VariantTuple holds ordered payloads and encodes as "Name:" over a sequence.
	VariantTuple

	// VariantStruct holds named payloads and encodes as "Name:" over a mapping.
	VariantStruct
)

// String returns the kind name.
func (k VariantKind) String() string {
	switch k {
	case VariantUnit:
		return "unit"
	case VariantNewtype:
		return "newtype"
	case VariantTuple:
		return "tuple"
	case VariantStruct:
		return "struct"
	default:
		return "unknown"
	}
}

// Variant describes one alternative of a registered sum type.
type Variant struct {
	Name string
	Kind VariantKind
	Type reflect.Type
}

// Enum describes a sum type: an interface type and its variants in
// declaration order.
type Enum struct {
	Type     reflect.Type
	Variants []Variant
}

// Lookup finds a variant by name, scanning in declaration order.
func (e *Enum) Lookup(name string) (Variant, bool) {
	for _, v := range e.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// VariantNamer overrides the variant name otherwise taken from the Go type name.
type VariantNamer interface {
	QuillVariant() string
}

// variantRef locates a variant inside its enum.
type variantRef struct {
	enum  *Enum
	index int
}

var (
	enumsMu  sync.RWMutex
	enums    = make(map[reflect.Type]*Enum)
	variants = make(map[reflect.Type]variantRef)
)

// RegisterEnum registers interface type T as a sum type whose variants are
// the dynamic types of samples, in the order given.
//
// Variant kinds follow the Go type: a struct with no fields is a unit
// variant, a non-struct type or a newtype struct is a newtype variant, a
// struct embedding Tuple is a tuple variant, and any other struct is a
// struct variant. Register during package initialization; the tables are
// read-only once encoding starts.
func RegisterEnum[T any](samples ...T) error {
	it := reflect.TypeFor[T]()
	if it.Kind() != reflect.Interface {
		return fmt.Errorf("quill: enum type %s is not an interface: %w", it, ErrInvalidEnum)
	}
	if len(samples) == 0 {
		return fmt.Errorf("quill: enum %s has no variants: %w", it, ErrInvalidEnum)
	}

	enum := &Enum{Type: it, Variants: make([]Variant, 0, len(samples))}
	seen := make(map[string]bool, len(samples))
	types := make(map[reflect.Type]bool, len(samples))

	for _, sample := range samples {
		vt := reflect.TypeOf(any(sample))
		if vt == nil {
			return fmt.Errorf("quill: enum %s has a nil variant: %w", it, ErrInvalidEnum)
		}
		name := variantName(sample, vt)
		if name == "" {
			return fmt.Errorf("quill: variant type %s of %s has no name: %w", vt, it, ErrInvalidEnum)
		}
		if seen[name] || types[vt] {
			return fmt.Errorf("quill: duplicate variant %q in %s: %w", name, it, ErrInvalidEnum)
		}
		kind, err := variantKindOf(vt)
		if err != nil {
			return err
		}
		seen[name] = true
		types[vt] = true
		enum.Variants = append(enum.Variants, Variant{Name: name, Kind: kind, Type: vt})
	}

	enumsMu.Lock()
	defer enumsMu.Unlock()

	if _, ok := enums[it]; ok {
		return fmt.Errorf("quill: enum %s already registered: %w", it, ErrInvalidEnum)
	}
	for _, v := range enum.Variants {
		if ref, ok := variants[v.Type]; ok {
			return fmt.Errorf("quill: variant type %s already belongs to %s: %w", v.Type, ref.enum.Type, ErrInvalidEnum)
		}
	}

	enums[it] = enum
	for i, v := range enum.Variants {
		variants[v.Type] = variantRef{enum: enum, index: i}
	}
	return nil
}

// MustRegisterEnum is like RegisterEnum but panics on error.
func MustRegisterEnum[T any](samples ...T) {
	if err := RegisterEnum(samples...); err != nil {
		panic(err)
	}
}

// LookupEnum returns the enum registered for interface type t.
func LookupEnum(t reflect.Type) (*Enum, bool) {
	enumsMu.RLock()
	defer enumsMu.RUnlock()
	e, ok := enums[t]
	return e, ok
}

// variantOf returns the variant whose Go type is exactly t.
func variantOf(t reflect.Type) (Variant, bool) {
	enumsMu.RLock()
	defer enumsMu.RUnlock()
	ref, ok := variants[t]
	if !ok {
		return Variant{}, false
	}
	return ref.enum.Variants[ref.index], true
}

func variantName(sample any, vt reflect.Type) string {
	if n, ok := sample.(VariantNamer); ok {
		return n.QuillVariant()
	}
	if vt.Kind() == reflect.Pointer {
		vt = vt.Elem()
	}
	return vt.Name()
}

func variantKindOf(vt reflect.Type) (VariantKind, error) {
	base := vt
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() != reflect.Struct {
		return VariantNewtype, nil
	}
	plan, err := planFor(base)
	if err != nil {
		return 0, err
	}
	switch plan.shape {
	case shapeUnit:
		return VariantUnit, nil
	case shapeNewtype:
		return VariantNewtype, nil
	case shapeTuple:
		return VariantTuple, nil
	default:
		return VariantStruct, nil
	}
}
