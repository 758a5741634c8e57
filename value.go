package quill

import (
	"cmp"
	"fmt"
	"strings"
)

// Kind identifies the shape held by a Value.
type Kind uint8

// Kinds are declared in their Compare order.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSequence
	KindMapping
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is an untyped document node. The zero Value is Null.
//
// Values are used as the universal intermediate form and as an escape hatch
// for untyped substructure inside typed records: a struct field of type
// Value accepts any document shape.
type Value struct {
	kind Kind

	boolVal  bool
	intVal   int64
	floatVal float64
	strVal   string

	seqVal []Value
	mapVal *Mapping
}

// ============================================================
// Constructors
// ============================================================

// Null creates a null value.
func Null() Value {
	return Value{}
}

// Bool creates a boolean value.
func Bool(v bool) Value {
	return Value{kind: KindBool, boolVal: v}
}

// Int creates an integer value.
func Int(v int64) Value {
	return Value{kind: KindInt, intVal: v}
}

// Float creates a float value.
func Float(v float64) Value {
	return Value{kind: KindFloat, floatVal: v}
}

// Str creates a string value.
func Str(v string) Value {
	return Value{kind: KindString, strVal: v}
}

// Seq creates a sequence value holding items in order.
func Seq(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindSequence, seqVal: items}
}

// MapOf creates a mapping value from entries. Later duplicates win.
func MapOf(entries ...Entry) Value {
	return FromMapping(NewMapping(entries...))
}

// FromMapping wraps an existing mapping. A nil mapping is treated as empty.
func FromMapping(m *Mapping) Value {
	if m == nil {
		m = NewMapping()
	}
	return Value{kind: KindMapping, mapVal: m}
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the value kind.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull returns true if this is a null value.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// IsScalar returns true for every kind except sequences and mappings.
func (v Value) IsScalar() bool {
	return v.kind != KindSequence && v.kind != KindMapping
}

// AsBool returns the boolean value.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, v.kindError(KindBool)
	}
	return v.boolVal, nil
}

// AsInt returns the integer value.
func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, v.kindError(KindInt)
	}
	return v.intVal, nil
}

// AsFloat returns the float value.
func (v Value) AsFloat() (float64, error) {
	if v.kind != KindFloat {
		return 0, v.kindError(KindFloat)
	}
	return v.floatVal, nil
}

// AsStr returns the string value.
func (v Value) AsStr() (string, error) {
	if v.kind != KindString {
		return "", v.kindError(KindString)
	}
	return v.strVal, nil
}

// AsSeq returns the sequence items. The slice is shared with the value.
func (v Value) AsSeq() ([]Value, error) {
	if v.kind != KindSequence {
		return nil, v.kindError(KindSequence)
	}
	return v.seqVal, nil
}

// AsMapping returns the mapping. The mapping is shared with the value.
func (v Value) AsMapping() (*Mapping, error) {
	if v.kind != KindMapping {
		return nil, v.kindError(KindMapping)
	}
	return v.mapVal, nil
}

// Len returns the length of a sequence or mapping, and 0 for scalars.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.seqVal)
	case KindMapping:
		return v.mapVal.Len()
	default:
		return 0
	}
}

// Index returns the i-th element of a sequence.
func (v Value) Index(i int) (Value, error) {
	if v.kind != KindSequence {
		return Value{}, v.kindError(KindSequence)
	}
	if i < 0 || i >= len(v.seqVal) {
		return Value{}, fmt.Errorf("quill: index %d out of bounds (len=%d)", i, len(v.seqVal))
	}
	return v.seqVal[i], nil
}

// Get returns the value stored under key in a mapping.
func (v Value) Get(key Value) (Value, bool) {
	if v.kind != KindMapping {
		return Value{}, false
	}
	return v.mapVal.Get(key)
}

func (v Value) kindError(want Kind) error {
	return fmt.Errorf("quill: expected %s, got %s: %w", want, v.kind, ErrStructureMismatch)
}

// ============================================================
// Ordering
// ============================================================

// Compare orders values totally: first by kind, then by payload.
// Floats use cmp.Compare, so NaN sorts first and equals itself.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		return cmp.Compare(a.kind, b.kind)
	}
	switch a.kind {
	case KindNull:
		return 0
	case KindBool:
		switch {
		case a.boolVal == b.boolVal:
			return 0
		case !a.boolVal:
			return -1
		default:
			return 1
		}
	case KindInt:
		return cmp.Compare(a.intVal, b.intVal)
	case KindFloat:
		return cmp.Compare(a.floatVal, b.floatVal)
	case KindString:
		return strings.Compare(a.strVal, b.strVal)
	case KindSequence:
		for i := 0; i < len(a.seqVal) && i < len(b.seqVal); i++ {
			if c := Compare(a.seqVal[i], b.seqVal[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(a.seqVal), len(b.seqVal))
	case KindMapping:
		ae, be := a.mapVal.Entries(), b.mapVal.Entries()
		for i := 0; i < len(ae) && i < len(be); i++ {
			if c := Compare(ae[i].Key, be[i].Key); c != 0 {
				return c
			}
			if c := Compare(ae[i].Value, be[i].Value); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(ae), len(be))
	}
	return 0
}

// Equal reports structural equality.
func Equal(a, b Value) bool {
	return Compare(a, b) == 0
}

// String renders the value in a compact single-line form for diagnostics.
// It is not the document encoding; use Marshal for that.
func (v Value) String() string {
	var sb strings.Builder
	v.writeDebug(&sb)
	return sb.String()
}

func (v Value) writeDebug(sb *strings.Builder) {
	switch v.kind {
	case KindSequence:
		sb.WriteByte('[')
		for i, item := range v.seqVal {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.writeDebug(sb)
		}
		sb.WriteByte(']')
	case KindMapping:
		sb.WriteByte('{')
		for i, e := range v.mapVal.Entries() {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.Key.writeDebug(sb)
			sb.WriteString(": ")
			e.Value.writeDebug(sb)
		}
		sb.WriteByte('}')
	default:
		s, _ := FormatScalar(v)
		sb.WriteString(s)
	}
}
