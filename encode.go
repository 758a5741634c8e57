package quill

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"math"
	"reflect"
	"slices"
	"strconv"
)

var (
	valueType       = reflect.TypeFor[Value]()
	marshalerType   = reflect.TypeFor[Marshaler]()
	unmarshalerType = reflect.TypeFor[Unmarshaler]()
)

// Marshal returns the canonical document for v.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToValue converts v to its Value form without producing text.
func ToValue(v any) (Value, error) {
	b := &valueBuilder{}
	s := &serializer{out: b, maxDepth: DefaultMaxDepth}
	if err := s.encode(reflect.ValueOf(v)); err != nil {
		return Value{}, err
	}
	return b.root, nil
}

// Encoder writes canonical documents to an output stream.
type Encoder struct {
	w   io.Writer
	cfg config
}

// NewEncoder returns an encoder that writes to w.
func NewEncoder(w io.Writer, opts ...Option) *Encoder {
	return &Encoder{w: w, cfg: newConfig(opts)}
}

// Encode writes the document for v. Output is buffered; a failed encode
// may still have written a prefix of the document to the stream.
func (e *Encoder) Encode(v any) error {
	em := newEmitter(e.w)
	s := &serializer{out: em, maxDepth: e.cfg.maxDepth}
	if err := s.encode(reflect.ValueOf(v)); err != nil {
		return err
	}
	return em.finish()
}

// serializer walks Go values and emits events.
type serializer struct {
	out      eventSink
	maxDepth int
	depth    int
	path     []string
}

func (s *serializer) pathString() string {
	var p string
	for _, seg := range s.path {
		if seg != "" && seg[0] == '[' {
			p += seg
			continue
		}
		p = joinPath(p, seg)
	}
	return p
}

func (s *serializer) fail(sentinel error, cause error) error {
	return newEncodeError(sentinel, s.pathString(), cause)
}

func (s *serializer) scalar(tok string) error {
	return s.out.emit(Event{Kind: EventScalar, Token: tok})
}

func (s *serializer) encode(rv reflect.Value) error {
	if !rv.IsValid() {
		return s.scalar("~")
	}

	t := rv.Type()
	if t == valueType {
		return walkValue(rv.Interface().(Value), s.out, s.pathString(), s.depth, s.maxDepth)
	}

	if m, ok := asMarshaler(rv); ok {
		v, err := m.MarshalQuill()
		if err != nil {
			return s.fail(ErrUnsupportedType, err)
		}
		return walkValue(v, s.out, s.pathString(), s.depth, s.maxDepth)
	}

	if variant, ok := variantOf(t); ok {
		return s.encodeVariant(rv, variant)
	}

	switch t.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return s.scalar("~")
		}
		return s.encode(rv.Elem())
	default:
		return s.encodeUnderlying(rv)
	}
}

// asMarshaler returns rv as a Marshaler, including through an addressable
// pointer receiver. Nil pointers are left to the pointer path.
func asMarshaler(rv reflect.Value) (Marshaler, bool) {
	t := rv.Type()
	if t.Implements(marshalerType) {
		if t.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, false
		}
		if t.Kind() == reflect.Interface {
			return nil, false
		}
		return rv.Interface().(Marshaler), true
	}
	if rv.CanAddr() && reflect.PointerTo(t).Implements(marshalerType) {
		return rv.Addr().Interface().(Marshaler), true
	}
	return nil, false
}

// encodeUnderlying encodes rv by its kind, ignoring variant registration.
func (s *serializer) encodeUnderlying(rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Bool:
		return s.scalar(formatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return s.scalar(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return s.scalar(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32:
		return s.scalar(formatFloatBits(rv.Float(), 32))
	case reflect.Float64:
		return s.scalar(formatFloat(rv.Float()))
	case reflect.String:
		return s.scalar(formatString(rv.String()))
	case reflect.Slice, reflect.Array:
		return s.encodeSequence(rv)
	case reflect.Map:
		return s.encodeMap(rv)
	case reflect.Struct:
		return s.encodeStruct(rv)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return s.scalar("~")
		}
		return s.encodeUnderlying(rv.Elem())
	default:
		return s.fail(ErrUnsupportedType, fmt.Errorf("cannot encode %s", rv.Type()))
	}
}

func (s *serializer) enter() error {
	s.depth++
	if s.depth > s.maxDepth {
		return s.fail(ErrMaxDepth, nil)
	}
	return nil
}

func (s *serializer) leave() {
	s.depth--
}

func (s *serializer) encodeSequence(rv reflect.Value) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()

	if err := s.out.emit(Event{Kind: EventBeginSequence}); err != nil {
		return err
	}
	for i := 0; i < rv.Len(); i++ {
		s.path = append(s.path, "["+strconv.Itoa(i)+"]")
		err := s.encode(rv.Index(i))
		s.path = s.path[:len(s.path)-1]
		if err != nil {
			return err
		}
	}
	return s.out.emit(Event{Kind: EventEndSequence})
}

// mapKey pairs a map key with its ordering value and token.
type mapKey struct {
	rv    reflect.Value
	order Value
	token string
}

func (s *serializer) encodeMap(rv reflect.Value) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()

	keys := make([]mapKey, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := s.scalarKey(iter.Key())
		if err != nil {
			return err
		}
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b mapKey) int {
		if c := Compare(a.order, b.order); c != 0 {
			return c
		}
		return cmp.Compare(a.token, b.token)
	})

	if err := s.out.emit(Event{Kind: EventBeginMapping}); err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.out.emit(Event{Kind: EventKey, Token: k.token}); err != nil {
			return err
		}
		s.path = append(s.path, k.token)
		err := s.encode(rv.MapIndex(k.rv))
		s.path = s.path[:len(s.path)-1]
		if err != nil {
			return err
		}
	}
	return s.out.emit(Event{Kind: EventEndMapping})
}

// scalarKey converts a map key to its scalar form. Keys that are not
// scalars are rejected.
func (s *serializer) scalarKey(k reflect.Value) (mapKey, error) {
	key := k
	for key.Kind() == reflect.Interface || key.Kind() == reflect.Pointer {
		if key.IsNil() {
			return mapKey{rv: k, order: Null(), token: "~"}, nil
		}
		key = key.Elem()
	}

	var v Value
	switch key.Kind() {
	case reflect.Bool:
		v = Bool(key.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v = Int(key.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := key.Uint()
		if u > math.MaxInt64 {
			return mapKey{rv: k, order: Float(float64(u)), token: strconv.FormatUint(u, 10)}, nil
		}
		v = Int(int64(u))
	case reflect.Float32:
		return mapKey{rv: k, order: Float(key.Float()), token: formatFloatBits(key.Float(), 32)}, nil
	case reflect.Float64:
		v = Float(key.Float())
	case reflect.String:
		v = Str(key.String())
	default:
		return mapKey{}, s.fail(ErrUnsupportedType, fmt.Errorf("map key of type %s is not a scalar", key.Type()))
	}

	tok, err := FormatScalar(v)
	if err != nil {
		return mapKey{}, s.fail(ErrUnsupportedType, err)
	}
	return mapKey{rv: k, order: v, token: tok}, nil
}

func (s *serializer) encodeStruct(rv reflect.Value) error {
	plan, err := planFor(rv.Type())
	if err != nil {
		return s.fail(ErrUnsupportedType, err)
	}

	switch plan.shape {
	case shapeUnit:
		return s.scalar("~")

	case shapeNewtype:
		if err := s.enter(); err != nil {
			return err
		}
		defer s.leave()
		return s.encode(rv.FieldByIndex(plan.fields[0].index))

	case shapeTuple:
		if err := s.enter(); err != nil {
			return err
		}
		defer s.leave()
		if err := s.out.emit(Event{Kind: EventBeginSequence}); err != nil {
			return err
		}
		for i, f := range plan.fields {
			s.path = append(s.path, "["+strconv.Itoa(i)+"]")
			err := s.encode(rv.FieldByIndex(f.index))
			s.path = s.path[:len(s.path)-1]
			if err != nil {
				return err
			}
		}
		return s.out.emit(Event{Kind: EventEndSequence})

	default:
		if err := s.enter(); err != nil {
			return err
		}
		defer s.leave()
		if err := s.out.emit(Event{Kind: EventBeginMapping}); err != nil {
			return err
		}
		for _, f := range plan.fields {
			if err := s.out.emit(Event{Kind: EventKey, Token: formatString(f.name)}); err != nil {
				return err
			}
			s.path = append(s.path, f.name)
			err := s.encode(rv.FieldByIndex(f.index))
			s.path = s.path[:len(s.path)-1]
			if err != nil {
				return err
			}
		}
		return s.out.emit(Event{Kind: EventEndMapping})
	}
}

// encodeVariant writes a unit variant as its bare name and any other
// variant as a single-entry mapping from name to payload.
func (s *serializer) encodeVariant(rv reflect.Value, variant Variant) error {
	name := formatString(variant.Name)
	if variant.Kind == VariantUnit {
		return s.scalar(name)
	}

	base := rv
	if base.Kind() == reflect.Pointer {
		if base.IsNil() {
			return s.scalar("~")
		}
		base = base.Elem()
	}

	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()

	if err := s.out.emit(Event{Kind: EventBeginMapping}); err != nil {
		return err
	}
	if err := s.out.emit(Event{Kind: EventKey, Token: name}); err != nil {
		return err
	}
	s.path = append(s.path, variant.Name)
	var err error
	if base.Kind() == reflect.Struct {
		err = s.encodeStruct(base)
	} else {
		err = s.encodeUnderlying(base)
	}
	s.path = s.path[:len(s.path)-1]
	if err != nil {
		return err
	}
	return s.out.emit(Event{Kind: EventEndMapping})
}
