package quill

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
)

// Unmarshal parses a canonical document and stores the result in the value
// pointed to by v. On error v is left unchanged.
func Unmarshal(data []byte, v any) error {
	return unmarshal(data, v, newConfig(nil))
}

// FromValue stores val in the value pointed to by v using the same rules
// as Unmarshal.
func FromValue(val Value, v any) error {
	var events eventList
	if err := walkValue(val, &events, "", 0, DefaultMaxDepth); err != nil {
		return err
	}
	return decodeEvents(events.events, v, newConfig(nil))
}

// Decoder reads a canonical document from an input stream.
type Decoder struct {
	r   io.Reader
	cfg config
}

// NewDecoder returns a decoder that reads from r.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	return &Decoder{r: r, cfg: newConfig(opts)}
}

// Decode reads the whole input as one document and stores it in v.
func (d *Decoder) Decode(v any) error {
	data, err := io.ReadAll(io.LimitReader(d.r, d.cfg.maxInputSize+1))
	if err != nil {
		return fmt.Errorf("quill: read: %w: %w", ErrIO, err)
	}
	if int64(len(data)) > d.cfg.maxInputSize {
		return &DecodeError{Err: ErrInputTooLarge, Detail: fmt.Sprintf("input exceeds %d bytes", d.cfg.maxInputSize)}
	}
	return unmarshal(data, v, d.cfg)
}

func unmarshal(data []byte, v any, cfg config) error {
	if int64(len(data)) > cfg.maxInputSize {
		return &DecodeError{Err: ErrInputTooLarge, Detail: fmt.Sprintf("input exceeds %d bytes", cfg.maxInputSize)}
	}
	var events eventList
	if err := parseDocument(data, &events, cfg.maxDepth); err != nil {
		return err
	}
	return decodeEvents(events.events, v, cfg)
}

// decodeEvents decodes into a fresh value and assigns it to v only on
// success.
func decodeEvents(events []Event, v any, cfg config) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("quill: decode target must be a non-nil pointer, got %T: %w", v, ErrUnsupportedType)
	}

	d := &deserializer{
		in:       &eventCursor{events: events},
		strict:   cfg.strictFields,
		maxDepth: cfg.maxDepth,
	}
	fresh := reflect.New(rv.Elem().Type())
	if err := d.decode(fresh.Elem()); err != nil {
		return err
	}
	if ev, ok := d.in.peek(); ok {
		return newDecodeError(ErrDocumentSyntax, ev.Line, ev.Column, "unexpected %s after document", ev.Kind)
	}
	rv.Elem().Set(fresh.Elem())
	return nil
}

// deserializer drives Go values from an event stream.
type deserializer struct {
	in       *eventCursor
	strict   bool
	maxDepth int
	depth    int
}

func (d *deserializer) peek() (Event, error) {
	ev, ok := d.in.peek()
	if !ok {
		return Event{}, newDecodeError(ErrDocumentSyntax, 0, 0, "unexpected end of document")
	}
	return ev, nil
}

func (d *deserializer) next() (Event, error) {
	ev, err := d.peek()
	if err == nil {
		d.in.pos++
	}
	return ev, err
}

func mismatch(ev Event, format string, args ...any) error {
	return newDecodeError(ErrStructureMismatch, ev.Line, ev.Column, format, args...)
}

// describeEvent names what an event starts, for error messages.
func describeEvent(ev Event) string {
	switch ev.Kind {
	case EventBeginSequence:
		return "sequence"
	case EventBeginMapping:
		return "mapping"
	case EventScalar:
		if isNull(ev) {
			return "null"
		}
		return fmt.Sprintf("scalar %s", ev.Token)
	default:
		return ev.Kind.String()
	}
}

func isNull(ev Event) bool {
	return ev.Kind == EventScalar && (ev.Token == "~" || ev.Token == "")
}

// decode fills rv, which must be settable, from the next value.
func (d *deserializer) decode(rv reflect.Value) error {
	ev, err := d.peek()
	if err != nil {
		return err
	}

	t := rv.Type()
	if t == valueType {
		v, err := d.in.value()
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(v))
		return nil
	}

	if t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(unmarshalerType) {
		v, err := d.in.value()
		if err != nil {
			return err
		}
		if err := rv.Addr().Interface().(Unmarshaler).UnmarshalQuill(v); err != nil {
			return positioned(err, ev.Line, ev.Column)
		}
		return nil
	}

	if enum, ok := LookupEnum(t); ok {
		return d.decodeTagged(rv, enum.Lookup, enum.Type.String())
	}
	if variant, ok := variantOf(t); ok {
		return d.decodeTagged(rv, func(name string) (Variant, bool) {
			return variant, name == variant.Name
		}, variant.Type.String())
	}

	switch t.Kind() {
	case reflect.Pointer:
		if isNull(ev) {
			d.in.pos++
			rv.Set(reflect.Zero(t))
			return nil
		}
		if rv.IsNil() {
			rv.Set(reflect.New(t.Elem()))
		}
		return d.decode(rv.Elem())

	case reflect.Interface:
		if isNull(ev) {
			d.in.pos++
			rv.Set(reflect.Zero(t))
			return nil
		}
		if t.NumMethod() != 0 {
			return newDecodeError(ErrUnsupportedType, ev.Line, ev.Column, "cannot decode into unregistered interface %s", t)
		}
		v, err := d.in.value()
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(v))
		return nil

	default:
		return d.decodeUnderlying(rv)
	}
}

// decodeUnderlying fills rv by its kind, ignoring variant registration.
func (d *deserializer) decodeUnderlying(rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Bool, reflect.String, reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		ev, err := d.next()
		if err != nil {
			return err
		}
		if ev.Kind != EventScalar {
			return mismatch(ev, "expected %s, found %s", rv.Kind(), describeEvent(ev))
		}
		return setScalar(rv, ev)
	case reflect.Slice:
		return d.decodeSlice(rv)
	case reflect.Array:
		return d.decodeArray(rv)
	case reflect.Map:
		return d.decodeMap(rv)
	case reflect.Struct:
		return d.decodeStruct(rv)
	case reflect.Pointer:
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return d.decodeUnderlying(rv.Elem())
	default:
		ev, _ := d.peek()
		return newDecodeError(ErrUnsupportedType, ev.Line, ev.Column, "cannot decode into %s", rv.Type())
	}
}

// setScalar stores a scalar or key token in a scalar-kinded rv.
func setScalar(rv reflect.Value, ev Event) error {
	tok := ev.Token
	quoted := tok != "" && tok[0] == '"'

	if rv.Kind() == reflect.String {
		if quoted {
			s, err := Unquote(tok)
			if err != nil {
				return positioned(err, ev.Line, ev.Column)
			}
			rv.SetString(s)
			return nil
		}
		v, err := resolvePlain(tok)
		if err != nil {
			return positioned(err, ev.Line, ev.Column)
		}
		if v.kind != KindString {
			return mismatch(ev, "expected string, found %s %s", v.kind, tok)
		}
		rv.SetString(v.strVal)
		return nil
	}

	if quoted {
		return mismatch(ev, "expected %s, found quoted string", rv.Kind())
	}

	switch rv.Kind() {
	case reflect.Bool:
		switch tok {
		case "true":
			rv.SetBool(true)
		case "false":
			rv.SetBool(false)
		default:
			return mismatch(ev, "expected bool, found %s", describeEvent(ev))
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !isIntToken(tok) {
			return mismatch(ev, "expected integer, found %s", describeEvent(ev))
		}
		n, err := strconv.ParseInt(tok, 10, rv.Type().Bits())
		if err != nil {
			return newDecodeError(ErrNumericRange, ev.Line, ev.Column, "%s overflows %s", tok, rv.Type())
		}
		rv.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if !isIntToken(tok) {
			return mismatch(ev, "expected integer, found %s", describeEvent(ev))
		}
		digits := tok
		if digits[0] == '+' {
			digits = digits[1:]
		}
		if digits[0] == '-' {
			return newDecodeError(ErrNumericRange, ev.Line, ev.Column, "negative value %s for %s", tok, rv.Type())
		}
		n, err := strconv.ParseUint(digits, 10, rv.Type().Bits())
		if err != nil {
			return newDecodeError(ErrNumericRange, ev.Line, ev.Column, "%s overflows %s", tok, rv.Type())
		}
		rv.SetUint(n)

	case reflect.Float32, reflect.Float64:
		f, ok, inRange := parseFloatToken(tok, rv.Type().Bits())
		if !ok {
			return mismatch(ev, "expected float, found %s", describeEvent(ev))
		}
		if !inRange {
			return newDecodeError(ErrNumericRange, ev.Line, ev.Column, "%s out of range for %s", tok, rv.Type())
		}
		rv.SetFloat(f)

	default:
		return mismatch(ev, "cannot decode scalar into %s", rv.Type())
	}
	return nil
}

func (d *deserializer) enter(ev Event) error {
	d.depth++
	if d.depth > d.maxDepth {
		return newDecodeError(ErrMaxDepth, ev.Line, ev.Column, "nesting exceeds %d", d.maxDepth)
	}
	return nil
}

func (d *deserializer) leave() {
	d.depth--
}

// beginCollection consumes the opening event of kind, or a null when
// nullable. It reports whether a collection was opened.
func (d *deserializer) beginCollection(kind EventKind, nullable bool) (Event, bool, error) {
	ev, err := d.next()
	if err != nil {
		return ev, false, err
	}
	if nullable && isNull(ev) {
		return ev, false, nil
	}
	if ev.Kind != kind {
		want := "sequence"
		if kind == EventBeginMapping {
			want = "mapping"
		}
		return ev, false, mismatch(ev, "expected %s, found %s", want, describeEvent(ev))
	}
	if err := d.enter(ev); err != nil {
		return ev, false, err
	}
	return ev, true, nil
}

// atEnd consumes the closing event if it is next.
func (d *deserializer) atEnd(kind EventKind) (bool, error) {
	ev, err := d.peek()
	if err != nil {
		return false, err
	}
	if ev.Kind == kind {
		d.in.pos++
		return true, nil
	}
	return false, nil
}

func (d *deserializer) decodeSlice(rv reflect.Value) error {
	_, open, err := d.beginCollection(EventBeginSequence, true)
	if err != nil {
		return err
	}
	if !open {
		rv.Set(reflect.Zero(rv.Type()))
		return nil
	}
	defer d.leave()

	s := reflect.MakeSlice(rv.Type(), 0, 0)
	for {
		end, err := d.atEnd(EventEndSequence)
		if err != nil {
			return err
		}
		if end {
			break
		}
		elem := reflect.New(rv.Type().Elem()).Elem()
		if err := d.decode(elem); err != nil {
			return err
		}
		s = reflect.Append(s, elem)
	}
	rv.Set(s)
	return nil
}

func (d *deserializer) decodeArray(rv reflect.Value) error {
	start, _, err := d.beginCollection(EventBeginSequence, false)
	if err != nil {
		return err
	}
	defer d.leave()

	n := 0
	for {
		end, err := d.atEnd(EventEndSequence)
		if err != nil {
			return err
		}
		if end {
			break
		}
		if n >= rv.Len() {
			return mismatch(start, "expected %d elements for %s", rv.Len(), rv.Type())
		}
		if err := d.decode(rv.Index(n)); err != nil {
			return err
		}
		n++
	}
	if n != rv.Len() {
		return mismatch(start, "expected %d elements for %s, found %d", rv.Len(), rv.Type(), n)
	}
	return nil
}

func (d *deserializer) decodeMap(rv reflect.Value) error {
	_, open, err := d.beginCollection(EventBeginMapping, true)
	if err != nil {
		return err
	}
	if !open {
		rv.Set(reflect.Zero(rv.Type()))
		return nil
	}
	defer d.leave()

	t := rv.Type()
	m := reflect.MakeMap(t)
	for {
		end, err := d.atEnd(EventEndMapping)
		if err != nil {
			return err
		}
		if end {
			break
		}
		kev, err := d.next()
		if err != nil {
			return err
		}
		key := reflect.New(t.Key()).Elem()
		if err := setKey(key, kev); err != nil {
			return err
		}
		val := reflect.New(t.Elem()).Elem()
		if err := d.decode(val); err != nil {
			return err
		}
		m.SetMapIndex(key, val)
	}
	rv.Set(m)
	return nil
}

// setKey stores a key token. Interface keys receive plain Go scalars since
// Value is not comparable.
func setKey(key reflect.Value, ev Event) error {
	if ev.Kind != EventKey {
		return mismatch(ev, "expected key, found %s", describeEvent(ev))
	}
	if key.Kind() != reflect.Interface {
		return setScalar(key, ev)
	}
	if key.NumMethod() != 0 {
		return newDecodeError(ErrUnsupportedType, ev.Line, ev.Column, "cannot decode key into %s", key.Type())
	}
	v, err := ResolveScalar(ev.Token)
	if err != nil {
		return positioned(err, ev.Line, ev.Column)
	}
	var native any
	switch v.kind {
	case KindBool:
		native = v.boolVal
	case KindInt:
		native = v.intVal
	case KindFloat:
		native = v.floatVal
	case KindString:
		native = v.strVal
	}
	if native != nil {
		key.Set(reflect.ValueOf(native))
	}
	return nil
}

func (d *deserializer) decodeStruct(rv reflect.Value) error {
	plan, err := planFor(rv.Type())
	if err != nil {
		ev, _ := d.peek()
		return positioned(&DecodeError{Err: ErrUnsupportedType, Detail: err.Error()}, ev.Line, ev.Column)
	}

	switch plan.shape {
	case shapeUnit:
		ev, err := d.next()
		if err != nil {
			return err
		}
		if isNull(ev) {
			return nil
		}
		if ev.Kind == EventBeginMapping {
			if end, err := d.atEnd(EventEndMapping); err != nil || end {
				return err
			}
		}
		return mismatch(ev, "expected null for %s, found %s", rv.Type(), describeEvent(ev))

	case shapeNewtype:
		ev, err := d.peek()
		if err != nil {
			return err
		}
		if err := d.enter(ev); err != nil {
			return err
		}
		defer d.leave()
		return d.decode(rv.FieldByIndex(plan.fields[0].index))

	case shapeTuple:
		start, _, err := d.beginCollection(EventBeginSequence, false)
		if err != nil {
			return err
		}
		defer d.leave()
		for i, f := range plan.fields {
			end, err := d.atEnd(EventEndSequence)
			if err != nil {
				return err
			}
			if end {
				return mismatch(start, "expected %d elements for %s, found %d", len(plan.fields), rv.Type(), i)
			}
			if err := d.decode(rv.FieldByIndex(f.index)); err != nil {
				return err
			}
		}
		if end, err := d.atEnd(EventEndSequence); err != nil {
			return err
		} else if !end {
			return mismatch(start, "expected %d elements for %s", len(plan.fields), rv.Type())
		}
		return nil

	default:
		return d.decodeRecord(rv, plan)
	}
}

func (d *deserializer) decodeRecord(rv reflect.Value, plan *structPlan) error {
	start, _, err := d.beginCollection(EventBeginMapping, false)
	if err != nil {
		return err
	}
	defer d.leave()

	seen := make([]bool, len(plan.fields))
	for {
		end, err := d.atEnd(EventEndMapping)
		if err != nil {
			return err
		}
		if end {
			break
		}
		kev, err := d.next()
		if err != nil {
			return err
		}
		if kev.Kind != EventKey {
			return mismatch(kev, "expected key, found %s", describeEvent(kev))
		}
		name, err := keyName(kev)
		if err != nil {
			return err
		}
		i, ok := plan.byName[name]
		if !ok {
			if d.strict {
				return mismatch(kev, "unknown field %q in %s", name, rv.Type())
			}
			d.in.skip()
			continue
		}
		if err := d.decode(rv.FieldByIndex(plan.fields[i].index)); err != nil {
			return err
		}
		seen[i] = true
	}

	for i, f := range plan.fields {
		if seen[i] {
			continue
		}
		if !f.optional {
			return newDecodeError(ErrMissingField, start.Line, start.Column, "field %q of %s", f.name, rv.Type())
		}
		field := rv.FieldByIndex(f.index)
		field.Set(reflect.Zero(field.Type()))
	}
	return nil
}

// keyName returns the text of a key or variant tag token.
func keyName(ev Event) (string, error) {
	if ev.Token != "" && ev.Token[0] == '"' {
		s, err := Unquote(ev.Token)
		if err != nil {
			return "", positioned(err, ev.Line, ev.Column)
		}
		return s, nil
	}
	return ev.Token, nil
}

// decodeTagged decodes a variant: a bare name for unit variants, or a
// single-entry mapping from name to payload.
func (d *deserializer) decodeTagged(rv reflect.Value, lookup func(string) (Variant, bool), what string) error {
	ev, err := d.next()
	if err != nil {
		return err
	}

	switch {
	case isNull(ev) && (rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer):
		rv.Set(reflect.Zero(rv.Type()))
		return nil

	case ev.Kind == EventScalar:
		name, err := keyName(ev)
		if err != nil {
			return err
		}
		variant, ok := lookup(name)
		if !ok {
			return newDecodeError(ErrUnknownVariant, ev.Line, ev.Column, "%q is not a variant of %s", name, what)
		}
		if variant.Kind != VariantUnit {
			return mismatch(ev, "variant %s of %s requires a payload", name, what)
		}
		val := reflect.New(variant.Type).Elem()
		if val.Kind() == reflect.Pointer {
			val.Set(reflect.New(variant.Type.Elem()))
		}
		rv.Set(val)
		return nil

	case ev.Kind == EventBeginMapping:
		if err := d.enter(ev); err != nil {
			return err
		}
		defer d.leave()

		kev, err := d.next()
		if err != nil {
			return err
		}
		if kev.Kind != EventKey {
			return mismatch(ev, "expected single-entry variant mapping for %s", what)
		}
		name, err := keyName(kev)
		if err != nil {
			return err
		}
		variant, ok := lookup(name)
		if !ok {
			return newDecodeError(ErrUnknownVariant, kev.Line, kev.Column, "%q is not a variant of %s", name, what)
		}

		val := reflect.New(variant.Type).Elem()
		base := val
		if base.Kind() == reflect.Pointer {
			base.Set(reflect.New(variant.Type.Elem()))
			base = base.Elem()
		}
		if base.Kind() == reflect.Struct {
			err = d.decodeStruct(base)
		} else {
			err = d.decodeUnderlying(base)
		}
		if err != nil {
			return err
		}

		if end, err := d.atEnd(EventEndMapping); err != nil {
			return err
		} else if !end {
			extra, _ := d.peek()
			return mismatch(extra, "variant mapping for %s has more than one entry", what)
		}
		rv.Set(val)
		return nil

	default:
		return mismatch(ev, "expected variant of %s, found %s", what, describeEvent(ev))
	}
}
