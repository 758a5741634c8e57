package quill

import "strconv"

// valueBuilder assembles events into a Value.
type valueBuilder struct {
	stack []buildFrame
	root  Value
	done  bool
}

type buildFrame struct {
	kind   EventKind
	items  []Value
	m      *Mapping
	key    Value
	hasKey bool
}

func (b *valueBuilder) emit(ev Event) error {
	if b.done {
		return newDecodeError(ErrDocumentSyntax, ev.Line, ev.Column, "content after complete value")
	}

	switch ev.Kind {
	case EventScalar:
		v, err := ResolveScalar(ev.Token)
		if err != nil {
			return positioned(err, ev.Line, ev.Column)
		}
		return b.add(v, ev)

	case EventKey:
		f := b.top()
		if f == nil || f.kind != EventBeginMapping || f.hasKey {
			return newDecodeError(ErrStructureMismatch, ev.Line, ev.Column, "key outside mapping")
		}
		k, err := ResolveScalar(ev.Token)
		if err != nil {
			return positioned(err, ev.Line, ev.Column)
		}
		f.key, f.hasKey = k, true

	case EventBeginSequence:
		b.stack = append(b.stack, buildFrame{kind: ev.Kind})

	case EventBeginMapping:
		b.stack = append(b.stack, buildFrame{kind: ev.Kind, m: NewMapping()})

	case EventEndSequence, EventEndMapping:
		f := b.top()
		if f == nil || f.kind != ev.Kind-1 || f.hasKey {
			return newDecodeError(ErrStructureMismatch, ev.Line, ev.Column, "unbalanced %s", ev.Kind)
		}
		b.stack = b.stack[:len(b.stack)-1]
		if f.kind == EventBeginSequence {
			return b.add(Seq(f.items...), ev)
		}
		return b.add(FromMapping(f.m), ev)
	}

	return nil
}

func (b *valueBuilder) top() *buildFrame {
	if len(b.stack) == 0 {
		return nil
	}
	return &b.stack[len(b.stack)-1]
}

// add places a finished value. Duplicate mapping keys keep the last value.
func (b *valueBuilder) add(v Value, ev Event) error {
	f := b.top()
	if f == nil {
		b.root, b.done = v, true
		return nil
	}
	if f.kind == EventBeginSequence {
		f.items = append(f.items, v)
		return nil
	}
	if !f.hasKey {
		return newDecodeError(ErrStructureMismatch, ev.Line, ev.Column, "mapping value without key")
	}
	f.m.Set(f.key, v)
	f.hasKey = false
	return nil
}

// value reads one complete value from the cursor.
func (c *eventCursor) value() (Value, error) {
	b := &valueBuilder{}
	for !b.done {
		ev, ok := c.next()
		if !ok {
			return Value{}, newDecodeError(ErrDocumentSyntax, 0, 0, "unexpected end of document")
		}
		if err := b.emit(ev); err != nil {
			return Value{}, err
		}
	}
	return b.root, nil
}

// walkValue emits the events for v. Mapping keys are scalars by construction.
func walkValue(v Value, out eventSink, path string, depth, maxDepth int) error {
	switch v.kind {
	case KindSequence, KindMapping:
		if depth >= maxDepth {
			return newEncodeError(ErrMaxDepth, path, nil)
		}
	default:
		tok, err := FormatScalar(v)
		if err != nil {
			return newEncodeError(ErrUnsupportedType, path, err)
		}
		return out.emit(Event{Kind: EventScalar, Token: tok})
	}

	if v.kind == KindSequence {
		if err := out.emit(Event{Kind: EventBeginSequence}); err != nil {
			return err
		}
		for i, item := range v.seqVal {
			if err := walkValue(item, out, path+"["+strconv.Itoa(i)+"]", depth+1, maxDepth); err != nil {
				return err
			}
		}
		return out.emit(Event{Kind: EventEndSequence})
	}

	if err := out.emit(Event{Kind: EventBeginMapping}); err != nil {
		return err
	}
	for _, e := range v.mapVal.Entries() {
		tok, err := FormatScalar(e.Key)
		if err != nil {
			return newEncodeError(ErrUnsupportedType, path, err)
		}
		if err := out.emit(Event{Kind: EventKey, Token: tok}); err != nil {
			return err
		}
		if err := walkValue(e.Value, out, joinPath(path, tok), depth+1, maxDepth); err != nil {
			return err
		}
	}
	return out.emit(Event{Kind: EventEndMapping})
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
