package quill

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const (
	documentMarker = "---"
	indentUnit     = "  "
)

// frame is an open collection on the emitter stack.
type frame struct {
	kind    EventKind // EventBeginSequence or EventBeginMapping
	depth   int       // indentation level of the collection's entries
	lead    string    // written before the first entry, or before the flow form when empty
	root    bool
	started bool
	wantKey bool
}

// emitter lays events out as block-style text.
//
// Every line after the marker is written with its leading line break, so the
// document never ends with one. A collection is held open until its first
// entry or its end arrives, which decides between block form and the empty
// flow forms {} and [].
type emitter struct {
	w     *bufio.Writer
	stack []frame
	done  bool
	err   error
}

func newEmitter(w io.Writer) *emitter {
	e := &emitter{w: bufio.NewWriter(w)}
	e.write(documentMarker)
	return e
}

func (e *emitter) write(s string) {
	if e.err != nil {
		return
	}
	if _, err := e.w.WriteString(s); err != nil {
		e.err = newEncodeError(ErrIO, "", err)
	}
}

func (e *emitter) top() *frame {
	if len(e.stack) == 0 {
		return nil
	}
	return &e.stack[len(e.stack)-1]
}

// open writes the lead of the innermost collection before its first entry.
func (e *emitter) open(f *frame) {
	if f.started {
		return
	}
	f.started = true
	if !f.root {
		e.write(f.lead)
	}
}

// valuePrefix returns the text preceding a value in the current position.
func (e *emitter) valuePrefix() (string, error) {
	f := e.top()
	if f == nil {
		if e.done {
			return "", fmt.Errorf("quill: value after document root: %w", ErrStructureMismatch)
		}
		return "\n", nil
	}
	switch f.kind {
	case EventBeginSequence:
		e.open(f)
		return "\n" + strings.Repeat(indentUnit, f.depth) + "- ", nil
	default:
		if f.wantKey {
			return "", fmt.Errorf("quill: mapping value without key: %w", ErrStructureMismatch)
		}
		return " ", nil
	}
}

// completeValue records that the value at the current position is finished.
func (e *emitter) completeValue() {
	f := e.top()
	if f == nil {
		e.done = true
		return
	}
	if f.kind == EventBeginMapping {
		f.wantKey = true
	}
}

func (e *emitter) emit(ev Event) error {
	if e.err != nil {
		return e.err
	}

	switch ev.Kind {
	case EventScalar:
		prefix, err := e.valuePrefix()
		if err != nil {
			return err
		}
		e.write(prefix + ev.Token)
		e.completeValue()

	case EventKey:
		f := e.top()
		if f == nil || f.kind != EventBeginMapping || !f.wantKey {
			return fmt.Errorf("quill: key outside mapping key position: %w", ErrStructureMismatch)
		}
		e.open(f)
		e.write("\n" + strings.Repeat(indentUnit, f.depth) + ev.Token + ":")
		f.wantKey = false

	case EventBeginSequence, EventBeginMapping:
		parent := e.top()
		prefix, err := e.valuePrefix()
		if err != nil {
			return err
		}
		depth := 0
		if parent != nil {
			depth = parent.depth + 1
		}
		e.stack = append(e.stack, frame{
			kind:    ev.Kind,
			depth:   depth,
			lead:    prefix,
			root:    parent == nil,
			wantKey: ev.Kind == EventBeginMapping,
		})

	case EventEndSequence, EventEndMapping:
		f := e.top()
		if f == nil || f.kind != ev.Kind-1 {
			return fmt.Errorf("quill: unbalanced %s: %w", ev.Kind, ErrStructureMismatch)
		}
		if f.kind == EventBeginMapping && !f.wantKey {
			return fmt.Errorf("quill: mapping closed after key: %w", ErrStructureMismatch)
		}
		if !f.started {
			flow := "[]"
			if f.kind == EventBeginMapping {
				flow = "{}"
			}
			e.write(f.lead + flow)
		}
		e.stack = e.stack[:len(e.stack)-1]
		e.completeValue()
	}

	return e.err
}

// finish checks the document is complete and flushes the writer.
func (e *emitter) finish() error {
	if e.err != nil {
		return e.err
	}
	if len(e.stack) > 0 || !e.done {
		return fmt.Errorf("quill: incomplete document: %w", ErrStructureMismatch)
	}
	if err := e.w.Flush(); err != nil {
		return newEncodeError(ErrIO, "", err)
	}
	return nil
}
