package quill

// EventKind identifies a document event.
type EventKind uint8

const (
	EventScalar EventKind = iota
	EventKey
	EventBeginSequence
	EventEndSequence
	EventBeginMapping
	EventEndMapping
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventScalar:
		return "scalar"
	case EventKey:
		return "key"
	case EventBeginSequence:
		return "begin-sequence"
	case EventEndSequence:
		return "end-sequence"
	case EventBeginMapping:
		return "begin-mapping"
	case EventEndMapping:
		return "end-mapping"
	default:
		return "unknown"
	}
}

// Event is one step of a document traversal. Encoding walks a value into
// events and lays them out as text; decoding parses text into events and
// rebuilds a value from them.
//
// Scalar and Key events carry the formatted token: plain text, or a
// double-quoted token including its quotes. A mapping is a BeginMapping,
// then alternating Key and value events, then EndMapping.
type Event struct {
	Kind   EventKind
	Token  string
	Line   int // source position, zero for events produced by encoding
	Column int
}

// eventSink receives events from a traversal.
type eventSink interface {
	emit(ev Event) error
}

// eventList records events in memory.
type eventList struct {
	events []Event
}

func (l *eventList) emit(ev Event) error {
	l.events = append(l.events, ev)
	return nil
}

// eventCursor reads recorded events in order.
type eventCursor struct {
	events []Event
	pos    int
}

func (c *eventCursor) peek() (Event, bool) {
	if c.pos >= len(c.events) {
		return Event{}, false
	}
	return c.events[c.pos], true
}

func (c *eventCursor) next() (Event, bool) {
	ev, ok := c.peek()
	if ok {
		c.pos++
	}
	return ev, ok
}

// skip consumes one complete value.
func (c *eventCursor) skip() {
	depth := 0
	for {
		ev, ok := c.next()
		if !ok {
			return
		}
		switch ev.Kind {
		case EventBeginSequence, EventBeginMapping:
			depth++
		case EventEndSequence, EventEndMapping:
			depth--
		case EventKey:
			continue
		}
		if depth == 0 {
			return
		}
	}
}
