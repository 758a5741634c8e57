package quill

// Override interfaces let a type supply its own Value instead of the
// reflection-based mapping. The Value passes through the same canonical
// formatting as any other, so overrides cannot produce non-canonical text.

// Marshaler produces the Value a type encodes as.
type Marshaler interface {
	MarshalQuill() (Value, error)
}

// Unmarshaler consumes the Value decoded for a type.
// It is called on a pointer to a freshly zeroed receiver.
type Unmarshaler interface {
	UnmarshalQuill(Value) error
}
