package quill

import "slices"

// Entry is a key/value pair of a Mapping.
type Entry struct {
	Key   Value
	Value Value
}

// Pair creates an Entry with a string key.
func Pair(key string, value Value) Entry {
	return Entry{Key: Str(key), Value: value}
}

// Mapping is a collection of unique keys kept in Compare order.
// Iteration and serialization follow key order, never insertion order.
// Keys are scalars; sequences and mappings are never keys.
type Mapping struct {
	entries []Entry
}

// NewMapping creates a mapping from entries. Later duplicates win.
// It panics if a key is not a scalar.
func NewMapping(entries ...Entry) *Mapping {
	m := &Mapping{entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		m.Set(e.Key, e.Value)
	}
	return m
}

func (m *Mapping) search(key Value) (int, bool) {
	return slices.BinarySearchFunc(m.entries, key, func(e Entry, k Value) int {
		return Compare(e.Key, k)
	})
}

// Set stores value under key, overwriting an existing entry.
// It panics if key is a sequence or mapping.
func (m *Mapping) Set(key, value Value) {
	if !key.IsScalar() {
		panic("quill: mapping key must be a scalar, got " + key.Kind().String())
	}
	i, found := m.search(key)
	if found {
		m.entries[i].Value = value
		return
	}
	m.entries = slices.Insert(m.entries, i, Entry{Key: key, Value: value})
}

// Get returns the value stored under key.
func (m *Mapping) Get(key Value) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	i, found := m.search(key)
	if !found {
		return Value{}, false
	}
	return m.entries[i].Value, true
}

// Delete removes key and reports whether it was present.
func (m *Mapping) Delete(key Value) bool {
	if m == nil {
		return false
	}
	i, found := m.search(key)
	if !found {
		return false
	}
	m.entries = slices.Delete(m.entries, i, i+1)
	return true
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Entries returns the entries in key order. Callers must not modify the slice.
func (m *Mapping) Entries() []Entry {
	if m == nil {
		return nil
	}
	return m.entries
}

// Keys returns the keys in order.
func (m *Mapping) Keys() []Value {
	keys := make([]Value, 0, m.Len())
	for _, e := range m.Entries() {
		keys = append(keys, e.Key)
	}
	return keys
}
