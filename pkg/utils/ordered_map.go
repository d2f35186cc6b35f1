package utils

import "encoding/json"

// ----------------------------------------------------------------------------
// Ordered Map

// A map-like container that remembers the order in which keys were first inserted.
//
// The Go built-in map intentionally randomizes iteration order, which makes compiler
// output non-deterministic whenever a program is assembled from a map (e.g. a set of
// classes or declared fields). OrderedMap trades a bit of bookkeeping for reproducible
// builds: iterating 'Entries()' always yields values in declaration order.
type OrderedMap[K comparable, V any] struct {
	index   map[K]int
	entries []MapEntry[K, V]
}

// A single key/value pair as stored inside an OrderedMap, also used to seed one
// via NewOrderedMapFromList when the desired order is already known beforehand.
type MapEntry[K comparable, V any] struct {
	Key   K
	Value V
}

// Initializes and returns to the caller a brand new, empty OrderedMap.
func NewOrderedMap[K comparable, V any]() OrderedMap[K, V] {
	return OrderedMap[K, V]{index: map[K]int{}}
}

// Builds an OrderedMap from a slice of entries, preserving the slice's order.
// Requires the slice to not contain duplicate keys (the last occurrence wins).
func NewOrderedMapFromList[K comparable, V any](list []MapEntry[K, V]) OrderedMap[K, V] {
	m := NewOrderedMap[K, V]()
	for _, entry := range list {
		m.Set(entry.Key, entry.Value)
	}
	return m
}

// Associates 'value' with 'key'. If 'key' is already present its value is
// updated in place (the original insertion position is preserved); otherwise
// a new entry is appended at the end.
func (m *OrderedMap[K, V]) Set(key K, value V) {
	if m.index == nil {
		m.index = map[K]int{}
	}

	if pos, found := m.index[key]; found {
		m.entries[pos].Value = value
		return
	}

	m.index[key] = len(m.entries)
	m.entries = append(m.entries, MapEntry[K, V]{Key: key, Value: value})
}

// Looks up the value associated with 'key', the second return value reports
// whether the key was found (mirrors the Go built-in map's comma-ok idiom).
func (m *OrderedMap[K, V]) Get(key K) (V, bool) {
	if pos, found := m.index[key]; found {
		return m.entries[pos].Value, true
	}

	var zero V
	return zero, false
}

// Removes 'key' (and its value) from the map, if present. The remaining
// entries keep their relative order.
func (m *OrderedMap[K, V]) Delete(key K) {
	pos, found := m.index[key]
	if !found {
		return
	}

	m.entries = append(m.entries[:pos], m.entries[pos+1:]...)
	delete(m.index, key)
	for k, idx := range m.index {
		if idx > pos {
			m.index[k] = idx - 1
		}
	}
}

// Returns the number of key/value pairs currently stored.
func (m *OrderedMap[K, V]) Size() int { return len(m.entries) }

// Returns every value in the map, in insertion (declaration) order.
func (m *OrderedMap[K, V]) Entries() []V {
	values := make([]V, 0, len(m.entries))
	for _, entry := range m.entries {
		values = append(values, entry.Value)
	}
	return values
}

// Returns every key in the map, in insertion (declaration) order.
func (m *OrderedMap[K, V]) Keys() []K {
	keys := make([]K, 0, len(m.entries))
	for _, entry := range m.entries {
		keys = append(keys, entry.Key)
	}
	return keys
}

// MarshalJSON encodes the map as its ordered entry list, since the unexported
// backing fields would otherwise be invisible to encoding/json.
func (m OrderedMap[K, V]) MarshalJSON() ([]byte, error) { return json.Marshal(m.entries) }

// UnmarshalJSON restores a map from the entry list produced by MarshalJSON,
// preserving declaration order.
func (m *OrderedMap[K, V]) UnmarshalJSON(data []byte) error {
	var entries []MapEntry[K, V]
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*m = NewOrderedMapFromList(entries)
	return nil
}
