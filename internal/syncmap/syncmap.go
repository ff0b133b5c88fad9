// Package syncmap provides the thread-safe associative container used for
// grove's plan cache and resolved-instance caches.
//
// Reads never take a lock. Inserts record the key in an insertion-order
// index so that [Map.Entries] returns a stable enumeration, which disposal
// sweeps rely on.
package syncmap

import "sync"

// Entry is a key/value pair returned by [Map.Entries].
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Map is a generic concurrent map with get-or-add semantics. The zero value
// is ready to use. A Map must not be copied after first use.
type Map[K comparable, V any] struct {
	m sync.Map // map[K]V

	// mu guards order only.
	mu    sync.Mutex
	order []K
}

// TryGet returns the value stored for key, if any.
func (m *Map[K, V]) TryGet(key K) (V, bool) {
	v, ok := m.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// GetOrAdd returns the value stored for key. On a miss it calls factory
// and stores the result unless another goroutine stored a value first, in
// which case the stored value wins and the factory result is discarded.
//
// factory runs without any lock held, so it may run more than once for the
// same key under contention and it may itself call into the Map. A factory
// error is returned as-is and nothing is stored.
func (m *Map[K, V]) GetOrAdd(key K, factory func(K) (V, error)) (V, error) {
	if v, ok := m.m.Load(key); ok {
		return v.(V), nil
	}

	v, err := factory(key)
	if err != nil {
		var zero V
		return zero, err
	}

	actual, loaded := m.m.LoadOrStore(key, v)
	if !loaded {
		m.track(key)
	}
	return actual.(V), nil
}

// Set stores value for key, replacing any previous value (last write wins).
func (m *Map[K, V]) Set(key K, value V) {
	if _, loaded := m.m.Swap(key, value); !loaded {
		m.track(key)
	}
}

// Clear removes every entry.
func (m *Map[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.m.Clear()
	m.order = nil
}

// Len returns the number of keys inserted since the last Clear.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// Entries returns a snapshot of the map in insertion order.
func (m *Map[K, V]) Entries() []Entry[K, V] {
	m.mu.Lock()
	keys := make([]K, len(m.order))
	copy(keys, m.order)
	m.mu.Unlock()

	entries := make([]Entry[K, V], 0, len(keys))
	for _, k := range keys {
		if v, ok := m.m.Load(k); ok {
			entries = append(entries, Entry[K, V]{Key: k, Value: v.(V)})
		}
	}
	return entries
}

func (m *Map[K, V]) track(key K) {
	m.mu.Lock()
	m.order = append(m.order, key)
	m.mu.Unlock()
}
