package runtime

// Table is an associative array with a fixed key and value type. Tables
// are heap-allocated and shared by reference: assigning one array
// variable to another (or passing an array to a function) aliases the
// same table. Values hold only scalars, so reference cycles cannot form.
type Table[K int64 | string, V int64 | float64 | string] struct {
	m map[K]V
}

// NewTable creates an empty table.
func NewTable[K int64 | string, V int64 | float64 | string]() *Table[K, V] {
	return &Table[K, V]{m: make(map[K]V)}
}

// Get returns the value for key; missing keys return the zero value
// without creating the element.
func (t *Table[K, V]) Get(key K) V {
	return t.m[key]
}

// Set stores a value.
func (t *Table[K, V]) Set(key K, val V) {
	t.m[key] = val
}

// Delete removes a key.
func (t *Table[K, V]) Delete(key K) {
	delete(t.m, key)
}

// Clear removes every key.
func (t *Table[K, V]) Clear() {
	clear(t.m)
}

// Contains reports whether key is present.
func (t *Table[K, V]) Contains(key K) bool {
	_, ok := t.m[key]
	return ok
}

// Len returns the number of live keys.
func (t *Table[K, V]) Len() int {
	return len(t.m)
}

// Each calls f for every key/value pair in unspecified order.
func (t *Table[K, V]) Each(f func(K, V)) {
	for k, v := range t.m {
		f(k, v)
	}
}

// Iter returns an iterator over a snapshot of the current keys. The
// order is unspecified but stable for the iterator's lifetime; keys
// inserted after the snapshot are not visited, and deleted keys are
// visited with their zero value, matching for-in semantics.
func (t *Table[K, V]) Iter() *Iter[K] {
	keys := make([]K, 0, len(t.m))
	for k := range t.m {
		keys = append(keys, k)
	}
	return &Iter[K]{keys: keys}
}

// Iter walks a key snapshot.
type Iter[K int64 | string] struct {
	keys []K
	pos  int
}

// Next returns the next key, or false when exhausted.
func (it *Iter[K]) Next() (K, bool) {
	var zero K
	if it.pos >= len(it.keys) {
		return zero, false
	}
	k := it.keys[it.pos]
	it.pos++
	return k, true
}
