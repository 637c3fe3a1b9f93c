package runtime

import "testing"

func TestTableBasics(t *testing.T) {
	m := NewTable[string, int64]()
	m.Set("a", 1)
	m.Set("b", 2)

	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
	if m.Get("a") != 1 {
		t.Error("Get a")
	}
	// Missing keys read as the zero value without creating the element.
	if m.Get("missing") != 0 {
		t.Error("missing key should be zero")
	}
	if m.Len() != 2 {
		t.Error("Get must not create elements")
	}
	if !m.Contains("a") || m.Contains("missing") {
		t.Error("Contains")
	}

	m.Delete("a")
	if m.Contains("a") || m.Len() != 1 {
		t.Error("Delete")
	}

	m.Clear()
	if m.Len() != 0 {
		t.Error("Clear")
	}
}

func TestIterSnapshot(t *testing.T) {
	m := NewTable[int64, string]()
	m.Set(1, "a")
	m.Set(2, "b")
	m.Set(3, "c")

	it := m.Iter()
	seen := map[int64]int{}
	for {
		k, ok := it.Next()
		if !ok {
			break
		}
		seen[k]++
		// Mutation during iteration must not add new keys to this
		// iterator's view.
		m.Set(100+k, "new")
	}

	if len(seen) != 3 {
		t.Fatalf("visited %d keys, want 3", len(seen))
	}
	for k, n := range seen {
		if n != 1 {
			t.Errorf("key %d visited %d times", k, n)
		}
	}
}

func TestTableAliasing(t *testing.T) {
	a := NewTable[string, string]()
	b := a // tables share by reference
	a.Set("k", "v")
	if b.Get("k") != "v" {
		t.Error("aliased table should see writes")
	}
}
