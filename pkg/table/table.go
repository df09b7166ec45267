// Package table implements the open-addressed hash table ember uses both
// as the VM's global-variable environment and as its string-intern set.
//
// It is a direct port of clox's Table: linear probing, tombstones on
// delete, and a 0.75 load factor that triggers a capacity doubling
// (minimum 8). Keys are *value.StringObject handles compared by pointer
// identity; their hash is the string's own precomputed FNV-1a hash.
package table

import "github.com/kristofer/ember/pkg/value"

const maxLoad = 0.75

// entry is one slot. Three states, matching the source exactly:
//
//	empty:    key == nil, val.IsNil()
//	tombstone: key == nil, val is Bool(true)
//	occupied: key != nil
type entry struct {
	key *value.StringObject
	val value.Value
}

// Table is an open-addressed map from interned string handles to Values.
type Table struct {
	entries []entry
	count   int // occupied + tombstone slots
}

// New returns an empty table. Capacity is allocated lazily on first Set,
// matching the source's init_table/adjust_capacity split.
func New() *Table {
	return &Table{}
}

// Set inserts or overwrites key's value. It reports whether the key was
// previously absent (isNew).
func (t *Table) Set(key *value.StringObject, val value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.growTo(growCapacity(len(t.entries)))
	}

	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]

	isNew := e.key == nil
	if isNew && e.val.IsNil() {
		// A genuinely empty slot, not a recycled tombstone.
		t.count++
	}

	e.key = key
	e.val = val
	return isNew
}

// Get returns the value for key, if present.
func (t *Table) Get(key *value.StringObject) (value.Value, bool) {
	if t.count == 0 {
		return value.Nil, false
	}
	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	if e.key == nil {
		return value.Nil, false
	}
	return e.val, true
}

// Delete converts key's slot to a tombstone. Reports whether key was
// present.
func (t *Table) Delete(key *value.StringObject) bool {
	if t.count == 0 {
		return false
	}
	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	if e.key == nil {
		return false
	}
	e.key = nil
	e.val = value.Bool(true)
	return true
}

// AddAll copies every occupied entry of t into dst.
func (t *Table) AddAll(dst *Table) {
	for _, e := range t.entries {
		if e.key != nil {
			dst.Set(e.key, e.val)
		}
	}
}

// FindString performs the content-based lookup used only by string
// interning: it walks the probe sequence comparing (hash, bytes) and
// stops at the first non-tombstone empty slot.
func (t *Table) FindString(chars string, hash uint32) *value.StringObject {
	if t.count == 0 || len(t.entries) == 0 {
		return nil
	}
	capacity := len(t.entries)
	idx := int(hash % uint32(capacity))
	for {
		e := &t.entries[idx]
		if e.key == nil {
			if e.val.IsNil() {
				return nil
			}
			// tombstone: keep probing
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		idx = (idx + 1) % capacity
	}
}

// findEntry returns the index find_entry would land on: the existing
// occupied slot for key, the first tombstone seen if the probe reaches an
// empty slot, or the empty slot itself if no tombstone was seen.
func (t *Table) findEntry(entries []entry, key *value.StringObject) int {
	capacity := len(entries)
	idx := int(key.Hash % uint32(capacity))
	tombstone := -1
	for {
		e := &entries[idx]
		if e.key == nil {
			if e.val.IsNil() {
				if tombstone != -1 {
					return tombstone
				}
				return idx
			}
			if tombstone == -1 {
				tombstone = idx
			}
		} else if e.key == key {
			return idx
		}
		idx = (idx + 1) % capacity
	}
}

// growCapacity doubles capacity, with a floor of 8.
func growCapacity(old int) int {
	if old < 8 {
		return 8
	}
	return old * 2
}

// growTo reallocates entries at the new capacity and rehashes every
// occupied slot into it; tombstones are dropped, so count is recomputed
// as exactly the number of live entries reinserted.
func (t *Table) growTo(capacity int) {
	fresh := make([]entry, capacity)
	for i := range fresh {
		fresh[i] = entry{val: value.Nil}
	}

	count := 0
	for _, e := range t.entries {
		if e.key == nil {
			continue
		}
		idx := t.findEntry(fresh, e.key)
		fresh[idx] = e
		count++
	}

	t.entries = fresh
	t.count = count
}
