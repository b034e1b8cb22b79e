package object

import (
	"strings"
)

type dictEntry struct {
	hash  int64
	key   Object
	value Object
}

// Dict is an insertion-ordered mapping keyed by the Int each key's
// "__hash__" method returns. Keys with equal hashes are the same key: a
// later entry overwrites the value and keeps the original key and position.
type Dict struct {
	base
	entries []dictEntry
	index   map[int64]int
}

func (d *Dict) Type() Type {
	return DICT
}

func (d *Dict) Inspect() string {
	parts := make([]string, 0, len(d.entries))
	for _, e := range d.entries {
		parts = append(parts, Repr(e.key)+": "+Repr(e.value))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	return len(d.entries)
}

// Set stores an entry, taking ownership of key and value.
func (d *Dict) Set(hash int64, key, value Object) {
	if i, ok := d.index[hash]; ok {
		old := d.entries[i].value
		d.entries[i].value = value
		Release(key)
		Release(old)
		return
	}
	d.index[hash] = len(d.entries)
	d.entries = append(d.entries, dictEntry{hash: hash, key: key, value: value})
}

// Lookup returns borrowed references to the entry stored under hash.
func (d *Dict) Lookup(hash int64) (key, value Object, ok bool) {
	i, found := d.index[hash]
	if !found {
		return nil, nil, false
	}
	e := d.entries[i]
	return e.key, e.value, true
}

// Keys returns borrowed references to the keys in insertion order.
func (d *Dict) Keys() []Object {
	keys := make([]Object, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.key
	}
	return keys
}

// Values returns borrowed references to the values in insertion order.
func (d *Dict) Values() []Object {
	values := make([]Object, len(d.entries))
	for i, e := range d.entries {
		values[i] = e.value
	}
	return values
}

func (d *Dict) finalize() error {
	entries := d.entries
	d.entries = nil
	d.index = nil
	for _, e := range entries {
		Release(e.key)
		Release(e.value)
	}
	return nil
}

// NewDict creates an empty dictionary.
func (h *Heap) NewDict() *Dict {
	d := &Dict{index: map[int64]int{}}
	h.init(&d.base, DICT)
	return d
}
