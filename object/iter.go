package object

import (
	"fmt"
)

// IterFunc produces the next element of an iterator as an owned reference,
// or false once the sequence is exhausted.
type IterFunc func(it *Iterator) (Object, bool)

// Iterator is a finite, non-restartable sequence. Its "__next__" method
// returns the heap's stop sentinel after the last element.
type Iterator struct {
	base
	kind   string
	source Object
	pos    int
	done   bool
	next   IterFunc
}

func (it *Iterator) Type() Type {
	return ITERATOR
}

func (it *Iterator) Inspect() string {
	return fmt.Sprintf("%s_iterator(#%d)", it.kind, it.id)
}

// Kind returns the kind of sequence the iterator walks, such as "list".
func (it *Iterator) Kind() string {
	return it.kind
}

// Next returns an owned reference to the next element, or the stop sentinel.
func (it *Iterator) Next() Object {
	if !it.done {
		if v, ok := it.next(it); ok {
			it.pos++
			return v
		}
		it.done = true
		it.releaseSource()
	}
	return it.heap.StopIteration()
}

func (it *Iterator) releaseSource() {
	if it.source != nil {
		src := it.source
		it.source = nil
		Release(src)
	}
}

func (it *Iterator) finalize() error {
	it.releaseSource()
	return nil
}

// NewIterator creates an iterator over source, taking ownership of source.
// source may be nil for generated sequences.
func (h *Heap) NewIterator(kind string, source Object, next IterFunc) *Iterator {
	it := &Iterator{kind: kind, source: source, next: next}
	h.init(&it.base, ITERATOR)
	return it
}

// ListIterator returns an iterator over the elements of l.
func (h *Heap) ListIterator(l *List) *Iterator {
	return h.NewIterator("list", Retain(l), func(it *Iterator) (Object, bool) {
		if it.pos >= len(l.items) {
			return nil, false
		}
		return Retain(l.items[it.pos]), true
	})
}

// DictIterator returns an iterator over the keys of d.
func (h *Heap) DictIterator(d *Dict) *Iterator {
	return h.NewIterator("dict", Retain(d), func(it *Iterator) (Object, bool) {
		if it.pos >= len(d.entries) {
			return nil, false
		}
		return Retain(d.entries[it.pos].key), true
	})
}

// StringIterator returns an iterator over the characters of s.
func (h *Heap) StringIterator(s *String) *Iterator {
	runes := []rune(s.value)
	return h.NewIterator("str", Retain(s), func(it *Iterator) (Object, bool) {
		if it.pos >= len(runes) {
			return nil, false
		}
		return h.String(string(runes[it.pos])), true
	})
}

// RangeIterator returns an iterator over start, start+step, ... up to but
// not including stop.
func (h *Heap) RangeIterator(start, stop, step int64) *Iterator {
	cur, done := start, false
	return h.NewIterator("range", nil, func(it *Iterator) (Object, bool) {
		if done || step == 0 || (step > 0 && cur >= stop) || (step < 0 && cur <= stop) {
			return nil, false
		}
		v := cur
		next, ok := addInt64(cur, step)
		if !ok {
			// The next value is past the int64 range, so it is past stop too.
			done = true
		}
		cur = next
		return h.Int(v), true
	})
}
