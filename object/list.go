package object

import (
	"strings"
)

// List is a mutable sequence of objects. It owns one reference per element.
type List struct {
	base
	items []Object
}

func (l *List) Type() Type {
	return LIST
}

func (l *List) Inspect() string {
	parts := make([]string, 0, len(l.items))
	for _, item := range l.items {
		parts = append(parts, Repr(item))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Len returns the number of elements.
func (l *List) Len() int {
	return len(l.items)
}

// At returns a borrowed reference to the element at index i.
func (l *List) At(i int) Object {
	return l.items[i]
}

// Items returns borrowed references to the elements.
func (l *List) Items() []Object {
	items := make([]Object, len(l.items))
	copy(items, l.items)
	return items
}

// Append adds value to the end of the list, taking ownership of it.
func (l *List) Append(value Object) {
	l.items = append(l.items, value)
}

// Set replaces the element at index i, taking ownership of value.
func (l *List) Set(i int, value Object) {
	old := l.items[i]
	l.items[i] = value
	Release(old)
}

// Pop removes the last element and hands its reference to the caller.
func (l *List) Pop() (Object, bool) {
	if len(l.items) == 0 {
		return nil, false
	}
	last := l.items[len(l.items)-1]
	l.items[len(l.items)-1] = nil
	l.items = l.items[:len(l.items)-1]
	return last, true
}

func (l *List) finalize() error {
	items := l.items
	l.items = nil
	ReleaseAll(items...)
	return nil
}

// NewList creates a list, taking ownership of the given elements.
func (h *Heap) NewList(items []Object) *List {
	l := &List{items: items}
	h.init(&l.base, LIST)
	return l
}

// normalizeIndex maps a possibly negative index onto [0, n).
func normalizeIndex(idx int64, n int) (int, bool) {
	if idx < 0 {
		idx += int64(n)
	}
	if idx < 0 || idx >= int64(n) {
		return 0, false
	}
	return int(idx), true
}
