package object

import (
	"unicode/utf8"
)

// String is an immutable string value.
type String struct {
	base
	value string
}

func (s *String) Type() Type {
	return STRING
}

func (s *String) Value() string {
	return s.value
}

func (s *String) Inspect() string {
	return s.value
}

// Len returns the number of characters in the string.
func (s *String) Len() int {
	return utf8.RuneCountInString(s.value)
}

// String returns a new string object.
func (h *Heap) String(v string) *String {
	s := &String{value: v}
	h.init(&s.base, STRING)
	return s
}

// Bool is a boolean. There is one true and one false object per heap.
type Bool struct {
	base
	value bool
}

func (b *Bool) Type() Type {
	return BOOL
}

func (b *Bool) Value() bool {
	return b.value
}

func (b *Bool) Inspect() string {
	if b.value {
		return "True"
	}
	return "False"
}

// Nil is the absence of a value. There is one nil object per heap.
type Nil struct {
	base
}

func (n *Nil) Type() Type {
	return NIL
}

func (n *Nil) Inspect() string {
	return "Nil"
}
