package object

import (
	"context"
	"sort"
	"strconv"

	"github.com/kiz-lang/kiz/errz"
)

// IsTrue returns the truth value of obj. Nil and false are false; numbers
// are true when non-zero; strings, lists and dicts when non-empty.
// Everything else is true.
func IsTrue(obj Object) bool {
	switch v := obj.(type) {
	case nil:
		return false
	case *Nil:
		return false
	case *Bool:
		return v.value
	case *Int:
		return v.value != 0
	case *Decimal:
		return !v.value.IsZero()
	case *String:
		return v.value != ""
	case *List:
		return len(v.items) > 0
	case *Dict:
		return len(v.entries) > 0
	default:
		return true
	}
}

// CopyOrRef returns the reference to store when obj is assigned to a slot.
// Ints, decimals and strings are copied by value; the copy of a pooled int
// is the pooled object itself. Every other type is shared by reference.
// The result is an owned reference and obj keeps its own.
func CopyOrRef(obj Object) Object {
	switch v := obj.(type) {
	case *Int:
		return v.heap.Int(v.value)
	case *Decimal:
		return v.heap.Decimal(&v.value)
	case *String:
		return v.heap.String(v.value)
	default:
		return Retain(obj)
	}
}

// Hash calls obj's "__hash__" method, which must return an Int.
func Hash(ctx context.Context, obj Object) (int64, error) {
	res, err := CallMethod(ctx, obj, "__hash__")
	if err != nil {
		return 0, err
	}
	defer Release(res)
	i, ok := res.(*Int)
	if !ok {
		return 0, errz.Errorf(errz.Type, "__hash__ must return int, not %s", typeName(res))
	}
	return i.value, nil
}

// Equal calls a's "__eq__" method with b and returns its truth value.
func Equal(ctx context.Context, a, b Object) (bool, error) {
	res, err := CallMethod(ctx, a, "__eq__", b)
	if err != nil {
		return false, err
	}
	defer Release(res)
	return IsTrue(res), nil
}

// Str calls obj's "__str__" method, which must return a String.
func Str(ctx context.Context, obj Object) (string, error) {
	if s, ok := obj.(*String); ok {
		return s.value, nil
	}
	res, err := CallMethod(ctx, obj, "__str__")
	if err != nil {
		return "", err
	}
	defer Release(res)
	s, ok := res.(*String)
	if !ok {
		return "", errz.Errorf(errz.Type, "__str__ must return str, not %s", typeName(res))
	}
	return s.value, nil
}

// Repr returns the representation of obj inside a container: strings are
// quoted, everything else uses Inspect.
func Repr(obj Object) string {
	if s, ok := obj.(*String); ok {
		return strconv.Quote(s.value)
	}
	if obj == nil {
		return "null"
	}
	return obj.Inspect()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
