package object

import (
	"strconv"
	"strings"

	"github.com/kiz-lang/kiz/errz"
)

// AssertArgc returns an ArgCountError unless len(args) is one of counts.
func AssertArgc(args []Object, counts ...int) error {
	for _, c := range counts {
		if len(args) == c {
			return nil
		}
	}
	expected := make([]string, len(counts))
	for i, c := range counts {
		expected[i] = strconv.Itoa(c)
	}
	return errz.Errorf(errz.ArgCount, "expect %s arguments but got %d arguments",
		strings.Join(expected, " or "), len(args))
}

// AsInt returns the value of an Int argument.
func AsInt(obj Object) (int64, error) {
	i, ok := obj.(*Int)
	if !ok {
		return 0, errz.Errorf(errz.Type, "expected int, got %s", typeName(obj))
	}
	return i.value, nil
}

// AsString returns the value of a String argument.
func AsString(obj Object) (string, error) {
	s, ok := obj.(*String)
	if !ok {
		return "", errz.Errorf(errz.Type, "expected str, got %s", typeName(obj))
	}
	return s.value, nil
}

// AsList returns a List argument.
func AsList(obj Object) (*List, error) {
	l, ok := obj.(*List)
	if !ok {
		return nil, errz.Errorf(errz.Type, "expected list, got %s", typeName(obj))
	}
	return l, nil
}

func typeName(obj Object) string {
	if obj == nil {
		return "null"
	}
	return string(obj.Type())
}
