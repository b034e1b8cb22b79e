package object

import (
	"context"
	"strings"

	"github.com/kiz-lang/kiz/errz"
	"github.com/zeebo/xxh3"
)

func strSelf(self Object) (*String, error) {
	s, ok := self.(*String)
	if !ok {
		return nil, errz.Errorf(errz.Type, "expected str receiver, got %s", typeName(self))
	}
	return s, nil
}

func compareStrings(a, b Object) (int, bool) {
	x, ok1 := a.(*String)
	y, ok2 := b.(*String)
	if !ok1 || !ok2 {
		return 0, false
	}
	return strings.Compare(x.value, y.value), true
}

func (h *Heap) initStringMethods() {
	h.define(STRING, "__add__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		s, err := strSelf(self)
		if err != nil {
			return nil, err
		}
		other, ok := args[0].(*String)
		if !ok {
			return nil, errz.Errorf(errz.Type, "can only concatenate str (not \"%s\") to str", typeName(args[0]))
		}
		return h.String(s.value + other.value), nil
	})
	h.define(STRING, "__mul__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		s, err := strSelf(self)
		if err != nil {
			return nil, err
		}
		n, err := AsInt(args[0])
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return h.String(""), nil
		}
		return h.String(strings.Repeat(s.value, int(n))), nil
	})
	h.define(STRING, "__eq__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		c, ok := compareStrings(self, args[0])
		return h.Bool(ok && c == 0), nil
	})
	h.define(STRING, "__lt__", h.orderMethod("<", func(c int) bool { return c < 0 }, compareStrings))
	h.define(STRING, "__gt__", h.orderMethod(">", func(c int) bool { return c > 0 }, compareStrings))
	h.define(STRING, "__hash__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		s, err := strSelf(self)
		if err != nil {
			return nil, err
		}
		return h.Int(int64(xxh3.HashString(s.value))), nil
	})
	h.define(STRING, "__getitem__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		s, err := strSelf(self)
		if err != nil {
			return nil, err
		}
		idx, err := AsInt(args[0])
		if err != nil {
			return nil, err
		}
		runes := []rune(s.value)
		i, ok := normalizeIndex(idx, len(runes))
		if !ok {
			return nil, errz.New(errz.Index, "string index out of range")
		}
		return h.String(string(runes[i])), nil
	})
	h.define(STRING, "__contains__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		s, err := strSelf(self)
		if err != nil {
			return nil, err
		}
		sub, err := AsString(args[0])
		if err != nil {
			return nil, err
		}
		return h.Bool(strings.Contains(s.value, sub)), nil
	})
	h.define(STRING, "__iter__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		s, err := strSelf(self)
		if err != nil {
			return nil, err
		}
		return h.StringIterator(s), nil
	})
	h.define(STRING, "__len__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		s, err := strSelf(self)
		if err != nil {
			return nil, err
		}
		return h.Int(int64(s.Len())), nil
	})
	h.define(STRING, "__str__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		return Retain(self), nil
	})
}
