package object

import (
	"context"

	"github.com/kiz-lang/kiz/errz"
)

func listSelf(self Object) (*List, error) {
	l, ok := self.(*List)
	if !ok {
		return nil, errz.Errorf(errz.Type, "expected list receiver, got %s", typeName(self))
	}
	return l, nil
}

func dictSelf(self Object) (*Dict, error) {
	d, ok := self.(*Dict)
	if !ok {
		return nil, errz.Errorf(errz.Type, "expected dict receiver, got %s", typeName(self))
	}
	return d, nil
}

func (h *Heap) initListMethods() {
	h.define(LIST, "__add__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		l, err := listSelf(self)
		if err != nil {
			return nil, err
		}
		other, ok := args[0].(*List)
		if !ok {
			return nil, errz.Errorf(errz.Type, "can only concatenate list (not \"%s\") to list", typeName(args[0]))
		}
		items := make([]Object, 0, len(l.items)+len(other.items))
		for _, item := range l.items {
			items = append(items, Retain(item))
		}
		for _, item := range other.items {
			items = append(items, Retain(item))
		}
		return h.NewList(items), nil
	})
	h.define(LIST, "__eq__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		l, err := listSelf(self)
		if err != nil {
			return nil, err
		}
		other, ok := args[0].(*List)
		if !ok || len(l.items) != len(other.items) {
			return h.Bool(false), nil
		}
		for i := range l.items {
			eq, err := Equal(ctx, l.items[i], other.items[i])
			if err != nil {
				return nil, err
			}
			if !eq {
				return h.Bool(false), nil
			}
		}
		return h.Bool(true), nil
	})
	h.define(LIST, "__getitem__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		l, err := listSelf(self)
		if err != nil {
			return nil, err
		}
		idx, err := AsInt(args[0])
		if err != nil {
			return nil, err
		}
		i, ok := normalizeIndex(idx, len(l.items))
		if !ok {
			return nil, errz.New(errz.Index, "list index out of range")
		}
		return Retain(l.items[i]), nil
	})
	h.define(LIST, "__setitem__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 2); err != nil {
			return nil, err
		}
		l, err := listSelf(self)
		if err != nil {
			return nil, err
		}
		idx, err := AsInt(args[0])
		if err != nil {
			return nil, err
		}
		i, ok := normalizeIndex(idx, len(l.items))
		if !ok {
			return nil, errz.New(errz.Index, "list assignment index out of range")
		}
		l.Set(i, CopyOrRef(args[1]))
		return h.Nil(), nil
	})
	h.define(LIST, "__contains__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		l, err := listSelf(self)
		if err != nil {
			return nil, err
		}
		for _, item := range l.Items() {
			eq, err := Equal(ctx, item, args[0])
			if err != nil {
				return nil, err
			}
			if eq {
				return h.Bool(true), nil
			}
		}
		return h.Bool(false), nil
	})
	h.define(LIST, "__iter__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		l, err := listSelf(self)
		if err != nil {
			return nil, err
		}
		return h.ListIterator(l), nil
	})
	h.define(LIST, "__len__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		l, err := listSelf(self)
		if err != nil {
			return nil, err
		}
		return h.Int(int64(len(l.items))), nil
	})
	h.define(LIST, "append", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		l, err := listSelf(self)
		if err != nil {
			return nil, err
		}
		l.Append(CopyOrRef(args[0]))
		return h.Nil(), nil
	})
	h.define(LIST, "pop", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		l, err := listSelf(self)
		if err != nil {
			return nil, err
		}
		v, ok := l.Pop()
		if !ok {
			return nil, errz.New(errz.Index, "pop from empty list")
		}
		return v, nil
	})
	h.define(LIST, "__str__", h.inspectMethod)
}

func (h *Heap) initDictMethods() {
	h.define(DICT, "__getitem__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		d, err := dictSelf(self)
		if err != nil {
			return nil, err
		}
		hash, err := Hash(ctx, args[0])
		if err != nil {
			return nil, err
		}
		_, v, ok := d.Lookup(hash)
		if !ok {
			return nil, errz.Errorf(errz.Key, "%s", Repr(args[0]))
		}
		return Retain(v), nil
	})
	h.define(DICT, "__setitem__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 2); err != nil {
			return nil, err
		}
		d, err := dictSelf(self)
		if err != nil {
			return nil, err
		}
		hash, err := Hash(ctx, args[0])
		if err != nil {
			return nil, err
		}
		d.Set(hash, CopyOrRef(args[0]), CopyOrRef(args[1]))
		return h.Nil(), nil
	})
	h.define(DICT, "__contains__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		d, err := dictSelf(self)
		if err != nil {
			return nil, err
		}
		hash, err := Hash(ctx, args[0])
		if err != nil {
			return nil, err
		}
		_, _, ok := d.Lookup(hash)
		return h.Bool(ok), nil
	})
	h.define(DICT, "__iter__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		d, err := dictSelf(self)
		if err != nil {
			return nil, err
		}
		return h.DictIterator(d), nil
	})
	h.define(DICT, "__len__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		d, err := dictSelf(self)
		if err != nil {
			return nil, err
		}
		return h.Int(int64(len(d.entries))), nil
	})
	h.define(DICT, "get", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1, 2); err != nil {
			return nil, err
		}
		d, err := dictSelf(self)
		if err != nil {
			return nil, err
		}
		hash, err := Hash(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if _, v, ok := d.Lookup(hash); ok {
			return Retain(v), nil
		}
		if len(args) == 2 {
			return Retain(args[1]), nil
		}
		return h.Nil(), nil
	})
	h.define(DICT, "keys", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		d, err := dictSelf(self)
		if err != nil {
			return nil, err
		}
		keys := d.Keys()
		for i, k := range keys {
			keys[i] = Retain(k)
		}
		return h.NewList(keys), nil
	})
	h.define(DICT, "__str__", h.inspectMethod)
}
