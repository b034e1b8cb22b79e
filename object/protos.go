package object

import (
	"context"
	"fmt"

	"github.com/kiz-lang/kiz/errz"
)

var prototypeTypes = []Type{
	OBJECT, INT, DECIMAL, STRING, BOOL, NIL, LIST, DICT, FUNCTION,
	NATIVE, MODULE, ERROR, CODE, FILE, ITERATOR,
}

func (h *Heap) initPrototypes() {
	for _, t := range prototypeTypes {
		p := &Instance{}
		h.init(&p.base, OBJECT)
		h.protos[t] = p
		h.protoOrder = append(h.protoOrder, t)
	}
}

func (h *Heap) initMethods() {
	h.initObjectMethods()
	h.initNumericMethods()
	h.initStringMethods()
	h.initListMethods()
	h.initDictMethods()
	h.initIteratorMethods()
	h.initErrorMethods()
	h.initFileMethods()
}

// define stores a native method on the prototype of t.
func (h *Heap) define(t Type, name string, fn NativeFunc) {
	if old := h.protos[t].attrs.set(name, h.NewNative(name, fn)); old != nil {
		Release(old)
	}
}

func (h *Heap) inspectMethod(ctx context.Context, self Object, args []Object) (Object, error) {
	if err := AssertArgc(args, 0); err != nil {
		return nil, err
	}
	return h.String(self.Inspect()), nil
}

func (h *Heap) initObjectMethods() {
	h.define(OBJECT, "__eq__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		return h.Bool(self == args[0]), nil
	})
	h.define(OBJECT, "__hash__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		return h.Int(int64(self.ID())), nil
	})
	h.define(OBJECT, "__str__", h.inspectMethod)

	for _, t := range []Type{BOOL, NIL} {
		h.define(t, "__eq__", func(ctx context.Context, self Object, args []Object) (Object, error) {
			if err := AssertArgc(args, 1); err != nil {
				return nil, err
			}
			return h.Bool(self == args[0]), nil
		})
	}
	h.define(BOOL, "__hash__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		if IsTrue(self) {
			return h.Int(1), nil
		}
		return h.Int(0), nil
	})
	h.define(NIL, "__hash__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		return h.Int(0), nil
	})
}

func (h *Heap) initIteratorMethods() {
	h.define(ITERATOR, "__next__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		it, ok := self.(*Iterator)
		if !ok {
			return nil, errz.Errorf(errz.Type, "expected iterator receiver, got %s", typeName(self))
		}
		return it.Next(), nil
	})
	h.define(ITERATOR, "__iter__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		return Retain(self), nil
	})
}

func (h *Heap) initErrorMethods() {
	h.define(ERROR, "__str__", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		name, msg, ok := ErrorInfo(self)
		if !ok {
			return h.String(self.Inspect()), nil
		}
		return h.String(fmt.Sprintf("%s: %s", name, msg)), nil
	})
}
