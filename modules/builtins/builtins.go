// Package builtins defines the functions visible to every kiz program.
package builtins

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kiz-lang/kiz/errz"
	"github.com/kiz-lang/kiz/object"
)

type builtins struct {
	h   *object.Heap
	out io.Writer
}

// Module returns the initializer of the builtins module. print writes to out.
func Module(out io.Writer) object.ModuleInit {
	return func(ctx context.Context, h *object.Heap) (*object.Module, error) {
		b := &builtins{h: h, out: out}
		return h.NewNativeModule("builtins", b.funcs()), nil
	}
}

func (b *builtins) funcs() map[string]object.NativeFunc {
	return map[string]object.NativeFunc{
		"print":      b.Print,
		"len":        b.Len,
		"str":        b.Str,
		"repr":       b.Repr,
		"range":      b.Range,
		"type":       b.Type,
		"hash":       b.Hash,
		"is_child":   b.IsChild,
		"Error":      b.Error,
		"make_error": b.Error,
	}
}

// Print writes its arguments converted with __str__, separated by spaces
// and followed by a newline.
func (b *builtins) Print(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	parts := make([]string, len(args))
	for i, arg := range args {
		s, err := object.Str(ctx, arg)
		if err != nil {
			return nil, err
		}
		parts[i] = s
	}
	if _, err := fmt.Fprintln(b.out, strings.Join(parts, " ")); err != nil {
		return nil, errz.Wrap(errz.OS, err)
	}
	return b.h.Nil(), nil
}

func (b *builtins) Len(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	if err := object.AssertArgc(args, 1); err != nil {
		return nil, err
	}
	return object.CallMethod(ctx, args[0], "__len__")
}

func (b *builtins) Str(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	if err := object.AssertArgc(args, 1); err != nil {
		return nil, err
	}
	s, err := object.Str(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return b.h.String(s), nil
}

func (b *builtins) Repr(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	if err := object.AssertArgc(args, 1); err != nil {
		return nil, err
	}
	return b.h.String(object.Repr(args[0])), nil
}

// Range returns an iterator for range(stop), range(start, stop) or
// range(start, stop, step).
func (b *builtins) Range(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	if err := object.AssertArgc(args, 1, 2, 3); err != nil {
		return nil, err
	}
	bounds := make([]int64, len(args))
	for i, arg := range args {
		n, err := object.AsInt(arg)
		if err != nil {
			return nil, err
		}
		bounds[i] = n
	}
	start, stop, step := int64(0), bounds[0], int64(1)
	if len(bounds) > 1 {
		start, stop = bounds[0], bounds[1]
	}
	if len(bounds) > 2 {
		step = bounds[2]
	}
	if step == 0 {
		return nil, errz.New(errz.Type, "range() step must not be zero")
	}
	return b.h.RangeIterator(start, stop, step), nil
}

func (b *builtins) Type(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	if err := object.AssertArgc(args, 1); err != nil {
		return nil, err
	}
	return b.h.String(string(args[0].Type())), nil
}

func (b *builtins) Hash(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	if err := object.AssertArgc(args, 1); err != nil {
		return nil, err
	}
	h, err := object.Hash(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return b.h.Int(h), nil
}

// IsChild reports whether the second argument is on the prototype chain of
// the first.
func (b *builtins) IsChild(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	if err := object.AssertArgc(args, 2); err != nil {
		return nil, err
	}
	return b.h.Bool(object.IsChild(args[0], args[1])), nil
}

// Error creates an error object without throwing it: Error(name, message).
func (b *builtins) Error(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	if err := object.AssertArgc(args, 2); err != nil {
		return nil, err
	}
	name, err := object.AsString(args[0])
	if err != nil {
		return nil, err
	}
	msg, err := object.Str(ctx, args[1])
	if err != nil {
		return nil, err
	}
	return b.h.NewError(name, msg), nil
}
