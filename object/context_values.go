package object

import (
	"context"

	"github.com/kiz-lang/kiz/errz"
)

type contextKey string

// Invoker calls a callable object with an optional bound receiver. args are
// borrowed and the result is an owned reference. The VM installs an Invoker
// so that native code can call user functions.
type Invoker func(ctx context.Context, fn Object, self Object, args []Object) (Object, error)

const invokerKey = contextKey("kiz:invoker")

// WithInvoker adds an Invoker to the context.
func WithInvoker(ctx context.Context, fn Invoker) context.Context {
	return context.WithValue(ctx, invokerKey, fn)
}

// GetInvoker returns the Invoker from the context, if it exists.
func GetInvoker(ctx context.Context) (Invoker, bool) {
	if fn, ok := ctx.Value(invokerKey).(Invoker); ok {
		if fn != nil {
			return fn, ok
		}
	}
	return nil, false
}

// Call calls fn with the given receiver and arguments. Native functions are
// called directly; anything else goes through the context's Invoker.
func Call(ctx context.Context, fn Object, self Object, args []Object) (Object, error) {
	if native, ok := fn.(*NativeFunction); ok {
		return native.Call(ctx, self, args)
	}
	invoke, ok := GetInvoker(ctx)
	if !ok {
		if _, isFunc := fn.(*Function); isFunc {
			return nil, errz.New(errz.Type, "no invoker available to call a user function")
		}
		return nil, errz.Errorf(errz.Type, "'%s' object is not callable", typeName(fn))
	}
	return invoke(ctx, fn, self, args)
}

// CallMethod resolves name on recv and calls it with recv bound.
func CallMethod(ctx context.Context, recv Object, name string, args ...Object) (Object, error) {
	method, ok := GetAttr(recv, name)
	if !ok {
		return nil, errz.Errorf(errz.Name, "'%s' object has no attribute '%s'", typeName(recv), name)
	}
	// The method may be replaced while it runs; hold it until the call ends.
	method = Retain(method)
	defer Release(method)
	return Call(ctx, method, recv, args)
}
