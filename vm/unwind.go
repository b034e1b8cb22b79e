package vm

import (
	"context"
	"errors"

	"github.com/kiz-lang/kiz/errz"
	"github.com/kiz-lang/kiz/object"
)

// handleError routes an error returned by an instruction. Thrown objects and
// host errors are unwound to a handler; a nil result means execution
// continues at that handler. Fatal errors are returned as is.
func (vm *VirtualMachine) handleError(ctx context.Context, err error, floor int) error {
	if errors.Is(err, errObserverHalt) {
		return err
	}
	if vm.halted {
		var raised *object.Raised
		if errors.As(err, &raised) {
			object.Release(raised.Value)
		}
		return nil
	}
	var unhandled *UnhandledError
	if errors.As(err, &unhandled) {
		vm.dropFrames(floor)
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrHalted) {
		return err
	}
	var raised *object.Raised
	if errors.As(err, &raised) {
		return vm.throw(raised.Value, floor)
	}
	errObj := vm.heap.ErrorFromHost(err)
	errObj.SetTrace(vm.captureTrace())
	return vm.throw(errObj, floor)
}

// throw unwinds to the innermost handler that catches value, taking
// ownership of value. A handler below floor belongs to an outer dispatch
// loop: the frames above floor are discarded and value travels up as an
// *object.Raised.
func (vm *VirtualMachine) throw(value object.Object, floor int) error {
	name, message, _ := object.ErrorInfo(value)
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		pc := f.pc
		if i < len(vm.frames)-1 {
			pc = vm.frames[i+1].callSite
		}
		entry, ok := f.code.FindHandler(pc, name)
		if !ok {
			continue
		}
		if i < floor {
			for len(vm.frames) > floor {
				vm.popFrame()
			}
			return &object.Raised{Value: value}
		}
		for len(vm.frames) > i+1 {
			vm.popFrame()
		}
		vm.enterHandler(f, entry.Handler, value)
		vm.logger.Debug().
			Str("error", name).
			Str("frame", f.name).
			Int("handler", entry.Handler).
			Msg("unwound to handler")
		return nil
	}

	var trace []errz.StackFrame
	if e, ok := value.(*object.Error); ok {
		trace = e.Trace()
	}
	if trace == nil {
		trace = vm.captureTrace()
	}
	object.Release(value)
	errz.NewFormatter(vm.useColor).PrintTrace(vm.errWriter, name, message, trace)
	vm.logger.Debug().Str("error", name).Int("frames", len(vm.frames)).Msg("unhandled error")
	vm.dropFrames(floor)
	return &UnhandledError{Name: name, Message: message, Trace: trace}
}

// dropFrames discards the frames above floor after an unhandled error. The
// root module frame is kept with its locals so globals stay readable, but
// its temporaries are released.
func (vm *VirtualMachine) dropFrames(floor int) {
	for len(vm.frames) > floor && len(vm.frames) > 1 {
		vm.popFrame()
	}
	if floor == 0 && len(vm.frames) == 1 {
		root := vm.frames[0]
		vm.truncate(root.bp + root.localCount())
	}
}

// enterHandler restores f to the state recorded by the try block that owns
// handler and resumes there with value as the frame error.
func (vm *VirtualMachine) enterHandler(f *frame, handler int, value object.Object) {
	stackHeight := f.bp + f.localCount()
	iterDepth := 0
	for n := len(f.tries); n > 0; n = len(f.tries) {
		tb := f.tries[n-1]
		if tb.catchPC == handler || tb.finallyPC == handler {
			stackHeight, iterDepth = tb.stackHeight, tb.iterDepth
			break
		}
		f.tries = f.tries[:n-1]
	}
	vm.truncate(stackHeight)
	for len(f.iters) > iterDepth {
		last := len(f.iters) - 1
		object.Release(f.iters[last])
		f.iters = f.iters[:last]
	}
	f.setError(value)
	f.pc = handler
}

// captureTrace returns the position of every live frame, outermost first.
// Each frame reports the instruction it is executing: the current one for
// the innermost frame, the call instruction for the others.
func (vm *VirtualMachine) captureTrace() []errz.StackFrame {
	trace := make([]errz.StackFrame, 0, len(vm.frames))
	for i, f := range vm.frames {
		pc := f.pc
		if i < len(vm.frames)-1 {
			pc = vm.frames[i+1].callSite
		}
		trace = append(trace, errz.StackFrame{
			Path:     f.path(),
			Location: f.location(pc),
		})
	}
	return trace
}
