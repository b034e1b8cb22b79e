package vm

import (
	"context"
	"fmt"

	"github.com/kiz-lang/kiz/bytecode"
	"github.com/kiz-lang/kiz/errz"
	"github.com/kiz-lang/kiz/object"
)

func (vm *VirtualMachine) callSite() int {
	if n := len(vm.frames); n > 0 {
		return vm.frames[n-1].pc
	}
	return 0
}

// pushModuleFrame runs c as the body of module. The frame takes over the
// given module reference.
func (vm *VirtualMachine) pushModuleFrame(module *object.Module, c *bytecode.Code) error {
	if len(vm.frames) >= MaxFrameDepth {
		object.Release(module)
		return errz.New(errz.Recursion, "maximum recursion depth exceeded")
	}
	loaded, err := vm.load(c, module)
	if err != nil {
		object.Release(module)
		return err
	}
	f := &frame{
		owner:    module,
		name:     module.Name(),
		code:     loaded,
		module:   module,
		isModule: true,
		bp:       len(vm.stack),
		callSite: vm.callSite(),
	}
	for i := 0; i < loaded.LocalCount(); i++ {
		vm.push(vm.heap.Nil())
	}
	vm.frames = append(vm.frames, f)
	return nil
}

// pushFunctionFrame activates fn. The frame takes over the fn reference;
// self and args are borrowed and copied into the new locals.
func (vm *VirtualMachine) pushFunctionFrame(fn *object.Function, self object.Object, args []object.Object) error {
	if len(vm.frames) >= MaxFrameDepth {
		object.Release(fn)
		return errz.New(errz.Recursion, "maximum recursion depth exceeded")
	}
	if len(args) != fn.ParamCount() {
		object.Release(fn)
		return errz.Errorf(errz.ArgCount, "expect %d arguments but got %d arguments",
			fn.ParamCount(), len(args))
	}
	loaded, ok := vm.loaded[fn.Code()]
	if !ok {
		var err error
		if loaded, err = vm.load(fn.Code(), vm.root); err != nil {
			object.Release(fn)
			return err
		}
	}
	f := &frame{
		owner:    fn,
		fn:       fn,
		name:     fn.Name(),
		code:     loaded,
		module:   loaded.module,
		bp:       len(vm.stack),
		callSite: vm.callSite(),
	}
	if self != nil {
		vm.push(object.Retain(self))
	}
	for _, arg := range args {
		vm.push(object.Retain(arg))
	}
	for len(vm.stack)-f.bp < loaded.LocalCount() {
		vm.push(vm.heap.Nil())
	}
	var callLoc errz.SourceLocation
	if n := len(vm.frames); n > 0 {
		callLoc = vm.frames[n-1].location(f.callSite)
	}
	vm.frames = append(vm.frames, f)
	if vm.observer != nil && vm.observerCfg.ObserveCalls {
		event := CallEvent{
			FunctionName: f.name,
			ArgCount:     len(args),
			Location:     callLoc,
			FrameDepth:   len(vm.frames),
		}
		if !vm.observer.OnCall(event) {
			vm.halted = true
			return errObserverHalt
		}
	}
	return nil
}

// popFrame discards the top frame with every stack slot above its base.
func (vm *VirtualMachine) popFrame() *frame {
	n := len(vm.frames) - 1
	f := vm.frames[n]
	vm.truncate(f.bp)
	vm.frames[n] = nil
	vm.frames = vm.frames[:n]
	f.release()
	return f
}

// returnFrame pops the top function frame and pushes value, an owned
// reference, onto the caller's stack.
func (vm *VirtualMachine) returnFrame(value object.Object) error {
	f := vm.popFrame()
	vm.push(value)
	if vm.observer != nil && vm.observerCfg.ObserveReturns {
		event := ReturnEvent{FunctionName: f.name, FrameDepth: len(vm.frames)}
		if !vm.observer.OnReturn(event) {
			vm.halted = true
			return errObserverHalt
		}
	}
	return nil
}

// finishModule exports the named locals of an imported module frame as
// module attributes, pops the frame and pushes the module.
func (vm *VirtualMachine) finishModule(f *frame) error {
	module := f.module
	for i := 0; i < f.code.LocalNameCount() && i < f.localCount(); i++ {
		name := f.code.LocalNameAt(i)
		if name == "" {
			continue
		}
		value := object.CopyOrRef(unwrapCell(vm.stack[f.bp+i]))
		if err := object.SetAttr(module, name, value); err != nil {
			return err
		}
	}
	object.Retain(module)
	vm.popFrame()
	vm.push(module)
	vm.logger.Debug().Str("module", module.Name()).Msg("module loaded")
	return nil
}

// handleCall calls callee with args. The callee reference is consumed; self
// and args are borrowed. Native results are pushed immediately; user
// functions get a new frame that the dispatch loop continues with.
func (vm *VirtualMachine) handleCall(ctx context.Context, callee object.Object, self object.Object, args []object.Object) error {
	switch fn := callee.(type) {
	case *object.NativeFunction:
		defer object.Release(fn)
		result, err := fn.Call(ctx, self, args)
		if err != nil {
			return err
		}
		if result == nil {
			result = vm.heap.Nil()
		}
		vm.push(result)
		return nil
	case *object.Function:
		return vm.pushFunctionFrame(fn, self, args)
	default:
		object.Release(callee)
		return errz.Errorf(errz.Type, "'%s' object is not callable", callee.Type())
	}
}

// invoke calls fn synchronously and returns its owned result. User
// functions run in a nested dispatch loop that stops when their frame
// returns. args and self are borrowed.
func (vm *VirtualMachine) invoke(ctx context.Context, fn object.Object, self object.Object, args []object.Object) (object.Object, error) {
	switch fn := fn.(type) {
	case *object.NativeFunction:
		result, err := fn.Call(ctx, self, args)
		if err == nil && result == nil {
			result = vm.heap.Nil()
		}
		return result, err
	case *object.Function:
		if vm.halted {
			return nil, ErrHalted
		}
		floor := len(vm.frames)
		if err := vm.pushFunctionFrame(object.Retain(fn), self, args); err != nil {
			return nil, err
		}
		if err := vm.eval(ctx, floor); err != nil {
			return nil, err
		}
		if vm.halted {
			return nil, ErrHalted
		}
		return vm.pop(), nil
	default:
		return nil, errz.Errorf(errz.Type, "'%s' object is not callable", fn.Type())
	}
}

// Call calls fn with the given arguments once Run has completed, for
// example a function read with Get. The result is an owned reference.
func (vm *VirtualMachine) Call(ctx context.Context, fn object.Object, args ...object.Object) (result object.Object, err error) {
	if err := vm.start(ctx); err != nil {
		return nil, err
	}
	defer vm.stop()
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, recoverError(r)
		}
	}()
	if !vm.booted {
		return nil, fmt.Errorf("vm has not run")
	}
	if vm.failed {
		return nil, ErrFailed
	}
	if vm.halted {
		return nil, ErrHalted
	}
	ctx = vm.initContext(ctx)
	result, err = vm.invoke(ctx, fn, nil, args)
	if raised, ok := err.(*object.Raised); ok {
		name, msg, _ := object.ErrorInfo(raised.Value)
		unhandled := &UnhandledError{Name: name, Message: msg}
		if e, ok := raised.Value.(*object.Error); ok {
			unhandled.Trace = e.Trace()
		}
		object.Release(raised.Value)
		return nil, unhandled
	}
	return result, err
}

// createClosure builds a function from the template in constant i of the
// running frame, capturing the upvalues its body declares.
func (vm *VirtualMachine) createClosure(f *frame, i int) error {
	tmpl, ok := f.code.ConstantAt(i).(*bytecode.Function)
	if !ok {
		return errz.Errorf(errz.Type, "constant %d is not a function template", i)
	}
	body := tmpl.Code()
	if _, err := vm.load(body, f.module); err != nil {
		return err
	}
	cells := make([]*object.Cell, 0, body.CaptureCount())
	releaseCells := func() {
		for _, c := range cells {
			object.Release(c)
		}
	}
	top := len(vm.frames) - 1
	for j := 0; j < body.CaptureCount(); j++ {
		capture := body.CaptureAt(j)
		idx := top - capture.Depth
		if idx < 0 {
			releaseCells()
			return errz.Errorf(errz.Name, "capture depth %d exceeds the call stack", capture.Depth)
		}
		target := vm.frames[idx]
		if capture.FromFree {
			if target.fn == nil || capture.Slot >= target.fn.CellCount() {
				releaseCells()
				return errz.Errorf(errz.Name, "free variable %d is not defined", capture.Slot)
			}
			cells = append(cells, object.Retain(target.fn.Cell(capture.Slot)))
			continue
		}
		if capture.Slot < 0 || capture.Slot >= target.localCount() {
			releaseCells()
			return errz.Errorf(errz.Name, "local slot %d is not defined", capture.Slot)
		}
		slot := target.bp + capture.Slot
		cell, boxed := vm.stack[slot].(*object.Cell)
		if !boxed {
			// The cell takes over the slot's reference.
			cell = vm.heap.NewCell(vm.stack[slot])
			vm.stack[slot] = cell
		}
		cells = append(cells, object.Retain(cell))
	}
	vm.push(vm.heap.NewFunction(tmpl, cells))
	return nil
}
