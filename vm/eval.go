package vm

import (
	"context"

	"github.com/kiz-lang/kiz/bytecode"
	"github.com/kiz-lang/kiz/errz"
	"github.com/kiz-lang/kiz/object"
	"github.com/kiz-lang/kiz/op"
)

// eval runs the dispatch loop until the frame stack drops to floor. The
// root module frame is never popped: reaching its end returns.
func (vm *VirtualMachine) eval(ctx context.Context, floor int) error {
	checkInterval := int64(vm.contextCheckInterval)

	for len(vm.frames) > floor {
		if vm.halted {
			return nil
		}
		vm.instructionCount++
		if checkInterval > 0 && vm.instructionCount%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		f := vm.frames[len(vm.frames)-1]
		if f.pc >= f.code.InstructionCount() {
			done, err := vm.finishFrame(f)
			if err != nil {
				if err = vm.handleError(ctx, err, floor); err != nil {
					return err
				}
			}
			if done {
				return nil
			}
			continue
		}

		instr := f.code.InstructionAt(f.pc)
		if vm.observer != nil && !vm.observeStep(f, instr) {
			vm.halted = true
			return errObserverHalt
		}
		if err := vm.step(ctx, f, instr); err != nil {
			if err = vm.handleError(ctx, err, floor); err != nil {
				return err
			}
			continue
		}
		if !op.GetInfo(instr.Op).Transfer {
			f.pc++
		}
	}
	return nil
}

// finishFrame handles a frame whose pc ran past its code. done is true when
// the root module finished.
func (vm *VirtualMachine) finishFrame(f *frame) (done bool, err error) {
	if !f.isModule {
		return false, vm.returnFrame(vm.heap.Nil())
	}
	if f.module == vm.root && len(vm.frames) == 1 {
		vm.finished = true
		return true, nil
	}
	return false, vm.finishModule(f)
}

func (vm *VirtualMachine) observeStep(f *frame, instr bytecode.Instruction) bool {
	cfg := vm.observerCfg
	switch cfg.StepMode {
	case StepNone:
		return true
	case StepSampled:
		if vm.instructionCount%int64(cfg.SampleInterval) != 0 {
			return true
		}
	case StepOnLine:
		if instr.Pos.Line == vm.lastLine {
			return true
		}
		vm.lastLine = instr.Pos.Line
	}
	return vm.observer.OnStep(StepEvent{
		PC:         f.pc,
		Opcode:     instr.Op,
		OpcodeName: instr.Op.String(),
		Location:   f.location(f.pc),
		StackDepth: len(vm.stack),
		FrameDepth: len(vm.frames),
	})
}

// step executes one instruction of f. Transfer opcodes set f.pc; the loop
// advances it for everything else.
func (vm *VirtualMachine) step(ctx context.Context, f *frame, instr bytecode.Instruction) error {
	h := vm.heap
	switch instr.Op {
	case op.Add, op.Sub, op.Mul, op.Div, op.Mod, op.Pow, op.Eq, op.Gt, op.Lt:
		name, _ := op.BinaryMethod(instr.Op)
		b := vm.pop()
		a := vm.pop()
		defer object.ReleaseAll(a, b)
		result, err := object.CallMethod(ctx, a, name, b)
		if err != nil {
			return err
		}
		vm.push(result)

	case op.Ge, op.Le:
		strict := "__gt__"
		if instr.Op == op.Le {
			strict = "__lt__"
		}
		b := vm.pop()
		a := vm.pop()
		defer object.ReleaseAll(a, b)
		ordered, err := vm.truth(ctx, a, strict, b)
		if err != nil {
			return err
		}
		equal, err := vm.truth(ctx, a, "__eq__", b)
		if err != nil {
			return err
		}
		vm.push(h.Bool(ordered || equal))

	case op.Ne:
		b := vm.pop()
		a := vm.pop()
		defer object.ReleaseAll(a, b)
		equal, err := vm.truth(ctx, a, "__eq__", b)
		if err != nil {
			return err
		}
		vm.push(h.Bool(!equal))

	case op.Neg:
		a := vm.pop()
		defer object.Release(a)
		result, err := object.CallMethod(ctx, a, "__neg__")
		if err != nil {
			return err
		}
		vm.push(result)

	case op.Not:
		a := vm.pop()
		vm.push(h.Bool(!object.IsTrue(a)))
		object.Release(a)

	case op.Is:
		b := vm.pop()
		a := vm.pop()
		vm.push(h.Bool(a == b))
		object.ReleaseAll(a, b)

	case op.In:
		container := vm.pop()
		item := vm.pop()
		defer object.ReleaseAll(container, item)
		result, err := object.CallMethod(ctx, container, "__contains__", item)
		if err != nil {
			return err
		}
		vm.push(result)

	case op.MakeList:
		return vm.makeList(f, instr.Operand(0))

	case op.MakeDict:
		return vm.makeDict(ctx, f, instr.Operand(0))

	case op.CreateObject:
		vm.push(h.NewInstance())

	case op.Call:
		callee := vm.pop()
		argsObj := vm.pop()
		defer object.Release(argsObj)
		args, ok := argsObj.(*object.List)
		if !ok {
			object.Release(callee)
			return errz.Errorf(errz.Type, "call arguments must be a list, not %s", argsObj.Type())
		}
		return vm.handleCall(ctx, callee, nil, args.Items())

	case op.CallMethod:
		name := f.code.NameAt(instr.Operand(0))
		recv := vm.pop()
		argsObj := vm.pop()
		defer object.ReleaseAll(recv, argsObj)
		args, ok := argsObj.(*object.List)
		if !ok {
			return errz.Errorf(errz.Type, "call arguments must be a list, not %s", argsObj.Type())
		}
		method, found := object.GetAttr(recv, name)
		if !found {
			return errz.Errorf(errz.Name, "'%s' object has no attribute '%s'", recv.Type(), name)
		}
		return vm.handleCall(ctx, object.Retain(method), recv, args.Items())

	case op.Ret:
		value := vm.pop()
		if f.isModule {
			object.Release(value)
			f.pc = f.code.InstructionCount()
			return nil
		}
		return vm.returnFrame(value)

	case op.CreateClosure:
		return vm.createClosure(f, instr.Operand(0))

	case op.Import:
		return vm.importModule(ctx, f.code.NameAt(instr.Operand(0)))

	case op.Stop:
		vm.halted = true
		vm.logger.Debug().Int("frames", len(vm.frames)).Msg("stop")

	case op.GetAttr:
		name := f.code.NameAt(instr.Operand(0))
		obj := vm.pop()
		defer object.Release(obj)
		value, found := object.GetAttr(obj, name)
		if !found {
			return errz.Errorf(errz.Name, "'%s' object has no attribute '%s'", obj.Type(), name)
		}
		vm.push(object.Retain(value))

	case op.SetAttr:
		name := f.code.NameAt(instr.Operand(0))
		value := vm.pop()
		obj := vm.pop()
		defer object.ReleaseAll(value, obj)
		return object.SetAttr(obj, name, object.CopyOrRef(value))

	case op.GetItem:
		obj := vm.pop()
		argsObj := vm.pop()
		defer object.ReleaseAll(obj, argsObj)
		args, ok := argsObj.(*object.List)
		if !ok {
			return errz.Errorf(errz.Type, "item arguments must be a list, not %s", argsObj.Type())
		}
		result, err := object.CallMethod(ctx, obj, "__getitem__", args.Items()...)
		if err != nil {
			return err
		}
		vm.push(result)

	case op.SetItem:
		value := vm.pop()
		key := vm.pop()
		obj := vm.pop()
		defer object.ReleaseAll(value, key, obj)
		result, err := object.CallMethod(ctx, obj, "__setitem__", key, value)
		if err != nil {
			return err
		}
		object.Release(result)

	case op.IsChild:
		b := vm.pop()
		a := vm.pop()
		vm.push(h.Bool(object.IsChild(a, b)))
		object.ReleaseAll(a, b)

	case op.LoadVar:
		slot, err := vm.localSlot(f, instr.Operand(0))
		if err != nil {
			return err
		}
		vm.push(object.Retain(unwrapCell(vm.stack[slot])))

	case op.LoadGlobal:
		slot, err := vm.globalSlot(instr.Operand(0))
		if err != nil {
			return err
		}
		vm.push(object.Retain(unwrapCell(vm.stack[slot])))

	case op.LoadConst:
		value, err := vm.constantAt(f.code, instr.Operand(0))
		if err != nil {
			return err
		}
		vm.push(object.Retain(value))

	case op.LoadFree:
		cell, err := freeCell(f, instr.Operand(0))
		if err != nil {
			return err
		}
		vm.push(object.Retain(cell.Get()))

	case op.LoadName:
		return vm.loadName(f, f.code.NameAt(instr.Operand(0)))

	case op.SetLocal:
		slot, err := vm.localSlot(f, instr.Operand(0))
		if err != nil {
			return err
		}
		vm.store(slot)

	case op.SetGlobal:
		slot, err := vm.globalSlot(instr.Operand(0))
		if err != nil {
			return err
		}
		vm.store(slot)

	case op.SetNonlocal:
		cell, err := freeCell(f, instr.Operand(0))
		if err != nil {
			return err
		}
		value := vm.pop()
		cell.Set(object.CopyOrRef(value))
		object.Release(value)

	case op.SetName:
		return vm.setName(f, f.code.NameAt(instr.Operand(0)))

	case op.EnterTry:
		f.tries = append(f.tries, tryBlock{
			catchPC:     instr.Operand(0),
			finallyPC:   instr.Operand(1),
			stackHeight: len(vm.stack),
			iterDepth:   len(f.iters),
		})

	case op.MarkHandleError:
		if n := len(f.tries); n > 0 {
			f.tries[n-1].handled = true
		}
		f.clearError()

	case op.JumpIfFinishHandleError:
		handled := false
		if n := len(f.tries); n > 0 {
			handled = f.tries[n-1].handled
			f.tries = f.tries[:n-1]
		}
		if f.err != nil {
			pending := f.err
			f.err = nil
			return &object.Raised{Value: pending}
		}
		if handled {
			f.pc = instr.Operand(0)
		} else {
			f.pc++
		}

	case op.Throw:
		value := vm.pop()
		if _, _, ok := object.ErrorInfo(value); !ok {
			kind := value.Type()
			object.Release(value)
			return errz.Errorf(errz.Name, "thrown %s object has no string __name__ and __msg__", kind)
		}
		if e, ok := value.(*object.Error); ok && e.Trace() == nil {
			e.SetTrace(vm.captureTrace())
		}
		return &object.Raised{Value: value}

	case op.LoadError:
		if f.err != nil {
			vm.push(object.Retain(f.err))
		} else {
			vm.push(h.Nil())
		}

	case op.Jump:
		f.pc = instr.Operand(0)

	case op.JumpIfFalse:
		cond := vm.pop()
		if object.IsTrue(cond) {
			f.pc++
		} else {
			f.pc = instr.Operand(0)
		}
		object.Release(cond)

	case op.CacheIter:
		top, ok := vm.TOS()
		if !ok {
			return errz.New(errz.Type, "no iterator on the stack")
		}
		f.iters = append(f.iters, object.Retain(top))

	case op.GetIter:
		n := len(f.iters)
		if n == 0 {
			return errz.New(errz.Type, "no active iterator")
		}
		vm.push(object.Retain(f.iters[n-1]))

	case op.PopIter:
		if n := len(f.iters); n > 0 {
			object.Release(f.iters[n-1])
			f.iters = f.iters[:n-1]
		}

	case op.JumpIfFinishIter:
		value := vm.pop()
		if h.IsStopIteration(value) {
			f.pc = instr.Operand(0)
		} else {
			f.pc++
		}
		object.Release(value)

	case op.CopyTop:
		top, ok := vm.TOS()
		if !ok {
			return errz.New(errz.Type, "copy of an empty stack")
		}
		vm.push(object.Retain(top))

	case op.PopTop:
		object.Release(vm.pop())

	default:
		return errz.Errorf(errz.Future, "unknown opcode %d", instr.Op)
	}
	return nil
}

// truth calls the named comparison method and returns its truth value.
func (vm *VirtualMachine) truth(ctx context.Context, a object.Object, name string, b object.Object) (bool, error) {
	result, err := object.CallMethod(ctx, a, name, b)
	if err != nil {
		return false, err
	}
	defer object.Release(result)
	return object.IsTrue(result), nil
}

func (vm *VirtualMachine) localSlot(f *frame, i int) (int, error) {
	if i < 0 || i >= f.localCount() {
		return 0, errz.Errorf(errz.Index, "local slot %d out of range", i)
	}
	return f.bp + i, nil
}

func (vm *VirtualMachine) globalSlot(i int) (int, error) {
	if len(vm.frames) == 0 || i < 0 || i >= vm.frames[0].localCount() {
		return 0, errz.Errorf(errz.Index, "global slot %d out of range", i)
	}
	return i, nil
}

// store pops TOS into a stack slot, writing through a cell when the slot
// has been captured by a closure.
func (vm *VirtualMachine) store(slot int) {
	value := vm.pop()
	stored := object.CopyOrRef(value)
	object.Release(value)
	if cell, ok := vm.stack[slot].(*object.Cell); ok {
		cell.Set(stored)
		return
	}
	old := vm.stack[slot]
	vm.stack[slot] = stored
	object.Release(old)
}

func freeCell(f *frame, i int) (*object.Cell, error) {
	if f.fn == nil || i < 0 || i >= f.fn.CellCount() {
		return nil, errz.Errorf(errz.Name, "free variable %d is not defined", i)
	}
	return f.fn.Cell(i), nil
}

// loadName resolves name through the frame's dynamic variables, its module,
// the root module globals and finally the builtins.
func (vm *VirtualMachine) loadName(f *frame, name string) error {
	if value, ok := f.dynVars[name]; ok {
		vm.push(object.Retain(value))
		return nil
	}
	if f.module != nil {
		if value, ok := f.module.Member(name); ok {
			vm.push(object.Retain(value))
			return nil
		}
	}
	if value, ok := vm.Get(name); ok {
		vm.push(object.Retain(value))
		return nil
	}
	if vm.builtins != nil {
		if value, ok := vm.builtins.Member(name); ok {
			vm.push(object.Retain(value))
			return nil
		}
	}
	return errz.Errorf(errz.Name, "name '%s' is not defined", name)
}

// setName pops TOS into a module attribute, for module frames, or into the
// frame's dynamic variables.
func (vm *VirtualMachine) setName(f *frame, name string) error {
	value := vm.pop()
	stored := object.CopyOrRef(value)
	object.Release(value)
	if f.isModule {
		return object.SetAttr(f.module, name, stored)
	}
	if f.dynVars == nil {
		f.dynVars = map[string]object.Object{}
	}
	if old, ok := f.dynVars[name]; ok {
		object.Release(old)
	}
	f.dynVars[name] = stored
	return nil
}

func (vm *VirtualMachine) makeList(f *frame, n int) error {
	if n < 0 || n > vm.temporaries(f) {
		return errz.Errorf(errz.ListMade, "cannot build a list of %d elements", n)
	}
	items := vm.popN(n)
	// Guards against malformed bytecode leaving an empty slot.
	for _, item := range items {
		if item == nil {
			object.ReleaseAll(nonNil(items)...)
			return errz.New(errz.ListMade, "list element is null")
		}
	}
	vm.push(vm.heap.NewList(items))
	return nil
}

// makeDict builds a dict from n key/value pairs, keys hashed with their
// "__hash__" method.
func (vm *VirtualMachine) makeDict(ctx context.Context, f *frame, n int) error {
	if n < 0 || 2*n > vm.temporaries(f) {
		return errz.Errorf(errz.DictMade, "cannot build a dict of %d entries", n)
	}
	items := vm.popN(2 * n)
	// See makeList.
	for _, item := range items {
		if item == nil {
			object.ReleaseAll(nonNil(items)...)
			return errz.New(errz.DictMade, "dict entry is null")
		}
	}
	dict := vm.heap.NewDict()
	for i := 0; i < len(items); i += 2 {
		key, value := items[i], items[i+1]
		hash, err := object.Hash(ctx, key)
		if err != nil {
			object.ReleaseAll(items[i:]...)
			object.Release(dict)
			return err
		}
		dict.Set(hash, key, value)
	}
	vm.push(dict)
	return nil
}

// temporaries returns the number of stack slots f holds above its locals.
func (vm *VirtualMachine) temporaries(f *frame) int {
	return len(vm.stack) - (f.bp + f.localCount())
}

func nonNil(objs []object.Object) []object.Object {
	out := make([]object.Object, 0, len(objs))
	for _, obj := range objs {
		if obj != nil {
			out = append(out, obj)
		}
	}
	return out
}
