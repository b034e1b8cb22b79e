// Package vm provides a VirtualMachine that executes compiled kiz code.
//
// The machine keeps one shared operand stack for every frame. A frame's
// locals are a window of that stack starting at the frame's base pointer;
// the root module's locals start at zero and double as the program globals.
// Every stack slot owns exactly one reference to the object it holds.
package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/kiz-lang/kiz/bytecode"
	"github.com/kiz-lang/kiz/errz"
	"github.com/kiz-lang/kiz/object"
	"github.com/rs/zerolog"
)

const (
	MaxFrameDepth = 1024

	// DefaultContextCheckInterval is the number of instructions between
	// checks of ctx.Done(). Set to 0 to disable.
	DefaultContextCheckInterval = 1000
)

var (
	// ErrHalted is returned by Call when the program executed STOP or an
	// observer halted execution.
	ErrHalted = errors.New("vm halted")

	// ErrFailed is returned by Run and Call once the program has stopped
	// with an unhandled error.
	ErrFailed = errors.New("vm stopped by an unhandled error")

	errObserverHalt = errors.New("execution halted by observer")
)

// UnhandledError is returned when a thrown error finds no handler in any
// live frame. The trace lists the position of each frame, outermost first.
type UnhandledError struct {
	Name    string
	Message string
	Trace   []errz.StackFrame
}

func (e *UnhandledError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

type VirtualMachine struct {
	heap   *object.Heap
	main   *bytecode.Code
	stack  []object.Object
	frames []*frame
	consts []object.Object
	loaded map[*bytecode.Code]*code

	root        *object.Module
	rootGlobals map[string]int
	booted      bool
	finished    bool
	failed      bool
	halted      bool
	closed      bool

	modules      map[string]*object.Module
	moduleOrder  []string
	moduleInits  map[string]object.ModuleInit
	builtins     *object.Module
	builtinsInit object.ModuleInit
	importer     Importer

	logger    zerolog.Logger
	errWriter io.Writer
	useColor  bool

	running  bool
	runMutex sync.Mutex

	// contextCheckInterval is the number of instructions between checks of
	// ctx.Done(). A value of 0 disables the check.
	contextCheckInterval int
	instructionCount     int64

	observer    Observer
	observerCfg ObserverConfig
	lastLine    int
}

// New creates a Virtual Machine for the given main unit. Nothing runs and
// no builtins are initialized until Run is called.
func New(main *bytecode.Code, options ...Option) *VirtualMachine {
	vm := &VirtualMachine{
		heap:                 object.NewHeap(),
		main:                 main,
		loaded:               map[*bytecode.Code]*code{},
		modules:              map[string]*object.Module{},
		moduleInits:          map[string]object.ModuleInit{},
		logger:               zerolog.Nop(),
		errWriter:            os.Stderr,
		contextCheckInterval: DefaultContextCheckInterval,
	}
	for _, opt := range options {
		opt(vm)
	}
	return vm
}

// Heap returns the heap that owns every object of this VM.
func (vm *VirtualMachine) Heap() *object.Heap {
	return vm.heap
}

func (vm *VirtualMachine) start(ctx context.Context) error {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.running {
		return fmt.Errorf("vm is already running")
	}
	if vm.closed {
		return fmt.Errorf("vm is closed")
	}
	vm.running = true
	if vm.observer != nil {
		vm.observerCfg = NormalizeConfig(vm.observer.Config())
	}
	return nil
}

func (vm *VirtualMachine) stop() {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	vm.running = false
}

// Run executes the main unit to completion. It returns an *UnhandledError
// when the program throws an error that no handler catches, and ctx.Err()
// when the context is cancelled.
func (vm *VirtualMachine) Run(ctx context.Context) (err error) {
	if err := vm.start(ctx); err != nil {
		return err
	}
	defer vm.stop()
	defer func() {
		if r := recover(); r != nil {
			err = recoverError(r)
		}
	}()
	if vm.failed {
		return ErrFailed
	}
	if vm.finished {
		return fmt.Errorf("vm has already run")
	}
	ctx = vm.initContext(ctx)
	if err := vm.boot(ctx); err != nil {
		return err
	}
	err = vm.eval(ctx, 0)
	var unhandled *UnhandledError
	if errors.As(err, &unhandled) {
		vm.failed = true
	}
	vm.logger.Debug().
		Int("frames", len(vm.frames)).
		Int("stack", len(vm.stack)).
		Int64("instructions", vm.instructionCount).
		Int("live_objects", vm.heap.Live()).
		Msg("run finished")
	return err
}

func recoverError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}

// boot prepares the builtins and pushes the root module frame.
func (vm *VirtualMachine) boot(ctx context.Context) error {
	if vm.booted {
		return nil
	}
	if vm.main == nil {
		return fmt.Errorf("vm has no main code")
	}
	vm.booted = true
	if vm.builtinsInit != nil {
		builtins, err := vm.builtinsInit(ctx, vm.heap)
		if err != nil {
			return fmt.Errorf("builtins: %w", err)
		}
		vm.builtins = builtins
	}
	name := vm.main.Name()
	if name == "" {
		name = "__main__"
	}
	vm.root = vm.heap.NewModule(name, vm.main.Path())
	vm.rootGlobals = map[string]int{}
	for i := 0; i < vm.main.LocalNameCount(); i++ {
		if n := vm.main.LocalNameAt(i); n != "" {
			vm.rootGlobals[n] = i
		}
	}
	vm.logger.Debug().
		Str("module", name).
		Int("locals", vm.main.LocalCount()).
		Msg("vm boot")
	return vm.pushModuleFrame(object.Retain(vm.root), vm.main)
}

// initContext installs the invoker natives use to call back into the VM.
func (vm *VirtualMachine) initContext(ctx context.Context) context.Context {
	if _, found := object.GetInvoker(ctx); !found {
		ctx = object.WithInvoker(ctx, vm.invoke)
	}
	return ctx
}

// Get returns a borrowed reference to a global of the root module: one of
// its named locals or a module attribute.
func (vm *VirtualMachine) Get(name string) (object.Object, bool) {
	if vm.root == nil {
		return nil, false
	}
	if slot, ok := vm.rootGlobals[name]; ok && slot < len(vm.stack) {
		return unwrapCell(vm.stack[slot]), true
	}
	return vm.root.Member(name)
}

// GlobalNames returns the names of the root module's named locals, sorted.
func (vm *VirtualMachine) GlobalNames() []string {
	names := make([]string, 0, len(vm.rootGlobals))
	for name := range vm.rootGlobals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TOS returns a borrowed reference to the top of the operand stack.
func (vm *VirtualMachine) TOS() (object.Object, bool) {
	if len(vm.stack) == 0 {
		return nil, false
	}
	return vm.stack[len(vm.stack)-1], true
}

// StackHeight returns the height of the shared operand stack.
func (vm *VirtualMachine) StackHeight() int {
	return len(vm.stack)
}

// FrameDepth returns the number of live frames.
func (vm *VirtualMachine) FrameDepth() int {
	return len(vm.frames)
}

// Close releases every reference held by the VM: frames, stack slots,
// constants, cached modules and builtins. It then closes the heap, which
// reports objects that are still alive.
func (vm *VirtualMachine) Close() error {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.running {
		return fmt.Errorf("vm is running")
	}
	if vm.closed {
		return nil
	}
	vm.closed = true

	var result error
	collect := func(fn func()) {
		defer func() {
			if r := recover(); r != nil {
				result = multierror.Append(result, recoverError(r))
			}
		}()
		fn()
	}
	collect(func() {
		for len(vm.frames) > 0 {
			vm.popFrame()
		}
		vm.truncate(0)
	})
	collect(func() {
		for i := len(vm.consts) - 1; i >= 0; i-- {
			object.Release(vm.consts[i])
		}
		vm.consts = nil
	})
	collect(func() {
		for i := len(vm.moduleOrder) - 1; i >= 0; i-- {
			object.Release(vm.modules[vm.moduleOrder[i]])
		}
		vm.modules = map[string]*object.Module{}
		vm.moduleOrder = nil
	})
	collect(func() {
		if vm.root != nil {
			object.Release(vm.root)
			vm.root = nil
		}
		if vm.builtins != nil {
			object.Release(vm.builtins)
			vm.builtins = nil
		}
	})
	if err := vm.heap.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	vm.logger.Debug().Bool("clean", result == nil).Msg("vm closed")
	return result
}

func (vm *VirtualMachine) push(obj object.Object) {
	vm.stack = append(vm.stack, obj)
}

func (vm *VirtualMachine) pop() object.Object {
	n := len(vm.stack) - 1
	obj := vm.stack[n]
	vm.stack[n] = nil
	vm.stack = vm.stack[:n]
	return obj
}

// popN removes the top n slots and returns them in push order. The caller
// takes over their references.
func (vm *VirtualMachine) popN(n int) []object.Object {
	start := len(vm.stack) - n
	items := make([]object.Object, n)
	copy(items, vm.stack[start:])
	for i := start; i < len(vm.stack); i++ {
		vm.stack[i] = nil
	}
	vm.stack = vm.stack[:start]
	return items
}

// truncate releases every slot at or above height.
func (vm *VirtualMachine) truncate(height int) {
	for len(vm.stack) > height {
		object.Release(vm.pop())
	}
}

func sortedNames(m map[string]object.Object) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func unwrapCell(obj object.Object) object.Object {
	if cell, ok := obj.(*object.Cell); ok {
		return cell.Get()
	}
	return obj
}
