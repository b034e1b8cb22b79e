package vm

import (
	"io"

	"github.com/kiz-lang/kiz/object"
	"github.com/rs/zerolog"
)

// Option is a configuration function for a Virtual Machine.
type Option func(*VirtualMachine)

// WithLogger sets the logger used for VM debug events. The default logger
// discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VirtualMachine) {
		vm.logger = logger
	}
}

// WithBuiltins sets the module whose members are visible to every LOAD_NAME
// lookup that misses the frame and module scopes.
func WithBuiltins(init object.ModuleInit) Option {
	return func(vm *VirtualMachine) {
		vm.builtinsInit = init
	}
}

// WithModule registers a native module that IMPORT can load by name. The
// initializer runs once, on first import.
func WithModule(name string, init object.ModuleInit) Option {
	return func(vm *VirtualMachine) {
		vm.moduleInits[name] = init
	}
}

// WithImporter sets the importer used for module names that are not
// registered with WithModule.
func WithImporter(importer Importer) Option {
	return func(vm *VirtualMachine) {
		vm.importer = importer
	}
}

// WithErrorWriter sets where unhandled error traces are printed. Passing
// nil disables printing.
func WithErrorWriter(w io.Writer) Option {
	return func(vm *VirtualMachine) {
		vm.errWriter = w
	}
}

// WithColor enables or disables ANSI colors in printed traces.
func WithColor(enabled bool) Option {
	return func(vm *VirtualMachine) {
		vm.useColor = enabled
	}
}

// WithContextCheckInterval sets how often the VM checks ctx.Done() during
// execution, in number of instructions. A value of 0 disables the check.
// The default is DefaultContextCheckInterval.
func WithContextCheckInterval(interval int) Option {
	return func(vm *VirtualMachine) {
		vm.contextCheckInterval = interval
	}
}

// WithObserver sets an observer for VM execution events.
//
// Observer methods are called synchronously during execution, so
// implementations should be fast. Returning false from any observer method
// halts execution.
func WithObserver(observer Observer) Option {
	return func(vm *VirtualMachine) {
		vm.observer = observer
	}
}
