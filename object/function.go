package object

import (
	"context"
	"fmt"

	"github.com/kiz-lang/kiz/bytecode"
)

// Function is a user function: a compiled template plus the cells captured
// when the closure was created.
type Function struct {
	base
	template *bytecode.Function
	cells    []*Cell
}

func (f *Function) Type() Type {
	return FUNCTION
}

func (f *Function) Inspect() string {
	return fmt.Sprintf("<function %s>", f.Name())
}

// Name returns the function name.
func (f *Function) Name() string {
	if name := f.template.Name(); name != "" {
		return name
	}
	return "<anonymous>"
}

// Template returns the compiled function template.
func (f *Function) Template() *bytecode.Function {
	return f.template
}

// Code returns the compiled body.
func (f *Function) Code() *bytecode.Code {
	return f.template.Code()
}

// ParamCount returns the number of arguments the function accepts.
func (f *Function) ParamCount() int {
	return f.template.ParamCount()
}

// CellCount returns the number of captured variables.
func (f *Function) CellCount() int {
	return len(f.cells)
}

// Cell returns a borrowed reference to captured variable i.
func (f *Function) Cell(i int) *Cell {
	return f.cells[i]
}

func (f *Function) finalize() error {
	cells := f.cells
	f.cells = nil
	for _, c := range cells {
		Release(c)
	}
	return nil
}

// NewFunction creates a function from a template, taking ownership of cells.
func (h *Heap) NewFunction(template *bytecode.Function, cells []*Cell) *Function {
	f := &Function{template: template, cells: cells}
	h.init(&f.base, FUNCTION)
	return f
}

// NativeFunc is the signature of functions implemented in Go. self is the
// bound receiver, or nil for a plain call. self and args are borrowed; the
// returned object is an owned reference. Failures are reported by returning
// an error, usually an *errz.Error carrying the kind user code catches.
type NativeFunc func(ctx context.Context, self Object, args []Object) (Object, error)

// NativeFunction wraps a Go function so it can be called from user code.
type NativeFunction struct {
	base
	name string
	fn   NativeFunc
}

func (n *NativeFunction) Type() Type {
	return NATIVE
}

func (n *NativeFunction) Inspect() string {
	return fmt.Sprintf("<native_function %s>", n.name)
}

// Name returns the function name.
func (n *NativeFunction) Name() string {
	return n.name
}

// Call invokes the Go function.
func (n *NativeFunction) Call(ctx context.Context, self Object, args []Object) (Object, error) {
	return n.fn(ctx, self, args)
}

// NewNative creates a native function object.
func (h *Heap) NewNative(name string, fn NativeFunc) *NativeFunction {
	n := &NativeFunction{name: name, fn: fn}
	h.init(&n.base, NATIVE)
	return n
}

// Cell is shared storage for a captured variable. A local captured by a
// closure is moved into a cell so that the defining frame and every closure
// read and write the same slot.
type Cell struct {
	base
	value Object
}

func (c *Cell) Type() Type {
	return CELL
}

func (c *Cell) Inspect() string {
	if c.value == nil {
		return "cell()"
	}
	return fmt.Sprintf("cell(%s)", Repr(c.value))
}

// Get returns a borrowed reference to the stored value.
func (c *Cell) Get() Object {
	return c.value
}

// Set stores value, taking ownership of it and releasing the previous value.
func (c *Cell) Set(value Object) {
	old := c.value
	c.value = value
	Release(old)
}

func (c *Cell) finalize() error {
	v := c.value
	c.value = nil
	Release(v)
	return nil
}

// NewCell creates a cell holding value, taking ownership of it.
func (h *Heap) NewCell(value Object) *Cell {
	c := &Cell{value: value}
	h.init(&c.base, CELL)
	return c
}
