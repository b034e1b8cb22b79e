package object

import (
	"context"
	"fmt"

	"github.com/kiz-lang/kiz/bytecode"
)

// ModuleInit builds a native module. It runs once per VM, the first time
// the module is imported.
type ModuleInit func(ctx context.Context, h *Heap) (*Module, error)

// Module is a namespace of members stored as attributes.
type Module struct {
	base
	name string
	path string
}

func (m *Module) Type() Type {
	return MODULE
}

func (m *Module) Inspect() string {
	return fmt.Sprintf("<module %s>", m.name)
}

// Name returns the module name.
func (m *Module) Name() string {
	return m.name
}

// Path returns the import path the module was loaded from.
func (m *Module) Path() string {
	return m.path
}

// Member returns a borrowed reference to a member defined on the module
// itself, ignoring the prototype chain.
func (m *Module) Member(name string) (Object, bool) {
	return m.attrs.Get(name)
}

// NewModule creates an empty module.
func (h *Heap) NewModule(name, path string) *Module {
	m := &Module{name: name, path: path}
	h.init(&m.base, MODULE)
	return m
}

// NewNativeModule creates a module whose members are native functions.
func (h *Heap) NewNativeModule(name string, funcs map[string]NativeFunc) *Module {
	m := h.NewModule(name, name)
	for _, fname := range sortedKeys(funcs) {
		m.attrs.set(fname, h.NewNative(fname, funcs[fname]))
	}
	return m
}

// CodeObject exposes a compiled unit as a value.
type CodeObject struct {
	base
	code *bytecode.Code
}

func (c *CodeObject) Type() Type {
	return CODE
}

func (c *CodeObject) Inspect() string {
	return fmt.Sprintf("<code_object %s>", c.code.Name())
}

// Code returns the compiled unit.
func (c *CodeObject) Code() *bytecode.Code {
	return c.code
}

// NewCodeObject wraps a compiled unit.
func (h *Heap) NewCodeObject(code *bytecode.Code) *CodeObject {
	c := &CodeObject{code: code}
	h.init(&c.base, CODE)
	return c
}
