package vm

import (
	"bytes"
	"context"
	"testing"

	"github.com/kiz-lang/kiz/bytecode"
	"github.com/kiz-lang/kiz/errz"
	"github.com/kiz-lang/kiz/object"
	"github.com/kiz-lang/kiz/op"
	"github.com/stretchr/testify/require"
)

func ins(code op.Code, operands ...int) bytecode.Instruction {
	return bytecode.Instruction{Op: code, Operands: operands}
}

func insAt(line int, code op.Code, operands ...int) bytecode.Instruction {
	return bytecode.Instruction{Op: code, Operands: operands, Pos: errz.SourceLocation{Line: line, Column: 1}}
}

func fn(name string, params int, body bytecode.CodeParams) *bytecode.Function {
	if body.Name == "" {
		body.Name = name
	}
	return bytecode.NewFunction(bytecode.FunctionParams{
		Name:       name,
		ParamCount: params,
		Code:       bytecode.NewCode(body),
	})
}

// newTestVM creates a VM for main that prints traces into the returned
// buffer and checks on cleanup that closing it leaves no live objects.
func newTestVM(t *testing.T, main bytecode.CodeParams, opts ...Option) (*VirtualMachine, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	opts = append([]Option{WithErrorWriter(&buf)}, opts...)
	machine := New(bytecode.NewCode(main), opts...)
	t.Cleanup(func() {
		require.NoError(t, machine.Close())
	})
	return machine, &buf
}

func run(t *testing.T, main bytecode.CodeParams, opts ...Option) *VirtualMachine {
	t.Helper()
	machine, buf := newTestVM(t, main, opts...)
	require.NoError(t, machine.Run(context.Background()), buf.String())
	return machine
}

func runUnhandled(t *testing.T, main bytecode.CodeParams, opts ...Option) (*UnhandledError, string) {
	t.Helper()
	machine, buf := newTestVM(t, main, opts...)
	err := machine.Run(context.Background())
	require.Error(t, err)
	unhandled, ok := err.(*UnhandledError)
	require.True(t, ok, "expected *UnhandledError, got %T: %v", err, err)
	return unhandled, buf.String()
}

func global(t *testing.T, machine *VirtualMachine, name string) object.Object {
	t.Helper()
	value, ok := machine.Get(name)
	require.True(t, ok, "global %q not found", name)
	return value
}

func requireInt(t *testing.T, obj object.Object, expected int64) {
	t.Helper()
	i, ok := obj.(*object.Int)
	require.True(t, ok, "expected int, got %s", obj.Type())
	require.Equal(t, expected, i.Value())
}

func requireString(t *testing.T, obj object.Object, expected string) {
	t.Helper()
	s, ok := obj.(*object.String)
	require.True(t, ok, "expected str, got %s", obj.Type())
	require.Equal(t, expected, s.Value())
}

func requireBool(t *testing.T, obj object.Object, expected bool) {
	t.Helper()
	b, ok := obj.(*object.Bool)
	require.True(t, ok, "expected bool, got %s", obj.Type())
	require.Equal(t, expected, b.Value())
}

// testModule builds a native module from the given functions.
func testModule(name string, funcs map[string]object.NativeFunc) object.ModuleInit {
	return func(ctx context.Context, h *object.Heap) (*object.Module, error) {
		return h.NewNativeModule(name, funcs), nil
	}
}
