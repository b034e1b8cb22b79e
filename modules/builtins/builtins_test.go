package builtins

import (
	"bytes"
	"context"
	"testing"

	"github.com/kiz-lang/kiz/bytecode"
	"github.com/kiz-lang/kiz/errz"
	"github.com/kiz-lang/kiz/object"
	"github.com/kiz-lang/kiz/op"
	"github.com/kiz-lang/kiz/vm"
	"github.com/stretchr/testify/require"
)

func newModule(t *testing.T) (*object.Heap, *object.Module, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	h := object.NewHeap()
	m, err := Module(&out)(context.Background(), h)
	require.NoError(t, err)
	t.Cleanup(func() {
		object.Release(m)
		require.NoError(t, h.Close())
	})
	return h, m, &out
}

func call(t *testing.T, m *object.Module, name string, args ...object.Object) (object.Object, error) {
	t.Helper()
	fn, ok := m.Member(name)
	require.True(t, ok, "builtin %q not found", name)
	return object.Call(context.Background(), fn, nil, args)
}

func TestPrint(t *testing.T) {
	h, m, out := newModule(t)
	args := []object.Object{h.String("total:"), h.Int(42), h.Bool(true)}
	defer object.ReleaseAll(args...)

	result, err := call(t, m, "print", args...)
	require.NoError(t, err)
	defer object.Release(result)
	require.Equal(t, object.NIL, result.Type())
	require.Equal(t, "total: 42 True\n", out.String())
}

func TestLen(t *testing.T) {
	h, m, _ := newModule(t)
	list := h.NewList([]object.Object{h.Int(1), h.Int(2), h.Int(3)})
	s := h.String("hello")
	defer object.ReleaseAll(list, s)

	n, err := call(t, m, "len", list)
	require.NoError(t, err)
	require.Equal(t, "3", n.Inspect())
	object.Release(n)

	n, err = call(t, m, "len", s)
	require.NoError(t, err)
	require.Equal(t, "5", n.Inspect())
	object.Release(n)

	i := h.Int(7)
	defer object.Release(i)
	_, err = call(t, m, "len", i)
	require.Equal(t, errz.Name, errz.KindOf(err))
}

func TestStrAndRepr(t *testing.T) {
	h, m, _ := newModule(t)
	s := h.String("a b")
	defer object.Release(s)

	str, err := call(t, m, "str", s)
	require.NoError(t, err)
	require.Equal(t, "a b", str.(*object.String).Value())
	repr, err := call(t, m, "repr", s)
	require.NoError(t, err)
	require.Equal(t, `"a b"`, repr.(*object.String).Value())
	object.ReleaseAll(str, repr)
}

func TestRange(t *testing.T) {
	tests := []struct {
		name     string
		bounds   []int64
		expected []int64
	}{
		{"stop", []int64{4}, []int64{0, 1, 2, 3}},
		{"start stop", []int64{2, 5}, []int64{2, 3, 4}},
		{"step", []int64{0, 10, 3}, []int64{0, 3, 6, 9}},
		{"negative step", []int64{3, 0, -1}, []int64{3, 2, 1}},
		{"empty", []int64{5, 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m, _ := newModule(t)
			args := make([]object.Object, len(tt.bounds))
			for i, b := range tt.bounds {
				args[i] = h.Int(b)
			}
			defer object.ReleaseAll(args...)

			result, err := call(t, m, "range", args...)
			require.NoError(t, err)
			it := result.(*object.Iterator)
			defer object.Release(it)

			var got []int64
			for {
				v := it.Next()
				if h.IsStopIteration(v) {
					object.Release(v)
					break
				}
				got = append(got, v.(*object.Int).Value())
				object.Release(v)
			}
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestRangeErrors(t *testing.T) {
	h, m, _ := newModule(t)
	zero, one, s := h.Int(0), h.Int(1), h.String("x")
	defer object.ReleaseAll(zero, one, s)

	_, err := call(t, m, "range", zero, one, zero)
	require.EqualError(t, err, "TypeError: range() step must not be zero")
	_, err = call(t, m, "range", s)
	require.Equal(t, errz.Type, errz.KindOf(err))
	_, err = call(t, m, "range")
	require.Equal(t, errz.ArgCount, errz.KindOf(err))
}

func TestTypeHashAndIsChild(t *testing.T) {
	h, m, _ := newModule(t)
	parent := h.NewInstance()
	child := h.NewInstance()
	require.NoError(t, object.SetAttr(child, "__parent__", object.Retain(parent)))
	s := h.String("key")
	defer object.ReleaseAll(parent, child, s)

	typ, err := call(t, m, "type", s)
	require.NoError(t, err)
	require.Equal(t, "str", typ.(*object.String).Value())

	hash, err := call(t, m, "hash", s)
	require.NoError(t, err)
	expected, err := object.Hash(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, expected, hash.(*object.Int).Value())

	yes, err := call(t, m, "is_child", child, parent)
	require.NoError(t, err)
	require.True(t, yes.(*object.Bool).Value())
	no, err := call(t, m, "is_child", parent, child)
	require.NoError(t, err)
	require.False(t, no.(*object.Bool).Value())
	object.ReleaseAll(typ, hash, yes, no)
}

func TestErrorConstructor(t *testing.T) {
	h, m, _ := newModule(t)
	name, msg := h.String("ValueError"), h.String("bad value")
	defer object.ReleaseAll(name, msg)

	result, err := call(t, m, "Error", name, msg)
	require.NoError(t, err)
	defer object.Release(result)
	e := result.(*object.Error)
	require.Equal(t, "ValueError", e.Name())
	require.Equal(t, "bad value", e.Message())

	alias, err := call(t, m, "make_error", name, msg)
	require.NoError(t, err)
	require.Equal(t, "ValueError", alias.(*object.Error).Name())
	object.Release(alias)

	_, err = call(t, m, "Error", msg)
	require.Equal(t, errz.ArgCount, errz.KindOf(err))
}

func TestPrintFromProgram(t *testing.T) {
	var out bytes.Buffer
	main := bytecode.NewCode(bytecode.CodeParams{
		Constants: []any{"sum", int64(2), int64(3)},
		Names:     []string{"print"},
		Instructions: []bytecode.Instruction{
			{Op: op.LoadConst, Operands: []int{0}},
			{Op: op.LoadConst, Operands: []int{1}},
			{Op: op.LoadConst, Operands: []int{2}},
			{Op: op.Add},
			{Op: op.MakeList, Operands: []int{2}},
			{Op: op.LoadName, Operands: []int{0}},
			{Op: op.Call},
			{Op: op.PopTop},
		},
	})
	err := vm.Run(context.Background(), main, vm.WithBuiltins(Module(&out)))
	require.NoError(t, err)
	require.Equal(t, "sum 5\n", out.String())
}
