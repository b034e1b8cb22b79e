package object

import (
	"context"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/kiz-lang/kiz/errz"
	"github.com/stretchr/testify/require"
)

func TestIsTrue(t *testing.T) {
	h := NewHeap()
	tests := []struct {
		name     string
		obj      Object
		expected bool
	}{
		{"nil", h.Nil(), false},
		{"true", h.Bool(true), true},
		{"false", h.Bool(false), false},
		{"zero", h.Int(0), false},
		{"non-zero", h.Int(-3), true},
		{"zero decimal", h.Decimal(apd.New(0, 0)), false},
		{"decimal", h.Decimal(apd.New(15, -1)), true},
		{"empty string", h.String(""), false},
		{"string", h.String("x"), true},
		{"empty list", h.NewList(nil), false},
		{"list", h.NewList([]Object{h.Nil()}), true},
		{"empty dict", h.NewDict(), false},
		{"object", h.NewInstance(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, IsTrue(tt.obj))
		})
		Release(tt.obj)
	}
	require.False(t, IsTrue(nil))
	require.NoError(t, h.Close())
}

func TestCopyOrRef(t *testing.T) {
	h := NewHeap()

	small := h.Int(7)
	smallCopy := CopyOrRef(small)
	require.Same(t, small, smallCopy)

	big := h.Int(100000)
	bigCopy := CopyOrRef(big)
	require.NotSame(t, big, bigCopy)
	require.Equal(t, int64(100000), bigCopy.(*Int).Value())
	require.Equal(t, 1, big.RefCount())

	s := h.String("abc")
	sCopy := CopyOrRef(s)
	require.NotSame(t, s, sCopy)
	require.Equal(t, "abc", sCopy.(*String).Value())

	l := h.NewList(nil)
	lRef := CopyOrRef(l)
	require.Same(t, l, lRef)
	require.Equal(t, 2, l.RefCount())

	ReleaseAll(small, smallCopy, big, bigCopy, s, sCopy, l, lRef)
	require.NoError(t, h.Close())
}

func TestAssertArgc(t *testing.T) {
	h := NewHeap()
	args := []Object{h.Nil(), h.Nil(), h.Nil()}
	require.NoError(t, AssertArgc(args, 3))

	err := AssertArgc(args, 1, 2)
	require.Error(t, err)
	require.Equal(t, errz.ArgCount, errz.KindOf(err))
	require.Equal(t, "ArgCountError: expect 1 or 2 arguments but got 3 arguments", err.Error())

	err = AssertArgc(nil, 1)
	require.EqualError(t, err, "ArgCountError: expect 1 arguments but got 0 arguments")
	ReleaseAll(args...)
	require.NoError(t, h.Close())
}

func TestCallWithoutInvoker(t *testing.T) {
	h := NewHeap()
	ctx := context.Background()
	obj := h.NewInstance()
	_, err := Call(ctx, obj, nil, nil)
	require.Error(t, err)
	require.Equal(t, errz.Type, errz.KindOf(err))

	_, err = CallMethod(ctx, obj, "missing")
	require.EqualError(t, err, "NameError: 'object' object has no attribute 'missing'")

	var gotSelf Object
	invoked := false
	ctx = WithInvoker(ctx, func(ctx context.Context, fn, self Object, args []Object) (Object, error) {
		invoked = true
		gotSelf = self
		return h.Int(1), nil
	})
	fn := h.NewFunction(nil, nil)
	require.NoError(t, SetAttr(obj, "m", fn))
	res, err := CallMethod(ctx, obj, "m")
	require.NoError(t, err)
	require.True(t, invoked)
	require.Same(t, obj, gotSelf)
	ReleaseAll(res, obj)
	require.NoError(t, h.Close())
}
