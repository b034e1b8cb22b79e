package object

import (
	"context"
	"math"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/kiz-lang/kiz/errz"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, recv Object, name string, args ...Object) Object {
	t.Helper()
	res, err := CallMethod(context.Background(), recv, name, args...)
	require.NoError(t, err)
	return res
}

func callErr(t *testing.T, recv Object, name string, args ...Object) error {
	t.Helper()
	res, err := CallMethod(context.Background(), recv, name, args...)
	require.Error(t, err)
	require.Nil(t, res)
	return err
}

func dec(s string) *apd.Decimal {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestIntArithmetic(t *testing.T) {
	h := NewHeap()
	tests := []struct {
		method   string
		a, b     int64
		expected string
	}{
		{"__add__", 2, 3, "5"},
		{"__sub__", 2, 3, "-1"},
		{"__mul__", 6, 7, "42"},
		{"__div__", 8, 2, "4"},
		{"__div__", 7, 2, "3.5"},
		{"__div__", 1, 8, "0.125"},
		{"__div__", -9, 4, "-2.25"},
		{"__mod__", 7, 3, "1"},
		{"__mod__", -7, 3, "2"},
		{"__pow__", 2, 10, "1024"},
		{"__add__", math.MaxInt64, 1, "9223372036854775808"},
		{"__mul__", math.MaxInt64, 2, "18446744073709551614"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			a, b := h.Int(tt.a), h.Int(tt.b)
			res := call(t, a, tt.method, b)
			require.Equal(t, tt.expected, res.Inspect())
			ReleaseAll(a, b, res)
		})
	}
	require.NoError(t, h.Close())
}

func TestIntOverflowPromotesToDecimal(t *testing.T) {
	h := NewHeap()
	a := h.Int(math.MaxInt64)
	b := h.Int(1)
	res := call(t, a, "__add__", b)
	require.IsType(t, &Decimal{}, res)
	ReleaseAll(a, b, res)
	require.NoError(t, h.Close())
}

func TestZeroDivision(t *testing.T) {
	h := NewHeap()
	a, zero := h.Int(1), h.Int(0)
	for _, m := range []string{"__div__", "__mod__"} {
		err := callErr(t, a, m, zero)
		require.Equal(t, errz.ZeroDivision, errz.KindOf(err))
	}
	d := h.Decimal(dec("1.5"))
	err := callErr(t, d, "__div__", zero)
	require.Equal(t, errz.ZeroDivision, errz.KindOf(err))
	ReleaseAll(a, zero, d)
	require.NoError(t, h.Close())
}

func TestMixedNumberComparison(t *testing.T) {
	h := NewHeap()
	two := h.Int(2)
	twoPointZero := h.Decimal(dec("2.0"))
	twoPointFive := h.Decimal(dec("2.5"))

	eq := call(t, two, "__eq__", twoPointZero)
	require.True(t, IsTrue(eq))
	lt := call(t, two, "__lt__", twoPointFive)
	require.True(t, IsTrue(lt))
	gt := call(t, twoPointFive, "__gt__", two)
	require.True(t, IsTrue(gt))

	h1 := call(t, two, "__hash__")
	h2 := call(t, twoPointZero, "__hash__")
	require.Equal(t, h1.(*Int).Value(), h2.(*Int).Value())

	s := h.String("2")
	err := callErr(t, two, "__lt__", s)
	require.Equal(t, errz.Type, errz.KindOf(err))
	neq := call(t, two, "__eq__", s)
	require.False(t, IsTrue(neq))

	sum := call(t, two, "__add__", twoPointFive)
	require.Equal(t, "4.5", sum.Inspect())

	neg := call(t, twoPointFive, "__neg__")
	require.Equal(t, "-2.5", neg.Inspect())

	ReleaseAll(two, twoPointZero, twoPointFive, eq, lt, gt, h1, h2, s, neq, sum, neg)
	require.NoError(t, h.Close())
}

func TestStringMethods(t *testing.T) {
	h := NewHeap()
	s := h.String("héllo")
	other := h.String(" world")
	idx := h.Int(1)
	negIdx := h.Int(-1)
	n := h.Int(2)
	sub := h.String("ll")

	cat := call(t, s, "__add__", other)
	require.Equal(t, "héllo world", cat.Inspect())
	rep := call(t, sub, "__mul__", n)
	require.Equal(t, "llll", rep.Inspect())
	ch := call(t, s, "__getitem__", idx)
	require.Equal(t, "é", ch.Inspect())
	last := call(t, s, "__getitem__", negIdx)
	require.Equal(t, "o", last.Inspect())
	length := call(t, s, "__len__")
	require.Equal(t, int64(5), length.(*Int).Value())
	contains := call(t, s, "__contains__", sub)
	require.True(t, IsTrue(contains))
	lt := call(t, sub, "__lt__", s)
	require.False(t, IsTrue(lt))

	err := callErr(t, s, "__add__", n)
	require.Equal(t, errz.Type, errz.KindOf(err))
	big := h.Int(10)
	err = callErr(t, s, "__getitem__", big)
	require.Equal(t, errz.Index, errz.KindOf(err))

	ReleaseAll(s, other, idx, negIdx, n, sub, cat, rep, ch, last, length, contains, lt, big)
	require.NoError(t, h.Close())
}

func TestListMethods(t *testing.T) {
	h := NewHeap()
	ctx := context.Background()
	l := h.NewList([]Object{h.Int(1), h.String("two")})
	three := h.Int(3)

	appended := call(t, l, "append", three)
	require.Equal(t, `[1, "two", 3]`, l.Inspect())

	one := h.Int(1)
	item := call(t, l, "__getitem__", one)
	require.Equal(t, "two", item.Inspect())

	has, err := CallMethod(ctx, l, "__contains__", three)
	require.NoError(t, err)
	require.True(t, IsTrue(has))

	popped := call(t, l, "pop")
	require.Same(t, three, popped)
	require.Equal(t, 2, l.Len())

	other := h.NewList([]Object{h.Int(1), h.String("two")})
	eq := call(t, l, "__eq__", other)
	require.True(t, IsTrue(eq))

	joined := call(t, l, "__add__", other)
	require.Equal(t, 4, joined.(*List).Len())

	empty := h.NewList(nil)
	err = callErr(t, empty, "pop")
	require.EqualError(t, err, "IndexError: pop from empty list")

	ReleaseAll(appended, three, one, item, has, popped, eq, joined, other, empty, l)
	require.NoError(t, h.Close())
}

func TestDictMethods(t *testing.T) {
	h := NewHeap()
	d := h.NewDict()
	k1 := h.String("a")
	k2 := h.Int(2)
	v1 := h.Int(10)
	v2 := h.Int(20)
	v3 := h.Int(30)

	ReleaseAll(
		call(t, d, "__setitem__", k1, v1),
		call(t, d, "__setitem__", k2, v2),
		call(t, d, "__setitem__", k1, v3),
	)
	require.Equal(t, 2, d.Len())
	require.Equal(t, `{"a": 30, 2: 20}`, d.Inspect())

	got := call(t, d, "__getitem__", k2)
	require.Same(t, v2, got)

	missing := h.String("zzz")
	err := callErr(t, d, "__getitem__", missing)
	require.EqualError(t, err, `KeyError: "zzz"`)

	def := call(t, d, "get", missing, v1)
	require.Same(t, v1, def)

	keys := call(t, d, "keys")
	require.Equal(t, `["a", 2]`, keys.Inspect())

	ReleaseAll(got, missing, def, keys, k1, k2, v1, v2, v3, d)
	require.NoError(t, h.Close())
}

func TestIterators(t *testing.T) {
	h := NewHeap()
	l := h.NewList([]Object{h.Int(1), h.Int(2)})
	it := call(t, l, "__iter__")

	var seen []string
	for {
		v := call(t, it, "__next__")
		if h.IsStopIteration(v) {
			Release(v)
			break
		}
		seen = append(seen, v.Inspect())
		Release(v)
	}
	require.Equal(t, []string{"1", "2"}, seen)

	again := call(t, it, "__next__")
	require.True(t, h.IsStopIteration(again))

	r := h.RangeIterator(3, 0, -1)
	var values []string
	for {
		v := r.Next()
		if h.IsStopIteration(v) {
			Release(v)
			break
		}
		values = append(values, v.Inspect())
		Release(v)
	}
	require.Equal(t, []string{"3", "2", "1"}, values)

	ReleaseAll(again, it, l, r)
	require.Equal(t, 1, h.stop.RefCount())
	require.NoError(t, h.Close())
}

func TestRangeIteratorStopsAtInt64Bounds(t *testing.T) {
	tests := []struct {
		name              string
		start, stop, step int64
		expected          []int64
	}{
		{"step past max", math.MaxInt64 - 1, math.MaxInt64, 2, []int64{math.MaxInt64 - 1}},
		{"reaches max", math.MaxInt64 - 4, math.MaxInt64, 2, []int64{math.MaxInt64 - 4, math.MaxInt64 - 2}},
		{"step past min", math.MinInt64 + 1, math.MinInt64, -2, []int64{math.MinInt64 + 1}},
		{"huge step", 0, math.MaxInt64, math.MaxInt64, []int64{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeap()
			r := h.RangeIterator(tt.start, tt.stop, tt.step)
			var got []int64
			for i := 0; i < 10; i++ {
				v := r.Next()
				if h.IsStopIteration(v) {
					Release(v)
					break
				}
				got = append(got, v.(*Int).Value())
				Release(v)
			}
			require.Equal(t, tt.expected, got)
			again := r.Next()
			require.True(t, h.IsStopIteration(again))
			ReleaseAll(again, r)
			require.NoError(t, h.Close())
		})
	}
}
