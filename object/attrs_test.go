package object

import (
	"testing"

	"github.com/kiz-lang/kiz/errz"
	"github.com/stretchr/testify/require"
)

func TestGetAttrWalksPrototypeChain(t *testing.T) {
	h := NewHeap()
	animal := h.NewInstance()
	require.NoError(t, SetAttr(animal, "legs", h.Int(4)))
	require.NoError(t, SetAttr(animal, "sound", h.String("...")))

	dog := h.NewInstance()
	require.NoError(t, SetAttr(dog, ParentAttr, Retain(animal)))
	require.NoError(t, SetAttr(dog, "sound", h.String("woof")))

	v, ok := GetAttr(dog, "sound")
	require.True(t, ok)
	require.Equal(t, "woof", v.(*String).Value())

	v, ok = GetAttr(dog, "legs")
	require.True(t, ok)
	require.Equal(t, int64(4), v.(*Int).Value())

	v, ok = GetAttr(dog, "__eq__")
	require.True(t, ok)
	require.IsType(t, &NativeFunction{}, v)

	_, ok = GetAttr(dog, "wings")
	require.False(t, ok)

	p, ok := GetAttr(dog, ParentAttr)
	require.True(t, ok)
	require.Same(t, animal, p)

	require.True(t, IsChild(dog, animal))
	require.True(t, IsChild(dog, h.Prototype(OBJECT)))
	require.False(t, IsChild(animal, dog))
	require.False(t, IsChild(dog, dog))

	Release(animal)
	require.False(t, IsDestroyed(animal), "dog owns its parent")
	Release(dog)
	require.True(t, IsDestroyed(animal))
	require.NoError(t, h.Close())
}

func TestBuiltinValuesInheritFromPrototypes(t *testing.T) {
	h := NewHeap()
	i := h.Int(1000)
	require.Same(t, h.Prototype(INT), i.Parent())
	require.True(t, IsChild(i, h.Prototype(OBJECT)))

	root, ok := GetAttr(h.Prototype(OBJECT), ParentAttr)
	require.True(t, ok)
	require.IsType(t, &Nil{}, root)
	Release(i)
	require.NoError(t, h.Close())
}

func TestSetParentRejectsCycles(t *testing.T) {
	h := NewHeap()
	a := h.NewInstance()
	b := h.NewInstance()
	require.NoError(t, SetAttr(b, ParentAttr, Retain(a)))

	err := SetAttr(a, ParentAttr, Retain(b))
	require.Error(t, err)
	require.Equal(t, errz.Type, errz.KindOf(err))
	require.Equal(t, 1, b.RefCount())
	require.Equal(t, 2, a.RefCount())

	require.NoError(t, SetAttr(b, ParentAttr, h.Nil()))
	require.Nil(t, b.Parent())
	ReleaseAll(a, b)
	require.NoError(t, h.Close())
}

func TestSetAttrReleasesReplacedValue(t *testing.T) {
	h := NewHeap()
	obj := h.NewInstance()
	first := h.String("first")
	require.NoError(t, SetAttr(obj, "x", Retain(first)))
	require.Equal(t, 2, first.RefCount())

	require.NoError(t, SetAttr(obj, "x", h.String("second")))
	require.Equal(t, 1, first.RefCount())
	require.Equal(t, []string{"x"}, obj.Attrs().Keys())

	ReleaseAll(first, obj)
	require.NoError(t, h.Close())
}

func TestAttrMapKeepsInsertionOrder(t *testing.T) {
	h := NewHeap()
	obj := h.NewInstance()
	for _, name := range []string{"z", "a", "m"} {
		require.NoError(t, SetAttr(obj, name, h.Nil()))
	}
	require.NoError(t, SetAttr(obj, "a", h.Int(1)))
	require.Equal(t, []string{"z", "a", "m"}, obj.Attrs().Keys())
	require.Equal(t, `object{z: Nil, a: 1, m: Nil}`, obj.Inspect())
	Release(obj)
	require.NoError(t, h.Close())
}
