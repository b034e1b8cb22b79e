package object

import (
	"sort"
	"strings"

	"github.com/kiz-lang/kiz/errz"
)

// ParentAttr is the reserved attribute name of the prototype link.
const ParentAttr = "__parent__"

// AttrMap is an insertion-ordered mapping from attribute name to object. It
// owns one reference to each value.
type AttrMap struct {
	keys   []string
	values []Object
	index  map[string]int
}

// Len returns the number of attributes.
func (m *AttrMap) Len() int {
	return len(m.keys)
}

// Get returns a borrowed reference to the named attribute.
func (m *AttrMap) Get(name string) (Object, bool) {
	i, ok := m.index[name]
	if !ok {
		return nil, false
	}
	return m.values[i], true
}

// Keys returns the attribute names in insertion order.
func (m *AttrMap) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Each calls fn with each attribute in insertion order.
func (m *AttrMap) Each(fn func(name string, value Object)) {
	for i, k := range m.keys {
		fn(k, m.values[i])
	}
}

// set stores value, taking ownership of it, and returns the previous value
// whose reference now belongs to the caller.
func (m *AttrMap) set(name string, value Object) Object {
	if m.index == nil {
		m.index = map[string]int{}
	}
	if i, ok := m.index[name]; ok {
		old := m.values[i]
		m.values[i] = value
		return old
	}
	m.index[name] = len(m.keys)
	m.keys = append(m.keys, name)
	m.values = append(m.values, value)
	return nil
}

func (m *AttrMap) releaseAll() {
	values := m.values
	m.keys = nil
	m.values = nil
	m.index = nil
	for _, v := range values {
		Release(v)
	}
}

// GetAttr resolves name on obj: its own attributes first, then each object
// on the prototype chain. The result is a borrowed reference. "__parent__"
// resolves to the parent link, or nil at the root of the chain.
func GetAttr(obj Object, name string) (Object, bool) {
	if name == ParentAttr {
		if p := obj.Parent(); p != nil {
			return p, true
		}
		return obj.core().heap.nilObj, true
	}
	for cur := obj; cur != nil; cur = cur.Parent() {
		if v, ok := cur.Attrs().Get(name); ok {
			return v, true
		}
	}
	return nil, false
}

// SetAttr sets an attribute on obj's own map, taking ownership of value and
// releasing the value it replaces. Setting "__parent__" replaces the
// prototype link; nil clears it.
func SetAttr(obj Object, name string, value Object) error {
	if name == ParentAttr {
		return setParent(obj, value)
	}
	if old := obj.Attrs().set(name, value); old != nil {
		Release(old)
	}
	return nil
}

func setParent(obj Object, value Object) error {
	b := obj.core()
	var parent Object
	if _, isNil := value.(*Nil); !isNil {
		for cur := value; cur != nil; cur = cur.Parent() {
			if cur == obj {
				Release(value)
				return errz.Errorf(errz.Type, "cyclic prototype chain through %s object", obj.Type())
			}
		}
		parent = value
	}
	old, ownedOld := b.parent, b.ownsParent
	b.parent = parent
	b.ownsParent = false
	if parent != nil && !b.heap.isPrototype(parent) {
		b.ownsParent = true
	} else {
		// Prototypes live as long as the heap; the link does not own them.
		Release(value)
	}
	if ownedOld && old != nil {
		Release(old)
	}
	return nil
}

// IsChild reports whether b appears on a's prototype chain. An object is
// not its own child.
func IsChild(a, b Object) bool {
	for p := a.Parent(); p != nil; p = p.Parent() {
		if p == b {
			return true
		}
	}
	return false
}

func inspectAttrs(obj Object) string {
	m := obj.Attrs()
	parts := make([]string, 0, m.Len())
	m.Each(func(name string, value Object) {
		parts = append(parts, name+": "+Repr(value))
	})
	return string(obj.Type()) + "{" + strings.Join(parts, ", ") + "}"
}

// AttrNames returns the names resolvable on obj, own and inherited, sorted.
func AttrNames(obj Object) []string {
	seen := map[string]bool{ParentAttr: true}
	for cur := obj; cur != nil; cur = cur.Parent() {
		for _, k := range cur.Attrs().keys {
			seen[k] = true
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
