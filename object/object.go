// Package object provides the heap values of the kiz virtual machine.
//
// Every value lives on a [Heap] owned by one VM. Objects carry a reference
// count, an insertion-ordered attribute map and a parent link that forms the
// prototype chain used for method resolution. Operators are not implemented
// by the VM itself: OP_ADD calls the left operand's "__add__" attribute, which
// for built-in types is a native method stored on the type's prototype.
//
// Reference counting rules:
//
//   - Constructors and Heap getters return an owned reference.
//   - [Retain] adds a reference, [Release] drops one and destroys the object
//     when the count reaches zero, releasing everything it owns.
//   - Native functions receive borrowed arguments and return an owned result.
//   - [GetAttr] returns a borrowed reference.
//
// For external users, an Object is usually type asserted to a specific type:
//
//	switch obj := obj.(type) {
//	case *object.Int:
//		// do something with obj.Value()
//	case *object.String:
//		// do something with obj.Value()
//	}
package object

// Type of an object as a string.
type Type string

// Type constants. These are also the names of the prototypes.
const (
	OBJECT   Type = "object"
	INT      Type = "int"
	DECIMAL  Type = "decimal"
	STRING   Type = "str"
	BOOL     Type = "bool"
	NIL      Type = "nil"
	LIST     Type = "list"
	DICT     Type = "dict"
	FUNCTION Type = "function"
	NATIVE   Type = "native_function"
	MODULE   Type = "module"
	ERROR    Type = "error"
	CODE     Type = "code_object"
	FILE     Type = "file_handle"
	ITERATOR Type = "iterator"
	CELL     Type = "cell"
)

// Object is the interface implemented by every heap value.
type Object interface {
	// Type of the object.
	Type() Type

	// Inspect returns a string representation of the object.
	Inspect() string

	// ID returns the heap-unique identity of the object.
	ID() uint64

	// RefCount returns the current number of owners.
	RefCount() int

	// Attrs returns the object's own attribute map.
	Attrs() *AttrMap

	// Parent returns the next object on the prototype chain, or nil.
	Parent() Object

	core() *base
	finalize() error
}

type base struct {
	heap       *Heap
	id         uint64
	refs       int
	dead       bool
	parent     Object
	ownsParent bool
	attrs      AttrMap
}

func (b *base) core() *base { return b }

func (b *base) finalize() error { return nil }

func (b *base) ID() uint64 { return b.id }

func (b *base) RefCount() int { return b.refs }

func (b *base) Attrs() *AttrMap { return &b.attrs }

func (b *base) Parent() Object { return b.parent }

// Heap returns the heap the object was allocated on.
func (b *base) Heap() *Heap { return b.heap }

// Instance is a plain object: attributes and a parent, nothing else. User
// defined "classes" are instances used as prototypes of other instances.
type Instance struct {
	base
}

func (o *Instance) Type() Type {
	return OBJECT
}

func (o *Instance) Inspect() string {
	return inspectAttrs(o)
}

// NewInstance creates a plain object whose parent is the object prototype.
func (h *Heap) NewInstance() *Instance {
	o := &Instance{}
	h.init(&o.base, OBJECT)
	return o
}
