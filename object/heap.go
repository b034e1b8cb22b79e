package object

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/kiz-lang/kiz/errz"
)

// Bounds of the small integer pool. Integers in this range are interned:
// every request for one of them returns the same object.
const (
	SmallIntMin = 0
	SmallIntMax = 200
)

// Heap allocates objects for one VM and owns the values every program needs:
// the prototypes, the nil and bool singletons, the small integer pool and the
// stop-iteration sentinel. A Heap is not safe for concurrent use.
type Heap struct {
	nextID    uint64
	live      int
	allocated int
	destroyed int
	closed    bool

	protos     map[Type]*Instance
	protoOrder []Type

	nilObj    *Nil
	trueObj   *Bool
	falseObj  *Bool
	smallInts [SmallIntMax - SmallIntMin + 1]*Int
	stop      *Instance

	finalizeErrs []error
}

// Stats reports allocation counters of a heap.
type Stats struct {
	Allocated int
	Live      int
	Destroyed int
}

// NewHeap creates a heap with its prototypes and singletons in place.
func NewHeap() *Heap {
	h := &Heap{protos: map[Type]*Instance{}}
	h.initPrototypes()

	h.nilObj = &Nil{}
	h.init(&h.nilObj.base, NIL)
	h.trueObj = &Bool{value: true}
	h.init(&h.trueObj.base, BOOL)
	h.falseObj = &Bool{value: false}
	h.init(&h.falseObj.base, BOOL)
	for i := range h.smallInts {
		h.smallInts[i] = h.newInt(int64(i + SmallIntMin))
	}
	h.stop = &Instance{}
	h.init(&h.stop.base, OBJECT)

	h.initMethods()
	return h
}

// init registers a freshly allocated object with the heap. The object starts
// with one reference, owned by the caller.
func (h *Heap) init(b *base, t Type) {
	h.nextID++
	h.allocated++
	h.live++
	b.heap = h
	b.id = h.nextID
	b.refs = 1
	if proto, ok := h.protos[t]; ok {
		b.parent = proto
	} else if proto, ok := h.protos[OBJECT]; ok {
		b.parent = proto
	}
}

func (h *Heap) destroy(obj Object) {
	b := obj.core()
	b.dead = true
	h.live--
	h.destroyed++
	if err := obj.finalize(); err != nil {
		h.finalizeErrs = append(h.finalizeErrs, err)
	}
	b.attrs.releaseAll()
	if b.ownsParent && b.parent != nil {
		parent := b.parent
		b.parent = nil
		b.ownsParent = false
		Release(parent)
	}
}

// Stats returns the heap's allocation counters.
func (h *Heap) Stats() Stats {
	return Stats{Allocated: h.allocated, Live: h.live, Destroyed: h.destroyed}
}

// Live returns the number of objects that have not been destroyed.
func (h *Heap) Live() int {
	return h.live
}

// Nil returns a reference to the nil singleton.
func (h *Heap) Nil() *Nil {
	return Retain(h.nilObj)
}

// Bool returns a reference to the true or false singleton.
func (h *Heap) Bool(v bool) *Bool {
	if v {
		return Retain(h.trueObj)
	}
	return Retain(h.falseObj)
}

// StopIteration returns a reference to the sentinel that iterators produce
// once exhausted. Callers compare against it by identity.
func (h *Heap) StopIteration() Object {
	return Retain(h.stop)
}

// IsStopIteration reports whether obj is the heap's stop sentinel.
func (h *Heap) IsStopIteration(obj Object) bool {
	return obj == Object(h.stop)
}

// Prototype returns a borrowed reference to the prototype of the given type.
func (h *Heap) Prototype(t Type) *Instance {
	return h.protos[t]
}

func (h *Heap) isPrototype(obj Object) bool {
	inst, ok := obj.(*Instance)
	if !ok {
		return false
	}
	for _, p := range h.protos {
		if p == inst {
			return true
		}
	}
	return false
}

// Close releases the heap-owned values. It reports objects that are still
// alive afterwards and errors returned by finalizers, such as failures to
// close a file.
func (h *Heap) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	Release(h.stop)
	for _, i := range h.smallInts {
		Release(i)
	}
	Release(h.nilObj)
	Release(h.trueObj)
	Release(h.falseObj)
	for i := len(h.protoOrder) - 1; i >= 0; i-- {
		Release(h.protos[h.protoOrder[i]])
	}

	var result error
	for _, err := range h.finalizeErrs {
		result = multierror.Append(result, err)
	}
	h.finalizeErrs = nil
	if h.live > 0 {
		result = multierror.Append(result, errz.Errorf(errz.RefCount,
			"%d objects still alive after close: %s", h.live, h.describe()))
	}
	return result
}

// Retain adds a reference to obj and returns it.
func Retain[T Object](obj T) T {
	b := obj.core()
	if b.dead {
		panic(errz.Errorf(errz.RefCount, "retain of destroyed %s object #%d", obj.Type(), b.id))
	}
	b.refs++
	return obj
}

// Release drops a reference to obj, destroying it when no references remain.
// Releasing a nil Object is a no-op. Releasing an object that was already
// destroyed panics with a RefCountError.
func Release(obj Object) {
	if obj == nil {
		return
	}
	b := obj.core()
	if b.dead || b.refs <= 0 {
		panic(errz.Errorf(errz.RefCount, "release of destroyed %s object #%d", obj.Type(), b.id))
	}
	b.refs--
	if b.refs == 0 {
		b.heap.destroy(obj)
	}
}

// ReleaseAll releases each of the given objects.
func ReleaseAll(objs ...Object) {
	for _, obj := range objs {
		Release(obj)
	}
}

// IsDestroyed reports whether obj has been destroyed.
func IsDestroyed(obj Object) bool {
	return obj.core().dead
}

func (h *Heap) describe() string {
	return fmt.Sprintf("heap(live=%d, allocated=%d)", h.live, h.allocated)
}
