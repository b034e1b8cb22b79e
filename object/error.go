package object

import (
	"errors"
	"fmt"

	"github.com/kiz-lang/kiz/errz"
)

// Attribute names every thrown object must resolve.
const (
	NameAttr    = "__name__"
	MessageAttr = "__msg__"
)

// Error is the object user code throws and catches. Its name and message are
// the string attributes "__name__" and "__msg__"; the VM stamps the position
// chain of the live frames when the error is first thrown.
type Error struct {
	base
	trace []errz.StackFrame
}

func (e *Error) Type() Type {
	return ERROR
}

func (e *Error) Inspect() string {
	name, msg, _ := ErrorInfo(e)
	return fmt.Sprintf("%s: %s", name, msg)
}

// Name returns the error name.
func (e *Error) Name() string {
	name, _, _ := ErrorInfo(e)
	return name
}

// Message returns the error message.
func (e *Error) Message() string {
	_, msg, _ := ErrorInfo(e)
	return msg
}

// Trace returns the recorded position chain, outermost frame first.
func (e *Error) Trace() []errz.StackFrame {
	return e.trace
}

// SetTrace records the position chain.
func (e *Error) SetTrace(trace []errz.StackFrame) {
	e.trace = trace
}

// NewError creates an error object with the given name and message.
func (h *Heap) NewError(name, message string) *Error {
	e := &Error{}
	h.init(&e.base, ERROR)
	e.attrs.set(NameAttr, h.String(name))
	e.attrs.set(MessageAttr, h.String(message))
	return e
}

// ErrorFromHost converts a Go error into an error object. Host errors keep
// their kind as the name; any other error becomes a NativeError.
func (h *Heap) ErrorFromHost(err error) *Error {
	var hostErr *errz.Error
	if errors.As(err, &hostErr) {
		return h.NewError(string(hostErr.Kind), hostErr.Message)
	}
	return h.NewError(string(errz.Native), err.Error())
}

// ErrorInfo resolves the "__name__" and "__msg__" string attributes of a
// thrown object. ok is false when either is missing or not a string.
func ErrorInfo(obj Object) (name, message string, ok bool) {
	n, found := GetAttr(obj, NameAttr)
	if !found {
		return "", "", false
	}
	m, found := GetAttr(obj, MessageAttr)
	if !found {
		return "", "", false
	}
	ns, ok1 := n.(*String)
	ms, ok2 := m.(*String)
	if !ok1 || !ok2 {
		return "", "", false
	}
	return ns.value, ms.value, true
}

// Raised carries a thrown object out of a nested VM run through Go code,
// for example from a user "__hash__" method back through a native dict
// method. It owns one reference to Value. Native functions that receive a
// Raised should return it unchanged so the VM can resume unwinding.
type Raised struct {
	Value Object
}

func (r *Raised) Error() string {
	if name, msg, ok := ErrorInfo(r.Value); ok {
		return fmt.Sprintf("%s: %s", name, msg)
	}
	return fmt.Sprintf("raised %s", r.Value.Inspect())
}
