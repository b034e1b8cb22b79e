package vm

import (
	"github.com/kiz-lang/kiz/errz"
	"github.com/kiz-lang/kiz/object"
)

// tryBlock is pushed by ENTER_TRY and records what the unwinder restores
// when control reaches one of its handlers.
type tryBlock struct {
	handled     bool
	catchPC     int
	finallyPC   int
	stackHeight int
	iterDepth   int
}

// frame is one activation on the call stack. Its locals live on the shared
// operand stack starting at bp.
type frame struct {
	// owner is the running *object.Module or *object.Function. The frame
	// holds one reference to it.
	owner object.Object
	fn    *object.Function
	name  string
	code  *code

	// module is the namespace LOAD_NAME and SET_NAME fall back to. Borrowed.
	module   *object.Module
	isModule bool

	pc int
	bp int

	// callSite is the caller's pc when this frame was pushed.
	callSite int

	tries   []tryBlock
	iters   []object.Object
	dynVars map[string]object.Object
	err     object.Object
}

func (f *frame) localCount() int {
	return f.code.LocalCount()
}

// location returns the source position of the instruction at pc.
func (f *frame) location(pc int) errz.SourceLocation {
	if pc < 0 || pc >= f.code.InstructionCount() {
		return errz.SourceLocation{File: f.code.Path()}
	}
	loc := f.code.InstructionAt(pc).Pos
	if loc.File == "" {
		loc.File = f.code.Path()
	}
	return loc
}

func (f *frame) path() string {
	if p := f.code.Path(); p != "" {
		return p
	}
	return f.name
}

func (f *frame) setError(value object.Object) {
	if f.err != nil {
		object.Release(f.err)
	}
	f.err = value
}

func (f *frame) clearError() {
	f.setError(nil)
}

// release drops the frame's own references: the owner, its iterator
// records, dynamic variables and pending error. Stack slots are released by
// the caller.
func (f *frame) release() {
	for _, it := range f.iters {
		object.Release(it)
	}
	f.iters = nil
	for _, name := range sortedNames(f.dynVars) {
		object.Release(f.dynVars[name])
	}
	f.dynVars = nil
	f.clearError()
	f.tries = nil
	if f.owner != nil {
		object.Release(f.owner)
		f.owner = nil
	}
}
