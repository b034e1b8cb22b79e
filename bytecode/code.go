package bytecode

import (
	"github.com/gofrs/uuid"
)

// Code represents a compiled unit (module or function body). It is immutable
// after creation and safe to share across VM instances.
type Code struct {
	id   string
	name string
	path string

	instructions []Instruction
	constants    []any
	names        []string

	localCount int
	localNames []string

	captures         []Capture
	exceptionEntries []ExceptionEntry
}

// CodeParams contains parameters for creating a new Code.
type CodeParams struct {
	ID               string
	Name             string
	Path             string
	Instructions     []Instruction
	Constants        []any
	Names            []string
	LocalCount       int
	LocalNames       []string
	Captures         []Capture
	ExceptionEntries []ExceptionEntry
}

// NewCode creates a new immutable Code from the given parameters. Input
// slices are copied. A Code without an ID is assigned a random UUID.
func NewCode(params CodeParams) *Code {
	id := params.ID
	if id == "" {
		id = newID()
	}
	localCount := params.LocalCount
	if localCount < len(params.LocalNames) {
		localCount = len(params.LocalNames)
	}
	return &Code{
		id:               id,
		name:             params.Name,
		path:             params.Path,
		instructions:     copyInstructions(params.Instructions),
		constants:        copyAny(params.Constants),
		names:            copyStrings(params.Names),
		localCount:       localCount,
		localNames:       copyStrings(params.LocalNames),
		captures:         copyCaptures(params.Captures),
		exceptionEntries: copyEntries(params.ExceptionEntries),
	}
}

func newID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return ""
	}
	return id.String()
}

// ID returns the unique identifier for this code block.
func (c *Code) ID() string {
	return c.id
}

// Name returns the name of this code block.
func (c *Code) Name() string {
	return c.name
}

// Path returns the module path or source file this code came from. It is
// used in traces and as the key of the module cache.
func (c *Code) Path() string {
	return c.path
}

// InstructionCount returns the number of instructions.
func (c *Code) InstructionCount() int {
	return len(c.instructions)
}

// InstructionAt returns the instruction at the given index.
func (c *Code) InstructionAt(index int) Instruction {
	return c.instructions[index]
}

// ConstantCount returns the number of constants.
func (c *Code) ConstantCount() int {
	return len(c.constants)
}

// ConstantAt returns the constant at the given index.
func (c *Code) ConstantAt(index int) any {
	return c.constants[index]
}

// NameCount returns the number of entries in the name table.
func (c *Code) NameCount() int {
	return len(c.names)
}

// NameAt returns the name at the given index, or an empty string if the
// index is out of range.
func (c *Code) NameAt(index int) string {
	if index < 0 || index >= len(c.names) {
		return ""
	}
	return c.names[index]
}

// LocalCount returns the number of local variable slots.
func (c *Code) LocalCount() int {
	return c.localCount
}

// LocalNameCount returns the number of local variable names.
func (c *Code) LocalNameCount() int {
	return len(c.localNames)
}

// LocalNameAt returns the local variable name at the given index.
// Returns an empty string if the index is out of range.
func (c *Code) LocalNameAt(index int) string {
	if index < 0 || index >= len(c.localNames) {
		return ""
	}
	return c.localNames[index]
}

// CaptureCount returns the number of upvalues captured by closures created
// from this body.
func (c *Code) CaptureCount() int {
	return len(c.captures)
}

// CaptureAt returns the capture descriptor at the given index.
func (c *Code) CaptureAt(index int) Capture {
	return c.captures[index]
}

// ExceptionEntryCount returns the number of exception table rows.
func (c *Code) ExceptionEntryCount() int {
	return len(c.exceptionEntries)
}

// ExceptionEntryAt returns the exception table row at the given index.
func (c *Code) ExceptionEntryAt(index int) ExceptionEntry {
	return c.exceptionEntries[index]
}

// FindHandler returns the most nested exception entry that covers pc and
// catches errors with the given name. Nesting is decided by range width:
// an inner try always protects a narrower range than the try enclosing it.
func (c *Code) FindHandler(pc int, name string) (ExceptionEntry, bool) {
	var best ExceptionEntry
	found := false
	for _, e := range c.exceptionEntries {
		if !e.Covers(pc) || !e.Catches(name) {
			continue
		}
		if !found || e.End-e.Start < best.End-best.Start {
			best = e
			found = true
		}
	}
	return best, found
}

// Functions returns the function templates in this code's constant table.
func (c *Code) Functions() []*Function {
	var fns []*Function
	for _, k := range c.constants {
		if fn, ok := k.(*Function); ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

// Flatten returns this code and the bodies of all nested function
// templates, depth first.
func (c *Code) Flatten() []*Code {
	codes := []*Code{c}
	for _, fn := range c.Functions() {
		if fn.Code() != nil {
			codes = append(codes, fn.Code().Flatten()...)
		}
	}
	return codes
}

// Stats returns statistics about this code and its nested bodies.
func (c *Code) Stats() Stats {
	var s Stats
	for _, code := range c.Flatten() {
		s.InstructionCount += code.InstructionCount()
		s.ConstantCount += code.ConstantCount()
		s.FunctionCount += len(code.Functions())
		s.ExceptionEntryCount += code.ExceptionEntryCount()
	}
	return s
}
