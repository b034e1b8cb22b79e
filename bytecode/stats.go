package bytecode

// Stats contains statistics about a compiled unit. This is useful for
// auditing units before execution.
type Stats struct {
	// InstructionCount is the total number of instructions, including those
	// of nested function bodies.
	InstructionCount int

	// ConstantCount is the number of constants across all bodies.
	ConstantCount int

	// FunctionCount is the number of function templates.
	FunctionCount int

	// ExceptionEntryCount is the number of exception table rows.
	ExceptionEntryCount int
}
