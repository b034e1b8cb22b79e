package bytecode

import (
	"fmt"
)

// Function represents a compiled function template. CREATE_CLOSURE turns a
// template into a runtime function object by capturing the upvalues listed in
// the body's capture table.
type Function struct {
	name       string
	paramCount int
	code       *Code
}

// FunctionParams contains parameters for creating a new Function.
type FunctionParams struct {
	Name       string
	ParamCount int
	Code       *Code
}

// NewFunction creates a new immutable Function from the given parameters.
func NewFunction(params FunctionParams) *Function {
	return &Function{
		name:       params.Name,
		paramCount: params.ParamCount,
		code:       params.Code,
	}
}

// Name returns the function name, or empty string for anonymous functions.
func (f *Function) Name() string {
	return f.name
}

// ParamCount returns the number of arguments the function accepts, not
// counting a bound receiver.
func (f *Function) ParamCount() int {
	return f.paramCount
}

// Code returns the compiled bytecode for this function's body.
func (f *Function) Code() *Code {
	return f.code
}

// LocalCount returns the number of local variables in the function body.
func (f *Function) LocalCount() int {
	if f.code == nil {
		return 0
	}
	return f.code.LocalCount()
}

// String returns a string representation of the function.
func (f *Function) String() string {
	name := f.name
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("function %s/%d", name, f.paramCount)
}
