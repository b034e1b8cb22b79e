package vm

import (
	"context"

	"github.com/kiz-lang/kiz/bytecode"
)

// Run executes main in a new Virtual Machine and closes it. The error is the
// run error, or the Close error when the run succeeded.
func Run(ctx context.Context, main *bytecode.Code, options ...Option) error {
	machine := New(main, options...)
	runErr := machine.Run(ctx)
	closeErr := machine.Close()
	if runErr != nil {
		return runErr
	}
	return closeErr
}
