package vm

import (
	"context"
	"testing"

	"github.com/kiz-lang/kiz/bytecode"
	"github.com/kiz-lang/kiz/errz"
	"github.com/kiz-lang/kiz/object"
	"github.com/kiz-lang/kiz/op"
	"github.com/stretchr/testify/require"
)

func divideByZero() []bytecode.Instruction {
	return []bytecode.Instruction{
		ins(op.LoadConst, 0),
		ins(op.LoadConst, 1),
		ins(op.Div),
	}
}

func TestCatchHostError(t *testing.T) {
	machine := run(t, bytecode.CodeParams{
		Constants:  []any{int64(1), int64(0), "done"},
		LocalNames: []string{"err", "status"},
		ExceptionEntries: []bytecode.ExceptionEntry{
			{Start: 1, End: 5, Names: []string{"ZeroDivisionError"}, Handler: 5},
		},
		Instructions: []bytecode.Instruction{
			ins(op.EnterTry, 5, 8), // 0
			ins(op.LoadConst, 0),
			ins(op.LoadConst, 1),
			ins(op.Div),
			ins(op.Jump, 8),
			ins(op.LoadError), // 5
			ins(op.SetLocal, 0),
			ins(op.MarkHandleError),
			ins(op.JumpIfFinishHandleError, 9), // 8
			ins(op.LoadConst, 2),
			ins(op.SetLocal, 1),
		},
	})
	errObj, ok := global(t, machine, "err").(*object.Error)
	require.True(t, ok)
	require.Equal(t, "ZeroDivisionError", errObj.Name())
	require.Equal(t, "division by zero", errObj.Message())
	requireString(t, global(t, machine, "status"), "done")
	require.Equal(t, 2, machine.StackHeight())
}

func TestCatchSkipsOtherNames(t *testing.T) {
	unhandled, _ := runUnhandled(t, bytecode.CodeParams{
		Constants: []any{int64(1), int64(0)},
		ExceptionEntries: []bytecode.ExceptionEntry{
			{Start: 1, End: 4, Names: []string{"KeyError"}, Handler: 4},
		},
		Instructions: []bytecode.Instruction{
			ins(op.EnterTry, 4, 5),
			ins(op.LoadConst, 0),
			ins(op.LoadConst, 1),
			ins(op.Div),
			ins(op.MarkHandleError),
			ins(op.JumpIfFinishHandleError, 6),
		},
	})
	require.Equal(t, "ZeroDivisionError", unhandled.Name)
}

func TestThrowUserError(t *testing.T) {
	machine := run(t, bytecode.CodeParams{
		Constants:  []any{"ValueError", "bad value"},
		Names:      []string{"__name__", "__msg__"},
		LocalNames: []string{"msg"},
		ExceptionEntries: []bytecode.ExceptionEntry{
			{Start: 1, End: 9, Names: []string{"ValueError"}, Handler: 9},
		},
		Instructions: []bytecode.Instruction{
			ins(op.EnterTry, 9, 13), // 0
			ins(op.CreateObject),
			ins(op.CopyTop),
			ins(op.LoadConst, 0),
			ins(op.SetAttr, 0),
			ins(op.CopyTop), // 5
			ins(op.LoadConst, 1),
			ins(op.SetAttr, 1),
			ins(op.Throw),
			ins(op.LoadError), // 9
			ins(op.GetAttr, 1),
			ins(op.SetLocal, 0),
			ins(op.MarkHandleError),
			ins(op.JumpIfFinishHandleError, 14), // 13
		},
	})
	requireString(t, global(t, machine, "msg"), "bad value")
	require.Equal(t, 1, machine.StackHeight())
}

func TestThrowWithoutNameRaisesNameError(t *testing.T) {
	unhandled, out := runUnhandled(t, bytecode.CodeParams{
		Instructions: []bytecode.Instruction{
			ins(op.CreateObject),
			ins(op.Throw),
		},
	})
	require.Equal(t, "NameError", unhandled.Name)
	require.Contains(t, out, "NameError : thrown object object has no string __name__ and __msg__")
}

// The innermost frame with a matching entry handles the error and the
// frames above it are discarded.
func TestInnermostHandlerWins(t *testing.T) {
	inner := fn("inner", 0, bytecode.CodeParams{
		Constants:    []any{int64(1), int64(0)},
		Instructions: append(divideByZero(), ins(op.Ret)),
	})
	middle := fn("middle", 0, bytecode.CodeParams{
		Constants: []any{"middle"},
		Names:     []string{"inner"},
		ExceptionEntries: []bytecode.ExceptionEntry{
			{Start: 1, End: 5, Names: []string{"ZeroDivisionError"}, Handler: 5},
		},
		Instructions: []bytecode.Instruction{
			ins(op.EnterTry, 5, 7),
			ins(op.MakeList, 0),
			ins(op.LoadName, 0),
			ins(op.Call),
			ins(op.Ret),
			ins(op.LoadConst, 0), // 5
			ins(op.Ret),
		},
	})
	machine := run(t, bytecode.CodeParams{
		Constants:  []any{inner, middle, "outer"},
		Names:      []string{"inner", "middle"},
		LocalNames: []string{"result"},
		ExceptionEntries: []bytecode.ExceptionEntry{
			{Start: 5, End: 10, Names: []string{"ZeroDivisionError"}, Handler: 10},
		},
		Instructions: []bytecode.Instruction{
			ins(op.CreateClosure, 0), // 0
			ins(op.SetName, 0),
			ins(op.CreateClosure, 1),
			ins(op.SetName, 1),
			ins(op.EnterTry, 10, 13),
			ins(op.MakeList, 0), // 5
			ins(op.LoadName, 1),
			ins(op.Call),
			ins(op.SetLocal, 0),
			ins(op.Jump, 13),
			ins(op.LoadConst, 2), // 10
			ins(op.SetLocal, 0),
			ins(op.MarkHandleError),
			ins(op.JumpIfFinishHandleError, 14), // 13
		},
	})
	requireString(t, global(t, machine, "result"), "middle")
	require.Equal(t, 1, machine.FrameDepth())
	require.Equal(t, 1, machine.StackHeight())
}

func TestHandlerInCallerCatchesCalleeError(t *testing.T) {
	inner := fn("inner", 0, bytecode.CodeParams{
		Constants:    []any{int64(1), int64(0)},
		Instructions: append(divideByZero(), ins(op.Ret)),
	})
	machine := run(t, bytecode.CodeParams{
		Constants:  []any{inner, "caught"},
		LocalNames: []string{"f", "status"},
		ExceptionEntries: []bytecode.ExceptionEntry{
			{Start: 3, End: 7, CatchAll: true, Handler: 7},
		},
		Instructions: []bytecode.Instruction{
			ins(op.CreateClosure, 0), // 0
			ins(op.SetLocal, 0),
			ins(op.EnterTry, 7, 10),
			ins(op.MakeList, 0),
			ins(op.LoadVar, 0),
			ins(op.Call), // 5
			ins(op.PopTop),
			ins(op.LoadConst, 1), // 7
			ins(op.SetLocal, 1),
			ins(op.MarkHandleError),
			ins(op.JumpIfFinishHandleError, 11), // 10
		},
	})
	requireString(t, global(t, machine, "status"), "caught")
	require.Equal(t, 2, machine.StackHeight())
}

func TestNestedTryMostNestedEntryWins(t *testing.T) {
	machine := run(t, bytecode.CodeParams{
		Constants:  []any{int64(1), int64(0), "outer", "inner"},
		LocalNames: []string{"who"},
		ExceptionEntries: []bytecode.ExceptionEntry{
			{Start: 1, End: 9, CatchAll: true, Handler: 13},
			{Start: 2, End: 5, CatchAll: true, Handler: 5},
		},
		Instructions: []bytecode.Instruction{
			ins(op.EnterTry, 13, 16), // 0
			ins(op.EnterTry, 5, 8),
			ins(op.LoadConst, 0),
			ins(op.LoadConst, 1),
			ins(op.Div),
			ins(op.LoadConst, 3), // 5
			ins(op.SetLocal, 0),
			ins(op.MarkHandleError),
			ins(op.JumpIfFinishHandleError, 9), // 8
			ins(op.Jump, 16),
			ins(op.Jump, 16),
			ins(op.Jump, 16),
			ins(op.Jump, 16),
			ins(op.LoadConst, 2), // 13
			ins(op.SetLocal, 0),
			ins(op.MarkHandleError),
			ins(op.JumpIfFinishHandleError, 17), // 16
		},
	})
	requireString(t, global(t, machine, "who"), "inner")
}

func TestFinallyRethrowsPendingError(t *testing.T) {
	machine, buf := newTestVM(t, bytecode.CodeParams{
		Constants:  []any{int64(1), int64(0), true},
		LocalNames: []string{"cleaned"},
		ExceptionEntries: []bytecode.ExceptionEntry{
			{Start: 1, End: 5, CatchAll: true, Handler: 5},
		},
		Instructions: []bytecode.Instruction{
			ins(op.EnterTry, 5, 5),
			ins(op.LoadConst, 0),
			ins(op.LoadConst, 1),
			ins(op.Div),
			ins(op.PopTop),
			ins(op.LoadConst, 2), // 5
			ins(op.SetLocal, 0),
			ins(op.JumpIfFinishHandleError, 8),
		},
	})
	err := machine.Run(context.Background())
	var unhandled *UnhandledError
	require.ErrorAs(t, err, &unhandled)
	require.Equal(t, "ZeroDivisionError", unhandled.Name)
	require.Contains(t, buf.String(), "ZeroDivisionError : division by zero")
	requireBool(t, global(t, machine, "cleaned"), true)
}

func TestUnhandledErrorReportsTrace(t *testing.T) {
	inner := fn("inner", 0, bytecode.CodeParams{
		Path:      "lib.kiz",
		Constants: []any{int64(1), int64(0)},
		Instructions: []bytecode.Instruction{
			insAt(7, op.LoadConst, 0),
			insAt(7, op.LoadConst, 1),
			insAt(7, op.Div),
			insAt(7, op.Ret),
		},
	})
	unhandled, out := runUnhandled(t, bytecode.CodeParams{
		Path:       "main.kiz",
		Constants:  []any{inner},
		LocalNames: []string{"f"},
		Instructions: []bytecode.Instruction{
			insAt(1, op.CreateClosure, 0),
			insAt(1, op.SetLocal, 0),
			insAt(3, op.MakeList, 0),
			insAt(3, op.LoadVar, 0),
			insAt(3, op.Call),
		},
	})
	require.Equal(t, "ZeroDivisionError", unhandled.Name)
	require.Equal(t, "division by zero", unhandled.Message)
	require.Equal(t, []errz.StackFrame{
		{Path: "main.kiz", Location: errz.SourceLocation{File: "main.kiz", Line: 3, Column: 1}},
		{Path: "lib.kiz", Location: errz.SourceLocation{File: "lib.kiz", Line: 7, Column: 1}},
	}, unhandled.Trace)
	require.Contains(t, out, "Trace Back:")
	require.Contains(t, out, `File "main.kiz", line 3, column 1`)
	require.Contains(t, out, `File "lib.kiz", line 7, column 1`)
	require.Contains(t, out, "ZeroDivisionError : division by zero")
}

func TestCallErrors(t *testing.T) {
	tests := []struct {
		name    string
		main    bytecode.CodeParams
		errName string
		message string
	}{
		{
			name: "arg count",
			main: bytecode.CodeParams{
				Constants: []any{addFunction(), int64(1)},
				Instructions: []bytecode.Instruction{
					ins(op.LoadConst, 1),
					ins(op.MakeList, 1),
					ins(op.CreateClosure, 0),
					ins(op.Call),
				},
			},
			errName: "ArgCountError",
			message: "expect 2 arguments but got 1 arguments",
		},
		{
			name: "not callable",
			main: bytecode.CodeParams{
				Constants: []any{int64(1)},
				Instructions: []bytecode.Instruction{
					ins(op.MakeList, 0),
					ins(op.LoadConst, 0),
					ins(op.Call),
				},
			},
			errName: "TypeError",
			message: "'int' object is not callable",
		},
		{
			name: "missing method",
			main: bytecode.CodeParams{
				Constants: []any{int64(1)},
				Names:     []string{"nope"},
				Instructions: []bytecode.Instruction{
					ins(op.MakeList, 0),
					ins(op.LoadConst, 0),
					ins(op.CallMethod, 0),
				},
			},
			errName: "NameError",
			message: "'int' object has no attribute 'nope'",
		},
		{
			name: "undefined name",
			main: bytecode.CodeParams{
				Names: []string{"missing"},
				Instructions: []bytecode.Instruction{
					ins(op.LoadName, 0),
				},
			},
			errName: "NameError",
			message: "name 'missing' is not defined",
		},
		{
			name: "unknown opcode",
			main: bytecode.CodeParams{
				Instructions: []bytecode.Instruction{
					ins(op.Code(250)),
				},
			},
			errName: "FutureError",
			message: "unknown opcode 250",
		},
		{
			name: "unknown import",
			main: bytecode.CodeParams{
				Names: []string{"nowhere"},
				Instructions: []bytecode.Instruction{
					ins(op.Import, 0),
				},
			},
			errName: "ImportError",
			message: "module 'nowhere' not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unhandled, _ := runUnhandled(t, tt.main)
			require.Equal(t, tt.errName, unhandled.Name)
			require.Equal(t, tt.message, unhandled.Message)
		})
	}
}

func TestRecursionError(t *testing.T) {
	recurse := fn("recurse", 0, bytecode.CodeParams{
		Names: []string{"recurse"},
		Instructions: []bytecode.Instruction{
			ins(op.MakeList, 0),
			ins(op.LoadName, 0),
			ins(op.Call),
			ins(op.Ret),
		},
	})
	unhandled, _ := runUnhandled(t, bytecode.CodeParams{
		Constants: []any{recurse},
		Names:     []string{"recurse"},
		Instructions: []bytecode.Instruction{
			ins(op.CreateClosure, 0),
			ins(op.SetName, 0),
			ins(op.MakeList, 0),
			ins(op.LoadName, 0),
			ins(op.Call),
		},
	})
	require.Equal(t, "RecursionError", unhandled.Name)
	require.Len(t, unhandled.Trace, MaxFrameDepth)
}

// A user error raised inside a function called from native code unwinds
// through the native call to a handler in the calling frame.
func TestErrorCrossesNativeBoundary(t *testing.T) {
	apply := func(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
		if err := object.AssertArgc(args, 1); err != nil {
			return nil, err
		}
		return object.Call(ctx, args[0], nil, nil)
	}
	inner := fn("inner", 0, bytecode.CodeParams{
		Constants:    []any{int64(1), int64(0)},
		Instructions: append(divideByZero(), ins(op.Ret)),
	})
	machine := run(t, bytecode.CodeParams{
		Constants:  []any{inner, "caught"},
		Names:      []string{"apply"},
		LocalNames: []string{"status"},
		ExceptionEntries: []bytecode.ExceptionEntry{
			{Start: 1, End: 6, Names: []string{"ZeroDivisionError"}, Handler: 6},
		},
		Instructions: []bytecode.Instruction{
			ins(op.EnterTry, 6, 9), // 0
			ins(op.CreateClosure, 0),
			ins(op.MakeList, 1),
			ins(op.LoadName, 0),
			ins(op.Call),
			ins(op.PopTop), // 5
			ins(op.LoadConst, 1),
			ins(op.SetLocal, 0),
			ins(op.MarkHandleError),
			ins(op.JumpIfFinishHandleError, 10), // 9
		},
	}, WithBuiltins(testModule("builtins", map[string]object.NativeFunc{"apply": apply})))
	requireString(t, global(t, machine, "status"), "caught")
	require.Equal(t, 1, machine.FrameDepth())
	require.Equal(t, 1, machine.StackHeight())
}

func TestRunAfterUnhandledErrorIsRejected(t *testing.T) {
	machine, _ := newTestVM(t, bytecode.CodeParams{
		Constants:  []any{int64(1), int64(0), "after"},
		LocalNames: []string{"x"},
		Instructions: append(divideByZero(),
			ins(op.PopTop),
			ins(op.LoadConst, 2),
			ins(op.SetLocal, 0),
		),
	})
	ctx := context.Background()
	var unhandled *UnhandledError
	require.ErrorAs(t, machine.Run(ctx), &unhandled)
	require.Equal(t, "ZeroDivisionError", unhandled.Name)
	require.Equal(t, 1, machine.FrameDepth())
	require.Equal(t, 1, machine.StackHeight())

	require.ErrorIs(t, machine.Run(ctx), ErrFailed)
	x := global(t, machine, "x")
	require.Equal(t, object.NIL, x.Type())
	_, err := machine.Call(ctx, x)
	require.ErrorIs(t, err, ErrFailed)
}

func TestCallUnhandledErrorRestoresStack(t *testing.T) {
	boom := fn("boom", 0, bytecode.CodeParams{
		Constants:    []any{int64(1), int64(0)},
		Instructions: append(divideByZero(), ins(op.Ret)),
	})
	machine, buf := newTestVM(t, bytecode.CodeParams{
		Constants:  []any{boom},
		LocalNames: []string{"boom"},
		Instructions: []bytecode.Instruction{
			ins(op.CreateClosure, 0),
			ins(op.SetLocal, 0),
		},
	})
	ctx := context.Background()
	require.NoError(t, machine.Run(ctx))
	depth, height := machine.FrameDepth(), machine.StackHeight()

	for i := 0; i < 2; i++ {
		result, err := machine.Call(ctx, global(t, machine, "boom"))
		require.Nil(t, result)
		var unhandled *UnhandledError
		require.ErrorAs(t, err, &unhandled)
		require.Equal(t, "ZeroDivisionError", unhandled.Name)
		require.Equal(t, depth, machine.FrameDepth())
		require.Equal(t, height, machine.StackHeight())
	}
	require.Contains(t, buf.String(), "division by zero")
}

func TestCollectionCountBoundedByFrameTemporaries(t *testing.T) {
	tests := []struct {
		name string
		code op.Code
		kind errz.ErrorKind
	}{
		{"list", op.MakeList, errz.ListMade},
		{"dict", op.MakeDict, errz.DictMade},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine, _ := newTestVM(t, bytecode.CodeParams{
				Constants:  []any{"kept", int64(7)},
				LocalNames: []string{"keep"},
				Instructions: []bytecode.Instruction{
					ins(op.LoadConst, 0),
					ins(op.SetLocal, 0),
					ins(op.LoadConst, 1),
					ins(tt.code, 2),
				},
			})
			var unhandled *UnhandledError
			require.ErrorAs(t, machine.Run(context.Background()), &unhandled)
			require.Equal(t, string(tt.kind), unhandled.Name)
			requireString(t, global(t, machine, "keep"), "kept")
			require.Equal(t, 1, machine.StackHeight())
		})
	}
}

func TestMakeListRejectsEmptySlot(t *testing.T) {
	machine := run(t, bytecode.CodeParams{})
	root := machine.frames[0]
	height := machine.StackHeight()
	machine.push(machine.Heap().Int(500))
	machine.stack = append(machine.stack, nil)

	err := machine.makeList(root, 2)
	require.Equal(t, errz.ListMade, errz.KindOf(err))
	require.Equal(t, height, machine.StackHeight())
}
