package op

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo(EnterTry)
	require.Equal(t, "ENTER_TRY", info.Name)
	require.Equal(t, 2, info.OperandCount)
	require.Equal(t, EnterTry, info.Code)
	require.False(t, info.Transfer)
}

func TestGetInfoAllOpcodes(t *testing.T) {
	tests := []struct {
		code     Code
		name     string
		operands int
		transfer bool
	}{
		{Add, "OP_ADD", 0, false},
		{Neg, "OP_NEG", 0, false},
		{Ge, "OP_GE", 0, false},
		{Ne, "OP_NE", 0, false},
		{In, "OP_IN", 0, false},
		{MakeList, "MAKE_LIST", 1, false},
		{MakeDict, "MAKE_DICT", 1, false},
		{Call, "CALL", 0, false},
		{CallMethod, "CALL_METHOD", 1, false},
		{Ret, "RET", 0, true},
		{CreateClosure, "CREATE_CLOSURE", 1, false},
		{LoadFree, "LOAD_FREE_VAR", 1, false},
		{SetNonlocal, "SET_NONLOCAL", 1, false},
		{MarkHandleError, "MARK_HANDLE_ERROR", 0, false},
		{JumpIfFinishHandleError, "JUMP_IF_FINISH_HANDLE_ERROR", 1, true},
		{Throw, "THROW", 0, true},
		{Jump, "JUMP", 1, true},
		{JumpIfFalse, "JUMP_IF_FALSE", 1, true},
		{CacheIter, "CACHE_ITER", 0, false},
		{JumpIfFinishIter, "JUMP_IF_FINISH_ITER", 1, true},
		{CopyTop, "COPY_TOP", 0, false},
		{Stop, "STOP", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := GetInfo(tt.code)
			require.Equal(t, tt.code, info.Code)
			require.Equal(t, tt.name, info.Name)
			require.Equal(t, tt.operands, info.OperandCount)
			require.Equal(t, tt.transfer, info.Transfer)
		})
	}
}

func TestUnknownOpcode(t *testing.T) {
	require.Equal(t, "", GetInfo(Code(250)).Name)
	require.Equal(t, "UNKNOWN", Code(9999).String())
}

func TestLookup(t *testing.T) {
	code, ok := Lookup("GET_ITER")
	require.True(t, ok)
	require.Equal(t, GetIter, code)

	_, ok = Lookup("NOPE")
	require.False(t, ok)
}

func TestBinaryMethod(t *testing.T) {
	name, ok := BinaryMethod(Pow)
	require.True(t, ok)
	require.Equal(t, "__pow__", name)

	_, ok = BinaryMethod(Ge)
	require.False(t, ok)
}
