// Package op defines opcodes used by the kiz virtual machine.
package op

// Code is an integer opcode that indicates an operation to execute.
type Code uint16

const (
	Invalid Code = 0

	// Arithmetic
	Add Code = 1
	Sub Code = 2
	Mul Code = 3
	Div Code = 4
	Mod Code = 5
	Pow Code = 6
	Neg Code = 7

	// Comparison
	Eq  Code = 10
	Gt  Code = 11
	Lt  Code = 12
	Ge  Code = 13
	Le  Code = 14
	Ne  Code = 15
	Not Code = 16
	Is  Code = 17
	In  Code = 18

	// Build
	MakeList     Code = 20
	MakeDict     Code = 21
	CreateObject Code = 22

	// Execution
	Call          Code = 30
	CallMethod    Code = 31
	Ret           Code = 32
	CreateClosure Code = 33
	Import        Code = 34
	Stop          Code = 35

	// Attributes and items
	GetAttr Code = 40
	SetAttr Code = 41
	GetItem Code = 42
	SetItem Code = 43
	IsChild Code = 44

	// Load
	LoadVar    Code = 50
	LoadConst  Code = 51
	LoadGlobal Code = 52
	LoadFree   Code = 53
	LoadName   Code = 54

	// Store
	SetLocal    Code = 60
	SetGlobal   Code = 61
	SetNonlocal Code = 62
	SetName     Code = 63

	// Exception handling
	EnterTry                Code = 70 // operands: catch pc, finally pc
	MarkHandleError         Code = 71
	JumpIfFinishHandleError Code = 72 // operand: target pc
	Throw                   Code = 73
	LoadError               Code = 74

	// Jump
	Jump        Code = 80
	JumpIfFalse Code = 81

	// Iteration
	CacheIter        Code = 90
	GetIter          Code = 91
	PopIter          Code = 92
	JumpIfFinishIter Code = 93 // operand: loop exit pc

	// Stack
	CopyTop Code = 100
	PopTop  Code = 101
)

// Info contains information about an opcode.
type Info struct {
	Code         Code
	Name         string
	OperandCount int

	// Transfer is true for opcodes that set the program counter themselves.
	// The dispatch loop does not advance past these instructions.
	Transfer bool
}

var infos = make([]Info, 256)

func init() {
	type opInfo struct {
		op       Code
		name     string
		count    int
		transfer bool
	}
	ops := []opInfo{
		{Add, "OP_ADD", 0, false},
		{Sub, "OP_SUB", 0, false},
		{Mul, "OP_MUL", 0, false},
		{Div, "OP_DIV", 0, false},
		{Mod, "OP_MOD", 0, false},
		{Pow, "OP_POW", 0, false},
		{Neg, "OP_NEG", 0, false},
		{Eq, "OP_EQ", 0, false},
		{Gt, "OP_GT", 0, false},
		{Lt, "OP_LT", 0, false},
		{Ge, "OP_GE", 0, false},
		{Le, "OP_LE", 0, false},
		{Ne, "OP_NE", 0, false},
		{Not, "OP_NOT", 0, false},
		{Is, "OP_IS", 0, false},
		{In, "OP_IN", 0, false},
		{MakeList, "MAKE_LIST", 1, false},
		{MakeDict, "MAKE_DICT", 1, false},
		{CreateObject, "CREATE_OBJECT", 0, false},
		{Call, "CALL", 0, false},
		{CallMethod, "CALL_METHOD", 1, false},
		{Ret, "RET", 0, true},
		{CreateClosure, "CREATE_CLOSURE", 1, false},
		{Import, "IMPORT", 1, false},
		{Stop, "STOP", 0, false},
		{GetAttr, "GET_ATTR", 1, false},
		{SetAttr, "SET_ATTR", 1, false},
		{GetItem, "GET_ITEM", 0, false},
		{SetItem, "SET_ITEM", 0, false},
		{IsChild, "IS_CHILD", 0, false},
		{LoadVar, "LOAD_VAR", 1, false},
		{LoadConst, "LOAD_CONST", 1, false},
		{LoadGlobal, "LOAD_GLOBAL", 1, false},
		{LoadFree, "LOAD_FREE_VAR", 1, false},
		{LoadName, "LOAD_NAME", 1, false},
		{SetLocal, "SET_LOCAL", 1, false},
		{SetGlobal, "SET_GLOBAL", 1, false},
		{SetNonlocal, "SET_NONLOCAL", 1, false},
		{SetName, "SET_NAME", 1, false},
		{EnterTry, "ENTER_TRY", 2, false},
		{MarkHandleError, "MARK_HANDLE_ERROR", 0, false},
		{JumpIfFinishHandleError, "JUMP_IF_FINISH_HANDLE_ERROR", 1, true},
		{Throw, "THROW", 0, true},
		{LoadError, "LOAD_ERROR", 0, false},
		{Jump, "JUMP", 1, true},
		{JumpIfFalse, "JUMP_IF_FALSE", 1, true},
		{CacheIter, "CACHE_ITER", 0, false},
		{GetIter, "GET_ITER", 0, false},
		{PopIter, "POP_ITER", 0, false},
		{JumpIfFinishIter, "JUMP_IF_FINISH_ITER", 1, true},
		{CopyTop, "COPY_TOP", 0, false},
		{PopTop, "POP_TOP", 0, false},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Name:         o.name,
			Code:         o.op,
			OperandCount: o.count,
			Transfer:     o.transfer,
		}
	}
}

// GetInfo returns information about the given opcode. Unknown opcodes
// return an Info with an empty Name.
func GetInfo(op Code) Info {
	if int(op) >= len(infos) {
		return Info{Code: op}
	}
	return infos[op]
}

// String returns the opcode name, e.g. "LOAD_CONST".
func (c Code) String() string {
	if name := GetInfo(c).Name; name != "" {
		return name
	}
	return "UNKNOWN"
}

// Lookup returns the opcode with the given name.
func Lookup(name string) (Code, bool) {
	for _, info := range infos {
		if info.Name != "" && info.Name == name {
			return info.Code, true
		}
	}
	return Invalid, false
}

// BinaryMethod returns the method name dispatched by an arithmetic or
// strict comparison opcode, e.g. "__add__" for Add.
func BinaryMethod(c Code) (string, bool) {
	switch c {
	case Add:
		return "__add__", true
	case Sub:
		return "__sub__", true
	case Mul:
		return "__mul__", true
	case Div:
		return "__div__", true
	case Mod:
		return "__mod__", true
	case Pow:
		return "__pow__", true
	case Eq:
		return "__eq__", true
	case Gt:
		return "__gt__", true
	case Lt:
		return "__lt__", true
	}
	return "", false
}
