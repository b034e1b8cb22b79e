package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Wire format version written by Marshal.
const wireVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a Code and all nested function bodies to CBOR bytes.
func Marshal(code *Code) ([]byte, error) {
	state, err := stateFromCode(code)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(state)
}

// Unmarshal deserializes a Code from CBOR bytes produced by Marshal.
func Unmarshal(data []byte) (*Code, error) {
	var state codeState
	if err := cbor.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal: %w", err)
	}
	if state.Version != wireVersion {
		return nil, fmt.Errorf("bytecode: unsupported wire version %d", state.Version)
	}
	if len(state.Codes) == 0 {
		return nil, fmt.Errorf("bytecode: unmarshal: no code objects")
	}
	return codeFromState(&state)
}

const (
	constNil     = "nil"
	constBool    = "bool"
	constInt     = "int"
	constDecimal = "decimal"
	constString  = "str"
	constFunc    = "func"
)

type constantDef struct {
	Kind string   `cbor:"1,keyasint"`
	Int  int64    `cbor:"2,keyasint,omitempty"`
	Str  string   `cbor:"3,keyasint,omitempty"`
	Bool bool     `cbor:"4,keyasint,omitempty"`
	Func *funcDef `cbor:"5,keyasint,omitempty"`
}

type funcDef struct {
	Name       string `cbor:"1,keyasint,omitempty"`
	ParamCount int    `cbor:"2,keyasint"`
	CodeIndex  int    `cbor:"3,keyasint"`
}

type codeDef struct {
	ID               string           `cbor:"1,keyasint"`
	Name             string           `cbor:"2,keyasint,omitempty"`
	Path             string           `cbor:"3,keyasint,omitempty"`
	Instructions     []Instruction    `cbor:"4,keyasint"`
	Constants        []constantDef    `cbor:"5,keyasint,omitempty"`
	Names            []string         `cbor:"6,keyasint,omitempty"`
	LocalCount       int              `cbor:"7,keyasint"`
	LocalNames       []string         `cbor:"8,keyasint,omitempty"`
	Captures         []Capture        `cbor:"9,keyasint,omitempty"`
	ExceptionEntries []ExceptionEntry `cbor:"10,keyasint,omitempty"`
}

type codeState struct {
	Version int        `cbor:"1,keyasint"`
	Codes   []*codeDef `cbor:"2,keyasint"`
}

func stateFromCode(code *Code) (*codeState, error) {
	if code == nil {
		return nil, fmt.Errorf("bytecode: marshal: nil code")
	}
	allCodes := code.Flatten()
	codeIndex := make(map[*Code]int, len(allCodes))
	for i, c := range allCodes {
		codeIndex[c] = i
	}
	state := &codeState{
		Version: wireVersion,
		Codes:   make([]*codeDef, len(allCodes)),
	}
	for i, c := range allCodes {
		constants := make([]constantDef, c.ConstantCount())
		for j := 0; j < c.ConstantCount(); j++ {
			def, err := marshalConstant(c.ConstantAt(j), codeIndex)
			if err != nil {
				return nil, err
			}
			constants[j] = def
		}
		state.Codes[i] = &codeDef{
			ID:               c.id,
			Name:             c.name,
			Path:             c.path,
			Instructions:     copyInstructions(c.instructions),
			Constants:        constants,
			Names:            copyStrings(c.names),
			LocalCount:       c.localCount,
			LocalNames:       copyStrings(c.localNames),
			Captures:         copyCaptures(c.captures),
			ExceptionEntries: copyEntries(c.exceptionEntries),
		}
	}
	return state, nil
}

func marshalConstant(k any, codeIndex map[*Code]int) (constantDef, error) {
	switch v := k.(type) {
	case nil:
		return constantDef{Kind: constNil}, nil
	case bool:
		return constantDef{Kind: constBool, Bool: v}, nil
	case int64:
		return constantDef{Kind: constInt, Int: v}, nil
	case int:
		return constantDef{Kind: constInt, Int: int64(v)}, nil
	case Decimal:
		return constantDef{Kind: constDecimal, Str: string(v)}, nil
	case string:
		return constantDef{Kind: constString, Str: v}, nil
	case *Function:
		idx, ok := codeIndex[v.Code()]
		if !ok {
			return constantDef{}, fmt.Errorf("bytecode: marshal: function %q has no body", v.Name())
		}
		return constantDef{Kind: constFunc, Func: &funcDef{
			Name:       v.Name(),
			ParamCount: v.ParamCount(),
			CodeIndex:  idx,
		}}, nil
	default:
		return constantDef{}, fmt.Errorf("bytecode: marshal: unsupported constant type %T", k)
	}
}

// codeFromState rebuilds code objects bottom up. Flatten emits a body before
// the bodies it references, so walking the list backwards sees every
// referenced body before its parent.
func codeFromState(state *codeState) (*Code, error) {
	built := make([]*Code, len(state.Codes))
	for i := len(state.Codes) - 1; i >= 0; i-- {
		def := state.Codes[i]
		if def == nil {
			return nil, fmt.Errorf("bytecode: unmarshal: missing code object %d", i)
		}
		constants := make([]any, len(def.Constants))
		for j, k := range def.Constants {
			v, err := unmarshalConstant(k, i, built)
			if err != nil {
				return nil, err
			}
			constants[j] = v
		}
		built[i] = NewCode(CodeParams{
			ID:               def.ID,
			Name:             def.Name,
			Path:             def.Path,
			Instructions:     def.Instructions,
			Constants:        constants,
			Names:            def.Names,
			LocalCount:       def.LocalCount,
			LocalNames:       def.LocalNames,
			Captures:         def.Captures,
			ExceptionEntries: def.ExceptionEntries,
		})
	}
	return built[0], nil
}

func unmarshalConstant(k constantDef, owner int, built []*Code) (any, error) {
	switch k.Kind {
	case constNil:
		return nil, nil
	case constBool:
		return k.Bool, nil
	case constInt:
		return k.Int, nil
	case constDecimal:
		return ParseDecimal(k.Str)
	case constString:
		return k.Str, nil
	case constFunc:
		if k.Func == nil {
			return nil, fmt.Errorf("bytecode: unmarshal: function constant without definition")
		}
		idx := k.Func.CodeIndex
		if idx <= owner || idx >= len(built) || built[idx] == nil {
			return nil, fmt.Errorf("bytecode: unmarshal: invalid code index %d", idx)
		}
		return NewFunction(FunctionParams{
			Name:       k.Func.Name,
			ParamCount: k.Func.ParamCount,
			Code:       built[idx],
		}), nil
	default:
		return nil, fmt.Errorf("bytecode: unmarshal: unknown constant kind %q", k.Kind)
	}
}
