package bytecode

import (
	"fmt"
	"strings"

	"github.com/kiz-lang/kiz/errz"
	"github.com/kiz-lang/kiz/op"
)

// Instruction is a single VM instruction.
type Instruction struct {
	Op       op.Code             `cbor:"1,keyasint" json:"op"`
	Operands []int               `cbor:"2,keyasint,omitempty" json:"operands,omitempty"`
	Pos      errz.SourceLocation `cbor:"3,keyasint" json:"pos"`
}

// Operand returns the operand at index i, or 0 when the instruction has
// fewer operands.
func (i Instruction) Operand(idx int) int {
	if idx < 0 || idx >= len(i.Operands) {
		return 0
	}
	return i.Operands[idx]
}

// String returns the instruction in "NAME op1 op2" form.
func (i Instruction) String() string {
	if len(i.Operands) == 0 {
		return i.Op.String()
	}
	parts := make([]string, 0, len(i.Operands)+1)
	parts = append(parts, i.Op.String())
	for _, o := range i.Operands {
		parts = append(parts, fmt.Sprintf("%d", o))
	}
	return strings.Join(parts, " ")
}

// Capture describes one upvalue of a closure. When CREATE_CLOSURE runs, the
// VM walks Depth frames up from the creating frame (0 is the creating frame
// itself) and captures local Slot of that frame. With FromFree set, Slot
// indexes the free variables of that frame's function instead.
type Capture struct {
	Depth    int  `cbor:"1,keyasint" json:"depth"`
	Slot     int  `cbor:"2,keyasint" json:"slot"`
	FromFree bool `cbor:"3,keyasint,omitempty" json:"from_free,omitempty"`
}

// ExceptionEntry is one row of a code object's exception table. It protects
// instructions in [Start, End) and routes errors whose name is in Names, or
// any error when CatchAll is set, to Handler.
type ExceptionEntry struct {
	Start    int      `cbor:"1,keyasint" json:"start"`
	End      int      `cbor:"2,keyasint" json:"end"`
	Names    []string `cbor:"3,keyasint,omitempty" json:"names,omitempty"`
	CatchAll bool     `cbor:"4,keyasint,omitempty" json:"catch_all,omitempty"`
	Handler  int      `cbor:"5,keyasint" json:"handler"`
}

// Covers returns true if pc is inside the protected range.
func (e ExceptionEntry) Covers(pc int) bool {
	return pc >= e.Start && pc < e.End
}

// Catches returns true if the entry handles errors with the given name.
func (e ExceptionEntry) Catches(name string) bool {
	if e.CatchAll {
		return true
	}
	for _, n := range e.Names {
		if n == name {
			return true
		}
	}
	return false
}
