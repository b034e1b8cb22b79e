// Package dis supports analysis of kiz bytecode by disassembling it.
package dis

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/kiz-lang/kiz/bytecode"
	"github.com/kiz-lang/kiz/internal/table"
	"github.com/kiz-lang/kiz/op"
)

// Instruction represents a single bytecode instruction and its operands.
type Instruction struct {
	Offset     int
	Line       int
	Name       string
	Opcode     op.Code
	Operands   []int
	Annotation string
	Constant   any
}

var (
	boldText    = color.New(color.Bold)
	italicText  = color.New(color.Italic)
	numberText  = color.New(color.FgYellow)
	stringText  = color.New(color.FgGreen)
	funcText    = color.New(color.FgMagenta)
	annotateTxt = color.New(color.FgHiCyan)
)

// Disassemble returns a parsed representation of the given bytecode.
func Disassemble(code *bytecode.Code) ([]Instruction, error) {
	instructions := make([]Instruction, 0, code.InstructionCount())
	for pc := 0; pc < code.InstructionCount(); pc++ {
		instr := code.InstructionAt(pc)
		info := op.GetInfo(instr.Op)
		if info.Name == "" {
			return nil, fmt.Errorf("unknown opcode %d at offset %d", instr.Op, pc)
		}
		if len(instr.Operands) < info.OperandCount {
			return nil, fmt.Errorf("%s at offset %d expects %d operands, got %d",
				info.Name, pc, info.OperandCount, len(instr.Operands))
		}
		var err error
		var constant any
		var annotation string
		switch instr.Op {
		case op.LoadVar, op.SetLocal:
			annotation, err = getLocalVariableName(code, instr.Operand(0))
		case op.LoadGlobal, op.SetGlobal:
			annotation = fmt.Sprintf("global_%d", instr.Operand(0))
		case op.LoadFree, op.SetNonlocal:
			annotation = fmt.Sprintf("free_%d", instr.Operand(0))
		case op.LoadName, op.SetName, op.GetAttr, op.SetAttr, op.CallMethod, op.Import:
			annotation, err = getName(code, instr.Operand(0))
		case op.LoadConst, op.CreateClosure:
			constant, err = getConstantValue(code, instr.Operand(0))
			annotation = fmt.Sprintf("%v", constant)
		case op.EnterTry:
			annotation = fmt.Sprintf("catch %d, finally %d", instr.Operand(0), instr.Operand(1))
		case op.Jump, op.JumpIfFalse, op.JumpIfFinishIter, op.JumpIfFinishHandleError:
			annotation = fmt.Sprintf("to %d", instr.Operand(0))
		}
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, Instruction{
			Offset:     pc,
			Line:       instr.Pos.Line,
			Name:       info.Name,
			Opcode:     instr.Op,
			Operands:   instr.Operands,
			Annotation: annotation,
			Constant:   constant,
		})
	}
	return instructions, nil
}

func formatConstant(c any) string {
	switch c := c.(type) {
	case nil:
		return boldText.Sprint("nil")
	case int64:
		return numberText.Sprintf("%d", c)
	case bytecode.Decimal:
		return numberText.Sprint(c.String())
	case string:
		if len(c) > 80 {
			c = c[:77] + "..."
		}
		return stringText.Sprintf("%q", c)
	case *bytecode.Function:
		name := c.Name()
		if name == "" {
			name = italicText.Sprint("<anonymous>")
		}
		return funcText.Sprintf("func:%s", name)
	default:
		return boldText.Sprintf("%v", c)
	}
}

// Print a string representation of the given instructions to the given writer.
func Print(instructions []Instruction, writer io.Writer) {
	lines := make([][]string, 0, len(instructions))
	for _, instr := range instructions {
		line := ""
		if instr.Line > 0 {
			line = fmt.Sprintf("%d", instr.Line)
		}
		info := ""
		if instr.Constant != nil || instr.Opcode == op.LoadConst {
			info = formatConstant(instr.Constant)
		} else if instr.Annotation != "" {
			info = annotateTxt.Sprint(instr.Annotation)
		}
		lines = append(lines, []string{
			fmt.Sprintf("%d", instr.Offset),
			line,
			boldText.Sprint(instr.Name),
			formatOperands(instr.Operands),
			info,
		})
	}

	table.NewTable(writer).
		WithHeader([]string{"OFFSET", "LINE", "OPCODE", "OPERANDS", "INFO"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignRight,
			table.AlignLeft,
			table.AlignRight,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithRows(lines).
		Render()
}

// PrintExceptionTable writes the exception table of code, if it has one.
func PrintExceptionTable(code *bytecode.Code, writer io.Writer) {
	if code.ExceptionEntryCount() == 0 {
		return
	}
	var rows [][]string
	for i := 0; i < code.ExceptionEntryCount(); i++ {
		e := code.ExceptionEntryAt(i)
		names := strings.Join(e.Names, ", ")
		if e.CatchAll {
			names = italicText.Sprint("*")
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.Start),
			fmt.Sprintf("%d", e.End),
			fmt.Sprintf("%d", e.Handler),
			names,
		})
	}
	table.NewTable(writer).
		WithHeader([]string{"START", "END", "HANDLER", "CATCHES"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignRight,
			table.AlignRight,
			table.AlignLeft,
		}).
		WithRows(rows).
		Render()
}

// PrintAll disassembles code and every nested function body, printing one
// titled table per body.
func PrintAll(code *bytecode.Code, writer io.Writer) error {
	for i, c := range code.Flatten() {
		if i > 0 {
			fmt.Fprintln(writer)
		}
		name := c.Name()
		if name == "" {
			name = "<module>"
		}
		fmt.Fprintf(writer, "%s:\n", boldText.Sprint(name))
		instructions, err := Disassemble(c)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		Print(instructions, writer)
		PrintExceptionTable(c, writer)
	}
	return nil
}

func formatOperands(ops []int) string {
	parts := make([]string, len(ops))
	for i, o := range ops {
		parts[i] = fmt.Sprintf("%d", o)
	}
	return strings.Join(parts, ", ")
}

func getLocalVariableName(code *bytecode.Code, index int) (string, error) {
	if code.LocalCount() <= index {
		return "", fmt.Errorf("local variable index out of range: %d", index)
	}
	if name := code.LocalNameAt(index); name != "" {
		return name, nil
	}
	return fmt.Sprintf("local_%d", index), nil
}

func getConstantValue(code *bytecode.Code, index int) (any, error) {
	if code.ConstantCount() <= index {
		return nil, fmt.Errorf("constant index out of range: %d", index)
	}
	return code.ConstantAt(index), nil
}

func getName(code *bytecode.Code, index int) (string, error) {
	if code.NameCount() <= index {
		return "", fmt.Errorf("name index out of range: %d", index)
	}
	return code.NameAt(index), nil
}
