// Package bytecode provides immutable representations of compiled kiz units.
//
// A compiled unit is a [Code] value: an ordered instruction sequence, a
// constant table, a name table, a capture table describing closure upvalues
// and an exception table mapping protected pc ranges to handler entry
// points. The VM consumes Code values produced by an external front end or
// loaded from the CBOR wire format with [Unmarshal].
//
// # Key Types
//
//   - [Code]: An immutable compiled unit (module or function body)
//   - [Instruction]: An opcode, its integer operands and a source position
//   - [Function]: A function template referenced by CREATE_CLOSURE
//   - [Capture]: Describes one upvalue captured when a closure is created
//   - [ExceptionEntry]: A protected pc range and the names it catches
//   - [Decimal]: A decimal literal constant
//
// # Immutability Guarantees
//
// Constructors copy input slices and accessors hand out values, never the
// internal slices:
//
//	code.InstructionAt(0)
//	code.ConstantAt(i)
//	code.CaptureAt(j)
//
// Constants are stored as []any and converted to heap objects by the VM at
// load time. Allowed constant types are int64, [Decimal], string, bool, nil
// and *[Function].
package bytecode
