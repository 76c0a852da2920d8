package bytecode

import "fmt"

// UnknownOpcodeError reports an opcode byte outside the fixed JVMS set
// (including the 0xCB..0xFD reserved range).
type UnknownOpcodeError struct {
	Opcode uint8
	PC     uint32
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode 0x%02X at pc %d", e.Opcode, e.PC)
}

// InvalidWideOpcodeError reports a wide prefix followed by an opcode that
// has no wide form.
type InvalidWideOpcodeError struct {
	Opcode uint8
	PC     uint32
}

func (e *InvalidWideOpcodeError) Error() string {
	return fmt.Sprintf("opcode 0x%02X at pc %d has no wide form", e.Opcode, e.PC)
}

// UnknownPrimitiveTypeError reports a newarray atype byte outside 4..11.
type UnknownPrimitiveTypeError struct {
	Atype uint8
	PC    uint32
}

func (e *UnknownPrimitiveTypeError) Error() string {
	return fmt.Sprintf("invalid newarray primitive type %d at pc %d", e.Atype, e.PC)
}

// OutOfBoundsJumpError reports a branch target with no instruction
// boundary at that byte offset.
type OutOfBoundsJumpError struct {
	Target uint32
}

func (e *OutOfBoundsJumpError) Error() string {
	return fmt.Sprintf("branch target pc %d is not an instruction boundary", e.Target)
}

// TruncatedError reports running out of bytes mid-instruction.
type TruncatedError struct {
	PC   uint32
	What string
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated %s at pc %d", e.What, e.PC)
}

// TooManyInstructionsError reports emitted code exceeding the 32-bit code
// length limit.
type TooManyInstructionsError struct{ Size uint64 }

func (e *TooManyInstructionsError) Error() string {
	return fmt.Sprintf("emitted code size %d exceeds the maximum code length", e.Size)
}

// InvalidInstructionError reports a structural violation in an
// instruction: at encode time, for example, a malformed Dup, an unresolved
// label, an unknown Ldc variant or an invalid operator/kind combination;
// at decode time a malformed switch (tableswitch high < low, negative
// lookupswitch npairs).
type InvalidInstructionError struct {
	Index  int
	Reason string
}

func (e *InvalidInstructionError) Error() string {
	return fmt.Sprintf("invalid instruction at index %d: %s", e.Index, e.Reason)
}

// UnimplementedError reports a feature this codec revision intentionally
// does not support: jsr/jsr_w/ret, or MethodHandle/Dynamic as an Ldc
// operand.
type UnimplementedError struct{ Feature string }

func (e *UnimplementedError) Error() string {
	return fmt.Sprintf("unimplemented: %s", e.Feature)
}
