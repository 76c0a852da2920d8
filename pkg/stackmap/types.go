// Package stackmap implements the StackMapTable attribute's frame and
// verification-type encoding. It never touches the constant pool itself:
// Object's constant_pool_index and Uninitialized's bytecode offset are
// carried as plain uint16 values, since resolving them requires the Code
// attribute they describe, which lives one layer up.
package stackmap

// VTag discriminates the nine verification_type_info tags (JVMS 4.7.4).
type VTag uint8

const (
	VTop VTag = iota
	VInteger
	VFloat
	VLong
	VDouble
	VNull
	VUninitializedThis
	VObject
	VUninitialized
)

// VerificationTypeInfo describes the type of one local variable or
// operand stack slot at a frame.
type VerificationTypeInfo interface{ VTag() VTag }

type Top struct{}

func (Top) VTag() VTag { return VTop }

type Integer struct{}

func (Integer) VTag() VTag { return VInteger }

type Float struct{}

func (Float) VTag() VTag { return VFloat }

type Long struct{}

func (Long) VTag() VTag { return VLong }

type Double struct{}

func (Double) VTag() VTag { return VDouble }

type Null struct{}

func (Null) VTag() VTag { return VNull }

type UninitializedThis struct{}

func (UninitializedThis) VTag() VTag { return VUninitializedThis }

// Object names a reference type by its CONSTANT_Class constant pool index.
type Object struct{ ClassIndex uint16 }

func (Object) VTag() VTag { return VObject }

// Uninitialized names the not-yet-initialized result of a new at Offset
// (a bytecode offset within the same Code attribute's instructions).
type Uninitialized struct{ Offset uint16 }

func (Uninitialized) VTag() VTag { return VUninitialized }

// FTag discriminates the seven StackMapFrame shapes (JVMS 4.7.4).
type FTag uint8

const (
	FSame FTag = iota
	FSameLocals1StackItem
	FSameLocals1StackItemExtended
	FChop
	FSameExtended
	FAppend
	FFull
)

// Frame is one entry of a StackMapTable, describing the verification
// state at one bytecode offset relative to the previous frame (or
// relative to -1 for the first frame).
type Frame interface{ FTag() FTag }

// Same is tags 0-63: no locals change, an empty operand stack.
type Same struct{ OffsetDelta uint8 }

func (Same) FTag() FTag { return FSame }

// SameLocals1StackItem is tags 64-127: no locals change, one operand
// stack item.
type SameLocals1StackItem struct {
	OffsetDelta uint8
	Stack       VerificationTypeInfo
}

func (SameLocals1StackItem) FTag() FTag { return FSameLocals1StackItem }

// SameLocals1StackItemExtended is tag 247: SameLocals1StackItem with a
// u16 offset_delta instead of the tag itself encoding it.
type SameLocals1StackItemExtended struct {
	OffsetDelta uint16
	Stack       VerificationTypeInfo
}

func (SameLocals1StackItemExtended) FTag() FTag { return FSameLocals1StackItemExtended }

// Chop is tags 248-250: the last ChopCount (1-3) locals of the previous
// frame are absent, an empty operand stack.
type Chop struct {
	ChopCount   uint8
	OffsetDelta uint16
}

func (Chop) FTag() FTag { return FChop }

// SameExtended is tag 251: Same with a u16 offset_delta.
type SameExtended struct{ OffsetDelta uint16 }

func (SameExtended) FTag() FTag { return FSameExtended }

// Append is tags 252-254: the previous frame's locals plus len(Locals)
// (1-3) additional locals, an empty operand stack.
type Append struct {
	OffsetDelta uint16
	Locals      []VerificationTypeInfo
}

func (Append) FTag() FTag { return FAppend }

// Full is tag 255: complete locals and operand stack, independent of the
// previous frame.
type Full struct {
	OffsetDelta uint16
	Locals      []VerificationTypeInfo
	Stack       []VerificationTypeInfo
}

func (Full) FTag() FTag { return FFull }
