package bytecode

// InsnKind discriminates the closed set of instruction variants. The set
// is exhaustive over the JVMS opcode space after canonicalisation: many
// distinct opcodes (iadd/ladd/fadd/dadd, ...) collapse onto one variant
// parameterised by Kind.
type InsnKind uint8

const (
	KLabel InsnKind = iota
	KLocalLoad
	KLocalStore
	KIncrementInt
	KPop
	KDup
	KSwap
	KNop
	KLdc
	KArithOp
	KBitwiseOp
	KCompare
	KConvert
	KArrayLoad
	KArrayStore
	KNewArray
	KMultiNewArray
	KArrayLength
	KNewObject
	KCheckCast
	KInstanceOf
	KGetField
	KPutField
	KInvoke
	KInvokeDynamic
	KJump
	KConditionalJump
	KReturn
	KThrow
	KTableSwitch
	KLookupSwitch
	KMonitorEnter
	KMonitorExit
	KBreakPoint
	KImpDep1
	KImpDep2
)

// Insn is a single bytecode instruction, position-independent: branch
// targets are Label ids, constant references are resolved strings/typed
// literals, never raw pool indices or pc offsets.
type Insn interface {
	InsnKind() InsnKind
}

// LabelInsn marks a position in an InsnList. A label id is "resolved" once
// exactly one Label instruction carrying that id appears in the list.
type LabelInsn struct{ ID uint32 }

func (LabelInsn) InsnKind() InsnKind { return KLabel }

// LocalLoad reads local variable slot Index as Kind.
type LocalLoad struct {
	Kind  Kind
	Index uint16
}

func (LocalLoad) InsnKind() InsnKind { return KLocalLoad }

// LocalStore writes the top of stack into local variable slot Index as Kind.
type LocalStore struct {
	Kind  Kind
	Index uint16
}

func (LocalStore) InsnKind() InsnKind { return KLocalStore }

// IncrementInt implements iinc: local[Index] += Delta.
type IncrementInt struct {
	Index uint16
	Delta int16
}

func (IncrementInt) InsnKind() InsnKind { return KIncrementInt }

// Pop discards the top stack value; Double selects pop2 (drops two
// category-1 slots, or one category-2 value).
type Pop struct{ Double bool }

func (Pop) InsnKind() InsnKind { return KPop }

// Dup duplicates Count words and inserts the copy Down words below its
// original position (down=0 means immediately on top).
type Dup struct {
	Count int
	Down  int
}

func (Dup) InsnKind() InsnKind { return KDup }

type SwapInsn struct{}

func (SwapInsn) InsnKind() InsnKind { return KSwap }

type NopInsn struct{}

func (NopInsn) InsnKind() InsnKind { return KNop }

// LdcVariant discriminates the literal carried by an Ldc instruction.
type LdcVariant uint8

const (
	LdcNull LdcVariant = iota
	LdcInt
	LdcLong
	LdcFloat
	LdcDouble
	LdcString
	LdcClass
	LdcMethodType
	LdcMethodHandle
	LdcDynamic
)

// Ldc unifies aconst_null, iconst_*/lconst_*/fconst_*/dconst_*, bipush,
// sipush, ldc, ldc_w and ldc2_w into one semantic "load constant"
// instruction.
type Ldc struct {
	Variant    LdcVariant
	IntValue   int32
	LongValue  int64
	FloatValue float32
	DoubleVal  float64
	StrValue   string // String/Class/MethodType payload
}

func (Ldc) InsnKind() InsnKind { return KLdc }

// ArithOperator enumerates the JVMS arithmetic family.
type ArithOperator uint8

const (
	ArithAdd ArithOperator = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithRem
	ArithNeg
)

// ArithOp collapses {i,l,f,d}{add,sub,mul,div,rem,neg} into one variant.
type ArithOp struct {
	Op   ArithOperator
	Kind Kind // KindInt, KindLong, KindFloat or KindDouble
}

func (ArithOp) InsnKind() InsnKind { return KArithOp }

// BitwiseOperator enumerates the JVMS integer bitwise family.
type BitwiseOperator uint8

const (
	BitwiseAnd BitwiseOperator = iota
	BitwiseOr
	BitwiseXor
	BitwiseShiftLeft
	BitwiseShiftRight
	BitwiseLogicalShiftRight
)

// BitwiseOp collapses {i,l}{and,or,xor,shl,shr,ushr} into one variant.
type BitwiseOp struct {
	Op   BitwiseOperator
	Kind Kind // KindInt or KindLong
}

func (BitwiseOp) InsnKind() InsnKind { return KBitwiseOp }

// Compare collapses lcmp/fcmpg/fcmpl/dcmpg/dcmpl. PosOnNaN selects the
// "g" (NaN compares greater) vs "l" (NaN compares less) form; it is
// ignored for Kind == KindLong, which has only one form.
type Compare struct {
	Kind     Kind
	PosOnNaN bool
}

func (Compare) InsnKind() InsnKind { return KCompare }

// Convert implements the primitive widening/narrowing conversions
// (i2l, i2f, ..., d2f).
type Convert struct {
	From Kind
	To   Kind
}

func (Convert) InsnKind() InsnKind { return KConvert }

// ArrayLoad/ArrayStore. baload/bastore always decode as KindByte: byte and
// boolean arrays are indistinguishable in the bytecode.
type ArrayLoad struct{ Kind Kind }

func (ArrayLoad) InsnKind() InsnKind { return KArrayLoad }

type ArrayStore struct{ Kind Kind }

func (ArrayStore) InsnKind() InsnKind { return KArrayStore }

// NewArray allocates a 1-dimensional array. ClassName is set (and Kind
// ignored) for anewarray (reference element type); otherwise Kind selects
// the primitive element type for newarray.
type NewArray struct {
	Kind      Kind
	ClassName string
	Reference bool
}

func (NewArray) InsnKind() InsnKind { return KNewArray }

// MultiNewArray implements multianewarray.
type MultiNewArray struct {
	Descriptor string
	Dimensions uint8
}

func (MultiNewArray) InsnKind() InsnKind { return KMultiNewArray }

type ArrayLengthInsn struct{}

func (ArrayLengthInsn) InsnKind() InsnKind { return KArrayLength }

// NewObject implements new.
type NewObject struct{ ClassName string }

func (NewObject) InsnKind() InsnKind { return KNewObject }

type CheckCast struct{ ClassName string }

func (CheckCast) InsnKind() InsnKind { return KCheckCast }

type InstanceOf struct{ ClassName string }

func (InstanceOf) InsnKind() InsnKind { return KInstanceOf }

// GetField/PutField. Static selects getstatic/putstatic vs the instance
// forms.
type GetField struct {
	Static     bool
	ClassName  string
	Name       string
	Descriptor string
}

func (GetField) InsnKind() InsnKind { return KGetField }

type PutField struct {
	Static     bool
	ClassName  string
	Name       string
	Descriptor string
}

func (PutField) InsnKind() InsnKind { return KPutField }

// Invoke unifies invokestatic/invokespecial/invokevirtual/invokeinterface.
// Interface distinguishes invokeinterface from invokevirtual, both of
// which are InvokeInstance mode; without it the encoder could not pick
// the right opcode (and invokeinterface's count byte) back.
type Invoke struct {
	Mode       InvokeMode
	Interface  bool
	ClassName  string
	Name       string
	Descriptor string
}

func (Invoke) InsnKind() InsnKind { return KInvoke }

// InvokeDynamic implements invokedynamic. BootstrapMethodIndex refers into
// the class-level BootstrapMethods attribute, which lives outside the
// Code attribute and is therefore out of this codec's reach to resolve
// further.
type InvokeDynamic struct {
	BootstrapMethodIndex uint16
	Name                 string
	Descriptor           string
}

func (InvokeDynamic) InsnKind() InsnKind { return KInvokeDynamic }

// Jump implements goto/goto_w as a symbolic branch to Target.
type Jump struct{ Target uint32 }

func (Jump) InsnKind() InsnKind { return KJump }

// Condition enumerates the JVMS conditional-jump family (if*, if_icmp*,
// if_acmp*, ifnull, ifnonnull).
type Condition uint8

const (
	CondEQ Condition = iota
	CondNE
	CondLT
	CondGE
	CondGT
	CondLE
	CondICmpEQ
	CondICmpNE
	CondICmpLT
	CondICmpGE
	CondICmpGT
	CondICmpLE
	CondACmpEQ
	CondACmpNE
	CondNull
	CondNonNull
)

type ConditionalJump struct {
	Condition Condition
	Target    uint32
}

func (ConditionalJump) InsnKind() InsnKind { return KConditionalJump }

type Return struct{ Kind ReturnKind }

func (Return) InsnKind() InsnKind { return KReturn }

type ThrowInsn struct{}

func (ThrowInsn) InsnKind() InsnKind { return KThrow }

// TableSwitch implements tableswitch: a contiguous range [Low, High] of
// keys, each with its own target, plus a Default fallback.
type TableSwitch struct {
	Default uint32
	Low     int32
	High    int32
	Targets []uint32 // len == High-Low+1
}

func (TableSwitch) InsnKind() InsnKind { return KTableSwitch }

// LookupSwitchCase is one (match, target) pair of a lookupswitch.
type LookupSwitchCase struct {
	Match  int32
	Target uint32
}

// LookupSwitch implements lookupswitch: a sparse mapping of int32 keys to
// targets, plus a Default fallback. Cases are kept and encoded in slice
// order; nothing sorts them, so the wire's ascending Match order holds
// only if the caller builds Cases in that order.
type LookupSwitch struct {
	Default uint32
	Cases   []LookupSwitchCase
}

func (LookupSwitch) InsnKind() InsnKind { return KLookupSwitch }

type MonitorEnterInsn struct{}

func (MonitorEnterInsn) InsnKind() InsnKind { return KMonitorEnter }

type MonitorExitInsn struct{}

func (MonitorExitInsn) InsnKind() InsnKind { return KMonitorExit }

type BreakPointInsn struct{}

func (BreakPointInsn) InsnKind() InsnKind { return KBreakPoint }

type ImpDep1Insn struct{}

func (ImpDep1Insn) InsnKind() InsnKind { return KImpDep1 }

type ImpDep2Insn struct{}

func (ImpDep2Insn) InsnKind() InsnKind { return KImpDep2 }
