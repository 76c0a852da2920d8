package bytecode

import (
	"github.com/jclass-go/jclass/pkg/cpool"
)

// Decode turns a Code attribute's raw instruction bytes into a position
// independent InsnList. It runs in two passes: the first walks the bytes
// opcode by opcode, producing one Insn per instruction with branch
// instructions holding their raw (pc-relative resolved) byte target; the
// second replaces every raw target with a label id and inserts the Label
// markers those ids name, at the position the target byte offset maps to.
func Decode(code []byte, pool *cpool.Pool) (*InsnList, error) {
	list, _, err := DecodeWithBoundaryLabels(code, pool, nil)
	return list, err
}

// DecodeWithBoundaryLabels is Decode plus resolution of a caller-supplied
// set of raw byte offsets to the same label ids the branch-rewriting pass
// uses, returned as a pc -> label id map. This is how exception handler
// start_pc/end_pc/handler_pc values (which sit outside the instruction
// stream that carries branch operands) get turned into the label
// references the Code attribute's data model requires instead of raw
// positions that would go stale the moment the instructions are re-laid
// out. end_pc may legally equal len(code) (the protected range extends to
// the very end of the method); that boundary has no instruction starting
// there, so it resolves to a label placed after the last instruction
// rather than a pcToIndex lookup.
func DecodeWithBoundaryLabels(code []byte, pool *cpool.Pool, boundaryPCs []uint32) (*InsnList, map[uint32]uint32, error) {
	insns, pcToIndex, err := decodePass(code, pool)
	if err != nil {
		return nil, nil, err
	}

	list := NewInsnList()
	labelForPC := make(map[uint32]uint32)
	codeLen := uint32(len(code))

	labelFor := func(pc uint32, allowEnd bool) (uint32, error) {
		if id, ok := labelForPC[pc]; ok {
			return id, nil
		}
		if _, ok := pcToIndex[pc]; !ok {
			// Only a handler boundary may sit at the very end of the code
			// array; a branch must land on a real instruction.
			if !allowEnd || pc != codeLen {
				return 0, &OutOfBoundsJumpError{Target: pc}
			}
		}
		id := list.NewLabel()
		labelForPC[pc] = id
		return id, nil
	}

	for i, insn := range insns {
		rewritten, err := rewriteBranchTargets(insn, func(pc uint32) (uint32, error) {
			return labelFor(pc, false)
		})
		if err != nil {
			return nil, nil, err
		}
		insns[i] = rewritten
	}

	boundaryLabels := make(map[uint32]uint32, len(boundaryPCs))
	for _, pc := range boundaryPCs {
		id, err := labelFor(pc, true)
		if err != nil {
			return nil, nil, err
		}
		boundaryLabels[pc] = id
	}

	indexToLabel := make(map[int]uint32, len(labelForPC))
	for pc, id := range labelForPC {
		if pc == codeLen {
			continue // placed after the last instruction below, not at a pcToIndex position
		}
		indexToLabel[pcToIndex[pc]] = id
	}

	for i, insn := range insns {
		if id, ok := indexToLabel[i]; ok {
			list.Append(LabelInsn{ID: id})
		}
		list.Append(insn)
	}
	if id, ok := labelForPC[codeLen]; ok {
		list.Append(LabelInsn{ID: id})
	}

	return list, boundaryLabels, nil
}

// rewriteBranchTargets replaces the raw byte-offset target(s) carried by a
// branch instruction with label ids, leaving every other instruction
// untouched.
func rewriteBranchTargets(insn Insn, labelFor func(uint32) (uint32, error)) (Insn, error) {
	switch v := insn.(type) {
	case Jump:
		id, err := labelFor(v.Target)
		if err != nil {
			return nil, err
		}
		return Jump{Target: id}, nil
	case ConditionalJump:
		id, err := labelFor(v.Target)
		if err != nil {
			return nil, err
		}
		return ConditionalJump{Condition: v.Condition, Target: id}, nil
	case TableSwitch:
		def, err := labelFor(v.Default)
		if err != nil {
			return nil, err
		}
		targets := make([]uint32, len(v.Targets))
		for i, t := range v.Targets {
			id, err := labelFor(t)
			if err != nil {
				return nil, err
			}
			targets[i] = id
		}
		return TableSwitch{Default: def, Low: v.Low, High: v.High, Targets: targets}, nil
	case LookupSwitch:
		def, err := labelFor(v.Default)
		if err != nil {
			return nil, err
		}
		cases := make([]LookupSwitchCase, len(v.Cases))
		for i, c := range v.Cases {
			id, err := labelFor(c.Target)
			if err != nil {
				return nil, err
			}
			cases[i] = LookupSwitchCase{Match: c.Match, Target: id}
		}
		return LookupSwitch{Default: def, Cases: cases}, nil
	default:
		return insn, nil
	}
}

// cursor walks code, tracking only the read position (pc); the caller
// keeps the offset of the instruction being decoded (thisPC) itself,
// since branch targets are resolved relative to thisPC.
type cursor struct {
	code []byte
	pc   uint32
}

func (c *cursor) u8() (uint8, error) {
	if int(c.pc) >= len(c.code) {
		return 0, &TruncatedError{PC: c.pc, What: "u8"}
	}
	b := c.code[c.pc]
	c.pc++
	return b, nil
}

func (c *cursor) i8() (int8, error) {
	b, err := c.u8()
	return int8(b), err
}

func (c *cursor) u16() (uint16, error) {
	if int(c.pc)+2 > len(c.code) {
		return 0, &TruncatedError{PC: c.pc, What: "u16"}
	}
	v := uint16(c.code[c.pc])<<8 | uint16(c.code[c.pc+1])
	c.pc += 2
	return v, nil
}

func (c *cursor) i16() (int16, error) {
	v, err := c.u16()
	return int16(v), err
}

func (c *cursor) i32() (int32, error) {
	if int(c.pc)+4 > len(c.code) {
		return 0, &TruncatedError{PC: c.pc, What: "i32"}
	}
	v := uint32(c.code[c.pc])<<24 | uint32(c.code[c.pc+1])<<16 | uint32(c.code[c.pc+2])<<8 | uint32(c.code[c.pc+3])
	c.pc += 4
	return int32(v), nil
}

func (c *cursor) skip(n uint32) error {
	if uint64(c.pc)+uint64(n) > uint64(len(c.code)) {
		return &TruncatedError{PC: c.pc, What: "padding"}
	}
	c.pc += n
	return nil
}

func branchTarget(thisPC uint32, disp int64) uint32 {
	return uint32(int64(thisPC) + disp)
}

func decodePass(code []byte, pool *cpool.Pool) ([]Insn, map[uint32]int, error) {
	c := &cursor{code: code}
	var insns []Insn
	pcToIndex := make(map[uint32]int)

	for int(c.pc) < len(code) {
		thisPC := c.pc
		op, err := c.u8()
		if err != nil {
			return nil, nil, err
		}

		insn, err := decodeOne(c, op, thisPC, pool)
		if err != nil {
			return nil, nil, err
		}

		pcToIndex[thisPC] = len(insns)
		insns = append(insns, insn)
	}

	return insns, pcToIndex, nil
}

func decodeOne(c *cursor, op uint8, thisPC uint32, pool *cpool.Pool) (Insn, error) {
	switch op {
	case opNop:
		return NopInsn{}, nil
	case opAconstNull:
		return Ldc{Variant: LdcNull}, nil
	case opIconstM1:
		return Ldc{Variant: LdcInt, IntValue: -1}, nil
	case opIconst0:
		return Ldc{Variant: LdcInt, IntValue: 0}, nil
	case opIconst1:
		return Ldc{Variant: LdcInt, IntValue: 1}, nil
	case opIconst2:
		return Ldc{Variant: LdcInt, IntValue: 2}, nil
	case opIconst3:
		return Ldc{Variant: LdcInt, IntValue: 3}, nil
	case opIconst4:
		return Ldc{Variant: LdcInt, IntValue: 4}, nil
	case opIconst5:
		return Ldc{Variant: LdcInt, IntValue: 5}, nil
	case opLconst0:
		return Ldc{Variant: LdcLong, LongValue: 0}, nil
	case opLconst1:
		return Ldc{Variant: LdcLong, LongValue: 1}, nil
	case opFconst0:
		return Ldc{Variant: LdcFloat, FloatValue: 0}, nil
	case opFconst1:
		return Ldc{Variant: LdcFloat, FloatValue: 1}, nil
	case opFconst2:
		return Ldc{Variant: LdcFloat, FloatValue: 2}, nil
	case opDconst0:
		return Ldc{Variant: LdcDouble, DoubleVal: 0}, nil
	case opDconst1:
		return Ldc{Variant: LdcDouble, DoubleVal: 1}, nil
	case opBipush:
		v, err := c.i8()
		if err != nil {
			return nil, err
		}
		return Ldc{Variant: LdcInt, IntValue: int32(v)}, nil
	case opSipush:
		v, err := c.i16()
		if err != nil {
			return nil, err
		}
		return Ldc{Variant: LdcInt, IntValue: int32(v)}, nil
	case opLdc:
		idx, err := c.u8()
		if err != nil {
			return nil, err
		}
		return parseLdc(uint16(idx), pool)
	case opLdcW, opLdc2W:
		idx, err := c.u16()
		if err != nil {
			return nil, err
		}
		return parseLdc(idx, pool)

	case opIload:
		return decodeLocalLoadU8(c, KindInt)
	case opLload:
		// Un-wided lload must decode as KindLong, not KindDouble.
		return decodeLocalLoadU8(c, KindLong)
	case opFload:
		return decodeLocalLoadU8(c, KindFloat)
	case opDload:
		return decodeLocalLoadU8(c, KindDouble)
	case opAload:
		return decodeLocalLoadU8(c, KindReference)
	case opIload0:
		return LocalLoad{Kind: KindInt, Index: 0}, nil
	case opIload1:
		return LocalLoad{Kind: KindInt, Index: 1}, nil
	case opIload2:
		return LocalLoad{Kind: KindInt, Index: 2}, nil
	case opIload3:
		return LocalLoad{Kind: KindInt, Index: 3}, nil
	case opLload0:
		return LocalLoad{Kind: KindLong, Index: 0}, nil
	case opLload1:
		return LocalLoad{Kind: KindLong, Index: 1}, nil
	case opLload2:
		return LocalLoad{Kind: KindLong, Index: 2}, nil
	case opLload3:
		return LocalLoad{Kind: KindLong, Index: 3}, nil
	case opFload0:
		return LocalLoad{Kind: KindFloat, Index: 0}, nil
	case opFload1:
		return LocalLoad{Kind: KindFloat, Index: 1}, nil
	case opFload2:
		return LocalLoad{Kind: KindFloat, Index: 2}, nil
	case opFload3:
		return LocalLoad{Kind: KindFloat, Index: 3}, nil
	case opDload0:
		return LocalLoad{Kind: KindDouble, Index: 0}, nil
	case opDload1:
		return LocalLoad{Kind: KindDouble, Index: 1}, nil
	case opDload2:
		return LocalLoad{Kind: KindDouble, Index: 2}, nil
	case opDload3:
		return LocalLoad{Kind: KindDouble, Index: 3}, nil
	case opAload0:
		return LocalLoad{Kind: KindReference, Index: 0}, nil
	case opAload1:
		return LocalLoad{Kind: KindReference, Index: 1}, nil
	case opAload2:
		return LocalLoad{Kind: KindReference, Index: 2}, nil
	case opAload3:
		return LocalLoad{Kind: KindReference, Index: 3}, nil

	case opIstore:
		return decodeLocalStoreU8(c, KindInt)
	case opLstore:
		return decodeLocalStoreU8(c, KindLong)
	case opFstore:
		return decodeLocalStoreU8(c, KindFloat)
	case opDstore:
		return decodeLocalStoreU8(c, KindDouble)
	case opAstore:
		return decodeLocalStoreU8(c, KindReference)
	case opIstore0:
		return LocalStore{Kind: KindInt, Index: 0}, nil
	case opIstore1:
		return LocalStore{Kind: KindInt, Index: 1}, nil
	case opIstore2:
		return LocalStore{Kind: KindInt, Index: 2}, nil
	case opIstore3:
		return LocalStore{Kind: KindInt, Index: 3}, nil
	case opLstore0:
		return LocalStore{Kind: KindLong, Index: 0}, nil
	case opLstore1:
		return LocalStore{Kind: KindLong, Index: 1}, nil
	case opLstore2:
		return LocalStore{Kind: KindLong, Index: 2}, nil
	case opLstore3:
		return LocalStore{Kind: KindLong, Index: 3}, nil
	case opFstore0:
		return LocalStore{Kind: KindFloat, Index: 0}, nil
	case opFstore1:
		return LocalStore{Kind: KindFloat, Index: 1}, nil
	case opFstore2:
		return LocalStore{Kind: KindFloat, Index: 2}, nil
	case opFstore3:
		return LocalStore{Kind: KindFloat, Index: 3}, nil
	case opDstore0:
		return LocalStore{Kind: KindDouble, Index: 0}, nil
	case opDstore1:
		return LocalStore{Kind: KindDouble, Index: 1}, nil
	case opDstore2:
		return LocalStore{Kind: KindDouble, Index: 2}, nil
	case opDstore3:
		return LocalStore{Kind: KindDouble, Index: 3}, nil
	case opAstore0:
		return LocalStore{Kind: KindReference, Index: 0}, nil
	case opAstore1:
		return LocalStore{Kind: KindReference, Index: 1}, nil
	case opAstore2:
		return LocalStore{Kind: KindReference, Index: 2}, nil
	case opAstore3:
		return LocalStore{Kind: KindReference, Index: 3}, nil

	case opIaload:
		return ArrayLoad{Kind: KindInt}, nil
	case opLaload:
		return ArrayLoad{Kind: KindLong}, nil
	case opFaload:
		return ArrayLoad{Kind: KindFloat}, nil
	case opDaload:
		return ArrayLoad{Kind: KindDouble}, nil
	case opAaload:
		return ArrayLoad{Kind: KindReference}, nil
	case opBaload:
		return ArrayLoad{Kind: KindByte}, nil
	case opCaload:
		return ArrayLoad{Kind: KindChar}, nil
	case opSaload:
		return ArrayLoad{Kind: KindShort}, nil
	case opIastore:
		return ArrayStore{Kind: KindInt}, nil
	case opLastore:
		return ArrayStore{Kind: KindLong}, nil
	case opFastore:
		return ArrayStore{Kind: KindFloat}, nil
	case opDastore:
		return ArrayStore{Kind: KindDouble}, nil
	case opAastore:
		return ArrayStore{Kind: KindReference}, nil
	case opBastore:
		return ArrayStore{Kind: KindByte}, nil
	case opCastore:
		return ArrayStore{Kind: KindChar}, nil
	case opSastore:
		return ArrayStore{Kind: KindShort}, nil

	case opPop:
		return Pop{Double: false}, nil
	case opPop2:
		return Pop{Double: true}, nil
	case opDup:
		return Dup{Count: 1, Down: 0}, nil
	case opDupX1:
		return Dup{Count: 1, Down: 1}, nil
	case opDupX2:
		return Dup{Count: 1, Down: 2}, nil
	case opDup2:
		return Dup{Count: 2, Down: 0}, nil
	case opDup2X1:
		return Dup{Count: 2, Down: 1}, nil
	case opDup2X2:
		return Dup{Count: 2, Down: 2}, nil
	case opSwap:
		return SwapInsn{}, nil

	case opIadd:
		return ArithOp{Op: ArithAdd, Kind: KindInt}, nil
	case opLadd:
		return ArithOp{Op: ArithAdd, Kind: KindLong}, nil
	case opFadd:
		return ArithOp{Op: ArithAdd, Kind: KindFloat}, nil
	case opDadd:
		return ArithOp{Op: ArithAdd, Kind: KindDouble}, nil
	case opIsub:
		return ArithOp{Op: ArithSub, Kind: KindInt}, nil
	case opLsub:
		return ArithOp{Op: ArithSub, Kind: KindLong}, nil
	case opFsub:
		return ArithOp{Op: ArithSub, Kind: KindFloat}, nil
	case opDsub:
		return ArithOp{Op: ArithSub, Kind: KindDouble}, nil
	case opImul:
		return ArithOp{Op: ArithMul, Kind: KindInt}, nil
	case opLmul:
		return ArithOp{Op: ArithMul, Kind: KindLong}, nil
	case opFmul:
		return ArithOp{Op: ArithMul, Kind: KindFloat}, nil
	case opDmul:
		return ArithOp{Op: ArithMul, Kind: KindDouble}, nil
	case opIdiv:
		return ArithOp{Op: ArithDiv, Kind: KindInt}, nil
	case opLdiv:
		return ArithOp{Op: ArithDiv, Kind: KindLong}, nil
	case opFdiv:
		return ArithOp{Op: ArithDiv, Kind: KindFloat}, nil
	case opDdiv:
		return ArithOp{Op: ArithDiv, Kind: KindDouble}, nil
	case opIrem:
		return ArithOp{Op: ArithRem, Kind: KindInt}, nil
	case opLrem:
		return ArithOp{Op: ArithRem, Kind: KindLong}, nil
	case opFrem:
		return ArithOp{Op: ArithRem, Kind: KindFloat}, nil
	case opDrem:
		return ArithOp{Op: ArithRem, Kind: KindDouble}, nil
	case opIneg:
		return ArithOp{Op: ArithNeg, Kind: KindInt}, nil
	case opLneg:
		return ArithOp{Op: ArithNeg, Kind: KindLong}, nil
	case opFneg:
		return ArithOp{Op: ArithNeg, Kind: KindFloat}, nil
	case opDneg:
		return ArithOp{Op: ArithNeg, Kind: KindDouble}, nil

	case opIshl:
		return BitwiseOp{Op: BitwiseShiftLeft, Kind: KindInt}, nil
	case opLshl:
		return BitwiseOp{Op: BitwiseShiftLeft, Kind: KindLong}, nil
	case opIshr:
		return BitwiseOp{Op: BitwiseShiftRight, Kind: KindInt}, nil
	case opLshr:
		return BitwiseOp{Op: BitwiseShiftRight, Kind: KindLong}, nil
	case opIushr:
		return BitwiseOp{Op: BitwiseLogicalShiftRight, Kind: KindInt}, nil
	case opLushr:
		return BitwiseOp{Op: BitwiseLogicalShiftRight, Kind: KindLong}, nil
	case opIand:
		return BitwiseOp{Op: BitwiseAnd, Kind: KindInt}, nil
	case opLand:
		return BitwiseOp{Op: BitwiseAnd, Kind: KindLong}, nil
	case opIor:
		return BitwiseOp{Op: BitwiseOr, Kind: KindInt}, nil
	case opLor:
		return BitwiseOp{Op: BitwiseOr, Kind: KindLong}, nil
	case opIxor:
		return BitwiseOp{Op: BitwiseXor, Kind: KindInt}, nil
	case opLxor:
		return BitwiseOp{Op: BitwiseXor, Kind: KindLong}, nil

	case opIinc:
		idx, err := c.u8()
		if err != nil {
			return nil, err
		}
		delta, err := c.i8()
		if err != nil {
			return nil, err
		}
		return IncrementInt{Index: uint16(idx), Delta: int16(delta)}, nil

	case opI2l:
		return Convert{From: KindInt, To: KindLong}, nil
	case opI2f:
		return Convert{From: KindInt, To: KindFloat}, nil
	case opI2d:
		return Convert{From: KindInt, To: KindDouble}, nil
	case opI2b:
		return Convert{From: KindInt, To: KindByte}, nil
	case opI2c:
		return Convert{From: KindInt, To: KindChar}, nil
	case opI2s:
		return Convert{From: KindInt, To: KindShort}, nil
	case opL2i:
		return Convert{From: KindLong, To: KindInt}, nil
	case opL2f:
		return Convert{From: KindLong, To: KindFloat}, nil
	case opL2d:
		return Convert{From: KindLong, To: KindDouble}, nil
	case opF2i:
		return Convert{From: KindFloat, To: KindInt}, nil
	case opF2l:
		return Convert{From: KindFloat, To: KindLong}, nil
	case opF2d:
		return Convert{From: KindFloat, To: KindDouble}, nil
	case opD2i:
		return Convert{From: KindDouble, To: KindInt}, nil
	case opD2l:
		return Convert{From: KindDouble, To: KindLong}, nil
	case opD2f:
		return Convert{From: KindDouble, To: KindFloat}, nil

	case opLcmp:
		return Compare{Kind: KindLong}, nil
	case opFcmpl:
		return Compare{Kind: KindFloat, PosOnNaN: false}, nil
	case opFcmpg:
		return Compare{Kind: KindFloat, PosOnNaN: true}, nil
	case opDcmpl:
		return Compare{Kind: KindDouble, PosOnNaN: false}, nil
	case opDcmpg:
		return Compare{Kind: KindDouble, PosOnNaN: true}, nil

	case opIfeq:
		return decodeCondJump(c, thisPC, CondEQ)
	case opIfne:
		return decodeCondJump(c, thisPC, CondNE)
	case opIflt:
		return decodeCondJump(c, thisPC, CondLT)
	case opIfge:
		return decodeCondJump(c, thisPC, CondGE)
	case opIfgt:
		return decodeCondJump(c, thisPC, CondGT)
	case opIfle:
		return decodeCondJump(c, thisPC, CondLE)
	case opIfIcmpeq:
		return decodeCondJump(c, thisPC, CondICmpEQ)
	case opIfIcmpne:
		return decodeCondJump(c, thisPC, CondICmpNE)
	case opIfIcmplt:
		return decodeCondJump(c, thisPC, CondICmpLT)
	case opIfIcmpge:
		return decodeCondJump(c, thisPC, CondICmpGE)
	case opIfIcmpgt:
		return decodeCondJump(c, thisPC, CondICmpGT)
	case opIfIcmple:
		return decodeCondJump(c, thisPC, CondICmpLE)
	case opIfAcmpeq:
		return decodeCondJump(c, thisPC, CondACmpEQ)
	case opIfAcmpne:
		return decodeCondJump(c, thisPC, CondACmpNE)
	case opIfnull:
		return decodeCondJump(c, thisPC, CondNull)
	case opIfnonnull:
		return decodeCondJump(c, thisPC, CondNonNull)

	case opGoto:
		disp, err := c.i16()
		if err != nil {
			return nil, err
		}
		return Jump{Target: branchTarget(thisPC, int64(disp))}, nil
	case opGotoW:
		disp, err := c.i32()
		if err != nil {
			return nil, err
		}
		return Jump{Target: branchTarget(thisPC, int64(disp))}, nil

	case opJsr, opJsrW, opRet:
		return nil, &UnimplementedError{Feature: "jsr/jsr_w/ret"}

	case opTableswitch:
		return decodeTableSwitch(c, thisPC)
	case opLookupswitch:
		return decodeLookupSwitch(c, thisPC)

	case opIreturn:
		return Return{Kind: ReturnInt}, nil
	case opLreturn:
		return Return{Kind: ReturnLong}, nil
	case opFreturn:
		return Return{Kind: ReturnFloat}, nil
	case opDreturn:
		return Return{Kind: ReturnDouble}, nil
	case opAreturn:
		return Return{Kind: ReturnReference}, nil
	case opReturn:
		return Return{Kind: ReturnVoid}, nil

	case opGetstatic:
		return decodeFieldAccess(c, pool, true, false)
	case opPutstatic:
		return decodeFieldAccess(c, pool, true, true)
	case opGetfield:
		return decodeFieldAccess(c, pool, false, false)
	case opPutfield:
		return decodeFieldAccess(c, pool, false, true)

	case opInvokevirtual:
		return decodeInvoke(c, pool, InvokeInstance)
	case opInvokespecial:
		return decodeInvoke(c, pool, InvokeSpecial)
	case opInvokestatic:
		return decodeInvoke(c, pool, InvokeStatic)
	case opInvokeinterface:
		idx, err := c.u16()
		if err != nil {
			return nil, err
		}
		if _, err := c.u8(); err != nil { // count; historically meaningful, functionally unused
			return nil, err
		}
		if _, err := c.u8(); err != nil { // reserved
			return nil, err
		}
		ref, err := pool.InterfaceMethodRef(idx)
		if err != nil {
			return nil, err
		}
		return Invoke{Mode: InvokeInstance, Interface: true, ClassName: ref.ClassName, Name: ref.Name, Descriptor: ref.Descriptor}, nil
	case opInvokedynamic:
		idx, err := c.u16()
		if err != nil {
			return nil, err
		}
		if err := c.skip(2); err != nil { // reserved, always zero on the wire
			return nil, err
		}
		info, err := pool.InvokeDynamicInfo(idx)
		if err != nil {
			return nil, err
		}
		return InvokeDynamic{BootstrapMethodIndex: info.BootstrapMethodIndex, Name: info.Name, Descriptor: info.Descriptor}, nil

	case opNew:
		idx, err := c.u16()
		if err != nil {
			return nil, err
		}
		name, err := pool.ClassName(idx)
		if err != nil {
			return nil, err
		}
		return NewObject{ClassName: name}, nil
	case opNewarray:
		atype, err := c.u8()
		if err != nil {
			return nil, err
		}
		kind, ok := atypeToKind(atype)
		if !ok {
			return nil, &UnknownPrimitiveTypeError{Atype: atype, PC: thisPC}
		}
		return NewArray{Kind: kind}, nil
	case opAnewarray:
		idx, err := c.u16()
		if err != nil {
			return nil, err
		}
		name, err := pool.ClassName(idx)
		if err != nil {
			return nil, err
		}
		return NewArray{Reference: true, ClassName: name}, nil
	case opArraylength:
		return ArrayLengthInsn{}, nil
	case opAthrow:
		return ThrowInsn{}, nil
	case opCheckcast:
		idx, err := c.u16()
		if err != nil {
			return nil, err
		}
		name, err := pool.ClassName(idx)
		if err != nil {
			return nil, err
		}
		return CheckCast{ClassName: name}, nil
	case opInstanceof:
		idx, err := c.u16()
		if err != nil {
			return nil, err
		}
		name, err := pool.ClassName(idx)
		if err != nil {
			return nil, err
		}
		return InstanceOf{ClassName: name}, nil
	case opMonitorenter:
		return MonitorEnterInsn{}, nil
	case opMonitorexit:
		return MonitorExitInsn{}, nil
	case opMultianewarray:
		idx, err := c.u16()
		if err != nil {
			return nil, err
		}
		descriptor, err := pool.ClassName(idx)
		if err != nil {
			return nil, err
		}
		dims, err := c.u8()
		if err != nil {
			return nil, err
		}
		return MultiNewArray{Descriptor: descriptor, Dimensions: dims}, nil

	case opWide:
		return decodeWide(c)

	case opBreakpoint:
		return BreakPointInsn{}, nil
	case opImpdep1:
		return ImpDep1Insn{}, nil
	case opImpdep2:
		return ImpDep2Insn{}, nil

	default:
		return nil, &UnknownOpcodeError{Opcode: op, PC: thisPC}
	}
}

func decodeLocalLoadU8(c *cursor, kind Kind) (Insn, error) {
	idx, err := c.u8()
	if err != nil {
		return nil, err
	}
	return LocalLoad{Kind: kind, Index: uint16(idx)}, nil
}

func decodeLocalStoreU8(c *cursor, kind Kind) (Insn, error) {
	idx, err := c.u8()
	if err != nil {
		return nil, err
	}
	return LocalStore{Kind: kind, Index: uint16(idx)}, nil
}

func decodeCondJump(c *cursor, thisPC uint32, cond Condition) (Insn, error) {
	disp, err := c.i16()
	if err != nil {
		return nil, err
	}
	return ConditionalJump{Condition: cond, Target: branchTarget(thisPC, int64(disp))}, nil
}

func decodeFieldAccess(c *cursor, pool *cpool.Pool, static, put bool) (Insn, error) {
	idx, err := c.u16()
	if err != nil {
		return nil, err
	}
	ref, err := pool.FieldRef(idx)
	if err != nil {
		return nil, err
	}
	if put {
		return PutField{Static: static, ClassName: ref.ClassName, Name: ref.Name, Descriptor: ref.Descriptor}, nil
	}
	return GetField{Static: static, ClassName: ref.ClassName, Name: ref.Name, Descriptor: ref.Descriptor}, nil
}

func decodeInvoke(c *cursor, pool *cpool.Pool, mode InvokeMode) (Insn, error) {
	idx, err := c.u16()
	if err != nil {
		return nil, err
	}
	ref, interfaceMethod, err := pool.AnyMethod(idx)
	if err != nil {
		return nil, err
	}
	return Invoke{Mode: mode, Interface: interfaceMethod, ClassName: ref.ClassName, Name: ref.Name, Descriptor: ref.Descriptor}, nil
}

func decodeTableSwitch(c *cursor, thisPC uint32) (Insn, error) {
	pad := 3 - (thisPC % 4)
	if err := c.skip(pad); err != nil {
		return nil, err
	}
	defaultDisp, err := c.i32()
	if err != nil {
		return nil, err
	}
	low, err := c.i32()
	if err != nil {
		return nil, err
	}
	high, err := c.i32()
	if err != nil {
		return nil, err
	}
	if high < low {
		return nil, &InvalidInstructionError{Reason: "tableswitch high below low"}
	}
	numCases := uint32(high - low + 1)
	targets := make([]uint32, numCases)
	for i := uint32(0); i < numCases; i++ {
		disp, err := c.i32()
		if err != nil {
			return nil, err
		}
		targets[i] = branchTarget(thisPC, int64(disp))
	}
	return TableSwitch{
		Default: branchTarget(thisPC, int64(defaultDisp)),
		Low:     low,
		High:    high,
		Targets: targets,
	}, nil
}

func decodeLookupSwitch(c *cursor, thisPC uint32) (Insn, error) {
	pad := 3 - (thisPC % 4)
	if err := c.skip(pad); err != nil {
		return nil, err
	}
	defaultDisp, err := c.i32()
	if err != nil {
		return nil, err
	}
	npairs, err := c.i32()
	if err != nil {
		return nil, err
	}
	if npairs < 0 {
		return nil, &InvalidInstructionError{Reason: "lookupswitch negative npairs"}
	}
	cases := make([]LookupSwitchCase, npairs)
	for i := int32(0); i < npairs; i++ {
		match, err := c.i32()
		if err != nil {
			return nil, err
		}
		disp, err := c.i32()
		if err != nil {
			return nil, err
		}
		cases[i] = LookupSwitchCase{Match: match, Target: branchTarget(thisPC, int64(disp))}
	}
	return LookupSwitch{
		Default: branchTarget(thisPC, int64(defaultDisp)),
		Cases:   cases,
	}, nil
}

// decodeWide handles every local-variable wide form, including wide
// astore and wide iinc.
func decodeWide(c *cursor) (Insn, error) {
	op, err := c.u8()
	if err != nil {
		return nil, err
	}
	switch op {
	case opIload:
		return decodeLocalLoadU16(c, KindInt)
	case opFload:
		return decodeLocalLoadU16(c, KindFloat)
	case opAload:
		return decodeLocalLoadU16(c, KindReference)
	case opLload:
		return decodeLocalLoadU16(c, KindLong)
	case opDload:
		return decodeLocalLoadU16(c, KindDouble)
	case opIstore:
		return decodeLocalStoreU16(c, KindInt)
	case opFstore:
		return decodeLocalStoreU16(c, KindFloat)
	case opAstore:
		return decodeLocalStoreU16(c, KindReference)
	case opLstore:
		return decodeLocalStoreU16(c, KindLong)
	case opDstore:
		return decodeLocalStoreU16(c, KindDouble)
	case opIinc:
		idx, err := c.u16()
		if err != nil {
			return nil, err
		}
		delta, err := c.i16()
		if err != nil {
			return nil, err
		}
		return IncrementInt{Index: idx, Delta: delta}, nil
	case opRet:
		return nil, &UnimplementedError{Feature: "wide ret"}
	default:
		return nil, &InvalidWideOpcodeError{Opcode: op, PC: c.pc}
	}
}

func decodeLocalLoadU16(c *cursor, kind Kind) (Insn, error) {
	idx, err := c.u16()
	if err != nil {
		return nil, err
	}
	return LocalLoad{Kind: kind, Index: idx}, nil
}

func decodeLocalStoreU16(c *cursor, kind Kind) (Insn, error) {
	idx, err := c.u16()
	if err != nil {
		return nil, err
	}
	return LocalStore{Kind: kind, Index: idx}, nil
}

// parseLdc resolves an index operand of ldc/ldc_w/ldc2_w against the
// constant it actually names, the same way for all three opcodes: the
// width of the index, not the referenced tag, is what distinguishes them
// on the wire.
func parseLdc(index uint16, pool *cpool.Pool) (Insn, error) {
	entry, err := pool.Get(index)
	if err != nil {
		return nil, err
	}
	switch e := entry.(type) {
	case cpool.String:
		s, err := pool.Utf8(e.StringIndex)
		if err != nil {
			return nil, err
		}
		return Ldc{Variant: LdcString, StrValue: s}, nil
	case cpool.Integer:
		return Ldc{Variant: LdcInt, IntValue: e.Value}, nil
	case cpool.Float:
		return Ldc{Variant: LdcFloat, FloatValue: e.Value}, nil
	case cpool.Double:
		return Ldc{Variant: LdcDouble, DoubleVal: e.Value}, nil
	case cpool.Long:
		return Ldc{Variant: LdcLong, LongValue: e.Value}, nil
	case cpool.Class:
		name, err := pool.Utf8(e.NameIndex)
		if err != nil {
			return nil, err
		}
		return Ldc{Variant: LdcClass, StrValue: name}, nil
	case cpool.MethodType:
		descriptor, err := pool.Utf8(e.DescriptorIndex)
		if err != nil {
			return nil, err
		}
		return Ldc{Variant: LdcMethodType, StrValue: descriptor}, nil
	case cpool.MethodHandle:
		return nil, &UnimplementedError{Feature: "MethodHandle as an Ldc operand"}
	case cpool.Dynamic:
		return nil, &UnimplementedError{Feature: "Dynamic as an Ldc operand"}
	default:
		return nil, &cpool.IncompatibleTypeError{Index: index, Expected: "loadable constant", Actual: entry.Tag()}
	}
}
