package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/jclass-go/jclass/pkg/cpool"
)

// Encode serializes an InsnList back into raw Code attribute bytes,
// interning every constant-pool operand into w along the way. It converges
// branch widths with a fixed-point layout loop: a short goto/if* that turns
// out to need a 32-bit displacement is widened (goto becomes goto_w; a
// conditional jump becomes its negation over a goto_w), which can shift
// later labels far enough to force further widening, so layout repeats
// until nothing changes.
func Encode(list *InsnList, w *cpool.Writer) ([]byte, error) {
	code, _, err := EncodeWithLabelPositions(list, w)
	return code, err
}

// EncodeWithLabelPositions is Encode plus the final label id -> byte offset
// map its layout pass converged on, so a caller holding LabelRefs that live
// outside the instruction stream (exception handler start_pc/end_pc/
// handler_pc) can resolve them to the positions the emitted bytes actually
// ended up at.
func EncodeWithLabelPositions(list *InsnList, w *cpool.Writer) ([]byte, map[uint32]uint32, error) {
	insns := list.All()

	if err := validateBranchTargets(insns, list.resolvedLabels()); err != nil {
		return nil, nil, err
	}

	widenGoto := make(map[int]bool)
	widenCond := make(map[int]bool)

	var labelPC map[uint32]uint32
	var instrPC []uint32

	const maxIterations = 16
	for iter := 0; ; iter++ {
		var err error
		labelPC, instrPC, err = layout(insns, w, widenGoto, widenCond)
		if err != nil {
			return nil, nil, err
		}

		changed := false
		for i, insn := range insns {
			switch v := insn.(type) {
			case Jump:
				if widenGoto[i] {
					continue
				}
				if !fitsInt16(int64(labelPC[v.Target]) - int64(instrPC[i])) {
					widenGoto[i] = true
					changed = true
				}
			case ConditionalJump:
				if widenCond[i] {
					continue
				}
				if !fitsInt16(int64(labelPC[v.Target]) - int64(instrPC[i])) {
					widenCond[i] = true
					changed = true
				}
			}
		}
		if !changed {
			break
		}
		if iter >= maxIterations {
			return nil, nil, &InvalidInstructionError{Reason: "branch layout did not converge"}
		}
	}

	var buf bytes.Buffer
	for i, insn := range insns {
		if _, ok := insn.(LabelInsn); ok {
			continue
		}
		if err := emitOne(&buf, insn, instrPC[i], labelPC, w, widenGoto[i], widenCond[i]); err != nil {
			return nil, nil, err
		}
	}
	if buf.Len() > math.MaxUint32 {
		return nil, nil, &TooManyInstructionsError{Size: uint64(buf.Len())}
	}
	return buf.Bytes(), labelPC, nil
}

func fitsInt16(v int64) bool { return v >= math.MinInt16 && v <= math.MaxInt16 }

// validateBranchTargets fails encoding if any branch or switch operand
// names a label id not resolved by exactly one LabelInsn in the list.
// Without this check, a stray id would silently resolve through labelPC's
// zero value (pc 0) instead of failing, corrupting the emitted
// displacement.
func validateBranchTargets(insns []Insn, resolved map[uint32]int) error {
	check := func(index int, target uint32) error {
		if resolved[target] != 1 {
			return &InvalidInstructionError{Index: index, Reason: fmt.Sprintf("unresolved label %d referenced by a branch", target)}
		}
		return nil
	}
	for i, insn := range insns {
		switch v := insn.(type) {
		case Jump:
			if err := check(i, v.Target); err != nil {
				return err
			}
		case ConditionalJump:
			if err := check(i, v.Target); err != nil {
				return err
			}
		case TableSwitch:
			if err := check(i, v.Default); err != nil {
				return err
			}
			for _, t := range v.Targets {
				if err := check(i, t); err != nil {
					return err
				}
			}
		case LookupSwitch:
			if err := check(i, v.Default); err != nil {
				return err
			}
			for _, c := range v.Cases {
				if err := check(i, c.Target); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// layout computes, for the given widen decisions, the byte offset of every
// instruction and the resolved pc of every label. It interns Ldc operands
// (the only cp operands whose index decides an instruction's width)
// through w as it goes, so a later emit sees exactly the indices (and
// therefore exactly the ldc/ldc_w widths) this pass assumed.
func layout(insns []Insn, w *cpool.Writer, widenGoto, widenCond map[int]bool) (map[uint32]uint32, []uint32, error) {
	labelPC := make(map[uint32]uint32)
	instrPC := make([]uint32, len(insns))

	pc := uint32(0)
	for i, insn := range insns {
		instrPC[i] = pc
		if lbl, ok := insn.(LabelInsn); ok {
			labelPC[lbl.ID] = pc
			continue
		}
		size, err := sizeOf(insn, pc, w, widenGoto[i], widenCond[i])
		if err != nil {
			return nil, nil, err
		}
		pc += size
	}
	return labelPC, instrPC, nil
}

func sizeOf(insn Insn, thisPC uint32, w *cpool.Writer, wideGoto, wideCond bool) (uint32, error) {
	switch v := insn.(type) {
	case Jump:
		if wideGoto {
			return 5, nil
		}
		return 3, nil
	case ConditionalJump:
		if wideCond {
			return 8, nil
		}
		return 3, nil
	case LocalLoad:
		return uint32(localOpSize(v.Index)), nil
	case LocalStore:
		return uint32(localOpSize(v.Index)), nil
	case IncrementInt:
		return uint32(incrementSize(v.Index, v.Delta)), nil
	case Pop, SwapInsn, NopInsn, ArrayLengthInsn, ThrowInsn, MonitorEnterInsn, MonitorExitInsn,
		BreakPointInsn, ImpDep1Insn, ImpDep2Insn, Dup, ArithOp, BitwiseOp, Compare, Convert,
		ArrayLoad, ArrayStore, Return:
		return 1, nil
	case Ldc:
		form, _, _, cpIndex, _, err := planLdc(v, w)
		if err != nil {
			return 0, err
		}
		return uint32(ldcFormSize(form, cpIndex)), nil
	case NewArray:
		if v.Reference {
			return 3, nil
		}
		return 2, nil
	case MultiNewArray:
		return 4, nil
	case NewObject, CheckCast, InstanceOf:
		return 3, nil
	case GetField, PutField:
		return 3, nil
	case Invoke:
		if v.Mode == InvokeInstance && v.Interface {
			return 5, nil
		}
		return 3, nil
	case InvokeDynamic:
		return 5, nil
	case TableSwitch:
		pad := 3 - (thisPC % 4)
		return 1 + pad + 12 + 4*uint32(len(v.Targets)), nil
	case LookupSwitch:
		pad := 3 - (thisPC % 4)
		return 1 + pad + 8 + 8*uint32(len(v.Cases)), nil
	default:
		return 0, &InvalidInstructionError{Reason: "instruction has no known encoding"}
	}
}

func localOpSize(index uint16) uint8 {
	switch {
	case index <= 3:
		return 1
	case index <= 255:
		return 2
	default:
		return 4
	}
}

func incrementSize(index uint16, delta int16) uint8 {
	if index <= 255 && delta >= -128 && delta <= 127 {
		return 3
	}
	return 6
}

const (
	ldcFormOpOnly = iota
	ldcFormImm8
	ldcFormImm16
	ldcFormCP
	ldcFormCP2
)

func ldcFormSize(form int, cpIndex uint16) uint8 {
	switch form {
	case ldcFormOpOnly:
		return 1
	case ldcFormImm8:
		return 2
	case ldcFormImm16:
		return 3
	case ldcFormCP:
		if cpIndex <= 255 {
			return 2
		}
		return 3
	case ldcFormCP2:
		return 3
	default:
		return 1
	}
}

// planLdc picks the narrowest legal encoding for an Ldc instruction,
// interning any constant-pool entry it needs through w. Called identically
// from the layout pass and the emit pass so both agree on instruction
// width; w's interning is dedup-by-structural-equality, so calling it
// twice for the same literal is harmless.
func planLdc(insn Ldc, w *cpool.Writer) (form int, op uint8, imm int32, cpIndex uint16, wide bool, err error) {
	switch insn.Variant {
	case LdcNull:
		return ldcFormOpOnly, opAconstNull, 0, 0, false, nil

	case LdcInt:
		v := insn.IntValue
		switch {
		case v >= -1 && v <= 5:
			return ldcFormOpOnly, uint8(int(opIconstM1) + int(v) + 1), 0, 0, false, nil
		case v >= -128 && v <= 127:
			return ldcFormImm8, 0, v, 0, false, nil
		case v >= -32768 && v <= 32767:
			return ldcFormImm16, 0, v, 0, false, nil
		default:
			return ldcFormCP, 0, 0, w.Integer(v), false, nil
		}

	case LdcLong:
		v := insn.LongValue
		switch v {
		case 0:
			return ldcFormOpOnly, opLconst0, 0, 0, false, nil
		case 1:
			return ldcFormOpOnly, opLconst1, 0, 0, false, nil
		default:
			return ldcFormCP2, 0, 0, w.Long(v), true, nil
		}

	case LdcFloat:
		v := insn.FloatValue
		switch {
		case v == 0 && !math.Signbit(float64(v)):
			return ldcFormOpOnly, opFconst0, 0, 0, false, nil
		case v == 1:
			return ldcFormOpOnly, opFconst1, 0, 0, false, nil
		case v == 2:
			return ldcFormOpOnly, opFconst2, 0, 0, false, nil
		default:
			return ldcFormCP, 0, 0, w.Float(v), false, nil
		}

	case LdcDouble:
		v := insn.DoubleVal
		switch {
		case v == 0 && !math.Signbit(v):
			return ldcFormOpOnly, opDconst0, 0, 0, false, nil
		case v == 1:
			return ldcFormOpOnly, opDconst1, 0, 0, false, nil
		default:
			return ldcFormCP2, 0, 0, w.Double(v), true, nil
		}

	case LdcString:
		return ldcFormCP, 0, 0, w.StringUtf(insn.StrValue), false, nil

	case LdcClass:
		return ldcFormCP, 0, 0, w.ClassUtf8(insn.StrValue), false, nil

	case LdcMethodType:
		return ldcFormCP, 0, 0, w.MethodTypeUtf8(insn.StrValue), false, nil

	case LdcMethodHandle:
		return 0, 0, 0, 0, false, &UnimplementedError{Feature: "MethodHandle as an Ldc operand"}
	case LdcDynamic:
		return 0, 0, 0, 0, false, &UnimplementedError{Feature: "Dynamic as an Ldc operand"}
	default:
		return 0, 0, 0, 0, false, &InvalidInstructionError{Reason: "unknown Ldc variant"}
	}
}

func emitOne(buf *bytes.Buffer, insn Insn, thisPC uint32, labelPC map[uint32]uint32, w *cpool.Writer, wideGoto, wideCond bool) error {
	switch v := insn.(type) {
	case Jump:
		if wideGoto {
			buf.WriteByte(opGotoW)
			writeI32(buf, int32(int64(labelPC[v.Target])-int64(thisPC)))
		} else {
			buf.WriteByte(opGoto)
			writeI16(buf, int16(int64(labelPC[v.Target])-int64(thisPC)))
		}
		return nil

	case ConditionalJump:
		if !wideCond {
			buf.WriteByte(condOpcode(v.Condition))
			writeI16(buf, int16(int64(labelPC[v.Target])-int64(thisPC)))
			return nil
		}
		buf.WriteByte(condOpcode(invertCondition(v.Condition)))
		writeI16(buf, 8) // skip past this 3-byte jump straight to after the goto_w
		gotoWPC := thisPC + 3
		buf.WriteByte(opGotoW)
		writeI32(buf, int32(int64(labelPC[v.Target])-int64(gotoWPC)))
		return nil

	case LocalLoad:
		return emitLocalOp(buf, v.Kind, v.Index, true)
	case LocalStore:
		return emitLocalOp(buf, v.Kind, v.Index, false)

	case IncrementInt:
		if incrementSize(v.Index, v.Delta) == 3 {
			buf.WriteByte(opIinc)
			buf.WriteByte(byte(v.Index))
			buf.WriteByte(byte(int8(v.Delta)))
		} else {
			buf.WriteByte(opWide)
			buf.WriteByte(opIinc)
			writeU16(buf, v.Index)
			writeI16(buf, v.Delta)
		}
		return nil

	case Pop:
		if v.Double {
			buf.WriteByte(opPop2)
		} else {
			buf.WriteByte(opPop)
		}
		return nil

	case Dup:
		op, ok := dupOpcode(v.Count, v.Down)
		if !ok {
			return &InvalidInstructionError{Reason: "invalid dup count/down combination"}
		}
		buf.WriteByte(op)
		return nil

	case SwapInsn:
		buf.WriteByte(opSwap)
		return nil
	case NopInsn:
		buf.WriteByte(opNop)
		return nil
	case ArrayLengthInsn:
		buf.WriteByte(opArraylength)
		return nil
	case ThrowInsn:
		buf.WriteByte(opAthrow)
		return nil
	case MonitorEnterInsn:
		buf.WriteByte(opMonitorenter)
		return nil
	case MonitorExitInsn:
		buf.WriteByte(opMonitorexit)
		return nil
	case BreakPointInsn:
		buf.WriteByte(opBreakpoint)
		return nil
	case ImpDep1Insn:
		buf.WriteByte(opImpdep1)
		return nil
	case ImpDep2Insn:
		buf.WriteByte(opImpdep2)
		return nil

	case Ldc:
		form, op, imm, cpIndex, _, err := planLdc(v, w)
		if err != nil {
			return err
		}
		switch form {
		case ldcFormOpOnly:
			buf.WriteByte(op)
		case ldcFormImm8:
			buf.WriteByte(opBipush)
			buf.WriteByte(byte(int8(imm)))
		case ldcFormImm16:
			buf.WriteByte(opSipush)
			writeI16(buf, int16(imm))
		case ldcFormCP:
			if cpIndex <= 255 {
				buf.WriteByte(opLdc)
				buf.WriteByte(byte(cpIndex))
			} else {
				buf.WriteByte(opLdcW)
				writeU16(buf, cpIndex)
			}
		case ldcFormCP2:
			buf.WriteByte(opLdc2W)
			writeU16(buf, cpIndex)
		}
		return nil

	case ArithOp:
		op, ok := arithOpcode(v.Op, v.Kind)
		if !ok {
			return &InvalidInstructionError{Reason: "invalid arithmetic operator/kind combination"}
		}
		buf.WriteByte(op)
		return nil

	case BitwiseOp:
		op, ok := bitwiseOpcode(v.Op, v.Kind)
		if !ok {
			return &InvalidInstructionError{Reason: "invalid bitwise operator/kind combination"}
		}
		buf.WriteByte(op)
		return nil

	case Compare:
		op, ok := compareOpcode(v.Kind, v.PosOnNaN)
		if !ok {
			return &InvalidInstructionError{Reason: "invalid compare kind"}
		}
		buf.WriteByte(op)
		return nil

	case Convert:
		op, ok := convertOpcode(v.From, v.To)
		if !ok {
			return &InvalidInstructionError{Reason: "invalid conversion pair"}
		}
		buf.WriteByte(op)
		return nil

	case ArrayLoad:
		op, ok := arrayLoadOpcode(v.Kind)
		if !ok {
			return &InvalidInstructionError{Reason: "invalid array load kind"}
		}
		buf.WriteByte(op)
		return nil

	case ArrayStore:
		op, ok := arrayStoreOpcode(v.Kind)
		if !ok {
			return &InvalidInstructionError{Reason: "invalid array store kind"}
		}
		buf.WriteByte(op)
		return nil

	case NewArray:
		if v.Reference {
			buf.WriteByte(opAnewarray)
			writeU16(buf, w.ClassUtf8(v.ClassName))
			return nil
		}
		atype, ok := kindToAtype(v.Kind)
		if !ok {
			return &InvalidInstructionError{Reason: "invalid newarray primitive kind"}
		}
		buf.WriteByte(opNewarray)
		buf.WriteByte(atype)
		return nil

	case MultiNewArray:
		buf.WriteByte(opMultianewarray)
		writeU16(buf, w.ClassUtf8(v.Descriptor))
		buf.WriteByte(v.Dimensions)
		return nil

	case NewObject:
		buf.WriteByte(opNew)
		writeU16(buf, w.ClassUtf8(v.ClassName))
		return nil
	case CheckCast:
		buf.WriteByte(opCheckcast)
		writeU16(buf, w.ClassUtf8(v.ClassName))
		return nil
	case InstanceOf:
		buf.WriteByte(opInstanceof)
		writeU16(buf, w.ClassUtf8(v.ClassName))
		return nil

	case GetField:
		if v.Static {
			buf.WriteByte(opGetstatic)
		} else {
			buf.WriteByte(opGetfield)
		}
		writeU16(buf, w.FieldRef(v.ClassName, v.Name, v.Descriptor))
		return nil
	case PutField:
		if v.Static {
			buf.WriteByte(opPutstatic)
		} else {
			buf.WriteByte(opPutfield)
		}
		writeU16(buf, w.FieldRef(v.ClassName, v.Name, v.Descriptor))
		return nil

	case Invoke:
		return emitInvoke(buf, v, w)

	case InvokeDynamic:
		buf.WriteByte(opInvokedynamic)
		writeU16(buf, w.InvokeDynamic(v.BootstrapMethodIndex, v.Name, v.Descriptor))
		buf.WriteByte(0)
		buf.WriteByte(0)
		return nil

	case Return:
		op, ok := returnOpcode(v.Kind)
		if !ok {
			return &InvalidInstructionError{Reason: "invalid return kind"}
		}
		buf.WriteByte(op)
		return nil

	case TableSwitch:
		return emitTableSwitch(buf, v, thisPC, labelPC)
	case LookupSwitch:
		return emitLookupSwitch(buf, v, thisPC, labelPC)

	default:
		return &InvalidInstructionError{Reason: "instruction has no known encoding"}
	}
}

func emitLocalOp(buf *bytes.Buffer, kind Kind, index uint16, load bool) error {
	if index <= 3 {
		op, ok := shortLocalOpcode(kind, index, load)
		if !ok {
			return &InvalidInstructionError{Reason: "invalid local variable kind"}
		}
		buf.WriteByte(op)
		return nil
	}
	op, ok := generalLocalOpcode(kind, load)
	if !ok {
		return &InvalidInstructionError{Reason: "invalid local variable kind"}
	}
	if index <= 255 {
		buf.WriteByte(op)
		buf.WriteByte(byte(index))
		return nil
	}
	buf.WriteByte(opWide)
	buf.WriteByte(op)
	writeU16(buf, index)
	return nil
}

func generalLocalOpcode(kind Kind, load bool) (uint8, bool) {
	if load {
		switch kind {
		case KindInt:
			return opIload, true
		case KindLong:
			return opLload, true
		case KindFloat:
			return opFload, true
		case KindDouble:
			return opDload, true
		case KindReference:
			return opAload, true
		}
		return 0, false
	}
	switch kind {
	case KindInt:
		return opIstore, true
	case KindLong:
		return opLstore, true
	case KindFloat:
		return opFstore, true
	case KindDouble:
		return opDstore, true
	case KindReference:
		return opAstore, true
	}
	return 0, false
}

func shortLocalOpcode(kind Kind, index uint16, load bool) (uint8, bool) {
	base, ok := generalLocalOpcode(kind, load)
	if !ok {
		return 0, false
	}
	var zero uint8
	switch base {
	case opIload:
		zero = opIload0
	case opLload:
		zero = opLload0
	case opFload:
		zero = opFload0
	case opDload:
		zero = opDload0
	case opAload:
		zero = opAload0
	case opIstore:
		zero = opIstore0
	case opLstore:
		zero = opLstore0
	case opFstore:
		zero = opFstore0
	case opDstore:
		zero = opDstore0
	case opAstore:
		zero = opAstore0
	}
	return zero + uint8(index), true
}

func dupOpcode(count, down int) (uint8, bool) {
	switch {
	case count == 1 && down == 0:
		return opDup, true
	case count == 1 && down == 1:
		return opDupX1, true
	case count == 1 && down == 2:
		return opDupX2, true
	case count == 2 && down == 0:
		return opDup2, true
	case count == 2 && down == 1:
		return opDup2X1, true
	case count == 2 && down == 2:
		return opDup2X2, true
	default:
		return 0, false
	}
}

func arithOpcode(op ArithOperator, kind Kind) (uint8, bool) {
	table := map[ArithOperator]map[Kind]uint8{
		ArithAdd: {KindInt: opIadd, KindLong: opLadd, KindFloat: opFadd, KindDouble: opDadd},
		ArithSub: {KindInt: opIsub, KindLong: opLsub, KindFloat: opFsub, KindDouble: opDsub},
		ArithMul: {KindInt: opImul, KindLong: opLmul, KindFloat: opFmul, KindDouble: opDmul},
		ArithDiv: {KindInt: opIdiv, KindLong: opLdiv, KindFloat: opFdiv, KindDouble: opDdiv},
		ArithRem: {KindInt: opIrem, KindLong: opLrem, KindFloat: opFrem, KindDouble: opDrem},
		ArithNeg: {KindInt: opIneg, KindLong: opLneg, KindFloat: opFneg, KindDouble: opDneg},
	}
	op2, ok := table[op]
	if !ok {
		return 0, false
	}
	v, ok := op2[kind]
	return v, ok
}

func bitwiseOpcode(op BitwiseOperator, kind Kind) (uint8, bool) {
	table := map[BitwiseOperator]map[Kind]uint8{
		BitwiseAnd:               {KindInt: opIand, KindLong: opLand},
		BitwiseOr:                {KindInt: opIor, KindLong: opLor},
		BitwiseXor:               {KindInt: opIxor, KindLong: opLxor},
		BitwiseShiftLeft:         {KindInt: opIshl, KindLong: opLshl},
		BitwiseShiftRight:        {KindInt: opIshr, KindLong: opLshr},
		BitwiseLogicalShiftRight: {KindInt: opIushr, KindLong: opLushr},
	}
	op2, ok := table[op]
	if !ok {
		return 0, false
	}
	v, ok := op2[kind]
	return v, ok
}

func compareOpcode(kind Kind, posOnNaN bool) (uint8, bool) {
	switch kind {
	case KindLong:
		return opLcmp, true
	case KindFloat:
		if posOnNaN {
			return opFcmpg, true
		}
		return opFcmpl, true
	case KindDouble:
		if posOnNaN {
			return opDcmpg, true
		}
		return opDcmpl, true
	default:
		return 0, false
	}
}

func convertOpcode(from, to Kind) (uint8, bool) {
	table := map[Kind]map[Kind]uint8{
		KindInt: {
			KindLong: opI2l, KindFloat: opI2f, KindDouble: opI2d,
			KindByte: opI2b, KindChar: opI2c, KindShort: opI2s,
		},
		KindLong:   {KindInt: opL2i, KindFloat: opL2f, KindDouble: opL2d},
		KindFloat:  {KindInt: opF2i, KindLong: opF2l, KindDouble: opF2d},
		KindDouble: {KindInt: opD2i, KindLong: opD2l, KindFloat: opD2f},
	}
	to2, ok := table[from]
	if !ok {
		return 0, false
	}
	v, ok := to2[to]
	return v, ok
}

func arrayLoadOpcode(kind Kind) (uint8, bool) {
	switch kind {
	case KindInt:
		return opIaload, true
	case KindLong:
		return opLaload, true
	case KindFloat:
		return opFaload, true
	case KindDouble:
		return opDaload, true
	case KindReference:
		return opAaload, true
	case KindByte:
		return opBaload, true
	case KindChar:
		return opCaload, true
	case KindShort:
		return opSaload, true
	default:
		return 0, false
	}
}

func arrayStoreOpcode(kind Kind) (uint8, bool) {
	switch kind {
	case KindInt:
		return opIastore, true
	case KindLong:
		return opLastore, true
	case KindFloat:
		return opFastore, true
	case KindDouble:
		return opDastore, true
	case KindReference:
		return opAastore, true
	case KindByte:
		return opBastore, true
	case KindChar:
		return opCastore, true
	case KindShort:
		return opSastore, true
	default:
		return 0, false
	}
}

func returnOpcode(kind ReturnKind) (uint8, bool) {
	switch kind {
	case ReturnVoid:
		return opReturn, true
	case ReturnInt, ReturnBoolean, ReturnByte, ReturnChar, ReturnShort:
		return opIreturn, true
	case ReturnLong:
		return opLreturn, true
	case ReturnFloat:
		return opFreturn, true
	case ReturnDouble:
		return opDreturn, true
	case ReturnReference:
		return opAreturn, true
	default:
		return 0, false
	}
}

func condOpcode(cond Condition) uint8 {
	switch cond {
	case CondEQ:
		return opIfeq
	case CondNE:
		return opIfne
	case CondLT:
		return opIflt
	case CondGE:
		return opIfge
	case CondGT:
		return opIfgt
	case CondLE:
		return opIfle
	case CondICmpEQ:
		return opIfIcmpeq
	case CondICmpNE:
		return opIfIcmpne
	case CondICmpLT:
		return opIfIcmplt
	case CondICmpGE:
		return opIfIcmpge
	case CondICmpGT:
		return opIfIcmpgt
	case CondICmpLE:
		return opIfIcmple
	case CondACmpEQ:
		return opIfAcmpeq
	case CondACmpNE:
		return opIfAcmpne
	case CondNull:
		return opIfnull
	case CondNonNull:
		return opIfnonnull
	default:
		return opNop
	}
}

func invertCondition(cond Condition) Condition {
	switch cond {
	case CondEQ:
		return CondNE
	case CondNE:
		return CondEQ
	case CondLT:
		return CondGE
	case CondGE:
		return CondLT
	case CondGT:
		return CondLE
	case CondLE:
		return CondGT
	case CondICmpEQ:
		return CondICmpNE
	case CondICmpNE:
		return CondICmpEQ
	case CondICmpLT:
		return CondICmpGE
	case CondICmpGE:
		return CondICmpLT
	case CondICmpGT:
		return CondICmpLE
	case CondICmpLE:
		return CondICmpGT
	case CondACmpEQ:
		return CondACmpNE
	case CondACmpNE:
		return CondACmpEQ
	case CondNull:
		return CondNonNull
	case CondNonNull:
		return CondNull
	default:
		return cond
	}
}

// emitInvoke chooses the opcode and constant-pool entry kind for one of
// the four invoke forms. invokestatic and invokespecial may legally target
// an interface method (private/static interface methods, since Java 8);
// only dispatch on an instance reference actually needs its own opcode to
// distinguish invokeinterface from invokevirtual.
func emitInvoke(buf *bytes.Buffer, v Invoke, w *cpool.Writer) error {
	refIndex := func() uint16 {
		if v.Interface {
			return w.InterfaceMethodRef(v.ClassName, v.Name, v.Descriptor)
		}
		return w.MethodRef(v.ClassName, v.Name, v.Descriptor)
	}

	switch v.Mode {
	case InvokeStatic:
		buf.WriteByte(opInvokestatic)
		writeU16(buf, refIndex())
		return nil
	case InvokeSpecial:
		buf.WriteByte(opInvokespecial)
		writeU16(buf, refIndex())
		return nil
	case InvokeInstance:
		if v.Interface {
			buf.WriteByte(opInvokeinterface)
			idx := w.InterfaceMethodRef(v.ClassName, v.Name, v.Descriptor)
			writeU16(buf, idx)
			argWords, err := methodArgWords(v.Descriptor)
			if err != nil {
				return err
			}
			buf.WriteByte(byte(argWords + 1)) // +1 for objectref
			buf.WriteByte(0)
			return nil
		}
		buf.WriteByte(opInvokevirtual)
		writeU16(buf, w.MethodRef(v.ClassName, v.Name, v.Descriptor))
		return nil
	default:
		return &InvalidInstructionError{Reason: "invalid invoke mode"}
	}
}

// methodArgWords sums the operand-stack word count of a method descriptor's
// parameter list: 2 for long/double, 1 for everything else.
func methodArgWords(descriptor string) (int, error) {
	if len(descriptor) == 0 || descriptor[0] != '(' {
		return 0, &InvalidInstructionError{Reason: "malformed method descriptor"}
	}
	words := 0
	i := 1
	for i < len(descriptor) && descriptor[i] != ')' {
		switch descriptor[i] {
		case 'J', 'D':
			words += 2
			i++
		case 'L':
			j := i + 1
			for j < len(descriptor) && descriptor[j] != ';' {
				j++
			}
			words++
			i = j + 1
		case '[':
			j := i
			for j < len(descriptor) && descriptor[j] == '[' {
				j++
			}
			if j < len(descriptor) && descriptor[j] == 'L' {
				for j < len(descriptor) && descriptor[j] != ';' {
					j++
				}
			}
			words++
			i = j + 1
		default:
			words++
			i++
		}
	}
	return words, nil
}

func emitTableSwitch(buf *bytes.Buffer, v TableSwitch, thisPC uint32, labelPC map[uint32]uint32) error {
	buf.WriteByte(opTableswitch)
	pad := 3 - (thisPC % 4)
	for j := uint32(0); j < pad; j++ {
		buf.WriteByte(0)
	}
	writeI32(buf, int32(int64(labelPC[v.Default])-int64(thisPC)))
	writeRawI32(buf, v.Low)
	writeRawI32(buf, v.High)
	for _, target := range v.Targets {
		writeI32(buf, int32(int64(labelPC[target])-int64(thisPC)))
	}
	return nil
}

func emitLookupSwitch(buf *bytes.Buffer, v LookupSwitch, thisPC uint32, labelPC map[uint32]uint32) error {
	buf.WriteByte(opLookupswitch)
	pad := 3 - (thisPC % 4)
	for j := uint32(0); j < pad; j++ {
		buf.WriteByte(0)
	}
	writeI32(buf, int32(int64(labelPC[v.Default])-int64(thisPC)))
	writeRawI32(buf, int32(len(v.Cases)))
	for _, c := range v.Cases {
		writeRawI32(buf, c.Match)
		writeI32(buf, int32(int64(labelPC[c.Target])-int64(thisPC)))
	}
	return nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeI16(buf *bytes.Buffer, v int16) {
	writeU16(buf, uint16(v))
}

func writeRawI32(buf *bytes.Buffer, v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	buf.Write(b[:])
}

func writeI32(buf *bytes.Buffer, v int32) {
	writeRawI32(buf, v)
}
