package bytecode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jclass-go/jclass/pkg/cpool"
)

func decodeEncodePool(t *testing.T, w *cpool.Writer) *cpool.Pool {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf))
	buf.Next(2) // Write emits constant_pool_count first; Parse takes it as an argument
	pool, err := cpool.Parse(&buf, w.Count())
	require.NoError(t, err)
	return pool
}

func TestEncodeDecodeSimpleSequence(t *testing.T) {
	w := cpool.NewWriter()
	list := NewInsnList()
	list.Append(Ldc{Variant: LdcInt, IntValue: 42})
	list.Append(LocalStore{Kind: KindInt, Index: 1})
	list.Append(LocalLoad{Kind: KindInt, Index: 1})
	list.Append(Return{Kind: ReturnInt})

	code, err := Encode(list, w)
	require.NoError(t, err)

	pool := decodeEncodePool(t, w)
	decoded, err := Decode(code, pool)
	require.NoError(t, err)

	require.Equal(t, 4, decoded.Len())
	assert.Equal(t, Ldc{Variant: LdcInt, IntValue: 42}, decoded.At(0))
	assert.Equal(t, LocalStore{Kind: KindInt, Index: 1}, decoded.At(1))
	assert.Equal(t, LocalLoad{Kind: KindInt, Index: 1}, decoded.At(2))
	assert.Equal(t, Return{Kind: ReturnInt}, decoded.At(3))
}

func TestLloadDecodesAsLongNotDouble(t *testing.T) {
	// lload #1: opcode 0x16, index 1. Easy to fat-finger as a double load
	// since lload and dload sit one opcode apart.
	raw := []byte{opLload, 0x01, opReturn}
	decoded, err := Decode(raw, emptyPool(t))
	require.NoError(t, err)
	require.Equal(t, 2, decoded.Len())
	assert.Equal(t, LocalLoad{Kind: KindLong, Index: 1}, decoded.At(0))
}

func TestDloadStillDecodesAsDouble(t *testing.T) {
	raw := []byte{opDload, 0x01, opReturn}
	decoded, err := Decode(raw, emptyPool(t))
	require.NoError(t, err)
	assert.Equal(t, LocalLoad{Kind: KindDouble, Index: 1}, decoded.At(0))
}

func emptyPool(t *testing.T) *cpool.Pool {
	t.Helper()
	w := cpool.NewWriter()
	return decodeEncodePool(t, w)
}

func TestInvokeInterfacePreservesInterfaceFlag(t *testing.T) {
	w := cpool.NewWriter()
	list := NewInsnList()
	list.Append(Invoke{Mode: InvokeInstance, Interface: true, ClassName: "java/util/List", Name: "size", Descriptor: "()I"})
	list.Append(Invoke{Mode: InvokeInstance, Interface: false, ClassName: "java/lang/Object", Name: "toString", Descriptor: "()Ljava/lang/String;"})
	list.Append(Return{Kind: ReturnVoid})

	code, err := Encode(list, w)
	require.NoError(t, err)

	pool := decodeEncodePool(t, w)
	decoded, err := Decode(code, pool)
	require.NoError(t, err)

	require.Equal(t, 3, decoded.Len())
	ifaceCall, ok := decoded.At(0).(Invoke)
	require.True(t, ok)
	assert.True(t, ifaceCall.Interface)

	virtualCall, ok := decoded.At(1).(Invoke)
	require.True(t, ok)
	assert.False(t, virtualCall.Interface)
}

func TestEncodeDecodeShortBranch(t *testing.T) {
	w := cpool.NewWriter()
	list := NewInsnList()
	end := list.NewLabel()
	list.Append(ConditionalJump{Condition: CondEQ, Target: end})
	list.Append(Ldc{Variant: LdcInt, IntValue: 1})
	list.Append(LabelInsn{ID: end})
	list.Append(Return{Kind: ReturnInt})

	code, err := Encode(list, w)
	require.NoError(t, err)
	// Short conditional jump: opcode + 2-byte displacement, no widening needed.
	assert.Equal(t, uint8(opIfeq), code[0])

	pool := decodeEncodePool(t, w)
	decoded, err := Decode(code, pool)
	require.NoError(t, err)
	require.Equal(t, 4, decoded.Len())

	jump, ok := decoded.At(0).(ConditionalJump)
	require.True(t, ok)
	label, ok := decoded.At(2).(LabelInsn)
	require.True(t, ok)
	assert.Equal(t, label.ID, jump.Target)
}

func TestEncodeWidensFarConditionalJump(t *testing.T) {
	w := cpool.NewWriter()
	list := NewInsnList()
	end := list.NewLabel()
	list.Append(ConditionalJump{Condition: CondEQ, Target: end})
	// Enough NOPs to push the displacement past the int16 range so the
	// layout pass must widen this into an inverted-condition + goto_w.
	for i := 0; i < 33000; i++ {
		list.Append(NopInsn{})
	}
	list.Append(LabelInsn{ID: end})
	list.Append(Return{Kind: ReturnVoid})

	code, err := Encode(list, w)
	require.NoError(t, err)

	// Widened form: inverted if* (3 bytes) followed by goto_w (5 bytes).
	assert.Equal(t, uint8(condOpcode(invertCondition(CondEQ))), code[0])
	assert.Equal(t, uint8(opGotoW), code[3])

	pool := decodeEncodePool(t, w)
	decoded, err := Decode(code, pool)
	require.NoError(t, err)

	// The decoded list reflects the widened encoding, not the original
	// single instruction: the inverted conditional skips over the goto_w.
	inv, ok := decoded.At(0).(ConditionalJump)
	require.True(t, ok)
	assert.Equal(t, CondNE, inv.Condition)
	wide, ok := decoded.At(1).(Jump)
	require.True(t, ok)

	last := decoded.At(decoded.Len() - 1)
	ret, ok := last.(Return)
	require.True(t, ok)
	assert.Equal(t, ReturnVoid, ret.Kind)

	// The goto_w lands on the label placed just before that return.
	lbl, ok := decoded.At(decoded.Len() - 2).(LabelInsn)
	require.True(t, ok)
	assert.Equal(t, lbl.ID, wide.Target)
}

func TestEncodeDecodeLocalVariableWidthBoundaries(t *testing.T) {
	for _, idx := range []uint16{0, 3, 4, 255, 256, 1000} {
		idx := idx
		t.Run("", func(t *testing.T) {
			w := cpool.NewWriter()
			list := NewInsnList()
			list.Append(LocalLoad{Kind: KindInt, Index: idx})
			list.Append(Return{Kind: ReturnVoid})

			code, err := Encode(list, w)
			require.NoError(t, err)

			pool := decodeEncodePool(t, w)
			decoded, err := Decode(code, pool)
			require.NoError(t, err)
			assert.Equal(t, LocalLoad{Kind: KindInt, Index: idx}, decoded.At(0))
		})
	}
}

func TestEncodeDecodeLdcIndexWidthBoundary(t *testing.T) {
	// Fill slots 1..254 with distinct Utf8 entries (identical values would be
	// interned to one slot), so the Ldc's Utf8 lands at 255 and its String
	// at 256, a two-byte cp index, pushing Ldc from the 1-byte form to ldc_w.
	w := cpool.NewWriter()
	for i := 0; i < 254; i++ {
		w.Utf8(string(rune(0x100 + i)))
	}
	list := NewInsnList()
	list.Append(Ldc{Variant: LdcString, StrValue: "late string"})
	list.Append(Return{Kind: ReturnVoid})

	code, err := Encode(list, w)
	require.NoError(t, err)
	assert.Equal(t, uint8(opLdcW), code[0])

	pool := decodeEncodePool(t, w)
	decoded, err := Decode(code, pool)
	require.NoError(t, err)
	assert.Equal(t, Ldc{Variant: LdcString, StrValue: "late string"}, decoded.At(0))
}

func TestEncodeDecodeLdcSmallIndexUsesShortForm(t *testing.T) {
	w := cpool.NewWriter()
	list := NewInsnList()
	list.Append(Ldc{Variant: LdcString, StrValue: "x"})
	list.Append(Return{Kind: ReturnVoid})

	code, err := Encode(list, w)
	require.NoError(t, err)
	assert.Equal(t, uint8(opLdc), code[0])
}

func TestEncodeDecodeTableSwitch(t *testing.T) {
	w := cpool.NewWriter()
	list := NewInsnList()
	def := list.NewLabel()
	l0 := list.NewLabel()
	l1 := list.NewLabel()
	l2 := list.NewLabel()

	list.Append(LocalLoad{Kind: KindInt, Index: 0})
	list.Append(TableSwitch{Default: def, Low: 0, High: 2, Targets: []uint32{l0, l1, l2}})
	list.Append(LabelInsn{ID: l0})
	list.Append(Ldc{Variant: LdcInt, IntValue: 100})
	list.Append(Return{Kind: ReturnInt})
	list.Append(LabelInsn{ID: l1})
	list.Append(Ldc{Variant: LdcInt, IntValue: 101})
	list.Append(Return{Kind: ReturnInt})
	list.Append(LabelInsn{ID: l2})
	list.Append(Ldc{Variant: LdcInt, IntValue: 102})
	list.Append(Return{Kind: ReturnInt})
	list.Append(LabelInsn{ID: def})
	list.Append(Ldc{Variant: LdcInt, IntValue: -1})
	list.Append(Return{Kind: ReturnInt})

	code, err := Encode(list, w)
	require.NoError(t, err)

	pool := decodeEncodePool(t, w)
	decoded, err := Decode(code, pool)
	require.NoError(t, err)

	ts, ok := decoded.At(1).(TableSwitch)
	require.True(t, ok)
	assert.EqualValues(t, 0, ts.Low)
	assert.EqualValues(t, 2, ts.High)
	assert.Len(t, ts.Targets, 3)
}

func TestEncodeDecodeTableSwitchPaddingAtVariousOffsets(t *testing.T) {
	// tableswitch must be padded to the next 4-byte boundary after its own
	// opcode; exercise several starting offsets so every padding length
	// (0..3 bytes) is covered.
	for _, nops := range []int{0, 1, 2, 3, 4, 5} {
		nops := nops
		t.Run("", func(t *testing.T) {
			w := cpool.NewWriter()
			list := NewInsnList()
			for i := 0; i < nops; i++ {
				list.Append(NopInsn{})
			}
			def := list.NewLabel()
			l0 := list.NewLabel()
			list.Append(LocalLoad{Kind: KindInt, Index: 0})
			list.Append(TableSwitch{Default: def, Low: 0, High: 0, Targets: []uint32{l0}})
			list.Append(LabelInsn{ID: l0})
			list.Append(Return{Kind: ReturnVoid})
			list.Append(LabelInsn{ID: def})
			list.Append(Return{Kind: ReturnVoid})

			code, err := Encode(list, w)
			require.NoError(t, err)

			pool := decodeEncodePool(t, w)
			decoded, err := Decode(code, pool)
			require.NoError(t, err)

			_, ok := decoded.At(nops + 1).(TableSwitch)
			require.True(t, ok, "expected TableSwitch after %d leading nops", nops)
		})
	}
}

func TestEncodeDecodeLookupSwitch(t *testing.T) {
	w := cpool.NewWriter()
	list := NewInsnList()
	def := list.NewLabel()
	lA := list.NewLabel()
	lB := list.NewLabel()

	list.Append(LocalLoad{Kind: KindInt, Index: 0})
	list.Append(LookupSwitch{
		Default: def,
		Cases: []LookupSwitchCase{
			{Match: 5, Target: lA},
			{Match: 9000, Target: lB},
		},
	})
	list.Append(LabelInsn{ID: lA})
	list.Append(Return{Kind: ReturnVoid})
	list.Append(LabelInsn{ID: lB})
	list.Append(Return{Kind: ReturnVoid})
	list.Append(LabelInsn{ID: def})
	list.Append(Return{Kind: ReturnVoid})

	code, err := Encode(list, w)
	require.NoError(t, err)

	pool := decodeEncodePool(t, w)
	decoded, err := Decode(code, pool)
	require.NoError(t, err)

	ls, ok := decoded.At(1).(LookupSwitch)
	require.True(t, ok)
	require.Len(t, ls.Cases, 2)
	assert.EqualValues(t, 5, ls.Cases[0].Match)
	assert.EqualValues(t, 9000, ls.Cases[1].Match)
}

func TestEncodeDecodeWideIinc(t *testing.T) {
	w := cpool.NewWriter()
	list := NewInsnList()
	// An index above 255 forces the wide form even though the delta is small.
	list.Append(IncrementInt{Index: 300, Delta: 5})
	list.Append(Return{Kind: ReturnVoid})

	code, err := Encode(list, w)
	require.NoError(t, err)
	assert.Equal(t, uint8(opWide), code[0])

	pool := decodeEncodePool(t, w)
	decoded, err := Decode(code, pool)
	require.NoError(t, err)
	assert.Equal(t, IncrementInt{Index: 300, Delta: 5}, decoded.At(0))
}

func TestEncodeDecodeWideAstore(t *testing.T) {
	w := cpool.NewWriter()
	list := NewInsnList()
	list.Append(LocalStore{Kind: KindReference, Index: 400})
	list.Append(Return{Kind: ReturnVoid})

	code, err := Encode(list, w)
	require.NoError(t, err)
	assert.Equal(t, uint8(opWide), code[0])

	pool := decodeEncodePool(t, w)
	decoded, err := Decode(code, pool)
	require.NoError(t, err)
	assert.Equal(t, LocalStore{Kind: KindReference, Index: 400}, decoded.At(0))
}

func TestDecodeEmptyCode(t *testing.T) {
	decoded, err := Decode(nil, emptyPool(t))
	require.NoError(t, err)
	assert.Equal(t, 0, decoded.Len())
}

func TestDecodeUnknownOpcode(t *testing.T) {
	_, err := Decode([]byte{0xCB}, emptyPool(t))
	require.Error(t, err)
	var unknown *UnknownOpcodeError
	assert.ErrorAs(t, err, &unknown)
}

func TestEncodeRejectsUnresolvedJumpLabel(t *testing.T) {
	w := cpool.NewWriter()
	list := NewInsnList()
	stray := list.NewLabel() // allocated, never placed with a LabelInsn
	list.Append(Jump{Target: stray})
	list.Append(Return{Kind: ReturnVoid})

	_, err := Encode(list, w)
	require.Error(t, err)
	var invalid *InvalidInstructionError
	assert.ErrorAs(t, err, &invalid)
}

func TestEncodeRejectsUnresolvedConditionalJumpLabel(t *testing.T) {
	w := cpool.NewWriter()
	list := NewInsnList()
	stray := list.NewLabel()
	list.Append(ConditionalJump{Condition: CondEQ, Target: stray})
	list.Append(Return{Kind: ReturnVoid})

	_, err := Encode(list, w)
	require.Error(t, err)
	var invalid *InvalidInstructionError
	assert.ErrorAs(t, err, &invalid)
}

func TestEncodeRejectsUnresolvedSwitchTargets(t *testing.T) {
	w := cpool.NewWriter()
	list := NewInsnList()
	def := list.NewLabel()
	caseTarget := list.NewLabel() // neither label is ever placed
	list.Append(LookupSwitch{Default: def, Cases: []LookupSwitchCase{{Match: 1, Target: caseTarget}}})

	_, err := Encode(list, w)
	require.Error(t, err)
	var invalid *InvalidInstructionError
	assert.ErrorAs(t, err, &invalid)
}

func TestEncodeRejectsDuplicateLabel(t *testing.T) {
	w := cpool.NewWriter()
	list := NewInsnList()
	dup := list.NewLabel()
	list.Append(LabelInsn{ID: dup})
	list.Append(LabelInsn{ID: dup}) // same id placed twice: not "exactly one"
	list.Append(Jump{Target: dup})
	list.Append(Return{Kind: ReturnVoid})

	_, err := Encode(list, w)
	require.Error(t, err)
	var invalid *InvalidInstructionError
	assert.ErrorAs(t, err, &invalid)
}
