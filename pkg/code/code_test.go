package code

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jclass-go/jclass/pkg/bytecode"
	"github.com/jclass-go/jclass/pkg/cpool"
)

func parsePool(t *testing.T, w *cpool.Writer) *cpool.Pool {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf))
	buf.Next(2) // Write emits constant_pool_count first; Parse takes it as an argument
	pool, err := cpool.Parse(&buf, w.Count())
	require.NoError(t, err)
	return pool
}

func TestCodeAttributeRoundTrip(t *testing.T) {
	w := cpool.NewWriter()
	list := bytecode.NewInsnList()
	list.Append(bytecode.Ldc{Variant: bytecode.LdcInt, IntValue: 7})
	list.Append(bytecode.Return{Kind: bytecode.ReturnInt})

	attr := &Attribute{
		MaxStack:  2,
		MaxLocals: 1,
		Insns:     list,
		Attributes: []cpool.RawAttribute{
			{Name: "LineNumberTable", Data: []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x00}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, attr.Write(&buf, w))

	pool := parsePool(t, w)
	got, err := Parse(buf.Bytes(), pool)
	require.NoError(t, err)

	assert.Equal(t, uint16(2), got.MaxStack)
	assert.Equal(t, uint16(1), got.MaxLocals)
	require.Equal(t, 2, got.Insns.Len())
	assert.Equal(t, bytecode.Ldc{Variant: bytecode.LdcInt, IntValue: 7}, got.Insns.At(0))
	assert.Equal(t, bytecode.Return{Kind: bytecode.ReturnInt}, got.Insns.At(1))
	require.Len(t, got.Attributes, 1)
	assert.Equal(t, "LineNumberTable", got.Attributes[0].Name)
}

func TestCodeAttributeExceptionHandlerRoundTrip(t *testing.T) {
	w := cpool.NewWriter()
	list := bytecode.NewInsnList()
	tryStart := list.NewLabel()
	tryEnd := list.NewLabel()
	handlerStart := list.NewLabel()

	list.Append(bytecode.LabelInsn{ID: tryStart})
	list.Append(bytecode.Ldc{Variant: bytecode.LdcInt, IntValue: 1})
	list.Append(bytecode.Return{Kind: bytecode.ReturnInt})
	list.Append(bytecode.LabelInsn{ID: tryEnd})
	list.Append(bytecode.LabelInsn{ID: handlerStart})
	list.Append(bytecode.LocalStore{Kind: bytecode.KindReference, Index: 1})
	list.Append(bytecode.Ldc{Variant: bytecode.LdcInt, IntValue: -1})
	list.Append(bytecode.Return{Kind: bytecode.ReturnInt})

	catchType := "java/lang/Exception"
	attr := &Attribute{
		MaxStack:  2,
		MaxLocals: 2,
		Insns:     list,
		Exceptions: []ExceptionHandler{
			{Start: tryStart, End: tryEnd, Handler: handlerStart, CatchType: &catchType},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, attr.Write(&buf, w))

	pool := parsePool(t, w)
	got, err := Parse(buf.Bytes(), pool)
	require.NoError(t, err)

	require.Len(t, got.Exceptions, 1)
	h := got.Exceptions[0]
	require.NotNil(t, h.CatchType)
	assert.Equal(t, "java/lang/Exception", *h.CatchType)

	// The labels these resolve to should point at the same instructions
	// the handler was originally attached to, not necessarily the same
	// numeric ids (re-decoding renumbers labels from scratch).
	startLabel, ok := got.Insns.At(0).(bytecode.LabelInsn)
	require.True(t, ok)
	assert.Equal(t, startLabel.ID, h.Start)
}

func TestCodeAttributeCatchAllHandlerHasNilCatchType(t *testing.T) {
	w := cpool.NewWriter()
	list := bytecode.NewInsnList()
	tryStart := list.NewLabel()
	tryEnd := list.NewLabel()
	handlerStart := list.NewLabel()

	list.Append(bytecode.LabelInsn{ID: tryStart})
	list.Append(bytecode.Return{Kind: bytecode.ReturnVoid})
	list.Append(bytecode.LabelInsn{ID: tryEnd})
	list.Append(bytecode.LabelInsn{ID: handlerStart})
	list.Append(bytecode.ThrowInsn{})

	attr := &Attribute{
		MaxStack:  1,
		MaxLocals: 1,
		Insns:     list,
		Exceptions: []ExceptionHandler{
			{Start: tryStart, End: tryEnd, Handler: handlerStart, CatchType: nil},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, attr.Write(&buf, w))

	pool := parsePool(t, w)
	got, err := Parse(buf.Bytes(), pool)
	require.NoError(t, err)

	require.Len(t, got.Exceptions, 1)
	assert.Nil(t, got.Exceptions[0].CatchType)
}

func TestCodeAttributeHandlerEndAtCodeLength(t *testing.T) {
	// The protected range may extend all the way to the end of the method
	// body, i.e. end_pc == code_length with no instruction starting there.
	w := cpool.NewWriter()
	list := bytecode.NewInsnList()
	tryStart := list.NewLabel()
	tryEnd := list.NewLabel()
	handlerStart := list.NewLabel()

	// The handler comes first, so the try range covers the last
	// instructions and its end label sits at code_length.
	list.Append(bytecode.LabelInsn{ID: handlerStart})
	list.Append(bytecode.ThrowInsn{})
	list.Append(bytecode.LabelInsn{ID: tryStart})
	list.Append(bytecode.Ldc{Variant: bytecode.LdcInt, IntValue: 3})
	list.Append(bytecode.Return{Kind: bytecode.ReturnInt})
	list.Append(bytecode.LabelInsn{ID: tryEnd})

	attr := &Attribute{
		MaxStack:  1,
		MaxLocals: 1,
		Insns:     list,
		Exceptions: []ExceptionHandler{
			{Start: tryStart, End: tryEnd, Handler: handlerStart, CatchType: nil},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, attr.Write(&buf, w))

	pool := parsePool(t, w)
	got, err := Parse(buf.Bytes(), pool)
	require.NoError(t, err)
	require.Len(t, got.Exceptions, 1)

	endLabel, ok := got.Insns.At(got.Insns.Len() - 1).(bytecode.LabelInsn)
	require.True(t, ok, "end_pc == code_length must decode to a trailing label")
	assert.Equal(t, endLabel.ID, got.Exceptions[0].End)
}

func TestCodeAttributeEmptyCode(t *testing.T) {
	w := cpool.NewWriter()
	attr := &Attribute{
		MaxStack:  0,
		MaxLocals: 0,
		Insns:     bytecode.NewInsnList(),
	}

	var buf bytes.Buffer
	require.NoError(t, attr.Write(&buf, w))

	pool := parsePool(t, w)
	got, err := Parse(buf.Bytes(), pool)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Insns.Len())
	assert.Empty(t, got.Exceptions)
}
