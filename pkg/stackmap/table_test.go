package stackmap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, table *Table) *Table {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, table.Write(&buf))
	got, err := Parse(buf.Bytes())
	require.NoError(t, err)
	return got
}

func TestFrameTaxonomyRoundTrip(t *testing.T) {
	table := &Table{Frames: []Frame{
		Same{OffsetDelta: 10},
		SameLocals1StackItem{OffsetDelta: 20, Stack: Integer{}},
		SameLocals1StackItemExtended{OffsetDelta: 1000, Stack: Object{ClassIndex: 5}},
		Chop{ChopCount: 2, OffsetDelta: 4},
		SameExtended{OffsetDelta: 300},
		Append{OffsetDelta: 7, Locals: []VerificationTypeInfo{Integer{}, Float{}}},
		Full{
			OffsetDelta: 0,
			Locals:      []VerificationTypeInfo{Object{ClassIndex: 12}, Uninitialized{Offset: 3}},
			Stack:       []VerificationTypeInfo{Long{}, Double{}, Null{}, Top{}, UninitializedThis{}},
		},
	}}

	got := roundTrip(t, table)
	assert.Equal(t, table.Frames, got.Frames)
}

func TestUninitializedDoesNotCollapseIntoObject(t *testing.T) {
	table := &Table{Frames: []Frame{
		Full{
			OffsetDelta: 0,
			Locals:      []VerificationTypeInfo{Uninitialized{Offset: 42}},
		},
	}}

	got := roundTrip(t, table)
	require.Len(t, got.Frames, 1)
	full, ok := got.Frames[0].(Full)
	require.True(t, ok)
	require.Len(t, full.Locals, 1)

	_, isObject := full.Locals[0].(Object)
	assert.False(t, isObject, "Uninitialized must not round-trip as Object")

	uninit, ok := full.Locals[0].(Uninitialized)
	require.True(t, ok)
	assert.EqualValues(t, 42, uninit.Offset)
}

func TestSameFrameOffsetDeltaBoundary(t *testing.T) {
	table := &Table{Frames: []Frame{Same{OffsetDelta: 63}}}
	got := roundTrip(t, table)
	assert.Equal(t, table.Frames, got.Frames)
}

func TestWriteRejectsOutOfRangeSameOffsetDelta(t *testing.T) {
	table := &Table{Frames: []Frame{Same{OffsetDelta: 64}}}
	var buf bytes.Buffer
	err := table.Write(&buf)
	require.Error(t, err)
	var invalid *InvalidFrameError
	assert.ErrorAs(t, err, &invalid)
}

func TestWriteRejectsOutOfRangeChopCount(t *testing.T) {
	table := &Table{Frames: []Frame{Chop{ChopCount: 4, OffsetDelta: 1}}}
	var buf bytes.Buffer
	err := table.Write(&buf)
	require.Error(t, err)
}

func TestParseUnrecognizedFrameType(t *testing.T) {
	_, err := Parse([]byte{0x00, 0x01, 200})
	require.Error(t, err)
	var unrecognized *UnrecognizedFrameTypeError
	assert.ErrorAs(t, err, &unrecognized)
}

func TestParseUnrecognizedVerificationTag(t *testing.T) {
	// One Same frame would be a single byte <= 63; instead use
	// same_locals_1_stack_item (tag 64) with a bogus verification tag.
	_, err := Parse([]byte{0x00, 0x01, 64, 99})
	require.Error(t, err)
	var unrecognized *UnrecognizedVerificationTagError
	assert.ErrorAs(t, err, &unrecognized)
}

func TestEmptyTableRoundTrip(t *testing.T) {
	table := &Table{}
	got := roundTrip(t, table)
	assert.Empty(t, got.Frames)
}
