package cpool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterParseRoundTrip(t *testing.T) {
	w := NewWriter()
	classIdx := w.ClassUtf8("com/example/Widget")
	fieldIdx := w.FieldRef("com/example/Widget", "count", "I")
	methodIdx := w.MethodRef("com/example/Widget", "reset", "()V")
	ifaceMethodIdx := w.InterfaceMethodRef("java/util/List", "size", "()I")
	longIdx := w.Long(123456789012345)
	doubleIdx := w.Double(2.71828)
	intIdx := w.Integer(-7)
	floatIdx := w.Float(1.5)
	strIdx := w.StringUtf("hello, world")
	natIdx := w.NameAndType("count", "I")
	mtIdx := w.MethodTypeUtf8("(I)V")
	mhIdx := w.MethodHandle(6, methodIdx)
	nextSlot := w.Count()

	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf))
	buf.Next(2) // Write emits constant_pool_count first; Parse takes it as an argument

	pool, err := Parse(&buf, w.Count())
	require.NoError(t, err)

	className, err := pool.ClassName(classIdx)
	require.NoError(t, err)
	assert.Equal(t, "com/example/Widget", className)

	fref, err := pool.FieldRef(fieldIdx)
	require.NoError(t, err)
	assert.Equal(t, &MemberRef{ClassName: "com/example/Widget", Name: "count", Descriptor: "I"}, fref)

	mref, err := pool.MethodRef(methodIdx)
	require.NoError(t, err)
	assert.Equal(t, &MemberRef{ClassName: "com/example/Widget", Name: "reset", Descriptor: "()V"}, mref)

	_, isInterface, err := pool.AnyMethod(ifaceMethodIdx)
	require.NoError(t, err)
	assert.True(t, isInterface)

	_, isInterface, err = pool.AnyMethod(methodIdx)
	require.NoError(t, err)
	assert.False(t, isInterface)

	longVal, err := pool.Long(longIdx)
	require.NoError(t, err)
	assert.EqualValues(t, 123456789012345, longVal)

	doubleVal, err := pool.Double(doubleIdx)
	require.NoError(t, err)
	assert.InDelta(t, 2.71828, doubleVal, 1e-12)

	intVal, err := pool.Integer(intIdx)
	require.NoError(t, err)
	assert.EqualValues(t, -7, intVal)

	floatVal, err := pool.Float(floatIdx)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, floatVal, 1e-6)

	strVal, err := pool.String(strIdx)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", strVal)

	name, desc, err := pool.NameAndType(natIdx)
	require.NoError(t, err)
	assert.Equal(t, "count", name)
	assert.Equal(t, "I", desc)

	mtVal, err := pool.MethodTypeDescriptor(mtIdx)
	require.NoError(t, err)
	assert.Equal(t, "(I)V", mtVal)

	mh, err := pool.MethodHandleRef(mhIdx)
	require.NoError(t, err)
	assert.EqualValues(t, 6, mh.Kind)
	assert.Equal(t, methodIdx, mh.RefIndex)

	assert.Equal(t, nextSlot, pool.Count())
}

func TestLongDoubleConsumeTwoSlots(t *testing.T) {
	w := NewWriter()
	longIdx := w.Long(1)
	afterLong := w.Integer(2)
	assert.Equal(t, longIdx+2, afterLong, "an Integer interned right after a Long must land two slots later")

	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf))
	buf.Next(2) // Write emits constant_pool_count first; Parse takes it as an argument
	pool, err := Parse(&buf, w.Count())
	require.NoError(t, err)

	// The slot immediately after a Long is unreachable: looking it up must fail.
	_, err = pool.Get(longIdx + 1)
	assert.Error(t, err)

	v, err := pool.Integer(afterLong)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
}

func TestWriterInterning(t *testing.T) {
	w := NewWriter()
	a := w.Utf8("shared")
	b := w.Utf8("shared")
	assert.Equal(t, a, b, "identical Utf8 values must be interned to the same index")

	c := w.ClassUtf8("java/lang/Object")
	d := w.ClassUtf8("java/lang/Object")
	assert.Equal(t, c, d)

	e := w.Long(42)
	f := w.Long(42)
	assert.Equal(t, e, f)
}

func TestIndexZeroIsReserved(t *testing.T) {
	w := NewWriter()
	w.Utf8("anything")
	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf))
	buf.Next(2) // Write emits constant_pool_count first; Parse takes it as an argument
	pool, err := Parse(&buf, w.Count())
	require.NoError(t, err)

	_, err = pool.Get(0)
	assert.Error(t, err)
}

func TestParseUnknownTag(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0xFF) // not a valid constant pool tag
	_, err := Parse(&buf, 2)
	require.Error(t, err)
	var tagErr *UnknownTagError
	assert.ErrorAs(t, err, &tagErr)
}

func TestModifiedUTF8RoundTrip(t *testing.T) {
	cases := []string{
		"",
		"plain ascii",
		"contains a NUL \x00 byte",
		"supplementary \U0001F600 emoji",
	}
	for _, s := range cases {
		encoded := encodeModifiedUTF8(s)
		decoded := decodeModifiedUTF8(encoded)
		assert.Equal(t, s, decoded, "round trip for %q", s)
	}
}

func TestModifiedUTF8NulEncoding(t *testing.T) {
	encoded := encodeModifiedUTF8("\x00")
	assert.Equal(t, []byte{0xC0, 0x80}, encoded, "NUL must be encoded as the two-byte 0xC0 0x80 sequence, not a literal zero byte")
}
