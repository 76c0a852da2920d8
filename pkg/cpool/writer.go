package cpool

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer accumulates constant pool entries for emission, interning by
// structural equality and handing back the u16 index each entry lives at.
// Entries are append-only: once interned, an entry never moves or is
// removed, matching the pool's lifecycle during a single emit session.
type Writer struct {
	entries []Entry
	byKey   map[key]uint16
}

// key is the structural-equality key used for deduplication. Utf8 equality
// is byte-for-byte on the modified-UTF-8 encoding, so Utf8 entries are
// keyed on that encoding rather than the Go string directly — two Go
// strings that differ only in how a supplementary code point round-trips
// through modified UTF-8 must not collide.
type key struct {
	tag uint8
	a   uint64
	b   uint64
	s   string
}

// NewWriter returns an empty constant pool writer. Index 0 is implicitly
// reserved; the first interned entry lands at index 1.
func NewWriter() *Writer {
	return &Writer{
		entries: make([]Entry, 1, 16), // entries[0] is the reserved null slot
		byKey:   make(map[key]uint16),
	}
}

// Count returns the current constant_pool_count (one greater than the
// number of occupied indices, mirroring the read side).
func (w *Writer) Count() uint16 { return uint16(len(w.entries)) }

func (w *Writer) intern(k key, make func() Entry) uint16 {
	if idx, ok := w.byKey[k]; ok {
		return idx
	}
	idx := uint16(len(w.entries))
	w.entries = append(w.entries, make())
	w.byKey[k] = idx
	return idx
}

// Utf8 interns a raw Utf8 entry and returns its index.
func (w *Writer) Utf8(s string) uint16 {
	encoded := encodeModifiedUTF8(s)
	k := key{tag: TagUtf8, s: string(encoded)}
	return w.intern(k, func() Entry { return Utf8{Value: s} })
}

// StringUtf interns a CONSTANT_Utf8 holding s, then a CONSTANT_String
// pointing at it, returning the String index.
func (w *Writer) StringUtf(s string) uint16 {
	utfIdx := w.Utf8(s)
	k := key{tag: TagString, a: uint64(utfIdx)}
	return w.intern(k, func() Entry { return String{StringIndex: utfIdx} })
}

// ClassUtf8 interns a CONSTANT_Utf8 holding the class's internal name,
// then a CONSTANT_Class pointing at it, returning the Class index.
func (w *Writer) ClassUtf8(name string) uint16 {
	utfIdx := w.Utf8(name)
	k := key{tag: TagClass, a: uint64(utfIdx)}
	return w.intern(k, func() Entry { return Class{NameIndex: utfIdx} })
}

// Integer interns a CONSTANT_Integer entry.
func (w *Writer) Integer(v int32) uint16 {
	k := key{tag: TagInteger, a: uint64(uint32(v))}
	return w.intern(k, func() Entry { return Integer{Value: v} })
}

// Float interns a CONSTANT_Float entry.
func (w *Writer) Float(v float32) uint16 {
	k := key{tag: TagFloat, a: uint64(math.Float32bits(v))}
	return w.intern(k, func() Entry { return Float{Value: v} })
}

// Long interns a CONSTANT_Long entry. Long entries consume two slots; the
// second is reserved exactly as on the read side.
func (w *Writer) Long(v int64) uint16 {
	k := key{tag: TagLong, a: uint64(v)}
	if idx, ok := w.byKey[k]; ok {
		return idx
	}
	idx := uint16(len(w.entries))
	w.entries = append(w.entries, Long{Value: v}, nil) // second slot unreachable
	w.byKey[k] = idx
	return idx
}

// Double interns a CONSTANT_Double entry, consuming two slots like Long.
func (w *Writer) Double(v float64) uint16 {
	k := key{tag: TagDouble, a: math.Float64bits(v)}
	if idx, ok := w.byKey[k]; ok {
		return idx
	}
	idx := uint16(len(w.entries))
	w.entries = append(w.entries, Double{Value: v}, nil)
	w.byKey[k] = idx
	return idx
}

// NameAndType interns a CONSTANT_NameAndType entry.
func (w *Writer) NameAndType(name, descriptor string) uint16 {
	nameIdx := w.Utf8(name)
	descIdx := w.Utf8(descriptor)
	k := key{tag: TagNameAndType, a: uint64(nameIdx), b: uint64(descIdx)}
	return w.intern(k, func() Entry { return NameAndType{NameIndex: nameIdx, DescriptorIndex: descIdx} })
}

// FieldRef interns a CONSTANT_Fieldref entry (and its Class/NameAndType
// dependents).
func (w *Writer) FieldRef(class, name, descriptor string) uint16 {
	classIdx := w.ClassUtf8(class)
	natIdx := w.NameAndType(name, descriptor)
	k := key{tag: TagFieldref, a: uint64(classIdx), b: uint64(natIdx)}
	return w.intern(k, func() Entry { return FieldRef{ClassIndex: classIdx, NameAndTypeIndex: natIdx} })
}

// MethodRef interns a CONSTANT_Methodref entry.
func (w *Writer) MethodRef(class, name, descriptor string) uint16 {
	classIdx := w.ClassUtf8(class)
	natIdx := w.NameAndType(name, descriptor)
	k := key{tag: TagMethodref, a: uint64(classIdx), b: uint64(natIdx)}
	return w.intern(k, func() Entry { return MethodRef{ClassIndex: classIdx, NameAndTypeIndex: natIdx} })
}

// InterfaceMethodRef interns a CONSTANT_InterfaceMethodref entry.
func (w *Writer) InterfaceMethodRef(class, name, descriptor string) uint16 {
	classIdx := w.ClassUtf8(class)
	natIdx := w.NameAndType(name, descriptor)
	k := key{tag: TagInterfaceMethodref, a: uint64(classIdx), b: uint64(natIdx)}
	return w.intern(k, func() Entry {
		return InterfaceMethodRef{ClassIndex: classIdx, NameAndTypeIndex: natIdx}
	})
}

// MethodTypeUtf8 interns a CONSTANT_MethodType entry for the given
// descriptor.
func (w *Writer) MethodTypeUtf8(descriptor string) uint16 {
	descIdx := w.Utf8(descriptor)
	k := key{tag: TagMethodType, a: uint64(descIdx)}
	return w.intern(k, func() Entry { return MethodType{DescriptorIndex: descIdx} })
}

// MethodHandle interns a CONSTANT_MethodHandle entry referencing an
// already-interned Fieldref/Methodref/InterfaceMethodref index.
func (w *Writer) MethodHandle(kind uint8, refIndex uint16) uint16 {
	k := key{tag: TagMethodHandle, a: uint64(kind), b: uint64(refIndex)}
	return w.intern(k, func() Entry { return MethodHandle{Kind: kind, RefIndex: refIndex} })
}

// Dynamic interns a CONSTANT_Dynamic entry.
func (w *Writer) Dynamic(bootstrapMethodIndex uint16, name, descriptor string) uint16 {
	natIdx := w.NameAndType(name, descriptor)
	k := key{tag: TagDynamic, a: uint64(bootstrapMethodIndex), b: uint64(natIdx)}
	return w.intern(k, func() Entry {
		return Dynamic{BootstrapMethodIndex: bootstrapMethodIndex, NameAndTypeIndex: natIdx}
	})
}

// InvokeDynamic interns a CONSTANT_InvokeDynamic entry.
func (w *Writer) InvokeDynamic(bootstrapMethodIndex uint16, name, descriptor string) uint16 {
	natIdx := w.NameAndType(name, descriptor)
	k := key{tag: TagInvokeDynamic, a: uint64(bootstrapMethodIndex), b: uint64(natIdx)}
	return w.intern(k, func() Entry {
		return InvokeDynamic{BootstrapMethodIndex: bootstrapMethodIndex, NameAndTypeIndex: natIdx}
	})
}

// ModuleUtf8 interns a CONSTANT_Module entry.
func (w *Writer) ModuleUtf8(name string) uint16 {
	nameIdx := w.Utf8(name)
	k := key{tag: TagModule, a: uint64(nameIdx)}
	return w.intern(k, func() Entry { return Module{NameIndex: nameIdx} })
}

// PackageUtf8 interns a CONSTANT_Package entry.
func (w *Writer) PackageUtf8(name string) uint16 {
	nameIdx := w.Utf8(name)
	k := key{tag: TagPackage, a: uint64(nameIdx)}
	return w.intern(k, func() Entry { return Package{NameIndex: nameIdx} })
}

// IsWide reports whether the entry at idx occupies two constant pool
// slots (Long or Double). The bytecode encoder does not call it; it picks
// ldc2_w from the Ldc variant.
func (w *Writer) IsWide(idx uint16) bool {
	if int(idx) >= len(w.entries) {
		return false
	}
	switch w.entries[idx].(type) {
	case Long, Double:
		return true
	default:
		return false
	}
}

// Write serializes the pool in constant_pool_count + entries wire format.
func (w *Writer) Write(out io.Writer) error {
	if err := binary.Write(out, binary.BigEndian, w.Count()); err != nil {
		return fmt.Errorf("writing constant_pool_count: %w", err)
	}
	for i := 1; i < len(w.entries); i++ {
		e := w.entries[i]
		if e == nil {
			continue // second slot of a Long/Double
		}
		if err := writeEntry(out, e); err != nil {
			return fmt.Errorf("writing entry at index %d: %w", i, err)
		}
	}
	return nil
}

func writeEntry(out io.Writer, e Entry) error {
	var buf bytes.Buffer
	buf.WriteByte(e.Tag())
	switch v := e.(type) {
	case Utf8:
		encoded := encodeModifiedUTF8(v.Value)
		binary.Write(&buf, binary.BigEndian, uint16(len(encoded)))
		buf.Write(encoded)
	case Integer:
		binary.Write(&buf, binary.BigEndian, v.Value)
	case Float:
		binary.Write(&buf, binary.BigEndian, math.Float32bits(v.Value))
	case Long:
		binary.Write(&buf, binary.BigEndian, v.Value)
	case Double:
		binary.Write(&buf, binary.BigEndian, math.Float64bits(v.Value))
	case Class:
		binary.Write(&buf, binary.BigEndian, v.NameIndex)
	case String:
		binary.Write(&buf, binary.BigEndian, v.StringIndex)
	case FieldRef:
		binary.Write(&buf, binary.BigEndian, v.ClassIndex)
		binary.Write(&buf, binary.BigEndian, v.NameAndTypeIndex)
	case MethodRef:
		binary.Write(&buf, binary.BigEndian, v.ClassIndex)
		binary.Write(&buf, binary.BigEndian, v.NameAndTypeIndex)
	case InterfaceMethodRef:
		binary.Write(&buf, binary.BigEndian, v.ClassIndex)
		binary.Write(&buf, binary.BigEndian, v.NameAndTypeIndex)
	case NameAndType:
		binary.Write(&buf, binary.BigEndian, v.NameIndex)
		binary.Write(&buf, binary.BigEndian, v.DescriptorIndex)
	case MethodHandle:
		buf.WriteByte(v.Kind)
		binary.Write(&buf, binary.BigEndian, v.RefIndex)
	case MethodType:
		binary.Write(&buf, binary.BigEndian, v.DescriptorIndex)
	case Dynamic:
		binary.Write(&buf, binary.BigEndian, v.BootstrapMethodIndex)
		binary.Write(&buf, binary.BigEndian, v.NameAndTypeIndex)
	case InvokeDynamic:
		binary.Write(&buf, binary.BigEndian, v.BootstrapMethodIndex)
		binary.Write(&buf, binary.BigEndian, v.NameAndTypeIndex)
	case Module:
		binary.Write(&buf, binary.BigEndian, v.NameIndex)
	case Package:
		binary.Write(&buf, binary.BigEndian, v.NameIndex)
	default:
		return fmt.Errorf("unhandled entry type %T", e)
	}
	_, err := out.Write(buf.Bytes())
	return err
}
