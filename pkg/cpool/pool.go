// Package cpool implements the class-file constant pool: a 1-indexed,
// deduplicated table of typed constants referenced by every other
// structure in a class file.
package cpool

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Pool is a parsed, read-only constant pool. Index 0 is always nil.
type Pool struct {
	entries []Entry
}

// Parse reads constant_pool_count-1 entries from r. count is
// constant_pool_count as it appears on the wire (one greater than the
// number of usable entries).
func Parse(r io.Reader, count uint16) (*Pool, error) {
	entries := make([]Entry, count)

	for i := uint16(1); i < count; i++ {
		var tag uint8
		if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
			return nil, fmt.Errorf("reading tag at index %d: %w", i, err)
		}

		switch tag {
		case TagUtf8:
			var length uint16
			if err := binary.Read(r, binary.BigEndian, &length); err != nil {
				return nil, fmt.Errorf("reading Utf8 length at index %d: %w", i, err)
			}
			buf := make([]byte, length)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("reading Utf8 bytes at index %d: %w", i, err)
			}
			entries[i] = Utf8{Value: decodeModifiedUTF8(buf)}

		case TagInteger:
			var v int32
			if err := binary.Read(r, binary.BigEndian, &v); err != nil {
				return nil, fmt.Errorf("reading Integer at index %d: %w", i, err)
			}
			entries[i] = Integer{Value: v}

		case TagFloat:
			var bits uint32
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, fmt.Errorf("reading Float at index %d: %w", i, err)
			}
			entries[i] = Float{Value: math.Float32frombits(bits)}

		case TagLong:
			var v int64
			if err := binary.Read(r, binary.BigEndian, &v); err != nil {
				return nil, fmt.Errorf("reading Long at index %d: %w", i, err)
			}
			entries[i] = Long{Value: v}
			i++ // Long occupies two slots; the second is unreachable.

		case TagDouble:
			var bits uint64
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, fmt.Errorf("reading Double at index %d: %w", i, err)
			}
			entries[i] = Double{Value: math.Float64frombits(bits)}
			i++ // Double occupies two slots; the second is unreachable.

		case TagClass:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, fmt.Errorf("reading Class at index %d: %w", i, err)
			}
			entries[i] = Class{NameIndex: nameIndex}

		case TagString:
			var stringIndex uint16
			if err := binary.Read(r, binary.BigEndian, &stringIndex); err != nil {
				return nil, fmt.Errorf("reading String at index %d: %w", i, err)
			}
			entries[i] = String{StringIndex: stringIndex}

		case TagFieldref:
			classIndex, natIndex, err := readClassNatPair(r, "Fieldref", i)
			if err != nil {
				return nil, err
			}
			entries[i] = FieldRef{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagMethodref:
			classIndex, natIndex, err := readClassNatPair(r, "Methodref", i)
			if err != nil {
				return nil, err
			}
			entries[i] = MethodRef{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagInterfaceMethodref:
			classIndex, natIndex, err := readClassNatPair(r, "InterfaceMethodref", i)
			if err != nil {
				return nil, err
			}
			entries[i] = InterfaceMethodRef{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagNameAndType:
			var nameIndex, descIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, fmt.Errorf("reading NameAndType name_index at index %d: %w", i, err)
			}
			if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
				return nil, fmt.Errorf("reading NameAndType descriptor_index at index %d: %w", i, err)
			}
			entries[i] = NameAndType{NameIndex: nameIndex, DescriptorIndex: descIndex}

		case TagMethodHandle:
			var kind uint8
			var refIndex uint16
			if err := binary.Read(r, binary.BigEndian, &kind); err != nil {
				return nil, fmt.Errorf("reading MethodHandle reference_kind at index %d: %w", i, err)
			}
			if err := binary.Read(r, binary.BigEndian, &refIndex); err != nil {
				return nil, fmt.Errorf("reading MethodHandle reference_index at index %d: %w", i, err)
			}
			entries[i] = MethodHandle{Kind: kind, RefIndex: refIndex}

		case TagMethodType:
			var descIndex uint16
			if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
				return nil, fmt.Errorf("reading MethodType at index %d: %w", i, err)
			}
			entries[i] = MethodType{DescriptorIndex: descIndex}

		case TagDynamic:
			bsmIndex, natIndex, err := readClassNatPair(r, "Dynamic", i)
			if err != nil {
				return nil, err
			}
			entries[i] = Dynamic{BootstrapMethodIndex: bsmIndex, NameAndTypeIndex: natIndex}

		case TagInvokeDynamic:
			bsmIndex, natIndex, err := readClassNatPair(r, "InvokeDynamic", i)
			if err != nil {
				return nil, err
			}
			entries[i] = InvokeDynamic{BootstrapMethodIndex: bsmIndex, NameAndTypeIndex: natIndex}

		case TagModule:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, fmt.Errorf("reading Module at index %d: %w", i, err)
			}
			entries[i] = Module{NameIndex: nameIndex}

		case TagPackage:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, fmt.Errorf("reading Package at index %d: %w", i, err)
			}
			entries[i] = Package{NameIndex: nameIndex}

		default:
			return nil, &UnknownTagError{Tag: tag, Index: i}
		}
	}

	return &Pool{entries: entries}, nil
}

// readClassNatPair reads the two u16 fields shared by Fieldref, Methodref,
// InterfaceMethodref, Dynamic and InvokeDynamic entries (the first field's
// meaning differs per tag, but the wire shape is identical).
func readClassNatPair(r io.Reader, what string, i uint16) (uint16, uint16, error) {
	var a, b uint16
	if err := binary.Read(r, binary.BigEndian, &a); err != nil {
		return 0, 0, fmt.Errorf("reading %s first index at index %d: %w", what, i, err)
	}
	if err := binary.Read(r, binary.BigEndian, &b); err != nil {
		return 0, 0, fmt.Errorf("reading %s name_and_type_index at index %d: %w", what, i, err)
	}
	return a, b, nil
}

// Count returns constant_pool_count (one greater than the number of
// usable indices).
func (p *Pool) Count() uint16 { return uint16(len(p.entries)) }

func (p *Pool) get(i uint16) (Entry, error) {
	if i == 0 || int(i) >= len(p.entries) || p.entries[i] == nil {
		return nil, &IndexError{Index: i, N: p.Count()}
	}
	return p.entries[i], nil
}

// Get returns the raw entry at index i.
func (p *Pool) Get(i uint16) (Entry, error) { return p.get(i) }

// Utf8 resolves the Utf8 string at index i.
func (p *Pool) Utf8(i uint16) (string, error) {
	e, err := p.get(i)
	if err != nil {
		return "", err
	}
	u, ok := e.(Utf8)
	if !ok {
		return "", &IncompatibleTypeError{Index: i, Expected: "Utf8", Actual: e.Tag()}
	}
	return u.Value, nil
}

// ClassName resolves the name of a CONSTANT_Class entry.
func (p *Pool) ClassName(classIndex uint16) (string, error) {
	e, err := p.get(classIndex)
	if err != nil {
		return "", err
	}
	c, ok := e.(Class)
	if !ok {
		return "", &IncompatibleTypeError{Index: classIndex, Expected: "Class", Actual: e.Tag()}
	}
	return p.Utf8(c.NameIndex)
}

// NameAndType resolves the name/descriptor pair at index i.
func (p *Pool) NameAndType(i uint16) (name, descriptor string, err error) {
	e, err := p.get(i)
	if err != nil {
		return "", "", err
	}
	nat, ok := e.(NameAndType)
	if !ok {
		return "", "", &IncompatibleTypeError{Index: i, Expected: "NameAndType", Actual: e.Tag()}
	}
	name, err = p.Utf8(nat.NameIndex)
	if err != nil {
		return "", "", fmt.Errorf("resolving name: %w", err)
	}
	descriptor, err = p.Utf8(nat.DescriptorIndex)
	if err != nil {
		return "", "", fmt.Errorf("resolving descriptor: %w", err)
	}
	return name, descriptor, nil
}

// MemberRef is the resolved shape shared by field and method references.
type MemberRef struct {
	ClassName  string
	Name       string
	Descriptor string
}

func (p *Pool) resolveMemberRef(classIndex, natIndex uint16) (*MemberRef, error) {
	className, err := p.ClassName(classIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving class: %w", err)
	}
	name, descriptor, err := p.NameAndType(natIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving name_and_type: %w", err)
	}
	return &MemberRef{ClassName: className, Name: name, Descriptor: descriptor}, nil
}

// FieldRef resolves a CONSTANT_Fieldref entry.
func (p *Pool) FieldRef(i uint16) (*MemberRef, error) {
	e, err := p.get(i)
	if err != nil {
		return nil, err
	}
	f, ok := e.(FieldRef)
	if !ok {
		return nil, &IncompatibleTypeError{Index: i, Expected: "Fieldref", Actual: e.Tag()}
	}
	return p.resolveMemberRef(f.ClassIndex, f.NameAndTypeIndex)
}

// MethodRef resolves a CONSTANT_Methodref entry.
func (p *Pool) MethodRef(i uint16) (*MemberRef, error) {
	e, err := p.get(i)
	if err != nil {
		return nil, err
	}
	m, ok := e.(MethodRef)
	if !ok {
		return nil, &IncompatibleTypeError{Index: i, Expected: "Methodref", Actual: e.Tag()}
	}
	return p.resolveMemberRef(m.ClassIndex, m.NameAndTypeIndex)
}

// InterfaceMethodRef resolves a CONSTANT_InterfaceMethodref entry.
func (p *Pool) InterfaceMethodRef(i uint16) (*MemberRef, error) {
	e, err := p.get(i)
	if err != nil {
		return nil, err
	}
	m, ok := e.(InterfaceMethodRef)
	if !ok {
		return nil, &IncompatibleTypeError{Index: i, Expected: "InterfaceMethodref", Actual: e.Tag()}
	}
	return p.resolveMemberRef(m.ClassIndex, m.NameAndTypeIndex)
}

// AnyMethod resolves either a Methodref or InterfaceMethodref entry,
// reporting which kind it was via the interface bool.
func (p *Pool) AnyMethod(i uint16) (ref *MemberRef, interfaceMethod bool, err error) {
	e, err := p.get(i)
	if err != nil {
		return nil, false, err
	}
	switch v := e.(type) {
	case MethodRef:
		ref, err = p.resolveMemberRef(v.ClassIndex, v.NameAndTypeIndex)
		return ref, false, err
	case InterfaceMethodRef:
		ref, err = p.resolveMemberRef(v.ClassIndex, v.NameAndTypeIndex)
		return ref, true, err
	default:
		return nil, false, &IncompatibleTypeError{Index: i, Expected: "Methodref or InterfaceMethodref", Actual: e.Tag()}
	}
}

// InvokeDynamicInfo is the resolved shape of a CONSTANT_InvokeDynamic entry.
type InvokeDynamicInfo struct {
	BootstrapMethodIndex uint16
	Name                 string
	Descriptor           string
}

// InvokeDynamicInfo resolves a CONSTANT_InvokeDynamic entry.
func (p *Pool) InvokeDynamicInfo(i uint16) (*InvokeDynamicInfo, error) {
	e, err := p.get(i)
	if err != nil {
		return nil, err
	}
	d, ok := e.(InvokeDynamic)
	if !ok {
		return nil, &IncompatibleTypeError{Index: i, Expected: "InvokeDynamic", Actual: e.Tag()}
	}
	name, descriptor, err := p.NameAndType(d.NameAndTypeIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving name_and_type: %w", err)
	}
	return &InvokeDynamicInfo{BootstrapMethodIndex: d.BootstrapMethodIndex, Name: name, Descriptor: descriptor}, nil
}

// Integer resolves a CONSTANT_Integer entry.
func (p *Pool) Integer(i uint16) (int32, error) {
	e, err := p.get(i)
	if err != nil {
		return 0, err
	}
	v, ok := e.(Integer)
	if !ok {
		return 0, &IncompatibleTypeError{Index: i, Expected: "Integer", Actual: e.Tag()}
	}
	return v.Value, nil
}

// Float resolves a CONSTANT_Float entry.
func (p *Pool) Float(i uint16) (float32, error) {
	e, err := p.get(i)
	if err != nil {
		return 0, err
	}
	v, ok := e.(Float)
	if !ok {
		return 0, &IncompatibleTypeError{Index: i, Expected: "Float", Actual: e.Tag()}
	}
	return v.Value, nil
}

// Long resolves a CONSTANT_Long entry.
func (p *Pool) Long(i uint16) (int64, error) {
	e, err := p.get(i)
	if err != nil {
		return 0, err
	}
	v, ok := e.(Long)
	if !ok {
		return 0, &IncompatibleTypeError{Index: i, Expected: "Long", Actual: e.Tag()}
	}
	return v.Value, nil
}

// Double resolves a CONSTANT_Double entry.
func (p *Pool) Double(i uint16) (float64, error) {
	e, err := p.get(i)
	if err != nil {
		return 0, err
	}
	v, ok := e.(Double)
	if !ok {
		return 0, &IncompatibleTypeError{Index: i, Expected: "Double", Actual: e.Tag()}
	}
	return v.Value, nil
}

// String resolves a CONSTANT_String entry to its referenced Utf8 value.
func (p *Pool) String(i uint16) (string, error) {
	e, err := p.get(i)
	if err != nil {
		return "", err
	}
	s, ok := e.(String)
	if !ok {
		return "", &IncompatibleTypeError{Index: i, Expected: "String", Actual: e.Tag()}
	}
	return p.Utf8(s.StringIndex)
}

// MethodTypeDescriptor resolves a CONSTANT_MethodType entry.
func (p *Pool) MethodTypeDescriptor(i uint16) (string, error) {
	e, err := p.get(i)
	if err != nil {
		return "", err
	}
	m, ok := e.(MethodType)
	if !ok {
		return "", &IncompatibleTypeError{Index: i, Expected: "MethodType", Actual: e.Tag()}
	}
	return p.Utf8(m.DescriptorIndex)
}

// MethodHandleRef resolves a CONSTANT_MethodHandle entry.
func (p *Pool) MethodHandleRef(i uint16) (MethodHandle, error) {
	e, err := p.get(i)
	if err != nil {
		return MethodHandle{}, err
	}
	h, ok := e.(MethodHandle)
	if !ok {
		return MethodHandle{}, &IncompatibleTypeError{Index: i, Expected: "MethodHandle", Actual: e.Tag()}
	}
	return h, nil
}
