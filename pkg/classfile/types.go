// Package classfile assembles the outer class-file skeleton around the
// in-scope codec packages (cpool, bytecode, code, stackmap): magic word,
// version, constant pool, access flags, this/super class, interfaces,
// fields, methods, and the top-level attribute table. Per the library's
// scope this envelope is a thin external collaborator — it exists so the
// in-scope components have something to parse end-to-end, not as a focus
// of fidelity in its own right. Non-Code attributes are carried as opaque
// bytes; BootstrapMethods is the one exception, decoded far enough that
// InvokeDynamic's bootstrap index (see pkg/bytecode) can be looked up.
package classfile

import (
	"github.com/jclass-go/jclass/pkg/code"
	"github.com/jclass-go/jclass/pkg/cpool"
)

// Class access flags (JVMS 4.1), the subset this library's callers most
// commonly inspect.
const (
	AccPublic     = 0x0001
	AccFinal      = 0x0010
	AccSuper      = 0x0020
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccSynthetic  = 0x1000
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
	AccModule     = 0x8000
)

// ClassFile is a fully parsed .class file. ThisClass/SuperClass/Interfaces
// are resolved to their internal names (e.g. "java/lang/Object") rather
// than kept as raw constant-pool indices, matching how pkg/bytecode never
// carries a raw index past decode: Write re-interns these names into a
// fresh pool rather than assuming the original indices still apply.
// SuperClass is empty only for java/lang/Object, whose super_class is 0.
type ClassFile struct {
	MinorVersion     uint16
	MajorVersion     uint16
	AccessFlags      uint16
	ThisClass        string
	SuperClass       string
	Interfaces       []string
	Fields           []FieldInfo
	Methods          []MethodInfo
	Attributes       []cpool.RawAttribute
	BootstrapMethods []BootstrapMethod
}

// FieldInfo is one entry of a class file's field table.
type FieldInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []cpool.RawAttribute
}

// MethodInfo is one entry of a class file's method table. Code is nil for
// abstract and native methods, which carry no Code attribute.
type MethodInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []cpool.RawAttribute
	Code        *code.Attribute
}

// BootstrapMethod is one entry of the class-level BootstrapMethods
// attribute referenced by a Code attribute's InvokeDynamic instructions
// (pkg/bytecode's InvokeDynamic.BootstrapMethodIndex indexes this slice).
// MethodHandleRef and Arguments are left as raw constant-pool indices into
// this ClassFile's original pool: resolving a MethodHandle fully requires
// following its reference_kind-dependent target, which is introspection
// a dump tool can do but this library does not need for Code-attribute
// round-tripping.
type BootstrapMethod struct {
	MethodHandleRef uint16
	Arguments       []uint16
}
