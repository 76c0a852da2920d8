package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/jclass-go/jclass/pkg/cpool"
)

// WriteFile serializes cf and writes it to path.
func WriteFile(cf *ClassFile, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Write(cf, f)
}

// Write serializes cf as a .class file to out. Every name the class file
// carries (this/super class, interfaces, field/method names and
// descriptors, attribute names) is re-interned into a fresh constant pool
// rather than assumed to still live at its original index, matching how
// pkg/code re-encodes a Code attribute's operands. Non-Code attribute
// bodies are copied through verbatim; if one of those bodies itself
// embeds constant-pool indices (uncommon outside Code and
// BootstrapMethods) those indices are only valid if the fresh pool
// happens to assign the same layout as the source, which this library
// does not guarantee.
func Write(cf *ClassFile, out io.Writer) error {
	w := cpool.NewWriter()

	var body bytes.Buffer
	if err := binary.Write(&body, binary.BigEndian, cf.AccessFlags); err != nil {
		return fmt.Errorf("writing access flags: %w", err)
	}
	if err := binary.Write(&body, binary.BigEndian, w.ClassUtf8(cf.ThisClass)); err != nil {
		return fmt.Errorf("writing this_class: %w", err)
	}
	var superIdx uint16
	if cf.SuperClass != "" {
		superIdx = w.ClassUtf8(cf.SuperClass)
	}
	if err := binary.Write(&body, binary.BigEndian, superIdx); err != nil {
		return fmt.Errorf("writing super_class: %w", err)
	}

	if err := binary.Write(&body, binary.BigEndian, uint16(len(cf.Interfaces))); err != nil {
		return fmt.Errorf("writing interfaces count: %w", err)
	}
	for i, iface := range cf.Interfaces {
		if err := binary.Write(&body, binary.BigEndian, w.ClassUtf8(iface)); err != nil {
			return fmt.Errorf("writing interface %d: %w", i, err)
		}
	}

	if err := binary.Write(&body, binary.BigEndian, uint16(len(cf.Fields))); err != nil {
		return fmt.Errorf("writing fields count: %w", err)
	}
	for i, field := range cf.Fields {
		if err := field.write(&body, w); err != nil {
			return fmt.Errorf("writing field %d: %w", i, err)
		}
	}

	if err := binary.Write(&body, binary.BigEndian, uint16(len(cf.Methods))); err != nil {
		return fmt.Errorf("writing methods count: %w", err)
	}
	for i, method := range cf.Methods {
		if err := method.write(&body, w); err != nil {
			return fmt.Errorf("writing method %d: %w", i, err)
		}
	}

	classAttrs := cf.Attributes
	if cf.BootstrapMethods != nil {
		classAttrs = replaceBootstrapMethods(classAttrs, encodeBootstrapMethods(cf.BootstrapMethods))
	}
	if err := cpool.WriteAttributes(&body, w, classAttrs); err != nil {
		return fmt.Errorf("writing class attributes: %w", err)
	}

	if err := binary.Write(out, binary.BigEndian, uint32(classMagic)); err != nil {
		return fmt.Errorf("writing magic: %w", err)
	}
	if err := binary.Write(out, binary.BigEndian, cf.MinorVersion); err != nil {
		return fmt.Errorf("writing minor version: %w", err)
	}
	if err := binary.Write(out, binary.BigEndian, cf.MajorVersion); err != nil {
		return fmt.Errorf("writing major version: %w", err)
	}
	if err := w.Write(out); err != nil {
		return fmt.Errorf("writing constant pool: %w", err)
	}
	if _, err := out.Write(body.Bytes()); err != nil {
		return fmt.Errorf("writing class body: %w", err)
	}
	return nil
}

func (f FieldInfo) write(out io.Writer, w *cpool.Writer) error {
	if err := binary.Write(out, binary.BigEndian, f.AccessFlags); err != nil {
		return fmt.Errorf("writing access flags: %w", err)
	}
	if err := binary.Write(out, binary.BigEndian, w.Utf8(f.Name)); err != nil {
		return fmt.Errorf("writing name index: %w", err)
	}
	if err := binary.Write(out, binary.BigEndian, w.Utf8(f.Descriptor)); err != nil {
		return fmt.Errorf("writing descriptor index: %w", err)
	}
	return cpool.WriteAttributes(out, w, f.Attributes)
}

func (m MethodInfo) write(out io.Writer, w *cpool.Writer) error {
	if err := binary.Write(out, binary.BigEndian, m.AccessFlags); err != nil {
		return fmt.Errorf("writing access flags: %w", err)
	}
	if err := binary.Write(out, binary.BigEndian, w.Utf8(m.Name)); err != nil {
		return fmt.Errorf("writing name index: %w", err)
	}
	if err := binary.Write(out, binary.BigEndian, w.Utf8(m.Descriptor)); err != nil {
		return fmt.Errorf("writing descriptor index: %w", err)
	}

	attrs := m.Attributes
	if m.Code != nil {
		var codeBody bytes.Buffer
		if err := m.Code.Write(&codeBody, w); err != nil {
			return fmt.Errorf("encoding Code attribute: %w", err)
		}
		attrs = replaceAttribute(attrs, cpool.RawAttribute{Name: "Code", Data: codeBody.Bytes()})
	}
	return cpool.WriteAttributes(out, w, attrs)
}

// replaceAttribute returns attrs with any existing entry of the given
// attribute's name replaced by it, or with it appended if no such entry
// exists (e.g. a freshly constructed method that never carried a raw
// "Code" placeholder).
func replaceAttribute(attrs []cpool.RawAttribute, replacement cpool.RawAttribute) []cpool.RawAttribute {
	out := make([]cpool.RawAttribute, len(attrs))
	copy(out, attrs)
	for i, a := range out {
		if a.Name == replacement.Name {
			out[i] = replacement
			return out
		}
	}
	return append(out, replacement)
}

func replaceBootstrapMethods(attrs []cpool.RawAttribute, data []byte) []cpool.RawAttribute {
	return replaceAttribute(attrs, cpool.RawAttribute{Name: "BootstrapMethods", Data: data})
}

func encodeBootstrapMethods(methods []BootstrapMethod) []byte {
	var buf bytes.Buffer
	writeU16 := func(v uint16) { _ = binary.Write(&buf, binary.BigEndian, v) }
	writeU16(uint16(len(methods)))
	for _, m := range methods {
		writeU16(m.MethodHandleRef)
		writeU16(uint16(len(m.Arguments)))
		for _, a := range m.Arguments {
			writeU16(a)
		}
	}
	return buf.Bytes()
}
