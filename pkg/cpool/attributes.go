package cpool

import (
	"encoding/binary"
	"fmt"
	"io"
)

// RawAttribute is an unparsed class-file attribute: name plus opaque body
// bytes. Both the outer class file and the Code attribute nest an
// attribute table in this shape; only Code (and, at class level,
// BootstrapMethods) are decoded further by their owner, everything else
// is round-tripped as raw bytes.
type RawAttribute struct {
	Name string
	Data []byte
}

// ReadAttributes reads an attribute_count-prefixed attribute table.
func ReadAttributes(r io.Reader, pool *Pool) ([]RawAttribute, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("reading attribute count: %w", err)
	}
	attrs := make([]RawAttribute, count)
	for i := uint16(0); i < count; i++ {
		var nameIndex uint16
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return nil, fmt.Errorf("reading attribute %d name index: %w", i, err)
		}
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("reading attribute %d length: %w", i, err)
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("reading attribute %d data: %w", i, err)
		}
		name, err := pool.Utf8(nameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving attribute %d name: %w", i, err)
		}
		attrs[i] = RawAttribute{Name: name, Data: data}
	}
	return attrs, nil
}

// WriteAttributes writes an attribute_count-prefixed attribute table,
// interning each attribute's name through w.
func WriteAttributes(out io.Writer, w *Writer, attrs []RawAttribute) error {
	if err := binary.Write(out, binary.BigEndian, uint16(len(attrs))); err != nil {
		return fmt.Errorf("writing attribute count: %w", err)
	}
	for i, a := range attrs {
		nameIdx := w.Utf8(a.Name)
		if err := binary.Write(out, binary.BigEndian, nameIdx); err != nil {
			return fmt.Errorf("writing attribute %d name index: %w", i, err)
		}
		if err := binary.Write(out, binary.BigEndian, uint32(len(a.Data))); err != nil {
			return fmt.Errorf("writing attribute %d length: %w", i, err)
		}
		if _, err := out.Write(a.Data); err != nil {
			return fmt.Errorf("writing attribute %d data: %w", i, err)
		}
	}
	return nil
}

// Find returns the first attribute with the given name, if any.
func Find(attrs []RawAttribute, name string) (RawAttribute, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a, true
		}
	}
	return RawAttribute{}, false
}
