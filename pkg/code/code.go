// Package code implements the class-file Code attribute: the bytecode
// body of a method, its exception table, and its nested attributes
// (LineNumberTable, LocalVariableTable, StackMapTable and friends, carried
// here as opaque bytes since this codec's scope stops at the Code
// attribute's own structure).
package code

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jclass-go/jclass/pkg/bytecode"
	"github.com/jclass-go/jclass/pkg/cpool"
)

// Attribute is a parsed Code attribute body (the attribute_length-prefixed
// info array that follows the "Code" name in a method's attribute table).
type Attribute struct {
	MaxStack   uint16
	MaxLocals  uint16
	Insns      *bytecode.InsnList
	Exceptions []ExceptionHandler
	Attributes []cpool.RawAttribute
}

// ExceptionHandler is one entry of a Code attribute's exception_table.
// Start/End/Handler are label references into the owning Attribute's
// Insns, not raw byte offsets: the instruction list is free to shift
// positions during re-encoding (width canonicalisation, goto_w widening),
// and a handler whose boundaries were still raw pcs would silently point
// at the wrong bytes once that happened. CatchType is nil for a
// finally-style handler that catches everything (catch_type index 0 on
// the wire).
type ExceptionHandler struct {
	Start     uint32
	End       uint32
	Handler   uint32
	CatchType *string
}

// rawExceptionHandler is the on-wire shape of one exception_table entry,
// read before the instruction stream's labels are known.
type rawExceptionHandler struct {
	startPC, endPC, handlerPC, catchIndex uint16
}

// Parse decodes a Code attribute body already stripped of its
// attribute_name_index and attribute_length fields.
func Parse(data []byte, pool *cpool.Pool) (*Attribute, error) {
	r := &byteReader{data: data}

	maxStack, err := r.u16()
	if err != nil {
		return nil, fmt.Errorf("reading max_stack: %w", err)
	}
	maxLocals, err := r.u16()
	if err != nil {
		return nil, fmt.Errorf("reading max_locals: %w", err)
	}
	codeLength, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("reading code_length: %w", err)
	}
	codeBytes, err := r.take(int(codeLength))
	if err != nil {
		return nil, fmt.Errorf("reading code: %w", err)
	}

	numHandlers, err := r.u16()
	if err != nil {
		return nil, fmt.Errorf("reading exception_table_length: %w", err)
	}
	raw := make([]rawExceptionHandler, numHandlers)
	boundaryPCs := make([]uint32, 0, 3*numHandlers)
	for i := uint16(0); i < numHandlers; i++ {
		h, err := readRawExceptionHandler(r)
		if err != nil {
			return nil, fmt.Errorf("reading exception handler %d: %w", i, err)
		}
		raw[i] = h
		boundaryPCs = append(boundaryPCs, uint32(h.startPC), uint32(h.endPC), uint32(h.handlerPC))
	}

	insns, boundaryLabels, err := bytecode.DecodeWithBoundaryLabels(codeBytes, pool, boundaryPCs)
	if err != nil {
		return nil, fmt.Errorf("decoding instructions: %w", err)
	}

	exceptions := make([]ExceptionHandler, numHandlers)
	for i, h := range raw {
		var catchType *string
		if h.catchIndex > 0 {
			name, err := pool.ClassName(h.catchIndex)
			if err != nil {
				return nil, fmt.Errorf("resolving catch_type for exception handler %d: %w", i, err)
			}
			catchType = &name
		}
		exceptions[i] = ExceptionHandler{
			Start:     boundaryLabels[uint32(h.startPC)],
			End:       boundaryLabels[uint32(h.endPC)],
			Handler:   boundaryLabels[uint32(h.handlerPC)],
			CatchType: catchType,
		}
	}

	attrs, err := cpool.ReadAttributes(r, pool)
	if err != nil {
		return nil, fmt.Errorf("reading attributes: %w", err)
	}

	return &Attribute{
		MaxStack:   maxStack,
		MaxLocals:  maxLocals,
		Insns:      insns,
		Exceptions: exceptions,
		Attributes: attrs,
	}, nil
}

func readRawExceptionHandler(r *byteReader) (rawExceptionHandler, error) {
	startPC, err := r.u16()
	if err != nil {
		return rawExceptionHandler{}, err
	}
	endPC, err := r.u16()
	if err != nil {
		return rawExceptionHandler{}, err
	}
	handlerPC, err := r.u16()
	if err != nil {
		return rawExceptionHandler{}, err
	}
	catchIndex, err := r.u16()
	if err != nil {
		return rawExceptionHandler{}, err
	}
	return rawExceptionHandler{startPC: startPC, endPC: endPC, handlerPC: handlerPC, catchIndex: catchIndex}, nil
}

// Write serializes the Code attribute body (everything after
// attribute_length) to out, interning every operand it needs through w.
func (a *Attribute) Write(out io.Writer, w *cpool.Writer) error {
	codeBytes, labelPC, err := bytecode.EncodeWithLabelPositions(a.Insns, w)
	if err != nil {
		return fmt.Errorf("encoding instructions: %w", err)
	}
	if len(codeBytes) > 0xFFFFFFFF {
		return fmt.Errorf("code length %d out of range", len(codeBytes))
	}

	if err := binary.Write(out, binary.BigEndian, a.MaxStack); err != nil {
		return fmt.Errorf("writing max_stack: %w", err)
	}
	if err := binary.Write(out, binary.BigEndian, a.MaxLocals); err != nil {
		return fmt.Errorf("writing max_locals: %w", err)
	}
	if err := binary.Write(out, binary.BigEndian, uint32(len(codeBytes))); err != nil {
		return fmt.Errorf("writing code_length: %w", err)
	}
	if _, err := out.Write(codeBytes); err != nil {
		return fmt.Errorf("writing code: %w", err)
	}

	if err := binary.Write(out, binary.BigEndian, uint16(len(a.Exceptions))); err != nil {
		return fmt.Errorf("writing exception_table_length: %w", err)
	}
	for i, h := range a.Exceptions {
		if err := h.write(out, w, labelPC); err != nil {
			return fmt.Errorf("writing exception handler %d: %w", i, err)
		}
	}

	if err := cpool.WriteAttributes(out, w, a.Attributes); err != nil {
		return fmt.Errorf("writing attributes: %w", err)
	}
	return nil
}

func (h ExceptionHandler) write(out io.Writer, w *cpool.Writer, labelPC map[uint32]uint32) error {
	startPC, ok := labelPC[h.Start]
	if !ok {
		return fmt.Errorf("unresolved start label %d", h.Start)
	}
	endPC, ok := labelPC[h.End]
	if !ok {
		return fmt.Errorf("unresolved end label %d", h.End)
	}
	handlerPC, ok := labelPC[h.Handler]
	if !ok {
		return fmt.Errorf("unresolved handler label %d", h.Handler)
	}
	if err := binary.Write(out, binary.BigEndian, uint16(startPC)); err != nil {
		return err
	}
	if err := binary.Write(out, binary.BigEndian, uint16(endPC)); err != nil {
		return err
	}
	if err := binary.Write(out, binary.BigEndian, uint16(handlerPC)); err != nil {
		return err
	}
	var catchIndex uint16
	if h.CatchType != nil {
		catchIndex = w.ClassUtf8(*h.CatchType)
	}
	return binary.Write(out, binary.BigEndian, catchIndex)
}

// byteReader is a minimal cursor over an in-memory byte slice, used
// instead of bytes.Reader directly so ReadAttributes' io.Reader
// requirement and this package's own u16/u32/take helpers share one type.
type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func (r *byteReader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *byteReader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *byteReader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}
