package stackmap

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Table is a parsed StackMapTable attribute body.
type Table struct {
	Frames []Frame
}

// Parse decodes a StackMapTable attribute body already stripped of its
// attribute_name_index and attribute_length fields.
func Parse(data []byte) (*Table, error) {
	r := &cursor{data: data}

	count, err := r.u16()
	if err != nil {
		return nil, fmt.Errorf("reading number_of_entries: %w", err)
	}
	frames := make([]Frame, 0, count)
	for i := uint16(0); i < count; i++ {
		f, err := parseFrame(r)
		if err != nil {
			return nil, fmt.Errorf("reading frame %d: %w", i, err)
		}
		frames = append(frames, f)
	}
	return &Table{Frames: frames}, nil
}

func parseFrame(r *cursor) (Frame, error) {
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	switch {
	case tag <= 63:
		return Same{OffsetDelta: tag}, nil
	case tag <= 127:
		v, err := parseVerificationType(r)
		if err != nil {
			return nil, err
		}
		return SameLocals1StackItem{OffsetDelta: tag - 64, Stack: v}, nil
	case tag <= 246:
		return nil, &UnrecognizedFrameTypeError{FrameType: tag}
	case tag == 247:
		delta, err := r.u16()
		if err != nil {
			return nil, err
		}
		v, err := parseVerificationType(r)
		if err != nil {
			return nil, err
		}
		return SameLocals1StackItemExtended{OffsetDelta: delta, Stack: v}, nil
	case tag <= 250:
		delta, err := r.u16()
		if err != nil {
			return nil, err
		}
		return Chop{ChopCount: 251 - tag, OffsetDelta: delta}, nil
	case tag == 251:
		delta, err := r.u16()
		if err != nil {
			return nil, err
		}
		return SameExtended{OffsetDelta: delta}, nil
	case tag <= 254:
		delta, err := r.u16()
		if err != nil {
			return nil, err
		}
		n := tag - 251
		locals := make([]VerificationTypeInfo, n)
		for i := range locals {
			v, err := parseVerificationType(r)
			if err != nil {
				return nil, err
			}
			locals[i] = v
		}
		return Append{OffsetDelta: delta, Locals: locals}, nil
	default: // 255
		delta, err := r.u16()
		if err != nil {
			return nil, err
		}
		numLocals, err := r.u16()
		if err != nil {
			return nil, err
		}
		locals := make([]VerificationTypeInfo, numLocals)
		for i := range locals {
			v, err := parseVerificationType(r)
			if err != nil {
				return nil, err
			}
			locals[i] = v
		}
		numStack, err := r.u16()
		if err != nil {
			return nil, err
		}
		stack := make([]VerificationTypeInfo, numStack)
		for i := range stack {
			v, err := parseVerificationType(r)
			if err != nil {
				return nil, err
			}
			stack[i] = v
		}
		return Full{OffsetDelta: delta, Locals: locals, Stack: stack}, nil
	}
}

func parseVerificationType(r *cursor) (VerificationTypeInfo, error) {
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return Top{}, nil
	case 1:
		return Integer{}, nil
	case 2:
		return Float{}, nil
	case 3:
		return Long{}, nil
	case 4:
		return Double{}, nil
	case 5:
		return Null{}, nil
	case 6:
		return UninitializedThis{}, nil
	case 7:
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		return Object{ClassIndex: idx}, nil
	case 8:
		offset, err := r.u16()
		if err != nil {
			return nil, err
		}
		return Uninitialized{Offset: offset}, nil
	default:
		return nil, &UnrecognizedVerificationTagError{Tag: tag}
	}
}

// Write serializes the table as a StackMapTable attribute body.
func (t *Table) Write(out io.Writer) error {
	if err := binary.Write(out, binary.BigEndian, uint16(len(t.Frames))); err != nil {
		return fmt.Errorf("writing number_of_entries: %w", err)
	}
	for i, f := range t.Frames {
		if err := writeFrame(out, f); err != nil {
			return fmt.Errorf("writing frame %d: %w", i, err)
		}
	}
	return nil
}

func writeFrame(out io.Writer, f Frame) error {
	switch v := f.(type) {
	case Same:
		if v.OffsetDelta > 63 {
			return &InvalidFrameError{Reason: "same frame offset_delta exceeds 63"}
		}
		return writeU8(out, v.OffsetDelta)
	case SameLocals1StackItem:
		if v.OffsetDelta > 63 {
			return &InvalidFrameError{Reason: "same_locals_1_stack_item offset_delta exceeds 63"}
		}
		if err := writeU8(out, 64+v.OffsetDelta); err != nil {
			return err
		}
		return writeVerificationType(out, v.Stack)
	case SameLocals1StackItemExtended:
		if err := writeU8(out, 247); err != nil {
			return err
		}
		if err := writeU16(out, v.OffsetDelta); err != nil {
			return err
		}
		return writeVerificationType(out, v.Stack)
	case Chop:
		if v.ChopCount < 1 || v.ChopCount > 3 {
			return &InvalidFrameError{Reason: "chop_frame chop_count must be 1-3"}
		}
		if err := writeU8(out, 251-v.ChopCount); err != nil {
			return err
		}
		return writeU16(out, v.OffsetDelta)
	case SameExtended:
		if err := writeU8(out, 251); err != nil {
			return err
		}
		return writeU16(out, v.OffsetDelta)
	case Append:
		n := len(v.Locals)
		if n < 1 || n > 3 {
			return &InvalidFrameError{Reason: "append_frame must add 1-3 locals"}
		}
		if err := writeU8(out, uint8(251+n)); err != nil {
			return err
		}
		if err := writeU16(out, v.OffsetDelta); err != nil {
			return err
		}
		for _, local := range v.Locals {
			if err := writeVerificationType(out, local); err != nil {
				return err
			}
		}
		return nil
	case Full:
		if err := writeU8(out, 255); err != nil {
			return err
		}
		if err := writeU16(out, v.OffsetDelta); err != nil {
			return err
		}
		if err := writeU16(out, uint16(len(v.Locals))); err != nil {
			return err
		}
		for _, local := range v.Locals {
			if err := writeVerificationType(out, local); err != nil {
				return err
			}
		}
		if err := writeU16(out, uint16(len(v.Stack))); err != nil {
			return err
		}
		for _, item := range v.Stack {
			if err := writeVerificationType(out, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return &InvalidFrameError{Reason: "unknown frame shape"}
	}
}

func writeVerificationType(out io.Writer, v VerificationTypeInfo) error {
	switch t := v.(type) {
	case Top:
		return writeU8(out, 0)
	case Integer:
		return writeU8(out, 1)
	case Float:
		return writeU8(out, 2)
	case Long:
		return writeU8(out, 3)
	case Double:
		return writeU8(out, 4)
	case Null:
		return writeU8(out, 5)
	case UninitializedThis:
		return writeU8(out, 6)
	case Object:
		if err := writeU8(out, 7); err != nil {
			return err
		}
		return writeU16(out, t.ClassIndex)
	case Uninitialized:
		// Tag 8; tag 7 is Object.
		if err := writeU8(out, 8); err != nil {
			return err
		}
		return writeU16(out, t.Offset)
	default:
		return &InvalidFrameError{Reason: "unknown verification_type_info shape"}
	}
}

func writeU8(out io.Writer, v uint8) error {
	_, err := out.Write([]byte{v})
	return err
}

func writeU16(out io.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := out.Write(b[:])
	return err
}

type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) u8() (uint8, error) {
	if c.pos >= len(c.data) {
		return 0, io.ErrUnexpectedEOF
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) u16() (uint16, error) {
	if c.pos+2 > len(c.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, nil
}
