package stackmap

import "fmt"

// UnrecognizedFrameTypeError reports a frame_type byte in the reserved
// 128-246 range, which JVMS leaves undefined for future use.
type UnrecognizedFrameTypeError struct{ FrameType uint8 }

func (e *UnrecognizedFrameTypeError) Error() string {
	return fmt.Sprintf("unrecognized stack map frame type %d", e.FrameType)
}

// UnrecognizedVerificationTagError reports a verification_type_info tag
// outside 0-8.
type UnrecognizedVerificationTagError struct{ Tag uint8 }

func (e *UnrecognizedVerificationTagError) Error() string {
	return fmt.Sprintf("unrecognized verification_type_info tag %d", e.Tag)
}

// InvalidFrameError reports a Frame value whose fields can't be encoded,
// such as a Chop/Append with ChopCount/len(Locals) outside 1-3.
type InvalidFrameError struct{ Reason string }

func (e *InvalidFrameError) Error() string {
	return fmt.Sprintf("invalid stack map frame: %s", e.Reason)
}
