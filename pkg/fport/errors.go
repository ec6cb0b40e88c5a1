package fport

import (
	"errors"
	"fmt"
)

var (
	// ErrFrameTooShort indicates the frame can't hold the expected fields.
	ErrFrameTooShort = errors.New("frame too short")
	// ErrInvalidFrameType indicates the frame is not of the expected type.
	ErrInvalidFrameType = errors.New("invalid frame type")
	// ErrBadChecksum indicates checksum verification failed.
	ErrBadChecksum = errors.New("bad checksum")
)

// StreamError wraps the failure of the underlying byte source.
type StreamError struct {
	Err error
}

// Error implements error.
func (e *StreamError) Error() string {
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the cause.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// FrameError reports a frame rejected by the receiver.
type FrameError struct {
	Frame Frame
	Err   error
}

// Error implements error.
func (e *FrameError) Error() string {
	return fmt.Sprintf("frame % x: %v", []byte(e.Frame), e.Err)
}

// Unwrap returns the cause.
func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsMalformed tells if err is caused by a malformed frame.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrFrameTooShort) || errors.Is(err, ErrInvalidFrameType)
}
