package record

import (
	"errors"
	"fmt"
)

// ErrBodyUnavailable is the cause recorded when a body could not be read at all.
var ErrBodyUnavailable = errors.New("body unavailable")

// CaptureError reports that part of an exchange could not be captured. The
// exchange itself is unaffected; only its telemetry record is skipped.
type CaptureError struct {
	Part  string // "request_body", "response_body"
	Cause error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture error [part=%s]: %v", e.Part, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *CaptureError) Unwrap() error {
	return e.Cause
}

// NewCaptureError creates a new CaptureError.
func NewCaptureError(part string, cause error) *CaptureError {
	return &CaptureError{
		Part:  part,
		Cause: cause,
	}
}

// DecodeError reports bytes that are not valid UTF-8 text. It is always
// delivered wrapped in a CaptureError.
type DecodeError struct {
	Offset int // index of the first invalid byte
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid UTF-8 at byte %d", e.Offset)
}

// NewDecodeError returns a CaptureError for part wrapping a DecodeError.
func NewDecodeError(part string, offset int) *CaptureError {
	return NewCaptureError(part, &DecodeError{Offset: offset})
}

// ClockError reports that timing could not be measured. The record is still
// built with an execution time of zero.
type ClockError struct {
	Start int64 // unix millis, 0 when unavailable
	End   int64
}

// Error implements the error interface.
func (e *ClockError) Error() string {
	if e.Start == 0 || e.End == 0 {
		return "clock error: timestamps unavailable"
	}
	return fmt.Sprintf("clock error: end %d precedes start %d", e.End, e.Start)
}

// SerializationError reports a record that could not be encoded.
type SerializationError struct {
	Cause error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *SerializationError) Unwrap() error {
	return e.Cause
}

// ErrorKind returns a short label for err suitable for metrics and logs.
func ErrorKind(err error) string {
	var (
		decodeErr *DecodeError
		captErr   *CaptureError
		clockErr  *ClockError
		serErr    *SerializationError
	)
	switch {
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.As(err, &captErr):
		return "capture"
	case errors.As(err, &clockErr):
		return "clock"
	case errors.As(err, &serErr):
		return "serialization"
	default:
		return "unknown"
	}
}
