package delivery

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrDispatcherClosed is returned when a batch is handed to a closed
// dispatcher.
var ErrDispatcherClosed = errors.New("delivery: dispatcher closed")

// ErrQueueFull is reported when the dispatch queue has no room for a batch.
var ErrQueueFull = errors.New("delivery: queue full")

// DeliveryError describes a failed delivery. Transient errors were
// retried; the error attached to a Failed outcome is the last one seen.
type DeliveryError struct {
	BatchID    string
	StatusCode int // 0 when no response was received
	Attempts   int
	Transient  bool
	Cause      error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	msg := fmt.Sprintf("delivery of batch %s failed (%s) after %d attempt(s)", e.BatchID, kind, e.Attempts)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error.
func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// NewDeliveryError creates a DeliveryError, classifying it from the status
// code and transport error.
func NewDeliveryError(batchID string, statusCode, attempts int, cause error) *DeliveryError {
	return &DeliveryError{
		BatchID:    batchID,
		StatusCode: statusCode,
		Attempts:   attempts,
		Transient:  (cause != nil && statusCode == 0) || IsRetryableStatus(statusCode),
		Cause:      cause,
	}
}

// IsTransient reports whether err is a transient DeliveryError.
func IsTransient(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Transient
}

// IsRetryableStatus reports whether an HTTP status should be retried:
// 429 and every 5xx.
func IsRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}
