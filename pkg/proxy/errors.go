package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// UpstreamError describes a failed round trip to the proxied application.
type UpstreamError struct {
	Target string
	Method string
	Path   string
	Cause  error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s %s %s: %v", e.Target, e.Method, e.Path, e.Cause)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// StatusCode maps the failure to the status returned to the client:
// 504 for timeouts, 502 for everything else.
func (e *UpstreamError) StatusCode() int {
	if errors.Is(e.Cause, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	var netErr net.Error
	if errors.As(e.Cause, &netErr) && netErr.Timeout() {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// ErrorResponse is the JSON body written for upstream failures.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// WriteError writes err as a JSON error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: status})
}
