package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/FireTail-io/firetail-go-lib/pkg/telemetry/logging"
)

// RequestIDHeader carries the request ID on responses.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds client-supplied IDs.
const maxRequestIDLength = 128

// RequestIDMiddleware assigns a request ID to every request and stores it on
// the context, where the logging handler picks it up. A client-supplied
// X-Request-ID is reused when it is short enough.
//
// The ID is echoed on the response but never added to the forwarded request,
// so captured request headers stay exactly as the client sent them.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), requestID)))
	})
}

// GetRequestID returns the ID assigned by RequestIDMiddleware, or "".
func GetRequestID(ctx context.Context) string {
	return logging.GetRequestID(ctx)
}
