package record

import (
	"net/http"
	"time"
)

// BodySource exposes captured body bytes. Response capture writers implement
// it so the builder does not depend on how the bytes were collected.
type BodySource interface {
	Bytes() []byte
}

// BytesBody adapts a byte slice to BodySource.
type BytesBody []byte

// Bytes returns the slice itself.
func (b BytesBody) Bytes() []byte { return b }

// Exchange is a snapshot of one completed request/response pair, taken by
// the interceptor and handed to the Builder.
type Exchange struct {
	// Request is the request as seen by the handler. Only its line, peer
	// and connection metadata are read; headers come from RequestHeader.
	Request *http.Request

	// RequestHeader is the header set before the handler ran. When nil,
	// Request.Header is used.
	RequestHeader http.Header

	// RequestBody holds the exact bytes the client sent.
	RequestBody []byte

	StatusCode     int
	ResponseHeader http.Header
	ResponseBody   BodySource

	Start time.Time
	End   time.Time
}
