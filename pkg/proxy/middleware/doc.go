// Package middleware provides the HTTP middleware the bundled proxy wraps
// around captured traffic.
//
// # Middleware Chain
//
// The proxy server assembles the chain outermost first:
//
//	handler = Chain(upstream,
//	    RecoveryMiddleware(logger),
//	    RequestIDMiddleware,
//	    LoggingMiddleware(logger),
//	    pipeline.Middleware(),
//	)
//
// Recovery sits outside capture so that a panicking exchange is reported by
// the capture layer as a panic and produces no telemetry record. The request
// ID is echoed on the response, which means it appears in captured response
// headers but never in captured request headers.
//
// # Logging
//
// LoggingMiddleware writes one structured line per request:
//
//	{
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "component": "proxy",
//	  "request_id": "550e8400-e29b-41d4-a716-446655440000",
//	  "method": "GET",
//	  "path": "/users/17",
//	  "status": 200,
//	  "bytes": 84,
//	  "latency_ms": 3
//	}
//
// The request_id attribute comes from the logging package's context handler,
// not from the middleware itself.
//
// # Recovery
//
// RecoveryMiddleware answers a panic with:
//
//	{"error":"internal server error","request_id":"..."}
//
// The stack trace is logged and never sent to the client.
package middleware
