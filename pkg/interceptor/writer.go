package interceptor

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"net/http"
)

// captureWriter passes every call through to the wrapped ResponseWriter
// while keeping a copy of the status, headers and body. The client sees
// exactly what the handler wrote.
type captureWriter struct {
	http.ResponseWriter

	status      int
	header      http.Header
	body        bytes.Buffer
	wroteHeader bool
	hijacked    bool
}

func newCaptureWriter(w http.ResponseWriter) *captureWriter {
	return &captureWriter{ResponseWriter: w}
}

// snapshot records the final status and the headers as they were when the
// response head was committed.
func (w *captureWriter) snapshot(code int) {
	w.status = code
	w.header = w.ResponseWriter.Header().Clone()
	w.wroteHeader = true
}

// WriteHeader captures the first final status. Informational codes other
// than 101 are forwarded without being recorded.
func (w *captureWriter) WriteHeader(code int) {
	if !w.wroteHeader && (code < 100 || code > 199 || code == http.StatusSwitchingProtocols) {
		w.snapshot(code)
	}
	w.ResponseWriter.WriteHeader(code)
}

// Write tees p into the capture buffer.
func (w *captureWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.snapshot(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(p)
	w.body.Write(p[:n])
	return n, err
}

// Flush implements http.Flusher when the wrapped writer does.
func (w *captureWriter) Flush() {
	if !w.wroteHeader {
		w.snapshot(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the connection to the handler. Nothing written to a
// hijacked connection is captured.
func (w *captureWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("interceptor: underlying ResponseWriter does not support hijacking")
	}
	conn, rw, err := h.Hijack()
	if err == nil {
		w.hijacked = true
	}
	return conn, rw, err
}

// Unwrap lets http.ResponseController reach the wrapped writer.
func (w *captureWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Bytes returns the captured response body.
func (w *captureWriter) Bytes() []byte {
	return w.body.Bytes()
}

// Status returns the captured status, 200 when the handler never wrote.
func (w *captureWriter) Status() int {
	if !w.wroteHeader {
		return http.StatusOK
	}
	return w.status
}

// CapturedHeader returns the headers to record. When the handler never committed
// the response they are read at call time.
func (w *captureWriter) CapturedHeader() http.Header {
	if !w.wroteHeader {
		return w.ResponseWriter.Header().Clone()
	}
	return w.header
}
