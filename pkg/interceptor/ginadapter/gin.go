// Package ginadapter records exchanges served by a gin engine.
//
//	engine := gin.New()
//	engine.Use(ginadapter.Middleware(pipeline.Interceptor()))
//
// gin buffers the status until the first body write, so the adapter reads
// the status from gin's writer and snapshots the headers when the response
// head is committed.
package ginadapter

import (
	"bufio"
	"bytes"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FireTail-io/firetail-go-lib/pkg/interceptor"
)

// Middleware returns a gin handler that records every exchange through
// icpt. Put it first in the chain so the body it restores is the one the
// route handlers bind.
func Middleware(icpt *interceptor.Interceptor) gin.HandlerFunc {
	return func(c *gin.Context) {
		capture := icpt.Begin(c.Request)
		if capture == nil {
			c.Next()
			return
		}
		defer capture.Abort()

		w := &teeWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()
		c.Writer = w.ResponseWriter

		if w.hijacked {
			capture.Discard()
			return
		}
		capture.Finish(w.Status(), w.committedHeader(), w)
	}
}

// teeWriter copies the response body while gin writes it.
type teeWriter struct {
	gin.ResponseWriter

	body     bytes.Buffer
	header   http.Header
	hijacked bool
}

func (w *teeWriter) snapshot() {
	if w.header == nil {
		w.header = w.ResponseWriter.Header().Clone()
	}
}

func (w *teeWriter) Write(p []byte) (int, error) {
	w.snapshot()
	n, err := w.ResponseWriter.Write(p)
	w.body.Write(p[:n])
	return n, err
}

func (w *teeWriter) WriteString(s string) (int, error) {
	w.snapshot()
	n, err := w.ResponseWriter.WriteString(s)
	w.body.WriteString(s[:n])
	return n, err
}

func (w *teeWriter) WriteHeaderNow() {
	w.snapshot()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *teeWriter) Flush() {
	w.snapshot()
	w.ResponseWriter.Flush()
}

func (w *teeWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, rw, err := w.ResponseWriter.Hijack()
	if err == nil {
		w.hijacked = true
	}
	return conn, rw, err
}

// Bytes returns the captured body.
func (w *teeWriter) Bytes() []byte {
	return w.body.Bytes()
}

// committedHeader returns the headers as sent. When nothing was written
// yet gin commits the current headers after the chain returns.
func (w *teeWriter) committedHeader() http.Header {
	if w.header == nil {
		return w.ResponseWriter.Header().Clone()
	}
	return w.header
}
