package interceptor

import (
	"bytes"
	"io"
	"net/http"

	"github.com/FireTail-io/firetail-go-lib/pkg/record"
)

// errReader replays a read error after the bytes that were read before it.
type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

// RestoreBody reads r.Body in full and replaces it with an in-memory copy,
// so the handler still reads exactly what the client sent. GetBody is set
// so the request can be replayed.
//
// On a read error the handler gets the bytes read so far followed by the
// same error, and a *record.CaptureError is returned.
func RestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	_ = r.Body.Close()

	if err != nil {
		r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), errReader{err}))
		return nil, record.NewCaptureError("request_body", err)
	}

	if len(body) == 0 {
		r.Body = http.NoBody
		r.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return body, nil
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return body, nil
}
