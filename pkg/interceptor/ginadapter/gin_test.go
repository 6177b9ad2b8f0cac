package ginadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/FireTail-io/firetail-go-lib/pkg/batch"
	"github.com/FireTail-io/firetail-go-lib/pkg/interceptor"
	"github.com/FireTail-io/firetail-go-lib/pkg/record"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(*batch.Batch) error { return nil }

func setupRouter(opts ...interceptor.Option) (*gin.Engine, *batch.Buffer) {
	gin.SetMode(gin.TestMode)
	buf := batch.NewBuffer(batch.DefaultConfig())
	icpt := interceptor.New(buf, nopDispatcher{}, opts...)

	router := gin.New()
	router.Use(Middleware(icpt))
	return router, buf
}

func buffered(t *testing.T, buf *batch.Buffer) []record.TelemetryRecord {
	t.Helper()
	b := buf.Drain(batch.TriggerManual)
	if b == nil {
		return nil
	}
	recs := make([]record.TelemetryRecord, len(b.Records))
	for i, line := range b.Records {
		if err := json.Unmarshal(line, &recs[i]); err != nil {
			t.Fatalf("decode record: %v", err)
		}
	}
	return recs
}

func TestMiddleware_RecordsExchange(t *testing.T) {
	router, buf := setupRouter()

	var bound struct {
		Name string `json:"name"`
	}
	router.POST("/pets/:id", func(c *gin.Context) {
		if err := c.ShouldBindJSON(&bound); err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		c.Header("X-Pet", "yes")
		c.JSON(http.StatusCreated, gin.H{"name": bound.Name})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/pets/12", strings.NewReader(`{"name":"rex"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	if bound.Name != "rex" {
		t.Errorf("handler bound %q", bound.Name)
	}

	recs := buffered(t, buf)
	if len(recs) != 1 {
		t.Fatalf("got %d records", len(recs))
	}
	rec := recs[0]
	if rec.Request.Resource != "/pets/petId" {
		t.Errorf("Resource = %q", rec.Request.Resource)
	}
	if rec.Request.Body != `{"name":"rex"}` {
		t.Errorf("request Body = %q", rec.Request.Body)
	}
	if rec.Response.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d", rec.Response.StatusCode)
	}
	if rec.Response.Body != w.Body.String() {
		t.Errorf("response Body = %q, client got %q", rec.Response.Body, w.Body.String())
	}
	if got := rec.Response.Headers["X-Pet"]; len(got) != 1 || got[0] != "yes" {
		t.Errorf("X-Pet = %v", got)
	}
}

func TestMiddleware_StatusWithoutBody(t *testing.T) {
	router, buf := setupRouter()
	router.DELETE("/items/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/items/3", nil))

	recs := buffered(t, buf)
	if len(recs) != 1 || recs[0].Response.StatusCode != http.StatusNoContent {
		t.Fatalf("records = %+v", recs)
	}
	if recs[0].Response.Body != "" {
		t.Errorf("Body = %q", recs[0].Response.Body)
	}
}

func TestMiddleware_StringResponse(t *testing.T) {
	router, buf := setupRouter()
	router.GET("/hello", func(c *gin.Context) {
		c.String(http.StatusOK, "hi %s", "there")
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/hello", nil))

	recs := buffered(t, buf)
	if len(recs) != 1 || recs[0].Response.Body != "hi there" {
		t.Fatalf("records = %+v", recs)
	}
}

func TestMiddleware_Excluded(t *testing.T) {
	router, buf := setupRouter(interceptor.WithExcludePaths([]string{"/health"}))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if buf.Len() != 0 {
		t.Error("excluded path was recorded")
	}
}

func TestMiddleware_PanicPropagates(t *testing.T) {
	router, buf := setupRouter()
	router.GET("/boom", func(*gin.Context) { panic("boom") })

	func() {
		defer func() {
			if got := recover(); got != "boom" {
				t.Errorf("recovered %v", got)
			}
		}()
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	}()

	if buf.Len() != 0 {
		t.Error("panicking exchange was recorded")
	}
}

func TestMiddleware_BodyStillReadable(t *testing.T) {
	router, _ := setupRouter()
	var got string
	router.PUT("/raw", func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		got = string(b)
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/raw", strings.NewReader("abc")))

	if got != "abc" {
		t.Errorf("handler read %q", got)
	}
}
