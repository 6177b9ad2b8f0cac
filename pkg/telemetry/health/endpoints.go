package health

import (
	"encoding/json"
	"net/http"
	"runtime"

	"github.com/FireTail-io/firetail-go-lib/pkg/config"
)

// VersionInfo contains build and version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// LivenessHandler returns the liveness probe handler.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return probe(func(r *http.Request) (int, any) {
		return http.StatusOK, c.CheckLiveness(r.Context())
	})
}

// ReadinessHandler returns the readiness probe handler. It answers 503
// when any registered check fails.
//
// Example response (degraded):
//
//	{
//	    "status": "degraded",
//	    "checks": {
//	        "delivery_queue": {"status": "unhealthy", "message": "delivery queue saturated: 62/64"},
//	        "ledger": {"status": "ok", "duration_ms": 0.4}
//	    },
//	    "timestamp": "2026-01-20T10:30:00Z"
//	}
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return probe(func(r *http.Request) (int, any) {
		status := c.CheckReadiness(r.Context())
		if !status.Ready() {
			return http.StatusServiceUnavailable, status
		}
		return http.StatusOK, status
	})
}

// VersionHandler returns a handler serving build information.
func VersionHandler(info VersionInfo) http.HandlerFunc {
	if info.GoVersion == "" {
		info.GoVersion = runtime.Version()
	}
	return probe(func(*http.Request) (int, any) {
		return http.StatusOK, info
	})
}

// Register mounts the probe handlers on mux at the configured paths.
func (c *Checker) Register(mux *http.ServeMux, cfg config.HealthConfig, info VersionInfo) {
	mux.Handle(cfg.LivenessPath, c.LivenessHandler())
	mux.Handle(cfg.ReadinessPath, c.ReadinessHandler())
	mux.Handle(cfg.VersionPath, VersionHandler(info))
}

func probe(fn func(*http.Request) (int, any)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		code, body := fn(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(body)
		}
	}
}
