// Package proxy forwards captured traffic to the application being
// monitored.
//
// The bundled firetail binary runs as a sidecar in front of an HTTP service.
// Each inbound exchange passes through the capture middleware and then
// through the reverse proxy built by NewUpstream:
//
//	rp, err := proxy.NewUpstream(proxy.Config{Target: "http://127.0.0.1:3000"}, logger)
//	handler := pipeline.Wrap(rp)
//
// Upstream failures are answered with a JSON body and 502, or 504 when the
// round trip timed out. Those responses are captured like any other.
package proxy
