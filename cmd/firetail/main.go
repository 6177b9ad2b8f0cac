// firetail runs the FireTail capture pipeline as a reverse-proxy sidecar.
//
// Every exchange between clients and the upstream application is captured,
// normalized into a telemetry record and shipped in batches to the FireTail
// ingestion endpoint. The application itself needs no changes.
//
// Usage:
//
//	# Proxy 127.0.0.1:8080 to the app on port 3000
//	FIRETAIL_URL=https://api.logging.eu-west-1.prod.firetail.app/logs/bulk \
//	FIRETAIL_APIKEY=... \
//	firetail run --upstream http://127.0.0.1:3000
//
//	# Check a configuration file
//	firetail config validate --config firetail.yaml
//
//	# Inspect recent deliveries
//	firetail ledger list --since 1h --status failed
//
//	# Show version information
//	firetail version
package main

func main() {
	Execute()
}
