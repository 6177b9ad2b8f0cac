/*
Package security groups the credential and transport concerns of the
sidecar.

# Secrets

Ingest credentials may reference secrets instead of carrying them:

	FIRETAIL_APIKEY='${secret:firetail-api-key}'
	FIRETAIL_SECRETS_DIR=/var/run/secrets/firetail

The secrets package resolves the reference from the directory first, then
from FIRETAIL_SECRET_FIRETAIL_API_KEY. Files must not be group or world
writable and are trimmed of surrounding whitespace.

# TLS

With server.tls enabled the proxy listener serves HTTPS:

	server:
	  tls:
	    enabled: true
	    cert_file: /etc/firetail/tls.crt
	    key_file: /etc/firetail/tls.key
	    min_version: "1.3"

The pair is checked every reload_interval and swapped in when either file
changes. A renewal that fails to parse or is outside its validity window
is logged and the previous certificate keeps serving.
*/
package security
