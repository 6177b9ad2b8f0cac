// Package secrets resolves ${secret:name} references in configuration
// values, so the ingestion API key never has to sit in a config file.
//
// Providers are tried in order. The environment provider maps
// "firetail-api-key" to FIRETAIL_SECRET_FIRETAIL_API_KEY; the file
// provider reads "<dir>/firetail-api-key", the layout produced by
// Kubernetes and Docker secret mounts.
package secrets

import "context"

// SecretProvider retrieves secrets from a backend.
type SecretProvider interface {
	// GetSecret retrieves a secret by name.
	// Returns an error if the secret is not found or cannot be retrieved.
	GetSecret(ctx context.Context, name string) (string, error)

	// Provider returns the provider name (env, file).
	Provider() string

	// Supports indicates if this provider may hold the given secret.
	Supports(name string) bool
}
