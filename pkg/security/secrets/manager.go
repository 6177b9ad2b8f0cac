package secrets

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// secretRefRegex matches ${secret:name} references.
var secretRefRegex = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Manager tries providers in order until one returns the secret.
type Manager struct {
	providers []SecretProvider
}

// NewManager creates a manager over providers, highest priority first.
func NewManager(providers ...SecretProvider) *Manager {
	return &Manager{providers: providers}
}

// Default returns the manager used for configuration: the secrets
// directory first when one is given, then the environment.
func Default(secretsDir string) (*Manager, error) {
	var providers []SecretProvider
	if secretsDir != "" {
		fp, err := NewFileProvider(secretsDir)
		if err != nil {
			return nil, err
		}
		providers = append(providers, fp)
	}
	providers = append(providers, NewEnvProvider(DefaultEnvPrefix))
	return NewManager(providers...), nil
}

// GetSecret retrieves a secret from the first provider that supports it.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	var lastErr error
	for _, provider := range m.providers {
		if !provider.Supports(name) {
			continue
		}
		value, err := provider.GetSecret(ctx, name)
		if err != nil {
			lastErr = err
			continue
		}
		return value, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to get secret %q: %w", redactSecretName(name), lastErr)
	}
	return "", fmt.Errorf("secret not found: %q (no provider supports this secret)", redactSecretName(name))
}

// HasReferences reports whether input contains a ${secret:name} reference.
func HasReferences(input string) bool {
	return secretRefRegex.MatchString(input)
}

// ResolveReferences replaces every ${secret:name} in input with its value.
// Unresolvable references are left in place and reported together.
func (m *Manager) ResolveReferences(ctx context.Context, input string) (string, error) {
	var errs []string

	output := secretRefRegex.ReplaceAllStringFunc(input, func(match string) string {
		name := secretRefRegex.FindStringSubmatch(match)[1]
		value, err := m.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, err.Error())
			return match
		}
		return value
	})

	if len(errs) > 0 {
		return output, fmt.Errorf("failed to resolve secret references: %s", strings.Join(errs, "; "))
	}
	return output, nil
}

// redactSecretName keeps secret names out of error messages that may be
// logged.
func redactSecretName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
