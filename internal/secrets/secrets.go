// Package secrets is the single resolution point for external credentials.
// Callers name the secret they need; where it actually lives is a deployment
// concern behind the Provider interface.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrNotFound = errors.New("secret not found")

// Provider resolves a named credential.
type Provider interface {
	Get(name string) (string, error)
}

// EnvProvider reads secrets from the process environment. Secret names use
// vault-style dashes ("WIX-API-KEY"); they map to underscore env vars.
type EnvProvider struct {
	// Prefix, when set, is prepended to every looked-up variable name.
	Prefix string
}

func (p *EnvProvider) Get(name string) (string, error) {
	key := p.Prefix + strings.ReplaceAll(strings.ToUpper(name), "-", "_")
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return value, nil
}

// Static is a fixed map of secrets, for tests and local runs.
type Static map[string]string

func (s Static) Get(name string) (string, error) {
	value, ok := s[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return value, nil
}
