// Package backend defines the credential-source contract shared by the
// local keystore and the external password-manager CLI adapters.
package backend

import (
	"context"
	"fmt"
)

// SecretReference locates a secret from a backend's point of view.
type SecretReference struct {
	// Name is the placeholder / mapping key.
	Name string

	// Path is the backend-specific locator from the mapping table, e.g.
	// an op:// URI or a Bitwarden item id. Empty means the backend's
	// default addressing by Name.
	Path string
}

// Backend is a credential source. Implementations must never log or embed
// secret values in errors, and every external call must respect ctx.
type Backend interface {
	// DisplayName is the human-readable backend name.
	DisplayName() string

	// IsAvailable reports whether the backend's CLI or service is
	// reachable on this machine.
	IsAvailable() bool

	// IsAuthenticated reports whether the backend can serve secrets
	// without further interaction.
	IsAuthenticated() bool

	// Authenticate runs the backend's authentication flow, which may
	// prompt the user outside this process.
	Authenticate(ctx context.Context) error

	// GetSecret resolves ref to a concrete value. A missing secret is
	// ("", nil); errors are reserved for backend failures.
	GetSecret(ctx context.Context, ref SecretReference) (string, error)

	// Lock ends the backend session. Best effort; errors are swallowed
	// by callers.
	Lock()
}

// NotAvailableError indicates the backend's CLI or service is missing or
// unresponsive.
type NotAvailableError struct {
	Backend string
	Reason  string
}

func (e *NotAvailableError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("backend %s is not available", e.Backend)
	}
	return fmt.Sprintf("backend %s is not available: %s", e.Backend, e.Reason)
}

// AuthRequiredError indicates the backend needs authentication and the
// caller opted out of interactive flows.
type AuthRequiredError struct {
	Backend string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("backend %s requires authentication", e.Backend)
}
