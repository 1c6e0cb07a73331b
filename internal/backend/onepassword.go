package backend

import (
	"context"
	"strings"
	"time"
)

// OnePassword adapts the 1Password `op` CLI. The CLI is an opaque
// collaborator; this adapter only shells out with strict timeouts.
type OnePassword struct {
	run runner
}

// NewOnePassword builds the adapter. timeout <= 0 uses the default.
func NewOnePassword(timeout time.Duration) *OnePassword {
	return &OnePassword{run: runner{command: "op", timeout: timeout}}
}

func (o *OnePassword) DisplayName() string { return "1Password" }

func (o *OnePassword) IsAvailable() bool { return o.run.lookPath() }

func (o *OnePassword) IsAuthenticated() bool {
	_, err := o.run.run(context.Background(), "", "whoami")
	return err == nil
}

// Authenticate triggers the interactive signin flow. The desktop app or
// browser may prompt outside this process.
func (o *OnePassword) Authenticate(ctx context.Context) error {
	auth := runner{command: o.run.command, timeout: interactiveTimeout}
	_, err := auth.run(ctx, "", "signin")
	return err
}

// GetSecret reads a secret reference URI (op://vault/item/field). With no
// mapped path it falls back to an item lookup by placeholder name.
func (o *OnePassword) GetSecret(ctx context.Context, ref SecretReference) (string, error) {
	if ref.Path != "" {
		return o.run.run(ctx, "", "read", ref.Path)
	}
	out, err := o.run.run(ctx, "", "item", "get", ref.Name, "--fields", "label=password", "--reveal")
	if err != nil {
		if strings.Contains(err.Error(), "isn't an item") || strings.Contains(err.Error(), "not found") {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

func (o *OnePassword) Lock() {
	_, _ = o.run.run(context.Background(), "", "signout")
}
