package keystore

import (
	"context"
	"strings"

	"github.com/Pranav-Karra-3301/tuck/internal/backend"
)

// DefaultService groups placeholder-named entries stored by the redaction
// workflow.
const DefaultService = "tuck"

// The keystore is the fallback backend of last resort: always available,
// never requires authentication.

func (k *Keystore) DisplayName() string { return "Local encrypted keystore" }

func (k *Keystore) IsAvailable() bool { return true }

func (k *Keystore) IsAuthenticated() bool { return true }

func (k *Keystore) Authenticate(ctx context.Context) error { return nil }

// GetSecret resolves a reference against the store. A mapped path of the
// form "service/account" addresses an explicit entry; otherwise the
// placeholder name is looked up under the default service.
func (k *Keystore) GetSecret(ctx context.Context, ref backend.SecretReference) (string, error) {
	service, account := DefaultService, ref.Name
	if ref.Path != "" {
		if s, a, ok := strings.Cut(ref.Path, "/"); ok {
			service, account = s, a
		} else {
			account = ref.Path
		}
	}
	secret, ok := k.Retrieve(service, account)
	if !ok {
		return "", nil
	}
	return secret, nil
}

func (k *Keystore) Lock() {}
