package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Pranav-Karra-3301/tuck/internal/backend"
	"github.com/Pranav-Karra-3301/tuck/internal/cache"
)

// fakeBackend is a scripted backend recording every fetch.
type fakeBackend struct {
	name          string
	available     bool
	authenticated bool
	authErr       error
	secrets       map[string]string // keyed by ref.Name, or by ref.Path when set
	fetchErr      error
	errOn         string // name whose fetch fails with fetchErr
	getCalls      int
	authCalls     int
	locked        bool
}

func (f *fakeBackend) DisplayName() string   { return f.name }
func (f *fakeBackend) IsAvailable() bool     { return f.available }
func (f *fakeBackend) IsAuthenticated() bool { return f.authenticated }
func (f *fakeBackend) Lock()                 { f.locked = true }

func (f *fakeBackend) Authenticate(ctx context.Context) error {
	f.authCalls++
	if f.authErr != nil {
		return f.authErr
	}
	f.authenticated = true
	return nil
}

func (f *fakeBackend) GetSecret(ctx context.Context, ref backend.SecretReference) (string, error) {
	f.getCalls++
	if f.fetchErr != nil && (f.errOn == "" || f.errOn == ref.Name) {
		return "", f.fetchErr
	}
	key := ref.Name
	if ref.Path != "" {
		key = ref.Path
	}
	return f.secrets[key], nil
}

func newTestResolver(t *testing.T, primary string, backends map[string]backend.Backend) *Resolver {
	t.Helper()
	mapping, err := backend.LoadMappingTable(t.TempDir() + "/mappings.json")
	if err != nil {
		t.Fatal(err)
	}
	return New(backends, mapping, cache.New(), primary, zerolog.Nop())
}

func TestResolveSecret_CacheHit(t *testing.T) {
	fake := &fakeBackend{name: "keystore", available: true, authenticated: true,
		secrets: map[string]string{"DB_PASSWORD": "sup3rsecret"}}
	r := newTestResolver(t, BackendKeystore, map[string]backend.Backend{BackendKeystore: fake})

	first, err := r.ResolveSecret(context.Background(), "DB_PASSWORD", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first == nil || first.Value != "sup3rsecret" || first.Cached {
		t.Fatalf("first resolution = %+v", first)
	}

	second, err := r.ResolveSecret(context.Background(), "DB_PASSWORD", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if second == nil || !second.Cached || second.Value != "sup3rsecret" {
		t.Fatalf("second resolution = %+v", second)
	}
	if fake.getCalls != 1 {
		t.Errorf("backend fetched %d times, want 1", fake.getCalls)
	}

	// Invalidation forces the next resolution back to the backend.
	r.Cache().Invalidate("DB_PASSWORD")
	third, err := r.ResolveSecret(context.Background(), "DB_PASSWORD", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if third.Cached {
		t.Error("resolution after invalidation reported cached")
	}
	if fake.getCalls != 2 {
		t.Errorf("backend fetched %d times after invalidation, want 2", fake.getCalls)
	}
}

func TestResolveSecret_NoCache(t *testing.T) {
	fake := &fakeBackend{name: "keystore", available: true, authenticated: true,
		secrets: map[string]string{"TOKEN": "v"}}
	r := newTestResolver(t, BackendKeystore, map[string]backend.Backend{BackendKeystore: fake})

	for i := 0; i < 3; i++ {
		if _, err := r.ResolveSecret(context.Background(), "TOKEN", Options{NoCache: true}); err != nil {
			t.Fatal(err)
		}
	}
	if fake.getCalls != 3 {
		t.Errorf("backend fetched %d times with NoCache, want 3", fake.getCalls)
	}
	if r.Cache().Len() != 0 {
		t.Errorf("NoCache resolution populated the cache: %d entries", r.Cache().Len())
	}
}

func TestResolveSecret_Unavailable(t *testing.T) {
	fake := &fakeBackend{name: "1Password CLI", available: false}
	r := newTestResolver(t, BackendOnePassword, map[string]backend.Backend{BackendOnePassword: fake})

	_, err := r.ResolveSecret(context.Background(), "TOKEN", Options{})
	var na *backend.NotAvailableError
	if !errors.As(err, &na) {
		t.Fatalf("err = %v, want NotAvailableError", err)
	}
}

func TestResolveSecret_NonInteractiveAuth(t *testing.T) {
	fake := &fakeBackend{name: "Bitwarden CLI", available: true, authenticated: false,
		secrets: map[string]string{"TOKEN": "v"}}
	r := newTestResolver(t, BackendBitwarden, map[string]backend.Backend{BackendBitwarden: fake})

	_, err := r.ResolveSecret(context.Background(), "TOKEN", Options{NonInteractive: true})
	var ar *backend.AuthRequiredError
	if !errors.As(err, &ar) {
		t.Fatalf("err = %v, want AuthRequiredError", err)
	}
	if fake.authCalls != 0 {
		t.Error("non-interactive resolution attempted authentication")
	}

	// Interactive mode authenticates once, then fetches.
	resolved, err := r.ResolveSecret(context.Background(), "TOKEN", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if resolved == nil || resolved.Value != "v" {
		t.Fatalf("resolved = %+v", resolved)
	}
	if fake.authCalls != 1 {
		t.Errorf("authenticated %d times, want 1", fake.authCalls)
	}
}

func TestResolveSecret_AuthFailure(t *testing.T) {
	fake := &fakeBackend{name: "Bitwarden CLI", available: true,
		authErr: errors.New("bad master password")}
	r := newTestResolver(t, BackendBitwarden, map[string]backend.Backend{BackendBitwarden: fake})

	if _, err := r.ResolveSecret(context.Background(), "TOKEN", Options{}); err == nil {
		t.Fatal("auth failure did not surface an error")
	}
	if fake.getCalls != 0 {
		t.Error("fetch attempted after failed authentication")
	}
}

func TestResolveSecret_MappingPathAndDisabled(t *testing.T) {
	fake := &fakeBackend{name: "1Password CLI", available: true, authenticated: true,
		secrets: map[string]string{"op://Personal/db/password": "mapped-value"}}
	r := newTestResolver(t, BackendOnePassword, map[string]backend.Backend{BackendOnePassword: fake})
	r.mapping.SetBackendPath("DB_PASSWORD", BackendOnePassword, "op://Personal/db/password")
	r.mapping.SetBackendPath("LEGACY", BackendOnePassword, backend.DisabledFlag)

	resolved, err := r.ResolveSecret(context.Background(), "DB_PASSWORD", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if resolved == nil || resolved.Value != "mapped-value" {
		t.Fatalf("resolved = %+v", resolved)
	}

	resolved, err = r.ResolveSecret(context.Background(), "LEGACY", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if resolved != nil {
		t.Errorf("disabled mapping resolved to %+v", resolved)
	}
}

func TestResolveSecret_UnknownBackend(t *testing.T) {
	r := newTestResolver(t, "vaultwarden", map[string]backend.Backend{})
	if _, err := r.ResolveSecret(context.Background(), "TOKEN", Options{}); err == nil {
		t.Error("unknown backend resolved without error")
	}
}

func TestResolveAll_PartialFailure(t *testing.T) {
	fake := &fakeBackend{name: "keystore", available: true, authenticated: true,
		secrets: map[string]string{"A": "1", "B": "2"}}
	r := newTestResolver(t, BackendKeystore, map[string]backend.Backend{BackendKeystore: fake})

	result := r.ResolveAll(context.Background(), []string{"A", "B", "MISSING"}, Options{})
	if len(result.Resolved) != 2 {
		t.Errorf("resolved %d names, want 2", len(result.Resolved))
	}
	if len(result.Unresolved) != 1 || result.Unresolved[0] != "MISSING" {
		t.Errorf("Unresolved = %v, want [MISSING]", result.Unresolved)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v, want none for a plain miss", result.Errors)
	}
}

func TestResolveAll_BackendErrorDoesNotAbortBatch(t *testing.T) {
	fake := &fakeBackend{name: "keystore", available: true, authenticated: true,
		secrets:  map[string]string{"A": "1", "B": "2"},
		fetchErr: errors.New("cli exploded"), errOn: "BROKEN"}
	r := newTestResolver(t, BackendKeystore, map[string]backend.Backend{BackendKeystore: fake})

	result := r.ResolveAll(context.Background(), []string{"A", "BROKEN", "B"}, Options{})
	if len(result.Resolved) != 2 {
		t.Errorf("resolved %d names, want 2", len(result.Resolved))
	}
	if len(result.Unresolved) != 1 || result.Unresolved[0] != "BROKEN" {
		t.Errorf("Unresolved = %v, want [BROKEN]", result.Unresolved)
	}
	if err := result.Errors["BROKEN"]; err == nil {
		t.Error("missing per-name error for the failing fetch")
	}
	if fake.getCalls != 3 {
		t.Errorf("backend fetched %d times, want 3: the batch must continue past a failure", fake.getCalls)
	}
}

func TestResolveAllOrErr(t *testing.T) {
	fake := &fakeBackend{name: "keystore", available: true, authenticated: true,
		secrets: map[string]string{"A": "1"}}
	r := newTestResolver(t, BackendKeystore, map[string]backend.Backend{BackendKeystore: fake})

	resolved, err := r.ResolveAllOrErr(context.Background(), []string{"A"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if resolved["A"].Value != "1" {
		t.Errorf("resolved = %+v", resolved)
	}

	_, err = r.ResolveAllOrErr(context.Background(), []string{"A", "Z", "M"}, Options{})
	var ue *UnresolvedError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UnresolvedError", err)
	}
	if len(ue.Names) != 2 || ue.Names[0] != "M" || ue.Names[1] != "Z" {
		t.Errorf("Names = %v, want sorted [M Z]", ue.Names)
	}
}

func TestResolveSecret_BackendOverride(t *testing.T) {
	primary := &fakeBackend{name: "keystore", available: true, authenticated: true}
	override := &fakeBackend{name: "1Password CLI", available: true, authenticated: true,
		secrets: map[string]string{"TOKEN": "from-op"}}
	r := newTestResolver(t, BackendKeystore, map[string]backend.Backend{
		BackendKeystore:    primary,
		BackendOnePassword: override,
	})

	resolved, err := r.ResolveSecret(context.Background(), "TOKEN", Options{Backend: BackendOnePassword})
	if err != nil {
		t.Fatal(err)
	}
	if resolved == nil || resolved.Backend != BackendOnePassword || resolved.Value != "from-op" {
		t.Fatalf("resolved = %+v", resolved)
	}
	if primary.getCalls != 0 {
		t.Error("primary backend consulted despite override")
	}
}

func TestAutoDetectBackend(t *testing.T) {
	// Environment hints must not leak in from the host running the tests.
	t.Setenv("OP_SERVICE_ACCOUNT_TOKEN", "")
	t.Setenv("BW_SESSION", "")

	t.Run("env hint wins", func(t *testing.T) {
		t.Setenv("BW_SESSION", "session-token")
		r := newTestResolver(t, "", map[string]backend.Backend{
			BackendBitwarden: &fakeBackend{name: "bw", available: false},
			BackendKeystore:  &fakeBackend{name: "ks", available: true, authenticated: true},
		})
		if got := r.AutoDetectBackend(); got != BackendBitwarden {
			t.Errorf("AutoDetectBackend = %q, want bitwarden", got)
		}
	})

	t.Run("first ready external backend", func(t *testing.T) {
		r := newTestResolver(t, "", map[string]backend.Backend{
			BackendOnePassword: &fakeBackend{name: "op", available: true, authenticated: true},
			BackendBitwarden:   &fakeBackend{name: "bw", available: true, authenticated: true},
			BackendKeystore:    &fakeBackend{name: "ks", available: true, authenticated: true},
		})
		if got := r.AutoDetectBackend(); got != BackendOnePassword {
			t.Errorf("AutoDetectBackend = %q, want 1password", got)
		}
	})

	t.Run("keystore fallback", func(t *testing.T) {
		r := newTestResolver(t, "", map[string]backend.Backend{
			BackendOnePassword: &fakeBackend{name: "op", available: false},
			BackendBitwarden:   &fakeBackend{name: "bw", available: true, authenticated: false},
			BackendKeystore:    &fakeBackend{name: "ks", available: true, authenticated: true},
		})
		if got := r.AutoDetectBackend(); got != BackendKeystore {
			t.Errorf("AutoDetectBackend = %q, want keystore", got)
		}
	})
}

func TestLock(t *testing.T) {
	a := &fakeBackend{name: "a"}
	b := &fakeBackend{name: "b"}
	r := newTestResolver(t, BackendKeystore, map[string]backend.Backend{"a": a, "b": b})
	r.Lock()
	if !a.locked || !b.locked {
		t.Error("Lock did not reach every backend")
	}
}
