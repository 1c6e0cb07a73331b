// Package resolver answers "what is the value of placeholder X" by trying
// a prioritized set of credential backends with caching and authentication
// handling.
package resolver

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Pranav-Karra-3301/tuck/internal/backend"
	"github.com/Pranav-Karra-3301/tuck/internal/cache"
	"github.com/Pranav-Karra-3301/tuck/internal/metrics"
)

// Well-known backend names used in the mapping table and config.
const (
	BackendKeystore    = "keystore"
	BackendOnePassword = "1password"
	BackendBitwarden   = "bitwarden"
)

// detectionOrder is the fixed priority list of external backends tried by
// auto-detection before falling back to the local keystore.
var detectionOrder = []string{BackendOnePassword, BackendBitwarden}

// ResolvedSecret is a successful resolution. Never compare or log Value.
type ResolvedSecret struct {
	Name    string
	Value   string
	Backend string
	Cached  bool
}

// Options adjust one resolution call.
type Options struct {
	// Backend overrides the primary backend by name.
	Backend string

	// NoCache bypasses the cache for both read and write.
	NoCache bool

	// NonInteractive fails with AuthRequiredError instead of starting an
	// authentication flow that may prompt the user.
	NonInteractive bool
}

// BatchResult is the outcome of ResolveAll. Partial success is a first-class
// outcome, not an error state.
type BatchResult struct {
	Resolved   map[string]*ResolvedSecret
	Unresolved []string
	Errors     map[string]error
}

// UnresolvedError lists the placeholder names no backend could resolve. It
// carries names only, never guessed values.
type UnresolvedError struct {
	Names []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved secrets: %s", strings.Join(e.Names, ", "))
}

// Resolver holds the per-invocation resolution state. It is built
// explicitly with its cache and backends; there is no package-level
// singleton. Safe for use from one goroutine; the cache serializes its own
// mutations.
type Resolver struct {
	backends map[string]backend.Backend
	mapping  *backend.MappingTable
	cache    *cache.Cache
	primary  string
	log      zerolog.Logger
}

// New builds a resolver. primary may be empty, in which case the first
// resolution auto-detects a backend.
func New(backends map[string]backend.Backend, mapping *backend.MappingTable, c *cache.Cache, primary string, log zerolog.Logger) *Resolver {
	if c == nil {
		c = cache.New()
	}
	return &Resolver{
		backends: backends,
		mapping:  mapping,
		cache:    c,
		primary:  primary,
		log:      log,
	}
}

// Cache exposes the resolver's cache for invalidation and teardown.
func (r *Resolver) Cache() *cache.Cache {
	return r.cache
}

// ResolveSecret resolves one placeholder name. A nil result with nil error
// means no backend had a value for the name.
func (r *Resolver) ResolveSecret(ctx context.Context, name string, opts Options) (*ResolvedSecret, error) {
	if !opts.NoCache {
		if e, ok := r.cache.Get(name); ok {
			metrics.CacheHitsTotal.Inc()
			return &ResolvedSecret{Name: name, Value: e.Value, Backend: e.Backend, Cached: true}, nil
		}
	}

	backendName := opts.Backend
	if backendName == "" {
		backendName = r.primaryBackend()
	}
	b, ok := r.backends[backendName]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q", backendName)
	}

	if !b.IsAvailable() {
		metrics.RecordResolution(backendName, "unavailable")
		return nil, &backend.NotAvailableError{Backend: b.DisplayName()}
	}

	if !b.IsAuthenticated() {
		if opts.NonInteractive {
			metrics.RecordResolution(backendName, "auth_required")
			return nil, &backend.AuthRequiredError{Backend: b.DisplayName()}
		}
		r.log.Info().Str("backend", b.DisplayName()).Msg("authenticating")
		if err := b.Authenticate(ctx); err != nil {
			metrics.RecordResolution(backendName, "auth_failed")
			return nil, fmt.Errorf("authenticating with %s: %w", b.DisplayName(), err)
		}
	}

	if r.mapping != nil && r.mapping.IsDisabled(name, backendName) {
		metrics.RecordResolution(backendName, "disabled")
		return nil, nil
	}

	ref := backend.SecretReference{Name: name}
	if r.mapping != nil {
		if path, ok := r.mapping.GetBackendPath(name, backendName); ok {
			ref.Path = path
		}
	}

	value, err := b.GetSecret(ctx, ref)
	if err != nil {
		metrics.RecordResolution(backendName, "error")
		return nil, fmt.Errorf("fetching %s from %s: %w", name, b.DisplayName(), err)
	}
	if value == "" {
		metrics.RecordResolution(backendName, "miss")
		return nil, nil
	}

	if !opts.NoCache {
		r.cache.Put(name, value, backendName)
	}
	metrics.RecordResolution(backendName, "resolved")
	return &ResolvedSecret{Name: name, Value: value, Backend: backendName}, nil
}

// ResolveAll resolves each name independently. A failure on one name is
// captured per-name and never aborts the rest of the batch.
func (r *Resolver) ResolveAll(ctx context.Context, names []string, opts Options) *BatchResult {
	result := &BatchResult{
		Resolved: make(map[string]*ResolvedSecret),
		Errors:   make(map[string]error),
	}
	for _, name := range names {
		resolved, err := r.ResolveSecret(ctx, name, opts)
		switch {
		case err != nil:
			result.Errors[name] = err
			result.Unresolved = append(result.Unresolved, name)
		case resolved == nil:
			result.Unresolved = append(result.Unresolved, name)
		default:
			result.Resolved[name] = resolved
		}
	}
	return result
}

// ResolveAllOrErr is ResolveAll with throw semantics: any unresolved name
// is an UnresolvedError.
func (r *Resolver) ResolveAllOrErr(ctx context.Context, names []string, opts Options) (map[string]*ResolvedSecret, error) {
	result := r.ResolveAll(ctx, names, opts)
	if len(result.Unresolved) > 0 {
		missing := append([]string(nil), result.Unresolved...)
		sort.Strings(missing)
		return nil, &UnresolvedError{Names: missing}
	}
	return result.Resolved, nil
}

func (r *Resolver) primaryBackend() string {
	if r.primary == "" {
		r.primary = r.AutoDetectBackend()
	}
	return r.primary
}

// AutoDetectBackend picks a backend: environment hints for the two external
// managers are treated as strong signals of intent, then each backend in
// the fixed priority order is checked for availability and authentication,
// and finally the local keystore is the unconditional fallback.
func (r *Resolver) AutoDetectBackend() string {
	if os.Getenv("OP_SERVICE_ACCOUNT_TOKEN") != "" || hasEnvPrefix("OP_SESSION") {
		if _, ok := r.backends[BackendOnePassword]; ok {
			return BackendOnePassword
		}
	}
	if os.Getenv("BW_SESSION") != "" {
		if _, ok := r.backends[BackendBitwarden]; ok {
			return BackendBitwarden
		}
	}
	for _, name := range detectionOrder {
		b, ok := r.backends[name]
		if !ok {
			continue
		}
		if b.IsAvailable() && b.IsAuthenticated() {
			return name
		}
	}
	return BackendKeystore
}

func hasEnvPrefix(prefix string) bool {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, prefix) {
			return true
		}
	}
	return false
}

// Lock asks every backend to end its session. Errors are swallowed: lock is
// best-effort cleanup.
func (r *Resolver) Lock() {
	for _, b := range r.backends {
		b.Lock()
	}
}
