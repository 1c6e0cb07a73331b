package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FilesScannedTotal counts files fully scanned.
	FilesScannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tuck_files_scanned_total",
		Help: "Total number of files scanned for secrets",
	})

	// FilesSkippedTotal counts files skipped as binary, oversized, or unreadable.
	FilesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tuck_files_skipped_total",
		Help: "Total number of files skipped during scanning",
	})

	// SecretsDetectedTotal counts detected secrets by pattern and severity.
	SecretsDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tuck_secrets_detected_total",
		Help: "Total number of secrets detected",
	}, []string{"pattern", "severity"})

	// SecretsRedactedTotal counts secret occurrences replaced by placeholders.
	SecretsRedactedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tuck_secrets_redacted_total",
		Help: "Total number of secret occurrences replaced with placeholders",
	})

	// PlaceholdersRestoredTotal counts placeholders substituted back.
	PlaceholdersRestoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tuck_placeholders_restored_total",
		Help: "Total number of placeholders restored to secret values",
	})

	// ResolutionsTotal counts secret resolutions by backend and outcome.
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tuck_resolutions_total",
		Help: "Total number of secret resolution attempts",
	}, []string{"backend", "outcome"})

	// CacheHitsTotal counts resolver cache hits.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tuck_resolver_cache_hits_total",
		Help: "Total number of resolutions served from the in-process cache",
	})

	// KeystoreResetsTotal counts keystore corruption recoveries.
	KeystoreResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tuck_keystore_resets_total",
		Help: "Total number of times the local keystore was reset after corruption",
	})
)

// RecordSecretDetected records one detected secret.
func RecordSecretDetected(pattern, severity string) {
	SecretsDetectedTotal.WithLabelValues(pattern, severity).Inc()
}

// RecordResolution records one resolution attempt.
func RecordResolution(backend, outcome string) {
	ResolutionsTotal.WithLabelValues(backend, outcome).Inc()
}
