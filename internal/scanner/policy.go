package scanner

import (
	"github.com/rs/zerolog"

	"github.com/Pranav-Karra-3301/tuck/internal/config"
)

// FromConfig builds a Scanner from a directory's security configuration.
// Custom patterns that fail safety validation are returned as errors, never
// silently ignored.
func FromConfig(cfg *config.Config, log zerolog.Logger) (*Scanner, error) {
	opts := []Option{WithLogger(log)}
	if cfg.Scanning.MaxFileSize > 0 {
		opts = append(opts, WithMaxFileSize(cfg.Scanning.MaxFileSize))
	}
	if len(cfg.Scanning.Categories) > 0 {
		opts = append(opts, WithCategories(cfg.Scanning.Categories...))
	}
	if cfg.Scanning.Entropy.Enabled {
		e := DefaultEntropyConfig()
		if cfg.Scanning.Entropy.Threshold > 0 {
			e.Threshold = cfg.Scanning.Entropy.Threshold
		}
		if cfg.Scanning.Entropy.MinLength > 0 {
			e.MinLength = cfg.Scanning.Entropy.MinLength
		}
		if cfg.Scanning.Entropy.MaxLength > 0 {
			e.MaxLength = cfg.Scanning.Entropy.MaxLength
		}
		opts = append(opts, WithEntropy(e))
	}
	for _, p := range cfg.Scanning.Patterns {
		rule, err := CompileRule(p.ID, p.Category, p.Flags, p.Pattern, Severity(p.Severity))
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithCustomRules(rule))
	}
	return New(opts...), nil
}

// ScanForSecrets scans paths under contextDir's security policy. The empty
// summary is returned when scanning is disabled for the directory.
func ScanForSecrets(paths []string, contextDir string, log zerolog.Logger) (ScanSummary, error) {
	cfg, err := config.Load(contextDir)
	if err != nil {
		return ScanSummary{}, err
	}
	if !cfg.Scanning.Enabled {
		return ScanSummary{}, nil
	}
	s, err := FromConfig(cfg, log)
	if err != nil {
		return ScanSummary{}, err
	}
	return s.ScanFiles(paths), nil
}

// IsSecretScanningEnabled reports whether scanning is active for contextDir.
// Config read errors report true: enforcement fails closed.
func IsSecretScanningEnabled(contextDir string) bool {
	cfg, err := config.Load(contextDir)
	if err != nil {
		return true
	}
	return cfg.Scanning.Enabled
}

// ShouldBlockOnSecrets reports whether the calling workflow must refuse to
// proceed when secrets are found, rather than just warn.
func ShouldBlockOnSecrets(contextDir string) bool {
	cfg, err := config.Load(contextDir)
	if err != nil {
		return true
	}
	return cfg.Scanning.BlockOnSecrets
}
