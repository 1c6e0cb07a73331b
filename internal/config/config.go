// Package config loads the security configuration that governs secret
// scanning, redaction, and resolution for a tracked directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the security config file looked up under <dir>/.tuck/.
const FileName = "security.yaml"

// Config is the on-disk security configuration.
type Config struct {
	Scanning ScanningConfig `yaml:"scanning"`
	Secrets  SecretsConfig  `yaml:"secrets"`
	Logging  LoggingConfig  `yaml:"logging"`
	Audit    AuditConfig    `yaml:"audit"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ScanningConfig controls secret detection.
type ScanningConfig struct {
	Enabled        bool  `yaml:"enabled"`
	BlockOnSecrets bool  `yaml:"block_on_secrets"`
	MaxFileSize    int64 `yaml:"max_file_size"`

	// Categories, when non-empty, limits the catalog to these categories.
	Categories []string `yaml:"categories"`

	// Patterns are user-supplied rules. Each is statically validated for
	// catastrophic-backtracking shapes before compilation.
	Patterns []CustomPattern `yaml:"patterns"`

	Entropy EntropyConfig `yaml:"entropy"`
}

// CustomPattern is one user-supplied detection rule.
type CustomPattern struct {
	ID       string `yaml:"id"`
	Category string `yaml:"category"`
	Severity string `yaml:"severity"`
	Flags    string `yaml:"flags"`
	Pattern  string `yaml:"pattern"`
}

// EntropyConfig controls the optional high-entropy detection pass.
type EntropyConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
	MinLength int     `yaml:"min_length"`
	MaxLength int     `yaml:"max_length"`
}

// SecretsConfig controls resolution and storage.
type SecretsConfig struct {
	// Backend is the primary backend name; empty means auto-detect.
	Backend string `yaml:"backend"`

	// KeystorePath overrides the local keystore location.
	KeystorePath string `yaml:"keystore_path"`

	// MappingPath overrides the placeholder mapping table location.
	MappingPath string `yaml:"mapping_path"`

	// BackendTimeout is the per-call timeout for external CLI backends,
	// in seconds.
	BackendTimeout int `yaml:"backend_timeout"`
}

// LoggingConfig controls diagnostic logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// AuditConfig controls the audit event stream.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`  // minimal, standard, verbose
	Output  string `yaml:"output"` // stderr, stdout, or a file path
}

// MetricsConfig controls the optional metrics endpoint served during long
// scans.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Scanning: ScanningConfig{
			Enabled:        true,
			BlockOnSecrets: true,
			MaxFileSize:    1 << 20,
			Entropy: EntropyConfig{
				Enabled:   false,
				Threshold: 4.5,
				MinLength: 16,
				MaxLength: 128,
			},
		},
		Secrets: SecretsConfig{
			BackendTimeout: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Audit: AuditConfig{
			Enabled: true,
			Level:   "standard",
			Output:  "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9090",
		},
	}
}

// Load reads the security configuration for dir. A missing file yields the
// defaults; a malformed file is an error.
func Load(dir string) (*Config, error) {
	cfg := Default()

	path := Path(dir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading security config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to dir's security config path, creating .tuck if needed.
func Save(dir string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding security config: %w", err)
	}
	path := Path(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Path returns the security config location for dir.
func Path(dir string) string {
	return filepath.Join(filepath.Clean(dir), ".tuck", FileName)
}

// KeystorePathIn returns the configured or default keystore location for dir.
func (c *Config) KeystorePathIn(dir string) string {
	if c.Secrets.KeystorePath != "" {
		return c.Secrets.KeystorePath
	}
	return filepath.Join(filepath.Clean(dir), ".tuck", "keystore.bin")
}

// MappingPathIn returns the configured or default mapping table location.
func (c *Config) MappingPathIn(dir string) string {
	if c.Secrets.MappingPath != "" {
		return c.Secrets.MappingPath
	}
	return filepath.Join(filepath.Clean(dir), ".tuck", "secret-mappings.json")
}
