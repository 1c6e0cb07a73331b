// Package audit records security-relevant events: detections, redactions,
// restorations, and above all any operator bypass of scanning. Events carry
// names, counts, and backends — never secret values.
package audit

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// EventType identifies an audit event.
type EventType string

const (
	EventScanBypassed   EventType = "scan_bypassed"
	EventSecretDetected EventType = "secret_detected"
	EventSecretRedacted EventType = "secret_redacted"
	EventSecretRestored EventType = "secret_restored"
	EventSecretResolved EventType = "secret_resolved"
	EventBackendAuth    EventType = "backend_auth"
	EventKeystoreReset  EventType = "keystore_reset"
	EventMappingUpdated EventType = "mapping_updated"
	EventScanCompleted  EventType = "scan_completed"
)

// Config holds audit logger settings.
type Config struct {
	Enabled bool

	// Level controls which events are recorded:
	// "minimal"  - bypasses and detections only
	// "standard" - everything except mapping bookkeeping
	// "verbose"  - all events
	Level string

	// Output is "stderr", "stdout", or a file path.
	Output string
}

// DefaultConfig returns the default audit configuration.
func DefaultConfig() Config {
	return Config{Enabled: true, Level: "standard", Output: "stderr"}
}

// Recorder is the audit contract consumed by workflows. Any caller that
// offers a scanning bypass must call ScanBypassed.
type Recorder interface {
	ScanBypassed(operation string, fileCount int)
	SecretDetected(patternID, severity, path string)
	SecretRedacted(path string, count int)
	SecretRestored(path string, count int)
	SecretResolved(name, backendName string, cached bool)
	BackendAuth(backendName string, err error)
	KeystoreReset(path string)
	MappingUpdated(name, backendName string)
	ScanCompleted(files, secrets int)
	Close() error
}

// Logger writes audit events as structured JSON lines.
type Logger struct {
	cfg    Config
	log    zerolog.Logger
	closer io.Closer
}

// NewLogger builds an audit logger from cfg. A disabled config yields a
// recorder that drops everything.
func NewLogger(cfg Config) (Recorder, error) {
	if !cfg.Enabled {
		return NopRecorder{}, nil
	}

	var (
		out    io.Writer
		closer io.Closer
	)
	switch cfg.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, err
		}
		out = f
		closer = f
	}

	log := zerolog.New(out).With().Timestamp().Str("stream", "audit").Logger()
	return &Logger{cfg: cfg, log: log, closer: closer}, nil
}

func (l *Logger) shouldLog(t EventType) bool {
	switch l.cfg.Level {
	case "minimal":
		return t == EventScanBypassed || t == EventSecretDetected
	case "standard":
		return t != EventMappingUpdated
	default:
		return true
	}
}

func (l *Logger) event(t EventType) *zerolog.Event {
	if !l.shouldLog(t) {
		disabled := l.log.Level(zerolog.Disabled)
		return disabled.Info()
	}
	return l.log.Info().Str("event", string(t))
}

// ScanBypassed records a forced skip of secret scanning. This is the
// required hook for any caller offering a bypass override.
func (l *Logger) ScanBypassed(operation string, fileCount int) {
	l.event(EventScanBypassed).Str("operation", operation).Int("files", fileCount).Send()
}

func (l *Logger) SecretDetected(patternID, severity, path string) {
	l.event(EventSecretDetected).Str("pattern", patternID).Str("severity", severity).Str("path", path).Send()
}

func (l *Logger) SecretRedacted(path string, count int) {
	l.event(EventSecretRedacted).Str("path", path).Int("count", count).Send()
}

func (l *Logger) SecretRestored(path string, count int) {
	l.event(EventSecretRestored).Str("path", path).Int("count", count).Send()
}

func (l *Logger) SecretResolved(name, backendName string, cached bool) {
	l.event(EventSecretResolved).Str("name", name).Str("backend", backendName).Bool("cached", cached).Send()
}

func (l *Logger) BackendAuth(backendName string, err error) {
	e := l.event(EventBackendAuth).Str("backend", backendName)
	if err != nil {
		e = e.Str("error", err.Error())
	}
	e.Send()
}

func (l *Logger) KeystoreReset(path string) {
	l.event(EventKeystoreReset).Str("path", path).Send()
}

func (l *Logger) MappingUpdated(name, backendName string) {
	l.event(EventMappingUpdated).Str("name", name).Str("backend", backendName).Send()
}

func (l *Logger) ScanCompleted(files, secrets int) {
	l.event(EventScanCompleted).Int("files", files).Int("secrets", secrets).Send()
}

// Close releases a file-backed output.
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// NopRecorder drops every event.
type NopRecorder struct{}

func (NopRecorder) ScanBypassed(string, int)              {}
func (NopRecorder) SecretDetected(string, string, string) {}
func (NopRecorder) SecretRedacted(string, int)            {}
func (NopRecorder) SecretRestored(string, int)            {}
func (NopRecorder) SecretResolved(string, string, bool)   {}
func (NopRecorder) BackendAuth(string, error)             {}
func (NopRecorder) KeystoreReset(string)                  {}
func (NopRecorder) MappingUpdated(string, string)         {}
func (NopRecorder) ScanCompleted(int, int)                {}
func (NopRecorder) Close() error                          { return nil }
