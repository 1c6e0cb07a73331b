// Package scanner detects credential-shaped strings in file content using a
// reviewed catalog of patterns plus validated user-supplied rules.
package scanner

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Pranav-Karra-3301/tuck/internal/metrics"
)

// SecretMatch is one detected secret occurrence. Value is the raw secret and
// must never be serialized to logs, error messages, or any persisted
// artifact other than a secret backend.
type SecretMatch struct {
	PatternID     string
	Category      string
	Severity      Severity
	Value         string
	RedactedValue string
	Context       string // containing line with the match masked
	Line          int    // 1-based
	Column        int    // 1-based byte offset within the line
}

// ScanResult is the outcome of scanning one file.
type ScanResult struct {
	Path          string
	CollapsedPath string // display form, home dir collapsed to ~
	Matches       []SecretMatch
	HasSecrets    bool
	Counts        map[Severity]int
	Skipped       bool
	SkipReason    string
}

// ScanSummary aggregates one scan invocation. It is derived per call and
// never persisted.
type ScanSummary struct {
	Results          []ScanResult
	TotalSecrets     int
	FilesWithSecrets int
}

const (
	// DefaultMaxFileSize bounds worst-case scan latency on a single file.
	DefaultMaxFileSize = 1 << 20 // 1 MiB

	// binaryProbeSize is how much of the head is inspected for NUL bytes.
	binaryProbeSize = 8192
)

// Options filters one ScanContent call.
type Options struct {
	// Categories, when non-empty, limits the applied rules to these
	// catalog categories (custom rules are matched by their category too).
	Categories []string
}

// Scanner applies the pattern catalog to content and files.
type Scanner struct {
	rules       []PatternRule
	categories  []string
	maxFileSize int64
	entropy     *EntropyConfig
	log         zerolog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithMaxFileSize overrides the per-file size ceiling.
func WithMaxFileSize(n int64) Option {
	return func(s *Scanner) { s.maxFileSize = n }
}

// WithCategories limits every scan to the given rule categories. A per-call
// Options filter takes precedence over this baseline.
func WithCategories(categories ...string) Option {
	return func(s *Scanner) { s.categories = categories }
}

// WithCustomRules appends validated custom rules to the catalog. Callers
// must build these through CompileRule so unsafe shapes are rejected first.
func WithCustomRules(rules ...PatternRule) Option {
	return func(s *Scanner) { s.rules = append(s.rules, rules...) }
}

// WithLogger attaches a logger for skip and policy diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Scanner) { s.log = log }
}

// New builds a Scanner over the built-in catalog.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		rules:       Catalog(),
		maxFileSize: DefaultMaxFileSize,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanContent applies every active rule independently to text. Overlapping
// matches from different rules are all reported: each carries its own
// severity and category, and the operator wants both.
func (s *Scanner) ScanContent(text string, opts *Options) []SecretMatch {
	rules := s.rules
	categories := s.categories
	if opts != nil && len(opts.Categories) > 0 {
		categories = opts.Categories
	}
	if len(categories) > 0 {
		wanted := make(map[string]bool, len(categories))
		for _, c := range categories {
			wanted[c] = true
		}
		filtered := make([]PatternRule, 0, len(rules))
		for _, r := range rules {
			if wanted[r.Category] {
				filtered = append(filtered, r)
			}
		}
		rules = filtered
	}

	lineStarts := lineOffsets(text)
	var matches []SecretMatch

	for _, rule := range rules {
		for _, loc := range rule.Pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if g := rule.ValueGroup; g > 0 && 2*g+1 < len(loc) && loc[2*g] >= 0 {
				start, end = loc[2*g], loc[2*g+1]
			}
			value := text[start:end]
			// Already-redacted content is not a secret: a match that
			// spans a placeholder token would otherwise be re-detected
			// on every run.
			if placeholderToken.MatchString(value) {
				continue
			}
			line, lineStart := lineAt(lineStarts, start)
			rawLine := lineText(text, lineStart)
			if rule.Validate != nil && !rule.Validate(rawLine, value) {
				continue
			}
			matches = append(matches, SecretMatch{
				PatternID:     rule.ID,
				Category:      rule.Category,
				Severity:      rule.Severity,
				Value:         value,
				RedactedValue: RedactValue(value),
				Context:       maskLine(rawLine, value),
				Line:          line,
				Column:        start - lineStart + 1,
			})
			metrics.RecordSecretDetected(rule.ID, string(rule.Severity))
		}
	}

	for _, m := range s.scanEntropy(text, lineStarts) {
		matches = append(matches, m)
		metrics.RecordSecretDetected(m.PatternID, string(m.Severity))
	}
	return matches
}

// ScanFile reads and scans a single file, applying the skip rules for
// binary and oversized content.
func (s *Scanner) ScanFile(path string) ScanResult {
	result := ScanResult{
		Path:          path,
		CollapsedPath: collapsePath(path),
		Counts:        make(map[Severity]int),
	}

	info, err := os.Stat(path)
	if err != nil {
		result.Skipped = true
		result.SkipReason = "unreadable"
		s.log.Debug().Str("path", result.CollapsedPath).Err(err).Msg("skipping unreadable file")
		metrics.FilesSkippedTotal.Inc()
		return result
	}
	if info.Size() > s.maxFileSize {
		result.Skipped = true
		result.SkipReason = "too large"
		s.log.Debug().Str("path", result.CollapsedPath).Int64("size", info.Size()).Msg("skipping oversized file")
		metrics.FilesSkippedTotal.Inc()
		return result
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Skipped = true
		result.SkipReason = "unreadable"
		metrics.FilesSkippedTotal.Inc()
		return result
	}
	if isBinary(data) {
		result.Skipped = true
		result.SkipReason = "binary"
		metrics.FilesSkippedTotal.Inc()
		return result
	}

	result.Matches = s.ScanContent(string(data), nil)
	result.HasSecrets = len(result.Matches) > 0
	for _, m := range result.Matches {
		result.Counts[m.Severity]++
	}
	metrics.FilesScannedTotal.Inc()
	return result
}

// ScanFiles scans paths sequentially in caller order so output ordering is
// deterministic and open-handle count stays bounded.
func (s *Scanner) ScanFiles(paths []string) ScanSummary {
	summary := ScanSummary{Results: make([]ScanResult, 0, len(paths))}
	for _, p := range paths {
		r := s.ScanFile(p)
		summary.Results = append(summary.Results, r)
		summary.TotalSecrets += len(r.Matches)
		if r.HasSecrets {
			summary.FilesWithSecrets++
		}
	}
	return summary
}

func isBinary(data []byte) bool {
	probe := data
	if len(probe) > binaryProbeSize {
		probe = probe[:binaryProbeSize]
	}
	return bytes.IndexByte(probe, 0) >= 0
}

func collapsePath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if rel, err := filepath.Rel(home, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.Join("~", rel)
	}
	return path
}

// lineOffsets returns the byte offset of the start of every line.
func lineOffsets(text string) []int {
	offsets := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// lineAt returns the 1-based line number and line start offset containing
// byte position pos.
func lineAt(offsets []int, pos int) (int, int) {
	lo, hi := 0, len(offsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if offsets[mid] <= pos {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, offsets[lo]
}

func lineText(text string, start int) string {
	end := strings.IndexByte(text[start:], '\n')
	if end < 0 {
		return text[start:]
	}
	return strings.TrimSuffix(text[start:start+end], "\r")
}
