package scanner

import (
	"math"
	"regexp"
	"unicode"
)

// entropyCandidate bounds the strings considered for entropy analysis to
// token/key shaped runs.
var entropyCandidate = regexp.MustCompile(`[A-Za-z0-9+/=_\-]{8,}`)

// EntropyConfig tunes the optional high-entropy detection pass.
type EntropyConfig struct {
	Threshold float64 // Shannon entropy in bits per character
	MinLength int
	MaxLength int
}

// DefaultEntropyConfig matches the catalog's tuning for base64-shaped keys.
func DefaultEntropyConfig() EntropyConfig {
	return EntropyConfig{Threshold: 4.5, MinLength: 16, MaxLength: 128}
}

// WithEntropy enables the high-entropy pass in addition to the catalog.
// Matches carry pattern id "high_entropy" and medium severity: entropy alone
// cannot distinguish a key from any other random-looking string.
func WithEntropy(cfg EntropyConfig) Option {
	return func(s *Scanner) { s.entropy = &cfg }
}

// scanEntropy finds high-entropy candidate strings in text.
func (s *Scanner) scanEntropy(text string, lineStarts []int) []SecretMatch {
	if s.entropy == nil {
		return nil
	}
	cfg := *s.entropy

	var matches []SecretMatch
	for _, loc := range entropyCandidate.FindAllStringIndex(text, -1) {
		value := text[loc[0]:loc[1]]
		if len(value) < cfg.MinLength || len(value) > cfg.MaxLength {
			continue
		}
		if likelyIdentifier(value) {
			continue
		}
		if shannonEntropy(value) < cfg.Threshold {
			continue
		}
		line, lineStart := lineAt(lineStarts, loc[0])
		matches = append(matches, SecretMatch{
			PatternID:     "high_entropy",
			Category:      "entropy",
			Severity:      SeverityMedium,
			Value:         value,
			RedactedValue: RedactValue(value),
			Context:       maskLine(lineText(text, lineStart), value),
			Line:          line,
			Column:        loc[0] - lineStart + 1,
		})
	}
	return matches
}

// shannonEntropy returns the Shannon entropy of s in bits per character.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int)
	for _, c := range s {
		freq[c]++
	}
	length := float64(len(s))
	entropy := 0.0
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// likelyIdentifier filters all-lowercase words and paths that entropy alone
// would misclassify.
func likelyIdentifier(s string) bool {
	for _, c := range s {
		if unicode.IsUpper(c) || unicode.IsDigit(c) {
			return false
		}
	}
	return true
}
