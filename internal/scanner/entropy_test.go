package scanner

import (
	"strings"
	"testing"
)

func TestShannonEntropy(t *testing.T) {
	if got := shannonEntropy(""); got != 0 {
		t.Errorf("entropy of empty string = %v, want 0", got)
	}
	if got := shannonEntropy("aaaaaaaa"); got != 0 {
		t.Errorf("entropy of uniform string = %v, want 0", got)
	}
	low := shannonEntropy("aabbaabbaabbaabb")
	high := shannonEntropy("k8Jx2mQ9zR4vT7nW")
	if low >= high {
		t.Errorf("entropy ordering wrong: repetitive %v >= random %v", low, high)
	}
}

func TestScanEntropy(t *testing.T) {
	s := New(WithEntropy(DefaultEntropyConfig()))
	plain := New()

	// Random base64-shaped string above the threshold.
	secret := "xK9mP2qL7vW4nR8tZ3jB6cF1dG5hY0sAeU+IoM/N"
	text := "token: " + secret + "\nplain words only here\n"

	matches := s.ScanContent(text, nil)
	var entropyMatch *SecretMatch
	for i := range matches {
		if matches[i].PatternID == "high_entropy" {
			entropyMatch = &matches[i]
		}
	}
	if entropyMatch == nil {
		t.Fatal("high-entropy value not detected")
	}
	if entropyMatch.Severity != SeverityMedium {
		t.Errorf("severity = %v, want medium", entropyMatch.Severity)
	}
	if entropyMatch.Line != 1 {
		t.Errorf("line = %d, want 1", entropyMatch.Line)
	}
	if strings.Contains(entropyMatch.Context, secret) {
		t.Error("context leaks the raw value")
	}

	// The pass is strictly opt-in.
	for _, m := range plain.ScanContent(text, nil) {
		if m.PatternID == "high_entropy" {
			t.Error("entropy match reported without WithEntropy")
		}
	}
}

func TestScanEntropy_Filters(t *testing.T) {
	s := New(WithEntropy(DefaultEntropyConfig()))

	tests := []struct {
		name string
		text string
	}{
		{"lowercase identifier", "module: averyplainlowercasemodulename\n"},
		{"below min length", "x: aB3dEf9hK2m\n"},
		{"above max length", "blob: " + strings.Repeat("xK9mP2qL7vW4nR8t", 9) + "\n"},
		{"low entropy", "pad: abababababababababababab\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, m := range s.ScanContent(tt.text, nil) {
				if m.PatternID == "high_entropy" {
					t.Errorf("false positive on %q", tt.text)
				}
			}
		})
	}
}
