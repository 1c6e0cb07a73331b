package scanner

import "strings"

const (
	redactedMarker = "[REDACTED]"
	emptyMarker    = "[EMPTY]"

	// Secrets shorter than this are fully masked so the preview length
	// gives no estimate of the real length.
	minPreviewLength = 8

	// Runes kept from each end of longer secrets. Must stay below four so
	// the preview never exposes a four-character run of the original.
	previewEdgeRunes = 2
)

// RedactValue produces the display form of a secret value. Other than the
// fixed markers themselves, the result never contains a contiguous run of
// four or more characters of the input: a value that collides with the
// marker text around its kept edges is fully masked instead.
func RedactValue(value string) string {
	if value == "" {
		return emptyMarker
	}
	runes := []rune(value)
	if len(runes) < minPreviewLength {
		return redactedMarker
	}
	head := string(runes[:previewEdgeRunes])
	tail := string(runes[len(runes)-previewEdgeRunes:])
	preview := head + redactedMarker + tail
	if leaksRun(preview, runes) {
		return redactedMarker
	}
	return preview
}

// leaksRun reports whether preview reproduces any four-rune run of the
// original value.
func leaksRun(preview string, runes []rune) bool {
	for i := 0; i+4 <= len(runes); i++ {
		if strings.Contains(preview, string(runes[i:i+4])) {
			return true
		}
	}
	return false
}

// maskLine returns line with every occurrence of value replaced by its
// redacted preview. Callers must mask before a line is stored or printed.
func maskLine(line, value string) string {
	if value == "" {
		return line
	}
	return strings.ReplaceAll(line, value, RedactValue(value))
}
