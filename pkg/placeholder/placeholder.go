// Package placeholder generates and recognizes the tokens substituted into
// tracked files in place of detected secret values.
package placeholder

import (
	"regexp"
	"strconv"
	"strings"
)

// tokenPattern matches a placeholder token such as ${API_KEY} or ${API_KEY_2}.
var tokenPattern = regexp.MustCompile(`\$\{([A-Z][A-Z0-9_]*)\}`)

// Format wraps a placeholder name in the token syntax written into files.
func Format(name string) string {
	return "${" + name + "}"
}

// Name extracts the placeholder name from a token. Returns the empty string
// if the input is not a well-formed token.
func Name(token string) string {
	m := tokenPattern.FindStringSubmatch(token)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsToken reports whether s is exactly one placeholder token.
func IsToken(s string) bool {
	m := tokenPattern.FindString(s)
	return m != "" && m == s
}

// FindAll returns every placeholder token in text, in order of appearance.
func FindAll(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}

// FindAllNames returns the distinct placeholder names referenced in text,
// in order of first appearance.
func FindAllNames(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range tokenPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// FindAllIndex returns the byte ranges of every placeholder token in text.
func FindAllIndex(text string) [][]int {
	return tokenPattern.FindAllStringIndex(text, -1)
}

// Derive builds a readable placeholder name candidate from a pattern
// category such as "api_key" or "aws". The result is uppercase with
// underscore separators and always non-empty.
func Derive(category string) string {
	var b strings.Builder
	lastSep := true
	for _, r := range strings.ToUpper(category) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSep = false
		default:
			if !lastSep {
				b.WriteByte('_')
				lastSep = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "SECRET"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "SECRET_" + name
	}
	return name
}

// Unique returns candidate if it is not already taken, otherwise the first
// candidate_N (N starting at 2) that is free. The caller owns the taken set.
func Unique(candidate string, taken map[string]bool) string {
	if !taken[candidate] {
		return candidate
	}
	for n := 2; ; n++ {
		suffixed := candidate + "_" + strconv.Itoa(n)
		if !taken[suffixed] {
			return suffixed
		}
	}
}

// Restore replaces every recognized token in text using lookup. Tokens the
// lookup cannot resolve are left in place.
func Restore(text string, lookup func(name string) (string, bool)) string {
	return tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		if value, ok := lookup(Name(token)); ok {
			return value
		}
		return token
	})
}
