// Package redact rewrites files so detected secret values become stable
// placeholder tokens, and substitutes resolved values back on restore.
package redact

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Pranav-Karra-3301/tuck/internal/metrics"
	"github.com/Pranav-Karra-3301/tuck/internal/scanner"
	"github.com/Pranav-Karra-3301/tuck/pkg/placeholder"
)

// Assignment pairs one distinct secret value with its placeholder name.
type Assignment struct {
	Name     string
	Category string
}

// SecretsWithPlaceholders assigns a placeholder name to every distinct
// secret value in the summary. Names are derived from the match's pattern
// category, uppercased and underscore-separated; collisions between
// distinct values take a numeric suffix. Iteration follows scan order so
// the same input always produces the same names.
func SecretsWithPlaceholders(summary scanner.ScanSummary) map[string]Assignment {
	assignments := make(map[string]Assignment)
	taken := make(map[string]bool)

	for _, result := range summary.Results {
		for _, m := range result.Matches {
			if _, done := assignments[m.Value]; done {
				continue
			}
			name := placeholder.Unique(placeholder.Derive(m.Category), taken)
			taken[name] = true
			assignments[m.Value] = Assignment{Name: name, Category: m.Category}
		}
	}
	return assignments
}

// RedactFile rewrites path so every occurrence of an assigned secret value
// becomes its ${NAME} token. Longer values are replaced first so one secret
// embedded in another cannot clobber it. Surrounding bytes and line endings
// are untouched, and a file with no remaining raw values is left unchanged:
// redaction is idempotent.
func RedactFile(path string, assignments map[string]Assignment) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	text, replacements := redactText(string(data), assignments)
	if replacements == 0 {
		return 0, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, []byte(text), info.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	metrics.SecretsRedactedTotal.Add(float64(replacements))
	return replacements, nil
}

// redactText performs the in-memory replacement pass.
func redactText(text string, assignments map[string]Assignment) (string, int) {
	values := make([]string, 0, len(assignments))
	for v := range assignments {
		if v != "" {
			values = append(values, v)
		}
	}
	sort.Slice(values, func(i, j int) bool {
		if len(values[i]) != len(values[j]) {
			return len(values[i]) > len(values[j])
		}
		return values[i] < values[j]
	})

	replacements := 0
	for _, v := range values {
		n := strings.Count(text, v)
		if n == 0 {
			continue
		}
		text = strings.ReplaceAll(text, v, placeholder.Format(assignments[v].Name))
		replacements += n
	}
	return text, replacements
}

// RestoreFile substitutes placeholder tokens in path back to their secret
// values via lookup. Tokens the lookup cannot resolve stay in place; the
// count of restored tokens is returned.
func RestoreFile(path string, lookup func(name string) (string, bool)) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	restored := 0
	text := placeholder.Restore(string(data), func(name string) (string, bool) {
		value, ok := lookup(name)
		if ok {
			restored++
		}
		return value, ok
	})
	if restored == 0 {
		return 0, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, []byte(text), info.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	metrics.PlaceholdersRestoredTotal.Add(float64(restored))
	return restored, nil
}

// PlaceholderNamesIn returns the distinct placeholder names referenced by
// the file at path, in order of first appearance.
func PlaceholderNamesIn(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return placeholder.FindAllNames(string(data)), nil
}
