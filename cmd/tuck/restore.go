package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Pranav-Karra-3301/tuck/internal/redact"
	"github.com/Pranav-Karra-3301/tuck/internal/resolver"
)

var (
	flagBackend        string
	flagNonInteractive bool
	flagStrict         bool

	restoreCmd = &cobra.Command{
		Use:   "restore [paths...]",
		Short: "Substitute placeholder tokens back to their secret values",
		Long: `Collects the placeholder names referenced by the given files, resolves
each through the configured credential backends, and rewrites the files
with the concrete values. Names that cannot be resolved are reported and
left in place unless --strict is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRestore,
	}
)

func init() {
	restoreCmd.Flags().StringVar(&flagBackend, "backend", "", "resolve through this backend only")
	restoreCmd.Flags().BoolVar(&flagNonInteractive, "non-interactive", false, "fail instead of starting an authentication flow")
	restoreCmd.Flags().BoolVar(&flagStrict, "strict", false, "fail when any placeholder cannot be resolved")
}

func runRestore(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.audit.Close()

	paths, err := expandPaths(args)
	if err != nil {
		return err
	}

	r, _, _, err := e.newResolver()
	if err != nil {
		return err
	}
	defer r.Lock()

	// One pass to learn every referenced name, so the batch resolves each
	// backend round-trip at most once across all files.
	var names []string
	seen := make(map[string]bool)
	perFile := make(map[string][]string, len(paths))
	for _, p := range paths {
		fileNames, err := redact.PlaceholderNamesIn(p)
		if err != nil {
			return err
		}
		perFile[p] = fileNames
		for _, n := range fileNames {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	if len(names) == 0 {
		fmt.Println("no placeholders found")
		return nil
	}

	opts := resolver.Options{Backend: flagBackend, NonInteractive: flagNonInteractive}

	var resolved map[string]*resolver.ResolvedSecret
	if flagStrict {
		resolved, err = r.ResolveAllOrErr(cmd.Context(), names, opts)
		if err != nil {
			return err
		}
	} else {
		batch := r.ResolveAll(cmd.Context(), names, opts)
		resolved = batch.Resolved
		for _, name := range batch.Unresolved {
			if err, ok := batch.Errors[name]; ok {
				e.log.Warn().Str("name", name).Err(err).Msg("could not resolve placeholder")
			} else {
				e.log.Warn().Str("name", name).Msg("no backend has a value for placeholder")
			}
		}
	}

	for name, rs := range resolved {
		e.audit.SecretResolved(name, rs.Backend, rs.Cached)
	}

	total := 0
	for _, p := range paths {
		if len(perFile[p]) == 0 {
			continue
		}
		n, err := redact.RestoreFile(p, func(name string) (string, bool) {
			rs, ok := resolved[name]
			if !ok {
				return "", false
			}
			return rs.Value, true
		})
		if err != nil {
			return err
		}
		if n > 0 {
			e.audit.SecretRestored(p, n)
		}
		total += n
	}
	fmt.Println(color.GreenString("%d placeholders restored", total))
	return nil
}
