package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Pranav-Karra-3301/tuck/internal/keystore"
	"github.com/Pranav-Karra-3301/tuck/internal/redact"
	"github.com/Pranav-Karra-3301/tuck/internal/resolver"
	"github.com/Pranav-Karra-3301/tuck/internal/scanner"
)

var redactCmd = &cobra.Command{
	Use:   "redact [paths...]",
	Short: "Replace detected secrets with placeholder tokens",
	Long: `Scans the given files, stores each detected secret in the local
keystore, records the placeholder mapping, and rewrites the files with
${NAME} tokens in place of the raw values. Running redact again on already
redacted files is a no-op.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRedact,
}

func runRedact(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.audit.Close()

	paths, err := expandPaths(args)
	if err != nil {
		return err
	}

	s, err := scanner.FromConfig(e.cfg, e.log)
	if err != nil {
		return err
	}
	summary := s.ScanFiles(paths)
	if summary.TotalSecrets == 0 {
		fmt.Println(color.GreenString("nothing to redact"))
		return nil
	}

	_, mapping, ks, err := e.newResolver()
	if err != nil {
		return err
	}

	assignments := redact.SecretsWithPlaceholders(summary)

	// Store values before touching any file so a crash between the two
	// steps loses no secret.
	for value, a := range assignments {
		if err := ks.Store(keystore.DefaultService, a.Name, value); err != nil {
			return fmt.Errorf("storing secret for %s: %w", a.Name, err)
		}
		mapping.SetBackendPath(a.Name, resolver.BackendKeystore, keystore.DefaultService+"/"+a.Name)
		e.audit.MappingUpdated(a.Name, resolver.BackendKeystore)
	}
	if err := mapping.Save(); err != nil {
		return err
	}

	total := 0
	for _, result := range summary.Results {
		if !result.HasSecrets {
			continue
		}
		n, err := redact.RedactFile(result.Path, assignments)
		if err != nil {
			return err
		}
		if n > 0 {
			e.audit.SecretRedacted(result.CollapsedPath, n)
			fmt.Printf("%s: %d secrets redacted\n", result.CollapsedPath, n)
		}
		total += n
	}
	fmt.Println(color.GreenString("%d replacements across %d files", total, summary.FilesWithSecrets))
	return nil
}
