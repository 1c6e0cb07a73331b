package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Pranav-Karra-3301/tuck/internal/scanner"
	"github.com/Pranav-Karra-3301/tuck/internal/server"
)

var (
	flagForce         bool
	flagMetricsListen string

	scanCmd = &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Scan files for credential-shaped strings",
		Long: `Scans the given files (or directory trees) against the pattern catalog
and any configured custom rules, printing severity-tagged previews. Raw
secret values never appear in the output.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runScan,
	}
)

func init() {
	scanCmd.Flags().BoolVar(&flagForce, "force", false, "skip scanning entirely (recorded in the audit log)")
	scanCmd.Flags().StringVar(&flagMetricsListen, "metrics-listen", "", "serve /metrics and /status on this address while scanning")
}

func runScan(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.audit.Close()

	paths, err := expandPaths(args)
	if err != nil {
		return err
	}

	if flagForce {
		e.audit.ScanBypassed("scan", len(paths))
		fmt.Println("secret scanning bypassed (--force)")
		return nil
	}
	if !scanner.IsSecretScanningEnabled(flagDir) {
		e.log.Debug().Msg("secret scanning disabled by config")
		return nil
	}

	if flagMetricsListen != "" {
		srv := server.New(flagMetricsListen, Version)
		go func() {
			if err := srv.Start(); err != nil {
				e.log.Warn().Err(err).Msg("metrics server stopped")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Stop(ctx); err != nil {
				e.log.Debug().Err(err).Msg("metrics server shutdown")
			}
		}()
	}

	var spin *spinner.Spinner
	if len(paths) > 1 {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		spin.Suffix = fmt.Sprintf(" scanning %d files...", len(paths))
		spin.Start()
	}

	s, err := scanner.FromConfig(e.cfg, e.log)
	if err != nil {
		if spin != nil {
			spin.Stop()
		}
		return err
	}
	summary := s.ScanFiles(paths)
	if spin != nil {
		spin.Stop()
	}

	printSummary(summary, e)
	e.audit.ScanCompleted(len(summary.Results), summary.TotalSecrets)

	if summary.TotalSecrets > 0 && scanner.ShouldBlockOnSecrets(flagDir) {
		return fmt.Errorf("%d secrets found in %d files", summary.TotalSecrets, summary.FilesWithSecrets)
	}
	return nil
}

func printSummary(summary scanner.ScanSummary, e *env) {
	for _, result := range summary.Results {
		if result.Skipped {
			e.log.Debug().Str("path", result.CollapsedPath).Str("reason", result.SkipReason).Msg("skipped")
			continue
		}
		if !result.HasSecrets {
			continue
		}
		fmt.Printf("%s\n", color.New(color.Bold).Sprint(result.CollapsedPath))
		for _, m := range result.Matches {
			fmt.Printf("  %s line %d: %s [%s] %s\n",
				severityColor(string(m.Severity)), m.Line, m.PatternID, m.Category, m.Context)
			e.audit.SecretDetected(m.PatternID, string(m.Severity), result.CollapsedPath)
		}
	}
	if summary.TotalSecrets == 0 {
		fmt.Println(color.GreenString("no secrets found"))
		return
	}
	fmt.Printf("%s\n", color.RedString("%d secrets in %d files", summary.TotalSecrets, summary.FilesWithSecrets))
}

func severityColor(severity string) string {
	switch severity {
	case "critical":
		return color.New(color.FgRed, color.Bold).Sprint("CRITICAL")
	case "high":
		return color.RedString("HIGH")
	case "medium":
		return color.YellowString("MEDIUM")
	default:
		return color.CyanString("LOW")
	}
}

// expandPaths walks directory arguments into their file lists, keeping
// caller order so scan output stays deterministic.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == ".git" || d.Name() == ".tuck" {
					return filepath.SkipDir
				}
				return nil
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}
