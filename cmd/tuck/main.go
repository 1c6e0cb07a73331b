// Command tuck is the secret-management core of the dotfile sync tool:
// scanning tracked files for credentials, redacting them behind placeholder
// tokens, and restoring them from credential backends on a new machine.
package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Pranav-Karra-3301/tuck/internal/audit"
	"github.com/Pranav-Karra-3301/tuck/internal/backend"
	"github.com/Pranav-Karra-3301/tuck/internal/cache"
	"github.com/Pranav-Karra-3301/tuck/internal/config"
	"github.com/Pranav-Karra-3301/tuck/internal/keystore"
	"github.com/Pranav-Karra-3301/tuck/internal/logging"
	"github.com/Pranav-Karra-3301/tuck/internal/resolver"
)

// Version information, set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	flagDir     string
	flagVerbose bool

	rootCmd = &cobra.Command{
		Use:           "tuck",
		Short:         "Keep secrets out of your synced dotfiles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDir, "dir", "C", ".", "directory holding the .tuck configuration")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(redactCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(secretsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log := logging.NewStderr("info", false)
		log.Error().Err(err).Msg("tuck failed")
		os.Exit(1)
	}
}

// env bundles the per-invocation collaborators the commands share.
type env struct {
	cfg   *config.Config
	log   zerolog.Logger
	audit audit.Recorder
}

func loadEnv() (*env, error) {
	cfg, err := config.Load(flagDir)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if flagVerbose {
		level = "debug"
	}
	log := logging.NewStderr(level, cfg.Logging.JSON)

	rec, err := audit.NewLogger(audit.Config{
		Enabled: cfg.Audit.Enabled,
		Level:   cfg.Audit.Level,
		Output:  cfg.Audit.Output,
	})
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, log: log, audit: rec}, nil
}

// newResolver wires the backends, mapping table, and cache for one command
// invocation.
func (e *env) newResolver() (*resolver.Resolver, *backend.MappingTable, *keystore.Keystore, error) {
	ks, err := keystore.New(e.cfg.KeystorePathIn(flagDir), e.log)
	if err != nil {
		return nil, nil, nil, err
	}
	mapping, err := backend.LoadMappingTable(e.cfg.MappingPathIn(flagDir))
	if err != nil {
		return nil, nil, nil, err
	}

	timeout := time.Duration(e.cfg.Secrets.BackendTimeout) * time.Second
	backends := map[string]backend.Backend{
		resolver.BackendKeystore:    ks,
		resolver.BackendOnePassword: backend.NewOnePassword(timeout),
		resolver.BackendBitwarden:   backend.NewBitwarden(timeout),
	}

	r := resolver.New(backends, mapping, cache.New(), e.cfg.Secrets.Backend, e.log)
	return r, mapping, ks, nil
}
