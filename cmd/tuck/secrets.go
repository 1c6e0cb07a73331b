package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Pranav-Karra-3301/tuck/internal/keystore"
	"github.com/Pranav-Karra-3301/tuck/internal/resolver"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage the local encrypted keystore",
}

var secretsSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Store a secret under a placeholder name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.audit.Close()

		_, mapping, ks, err := e.newResolver()
		if err != nil {
			return err
		}
		name := args[0]
		if err := ks.Store(keystore.DefaultService, name, args[1]); err != nil {
			return err
		}
		mapping.SetBackendPath(name, resolver.BackendKeystore, keystore.DefaultService+"/"+name)
		if err := mapping.Save(); err != nil {
			return err
		}
		e.audit.MappingUpdated(name, resolver.BackendKeystore)
		fmt.Printf("stored %s\n", name)
		return nil
	},
}

var secretsGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Resolve a placeholder name and print its value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.audit.Close()

		r, _, _, err := e.newResolver()
		if err != nil {
			return err
		}
		defer r.Lock()

		rs, err := r.ResolveSecret(cmd.Context(), args[0], resolver.Options{
			Backend:        flagBackend,
			NonInteractive: flagNonInteractive,
		})
		if err != nil {
			return err
		}
		if rs == nil {
			return fmt.Errorf("no backend has a value for %s", args[0])
		}
		e.audit.SecretResolved(rs.Name, rs.Backend, rs.Cached)
		fmt.Println(rs.Value)
		return nil
	},
}

var secretsRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a secret from the local keystore",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.audit.Close()

		_, mapping, ks, err := e.newResolver()
		if err != nil {
			return err
		}
		name := args[0]
		if err := ks.Delete(keystore.DefaultService, name); err != nil {
			return err
		}
		mapping.Remove(name)
		if err := mapping.Save(); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", name)
		return nil
	},
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List placeholder names in the local keystore",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.audit.Close()

		_, _, ks, err := e.newResolver()
		if err != nil {
			return err
		}
		names := ks.List(keystore.DefaultService)
		sort.Strings(names)
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

func init() {
	secretsGetCmd.Flags().StringVar(&flagBackend, "backend", "", "resolve through this backend only")
	secretsGetCmd.Flags().BoolVar(&flagNonInteractive, "non-interactive", false, "fail instead of starting an authentication flow")

	secretsCmd.AddCommand(secretsSetCmd)
	secretsCmd.AddCommand(secretsGetCmd)
	secretsCmd.AddCommand(secretsRmCmd)
	secretsCmd.AddCommand(secretsListCmd)
}
