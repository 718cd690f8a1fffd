// Package cli implements the prefs command line tool: inspect and edit a
// durable preference store through typed entries.
package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

// EnvStore is consulted when --store is not given.
const EnvStore = "PREFS_STORE"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Store    string
	Defaults string
	Format   string // "json" | "text"
	Verbose  bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the prefs CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect and edit typed preference stores",
		Long: `Inspect and edit a preference store through typed entries.

Stores are addressed by URI:
  memory:                 throwaway in-memory store
  file:PATH               JSON, YAML or TOML document chosen by extension
  sqlite:PATH             SQLite database (sqlite::memory: for in-memory)
  PATH                    file or sqlite, inferred from the extension

When --store is omitted the ` + EnvStore + ` environment variable is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Store == "" {
				opts.Store = os.Getenv(EnvStore)
			}
			if opts.Store == "" {
				opts.Store = "memory:"
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Store, "store", "s", "", "store URI (defaults to $"+EnvStore+")")
	cmd.PersistentFlags().StringVar(&opts.Defaults, "defaults", "", "read-only file of registered defaults layered under the store")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log store activity to stderr")

	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewKeysCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}
