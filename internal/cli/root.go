// Package cli implements the logweave command line.
package cli

import (
	"fmt"

	"github.com/cdtdelta/logweave/internal/config"
	"github.com/cdtdelta/logweave/internal/database"
	"github.com/cdtdelta/logweave/internal/logger"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Format     string // "json" | "text"

	// Config is loaded before any subcommand runs.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the logweave CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "logweave",
		Short: "logweave - classify and search structured logs",
		Long: `logweave loads structured log files, derives new columns with
flag and state rules, searches records, and finds runs of records that
match an example-based structure.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.load()
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default: $HOME/.logweave.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewMatchCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewRulesCommand(opts))
	cmd.AddCommand(NewStructuresCommand(opts))
	cmd.AddCommand(NewSearchesCommand(opts))

	return cmd
}

// load reads the configuration and initialises logging.
func (o *RootOptions) load() error {
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if o.Verbose {
		level = "debug"
	}
	if err := logger.Init(level, cfg.Log.Development); err != nil {
		return err
	}
	o.Config = cfg
	return nil
}

// openStore opens the configured database.
func (o *RootOptions) openStore() (database.Store, error) {
	if o.Config == nil {
		if err := o.load(); err != nil {
			return nil, err
		}
	}
	store, err := database.OpenStore(o.Config.Database.Driver, o.Config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return store, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
