// Package cli defines the biblioteca command line. Running the binary
// without a subcommand starts the HTTP server.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/biblioteca/internal/config"
	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/logging"
)

// NewRootCommand builds the command tree. Configuration is read from the
// environment once, before any subcommand runs.
func NewRootCommand(version string) *cobra.Command {
	cfg := &config.Config{}
	serve := NewServeCommand(cfg, version)

	root := &cobra.Command{
		Use:           "biblioteca",
		Short:         "Library management service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			*cfg = *config.NewConfig()
			logging.Setup(cfg.Log)
			return nil
		},
		RunE: serve.RunE,
	}

	root.AddCommand(serve, newSchemaCommand(cfg), newUserCommand(cfg))
	return root
}

// openDatabase validates the database settings and connects.
func openDatabase(cfg *config.Config) (*database.Database, error) {
	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}
	return database.NewDatabase(cfg.Database)
}
