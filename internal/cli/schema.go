package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mrlokans/biblioteca/internal/config"
	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/authors"
	"github.com/mrlokans/biblioteca/internal/database/books"
	"github.com/mrlokans/biblioteca/internal/database/editions"
	"github.com/mrlokans/biblioteca/internal/database/genres"
	"github.com/mrlokans/biblioteca/internal/database/groups"
	"github.com/mrlokans/biblioteca/internal/database/history"
	"github.com/mrlokans/biblioteca/internal/database/languages"
	"github.com/mrlokans/biblioteca/internal/database/loans"
	"github.com/mrlokans/biblioteca/internal/database/locations"
	"github.com/mrlokans/biblioteca/internal/database/members"
	"github.com/mrlokans/biblioteca/internal/database/publishers"
	"github.com/mrlokans/biblioteca/internal/database/query"
	"github.com/mrlokans/biblioteca/internal/database/users"
)

// Descriptors lists every entity the service reads and writes.
var Descriptors = []*query.Descriptor{
	books.Descriptor,
	authors.Descriptor,
	publishers.Descriptor,
	genres.Descriptor,
	languages.Descriptor,
	loans.Descriptor,
	users.Descriptor,
	groups.Descriptor,
	members.Descriptor,
	locations.Descriptor,
	history.Descriptor,
	editions.Descriptor,
	editions.ParentDescriptor,
}

func newSchemaCommand(cfg *config.Config) *cobra.Command {
	schema := &cobra.Command{
		Use:   "schema",
		Short: "Inspect or bootstrap the database schema",
	}

	inspect := &SchemaInspectCommand{}
	schema.AddCommand(&cobra.Command{
		Use:   "inspect",
		Short: "Show how every entity maps onto the current database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			inspect.Out = cmd.OutOrStdout()
			return inspect.Run(cmd.Context(), db)
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the reference schema (existing tables are kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := InitSchema(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reference schema applied (%s)\n", db.Dialect.Name())
			return nil
		},
	}
	schema.AddCommand(initCmd)
	return schema
}

// SchemaInspectCommand prints, per entity, the table, key and column
// mapping the resolver picks for the live schema.
type SchemaInspectCommand struct {
	Out io.Writer
}

// Run reports every entity, including the ones that fail to resolve, and
// returns an error when any did.
func (cmd *SchemaInspectCommand) Run(ctx context.Context, db *database.Database) error {
	resolver, err := query.ResolverFor(db)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.Out, 0, 4, 2, ' ', 0)
	failed := 0
	for _, d := range Descriptors {
		t, err := resolver.Resolve(ctx, d)
		var resErr *query.ResolutionError
		if errors.As(err, &resErr) {
			failed++
			fmt.Fprintf(w, "%s\tUNRESOLVED\t%s\n\n", d.Entity, resErr.Error())
			continue
		}
		if err != nil {
			return err
		}
		printTable(w, t)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d entities do not match the schema", failed, len(Descriptors))
	}
	return nil
}

func printTable(w io.Writer, t *query.Table) {
	key := t.Key.Strategy.String()
	if t.Key.Sequence != "" {
		key += " " + t.Key.Sequence
	}
	fmt.Fprintf(w, "%s\t%s\tkey %s (%s)\n", t.Desc.Entity, t.Name, t.Key.Column, key)
	for _, c := range t.Columns {
		if !c.Present() {
			fmt.Fprintf(w, "\t%s\t-\n", c.Name)
			continue
		}
		fmt.Fprintf(w, "\t%s\t%s %s\n", c.Name, c.Physical, c.Class)
	}
	fmt.Fprintln(w)
}

// InitSchema applies the bundled reference schema for the database's driver.
func InitSchema(ctx context.Context, db *database.Database) error {
	ddl, err := database.ReferenceSchema(db.Dialect.Name())
	if err != nil {
		return err
	}
	if err := db.ApplySchema(ctx, ddl); err != nil {
		return fmt.Errorf("apply reference schema: %w", err)
	}
	log.Info().Str("driver", string(db.Dialect.Name())).Msg("Reference schema applied")
	return nil
}
