package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-live/internal/platform/migrations"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), opts, func(m *migrations.Migrator) error {
				return m.Up(cmd.Context())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), opts, func(m *migrations.Migrator) error {
				return m.Down(cmd.Context())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), opts, func(m *migrations.Migrator) error {
				statuses, err := m.Status(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied"
					}
					_, _ = fmt.Fprintf(out, "%05d  %-8s %s\n", s.Version, state, s.Path)
				}
				return nil
			})
		},
	})

	return cmd
}

// withMigrator opens the configured database for the length of fn.
func withMigrator(ctx context.Context, opts *rootOptions, fn func(*migrations.Migrator) error) error {
	db, err := openDatabase(ctx, opts.config.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	m, err := migrations.New(opts.config.Database.Driver, db, opts.logger)
	if err != nil {
		return err
	}
	return fn(m)
}
