package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errNoDatabase = errors.New("no database connection")

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "Migrations directory (defaults to MIGRATIONS_PATH)")

	migrationsPath := func(a *app) string {
		if path != "" {
			return path
		}
		return a.cfg.Database.MigrationsPath
	}

	withDB := func(fn func(a *app) error) error {
		return ctx.withServices(func(a *app) error {
			if a.db == nil {
				return errNoDatabase
			}
			return fn(a)
		})
	}

	var target uint
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations, or migrate to --to",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(a *app) error {
				var err error
				if cmd.Flags().Changed("to") {
					err = a.db.MigrateToVersion(migrationsPath(a), target)
				} else {
					err = a.db.RunMigrations(migrationsPath(a))
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
				return nil
			})
		},
	}
	up.Flags().UintVar(&target, "to", 0, "Target schema version")

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(a *app) error {
				if err := a.db.MigrateDown(migrationsPath(a)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Rolled back one migration")
				return nil
			})
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(a *app) error {
				v, dirty, err := a.db.MigrationVersion(migrationsPath(a))
				if err != nil {
					return err
				}
				state := "clean"
				if dirty {
					state = "dirty"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d (%s)\n", v, state)
				return nil
			})
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}
