package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/bizops/internal/platform/db"
	"github.com/odyssey-erp/bizops/migrations"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	run := func(fn func(cmd *cobra.Command, m *db.Migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd)
			pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			m, err := db.NewMigrator(pool, migrations.FS, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := m.Close(); err != nil {
					logger.Warn("migrator close", slog.Any("error", err))
				}
			}()
			return fn(cmd, m, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: run(func(_ *cobra.Command, m *db.Migrator, _ []string) error {
				return m.Up()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			Args:  cobra.NoArgs,
			RunE: run(func(_ *cobra.Command, m *db.Migrator, _ []string) error {
				return m.Down()
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: run(func(cmd *cobra.Command, m *db.Migrator, _ []string) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out(cmd), "version=%d dirty=%t\n", version, dirty)
				return err
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Mark a version as applied and clear the dirty flag",
			Args:  cobra.ExactArgs(1),
			PreRunE: func(_ *cobra.Command, args []string) error {
				_, err := parseVersion(args[0])
				return err
			},
			RunE: run(func(_ *cobra.Command, m *db.Migrator, args []string) error {
				version, _ := parseVersion(args[0])
				return m.Force(version)
			}),
		},
	)
	return cmd
}

func parseVersion(raw string) (int, error) {
	version, err := strconv.Atoi(raw)
	if err != nil || version < -1 {
		return 0, fmt.Errorf("invalid migration version %q", raw)
	}
	return version, nil
}
