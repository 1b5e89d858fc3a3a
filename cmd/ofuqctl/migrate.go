package main

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"ofuq-backend/internal/config"
	"ofuq-backend/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := openPool()
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := database.RunMigrations(pool, database.Migrations()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Database migrations applied")
		return nil
	},
}

func openPool() (*pgxpool.Pool, error) {
	url, err := config.Require("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	return database.NewPostgresPool(url)
}
