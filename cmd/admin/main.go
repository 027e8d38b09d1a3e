// Package main provides the operator CLI for accounts, demo data and form editing.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tfgRecruit/internal/config"
	"tfgRecruit/internal/database"
	"tfgRecruit/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Recruitment CRM administration",
	Long:          "Create reviewer accounts, seed demo data and edit stored application forms.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables and seed default email templates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := openStore(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "database migrated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore connects with the environment configuration and migrates before returning.
func openStore() (*store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return store.New(db), nil
}
