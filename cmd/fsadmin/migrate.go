package main

import (
	"fmt"

	"fileshare/internal/app"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.DB.AutoMigrate = true
		return withApp(cmd.Context(), func(a *app.App) error {
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
