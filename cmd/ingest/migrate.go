package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cppla/threadsense/app"
	"github.com/cppla/threadsense/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the posts and comments tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		db, err := config.InitDatabase(cfg, app.Models()...)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.DBDriver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
