package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cppla/threadsense/config"
	"github.com/cppla/threadsense/utils"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the ingest and saveData endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := utils.GenerateToken(config.Get().JWTSecret, tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "cli", "Token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
