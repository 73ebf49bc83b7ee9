package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cppla/threadsense/config"
	"github.com/cppla/threadsense/utils"
)

var (
	flagSort    string
	flagTime    string
	flagLimit   int
	flagKeyword string
	flagNoScore bool
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch, score and store subreddit threads",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return utils.InitLogger(config.Load())
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// addRunFlags registers the selectors shared by fetch and run.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagSort, "sort", "hot", "Listing order: hot, new, top, controversial, rising")
	cmd.Flags().StringVar(&flagTime, "time", "all", "Time window for top and controversial")
	cmd.Flags().IntVar(&flagLimit, "limit", 1, "Number of posts to fetch (max 100)")
	cmd.Flags().StringVar(&flagKeyword, "keyword", "", "Search the subreddit instead of listing it")
	cmd.Flags().BoolVar(&flagNoScore, "no-score", false, "Skip the scoring service")
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
