package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cppla/threadsense/app"
	"github.com/cppla/threadsense/config"
	"github.com/cppla/threadsense/pipeline"
)

func requestFor(subreddit string) pipeline.Request {
	return pipeline.Request{
		Subreddit: subreddit,
		Sort:      flagSort,
		Time:      flagTime,
		Limit:     flagLimit,
		Keyword:   flagKeyword,
		Search:    flagKeyword != "",
	}
}

func runContext(cmd *cobra.Command, cfg config.AppConfig) (context.Context, context.CancelFunc) {
	if d := cfg.PipelineTimeout(); d > 0 {
		return context.WithTimeout(cmd.Context(), d)
	}
	return context.WithCancel(cmd.Context())
}

type ingester interface {
	Ingest(ctx context.Context, req pipeline.Request) (*pipeline.IngestResult, error)
}

// ingestAndReport prints a one-line summary plus one line per failed record,
// and fails when any record could not be written.
func ingestAndReport(ctx context.Context, cmd *cobra.Command, ing ingester, req pipeline.Request) error {
	res, err := ing.Ingest(ctx, req)
	if err != nil {
		return err
	}
	r := res.Report
	fmt.Fprintf(cmd.OutOrStdout(), "run %s r/%s: posts %d new, %d existing; comments %d new, %d existing, %d skipped; %d errors\n",
		res.Batch.RunID, res.Batch.Subreddit,
		r.PostsWritten, r.PostsExisting,
		r.CommentsWritten, r.CommentsExisting, r.CommentsSkipped,
		len(r.Errors))
	for _, e := range r.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", e.Error())
	}
	if r.Failed() {
		return fmt.Errorf("%d records failed to write", len(r.Errors))
	}
	return nil
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <subreddit>",
	Short: "Fetch and score a batch, print it as JSON without storing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		ctx, cancel := runContext(cmd, cfg)
		defer cancel()

		a, err := app.Build(ctx, cfg, app.Options{NoScoring: flagNoScore})
		if err != nil {
			return err
		}
		defer a.Close()

		batch, err := a.Orchestrator.Run(ctx, requestFor(args[0]))
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), batch)
	},
}

var runCmd = &cobra.Command{
	Use:   "run <subreddit>",
	Short: "Fetch, score and store a batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		ctx, cancel := runContext(cmd, cfg)
		defer cancel()

		a, err := app.Build(ctx, cfg, app.Options{WithDB: true, NoScoring: flagNoScore})
		if err != nil {
			return err
		}
		defer a.Close()

		return ingestAndReport(ctx, cmd, a.Orchestrator, requestFor(args[0]))
	},
}

func init() {
	addRunFlags(fetchCmd)
	addRunFlags(runCmd)
	rootCmd.AddCommand(fetchCmd, runCmd)
}
