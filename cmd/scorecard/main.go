package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scorecard",
		Short:         "Rank funded companies on the Golden-Triangle scorecard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./scorecard.yaml)")

	root.AddCommand(scoreCmd())
	root.AddCommand(enrichCmd())
	root.AddCommand(cacheCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

type scoreFlags struct {
	input  string
	output string
	enrich bool
	cutoff int
	json   bool
	table  bool
}

func scoreCmd() *cobra.Command {
	var f scoreFlags

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a funding-rounds CSV and write the scorecard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&f.input, "input", "i", "", "funding rounds CSV, - for stdin (default: from config)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output path, - for stdout (default: from config, else scorecard_YYYYMMDD.csv)")
	cmd.Flags().BoolVar(&f.enrich, "enrich", false, "fetch language count and rating (default: from config)")
	cmd.Flags().IntVar(&f.cutoff, "featured", 0, "featured rank cutoff (default: from config)")
	cmd.Flags().BoolVar(&f.json, "json", false, "write JSON instead of CSV")
	cmd.Flags().BoolVar(&f.table, "table", false, "print a table to stdout instead of writing a file")
	cmd.MarkFlagsMutuallyExclusive("json", "table")
	return cmd
}

func enrichCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "enrich [company...]",
		Short: "Warm the enrichment cache for named companies or every company in the input",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrich(cmd.Context(), input, args)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "funding rounds CSV (default: from config)")
	return cmd
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the enrichment cache",
	}

	var jsonOutput bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List cached enrichment records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheList(cmd.Context(), jsonOutput)
		},
	}
	list.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rm := &cobra.Command{
		Use:   "rm <company>...",
		Short: "Remove cached records so the next run fetches again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheRemove(cmd.Context(), args)
		},
	}

	cmd.AddCommand(list, rm)
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
