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
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dailygarden",
		Short:         "Collect a daily corpus of news and knowledge, and summarize it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml, then the XDG config dir)")

	root.AddCommand(collectCmd())
	root.AddCommand(reportCmd())
	root.AddCommand(wrapupCmd())
	root.AddCommand(summarizeCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func collectCmd() *cobra.Command {
	var sources string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run one collection cycle and merge it into today's corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd.Context(), cmd.OutOrStdout(), sources)
		},
	}

	cmd.Flags().StringVar(&sources, "source", "", "comma separated sources to collect (hn,world,local,wiki,apod)")
	return cmd
}

func reportCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the Markdown report for a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), cmd.OutOrStdout(), date)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to render, YYYY-MM-DD (default: today)")
	return cmd
}

func wrapupCmd() *cobra.Command {
	var force, dryRun bool

	cmd := &cobra.Command{
		Use:   "wrapup",
		Short: "Build and send the evening wrap-up",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrapup(cmd.Context(), cmd.OutOrStdout(), force, dryRun)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "send regardless of the configured hour")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the wrap-up instead of sending it")
	return cmd
}

func summarizeCmd() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "summarize [file|-]",
		Short: "Summarize text from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runSummarize(cmd.InOrStdin(), cmd.OutOrStdout(), path, n)
		},
	}

	cmd.Flags().IntVarP(&n, "sentences", "n", 3, "maximum sentences in the summary")
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
	var (
		port       int
		runOnStart bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), port, runOnStart)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", true, "collect once immediately")
	return cmd
}
