//-------------------------------------------------------------------------
//
// pgEdge Normalize
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-normalize.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-normalize/internal/config"
	"github.com/pgEdge/pgedge-normalize/internal/logging"
	"github.com/pgEdge/pgedge-normalize/internal/sink"
	"github.com/pgEdge/pgedge-normalize/pkg/version"
)

var (
	// Global flags
	cfgFile  string
	logLevel string

	// Output flags shared by normalize and schema
	outputSink       string
	outputConnection string
	outputPath       string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-normalize",
		Short: "Normalize a flat eCommerce transaction export into relational tables",
		Long: `pgedge-normalize reads a flat transaction export, one row per invoice
line as in the "Online Retail" dataset, and resolves it into customers,
products, invoices and invoice lines.

Missing customer identifiers are repaired from a country sentinel table,
each customer keeps the country of their latest transaction, each product
keeps its most frequent description, and every source row becomes exactly
one invoice line. The result is written to PostgreSQL, SQLite or a
directory of CSV files.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-normalize.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(sinksCmd)
	rootCmd.AddCommand(sentinelsCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return nil
}

// addOutputFlags registers the sink selection flags on cmd.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&outputSink, "sink", "",
		"output sink (postgres, sqlite, csv)")
	cmd.Flags().StringVar(&outputConnection, "connection", "",
		"PostgreSQL connection string (postgres sink)")
	cmd.Flags().StringVar(&outputPath, "output", "",
		"database file (sqlite sink) or directory (csv sink)")
}

func applyOutputFlags() {
	if outputSink != "" {
		cfg.Output.Sink = outputSink
	}
	if outputConnection != "" {
		cfg.Output.Connection = outputConnection
	}
	if outputPath != "" {
		cfg.Output.Path = outputPath
	}
}

func openSink(ctx context.Context) (sink.Sink, error) {
	return sink.Open(ctx, cfg.Output.Sink, sink.Options{
		Connection: cfg.Output.Connection,
		Path:       cfg.Output.Path,
	})
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logging.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

var sinksCmd = &cobra.Command{
	Use:   "sinks",
	Short: "List available output sinks",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("Available sinks:")
		cmd.Println()
		for _, name := range sink.List() {
			desc, _ := sink.Describe(name)
			cmd.Printf("  %-9s - %s\n", name, desc)
		}
	},
}

var sentinelsCmd = &cobra.Command{
	Use:   "sentinels",
	Short: "Print the active country sentinel table",
	Long: `Print the table used to repair transactions that have no customer
identifier. Every such transaction is assigned the sentinel of its country;
countries missing from the table receive the default sentinel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := cfg.BuildPolicy()
		if err != nil {
			return err
		}
		cmd.Println("Country sentinels:")
		cmd.Println()
		for _, s := range policy.Sentinels.Entries() {
			cmd.Printf("  %-16s %d\n", s.Country, s.ID)
		}
		cmd.Println()
		cmd.Printf("  %-16s %d\n", "(default)", policy.Sentinels.Default())
		return nil
	},
}
