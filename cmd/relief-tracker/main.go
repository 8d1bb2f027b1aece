// Command relief-tracker turns receipt images into tax-relief ledger entries.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/relief-tracker/internal/app"
	"github.com/joseph-ayodele/relief-tracker/internal/common"
)

const appName = "relief-tracker"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globals struct {
	logLevel  string
	logFormat string
	envFile   string
	logger    *slog.Logger
}

func rootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Receipt to tax-relief pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(g.envFile); err != nil && cmd.Flags().Changed("env-file") {
				return fmt.Errorf("load %s: %w", g.envFile, err)
			}
			g.logger = newLogger(g.logLevel, g.logFormat)
			slog.SetDefault(g.logger)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "json", "Log format (json, text)")
	cmd.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "Environment file loaded before configuration")

	cmd.AddCommand(
		serveCmd(g),
		processCmd(g),
		summaryCmd(g),
		exportCmd(g),
		rulesCmd(g),
	)
	return cmd
}

func newLogger(level, format string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// withApp runs fn with an assembled App and a context cancelled on SIGINT/SIGTERM.
func (g *globals) withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, common.LoadConfig(), g.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
