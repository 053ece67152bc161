package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskgenie/internal/config"
)

var (
	configPath string
	debugLog   bool

	// appConfig is loaded before any subcommand runs.
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "taskgenie",
	Short: "Work item readiness evaluation and decomposition",
	Long: `Task Genie checks Azure DevOps work items against a readiness rubric
and breaks ready items down into child work items.

  Epic                       -> Features
  Feature                    -> User Stories (Product Backlog Items on Scrum)
  User Story / Backlog Item  -> Tasks

Guidance comes from a local knowledge base of process and domain documents
(see "taskgenie kb"). Items that are not ready get a feedback comment instead.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			appConfig, err = config.LoadFromPath(configPath)
		} else {
			appConfig, err = config.Load()
		}
		if err != nil {
			return err
		}
		slog.SetDefault(newLogger(appConfig.Log, debugLog))
		return nil
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user and project config)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the root logger writing to stderr.
func newLogger(cfg config.LogConfig, debug bool) *slog.Logger {
	level := parseLevel(cfg.Level)
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
