package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var version = "dev"

// noColor disables ANSI colors in CLI output.
var noColor bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "talentflow",
		Short:         "Hiring pipeline service and client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv("NO_COLOR") != "" {
				noColor = true
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg.Log.Level)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newServeCmd(),
		newStopCmd(),
		newStatusCmd(),
		newMCPCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newJobsCmd(),
		newCandidatesCmd(),
		newAssessmentCmd(),
		newConfigCmd(),
	)
	return root
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
