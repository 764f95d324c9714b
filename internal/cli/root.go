// Package cli wires the pipeline commands together. Each command opens
// its own application context (config + store + collaborators) and
// closes it when done.
package cli

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pipeline-crm/pipeline/internal/audit"
	"github.com/pipeline-crm/pipeline/internal/config"
	"github.com/pipeline-crm/pipeline/internal/store"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/pipeline-crm/pipeline/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"   ___  (_)___  ___ / (_)__  ___\n" +
		"  / _ \\/ / __ \\/ -_) / / _ \\/ -_)\n" +
		" / .__/_/ .__/\\__/_/_/_//_/\\__/\n" +
		"/_/    /_/\n"

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "pipeline - personal CRM automation",
	Long:  color.CyanString(logo) + "\nEvent-driven agents for a personal CRM: hooks, schedules, and human-approved actions.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pipeline version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("pipeline %s\n", version)
	},
}

// Execute runs the root command and records the invocation in the
// audit log.
func Execute() error {
	start := time.Now()
	err := rootCmd.Execute()
	recordInvocation(os.Args[1:], time.Since(start), err)
	return err
}

// auditableCommand reports whether a command invocation is worth an
// audit row. Reading the log, help, and version are not.
func auditableCommand(path string) bool {
	switch {
	case path == "", path == "help", path == "version":
		return false
	case path == "audit" || strings.HasPrefix(path, "audit "):
		return false
	case path == "completion" || strings.HasPrefix(path, "completion "):
		return false
	}
	return true
}

// recordInvocation writes one actor=human audit row for a finished
// command. Best effort: a failure to record never changes the exit.
func recordInvocation(argv []string, duration time.Duration, runErr error) {
	cmd, args, err := rootCmd.Find(argv)
	if err != nil || cmd == rootCmd {
		return
	}
	path := strings.TrimPrefix(cmd.CommandPath(), rootCmd.Name()+" ")
	if !auditableCommand(path) {
		return
	}

	cfg, err := config.Load()
	if err != nil {
		return
	}
	st, err := store.Open(cfg.Pipeline.DBPath)
	if err != nil {
		return
	}
	defer st.Close()

	entry := store.AuditInput{
		Actor:      "human",
		Command:    path,
		Args:       strings.Join(args, " "),
		DurationMs: duration.Milliseconds(),
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	audit.NewLogger(st).Record(entry)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(versionCmd)
}
