package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synthvault/catalog/internal/appdir"
	"github.com/synthvault/catalog/internal/config"
	"github.com/synthvault/catalog/internal/logging"
)

// Version is overridden by ldflags at build time.
var Version = "0.1.0"

var (
	dbPath     string
	jsonOutput bool
	configDir  string

	log *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sxv",
	Short: "sxv - local sysex patch catalog",
	Long:  `sxv manages a local, content-addressed catalog of hardware synth patches: ingestion, dedup, tagging, and filtered queries over a single SQLite file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configDir == "" {
			dataDir, err := appdir.DefaultDataDir()
			if err != nil {
				return fmt.Errorf("resolving config directory: %w", err)
			}
			configDir = dataDir
		}
		v, err := config.Load(configDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if !cmd.Flags().Changed("db") {
			if fromConfig := v.GetString(config.KeyDatabasePath); fromConfig != "" {
				dbPath = fromConfig
			}
		}
		logPath := v.GetString(config.KeyLogPath)
		if logPath == "" {
			logPath = configDir + "/sxv.log"
		}
		log = logging.New(logPath, v.GetInt(config.KeyLogMaxSizeMB))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file path (default: platform application-data directory)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output machine-readable JSON")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding config.yaml (default: platform application-data directory)")

	rootCmd.AddCommand(doctorCmd, watchCmd, backupCmd, restoreCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sxv version %s\n", Version)
	},
}

// cmdContext returns cmd's context, or context.Background() if none was
// set — cobra only populates Context() when a command runs through
// Execute/ExecuteContext, which unit tests invoking RunE directly skip.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func resolvedDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	path, err := appdir.DefaultDatabasePath()
	if err != nil {
		return ""
	}
	return path
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
