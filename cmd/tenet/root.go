// Package tenet implements the tenet command line interface.
package tenet

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	tenetlib "github.com/tenetdb/tenet"
	"github.com/tenetdb/tenet/pkg/config"
	"github.com/tenetdb/tenet/pkg/telemetry"
)

var (
	cfgFile     string
	projectPath string

	rootCmd = &cobra.Command{
		Use:   "tenet",
		Short: "Tenet: a local-first fact store for coding agents",
		Long: `Tenet distills conversation transcripts into atomic facts, maintains them
under a truth-maintenance policy and serves them back with provenance.

Facts live in per-project SQLite databases plus a global store for user-wide
preferences.`,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tenet.yaml)")
	rootCmd.PersistentFlags().StringVar(&projectPath, "project", "", "project path (default is the current directory)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tenet")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// resolveProject returns the project path from the flag or the working
// directory.
func resolveProject() (string, error) {
	if projectPath != "" {
		return projectPath, nil
	}
	return os.Getwd()
}

// newLogger builds the process logger from config: text or JSON to stderr,
// with error records mirrored to parquet when telemetry is configured.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level := parseLevel(cfg.Log.Level)

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	if cfg.Telemetry.ParquetPath != "" {
		ph, err := telemetry.NewParquetHandler(handler, cfg.Telemetry.ParquetPath)
		if err != nil {
			return nil, err
		}
		handler = ph
	}
	return slog.New(handler), nil
}

func parseLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newClient builds a client from config for commands that operate on the
// stores. The caller must Close it.
func newClient() (*tenetlib.Client, *config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	project, err := resolveProject()
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := tenetlib.NewClientFromConfig(cfg, project, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return client, cfg, logger, nil
}
