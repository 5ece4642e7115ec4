// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the jobstream CLI and server.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/jobstream/internal/secrets"
	"github.com/pdiddy/jobstream/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg and logger are populated by the root command before any subcommand runs.
var (
	cfg    types.Config
	logger *slog.Logger
)

// rootCmd is the base command for the jobstream CLI.
var rootCmd = &cobra.Command{
	Use:   "jobstream",
	Short: "Search several job boards at once and stream the results",
	Long: `jobstream queries job platforms (Adzuna, Remotive, Arbeitnow, We Work
Remotely) in parallel, filters and deduplicates their postings, and delivers
them as they arrive.

Run "jobstream serve" to expose the streaming HTTP API, or "jobstream search"
to search from the terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir)
		if err != nil {
			return err
		}
		secrets.Apply(s, &loaded)
		cfg = loaded

		logger, err = newLogger(cfg.Log, os.Stderr)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./jobstream.yaml or ~/.config/jobstream/jobstream.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of one-file-per-key secrets")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// A missing .env is normal; values may come from the real environment.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("jobstream")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "jobstream"))
		}
	}

	viper.SetEnvPrefix("JOBSTREAM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
