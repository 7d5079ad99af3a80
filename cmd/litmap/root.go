package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/litmap/internal/config"
	logpkg "github.com/kailas-cloud/litmap/internal/logger"
)

// NewRootCmd builds the litmap command tree.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "litmap",
		Short:         "Cluster scientific articles into labelled topics",
		Long:          `Fetches articles for a query, projects them to 2D and groups them into labelled clusters.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("env", "", "Config environment (defaults to $ENV, then local)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		NewServeCmd(),
		NewAnalyzeCmd(),
	)
	return rootCmd
}

// loadEnv reads the config and builds the logger for the selected environment.
func loadEnv(cmd *cobra.Command) (config.Config, *zap.Logger, string, error) {
	env, _ := cmd.Flags().GetString("env")
	if env == "" {
		env = config.GetEnv()
	}

	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, nil, "", err
	}

	level := cfg.Logging.Level
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		level = override
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return config.Config{}, nil, "", err
	}
	return cfg, logger, env, nil
}
