package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/empathy/internal/config"
	"github.com/okian/empathy/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:          "empathy",
	Short:        "Burnout-risk scoring and nudges",
	Long:         "empathy loads a weekly-activity snapshot, scores it with a trained classifier and derives rule-based nudges.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (overrides "+config.EnvConfigPath+")")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(generateCmd)
}

// loadConfig layers defaults, the --config file (or EMPATHY_CONFIG) and env,
// then initializes logging from the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	cfg, err := config.LoadFile(cmd.Context(), path)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(
		logger.WithWriter(cmd.ErrOrStderr()),
		logger.WithJSON(strings.EqualFold(cfg.LogFormat, "json")),
		logger.WithLevel(cfg.LogLevel),
	); err != nil {
		return nil, err
	}
	return cfg, nil
}
