package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/empathy/internal/config"
	"github.com/okian/empathy/internal/domain/model"
	"github.com/okian/empathy/internal/synth"
	"github.com/okian/empathy/pkg/logger"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic snapshot and a matching linear model",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runGenerate(cmd)
	},
}

func init() {
	defaults := config.New()
	generateCmd.Flags().Int("employees", synth.DefaultEmployees, "Number of employees")
	generateCmd.Flags().Int("weeks", synth.DefaultWeeks, "Number of consecutive weeks")
	generateCmd.Flags().Int64("seed", synth.DefaultSeed, "Random seed")
	generateCmd.Flags().String("start", "2024-01-01", "First week (YYYY-MM-DD)")
	generateCmd.Flags().String("data", defaults.DataPath, "Output CSV path")
	generateCmd.Flags().String("model", defaults.ModelPath, "Output model YAML path")
}

func runGenerate(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return err
	}
	log := logger.Get().Named("generate")

	employees, _ := cmd.Flags().GetInt("employees")
	weeks, _ := cmd.Flags().GetInt("weeks")
	seed, _ := cmd.Flags().GetInt64("seed")
	startRaw, _ := cmd.Flags().GetString("start")
	dataPath, _ := cmd.Flags().GetString("data")
	modelPath, _ := cmd.Flags().GetString("model")

	start, err := model.ParseWeek(startRaw)
	if err != nil {
		return err
	}

	records := synth.New(
		synth.WithEmployees(employees),
		synth.WithWeeks(weeks),
		synth.WithStart(start),
		synth.WithSeed(seed),
	).Records()

	var data bytes.Buffer
	if err := synth.WriteCSV(&data, records); err != nil {
		return err
	}
	if err := writeFile(dataPath, data.Bytes()); err != nil {
		return err
	}

	var m bytes.Buffer
	if err := synth.WriteModel(&m, synth.Model(records)); err != nil {
		return err
	}
	if err := writeFile(modelPath, m.Bytes()); err != nil {
		return err
	}

	log.Info(ctx, "synthetic snapshot written",
		logger.Int("records", len(records)),
		logger.String("data", dataPath),
		logger.String("model", modelPath),
		logger.String("first_week", start.Format(time.DateOnly)),
	)
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // generated demo data
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
