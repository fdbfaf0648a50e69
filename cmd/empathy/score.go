package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/empathy/internal/adapters/export"
	"github.com/okian/empathy/internal/adapters/repository"
	service "github.com/okian/empathy/internal/app"
	"github.com/okian/empathy/internal/domain/model"
	"github.com/okian/empathy/internal/domain/types"
	"github.com/okian/empathy/pkg/logger"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score the snapshot once and print a summary",
	Long: "score validates, scores and derives nudges for the configured snapshot, prints a JSON summary " +
		"and, with --out, writes the high-risk rows of the selected week as CSV.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runScore(cmd)
	},
}

func init() {
	scoreCmd.Flags().String("week", "", "Week (YYYY-MM-DD) to export; defaults to the latest week")
	scoreCmd.Flags().String("out", "", "Directory to write high_risk_<week>.csv into")
}

type scoreReport struct {
	Summary  types.LoadSummary `json:"summary"`
	Week     string            `json:"week,omitempty"`
	HighRisk int               `json:"high_risk,omitempty"`
	Export   string            `json:"export,omitempty"`
}

func runScore(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.Get()

	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	sum, err := svc.Load(ctx)
	if err != nil {
		return err
	}
	report := scoreReport{Summary: sum}

	if dir, _ := cmd.Flags().GetString("out"); dir != "" {
		week, _ := cmd.Flags().GetString("week")
		if err := checkWeek(ctx, svc, week); err != nil {
			return err
		}
		w, rows, err := svc.HighRiskRows(ctx, repository.Filter{Week: week})
		if err != nil {
			return err
		}
		path, err := writeExport(dir, w, rows)
		if err != nil {
			return err
		}
		report.Week, report.HighRisk, report.Export = w, len(rows), path
		log.Info(ctx, "high-risk export written", logger.String("path", path), logger.Int("rows", len(rows)))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// checkWeek accepts an empty week or one present in the loaded snapshot.
func checkWeek(ctx context.Context, svc *service.Service, week string) error {
	if week == "" {
		return nil
	}
	if _, err := model.ParseWeek(week); err != nil {
		return err
	}
	opts, err := svc.Filters(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(opts.Weeks, week) {
		return fmt.Errorf("week %s is not in the snapshot", week)
	}
	return nil
}

func writeExport(dir, week string, rows []types.RiskRow) (string, error) {
	name := export.HighRiskFileName(week)
	if filepath.Base(name) != name || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid export week %q", week)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export: %w", err)
	}
	if err := export.WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}
