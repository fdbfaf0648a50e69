package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/empathy/internal/config"
	"github.com/okian/empathy/internal/synth"
	"github.com/okian/empathy/pkg/logger"
	"github.com/okian/empathy/pkg/metrics"
)

func run(args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGenerateAndScore(t *testing.T) {
	convey.Convey("Given a generated snapshot", t, func() {
		dir := t.TempDir()
		dataPath := filepath.Join(dir, "data", "weekly.csv")
		modelPath := filepath.Join(dir, "models", "linear.yaml")
		outDir := filepath.Join(dir, "out")

		_, err := run("generate",
			"--employees", "15",
			"--weeks", "2",
			"--seed", "3",
			"--data", dataPath,
			"--model", modelPath,
		)
		convey.So(err, convey.ShouldBeNil)
		_, err = os.Stat(dataPath)
		convey.So(err, convey.ShouldBeNil)
		_, err = os.Stat(modelPath)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When scoring it with an export directory", func() {
			t.Setenv(config.EnvPrefix+"DATA_PATH", dataPath)
			t.Setenv(config.EnvPrefix+"MODEL_PATH", modelPath)
			out, err := run("score", "--out", outDir, "--week", "")

			convey.Convey("Then a summary is printed and the CSV written", func() {
				convey.So(err, convey.ShouldBeNil)

				var report scoreReport
				convey.So(json.Unmarshal([]byte(out), &report), convey.ShouldBeNil)
				convey.So(report.Summary.Records, convey.ShouldEqual, 30)
				convey.So(report.Summary.Weeks, convey.ShouldEqual, 2)
				convey.So(report.Week, convey.ShouldEqual, report.Summary.LatestWeek)
				convey.So(report.Export, convey.ShouldEqual, filepath.Join(outDir, "high_risk_"+report.Week+".csv"))

				f, err := os.Open(report.Export)
				convey.So(err, convey.ShouldBeNil)
				defer f.Close()
				lines, err := csv.NewReader(f).ReadAll()
				convey.So(err, convey.ShouldBeNil)
				convey.So(lines, convey.ShouldHaveLength, report.HighRisk+1)
			})
		})

		convey.Convey("When the export week is not a plain date", func() {
			t.Setenv(config.EnvPrefix+"DATA_PATH", dataPath)
			t.Setenv(config.EnvPrefix+"MODEL_PATH", modelPath)
			_, err := run("score", "--out", outDir, "--week", "../../escaped")

			convey.Convey("Then scoring fails and nothing is written outside the export dir", func() {
				convey.So(err, convey.ShouldNotBeNil)
				matches, _ := filepath.Glob(filepath.Join(dir, "..", "*escaped*"))
				convey.So(matches, convey.ShouldBeEmpty)
				_, statErr := os.Stat(outDir)
				convey.So(os.IsNotExist(statErr), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the export week is absent from the snapshot", func() {
			t.Setenv(config.EnvPrefix+"DATA_PATH", dataPath)
			t.Setenv(config.EnvPrefix+"MODEL_PATH", modelPath)
			_, err := run("score", "--out", outDir, "--week", "1999-01-04")

			convey.Convey("Then scoring fails before exporting", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "1999-01-04")
				_, statErr := os.Stat(filepath.Join(outDir, "high_risk_1999-01-04.csv"))
				convey.So(os.IsNotExist(statErr), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the model file is missing", func() {
			t.Setenv(config.EnvPrefix+"DATA_PATH", dataPath)
			t.Setenv(config.EnvPrefix+"MODEL_PATH", filepath.Join(dir, "missing.yaml"))
			_, err := run("score")

			convey.Convey("Then scoring fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestWriteExport(t *testing.T) {
	convey.Convey("Given an export directory", t, func() {
		root := t.TempDir()
		dir := filepath.Join(root, "out")

		convey.Convey("When the week would leave the directory", func() {
			_, err := writeExport(dir, "../../escaped", nil)

			convey.Convey("Then nothing is created", func() {
				convey.So(err, convey.ShouldNotBeNil)
				entries, _ := os.ReadDir(root)
				convey.So(entries, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the week is a date", func() {
			path, err := writeExport(dir, "2024-01-08", nil)

			convey.Convey("Then the file lands inside the directory", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(path, convey.ShouldEqual, filepath.Join(dir, "high_risk_2024-01-08.csv"))
			})
		})
	})
}

func TestServeMux(t *testing.T) {
	convey.Convey("Given a loaded service behind the mux", t, func() {
		convey.So(logger.Init(logger.WithWriter(io.Discard)), convey.ShouldBeNil)
		ctx := context.Background()
		dir := t.TempDir()

		recs := synth.New(synth.WithEmployees(10), synth.WithWeeks(2)).Records()
		var data, m bytes.Buffer
		convey.So(synth.WriteCSV(&data, recs), convey.ShouldBeNil)
		convey.So(synth.WriteModel(&m, synth.Model(recs)), convey.ShouldBeNil)

		cfg := config.New()
		cfg.DataPath = filepath.Join(dir, "weekly.csv")
		cfg.ModelPath = filepath.Join(dir, "model.yaml")
		convey.So(os.WriteFile(cfg.DataPath, data.Bytes(), 0o600), convey.ShouldBeNil)
		convey.So(os.WriteFile(cfg.ModelPath, m.Bytes(), 0o600), convey.ShouldBeNil)

		svc, err := newService(cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		mux := newMux(ctx, svc, cfg.MaxTableLimit)

		convey.Convey("When requests arrive before the load", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/records", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusServiceUnavailable)
		})

		convey.Convey("When the snapshot is loaded", func() {
			_, err := svc.Load(ctx)
			convey.So(err, convey.ShouldBeNil)

			for _, target := range []string{"/records", "/filters", "/stats", "/healthz", "/openapi.yaml", "/api-docs"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusFound)
		})
	})
}

func TestUpdateMetrics(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.So(logger.Init(logger.WithWriter(io.Discard)), convey.ShouldBeNil)
		svc, err := newService(config.New(), logger.Get())
		convey.So(err, convey.ShouldBeNil)

		convey.So(func() { updateSystemMetrics() }, convey.ShouldNotPanic)
		convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
	})
}

func TestMetricsOptions(t *testing.T) {
	convey.Convey("Given a config with metrics settings", t, func() {
		cfg := config.New()
		cfg.MetricsPrefix = "nudge"
		cfg.MetricsLabels = map[string]string{"env": "test"}
		cfg.MetricsRefreshInterval = 3 * time.Second

		convey.Convey("When the global metrics are configured from it", func() {
			metrics.Configure(metricsOptions(cfg)...)
			convey.Reset(func() { metrics.Configure() })
			metrics.UpdateRecordsLoaded(1)

			convey.Convey("Then the refresh interval and exported names follow", func() {
				convey.So(metrics.RefreshInterval(), convey.ShouldEqual, 3*time.Second)
				families, err := metrics.GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)
				var names []string
				for _, mf := range families {
					names = append(names, mf.GetName())
				}
				convey.So(names, convey.ShouldContain, "empathy_burnout_nudge_records_loaded")
			})
		})
	})
}
