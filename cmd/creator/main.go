package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yourorg/cvat-tasks/internal/cvat"
	"github.com/yourorg/cvat-tasks/internal/dispatch"
	"github.com/yourorg/cvat-tasks/internal/metrics"
	"github.com/yourorg/cvat-tasks/internal/payload"
	"github.com/yourorg/cvat-tasks/internal/report"
	"github.com/yourorg/cvat-tasks/internal/rowsource"
)

// Exit codes: 0 all tasks created, 1 some records failed, 2 bad input/config.
const (
	exitOK     = 0
	exitFailed = 1
	exitFatal  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	csvPath := flag.String("csv", "", "input sheet with ID, URL and Labels columns (file path or s3:// URI)")
	workers := flag.Int("workers", dispatch.DefaultWorkers(), "concurrent submission workers")
	ratePerSec := flag.Float64("rate", 2, "submissions per second across all workers (0 disables the throttle)")
	reportsDir := flag.String("reports", "reports", "directory or s3:// prefix for run reports")
	dedupe := flag.Bool("dedupe", false, "skip rows whose ID already appeared earlier in the sheet")
	dryRun := flag.Bool("dry-run", false, "parse the sheet and build payloads without submitting anything")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	zl := newZap(getenv("LOG_LEVEL", "info")).With(zap.String("run_id", uuid.NewString()))
	defer zl.Sync()

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "usage: creator -csv <input.csv> [-workers N] [-rate R] [-reports DIR]")
		return exitFatal
	}

	metrics.Init()
	go func() {
		_ = metrics.Serve(metrics.AddrFromEnv())
	}()

	cfg := cvat.FromEnv()
	if !*dryRun {
		if err := cfg.Validate(); err != nil {
			zl.Error("configuration invalid", zap.Error(err))
			return exitFatal
		}
	}

	records, _, err := rowsource.Load(*csvPath, rowsource.Options{
		SkipDuplicateIDs: *dedupe,
		Logger:           zl,
	})
	if err != nil {
		zl.Error("loading input failed", zap.Error(err))
		return exitFatal
	}
	if len(records) == 0 {
		zl.Warn("input contains no records, nothing to do")
		return exitOK
	}

	if *dryRun {
		for _, rec := range records {
			spec := payload.Build(rec)
			zl.Info("would create task",
				zap.String("name", spec.Name),
				zap.Int("labels", len(spec.Labels)),
				zap.String("url", rec.ImageURL))
		}
		zl.Info("dry run complete", zap.Int("records", len(records)))
		return exitOK
	}

	d := dispatch.New(
		dispatch.Config{Workers: *workers, RatePerSec: *ratePerSec},
		func() (dispatch.TaskClient, error) { return cvat.New(cfg) },
		zl,
	)
	outcomes := d.Run(context.Background(), records)

	w := report.NewWriter(*reportsDir, func(id int) string { return cvat.TaskURL(cfg.Host, id) }, zl)
	sum := w.Write(outcomes)

	if sum.Failed > 0 {
		return exitFailed
	}
	return exitOK
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func newZap(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
