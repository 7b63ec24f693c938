// Package main analyzes sales files and prints exactly one JSON object:
// the analysis result or the error that stopped it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"sales-forecast-lab/internal/config"
	"sales-forecast-lab/internal/domain"
	"sales-forecast-lab/internal/observability"
	"sales-forecast-lab/internal/pipeline"
	"sales-forecast-lab/internal/reporting"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config file (env SALES_* overrides it)")
	projectID := fs.String("project", "", "Project ID: store files, train on the project history and write the forecast back")
	outputDir := fs.String("output-dir", "", "Also write REPORT.md, forecast.csv and series.csv to this directory")
	useMemory := fs.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	emit := func(out domain.Output) int {
		stdout.Write(reporting.RenderJSON(out))
		if !out.OK() {
			return 1
		}
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return emit(failure("config_error", err))
	}
	logger := observability.NewLogger(cfg.Logging, stderr)

	if *projectID == "" && fs.NArg() == 0 {
		return emit(failure("usage_error", errors.New("no input files (usage: analyze [-project ID] file...)")))
	}

	inputs, unreadable := readInputs(fs.Args(), logger)
	if len(inputs) == 0 && len(unreadable) > 0 {
		return emit(domain.NewFailureOutput(&domain.Failure{
			Kind:    "io_error",
			Message: fmt.Sprintf("none of %d files could be read", len(unreadable)),
			Details: unreadable,
		}))
	}

	opts := pipeline.Options{Config: cfg, Logger: logger}
	if *projectID != "" {
		rows, runs, cleanup, err := createStores(ctx, cfg.Store, *useMemory)
		if err != nil {
			return emit(domain.NewFailureOutput(&domain.Failure{Kind: "persistence_error", Message: err.Error()}))
		}
		defer cleanup()
		opts.RowStore = rows
		opts.RunStore = runs
	}
	analyzer := pipeline.NewAnalyzer(opts)

	var out domain.Output
	if *projectID != "" {
		out = analyzer.AnalyzeProject(ctx, *projectID, inputs)
	} else {
		out = analyzer.AnalyzeFiles(ctx, inputs)
	}

	withUnreadable(&out, unreadable)

	if *outputDir != "" {
		if err := writeArtifacts(*outputDir, out); err != nil {
			logger.Error("write artifacts", slog.String("dir", *outputDir), slog.String("error", err.Error()))
		}
	}
	return emit(out)
}

// readInputs reads every path. Paths that cannot be read are reported as
// per-file errors and skipped.
func readInputs(paths []string, logger *slog.Logger) ([]pipeline.Input, []domain.FileError) {
	var (
		inputs     []pipeline.Input
		unreadable []domain.FileError
	)
	for _, path := range paths {
		name := filepath.Base(path)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("input not readable", slog.String("path", path), slog.String("error", err.Error()))
			unreadable = append(unreadable, domain.FileError{Filename: name, Kind: "io_error", Message: err.Error()})
			continue
		}
		inputs = append(inputs, pipeline.Input{Filename: name, Data: data})
	}
	return inputs, unreadable
}

// withUnreadable puts read failures ahead of the analyzer's own file errors.
func withUnreadable(out *domain.Output, unreadable []domain.FileError) {
	if len(unreadable) == 0 {
		return
	}
	if out.OK() {
		out.Result.FileErrors = append(append([]domain.FileError(nil), unreadable...), out.Result.FileErrors...)
		return
	}
	out.Failure.Details = append(append([]domain.FileError(nil), unreadable...), out.Failure.Details...)
}

func failure(kind string, err error) domain.Output {
	return domain.NewFailureOutput(&domain.Failure{Kind: kind, Message: err.Error()})
}

// writeArtifacts writes the human-readable report and, on success, the
// forecast and training series as CSV.
func writeArtifacts(dir string, out domain.Output) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	files := map[string]string{"REPORT.md": reporting.RenderMarkdown(out)}
	if out.OK() {
		files["forecast.csv"] = reporting.RenderForecastCSV(out.Result.Forecast)
		files["series.csv"] = reporting.RenderSeriesCSV(out.Result.Series)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
