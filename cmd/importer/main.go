// Command importer loads one identity CSV export into the store, replacing
// the named system's partition, and prints the resulting import run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"idgov/internal/bootstrap"
	ingestionmetrics "idgov/internal/ingestion/metrics"
	"idgov/internal/ingestion/models"
	ingestionservice "idgov/internal/ingestion/service"
	"idgov/internal/platform/config"
	"idgov/internal/platform/logger"
	dErrors "idgov/pkg/domain-errors"
)

const userAgent = "idgov-importer/1.0"

func main() {
	system := flag.String("system", "", "source system name, e.g. SAP or \"Recursos Humanos\"")
	file := flag.String("file", "", "path to the CSV export")
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *system, *file, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger, system, path string, out io.Writer) error {
	if system == "" || path == "" {
		return dErrors.New(dErrors.CodeBadRequest, "both -system and -file are required")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	stores, err := bootstrap.OpenStores(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer stores.Close()
	if stores.DB == nil {
		log.Warn("DATABASE_URL is not set: the import will not outlive this process")
	}

	publisher, err := bootstrap.OpenPublisher(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	svc, err := ingestionservice.New(stores.Identities, stores.Runs,
		ingestionservice.WithLogger(log),
		ingestionservice.WithMetrics(ingestionmetrics.New()),
		ingestionservice.WithPublisher(publisher),
		ingestionservice.WithMaxBytes(cfg.Ingestion.MaxUploadBytes),
	)
	if err != nil {
		return err
	}

	importRun, err := svc.Import(ctx, system, models.Source{
		Filename:  filepath.Base(path),
		UserAgent: userAgent,
	}, f)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(importRun)
}
