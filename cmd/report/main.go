package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"orb-edge-lab/internal/config"
	"orb-edge-lab/internal/logging"
	"orb-edge-lab/internal/reporting"
	pgstore "orb-edge-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (required)")
	format := flag.String("format", "markdown", "Output format: markdown, csv")
	outPath := flag.String("out", "", "Output file (default stdout)")

	flag.Parse()

	log, err := logging.New("info", "console")
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	if *configPath == "" {
		log.Fatal().Msg("--config is required")
	}
	if *format != "markdown" && *format != "csv" {
		log.Fatal().Str("format", *format).Msg("format must be markdown or csv")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.Storage.PostgresDSN == "" {
		log.Fatal().Msg("reporting reads validated edges from postgres; set storage.postgres_dsn")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	gen := reporting.NewGenerator(
		pgstore.NewEdgeStore(pool),
		pgstore.NewValidationRunStore(pool),
		pgstore.NewTradeStore(pool),
	)

	report, err := gen.Generate(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("generate report")
	}

	var rendered string
	switch *format {
	case "csv":
		rendered = reporting.RenderCSV(report)
	default:
		rendered = reporting.RenderMarkdown(report)
	}

	if *outPath == "" {
		fmt.Print(rendered)
		return
	}
	if err := os.WriteFile(*outPath, []byte(rendered), 0o644); err != nil {
		log.Fatal().Err(err).Str("path", *outPath).Msg("write report")
	}
	log.Info().Str("path", *outPath).Int("edges", report.TotalEdges).Msg("report written")
}
