package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orb-edge-lab/internal/ingest"
	"orb-edge-lab/internal/logging"
	chstore "orb-edge-lab/internal/storage/clickhouse"
	"orb-edge-lab/internal/storage/migrations"
)

func main() {
	instrument := flag.String("instrument", "", "Instrument symbol to ingest bars for (required)")
	file := flag.String("file", "", "CSV file with minute bars (required)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (required)")
	migrate := flag.Bool("migrate", false, "Run ClickHouse migrations before ingesting")
	logLevel := flag.String("log-level", "info", "Log level: trace, debug, info, warn, error")

	flag.Parse()

	log, err := logging.New(*logLevel, "console")
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	if *instrument == "" {
		log.Fatal().Msg("--instrument is required")
	}
	if *file == "" {
		log.Fatal().Msg("--file is required")
	}
	if *clickhouseDSN == "" {
		log.Fatal().Msg("--clickhouse-dsn is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	var conn *chstore.Conn
	if *migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("run clickhouse migrations")
		}
	} else {
		conn, err = chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to clickhouse")
		}
	}
	defer conn.Close()

	loader := ingest.NewLoader(chstore.NewBarStore(conn))

	start := time.Now()
	res, err := loader.LoadFile(ctx, *instrument, *file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("ingest failed")
	}

	log.Info().
		Str("instrument", *instrument).
		Int("rows_read", res.RowsRead).
		Int("bars_inserted", res.BarsInserted).
		Dur("elapsed", time.Since(start)).
		Msg("ingest complete")
}
