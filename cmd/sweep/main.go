package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"orb-edge-lab/internal/config"
	"orb-edge-lab/internal/ingest"
	"orb-edge-lab/internal/lifecycle"
	"orb-edge-lab/internal/logging"
	"orb-edge-lab/internal/observability"
	"orb-edge-lab/internal/simulate"
	"orb-edge-lab/internal/storage"
	chstore "orb-edge-lab/internal/storage/clickhouse"
	"orb-edge-lab/internal/storage/memory"
	"orb-edge-lab/internal/storage/migrations"
	pgstore "orb-edge-lab/internal/storage/postgres"
	"orb-edge-lab/internal/sweep"
	"orb-edge-lab/internal/validate"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (required)")
	barsCSV := flag.String("bars-csv", "", "CSV file with minute bars for the memory backend")
	migrate := flag.Bool("migrate", false, "Run database migrations before the sweep")
	showAll := flag.Bool("all", false, "Print every result, not only approved and marginal ones")

	flag.Parse()

	log, err := logging.New("info", "console")
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	if *configPath == "" {
		log.Fatal().Msg("--config is required")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if lg, lerr := logging.New(cfg.Logging.Level, cfg.Logging.Format); lerr == nil {
		log = lg
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

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("")
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics endpoint listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics endpoint failed")
			}
		}()
		defer srv.Close()
	}

	st, err := openStores(ctx, cfg, *barsCSV, *migrate, metrics, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open stores")
	}
	defer st.close()

	startMs, endMs, err := cfg.Window.Range()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid window")
	}

	gate, err := validate.NewGate(cfg.Thresholds.Thresholds())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid thresholds")
	}

	sweeper := sweep.New(sweep.Options{
		Runner: simulate.NewRunner(simulate.RunnerOptions{
			BarStore:   st.bars,
			TradeStore: st.trades,
		}),
		Gate:      gate,
		Lifecycle: lifecycle.NewManager(st.edges, st.runs),
		Metrics:   metrics,
		Logger:    log,
		Workers:   cfg.Sweep.Workers,
	})

	grid := cfg.Sweep.Grid(cfg.Instrument.Symbol)
	log.Info().
		Str("instrument", cfg.Instrument.Symbol).
		Int("cells", len(grid.Expand())).
		Int("workers", cfg.Sweep.Workers).
		Msg("starting sweep")

	start := time.Now()
	results, summary, err := sweeper.Run(ctx, grid, cfg.Instrument.Spec(), cfg.FrictionCeiling, startMs, endMs)
	if err != nil {
		log.Fatal().Err(err).Msg("sweep aborted")
	}

	log.Info().
		Int("total", summary.Total).
		Int("approved", summary.Approved).
		Int("marginal", summary.Marginal).
		Int("rejected", summary.Rejected).
		Int("errors", summary.Errors).
		Dur("elapsed", time.Since(start)).
		Msg("sweep complete")

	printResults(results, *showAll)
}

func printResults(results []sweep.EdgeResult, showAll bool) {
	fmt.Println()
	fmt.Printf("%-14s %-10s %-24s %s\n", "EDGE", "VERDICT", "FAILURE", "EXPECTANCY")
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%-14s %-10s %s\n", shortID(r.EdgeID), "ERROR", r.Err)
			continue
		}
		v := r.Verdict
		if !showAll && v.Classification == "REJECTED" {
			continue
		}
		fmt.Printf("%-14s %-10s %-24s %+.4f R\n",
			shortID(r.EdgeID), v.Classification, v.FailureCode, v.Expectancy)
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

type stores struct {
	bars   storage.BarStore
	edges  storage.EdgeStore
	runs   storage.ValidationRunStore
	trades storage.TradeStore

	pool *pgstore.Pool
	conn *chstore.Conn
}

func (s *stores) close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}

func openStores(ctx context.Context, cfg *config.Config, barsCSV string, migrate bool, metrics *observability.Metrics, log zerolog.Logger) (*stores, error) {
	if cfg.Storage.Backend == "memory" {
		barStore := memory.NewBarStore()
		if barsCSV == "" {
			return nil, fmt.Errorf("memory backend needs --bars-csv to supply minute bars")
		}
		res, err := ingest.NewLoader(barStore).WithMetrics(metrics).LoadFile(ctx, cfg.Instrument.Symbol, barsCSV)
		if err != nil {
			return nil, fmt.Errorf("load bars: %w", err)
		}
		log.Info().Int("bars", res.BarsInserted).Str("file", barsCSV).Msg("bars loaded")
		return &stores{
			bars:   barStore,
			edges:  memory.NewEdgeStore(),
			runs:   memory.NewValidationRunStore(),
			trades: memory.NewTradeStore(),
		}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	pool.WithMetrics(metrics)
	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run postgres migrations: %w", err)
		}
	}

	var conn *chstore.Conn
	if migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	} else {
		conn, err = chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	conn.WithMetrics(metrics)

	return &stores{
		bars:   chstore.NewBarStore(conn),
		edges:  pgstore.NewEdgeStore(pool),
		runs:   pgstore.NewValidationRunStore(pool),
		trades: pgstore.NewTradeStore(pool),
		pool:   pool,
		conn:   conn,
	}, nil
}
