package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"orb-edge-lab/internal/config"
	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/idhash"
	"orb-edge-lab/internal/ingest"
	"orb-edge-lab/internal/lifecycle"
	"orb-edge-lab/internal/logging"
	"orb-edge-lab/internal/simulate"
	"orb-edge-lab/internal/storage"
	chstore "orb-edge-lab/internal/storage/clickhouse"
	"orb-edge-lab/internal/storage/memory"
	pgstore "orb-edge-lab/internal/storage/postgres"
	"orb-edge-lab/internal/validate"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (required)")
	barsCSV := flag.String("bars-csv", "", "CSV file with minute bars for the memory backend")

	// Strategy definition
	rangeStart := flag.Int("range-start", 570, "Opening range start, minutes from UTC midnight")
	rangeDuration := flag.Int("range-duration", 15, "Opening range duration, minutes")
	direction := flag.String("direction", "BOTH", "Direction: LONG, SHORT, BOTH")
	entryRule := flag.String("entry-rule", "CLOSE_THROUGH", "Entry rule: CLOSE_THROUGH, RANGE_TOUCH")
	stopFraction := flag.Float64("stop-fraction", 0.5, "Stop distance as fraction of range size")
	rewardRisk := flag.Float64("reward-risk", 1.5, "Target distance as multiple of stop distance")
	confirmationBars := flag.Int("confirmation-bars", 1, "Consecutive closes beyond the boundary")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	persist := flag.Bool("persist", false, "Register the edge and record the verdict")

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

	def := &domain.StrategyDefinition{
		Instrument:       cfg.Instrument.Symbol,
		RangeStartMinute: *rangeStart,
		RangeDurationMin: *rangeDuration,
		Direction:        domain.Direction(*direction),
		EntryRule:        domain.EntryRule(*entryRule),
		StopFraction:     *stopFraction,
		RewardRisk:       *rewardRisk,
		ConfirmationBars: *confirmationBars,
	}
	if err := def.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid strategy definition")
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

	stores, err := openStores(ctx, cfg, *barsCSV, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open stores")
	}
	defer stores.close()

	startMs, endMs, err := cfg.Window.Range()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid window")
	}

	gate, err := validate.NewGate(cfg.Thresholds.Thresholds())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid thresholds")
	}

	var tradeStore storage.TradeStore
	if *persist {
		tradeStore = stores.trades
	}
	runner := simulate.NewRunner(simulate.RunnerOptions{
		BarStore:   stores.bars,
		TradeStore: tradeStore,
	})

	edgeID := idhash.ComputeEdgeID(def)
	log.Info().
		Str("edge_id", edgeID).
		Str("instrument", def.Instrument).
		Str("direction", string(def.Direction)).
		Msg("running backtest")

	sample, stats, err := runner.BuildSample(ctx, def, cfg.Instrument.Spec(), cfg.FrictionCeiling, startMs, endMs)
	if err != nil {
		log.Fatal().Err(err).Msg("backtest failed")
	}
	verdict := gate.Run(sample)

	if *persist {
		manager := lifecycle.NewManager(stores.edges, stores.runs)
		if _, err := manager.Register(ctx, def); err != nil {
			log.Fatal().Err(err).Msg("register edge")
		}
		run, err := manager.ApplyVerdict(ctx, verdict)
		if err != nil {
			log.Fatal().Err(err).Msg("record verdict")
		}
		log.Info().Str("run_id", run.RunID).Msg("verdict recorded")
	}

	if *outputJSON {
		out, _ := json.MarshalIndent(struct {
			EdgeID  string
			Stats   *simulate.SampleStats
			Verdict *domain.ValidationVerdict
		}{edgeID, stats, verdict}, "", "  ")
		fmt.Println(string(out))
	} else {
		printVerdict(edgeID, stats, verdict)
	}
}

// stores bundles one backend's store set so main can treat memory and
// database backends uniformly.
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

func openStores(ctx context.Context, cfg *config.Config, barsCSV string, log zerolog.Logger) (*stores, error) {
	if cfg.Storage.Backend == "memory" {
		barStore := memory.NewBarStore()
		if barsCSV == "" {
			return nil, fmt.Errorf("memory backend needs --bars-csv to supply minute bars")
		}
		res, err := ingest.NewLoader(barStore).LoadFile(ctx, cfg.Instrument.Symbol, barsCSV)
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
	conn, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	return &stores{
		bars:   chstore.NewBarStore(conn),
		edges:  pgstore.NewEdgeStore(pool),
		runs:   pgstore.NewValidationRunStore(pool),
		trades: pgstore.NewTradeStore(pool),
		pool:   pool,
		conn:   conn,
	}, nil
}

func printVerdict(edgeID string, stats *simulate.SampleStats, v *domain.ValidationVerdict) {
	fmt.Println()
	fmt.Println("=== Backtest Verdict ===")
	fmt.Printf("Edge ID:            %s\n", edgeID)
	fmt.Printf("Classification:     %s\n", v.Classification)
	if v.FailureCode != "" {
		fmt.Printf("Failure Code:       %s\n", v.FailureCode)
	}
	fmt.Println()

	fmt.Println("Sample:")
	fmt.Printf("  Days Replayed:    %d\n", stats.DaysTotal)
	fmt.Printf("  Trades:           %d\n", v.SampleSize)
	for reason, n := range stats.Skips {
		fmt.Printf("  Skipped (%s): %d\n", reason, n)
	}
	fmt.Println()

	fmt.Println("Diagnostics:")
	fmt.Printf("  Expectancy:       %+.4f R\n", v.Expectancy)
	fmt.Printf("  Stressed @1.25x:  %+.4f R\n", v.StressedMean25)
	fmt.Printf("  Stressed @1.50x:  %+.4f R\n", v.StressedMean50)
	fmt.Printf("  Train Expectancy: %+.4f R\n", v.TrainExpectancy)
	fmt.Printf("  Test Expectancy:  %+.4f R\n", v.TestExpectancy)
	if v.Retention != nil {
		fmt.Printf("  Retention:        %.2f\n", *v.Retention)
	}
	fmt.Println()

	fmt.Println("Phases:")
	for _, p := range v.Phases {
		line := fmt.Sprintf("  %-13s %s", p.Phase, p.Status)
		if p.Code != "" {
			line += " (" + p.Code + ")"
		}
		fmt.Println(line)
		if p.Detail != "" {
			fmt.Printf("                %s\n", p.Detail)
		}
	}
}
