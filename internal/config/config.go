// Package config loads the YAML configuration consumed by the command
// binaries. Core packages never read configuration themselves; they
// receive explicit structs converted from this package at the cmd
// boundary.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/sweep"
	"orb-edge-lab/internal/validate"
)

// Config is the root configuration document.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Storage    StorageConfig    `yaml:"storage"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Instrument InstrumentConfig `yaml:"instrument" validate:"required"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Window     WindowConfig     `yaml:"window" validate:"required"`

	FrictionCeiling float64 `yaml:"friction_ceiling" default:"0.20" validate:"gt=0"`
}

// LoggingConfig controls the zerolog setup.
type LoggingConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=json console"`
}

// StorageConfig selects the storage backend. The memory backend needs
// no DSNs; the database backend requires both.
type StorageConfig struct {
	Backend       string `yaml:"backend" default:"memory" validate:"oneof=memory database"`
	PostgresDSN   string `yaml:"postgres_dsn" validate:"required_if=Backend database"`
	ClickhouseDSN string `yaml:"clickhouse_dsn" validate:"required_if=Backend database"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" default:":9100"`
}

// InstrumentConfig mirrors domain.InstrumentSpec in YAML form.
type InstrumentConfig struct {
	Symbol             string  `yaml:"symbol" validate:"required"`
	TickSize           float64 `yaml:"tick_size" validate:"gt=0"`
	PointValue         float64 `yaml:"point_value" validate:"gt=0"`
	CommissionPerTrade float64 `yaml:"commission_per_trade" validate:"gte=0"`
	SlippageTicks      float64 `yaml:"slippage_ticks" default:"1" validate:"gte=0"`
}

// Spec converts the YAML form into the domain spec.
func (c InstrumentConfig) Spec() domain.InstrumentSpec {
	return domain.InstrumentSpec{
		Symbol:             c.Symbol,
		TickSize:           c.TickSize,
		PointValue:         c.PointValue,
		CommissionPerTrade: c.CommissionPerTrade,
		SlippageTicks:      c.SlippageTicks,
	}
}

// ThresholdsConfig mirrors the gate thresholds in YAML form.
type ThresholdsConfig struct {
	MinSampleSize      int     `yaml:"min_sample_size" default:"30" validate:"gte=1"`
	MinExpectancy      float64 `yaml:"min_expectancy" default:"0.15"`
	StressMild         float64 `yaml:"stress_mild" default:"0.25" validate:"gt=0"`
	StressSevere       float64 `yaml:"stress_severe" default:"0.50" validate:"gt=0"`
	MinSubPeriodTrades int     `yaml:"min_sub_period_trades" default:"10" validate:"gte=1"`
	WalkForwardSplit   float64 `yaml:"walk_forward_split" default:"0.7" validate:"gt=0,lt=1"`
}

// Thresholds converts the YAML form into gate thresholds.
func (c ThresholdsConfig) Thresholds() validate.Thresholds {
	return validate.Thresholds{
		MinSampleSize:      c.MinSampleSize,
		MinExpectancy:      c.MinExpectancy,
		StressMild:         c.StressMild,
		StressSevere:       c.StressSevere,
		MinSubPeriodTrades: c.MinSubPeriodTrades,
		WalkForwardSplit:   c.WalkForwardSplit,
	}
}

// FilterSetConfig is one named set of day filters applied together.
type FilterSetConfig struct {
	Filters []FilterItemConfig `yaml:"filters" validate:"dive"`
}

// FilterItemConfig is one tagged day filter in YAML form.
type FilterItemConfig struct {
	Type             string   `yaml:"type" validate:"oneof=RANGE_SIZE PRIOR_SESSION_TYPE REGIME"`
	MinRangeRatio    *float64 `yaml:"min_range_ratio"`
	MaxRangeRatio    *float64 `yaml:"max_range_ratio"`
	PriorSessionType *string  `yaml:"prior_session_type"`
	RegimeHalf       *string  `yaml:"regime_half"`
}

func (c FilterItemConfig) filter() domain.FilterConfig {
	return domain.FilterConfig{
		FilterType:       c.Type,
		MinRangeRatio:    c.MinRangeRatio,
		MaxRangeRatio:    c.MaxRangeRatio,
		PriorSessionType: c.PriorSessionType,
		RegimeHalf:       c.RegimeHalf,
	}
}

// SweepConfig is the parameter grid in YAML form. Empty axes fall back
// to the grid defaults at expansion time.
type SweepConfig struct {
	RangeStartMinute  int               `yaml:"range_start_minute" default:"570" validate:"gte=0,lt=1440"`
	RangeDurationsMin []int             `yaml:"range_durations_min" validate:"dive,gte=1"`
	Directions        []string          `yaml:"directions" validate:"dive,oneof=LONG SHORT BOTH"`
	EntryRules        []string          `yaml:"entry_rules" validate:"dive,oneof=CLOSE_THROUGH RANGE_TOUCH"`
	StopFractions     []float64         `yaml:"stop_fractions" validate:"dive,gt=0,lte=1"`
	RewardRisks       []float64         `yaml:"reward_risks" validate:"dive,gt=0"`
	ConfirmationBars  []int             `yaml:"confirmation_bars" validate:"dive,gte=1"`
	FilterSets        []FilterSetConfig `yaml:"filter_sets" validate:"dive"`
	Workers           int               `yaml:"workers" default:"4" validate:"gte=1"`
}

// Grid converts the YAML form into an expandable sweep grid for the
// given instrument.
func (c SweepConfig) Grid(instrument string) sweep.Grid {
	g := sweep.Grid{
		Instrument:        instrument,
		RangeStartMinute:  c.RangeStartMinute,
		RangeDurationsMin: c.RangeDurationsMin,
		StopFractions:     c.StopFractions,
		RewardRisks:       c.RewardRisks,
		ConfirmationBars:  c.ConfirmationBars,
	}
	for _, d := range c.Directions {
		g.Directions = append(g.Directions, domain.Direction(d))
	}
	for _, r := range c.EntryRules {
		g.EntryRules = append(g.EntryRules, domain.EntryRule(r))
	}
	for _, set := range c.FilterSets {
		var fs []domain.FilterConfig
		for _, item := range set.Filters {
			fs = append(fs, item.filter())
		}
		g.Filters = append(g.Filters, fs)
	}
	return g
}

// WindowConfig bounds the simulated date range. Dates are UTC calendar
// days; End is inclusive.
type WindowConfig struct {
	Start string `yaml:"start" validate:"required,datetime=2006-01-02"`
	End   string `yaml:"end" validate:"required,datetime=2006-01-02"`
}

// Range returns the window as inclusive [startMs, endMs] epoch
// milliseconds, matching the bar store's inclusive time-range queries.
// endMs is the last millisecond of the end day.
func (w WindowConfig) Range() (int64, int64, error) {
	start, err := time.ParseInLocation("2006-01-02", w.Start, time.UTC)
	if err != nil {
		return 0, 0, fmt.Errorf("parse window start: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02", w.End, time.UTC)
	if err != nil {
		return 0, 0, fmt.Errorf("parse window end: %w", err)
	}
	if end.Before(start) {
		return 0, 0, fmt.Errorf("window end %s before start %s", w.End, w.Start)
	}
	return start.UnixMilli(), end.Add(24*time.Hour).UnixMilli() - 1, nil
}

var validatorInstance = validator.New()

// Load reads, defaults, and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes a YAML document, applies defaults to unset fields, and
// validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	if err := validatorInstance.Struct(&c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}
