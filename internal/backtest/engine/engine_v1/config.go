package engine

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-sim/internal/risk"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FillTiming decides when a market order produced by a decision on bar i fills.
type FillTiming string

const (
	// FillOnClose fills at the close of the decision bar.
	FillOnClose FillTiming = "close"
	// FillNextOpen fills at the open of the following bar. The rest of that
	// bar's range does not settle the new position.
	FillNextOpen FillTiming = "next_open"
)

// TieBreak decides which level wins when a bar's range covers both stop and target.
type TieBreak string

const (
	TieBreakStopFirst   TieBreak = "stop_first"
	TieBreakTargetFirst TieBreak = "target_first"
	// TieBreakProportional assumes the level closer to the bar's open was touched first.
	TieBreakProportional TieBreak = "proportional"
)

// OpposingOrderPolicy decides what an entry against the open position does.
type OpposingOrderPolicy string

const (
	OpposingReject          OpposingOrderPolicy = "reject"
	OpposingCloseAndReverse OpposingOrderPolicy = "close_and_reverse"
)

const defaultLookaheadSamples = 5

type BacktestEngineV1Config struct {
	InitialCash    float64    `yaml:"initial_cash" json:"initial_cash" validate:"gt=0" jsonschema:"title=Initial Cash,description=Starting cash of the account,minimum=0,default=10000"`
	CommissionRate float64    `yaml:"commission_rate" json:"commission_rate" validate:"gte=0,lt=1" jsonschema:"title=Commission Rate,description=Proportional commission charged on every fill,minimum=0,default=0"`
	FillTiming     FillTiming `yaml:"fill_timing" json:"fill_timing" validate:"oneof=close next_open" jsonschema:"title=Fill Timing,description=When market orders fill. Stops and targets are first checked on the bar after the fill bar so the fill bar range never settles a new position,enum=close,enum=next_open,default=next_open"`
	// StopTargetTieBreak resolves bars that touch both stop-loss and take-profit.
	StopTargetTieBreak  TieBreak            `yaml:"stop_target_tiebreak" json:"stop_target_tiebreak" validate:"oneof=stop_first target_first proportional" jsonschema:"title=Stop/Target Tie Break,description=Which level fills when a bar touches both,enum=stop_first,enum=target_first,enum=proportional,default=stop_first"`
	OpposingOrderPolicy OpposingOrderPolicy `yaml:"opposing_order_policy" json:"opposing_order_policy" validate:"oneof=reject close_and_reverse" jsonschema:"title=Opposing Order Policy,description=What an entry against the open position does,enum=reject,enum=close_and_reverse,default=reject"`
	RiskPct             float64             `yaml:"risk_pct" json:"risk_pct" validate:"gt=0,lte=1" jsonschema:"title=Risk Percentage,description=Fraction of equity risked per trade when sizing from a stop,minimum=0,maximum=1,default=0.01"`
	Granularity         risk.Granularity    `yaml:"position_unit_granularity" json:"position_unit_granularity" validate:"oneof=integer fractional" jsonschema:"title=Position Unit Granularity,description=Whether positions are whole units or fractional,enum=integer,enum=fractional,default=integer"`
	MinUnitIncrement    float64             `yaml:"min_unit_increment" json:"min_unit_increment" validate:"gte=0" jsonschema:"title=Minimum Unit Increment,description=Smallest fractional size step,minimum=0"`
	// MaxHoldingBars closes a position after this many bars with reason time. Zero disables it.
	MaxHoldingBars int `yaml:"max_holding_bars" json:"max_holding_bars" validate:"gte=0" jsonschema:"title=Max Holding Bars,description=Force a time exit after this many bars (0 disables),minimum=0"`
	// LookaheadCheck recomputes indicators on prefixes of the data and fails the run if any value changes.
	LookaheadCheck   bool                       `yaml:"lookahead_check" json:"lookahead_check" jsonschema:"title=Look-ahead Check,description=Verify indicators do not read future bars"`
	LookaheadSamples int                        `yaml:"lookahead_samples" json:"lookahead_samples" validate:"gte=0" jsonschema:"title=Look-ahead Samples,description=Number of prefixes recomputed by the look-ahead check,minimum=0"`
	StartTime        optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time for the backtest period"`
	EndTime          optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time for the backtest period"`
	// Symbol selects one symbol from files holding several.
	Symbol string `yaml:"symbol" json:"symbol" jsonschema:"title=Symbol,description=Only load rows of this symbol"`
	// Interval resamples the data before the run. Empty keeps the file's bars.
	Interval datasource.Interval `yaml:"interval" json:"interval" validate:"omitempty,oneof=1m 5m 15m 30m 1h 4h 6h 8h 12h 1d 1w" jsonschema:"title=Interval,description=Resample bars to this interval"`
}

// UnmarshalYAML overlays the document on the current values so omitted keys keep their defaults.
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	type Config struct {
		InitialCash         float64             `yaml:"initial_cash"`
		CommissionRate      float64             `yaml:"commission_rate"`
		FillTiming          FillTiming          `yaml:"fill_timing"`
		StopTargetTieBreak  TieBreak            `yaml:"stop_target_tiebreak"`
		OpposingOrderPolicy OpposingOrderPolicy `yaml:"opposing_order_policy"`
		RiskPct             float64             `yaml:"risk_pct"`
		Granularity         risk.Granularity    `yaml:"position_unit_granularity"`
		MinUnitIncrement    float64             `yaml:"min_unit_increment"`
		MaxHoldingBars      int                 `yaml:"max_holding_bars"`
		LookaheadCheck      bool                `yaml:"lookahead_check"`
		LookaheadSamples    int                 `yaml:"lookahead_samples"`
		StartTime           *time.Time          `yaml:"start_time"`
		EndTime             *time.Time          `yaml:"end_time"`
		Symbol              string              `yaml:"symbol"`
		Interval            datasource.Interval `yaml:"interval"`
	}

	config := Config{
		InitialCash:         c.InitialCash,
		CommissionRate:      c.CommissionRate,
		FillTiming:          c.FillTiming,
		StopTargetTieBreak:  c.StopTargetTieBreak,
		OpposingOrderPolicy: c.OpposingOrderPolicy,
		RiskPct:             c.RiskPct,
		Granularity:         c.Granularity,
		MinUnitIncrement:    c.MinUnitIncrement,
		MaxHoldingBars:      c.MaxHoldingBars,
		LookaheadCheck:      c.LookaheadCheck,
		LookaheadSamples:    c.LookaheadSamples,
		StartTime:           nil,
		EndTime:             nil,
		Symbol:              c.Symbol,
		Interval:            c.Interval,
	}

	if err := value.Decode(&config); err != nil {
		return err
	}

	c.InitialCash = config.InitialCash
	c.CommissionRate = config.CommissionRate
	c.FillTiming = config.FillTiming
	c.StopTargetTieBreak = config.StopTargetTieBreak
	c.OpposingOrderPolicy = config.OpposingOrderPolicy
	c.RiskPct = config.RiskPct
	c.Granularity = config.Granularity
	c.MinUnitIncrement = config.MinUnitIncrement
	c.MaxHoldingBars = config.MaxHoldingBars
	c.LookaheadCheck = config.LookaheadCheck
	c.LookaheadSamples = config.LookaheadSamples
	c.Symbol = config.Symbol
	c.Interval = config.Interval

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// ParseConfig reads a YAML document on top of DefaultConfig and validates the result.
func ParseConfig(content string) (BacktestEngineV1Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return BacktestEngineV1Config{}, errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse backtest config", err)
	}

	if err := config.Validate(); err != nil {
		return BacktestEngineV1Config{}, err
	}

	return config, nil
}

// Validate checks every field against its allowed range.
func (c BacktestEngineV1Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid backtest config", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.Newf(errors.ErrCodeBacktestConfigError, "end_time %s is before start_time %s",
			c.EndTime.Unwrap().Format(time.RFC3339), c.StartTime.Unwrap().Format(time.RFC3339))
	}

	return nil
}

// Sizer builds the risk sizer for the configured granularity.
func (c BacktestEngineV1Config) Sizer() risk.Sizer {
	return risk.NewSizer(c.Granularity, c.MinUnitIncrement)
}

// Query builds the datasource query selecting the configured bars.
func (c BacktestEngineV1Config) Query() datasource.Query {
	query := datasource.Query{
		Start:    c.StartTime,
		End:      c.EndTime,
		Interval: optional.None[datasource.Interval](),
		Symbol:   optional.None[string](),
	}

	if c.Interval != "" {
		query.Interval = optional.Some(c.Interval)
	}

	if c.Symbol != "" {
		query.Symbol = optional.Some(c.Symbol)
	}

	return query
}

func (c BacktestEngineV1Config) lookaheadSamples() int {
	if c.LookaheadSamples <= 0 {
		return defaultLookaheadSamples
	}

	return c.LookaheadSamples
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(optional.Option[time.Time]{}) {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal config schema: %w", err)
	}

	return string(schemaBytes), nil
}

// DefaultConfig returns the configuration used when a key is omitted.
func DefaultConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCash:         10000,
		CommissionRate:      0,
		FillTiming:          FillNextOpen,
		StopTargetTieBreak:  TieBreakStopFirst,
		OpposingOrderPolicy: OpposingReject,
		RiskPct:             0.01,
		Granularity:         risk.GranularityInteger,
		MinUnitIncrement:    risk.DefaultMinIncrement,
		MaxHoldingBars:      0,
		LookaheadCheck:      false,
		LookaheadSamples:    defaultLookaheadSamples,
		StartTime:           optional.None[time.Time](),
		EndTime:             optional.None[time.Time](),
		Symbol:              "",
		Interval:            "",
	}
}

func TestConfig(startTime time.Time, endTime time.Time, commissionRate float64) BacktestEngineV1Config {
	config := DefaultConfig()
	config.CommissionRate = commissionRate
	config.StartTime = optional.Some(startTime)
	config.EndTime = optional.Some(endTime)

	return config
}

// EmptyConfig returns a BacktestEngineV1Config with every field unset.
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCash:         0,
		CommissionRate:      0,
		FillTiming:          "",
		StopTargetTieBreak:  "",
		OpposingOrderPolicy: "",
		RiskPct:             0,
		Granularity:         "",
		MinUnitIncrement:    0,
		MaxHoldingBars:      0,
		LookaheadCheck:      false,
		LookaheadSamples:    0,
		StartTime:           optional.None[time.Time](),
		EndTime:             optional.None[time.Time](),
		Symbol:              "",
		Interval:            "",
	}
}
