package engine

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/engine/engine_v1/commission"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

type FillModel string

type SlippageModel string

type SizingType string

type TieBreak string

const (
	// FillModelCloseToOpen fills market orders at the open of the bar after
	// the intent bar.
	FillModelCloseToOpen FillModel = "close_to_open"
	// FillModelCloseToClose fills market orders at the close of the intent
	// bar itself.
	FillModelCloseToClose FillModel = "close_to_close"
)

const (
	SlippageFixedBps    SlippageModel = "fixed_bps"
	SlippageSpreadAware SlippageModel = "spread_aware"
	SlippageDepthAware  SlippageModel = "depth_aware"
	SlippageATRBased    SlippageModel = "atr_based"
	SlippageLatencyBars SlippageModel = "latency_bars"
)

const (
	SizingFixed         SizingType = "fixed"
	SizingPercentEquity SizingType = "percent_equity"
	SizingRisk          SizingType = "risk"
)

const (
	// TieBreakStopLimitMarket resolves same-bar triggers as stops, then
	// limits, then markets, FIFO by submission inside a category. Default.
	TieBreakStopLimitMarket TieBreak = "stop_limit_market"
	// TieBreakSubmission resolves same-bar triggers purely FIFO by
	// submission bar and index.
	TieBreakSubmission TieBreak = "submission"
)

var AllFillModels = []any{FillModelCloseToOpen, FillModelCloseToClose}

var AllSlippageModels = []any{
	SlippageFixedBps, SlippageSpreadAware, SlippageDepthAware,
	SlippageATRBased, SlippageLatencyBars,
}

var AllSizingTypes = []any{SizingFixed, SizingPercentEquity, SizingRisk}

var AllTieBreaks = []any{TieBreakStopLimitMarket, TieBreakSubmission}

type CommissionConfig struct {
	Type commission.ModelType `yaml:"type" json:"type" jsonschema:"title=Commission Model,description=How commission is computed per fill"`
	// Bps applies when Type is bps.
	Bps float64 `yaml:"bps" json:"bps" validate:"gte=0"`
	// Fixed applies when Type is fixed.
	Fixed float64 `yaml:"fixed" json:"fixed" validate:"gte=0"`
	// Schedule applies when Type is per_fill.
	Schedule []commission.Bracket `yaml:"schedule" json:"schedule"`
}

type SlippageConfig struct {
	Model SlippageModel `yaml:"model" json:"model" jsonschema:"title=Slippage Model"`
	// Bps is the fixed basis-point adjustment. Also the fallback for every
	// other model when its required input is unavailable.
	Bps float64 `yaml:"bps" json:"bps" validate:"gte=0"`
	// SpreadBps is the assumed half-spread for the spread_aware model.
	SpreadBps float64 `yaml:"spread_bps" json:"spread_bps" validate:"gte=0"`
	// DepthVolumeFraction is the share of bar volume consumable before the
	// depth_aware model starts walking the price.
	DepthVolumeFraction float64 `yaml:"depth_volume_fraction" json:"depth_volume_fraction" validate:"gte=0,lte=1"`
	// ATRPeriod and ATRMultiplier parameterize the atr_based model.
	ATRPeriod     int     `yaml:"atr_period" json:"atr_period" validate:"gte=0"`
	ATRMultiplier float64 `yaml:"atr_multiplier" json:"atr_multiplier" validate:"gte=0"`
	// LatencyBars delays the reference bar for the latency_bars model.
	LatencyBars int `yaml:"latency_bars" json:"latency_bars" validate:"gte=0"`
}

type FundingConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// RateBps is the funding rate per interval in basis points of open
	// notional. Positive debits longs and credits shorts.
	RateBps float64 `yaml:"rate_bps" json:"rate_bps"`
	// IntervalBars is the boundary spacing in bars.
	IntervalBars int `yaml:"interval_bars" json:"interval_bars" validate:"gte=0"`
}

type SizingConfig struct {
	Type SizingType `yaml:"type" json:"type" jsonschema:"title=Sizing Model"`
	// Value is units for fixed, an equity fraction for percent_equity, and
	// the equity fraction risked per trade for risk sizing.
	Value float64 `yaml:"value" json:"value" validate:"gte=0"`
}

type RiskConfig struct {
	// MaxDrawdown halts the run when drawdown exceeds this fraction.
	// Zero disables the check.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown" validate:"gte=0,lte=1"`
	// MaxLeverage halts when notional/equity exceeds this. Zero disables.
	MaxLeverage float64 `yaml:"max_leverage" json:"max_leverage" validate:"gte=0"`
	// MaxOpenPositions halts when more positions are open. Zero disables.
	MaxOpenPositions int `yaml:"max_open_positions" json:"max_open_positions" validate:"gte=0"`
	// DailyLossLimit halts when equity falls below day-start equity by this
	// fraction. Zero disables.
	DailyLossLimit float64 `yaml:"daily_loss_limit" json:"daily_loss_limit" validate:"gte=0,lte=1"`
}

type LiquidityConfig struct {
	// MaxFillFraction caps the share of an order fillable per bar. Zero or
	// one fills the full remainder.
	MaxFillFraction float64 `yaml:"max_fill_fraction" json:"max_fill_fraction" validate:"gte=0,lte=1"`
	// VolumeCapFraction caps per-bar fill quantity at this share of bar
	// volume (depth-aware mode). Zero disables.
	VolumeCapFraction float64 `yaml:"volume_cap_fraction" json:"volume_cap_fraction" validate:"gte=0,lte=1"`
}

type MatchingConfig struct {
	TieBreak TieBreak `yaml:"tie_break" json:"tie_break" jsonschema:"title=Same-bar trigger tie-break"`
}

// RunConfig is the immutable configuration of a single run. Validated before
// the bar loop starts; a run is never created from an invalid config.
type RunConfig struct {
	Symbol      string                     `yaml:"symbol" json:"symbol" validate:"required" jsonschema:"title=Symbol"`
	Timeframe   string                     `yaml:"timeframe" json:"timeframe" jsonschema:"title=Timeframe,description=Bar interval label such as 1m or 1h"`
	StartTime   optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time"`
	EndTime     optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time"`
	InitialCash float64                    `yaml:"initial_cash" json:"initial_cash" validate:"required,gt=0" jsonschema:"title=Initial Cash,minimum=0"`
	Leverage    float64                    `yaml:"leverage" json:"leverage" validate:"required,gte=1" jsonschema:"title=Leverage,minimum=1"`

	FillModel  FillModel        `yaml:"fill_model" json:"fill_model" jsonschema:"title=Fill Model"`
	Commission CommissionConfig `yaml:"commission" json:"commission"`
	Slippage   SlippageConfig   `yaml:"slippage" json:"slippage"`
	Funding    FundingConfig    `yaml:"funding" json:"funding"`
	Sizing     SizingConfig     `yaml:"sizing" json:"sizing"`
	Risk       RiskConfig       `yaml:"risk" json:"risk"`
	Liquidity  LiquidityConfig  `yaml:"liquidity" json:"liquidity"`
	Matching   MatchingConfig   `yaml:"matching" json:"matching"`

	// CloseOnFinish flattens any open position at the last bar's close.
	CloseOnFinish bool `yaml:"close_on_finish" json:"close_on_finish"`
	// MaxBars caps the number of processed bars. Zero disables the cap.
	MaxBars int `yaml:"max_bars" json:"max_bars" validate:"gte=0"`
}

// UnmarshalYAML implements custom unmarshaling for RunConfig so optional
// times map onto Option values.
func (c *RunConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		Symbol        string           `yaml:"symbol"`
		Timeframe     string           `yaml:"timeframe"`
		StartTime     *time.Time       `yaml:"start_time"`
		EndTime       *time.Time       `yaml:"end_time"`
		InitialCash   float64          `yaml:"initial_cash"`
		Leverage      float64          `yaml:"leverage"`
		FillModel     FillModel        `yaml:"fill_model"`
		Commission    CommissionConfig `yaml:"commission"`
		Slippage      SlippageConfig   `yaml:"slippage"`
		Funding       FundingConfig    `yaml:"funding"`
		Sizing        SizingConfig     `yaml:"sizing"`
		Risk          RiskConfig       `yaml:"risk"`
		Liquidity     LiquidityConfig  `yaml:"liquidity"`
		Matching      MatchingConfig   `yaml:"matching"`
		CloseOnFinish bool             `yaml:"close_on_finish"`
		MaxBars       int              `yaml:"max_bars"`
	}

	var config Config
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.Symbol = config.Symbol
	c.Timeframe = config.Timeframe
	c.InitialCash = config.InitialCash
	c.Leverage = config.Leverage
	c.FillModel = config.FillModel
	c.Commission = config.Commission
	c.Slippage = config.Slippage
	c.Funding = config.Funding
	c.Sizing = config.Sizing
	c.Risk = config.Risk
	c.Liquidity = config.Liquidity
	c.Matching = config.Matching
	c.CloseOnFinish = config.CloseOnFinish
	c.MaxBars = config.MaxBars

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// Validate checks the configuration and applies defaults for zero-valued
// enum fields.
func (c *RunConfig) Validate() error {
	if c.FillModel == "" {
		c.FillModel = FillModelCloseToOpen
	}

	if c.Matching.TieBreak == "" {
		c.Matching.TieBreak = TieBreakStopLimitMarket
	}

	if c.Slippage.Model == "" {
		c.Slippage.Model = SlippageFixedBps
	}

	if c.Commission.Type == "" {
		c.Commission.Type = commission.ModelTypeBps
	}

	if c.Sizing.Type == "" {
		c.Sizing.Type = SizingFixed
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeConfigValidation, "invalid run config", err)
	}

	switch c.FillModel {
	case FillModelCloseToOpen, FillModelCloseToClose:
	default:
		return errors.Newf(errors.ErrCodeInvalidFillModel, "unknown fill model: %s", c.FillModel)
	}

	switch c.Slippage.Model {
	case SlippageFixedBps, SlippageSpreadAware, SlippageDepthAware, SlippageATRBased, SlippageLatencyBars:
	default:
		return errors.Newf(errors.ErrCodeInvalidSlippage, "unknown slippage model: %s", c.Slippage.Model)
	}

	switch c.Commission.Type {
	case commission.ModelTypeBps, commission.ModelTypeFixed, commission.ModelTypeSchedule:
	default:
		return errors.Newf(errors.ErrCodeInvalidCommission, "unknown commission model: %s", c.Commission.Type)
	}

	switch c.Sizing.Type {
	case SizingFixed, SizingPercentEquity, SizingRisk:
	default:
		return errors.Newf(errors.ErrCodeInvalidSizing, "unknown sizing type: %s", c.Sizing.Type)
	}

	switch c.Matching.TieBreak {
	case TieBreakStopLimitMarket, TieBreakSubmission:
	default:
		return errors.Newf(errors.ErrCodeInvalidTieBreak, "unknown tie break: %s", c.Matching.TieBreak)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidTimeRange, "end_time is before start_time")
	}

	if c.Funding.Enabled && c.Funding.IntervalBars <= 0 {
		return errors.New(errors.ErrCodeInvalidFunding, "funding requires a positive interval_bars")
	}

	return nil
}

// CommissionModel constructs the commission model this config selects.
func (c *RunConfig) CommissionModel() commission.Model {
	switch c.Commission.Type {
	case commission.ModelTypeFixed:
		return commission.NewFixedModel(c.Commission.Fixed)
	case commission.ModelTypeSchedule:
		return commission.NewScheduleModel(c.Commission.Schedule)
	case commission.ModelTypeBps:
		return commission.NewBpsModel(c.Commission.Bps)
	default:
		return commission.NewZeroModel()
	}
}

// GenerateSchema generates a JSON schema for the RunConfig.
func (c *RunConfig) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if strings.HasSuffix(t.String(), "engine.FillModel") {
				return &jsonschema.Schema{Type: "string", Enum: AllFillModels}
			}

			if strings.HasSuffix(t.String(), "engine.SlippageModel") {
				return &jsonschema.Schema{Type: "string", Enum: AllSlippageModels}
			}

			if strings.HasSuffix(t.String(), "engine.SizingType") {
				return &jsonschema.Schema{Type: "string", Enum: AllSizingTypes}
			}

			if strings.HasSuffix(t.String(), "engine.TieBreak") {
				return &jsonschema.Schema{Type: "string", Enum: AllTieBreaks}
			}

			if strings.HasSuffix(t.String(), "commission.ModelType") {
				return &jsonschema.Schema{Type: "string", Enum: commission.AllModelTypes}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "run-config"
	schema.Description = "Configuration schema for a backtest run"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates a JSON schema string for the RunConfig.
func (c *RunConfig) GenerateSchemaJSON() (string, error) {
	schema := c.GenerateSchema()

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// EmptyConfig returns a RunConfig with default values.
func EmptyConfig() RunConfig {
	return RunConfig{
		Leverage:  1,
		FillModel: FillModelCloseToOpen,
		Matching:  MatchingConfig{TieBreak: TieBreakStopLimitMarket},
		Slippage:  SlippageConfig{Model: SlippageFixedBps},
		Commission: CommissionConfig{
			Type: commission.ModelTypeBps,
		},
		Sizing: SizingConfig{Type: SizingFixed, Value: 1},
	}
}
