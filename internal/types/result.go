package types

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RunStatus string

const (
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusHalted    RunStatus = "HALTED"
	RunStatusError     RunStatus = "ERROR"
)

// Halt reasons recorded on a HALTED run.
const (
	HaltReasonMaxDrawdown    string = "max_drawdown"
	HaltReasonMaxLeverage    string = "max_leverage"
	HaltReasonMaxPositions   string = "max_open_positions"
	HaltReasonDailyLossLimit string = "daily_loss_limit"
	HaltReasonCanceled       string = "canceled"
	HaltReasonMaxBars        string = "max_bars"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogRecord is a strategy or engine log line captured into the run result.
type LogRecord struct {
	Time     time.Time `yaml:"time" json:"time" csv:"time"`
	BarIndex int       `yaml:"bar_index" json:"bar_index" csv:"bar_index"`
	Level    LogLevel  `yaml:"level" json:"level" csv:"level"`
	Message  string    `yaml:"message" json:"message" csv:"message"`
}

// SummaryStats are the headline metrics derived from trades and the equity
// curve.
type SummaryStats struct {
	TotalReturnPct float64 `yaml:"total_return_pct" json:"total_return_pct"`
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct" json:"max_drawdown_pct"`
	NumTrades      int     `yaml:"num_trades" json:"num_trades"`
	WinRatePct     float64 `yaml:"win_rate_pct" json:"win_rate_pct"`
	ProfitFactor   float64 `yaml:"profit_factor" json:"profit_factor"`
	TotalFees      float64 `yaml:"total_fees" json:"total_fees"`
	FinalEquity    float64 `yaml:"final_equity" json:"final_equity"`
}

// RunResult is the terminal aggregate of a run. It is the only contract the
// persistence and reporting layers depend on.
type RunResult struct {
	RunID        string           `yaml:"run_id" json:"run_id"`
	StrategyName string           `yaml:"strategy_name" json:"strategy_name"`
	Symbol       string           `yaml:"symbol" json:"symbol"`
	Status       RunStatus        `yaml:"status" json:"status"`
	Reason       string           `yaml:"reason" json:"reason"`
	Orders       []Order          `yaml:"orders" json:"orders"`
	Fills        []Fill           `yaml:"fills" json:"fills"`
	Trades       []Trade          `yaml:"trades" json:"trades"`
	Snapshots    []EquitySnapshot `yaml:"snapshots" json:"snapshots"`
	Logs         []LogRecord      `yaml:"logs" json:"logs"`
	Stats        SummaryStats     `yaml:"stats" json:"stats"`
}

// WriteSummaryStats writes the summary stats as YAML to the given path.
func WriteSummaryStats(path string, stats SummaryStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
