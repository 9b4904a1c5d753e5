package types

import "time"

// EquitySnapshot is the per-bar portfolio mark. Produced once per bar; the
// append-only sequence forms the equity curve.
type EquitySnapshot struct {
	BarIndex     int       `yaml:"bar_index" json:"bar_index" csv:"bar_index"`
	Time         time.Time `yaml:"time" json:"time" csv:"time"`
	Cash         float64   `yaml:"cash" json:"cash" csv:"cash"`
	Equity       float64   `yaml:"equity" json:"equity" csv:"equity"`
	PositionSize float64   `yaml:"position_size" json:"position_size" csv:"position_size"`
	MarkPrice    float64   `yaml:"mark_price" json:"mark_price" csv:"mark_price"`
	// Exposure is |position notional| / equity.
	Exposure float64 `yaml:"exposure" json:"exposure" csv:"exposure"`
	// MarginUsed is position notional / leverage.
	MarginUsed float64 `yaml:"margin_used" json:"margin_used" csv:"margin_used"`
	// PeakEquity is the running maximum equity, non-decreasing across bars.
	PeakEquity float64 `yaml:"peak_equity" json:"peak_equity" csv:"peak_equity"`
	// Drawdown is (peak - equity) / peak.
	Drawdown float64 `yaml:"drawdown" json:"drawdown" csv:"drawdown"`
}
