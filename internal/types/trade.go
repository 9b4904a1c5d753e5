package types

import "time"

// Trade is a closed round trip derived by pairing opening fills with closing
// fills on the same position lineage. Not a primary record: the report
// aggregator produces trades from the fill stream.
type Trade struct {
	Side       PositionSide `yaml:"side" json:"side" csv:"side"`
	Size       float64      `yaml:"size" json:"size" csv:"size"`
	EntryBar   int          `yaml:"entry_bar" json:"entry_bar" csv:"entry_bar"`
	EntryTime  time.Time    `yaml:"entry_time" json:"entry_time" csv:"entry_time"`
	EntryPrice float64      `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	ExitBar    int          `yaml:"exit_bar" json:"exit_bar" csv:"exit_bar"`
	ExitTime   time.Time    `yaml:"exit_time" json:"exit_time" csv:"exit_time"`
	ExitPrice  float64      `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	PnL        float64      `yaml:"pnl" json:"pnl" csv:"pnl"`
	Fees       float64      `yaml:"fees" json:"fees" csv:"fees"`
	// MAE is the maximum adverse excursion between entry and exit.
	MAE float64 `yaml:"mae" json:"mae" csv:"mae"`
	// MFE is the maximum favorable excursion between entry and exit.
	MFE      float64 `yaml:"mfe" json:"mfe" csv:"mfe"`
	BarsHeld int     `yaml:"bars_held" json:"bars_held" csv:"bars_held"`
}
