package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
	PositionSideFlat  PositionSide = "FLAT"
)

// Position is the signed holding owned exclusively by the portfolio ledger.
// Size is positive for long, negative for short. AvgEntryPrice is the
// volume-weighted entry price of the open quantity.
type Position struct {
	Symbol        string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Size          float64   `yaml:"size" json:"size" csv:"size"`
	AvgEntryPrice float64   `yaml:"avg_entry_price" json:"avg_entry_price" csv:"avg_entry_price"`
	RealizedPnL   float64   `yaml:"realized_pnl" json:"realized_pnl" csv:"realized_pnl"`
	OpenBar       int       `yaml:"open_bar" json:"open_bar" csv:"open_bar"`
	OpenTime      time.Time `yaml:"open_time" json:"open_time" csv:"open_time"`
	StrategyName  string    `yaml:"strategy_name" json:"strategy_name" csv:"strategy_name"`
}

// Side returns LONG, SHORT, or FLAT.
func (p *Position) Side() PositionSide {
	switch {
	case p.Size > 0:
		return PositionSideLong
	case p.Size < 0:
		return PositionSideShort
	default:
		return PositionSideFlat
	}
}

// Direction returns +1 for long, -1 for short, 0 for flat.
func (p *Position) Direction() float64 {
	switch {
	case p.Size > 0:
		return 1
	case p.Size < 0:
		return -1
	default:
		return 0
	}
}

// UnrealizedPnL is (mark - avg entry) * size. The sign of Size makes the
// short case come out right without branching.
func (p *Position) UnrealizedPnL(mark float64) float64 {
	if p.Size == 0 {
		return 0
	}

	markDec := decimal.NewFromFloat(mark)
	entryDec := decimal.NewFromFloat(p.AvgEntryPrice)
	sizeDec := decimal.NewFromFloat(p.Size)

	result, _ := markDec.Sub(entryDec).Mul(sizeDec).Float64()

	return result
}

// Notional returns |size| * mark.
func (p *Position) Notional(mark float64) float64 {
	sizeDec := decimal.NewFromFloat(p.Size).Abs()
	result, _ := sizeDec.Mul(decimal.NewFromFloat(mark)).Float64()

	return result
}
