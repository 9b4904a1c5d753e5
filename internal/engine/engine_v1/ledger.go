package engine

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger is the portfolio state of a run: cash, the signed position, and the
// running equity curve inputs. All position arithmetic runs on decimals so
// repeated fills do not accumulate float drift in the accounting identity
//
//	cash + avg_entry*size = initial - commissions + funding + realized_pnl
type Ledger struct {
	config *RunConfig
	log    *logger.Logger

	cash     decimal.Decimal
	size     decimal.Decimal
	avgEntry decimal.Decimal
	realized decimal.Decimal

	commissions decimal.Decimal
	fundingPaid decimal.Decimal

	peakEquity float64

	openBar  int
	openTime time.Time
	symbol   string
	strategy string
}

func NewLedger(config *RunConfig, log *logger.Logger) *Ledger {
	return &Ledger{
		config:     config,
		log:        log,
		cash:       decimal.NewFromFloat(config.InitialCash),
		peakEquity: config.InitialCash,
	}
}

// ApplyFill posts a fill to the ledger: cash moves by the signed notional,
// commission is debited, any attached funding flow is applied, and the
// position is updated with average-price accounting. Returns the position
// after the fill.
func (l *Ledger) ApplyFill(fill types.Fill) types.Position {
	price := decimal.NewFromFloat(fill.Price)
	quantity := decimal.NewFromFloat(fill.Quantity)

	signedQty := quantity
	if fill.Side == types.OrderSideSell {
		signedQty = quantity.Neg()
	}

	l.cash = l.cash.Sub(signedQty.Mul(price))
	l.cash = l.cash.Sub(decimal.NewFromFloat(fill.Commission))
	l.commissions = l.commissions.Add(decimal.NewFromFloat(fill.Commission))

	if fill.Funding != 0 {
		l.applyFundingDecimal(decimal.NewFromFloat(fill.Funding))
	}

	sameDirection := l.size.IsZero() || l.size.Sign() == signedQty.Sign()

	if sameDirection {
		if l.size.IsZero() {
			l.openBar = fill.BarIndex
			l.openTime = fill.Time
			l.symbol = fill.Symbol
			l.strategy = fill.StrategyName
			l.avgEntry = price
		} else {
			// Weighted average entry over the combined absolute size.
			oldNotional := l.avgEntry.Mul(l.size.Abs())
			addNotional := price.Mul(quantity)
			l.avgEntry = oldNotional.Add(addNotional).Div(l.size.Abs().Add(quantity))
		}

		l.size = l.size.Add(signedQty)

		return l.Position()
	}

	// Opposite direction: reduce first, realizing PnL against the average
	// entry, then flip any remainder into a fresh position at the fill price.
	reduce := decimal.Min(quantity, l.size.Abs())
	direction := decimal.NewFromInt(int64(l.size.Sign()))
	l.realized = l.realized.Add(price.Sub(l.avgEntry).Mul(direction).Mul(reduce))

	l.size = l.size.Add(signedQty)

	switch {
	case l.size.IsZero():
		l.avgEntry = decimal.Zero
		l.openBar = 0
		l.openTime = time.Time{}
	case l.size.Sign() == signedQty.Sign():
		// Flipped through flat: the remainder opens a new position lineage.
		l.avgEntry = price
		l.openBar = fill.BarIndex
		l.openTime = fill.Time
		l.symbol = fill.Symbol
		l.strategy = fill.StrategyName
	}

	l.log.Debug("fill posted",
		zap.String("order_id", fill.OrderID),
		zap.Float64("cash", l.Cash()),
		zap.String("size", l.size.String()),
		zap.String("realized", l.realized.String()),
	)

	return l.Position()
}

// ApplyFunding posts a standalone funding flow, used on boundary bars with no
// fills. Positive flows credit cash.
func (l *Ledger) ApplyFunding(flow float64) {
	if flow == 0 {
		return
	}

	l.applyFundingDecimal(decimal.NewFromFloat(flow))
}

func (l *Ledger) applyFundingDecimal(flow decimal.Decimal) {
	l.cash = l.cash.Add(flow)
	l.fundingPaid = l.fundingPaid.Add(flow)
}

// MarkToMarket values the portfolio at the bar close and returns the equity
// snapshot. Peak equity is monotonically non-decreasing across the run.
func (l *Ledger) MarkToMarket(barIndex int, ts time.Time, markPrice float64) types.EquitySnapshot {
	equity := l.Equity(markPrice)
	if equity > l.peakEquity {
		l.peakEquity = equity
	}

	notional, _ := l.size.Abs().Mul(decimal.NewFromFloat(markPrice)).Float64()

	var exposure float64
	if equity > 0 {
		exposure = notional / equity
	}

	var drawdown float64
	if l.peakEquity > 0 {
		drawdown = (l.peakEquity - equity) / l.peakEquity
	}

	size, _ := l.size.Float64()

	return types.EquitySnapshot{
		BarIndex:     barIndex,
		Time:         ts,
		Cash:         l.Cash(),
		Equity:       equity,
		PositionSize: size,
		MarkPrice:    markPrice,
		Exposure:     exposure,
		MarginUsed:   notional / l.config.Leverage,
		PeakEquity:   l.peakEquity,
		Drawdown:     drawdown,
	}
}

// Equity returns cash plus the signed position valued at markPrice.
func (l *Ledger) Equity(markPrice float64) float64 {
	equity, _ := l.cash.Add(l.size.Mul(decimal.NewFromFloat(markPrice))).Float64()

	return equity
}

// HasMargin reports whether adding quantity units at price keeps required
// margin within equity at the configured leverage.
func (l *Ledger) HasMargin(quantity, price, markPrice float64) bool {
	addNotional := decimal.NewFromFloat(quantity).Abs().Mul(decimal.NewFromFloat(price))
	openNotional := l.size.Abs().Mul(decimal.NewFromFloat(markPrice))
	required, _ := openNotional.Add(addNotional).Div(decimal.NewFromFloat(l.config.Leverage)).Float64()

	return required <= l.Equity(markPrice)
}

func (l *Ledger) Cash() float64 {
	cash, _ := l.cash.Float64()

	return cash
}

func (l *Ledger) RealizedPnL() float64 {
	realized, _ := l.realized.Float64()

	return realized
}

func (l *Ledger) TotalCommissions() float64 {
	fees, _ := l.commissions.Float64()

	return fees
}

func (l *Ledger) TotalFunding() float64 {
	funding, _ := l.fundingPaid.Float64()

	return funding
}

func (l *Ledger) PeakEquity() float64 {
	return l.peakEquity
}

// Position returns a copy of the current position record.
func (l *Ledger) Position() types.Position {
	size, _ := l.size.Float64()
	avg, _ := l.avgEntry.Float64()
	realized, _ := l.realized.Float64()

	return types.Position{
		Symbol:        l.symbol,
		Size:          size,
		AvgEntryPrice: avg,
		RealizedPnL:   realized,
		OpenBar:       l.openBar,
		OpenTime:      l.openTime,
		StrategyName:  l.strategy,
	}
}
