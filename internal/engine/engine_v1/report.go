package engine

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
)

// lineage tracks the open position between a flat-to-open fill and the fill
// that brings it back to flat. One lineage produces one trade.
type lineage struct {
	direction     int
	size          decimal.Decimal
	entryNotional decimal.Decimal
	entryQty      decimal.Decimal
	exitNotional  decimal.Decimal
	exitQty       decimal.Decimal
	fees          decimal.Decimal

	entryBar  int
	entryTime time.Time
	exitBar   int
	exitTime  time.Time

	mae decimal.Decimal
	mfe decimal.Decimal
}

// ReportAggregator folds the fill stream and equity curve into closed trades
// and summary stats. It mirrors the ledger's position arithmetic on its own
// decimals so trades can be derived incrementally without a second pass over
// the run.
type ReportAggregator struct {
	log *logger.Logger

	open   *lineage
	trades []types.Trade

	totalFees decimal.Decimal
}

func NewReportAggregator(log *logger.Logger) *ReportAggregator {
	return &ReportAggregator{log: log}
}

// OnFill folds one fill into the open lineage. Closing the position emits a
// trade; flipping closes the old lineage and opens a new one with the
// remainder at the fill price.
func (a *ReportAggregator) OnFill(fill types.Fill) {
	price := decimal.NewFromFloat(fill.Price)
	quantity := decimal.NewFromFloat(fill.Quantity)
	fee := decimal.NewFromFloat(fill.Commission)

	a.totalFees = a.totalFees.Add(fee)

	direction := 1
	if fill.Side == types.OrderSideSell {
		direction = -1
	}

	if a.open == nil {
		a.openLineage(fill, direction, price, quantity, fee)

		return
	}

	if direction == a.open.direction {
		a.open.size = a.open.size.Add(quantity)
		a.open.entryNotional = a.open.entryNotional.Add(price.Mul(quantity))
		a.open.entryQty = a.open.entryQty.Add(quantity)
		a.open.fees = a.open.fees.Add(fee)

		return
	}

	// Opposite side: this fill reduces or flips the lineage.
	closing := decimal.Min(quantity, a.open.size)
	a.open.size = a.open.size.Sub(closing)
	a.open.exitNotional = a.open.exitNotional.Add(price.Mul(closing))
	a.open.exitQty = a.open.exitQty.Add(closing)
	a.open.fees = a.open.fees.Add(fee)
	a.open.exitBar = fill.BarIndex
	a.open.exitTime = fill.Time

	if a.open.size.Sign() > 0 {
		return
	}

	a.emit()

	remainder := quantity.Sub(closing)
	if remainder.Sign() > 0 {
		// Flip: the remainder opens a fresh lineage. Its fee was already
		// attributed to the closed trade.
		a.openLineage(fill, direction, price, remainder, decimal.Zero)
	}
}

// OnSnapshot updates the open lineage's excursions against the bar's mark
// price. Call once per bar after mark-to-market.
func (a *ReportAggregator) OnSnapshot(snapshot types.EquitySnapshot) {
	if a.open == nil || a.open.entryQty.IsZero() {
		return
	}

	mark := decimal.NewFromFloat(snapshot.MarkPrice)
	entry := a.open.entryNotional.Div(a.open.entryQty)
	excursion := mark.Sub(entry).Mul(a.open.size).Mul(decimal.NewFromInt(int64(a.open.direction)))

	if excursion.Sign() < 0 && excursion.Neg().GreaterThan(a.open.mae) {
		a.open.mae = excursion.Neg()
	}

	if excursion.Sign() > 0 && excursion.GreaterThan(a.open.mfe) {
		a.open.mfe = excursion
	}
}

// Trades returns the closed trades so far.
func (a *ReportAggregator) Trades() []types.Trade {
	return a.trades
}

// Finalize computes the summary stats from the closed trades and the equity
// curve. A run with no losing trades reports a zero profit factor, matching
// the convention that the ratio is undefined.
func (a *ReportAggregator) Finalize(snapshots []types.EquitySnapshot, initialCash float64) types.SummaryStats {
	stats := types.SummaryStats{
		NumTrades:   len(a.trades),
		FinalEquity: initialCash,
	}

	stats.TotalFees, _ = a.totalFees.Float64()

	if len(snapshots) > 0 {
		final := snapshots[len(snapshots)-1].Equity
		stats.FinalEquity = final
		stats.TotalReturnPct = (final - initialCash) / initialCash * 100

		var maxDrawdown float64
		for _, s := range snapshots {
			if s.Drawdown > maxDrawdown {
				maxDrawdown = s.Drawdown
			}
		}

		stats.MaxDrawdownPct = maxDrawdown * 100
	}

	if len(a.trades) > 0 {
		var wins int

		grossProfit := decimal.Zero
		grossLoss := decimal.Zero

		for _, t := range a.trades {
			pnl := decimal.NewFromFloat(t.PnL)
			if pnl.Sign() > 0 {
				wins++

				grossProfit = grossProfit.Add(pnl)
			} else {
				grossLoss = grossLoss.Add(pnl.Neg())
			}
		}

		stats.WinRatePct = float64(wins) / float64(len(a.trades)) * 100

		if grossLoss.Sign() > 0 {
			stats.ProfitFactor, _ = grossProfit.Div(grossLoss).Float64()
		}
	}

	return stats
}

func (a *ReportAggregator) openLineage(fill types.Fill, direction int, price, quantity, fee decimal.Decimal) {
	a.open = &lineage{
		direction:     direction,
		size:          quantity,
		entryNotional: price.Mul(quantity),
		entryQty:      quantity,
		fees:          fee,
		entryBar:      fill.BarIndex,
		entryTime:     fill.Time,
	}
}

func (a *ReportAggregator) emit() {
	entryVWAP := a.open.entryNotional.Div(a.open.entryQty)
	exitVWAP := a.open.exitNotional.Div(a.open.exitQty)
	direction := decimal.NewFromInt(int64(a.open.direction))
	pnl := exitVWAP.Sub(entryVWAP).Mul(a.open.exitQty).Mul(direction).Sub(a.open.fees)

	side := types.PositionSideLong
	if a.open.direction < 0 {
		side = types.PositionSideShort
	}

	barsHeld := a.open.exitBar - a.open.entryBar
	if barsHeld < 1 {
		barsHeld = 1
	}

	trade := types.Trade{
		Side:      side,
		EntryBar:  a.open.entryBar,
		EntryTime: a.open.entryTime,
		ExitBar:   a.open.exitBar,
		ExitTime:  a.open.exitTime,
		BarsHeld:  barsHeld,
	}

	trade.Size, _ = a.open.exitQty.Float64()
	trade.EntryPrice, _ = entryVWAP.Float64()
	trade.ExitPrice, _ = exitVWAP.Float64()
	trade.PnL, _ = pnl.Float64()
	trade.Fees, _ = a.open.fees.Float64()
	trade.MAE, _ = a.open.mae.Float64()
	trade.MFE, _ = a.open.mfe.Float64()

	a.trades = append(a.trades, trade)
	a.open = nil
}
