package engine

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/engine/engine_v1/commission"
	"github.com/rxtech-lab/argo-backtest/internal/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FillPipeline turns a matching trigger into an immutable fill record. The
// stages run in a fixed order: slippage adjusts the reference price, then
// commission is computed on the adjusted notional, then any funding flow due
// on this bar is attached. Given the same inputs it always produces the same
// fill.
type FillPipeline struct {
	config     *RunConfig
	commission commission.Model
	window     *datasource.BarWindow
	log        *logger.Logger

	// atr caches the ATR series for the atr_based slippage model, computed
	// once over the whole window.
	atr []float64
}

func NewFillPipeline(config *RunConfig, window *datasource.BarWindow, log *logger.Logger) *FillPipeline {
	return &FillPipeline{
		config:     config,
		commission: config.CommissionModel(),
		window:     window,
		log:        log,
	}
}

// Apply builds the fill for a trigger at the given bar. fundingFlow is the
// funding amount due on this bar, attached to the fill record; pass zero when
// no boundary falls on the bar or the flow was already attached.
func (p *FillPipeline) Apply(trigger Trigger, bar types.MarketData, barIndex int, strategyName string, fundingFlow float64) types.Fill {
	order := trigger.Order

	price := p.adjustedPrice(trigger.RefPrice, order.Side, trigger.Quantity, bar, barIndex)
	fee := p.commission.Calculate(trigger.Quantity, price)

	fill := types.Fill{
		OrderID:      order.ID,
		Symbol:       order.Symbol,
		Side:         order.Side,
		BarIndex:     barIndex,
		Time:         bar.Time,
		Price:        price,
		Quantity:     trigger.Quantity,
		Slippage:     signedSlippage(price, trigger.RefPrice, order.Side),
		Commission:   fee,
		Funding:      fundingFlow,
		StrategyName: strategyName,
	}

	p.log.Debug("fill produced",
		zap.String("order_id", order.ID),
		zap.Int("bar", barIndex),
		zap.Float64("ref_price", trigger.RefPrice),
		zap.Float64("price", price),
		zap.Float64("quantity", trigger.Quantity),
		zap.Float64("commission", fee),
	)

	return fill
}

// FundingFlow returns the cash flow due at a funding boundary against the
// open position. A positive rate debits longs and credits shorts; the flat
// position pays nothing.
func (p *FillPipeline) FundingFlow(position types.Position, markPrice float64) float64 {
	if !p.config.Funding.Enabled || position.Direction() == 0 {
		return 0
	}

	notional := decimal.NewFromFloat(position.Notional(markPrice))
	rate := decimal.NewFromFloat(p.config.Funding.RateBps).Div(decimal.NewFromInt(10000))
	flow, _ := notional.Mul(rate).Float64()

	return -position.Direction() * flow
}

// IsFundingBoundary reports whether a funding flow is assessed at barIndex.
func (p *FillPipeline) IsFundingBoundary(barIndex int) bool {
	interval := p.config.Funding.IntervalBars

	return p.config.Funding.Enabled && interval > 0 && barIndex > 0 && barIndex%interval == 0
}

// adjustedPrice applies the configured slippage model. Every model degrades
// to the fixed basis-point adjustment when its required input is missing from
// the bar data.
func (p *FillPipeline) adjustedPrice(ref float64, side types.OrderSide, quantity float64, bar types.MarketData, barIndex int) float64 {
	direction := 1.0
	if side == types.OrderSideSell {
		direction = -1.0
	}

	switch p.config.Slippage.Model {
	case SlippageSpreadAware:
		if p.config.Slippage.SpreadBps > 0 {
			return applyBps(ref, direction, p.config.Slippage.SpreadBps)
		}

	case SlippageDepthAware:
		fraction := p.config.Slippage.DepthVolumeFraction
		if fraction > 0 && bar.Volume > 0 {
			depth := bar.Volume * fraction
			// Quantity beyond the assumed depth walks the price linearly.
			impact := p.config.Slippage.Bps * (1 + math.Max(0, quantity-depth)/depth)

			return applyBps(ref, direction, impact)
		}

	case SlippageATRBased:
		if atr := p.atrAt(barIndex); !math.IsNaN(atr) {
			return ref + direction*p.config.Slippage.ATRMultiplier*atr
		}

	case SlippageLatencyBars:
		delayed := barIndex + p.config.Slippage.LatencyBars
		if p.config.Slippage.LatencyBars > 0 && delayed < p.window.Len() {
			bar, err := p.window.Bar(delayed)
			if err == nil {
				return applyBps(bar.Open, direction, p.config.Slippage.Bps)
			}
		}
	}

	return applyBps(ref, direction, p.config.Slippage.Bps)
}

func (p *FillPipeline) atrAt(barIndex int) float64 {
	if p.atr == nil {
		p.atr = make([]float64, 0)

		period := p.config.Slippage.ATRPeriod
		if period > 0 && p.window.Len() >= period+1 {
			series, err := indicator.ATR(p.window.SliceTo(0, p.window.Len()-1), period)
			if err == nil {
				p.atr = series
			}
		}
	}

	if barIndex >= len(p.atr) {
		return math.NaN()
	}

	return p.atr[barIndex]
}

func applyBps(price, direction, bps float64) float64 {
	adjusted := decimal.NewFromFloat(price).
		Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(direction * bps / 10000)))
	out, _ := adjusted.Float64()

	return out
}

func signedSlippage(price, ref float64, side types.OrderSide) float64 {
	if side == types.OrderSideBuy {
		return price - ref
	}

	return ref - price
}
