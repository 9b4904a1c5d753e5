package engine

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/engine/engine_v1/cache"
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// backtestContext is the StrategyContext handed to strategy callbacks. It is
// scoped to the current bar: series accessors never extend past it, and
// intents registered here rest as NEW orders until the fill model activates
// them. During warmup bars trading is disabled and intents are dropped.
type backtestContext struct {
	engine *BacktestEngineV1

	barIndex       int
	bar            types.MarketData
	tradingEnabled bool
}

var _ runtime.StrategyContext = (*backtestContext)(nil)

func (c *backtestContext) BarIndex() int {
	return c.barIndex
}

func (c *backtestContext) Bar(i int) (types.MarketData, error) {
	if i > c.barIndex {
		return types.MarketData{}, errors.Newf(errors.ErrCodeBarOutOfRange,
			"bar %d is ahead of current bar %d", i, c.barIndex)
	}

	return c.engine.window.Bar(i)
}

func (c *backtestContext) CurrentBar() types.MarketData {
	return c.bar
}

func (c *backtestContext) Times() []time.Time {
	bars := c.engine.window.SliceTo(0, c.barIndex)

	times := make([]time.Time, len(bars))
	for i, b := range bars {
		times[i] = b.Time
	}

	return times
}

func (c *backtestContext) Opens() []float64 {
	return c.engine.window.Opens(c.barIndex)
}

func (c *backtestContext) Highs() []float64 {
	return c.engine.window.Highs(c.barIndex)
}

func (c *backtestContext) Lows() []float64 {
	return c.engine.window.Lows(c.barIndex)
}

func (c *backtestContext) Closes() []float64 {
	return c.engine.window.Closes(c.barIndex)
}

func (c *backtestContext) Volumes() []float64 {
	return c.engine.window.Volumes(c.barIndex)
}

func (c *backtestContext) Buy(intent runtime.OrderIntent) (string, error) {
	return c.submit(types.OrderSideBuy, intent, types.OrderReasonStrategy)
}

func (c *backtestContext) Sell(intent runtime.OrderIntent) (string, error) {
	return c.submit(types.OrderSideSell, intent, types.OrderReasonStrategy)
}

func (c *backtestContext) Cancel(orderID string) error {
	_, err := c.engine.book.Cancel(orderID)
	if err != nil {
		return err
	}

	c.engine.notifyOrder(orderID)

	return nil
}

func (c *backtestContext) Flatten() (string, error) {
	position := c.engine.ledger.Position()
	if position.Direction() == 0 {
		return "", errors.New(errors.ErrCodeInvalidOrder, "cannot flatten a flat position")
	}

	side := types.OrderSideSell
	if position.Direction() < 0 {
		side = types.OrderSideBuy
	}

	intent := runtime.OrderIntent{
		Size: decimal.NewFromFloat(position.Size).Abs().InexactFloat64(),
		Type: types.OrderTypeMarket,
	}

	return c.submit(side, intent, types.OrderReasonFlatten)
}

func (c *backtestContext) Position() types.Position {
	return c.engine.ledger.Position()
}

func (c *backtestContext) Portfolio() runtime.PortfolioView {
	mark := c.bar.Close
	equity := c.engine.ledger.Equity(mark)
	position := c.engine.ledger.Position()
	notional := position.Notional(mark)

	view := runtime.PortfolioView{
		Cash:       c.engine.ledger.Cash(),
		Equity:     equity,
		MarginUsed: notional / c.engine.config.Leverage,
		Leverage:   c.engine.config.Leverage,
	}

	if equity > 0 {
		view.Exposure = notional / equity
	}

	return view
}

func (c *backtestContext) Params() runtime.Params {
	return c.engine.params
}

func (c *backtestContext) Logger() runtime.StrategyLogger {
	return c.engine.runLog
}

func (c *backtestContext) State() cache.Cache {
	return c.engine.state
}

// submit resolves the intent's size against the sizing model and registers
// the order as NEW at the current bar. Warmup bars drop the intent.
func (c *backtestContext) submit(side types.OrderSide, intent runtime.OrderIntent, reason string) (string, error) {
	if !c.tradingEnabled {
		c.engine.log.Debug("intent dropped during warmup",
			zap.Int("bar", c.barIndex),
			zap.String("side", string(side)),
		)

		return "", nil
	}

	size := intent.Size
	if size == 0 {
		size = c.resolveSize(intent)
	}

	if size <= 0 {
		return "", errors.Newf(errors.ErrCodeInvalidQuantity, "resolved order size is not positive: %f", size)
	}

	orderType := intent.Type
	if orderType == "" {
		orderType = types.OrderTypeMarket
	}

	tif := intent.TimeInForce
	if tif == "" {
		tif = types.TimeInForceGTC
	}

	order := types.Order{
		Symbol:          c.engine.window.Symbol(),
		Side:            side,
		Type:            orderType,
		Size:            size,
		TimeInForce:     tif,
		LimitPrice:      intent.LimitPrice,
		StopPrice:       intent.StopPrice,
		ExpireAfterBars: intent.ExpireAfterBars,
		SubmitTime:      c.bar.Time,
		StrategyName:    c.engine.strategy.Name(),
		Reason:          types.Reason{Reason: reason, Message: intent.Message},
	}

	return c.engine.book.Submit(order, c.barIndex)
}

// resolveSize applies the configured sizing model. Percent-equity sizes
// against current equity, not initial cash; risk sizing needs a stop distance
// and falls back to percent-equity without one.
func (c *backtestContext) resolveSize(intent runtime.OrderIntent) float64 {
	entry := c.bar.Close
	if intent.LimitPrice.IsSome() {
		entry = intent.LimitPrice.Unwrap()
	} else if intent.StopPrice.IsSome() {
		entry = intent.StopPrice.Unwrap()
	}

	if entry <= 0 {
		return 0
	}

	equity := c.engine.ledger.Equity(c.bar.Close)
	value := c.engine.config.Sizing.Value

	switch c.engine.config.Sizing.Type {
	case SizingFixed:
		return value

	case SizingRisk:
		if intent.StopPrice.IsSome() {
			distance := entry - intent.StopPrice.Unwrap()
			if distance < 0 {
				distance = -distance
			}

			if distance > 0 {
				return equity * value / distance
			}
		}

		return equity * value / entry

	case SizingPercentEquity:
		return equity * value / entry
	}

	return 0
}
