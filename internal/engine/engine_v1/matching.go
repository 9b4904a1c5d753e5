package engine

import (
	"sort"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"go.uber.org/zap"
)

// triggerCategory orders same-bar triggers under the stop_limit_market tie
// break: stop triggers resolve before limit triggers before market orders.
type triggerCategory int

const (
	categoryStop triggerCategory = iota
	categoryLimit
	categoryMarket
)

// Trigger is a matching decision: the order fires this bar at RefPrice for
// Quantity units. Quantity already reflects the per-bar liquidity caps; when
// it is below the order's remainder the fill is partial.
type Trigger struct {
	Order    *types.Order
	RefPrice float64
	Quantity float64
	category triggerCategory
}

// MatchingEngine decides, per bar, which active orders trigger and at what
// reference price. It holds no state of its own: trigger bookkeeping for
// stop-limits lives on the order records.
type MatchingEngine struct {
	config *RunConfig
	book   *OrderBook
	log    *logger.Logger
}

func NewMatchingEngine(config *RunConfig, book *OrderBook, log *logger.Logger) *MatchingEngine {
	return &MatchingEngine{
		config: config,
		book:   book,
		log:    log,
	}
}

// Match evaluates every active order against the bar's OHLC range. Market
// orders use the bar's open as reference (the bar after their intent bar
// under close_to_open). Returns triggers in resolution order.
func (m *MatchingEngine) Match(bar types.MarketData, barIndex int) []Trigger {
	var triggers []Trigger

	for _, order := range m.book.ActiveOrders() {
		// Orders submitted this bar rest until the next bar's range under
		// close_to_open; MatchAtClose handles the same-bar model.
		if order.SubmitBar >= barIndex {
			continue
		}

		trigger, ok := m.evaluate(order, bar, barIndex)
		if !ok {
			continue
		}

		trigger.Quantity = m.cappedQuantity(order, bar)
		if trigger.Quantity <= 0 {
			continue
		}

		triggers = append(triggers, trigger)
	}

	m.sortTriggers(triggers)

	return triggers
}

// MatchAtClose evaluates market orders submitted at barIndex against the
// bar's own close. Only used by the close_to_close fill model; resting limit
// and stop orders still wait for the next bar's full range.
func (m *MatchingEngine) MatchAtClose(bar types.MarketData, barIndex int) []Trigger {
	var triggers []Trigger

	for _, order := range m.book.ActiveOrders() {
		if order.SubmitBar != barIndex || order.Type != types.OrderTypeMarket {
			continue
		}

		quantity := m.cappedQuantity(order, bar)
		if quantity <= 0 {
			continue
		}

		triggers = append(triggers, Trigger{
			Order:    order,
			RefPrice: bar.Close,
			Quantity: quantity,
			category: categoryMarket,
		})
	}

	m.sortTriggers(triggers)

	return triggers
}

func (m *MatchingEngine) evaluate(order *types.Order, bar types.MarketData, barIndex int) (Trigger, bool) {
	switch order.Type {
	case types.OrderTypeMarket:
		return Trigger{Order: order, RefPrice: bar.Open, category: categoryMarket}, true

	case types.OrderTypeLimit:
		ref, ok := limitReference(order.Side, order.LimitPrice.Unwrap(), bar)

		return Trigger{Order: order, RefPrice: ref, category: categoryLimit}, ok

	case types.OrderTypeStop:
		ref, ok := stopReference(order.Side, order.StopPrice.Unwrap(), bar)

		return Trigger{Order: order, RefPrice: ref, category: categoryStop}, ok

	case types.OrderTypeStopLimit:
		if order.StopTriggeredBar.IsNone() {
			if _, ok := stopReference(order.Side, order.StopPrice.Unwrap(), bar); ok {
				// The stop leg fired; the order becomes a pending limit
				// evaluated against subsequent bars.
				_ = m.book.MarkStopTriggered(order.ID, barIndex)

				m.log.Debug("stop-limit armed",
					zap.String("order_id", order.ID),
					zap.Int("bar", barIndex),
				)
			}

			return Trigger{}, false
		}

		if order.StopTriggeredBar.Unwrap() >= barIndex {
			return Trigger{}, false
		}

		ref, ok := limitReference(order.Side, order.LimitPrice.Unwrap(), bar)

		return Trigger{Order: order, RefPrice: ref, category: categoryLimit}, ok
	}

	return Trigger{}, false
}

// limitReference returns the reference price for a limit order against the
// bar, honoring gap price improvement: a bar that opens through the limit
// fills at the open.
func limitReference(side types.OrderSide, limit float64, bar types.MarketData) (float64, bool) {
	if side == types.OrderSideBuy {
		if bar.Low > limit {
			return 0, false
		}

		if bar.Open < limit {
			return bar.Open, true
		}

		return limit, true
	}

	if bar.High < limit {
		return 0, false
	}

	if bar.Open > limit {
		return bar.Open, true
	}

	return limit, true
}

// stopReference returns the reference price for a stop order against the
// bar. A buy stop elects above the stop price, a sell stop below; a bar
// gapping through the stop fills at the open.
func stopReference(side types.OrderSide, stop float64, bar types.MarketData) (float64, bool) {
	if side == types.OrderSideBuy {
		if bar.High < stop {
			return 0, false
		}

		if bar.Open > stop {
			return bar.Open, true
		}

		return stop, true
	}

	if bar.Low > stop {
		return 0, false
	}

	if bar.Open < stop {
		return bar.Open, true
	}

	return stop, true
}

// cappedQuantity applies the per-bar liquidity caps to the order remainder.
func (m *MatchingEngine) cappedQuantity(order *types.Order, bar types.MarketData) float64 {
	quantity := order.Remaining()

	fraction := m.config.Liquidity.MaxFillFraction
	if fraction > 0 && fraction < 1 {
		cap := order.Size * fraction
		if quantity > cap {
			quantity = cap
		}
	}

	volumeFraction := m.config.Liquidity.VolumeCapFraction
	if volumeFraction > 0 && bar.Volume > 0 {
		cap := bar.Volume * volumeFraction
		if quantity > cap {
			quantity = cap
		}
	}

	return quantity
}

func (m *MatchingEngine) sortTriggers(triggers []Trigger) {
	if m.config.Matching.TieBreak == TieBreakSubmission {
		sort.SliceStable(triggers, func(i, j int) bool {
			a, b := triggers[i].Order, triggers[j].Order
			if a.SubmitBar != b.SubmitBar {
				return a.SubmitBar < b.SubmitBar
			}

			return a.SubmitIndex < b.SubmitIndex
		})

		return
	}

	sort.SliceStable(triggers, func(i, j int) bool {
		if triggers[i].category != triggers[j].category {
			return triggers[i].category < triggers[j].category
		}

		a, b := triggers[i].Order, triggers[j].Order
		if a.SubmitBar != b.SubmitBar {
			return a.SubmitBar < b.SubmitBar
		}

		return a.SubmitIndex < b.SubmitIndex
	})
}
