package engine

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderBook owns all order records of a run and enforces legal lifecycle
// transitions. Order ids are deterministic per-run sequence numbers so two
// executions of the same config produce byte-identical records.
type OrderBook struct {
	log     *logger.Logger
	orders  map[string]*types.Order
	seq     []string // submission order, the FIFO tie-break basis
	nextSeq int
}

func NewOrderBook(log *logger.Logger) *OrderBook {
	return &OrderBook{
		log:     log,
		orders:  make(map[string]*types.Order),
		seq:     nil,
		nextSeq: 0,
	}
}

// Submit registers a validated order as NEW at the given bar and returns its
// id. Invalid orders are rejected without being recorded.
func (b *OrderBook) Submit(order types.Order, barIndex int) (string, error) {
	order.State = types.OrderStateNew
	order.SubmitBar = barIndex
	order.SubmitIndex = b.nextSeq
	order.ID = fmt.Sprintf("ord-%06d", b.nextSeq+1)

	if err := order.Validate(); err != nil {
		return "", err
	}

	b.nextSeq++
	b.orders[order.ID] = &order
	b.seq = append(b.seq, order.ID)

	b.log.Debug("order submitted",
		zap.String("order_id", order.ID),
		zap.String("side", string(order.Side)),
		zap.String("type", string(order.Type)),
		zap.Float64("size", order.Size),
		zap.Int("bar", barIndex),
	)

	return order.ID, nil
}

// Cancel requests cancellation. Returns false with an InvalidTransition
// error when the order is already terminal; the run continues in that case.
func (b *OrderBook) Cancel(orderID string) (bool, error) {
	order, ok := b.orders[orderID]
	if !ok {
		return false, errors.Newf(errors.ErrCodeOrderNotFound, "no order with id %s", orderID)
	}

	if order.IsTerminal() {
		return false, errors.Newf(errors.ErrCodeInvalidTransition,
			"cannot cancel order %s in terminal state %s", orderID, order.State)
	}

	if err := b.transition(order, types.OrderStateCanceled); err != nil {
		return false, err
	}

	return true, nil
}

// Activate moves NEW orders submitted at or before barIndex into ACTIVE.
// Returns the activated orders in submission order.
func (b *OrderBook) Activate(barIndex int) []*types.Order {
	var activated []*types.Order

	for _, id := range b.seq {
		order := b.orders[id]
		if order.State == types.OrderStateNew && order.SubmitBar <= barIndex {
			// NEW -> ACTIVE cannot fail by construction.
			_ = b.transition(order, types.OrderStateActive)

			activated = append(activated, order)
		}
	}

	return activated
}

// ActiveOrders returns orders in state ACTIVE or PARTIAL, ordered by
// submission bar then submission index. The matching engine consumes this
// ordering as its FIFO tie-break basis.
func (b *OrderBook) ActiveOrders() []*types.Order {
	var active []*types.Order

	for _, id := range b.seq {
		order := b.orders[id]
		if order.State == types.OrderStateActive || order.State == types.OrderStatePartial {
			active = append(active, order)
		}
	}

	return active
}

// ExpireDue expires GTD orders whose deadline bar has passed without a full
// fill. Partial fill history is preserved on the expired record.
func (b *OrderBook) ExpireDue(barIndex int) []*types.Order {
	var expired []*types.Order

	for _, id := range b.seq {
		order := b.orders[id]
		if order.IsTerminal() || order.State == types.OrderStateNew {
			continue
		}

		if order.TimeInForce != types.TimeInForceGTD || order.ExpireAfterBars.IsNone() {
			continue
		}

		if barIndex > order.SubmitBar+order.ExpireAfterBars.Unwrap() {
			_ = b.transition(order, types.OrderStateExpired)

			expired = append(expired, order)
		}
	}

	return expired
}

// ApplyFill accumulates a fill into the order: filled size grows, the
// average fill price is notional-weighted, and the state moves to PARTIAL or
// FILLED. The fill quantity must not exceed the remaining size.
func (b *OrderBook) ApplyFill(orderID string, fill types.Fill) error {
	order, ok := b.orders[orderID]
	if !ok {
		return errors.Newf(errors.ErrCodeOrderNotFound, "no order with id %s", orderID)
	}

	if order.State != types.OrderStateActive && order.State != types.OrderStatePartial {
		return errors.Newf(errors.ErrCodeInvalidTransition,
			"cannot fill order %s in state %s", orderID, order.State)
	}

	if fill.Quantity <= 0 || fill.Quantity > order.Remaining()+1e-12 {
		return errors.Newf(errors.ErrCodeInvalidQuantity,
			"fill quantity %f exceeds remaining %f on order %s", fill.Quantity, order.Remaining(), orderID)
	}

	prevNotional := decimal.NewFromFloat(order.AvgFillPrice).Mul(decimal.NewFromFloat(order.FilledSize))
	fillNotional := decimal.NewFromFloat(fill.Price).Mul(decimal.NewFromFloat(fill.Quantity))
	newFilled := decimal.NewFromFloat(order.FilledSize).Add(decimal.NewFromFloat(fill.Quantity))

	avg, _ := prevNotional.Add(fillNotional).Div(newFilled).Float64()
	order.AvgFillPrice = avg
	order.FilledSize, _ = newFilled.Float64()

	if order.Remaining() <= 1e-12 {
		order.FilledSize = order.Size

		return b.transition(order, types.OrderStateFilled)
	}

	return b.transition(order, types.OrderStatePartial)
}

// MarkStopTriggered records the bar a STOP_LIMIT order's stop leg fired.
// From that bar on the order is evaluated with limit logic.
func (b *OrderBook) MarkStopTriggered(orderID string, barIndex int) error {
	order, ok := b.orders[orderID]
	if !ok {
		return errors.Newf(errors.ErrCodeOrderNotFound, "no order with id %s", orderID)
	}

	order.StopTriggeredBar = optional.Some(barIndex)

	return nil
}

// Get returns a copy of the order with the given id.
func (b *OrderBook) Get(orderID string) (optional.Option[types.Order], error) {
	order, ok := b.orders[orderID]
	if !ok {
		return optional.None[types.Order](), nil
	}

	return optional.Some(*order), nil
}

// AllOrders returns copies of every order in submission order.
func (b *OrderBook) AllOrders() []types.Order {
	out := make([]types.Order, 0, len(b.seq))
	for _, id := range b.seq {
		out = append(out, *b.orders[id])
	}

	return out
}

// CancelWithReason cancels a non-terminal order and records why, e.g. a
// failed margin check at fill time.
func (b *OrderBook) CancelWithReason(orderID string, reason string) error {
	order, ok := b.orders[orderID]
	if !ok {
		return errors.Newf(errors.ErrCodeOrderNotFound, "no order with id %s", orderID)
	}

	if order.IsTerminal() {
		return errors.Newf(errors.ErrCodeInvalidTransition,
			"cannot cancel order %s in terminal state %s", orderID, order.State)
	}

	order.Reason = types.Reason{Reason: reason, Message: order.Reason.Message}

	return b.transition(order, types.OrderStateCanceled)
}

func (b *OrderBook) transition(order *types.Order, to types.OrderState) error {
	if !order.State.CanTransition(to) {
		return errors.Newf(errors.ErrCodeInvalidTransition,
			"illegal transition %s -> %s on order %s", order.State, to, order.ID)
	}

	b.log.Debug("order transition",
		zap.String("order_id", order.ID),
		zap.String("from", string(order.State)),
		zap.String("to", string(to)),
	)

	order.State = to

	return nil
}
