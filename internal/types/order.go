package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

type OrderSide string

type OrderType string

type OrderState string

type TimeInForce string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStop      OrderType = "STOP"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
)

const (
	// OrderStateNew is assigned on intent registration within the same bar.
	OrderStateNew OrderState = "NEW"
	// OrderStateActive is the resting state evaluated by the matching engine.
	OrderStateActive OrderState = "ACTIVE"
	// OrderStatePartial is an active order with a non-zero filled size.
	OrderStatePartial  OrderState = "PARTIAL"
	OrderStateFilled   OrderState = "FILLED"
	OrderStateCanceled OrderState = "CANCELED"
	OrderStateExpired  OrderState = "EXPIRED"
)

const (
	TimeInForceGTC TimeInForce = "GTC"
	// TimeInForceGTD expires the order once its deadline bar has passed
	// without a full fill.
	TimeInForceGTD TimeInForce = "GTD"
)

const (
	OrderReasonStrategy      string = "strategy"
	OrderReasonFlatten       string = "flatten"
	OrderReasonCloseOnFinish string = "close_on_finish"
)

// Reason records why an order was submitted.
type Reason struct {
	Reason  string `yaml:"reason" json:"reason" csv:"reason"`
	Message string `yaml:"message" json:"message" csv:"message"`
}

// Order is an order record owned by the lifecycle manager. FilledSize and
// AvgFillPrice accumulate across partial fills; FilledSize never exceeds Size.
type Order struct {
	ID          string      `yaml:"id" json:"id" csv:"id"`
	Symbol      string      `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Side        OrderSide   `yaml:"side" json:"side" csv:"side" validate:"required,oneof=BUY SELL"`
	Type        OrderType   `yaml:"type" json:"type" csv:"type" validate:"required,oneof=MARKET LIMIT STOP STOP_LIMIT"`
	Size        float64     `yaml:"size" json:"size" csv:"size" validate:"required,gt=0"`
	TimeInForce TimeInForce `yaml:"time_in_force" json:"time_in_force" csv:"time_in_force" validate:"required,oneof=GTC GTD"`

	// LimitPrice is required for LIMIT and STOP_LIMIT orders.
	LimitPrice optional.Option[float64] `yaml:"limit_price" json:"limit_price" csv:"limit_price"`
	// StopPrice is required for STOP and STOP_LIMIT orders.
	StopPrice optional.Option[float64] `yaml:"stop_price" json:"stop_price" csv:"stop_price"`
	// ExpireAfterBars is the GTD deadline counted from the submission bar.
	ExpireAfterBars optional.Option[int] `yaml:"expire_after_bars" json:"expire_after_bars" csv:"expire_after_bars"`

	State        OrderState `yaml:"state" json:"state" csv:"state"`
	FilledSize   float64    `yaml:"filled_size" json:"filled_size" csv:"filled_size"`
	AvgFillPrice float64    `yaml:"avg_fill_price" json:"avg_fill_price" csv:"avg_fill_price"`

	SubmitBar   int       `yaml:"submit_bar" json:"submit_bar" csv:"submit_bar"`
	SubmitIndex int       `yaml:"submit_index" json:"submit_index" csv:"submit_index"`
	SubmitTime  time.Time `yaml:"submit_time" json:"submit_time" csv:"submit_time"`

	// StopTriggeredBar is set on a STOP_LIMIT once the stop leg has fired;
	// from that bar on the order is evaluated with limit logic.
	StopTriggeredBar optional.Option[int] `yaml:"stop_triggered_bar" json:"stop_triggered_bar" csv:"stop_triggered_bar"`

	StrategyName string `yaml:"strategy_name" json:"strategy_name" csv:"strategy_name" validate:"required"`
	Reason       Reason `yaml:"reason" json:"reason" csv:"reason"`
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() float64 {
	return o.Size - o.FilledSize
}

// IsTerminal reports whether the order state admits no further transitions.
func (o *Order) IsTerminal() bool {
	return o.State.IsTerminal()
}

// IsTerminal reports whether s is FILLED, CANCELED, or EXPIRED.
func (s OrderState) IsTerminal() bool {
	switch s {
	case OrderStateFilled, OrderStateCanceled, OrderStateExpired:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the s -> to transition is legal. Transitions
// are monotonic except ACTIVE <-> PARTIAL, which may repeat until terminal.
func (s OrderState) CanTransition(to OrderState) bool {
	if s.IsTerminal() {
		return false
	}

	switch s {
	case OrderStateNew:
		return to == OrderStateActive || to == OrderStateCanceled
	case OrderStateActive:
		return to == OrderStatePartial || to == OrderStateFilled ||
			to == OrderStateCanceled || to == OrderStateExpired
	case OrderStatePartial:
		return to == OrderStateActive || to == OrderStateFilled ||
			to == OrderStateCanceled || to == OrderStateExpired
	default:
		return false
	}
}

// Validate checks the order's static shape: struct tags plus the price
// fields its type requires.
func (o *Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	switch o.Type {
	case OrderTypeLimit:
		if err := requirePositivePrice(o.LimitPrice, "limit_price"); err != nil {
			return err
		}
	case OrderTypeStop:
		if err := requirePositivePrice(o.StopPrice, "stop_price"); err != nil {
			return err
		}
	case OrderTypeStopLimit:
		if err := requirePositivePrice(o.StopPrice, "stop_price"); err != nil {
			return err
		}

		if err := requirePositivePrice(o.LimitPrice, "limit_price"); err != nil {
			return err
		}
	case OrderTypeMarket:
	}

	if o.TimeInForce == TimeInForceGTD && o.ExpireAfterBars.IsNone() {
		return errors.New(errors.ErrCodeInvalidOrder, "GTD order requires expire_after_bars")
	}

	return nil
}

func requirePositivePrice(price optional.Option[float64], field string) error {
	if price.IsNone() {
		return errors.Newf(errors.ErrCodeInvalidPrice, "%s is required for this order type", field)
	}

	if price.Unwrap() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPrice, "%s must be greater than zero: %f", field, price.Unwrap())
	}

	return nil
}
