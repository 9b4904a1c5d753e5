package types

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type OrderTestSuite struct {
	suite.Suite
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderTestSuite))
}

func (suite *OrderTestSuite) TestCanTransition() {
	tests := []struct {
		name    string
		from    OrderState
		to      OrderState
		allowed bool
	}{
		{name: "new to active", from: OrderStateNew, to: OrderStateActive, allowed: true},
		{name: "new to canceled", from: OrderStateNew, to: OrderStateCanceled, allowed: true},
		{name: "new to filled", from: OrderStateNew, to: OrderStateFilled, allowed: false},
		{name: "active to partial", from: OrderStateActive, to: OrderStatePartial, allowed: true},
		{name: "active to filled", from: OrderStateActive, to: OrderStateFilled, allowed: true},
		{name: "active to expired", from: OrderStateActive, to: OrderStateExpired, allowed: true},
		{name: "partial back to active", from: OrderStatePartial, to: OrderStateActive, allowed: true},
		{name: "partial to filled", from: OrderStatePartial, to: OrderStateFilled, allowed: true},
		{name: "partial to expired", from: OrderStatePartial, to: OrderStateExpired, allowed: true},
		{name: "filled is terminal", from: OrderStateFilled, to: OrderStateCanceled, allowed: false},
		{name: "canceled is terminal", from: OrderStateCanceled, to: OrderStateActive, allowed: false},
		{name: "expired is terminal", from: OrderStateExpired, to: OrderStateActive, allowed: false},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.Equal(tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func (suite *OrderTestSuite) TestValidate() {
	base := func() Order {
		return Order{
			Symbol:       "AAPL",
			Side:         OrderSideBuy,
			Type:         OrderTypeMarket,
			Size:         10,
			TimeInForce:  TimeInForceGTC,
			StrategyName: "test",
		}
	}

	tests := []struct {
		name    string
		mutate  func(o *Order)
		wantErr bool
	}{
		{name: "valid market order", mutate: func(o *Order) {}, wantErr: false},
		{
			name:    "zero size",
			mutate:  func(o *Order) { o.Size = 0 },
			wantErr: true,
		},
		{
			name:    "limit without limit price",
			mutate:  func(o *Order) { o.Type = OrderTypeLimit },
			wantErr: true,
		},
		{
			name: "limit with price",
			mutate: func(o *Order) {
				o.Type = OrderTypeLimit
				o.LimitPrice = optional.Some(100.0)
			},
			wantErr: false,
		},
		{
			name:    "stop without stop price",
			mutate:  func(o *Order) { o.Type = OrderTypeStop },
			wantErr: true,
		},
		{
			name: "stop limit needs both prices",
			mutate: func(o *Order) {
				o.Type = OrderTypeStopLimit
				o.StopPrice = optional.Some(105.0)
			},
			wantErr: true,
		},
		{
			name: "stop limit with both prices",
			mutate: func(o *Order) {
				o.Type = OrderTypeStopLimit
				o.StopPrice = optional.Some(105.0)
				o.LimitPrice = optional.Some(106.0)
			},
			wantErr: false,
		},
		{
			name: "negative limit price",
			mutate: func(o *Order) {
				o.Type = OrderTypeLimit
				o.LimitPrice = optional.Some(-1.0)
			},
			wantErr: true,
		},
		{
			name:    "gtd without deadline",
			mutate:  func(o *Order) { o.TimeInForce = TimeInForceGTD },
			wantErr: true,
		},
		{
			name: "gtd with deadline",
			mutate: func(o *Order) {
				o.TimeInForce = TimeInForceGTD
				o.ExpireAfterBars = optional.Some(5)
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			order := base()
			tt.mutate(&order)

			err := order.Validate()
			if tt.wantErr {
				suite.Error(err)
			} else {
				suite.NoError(err)
			}
		})
	}
}

func (suite *OrderTestSuite) TestRemaining() {
	order := Order{Size: 10, FilledSize: 4}
	suite.Equal(6.0, order.Remaining())
}

func (suite *OrderTestSuite) TestPositionSide() {
	long := Position{Size: 5}
	short := Position{Size: -5}
	flat := Position{}

	suite.Equal(PositionSideLong, long.Side())
	suite.Equal(PositionSideShort, short.Side())
	suite.Equal(PositionSideFlat, flat.Side())
	suite.Equal(1.0, long.Direction())
	suite.Equal(-1.0, short.Direction())
	suite.Equal(0.0, flat.Direction())
}

func (suite *OrderTestSuite) TestUnrealizedPnL() {
	long := Position{Size: 10, AvgEntryPrice: 100}
	suite.InDelta(50.0, long.UnrealizedPnL(105), 1e-9)

	short := Position{Size: -10, AvgEntryPrice: 100}
	suite.InDelta(50.0, short.UnrealizedPnL(95), 1e-9)
	suite.InDelta(-50.0, short.UnrealizedPnL(105), 1e-9)
}
