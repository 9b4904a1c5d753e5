package engine

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type OrderBookTestSuite struct {
	suite.Suite
	book *OrderBook
}

func TestOrderBookSuite(t *testing.T) {
	suite.Run(t, new(OrderBookTestSuite))
}

func (suite *OrderBookTestSuite) SetupTest() {
	suite.book = NewOrderBook(logger.NewNopLogger())
}

func (suite *OrderBookTestSuite) marketOrder(size float64) types.Order {
	return types.Order{
		Symbol:       "AAPL",
		Side:         types.OrderSideBuy,
		Type:         types.OrderTypeMarket,
		Size:         size,
		TimeInForce:  types.TimeInForceGTC,
		StrategyName: "test",
	}
}

func (suite *OrderBookTestSuite) TestSubmitAssignsDeterministicIDs() {
	first, err := suite.book.Submit(suite.marketOrder(10), 0)
	suite.Require().NoError(err)

	second, err := suite.book.Submit(suite.marketOrder(5), 0)
	suite.Require().NoError(err)

	suite.Equal("ord-000001", first)
	suite.Equal("ord-000002", second)
}

func (suite *OrderBookTestSuite) TestSubmitRejectsInvalidOrder() {
	order := suite.marketOrder(0)

	_, err := suite.book.Submit(order, 0)
	suite.Error(err)
	suite.Empty(suite.book.AllOrders())
}

func (suite *OrderBookTestSuite) TestActivate() {
	id, err := suite.book.Submit(suite.marketOrder(10), 3)
	suite.Require().NoError(err)

	suite.Empty(suite.book.Activate(2))

	activated := suite.book.Activate(3)
	suite.Require().Len(activated, 1)
	suite.Equal(id, activated[0].ID)
	suite.Equal(types.OrderStateActive, activated[0].State)
}

func (suite *OrderBookTestSuite) TestPartialFillWeightedAverage() {
	id, err := suite.book.Submit(suite.marketOrder(10), 0)
	suite.Require().NoError(err)
	suite.book.Activate(0)

	err = suite.book.ApplyFill(id, types.Fill{
		OrderID: id, Quantity: 4, Price: 100, BarIndex: 1, Time: time.Now(),
	})
	suite.Require().NoError(err)

	order, _ := suite.book.Get(id)
	suite.Equal(types.OrderStatePartial, order.Unwrap().State)
	suite.InDelta(100.0, order.Unwrap().AvgFillPrice, 1e-9)

	err = suite.book.ApplyFill(id, types.Fill{
		OrderID: id, Quantity: 6, Price: 101, BarIndex: 2, Time: time.Now(),
	})
	suite.Require().NoError(err)

	order, _ = suite.book.Get(id)
	record := order.Unwrap()
	suite.Equal(types.OrderStateFilled, record.State)
	suite.Equal(10.0, record.FilledSize)
	// (4*100 + 6*101) / 10
	suite.InDelta(100.6, record.AvgFillPrice, 1e-9)
}

func (suite *OrderBookTestSuite) TestOverfillRejected() {
	id, err := suite.book.Submit(suite.marketOrder(10), 0)
	suite.Require().NoError(err)
	suite.book.Activate(0)

	err = suite.book.ApplyFill(id, types.Fill{OrderID: id, Quantity: 11, Price: 100})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidQuantity))
}

func (suite *OrderBookTestSuite) TestCancelTerminalOrderFails() {
	id, err := suite.book.Submit(suite.marketOrder(10), 0)
	suite.Require().NoError(err)
	suite.book.Activate(0)

	err = suite.book.ApplyFill(id, types.Fill{OrderID: id, Quantity: 10, Price: 100})
	suite.Require().NoError(err)

	ok, err := suite.book.Cancel(id)
	suite.False(ok)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTransition))
}

func (suite *OrderBookTestSuite) TestCancelPreservesPartialFill() {
	id, err := suite.book.Submit(suite.marketOrder(10), 0)
	suite.Require().NoError(err)
	suite.book.Activate(0)

	err = suite.book.ApplyFill(id, types.Fill{OrderID: id, Quantity: 4, Price: 100})
	suite.Require().NoError(err)

	ok, err := suite.book.Cancel(id)
	suite.True(ok)
	suite.NoError(err)

	order, _ := suite.book.Get(id)
	record := order.Unwrap()
	suite.Equal(types.OrderStateCanceled, record.State)
	suite.Equal(4.0, record.FilledSize)
}

func (suite *OrderBookTestSuite) TestExpireDue() {
	order := suite.marketOrder(10)
	order.Type = types.OrderTypeLimit
	order.LimitPrice = optional.Some(90.0)
	order.TimeInForce = types.TimeInForceGTD
	order.ExpireAfterBars = optional.Some(2)

	id, err := suite.book.Submit(order, 0)
	suite.Require().NoError(err)
	suite.book.Activate(0)

	suite.Empty(suite.book.ExpireDue(2))

	expired := suite.book.ExpireDue(3)
	suite.Require().Len(expired, 1)
	suite.Equal(id, expired[0].ID)
	suite.Equal(types.OrderStateExpired, expired[0].State)
}

func (suite *OrderBookTestSuite) TestActiveOrdersFIFO() {
	first, _ := suite.book.Submit(suite.marketOrder(1), 0)
	second, _ := suite.book.Submit(suite.marketOrder(2), 0)
	third, _ := suite.book.Submit(suite.marketOrder(3), 1)
	suite.book.Activate(1)

	active := suite.book.ActiveOrders()
	suite.Require().Len(active, 3)
	suite.Equal([]string{first, second, third}, []string{active[0].ID, active[1].ID, active[2].ID})
}

func (suite *OrderBookTestSuite) TestCancelWithReason() {
	id, _ := suite.book.Submit(suite.marketOrder(10), 0)
	suite.book.Activate(0)

	err := suite.book.CancelWithReason(id, "insufficient_margin")
	suite.Require().NoError(err)

	order, _ := suite.book.Get(id)
	suite.Equal(types.OrderStateCanceled, order.Unwrap().State)
	suite.Equal("insufficient_margin", order.Unwrap().Reason.Reason)
}
