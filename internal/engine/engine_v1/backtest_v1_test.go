package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/engine"
	"github.com/rxtech-lab/argo-backtest/internal/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// scriptStrategy runs a per-bar callback, which is all the orchestrator tests
// need to drive precise order sequences.
type scriptStrategy struct {
	onBar  func(ctx runtime.StrategyContext, barIndex int) error
	orders []types.Order
	trades []types.Trade
}

func (s *scriptStrategy) Name() string { return "script" }

func (s *scriptStrategy) Schema() runtime.ParamSchema {
	return runtime.ParamSchema{ID: "script", Name: "Script"}
}

func (s *scriptStrategy) OnInit(ctx runtime.StrategyContext) error { return nil }

func (s *scriptStrategy) OnBar(ctx runtime.StrategyContext, barIndex int) error {
	if s.onBar == nil {
		return nil
	}

	return s.onBar(ctx, barIndex)
}

func (s *scriptStrategy) OnOrder(ctx runtime.StrategyContext, order types.Order) error {
	s.orders = append(s.orders, order)

	return nil
}

func (s *scriptStrategy) OnTrade(ctx runtime.StrategyContext, trade types.Trade) error {
	s.trades = append(s.trades, trade)

	return nil
}

func (s *scriptStrategy) OnFinish(ctx runtime.StrategyContext) error { return nil }

type BacktestEngineTestSuite struct {
	suite.Suite
}

func TestBacktestEngineSuite(t *testing.T) {
	suite.Run(t, new(BacktestEngineTestSuite))
}

var testStart = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// flatBars builds count identical bars, one per minute.
func flatBars(count int, price float64) []types.MarketData {
	bars := make([]types.MarketData, count)
	for i := range bars {
		bars[i] = types.MarketData{
			Symbol: "AAPL",
			Time:   testStart.Add(time.Duration(i) * time.Minute),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 5000,
		}
	}

	return bars
}

func (suite *BacktestEngineTestSuite) newEngine(config string, bars []types.MarketData, strategy runtime.Strategy) *BacktestEngineV1 {
	backtester := NewBacktestEngineV1(logger.NewNopLogger())
	suite.Require().NoError(backtester.Initialize(config))

	window, err := datasource.NewBarWindow("AAPL", bars)
	suite.Require().NoError(err)
	suite.Require().NoError(backtester.SetBarWindow(window))
	suite.Require().NoError(backtester.LoadStrategy(strategy, nil))

	return backtester
}

const baseConfig = `
symbol: AAPL
initial_cash: 10000
leverage: 1
`

func (suite *BacktestEngineTestSuite) run(backtester *BacktestEngineV1) *types.RunResult {
	result, err := backtester.Run(context.Background(), optional.None[engine.OnProgressCallback]())
	suite.Require().NoError(err)

	return result
}

func (suite *BacktestEngineTestSuite) TestMarketOrderFillsAtNextOpen() {
	bars := flatBars(10, 100)
	bars[3].Open = 102 // the fill bar

	strategy := &scriptStrategy{
		onBar: func(ctx runtime.StrategyContext, barIndex int) error {
			if barIndex == 2 {
				_, err := ctx.Buy(runtime.OrderIntent{Size: 10})

				return err
			}

			return nil
		},
	}

	result := suite.run(suite.newEngine(baseConfig, bars, strategy))

	suite.Equal(types.RunStatusCompleted, result.Status)
	suite.Require().Len(result.Fills, 1)
	suite.Equal(3, result.Fills[0].BarIndex)
	suite.InDelta(102.0, result.Fills[0].Price, 1e-9)
	suite.Equal(10.0, result.Fills[0].Quantity)
}

func (suite *BacktestEngineTestSuite) TestCloseToCloseFillsSameBar() {
	config := baseConfig + "fill_model: close_to_close\n"
	bars := flatBars(10, 100)
	bars[2].Close = 101

	strategy := &scriptStrategy{
		onBar: func(ctx runtime.StrategyContext, barIndex int) error {
			if barIndex == 2 {
				_, err := ctx.Buy(runtime.OrderIntent{Size: 10})

				return err
			}

			return nil
		},
	}

	result := suite.run(suite.newEngine(config, bars, strategy))

	suite.Require().Len(result.Fills, 1)
	suite.Equal(2, result.Fills[0].BarIndex)
	suite.InDelta(101.0, result.Fills[0].Price, 1e-9)
}

func (suite *BacktestEngineTestSuite) TestDeterministicReplay() {
	bars := flatBars(50, 100)
	for i := range bars {
		bars[i].Open = 100 + float64(i%7)
		bars[i].Close = 100 + float64((i+3)%5)
		bars[i].High = bars[i].Open + 2
		bars[i].Low = bars[i].Close - 2
		if bars[i].Low > bars[i].Open {
			bars[i].Low = bars[i].Open
		}
		if bars[i].High < bars[i].Close {
			bars[i].High = bars[i].Close
		}
	}

	script := func() *scriptStrategy {
		return &scriptStrategy{
			onBar: func(ctx runtime.StrategyContext, barIndex int) error {
				switch barIndex % 10 {
				case 2:
					_, err := ctx.Buy(runtime.OrderIntent{Size: 5})

					return err
				case 7:
					position := ctx.Position()
					if position.Direction() != 0 {
						_, err := ctx.Flatten()

						return err
					}
				}

				return nil
			},
		}
	}

	first := suite.run(suite.newEngine(baseConfig, bars, script()))
	second := suite.run(suite.newEngine(baseConfig, bars, script()))

	suite.Equal(first.Fills, second.Fills)
	suite.Equal(first.Orders, second.Orders)
	suite.Equal(first.Trades, second.Trades)
	suite.Equal(first.Snapshots, second.Snapshots)
	suite.Equal(first.Stats, second.Stats)
}

func (suite *BacktestEngineTestSuite) TestWarmupDisablesTradingAndSnapshots() {
	bars := flatBars(10, 100)
	config := baseConfig + fmt.Sprintf("start_time: %s\n", bars[4].Time.Format(time.RFC3339))

	var droppedID string

	strategy := &scriptStrategy{
		onBar: func(ctx runtime.StrategyContext, barIndex int) error {
			if barIndex == 1 {
				id, err := ctx.Buy(runtime.OrderIntent{Size: 10})
				droppedID = id

				return err
			}

			return nil
		},
	}

	result := suite.run(suite.newEngine(config, bars, strategy))

	suite.Empty(droppedID)
	suite.Empty(result.Fills)
	suite.Require().Len(result.Snapshots, 6)
	suite.Equal(4, result.Snapshots[0].BarIndex)
}

func (suite *BacktestEngineTestSuite) TestRiskHaltStopsRun() {
	bars := flatBars(20, 100)
	// Price collapses from bar 5 on.
	for i := 5; i < len(bars); i++ {
		price := 100 - float64(i-4)*5
		bars[i].Open = price
		bars[i].High = price + 1
		bars[i].Low = price - 1
		bars[i].Close = price
	}

	config := baseConfig + "risk:\n  max_drawdown: 0.1\n"

	strategy := &scriptStrategy{
		onBar: func(ctx runtime.StrategyContext, barIndex int) error {
			if barIndex == 1 {
				_, err := ctx.Buy(runtime.OrderIntent{Size: 50})

				return err
			}

			return nil
		},
	}

	result := suite.run(suite.newEngine(config, bars, strategy))

	suite.Equal(types.RunStatusHalted, result.Status)
	suite.Equal(types.HaltReasonMaxDrawdown, result.Reason)

	// The halting bar's snapshot is included and is the last one.
	last := result.Snapshots[len(result.Snapshots)-1]
	suite.Greater(last.Drawdown, 0.1)
	suite.Less(last.BarIndex, len(bars)-1)
}

func (suite *BacktestEngineTestSuite) TestCloseOnFinishEndsFlat() {
	bars := flatBars(10, 100)
	config := baseConfig + "close_on_finish: true\n"

	strategy := &scriptStrategy{
		onBar: func(ctx runtime.StrategyContext, barIndex int) error {
			if barIndex == 2 {
				_, err := ctx.Buy(runtime.OrderIntent{Size: 10})

				return err
			}

			return nil
		},
	}

	result := suite.run(suite.newEngine(config, bars, strategy))

	suite.Equal(types.RunStatusCompleted, result.Status)

	final := result.Snapshots[len(result.Snapshots)-1]
	suite.Zero(final.PositionSize)

	closing := result.Orders[len(result.Orders)-1]
	suite.Equal(types.OrderReasonCloseOnFinish, closing.Reason.Reason)
	suite.Equal(types.OrderStateFilled, closing.State)
}

func (suite *BacktestEngineTestSuite) TestInsufficientMarginCancelsOrder() {
	bars := flatBars(10, 100)

	strategy := &scriptStrategy{
		onBar: func(ctx runtime.StrategyContext, barIndex int) error {
			if barIndex == 2 {
				// 500 units at ~100 needs 50000 against 10000 equity.
				_, err := ctx.Buy(runtime.OrderIntent{Size: 500})

				return err
			}

			return nil
		},
	}

	result := suite.run(suite.newEngine(baseConfig, bars, strategy))

	suite.Empty(result.Fills)
	suite.Require().Len(result.Orders, 1)
	suite.Equal(types.OrderStateCanceled, result.Orders[0].State)
	suite.Equal(cancelReasonInsufficientMargin, result.Orders[0].Reason.Reason)
}

func (suite *BacktestEngineTestSuite) TestMaxBarsHalts() {
	bars := flatBars(20, 100)
	config := baseConfig + "max_bars: 5\n"

	result := suite.run(suite.newEngine(config, bars, &scriptStrategy{}))

	suite.Equal(types.RunStatusHalted, result.Status)
	suite.Equal(types.HaltReasonMaxBars, result.Reason)
	suite.Len(result.Snapshots, 5)
}

func (suite *BacktestEngineTestSuite) TestContextCancellation() {
	bars := flatBars(20, 100)

	ctx, cancel := context.WithCancel(context.Background())

	strategy := &scriptStrategy{
		onBar: func(_ runtime.StrategyContext, barIndex int) error {
			if barIndex == 3 {
				cancel()
			}

			return nil
		},
	}

	backtester := suite.newEngine(baseConfig, bars, strategy)

	result, err := backtester.Run(ctx, optional.None[engine.OnProgressCallback]())
	suite.Require().NoError(err)

	suite.Equal(types.RunStatusHalted, result.Status)
	suite.Equal(types.HaltReasonCanceled, result.Reason)
	suite.Len(result.Snapshots, 4)
}

func (suite *BacktestEngineTestSuite) TestGTDOrderExpires() {
	bars := flatBars(10, 100)

	strategy := &scriptStrategy{
		onBar: func(ctx runtime.StrategyContext, barIndex int) error {
			if barIndex == 1 {
				_, err := ctx.Buy(runtime.OrderIntent{
					Size:            10,
					Type:            types.OrderTypeLimit,
					LimitPrice:      optional.Some(90.0), // never touched
					TimeInForce:     types.TimeInForceGTD,
					ExpireAfterBars: optional.Some(3),
				})

				return err
			}

			return nil
		},
	}

	result := suite.run(suite.newEngine(baseConfig, bars, strategy))

	suite.Empty(result.Fills)
	suite.Require().Len(result.Orders, 1)
	suite.Equal(types.OrderStateExpired, result.Orders[0].State)
}

func (suite *BacktestEngineTestSuite) TestEngineIsSingleUse() {
	bars := flatBars(10, 100)
	backtester := suite.newEngine(baseConfig, bars, &scriptStrategy{})

	suite.run(backtester)

	_, err := backtester.Run(context.Background(), optional.None[engine.OnProgressCallback]())
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeRunAlreadyStarted))
}

func (suite *BacktestEngineTestSuite) TestRunRequiresStrategy() {
	backtester := NewBacktestEngineV1(logger.NewNopLogger())
	suite.Require().NoError(backtester.Initialize(baseConfig))

	window, err := datasource.NewBarWindow("AAPL", flatBars(10, 100))
	suite.Require().NoError(err)
	suite.Require().NoError(backtester.SetBarWindow(window))

	_, err = backtester.Run(context.Background(), optional.None[engine.OnProgressCallback]())
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNoStrategy))
}

func (suite *BacktestEngineTestSuite) TestStartTimePastWindowFails() {
	bars := flatBars(10, 100)
	config := baseConfig +
		fmt.Sprintf("start_time: %s\n", bars[9].Time.Add(time.Hour).Format(time.RFC3339))

	backtester := suite.newEngine(config, bars, &scriptStrategy{})

	_, err := backtester.Run(context.Background(), optional.None[engine.OnProgressCallback]())
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataUnavailable))
}

func (suite *BacktestEngineTestSuite) TestEndTimeAfterLastBarRunsToEnd() {
	bars := flatBars(10, 100)
	config := baseConfig +
		fmt.Sprintf("end_time: %s\n", bars[9].Time.Add(time.Hour).Format(time.RFC3339))

	result := suite.run(suite.newEngine(config, bars, &scriptStrategy{}))

	suite.Equal(types.RunStatusCompleted, result.Status)
	suite.Len(result.Snapshots, len(bars))
}

func (suite *BacktestEngineTestSuite) TestPercentEquitySizing() {
	bars := flatBars(10, 100)
	config := baseConfig + "sizing:\n  type: percent_equity\n  value: 0.5\n"

	strategy := &scriptStrategy{
		onBar: func(ctx runtime.StrategyContext, barIndex int) error {
			if barIndex == 2 {
				_, err := ctx.Buy(runtime.OrderIntent{})

				return err
			}

			return nil
		},
	}

	result := suite.run(suite.newEngine(config, bars, strategy))

	suite.Require().Len(result.Fills, 1)
	// Half of 10000 equity at close 100.
	suite.InDelta(50.0, result.Fills[0].Quantity, 1e-9)
}

func (suite *BacktestEngineTestSuite) TestConservationAcrossRun() {
	bars := flatBars(30, 100)
	for i := range bars {
		bars[i].Open = 100 + float64(i%5)
		bars[i].Close = 100 + float64((i+2)%4)
		bars[i].High = bars[i].Open + 3
		bars[i].Low = bars[i].Close - 3
	}

	config := baseConfig + "commission:\n  type: bps\n  bps: 10\nslippage:\n  bps: 5\n"

	strategy := &scriptStrategy{
		onBar: func(ctx runtime.StrategyContext, barIndex int) error {
			switch barIndex {
			case 2, 11:
				_, err := ctx.Buy(runtime.OrderIntent{Size: 10})

				return err
			case 7, 16:
				_, err := ctx.Sell(runtime.OrderIntent{Size: 10})

				return err
			}

			return nil
		},
	}

	backtester := suite.newEngine(config, bars, strategy)
	result := suite.run(backtester)

	suite.Equal(types.RunStatusCompleted, result.Status)
	suite.Require().NotEmpty(result.Fills)

	position := backtester.ledger.Position()
	left := backtester.ledger.Cash() + position.AvgEntryPrice*position.Size
	right := 10000.0 - backtester.ledger.TotalCommissions() +
		backtester.ledger.TotalFunding() + backtester.ledger.RealizedPnL()

	suite.InDelta(right, left, 1e-9)
}
