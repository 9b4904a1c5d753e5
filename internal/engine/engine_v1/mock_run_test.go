package engine

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/engine"
	"github.com/rxtech-lab/argo-backtest/internal/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/mock/gomock"
	yaml "gopkg.in/yaml.v2"
)

func generatedBars(seed int64, count int) []types.MarketData {
	return mocks.NewDataGenerator(seed).Generate(mocks.GeneratorConfig{
		Symbol:         "AAPL",
		StartTime:      testStart,
		Interval:       time.Minute,
		Count:          count,
		InitialPrice:   100,
		Volatility:     0.002,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	})
}

// periodicTrader buys and flattens on a fixed cadence, enough to produce a
// varied order history on any bar series.
func periodicTrader() *scriptStrategy {
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

func (suite *BacktestEngineTestSuite) TestGeneratedDataReplayIsDeterministic() {
	bars := generatedBars(42, 120)
	suite.Equal(bars, generatedBars(42, 120))

	config := baseConfig + "commission:\n  type: bps\n  bps: 10\nslippage:\n  bps: 5\n"

	first := suite.run(suite.newEngine(config, bars, periodicTrader()))
	second := suite.run(suite.newEngine(config, bars, periodicTrader()))

	suite.Require().NotEmpty(first.Fills)
	suite.Equal(first.Fills, second.Fills)
	suite.Equal(first.Orders, second.Orders)
	suite.Equal(first.Trades, second.Trades)
	suite.Equal(first.Snapshots, second.Snapshots)
	suite.Equal(first.Stats, second.Stats)
}

func (suite *BacktestEngineTestSuite) TestConservationOnGeneratedData() {
	bars := generatedBars(7, 200)
	config := baseConfig + "commission:\n  type: bps\n  bps: 10\nslippage:\n  bps: 5\n"

	backtester := suite.newEngine(config, bars, periodicTrader())
	result := suite.run(backtester)

	suite.Equal(types.RunStatusCompleted, result.Status)
	suite.Require().NotEmpty(result.Fills)

	position := backtester.ledger.Position()
	left := backtester.ledger.Cash() + position.AvgEntryPrice*position.Size
	right := 10000.0 - backtester.ledger.TotalCommissions() +
		backtester.ledger.TotalFunding() + backtester.ledger.RealizedPnL()

	suite.InDelta(right, left, 1e-9)
}

func (suite *BacktestEngineTestSuite) TestStrategyCallbackSequence() {
	ctrl := gomock.NewController(suite.T())
	bars := flatBars(10, 100)

	strategy := mocks.NewMockStrategy(ctrl)
	strategy.EXPECT().Schema().Return(runtime.ParamSchema{ID: "mock", Name: "Mock"}).AnyTimes()
	strategy.EXPECT().Name().Return("mock").AnyTimes()
	strategy.EXPECT().OnInit(gomock.Any()).Return(nil)
	strategy.EXPECT().OnBar(gomock.Any(), gomock.Any()).Return(nil).Times(len(bars))
	strategy.EXPECT().OnFinish(gomock.Any()).Return(nil)

	result := suite.run(suite.newEngine(baseConfig, bars, strategy))

	suite.Equal(types.RunStatusCompleted, result.Status)
	suite.Len(result.Snapshots, len(bars))
}

func (suite *BacktestEngineTestSuite) TestStrategyOnBarErrorEndsRun() {
	ctrl := gomock.NewController(suite.T())

	strategy := mocks.NewMockStrategy(ctrl)
	strategy.EXPECT().Schema().Return(runtime.ParamSchema{ID: "mock", Name: "Mock"}).AnyTimes()
	strategy.EXPECT().Name().Return("mock").AnyTimes()
	strategy.EXPECT().OnInit(gomock.Any()).Return(nil)
	strategy.EXPECT().OnBar(gomock.Any(), 0).
		Return(errors.New(errors.ErrCodeUnknown, "signal source offline"))

	backtester := suite.newEngine(baseConfig, flatBars(10, 100), strategy)

	result, err := backtester.Run(context.Background(), optional.None[engine.OnProgressCallback]())
	suite.Require().Error(err)
	suite.Equal(types.RunStatusError, result.Status)
	suite.Empty(result.Snapshots)
}

func (suite *BacktestEngineTestSuite) TestStrategyStateUsesRunCache() {
	ctrl := gomock.NewController(suite.T())

	state := mocks.NewMockCache(ctrl)
	state.EXPECT().Set("last_signal", 1.5)
	state.EXPECT().Get("last_signal").Return(1.5, true)

	strategy := &scriptStrategy{
		onBar: func(ctx runtime.StrategyContext, barIndex int) error {
			switch barIndex {
			case 0:
				ctx.State().Set("last_signal", 1.5)
			case 1:
				value, ok := ctx.State().Get("last_signal")
				suite.True(ok)
				suite.Equal(1.5, value)
			}

			return nil
		},
	}

	backtester := suite.newEngine(baseConfig, flatBars(3, 100), strategy)
	backtester.state = state

	suite.run(backtester)
}

func (suite *BacktestEngineTestSuite) TestPipelineUsesCommissionModel() {
	ctrl := gomock.NewController(suite.T())

	model := mocks.NewMockModel(ctrl)
	model.EXPECT().Calculate(10.0, 100.0).Return(2.5)

	config := &RunConfig{}
	suite.Require().NoError(yaml.Unmarshal([]byte(baseConfig), config))
	suite.Require().NoError(config.Validate())

	bars := flatBars(5, 100)
	window, err := datasource.NewBarWindow("AAPL", bars)
	suite.Require().NoError(err)

	pipeline := NewFillPipeline(config, window, logger.NewNopLogger())
	pipeline.commission = model

	order := &types.Order{ID: "ord-000001", Symbol: "AAPL", Side: types.OrderSideBuy}
	fill := pipeline.Apply(Trigger{Order: order, RefPrice: 100, Quantity: 10}, bars[1], 1, "script", 0)

	suite.Equal(2.5, fill.Commission)
}
