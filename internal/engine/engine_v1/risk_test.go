package engine

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type RiskGuardTestSuite struct {
	suite.Suite
}

func TestRiskGuardSuite(t *testing.T) {
	suite.Run(t, new(RiskGuardTestSuite))
}

func (suite *RiskGuardTestSuite) TestDisabledLimitsNeverHalt() {
	guard := NewRiskGuard(RiskConfig{}, 10000, logger.NewNopLogger())

	reason := guard.Check(types.EquitySnapshot{Equity: 1, Drawdown: 0.99, Exposure: 50}, 1)
	suite.True(reason.IsNone())
}

func (suite *RiskGuardTestSuite) TestMaxDrawdown() {
	guard := NewRiskGuard(RiskConfig{MaxDrawdown: 0.2}, 10000, logger.NewNopLogger())

	suite.True(guard.Check(types.EquitySnapshot{Drawdown: 0.2}, 0).IsNone())

	reason := guard.Check(types.EquitySnapshot{Drawdown: 0.21}, 0)
	suite.Require().True(reason.IsSome())
	suite.Equal(types.HaltReasonMaxDrawdown, reason.Unwrap())
}

func (suite *RiskGuardTestSuite) TestMaxLeverage() {
	guard := NewRiskGuard(RiskConfig{MaxLeverage: 3}, 10000, logger.NewNopLogger())

	suite.True(guard.Check(types.EquitySnapshot{Exposure: 3}, 0).IsNone())

	reason := guard.Check(types.EquitySnapshot{Exposure: 3.5}, 0)
	suite.Require().True(reason.IsSome())
	suite.Equal(types.HaltReasonMaxLeverage, reason.Unwrap())
}

func (suite *RiskGuardTestSuite) TestMaxOpenPositions() {
	guard := NewRiskGuard(RiskConfig{MaxOpenPositions: 1}, 10000, logger.NewNopLogger())

	suite.True(guard.Check(types.EquitySnapshot{}, 1).IsNone())

	reason := guard.Check(types.EquitySnapshot{}, 2)
	suite.Require().True(reason.IsSome())
	suite.Equal(types.HaltReasonMaxPositions, reason.Unwrap())
}

func (suite *RiskGuardTestSuite) TestDailyLossLimit() {
	guard := NewRiskGuard(RiskConfig{DailyLossLimit: 0.05}, 10000, logger.NewNopLogger())

	day1 := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	guard.ObserveDay(day1, 10000)

	// 4% down intraday: fine.
	suite.True(guard.Check(types.EquitySnapshot{Equity: 9600}, 1).IsNone())

	// 6% down the same day: halt.
	reason := guard.Check(types.EquitySnapshot{Equity: 9400}, 1)
	suite.Require().True(reason.IsSome())
	suite.Equal(types.HaltReasonDailyLossLimit, reason.Unwrap())
}

func (suite *RiskGuardTestSuite) TestDailyBaselineRolls() {
	guard := NewRiskGuard(RiskConfig{DailyLossLimit: 0.05}, 10000, logger.NewNopLogger())

	day1 := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	guard.ObserveDay(day1, 10000)

	// Equity drifted down to 9500 by the close of day one.
	suite.True(guard.Check(types.EquitySnapshot{Equity: 9500}, 1).IsNone())

	// Day two starts from 9500; the same equity is no longer a 5% loss.
	day2 := day1.Add(24 * time.Hour)
	guard.ObserveDay(day2, 9500)

	suite.True(guard.Check(types.EquitySnapshot{Equity: 9400}, 1).IsNone())

	reason := guard.Check(types.EquitySnapshot{Equity: 9000}, 1)
	suite.Require().True(reason.IsSome())
	suite.Equal(types.HaltReasonDailyLossLimit, reason.Unwrap())
}

func (suite *RiskGuardTestSuite) TestCheckOrderIsDeterministic() {
	guard := NewRiskGuard(RiskConfig{MaxDrawdown: 0.1, MaxLeverage: 2}, 10000, logger.NewNopLogger())

	// Both limits breached; drawdown wins.
	reason := guard.Check(types.EquitySnapshot{Drawdown: 0.5, Exposure: 10}, 1)
	suite.Require().True(reason.IsSome())
	suite.Equal(types.HaltReasonMaxDrawdown, reason.Unwrap())
}
