// Package strategy ships the builtin strategies. They double as usage
// references for the strategy runtime interface.
package strategy

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// EMACross goes long when the fast EMA crosses above the slow EMA and short
// on the opposite cross. An open position on the losing side is flattened
// before the new one is opened.
type EMACross struct{}

var _ runtime.Strategy = (*EMACross)(nil)

func NewEMACross() *EMACross {
	return &EMACross{}
}

func (s *EMACross) Name() string {
	return "ema_cross"
}

func (s *EMACross) Schema() runtime.ParamSchema {
	return runtime.ParamSchema{
		ID:   "ema_cross",
		Name: "EMA Cross",
		Inputs: map[string]runtime.FieldSpec{
			"fast_period": {
				Type:    runtime.FieldTypeInt,
				Default: 12,
				Min:     floatPtr(2),
				Max:     floatPtr(200),
			},
			"slow_period": {
				Type:    runtime.FieldTypeInt,
				Default: 26,
				Min:     floatPtr(3),
				Max:     floatPtr(400),
			},
		},
		EngineVersion: version.EngineVersion,
	}
}

func (s *EMACross) OnInit(ctx runtime.StrategyContext) error {
	fast := ctx.Params().Int("fast_period", 12)
	slow := ctx.Params().Int("slow_period", 26)

	if fast >= slow {
		return errors.Newf(errors.ErrCodeConfigValidation,
			"fast_period %d must be below slow_period %d", fast, slow)
	}

	ctx.Logger().Info(fmt.Sprintf("ema cross ready: fast=%d slow=%d", fast, slow))

	return nil
}

func (s *EMACross) OnBar(ctx runtime.StrategyContext, barIndex int) error {
	fast := ctx.Params().Int("fast_period", 12)
	slow := ctx.Params().Int("slow_period", 26)

	closes := ctx.Closes()
	if len(closes) < slow {
		return nil
	}

	fastEMA, err := indicator.EMA(closes, fast)
	if err != nil {
		return nil
	}

	slowEMA, err := indicator.EMA(closes, slow)
	if err != nil {
		return nil
	}

	i := len(closes) - 1

	switch {
	case indicator.CrossOver(fastEMA, slowEMA, i):
		return enterLong(ctx)
	case indicator.CrossUnder(fastEMA, slowEMA, i):
		return enterShort(ctx)
	}

	return nil
}

func (s *EMACross) OnOrder(ctx runtime.StrategyContext, _ types.Order) error {
	return nil
}

func (s *EMACross) OnTrade(ctx runtime.StrategyContext, trade types.Trade) error {
	ctx.Logger().Info(fmt.Sprintf("trade closed: pnl=%.2f bars=%d", trade.PnL, trade.BarsHeld))

	return nil
}

func (s *EMACross) OnFinish(ctx runtime.StrategyContext) error {
	return nil
}
