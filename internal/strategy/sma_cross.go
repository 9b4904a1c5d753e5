package strategy

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// SMACross is the simple moving average counterpart of EMACross.
type SMACross struct{}

var _ runtime.Strategy = (*SMACross)(nil)

func NewSMACross() *SMACross {
	return &SMACross{}
}

func (s *SMACross) Name() string {
	return "sma_cross"
}

func (s *SMACross) Schema() runtime.ParamSchema {
	return runtime.ParamSchema{
		ID:   "sma_cross",
		Name: "SMA Cross",
		Inputs: map[string]runtime.FieldSpec{
			"fast_period": {
				Type:    runtime.FieldTypeInt,
				Default: 10,
				Min:     floatPtr(2),
				Max:     floatPtr(200),
			},
			"slow_period": {
				Type:    runtime.FieldTypeInt,
				Default: 30,
				Min:     floatPtr(3),
				Max:     floatPtr(400),
			},
		},
		EngineVersion: version.EngineVersion,
	}
}

func (s *SMACross) OnInit(ctx runtime.StrategyContext) error {
	fast := ctx.Params().Int("fast_period", 10)
	slow := ctx.Params().Int("slow_period", 30)

	if fast >= slow {
		return errors.Newf(errors.ErrCodeConfigValidation,
			"fast_period %d must be below slow_period %d", fast, slow)
	}

	ctx.Logger().Info(fmt.Sprintf("sma cross ready: fast=%d slow=%d", fast, slow))

	return nil
}

func (s *SMACross) OnBar(ctx runtime.StrategyContext, barIndex int) error {
	fast := ctx.Params().Int("fast_period", 10)
	slow := ctx.Params().Int("slow_period", 30)

	closes := ctx.Closes()
	if len(closes) < slow {
		return nil
	}

	fastSMA, err := indicator.SMA(closes, fast)
	if err != nil {
		return nil
	}

	slowSMA, err := indicator.SMA(closes, slow)
	if err != nil {
		return nil
	}

	i := len(closes) - 1

	switch {
	case indicator.CrossOver(fastSMA, slowSMA, i):
		return enterLong(ctx)
	case indicator.CrossUnder(fastSMA, slowSMA, i):
		return enterShort(ctx)
	}

	return nil
}

func (s *SMACross) OnOrder(ctx runtime.StrategyContext, _ types.Order) error {
	return nil
}

func (s *SMACross) OnTrade(ctx runtime.StrategyContext, trade types.Trade) error {
	ctx.Logger().Info(fmt.Sprintf("trade closed: pnl=%.2f bars=%d", trade.PnL, trade.BarsHeld))

	return nil
}

func (s *SMACross) OnFinish(ctx runtime.StrategyContext) error {
	return nil
}
