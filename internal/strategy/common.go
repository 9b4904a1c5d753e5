package strategy

import (
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// enterLong flattens a short position and opens a long with the configured
// sizing model. Holding a long already is a no-op.
func enterLong(ctx runtime.StrategyContext) error {
	position := ctx.Position()

	if position.Side() == types.PositionSideLong {
		return nil
	}

	if position.Side() == types.PositionSideShort {
		if _, err := ctx.Flatten(); err != nil {
			return err
		}
	}

	_, err := ctx.Buy(runtime.OrderIntent{Type: types.OrderTypeMarket})

	return err
}

// enterShort mirrors enterLong for the short side.
func enterShort(ctx runtime.StrategyContext) error {
	position := ctx.Position()

	if position.Side() == types.PositionSideShort {
		return nil
	}

	if position.Side() == types.PositionSideLong {
		if _, err := ctx.Flatten(); err != nil {
			return err
		}
	}

	_, err := ctx.Sell(runtime.OrderIntent{Type: types.OrderTypeMarket})

	return err
}

func floatPtr(v float64) *float64 {
	return &v
}
