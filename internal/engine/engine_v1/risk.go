package engine

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"go.uber.org/zap"
)

// RiskGuard evaluates the halt limits after each bar's mark-to-market. A
// limit set to zero is disabled. Checks run in a fixed order so the recorded
// halt reason is deterministic when several limits trip on the same bar.
type RiskGuard struct {
	config RiskConfig
	log    *logger.Logger

	day            time.Time
	dayStartEquity float64
}

func NewRiskGuard(config RiskConfig, initialCash float64, log *logger.Logger) *RiskGuard {
	return &RiskGuard{
		config:         config,
		log:            log,
		dayStartEquity: initialCash,
	}
}

// ObserveDay rolls the daily loss baseline at UTC day boundaries. Call before
// Check with the equity entering the bar's day.
func (g *RiskGuard) ObserveDay(ts time.Time, equity float64) {
	day := ts.UTC().Truncate(24 * time.Hour)
	if g.day.IsZero() {
		g.day = day

		return
	}

	if day.After(g.day) {
		g.day = day
		g.dayStartEquity = equity
	}
}

// Check returns the halt reason when a limit is breached, or none.
func (g *RiskGuard) Check(snapshot types.EquitySnapshot, openPositions int) optional.Option[string] {
	if g.config.MaxDrawdown > 0 && snapshot.Drawdown > g.config.MaxDrawdown {
		return g.halt(types.HaltReasonMaxDrawdown, snapshot)
	}

	if g.config.MaxLeverage > 0 && snapshot.Exposure > g.config.MaxLeverage {
		return g.halt(types.HaltReasonMaxLeverage, snapshot)
	}

	if g.config.MaxOpenPositions > 0 && openPositions > g.config.MaxOpenPositions {
		return g.halt(types.HaltReasonMaxPositions, snapshot)
	}

	if g.config.DailyLossLimit > 0 && g.dayStartEquity > 0 {
		loss := (g.dayStartEquity - snapshot.Equity) / g.dayStartEquity
		if loss > g.config.DailyLossLimit {
			return g.halt(types.HaltReasonDailyLossLimit, snapshot)
		}
	}

	return optional.None[string]()
}

func (g *RiskGuard) halt(reason string, snapshot types.EquitySnapshot) optional.Option[string] {
	g.log.Warn("risk limit breached",
		zap.String("reason", reason),
		zap.Int("bar", snapshot.BarIndex),
		zap.Float64("equity", snapshot.Equity),
		zap.Float64("drawdown", snapshot.Drawdown),
		zap.Float64("exposure", snapshot.Exposure),
	)

	return optional.Some(reason)
}
