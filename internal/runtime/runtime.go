package runtime

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/engine/engine_v1/cache"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Strategy is the fixed capability interface every loaded strategy variant
// implements. Callbacks are invoked by the orchestrator on the run's own
// goroutine; a strategy never runs concurrently with itself.
type Strategy interface {
	// Name returns the strategy identifier used in result folders and order
	// attribution.
	Name() string
	// Schema declares the strategy's parameters. Validated once at load
	// time; user values are resolved against it before the run starts.
	Schema() ParamSchema
	// OnInit runs once before the first bar.
	OnInit(ctx StrategyContext) error
	// OnBar runs once per bar, strictly in order.
	OnBar(ctx StrategyContext, barIndex int) error
	// OnOrder runs after an order reaches a new state.
	OnOrder(ctx StrategyContext, order types.Order) error
	// OnTrade runs after a round trip closes.
	OnTrade(ctx StrategyContext, trade types.Trade) error
	// OnFinish runs once after the last bar, including on halted runs.
	OnFinish(ctx StrategyContext) error
}

// OrderIntent is a buy or sell request issued by the strategy during OnBar.
type OrderIntent struct {
	// Size in units. Zero means "use the configured sizing model".
	Size float64
	// Type defaults to MARKET when empty.
	Type types.OrderType
	// LimitPrice is required for LIMIT and STOP_LIMIT intents.
	LimitPrice optional.Option[float64]
	// StopPrice is required for STOP and STOP_LIMIT intents.
	StopPrice optional.Option[float64]
	// TimeInForce defaults to GTC when empty.
	TimeInForce types.TimeInForce
	// ExpireAfterBars is the GTD deadline in bars from submission.
	ExpireAfterBars optional.Option[int]
	// Message is recorded on the order's reason.
	Message string
}

// PortfolioView is the read-only portfolio surface exposed to strategies.
type PortfolioView struct {
	Cash       float64
	Equity     float64
	Exposure   float64
	MarginUsed float64
	Leverage   float64
}

// StrategyLogger is the per-run log sink handed to strategies. Entries are
// captured into the RunResult and mirrored to the engine logger.
type StrategyLogger interface {
	Debug(message string)
	Info(message string)
	Warn(message string)
	Error(message string)
}

// StrategyContext is the surface the engine provides to strategy callbacks.
// All accessors are scoped to the current bar: series never extend past it,
// and intents take effect per the configured fill model.
type StrategyContext interface {
	// BarIndex returns the current bar position.
	BarIndex() int
	// Bar returns the bar at position i, which must not exceed the current
	// bar.
	Bar(i int) (types.MarketData, error)
	// CurrentBar returns the bar being processed.
	CurrentBar() types.MarketData
	// Times, Opens, Highs, Lows, Closes, Volumes return the series up to
	// and including the current bar.
	Times() []time.Time
	Opens() []float64
	Highs() []float64
	Lows() []float64
	Closes() []float64
	Volumes() []float64

	// Buy and Sell register an order intent and return its order id.
	Buy(intent OrderIntent) (string, error)
	Sell(intent OrderIntent) (string, error)
	// Cancel requests cancellation of a resting order.
	Cancel(orderID string) error
	// Flatten closes the open position with a market intent. Returns the
	// order id, or an error when the position is already flat.
	Flatten() (string, error)

	// Position returns a copy of the current position.
	Position() types.Position
	// Portfolio returns the current portfolio view.
	Portfolio() PortfolioView

	// Params returns the resolved parameter mapping.
	Params() Params
	// Logger returns the run-scoped log sink.
	Logger() StrategyLogger
	// State returns the run-scoped mutable state container.
	State() cache.Cache
}
