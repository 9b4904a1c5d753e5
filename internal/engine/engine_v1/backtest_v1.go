package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/engine"
	"github.com/rxtech-lab/argo-backtest/internal/engine/engine_v1/cache"
	"github.com/rxtech-lab/argo-backtest/internal/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v2"
)

const cancelReasonEndOfData = "end_of_data"

const cancelReasonInsufficientMargin = "insufficient_margin"

// BacktestEngineV1 drives one strategy over one bar window. Single-use: a
// second Run on the same instance fails. All state is instance-local, so
// independent runs may execute concurrently.
type BacktestEngineV1 struct {
	log *logger.Logger

	config   *RunConfig
	window   *datasource.BarWindow
	strategy runtime.Strategy
	params   runtime.Params

	book       *OrderBook
	matcher    *MatchingEngine
	pipeline   *FillPipeline
	ledger     *Ledger
	guard      *RiskGuard
	aggregator *ReportAggregator
	state      cache.Cache
	runLog     *runLogger

	sctx    *backtestContext
	fills   []types.Fill
	started bool
}

func NewBacktestEngineV1(log *logger.Logger) *BacktestEngineV1 {
	return &BacktestEngineV1{
		log:   log,
		state: cache.NewCacheV1(),
	}
}

var _ engine.Engine = (*BacktestEngineV1)(nil)

// Initialize parses and validates the YAML run configuration.
func (e *BacktestEngineV1) Initialize(config string) error {
	parsed := &RunConfig{}
	if err := yaml.Unmarshal([]byte(config), parsed); err != nil {
		return errors.Wrap(errors.ErrCodeConfigValidation, "cannot parse run config", err)
	}

	if err := parsed.Validate(); err != nil {
		return err
	}

	e.config = parsed

	return nil
}

// SetBarWindow attaches the bar window and checks it covers the configured
// time range.
func (e *BacktestEngineV1) SetBarWindow(window *datasource.BarWindow) error {
	if window == nil || window.Len() == 0 {
		return errors.New(errors.ErrCodeDataSourceNotLoaded, "bar window is empty")
	}

	e.window = window

	return nil
}

// LoadStrategy validates the strategy's parameter schema, checks its engine
// version pin, and resolves the user parameter values.
func (e *BacktestEngineV1) LoadStrategy(strategy runtime.Strategy, params map[string]any) error {
	schema := strategy.Schema()
	if err := schema.Validate(); err != nil {
		return err
	}

	if err := version.CheckCompatibility(schema.EngineVersion); err != nil {
		return err
	}

	e.strategy = strategy
	e.params = schema.Resolve(params)

	return nil
}

// GetConfigSchema returns the JSON schema of the run configuration.
func (e *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := e.config
	if config == nil {
		empty := EmptyConfig()
		config = &empty
	}

	return config.GenerateSchemaJSON()
}

// Run drives the bar loop. Warmup bars before the configured start time are
// replayed with trading disabled and produce no snapshots; cancellation is
// honored at bar boundaries and yields a HALTED result with records intact.
func (e *BacktestEngineV1) Run(ctx context.Context, onProgress optional.Option[engine.OnProgressCallback]) (*types.RunResult, error) {
	if err := e.checkReady(); err != nil {
		return nil, err
	}

	e.started = true

	e.book = NewOrderBook(e.log)
	e.matcher = NewMatchingEngine(e.config, e.book, e.log)
	e.pipeline = NewFillPipeline(e.config, e.window, e.log)
	e.ledger = NewLedger(e.config, e.log)
	e.guard = NewRiskGuard(e.config.Risk, e.config.InitialCash, e.log)
	e.aggregator = NewReportAggregator(e.log)
	e.runLog = newRunLogger(e.log)
	e.sctx = &backtestContext{engine: e}

	startIndex, endIndex, err := e.resolveRange()
	if err != nil {
		return nil, err
	}

	result := &types.RunResult{
		RunID:        uuid.NewString(),
		StrategyName: e.strategy.Name(),
		Symbol:       e.window.Symbol(),
		Status:       types.RunStatusCompleted,
	}

	e.log.Info("run starting",
		zap.String("run_id", result.RunID),
		zap.String("strategy", result.StrategyName),
		zap.String("symbol", result.Symbol),
		zap.Int("warmup_bars", startIndex),
		zap.Int("bars", endIndex-startIndex+1),
	)

	if err := e.strategy.OnInit(e.sctx); err != nil {
		return e.finish(result, types.RunStatusError, err.Error()), err
	}

	processed := 0

	for i := 0; i <= endIndex; i++ {
		if ctx.Err() != nil {
			result.Status = types.RunStatusHalted
			result.Reason = types.HaltReasonCanceled

			break
		}

		warmup := i < startIndex
		if !warmup {
			if e.config.MaxBars > 0 && processed >= e.config.MaxBars {
				result.Status = types.RunStatusHalted
				result.Reason = types.HaltReasonMaxBars

				break
			}

			processed++
		}

		bar, err := e.window.Bar(i)
		if err != nil {
			return e.finish(result, types.RunStatusError, err.Error()), err
		}

		e.sctx.barIndex = i
		e.sctx.bar = bar
		e.sctx.tradingEnabled = !warmup
		e.runLog.barIndex = i
		e.runLog.barTime = bar.Time

		e.guard.ObserveDay(bar.Time, e.ledger.Equity(bar.Open))

		for _, expired := range e.book.ExpireDue(i) {
			e.notifyOrder(expired.ID)
		}

		e.book.Activate(i)

		// Resting orders fire against this bar's full range; funding due at
		// the boundary rides on the first fill.
		fundingFlow := 0.0
		if e.pipeline.IsFundingBoundary(i) {
			fundingFlow = e.pipeline.FundingFlow(e.ledger.Position(), bar.Open)
		}

		fundingFlow = e.processTriggers(e.matcher.Match(bar, i), bar, i, fundingFlow)
		if fundingFlow != 0 {
			e.ledger.ApplyFunding(fundingFlow)
		}

		if err := e.strategy.OnBar(e.sctx, i); err != nil {
			return e.finish(result, types.RunStatusError, err.Error()), err
		}

		if e.config.FillModel == FillModelCloseToClose {
			e.book.Activate(i)
			e.processTriggers(e.matcher.MatchAtClose(bar, i), bar, i, 0)
		}

		if !warmup && i == endIndex && e.config.CloseOnFinish {
			e.closeOnFinish(bar, i)
		}

		if warmup {
			continue
		}

		snapshot := e.ledger.MarkToMarket(i, bar.Time, bar.Close)
		e.aggregator.OnSnapshot(snapshot)
		result.Snapshots = append(result.Snapshots, snapshot)

		if onProgress.IsSome() {
			onProgress.Unwrap()(processed, endIndex-startIndex+1)
		}

		openPositions := 0

		position := e.ledger.Position()
		if position.Direction() != 0 {
			openPositions = 1
		}

		if reason := e.guard.Check(snapshot, openPositions); reason.IsSome() {
			result.Status = types.RunStatusHalted
			result.Reason = reason.Unwrap()

			break
		}
	}

	if err := e.strategy.OnFinish(e.sctx); err != nil {
		return e.finish(result, types.RunStatusError, err.Error()), err
	}

	e.cancelResting()

	return e.finish(result, result.Status, result.Reason), nil
}

// processTriggers runs the fill pipeline over the triggers in order. Returns
// the still-unattached funding flow: zero once a fill carried it.
func (e *BacktestEngineV1) processTriggers(triggers []Trigger, bar types.MarketData, barIndex int, fundingFlow float64) float64 {
	for _, trigger := range triggers {
		fill := e.pipeline.Apply(trigger, bar, barIndex, e.strategy.Name(), fundingFlow)

		if e.increasesExposure(trigger) && !e.ledger.HasMargin(trigger.Quantity, fill.Price, bar.Open) {
			if err := e.book.CancelWithReason(trigger.Order.ID, cancelReasonInsufficientMargin); err == nil {
				e.runLog.Warn("order canceled: insufficient margin for " + trigger.Order.ID)
				e.notifyOrder(trigger.Order.ID)
			}

			continue
		}

		if err := e.book.ApplyFill(trigger.Order.ID, fill); err != nil {
			e.log.Error("fill rejected by order book", zap.Error(err))

			continue
		}

		fundingFlow = 0

		e.ledger.ApplyFill(fill)
		e.fills = append(e.fills, fill)

		tradesBefore := len(e.aggregator.Trades())
		e.aggregator.OnFill(fill)

		e.notifyOrder(trigger.Order.ID)

		if trades := e.aggregator.Trades(); len(trades) > tradesBefore {
			trade := trades[len(trades)-1]
			if err := e.strategy.OnTrade(e.sctx, trade); err != nil {
				e.log.Error("strategy OnTrade failed", zap.Error(err))
			}
		}
	}

	return fundingFlow
}

// increasesExposure reports whether filling the trigger grows the absolute
// position. Reducing fills never need margin; a flip's opening remainder is
// covered by the check on the full quantity.
func (e *BacktestEngineV1) increasesExposure(trigger Trigger) bool {
	direction := 1.0
	if trigger.Order.Side == types.OrderSideSell {
		direction = -1.0
	}

	position := e.ledger.Position()

	return position.Direction() == 0 || position.Direction() == direction
}

// closeOnFinish flattens the open position at the final bar's close,
// bypassing the liquidity caps so the run always ends flat.
func (e *BacktestEngineV1) closeOnFinish(bar types.MarketData, barIndex int) {
	position := e.ledger.Position()
	if position.Direction() == 0 {
		return
	}

	side := types.OrderSideSell
	size := position.Size

	if position.Direction() < 0 {
		side = types.OrderSideBuy
		size = -size
	}

	order := types.Order{
		Symbol:       e.window.Symbol(),
		Side:         side,
		Type:         types.OrderTypeMarket,
		Size:         size,
		TimeInForce:  types.TimeInForceGTC,
		SubmitTime:   bar.Time,
		StrategyName: e.strategy.Name(),
		Reason:       types.Reason{Reason: types.OrderReasonCloseOnFinish},
	}

	orderID, err := e.book.Submit(order, barIndex)
	if err != nil {
		e.log.Error("close-on-finish submit failed", zap.Error(err))

		return
	}

	e.book.Activate(barIndex)

	submitted, _ := e.book.Get(orderID)
	if submitted.IsNone() {
		return
	}

	record := submitted.Unwrap()

	e.processTriggers([]Trigger{{
		Order:    &record,
		RefPrice: bar.Close,
		Quantity: size,
		category: categoryMarket,
	}}, bar, barIndex, 0)
}

// cancelResting cancels every order still resting once the loop ends, so no
// record leaves the run in a non-terminal state.
func (e *BacktestEngineV1) cancelResting() {
	for _, order := range e.book.AllOrders() {
		if order.IsTerminal() {
			continue
		}

		if err := e.book.CancelWithReason(order.ID, cancelReasonEndOfData); err != nil {
			e.log.Error("cannot cancel resting order", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
}

func (e *BacktestEngineV1) checkReady() error {
	if e.started {
		return errors.New(errors.ErrCodeRunAlreadyStarted, "engine instances are single-use")
	}

	if e.config == nil {
		return errors.New(errors.ErrCodeConfigValidation, "engine is not initialized")
	}

	if e.window == nil {
		return errors.New(errors.ErrCodeDataSourceNotLoaded, "no bar window attached")
	}

	if e.strategy == nil {
		return errors.New(errors.ErrCodeNoStrategy, "no strategy loaded")
	}

	return nil
}

// resolveRange maps the configured time range onto window indices. Bars
// before the start index are warmup.
func (e *BacktestEngineV1) resolveRange() (startIndex, endIndex int, err error) {
	startIndex = 0
	endIndex = e.window.Len() - 1

	if e.config.StartTime.IsSome() {
		startIndex = e.window.IndexAtOrAfter(e.config.StartTime.Unwrap())
		if startIndex < 0 {
			return 0, 0, errors.New(errors.ErrCodeDataUnavailable, "start_time is past the end of the bar window")
		}
	}

	if e.config.EndTime.IsSome() {
		end := e.config.EndTime.Unwrap()

		// IndexAtOrAfter returns -1 when every bar precedes end; the range
		// then runs to the last bar.
		if idx := e.window.IndexAtOrAfter(end); idx >= 0 {
			bar, barErr := e.window.Bar(idx)
			if barErr == nil && bar.Time.After(end) {
				idx--
			}

			endIndex = idx
		}

		if endIndex < startIndex {
			return 0, 0, errors.New(errors.ErrCodeInvalidTimeRange, "end_time precedes the first tradable bar")
		}
	}

	return startIndex, endIndex, nil
}

// finish stamps the terminal status and assembles the result records.
func (e *BacktestEngineV1) finish(result *types.RunResult, status types.RunStatus, reason string) *types.RunResult {
	result.Status = status
	result.Reason = reason
	result.Orders = e.book.AllOrders()
	result.Fills = e.fills
	result.Trades = e.aggregator.Trades()
	result.Logs = e.runLog.records
	result.Stats = e.aggregator.Finalize(result.Snapshots, e.config.InitialCash)

	e.log.Info("run finished",
		zap.String("run_id", result.RunID),
		zap.String("status", string(result.Status)),
		zap.String("reason", result.Reason),
		zap.Int("orders", len(result.Orders)),
		zap.Int("fills", len(result.Fills)),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("final_equity", result.Stats.FinalEquity),
	)

	return result
}

// notifyOrder surfaces an order state change to the strategy.
func (e *BacktestEngineV1) notifyOrder(orderID string) {
	order, err := e.book.Get(orderID)
	if err != nil || order.IsNone() {
		return
	}

	if err := e.strategy.OnOrder(e.sctx, order.Unwrap()); err != nil {
		e.log.Error("strategy OnOrder failed", zap.Error(err))
	}
}
