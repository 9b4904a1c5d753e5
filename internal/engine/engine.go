package engine

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// OnProgressCallback reports bar-loop progress as (current, total).
type OnProgressCallback func(current int, total int)

// Engine runs a strategy against a bar window and produces a RunResult.
// Implementations are single-use per run; independent runs are isolated by
// construction and may execute concurrently.
type Engine interface {
	// Initialize parses and validates the YAML run configuration. Returns a
	// ConfigValidation error before any run state is created when the
	// configuration is malformed or out of range.
	Initialize(config string) error
	// SetBarWindow attaches the read-only bar window for the run.
	SetBarWindow(window *datasource.BarWindow) error
	// LoadStrategy attaches the strategy with its raw parameter values. The
	// strategy's parameter schema is validated and resolved at load time.
	LoadStrategy(strategy runtime.Strategy, params map[string]any) error
	// Run drives the bar loop to completion. Cancellation through ctx is
	// honored at bar boundaries only and yields a HALTED result with
	// partial records retained.
	Run(ctx context.Context, onProgress optional.Option[OnProgressCallback]) (*types.RunResult, error)
	// GetConfigSchema returns the JSON schema of the run configuration.
	GetConfigSchema() (string, error)
}
