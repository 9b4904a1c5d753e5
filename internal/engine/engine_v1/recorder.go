package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
	yamlv3 "gopkg.in/yaml.v3"

	_ "github.com/marcboeker/go-duckdb"
)

// Recorder persists run results. Records are staged into an in-memory DuckDB
// instance and exported as one parquet file per record kind under
// <dir>/<run_id>/, next to the summary stats and the run manifest.
type Recorder struct {
	db  *sql.DB
	dir string
	log *logger.Logger
}

// RunManifest describes a persisted run: enough to reproduce it.
type RunManifest struct {
	RunID         string    `yaml:"run_id"`
	StrategyName  string    `yaml:"strategy_name"`
	Symbol        string    `yaml:"symbol"`
	Status        string    `yaml:"status"`
	Reason        string    `yaml:"reason,omitempty"`
	EngineVersion string    `yaml:"engine_version"`
	RecordedAt    time.Time `yaml:"recorded_at"`
	Config        string    `yaml:"config"`
}

func NewRecorder(dir string, log *logger.Logger) (*Recorder, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRecorderFailed, "failed to open duckdb", err)
	}

	r := &Recorder{db: db, dir: dir, log: log}
	if err := r.createTables(); err != nil {
		db.Close()

		return nil, err
	}

	return r, nil
}

// Record stages the result's records, exports them to parquet, and writes
// stats.yaml and manifest.yaml. configYAML is the raw run configuration,
// embedded in the manifest for replay.
func (r *Recorder) Record(result *types.RunResult, configYAML string) error {
	runDir := filepath.Join(r.dir, result.RunID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderFailed, "failed to create run directory", err)
	}

	if err := r.stage(result); err != nil {
		return err
	}

	for _, table := range []string{"orders", "fills", "trades", "snapshots", "logs"} {
		target := filepath.Join(runDir, table+".parquet")

		query := fmt.Sprintf("COPY %s TO '%s' (FORMAT PARQUET)", table, target)
		if _, err := r.db.Exec(query); err != nil {
			return errors.Wrapf(errors.ErrCodeRecorderFailed, err, "failed to export %s", table)
		}
	}

	if err := types.WriteSummaryStats(filepath.Join(runDir, "stats.yaml"), result.Stats); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderFailed, "failed to write stats", err)
	}

	manifest := RunManifest{
		RunID:         result.RunID,
		StrategyName:  result.StrategyName,
		Symbol:        result.Symbol,
		Status:        string(result.Status),
		Reason:        result.Reason,
		EngineVersion: version.EngineVersion,
		RecordedAt:    time.Now().UTC(),
		Config:        configYAML,
	}

	data, err := yamlv3.Marshal(manifest)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRecorderFailed, "failed to marshal manifest", err)
	}

	if err := os.WriteFile(filepath.Join(runDir, "manifest.yaml"), data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderFailed, "failed to write manifest", err)
	}

	r.log.Info("run recorded",
		zap.String("run_id", result.RunID),
		zap.String("dir", runDir),
	)

	return nil
}

// Close releases the staging database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

func (r *Recorder) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR, symbol VARCHAR, side VARCHAR, type VARCHAR,
			size DOUBLE, time_in_force VARCHAR,
			limit_price DOUBLE, stop_price DOUBLE,
			state VARCHAR, filled_size DOUBLE, avg_fill_price DOUBLE,
			submit_bar INTEGER, submit_time TIMESTAMP,
			strategy_name VARCHAR, reason VARCHAR, reason_message VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS fills (
			order_id VARCHAR, symbol VARCHAR, side VARCHAR,
			bar_index INTEGER, time TIMESTAMP,
			price DOUBLE, quantity DOUBLE,
			slippage DOUBLE, commission DOUBLE, funding DOUBLE,
			strategy_name VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			side VARCHAR, size DOUBLE,
			entry_bar INTEGER, entry_time TIMESTAMP, entry_price DOUBLE,
			exit_bar INTEGER, exit_time TIMESTAMP, exit_price DOUBLE,
			pnl DOUBLE, fees DOUBLE, mae DOUBLE, mfe DOUBLE, bars_held INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			bar_index INTEGER, time TIMESTAMP,
			cash DOUBLE, equity DOUBLE, position_size DOUBLE, mark_price DOUBLE,
			exposure DOUBLE, margin_used DOUBLE, peak_equity DOUBLE, drawdown DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS logs (
			time TIMESTAMP, bar_index INTEGER, level VARCHAR, message VARCHAR
		)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.Exec(stmt); err != nil {
			return errors.Wrap(errors.ErrCodeRecorderFailed, "failed to create staging table", err)
		}
	}

	return nil
}

func (r *Recorder) stage(result *types.RunResult) error {
	for _, table := range []string{"orders", "fills", "trades", "snapshots", "logs"} {
		if _, err := r.db.Exec("DELETE FROM " + table); err != nil {
			return errors.Wrapf(errors.ErrCodeRecorderFailed, err, "failed to clear %s", table)
		}
	}

	if len(result.Orders) > 0 {
		builder := sq.Insert("orders").Columns(
			"id", "symbol", "side", "type", "size", "time_in_force",
			"limit_price", "stop_price", "state", "filled_size", "avg_fill_price",
			"submit_bar", "submit_time", "strategy_name", "reason", "reason_message",
		)
		for _, o := range result.Orders {
			builder = builder.Values(
				o.ID, o.Symbol, string(o.Side), string(o.Type), o.Size, string(o.TimeInForce),
				nullableFloat(o.LimitPrice), nullableFloat(o.StopPrice),
				string(o.State), o.FilledSize, o.AvgFillPrice,
				o.SubmitBar, o.SubmitTime, o.StrategyName, o.Reason.Reason, o.Reason.Message,
			)
		}

		if err := r.exec(builder, "orders"); err != nil {
			return err
		}
	}

	if len(result.Fills) > 0 {
		builder := sq.Insert("fills").Columns(
			"order_id", "symbol", "side", "bar_index", "time",
			"price", "quantity", "slippage", "commission", "funding", "strategy_name",
		)
		for _, f := range result.Fills {
			builder = builder.Values(
				f.OrderID, f.Symbol, string(f.Side), f.BarIndex, f.Time,
				f.Price, f.Quantity, f.Slippage, f.Commission, f.Funding, f.StrategyName,
			)
		}

		if err := r.exec(builder, "fills"); err != nil {
			return err
		}
	}

	if len(result.Trades) > 0 {
		builder := sq.Insert("trades").Columns(
			"side", "size", "entry_bar", "entry_time", "entry_price",
			"exit_bar", "exit_time", "exit_price", "pnl", "fees", "mae", "mfe", "bars_held",
		)
		for _, t := range result.Trades {
			builder = builder.Values(
				string(t.Side), t.Size, t.EntryBar, t.EntryTime, t.EntryPrice,
				t.ExitBar, t.ExitTime, t.ExitPrice, t.PnL, t.Fees, t.MAE, t.MFE, t.BarsHeld,
			)
		}

		if err := r.exec(builder, "trades"); err != nil {
			return err
		}
	}

	if len(result.Snapshots) > 0 {
		builder := sq.Insert("snapshots").Columns(
			"bar_index", "time", "cash", "equity", "position_size", "mark_price",
			"exposure", "margin_used", "peak_equity", "drawdown",
		)
		for _, s := range result.Snapshots {
			builder = builder.Values(
				s.BarIndex, s.Time, s.Cash, s.Equity, s.PositionSize, s.MarkPrice,
				s.Exposure, s.MarginUsed, s.PeakEquity, s.Drawdown,
			)
		}

		if err := r.exec(builder, "snapshots"); err != nil {
			return err
		}
	}

	if len(result.Logs) > 0 {
		builder := sq.Insert("logs").Columns("time", "bar_index", "level", "message")
		for _, l := range result.Logs {
			builder = builder.Values(l.Time, l.BarIndex, string(l.Level), l.Message)
		}

		if err := r.exec(builder, "logs"); err != nil {
			return err
		}
	}

	return nil
}

func (r *Recorder) exec(builder sq.InsertBuilder, table string) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return errors.Wrapf(errors.ErrCodeRecorderFailed, err, "failed to build %s insert", table)
	}

	if _, err := r.db.Exec(query, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeRecorderFailed, err, "failed to stage %s", table)
	}

	return nil
}

func nullableFloat(value optional.Option[float64]) any {
	if value.IsNone() {
		return nil
	}

	return value.Unwrap()
}
