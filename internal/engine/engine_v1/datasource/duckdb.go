package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// DuckDBLoader loads bar windows from parquet or csv files through an
// in-memory DuckDB instance.
type DuckDBLoader struct {
	db *sql.DB
}

// NewDuckDBLoader opens an in-memory DuckDB connection.
func NewDuckDBLoader() (*DuckDBLoader, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to open duckdb", err)
	}

	return &DuckDBLoader{db: db}, nil
}

// Load reads bars for symbol from path, ordered by time ascending, optionally
// bounded by start/end. The file extension selects the reader function.
func (l *DuckDBLoader) Load(path string, symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) (*BarWindow, error) {
	reader, err := readerFor(path)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT time, open, high, low, close, volume
		FROM %s
		WHERE 1=1`, reader)

	args := []interface{}{}

	if start.IsSome() {
		query += " AND time >= ?"

		args = append(args, start.Unwrap())
	}

	if end.IsSome() {
		query += " AND time <= ?"

		args = append(args, end.Unwrap())
	}

	query += " ORDER BY time ASC"

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to query bars", err)
	}
	defer rows.Close()

	var bars []types.MarketData

	for rows.Next() {
		var bar types.MarketData

		if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to scan bar", err)
		}

		bar.Symbol = symbol
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceFailed, "error iterating bars", err)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataUnavailable, "no bars found in %s", path)
	}

	return NewBarWindow(symbol, bars)
}

// Close releases the underlying connection.
func (l *DuckDBLoader) Close() error {
	return l.db.Close()
}

func readerFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return fmt.Sprintf("read_parquet('%s')", path), nil
	case ".csv":
		return fmt.Sprintf("read_csv_auto('%s')", path), nil
	default:
		return "", errors.Newf(errors.ErrCodeDataSourceFailed,
			"unsupported data file extension: %s", filepath.Ext(path))
	}
}
