package datasource

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// BarWindow is a read-only, position-indexed OHLCV sequence. It is loaded
// once before a run starts and never mutated afterwards, so concurrent runs
// may share a single window.
type BarWindow struct {
	symbol string
	bars   []types.MarketData
}

// NewBarWindow wraps bars in a read-only window. Bars must already be sorted
// by time ascending; the loader guarantees this.
func NewBarWindow(symbol string, bars []types.MarketData) (*BarWindow, error) {
	if len(bars) < 2 {
		return nil, errors.Newf(errors.ErrCodeInsufficientBars,
			"bar window requires at least 2 bars, got %d", len(bars))
	}

	return &BarWindow{
		symbol: symbol,
		bars:   bars,
	}, nil
}

// Symbol returns the window's symbol.
func (w *BarWindow) Symbol() string {
	return w.symbol
}

// Len returns the number of bars in the window.
func (w *BarWindow) Len() int {
	return len(w.bars)
}

// Bar returns the bar at position i.
func (w *BarWindow) Bar(i int) (types.MarketData, error) {
	if i < 0 || i >= len(w.bars) {
		return types.MarketData{}, errors.Newf(errors.ErrCodeBarOutOfRange,
			"bar index %d out of range [0, %d)", i, len(w.bars))
	}

	return w.bars[i], nil
}

// IndexAtOrAfter returns the position of the first bar whose time is not
// before ts, or -1 if no such bar exists.
func (w *BarWindow) IndexAtOrAfter(ts time.Time) int {
	for i, bar := range w.bars {
		if !bar.Time.Before(ts) {
			return i
		}
	}

	return -1
}

// Interval returns the spacing between the first two bars. Used to convert
// funding intervals expressed in wall time into bar counts.
func (w *BarWindow) Interval() time.Duration {
	return w.bars[1].Time.Sub(w.bars[0].Time)
}

// Series extracts a single field from bars [0, upTo] into a fresh slice.
// The copy keeps strategies from aliasing the shared window.
func (w *BarWindow) Series(upTo int, field func(types.MarketData) float64) []float64 {
	if upTo >= len(w.bars) {
		upTo = len(w.bars) - 1
	}

	out := make([]float64, 0, upTo+1)
	for i := 0; i <= upTo; i++ {
		out = append(out, field(w.bars[i]))
	}

	return out
}

// Closes returns the close series up to and including upTo.
func (w *BarWindow) Closes(upTo int) []float64 {
	return w.Series(upTo, func(m types.MarketData) float64 { return m.Close })
}

// Opens returns the open series up to and including upTo.
func (w *BarWindow) Opens(upTo int) []float64 {
	return w.Series(upTo, func(m types.MarketData) float64 { return m.Open })
}

// Highs returns the high series up to and including upTo.
func (w *BarWindow) Highs(upTo int) []float64 {
	return w.Series(upTo, func(m types.MarketData) float64 { return m.High })
}

// Lows returns the low series up to and including upTo.
func (w *BarWindow) Lows(upTo int) []float64 {
	return w.Series(upTo, func(m types.MarketData) float64 { return m.Low })
}

// Volumes returns the volume series up to and including upTo.
func (w *BarWindow) Volumes(upTo int) []float64 {
	return w.Series(upTo, func(m types.MarketData) float64 { return m.Volume })
}

// SliceTo returns bars [from, upTo] as a fresh slice.
func (w *BarWindow) SliceTo(from, upTo int) []types.MarketData {
	if from < 0 {
		from = 0
	}

	if upTo >= len(w.bars) {
		upTo = len(w.bars) - 1
	}

	if from > upTo {
		return nil
	}

	out := make([]types.MarketData, upTo-from+1)
	copy(out, w.bars[from:upTo+1])

	return out
}
