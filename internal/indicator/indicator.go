// Package indicator provides slice-based technical indicators computed over
// a bar window. Each function returns a series aligned with its input;
// positions before the warmup period are NaN.
package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// SMA returns the simple moving average of values with the given period.
func SMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeConfigValidation, "sma period must be positive: %d", period)
	}

	if len(values) < period {
		return nil, errors.NewLookbackErrorf(period, len(values), "",
			"sma requires %d values, got %d", period, len(values))
	}

	out := nanSeries(len(values))

	var sum float64

	for i, v := range values {
		sum += v

		if i >= period {
			sum -= values[i-period]
		}

		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}

	return out, nil
}

// EMA returns the exponential moving average of values with the given period.
// The first defined value is the SMA of the first period values.
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeConfigValidation, "ema period must be positive: %d", period)
	}

	if len(values) < period {
		return nil, errors.NewLookbackErrorf(period, len(values), "",
			"ema requires %d values, got %d", period, len(values))
	}

	out := nanSeries(len(values))

	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}

	seed /= float64(period)
	out[period-1] = seed

	alpha := 2.0 / (float64(period) + 1.0)
	prev := seed

	for i := period; i < len(values); i++ {
		prev = alpha*values[i] + (1-alpha)*prev
		out[i] = prev
	}

	return out, nil
}

// ATR returns the Wilder average true range of the bars with the given
// period.
func ATR(bars []types.MarketData, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeConfigValidation, "atr period must be positive: %d", period)
	}

	if len(bars) < period+1 {
		return nil, errors.NewLookbackErrorf(period+1, len(bars), "",
			"atr requires %d bars, got %d", period+1, len(bars))
	}

	out := nanSeries(len(bars))

	tr := make([]float64, len(bars))
	tr[0] = bars[0].High - bars[0].Low

	for i := 1; i < len(bars); i++ {
		highLow := bars[i].High - bars[i].Low
		highClose := math.Abs(bars[i].High - bars[i-1].Close)
		lowClose := math.Abs(bars[i].Low - bars[i-1].Close)
		tr[i] = math.Max(highLow, math.Max(highClose, lowClose))
	}

	var seed float64
	for i := 1; i <= period; i++ {
		seed += tr[i]
	}

	seed /= float64(period)
	out[period] = seed

	prev := seed
	for i := period + 1; i < len(bars); i++ {
		prev = (prev*float64(period-1) + tr[i]) / float64(period)
		out[i] = prev
	}

	return out, nil
}

// CrossOver reports whether series a crossed above series b at index i.
func CrossOver(a, b []float64, i int) bool {
	if i < 1 || i >= len(a) || i >= len(b) {
		return false
	}

	if math.IsNaN(a[i-1]) || math.IsNaN(b[i-1]) || math.IsNaN(a[i]) || math.IsNaN(b[i]) {
		return false
	}

	return a[i] > b[i] && a[i-1] <= b[i-1]
}

// CrossUnder reports whether series a crossed below series b at index i.
func CrossUnder(a, b []float64, i int) bool {
	if i < 1 || i >= len(a) || i >= len(b) {
		return false
	}

	if math.IsNaN(a[i-1]) || math.IsNaN(b[i-1]) || math.IsNaN(a[i]) || math.IsNaN(b[i]) {
		return false
	}

	return a[i] < b[i] && a[i-1] >= b[i-1]
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}
