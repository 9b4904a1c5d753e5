package types

import "time"

// MarketData is a single normalized OHLCV bar.
type MarketData struct {
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Range reports whether price trades inside the bar's high/low range.
func (m MarketData) Range(price float64) bool {
	return price >= m.Low && price <= m.High
}
