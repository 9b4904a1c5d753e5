package types

import "time"

// Fill is a single execution against an order. Immutable once recorded.
type Fill struct {
	OrderID  string    `yaml:"order_id" json:"order_id" csv:"order_id"`
	Symbol   string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side     OrderSide `yaml:"side" json:"side" csv:"side"`
	BarIndex int       `yaml:"bar_index" json:"bar_index" csv:"bar_index"`
	Time     time.Time `yaml:"time" json:"time" csv:"time"`
	// Price is the final executed price after slippage.
	Price    float64 `yaml:"price" json:"price" csv:"price"`
	Quantity float64 `yaml:"quantity" json:"quantity" csv:"quantity"`
	// Slippage is the signed price deviation applied to the reference price.
	Slippage float64 `yaml:"slippage" json:"slippage" csv:"slippage"`
	// Commission is the cost charged against the filled notional.
	Commission float64 `yaml:"commission" json:"commission" csv:"commission"`
	// Funding is the cash flow applied because this bar crossed a funding
	// interval boundary. Zero on bars that do not cross a boundary.
	Funding      float64 `yaml:"funding" json:"funding" csv:"funding"`
	StrategyName string  `yaml:"strategy_name" json:"strategy_name" csv:"strategy_name"`
}

// Notional returns the executed price times quantity.
func (f Fill) Notional() float64 {
	return f.Price * f.Quantity
}
