package commission

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Model computes the commission cost for a fill. Cost is charged against the
// filled notional and returned in quote currency.
type Model interface {
	// Calculate returns the commission for a fill of quantity at price.
	Calculate(quantity float64, price float64) float64
}

type ModelType string

const (
	ModelTypeBps      ModelType = "bps"
	ModelTypeFixed    ModelType = "fixed"
	ModelTypeSchedule ModelType = "per_fill"
)

var AllModelTypes = []any{
	ModelTypeBps,
	ModelTypeFixed,
	ModelTypeSchedule,
}

// BpsModel charges a fixed number of basis points on the filled notional.
type BpsModel struct {
	bps float64
}

func NewBpsModel(bps float64) Model {
	return &BpsModel{bps: bps}
}

// Calculate implements commission.Model.
func (m *BpsModel) Calculate(quantity float64, price float64) float64 {
	notional := decimal.NewFromFloat(quantity).Abs().Mul(decimal.NewFromFloat(price))
	fee, _ := notional.Mul(decimal.NewFromFloat(m.bps)).Div(decimal.NewFromInt(10000)).Float64()

	return fee
}

// FixedModel charges a flat amount per fill.
type FixedModel struct {
	amount float64
}

func NewFixedModel(amount float64) Model {
	return &FixedModel{amount: amount}
}

// Calculate implements commission.Model.
func (m *FixedModel) Calculate(quantity float64, price float64) float64 {
	if quantity == 0 {
		return 0
	}

	return m.amount
}

// Bracket is a single tier of a per-fill schedule: fills with quantity up to
// MaxQuantity pay Fee.
type Bracket struct {
	MaxQuantity float64 `yaml:"max_quantity" json:"max_quantity"`
	Fee         float64 `yaml:"fee" json:"fee"`
}

// ScheduleModel charges a per-fill fee from a quantity-bracketed schedule.
// The first bracket whose bound covers the fill quantity applies; fills
// above every bound pay the last bracket's fee.
type ScheduleModel struct {
	brackets []Bracket
}

func NewScheduleModel(brackets []Bracket) Model {
	sorted := make([]Bracket, len(brackets))
	copy(sorted, brackets)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MaxQuantity < sorted[j].MaxQuantity
	})

	return &ScheduleModel{brackets: sorted}
}

// Calculate implements commission.Model.
func (m *ScheduleModel) Calculate(quantity float64, price float64) float64 {
	if len(m.brackets) == 0 || quantity == 0 {
		return 0
	}

	if quantity < 0 {
		quantity = -quantity
	}

	for _, bracket := range m.brackets {
		if quantity <= bracket.MaxQuantity {
			return bracket.Fee
		}
	}

	return m.brackets[len(m.brackets)-1].Fee
}

// ZeroModel charges nothing. Default when no commission is configured.
type ZeroModel struct{}

func NewZeroModel() Model {
	return &ZeroModel{}
}

// Calculate implements commission.Model.
func (m *ZeroModel) Calculate(quantity float64, price float64) float64 {
	return 0
}
