package commission

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type CommissionTestSuite struct {
	suite.Suite
}

func TestCommissionSuite(t *testing.T) {
	suite.Run(t, new(CommissionTestSuite))
}

func (suite *CommissionTestSuite) TestBpsModel() {
	tests := []struct {
		name     string
		bps      float64
		quantity float64
		price    float64
		expected float64
	}{
		{name: "ten bps", bps: 10, quantity: 10, price: 100, expected: 1},
		{name: "zero bps", bps: 0, quantity: 10, price: 100, expected: 0},
		{name: "negative quantity uses absolute", bps: 10, quantity: -10, price: 100, expected: 1},
		{name: "fractional", bps: 5, quantity: 2.5, price: 40, expected: 0.05},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			model := NewBpsModel(tt.bps)
			suite.InDelta(tt.expected, model.Calculate(tt.quantity, tt.price), 1e-9)
		})
	}
}

func (suite *CommissionTestSuite) TestFixedModel() {
	model := NewFixedModel(1.5)

	suite.Equal(1.5, model.Calculate(10, 100))
	suite.Equal(1.5, model.Calculate(0.001, 5))
	suite.Zero(model.Calculate(0, 100))
}

func (suite *CommissionTestSuite) TestScheduleModel() {
	model := NewScheduleModel([]Bracket{
		{MaxQuantity: 100, Fee: 5},
		{MaxQuantity: 10, Fee: 1}, // out of order on purpose
		{MaxQuantity: 1000, Fee: 20},
	})

	tests := []struct {
		name     string
		quantity float64
		expected float64
	}{
		{name: "first bracket", quantity: 5, expected: 1},
		{name: "bracket boundary", quantity: 10, expected: 1},
		{name: "second bracket", quantity: 50, expected: 5},
		{name: "third bracket", quantity: 500, expected: 20},
		{name: "above all brackets pays last fee", quantity: 5000, expected: 20},
		{name: "negative quantity uses absolute", quantity: -50, expected: 5},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.Equal(tt.expected, model.Calculate(tt.quantity, 100))
		})
	}
}

func (suite *CommissionTestSuite) TestScheduleModelEmpty() {
	model := NewScheduleModel(nil)
	suite.Zero(model.Calculate(10, 100))
}

func (suite *CommissionTestSuite) TestZeroModel() {
	model := NewZeroModel()
	suite.Zero(model.Calculate(1000, 1000))
}
