package risk

import (
	"math"
	"testing"

	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SizerTestSuite struct {
	suite.Suite
}

func TestSizerSuite(t *testing.T) {
	suite.Run(t, new(SizerTestSuite))
}

func (suite *SizerTestSuite) TestSize() {
	integer := NewSizer(GranularityInteger, 0)
	fractional := NewSizer(GranularityFractional, 0.001)

	tests := []struct {
		name       string
		sizer      Sizer
		equity     float64
		riskPct    float64
		entry      float64
		stop       float64
		cash       float64
		commission float64
		expected   float64
	}{
		{"integer rounds to nearest", integer, 10_000, 0.01, 100, 97, 10_000, 0, 33},
		{"integer rounds up", integer, 10_000, 0.01, 100, 98.5, 10_000, 0, 67},
		{"short stop above entry", integer, 10_000, 0.01, 100, 102, 10_000, 0, 50},
		{"fractional rounds down", fractional, 10_000, 0.01, 100, 97, 10_000, 0, 33.333},
		{"clamped by cash", integer, 10_000, 0.5, 100, 99, 10_000, 0, 100},
		{"clamped by cash with commission", integer, 10_000, 0.5, 100, 99, 10_000, 0.01, 99},
		{"fractional clamp", fractional, 1_000, 1, 30, 29, 1_000, 0, 33.333},
		{"tiny risk rounds to zero", integer, 1_000, 0.0001, 100, 90, 1_000, 0, 0},
		{"no equity", integer, 0, 0.01, 100, 90, 0, 0, 0},
		{"no cash", integer, 10_000, 0.01, 100, 90, 0, 0, 0},
		{"scenario sizing", integer, 1_000_000, 0.01, 110.9, 110.9 * 0.98, 1_000_000, 0, 4509},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			size, err := tc.sizer.Size(tc.equity, tc.riskPct, tc.entry, tc.stop, tc.cash, tc.commission)
			suite.Require().NoError(err)
			suite.InDelta(tc.expected, size, 1e-9)
			suite.LessOrEqual(size*tc.entry*(1+tc.commission), math.Max(tc.cash, 0)+1e-9)
		})
	}
}

func (suite *SizerTestSuite) TestSizeInvalidRisk() {
	sizer := NewSizer(GranularityInteger, 0)

	tests := []struct {
		name    string
		riskPct float64
		entry   float64
		stop    float64
	}{
		{"stop equals entry", 0.01, 100, 100},
		{"nan stop", 0.01, 100, math.NaN()},
		{"infinite stop", 0.01, 100, math.Inf(-1)},
		{"zero risk", 0, 100, 90},
		{"risk above one", 1.5, 100, 90},
		{"zero entry", 0.01, 0, 90},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			size, err := sizer.Size(10_000, tc.riskPct, tc.entry, tc.stop, 10_000, 0)
			suite.Equal(0.0, size)
			suite.True(errors.IsInvalidRisk(err))
			suite.True(errors.IsRecoverable(err))
		})
	}
}

func (suite *SizerTestSuite) TestMaxAffordable() {
	suite.Equal(99.0, NewSizer(GranularityInteger, 0).MaxAffordable(10_000, 100, 0.01))
	suite.Equal(100.0, NewSizer(GranularityInteger, 0).MaxAffordable(10_000, 100, 0))
	suite.InDelta(0.33, NewSizer(GranularityFractional, 0.01).MaxAffordable(100, 300, 0), 1e-12)
	suite.Equal(0.0, NewSizer(GranularityInteger, 0).MaxAffordable(-5, 100, 0))
	suite.Equal(0.0, NewSizer(GranularityInteger, 0).MaxAffordable(100, 0, 0))
}

func (suite *SizerTestSuite) TestFloor() {
	suite.Equal(2.0, NewSizer(GranularityInteger, 0).Floor(2.9))
	suite.InDelta(2.95, NewSizer(GranularityFractional, 0.05).Floor(2.99), 1e-12)
	suite.Equal(0.0, NewSizer(GranularityInteger, 0).Floor(-1))
}

func (suite *SizerTestSuite) TestFloorDecimal() {
	integer := NewSizer(GranularityInteger, 0)

	// 100 * 0.29 is 28.999999999999996 in float64
	suite.Equal(29.0, integer.FloorDecimal(decimal.NewFromFloat(100).Mul(decimal.NewFromFloat(0.29))))
	suite.Equal(57.0, integer.FloorDecimal(decimal.NewFromFloat(100).Mul(decimal.NewFromFloat(0.57))))
	suite.Equal(0.0, integer.FloorDecimal(decimal.NewFromFloat(-3)))

	fractional := NewSizer(GranularityFractional, 0.01)
	suite.Equal(0.29, fractional.FloorDecimal(decimal.NewFromFloat(1).Mul(decimal.NewFromFloat(0.29))))
}

func (suite *SizerTestSuite) TestDefaults() {
	sizer := NewSizer("", 0)
	suite.Equal(GranularityInteger, sizer.Granularity)
	suite.Equal(DefaultMinIncrement, sizer.MinIncrement)
}
