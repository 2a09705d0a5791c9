package risk

import (
	"math"

	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/shopspring/decimal"
)

// Granularity is the smallest tradable unit model.
type Granularity string

const (
	// GranularityInteger trades whole units only.
	GranularityInteger Granularity = "integer"
	// GranularityFractional trades multiples of MinIncrement.
	GranularityFractional Granularity = "fractional"
)

// DefaultMinIncrement is used for fractional sizing when no increment is configured.
const DefaultMinIncrement = 1e-8

// Sizer converts a risk budget into a position size.
type Sizer struct {
	Granularity  Granularity
	MinIncrement float64
}

// NewSizer creates a sizer. minIncrement is only used for fractional granularity.
func NewSizer(granularity Granularity, minIncrement float64) Sizer {
	if granularity == "" {
		granularity = GranularityInteger
	}

	if minIncrement <= 0 {
		minIncrement = DefaultMinIncrement
	}

	return Sizer{Granularity: granularity, MinIncrement: minIncrement}
}

// Size returns the number of units so that a move from entry to stop loses
// riskPct of equity. Integer granularity rounds to the nearest unit, fractional
// granularity rounds down to MinIncrement. The result is clamped so that
// size*entry*(1+commissionRate) fits into cash. Zero means "no trade".
func (s Sizer) Size(equity, riskPct, entry, stop, cash, commissionRate float64) (float64, error) {
	if !finite(riskPct) || riskPct <= 0 || riskPct > 1 {
		return 0, errors.Newf(errors.ErrCodeInvalidRisk, "risk percentage must be in (0, 1], got %v", riskPct)
	}

	if !finite(entry) || entry <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidRisk, "entry price must be positive, got %v", entry)
	}

	distance := math.Abs(entry - stop)
	if !finite(stop) || !finite(distance) || distance <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidRisk, "risk per unit must be positive (entry %v, stop %v)", entry, stop)
	}

	if !finite(equity) || equity <= 0 {
		return 0, nil
	}

	riskAmount := decimal.NewFromFloat(equity).Mul(decimal.NewFromFloat(riskPct))
	raw := riskAmount.Div(decimal.NewFromFloat(distance))

	var size decimal.Decimal
	if s.Granularity == GranularityFractional {
		size = s.floor(raw)
	} else {
		size = raw.Round(0)
	}

	affordable := s.maxAffordable(cash, entry, commissionRate)
	if size.GreaterThan(affordable) {
		size = affordable
	}

	if size.IsNegative() {
		return 0, nil
	}

	return size.InexactFloat64(), nil
}

// MaxAffordable returns the largest size, rounded down to the granularity, whose
// cost including commission fits into cash.
func (s Sizer) MaxAffordable(cash, price, commissionRate float64) float64 {
	return s.maxAffordable(cash, price, commissionRate).InexactFloat64()
}

func (s Sizer) maxAffordable(cash, price, commissionRate float64) decimal.Decimal {
	if !finite(cash) || !finite(price) || cash <= 0 || price <= 0 {
		return decimal.Zero
	}

	if !finite(commissionRate) || commissionRate < 0 {
		commissionRate = 0
	}

	unitCost := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(commissionRate)))

	return s.floor(decimal.NewFromFloat(cash).Div(unitCost))
}

// Floor rounds size down to the granularity.
func (s Sizer) Floor(size float64) float64 {
	if !finite(size) || size <= 0 {
		return 0
	}

	return s.floor(decimal.NewFromFloat(size)).InexactFloat64()
}

// FloorDecimal is Floor for a size that is already a decimal product, such as a
// fraction of a position.
func (s Sizer) FloorDecimal(size decimal.Decimal) float64 {
	if !size.IsPositive() {
		return 0
	}

	return s.floor(size).InexactFloat64()
}

func (s Sizer) floor(size decimal.Decimal) decimal.Decimal {
	if s.Granularity != GranularityFractional {
		return size.Floor()
	}

	increment := decimal.NewFromFloat(s.MinIncrement)
	if !increment.IsPositive() {
		increment = decimal.NewFromFloat(DefaultMinIncrement)
	}

	return size.Div(increment).Floor().Mul(increment)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
