package commission_fee

import "github.com/shopspring/decimal"

type CommissionFee interface {
	// Calculate the commission fee for trading quantity units at price. The sign of quantity is ignored.
	Calculate(price float64, quantity float64) float64
	// Rate is the proportional rate the fee is equivalent to. The risk sizer uses it
	// to keep an entry plus its commission within the available cash.
	Rate() float64
}

// GetCommissionFeeHandler returns the fee model for a proportional rate.
// A zero rate yields the zero commission model.
func GetCommissionFeeHandler(rate float64) CommissionFee {
	if rate <= 0 {
		return NewZeroCommissionFee()
	}

	return NewProportionalCommissionFee(rate)
}

// ProportionalCommissionFee charges a fixed fraction of the traded value on every leg.
type ProportionalCommissionFee struct {
	rate decimal.Decimal
}

func NewProportionalCommissionFee(rate float64) CommissionFee {
	return &ProportionalCommissionFee{rate: decimal.NewFromFloat(rate)}
}

func (c *ProportionalCommissionFee) Calculate(price float64, quantity float64) float64 {
	value := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(quantity)).Abs()

	return value.Mul(c.rate).InexactFloat64()
}

func (c *ProportionalCommissionFee) Rate() float64 {
	return c.rate.InexactFloat64()
}
