package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// Func computes one or more output series from input series. Every input and
// every output has the store's length. Values that cannot be computed yet are NaN.
// A Func must be pure: output[i] may only depend on inputs[..][0..i].
type Func func(inputs [][]float64, params Params) ([][]float64, error)

// Params are the numeric parameters of an indicator.
type Params map[string]float64

// Float returns the named parameter or def when it is not set.
func (p Params) Float(name string, def float64) float64 {
	if value, ok := p[name]; ok {
		return value
	}

	return def
}

// Period returns the named parameter as a positive integer window length.
func (p Params) Period(name string, def int) (int, error) {
	value := p.Float(name, float64(def))
	if value < 1 || value != math.Trunc(value) {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "%s must be a positive integer, got %v", name, value)
	}

	return int(value), nil
}

// With returns a copy of p overridden by other.
func (p Params) With(other Params) Params {
	merged := make(Params, len(p)+len(other))
	for k, v := range p {
		merged[k] = v
	}

	for k, v := range other {
		merged[k] = v
	}

	return merged
}

// Spec declares one indicator of a run. Either Kind (a catalog entry) or Func
// (a custom function) must be set.
type Spec struct {
	// Name is how strategies and other indicators refer to this indicator.
	Name string
	Kind types.IndicatorKind
	Func Func
	// Inputs are column names or earlier indicators ("rsi", "bb.upper", "macd.1").
	// Empty means the catalog defaults.
	Inputs []string
	// Params override the catalog defaults.
	Params Params
	// Outputs names the output series. Empty means the catalog defaults, or a
	// single "value" output for a custom Func.
	Outputs []string
}

func nanSeries(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = math.NaN()
	}

	return values
}

// firstValid returns the index of the first non-NaN value, or len(values).
func firstValid(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}

	return len(values)
}

// rolling applies fn to every complete window of n values. Windows containing
// a NaN produce NaN.
func rolling(values []float64, n int, fn func(window []float64) float64) []float64 {
	out := nanSeries(len(values))

	nanCount := 0

	for i, v := range values {
		if math.IsNaN(v) {
			nanCount++
		}

		if i >= n && math.IsNaN(values[i-n]) {
			nanCount--
		}

		if i+1 >= n && nanCount == 0 {
			out[i] = fn(values[i+1-n : i+1])
		}
	}

	return out
}

func requireInputs(kind string, inputs [][]float64, n int) error {
	if len(inputs) != n {
		return errors.Newf(errors.ErrCodeInvalidParameter, "%s expects %d input series, got %d", kind, n, len(inputs))
	}

	return nil
}
