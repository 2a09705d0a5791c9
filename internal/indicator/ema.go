package indicator

import "math"

// EMA is the exponential moving average over "period" bars, seeded with the
// simple average of the first period values and smoothed with alpha = 2/(period+1).
func EMA(inputs [][]float64, params Params) ([][]float64, error) {
	if err := requireInputs("ema", inputs, 1); err != nil {
		return nil, err
	}

	period, err := params.Period("period", 20)
	if err != nil {
		return nil, err
	}

	return [][]float64{ema(inputs[0], period)}, nil
}

// ema skips leading NaNs so it can smooth the output of another indicator.
func ema(values []float64, period int) []float64 {
	out := nanSeries(len(values))

	start := firstValid(values)
	if start+period > len(values) {
		return out
	}

	seed := mean(values[start : start+period])
	if math.IsNaN(seed) {
		return out
	}

	alpha := 2.0 / float64(period+1)
	current := seed
	out[start+period-1] = current

	for i := start + period; i < len(values); i++ {
		if math.IsNaN(values[i]) {
			continue
		}

		current = values[i]*alpha + current*(1-alpha)
		out[i] = current
	}

	return out
}
