package indicator

import "math"

// ATR is the Average True Range with Wilder's smoothing. Inputs are high, low
// and close.
func ATR(inputs [][]float64, params Params) ([][]float64, error) {
	if err := requireInputs("atr", inputs, 3); err != nil {
		return nil, err
	}

	period, err := params.Period("period", 14)
	if err != nil {
		return nil, err
	}

	high, low, closes := inputs[0], inputs[1], inputs[2]
	out := nanSeries(len(closes))

	if len(closes) < period {
		return [][]float64{out}, nil
	}

	tr := make([]float64, len(closes))
	for i := range closes {
		tr[i] = high[i] - low[i]
		if i > 0 {
			tr[i] = math.Max(tr[i], math.Max(math.Abs(high[i]-closes[i-1]), math.Abs(low[i]-closes[i-1])))
		}
	}

	current := mean(tr[:period])
	out[period-1] = current

	for i := period; i < len(tr); i++ {
		current = (current*float64(period-1) + tr[i]) / float64(period)
		out[i] = current
	}

	return [][]float64{out}, nil
}
