package indicator

import "math"

// RSI is the Relative Strength Index with Wilder's smoothing over "period" changes.
func RSI(inputs [][]float64, params Params) ([][]float64, error) {
	if err := requireInputs("rsi", inputs, 1); err != nil {
		return nil, err
	}

	period, err := params.Period("period", 14)
	if err != nil {
		return nil, err
	}

	values := inputs[0]
	out := nanSeries(len(values))

	start := firstValid(values)
	if start+period >= len(values) {
		return [][]float64{out}, nil
	}

	avgGain := 0.0
	avgLoss := 0.0

	// first average over the first period changes
	for i := start + 1; i <= start+period; i++ {
		gain, loss := change(values[i-1], values[i])
		avgGain += gain
		avgLoss += loss
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[start+period] = rsiValue(avgGain, avgLoss)

	for i := start + period + 1; i < len(values); i++ {
		if math.IsNaN(values[i]) || math.IsNaN(values[i-1]) {
			continue
		}

		gain, loss := change(values[i-1], values[i])
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}

	return [][]float64{out}, nil
}

func change(prev, current float64) (gain, loss float64) {
	diff := current - prev
	if diff > 0 {
		return diff, 0
	}

	return 0, -diff
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}

		return 100 // Perfect uptrend
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs))
}
