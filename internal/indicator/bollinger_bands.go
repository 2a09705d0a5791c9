package indicator

import "math"

// BollingerBands returns the upper, middle and lower bands: the simple moving
// average plus and minus "std_dev" population standard deviations.
func BollingerBands(inputs [][]float64, params Params) ([][]float64, error) {
	if err := requireInputs("bbands", inputs, 1); err != nil {
		return nil, err
	}

	period, err := params.Period("period", 20)
	if err != nil {
		return nil, err
	}

	width := params.Float("std_dev", 2)

	middle := rolling(inputs[0], period, mean)
	deviation := rolling(inputs[0], period, stdDev)
	upper := nanSeries(len(middle))
	lower := nanSeries(len(middle))

	for i := range middle {
		if math.IsNaN(middle[i]) {
			continue
		}

		upper[i] = middle[i] + width*deviation[i]
		lower[i] = middle[i] - width*deviation[i]
	}

	return [][]float64{upper, middle, lower}, nil
}
