package indicator

import (
	"math"
	"sort"
)

// SMA is the simple moving average of one input over "period" bars.
func SMA(inputs [][]float64, params Params) ([][]float64, error) {
	if err := requireInputs("sma", inputs, 1); err != nil {
		return nil, err
	}

	period, err := params.Period("period", 20)
	if err != nil {
		return nil, err
	}

	return [][]float64{rolling(inputs[0], period, mean)}, nil
}

// StdDev is the rolling population standard deviation over "period" bars.
func StdDev(inputs [][]float64, params Params) ([][]float64, error) {
	if err := requireInputs("stddev", inputs, 1); err != nil {
		return nil, err
	}

	period, err := params.Period("period", 20)
	if err != nil {
		return nil, err
	}

	return [][]float64{rolling(inputs[0], period, stdDev)}, nil
}

// Highest is the rolling maximum over "period" bars.
func Highest(inputs [][]float64, params Params) ([][]float64, error) {
	if err := requireInputs("highest", inputs, 1); err != nil {
		return nil, err
	}

	period, err := params.Period("period", 20)
	if err != nil {
		return nil, err
	}

	return [][]float64{rolling(inputs[0], period, func(window []float64) float64 {
		highest := window[0]
		for _, v := range window[1:] {
			highest = math.Max(highest, v)
		}

		return highest
	})}, nil
}

// Lowest is the rolling minimum over "period" bars.
func Lowest(inputs [][]float64, params Params) ([][]float64, error) {
	if err := requireInputs("lowest", inputs, 1); err != nil {
		return nil, err
	}

	period, err := params.Period("period", 20)
	if err != nil {
		return nil, err
	}

	return [][]float64{rolling(inputs[0], period, func(window []float64) float64 {
		lowest := window[0]
		for _, v := range window[1:] {
			lowest = math.Min(lowest, v)
		}

		return lowest
	})}, nil
}

// Median is the rolling median over "period" bars.
func Median(inputs [][]float64, params Params) ([][]float64, error) {
	if err := requireInputs("median", inputs, 1); err != nil {
		return nil, err
	}

	period, err := params.Period("period", 20)
	if err != nil {
		return nil, err
	}

	return [][]float64{rolling(inputs[0], period, func(window []float64) float64 {
		sorted := make([]float64, len(window))
		copy(sorted, window)
		sort.Float64s(sorted)

		mid := len(sorted) / 2
		if len(sorted)%2 == 1 {
			return sorted[mid]
		}

		return (sorted[mid-1] + sorted[mid]) / 2
	})}, nil
}

// ROC is the rate of change in percent against the value "period" bars ago.
func ROC(inputs [][]float64, params Params) ([][]float64, error) {
	if err := requireInputs("roc", inputs, 1); err != nil {
		return nil, err
	}

	period, err := params.Period("period", 10)
	if err != nil {
		return nil, err
	}

	values := inputs[0]
	out := nanSeries(len(values))

	for i := period; i < len(values); i++ {
		prev := values[i-period]
		if math.IsNaN(prev) || math.IsNaN(values[i]) || prev == 0 {
			continue
		}

		out[i] = (values[i]/prev - 1) * 100
	}

	return [][]float64{out}, nil
}

func mean(window []float64) float64 {
	sum := 0.0
	for _, v := range window {
		sum += v
	}

	return sum / float64(len(window))
}

func stdDev(window []float64) float64 {
	avg := mean(window)

	squaredDiffSum := 0.0
	for _, v := range window {
		diff := v - avg
		squaredDiffSum += diff * diff
	}

	return math.Sqrt(squaredDiffSum / float64(len(window)))
}
