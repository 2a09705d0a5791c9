package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// MACD returns the MACD line (fast EMA minus slow EMA), its signal EMA and the histogram.
func MACD(inputs [][]float64, params Params) ([][]float64, error) {
	if err := requireInputs("macd", inputs, 1); err != nil {
		return nil, err
	}

	fast, err := params.Period("fast", 12)
	if err != nil {
		return nil, err
	}

	slow, err := params.Period("slow", 26)
	if err != nil {
		return nil, err
	}

	signalPeriod, err := params.Period("signal", 9)
	if err != nil {
		return nil, err
	}

	if fast >= slow {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "macd fast period %d must be below slow period %d", fast, slow)
	}

	fastEMA := ema(inputs[0], fast)
	slowEMA := ema(inputs[0], slow)

	line := nanSeries(len(fastEMA))
	for i := range line {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			line[i] = fastEMA[i] - slowEMA[i]
		}
	}

	signal := ema(line, signalPeriod)

	histogram := nanSeries(len(line))
	for i := range histogram {
		if !math.IsNaN(signal[i]) {
			histogram[i] = line[i] - signal[i]
		}
	}

	return [][]float64{line, signal, histogram}, nil
}
