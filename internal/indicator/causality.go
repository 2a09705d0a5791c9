package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// CheckCausality recomputes every indicator on the first n bars for each n in
// prefixes and compares the result with the full-history values up to n-1.
// A difference means some indicator used future data.
func (e *Engine) CheckCausality(prefixes []int) error {
	if !e.sealed {
		return errors.New(errors.ErrCodeIndicatorNotComputed, "causality check requires computed indicators")
	}

	for _, n := range prefixes {
		if n <= 0 || n > e.store.Len() {
			continue
		}

		prefix, err := e.store.Slice(n)
		if err != nil {
			return err
		}

		recomputed := make(map[string][][]float64, len(e.indicators))

		for _, entry := range e.indicators {
			outputs, err := e.evaluate(prefix, entry, func(name string) ([]float64, error) {
				return e.input(prefix, name, recomputed)
			})
			if err != nil {
				return err
			}

			maskWarmUp(outputs)
			recomputed[entry.spec.Name] = outputs

			for k, output := range outputs {
				for i := 0; i < n; i++ {
					if !sameValue(output[i], entry.outputs[k][i]) {
						return errors.Newf(errors.ErrCodeLookaheadViolation,
							"indicator %q output %s at bar %d is %v on %d bars but %v on the full history",
							entry.spec.Name, entry.spec.Outputs[k], i, output[i], n, entry.outputs[k][i])
					}
				}
			}
		}
	}

	return nil
}

// SamplePrefixes returns up to count prefix lengths spread evenly over the
// bars after warmUp, always including the full length.
func SamplePrefixes(length, warmUp, count int) []int {
	if length <= 0 || count <= 0 {
		return nil
	}

	first := min(max(warmUp+1, 1), length)
	if count == 1 || first == length {
		return []int{length}
	}

	prefixes := make([]int, 0, count)
	step := float64(length-first) / float64(count-1)

	for k := 0; k < count; k++ {
		n := first + int(math.Round(step*float64(k)))
		if len(prefixes) == 0 || prefixes[len(prefixes)-1] != n {
			prefixes = append(prefixes, n)
		}
	}

	return prefixes
}

func sameValue(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}

	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}
