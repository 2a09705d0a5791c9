package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// Handle is a typed, cursor-bound reference to one indicator output.
// Reads beyond the cursor fail with a look-ahead violation.
type Handle struct {
	engine *Engine
	name   string
	output int
}

// Name returns the indicator name.
func (h Handle) Name() string {
	return h.name
}

// Output returns a handle to output k of the same indicator.
func (h Handle) Output(k int) (Handle, error) {
	entry, err := h.entry()
	if err != nil {
		return Handle{}, err
	}

	if k < 0 || k >= len(entry.spec.Outputs) {
		return Handle{}, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %q has no output %d", h.name, k)
	}

	return Handle{engine: h.engine, name: h.name, output: k}, nil
}

// At returns the value at bar i. Values before the warm-up fail with an
// IndicatorNotReady error.
func (h Handle) At(i int) (float64, error) {
	values, err := h.values()
	if err != nil {
		return math.NaN(), err
	}

	if err := h.engine.cursor.Check("indicator "+h.name, i); err != nil {
		return math.NaN(), err
	}

	if i < 0 || i >= len(values) {
		return math.NaN(), errors.Newf(errors.ErrCodeDataOutOfRange, "indicator %q index %d out of range [0, %d)", h.name, i, len(values))
	}

	if math.IsNaN(values[i]) {
		return math.NaN(), errors.Newf(errors.ErrCodeIndicatorNotReady, "indicator %q is not defined at bar %d", h.name, i)
	}

	return values[i], nil
}

// Current returns the value at the cursor.
func (h Handle) Current() (float64, error) {
	return h.At(h.engine.cursor.Position())
}

// Ago returns the value k bars before the cursor. Negative k reads the future.
func (h Handle) Ago(k int) (float64, error) {
	if k < 0 {
		position := h.engine.cursor.Position()
		return math.NaN(), errors.LookaheadError("indicator "+h.name, position-k, position)
	}

	return h.At(h.engine.cursor.Position() - k)
}

// Window returns the last n values ending at bar i, clipped at the series start.
// Undefined values are returned as NaN.
func (h Handle) Window(i, n int) ([]float64, error) {
	values, err := h.values()
	if err != nil {
		return nil, err
	}

	if err := h.engine.cursor.Check("indicator "+h.name, i); err != nil {
		return nil, err
	}

	if i < 0 || i >= len(values) {
		return nil, errors.Newf(errors.ErrCodeDataOutOfRange, "indicator %q index %d out of range [0, %d)", h.name, i, len(values))
	}

	if n <= 0 {
		return []float64{}, nil
	}

	start := max(i-n+1, 0)
	window := make([]float64, i+1-start)
	copy(window, values[start:i+1])

	return window, nil
}

// Ready reports whether the value at the cursor is defined.
func (h Handle) Ready() bool {
	_, err := h.Current()

	return err == nil
}

func (h Handle) entry() (*computed, error) {
	if h.engine == nil {
		return nil, errors.New(errors.ErrCodeIndicatorNotFound, "indicator handle is not bound to an engine")
	}

	entry, ok := h.engine.byName[h.name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %q not found", h.name)
	}

	return entry, nil
}

func (h Handle) values() ([]float64, error) {
	entry, err := h.entry()
	if err != nil {
		return nil, err
	}

	if !h.engine.sealed {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotComputed, "indicator %q is read before the run started", h.name)
	}

	return entry.outputs[h.output], nil
}
