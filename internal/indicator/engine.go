package indicator

import (
	"math"
	"strconv"
	"strings"

	"github.com/rxtech-lab/argo-sim/internal/series"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// Engine holds the indicators of one run. Indicators are registered during
// strategy setup, computed once over the whole store by Compute and are
// read-only afterwards. Reads go through Handles bound to the run's cursor.
type Engine struct {
	registry *Registry
	store    *series.Store
	cursor   *series.Cursor

	indicators []*computed
	byName     map[string]*computed
	sealed     bool
	warmUp     int
}

type computed struct {
	spec    Spec
	fn      Func
	params  Params
	outputs [][]float64
	warmUp  int
}

// NewEngine creates an engine over store. cursor is the run's simulated "now".
func NewEngine(registry *Registry, store *series.Store, cursor *series.Cursor) *Engine {
	return &Engine{
		registry: registry,
		store:    store,
		cursor:   cursor,
		byName:   make(map[string]*computed),
	}
}

// Register declares an indicator and returns a handle to its first output.
// Inputs are resolved immediately: a missing column fails with a data error.
func (e *Engine) Register(spec Spec) (Handle, error) {
	if e.sealed {
		return Handle{}, errors.Newf(errors.ErrCodeIndicatorSealed, "cannot register %q: indicators are already computed", spec.Name)
	}

	if spec.Name == "" || strings.Contains(spec.Name, ".") {
		return Handle{}, errors.Newf(errors.ErrCodeInvalidParameter, "invalid indicator name %q", spec.Name)
	}

	if _, exists := e.byName[spec.Name]; exists {
		return Handle{}, errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator %q already registered", spec.Name)
	}

	if e.store.HasColumn(spec.Name) {
		return Handle{}, errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator %q shadows a data column", spec.Name)
	}

	entry, err := e.resolve(spec)
	if err != nil {
		return Handle{}, err
	}

	for _, input := range entry.spec.Inputs {
		if e.store.HasColumn(input) {
			continue
		}

		if _, _, err := e.lookup(input); err != nil {
			return Handle{}, errors.Wrapf(errors.ErrCodeDataMissingColumn, err, "indicator %q input %q is neither a column nor an earlier indicator", spec.Name, input)
		}
	}

	e.indicators = append(e.indicators, entry)
	e.byName[spec.Name] = entry

	return Handle{engine: e, name: spec.Name}, nil
}

func (e *Engine) resolve(spec Spec) (*computed, error) {
	entry := &computed{spec: spec, fn: spec.Func, params: Params{}.With(spec.Params)}

	if spec.Func == nil {
		if spec.Kind == "" {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "indicator %q needs a kind or a function", spec.Name)
		}

		def, err := e.registry.Get(spec.Kind)
		if err != nil {
			return nil, err
		}

		entry.fn = def.Func
		entry.params = def.Params.With(spec.Params)

		if len(entry.spec.Inputs) == 0 {
			entry.spec.Inputs = def.Inputs
		}

		if len(entry.spec.Outputs) == 0 {
			entry.spec.Outputs = def.Outputs
		}
	}

	if len(entry.spec.Inputs) == 0 {
		return nil, errors.Newf(errors.ErrCodeMissingParameter, "indicator %q has no inputs", spec.Name)
	}

	if len(entry.spec.Outputs) == 0 {
		entry.spec.Outputs = []string{"value"}
	}

	return entry, nil
}

// Compute evaluates every indicator over the full store in registration order
// and seals the engine.
func (e *Engine) Compute() error {
	if e.sealed {
		return errors.New(errors.ErrCodeIndicatorSealed, "indicators are already computed")
	}

	warmUp := 0

	for _, entry := range e.indicators {
		outputs, err := e.evaluate(e.store, entry, func(name string) ([]float64, error) {
			return e.input(e.store, name, nil)
		})
		if err != nil {
			return err
		}

		entry.outputs = outputs
		entry.warmUp = maskWarmUp(outputs)
		warmUp = max(warmUp, entry.warmUp)
	}

	e.warmUp = warmUp
	e.sealed = true

	return nil
}

func (e *Engine) evaluate(store *series.Store, entry *computed, input func(name string) ([]float64, error)) ([][]float64, error) {
	inputs := make([][]float64, len(entry.spec.Inputs))

	for i, name := range entry.spec.Inputs {
		values, err := input(name)
		if err != nil {
			return nil, err
		}

		inputs[i] = values
	}

	outputs, err := entry.fn(inputs, entry.params)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeIndicatorCalculation, err, "failed to compute indicator %q", entry.spec.Name)
	}

	if len(outputs) != len(entry.spec.Outputs) {
		return nil, errors.Newf(errors.ErrCodeInvalidOutputs, "indicator %q returned %d outputs, declared %d", entry.spec.Name, len(outputs), len(entry.spec.Outputs))
	}

	for k, output := range outputs {
		if len(output) != store.Len() {
			return nil, errors.Newf(errors.ErrCodeInvalidOutputs, "indicator %q output %s has %d values for %d bars",
				entry.spec.Name, entry.spec.Outputs[k], len(output), store.Len())
		}
	}

	return outputs, nil
}

// input returns a column or an indicator output. computedOutputs overrides the
// engine's results when recomputing on a prefix.
func (e *Engine) input(store *series.Store, name string, computedOutputs map[string][][]float64) ([]float64, error) {
	if store.HasColumn(name) {
		return store.Column(name)
	}

	entry, k, err := e.lookup(name)
	if err != nil {
		return nil, err
	}

	outputs := entry.outputs
	if computedOutputs != nil {
		outputs = computedOutputs[entry.spec.Name]
	}

	values := make([]float64, len(outputs[k]))
	copy(values, outputs[k])

	return values, nil
}

// lookup resolves "name", "name.k" or "name.output" to an indicator and output index.
func (e *Engine) lookup(ref string) (*computed, int, error) {
	name, output, hasOutput := strings.Cut(ref, ".")

	entry, ok := e.byName[name]
	if !ok {
		return nil, 0, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %q not found", name)
	}

	if !hasOutput {
		return entry, 0, nil
	}

	for k, outputName := range entry.spec.Outputs {
		if outputName == output {
			return entry, k, nil
		}
	}

	k, err := strconv.Atoi(output)
	if err != nil || k < 0 || k >= len(entry.spec.Outputs) {
		return nil, 0, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %q has no output %q", name, output)
	}

	return entry, k, nil
}

// maskWarmUp finds the first index where every output is defined and sets all
// outputs to NaN before it.
func maskWarmUp(outputs [][]float64) int {
	if len(outputs) == 0 {
		return 0
	}

	n := len(outputs[0])

	warmUp := n

	for i := 0; i < n; i++ {
		ready := true

		for _, output := range outputs {
			if math.IsNaN(output[i]) {
				ready = false
				break
			}
		}

		if ready {
			warmUp = i
			break
		}
	}

	for _, output := range outputs {
		for i := 0; i < warmUp; i++ {
			output[i] = math.NaN()
		}
	}

	return warmUp
}

// Get returns a handle to "name", "name.k" or "name.output".
func (e *Engine) Get(ref string) (Handle, error) {
	entry, k, err := e.lookup(ref)
	if err != nil {
		return Handle{}, err
	}

	return Handle{engine: e, name: entry.spec.Name, output: k}, nil
}

// Names lists the registered indicators in registration order.
func (e *Engine) Names() []string {
	names := make([]string, len(e.indicators))
	for i, entry := range e.indicators {
		names[i] = entry.spec.Name
	}

	return names
}

// Computed reports whether Compute has run.
func (e *Engine) Computed() bool {
	return e.sealed
}

// WarmUp is the first bar index at which every indicator is defined. It equals
// the number of bars when some indicator never becomes defined.
func (e *Engine) WarmUp() int {
	return e.warmUp
}

// WarmUpOf returns the warm-up length of one indicator.
func (e *Engine) WarmUpOf(name string) (int, error) {
	entry, _, err := e.lookup(name)
	if err != nil {
		return 0, err
	}

	return entry.warmUp, nil
}

// Ready reports whether every output of every indicator is defined at the cursor.
func (e *Engine) Ready() bool {
	i := e.cursor.Position()
	if !e.sealed || i < 0 {
		return false
	}

	for _, entry := range e.indicators {
		for _, output := range entry.outputs {
			if math.IsNaN(output[i]) {
				return false
			}
		}
	}

	return true
}
