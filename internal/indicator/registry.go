package indicator

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// Definition is a catalog entry: a function plus its default wiring.
type Definition struct {
	Kind    types.IndicatorKind
	Func    Func
	Inputs  []string
	Outputs []string
	Params  Params
}

// Registry is the catalog of indicator functions available to runs.
// It is safe for concurrent use; sweeps share one registry between engines.
type Registry struct {
	definitions map[types.IndicatorKind]Definition
	mu          sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		definitions: make(map[types.IndicatorKind]Definition),
		mu:          sync.RWMutex{},
	}
}

// DefaultRegistry creates a registry holding the built-in catalog.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	for _, def := range []Definition{
		{Kind: types.IndicatorKindSMA, Func: SMA, Inputs: []string{types.ColumnClose}, Outputs: []string{"value"}, Params: Params{"period": 20}},
		{Kind: types.IndicatorKindEMA, Func: EMA, Inputs: []string{types.ColumnClose}, Outputs: []string{"value"}, Params: Params{"period": 20}},
		{Kind: types.IndicatorKindRSI, Func: RSI, Inputs: []string{types.ColumnClose}, Outputs: []string{"value"}, Params: Params{"period": 14}},
		{
			Kind:    types.IndicatorKindATR,
			Func:    ATR,
			Inputs:  []string{types.ColumnHigh, types.ColumnLow, types.ColumnClose},
			Outputs: []string{"value"},
			Params:  Params{"period": 14},
		},
		{Kind: types.IndicatorKindStdDev, Func: StdDev, Inputs: []string{types.ColumnClose}, Outputs: []string{"value"}, Params: Params{"period": 20}},
		{
			Kind:    types.IndicatorKindBollingerBands,
			Func:    BollingerBands,
			Inputs:  []string{types.ColumnClose},
			Outputs: []string{"upper", "middle", "lower"},
			Params:  Params{"period": 20, "std_dev": 2},
		},
		{
			Kind:    types.IndicatorKindMACD,
			Func:    MACD,
			Inputs:  []string{types.ColumnClose},
			Outputs: []string{"macd", "signal", "histogram"},
			Params:  Params{"fast": 12, "slow": 26, "signal": 9},
		},
		{Kind: types.IndicatorKindHighest, Func: Highest, Inputs: []string{types.ColumnHigh}, Outputs: []string{"value"}, Params: Params{"period": 20}},
		{Kind: types.IndicatorKindLowest, Func: Lowest, Inputs: []string{types.ColumnLow}, Outputs: []string{"value"}, Params: Params{"period": 20}},
		{Kind: types.IndicatorKindMedian, Func: Median, Inputs: []string{types.ColumnClose}, Outputs: []string{"value"}, Params: Params{"period": 20}},
		{Kind: types.IndicatorKindROC, Func: ROC, Inputs: []string{types.ColumnClose}, Outputs: []string{"value"}, Params: Params{"period": 10}},
	} {
		// the built-in kinds are unique
		_ = r.Register(def)
	}

	return r
}

// Register adds a definition to the registry.
func (r *Registry) Register(def Definition) error {
	if def.Kind == "" || def.Func == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "indicator definition requires a kind and a function")
	}

	if len(def.Outputs) == 0 {
		return errors.Newf(errors.ErrCodeInvalidOutputs, "indicator %s declares no outputs", def.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[def.Kind]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator %s already registered", def.Kind)
	}

	r.definitions[def.Kind] = def

	return nil
}

// Get retrieves a definition by kind.
func (r *Registry) Get(kind types.IndicatorKind) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.definitions[kind]
	if !exists {
		return Definition{}, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %s not found", kind)
	}

	return def, nil
}

// List returns all registered kinds in sorted order.
func (r *Registry) List() []types.IndicatorKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]types.IndicatorKind, 0, len(r.definitions))
	for kind := range r.definitions {
		kinds = append(kinds, kind)
	}

	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	return kinds
}

// Remove removes a definition from the registry.
func (r *Registry) Remove(kind types.IndicatorKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[kind]; !exists {
		return errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %s not found", kind)
	}

	delete(r.definitions, kind)

	return nil
}
