package strategy

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/indicator"
	"github.com/rxtech-lab/argo-sim/internal/series"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Strategy is the decision callback of a run. Setup is called once before the
// first bar to register indicators; Decide is called once per bar after warm-up.
type Strategy interface {
	// Name returns the name of the strategy
	Name() string
	Setup(ind *indicator.Engine, params Params) error
	Decide(state State) (types.Intent, error)
}

// State is the point-in-time view handed to Decide. Nothing in it can reach a
// bar after Index.
type State struct {
	Index int
	Time  time.Time
	// Bar is the bar being decided on.
	Bar        types.Bar
	Bars       series.View
	Indicators *indicator.Engine
	Position   optional.Option[types.Position]
	Pending    optional.Option[types.Order]
	Equity     float64
	Cash       float64
}

// IsFlat reports whether there is neither an open position nor a pending entry.
func (s State) IsFlat() bool {
	return s.Position.IsNone() && s.Pending.IsNone()
}

// HoldingBars is the number of bars since the open position was entered, or 0.
func (s State) HoldingBars() int {
	if s.Position.IsNone() {
		return 0
	}

	return s.Index - s.Position.Unwrap().EntryBar
}

// Params are the user supplied strategy parameters, usually from YAML.
type Params map[string]any

// Decode fills out with params (matched by yaml tag) and validates it.
// Fields not present in params keep their current values.
func (p Params) Decode(out any) error {
	if len(p) > 0 {
		data, err := yaml.Marshal(map[string]any(p))
		if err != nil {
			return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to encode strategy parameters", err)
		}

		if err := yaml.Unmarshal(data, out); err != nil {
			return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to decode strategy parameters", err)
		}
	}

	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid strategy parameters", err)
	}

	return nil
}

// With returns a copy of p overridden by other.
func (p Params) With(other Params) Params {
	merged := make(Params, len(p)+len(other))
	for k, v := range p {
		merged[k] = v
	}

	for k, v := range other {
		merged[k] = v
	}

	return merged
}
