package strategy

import (
	"github.com/rxtech-lab/argo-sim/internal/indicator"
	"github.com/rxtech-lab/argo-sim/internal/types"
)

const BollingerReversionName = "bollinger_reversion"

type BollingerReversionConfig struct {
	// Source is the banded column: close or an extra numeric column.
	Source  string  `yaml:"source" json:"source" validate:"required" jsonschema:"title=Source Column,default=close"`
	Period  int     `yaml:"period" json:"period" validate:"gte=2" jsonschema:"title=Bollinger Period,default=20"`
	StdDev  float64 `yaml:"std_dev" json:"std_dev" validate:"gt=0" jsonschema:"title=Bollinger Width,default=2"`
	StopPct float64 `yaml:"stop_pct" json:"stop_pct" validate:"gt=0,lt=1" jsonschema:"title=Stop Loss Percent,default=0.05"`
	// AllowShort enables fading closes above the upper band.
	AllowShort bool `yaml:"allow_short" json:"allow_short" jsonschema:"title=Allow Short,default=true"`
}

// BollingerReversion buys below the lower band, sells short above the upper
// band and exits at the middle band.
type BollingerReversion struct {
	config BollingerReversionConfig
	upper  indicator.Handle
	middle indicator.Handle
	lower  indicator.Handle
}

func NewBollingerReversion() *BollingerReversion {
	return &BollingerReversion{config: defaultBollingerReversionConfig()}
}

func defaultBollingerReversionConfig() BollingerReversionConfig {
	return BollingerReversionConfig{
		Source:     types.ColumnClose,
		Period:     20,
		StdDev:     2,
		StopPct:    0.05,
		AllowShort: true,
	}
}

func (s *BollingerReversion) Name() string {
	return BollingerReversionName
}

func (s *BollingerReversion) Setup(ind *indicator.Engine, params Params) error {
	// parameters never carry over between runs
	s.config = defaultBollingerReversionConfig()
	if err := params.Decode(&s.config); err != nil {
		return err
	}

	upper, err := ind.Register(indicator.Spec{
		Name:   "bands",
		Kind:   types.IndicatorKindBollingerBands,
		Inputs: []string{s.config.Source},
		Params: indicator.Params{"period": float64(s.config.Period), "std_dev": s.config.StdDev},
	})
	if err != nil {
		return err
	}

	s.upper = upper

	if s.middle, err = upper.Output(1); err != nil {
		return err
	}

	if s.lower, err = upper.Output(2); err != nil {
		return err
	}

	return nil
}

func (s *BollingerReversion) Decide(state State) (types.Intent, error) {
	value, err := state.Bars.Value(s.config.Source)
	if err != nil {
		return types.NoOp(), err
	}

	upper, err := s.upper.Current()
	if err != nil {
		return types.NoOp(), err
	}

	middle, err := s.middle.Current()
	if err != nil {
		return types.NoOp(), err
	}

	lower, err := s.lower.Current()
	if err != nil {
		return types.NoOp(), err
	}

	if state.Position.IsSome() {
		position := state.Position.Unwrap()
		if (position.IsLong() && value >= middle) || (position.IsShort() && value <= middle) {
			return types.Close(1), nil
		}

		return types.NoOp(), nil
	}

	if state.Pending.IsSome() {
		return types.NoOp(), nil
	}

	price := state.Bar.Close
	// band targets are only prices when the bands are drawn on the close
	targetIsPrice := s.config.Source == types.ColumnClose

	switch {
	case value < lower:
		opts := []types.IntentOption{types.WithStopLoss(price * (1 - s.config.StopPct)), types.WithTag("below_lower_band")}
		if targetIsPrice {
			opts = append(opts, types.WithTakeProfit(middle))
		}

		return types.EnterLong(opts...), nil
	case value > upper && s.config.AllowShort:
		opts := []types.IntentOption{types.WithStopLoss(price * (1 + s.config.StopPct)), types.WithTag("above_upper_band")}
		if targetIsPrice {
			opts = append(opts, types.WithTakeProfit(middle))
		}

		return types.EnterShort(opts...), nil
	}

	return types.NoOp(), nil
}
