package strategy

import (
	"math"

	"github.com/rxtech-lab/argo-sim/internal/indicator"
	"github.com/rxtech-lab/argo-sim/internal/types"
)

const VolatilitySurgeName = "volatility_surge"

type VolatilitySurgeConfig struct {
	ATRPeriod    int     `yaml:"atr_period" json:"atr_period" validate:"gte=1" jsonschema:"title=ATR Period,default=14"`
	ATRSMAPeriod int     `yaml:"atr_sma_period" json:"atr_sma_period" validate:"gte=1" jsonschema:"title=ATR SMA Period,default=20"`
	BBPeriod     int     `yaml:"bb_period" json:"bb_period" validate:"gte=2" jsonschema:"title=Bollinger Period,default=20"`
	BBStdDev     float64 `yaml:"bb_std_dev" json:"bb_std_dev" validate:"gt=0" jsonschema:"title=Bollinger Width,default=2"`
	SwingPeriod  int     `yaml:"swing_period" json:"swing_period" validate:"gte=1" jsonschema:"title=Swing Low Period,default=20"`
	// RewardRatio places the target at this multiple of the initial risk.
	RewardRatio float64 `yaml:"reward_ratio" json:"reward_ratio" validate:"gte=0" jsonschema:"title=Reward Ratio,default=2"`
	// TrailATRMultiple trails the stop by this many ATRs. Zero disables trailing.
	TrailATRMultiple float64 `yaml:"trail_atr_multiple" json:"trail_atr_multiple" validate:"gte=0" jsonschema:"title=Trailing ATR Multiple,default=0"`
}

// VolatilitySurge enters long when ATR crosses above its average while the
// close breaks the upper Bollinger band. The stop sits at the lower of the
// swing low and the lower band.
type VolatilitySurge struct {
	config   VolatilitySurgeConfig
	atr      indicator.Handle
	atrSMA   indicator.Handle
	bbUpper  indicator.Handle
	bbLower  indicator.Handle
	swingLow indicator.Handle
}

func NewVolatilitySurge() *VolatilitySurge {
	return &VolatilitySurge{config: defaultVolatilitySurgeConfig()}
}

func defaultVolatilitySurgeConfig() VolatilitySurgeConfig {
	return VolatilitySurgeConfig{
		ATRPeriod:    14,
		ATRSMAPeriod: 20,
		BBPeriod:     20,
		BBStdDev:     2,
		SwingPeriod:  20,
		RewardRatio:  2,
	}
}

func (s *VolatilitySurge) Name() string {
	return VolatilitySurgeName
}

func (s *VolatilitySurge) Setup(ind *indicator.Engine, params Params) error {
	// parameters never carry over between runs
	s.config = defaultVolatilitySurgeConfig()
	if err := params.Decode(&s.config); err != nil {
		return err
	}

	var err error

	if s.atr, err = ind.Register(indicator.Spec{
		Name:   "atr",
		Kind:   types.IndicatorKindATR,
		Params: indicator.Params{"period": float64(s.config.ATRPeriod)},
	}); err != nil {
		return err
	}

	if s.atrSMA, err = ind.Register(indicator.Spec{
		Name:   "atr_sma",
		Kind:   types.IndicatorKindSMA,
		Inputs: []string{"atr"},
		Params: indicator.Params{"period": float64(s.config.ATRSMAPeriod)},
	}); err != nil {
		return err
	}

	if s.bbUpper, err = ind.Register(indicator.Spec{
		Name:   "bb",
		Kind:   types.IndicatorKindBollingerBands,
		Params: indicator.Params{"period": float64(s.config.BBPeriod), "std_dev": s.config.BBStdDev},
	}); err != nil {
		return err
	}

	if s.bbLower, err = ind.Get("bb.lower"); err != nil {
		return err
	}

	if s.swingLow, err = ind.Register(indicator.Spec{
		Name:   "swing_low",
		Kind:   types.IndicatorKindLowest,
		Params: indicator.Params{"period": float64(s.config.SwingPeriod)},
	}); err != nil {
		return err
	}

	return nil
}

func (s *VolatilitySurge) Decide(state State) (types.Intent, error) {
	if !state.IsFlat() {
		return types.NoOp(), nil
	}

	atr, err := s.atr.Current()
	if err != nil {
		return types.NoOp(), err
	}

	atrSMA, err := s.atrSMA.Current()
	if err != nil {
		return types.NoOp(), err
	}

	prevATR, err := s.atr.Ago(1)
	if err != nil {
		return types.NoOp(), err
	}

	prevATRSMA, err := s.atrSMA.Ago(1)
	if err != nil {
		return types.NoOp(), err
	}

	upper, err := s.bbUpper.Current()
	if err != nil {
		return types.NoOp(), err
	}

	crossed := prevATR < prevATRSMA && atr > atrSMA
	if !crossed || state.Bar.Close <= upper {
		return types.NoOp(), nil
	}

	lower, err := s.bbLower.Current()
	if err != nil {
		return types.NoOp(), err
	}

	swingLow, err := s.swingLow.Current()
	if err != nil {
		return types.NoOp(), err
	}

	stop := math.Min(swingLow, lower)
	opts := []types.IntentOption{types.WithStopLoss(stop), types.WithTag("volatility_surge")}

	if risk := state.Bar.Close - stop; risk > 0 && s.config.RewardRatio > 0 {
		opts = append(opts, types.WithTakeProfit(state.Bar.Close+s.config.RewardRatio*risk))
	}

	if s.config.TrailATRMultiple > 0 {
		opts = append(opts, types.WithTrail(atr*s.config.TrailATRMultiple))
	}

	return types.EnterLong(opts...), nil
}
