package strategy

import (
	"github.com/rxtech-lab/argo-sim/internal/indicator"
	"github.com/rxtech-lab/argo-sim/internal/types"
)

const RSIDipName = "rsi_dip"

type RSIDipConfig struct {
	RSIPeriod  int     `yaml:"rsi_period" json:"rsi_period" validate:"gte=2" jsonschema:"title=RSI Period,default=14"`
	Oversold   float64 `yaml:"oversold" json:"oversold" validate:"gt=0,lt=100" jsonschema:"title=Oversold Threshold,default=30"`
	Overbought float64 `yaml:"overbought" json:"overbought" validate:"gt=0,lt=100,gtfield=Oversold" jsonschema:"title=Overbought Threshold,default=70"`
	// StopPct is the stop distance below the decision close, as a fraction.
	StopPct float64 `yaml:"stop_pct" json:"stop_pct" validate:"gt=0,lt=1" jsonschema:"title=Stop Loss Percent,default=0.02"`
	// TakeProfitPct adds a target above the decision close. Zero disables it.
	TakeProfitPct float64 `yaml:"take_profit_pct" json:"take_profit_pct" validate:"gte=0" jsonschema:"title=Take Profit Percent,default=0"`
	// MaxHoldingBars closes the position with reason "time". Zero disables it.
	MaxHoldingBars int `yaml:"max_holding_bars" json:"max_holding_bars" validate:"gte=0" jsonschema:"title=Max Holding Bars,default=0"`
}

// RSIDip buys when RSI drops below the oversold threshold and sells when it
// rises above the overbought threshold.
type RSIDip struct {
	config RSIDipConfig
	rsi    indicator.Handle
}

func NewRSIDip() *RSIDip {
	return &RSIDip{config: defaultRSIDipConfig()}
}

func defaultRSIDipConfig() RSIDipConfig {
	return RSIDipConfig{
		RSIPeriod:  14,
		Oversold:   30,
		Overbought: 70,
		StopPct:    0.02,
	}
}

func (s *RSIDip) Name() string {
	return RSIDipName
}

func (s *RSIDip) Setup(ind *indicator.Engine, params Params) error {
	// parameters never carry over between runs
	s.config = defaultRSIDipConfig()
	if err := params.Decode(&s.config); err != nil {
		return err
	}

	rsi, err := ind.Register(indicator.Spec{
		Name:   "rsi",
		Kind:   types.IndicatorKindRSI,
		Params: indicator.Params{"period": float64(s.config.RSIPeriod)},
	})
	if err != nil {
		return err
	}

	s.rsi = rsi

	return nil
}

func (s *RSIDip) Decide(state State) (types.Intent, error) {
	rsi, err := s.rsi.Current()
	if err != nil {
		return types.NoOp(), err
	}

	if state.Position.IsSome() {
		if rsi > s.config.Overbought {
			return types.Close(1), nil
		}

		if s.config.MaxHoldingBars > 0 && state.HoldingBars() >= s.config.MaxHoldingBars {
			return types.CloseWithReason(1, types.ExitReasonTime), nil
		}

		return types.NoOp(), nil
	}

	if state.Pending.IsNone() && rsi < s.config.Oversold {
		price := state.Bar.Close
		opts := []types.IntentOption{types.WithStopLoss(price * (1 - s.config.StopPct)), types.WithTag("rsi_oversold")}

		if s.config.TakeProfitPct > 0 {
			opts = append(opts, types.WithTakeProfit(price*(1+s.config.TakeProfitPct)))
		}

		return types.EnterLong(opts...), nil
	}

	return types.NoOp(), nil
}
