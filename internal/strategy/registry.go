package strategy

import (
	"sort"

	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// Descriptor describes a built-in strategy.
type Descriptor struct {
	Name        string
	Description string
	New         func() Strategy
	// Config is the zero configuration, used for the JSON schema.
	Config any
}

var builtins = map[string]Descriptor{
	RSIDipName: {
		Name:        RSIDipName,
		Description: "Buys RSI oversold dips with a fixed percentage stop and exits when RSI is overbought",
		New:         func() Strategy { return NewRSIDip() },
		Config:      RSIDipConfig{},
	},
	VolatilitySurgeName: {
		Name:        VolatilitySurgeName,
		Description: "Buys ATR expansions that close above the upper Bollinger band with a swing-low stop",
		New:         func() Strategy { return NewVolatilitySurge() },
		Config:      VolatilitySurgeConfig{},
	},
	BollingerReversionName: {
		Name:        BollingerReversionName,
		Description: "Fades closes outside the Bollinger bands and exits at the middle band",
		New:         func() Strategy { return NewBollingerReversion() },
		Config:      BollingerReversionConfig{},
	},
}

// New creates a built-in strategy by name.
func New(name string) (Strategy, error) {
	descriptor, ok := builtins[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %q not found", name)
	}

	return descriptor.New(), nil
}

// Describe returns the descriptor of a built-in strategy.
func Describe(name string) (Descriptor, error) {
	descriptor, ok := builtins[name]
	if !ok {
		return Descriptor{}, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %q not found", name)
	}

	return descriptor, nil
}

// Names lists the built-in strategies in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
