package types

import (
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

type Direction string

type OrderKind string

type IntentKind string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

const (
	OrderKindMarket OrderKind = "MARKET"
	OrderKindLimit  OrderKind = "LIMIT"
	OrderKindStop   OrderKind = "STOP"
)

const (
	IntentNoOp       IntentKind = "noop"
	IntentEnterLong  IntentKind = "enter_long"
	IntentEnterShort IntentKind = "enter_short"
	IntentClose      IntentKind = "close"
	IntentModifyStop IntentKind = "modify_stop"
)

// Sign returns +1 for long and -1 for short.
func (d Direction) Sign() float64 {
	if d == DirectionShort {
		return -1
	}

	return 1
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == DirectionShort {
		return DirectionLong
	}

	return DirectionShort
}

// Intent is the single decision a strategy emits for a bar.
// Build it with NoOp, EnterLong, EnterShort, Close, CloseWithReason or ModifyStop.
type Intent struct {
	Kind IntentKind `yaml:"kind" json:"kind" validate:"required,oneof=noop enter_long enter_short close modify_stop"`
	// OrderKind applies to entries only. Empty means MARKET.
	OrderKind OrderKind `yaml:"order_kind" json:"order_kind" validate:"omitempty,oneof=MARKET LIMIT STOP"`
	// Price is the trigger price of a LIMIT or STOP entry.
	Price optional.Option[float64] `yaml:"price" json:"price"`
	// Size overrides risk based sizing when set.
	Size optional.Option[float64] `yaml:"size" json:"size"`
	// RiskPct overrides the engine's default risk per trade when set.
	RiskPct optional.Option[float64] `yaml:"risk_pct" json:"risk_pct"`
	// StopLoss is the protective stop level.
	StopLoss optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	// TakeProfit is the target level.
	TakeProfit optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
	// TrailDistance enables a trailing stop at this absolute price distance.
	TrailDistance optional.Option[float64] `yaml:"trail_distance" json:"trail_distance"`
	// Fraction of the open size to close, in (0, 1]. Close intents only.
	Fraction float64 `yaml:"fraction" json:"fraction" validate:"gte=0,lte=1"`
	// Reason labels a close. Empty means signal.
	Reason ExitReason `yaml:"reason" json:"reason" validate:"omitempty,oneof=signal time"`
	// Tag is a free-form label carried into events.
	Tag string `yaml:"tag" json:"tag"`
}

// IntentOption customizes an entry or modify-stop intent.
type IntentOption func(*Intent)

// NoOp is the "do nothing this bar" intent.
func NoOp() Intent {
	return Intent{Kind: IntentNoOp}
}

// EnterLong requests a long entry.
func EnterLong(opts ...IntentOption) Intent {
	return newEntry(IntentEnterLong, opts)
}

// EnterShort requests a short entry.
func EnterShort(opts ...IntentOption) Intent {
	return newEntry(IntentEnterShort, opts)
}

func newEntry(kind IntentKind, opts []IntentOption) Intent {
	intent := Intent{Kind: kind, OrderKind: OrderKindMarket}
	for _, opt := range opts {
		opt(&intent)
	}

	return intent
}

// Close closes the given fraction of the open position. fraction >= 1 closes it fully.
func Close(fraction float64) Intent {
	return CloseWithReason(fraction, ExitReasonSignal)
}

// CloseWithReason closes a fraction of the position and labels the resulting trade.
func CloseWithReason(fraction float64, reason ExitReason) Intent {
	if fraction > 1 {
		fraction = 1
	}

	return Intent{Kind: IntentClose, Fraction: fraction, Reason: reason}
}

// ModifyStop moves the stop-loss of the open position. Options may also change
// the take-profit or trailing distance.
func ModifyStop(stop float64, opts ...IntentOption) Intent {
	intent := Intent{Kind: IntentModifyStop, StopLoss: optional.Some(stop)}
	for _, opt := range opts {
		opt(&intent)
	}

	return intent
}

// ModifyLevels changes any of stop-loss, take-profit or trailing distance.
func ModifyLevels(opts ...IntentOption) Intent {
	intent := Intent{Kind: IntentModifyStop}
	for _, opt := range opts {
		opt(&intent)
	}

	return intent
}

func WithStopLoss(price float64) IntentOption {
	return func(i *Intent) { i.StopLoss = optional.Some(price) }
}

func WithTakeProfit(price float64) IntentOption {
	return func(i *Intent) { i.TakeProfit = optional.Some(price) }
}

func WithTrail(distance float64) IntentOption {
	return func(i *Intent) { i.TrailDistance = optional.Some(distance) }
}

func WithSize(size float64) IntentOption {
	return func(i *Intent) { i.Size = optional.Some(size) }
}

func WithRiskPct(pct float64) IntentOption {
	return func(i *Intent) { i.RiskPct = optional.Some(pct) }
}

func WithTag(tag string) IntentOption {
	return func(i *Intent) { i.Tag = tag }
}

// AsLimit turns an entry into a LIMIT order at price.
func AsLimit(price float64) IntentOption {
	return func(i *Intent) {
		i.OrderKind = OrderKindLimit
		i.Price = optional.Some(price)
	}
}

// AsStop turns an entry into a STOP order triggered at price.
func AsStop(price float64) IntentOption {
	return func(i *Intent) {
		i.OrderKind = OrderKindStop
		i.Price = optional.Some(price)
	}
}

// IsEntry reports whether the intent opens a position.
func (i Intent) IsEntry() bool {
	return i.Kind == IntentEnterLong || i.Kind == IntentEnterShort
}

// Direction returns the entry direction. Only meaningful for entries.
func (i Intent) Direction() Direction {
	if i.Kind == IntentEnterShort {
		return DirectionShort
	}

	return DirectionLong
}

// Validate checks the intent is internally consistent.
func (i *Intent) Validate() error {
	if i.Kind == "" {
		i.Kind = IntentNoOp
	}

	if err := validator.New().Struct(i); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidIntent, "invalid intent", err)
	}

	// an explicit zero size is a valid "no trade" and is dropped by the engine
	if i.Size.IsSome() {
		size := i.Size.Unwrap()
		if math.IsNaN(size) || math.IsInf(size, 0) || size < 0 {
			return errors.Newf(errors.ErrCodeInvalidIntent, "size must not be negative, got %v", size)
		}
	}

	for name, value := range map[string]optional.Option[float64]{
		"price":          i.Price,
		"stop_loss":      i.StopLoss,
		"take_profit":    i.TakeProfit,
		"trail_distance": i.TrailDistance,
	} {
		if value.IsSome() && !(value.Unwrap() > 0) {
			return errors.Newf(errors.ErrCodeInvalidIntent, "%s must be a positive number, got %v", name, value.Unwrap())
		}
	}

	if i.RiskPct.IsSome() {
		pct := i.RiskPct.Unwrap()
		if math.IsNaN(pct) || pct <= 0 || pct > 1 {
			return errors.Newf(errors.ErrCodeInvalidIntent, "risk_pct must be in (0, 1], got %v", pct)
		}
	}

	switch i.Kind {
	case IntentEnterLong, IntentEnterShort:
		if i.OrderKind == "" {
			i.OrderKind = OrderKindMarket
		}

		if i.OrderKind != OrderKindMarket && i.Price.IsNone() {
			return errors.Newf(errors.ErrCodeInvalidIntent, "%s entry requires a trigger price", i.OrderKind)
		}
	case IntentClose:
		if i.Fraction <= 0 {
			return errors.Newf(errors.ErrCodeInvalidIntent, "close fraction must be in (0, 1], got %v", i.Fraction)
		}

		if i.Reason == "" {
			i.Reason = ExitReasonSignal
		}
	case IntentModifyStop:
		if i.StopLoss.IsNone() && i.TakeProfit.IsNone() && i.TrailDistance.IsNone() {
			return errors.New(errors.ErrCodeInvalidIntent, "modify_stop requires a stop, target or trail distance")
		}
	}

	return nil
}

// Order is a queued entry waiting for its fill point.
type Order struct {
	ID            string                   `yaml:"id" json:"id"`
	Direction     Direction                `yaml:"direction" json:"direction"`
	Kind          OrderKind                `yaml:"kind" json:"kind"`
	Price         optional.Option[float64] `yaml:"price" json:"price"`
	Size          optional.Option[float64] `yaml:"size" json:"size"`
	RiskPct       optional.Option[float64] `yaml:"risk_pct" json:"risk_pct"`
	StopLoss      optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit    optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
	TrailDistance optional.Option[float64] `yaml:"trail_distance" json:"trail_distance"`
	// CreatedBar is the bar whose decision produced this order.
	CreatedBar int    `yaml:"created_bar" json:"created_bar"`
	Tag        string `yaml:"tag" json:"tag"`
}

// OrderFromIntent converts an entry intent into a pending order.
func OrderFromIntent(id string, intent Intent, bar int) Order {
	kind := intent.OrderKind
	if kind == "" {
		kind = OrderKindMarket
	}

	return Order{
		ID:            id,
		Direction:     intent.Direction(),
		Kind:          kind,
		Price:         intent.Price,
		Size:          intent.Size,
		RiskPct:       intent.RiskPct,
		StopLoss:      intent.StopLoss,
		TakeProfit:    intent.TakeProfit,
		TrailDistance: intent.TrailDistance,
		CreatedBar:    bar,
		Tag:           intent.Tag,
	}
}

// Triggered reports whether the order can fill within bar and at which price.
// Market orders always fill at the bar's open.
func (o Order) Triggered(bar Bar) (price float64, ok bool) {
	switch o.Kind {
	case OrderKindLimit:
		limit := o.Price.Unwrap()
		if o.Direction == DirectionLong {
			if bar.Low <= limit {
				return math.Min(bar.Open, limit), true
			}

			return 0, false
		}

		if bar.High >= limit {
			return math.Max(bar.Open, limit), true
		}

		return 0, false
	case OrderKindStop:
		trigger := o.Price.Unwrap()
		if o.Direction == DirectionLong {
			if bar.High >= trigger {
				return math.Max(bar.Open, trigger), true
			}

			return 0, false
		}

		if bar.Low <= trigger {
			return math.Min(bar.Open, trigger), true
		}

		return 0, false
	default:
		return bar.Open, true
	}
}
