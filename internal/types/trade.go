package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

type ExitReason string

const (
	ExitReasonStop      ExitReason = "stop"
	ExitReasonTarget    ExitReason = "target"
	ExitReasonSignal    ExitReason = "signal"
	ExitReasonTime      ExitReason = "time"
	ExitReasonEndOfData ExitReason = "end_of_data"
)

type Trade struct {
	ID         string     `yaml:"id" json:"id" csv:"id"`
	Direction  Direction  `yaml:"direction" json:"direction" csv:"direction"`
	Size       float64    `yaml:"size" json:"size" csv:"size"`
	EntryPrice float64    `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	ExitPrice  float64    `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	EntryBar   int        `yaml:"entry_bar" json:"entry_bar" csv:"entry_bar"`
	ExitBar    int        `yaml:"exit_bar" json:"exit_bar" csv:"exit_bar"`
	EntryTime  time.Time  `yaml:"entry_time" json:"entry_time" csv:"entry_time"`
	ExitTime   time.Time  `yaml:"exit_time" json:"exit_time" csv:"exit_time"`
	ExitReason ExitReason `yaml:"exit_reason" json:"exit_reason" csv:"exit_reason"`
	// PnL is the gross profit and loss: size * (exit - entry), sign flipped for shorts.
	PnL float64 `yaml:"pnl" json:"pnl" csv:"pnl"`
	// Commission is the entry commission share plus the exit commission of this trade.
	Commission float64 `yaml:"commission" json:"commission" csv:"commission"`
	// Partial is true when the trade closed only part of the position.
	Partial bool   `yaml:"partial" json:"partial" csv:"partial"`
	Tag     string `yaml:"tag" json:"tag" csv:"tag"`
}

// GrossPnL computes size * (exit - entry) for the direction using decimal arithmetic.
func GrossPnL(direction Direction, size, entry, exit float64) float64 {
	diff := decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(entry))
	if direction == DirectionShort {
		diff = diff.Neg()
	}

	pnl, _ := diff.Mul(decimal.NewFromFloat(size)).Float64()

	return pnl
}

// NetPnL is the PnL after commissions.
func (t Trade) NetPnL() float64 {
	net, _ := decimal.NewFromFloat(t.PnL).Sub(decimal.NewFromFloat(t.Commission)).Float64()

	return net
}

// ReturnPct is the net return relative to the entry value, in percent.
func (t Trade) ReturnPct() float64 {
	value := t.Size * t.EntryPrice
	if value == 0 {
		return 0
	}

	return t.NetPnL() / value * 100
}

// HoldingBars is the number of bars between entry and exit.
func (t Trade) HoldingBars() int {
	return t.ExitBar - t.EntryBar
}

// Position is a read-only snapshot of the open position.
type Position struct {
	Direction Direction `yaml:"direction" json:"direction"`
	// Size is signed: positive for long, negative for short.
	Size          float64                  `yaml:"size" json:"size"`
	EntryPrice    float64                  `yaml:"entry_price" json:"entry_price"`
	EntryBar      int                      `yaml:"entry_bar" json:"entry_bar"`
	EntryTime     time.Time                `yaml:"entry_time" json:"entry_time"`
	StopLoss      optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit    optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
	TrailDistance optional.Option[float64] `yaml:"trail_distance" json:"trail_distance"`
	// EntryCommission is the commission paid for the part of the position still open.
	EntryCommission float64 `yaml:"entry_commission" json:"entry_commission"`
	Tag             string  `yaml:"tag" json:"tag"`
}

func (p Position) IsLong() bool {
	return p.Direction == DirectionLong
}

func (p Position) IsShort() bool {
	return p.Direction == DirectionShort
}

// AbsSize returns the unsigned position size.
func (p Position) AbsSize() float64 {
	if p.Size < 0 {
		return -p.Size
	}

	return p.Size
}

// UnrealizedPnL is the gross PnL if the position were closed at price.
func (p Position) UnrealizedPnL(price float64) float64 {
	return GrossPnL(p.Direction, p.AbsSize(), p.EntryPrice, price)
}
