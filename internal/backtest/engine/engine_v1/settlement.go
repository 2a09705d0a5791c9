package engine

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/types"
)

// exitFill is where and why a protective level closed a position.
type exitFill struct {
	price  float64
	reason types.ExitReason
}

// resolveExit checks the position's stop-loss and take-profit against bar.
// A level the bar opened through fills at the open. When the bar's range
// covers both levels tieBreak picks the one assumed to be touched first.
func resolveExit(position types.Position, bar types.Bar, tieBreak TieBreak) (exitFill, bool) {
	stop, stopHit := stopFill(position, bar)
	target, targetHit := targetFill(position, bar)

	switch {
	case stopHit && targetHit:
		return breakTie(position, bar, stop, target, tieBreak), true
	case stopHit:
		return stop, true
	case targetHit:
		return target, true
	default:
		return exitFill{}, false
	}
}

func stopFill(position types.Position, bar types.Bar) (exitFill, bool) {
	if position.StopLoss.IsNone() {
		return exitFill{}, false
	}

	level := position.StopLoss.Unwrap()

	if position.IsLong() {
		if bar.Low > level {
			return exitFill{}, false
		}

		return exitFill{price: math.Min(bar.Open, level), reason: types.ExitReasonStop}, true
	}

	if bar.High < level {
		return exitFill{}, false
	}

	return exitFill{price: math.Max(bar.Open, level), reason: types.ExitReasonStop}, true
}

func targetFill(position types.Position, bar types.Bar) (exitFill, bool) {
	if position.TakeProfit.IsNone() {
		return exitFill{}, false
	}

	level := position.TakeProfit.Unwrap()

	if position.IsLong() {
		if bar.High < level {
			return exitFill{}, false
		}

		return exitFill{price: math.Max(bar.Open, level), reason: types.ExitReasonTarget}, true
	}

	if bar.Low > level {
		return exitFill{}, false
	}

	return exitFill{price: math.Min(bar.Open, level), reason: types.ExitReasonTarget}, true
}

// breakTie orders two levels touched by the same bar. A level the bar opened
// through was hit first whatever the policy.
func breakTie(position types.Position, bar types.Bar, stop, target exitFill, tieBreak TieBreak) exitFill {
	stopLevel := position.StopLoss.Unwrap()
	targetLevel := position.TakeProfit.Unwrap()

	if position.IsLong() {
		if bar.Open <= stopLevel {
			return stop
		}

		if bar.Open >= targetLevel {
			return target
		}
	} else {
		if bar.Open >= stopLevel {
			return stop
		}

		if bar.Open <= targetLevel {
			return target
		}
	}

	switch tieBreak {
	case TieBreakTargetFirst:
		return target
	case TieBreakProportional:
		if math.Abs(bar.Open-targetLevel) < math.Abs(bar.Open-stopLevel) {
			return target
		}

		return stop
	default:
		return stop
	}
}

// trailStop returns the stop-loss after ratcheting it behind bar's extreme.
// The stop never moves against the position.
func trailStop(position types.Position, bar types.Bar) (optional.Option[float64], bool) {
	if position.TrailDistance.IsNone() {
		return position.StopLoss, false
	}

	distance := position.TrailDistance.Unwrap()

	if position.IsLong() {
		candidate := bar.High - distance
		if position.StopLoss.IsSome() && position.StopLoss.Unwrap() >= candidate {
			return position.StopLoss, false
		}

		return optional.Some(candidate), true
	}

	candidate := bar.Low + distance
	if position.StopLoss.IsSome() && position.StopLoss.Unwrap() <= candidate {
		return position.StopLoss, false
	}

	return optional.Some(candidate), true
}
