package engine

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/stretchr/testify/suite"
)

type SettlementTestSuite struct {
	suite.Suite
}

func TestSettlementSuite(t *testing.T) {
	suite.Run(t, new(SettlementTestSuite))
}

func ohlc(open, high, low, closePrice float64) types.Bar {
	return types.Bar{
		Time:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: 1000,
	}
}

func longPosition(stop, target float64) types.Position {
	return types.Position{
		Direction:  types.DirectionLong,
		Size:       10,
		EntryPrice: 100,
		StopLoss:   optional.Some(stop),
		TakeProfit: optional.Some(target),
	}
}

func shortPosition(stop, target float64) types.Position {
	return types.Position{
		Direction:  types.DirectionShort,
		Size:       -10,
		EntryPrice: 100,
		StopLoss:   optional.Some(stop),
		TakeProfit: optional.Some(target),
	}
}

func (suite *SettlementTestSuite) TestResolveExit() {
	tests := []struct {
		name     string
		position types.Position
		bar      types.Bar
		tieBreak TieBreak
		hit      bool
		price    float64
		reason   types.ExitReason
	}{
		{"long untouched", longPosition(95, 110), ohlc(100, 105, 96, 104), TieBreakStopFirst, false, 0, ""},
		{"long stop touched", longPosition(95, 110), ohlc(100, 101, 94, 96), TieBreakStopFirst, true, 95, types.ExitReasonStop},
		{"long gap through stop fills at open", longPosition(95, 110), ohlc(90, 92, 88, 91), TieBreakStopFirst, true, 90, types.ExitReasonStop},
		{"long target touched", longPosition(95, 110), ohlc(100, 111, 99, 108), TieBreakStopFirst, true, 110, types.ExitReasonTarget},
		{"long gap through target fills at open", longPosition(95, 110), ohlc(115, 116, 112, 113), TieBreakStopFirst, true, 115, types.ExitReasonTarget},
		{"long straddle stop first", longPosition(95, 110), ohlc(100, 111, 94, 100), TieBreakStopFirst, true, 95, types.ExitReasonStop},
		{"long straddle target first", longPosition(95, 110), ohlc(100, 111, 94, 100), TieBreakTargetFirst, true, 110, types.ExitReasonTarget},
		{"long straddle proportional nearer stop", longPosition(95, 110), ohlc(100, 111, 94, 100), TieBreakProportional, true, 95, types.ExitReasonStop},
		{"long straddle proportional nearer target", longPosition(95, 110), ohlc(108, 111, 94, 100), TieBreakProportional, true, 110, types.ExitReasonTarget},
		{"long straddle proportional equal distance", longPosition(95, 105), ohlc(100, 106, 94, 100), TieBreakProportional, true, 95, types.ExitReasonStop},
		{"long opened through stop beats target first", longPosition(95, 110), ohlc(94, 111, 93, 100), TieBreakTargetFirst, true, 94, types.ExitReasonStop},
		{"short stop touched", shortPosition(105, 90), ohlc(100, 106, 99, 104), TieBreakStopFirst, true, 105, types.ExitReasonStop},
		{"short target touched", shortPosition(105, 90), ohlc(100, 101, 89, 92), TieBreakStopFirst, true, 90, types.ExitReasonTarget},
		{"short gap through stop fills at open", shortPosition(105, 90), ohlc(108, 109, 107, 108), TieBreakStopFirst, true, 108, types.ExitReasonStop},
		{"short straddle stop first", shortPosition(105, 90), ohlc(100, 106, 89, 100), TieBreakStopFirst, true, 105, types.ExitReasonStop},
		{"short opened through target", shortPosition(105, 90), ohlc(89, 106, 88, 100), TieBreakStopFirst, true, 89, types.ExitReasonTarget},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			exit, hit := resolveExit(tc.position, tc.bar, tc.tieBreak)
			suite.Equal(tc.hit, hit)

			if tc.hit {
				suite.Equal(tc.price, exit.price)
				suite.Equal(tc.reason, exit.reason)
			}
		})
	}
}

func (suite *SettlementTestSuite) TestResolveExitWithoutLevels() {
	position := types.Position{Direction: types.DirectionLong, Size: 1, EntryPrice: 100}

	_, hit := resolveExit(position, ohlc(100, 200, 1, 100), TieBreakStopFirst)
	suite.False(hit)
}

func (suite *SettlementTestSuite) TestTrailStop() {
	long := types.Position{
		Direction:     types.DirectionLong,
		Size:          10,
		EntryPrice:    100,
		StopLoss:      optional.Some(95.0),
		TrailDistance: optional.Some(5.0),
	}

	stop, moved := trailStop(long, ohlc(100, 102, 99, 101))
	suite.True(moved)
	suite.Equal(97.0, stop.Unwrap())

	long.StopLoss = stop

	stop, moved = trailStop(long, ohlc(100, 99, 96, 98))
	suite.False(moved)
	suite.Equal(97.0, stop.Unwrap())

	short := types.Position{
		Direction:     types.DirectionShort,
		Size:          -10,
		EntryPrice:    100,
		StopLoss:      optional.Some(105.0),
		TrailDistance: optional.Some(5.0),
	}

	stop, moved = trailStop(short, ohlc(100, 101, 98, 99))
	suite.True(moved)
	suite.Equal(103.0, stop.Unwrap())

	short.StopLoss = stop

	_, moved = trailStop(short, ohlc(100, 104, 99, 103))
	suite.False(moved)
}

func (suite *SettlementTestSuite) TestTrailStopIsMonotonic() {
	position := types.Position{
		Direction:     types.DirectionLong,
		Size:          1,
		EntryPrice:    100,
		StopLoss:      optional.None[float64](),
		TrailDistance: optional.Some(2.0),
	}

	highs := []float64{101, 104, 103, 99, 106, 105}
	previous := 0.0

	for _, high := range highs {
		stop, _ := trailStop(position, ohlc(high-1, high, high-3, high-1))
		position.StopLoss = stop

		suite.GreaterOrEqual(stop.Unwrap(), previous)
		previous = stop.Unwrap()
	}

	suite.Equal(104.0, previous)
}

func (suite *SettlementTestSuite) TestTrailStopWithoutDistance() {
	position := longPosition(95, 110)

	stop, moved := trailStop(position, ohlc(100, 150, 99, 149))
	suite.False(moved)
	suite.Equal(95.0, stop.Unwrap())
}
