package engine

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// BacktestTradingTestSuite is a test suite for BacktestTrading
type BacktestTradingTestSuite struct {
	suite.Suite
	logger *logger.Logger
	config BacktestEngineV1Config
	events *EventLog
}

func TestBacktestTradingTestSuite(t *testing.T) {
	suite.Run(t, new(BacktestTradingTestSuite))
}

func (suite *BacktestTradingTestSuite) SetupSuite() {
	suite.logger = logger.NewNopLogger()
}

func (suite *BacktestTradingTestSuite) SetupTest() {
	suite.config = DefaultConfig()
	suite.events = NewEventLog(suite.logger)
}

func (suite *BacktestTradingTestSuite) newTrading() *BacktestTrading {
	return NewBacktestTrading(suite.config, suite.events, suite.logger)
}

func barAt(i int, open, high, low, closePrice float64) types.Bar {
	return types.Bar{
		Time:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: 1000,
	}
}

func flatBar(i int, price float64) types.Bar {
	return barAt(i, price, price+0.5, price-0.5, price)
}

func (suite *BacktestTradingTestSuite) lastEvent() types.Event {
	events := suite.events.Events()
	suite.Require().NotEmpty(events)

	return events[len(events)-1]
}

func (suite *BacktestTradingTestSuite) TestMarketEntryFillsAtNextOpen() {
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(10))))
	suite.True(trading.Pending().IsSome())
	suite.True(trading.Position().IsNone())
	suite.Equal(types.EventOrderQueued, suite.lastEvent().Kind)

	// never on the decision bar itself
	trading.FillPending(0, flatBar(0, 100))
	suite.True(trading.Pending().IsSome())

	trading.FillPending(1, barAt(1, 101, 102, 100, 101.5))
	suite.True(trading.Pending().IsNone())
	suite.Require().True(trading.Position().IsSome())

	position := trading.Position().Unwrap()
	suite.Equal(10.0, position.Size)
	suite.Equal(101.0, position.EntryPrice)
	suite.Equal(1, position.EntryBar)
	suite.InDelta(8990.0, trading.Cash(), 1e-9)
	suite.InDelta(10005.0, trading.Equity(101.5), 1e-9)
}

func (suite *BacktestTradingTestSuite) TestCashRoundTripWithCommission() {
	suite.config.FillTiming = FillOnClose
	suite.config.CommissionRate = 0.001
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(10))))
	suite.InDelta(8999.0, trading.Cash(), 1e-9)

	suite.NoError(trading.Apply(1, flatBar(1, 110), types.Close(1)))
	suite.True(trading.Position().IsNone())

	trades := trading.Trades()
	suite.Require().Len(trades, 1)
	suite.Equal(100.0, trades[0].PnL)
	suite.InDelta(2.1, trades[0].Commission, 1e-9)
	suite.Equal(types.ExitReasonSignal, trades[0].ExitReason)
	suite.False(trades[0].Partial)

	suite.InDelta(10097.9, trading.Cash(), 1e-9)
	suite.InDelta(suite.config.InitialCash+trades[0].NetPnL(), trading.Cash(), 1e-9)
}

func (suite *BacktestTradingTestSuite) TestPartialClose() {
	suite.config.FillTiming = FillOnClose
	suite.config.CommissionRate = 0.001
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(10))))
	suite.NoError(trading.Apply(1, flatBar(1, 110), types.Close(0.5)))

	suite.Equal(types.EventPartialExit, suite.lastEvent().Kind)

	position := trading.Position().Unwrap()
	suite.Equal(5.0, position.Size)
	suite.InDelta(0.5, position.EntryCommission, 1e-9)

	suite.NoError(trading.Apply(2, flatBar(2, 120), types.Close(1)))
	suite.True(trading.Position().IsNone())

	trades := trading.Trades()
	suite.Require().Len(trades, 2)
	suite.True(trades[0].Partial)
	suite.Equal(5.0, trades[0].Size)
	suite.InDelta(1.05, trades[0].Commission, 1e-9)
	suite.False(trades[1].Partial)
	suite.InDelta(1.1, trades[1].Commission, 1e-9)

	net := trades[0].NetPnL() + trades[1].NetPnL()
	suite.InDelta(147.85, net, 1e-9)
	suite.InDelta(suite.config.InitialCash+net, trading.Cash(), 1e-9)
}

func (suite *BacktestTradingTestSuite) TestPartialCloseFractionIsNotUnderstated() {
	suite.config.FillTiming = FillOnClose
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 10), types.EnterLong(types.WithSize(100))))
	suite.NoError(trading.Apply(1, flatBar(1, 10), types.Close(0.29)))
	suite.Equal(71.0, trading.PositionSize())

	suite.NoError(trading.Apply(2, flatBar(2, 10), types.Close(0.57)))

	trades := trading.Trades()
	suite.Require().Len(trades, 2)
	suite.Equal(29.0, trades[0].Size)
	suite.True(trades[0].Partial)
	// 71 * 0.57 = 40.47
	suite.Equal(40.0, trades[1].Size)
	suite.Equal(31.0, trading.PositionSize())
}

func (suite *BacktestTradingTestSuite) TestPartialCloseRoundingToZeroIsRejected() {
	suite.config.FillTiming = FillOnClose
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(1))))
	suite.NoError(trading.Apply(1, flatBar(1, 101), types.Close(0.5)))

	event := suite.lastEvent()
	suite.Equal(types.EventRejected, event.Kind)
	suite.Equal(types.RejectReasonZeroSize, event.Reason)
	suite.Equal(1.0, trading.PositionSize())
	suite.Empty(trading.Trades())
}

func (suite *BacktestTradingTestSuite) TestSameDirectionEntryIsRejected() {
	suite.config.FillTiming = FillOnClose
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(10))))
	suite.NoError(trading.Apply(1, flatBar(1, 101), types.EnterLong(types.WithSize(5))))

	event := suite.lastEvent()
	suite.Equal(types.EventRejected, event.Kind)
	suite.Equal(types.RejectReasonSameDirection, event.Reason)
	suite.Equal(10.0, trading.PositionSize())
}

func (suite *BacktestTradingTestSuite) TestOpposingEntryIsRejected() {
	suite.config.FillTiming = FillOnClose
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(10))))
	suite.NoError(trading.Apply(1, flatBar(1, 101), types.EnterShort(types.WithSize(10))))

	suite.Equal(types.RejectReasonOpposing, suite.lastEvent().Reason)
	suite.Equal(10.0, trading.PositionSize())
	suite.Equal(1, suite.events.Count(types.EventRejected))
}

func (suite *BacktestTradingTestSuite) TestCloseAndReverse() {
	suite.config.FillTiming = FillOnClose
	suite.config.OpposingOrderPolicy = OpposingCloseAndReverse
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(10))))
	suite.NoError(trading.Apply(1, flatBar(1, 105), types.EnterShort(types.WithSize(5))))

	trades := trading.Trades()
	suite.Require().Len(trades, 1)
	suite.Equal(50.0, trades[0].PnL)
	suite.Equal(types.ExitReasonSignal, trades[0].ExitReason)

	position := trading.Position().Unwrap()
	suite.True(position.IsShort())
	suite.Equal(-5.0, position.Size)
	suite.Equal(105.0, position.EntryPrice)
	suite.InDelta(10575.0, trading.Cash(), 1e-9)
	suite.InDelta(10050.0, trading.Equity(105), 1e-9)
}

func (suite *BacktestTradingTestSuite) TestInsufficientCash() {
	suite.config.FillTiming = FillOnClose
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(200))))

	event := suite.lastEvent()
	suite.Equal(types.EventRejected, event.Kind)
	suite.Equal(types.RejectReasonInsufficientCash, event.Reason)
	suite.True(trading.Position().IsNone())
	suite.Equal(10000.0, trading.Cash())
}

func (suite *BacktestTradingTestSuite) TestStopOnWrongSideIsRejected() {
	suite.config.FillTiming = FillOnClose
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithStopLoss(105))))
	suite.Equal(types.RejectReasonInvalidLevel, suite.lastEvent().Reason)

	suite.NoError(trading.Apply(1, flatBar(1, 100), types.EnterShort(types.WithStopLoss(95))))
	suite.Equal(types.RejectReasonInvalidLevel, suite.lastEvent().Reason)
	suite.True(trading.Position().IsNone())
}

func (suite *BacktestTradingTestSuite) TestZeroSizeIsDropped() {
	suite.config.FillTiming = FillOnClose
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(0.4))))
	suite.NoError(trading.Apply(1, flatBar(1, 100), types.EnterLong(types.WithSize(0))))

	suite.True(trading.Position().IsNone())
	suite.Equal(0, suite.events.Count(types.EventEntry))
	suite.Equal(0, suite.events.Count(types.EventRejected))
}

func (suite *BacktestTradingTestSuite) TestRiskBasedSizing() {
	suite.config.FillTiming = FillOnClose
	trading := suite.newTrading()

	// 1% of 10000 over a distance of 2
	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithStopLoss(98))))
	suite.Equal(50.0, trading.PositionSize())
	suite.Equal(98.0, trading.Position().Unwrap().StopLoss.Unwrap())
}

func (suite *BacktestTradingTestSuite) TestRiskPctOverride() {
	suite.config.FillTiming = FillOnClose
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithStopLoss(98), types.WithRiskPct(0.02))))
	suite.Equal(100.0, trading.PositionSize())
}

func (suite *BacktestTradingTestSuite) TestUnstoppedEntryUsesAllCash() {
	suite.config.FillTiming = FillOnClose
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong()))
	suite.Equal(100.0, trading.PositionSize())
	suite.InDelta(0.0, trading.Cash(), 1e-9)
}

func (suite *BacktestTradingTestSuite) TestRiskSkipWhenCashCoversNothing() {
	suite.config.FillTiming = FillOnClose
	suite.config.InitialCash = 50
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong()))

	event := suite.lastEvent()
	suite.Equal(types.EventRiskSkip, event.Kind)
	suite.Equal(types.RejectReasonZeroSize, event.Reason)
	suite.True(trading.Position().IsNone())
}

func (suite *BacktestTradingTestSuite) TestPendingOrderIsReplacedAndCancelled() {
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(1), types.AsLimit(95))))
	suite.NoError(trading.Apply(1, flatBar(1, 100), types.EnterLong(types.WithSize(1), types.AsLimit(96))))

	events := suite.events.Events()
	suite.Require().Len(events, 3)
	suite.Equal(types.EventOrderCancelled, events[1].Kind)
	suite.Equal("replaced", events[1].Reason)
	suite.Equal(96.0, trading.Pending().Unwrap().Price.Unwrap())

	suite.NoError(trading.Apply(2, flatBar(2, 100), types.Close(1)))
	suite.True(trading.Pending().IsNone())
	suite.Equal("closed", suite.lastEvent().Reason)
}

func (suite *BacktestTradingTestSuite) TestLimitEntryWaitsForTrigger() {
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(1), types.AsLimit(95))))

	trading.FillPending(1, barAt(1, 100, 101, 96, 97))
	suite.True(trading.Position().IsNone())

	trading.FillPending(2, barAt(2, 97, 98, 94, 96))
	suite.Equal(95.0, trading.Position().Unwrap().EntryPrice)
}

func (suite *BacktestTradingTestSuite) TestCloseQueuedUntilNextOpen() {
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(2))))
	trading.FillPending(1, flatBar(1, 100))
	suite.NoError(trading.Apply(1, flatBar(1, 100), types.Close(1)))
	suite.Equal(2.0, trading.PositionSize())

	trading.FillPending(2, barAt(2, 103, 104, 102, 103))
	suite.True(trading.Position().IsNone())
	suite.Equal(103.0, trading.Trades()[0].ExitPrice)
}

func (suite *BacktestTradingTestSuite) TestCloseWhileFlatIsIgnored() {
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.Close(1)))
	suite.Empty(suite.events.Events())
}

func (suite *BacktestTradingTestSuite) TestNoSettlementOnEntryBar() {
	suite.config.FillTiming = FillOnClose
	trading := suite.newTrading()

	entryBar := barAt(0, 100, 101, 90, 100)
	suite.NoError(trading.Apply(0, entryBar, types.EnterLong(types.WithSize(1), types.WithStopLoss(95))))

	trading.Settle(0, entryBar)
	suite.True(trading.Position().IsSome())

	trading.Settle(1, barAt(1, 100, 101, 94, 96))
	suite.True(trading.Position().IsNone())
	suite.Equal(types.ExitReasonStop, trading.Trades()[0].ExitReason)
	suite.Equal(95.0, trading.Trades()[0].ExitPrice)
}

func (suite *BacktestTradingTestSuite) TestTrailingStopSetAtFill() {
	suite.config.FillTiming = FillOnClose
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(1), types.WithTrail(2))))
	suite.Equal(98.0, trading.Position().Unwrap().StopLoss.Unwrap())

	trading.UpdateTrailing(1, barAt(1, 100, 105, 99, 104))
	suite.Equal(103.0, trading.Position().Unwrap().StopLoss.Unwrap())
	suite.Equal(types.EventStopUpdate, suite.lastEvent().Kind)
}

func (suite *BacktestTradingTestSuite) TestTimeExit() {
	suite.config.FillTiming = FillOnClose
	suite.config.MaxHoldingBars = 2
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(1))))

	trading.TimeExit(1, flatBar(1, 101))
	suite.True(trading.Position().IsSome())

	trading.TimeExit(2, flatBar(2, 102))
	suite.True(trading.Position().IsNone())
	suite.Equal(types.ExitReasonTime, trading.Trades()[0].ExitReason)
	suite.Equal(102.0, trading.Trades()[0].ExitPrice)
}

func (suite *BacktestTradingTestSuite) TestFinish() {
	suite.config.FillTiming = FillOnClose
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(1))))
	suite.NoError(trading.Apply(1, flatBar(1, 100), types.ModifyStop(90)))

	trading.Finish(2, flatBar(2, 110))

	suite.True(trading.Position().IsNone())
	suite.Equal(types.EventForcedClose, suite.lastEvent().Kind)
	suite.Equal(types.ExitReasonEndOfData, trading.Trades()[0].ExitReason)
	suite.InDelta(10010.0, trading.Cash(), 1e-9)
}

func (suite *BacktestTradingTestSuite) TestFinishCancelsPendingEntry() {
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(1))))
	trading.Finish(0, flatBar(0, 100))

	suite.True(trading.Pending().IsNone())
	suite.Equal(types.EventOrderCancelled, suite.lastEvent().Kind)
	suite.Equal(string(types.ExitReasonEndOfData), suite.lastEvent().Reason)
}

func (suite *BacktestTradingTestSuite) TestModifyStop() {
	suite.config.FillTiming = FillOnClose
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.ModifyStop(90)))
	suite.Equal(types.RejectReasonNoPosition, suite.lastEvent().Reason)

	suite.NoError(trading.Apply(1, flatBar(1, 100), types.EnterLong(types.WithSize(1), types.WithStopLoss(95))))
	suite.NoError(trading.Apply(2, flatBar(2, 100), types.ModifyStop(97, types.WithTakeProfit(120))))

	position := trading.Position().Unwrap()
	suite.Equal(97.0, position.StopLoss.Unwrap())
	suite.Equal(120.0, position.TakeProfit.Unwrap())
	suite.Equal(types.EventStopUpdate, suite.lastEvent().Kind)
	suite.Equal("modify", suite.lastEvent().Reason)
}

func (suite *BacktestTradingTestSuite) TestInvalidIntentIsReturned() {
	trading := suite.newTrading()

	err := trading.Apply(0, flatBar(0, 100), types.Intent{Kind: types.IntentClose, Fraction: 0})
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidIntent))

	err = trading.Apply(0, flatBar(0, 100), types.EnterLong(types.WithSize(-1)))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidIntent))
}

func (suite *BacktestTradingTestSuite) TestShortRoundTrip() {
	suite.config.FillTiming = FillOnClose
	trading := suite.newTrading()

	suite.NoError(trading.Apply(0, flatBar(0, 100), types.EnterShort(types.WithSize(10), types.WithStopLoss(105))))
	suite.Equal(-10.0, trading.PositionSize())
	suite.InDelta(11000.0, trading.Cash(), 1e-9)
	suite.InDelta(10000.0, trading.Equity(100), 1e-9)

	trading.Settle(1, barAt(1, 100, 106, 99, 104))

	trades := trading.Trades()
	suite.Require().Len(trades, 1)
	suite.Equal(-50.0, trades[0].PnL)
	suite.InDelta(9950.0, trading.Cash(), 1e-9)
}
