package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/risk"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// closeRequest is a strategy close waiting for the next bar's open.
type closeRequest struct {
	fraction   float64
	reason     types.ExitReason
	createdBar int
}

// BacktestTrading owns the cash, the single position and the pending orders of
// one run. It moves Flat -> PendingEntry -> Open -> Flat.
type BacktestTrading struct {
	config     BacktestEngineV1Config
	sizer      risk.Sizer
	commission commission_fee.CommissionFee
	events     *EventLog
	logger     *logger.Logger

	cash         decimal.Decimal
	position     *types.Position
	pending      *types.Order
	pendingClose *closeRequest
	trades       []types.Trade
	newID        func() string
}

// NewBacktestTrading creates a flat account holding config.InitialCash.
func NewBacktestTrading(config BacktestEngineV1Config, events *EventLog, log *logger.Logger) *BacktestTrading {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if events == nil {
		events = NewEventLog(log)
	}

	return &BacktestTrading{
		config:       config,
		sizer:        config.Sizer(),
		commission:   commission_fee.GetCommissionFeeHandler(config.CommissionRate),
		events:       events,
		logger:       log,
		cash:         decimal.NewFromFloat(config.InitialCash),
		position:     nil,
		pending:      nil,
		pendingClose: nil,
		trades:       nil,
		newID:        func() string { return uuid.New().String() },
	}
}

// Cash returns the current cash balance.
func (b *BacktestTrading) Cash() float64 {
	return b.cash.InexactFloat64()
}

// Equity is cash plus the signed position marked at price. It is computed from
// the reported Cash and PositionSize so that equity == cash + size*price holds
// exactly for every reported point.
func (b *BacktestTrading) Equity(price float64) float64 {
	// the conversion keeps the product from being fused into the addition
	return b.Cash() + float64(b.PositionSize()*price)
}

// PositionSize is the signed size of the open position, 0 when flat.
func (b *BacktestTrading) PositionSize() float64 {
	if b.position == nil {
		return 0
	}

	return b.position.Size
}

// Position returns a snapshot of the open position.
func (b *BacktestTrading) Position() optional.Option[types.Position] {
	if b.position == nil {
		return optional.None[types.Position]()
	}

	return optional.Some(*b.position)
}

// Pending returns a snapshot of the pending entry order.
func (b *BacktestTrading) Pending() optional.Option[types.Order] {
	if b.pending == nil {
		return optional.None[types.Order]()
	}

	return optional.Some(*b.pending)
}

// Trades returns the closed trades in exit order.
func (b *BacktestTrading) Trades() []types.Trade {
	trades := make([]types.Trade, len(b.trades))
	copy(trades, b.trades)

	return trades
}

// FillPending executes orders queued on an earlier bar against bar i.
// Market orders fill at the open; limit and stop orders only once triggered.
func (b *BacktestTrading) FillPending(i int, bar types.Bar) {
	if b.pendingClose != nil && b.pendingClose.createdBar < i {
		request := *b.pendingClose
		b.pendingClose = nil

		if b.position != nil {
			b.closePosition(request.fraction, bar.Open, i, bar.Time, request.reason)
		}
	}

	if b.pending == nil || b.pending.CreatedBar >= i {
		return
	}

	price, ok := b.pending.Triggered(bar)
	if !ok {
		return
	}

	order := *b.pending
	b.pending = nil
	b.fill(order, price, i, bar.Time)
}

// Settle closes the position when bar reaches its stop-loss or take-profit.
// A position is never settled against the bar it was entered on.
func (b *BacktestTrading) Settle(i int, bar types.Bar) {
	if b.position == nil || b.position.EntryBar >= i {
		return
	}

	exit, ok := resolveExit(*b.position, bar, b.config.StopTargetTieBreak)
	if !ok {
		return
	}

	b.closePosition(1, exit.price, i, bar.Time, exit.reason)
}

// UpdateTrailing ratchets a trailing stop after settlement.
func (b *BacktestTrading) UpdateTrailing(i int, bar types.Bar) {
	if b.position == nil || b.position.EntryBar >= i {
		return
	}

	stop, moved := trailStop(*b.position, bar)
	if !moved {
		return
	}

	b.position.StopLoss = stop
	b.events.Emit(types.Event{
		Kind:      types.EventStopUpdate,
		Bar:       i,
		Time:      bar.Time,
		Direction: b.position.Direction,
		Price:     stop.Unwrap(),
		Size:      b.position.AbsSize(),
		Reason:    "trail",
		Message:   "",
		RefID:     "",
	})
}

// TimeExit closes the position at the close once it was held MaxHoldingBars bars.
func (b *BacktestTrading) TimeExit(i int, bar types.Bar) {
	if b.position == nil || b.config.MaxHoldingBars <= 0 {
		return
	}

	if i-b.position.EntryBar < b.config.MaxHoldingBars {
		return
	}

	b.closePosition(1, bar.Close, i, bar.Time, types.ExitReasonTime)
}

// Apply carries out the intent decided on bar i. Trading problems such as a
// lack of cash are reported as events; only an invalid intent is returned.
func (b *BacktestTrading) Apply(i int, bar types.Bar, intent types.Intent) error {
	if err := intent.Validate(); err != nil {
		return err
	}

	switch intent.Kind {
	case types.IntentEnterLong, types.IntentEnterShort:
		b.enter(i, bar, intent)
	case types.IntentClose:
		b.close(i, bar, intent)
	case types.IntentModifyStop:
		b.modify(i, bar, intent)
	}

	return nil
}

func (b *BacktestTrading) enter(i int, bar types.Bar, intent types.Intent) {
	direction := intent.Direction()

	if b.position != nil {
		if b.position.Direction == direction {
			b.reject(i, bar.Time, direction, types.RejectReasonSameDirection, "a position in the same direction is already open")

			return
		}

		if b.config.OpposingOrderPolicy != OpposingCloseAndReverse {
			b.reject(i, bar.Time, direction, types.RejectReasonOpposing, "entry against the open position")

			return
		}
	}

	if b.pending != nil {
		b.cancelPending(i, bar.Time, "replaced")
	}

	order := types.OrderFromIntent(b.newID(), intent, i)

	if b.config.FillTiming == FillOnClose && order.Kind == types.OrderKindMarket {
		b.fill(order, bar.Close, i, bar.Time)

		return
	}

	b.pending = &order
	b.events.Emit(types.Event{
		Kind:      types.EventOrderQueued,
		Bar:       i,
		Time:      bar.Time,
		Direction: order.Direction,
		Price:     order.Price.TakeOr(0),
		Size:      order.Size.TakeOr(0),
		Reason:    string(order.Kind),
		Message:   order.Tag,
		RefID:     order.ID,
	})
}

func (b *BacktestTrading) close(i int, bar types.Bar, intent types.Intent) {
	if b.pending != nil {
		b.cancelPending(i, bar.Time, "closed")
	}

	if b.position == nil {
		b.logger.Debug("Close without an open position", zap.Int("bar", i))

		return
	}

	if b.config.FillTiming == FillOnClose {
		b.closePosition(intent.Fraction, bar.Close, i, bar.Time, intent.Reason)

		return
	}

	b.pendingClose = &closeRequest{fraction: intent.Fraction, reason: intent.Reason, createdBar: i}
}

func (b *BacktestTrading) modify(i int, bar types.Bar, intent types.Intent) {
	if b.position == nil {
		b.reject(i, bar.Time, "", types.RejectReasonNoPosition, "modify_stop without an open position")

		return
	}

	if intent.StopLoss.IsSome() {
		b.position.StopLoss = intent.StopLoss
	}

	if intent.TakeProfit.IsSome() {
		b.position.TakeProfit = intent.TakeProfit
	}

	if intent.TrailDistance.IsSome() {
		b.position.TrailDistance = intent.TrailDistance
	}

	b.events.Emit(types.Event{
		Kind:      types.EventStopUpdate,
		Bar:       i,
		Time:      bar.Time,
		Direction: b.position.Direction,
		Price:     b.position.StopLoss.TakeOr(0),
		Size:      b.position.AbsSize(),
		Reason:    "modify",
		Message:   intent.Tag,
		RefID:     "",
	})
}

// fill opens a position for order at price. An open opposing position is
// closed first.
func (b *BacktestTrading) fill(order types.Order, price float64, i int, t time.Time) {
	if b.position != nil {
		if b.position.Direction == order.Direction || b.config.OpposingOrderPolicy != OpposingCloseAndReverse {
			b.reject(i, t, order.Direction, types.RejectReasonOpposing, "position still open when the order filled")

			return
		}

		b.closePosition(1, price, i, t, types.ExitReasonSignal)
	}

	if order.StopLoss.IsSome() && !stopOnProtectiveSide(order.Direction, order.StopLoss.Unwrap(), price) {
		b.reject(i, t, order.Direction, types.RejectReasonInvalidLevel, "stop-loss is not on the protective side of the fill price")

		return
	}

	size, ok := b.entrySize(order, price, i, t)
	if !ok {
		return
	}

	commission := decimal.NewFromFloat(b.commission.Calculate(price, size))
	value := decimal.NewFromFloat(size).Mul(decimal.NewFromFloat(price))

	if value.Add(commission).GreaterThan(b.cash) {
		b.reject(i, t, order.Direction, types.RejectReasonInsufficientCash,
			errors.Newf(errors.ErrCodeInsufficientCash, "order needs %s but only %s cash is available", value.Add(commission).StringFixed(2), b.cash.StringFixed(2)).Error())

		return
	}

	signed := size * order.Direction.Sign()
	b.cash = b.cash.Sub(decimal.NewFromFloat(signed).Mul(decimal.NewFromFloat(price))).Sub(commission)

	stopLoss := order.StopLoss
	if stopLoss.IsNone() && order.TrailDistance.IsSome() {
		stopLoss = optional.Some(price - order.Direction.Sign()*order.TrailDistance.Unwrap())
	}

	b.position = &types.Position{
		Direction:       order.Direction,
		Size:            signed,
		EntryPrice:      price,
		EntryBar:        i,
		EntryTime:       t,
		StopLoss:        stopLoss,
		TakeProfit:      order.TakeProfit,
		TrailDistance:   order.TrailDistance,
		EntryCommission: commission.InexactFloat64(),
		Tag:             order.Tag,
	}

	b.events.Emit(types.Event{
		Kind:      types.EventEntry,
		Bar:       i,
		Time:      t,
		Direction: order.Direction,
		Price:     price,
		Size:      size,
		Reason:    "",
		Message:   order.Tag,
		RefID:     order.ID,
	})
}

// entrySize resolves the size of an order filling at price. ok is false when
// no position should be opened.
func (b *BacktestTrading) entrySize(order types.Order, price float64, i int, t time.Time) (float64, bool) {
	if order.Size.IsSome() {
		size := b.sizer.Floor(order.Size.Unwrap())
		if size <= 0 {
			b.logger.Debug("Dropping zero size entry", zap.Int("bar", i), zap.String("order", order.ID))

			return 0, false
		}

		return size, true
	}

	if order.StopLoss.IsNone() {
		size := b.sizer.MaxAffordable(b.cash.InexactFloat64(), price, b.commission.Rate())
		if size <= 0 {
			b.riskSkip(i, t, order, types.RejectReasonZeroSize, "cash does not cover a single unit")

			return 0, false
		}

		return size, true
	}

	riskPct := order.RiskPct.TakeOr(b.config.RiskPct)
	equity := b.cash.InexactFloat64()

	size, err := b.sizer.Size(equity, riskPct, price, order.StopLoss.Unwrap(), equity, b.commission.Rate())
	if err != nil {
		b.riskSkip(i, t, order, types.RejectReasonInvalidRisk, err.Error())

		return 0, false
	}

	if size <= 0 {
		b.riskSkip(i, t, order, types.RejectReasonZeroSize, "risk budget rounds to zero units")

		return 0, false
	}

	return size, true
}

// closePosition closes fraction of the open position at price and records a trade.
func (b *BacktestTrading) closePosition(fraction float64, price float64, i int, t time.Time, reason types.ExitReason) {
	position := b.position
	absSize := position.AbsSize()

	size := absSize
	if fraction < 1 {
		size = b.sizer.FloorDecimal(decimal.NewFromFloat(absSize).Mul(decimal.NewFromFloat(fraction)))
		if size <= 0 {
			b.reject(i, t, position.Direction, types.RejectReasonZeroSize, "partial close rounds to zero units")

			return
		}

		if size > absSize {
			size = absSize
		}
	}

	full := size >= absSize
	sizeDec := decimal.NewFromFloat(size)

	entryShare := decimal.NewFromFloat(position.EntryCommission)
	if !full {
		entryShare = entryShare.Mul(sizeDec).Div(decimal.NewFromFloat(absSize))
	}

	exitCommission := decimal.NewFromFloat(b.commission.Calculate(price, size))
	signed := sizeDec.Mul(decimal.NewFromFloat(position.Direction.Sign()))
	b.cash = b.cash.Add(signed.Mul(decimal.NewFromFloat(price))).Sub(exitCommission)

	trade := types.Trade{
		ID:         b.newID(),
		Direction:  position.Direction,
		Size:       size,
		EntryPrice: position.EntryPrice,
		ExitPrice:  price,
		EntryBar:   position.EntryBar,
		ExitBar:    i,
		EntryTime:  position.EntryTime,
		ExitTime:   t,
		ExitReason: reason,
		PnL:        types.GrossPnL(position.Direction, size, position.EntryPrice, price),
		Commission: entryShare.Add(exitCommission).InexactFloat64(),
		Partial:    !full,
		Tag:        position.Tag,
	}
	b.trades = append(b.trades, trade)

	kind := types.EventExit

	switch {
	case reason == types.ExitReasonEndOfData:
		kind = types.EventForcedClose
	case !full:
		kind = types.EventPartialExit
	}

	b.events.Emit(types.Event{
		Kind:      kind,
		Bar:       i,
		Time:      t,
		Direction: position.Direction,
		Price:     price,
		Size:      size,
		Reason:    string(reason),
		Message:   position.Tag,
		RefID:     trade.ID,
	})

	if full {
		b.position = nil

		return
	}

	remaining := decimal.NewFromFloat(absSize).Sub(sizeDec)
	position.Size = remaining.Mul(decimal.NewFromFloat(position.Direction.Sign())).InexactFloat64()
	position.EntryCommission = decimal.NewFromFloat(position.EntryCommission).Sub(entryShare).InexactFloat64()
}

// Finish force-closes the open position at the final close and cancels
// everything still pending.
func (b *BacktestTrading) Finish(i int, bar types.Bar) {
	if b.pending != nil {
		b.cancelPending(i, bar.Time, string(types.ExitReasonEndOfData))
	}

	b.pendingClose = nil

	if b.position != nil {
		b.closePosition(1, bar.Close, i, bar.Time, types.ExitReasonEndOfData)
	}
}

func (b *BacktestTrading) cancelPending(i int, t time.Time, reason string) {
	order := *b.pending
	b.pending = nil

	b.events.Emit(types.Event{
		Kind:      types.EventOrderCancelled,
		Bar:       i,
		Time:      t,
		Direction: order.Direction,
		Price:     order.Price.TakeOr(0),
		Size:      order.Size.TakeOr(0),
		Reason:    reason,
		Message:   order.Tag,
		RefID:     order.ID,
	})
}

func (b *BacktestTrading) reject(i int, t time.Time, direction types.Direction, reason string, message string) {
	b.events.Emit(types.Event{
		Kind:      types.EventRejected,
		Bar:       i,
		Time:      t,
		Direction: direction,
		Price:     0,
		Size:      0,
		Reason:    reason,
		Message:   message,
		RefID:     "",
	})
}

func (b *BacktestTrading) riskSkip(i int, t time.Time, order types.Order, reason string, message string) {
	b.events.Emit(types.Event{
		Kind:      types.EventRiskSkip,
		Bar:       i,
		Time:      t,
		Direction: order.Direction,
		Price:     order.StopLoss.TakeOr(0),
		Size:      0,
		Reason:    reason,
		Message:   message,
		RefID:     order.ID,
	})
}

func stopOnProtectiveSide(direction types.Direction, stop float64, price float64) bool {
	if direction == types.DirectionShort {
		return stop > price
	}

	return stop < price
}
