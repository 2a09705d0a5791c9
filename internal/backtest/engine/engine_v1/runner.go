package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/indicator"
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/series"
	"github.com/rxtech-lab/argo-sim/internal/strategy"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"go.uber.org/zap"
)

// Result is everything one run produces.
type Result struct {
	Summary types.RunSummary
	Trades  []types.Trade
	Equity  []types.EquityPoint
	Events  []types.Event
}

// Runner executes a strategy over a store, one bar at a time. A Runner holds
// no per-run state and may start any number of runs, also concurrently.
type Runner struct {
	config      BacktestEngineV1Config
	registry    *indicator.Registry
	logger      *logger.Logger
	subscribers []EventSubscriber
	onProcess   func(current int, total int) error
}

type RunnerOption func(*Runner)

// WithLogger sets the logger. Runs are silent by default.
func WithLogger(log *logger.Logger) RunnerOption {
	return func(r *Runner) { r.logger = log }
}

// WithRegistry replaces the built-in indicator catalog.
func WithRegistry(registry *indicator.Registry) RunnerOption {
	return func(r *Runner) { r.registry = registry }
}

// WithEventSubscriber forwards every event of every run to subscriber.
func WithEventSubscriber(subscriber EventSubscriber) RunnerOption {
	return func(r *Runner) { r.subscribers = append(r.subscribers, subscriber) }
}

// WithProgress is called after every bar. Returning an error aborts the run.
func WithProgress(onProcess func(current int, total int) error) RunnerOption {
	return func(r *Runner) { r.onProcess = onProcess }
}

// NewRunner validates config and creates a runner.
func NewRunner(config BacktestEngineV1Config, opts ...RunnerOption) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		config:      config,
		registry:    indicator.DefaultRegistry(),
		logger:      logger.NewNopLogger(),
		subscribers: nil,
		onProcess:   nil,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Config returns the validated configuration.
func (r *Runner) Config() BacktestEngineV1Config {
	return r.config
}

// Run simulates strat over the configured time range of store. Context
// cancellation is checked between bars and discards the partial result.
func (r *Runner) Run(ctx context.Context, store *series.Store, strat strategy.Strategy, params strategy.Params) (Result, error) {
	return r.RunWithID(ctx, uuid.New().String(), store, strat, params)
}

// RunWithID is Run with a caller supplied run identifier.
func (r *Runner) RunWithID(ctx context.Context, runID string, store *series.Store, strat strategy.Strategy, params strategy.Params) (Result, error) {
	if strat == nil {
		return Result{}, errors.New(errors.ErrCodeBacktestNoStrategy, "no strategy to run")
	}

	if store == nil {
		return Result{}, errors.New(errors.ErrCodeBacktestNoData, "no data to run on")
	}

	store, err := store.Between(r.config.StartTime, r.config.EndTime)
	if err != nil {
		return Result{}, err
	}

	if err := store.Validate(); err != nil {
		return Result{}, err
	}

	cursor := series.NewCursor()
	indicators := indicator.NewEngine(r.registry, store, cursor)

	if err := strat.Setup(indicators, params); err != nil {
		return Result{}, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to set up strategy %s", strat.Name())
	}

	if err := indicators.Compute(); err != nil {
		return Result{}, err
	}

	warmUp := indicators.WarmUp()

	if r.config.LookaheadCheck {
		prefixes := indicator.SamplePrefixes(store.Len(), warmUp, r.config.lookaheadSamples())
		if err := indicators.CheckCausality(prefixes); err != nil {
			return Result{}, err
		}
	}

	log := &logger.Logger{Logger: r.logger.With(zap.String("run", runID), zap.String("strategy", strat.Name()))}
	events := NewEventLog(log, r.subscribers...)
	trading := NewBacktestTrading(r.config, events, log)
	view := series.NewView(store, cursor)
	equity := make([]types.EquityPoint, 0, store.Len())

	log.Debug("Starting run",
		zap.Int("bars", store.Len()),
		zap.Int("warm_up", warmUp),
		zap.String("fill_timing", string(r.config.FillTiming)),
	)

	last := store.Len() - 1

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		i := cursor.Advance()
		if i > last {
			break
		}

		bar, err := store.Bar(i)
		if err != nil {
			return Result{}, err
		}

		trading.FillPending(i, bar)
		trading.Settle(i, bar)
		trading.UpdateTrailing(i, bar)
		trading.TimeExit(i, bar)

		intent, err := r.decide(strat, i, bar, view, indicators, trading, warmUp)
		if err != nil {
			return Result{}, err
		}

		if intent.IsSome() {
			if err := trading.Apply(i, bar, intent.Unwrap()); err != nil {
				return Result{}, errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "strategy %s returned an invalid intent at bar %d", strat.Name(), i)
			}
		} else {
			events.Emit(types.Event{Kind: types.EventWarmupSkip, Bar: i, Time: bar.Time})
		}

		if i == last {
			trading.Finish(i, bar)
		}

		equity = append(equity, types.EquityPoint{
			Bar:          i,
			Time:         bar.Time,
			Cash:         trading.Cash(),
			PositionSize: trading.PositionSize(),
			Close:        bar.Close,
			Equity:       trading.Equity(bar.Close),
		})

		if r.onProcess != nil {
			if err := r.onProcess(i+1, store.Len()); err != nil {
				return Result{}, errors.Wrap(errors.ErrCodeCallbackFailed, "progress callback aborted the run", err)
			}
		}
	}

	trades := trading.Trades()

	summary := calculateSummary(r.config.InitialCash, equity, trades)
	summary.ID = runID
	summary.Strategy = strat.Name()
	summary.WarmUpBars = min(warmUp, store.Len())
	summary.RejectedOrders = events.Count(types.EventRejected)
	summary.SkippedBars = events.Count(types.EventWarmupSkip)

	log.Debug("Run finished",
		zap.Int("trades", len(trades)),
		zap.Float64("final_equity", summary.FinalEquity),
		zap.Float64("total_return_pct", summary.TotalReturnPct),
	)

	return Result{
		Summary: summary,
		Trades:  trades,
		Equity:  equity,
		Events:  events.Events(),
	}, nil
}

// decide calls the strategy once for bar i. None means the bar was skipped
// because some indicator is still warming up.
func (r *Runner) decide(
	strat strategy.Strategy,
	i int,
	bar types.Bar,
	view series.View,
	indicators *indicator.Engine,
	trading *BacktestTrading,
	warmUp int,
) (optional.Option[types.Intent], error) {
	if i < warmUp || !indicators.Ready() {
		return optional.None[types.Intent](), nil
	}

	state := strategy.State{
		Index:      i,
		Time:       bar.Time,
		Bar:        bar,
		Bars:       view,
		Indicators: indicators,
		Position:   trading.Position(),
		Pending:    trading.Pending(),
		Equity:     trading.Equity(bar.Close),
		Cash:       trading.Cash(),
	}

	intent, err := strat.Decide(state)
	if err != nil {
		if errors.IsIndicatorNotReady(err) {
			return optional.None[types.Intent](), nil
		}

		if errors.IsLookaheadViolation(err) || errors.IsDataError(err) {
			return optional.None[types.Intent](), err
		}

		return optional.None[types.Intent](), errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "strategy %s failed at bar %d", strat.Name(), i)
	}

	return optional.Some(intent), nil
}
