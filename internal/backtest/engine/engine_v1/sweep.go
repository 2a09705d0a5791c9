package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rxtech-lab/argo-sim/internal/series"
	"github.com/rxtech-lab/argo-sim/internal/strategy"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// SweepResult is the outcome of one parameter set of a sweep.
type SweepResult struct {
	Params strategy.Params
	Result Result
}

// Sweep runs one isolated simulation per parameter set. Runs share only the
// read-only store; newStrategy must return a fresh strategy on every call.
// Results keep the order of grid. concurrency <= 0 runs one simulation per CPU.
func (r *Runner) Sweep(
	ctx context.Context,
	store *series.Store,
	newStrategy func() strategy.Strategy,
	grid []strategy.Params,
	concurrency int,
) ([]SweepResult, error) {
	if newStrategy == nil {
		return nil, errors.New(errors.ErrCodeBacktestNoStrategy, "sweep needs a strategy constructor")
	}

	results := make([]SweepResult, len(grid))

	group, groupCtx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		group.SetLimit(concurrency)
	}

	for i, params := range grid {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			result, err := r.Run(groupCtx, store, newStrategy(), params)
			if err != nil {
				return errors.Wrapf(errors.ErrCodeBacktestSweepFailed, err, "sweep run %d (%v) failed", i, params)
			}

			results[i] = SweepResult{Params: params, Result: result}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// ExpandGrid returns the cartesian product of the parameter values, ordered by
// parameter name and then by the order of the values.
func ExpandGrid(base strategy.Params, grid map[string][]any) ([]strategy.Params, error) {
	names := make([]string, 0, len(grid))

	for name, values := range grid {
		if len(values) == 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "sweep parameter %q has no values", name)
		}

		names = append(names, name)
	}

	sort.Strings(names)

	combinations := []strategy.Params{strategy.Params{}.With(base)}

	for _, name := range names {
		next := make([]strategy.Params, 0, len(combinations)*len(grid[name]))

		for _, combination := range combinations {
			for _, value := range grid[name] {
				next = append(next, combination.With(strategy.Params{name: value}))
			}
		}

		combinations = next
	}

	return combinations, nil
}

// Label is a stable, human readable name for a parameter set.
func Label(params strategy.Params) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}

	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%v", name, params[name])
	}

	return strings.Join(parts, ",")
}
