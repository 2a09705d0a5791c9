package datasource

import (
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/series"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// InMemoryDataSource serves bars that are already in memory, for example
// generated bars in tests. Initialize ignores the path.
type InMemoryDataSource struct {
	bars    []types.Bar
	columns map[string][]float64
}

// NewInMemoryDataSource creates a data source over bars and optional extra columns.
func NewInMemoryDataSource(bars []types.Bar, columns map[string][]float64) *InMemoryDataSource {
	return &InMemoryDataSource{bars: bars, columns: columns}
}

// Initialize implements DataSource.
func (m *InMemoryDataSource) Initialize(path string) error {
	return nil
}

// Columns implements DataSource.
func (m *InMemoryDataSource) Columns() ([]string, error) {
	names := make([]string, 0, len(m.columns))
	for name := range m.columns {
		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

func (m *InMemoryDataSource) inRange(bar types.Bar, start optional.Option[time.Time], end optional.Option[time.Time]) bool {
	if start.IsSome() && bar.Time.Before(start.Unwrap()) {
		return false
	}

	if end.IsSome() && bar.Time.After(end.Unwrap()) {
		return false
	}

	return true
}

// Count implements DataSource.
func (m *InMemoryDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for _, bar := range m.bars {
		if m.inRange(bar, start, end) {
			count++
		}
	}

	return count, nil
}

// ReadAll implements DataSource.
func (m *InMemoryDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		for _, bar := range m.bars {
			if !m.inRange(bar, start, end) {
				continue
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// Load implements DataSource. Resampling and symbol filters need the DuckDB data source.
func (m *InMemoryDataSource) Load(query Query) (*series.Store, error) {
	if query.Interval.IsSome() || query.Symbol.IsSome() {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "in-memory data cannot be resampled or filtered by symbol")
	}

	store, err := series.NewStore(m.bars, m.columns)
	if err != nil {
		return nil, err
	}

	return store.Between(query.Start, query.End)
}

// Close implements DataSource.
func (m *InMemoryDataSource) Close() error {
	return nil
}
