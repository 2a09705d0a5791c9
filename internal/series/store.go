package series

import (
	"math"
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// Store is an immutable, timestamp ordered sequence of bars plus optional
// extra numeric columns aligned 1:1 with the bars (funding rate, external
// volatility index, ...). A Store is never mutated after construction and may
// be shared read-only by concurrent runs.
type Store struct {
	bars []types.Bar
	// extra columns by name, each len(bars) long
	columns map[string][]float64
	// timeIndex maps unix nanoseconds to bar index
	timeIndex map[int64]int
}

// NewStore validates the ordering of bars and the length of every extra column.
// Bar values are checked by Validate once the run range is known.
func NewStore(bars []types.Bar, columns map[string][]float64) (*Store, error) {
	if len(bars) == 0 {
		return nil, errors.New(errors.ErrCodeDataEmpty, "time series store requires at least one bar")
	}

	timeIndex := make(map[int64]int, len(bars))

	for i, bar := range bars {
		if bar.Time.IsZero() {
			return nil, errors.Newf(errors.ErrCodeDataMissingValue, "bar %d has no timestamp", i)
		}

		key := bar.Time.UnixNano()
		if prev, ok := timeIndex[key]; ok {
			return nil, errors.Newf(errors.ErrCodeDataDuplicate, "bar %d duplicates the timestamp of bar %d (%s)", i, prev, bar.Time.Format(time.RFC3339))
		}

		if i > 0 && !bar.Time.After(bars[i-1].Time) {
			return nil, errors.Newf(errors.ErrCodeDataNonMonotonic, "bar %d (%s) is not after bar %d (%s)",
				i, bar.Time.Format(time.RFC3339), i-1, bars[i-1].Time.Format(time.RFC3339))
		}

		timeIndex[key] = i
	}

	owned := make([]types.Bar, len(bars))
	copy(owned, bars)

	extra := make(map[string][]float64, len(columns))

	for name, values := range columns {
		if _, reserved := owned[0].Field(name); reserved {
			return nil, errors.Newf(errors.ErrCodeDataMissingColumn, "extra column %q shadows a bar field", name)
		}

		if len(values) != len(owned) {
			return nil, errors.Newf(errors.ErrCodeDataColumnLength, "column %q has %d values for %d bars", name, len(values), len(owned))
		}

		column := make([]float64, len(values))
		copy(column, values)
		extra[name] = column
	}

	return &Store{
		bars:      owned,
		columns:   extra,
		timeIndex: timeIndex,
	}, nil
}

// Validate checks that every bar has finite, consistent OHLCV values.
func (s *Store) Validate() error {
	for i, bar := range s.bars {
		if err := validateBar(i, bar); err != nil {
			return err
		}
	}

	return nil
}

func validateBar(i int, bar types.Bar) error {
	for _, name := range types.BarColumns {
		value, _ := bar.Field(name)
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return errors.Newf(errors.ErrCodeDataMissingValue, "bar %d (%s) has a missing %s value", i, bar.Time.Format(time.RFC3339), name)
		}
	}

	if bar.Open <= 0 || bar.High <= 0 || bar.Low <= 0 || bar.Close <= 0 {
		return errors.Newf(errors.ErrCodeDataInvalidBar, "bar %d has a non-positive price", i)
	}

	if bar.Volume < 0 {
		return errors.Newf(errors.ErrCodeDataInvalidBar, "bar %d has a negative volume", i)
	}

	if bar.Low > math.Min(bar.Open, bar.Close) || bar.High < math.Max(bar.Open, bar.Close) {
		return errors.Newf(errors.ErrCodeDataInvalidBar, "bar %d range [%v, %v] does not contain open %v and close %v", i, bar.Low, bar.High, bar.Open, bar.Close)
	}

	return nil
}

// Len returns the number of bars.
func (s *Store) Len() int {
	return len(s.bars)
}

// Bar returns the bar at index i.
func (s *Store) Bar(i int) (types.Bar, error) {
	if i < 0 || i >= len(s.bars) {
		return types.Bar{}, errors.Newf(errors.ErrCodeDataOutOfRange, "bar index %d out of range [0, %d)", i, len(s.bars))
	}

	return s.bars[i], nil
}

// Window returns the last n bars ending at i (inclusive), clipped at the start
// of the series. The result is a copy in chronological order.
func (s *Store) Window(i, n int) ([]types.Bar, error) {
	if i < 0 || i >= len(s.bars) {
		return nil, errors.Newf(errors.ErrCodeDataOutOfRange, "bar index %d out of range [0, %d)", i, len(s.bars))
	}

	if n <= 0 {
		return []types.Bar{}, nil
	}

	start := max(i-n+1, 0)
	result := make([]types.Bar, i+1-start)
	copy(result, s.bars[start:i+1])

	return result, nil
}

// IndexOf returns the bar index with exactly timestamp t.
func (s *Store) IndexOf(t time.Time) (int, bool) {
	i, ok := s.timeIndex[t.UnixNano()]

	return i, ok
}

// HasColumn reports whether name is a bar field or an extra column.
func (s *Store) HasColumn(name string) bool {
	if _, ok := s.bars[0].Field(name); ok {
		return true
	}

	_, ok := s.columns[name]

	return ok
}

// Columns lists the extra column names in sorted order.
func (s *Store) Columns() []string {
	names := make([]string, 0, len(s.columns))
	for name := range s.columns {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Column returns a copy of a full-length column: one of open/high/low/close/volume
// or an extra column. A missing column is a fatal setup error.
func (s *Store) Column(name string) ([]float64, error) {
	if _, ok := s.bars[0].Field(name); ok {
		values := make([]float64, len(s.bars))
		for i, bar := range s.bars {
			values[i], _ = bar.Field(name)
		}

		return values, nil
	}

	column, ok := s.columns[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeDataMissingColumn, "column %q is not present in the input data", name)
	}

	values := make([]float64, len(column))
	copy(values, column)

	return values, nil
}

// ColumnValue returns a single value of a column.
func (s *Store) ColumnValue(name string, i int) (float64, error) {
	bar, err := s.Bar(i)
	if err != nil {
		return math.NaN(), err
	}

	if value, ok := bar.Field(name); ok {
		return value, nil
	}

	column, ok := s.columns[name]
	if !ok {
		return math.NaN(), errors.Newf(errors.ErrCodeDataMissingColumn, "column %q is not present in the input data", name)
	}

	return column[i], nil
}

// Slice returns a store with the first n bars. The underlying arrays are shared
// since neither store is ever mutated.
func (s *Store) Slice(n int) (*Store, error) {
	if n <= 0 || n > len(s.bars) {
		return nil, errors.Newf(errors.ErrCodeDataOutOfRange, "cannot slice %d bars from a store of %d", n, len(s.bars))
	}

	return s.sub(0, n), nil
}

// Between returns the bars whose timestamps fall in [start, end]. Missing bounds are open.
func (s *Store) Between(start optional.Option[time.Time], end optional.Option[time.Time]) (*Store, error) {
	from := 0
	if start.IsSome() {
		from = sort.Search(len(s.bars), func(i int) bool {
			return !s.bars[i].Time.Before(start.Unwrap())
		})
	}

	to := len(s.bars)
	if end.IsSome() {
		to = sort.Search(len(s.bars), func(i int) bool {
			return s.bars[i].Time.After(end.Unwrap())
		})
	}

	if from >= to {
		return nil, errors.New(errors.ErrCodeDataEmpty, "no bars inside the configured time range")
	}

	if from == 0 && to == len(s.bars) {
		return s, nil
	}

	return s.sub(from, to), nil
}

func (s *Store) sub(from, to int) *Store {
	bars := s.bars[from:to:to]

	columns := make(map[string][]float64, len(s.columns))
	for name, values := range s.columns {
		columns[name] = values[from:to:to]
	}

	timeIndex := make(map[int64]int, len(bars))
	for i, bar := range bars {
		timeIndex[bar.Time.UnixNano()] = i
	}

	return &Store{bars: bars, columns: columns, timeIndex: timeIndex}
}
