package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/series"
	"github.com/rxtech-lab/argo-sim/internal/types"
)

type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval8h  Interval = "8h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
)

// Query selects the bars loaded into a store.
type Query struct {
	Start optional.Option[time.Time]
	End   optional.Option[time.Time]
	// Interval resamples the bars into larger buckets. None keeps the file's bars.
	Interval optional.Option[Interval]
	// Symbol keeps only the rows of one symbol when the data has a symbol column.
	Symbol optional.Option[string]
}

type DataSource interface {
	// Initialize initializes the data source with the given data path in parquet or csv format
	Initialize(path string) error
	// Columns lists the extra numeric columns next to time and OHLCV
	Columns() ([]string, error)
	// Count returns the number of rows in the data source
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// ReadAll reads all the bars in time order and yields them to the caller
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool)
	// Load reads the selected bars and every extra numeric column into a store
	Load(query Query) (*series.Store, error)
	// Close closes the data source and releases any resources
	Close() error
}
