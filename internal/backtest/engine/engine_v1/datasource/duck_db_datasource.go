package datasource

import (
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/series"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"go.uber.org/zap"
)

// timeColumn reads the time column as a timestamp whatever type the file stores it as.
const timeColumn = "CAST(time AS TIMESTAMP)"

// barFields reads OHLCV as doubles so integer and decimal files scan the same way.
var barFields = []string{
	timeColumn,
	"CAST(open AS DOUBLE)",
	"CAST(high AS DOUBLE)",
	"CAST(low AS DOUBLE)",
	"CAST(close AS DOUBLE)",
	"CAST(volume AS DOUBLE)",
}

type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	path   string
}

// NewDataSource creates a new DuckDB data source instance with the specified database path.
// Use ":memory:" for a throwaway database. Market data is attached later by Initialize.
func NewDataSource(path string, log *logger.Logger) (DataSource, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to open duckdb", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to connect to duckdb", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		path:   "",
	}, nil
}

// Initialize implements DataSource. Parquet and CSV files are supported; a
// glob pattern loads several files of the same layout as one table.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	var reader string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		reader = "read_parquet"
	case ".csv":
		reader = "read_csv_auto"
	default:
		return errors.Newf(errors.ErrCodeDataUnsupportedExt, "unsupported data file %q: expected .parquet or .csv", path)
	}

	_, err := d.db.Exec(`DROP VIEW IF EXISTS market_data;`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to drop existing view", err)
	}

	// Squirrel doesn't support CREATE VIEW
	query := fmt.Sprintf(`
		CREATE VIEW market_data AS
		SELECT * FROM %s('%s');
	`, reader, strings.ReplaceAll(path, "'", "''"))

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceFailed, err, "failed to read %s", path)
	}

	d.path = path

	return d.checkRequiredColumns()
}

// describe returns the column types of market_data by name, in file order.
func (d *DuckDBDataSource) describe() ([]string, map[string]string, error) {
	rows, err := d.sq.
		Select("column_name", "data_type").
		From("information_schema.columns").
		Where(squirrel.Eq{"table_name": "market_data"}).
		OrderBy("ordinal_position").
		RunWith(d.db).
		Query()
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to describe market data", err)
	}
	defer rows.Close()

	var names []string

	columnTypes := make(map[string]string)

	for rows.Next() {
		var name, columnType string
		if err := rows.Scan(&name, &columnType); err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to scan column", err)
		}

		names = append(names, name)
		columnTypes[name] = strings.ToUpper(columnType)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeDataQueryFailed, "error iterating columns", err)
	}

	return names, columnTypes, nil
}

func (d *DuckDBDataSource) checkRequiredColumns() error {
	_, columnTypes, err := d.describe()
	if err != nil {
		return err
	}

	for _, required := range append([]string{"time"}, types.BarColumns...) {
		columnType, ok := columnTypes[required]
		if !ok {
			return errors.Newf(errors.ErrCodeDataMissingColumn, "data file %s has no %s column", d.path, required)
		}

		if required != "time" && !isNumericType(columnType) {
			return errors.Newf(errors.ErrCodeDataInvalidBar, "column %s has non numeric type %s", required, columnType)
		}
	}

	return nil
}

// Columns implements DataSource.
func (d *DuckDBDataSource) Columns() ([]string, error) {
	names, columnTypes, err := d.describe()
	if err != nil {
		return nil, err
	}

	var extra []string

	for _, name := range names {
		if name == "time" || name == "symbol" {
			continue
		}

		if _, isBarField := (types.Bar{}).Field(name); isBarField {
			continue
		}

		if isNumericType(columnTypes[name]) {
			extra = append(extra, name)
		}
	}

	return extra, nil
}

func timeRange(query squirrel.SelectBuilder, start optional.Option[time.Time], end optional.Option[time.Time]) squirrel.SelectBuilder {
	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{timeColumn: start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{timeColumn: end.Unwrap()})
	}

	return query
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	var count int

	err := timeRange(d.sq.Select("COUNT(*)").From("market_data"), start, end).
		RunWith(d.db).
		QueryRow().
		Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to count market data", err)
	}

	return count, nil
}

// ReadAll implements DataSource.
func (d *DuckDBDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		rows, err := timeRange(d.sq.Select(barFields...).From("market_data"), start, end).
			OrderBy(timeColumn + " ASC").
			RunWith(d.db).
			Query()
		if err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to query market data", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			bar, _, err := scanBar(rows, 0)
			if !yield(bar, err) || err != nil {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeDataQueryFailed, "error iterating market data", err))
		}
	}
}

// Load implements DataSource.
func (d *DuckDBDataSource) Load(query Query) (*series.Store, error) {
	extra, err := d.Columns()
	if err != nil {
		return nil, err
	}

	selectQuery, err := d.buildLoadQuery(query, extra)
	if err != nil {
		return nil, err
	}

	rows, err := selectQuery.RunWith(d.db).Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to load market data", err)
	}
	defer rows.Close()

	var bars []types.Bar

	columns := make(map[string][]float64, len(extra))

	for rows.Next() {
		bar, values, err := scanBar(rows, len(extra))
		if err != nil {
			return nil, err
		}

		bars = append(bars, bar)

		for k, name := range extra {
			columns[name] = append(columns[name], values[k])
		}
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataQueryFailed, "error iterating market data", err)
	}

	d.logger.Debug("Loaded market data",
		zap.String("path", d.path),
		zap.Int("bars", len(bars)),
		zap.Strings("columns", extra),
	)

	return series.NewStore(bars, columns)
}

func (d *DuckDBDataSource) buildLoadQuery(query Query, extra []string) (squirrel.SelectBuilder, error) {
	var selectQuery squirrel.SelectBuilder

	if query.Interval.IsNone() {
		fields := append([]string{}, barFields...)
		for _, name := range extra {
			fields = append(fields, fmt.Sprintf("CAST(%s AS DOUBLE)", quoteIdentifier(name)))
		}

		selectQuery = d.sq.Select(fields...).From("market_data").OrderBy(timeColumn + " ASC")
	} else {
		minutes, err := getIntervalMinutes(query.Interval.Unwrap())
		if err != nil {
			return squirrel.SelectBuilder{}, err
		}

		bucket := fmt.Sprintf("time_bucket(INTERVAL '%d minutes', %s)", minutes, timeColumn)
		fields := []string{
			bucket + " AS bucket",
			fmt.Sprintf("CAST(arg_min(open, %s) AS DOUBLE)", timeColumn),
			"CAST(MAX(high) AS DOUBLE)",
			"CAST(MIN(low) AS DOUBLE)",
			fmt.Sprintf("CAST(arg_max(close, %s) AS DOUBLE)", timeColumn),
			"CAST(SUM(volume) AS DOUBLE)",
		}

		// extra columns keep the last value of the bucket
		for _, name := range extra {
			fields = append(fields, fmt.Sprintf("CAST(arg_max(%s, %s) AS DOUBLE)", quoteIdentifier(name), timeColumn))
		}

		selectQuery = d.sq.Select(fields...).From("market_data").GroupBy("bucket").OrderBy("bucket ASC")
	}

	selectQuery = timeRange(selectQuery, query.Start, query.End)

	if query.Symbol.IsSome() {
		selectQuery = selectQuery.Where(squirrel.Eq{"symbol": query.Symbol.Unwrap()})
	}

	return selectQuery, nil
}

// scanBar reads time, OHLCV and extra float columns from the current row.
// Missing extra values become NaN.
func scanBar(rows *sql.Rows, extra int) (types.Bar, []float64, error) {
	var timestamp time.Time

	values := make([]sql.NullFloat64, 5+extra)
	dest := make([]any, 0, 6+extra)
	dest = append(dest, &timestamp)

	for k := range values {
		dest = append(dest, &values[k])
	}

	if err := rows.Scan(dest...); err != nil {
		return types.Bar{}, nil, errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to scan market data", err)
	}

	for k, field := range types.BarColumns {
		if !values[k].Valid {
			return types.Bar{}, nil, errors.Newf(errors.ErrCodeDataMissingValue, "bar at %s has no %s", timestamp.Format(time.RFC3339), field)
		}
	}

	bar := types.Bar{
		Time:   timestamp,
		Open:   values[0].Float64,
		High:   values[1].Float64,
		Low:    values[2].Float64,
		Close:  values[3].Float64,
		Volume: values[4].Float64,
	}

	extraValues := make([]float64, extra)
	for k := range extraValues {
		extraValues[k] = math.NaN()
		if values[5+k].Valid {
			extraValues[k] = values[5+k].Float64
		}
	}

	return bar, extraValues, nil
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	if d.db != nil {
		return d.db.Close()
	}

	return nil
}
