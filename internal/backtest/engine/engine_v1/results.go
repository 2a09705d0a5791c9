package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/internal/version"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"go.uber.org/zap"
)

const (
	tradesFile = "trades.parquet"
	equityFile = "equity.parquet"
	eventsFile = "events.parquet"
	statsFile  = "stats.yaml"
)

// ResultWriter stages the output of a run in an in-memory DuckDB database and
// exports it as parquet files plus a YAML summary.
type ResultWriter struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewResultWriter opens the staging database and creates its tables.
func NewResultWriter(log *logger.Logger) (*ResultWriter, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		log.Error("Failed to open database", zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to open result database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to connect to result database", err)
	}

	w := &ResultWriter{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := w.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return w, nil
}

func (w *ResultWriter) initialize() error {
	_, err := w.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT,
			direction TEXT,
			size DOUBLE,
			entry_price DOUBLE,
			exit_price DOUBLE,
			entry_bar INTEGER,
			exit_bar INTEGER,
			entry_time TIMESTAMP,
			exit_time TIMESTAMP,
			exit_reason TEXT,
			pnl DOUBLE,
			commission DOUBLE,
			net_pnl DOUBLE,
			partial BOOLEAN,
			tag TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create trades table", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS equity (
			bar INTEGER,
			time TIMESTAMP,
			cash DOUBLE,
			position_size DOUBLE,
			close DOUBLE,
			equity DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create equity table", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			seq INTEGER,
			kind TEXT,
			bar INTEGER,
			time TIMESTAMP,
			direction TEXT,
			price DOUBLE,
			size DOUBLE,
			reason TEXT,
			message TEXT,
			ref_id TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create events table", err)
	}

	return nil
}

// Record stages the trades, equity curve and events of a run. Previously staged
// rows are discarded.
func (w *ResultWriter) Record(result Result) error {
	if err := w.reset(); err != nil {
		return err
	}

	tx, err := w.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to begin transaction", err)
	}

	if err := w.insert(tx, result); err != nil {
		tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to commit results", err)
	}

	return nil
}

func (w *ResultWriter) insert(tx *sql.Tx, result Result) error {
	for _, trade := range result.Trades {
		_, err := w.sq.
			Insert("trades").
			Columns(
				"id", "direction", "size", "entry_price", "exit_price", "entry_bar", "exit_bar",
				"entry_time", "exit_time", "exit_reason", "pnl", "commission", "net_pnl", "partial", "tag",
			).
			Values(
				trade.ID, string(trade.Direction), trade.Size, trade.EntryPrice, trade.ExitPrice, trade.EntryBar, trade.ExitBar,
				trade.EntryTime, trade.ExitTime, string(trade.ExitReason), trade.PnL, trade.Commission, trade.NetPnL(), trade.Partial, trade.Tag,
			).
			RunWith(tx).
			Exec()
		if err != nil {
			return errors.Wrapf(errors.ErrCodeBacktestWriteFailed, err, "failed to insert trade %s", trade.ID)
		}
	}

	for _, point := range result.Equity {
		_, err := w.sq.
			Insert("equity").
			Columns("bar", "time", "cash", "position_size", "close", "equity").
			Values(point.Bar, point.Time, point.Cash, point.PositionSize, point.Close, point.Equity).
			RunWith(tx).
			Exec()
		if err != nil {
			return errors.Wrapf(errors.ErrCodeBacktestWriteFailed, err, "failed to insert equity point %d", point.Bar)
		}
	}

	for seq, event := range result.Events {
		_, err := w.sq.
			Insert("events").
			Columns("seq", "kind", "bar", "time", "direction", "price", "size", "reason", "message", "ref_id").
			Values(seq, string(event.Kind), event.Bar, event.Time, string(event.Direction), event.Price, event.Size, event.Reason, event.Message, event.RefID).
			RunWith(tx).
			Exec()
		if err != nil {
			return errors.Wrapf(errors.ErrCodeBacktestWriteFailed, err, "failed to insert event %d", seq)
		}
	}

	return nil
}

// Write exports the staged tables into folder and writes the summary next to
// them. The returned summary carries the file paths.
func (w *ResultWriter) Write(folder string, summary types.RunSummary) (types.RunSummary, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return summary, errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create results folder", err)
	}

	exports := []struct {
		table string
		file  string
		order string
		path  *string
	}{
		{"trades", tradesFile, "exit_bar, entry_bar", &summary.TradesFilePath},
		{"equity", equityFile, "bar", &summary.EquityFilePath},
		{"events", eventsFile, "seq", &summary.EventsFilePath},
	}

	for _, export := range exports {
		path := filepath.Join(folder, export.file)

		query := fmt.Sprintf(`COPY (SELECT * FROM %s ORDER BY %s) TO '%s' (FORMAT PARQUET)`,
			export.table, export.order, strings.ReplaceAll(path, "'", "''"))
		if _, err := w.db.Exec(query); err != nil {
			return summary, errors.Wrapf(errors.ErrCodeBacktestWriteFailed, err, "failed to export %s", export.table)
		}

		*export.path = path
	}

	summary.EngineVersion = version.GetVersion()

	statsPath := filepath.Join(folder, statsFile)
	if err := types.WriteRunSummary(statsPath, summary); err != nil {
		return summary, errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to write run summary", err)
	}

	w.logger.Info("Results written",
		zap.String("folder", folder),
		zap.String("trades", summary.TradesFilePath),
		zap.String("equity", summary.EquityFilePath),
		zap.String("events", summary.EventsFilePath),
	)

	return summary, nil
}

func (w *ResultWriter) reset() error {
	_, err := w.db.Exec(`
		DELETE FROM trades;
		DELETE FROM equity;
		DELETE FROM events;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to reset result tables", err)
	}

	return nil
}

// Close closes the staging database.
func (w *ResultWriter) Close() error {
	if w == nil || w.db == nil {
		return nil
	}

	return w.db.Close()
}
