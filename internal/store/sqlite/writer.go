package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"trading-mtfsync/internal/model"
)

const (
	dsnParams        = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	defaultBatchSize = 500
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/mtf.db"
}

// Writer is a single-connection SQLite writer with transaction batching.
type Writer struct {
	db  *sql.DB
	log *zap.Logger
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New opens the database in WAL mode and creates the schema.
func New(cfg WriterConfig, log *zap.Logger) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Info("sqlite opened", zap.String("path", cfg.DBPath))
	return &Writer{db: db, log: log}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles_tf (
			symbol     TEXT    NOT NULL,
			exchange   TEXT    NOT NULL,
			tf         TEXT    NOT NULL,
			ts         INTEGER NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     REAL,
			PRIMARY KEY (exchange, symbol, tf, ts)
		);

		CREATE TABLE IF NOT EXISTS sync_rows (
			symbol       TEXT    NOT NULL,
			primary_tf   TEXT    NOT NULL,
			secondary_tf TEXT    NOT NULL,
			ts           INTEGER NOT NULL,
			column_name  TEXT    NOT NULL,
			value        REAL,
			text         TEXT,
			kind         INTEGER NOT NULL DEFAULT 0,
			valid        INTEGER NOT NULL,
			PRIMARY KEY (symbol, primary_tf, secondary_tf, ts, column_name)
		);
	`)
	return err
}

// WriteCandles upserts a candle series into candles_tf in batched
// transactions.
func (w *Writer) WriteCandles(ctx context.Context, exchange string, s model.Series) error {
	start := time.Now()
	for lo := 0; lo < len(s.Candles); lo += defaultBatchSize {
		hi := min(lo+defaultBatchSize, len(s.Candles))
		if err := w.insertCandleBatch(ctx, exchange, s.Symbol, s.TF, s.Candles[lo:hi]); err != nil {
			return fmt.Errorf("sqlite candles %s %s: %w", s.Symbol, s.TF, err)
		}
	}
	w.log.Debug("sqlite committed candles",
		zap.String("symbol", s.Symbol), zap.String("tf", s.TF.String()),
		zap.Int("rows", len(s.Candles)), zap.Duration("took", time.Since(start)))
	return nil
}

func (w *Writer) insertCandleBatch(ctx context.Context, exchange, symbol string, tf model.Timeframe, candles []model.Candle) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles_tf (symbol, exchange, tf, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, exchange, string(tf), c.TS.Unix(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SyncKey identifies one synchronized dataset.
type SyncKey struct {
	Symbol      string
	PrimaryTF   model.Timeframe
	SecondaryTF model.Timeframe
}

// SyncCell is one (row, column) value of a synchronized frame.
// Kind selects which of Value or Text holds the cell.
type SyncCell struct {
	TS     time.Time
	Column string
	Kind   model.ColumnKind
	Value  float64
	Text   string
	Valid  bool
}

// WriteSyncCells upserts cells into sync_rows in batched transactions.
func (w *Writer) WriteSyncCells(ctx context.Context, key SyncKey, cells []SyncCell) error {
	start := time.Now()
	for lo := 0; lo < len(cells); lo += defaultBatchSize {
		hi := min(lo+defaultBatchSize, len(cells))
		if err := w.insertSyncBatch(ctx, key, cells[lo:hi]); err != nil {
			return fmt.Errorf("sqlite sync_rows %s: %w", key.Symbol, err)
		}
	}
	w.log.Debug("sqlite committed sync cells",
		zap.String("symbol", key.Symbol), zap.Int("cells", len(cells)), zap.Duration("took", time.Since(start)))
	return nil
}

func (w *Writer) insertSyncBatch(ctx context.Context, key SyncKey, cells []SyncCell) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO sync_rows (symbol, primary_tf, secondary_tf, ts, column_name, value, text, kind, valid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range cells {
		var value sql.NullFloat64
		var text sql.NullString
		if c.Valid {
			if c.Kind == model.Label {
				text = sql.NullString{String: c.Text, Valid: true}
			} else {
				value = sql.NullFloat64{Float64: c.Value, Valid: true}
			}
		}
		if _, err := stmt.ExecContext(ctx, key.Symbol, string(key.PrimaryTF), string(key.SecondaryTF),
			c.TS.Unix(), c.Column, value, text, int(c.Kind), c.Valid); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
