package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trading-mtfsync/internal/model"
)

// Reader provides read-only access to candles and synchronized rows.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	return &Reader{db: db}, nil
}

// ReadCandles reads candles_tf rows for exchange:symbol at tf, ordered by
// timestamp ascending.
func (r *Reader) ReadCandles(ctx context.Context, exchange, symbol string, tf model.Timeframe) ([]model.Candle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, COALESCE(volume, 0)
		FROM candles_tf
		WHERE exchange = ? AND symbol = ? AND tf = ?
		ORDER BY ts ASC
	`, exchange, symbol, string(tf))
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles_tf: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		var tsUnix int64
		if err := rows.Scan(&tsUnix, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candles_tf: %w", err)
		}
		c.TS = time.Unix(tsUnix, 0).UTC()
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// ReadSyncCells returns every stored cell of one dataset, ordered by
// timestamp and column name.
func (r *Reader) ReadSyncCells(ctx context.Context, key SyncKey) ([]SyncCell, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, column_name, value, text, kind, valid
		FROM sync_rows
		WHERE symbol = ? AND primary_tf = ? AND secondary_tf = ?
		ORDER BY ts ASC, column_name ASC
	`, key.Symbol, string(key.PrimaryTF), string(key.SecondaryTF))
	if err != nil {
		return nil, fmt.Errorf("sqlite query sync_rows: %w", err)
	}
	defer rows.Close()

	var cells []SyncCell
	for rows.Next() {
		var (
			c      SyncCell
			tsUnix int64
			value  sql.NullFloat64
			text   sql.NullString
			kind   int
		)
		if err := rows.Scan(&tsUnix, &c.Column, &value, &text, &kind, &c.Valid); err != nil {
			return nil, fmt.Errorf("sqlite scan sync_rows: %w", err)
		}
		c.TS = time.Unix(tsUnix, 0).UTC()
		c.Value = value.Float64
		c.Text = text.String
		c.Kind = model.ColumnKind(kind)
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
