package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"trading-mtfsync/internal/model"
)

const (
	defaultWriteTimeout = 10 * time.Second
	rowsTable           = "mtf_rows"
)

type Config struct {
	DSN          string
	Schema       string
	WriteTimeout time.Duration
}

// Row is one synchronized row; Payload is its JSON encoding.
type Row struct {
	TS          time.Time
	Symbol      string
	PrimaryTF   model.Timeframe
	SecondaryTF model.Timeframe
	Payload     []byte
}

type Writer struct {
	db           *sql.DB
	log          *zap.Logger
	schema       string
	writeTimeout time.Duration
}

func New(ctx context.Context, cfg Config, log *zap.Logger) (*Writer, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("timescale ping: %w", err)
	}

	w := newWriter(db, cfg, log)
	if err := w.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("timescale connected", zap.String("schema", w.schema))
	return w, nil
}

func newWriter(db *sql.DB, cfg Config, log *zap.Logger) *Writer {
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &Writer{db: db, log: log, schema: schema, writeTimeout: timeout}
}

// DB exposes the pool for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return fmt.Errorf("timescale create schema: %w", err)
		}
	}
	if err := w.exec(ctx, w.createTableQuery()); err != nil {
		return fmt.Errorf("timescale create %s: %w", rowsTable, err)
	}
	// plain Postgres still works, just without chunking
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		w.log.Warn("timescale extension ensure failed", zap.Error(err))
		return nil
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table(rowsTable))); err != nil {
		w.log.Warn("timescale mtf_rows hypertable create failed", zap.Error(err))
	}
	return nil
}

func (w *Writer) createTableQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		primary_tf TEXT NOT NULL,
		secondary_tf TEXT NOT NULL,
		payload JSONB NOT NULL,
		PRIMARY KEY (ts, symbol, primary_tf, secondary_tf)
	)`, w.table(rowsTable))
}

func (w *Writer) upsertQuery() string {
	return fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, primary_tf, secondary_tf, payload
	) VALUES (
		$1,$2,$3,$4,$5
	)
	ON CONFLICT (ts, symbol, primary_tf, secondary_tf) DO UPDATE SET
		payload = EXCLUDED.payload`, w.table(rowsTable))
}

// WriteRows upserts rows in a single transaction.
func (w *Writer) WriteRows(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, w.writeTimeout)
	defer cancel()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("timescale begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, w.upsertQuery())
	if err != nil {
		return fmt.Errorf("timescale prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.TS, r.Symbol, string(r.PrimaryTF), string(r.SecondaryTF), string(r.Payload)); err != nil {
			return fmt.Errorf("timescale upsert %s %s: %w", r.Symbol, r.TS.Format(time.RFC3339), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("timescale commit: %w", err)
	}
	return nil
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, w.writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
