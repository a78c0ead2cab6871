package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"trading-mtfsync/internal/model"
)

func openPair(t *testing.T) (*Writer, *Reader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mtf.db")
	w, err := New(WriterConfig{DBPath: path}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	r, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return w, r
}

func TestCandles_RoundTrip(t *testing.T) {
	w, r := openPair(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s := model.Series{Symbol: "BTCUSDT", TF: "1h"}
	for i := 0; i < 1200; i++ { // spans several batches
		px := 100 + float64(i)*0.25
		s.Candles = append(s.Candles, model.Candle{
			TS: base.Add(time.Duration(i) * time.Hour), Open: px, High: px + 1, Low: px - 1, Close: px + 0.5, Volume: 10,
		})
	}
	if err := w.WriteCandles(ctx, "binance", s); err != nil {
		t.Fatal(err)
	}
	// rewriting is an upsert, not a duplicate
	if err := w.WriteCandles(ctx, "binance", s); err != nil {
		t.Fatal(err)
	}

	got, err := r.ReadCandles(ctx, "binance", "BTCUSDT", "1h")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(s.Candles) {
		t.Fatalf("read %d candles, want %d", len(got), len(s.Candles))
	}
	g, want := got[10], s.Candles[10]
	if !g.TS.Equal(want.TS) || g.Open != want.Open || g.Close != want.Close || g.Volume != want.Volume {
		t.Errorf("candle 10 = %+v, want %+v", g, want)
	}

	other, err := r.ReadCandles(ctx, "binance", "BTCUSDT", "4h")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("4h candles = %d, want 0", len(other))
	}
}

func TestSyncCells_RoundTrip(t *testing.T) {
	w, r := openPair(t)
	ctx := context.Background()
	key := SyncKey{Symbol: "ETHUSDT", PrimaryTF: "4h", SecondaryTF: "1h"}
	ts := time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)

	cells := []SyncCell{
		{TS: ts, Column: "close_4h", Value: 100, Valid: true},
		{TS: ts, Column: "squeeze_state_4h", Kind: model.Label, Text: "squeeze_on", Valid: true},
		{TS: ts, Column: "adx_4h", Valid: false},
		{TS: ts, Column: "label_4h", Kind: model.Label, Text: "", Valid: true},
	}
	if err := w.WriteSyncCells(ctx, key, cells); err != nil {
		t.Fatal(err)
	}

	got, err := r.ReadSyncCells(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d cells, want 4", len(got))
	}
	// ordered by column name
	if got[0].Column != "adx_4h" || got[0].Valid {
		t.Errorf("cell 0 = %+v", got[0])
	}
	if got[1].Column != "close_4h" || got[1].Value != 100 || !got[1].Valid {
		t.Errorf("cell 1 = %+v", got[1])
	}
	// an empty label stays a label
	if got[2].Column != "label_4h" || got[2].Kind != model.Label || !got[2].Valid || got[2].Text != "" {
		t.Errorf("cell 2 = %+v", got[2])
	}
	if got[3].Text != "squeeze_on" || got[3].Kind != model.Label {
		t.Errorf("cell 3 = %+v", got[3])
	}
}

func TestSyncCells_EmptyLabelStoredAsText(t *testing.T) {
	w, _ := openPair(t)
	ctx := context.Background()
	key := SyncKey{Symbol: "ETHUSDT", PrimaryTF: "4h", SecondaryTF: "1h"}
	ts := time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)
	cells := []SyncCell{{TS: ts, Column: "label_4h", Kind: model.Label, Valid: true}}
	if err := w.WriteSyncCells(ctx, key, cells); err != nil {
		t.Fatal(err)
	}

	var value sql.NullFloat64
	var text sql.NullString
	err := w.DB().QueryRowContext(ctx,
		`SELECT value, text FROM sync_rows WHERE column_name = 'label_4h'`).Scan(&value, &text)
	if err != nil {
		t.Fatal(err)
	}
	if value.Valid || !text.Valid || text.String != "" {
		t.Errorf("value = %+v, text = %+v; want NULL value and empty text", value, text)
	}
}
