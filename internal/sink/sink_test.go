package sink

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"trading-mtfsync/internal/model"
	"trading-mtfsync/internal/mtf"
	"trading-mtfsync/internal/store/redis"
	"trading-mtfsync/internal/store/sqlite"
)

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func series(tf model.Timeframe, hours []int, px float64) model.Series {
	s := model.Series{Symbol: "BTCUSDT", TF: tf}
	for _, h := range hours {
		s.Candles = append(s.Candles, model.Candle{
			TS: day.Add(time.Duration(h) * time.Hour), Open: px, High: px + 1, Low: px - 1, Close: px + 0.5, Volume: 2,
		})
	}
	return s
}

// testRun synchronizes one 4h bar at 04:00 onto 1h bars at 03:00, 04:00
// and 05:00; the first row has no primary context.
func testRun(t *testing.T) *Run {
	t.Helper()
	ps := series("4h", []int{4}, 100)
	ss := series("1h", []int{3, 4, 5}, 10)
	primary := model.NewFrame(ps)
	if err := primary.AddLabel("squeeze_state", []string{"squeeze_on"}); err != nil {
		t.Fatal(err)
	}
	res, err := mtf.Synchronize(primary, model.NewFrame(ss), mtf.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return &Run{
		Symbol:    "BTCUSDT",
		Exchange:  "binance",
		Primary:   ps,
		Secondary: ss,
		Result:    res,
		Started:   time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC),
	}
}

func TestWriteFrame(t *testing.T) {
	run := testRun(t)
	var buf bytes.Buffer
	if err := WriteFrame(&buf, run.Result.Frame); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d", len(lines))
	}
	wantHeader := "date,open_1h,high_1h,low_1h,close_1h,volume_1h,open_4h,high_4h,low_4h,close_4h,volume_4h,squeeze_state_4h"
	if lines[0] != wantHeader {
		t.Errorf("header = %s", lines[0])
	}
	if lines[1] != "2024-03-01 03:00:00,10,11,9,10.5,2,,,,,," {
		t.Errorf("row 1 = %s", lines[1])
	}
	if lines[2] != "2024-03-01 04:00:00,10,11,9,10.5,2,100,101,99,100.5,2,squeeze_on" {
		t.Errorf("row 2 = %s", lines[2])
	}
}

func TestCSVSink_WritesDatasetAndManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	s, err := NewCSV(dir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	run := testRun(t)
	if err := s.Write(context.Background(), run); err != nil {
		t.Fatal(err)
	}

	dataset := filepath.Join(dir, "multitemporal_4h_1h_BTCUSDT_20240302_083000.csv")
	if _, err := os.Stat(dataset); err != nil {
		t.Fatalf("dataset: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "multitemporal_4h_1h_config_BTCUSDT.json"))
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	if err := sonic.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m.DatasetFile != dataset || m.PrimaryTF != "4h" || m.SecondaryTF != "1h" {
		t.Errorf("manifest = %+v", m)
	}
	if len(m.PrimaryColumns) != 6 || m.PrimaryColumns[5] != "squeeze_state_4h" {
		t.Errorf("primary columns = %v", m.PrimaryColumns)
	}
	if len(m.SecondaryColumns) != 5 {
		t.Errorf("secondary columns = %v", m.SecondaryColumns)
	}
	if m.Stats.Rows != 3 || m.Stats.Missing != 1 {
		t.Errorf("stats = %+v", m.Stats)
	}
	if !strings.Contains(m.Description, "1h data with 4h context") {
		t.Errorf("description = %s", m.Description)
	}
}

func TestSQLiteSink_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mtf.db")
	s, err := NewSQLite(path, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	run := testRun(t)
	ctx := context.Background()
	if err := s.Write(ctx, run); err != nil {
		t.Fatal(err)
	}

	r, err := sqlite.NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	cells, err := r.ReadSyncCells(ctx, sqlite.SyncKey{Symbol: "BTCUSDT", PrimaryTF: "4h", SecondaryTF: "1h"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cells) != 3*11 {
		t.Fatalf("cells = %d", len(cells))
	}
	var invalid int
	for _, c := range cells {
		if !c.Valid {
			invalid++
		}
		if c.Column == "squeeze_state_4h" && (c.Kind != model.Label || c.Valid && c.Text != "squeeze_on") {
			t.Errorf("label cell = %+v", c)
		}
	}
	if invalid != 6 {
		t.Errorf("invalid cells = %d, want 6", invalid)
	}
	candles, err := r.ReadCandles(ctx, "binance", "BTCUSDT", "4h")
	if err != nil {
		t.Fatal(err)
	}
	if len(candles) != 1 {
		t.Errorf("primary candles = %d", len(candles))
	}
}

func TestBuildBatch(t *testing.T) {
	run := testRun(t)
	b, err := BuildBatch(run, 1000, "mtf:runs")
	if err != nil {
		t.Fatal(err)
	}
	if b.Stream != "mtf:BTCUSDT:4h:1h" || b.MaxLen != 1000 || len(b.Entries) != 3 {
		t.Fatalf("batch = %s %d %d", b.Stream, b.MaxLen, len(b.Entries))
	}
	first, err := redis.DecodeRow(b.Entries[0])
	if err != nil {
		t.Fatal(err)
	}
	if first["date"] != "2024-03-01 03:00:00" {
		t.Errorf("date = %v", first["date"])
	}
	if v, ok := first["close_4h"]; !ok || v != nil {
		t.Errorf("close_4h = %v", v)
	}
	last, _ := redis.DecodeRow(b.Entries[2])
	if last["squeeze_state_4h"] != "squeeze_on" {
		t.Errorf("label = %v", last["squeeze_state_4h"])
	}

	var n Notice
	if err := msgpack.Unmarshal(b.Notice, &n); err != nil {
		t.Fatal(err)
	}
	if n.Stream != b.Stream || n.Stats.Rows != 3 || n.Started != run.Started.UnixMilli() {
		t.Errorf("notice = %+v", n)
	}

	quiet, err := BuildBatch(run, 1000, "")
	if err != nil {
		t.Fatal(err)
	}
	if quiet.Notice != nil {
		t.Error("notice without channel")
	}
}

func TestTimescaleRows(t *testing.T) {
	run := testRun(t)
	rows, err := TimescaleRows(run)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	r := rows[1]
	if !r.TS.Equal(day.Add(4*time.Hour)) || r.PrimaryTF != "4h" || r.SecondaryTF != "1h" {
		t.Errorf("row = %+v", r)
	}
	var payload map[string]any
	if err := sonic.Unmarshal(r.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if _, ok := payload["date"]; ok {
		t.Error("payload carries date")
	}
	if payload["close_4h"] != 100.5 {
		t.Errorf("close_4h = %v", payload["close_4h"])
	}
	var missing map[string]any
	if err := sonic.Unmarshal(rows[0].Payload, &missing); err != nil {
		t.Fatal(err)
	}
	if v, ok := missing["adx_4h"]; ok {
		t.Errorf("unexpected column adx_4h = %v", v)
	}
	if v, ok := missing["close_4h"]; !ok || v != nil {
		t.Errorf("close_4h = %v", v)
	}
}

type fakeHub struct {
	key string
	msg []byte
}

func (h *fakeHub) Broadcast(key string, msg []byte) { h.key, h.msg = key, msg }
func (h *fakeHub) Close() error                     { return nil }

func TestFeedSink_Write(t *testing.T) {
	hub := &fakeHub{}
	run := testRun(t)
	if err := NewFeed(hub).Write(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	if hub.key != "mtf:BTCUSDT:4h:1h" {
		t.Errorf("key = %s", hub.key)
	}
	var m FeedMessage
	if err := sonic.Unmarshal(hub.msg, &m); err != nil {
		t.Fatal(err)
	}
	if m.Type != "run" || m.Stats.Rows != 3 || m.Started != "2024-03-02 08:30:00" {
		t.Errorf("message = %+v", m)
	}
	if m.Latest["date"] != "2024-03-01 05:00:00" || m.Latest["squeeze_state_4h"] != "squeeze_on" {
		t.Errorf("latest = %v", m.Latest)
	}
}
