package redis

import (
	"testing"
)

func TestStreamKey(t *testing.T) {
	key := StreamKey("BTCUSDT", "4h", "1h")
	if key != "mtf:BTCUSDT:4h:1h" {
		t.Errorf("stream key = %s", key)
	}
	if LatestKey(key) != "mtf:BTCUSDT:4h:1h:latest" {
		t.Errorf("latest key = %s", LatestKey(key))
	}
}

func TestRowCodec_PreservesTypesAndNil(t *testing.T) {
	row := map[string]any{
		"date":             "2024-01-01 04:00:00",
		"close_4h":         101.25,
		"squeeze_state_4h": "squeeze_on",
		"adx_4h":           nil,
	}
	b, err := EncodeRow(row)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeRow(b)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := got["close_4h"].(float64); !ok || v != 101.25 {
		t.Errorf("close_4h = %#v", got["close_4h"])
	}
	if v, ok := got["adx_4h"]; !ok || v != nil {
		t.Errorf("adx_4h = %#v, present=%v", v, ok)
	}
	if got["squeeze_state_4h"] != "squeeze_on" {
		t.Errorf("label = %#v", got["squeeze_state_4h"])
	}
}

func TestDecodeRow_Garbage(t *testing.T) {
	if _, err := DecodeRow([]byte{0xc1}); err == nil {
		t.Fatal("expected error for invalid msgpack")
	}
}
