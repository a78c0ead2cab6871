package redis

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeRow packs one row (column name to value, nil for missing) as
// msgpack.
func EncodeRow(row map[string]any) ([]byte, error) {
	b, err := msgpack.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("msgpack encode row: %w", err)
	}
	return b, nil
}

// DecodeRow reverses EncodeRow.
func DecodeRow(b []byte) (map[string]any, error) {
	var row map[string]any
	if err := msgpack.Unmarshal(b, &row); err != nil {
		return nil, fmt.Errorf("msgpack decode row: %w", err)
	}
	return row, nil
}
