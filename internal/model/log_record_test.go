package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestLogRecordJSONRoundTrip(t *testing.T) {
	original := LogRecord{
		ChainID:     31337,
		BlockNumber: 12,
		BlockHash:   "0xabc123",
		TxHash:      "0xdef456",
		LogIndex:    2,
		Address:     "0x1111111111111111111111111111111111111111",
		Topics:      []string{"0xaaa", "0xbbb"},
		Data:        "0xdeadbeef",
		Timestamp:   1700000000,
		FHECost:     1230000,
		IngestedAt:  "2024-01-01T00:00:00Z",
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded LogRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
	if decoded.Key() != "12:0xdef456:2" {
		t.Fatalf("unexpected key %q", decoded.Key())
	}
	if decoded.Topic0() != "0xaaa" {
		t.Fatalf("unexpected topic0 %q", decoded.Topic0())
	}
}

func TestLogRecordNullTopics(t *testing.T) {
	var decoded LogRecord
	if err := json.Unmarshal([]byte(`{"block_number":1,"topics":null}`), &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Topics == nil || decoded.Topic0() != "" {
		t.Fatalf("expected empty topics, got %#v", decoded.Topics)
	}
}
