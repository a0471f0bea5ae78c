package model

import (
	"encoding/json"
	"testing"
)

func TestSwappedEventDataJSONFields(t *testing.T) {
	payload := SwappedEventData{
		Trader:    "0x1111111111111111111111111111111111111111",
		Direction: "usdc-eth",
		Pool:      "usdc",
		AmountIn:  "0x00000000000000000000000000000000000000000000000000000000000a0500",
		AmountOut: "0x00000000000000000000000000000000000000000000000000000000000b0500",
	}

	data, err := json.Marshal(TypedEvent{EventRef: EventRef{EventName: EventSwapped, Pool: "usdc"}, Decoded: payload})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var record TypedEventRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if record.EventName != EventSwapped || record.Pool != "usdc" {
		t.Fatalf("unexpected record %+v", record)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(record.Decoded, &decoded); err != nil {
		t.Fatalf("unmarshal decoded failed: %v", err)
	}
	for _, key := range []string{"trader", "direction", "amount_in", "amount_out"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
}
