package events

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"hiddenLiquidity/internal/fhe"
	"hiddenLiquidity/internal/ledger"
	"hiddenLiquidity/internal/model"
)

var (
	exchange = common.HexToAddress("0x1111111111111111111111111111111111111111")
	token    = common.HexToAddress("0x4444444444444444444444444444444444444444")
	alice    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	bob      = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func handle(b byte) fhe.Euint64 {
	var h fhe.Handle
	h[0] = b
	h[30] = byte(fhe.TypeEuint64)
	return fhe.Uint64(h)
}

func toRecord(log *types.Log) model.LogRecord {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Hex())
	}
	return model.LogRecord{
		ChainID:     31337,
		BlockNumber: 7,
		BlockHash:   "0xabc",
		TxHash:      "0xdef",
		LogIndex:    1,
		Address:     log.Address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(log.Data),
		Timestamp:   1700000000,
		FHECost:     42,
	}
}

func newDecoder(t *testing.T) *Decoder {
	t.Helper()
	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	return decoder
}

func TestDecodeLiquidityAdded(t *testing.T) {
	decoder := newDecoder(t)

	log, err := LiquidityAdded(exchange, alice, ledger.PoolUSDT, handle(1), handle(2), handle(3))
	if err != nil {
		t.Fatalf("build log: %v", err)
	}
	if !decoder.CanDecode(log.Topics[0].Hex()) {
		t.Fatalf("decoder does not recognize topic %s", log.Topics[0].Hex())
	}

	event, err := decoder.Decode(toRecord(log))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.EventName != model.EventLiquidityAdded {
		t.Fatalf("unexpected event name %q", event.EventName)
	}
	if event.Pool != "usdt" {
		t.Fatalf("unexpected pool %q", event.Pool)
	}
	if event.FHECost != 42 {
		t.Fatalf("unexpected fhe cost %d", event.FHECost)
	}

	data, ok := event.Decoded.(model.LiquidityEventData)
	if !ok {
		t.Fatalf("unexpected decoded type %T", event.Decoded)
	}
	if data.Provider != alice.Hex() {
		t.Fatalf("unexpected provider %s", data.Provider)
	}
	if data.ReserveBase != handle(1).Hex() || data.ReserveEth != handle(2).Hex() || data.Share != handle(3).Hex() {
		t.Fatalf("unexpected handles %+v", data)
	}
}

func TestDecodeLiquidityRemovedDiffersFromAdded(t *testing.T) {
	decoder := newDecoder(t)

	log, err := LiquidityRemoved(exchange, alice, ledger.PoolUSDC, handle(4), handle(5), handle(6))
	if err != nil {
		t.Fatalf("build log: %v", err)
	}
	event, err := decoder.Decode(toRecord(log))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.EventName != model.EventLiquidityRemoved {
		t.Fatalf("unexpected event name %q", event.EventName)
	}
	if decoder.Topic0(model.EventLiquidityAdded) == decoder.Topic0(model.EventLiquidityRemoved) {
		t.Fatalf("added and removed share a topic0")
	}
}

func TestDecodeSwapped(t *testing.T) {
	decoder := newDecoder(t)

	log, err := Swapped(exchange, bob, ledger.ETHToUSDT, handle(7), handle(8))
	if err != nil {
		t.Fatalf("build log: %v", err)
	}
	event, err := decoder.Decode(toRecord(log))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	data, ok := event.Decoded.(model.SwappedEventData)
	if !ok {
		t.Fatalf("unexpected decoded type %T", event.Decoded)
	}
	if data.Direction != "eth-usdt" || data.Pool != "usdt" {
		t.Fatalf("unexpected direction %q pool %q", data.Direction, data.Pool)
	}
	if data.Trader != bob.Hex() {
		t.Fatalf("unexpected trader %s", data.Trader)
	}
	if data.AmountIn != handle(7).Hex() || data.AmountOut != handle(8).Hex() {
		t.Fatalf("unexpected amounts %+v", data)
	}
}

func TestDecodeTokenEvents(t *testing.T) {
	decoder := newDecoder(t)

	transfer, err := ConfidentialTransfer(token, alice, bob, handle(9))
	if err != nil {
		t.Fatalf("build transfer: %v", err)
	}
	if len(transfer.Topics) != 4 {
		t.Fatalf("expected 4 topics, got %d", len(transfer.Topics))
	}
	event, err := decoder.Decode(toRecord(transfer))
	if err != nil {
		t.Fatalf("decode transfer: %v", err)
	}
	data, ok := event.Decoded.(model.ConfidentialTransferEventData)
	if !ok {
		t.Fatalf("unexpected decoded type %T", event.Decoded)
	}
	want := model.ConfidentialTransferEventData{From: alice.Hex(), To: bob.Hex(), Amount: handle(9).Hex()}
	if data != want {
		t.Fatalf("transfer mismatch: %+v != %+v", data, want)
	}

	operator, err := OperatorSet(token, alice, exchange, 4_000_000_000)
	if err != nil {
		t.Fatalf("build operator: %v", err)
	}
	event, err = decoder.Decode(toRecord(operator))
	if err != nil {
		t.Fatalf("decode operator: %v", err)
	}
	op, ok := event.Decoded.(model.OperatorSetEventData)
	if !ok {
		t.Fatalf("unexpected decoded type %T", event.Decoded)
	}
	if op.Until != 4_000_000_000 || op.Operator != exchange.Hex() {
		t.Fatalf("unexpected operator data %+v", op)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	decoder := newDecoder(t)

	if _, err := decoder.Decode(model.LogRecord{Address: exchange.Hex()}); err == nil {
		t.Fatalf("expected error for missing topics")
	}
	if _, err := decoder.Decode(model.LogRecord{Address: exchange.Hex(), Topics: []string{"0x01"}}); err == nil {
		t.Fatalf("expected error for unknown topic")
	}

	log, err := Swapped(exchange, bob, ledger.USDCToETH, handle(1), handle(2))
	if err != nil {
		t.Fatalf("build log: %v", err)
	}
	record := toRecord(log)
	record.Topics = record.Topics[:2]
	if _, err := decoder.Decode(record); err == nil {
		t.Fatalf("expected error for truncated topics")
	}
}
