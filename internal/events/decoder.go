package events

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"hiddenLiquidity/internal/fhe"
	"hiddenLiquidity/internal/ledger"
	"hiddenLiquidity/internal/model"
)

// Decoder turns a stored log record into a typed event.
type Decoder struct {
	exchangeABI abi.ABI
	tokenABI    abi.ABI
	topicToName map[string]string
}

// NewDecoder builds a decoder for every exchange and token event.
func NewDecoder() (*Decoder, error) {
	exchange, err := ExchangeABI()
	if err != nil {
		return nil, fmt.Errorf("exchange abi: %w", err)
	}
	token, err := TokenABI()
	if err != nil {
		return nil, fmt.Errorf("token abi: %w", err)
	}

	topicToName := make(map[string]string)
	for name, event := range exchange.Events {
		topicToName[strings.ToLower(event.ID.Hex())] = name
	}
	for name, event := range token.Events {
		topicToName[strings.ToLower(event.ID.Hex())] = name
	}
	return &Decoder{exchangeABI: exchange, tokenABI: token, topicToName: topicToName}, nil
}

// Topic0 returns the signature topic of a named event, or "".
func (d *Decoder) Topic0(name string) string {
	for topic, n := range d.topicToName {
		if n == name {
			return topic
		}
	}
	return ""
}

// CanDecode checks if the topic0 is supported.
func (d *Decoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a TypedEvent.
func (d *Decoder) Decode(log model.LogRecord) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid emitter address: %s", log.Address)
	}

	switch name {
	case model.EventLiquidityAdded, model.EventLiquidityRemoved:
		decoded, err := d.decodeLiquidity(name, log)
		if err != nil {
			return nil, err
		}
		return buildTypedEvent(log, name, decoded.Pool, decoded), nil
	case model.EventSwapped:
		decoded, err := d.decodeSwapped(log)
		if err != nil {
			return nil, err
		}
		return buildTypedEvent(log, name, decoded.Pool, decoded), nil
	case model.EventConfidentialTransfer:
		decoded, err := d.decodeTransfer(log)
		if err != nil {
			return nil, err
		}
		return buildTypedEvent(log, name, "", decoded), nil
	case model.EventOperatorSet:
		decoded, err := d.decodeOperatorSet(log)
		if err != nil {
			return nil, err
		}
		return buildTypedEvent(log, name, "", decoded), nil
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
}

func buildTypedEvent(log model.LogRecord, name, pool string, decoded interface{}) *model.TypedEvent {
	return &model.TypedEvent{
		EventRef: model.NewEventRef(log, name, pool),
		Decoded:  decoded,
		Raw:      &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data},
	}
}

func (d *Decoder) decodeLiquidity(name string, log model.LogRecord) (model.LiquidityEventData, error) {
	event := d.exchangeABI.Events[name]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.LiquidityEventData{}, err
	}

	var indexed struct {
		Provider common.Address
		Pool     uint8
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.LiquidityEventData{}, fmt.Errorf("parse topics: %w", err)
	}
	pool := ledger.PoolID(indexed.Pool)
	if !pool.Valid() {
		return model.LiquidityEventData{}, fmt.Errorf("%w: %d", ledger.ErrUnknownPool, indexed.Pool)
	}

	handles, err := unpackHandles(event, log.Data, 3)
	if err != nil {
		return model.LiquidityEventData{}, err
	}
	return model.LiquidityEventData{
		Provider:    indexed.Provider.Hex(),
		Pool:        pool.String(),
		ReserveBase: handles[0].Hex(),
		ReserveEth:  handles[1].Hex(),
		Share:       handles[2].Hex(),
	}, nil
}

func (d *Decoder) decodeSwapped(log model.LogRecord) (model.SwappedEventData, error) {
	event := d.exchangeABI.Events[model.EventSwapped]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.SwappedEventData{}, err
	}

	var indexed struct {
		Trader    common.Address
		Direction uint8
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.SwappedEventData{}, fmt.Errorf("parse topics: %w", err)
	}
	direction := ledger.Direction(indexed.Direction)
	if !direction.Valid() {
		return model.SwappedEventData{}, fmt.Errorf("%w: %d", ledger.ErrUnknownDirection, indexed.Direction)
	}

	handles, err := unpackHandles(event, log.Data, 2)
	if err != nil {
		return model.SwappedEventData{}, err
	}
	return model.SwappedEventData{
		Trader:    indexed.Trader.Hex(),
		Direction: direction.String(),
		Pool:      direction.Pool().String(),
		AmountIn:  handles[0].Hex(),
		AmountOut: handles[1].Hex(),
	}, nil
}

func (d *Decoder) decodeTransfer(log model.LogRecord) (model.ConfidentialTransferEventData, error) {
	event := d.tokenABI.Events[model.EventConfidentialTransfer]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.ConfidentialTransferEventData{}, err
	}

	var indexed struct {
		From   common.Address
		To     common.Address
		Amount [32]byte
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.ConfidentialTransferEventData{}, fmt.Errorf("parse topics: %w", err)
	}
	return model.ConfidentialTransferEventData{
		From:   indexed.From.Hex(),
		To:     indexed.To.Hex(),
		Amount: fhe.Handle(indexed.Amount).Hex(),
	}, nil
}

func (d *Decoder) decodeOperatorSet(log model.LogRecord) (model.OperatorSetEventData, error) {
	event := d.tokenABI.Events[model.EventOperatorSet]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.OperatorSetEventData{}, err
	}

	var indexed struct {
		Holder   common.Address
		Operator common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.OperatorSetEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.OperatorSetEventData{}, err
	}
	if len(values) != 1 {
		return model.OperatorSetEventData{}, fmt.Errorf("unexpected operator values: %d", len(values))
	}
	until, ok := values[0].(*big.Int)
	if !ok || !until.IsUint64() {
		return model.OperatorSetEventData{}, fmt.Errorf("unsupported until type %T", values[0])
	}
	return model.OperatorSetEventData{
		Holder:   indexed.Holder.Hex(),
		Operator: indexed.Operator.Hex(),
		Until:    until.Uint64(),
	}, nil
}

func unpackHandles(event abi.Event, dataHex string, want int) ([]fhe.Handle, error) {
	values, err := unpackNonIndexed(event, dataHex)
	if err != nil {
		return nil, err
	}
	if len(values) != want {
		return nil, fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
	}
	handles := make([]fhe.Handle, len(values))
	for i, v := range values {
		raw, ok := v.([32]byte)
		if !ok {
			return nil, fmt.Errorf("unsupported handle type %T", v)
		}
		handles[i] = fhe.Handle(raw)
	}
	return handles, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	out := make([]common.Hash, 0, indexedCount)
	for _, topic := range topics[1:] {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}
