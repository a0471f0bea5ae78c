package indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"hiddenLiquidity/internal/model"
)

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}

// ParseTopic0 converts string topic0 hashes into common.Hash.
func ParseTopic0(inputs []string) ([]common.Hash, error) {
	topics := make([]common.Hash, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		data, err := hexutil.Decode(input)
		if err != nil {
			return nil, fmt.Errorf("invalid topic0: %s", input)
		}
		if len(data) != 32 {
			return nil, fmt.Errorf("invalid topic0 length: %s", input)
		}
		topics = append(topics, common.BytesToHash(data))
	}
	return topics, nil
}

// Filter selects records by emitter and signature topic. Empty lists match everything.
type Filter struct {
	Addresses []common.Address
	Topic0    []common.Hash
}

func (f Filter) Match(record model.LogRecord) bool {
	if len(f.Addresses) > 0 {
		if !common.IsHexAddress(record.Address) {
			return false
		}
		addr := common.HexToAddress(record.Address)
		found := false
		for _, a := range f.Addresses {
			if a == addr {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Topic0) > 0 {
		topic0 := record.Topic0()
		if topic0 == "" {
			return false
		}
		hash := common.HexToHash(topic0)
		for _, t := range f.Topic0 {
			if t == hash {
				return true
			}
		}
		return false
	}
	return true
}
