package protocol

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"eventExtractor/internal/model"
)

// LogFilterer returns logs in a block range for addresses and topic0 filters.
type LogFilterer interface {
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

type decodeFunc func(event abi.Event, log types.Log) (interface{}, error)

// Exchange fetches and decodes fill events emitted by one 0x exchange version.
type Exchange struct {
	version  int
	address  common.Address
	event    abi.Event
	filterer LogFilterer
	decode   decodeFunc
}

func newExchange(version int, contractABI abi.ABI, eventName string, address common.Address, filterer LogFilterer, decode decodeFunc) (*Exchange, error) {
	if filterer == nil {
		return nil, fmt.Errorf("log filterer is nil")
	}
	event, ok := contractABI.Events[eventName]
	if !ok {
		return nil, fmt.Errorf("abi has no %s event", eventName)
	}
	return &Exchange{
		version:  version,
		address:  address,
		event:    event,
		filterer: filterer,
		decode:   decode,
	}, nil
}

// ProtocolVersion returns the exchange version tag.
func (e *Exchange) ProtocolVersion() int {
	return e.version
}

// Address returns the exchange contract address.
func (e *Exchange) Address() common.Address {
	return e.address
}

// FetchLogEntries returns the fill logs emitted by the exchange in [fromBlock, toBlock].
func (e *Exchange) FetchLogEntries(ctx context.Context, fromBlock, toBlock uint64) ([]model.LogEntry, error) {
	logs, err := e.filterer.FilterLogs(ctx, fromBlock, toBlock, []common.Address{e.address}, []common.Hash{e.event.ID})
	if err != nil {
		return nil, err
	}

	entries := make([]model.LogEntry, 0, len(logs))
	for _, log := range logs {
		name := ""
		if len(log.Topics) > 0 && log.Topics[0] == e.event.ID {
			name = e.event.Name
		}
		entries = append(entries, model.LogEntry{Event: name, Log: log})
	}
	return entries, nil
}

// EventData decodes the payload of one fill log.
func (e *Exchange) EventData(entry model.LogEntry) (interface{}, error) {
	return e.decode(e.event, entry.Log)
}
