package protocol

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"eventExtractor/internal/model"
)

// NewV3 builds the variant for the 0x Exchange v3 Fill event.
func NewV3(filterer LogFilterer, address common.Address) (*Exchange, error) {
	contractABI, err := ExchangeV3ABI()
	if err != nil {
		return nil, err
	}
	return newExchange(3, contractABI, "Fill", address, filterer, decodeFillV3)
}

func decodeFillV3(event abi.Event, log types.Log) (interface{}, error) {
	var indexed fillIndexed
	if err := parseIndexed(event, log, &indexed); err != nil {
		return nil, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}

	r := &fieldReader{values: values}
	data := model.FillV3EventData{
		FillEventData:     readFill(r, indexed),
		MakerFeeAssetData: r.bytes("makerFeeAssetData"),
		TakerFeeAssetData: r.bytes("takerFeeAssetData"),
		ProtocolFeePaid:   r.amount("protocolFeePaid"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return data, nil
}
