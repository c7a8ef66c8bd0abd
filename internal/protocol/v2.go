package protocol

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"eventExtractor/internal/model"
)

// NewV2 builds the variant for the 0x Exchange v2 Fill event.
func NewV2(filterer LogFilterer, address common.Address) (*Exchange, error) {
	contractABI, err := ExchangeV2ABI()
	if err != nil {
		return nil, err
	}
	return newExchange(2, contractABI, "Fill", address, filterer, decodeFillV2)
}

type fillIndexed struct {
	MakerAddress        common.Address
	FeeRecipientAddress common.Address
	OrderHash           [32]byte
}

func decodeFillV2(event abi.Event, log types.Log) (interface{}, error) {
	var indexed fillIndexed
	if err := parseIndexed(event, log, &indexed); err != nil {
		return nil, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}

	r := &fieldReader{values: values}
	data := readFill(r, indexed)
	if r.err != nil {
		return nil, r.err
	}
	return data, nil
}

// readFill reads the fields v2 and v3 Fill events share.
func readFill(r *fieldReader, indexed fillIndexed) model.FillEventData {
	return model.FillEventData{
		MakerAddress:           indexed.MakerAddress.Hex(),
		FeeRecipientAddress:    indexed.FeeRecipientAddress.Hex(),
		TakerAddress:           r.address("takerAddress"),
		SenderAddress:          r.address("senderAddress"),
		MakerAssetFilledAmount: r.amount("makerAssetFilledAmount"),
		TakerAssetFilledAmount: r.amount("takerAssetFilledAmount"),
		MakerFeePaid:           r.amount("makerFeePaid"),
		TakerFeePaid:           r.amount("takerFeePaid"),
		OrderHash:              common.Hash(indexed.OrderHash).Hex(),
		MakerAssetData:         r.bytes("makerAssetData"),
		TakerAssetData:         r.bytes("takerAssetData"),
	}
}
