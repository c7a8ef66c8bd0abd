package protocol

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"eventExtractor/internal/model"
)

// NewV1 builds the variant for the 0x Exchange v1 LogFill event.
func NewV1(filterer LogFilterer, address common.Address) (*Exchange, error) {
	contractABI, err := ExchangeV1ABI()
	if err != nil {
		return nil, err
	}
	return newExchange(1, contractABI, "LogFill", address, filterer, decodeLogFill)
}

func decodeLogFill(event abi.Event, log types.Log) (interface{}, error) {
	var indexed struct {
		Maker        common.Address
		FeeRecipient common.Address
		Tokens       [32]byte
	}
	if err := parseIndexed(event, log, &indexed); err != nil {
		return nil, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}

	r := &fieldReader{values: values}
	data := model.LogFillEventData{
		Maker:                  indexed.Maker.Hex(),
		Taker:                  r.address("taker"),
		FeeRecipient:           indexed.FeeRecipient.Hex(),
		MakerToken:             r.address("makerToken"),
		TakerToken:             r.address("takerToken"),
		FilledMakerTokenAmount: r.amount("filledMakerTokenAmount"),
		FilledTakerTokenAmount: r.amount("filledTakerTokenAmount"),
		PaidMakerFee:           r.amount("paidMakerFee"),
		PaidTakerFee:           r.amount("paidTakerFee"),
		Tokens:                 common.Hash(indexed.Tokens).Hex(),
		OrderHash:              r.bytes32("orderHash"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return data, nil
}
