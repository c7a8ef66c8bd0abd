package protocol

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"eventExtractor/internal/model"
)

type fakeFilterer struct {
	logs      []types.Log
	err       error
	from, to  uint64
	addresses []common.Address
	topic0    []common.Hash
}

func (f *fakeFilterer) FilterLogs(_ context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	f.from, f.to = fromBlock, toBlock
	f.addresses = addresses
	f.topic0 = topic0
	return f.logs, f.err
}

var (
	exchangeAddr = common.HexToAddress("0x4f833a24e1f95d70f028921e27040ca56e09ab32")
	maker        = common.HexToAddress("0x1111111111111111111111111111111111111111")
	taker        = common.HexToAddress("0x2222222222222222222222222222222222222222")
	feeRecipient = common.HexToAddress("0x3333333333333333333333333333333333333333")
	sender       = common.HexToAddress("0x4444444444444444444444444444444444444444")
	makerToken   = common.HexToAddress("0x5555555555555555555555555555555555555555")
	takerToken   = common.HexToAddress("0x6666666666666666666666666666666666666666")
	orderHash    = [32]byte{0xaa, 0xbb, 0xcc}
	tokensHash   = [32]byte{0x01, 0x02}
)

func TestV1DecodeLogFill(t *testing.T) {
	filterer := &fakeFilterer{}
	variant, err := NewV1(filterer, exchangeAddr)
	require.NoError(t, err)

	contractABI, err := ExchangeV1ABI()
	require.NoError(t, err)
	event := contractABI.Events["LogFill"]

	data, err := event.Inputs.NonIndexed().Pack(
		taker,
		makerToken,
		takerToken,
		big.NewInt(1000),
		big.NewInt(2000),
		big.NewInt(3),
		big.NewInt(4),
		orderHash,
	)
	require.NoError(t, err)

	log := buildLog(event.ID, data, topicFromAddress(maker), topicFromAddress(feeRecipient), common.Hash(tokensHash))
	payload, err := variant.EventData(model.LogEntry{Event: "LogFill", Log: log})
	require.NoError(t, err)

	fill, ok := payload.(model.LogFillEventData)
	require.True(t, ok, "payload type %T", payload)
	require.Equal(t, maker.Hex(), fill.Maker)
	require.Equal(t, taker.Hex(), fill.Taker)
	require.Equal(t, feeRecipient.Hex(), fill.FeeRecipient)
	require.Equal(t, makerToken.Hex(), fill.MakerToken)
	require.Equal(t, takerToken.Hex(), fill.TakerToken)
	require.Equal(t, "1000", fill.FilledMakerTokenAmount)
	require.Equal(t, "2000", fill.FilledTakerTokenAmount)
	require.Equal(t, "3", fill.PaidMakerFee)
	require.Equal(t, "4", fill.PaidTakerFee)
	require.Equal(t, common.Hash(tokensHash).Hex(), fill.Tokens)
	require.Equal(t, common.Hash(orderHash).Hex(), fill.OrderHash)
}

func TestV2DecodeFill(t *testing.T) {
	variant, err := NewV2(&fakeFilterer{}, exchangeAddr)
	require.NoError(t, err)

	contractABI, err := ExchangeV2ABI()
	require.NoError(t, err)
	event := contractABI.Events["Fill"]

	data, err := event.Inputs.NonIndexed().Pack(
		taker,
		sender,
		big.NewInt(500),
		big.NewInt(600),
		big.NewInt(0),
		big.NewInt(7),
		[]byte{0xf4, 0x72, 0x61, 0xb0},
		[]byte{0x02, 0x57},
	)
	require.NoError(t, err)

	log := buildLog(event.ID, data, topicFromAddress(maker), topicFromAddress(feeRecipient), common.Hash(orderHash))
	payload, err := variant.EventData(model.LogEntry{Event: "Fill", Log: log})
	require.NoError(t, err)

	fill, ok := payload.(model.FillEventData)
	require.True(t, ok, "payload type %T", payload)
	require.Equal(t, maker.Hex(), fill.MakerAddress)
	require.Equal(t, feeRecipient.Hex(), fill.FeeRecipientAddress)
	require.Equal(t, taker.Hex(), fill.TakerAddress)
	require.Equal(t, sender.Hex(), fill.SenderAddress)
	require.Equal(t, "500", fill.MakerAssetFilledAmount)
	require.Equal(t, "600", fill.TakerAssetFilledAmount)
	require.Equal(t, "0", fill.MakerFeePaid)
	require.Equal(t, "7", fill.TakerFeePaid)
	require.Equal(t, common.Hash(orderHash).Hex(), fill.OrderHash)
	require.Equal(t, "0xf47261b0", fill.MakerAssetData)
	require.Equal(t, "0x0257", fill.TakerAssetData)
}

func TestV3DecodeFill(t *testing.T) {
	variant, err := NewV3(&fakeFilterer{}, exchangeAddr)
	require.NoError(t, err)

	contractABI, err := ExchangeV3ABI()
	require.NoError(t, err)
	event := contractABI.Events["Fill"]

	data, err := event.Inputs.NonIndexed().Pack(
		[]byte{0x01},
		[]byte{0x02},
		[]byte{0x03},
		[]byte{},
		taker,
		sender,
		big.NewInt(10),
		big.NewInt(20),
		big.NewInt(30),
		big.NewInt(40),
		big.NewInt(150000),
	)
	require.NoError(t, err)

	log := buildLog(event.ID, data, topicFromAddress(maker), topicFromAddress(feeRecipient), common.Hash(orderHash))
	payload, err := variant.EventData(model.LogEntry{Event: "Fill", Log: log})
	require.NoError(t, err)

	fill, ok := payload.(model.FillV3EventData)
	require.True(t, ok, "payload type %T", payload)
	require.Equal(t, "0x01", fill.MakerAssetData)
	require.Equal(t, "0x02", fill.TakerAssetData)
	require.Equal(t, "0x03", fill.MakerFeeAssetData)
	require.Equal(t, "0x", fill.TakerFeeAssetData)
	require.Equal(t, taker.Hex(), fill.TakerAddress)
	require.Equal(t, "40", fill.TakerFeePaid)
	require.Equal(t, "150000", fill.ProtocolFeePaid)
}

func TestDecodeRejectsMalformedLogs(t *testing.T) {
	variant, err := NewV2(&fakeFilterer{}, exchangeAddr)
	require.NoError(t, err)
	contractABI, err := ExchangeV2ABI()
	require.NoError(t, err)
	event := contractABI.Events["Fill"]

	t.Run("no topics", func(t *testing.T) {
		_, err := variant.EventData(model.LogEntry{Log: types.Log{}})
		require.Error(t, err)
	})

	t.Run("wrong topic0", func(t *testing.T) {
		log := buildLog(common.Hash{0x01}, nil, topicFromAddress(maker), topicFromAddress(feeRecipient), common.Hash(orderHash))
		_, err := variant.EventData(model.LogEntry{Log: log})
		require.Error(t, err)
	})

	t.Run("missing indexed topic", func(t *testing.T) {
		log := buildLog(event.ID, nil, topicFromAddress(maker))
		_, err := variant.EventData(model.LogEntry{Log: log})
		require.Error(t, err)
	})

	t.Run("truncated data", func(t *testing.T) {
		log := buildLog(event.ID, []byte{0x00, 0x01}, topicFromAddress(maker), topicFromAddress(feeRecipient), common.Hash(orderHash))
		_, err := variant.EventData(model.LogEntry{Log: log})
		require.Error(t, err)
	})
}

func TestFetchLogEntriesFiltersByExchangeAndEvent(t *testing.T) {
	contractABI, err := ExchangeV1ABI()
	require.NoError(t, err)
	event := contractABI.Events["LogFill"]

	filterer := &fakeFilterer{logs: []types.Log{
		buildLog(event.ID, nil),
		{BlockNumber: 12},
	}}
	variant, err := NewV1(filterer, exchangeAddr)
	require.NoError(t, err)

	entries, err := variant.FetchLogEntries(context.Background(), 501, 801)
	require.NoError(t, err)

	require.Equal(t, uint64(501), filterer.from)
	require.Equal(t, uint64(801), filterer.to)
	require.Equal(t, []common.Address{exchangeAddr}, filterer.addresses)
	require.Equal(t, []common.Hash{event.ID}, filterer.topic0)
	require.Len(t, entries, 2)
	require.Equal(t, "LogFill", entries[0].Event)
	require.Equal(t, "", entries[1].Event)
}

func TestFetchLogEntriesPropagatesErrors(t *testing.T) {
	boom := errors.New("rpc timeout")
	variant, err := NewV2(&fakeFilterer{err: boom}, exchangeAddr)
	require.NoError(t, err)

	_, err = variant.FetchLogEntries(context.Background(), 1, 2)
	require.ErrorIs(t, err, boom)
}

func TestBuild(t *testing.T) {
	addresses := map[int]string{
		1: "0x12459c951127e0c374ff9105dda097662a027093",
		3: "0x61935cbdd02287b511119ddb11aeb42f1593b7ef",
	}

	variants, err := Build(&fakeFilterer{}, []int{3, 1}, addresses)
	require.NoError(t, err)
	require.Len(t, variants, 2)
	require.Equal(t, 3, variants[0].ProtocolVersion())
	require.Equal(t, 1, variants[1].ProtocolVersion())
	require.Equal(t, common.HexToAddress(addresses[1]), variants[1].Address())

	_, err = Build(&fakeFilterer{}, []int{4}, addresses)
	require.ErrorContains(t, err, "unsupported protocol version 4")

	_, err = Build(&fakeFilterer{}, []int{2}, addresses)
	require.ErrorContains(t, err, "invalid address")

	_, err = Build(nil, []int{1}, addresses)
	require.Error(t, err)

	require.Equal(t, []int{1, 2, 3}, Versions())
}

func buildLog(topic0 common.Hash, data []byte, indexed ...common.Hash) types.Log {
	topics := append([]common.Hash{topic0}, indexed...)
	return types.Log{
		Address:     exchangeAddr,
		Topics:      topics,
		Data:        data,
		BlockNumber: 8140800,
		TxHash:      common.HexToHash("0xdef"),
		Index:       3,
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}
