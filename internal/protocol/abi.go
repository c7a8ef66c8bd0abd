package protocol

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const exchangeV1ABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "maker", "type": "address"},
      {"indexed": false, "name": "taker", "type": "address"},
      {"indexed": true, "name": "feeRecipient", "type": "address"},
      {"indexed": false, "name": "makerToken", "type": "address"},
      {"indexed": false, "name": "takerToken", "type": "address"},
      {"indexed": false, "name": "filledMakerTokenAmount", "type": "uint256"},
      {"indexed": false, "name": "filledTakerTokenAmount", "type": "uint256"},
      {"indexed": false, "name": "paidMakerFee", "type": "uint256"},
      {"indexed": false, "name": "paidTakerFee", "type": "uint256"},
      {"indexed": true, "name": "tokens", "type": "bytes32"},
      {"indexed": false, "name": "orderHash", "type": "bytes32"}
    ],
    "name": "LogFill",
    "type": "event"
  }
]`

const exchangeV2ABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "makerAddress", "type": "address"},
      {"indexed": true, "name": "feeRecipientAddress", "type": "address"},
      {"indexed": false, "name": "takerAddress", "type": "address"},
      {"indexed": false, "name": "senderAddress", "type": "address"},
      {"indexed": false, "name": "makerAssetFilledAmount", "type": "uint256"},
      {"indexed": false, "name": "takerAssetFilledAmount", "type": "uint256"},
      {"indexed": false, "name": "makerFeePaid", "type": "uint256"},
      {"indexed": false, "name": "takerFeePaid", "type": "uint256"},
      {"indexed": true, "name": "orderHash", "type": "bytes32"},
      {"indexed": false, "name": "makerAssetData", "type": "bytes"},
      {"indexed": false, "name": "takerAssetData", "type": "bytes"}
    ],
    "name": "Fill",
    "type": "event"
  }
]`

const exchangeV3ABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "makerAddress", "type": "address"},
      {"indexed": true, "name": "feeRecipientAddress", "type": "address"},
      {"indexed": false, "name": "makerAssetData", "type": "bytes"},
      {"indexed": false, "name": "takerAssetData", "type": "bytes"},
      {"indexed": false, "name": "makerFeeAssetData", "type": "bytes"},
      {"indexed": false, "name": "takerFeeAssetData", "type": "bytes"},
      {"indexed": true, "name": "orderHash", "type": "bytes32"},
      {"indexed": false, "name": "takerAddress", "type": "address"},
      {"indexed": false, "name": "senderAddress", "type": "address"},
      {"indexed": false, "name": "makerAssetFilledAmount", "type": "uint256"},
      {"indexed": false, "name": "takerAssetFilledAmount", "type": "uint256"},
      {"indexed": false, "name": "makerFeePaid", "type": "uint256"},
      {"indexed": false, "name": "takerFeePaid", "type": "uint256"},
      {"indexed": false, "name": "protocolFeePaid", "type": "uint256"}
    ],
    "name": "Fill",
    "type": "event"
  }
]`

type lazyABI struct {
	json   string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

var (
	exchangeV1ABI = &lazyABI{json: exchangeV1ABIJSON}
	exchangeV2ABI = &lazyABI{json: exchangeV2ABIJSON}
	exchangeV3ABI = &lazyABI{json: exchangeV3ABIJSON}
)

// ExchangeV1ABI returns the parsed 0x Exchange v1 event ABI.
func ExchangeV1ABI() (abi.ABI, error) { return exchangeV1ABI.get() }

// ExchangeV2ABI returns the parsed 0x Exchange v2 event ABI.
func ExchangeV2ABI() (abi.ABI, error) { return exchangeV2ABI.get() }

// ExchangeV3ABI returns the parsed 0x Exchange v3 event ABI.
func ExchangeV3ABI() (abi.ABI, error) { return exchangeV3ABI.get() }
