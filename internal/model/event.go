package model

import "fmt"

// Event is the normalized representation of one decoded exchange log.
type Event struct {
	ProtocolVersion int         `json:"protocol_version"`
	BlockNumber     uint64      `json:"block_number"`
	BlockHash       string      `json:"block_hash"`
	TransactionHash string      `json:"transaction_hash"`
	LogIndex        uint        `json:"log_index"`
	ContractAddress string      `json:"contract_address"`
	Type            string      `json:"type"`
	Data            interface{} `json:"data"`
}

// Key identifies an event within its protocol version.
func (e Event) Key() string {
	return fmt.Sprintf("%d:%s:%d", e.ProtocolVersion, e.TransactionHash, e.LogIndex)
}
