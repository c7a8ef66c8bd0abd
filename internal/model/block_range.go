package model

import "time"

// BlockRange records one processed, inclusive block range for a protocol version.
type BlockRange struct {
	ProtocolVersion int       `json:"protocol_version"`
	FromBlock       uint64    `json:"from_block"`
	ToBlock         uint64    `json:"to_block"`
	Events          int       `json:"events"`
	Date            time.Time `json:"date"`
}

// Blocks returns the number of blocks covered by the range.
func (r BlockRange) Blocks() uint64 {
	if r.ToBlock < r.FromBlock {
		return 0
	}
	return r.ToBlock - r.FromBlock + 1
}
