package model

import "github.com/ethereum/go-ethereum/core/types"

// LogEntry is a raw chain log tagged with the ABI event name it matched.
type LogEntry struct {
	Event string
	Log   types.Log
}
