package extractor

import (
	"errors"
	"fmt"
)

// Kind classifies why a cycle failed.
type Kind int

const (
	KindUnknown Kind = iota
	// TransientIO covers connectivity and timeout failures; the next cycle retries.
	TransientIO
	// DecodeFailure means a raw log could not be turned into an event payload.
	DecodeFailure
	// StoreWriteFailure means the event insert or checkpoint upsert failed.
	StoreWriteFailure
)

func (k Kind) String() string {
	switch k {
	case TransientIO:
		return "transient_io"
	case DecodeFailure:
		return "decode_failure"
	case StoreWriteFailure:
		return "store_write_failure"
	default:
		return "unknown"
	}
}

// Error carries the protocol version and attempted range of a failed cycle step.
type Error struct {
	Kind            Kind
	Op              string
	ProtocolVersion int
	FromBlock       uint64
	ToBlock         uint64
	Err             error
}

func (e *Error) Error() string {
	if e.FromBlock == 0 && e.ToBlock == 0 {
		return fmt.Sprintf("v%d %s: %s: %v", e.ProtocolVersion, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("v%d %s [%d, %d]: %s: %v", e.ProtocolVersion, e.Op, e.FromBlock, e.ToBlock, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsTransient reports whether err is worth retrying on the next cycle as-is.
func IsTransient(err error) bool {
	return KindOf(err) == TransientIO
}
