package protocol

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// parseIndexed fills out from the indexed topics of log. out must be a pointer
// to a struct whose field names are the camel-cased argument names.
func parseIndexed(event abi.Event, log types.Log, out interface{}) error {
	if len(log.Topics) == 0 {
		return fmt.Errorf("missing topics")
	}
	if log.Topics[0] != event.ID {
		return fmt.Errorf("topic0 %s is not %s", log.Topics[0].Hex(), event.Name)
	}
	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}
	if err := abi.ParseTopics(out, indexed, log.Topics[1:]); err != nil {
		return fmt.Errorf("parse topics: %w", err)
	}
	return nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

// unpackNonIndexed decodes the log data into a map keyed by argument name.
func unpackNonIndexed(event abi.Event, data []byte) (map[string]interface{}, error) {
	values := make(map[string]interface{})
	if err := event.Inputs.NonIndexed().UnpackIntoMap(values, data); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

// fieldReader pulls typed values out of an unpacked map, keeping the first error.
type fieldReader struct {
	values map[string]interface{}
	err    error
}

func (r *fieldReader) address(name string) string {
	value, ok := r.lookup(name)
	if !ok {
		return ""
	}
	addr, err := asAddress(value)
	if err != nil {
		r.fail(name, err)
		return ""
	}
	return addr.Hex()
}

func (r *fieldReader) amount(name string) string {
	value, ok := r.lookup(name)
	if !ok {
		return ""
	}
	n, err := asBigInt(value)
	if err != nil {
		r.fail(name, err)
		return ""
	}
	return n.String()
}

func (r *fieldReader) bytes(name string) string {
	value, ok := r.lookup(name)
	if !ok {
		return ""
	}
	b, ok := value.([]byte)
	if !ok {
		r.fail(name, fmt.Errorf("unsupported bytes type %T", value))
		return ""
	}
	return hexutil.Encode(b)
}

func (r *fieldReader) bytes32(name string) string {
	value, ok := r.lookup(name)
	if !ok {
		return ""
	}
	b, ok := value.([32]byte)
	if !ok {
		r.fail(name, fmt.Errorf("unsupported bytes32 type %T", value))
		return ""
	}
	return common.Hash(b).Hex()
}

func (r *fieldReader) lookup(name string) (interface{}, bool) {
	if r.err != nil {
		return nil, false
	}
	value, ok := r.values[name]
	if !ok {
		r.fail(name, fmt.Errorf("missing field"))
		return nil, false
	}
	return value, true
}

func (r *fieldReader) fail(name string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s: %w", name, err)
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
