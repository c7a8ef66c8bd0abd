package protocol

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type constructor func(filterer LogFilterer, address common.Address) (*Exchange, error)

var registry = map[int]constructor{
	1: NewV1,
	2: NewV2,
	3: NewV3,
}

// Versions lists every supported protocol version in ascending order.
func Versions() []int {
	versions := make([]int, 0, len(registry))
	for version := range registry {
		versions = append(versions, version)
	}
	sort.Ints(versions)
	return versions
}

// Build returns the exchange variants for versions, in the given order.
// addresses maps each version to its exchange contract.
func Build(filterer LogFilterer, versions []int, addresses map[int]string) ([]*Exchange, error) {
	out := make([]*Exchange, 0, len(versions))
	for _, version := range versions {
		newVariant, ok := registry[version]
		if !ok {
			return nil, fmt.Errorf("unsupported protocol version %d", version)
		}
		address, err := ParseAddress(addresses[version])
		if err != nil {
			return nil, fmt.Errorf("exchange v%d: %w", version, err)
		}
		variant, err := newVariant(filterer, address)
		if err != nil {
			return nil, fmt.Errorf("exchange v%d: %w", version, err)
		}
		out = append(out, variant)
	}
	return out, nil
}

// ParseAddress converts a hex string into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}
