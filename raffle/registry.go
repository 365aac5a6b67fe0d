package raffle

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

//go:embed addresses.json
var defaultAddresses []byte

// Registry maps a chain id to the raffle deployments on that chain. The first
// address of each list is the one in use.
type Registry map[uint64][]common.Address

// Resolve returns the raffle address for chainID.
func (r Registry) Resolve(chainID uint64) (common.Address, bool) {
	addrs, ok := r[chainID]
	if !ok || len(addrs) == 0 {
		return common.Address{}, false
	}
	return addrs[0], true
}

// ParseRegistry decodes a hardhat-deploy style address file:
//
//	{"31337": ["0x5FbDB2315678afecb367f032d93F642f64180aa3"]}
func ParseRegistry(data []byte) (Registry, error) {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode registry: %w", err)
	}

	reg := make(Registry, len(raw))
	for key, list := range raw {
		chainID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q: %w", key, err)
		}
		addrs := make([]common.Address, 0, len(list))
		for _, s := range list {
			if !common.IsHexAddress(s) {
				return nil, fmt.Errorf("chain %d: invalid address %q", chainID, s)
			}
			addrs = append(addrs, common.HexToAddress(s))
		}
		reg[chainID] = addrs
	}
	return reg, nil
}

// LoadRegistry reads the registry file at path. An empty path yields the
// built-in registry of local development deployments.
func LoadRegistry(path string) (Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	return ParseRegistry(data)
}

// DefaultRegistry returns the built-in registry.
func DefaultRegistry() Registry {
	reg, err := ParseRegistry(defaultAddresses)
	if err != nil {
		panic(err)
	}
	return reg
}
