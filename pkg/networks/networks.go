package networks

import (
	"fmt"
	"strconv"
	"strings"
)

// Currency is the native-asset metadata a wallet needs when asked to add a
// chain it does not already know.
type Currency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Descriptor is the static display metadata for one chain. RPCURLs and
// Native are only set for chains the wallet endpoint may not know natively,
// so an add-chain request can be assembled from them.
type Descriptor struct {
	Key          string
	ChainID      int64
	ChainIDHex   string
	Name         string
	Color        string // lipgloss color
	Testnet      bool
	RPCURLs      []string
	ExplorerURLs []string
	Native       *Currency
}

// CanAdd reports whether the descriptor carries enough metadata to issue an
// add-chain request.
func (d Descriptor) CanAdd() bool {
	return len(d.RPCURLs) > 0 && d.Native != nil
}

var registry = []Descriptor{
	{
		Key:          "mainnet",
		ChainID:      1,
		ChainIDHex:   "0x1",
		Name:         "Ethereum Mainnet",
		Color:        "33",
		ExplorerURLs: []string{"https://etherscan.io"},
	},
	{
		Key:          "sepolia",
		ChainID:      11155111,
		ChainIDHex:   "0xaa36a7",
		Name:         "Sepolia Testnet",
		Color:        "135",
		Testnet:      true,
		ExplorerURLs: []string{"https://sepolia.etherscan.io"},
	},
	{
		Key:          "amoy",
		ChainID:      80002,
		ChainIDHex:   "0x13882",
		Name:         "Polygon Amoy",
		Color:        "205",
		Testnet:      true,
		RPCURLs:      []string{"https://rpc-amoy.polygon.technology/"},
		ExplorerURLs: []string{"https://amoy.polygonscan.com/"},
		Native:       &Currency{Name: "MATIC", Symbol: "MATIC", Decimals: 18},
	},
}

const unknownName = "Unknown"
const neutralColor = "245"

// All returns the registered descriptors in declaration order.
func All() []Descriptor {
	out := make([]Descriptor, len(registry))
	copy(out, registry)
	return out
}

// ParseChainID accepts a chain identifier in decimal or 0x-hex string form.
func ParseChainID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty chain id")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		id, err := strconv.ParseInt(s[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid hex chain id %q: %w", s, err)
		}
		return id, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chain id %q: %w", s, err)
	}
	return id, nil
}

// Lookup returns the descriptor for a numeric chain id.
func Lookup(chainID int64) (Descriptor, bool) {
	for _, d := range registry {
		if d.ChainID == chainID {
			return d, true
		}
	}
	return Descriptor{}, false
}

// LookupString parses a decimal or hex chain identifier and looks it up.
func LookupString(s string) (Descriptor, bool) {
	id, err := ParseChainID(s)
	if err != nil {
		return Descriptor{}, false
	}
	return Lookup(id)
}

// Name returns the display name for a chain, "Unknown" when unregistered.
func Name(chainID int64) string {
	if d, ok := Lookup(chainID); ok {
		return d.Name
	}
	return unknownName
}

// Color returns the display color for a chain, a neutral gray when
// unregistered.
func Color(chainID int64) string {
	if d, ok := Lookup(chainID); ok {
		return d.Color
	}
	return neutralColor
}

// ExplorerBase returns the block explorer root for a chain, empty when none
// is registered.
func ExplorerBase(chainID int64) string {
	if d, ok := Lookup(chainID); ok && len(d.ExplorerURLs) > 0 {
		return strings.TrimRight(d.ExplorerURLs[0], "/")
	}
	return ""
}

// IsTestnet reports whether a chain is registered as a testnet.
func IsTestnet(chainID int64) bool {
	d, ok := Lookup(chainID)
	return ok && d.Testnet
}

// HexChainID formats a numeric chain id the way wallet switch requests
// expect it.
func HexChainID(chainID int64) string {
	return "0x" + strconv.FormatInt(chainID, 16)
}
