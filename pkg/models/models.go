package models

import "time"

// ZeroBalance is the display value a wallet resets to when no session is
// active.
const ZeroBalance = "0.0000"

// BalanceUnavailable is the placeholder shown while the wallet endpoint is
// mid network switch and a balance read cannot be trusted.
const BalanceUnavailable = "..."

// WalletState is the snapshot published by the synchronizer. Address and
// ChainID are zero-valued whenever Connected is false.
type WalletState struct {
	Address   string `json:"address,omitempty"`
	Connected bool   `json:"connected"`
	ChainID   int64  `json:"chain_id,omitempty"`
	Balance   string `json:"balance"`
}

// DisconnectedState returns the canonical reset snapshot.
func DisconnectedState() WalletState {
	return WalletState{Balance: ZeroBalance}
}

// Direction classifies a history entry relative to the wallet address.
type Direction string

const (
	DirectionSend    Direction = "send"
	DirectionReceive Direction = "receive"
	DirectionSelf    Direction = "self"
)

// HistoryEntry is one transaction from the explorer, already classified and
// with the value converted to a display ether string. Entries are rebuilt
// wholesale on every fetch and never mutated.
type HistoryEntry struct {
	Hash      string    `json:"hash"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Failed    bool      `json:"failed"`
	Direction Direction `json:"direction"`
}

// Receipt is the confirmation record for a submitted transfer. Status zero
// means the transaction reverted on chain.
type Receipt struct {
	TxHash      string `json:"tx_hash"`
	Status      uint64 `json:"status"`
	BlockNumber uint64 `json:"block_number"`
}

// EndpointResult holds probe results for the wallet endpoint in config test
// mode.
type EndpointResult struct {
	URL     string `json:"url"`
	Status  string `json:"status"` // "ok" or "error"
	ChainID int64  `json:"chain_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TestReport holds the results of the configuration test.
type TestReport struct {
	ConfigPath      string         `json:"config_path"`
	ValidStructure  bool           `json:"valid_structure"`
	StructureErrors []string       `json:"structure_errors,omitempty"`
	Endpoint        EndpointResult `json:"endpoint"`
	ExplorerURL     string         `json:"explorer_url,omitempty"`
	ExplorerKeySet  bool           `json:"explorer_key_set"`
}
