package wallet

import "evmwallet/pkg/models"

// Status is the synchronizer's connection state.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// EventType defines the type of event being broadcast.
type EventType string

const (
	// EventStateUpdated carries a fresh wallet snapshot. One is published
	// for every state transition and for every balance change.
	EventStateUpdated EventType = "state_updated"
)

// Event represents a wallet state change.
type Event struct {
	Type   EventType          `json:"type"`
	Status Status             `json:"-"`
	State  models.WalletState `json:"state"`
}

// Subscriber is a channel that receives events.
type Subscriber chan Event
