package client

import (
	"github.com/ethereum/go-ethereum/common"
)

// Status is the connection status of the client.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusReconnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusReconnecting:
		return "reconnecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// State is a snapshot of the client's connection.
type State struct {
	Status    Status         `json:"status"`
	Account   common.Address `json:"account"`
	ChainID   int64          `json:"chainId"`
	Connector string         `json:"connector,omitempty"` // active connector id
}

// IsConnected reports whether an account is available.
func (s State) IsConnected() bool {
	return s.Status == StatusConnected
}

// persistedState is written to storage on every connection change.
type persistedState struct {
	Connector string         `json:"connector"`
	Account   common.Address `json:"account"`
	ChainID   int64          `json:"chainId"`
}
