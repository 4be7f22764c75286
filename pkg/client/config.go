package client

import (
	"fmt"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/connectors"
	"github.com/DeBrosOfficial/walletkit/pkg/logging"
	"github.com/DeBrosOfficial/walletkit/pkg/metrics"
	"github.com/DeBrosOfficial/walletkit/pkg/storage"
)

// Config holds everything a Client is built from.
type Config struct {
	// AutoConnect records that the application wants the last connector
	// restored on startup. The caller still invokes AutoConnect.
	AutoConnect bool

	Connectors []connectors.Connector
	Chains     *chains.Configured
	Storage    *storage.Storage // defaults to in-memory storage
	ENS        ENSResolver      // optional

	Logger  *logging.ColoredLogger
	Metrics *metrics.Metrics
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if c.Chains == nil || len(c.Chains.Chains) == 0 {
		return fmt.Errorf("at least one configured chain is required")
	}
	seen := make(map[string]bool, len(c.Connectors))
	for _, conn := range c.Connectors {
		if conn == nil {
			return fmt.Errorf("nil connector")
		}
		if seen[conn.ID()] {
			return fmt.Errorf("duplicate connector id %q", conn.ID())
		}
		seen[conn.ID()] = true
	}
	return nil
}
