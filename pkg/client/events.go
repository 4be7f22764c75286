package client

import (
	"context"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletkit/pkg/connectors"
	"github.com/DeBrosOfficial/walletkit/pkg/logging"
)

// drainEvents discards notifications a connector raised while inactive.
func drainEvents(conn connectors.Connector) {
	ch := conn.Events()
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// watchConnector applies wallet-originated events of the active connector
// until stop is closed or the wallet disconnects.
func (c *Client) watchConnector(conn connectors.Connector, stop <-chan struct{}) {
	events := conn.Events()
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if done := c.handleEvent(conn, ev, stop); done {
				return
			}
		}
	}
}

func (c *Client) handleEvent(conn connectors.Connector, ev connectors.Event, stop <-chan struct{}) (done bool) {
	// events racing a Disconnect are dropped
	select {
	case <-stop:
		return true
	default:
	}

	switch ev.Type {
	case connectors.EventChange:
		c.setState(func(s *State) {
			if s.Status != StatusConnected || s.Connector != conn.ID() {
				return
			}
			if ev.Account != nil {
				s.Account = *ev.Account
			}
			if ev.ChainID != 0 {
				s.ChainID = ev.ChainID
			}
		})
		c.persist(context.Background(), true)
		c.logger.ComponentDebug(logging.ComponentClient, "Connector changed",
			zap.String("connector", conn.ID()), zap.Int64("chain_id", c.State().ChainID))

	case connectors.EventDisconnect:
		c.mu.Lock()
		if c.active != conn {
			c.mu.Unlock()
			return true
		}
		c.active = nil
		c.stopEvent = nil
		c.mu.Unlock()
		c.reset()
		c.persist(context.Background(), false)
		c.logger.ComponentInfo(logging.ComponentClient, "Wallet disconnected", zap.String("connector", conn.ID()))
		return true

	case connectors.EventError:
		c.logger.ComponentWarn(logging.ComponentClient, "Connector error",
			zap.String("connector", conn.ID()), zap.Error(ev.Err))
	}
	return false
}
