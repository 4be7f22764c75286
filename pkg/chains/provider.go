package chains

import (
	"strings"
)

// ProviderConfig is the resolved endpoint set for one chain.
type ProviderConfig struct {
	HTTP      string
	WebSocket string
}

// ProviderFunc resolves endpoints for a chain. It returns false when the
// provider does not serve that chain, letting the next provider try.
type ProviderFunc func(chain Chain) (ProviderConfig, bool)

func first(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	return strings.TrimSpace(urls[0])
}

// PublicProvider serves every chain that carries public RPC URLs.
func PublicProvider() ProviderFunc {
	return func(chain Chain) (ProviderConfig, bool) {
		ep, ok := chain.RPCURLs[RPCPublic]
		if !ok || first(ep.HTTP) == "" {
			return ProviderConfig{}, false
		}
		return ProviderConfig{HTTP: first(ep.HTTP), WebSocket: first(ep.WebSocket)}, true
	}
}

// JSONRPCProvider delegates URL selection to fn. Returning an empty HTTP URL
// skips the chain.
func JSONRPCProvider(fn func(chain Chain) ProviderConfig) ProviderFunc {
	return func(chain Chain) (ProviderConfig, bool) {
		cfg := fn(chain)
		if strings.TrimSpace(cfg.HTTP) == "" {
			return ProviderConfig{}, false
		}
		return cfg, true
	}
}

// keyedProvider appends an API key to a chain's URL family.
func keyedProvider(family, apiKey string) ProviderFunc {
	return func(chain Chain) (ProviderConfig, bool) {
		if apiKey == "" {
			return ProviderConfig{}, false
		}
		ep, ok := chain.RPCURLs[family]
		if !ok || first(ep.HTTP) == "" {
			return ProviderConfig{}, false
		}
		cfg := ProviderConfig{HTTP: first(ep.HTTP) + "/" + apiKey}
		if ws := first(ep.WebSocket); ws != "" {
			cfg.WebSocket = ws + "/" + apiKey
		}
		return cfg, true
	}
}

// AlchemyProvider serves chains with alchemy URLs using apiKey.
func AlchemyProvider(apiKey string) ProviderFunc {
	return keyedProvider(RPCAlchemy, apiKey)
}

// InfuraProvider serves chains with infura URLs using apiKey.
func InfuraProvider(apiKey string) ProviderFunc {
	return keyedProvider(RPCInfura, apiKey)
}
