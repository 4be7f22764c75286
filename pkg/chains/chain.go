// Package chains defines EVM chain descriptors, RPC provider strategies and
// the per-chain public clients used by the rest of walletkit.
package chains

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// NativeCurrency describes a chain's gas token.
type NativeCurrency struct {
	Name     string `json:"name" yaml:"name"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals uint8  `json:"decimals" yaml:"decimals"`
}

// RPCEndpoints groups HTTP and WebSocket endpoints for one provider family.
type RPCEndpoints struct {
	HTTP      []string `json:"http" yaml:"http"`
	WebSocket []string `json:"webSocket,omitempty" yaml:"web_socket"`
}

// BlockExplorer is a human-facing explorer for a chain.
type BlockExplorer struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

// Contracts lists well-known contract deployments on a chain.
type Contracts struct {
	ENSRegistry common.Address `json:"ensRegistry,omitempty" yaml:"ens_registry"`
	Multicall3  common.Address `json:"multicall3,omitempty" yaml:"multicall3"`
}

// Chain describes an EVM network.
type Chain struct {
	ID             int64                   `json:"id" yaml:"id"`
	Name           string                  `json:"name" yaml:"name"`
	Network        string                  `json:"network" yaml:"network"`
	NativeCurrency NativeCurrency          `json:"nativeCurrency" yaml:"native_currency"`
	RPCURLs        map[string]RPCEndpoints `json:"rpcUrls" yaml:"rpc_urls"`
	BlockExplorers []BlockExplorer         `json:"blockExplorers,omitempty" yaml:"block_explorers"`
	Contracts      Contracts               `json:"contracts" yaml:"contracts"`
	Testnet        bool                    `json:"testnet,omitempty" yaml:"testnet"`
}

// RPC URL families
const (
	RPCDefault = "default"
	RPCPublic  = "public"
	RPCAlchemy = "alchemy"
	RPCInfura  = "infura"
)

var ether = NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18}

var (
	ensRegistry = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")
	multicall3  = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")
)

var (
	Mainnet = Chain{
		ID:             1,
		Name:           "Ethereum",
		Network:        "homestead",
		NativeCurrency: ether,
		RPCURLs: map[string]RPCEndpoints{
			RPCDefault: {HTTP: []string{"https://cloudflare-eth.com"}},
			RPCPublic:  {HTTP: []string{"https://cloudflare-eth.com"}},
			RPCAlchemy: {HTTP: []string{"https://eth-mainnet.g.alchemy.com/v2"}, WebSocket: []string{"wss://eth-mainnet.g.alchemy.com/v2"}},
			RPCInfura:  {HTTP: []string{"https://mainnet.infura.io/v3"}, WebSocket: []string{"wss://mainnet.infura.io/ws/v3"}},
		},
		BlockExplorers: []BlockExplorer{{Name: "Etherscan", URL: "https://etherscan.io"}},
		Contracts:      Contracts{ENSRegistry: ensRegistry, Multicall3: multicall3},
	}

	Sepolia = Chain{
		ID:             11155111,
		Name:           "Sepolia",
		Network:        "sepolia",
		NativeCurrency: NativeCurrency{Name: "Sepolia Ether", Symbol: "SEP", Decimals: 18},
		RPCURLs: map[string]RPCEndpoints{
			RPCDefault: {HTTP: []string{"https://rpc.sepolia.org"}},
			RPCPublic:  {HTTP: []string{"https://rpc.sepolia.org"}},
			RPCAlchemy: {HTTP: []string{"https://eth-sepolia.g.alchemy.com/v2"}, WebSocket: []string{"wss://eth-sepolia.g.alchemy.com/v2"}},
			RPCInfura:  {HTTP: []string{"https://sepolia.infura.io/v3"}, WebSocket: []string{"wss://sepolia.infura.io/ws/v3"}},
		},
		BlockExplorers: []BlockExplorer{{Name: "Etherscan", URL: "https://sepolia.etherscan.io"}},
		Contracts:      Contracts{ENSRegistry: ensRegistry, Multicall3: multicall3},
		Testnet:        true,
	}

	Goerli = Chain{
		ID:             5,
		Name:           "Goerli",
		Network:        "goerli",
		NativeCurrency: NativeCurrency{Name: "Goerli Ether", Symbol: "ETH", Decimals: 18},
		RPCURLs: map[string]RPCEndpoints{
			RPCDefault: {HTTP: []string{"https://rpc.ankr.com/eth_goerli"}},
			RPCPublic:  {HTTP: []string{"https://rpc.ankr.com/eth_goerli"}},
			RPCAlchemy: {HTTP: []string{"https://eth-goerli.g.alchemy.com/v2"}, WebSocket: []string{"wss://eth-goerli.g.alchemy.com/v2"}},
			RPCInfura:  {HTTP: []string{"https://goerli.infura.io/v3"}, WebSocket: []string{"wss://goerli.infura.io/ws/v3"}},
		},
		BlockExplorers: []BlockExplorer{{Name: "Etherscan", URL: "https://goerli.etherscan.io"}},
		Contracts:      Contracts{ENSRegistry: ensRegistry, Multicall3: multicall3},
		Testnet:        true,
	}

	Optimism = Chain{
		ID:             10,
		Name:           "OP Mainnet",
		Network:        "optimism",
		NativeCurrency: ether,
		RPCURLs: map[string]RPCEndpoints{
			RPCDefault: {HTTP: []string{"https://mainnet.optimism.io"}},
			RPCPublic:  {HTTP: []string{"https://mainnet.optimism.io"}},
			RPCAlchemy: {HTTP: []string{"https://opt-mainnet.g.alchemy.com/v2"}, WebSocket: []string{"wss://opt-mainnet.g.alchemy.com/v2"}},
			RPCInfura:  {HTTP: []string{"https://optimism-mainnet.infura.io/v3"}, WebSocket: []string{"wss://optimism-mainnet.infura.io/ws/v3"}},
		},
		BlockExplorers: []BlockExplorer{{Name: "Etherscan", URL: "https://optimistic.etherscan.io"}},
		Contracts:      Contracts{Multicall3: multicall3},
	}

	Polygon = Chain{
		ID:             137,
		Name:           "Polygon",
		Network:        "matic",
		NativeCurrency: NativeCurrency{Name: "MATIC", Symbol: "MATIC", Decimals: 18},
		RPCURLs: map[string]RPCEndpoints{
			RPCDefault: {HTTP: []string{"https://polygon-rpc.com"}},
			RPCPublic:  {HTTP: []string{"https://polygon-rpc.com"}},
			RPCAlchemy: {HTTP: []string{"https://polygon-mainnet.g.alchemy.com/v2"}, WebSocket: []string{"wss://polygon-mainnet.g.alchemy.com/v2"}},
			RPCInfura:  {HTTP: []string{"https://polygon-mainnet.infura.io/v3"}, WebSocket: []string{"wss://polygon-mainnet.infura.io/ws/v3"}},
		},
		BlockExplorers: []BlockExplorer{{Name: "PolygonScan", URL: "https://polygonscan.com"}},
		Contracts:      Contracts{Multicall3: multicall3},
	}

	Arbitrum = Chain{
		ID:             42161,
		Name:           "Arbitrum One",
		Network:        "arbitrum",
		NativeCurrency: ether,
		RPCURLs: map[string]RPCEndpoints{
			RPCDefault: {HTTP: []string{"https://arb1.arbitrum.io/rpc"}},
			RPCPublic:  {HTTP: []string{"https://arb1.arbitrum.io/rpc"}},
			RPCAlchemy: {HTTP: []string{"https://arb-mainnet.g.alchemy.com/v2"}, WebSocket: []string{"wss://arb-mainnet.g.alchemy.com/v2"}},
			RPCInfura:  {HTTP: []string{"https://arbitrum-mainnet.infura.io/v3"}, WebSocket: []string{"wss://arbitrum-mainnet.infura.io/ws/v3"}},
		},
		BlockExplorers: []BlockExplorer{{Name: "Arbiscan", URL: "https://arbiscan.io"}},
		Contracts:      Contracts{Multicall3: multicall3},
	}

	Base = Chain{
		ID:             8453,
		Name:           "Base",
		Network:        "base",
		NativeCurrency: ether,
		RPCURLs: map[string]RPCEndpoints{
			RPCDefault: {HTTP: []string{"https://mainnet.base.org"}},
			RPCPublic:  {HTTP: []string{"https://mainnet.base.org"}},
			RPCAlchemy: {HTTP: []string{"https://base-mainnet.g.alchemy.com/v2"}, WebSocket: []string{"wss://base-mainnet.g.alchemy.com/v2"}},
		},
		BlockExplorers: []BlockExplorer{{Name: "Basescan", URL: "https://basescan.org"}},
		Contracts:      Contracts{Multicall3: multicall3},
	}

	Foundry = Chain{
		ID:             31337,
		Name:           "Foundry",
		Network:        "foundry",
		NativeCurrency: ether,
		RPCURLs: map[string]RPCEndpoints{
			RPCDefault: {HTTP: []string{"http://127.0.0.1:8545"}, WebSocket: []string{"ws://127.0.0.1:8545"}},
			RPCPublic:  {HTTP: []string{"http://127.0.0.1:8545"}, WebSocket: []string{"ws://127.0.0.1:8545"}},
		},
		Testnet: true,
	}

	Localhost = Chain{
		ID:             1337,
		Name:           "Localhost",
		Network:        "localhost",
		NativeCurrency: ether,
		RPCURLs: map[string]RPCEndpoints{
			RPCDefault: {HTTP: []string{"http://127.0.0.1:8545"}},
			RPCPublic:  {HTTP: []string{"http://127.0.0.1:8545"}},
		},
		Testnet: true,
	}
)

var known = map[int64]Chain{}

func init() {
	for _, c := range []Chain{Mainnet, Sepolia, Goerli, Optimism, Polygon, Arbitrum, Base, Foundry, Localhost} {
		known[c.ID] = c
	}
}

// Lookup returns a well-known chain by id.
func Lookup(id int64) (Chain, bool) {
	c, ok := known[id]
	return c, ok
}

// Known returns all well-known chains ordered by id.
func Known() []Chain {
	out := make([]Chain, 0, len(known))
	for _, c := range known {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Find returns the chain with id from list.
func Find(list []Chain, id int64) (Chain, bool) {
	for _, c := range list {
		if c.ID == id {
			return c, true
		}
	}
	return Chain{}, false
}
