package config

import (
	"fmt"
	"os"
	"time"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/logging"
)

// Config is the walletkit configuration file.
type Config struct {
	Chains    ChainsConfig    `yaml:"chains"`
	Providers ProvidersConfig `yaml:"providers"`
	Client    ClientConfig    `yaml:"client"`
	Storage   StorageConfig   `yaml:"storage"`
	SIWE      SIWEConfig      `yaml:"siwe"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ChainsConfig selects the chains the client is configured for.
type ChainsConfig struct {
	Enabled []int64          `yaml:"enabled"`  // chain ids; must be known chains
	RPCURLs map[int64]string `yaml:"rpc_urls"` // custom JSON-RPC endpoint per chain id
	WSURLs  map[int64]string `yaml:"ws_urls"`  // optional websocket endpoint per chain id
}

// ProvidersConfig lists the RPC providers in fallback order: custom
// endpoints, alchemy, infura, then public.
type ProvidersConfig struct {
	Public     bool   `yaml:"public"`
	AlchemyKey string `yaml:"alchemy_key"`
	InfuraKey  string `yaml:"infura_key"`
}

// ClientConfig configures the client handle and its query cache.
type ClientConfig struct {
	AutoConnect     bool          `yaml:"auto_connect"`
	PollingInterval time.Duration `yaml:"polling_interval"`
	StaleTime       time.Duration `yaml:"stale_time"`
	CacheTime       time.Duration `yaml:"cache_time"`
}

// StorageConfig selects where client state is persisted.
type StorageConfig struct {
	Backend      string        `yaml:"backend"`    // memory, file, sqlite, olric
	KeyPrefix    string        `yaml:"key_prefix"` // defaults to "walletkit"
	Path         string        `yaml:"path"`       // directory (file) or database path (sqlite)
	OlricServers []string      `yaml:"olric_servers"`
	OlricDMap    string        `yaml:"olric_dmap"`
	OlricTimeout time.Duration `yaml:"olric_timeout"`
}

// SIWEConfig configures the sign-in backend.
type SIWEConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	Domain         string        `yaml:"domain"`          // expected message domain; empty accepts any
	SessionTTL     time.Duration `yaml:"session_ttl"`
	SessionBackend string        `yaml:"session_backend"` // memory, sqlite
	SessionPath    string        `yaml:"session_path"`    // sqlite database path
	CookieName     string        `yaml:"cookie_name"`
	SecureCookie   bool          `yaml:"secure_cookie"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Chains: ChainsConfig{
			Enabled: []int64{chains.Mainnet.ID, chains.Sepolia.ID},
			RPCURLs: map[int64]string{},
			WSURLs:  map[int64]string{},
		},
		Providers: ProvidersConfig{
			Public: true,
		},
		Client: ClientConfig{
			AutoConnect:     false,
			PollingInterval: chains.DefaultPollingInterval,
			StaleTime:       0,
			CacheTime:       24 * time.Hour,
		},
		Storage: StorageConfig{
			Backend:      "memory",
			KeyPrefix:    "walletkit",
			OlricServers: []string{"localhost:3320"},
			OlricDMap:    "walletkit",
			OlricTimeout: 10 * time.Second,
		},
		SIWE: SIWEConfig{
			ListenAddr:     ":3000",
			SessionTTL:     24 * time.Hour,
			SessionBackend: "memory",
			CookieName:     "siwe_session",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Colors: true,
		},
	}
}

// Load reads the YAML file at path over DefaultConfig. Unknown keys are an
// error.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	if err := DecodeStrict(f, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ChainList resolves the enabled chain ids to chain definitions.
func (c *Config) ChainList() ([]chains.Chain, error) {
	list := make([]chains.Chain, 0, len(c.Chains.Enabled))
	for _, id := range c.Chains.Enabled {
		ch, ok := chains.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("unknown chain id %d", id)
		}
		list = append(list, ch)
	}
	return list, nil
}

// ProviderList builds the configured providers in fallback order.
func (c *Config) ProviderList() []chains.ProviderFunc {
	var providers []chains.ProviderFunc
	if len(c.Chains.RPCURLs) > 0 {
		rpcURLs, wsURLs := c.Chains.RPCURLs, c.Chains.WSURLs
		providers = append(providers, chains.JSONRPCProvider(func(ch chains.Chain) chains.ProviderConfig {
			return chains.ProviderConfig{HTTP: rpcURLs[ch.ID], WebSocket: wsURLs[ch.ID]}
		}))
	}
	if c.Providers.AlchemyKey != "" {
		providers = append(providers, chains.AlchemyProvider(c.Providers.AlchemyKey))
	}
	if c.Providers.InfuraKey != "" {
		providers = append(providers, chains.InfuraProvider(c.Providers.InfuraKey))
	}
	if c.Providers.Public {
		providers = append(providers, chains.PublicProvider())
	}
	return providers
}

// ConfigureChains resolves chains and providers into a chains.Configured.
// opts are applied after the configured polling interval.
func (c *Config) ConfigureChains(opts ...chains.Option) (*chains.Configured, error) {
	list, err := c.ChainList()
	if err != nil {
		return nil, err
	}
	opts = append([]chains.Option{chains.WithPollingInterval(c.Client.PollingInterval)}, opts...)
	return chains.ConfigureChains(list, c.ProviderList(), opts...)
}

// LoggerOptions converts the logging section for logging.NewLogger.
func (l LoggingConfig) LoggerOptions() logging.Options {
	return logging.Options{Level: l.Level, Colors: l.Colors, File: l.OutputFile}
}
