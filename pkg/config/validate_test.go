package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if errs := DefaultConfig().Validate(); len(errs) > 0 {
		t.Fatalf("default config has errors: %v", errs)
	}
}

func TestValidateChains(t *testing.T) {
	tests := []struct {
		name        string
		enabled     []int64
		rpcURLs     map[int64]string
		shouldError bool
	}{
		{"mainnet", []int64{1}, nil, false},
		{"several", []int64{1, 10, 8453}, nil, false},
		{"empty", []int64{}, nil, true},
		{"unknown id", []int64{999999}, nil, true},
		{"duplicate", []int64{1, 1}, nil, true},
		{"custom rpc", []int64{31337}, map[int64]string{31337: "http://127.0.0.1:8545"}, false},
		{"custom rpc bad scheme", []int64{31337}, map[int64]string{31337: "ftp://127.0.0.1"}, true},
		{"custom rpc for disabled chain", []int64{1}, map[int64]string{10: "https://opt.example"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Chains.Enabled = tt.enabled
			cfg.Chains.RPCURLs = tt.rpcURLs
			errs := cfg.Validate()
			if tt.shouldError && len(errs) == 0 {
				t.Errorf("expected error, got none")
			}
			if !tt.shouldError && len(errs) > 0 {
				t.Errorf("unexpected errors: %v", errs)
			}
		})
	}
}

func TestValidateStorageBackend(t *testing.T) {
	tests := []struct {
		name        string
		backend     string
		path        string
		servers     []string
		shouldError bool
	}{
		{"memory", "memory", "", nil, false},
		{"sqlite", "sqlite", "/tmp/walletkit.db", nil, false},
		{"sqlite without path", "sqlite", "", nil, true},
		{"file", "file", t.TempDir(), nil, false},
		{"olric", "olric", "", []string{"localhost:3320"}, false},
		{"olric bad server", "olric", "", []string{"localhost"}, true},
		{"olric no servers", "olric", "", []string{}, true},
		{"unknown", "redis", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Storage.Backend = tt.backend
			cfg.Storage.Path = tt.path
			cfg.Storage.OlricServers = tt.servers
			errs := cfg.Validate()
			if tt.shouldError && len(errs) == 0 {
				t.Errorf("expected error, got none")
			}
			if !tt.shouldError && len(errs) > 0 {
				t.Errorf("unexpected errors: %v", errs)
			}
		})
	}
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "verbose"
	cfg.Client.PollingInterval = 0
	cfg.SIWE.SessionBackend = "redis"
	cfg.Providers.Public = false

	errs := cfg.Validate()
	if len(errs) != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", len(errs), errs)
	}

	paths := make([]string, 0, len(errs))
	for _, err := range errs {
		paths = append(paths, err.(ValidationError).Path)
	}
	joined := strings.Join(paths, ",")
	for _, want := range []string{"logging.level", "client.polling_interval", "siwe.session_backend", "providers"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing error for %s in %s", want, joined)
		}
	}
}

func TestValidatePollingIntervalTooSmall(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Client.PollingInterval = 10 * time.Millisecond
	errs := cfg.Validate()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	if !strings.Contains(errs[0].Error(), "100ms") {
		t.Errorf("expected hint in error, got %q", errs[0].Error())
	}
}

func TestValidateSIWEListenAddr(t *testing.T) {
	for _, addr := range []string{":3000", "127.0.0.1:8080", "localhost:0"} {
		cfg := DefaultConfig()
		cfg.SIWE.ListenAddr = addr
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("%s: unexpected errors: %v", addr, errs)
		}
	}
	for _, addr := range []string{"3000", "host:port", ":70000"} {
		cfg := DefaultConfig()
		cfg.SIWE.ListenAddr = addr
		if errs := cfg.Validate(); len(errs) == 0 {
			t.Errorf("%s: expected error", addr)
		}
	}
}
