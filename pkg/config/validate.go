package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
)

// ValidationError represents a single validation error with context.
type ValidationError struct {
	Path    string // e.g., "chains.rpc_urls[1]"
	Message string // e.g., "invalid URL"
	Hint    string // e.g., "expected http(s):// or ws(s)://"
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s; %s", e.Path, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate performs comprehensive validation of the entire config.
// It aggregates all errors and returns them, allowing the caller to print all issues at once.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateChains()...)
	errs = append(errs, c.validateProviders()...)
	errs = append(errs, c.validateClient()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateSIWE()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

func (c *Config) validateChains() []error {
	var errs []error
	cc := c.Chains

	if len(cc.Enabled) == 0 {
		errs = append(errs, ValidationError{
			Path:    "chains.enabled",
			Message: "must not be empty",
			Hint:    "list at least one chain id, e.g. [1]",
		})
	}

	seen := make(map[int64]bool)
	for i, id := range cc.Enabled {
		path := fmt.Sprintf("chains.enabled[%d]", i)
		if _, ok := chains.Lookup(id); !ok {
			errs = append(errs, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("unknown chain id %d", id),
				Hint:    "see `walletkit chains` for supported ids",
			})
		}
		if seen[id] {
			errs = append(errs, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("duplicate chain id %d", id),
			})
		}
		seen[id] = true
	}

	for id, u := range cc.RPCURLs {
		if err := validateURL(u, "http", "https", "ws", "wss"); err != nil {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("chains.rpc_urls[%d]", id),
				Message: err.Error(),
				Hint:    "expected http(s):// or ws(s)://",
			})
		}
		if !seen[id] {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("chains.rpc_urls[%d]", id),
				Message: "chain is not enabled",
			})
		}
	}
	for id, u := range cc.WSURLs {
		if err := validateURL(u, "ws", "wss"); err != nil {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("chains.ws_urls[%d]", id),
				Message: err.Error(),
				Hint:    "expected ws(s)://",
			})
		}
		if _, ok := cc.RPCURLs[id]; !ok {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("chains.ws_urls[%d]", id),
				Message: "websocket endpoint without an rpc_urls entry",
			})
		}
	}

	return errs
}

func (c *Config) validateProviders() []error {
	p := c.Providers
	if !p.Public && p.AlchemyKey == "" && p.InfuraKey == "" && len(c.Chains.RPCURLs) == 0 {
		return []error{ValidationError{
			Path:    "providers",
			Message: "no provider configured",
			Hint:    "enable providers.public or set chains.rpc_urls",
		}}
	}
	return nil
}

func (c *Config) validateClient() []error {
	var errs []error
	cc := c.Client

	if cc.PollingInterval <= 0 {
		errs = append(errs, ValidationError{
			Path:    "client.polling_interval",
			Message: fmt.Sprintf("must be positive; got %v", cc.PollingInterval),
		})
	} else if cc.PollingInterval < 100*time.Millisecond {
		errs = append(errs, ValidationError{
			Path:    "client.polling_interval",
			Message: fmt.Sprintf("too small: %v", cc.PollingInterval),
			Hint:    "use at least 100ms to avoid hammering the RPC endpoint",
		})
	}
	if cc.StaleTime < 0 {
		errs = append(errs, ValidationError{
			Path:    "client.stale_time",
			Message: "must not be negative",
		})
	}
	if cc.CacheTime < 0 {
		errs = append(errs, ValidationError{
			Path:    "client.cache_time",
			Message: "must not be negative",
		})
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error
	sc := c.Storage

	switch sc.Backend {
	case "memory":
	case "file", "sqlite":
		if sc.Path == "" {
			errs = append(errs, ValidationError{
				Path:    "storage.path",
				Message: fmt.Sprintf("required for the %s backend", sc.Backend),
			})
		} else if sc.Backend == "file" {
			if err := validateDataDir(sc.Path); err != nil {
				errs = append(errs, ValidationError{Path: "storage.path", Message: err.Error()})
			}
		}
	case "olric":
		if len(sc.OlricServers) == 0 {
			errs = append(errs, ValidationError{
				Path:    "storage.olric_servers",
				Message: "must not be empty for the olric backend",
			})
		}
		for i, s := range sc.OlricServers {
			if err := validateHostPort(s); err != nil {
				errs = append(errs, ValidationError{
					Path:    fmt.Sprintf("storage.olric_servers[%d]", i),
					Message: err.Error(),
				})
			}
		}
	default:
		errs = append(errs, ValidationError{
			Path:    "storage.backend",
			Message: fmt.Sprintf("invalid value %q", sc.Backend),
			Hint:    "allowed values: memory, file, sqlite, olric",
		})
	}

	if strings.ContainsAny(sc.KeyPrefix, " \t\n") {
		errs = append(errs, ValidationError{
			Path:    "storage.key_prefix",
			Message: "must not contain whitespace",
		})
	}

	return errs
}

func (c *Config) validateSIWE() []error {
	var errs []error
	sc := c.SIWE

	if sc.ListenAddr != "" {
		if _, port, err := net.SplitHostPort(sc.ListenAddr); err != nil {
			errs = append(errs, ValidationError{
				Path:    "siwe.listen_addr",
				Message: err.Error(),
				Hint:    "expected host:port or :port",
			})
		} else if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
			errs = append(errs, ValidationError{
				Path:    "siwe.listen_addr",
				Message: fmt.Sprintf("invalid port %q", port),
			})
		}
	}
	if sc.SessionTTL <= 0 {
		errs = append(errs, ValidationError{
			Path:    "siwe.session_ttl",
			Message: "must be positive",
		})
	}
	switch sc.SessionBackend {
	case "memory":
	case "sqlite":
		if sc.SessionPath == "" {
			errs = append(errs, ValidationError{
				Path:    "siwe.session_path",
				Message: "required for the sqlite session backend",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Path:    "siwe.session_backend",
			Message: fmt.Sprintf("invalid value %q", sc.SessionBackend),
			Hint:    "allowed values: memory, sqlite",
		})
	}
	if sc.CookieName == "" {
		errs = append(errs, ValidationError{
			Path:    "siwe.cookie_name",
			Message: "must not be empty",
		})
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error
	log := c.Logging

	// Validate level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[log.Level] {
		errs = append(errs, ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("invalid value %q", log.Level),
			Hint:    "allowed values: debug, info, warn, error",
		})
	}

	// Validate output_file
	if log.OutputFile != "" {
		dir := filepath.Dir(log.OutputFile)
		if dir != "" && dir != "." {
			if err := validateDirWritable(dir); err != nil {
				errs = append(errs, ValidationError{
					Path:    "logging.output_file",
					Message: fmt.Sprintf("parent directory not writable: %v", err),
				})
			}
		}
	}

	return errs
}

// Helper validation functions

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("unsupported scheme %q", u.Scheme)
}

func validateDataDir(path string) error {
	if path == "" {
		return fmt.Errorf("must not be empty")
	}

	// Expand ~ to home directory
	expandedPath := os.ExpandEnv(path)
	if strings.HasPrefix(expandedPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %v", err)
		}
		expandedPath = filepath.Join(home, expandedPath[1:])
	}

	info, err := os.Stat(expandedPath)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("path exists but is not a directory")
		}
		return validateDirWritable(expandedPath)
	case os.IsNotExist(err):
		// created at runtime
		return nil
	default:
		return fmt.Errorf("cannot access path: %v", err)
	}
}

func validateDirWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access directory: %v", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory")
	}

	// Try to write a test file
	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte(""), 0644); err != nil {
		return fmt.Errorf("directory not writable: %v", err)
	}
	os.Remove(testFile)

	return nil
}

func validateHostPort(hostPort string) error {
	host, port, err := net.SplitHostPort(hostPort)
	if err != nil {
		return fmt.Errorf("expected format host:port")
	}
	if host == "" {
		return fmt.Errorf("host must not be empty")
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 1 || portNum > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535; got %q", port)
	}
	return nil
}
