package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletkit/pkg/config"
	"github.com/DeBrosOfficial/walletkit/pkg/logging"
)

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// parseServerConfig resolves the siwe section from an optional config file,
// then environment variables, then flags.
// Priority: flags > env > file > defaults.
func parseServerConfig(args []string) (*config.Config, error) {
	fs := flag.NewFlagSet("siwe-server", flag.ContinueOnError)
	configPath := fs.String("config", getEnvDefault("SIWE_CONFIG", ""), "Optional walletkit YAML config file")

	// The config file supplies the defaults for the remaining flags, so it
	// is resolved in a first pass.
	_ = fs.Parse(filterConfigFlag(args))
	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	sc := &cfg.SIWE

	fs = flag.NewFlagSet("siwe-server", flag.ContinueOnError)
	fs.String("config", *configPath, "Optional walletkit YAML config file")
	addr := fs.String("addr", getEnvDefault("SIWE_ADDR", sc.ListenAddr), "HTTP listen address (e.g., :3000)")
	domain := fs.String("domain", getEnvDefault("SIWE_DOMAIN", sc.Domain), "Expected message domain; empty accepts any")
	ttl := fs.Duration("session-ttl", getEnvDurationDefault("SIWE_SESSION_TTL", sc.SessionTTL), "Session lifetime")
	backend := fs.String("session-backend", getEnvDefault("SIWE_SESSION_BACKEND", sc.SessionBackend), "Session store: memory or sqlite")
	path := fs.String("session-path", getEnvDefault("SIWE_SESSION_PATH", sc.SessionPath), "SQLite session database path")
	secure := fs.Bool("secure-cookie", getEnvBoolDefault("SIWE_SECURE_COOKIE", sc.SecureCookie), "Mark the session cookie Secure")
	level := fs.String("log-level", getEnvDefault("SIWE_LOG_LEVEL", cfg.Logging.Level), "Log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	sc.ListenAddr = *addr
	sc.Domain = *domain
	sc.SessionTTL = *ttl
	sc.SessionBackend = *backend
	sc.SessionPath = *path
	sc.SecureCookie = *secure
	cfg.Logging.Level = *level

	for _, err := range cfg.Validate() {
		var ve config.ValidationError
		if errors.As(err, &ve) && !strings.HasPrefix(ve.Path, "siwe.") && !strings.HasPrefix(ve.Path, "logging.") {
			continue
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// filterConfigFlag keeps only the -config flag so the first pass does not
// fail on flags it has not declared.
func filterConfigFlag(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		a := strings.TrimLeft(args[i], "-")
		switch {
		case strings.HasPrefix(a, "config="):
			out = append(out, args[i])
		case a == "config" && i+1 < len(args):
			out = append(out, args[i], args[i+1])
			i++
		}
	}
	return out
}

func logLoaded(logger *logging.ColoredLogger, cfg *config.Config) {
	logger.ComponentInfo(logging.ComponentSIWE, "Loaded SIWE server configuration",
		zap.String("addr", cfg.SIWE.ListenAddr),
		zap.String("domain", cfg.SIWE.Domain),
		zap.Duration("session_ttl", cfg.SIWE.SessionTTL),
		zap.String("session_backend", cfg.SIWE.SessionBackend),
	)
}
