package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletkit/pkg/logging"
	"github.com/DeBrosOfficial/walletkit/pkg/metrics"
	"github.com/DeBrosOfficial/walletkit/pkg/siwe/server"
)

func main() {
	cfg, err := parseServerConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "siwe-server: %v\n", err)
		os.Exit(2)
	}

	opts := cfg.Logging.LoggerOptions()
	logger, err := logging.NewLogger(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "siwe-server: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logLoaded(logger, cfg)

	store, err := cfg.OpenSessionStore()
	if err != nil {
		logger.ComponentError(logging.ComponentSIWE, "Failed to open session store", zap.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv, err := server.New(server.Config{
		ListenAddr:   cfg.SIWE.ListenAddr,
		Domain:       cfg.SIWE.Domain,
		SessionTTL:   cfg.SIWE.SessionTTL,
		CookieName:   cfg.SIWE.CookieName,
		SecureCookie: cfg.SIWE.SecureCookie,
		Store:        store,
		Logger:       logger,
		Metrics:      metrics.New(reg),
	})
	if err != nil {
		logger.ComponentError(logging.ComponentSIWE, "Failed to initialize server", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.ComponentError(logging.ComponentSIWE, "SIWE server error", zap.Error(err))
		os.Exit(1)
	}
	logger.ComponentInfo(logging.ComponentSIWE, "SIWE server shutdown complete")
}
