// Package cli implements the walletkit command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/client"
	"github.com/DeBrosOfficial/walletkit/pkg/config"
	"github.com/DeBrosOfficial/walletkit/pkg/connectors"
	"github.com/DeBrosOfficial/walletkit/pkg/logging"
	"github.com/DeBrosOfficial/walletkit/pkg/provider"
	"github.com/DeBrosOfficial/walletkit/pkg/storage"
)

// version metadata populated via -ldflags at build time
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// dialer replaces the JSON-RPC dialer when set.
var dialer chains.DialFunc

// Options are the global flags shared by every command.
type Options struct {
	ConfigPath string
	ChainID    int64
	Timeout    time.Duration
	Format     string
	LogLevel   string
}

// NewRootCmd builds the walletkit command tree.
func NewRootCmd() *cobra.Command {
	opts := &Options{}
	root := &cobra.Command{
		Use:           "walletkit",
		Short:         "Read chain state and sign with a local wallet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Config file (default ~/.walletkit/walletkit.yaml when present)")
	root.PersistentFlags().Int64Var(&opts.ChainID, "chain", 0, "Chain id (default: first enabled chain)")
	root.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Timeout for RPC calls")
	root.PersistentFlags().StringVar(&opts.Format, "format", "table", "Output format: table or json")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(
		newBalanceCmd(opts),
		newBlockCmd(opts),
		newTokenCmd(opts),
		newChainsCmd(opts),
		newSignCmd(opts),
		newWatchCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func (o *Options) loadConfig() (*config.Config, error) {
	path := o.ConfigPath
	if path == "" {
		def, err := config.DefaultPath("walletkit.yaml")
		if err != nil {
			return config.DefaultConfig(), nil
		}
		if _, err := os.Stat(def); err != nil {
			return config.DefaultConfig(), nil
		}
		path = def
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config %s: %w", path, errors.Join(errs...))
	}
	return cfg, nil
}

// runtime is a client wired from the config file, with a Provider in ctx.
type runtime struct {
	ctx     context.Context
	cfg     *config.Config
	logger  *logging.ColoredLogger
	client  *client.Client
	storage *storage.Storage
	chainID int64
}

// connectorFactory builds the connectors registered on the client once the
// chains are configured.
type connectorFactory func(configured *chains.Configured) ([]connectors.Connector, error)

func (o *Options) open(ctx context.Context, newConnectors connectorFactory) (*runtime, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logOpts := cfg.Logging.LoggerOptions()
	if o.LogLevel != "" {
		logOpts.Level = o.LogLevel
	}
	logger, err := logging.NewLogger(logOpts)
	if err != nil {
		return nil, err
	}

	var chainOpts []chains.Option
	if dialer != nil {
		chainOpts = append(chainOpts, chains.WithDialer(dialer))
	}
	configured, err := cfg.ConfigureChains(chainOpts...)
	if err != nil {
		return nil, err
	}
	chainID := o.ChainID
	if chainID == 0 {
		chainID = configured.Chains[0].ID
	}
	if _, ok := configured.Chain(chainID); !ok {
		configured.Close()
		return nil, fmt.Errorf("chain %d is not enabled in the config", chainID)
	}

	var conns []connectors.Connector
	if newConnectors != nil {
		if conns, err = newConnectors(configured); err != nil {
			configured.Close()
			return nil, err
		}
	}

	st, err := cfg.OpenStorage(logger)
	if err != nil {
		configured.Close()
		return nil, err
	}
	c, err := client.New(&client.Config{
		AutoConnect: cfg.Client.AutoConnect,
		Connectors:  conns,
		Chains:      configured,
		Storage:     st,
		Logger:      logger,
	})
	if err != nil {
		_ = st.Close()
		configured.Close()
		return nil, err
	}
	p, err := provider.New(c, provider.WithQueryClient(cfg.NewQueryClient()))
	if err != nil {
		c.Close()
		_ = st.Close()
		return nil, err
	}

	return &runtime{
		ctx:     provider.NewContext(ctx, p),
		cfg:     cfg,
		logger:  logger,
		client:  c,
		storage: st,
		chainID: chainID,
	}, nil
}

// chain returns the selected chain definition.
func (r *runtime) chain() chains.Chain {
	ch, _ := r.client.Chain(r.chainID)
	return ch
}

func (r *runtime) Close() {
	r.client.Close()
	if err := r.storage.Close(); err != nil {
		r.logger.ComponentWarn(logging.ComponentStorage, "Failed to close storage")
	}
	_ = r.logger.Sync()
}

func (o *Options) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.Timeout)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "walletkit %s", Version)
			if Commit != "" {
				fmt.Fprintf(out, " (commit %s)", Commit)
			}
			if Date != "" {
				fmt.Fprintf(out, " built %s", Date)
			}
			fmt.Fprintln(out)
		},
	}
}
