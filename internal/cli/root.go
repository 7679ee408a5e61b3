// Package cli provides the beast command-line interface.
package cli

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rickgao/binance-beast/internal/config"
	"github.com/rickgao/binance-beast/internal/exchange"
	"github.com/rickgao/binance-beast/internal/logging"
)

// Environment variables consulted when the config leaves the keys empty.
const (
	EnvAPIKey    = "BINANCE_API_KEY"
	EnvAPISecret = "BINANCE_API_SECRET"
)

type globalOptions struct {
	configPath string
	network    string
	logLevel   string
	logJSON    bool
}

// app holds what every command shares once the root pre-run has loaded the
// configuration.
type app struct {
	opts   globalOptions
	tlsCfg *tls.Config // nil uses the system roots

	cfg    *config.FileConfig
	logger *slog.Logger
	closer io.Closer
}

// Execute runs the root command.
func Execute() error {
	a := &app{}
	defer a.close()
	return newRootCmd(a).Execute()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "beast",
		Short: "beast - a Binance USD-M futures client",
		Long: `beast drives the Binance USD-M futures REST and WebSocket APIs
from the terminal: one-off REST calls, market streams, the user data
stream and recording streams into PostgreSQL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.opts.configPath, "config", "c", "", "path to YAML config file")
	flags.StringVar(&a.opts.network, "network", "", "testnet or live (overrides config)")
	flags.StringVar(&a.opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&a.opts.logJSON, "log-json", false, "write logs as JSON")

	root.AddCommand(
		newVersionCmd(),
		newRestCmd(a),
		newStreamCmd(a),
		newUserStreamCmd(a),
		newRecordCmd(a),
	)
	return root
}

// setup loads the configuration, applies flag overrides and builds the
// logger.
func (a *app) setup(cmd *cobra.Command) error {
	var cfg *config.FileConfig
	if a.opts.configPath != "" {
		loaded, err := config.LoadAndValidate(a.opts.configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", a.opts.configPath, err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if a.opts.network != "" {
		cfg.Network = a.opts.network
	}
	if a.opts.logLevel != "" {
		cfg.Logging.Level = a.opts.logLevel
	}
	if a.opts.logJSON {
		cfg.Logging.JSON = true
	}
	if cfg.API.Key == "" {
		cfg.API.Key = os.Getenv(EnvAPIKey)
	}
	if cfg.API.Secret == "" {
		cfg.API.Secret = os.Getenv(EnvAPISecret)
	}

	if _, err := config.ParseNetwork(cfg.Network); err != nil {
		return err
	}

	a.logger, a.closer = logging.Setup(logging.Options{
		Level:      cfg.Logging.Level,
		JSON:       cfg.Logging.JSON,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}, cmd.ErrOrStderr())
	a.cfg = cfg
	return nil
}

func (a *app) close() {
	if a.closer != nil {
		a.closer.Close()
		a.closer = nil
	}
}

// startClient creates and starts an exchange client sized by the config.
// The caller must Stop it.
func (a *app) startClient() (*exchange.Client, error) {
	cc, err := a.cfg.Connection()
	if err != nil {
		return nil, err
	}

	client := exchange.New(
		exchange.WithLogger(a.logger),
		exchange.WithTLSConfig(a.tlsCfg),
		exchange.WithCallbackWorkers(a.cfg.Pools.Callbacks),
		exchange.WithPinnedThreads(a.cfg.Pools.PinThreads),
		exchange.WithRequestTimeout(a.cfg.API.Timeout),
	)
	if err := client.Start(cc, a.cfg.Pools.Rest, a.cfg.Pools.WebSocket); err != nil {
		return nil, fmt.Errorf("start client: %w", err)
	}
	return client, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
