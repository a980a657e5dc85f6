package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/congo-pay/dot_balance/internal/balance"
	"github.com/congo-pay/dot_balance/internal/config"
	"github.com/congo-pay/dot_balance/internal/infra"
	"github.com/congo-pay/dot_balance/internal/logging"
)

type resolveOutput struct {
	Address     string      `json:"address"`
	Free        json.Number `json:"free"`
	Reserved    json.Number `json:"reserved"`
	Frozen      json.Number `json:"frozen"`
	Total       json.Number `json:"total"`
	Symbol      string      `json:"symbol"`
	BlockNumber uint64      `json:"block_number"`
	Found       bool        `json:"found"`
}

func newResolveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "resolve [address]",
		Short:   "Print the free, reserved, frozen and total balance of an SS58 address",
		Args:    cobra.ExactArgs(1),
		Example: `balancectl resolve 16JGzEsi8gcySKjpmxHVrkLTHdFHodRepEz8n244gNZpr9J
balancectl resolve --mode remote --rpc-url wss://rpc.polkadot.io 16JGzEsi8gcySKjpmxHVrkLTHdFHodRepEz8n244gNZpr9J`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := flags.apply(&cfg); err != nil {
				return err
			}
			return runResolve(cmd, cfg, args[0], cmd.OutOrStdout(), os.Stderr)
		},
	}
}

// apply overrides environment configuration with explicitly set flags.
func (f *rootFlags) apply(cfg *config.Config) error {
	lc := &cfg.LightClient
	if f.mode != "" {
		mode := strings.ToLower(f.mode)
		if mode != config.ModeProcess && mode != config.ModeRemote {
			return fmt.Errorf("invalid --mode %q: want %s or %s", f.mode, config.ModeProcess, config.ModeRemote)
		}
		lc.Mode = mode
	}
	if f.rpcURL != "" {
		lc.RPCURL = f.rpcURL
	}
	if f.binary != "" {
		lc.Binary = f.binary
	}
	if f.chainSpec != "" {
		lc.ChainSpecPath = f.chainSpec
	}
	if f.syncTimeout != "" {
		d, err := time.ParseDuration(f.syncTimeout)
		if err != nil {
			return fmt.Errorf("invalid --sync-timeout: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("invalid --sync-timeout: must not be negative")
		}
		lc.SyncTimeout = d
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	// One-shot lookups never reuse a connection.
	lc.PoolSize = 0
	return nil
}

func runResolve(cmd *cobra.Command, cfg config.Config, address string, stdout, stderr io.Writer) error {
	logger := logging.NewText(stderr, cfg.LogLevel)

	connector, closeConnector, err := infra.NewConnector(cmd.Context(), cfg.LightClient, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeConnector(cmd.Context()) }()

	lc := cfg.LightClient
	svc := balance.NewService(connector, nil, logger, balance.Options{
		SyncTimeout:  lc.SyncTimeout,
		QueryTimeout: lc.QueryTimeout,
		Decimals:     lc.TokenDecimals,
	})

	res, err := svc.Resolve(cmd.Context(), address)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", address, err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resolveOutput{
		Address:     address,
		Free:        json.Number(res.Free.String()),
		Reserved:    json.Number(res.Reserved.String()),
		Frozen:      json.Number(res.Frozen.String()),
		Total:       json.Number(res.Total.String()),
		Symbol:      lc.TokenSymbol,
		BlockNumber: res.Block,
		Found:       res.Found,
	})
}
