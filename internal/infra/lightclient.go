package infra

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/congo-pay/dot_balance/internal/balance"
	"github.com/congo-pay/dot_balance/internal/chain"
	"github.com/congo-pay/dot_balance/internal/config"
	"github.com/congo-pay/dot_balance/internal/lightclient"
)

// ChainSpec derives the chain description from configuration.
func ChainSpec(cfg config.LightClient) chain.Spec {
	return chain.Spec{
		Name: cfg.ChainName,
		Path: cfg.ChainSpecPath,
	}
}

// NewLauncher builds the worker launcher for the configured mode.
func NewLauncher(cfg config.LightClient, logger *slog.Logger) (lightclient.Launcher, error) {
	switch cfg.Mode {
	case config.ModeProcess:
		return &lightclient.ProcessLauncher{
			Binary:       cfg.Binary,
			Args:         cfg.Args,
			Spec:         ChainSpec(cfg),
			StartTimeout: cfg.StartTimeout,
			Logger:       logger,
		}, nil
	case config.ModeRemote:
		return &lightclient.RemoteLauncher{URL: cfg.RPCURL}, nil
	default:
		return nil, fmt.Errorf("unknown light client mode %q", cfg.Mode)
	}
}

// NewConnector builds a cold-per-call supervisor, or a pool when PoolSize > 0.
// A pool is warmed before it is returned; warm failures are logged and the
// pool falls back to opening connections on demand. The returned close func
// releases pooled connections.
func NewConnector(ctx context.Context, cfg config.LightClient, logger *slog.Logger) (balance.Connector, func(context.Context) error, error) {
	launcher, err := NewLauncher(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	sup := lightclient.NewSupervisor(launcher, ChainSpec(cfg), lightclient.SubstrateClient, logger)
	if cfg.PoolSize <= 0 {
		return sup, func(context.Context) error { return nil }, nil
	}
	pool := lightclient.NewPool(sup, cfg.PoolSize, logger)

	warmCtx := ctx
	if cfg.StartTimeout > 0 {
		var cancel context.CancelFunc
		warmCtx, cancel = context.WithTimeout(ctx, cfg.StartTimeout)
		defer cancel()
	}
	if err := pool.Warm(warmCtx, cfg.PoolSize); err != nil {
		logger.Warn("warm light client pool", "error", err, "pool_size", cfg.PoolSize)
	}
	return pool, pool.Close, nil
}
