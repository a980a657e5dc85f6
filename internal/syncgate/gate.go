// Package syncgate turns a stream of finalized block notifications into a
// one-shot "the client is synced" signal.
package syncgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/congo-pay/dot_balance/internal/chain"
)

var (
	// ErrSyncTimeout is returned when no finalized block is observed within the bound.
	ErrSyncTimeout = errors.New("timed out waiting for finalized block")
	// ErrStreamEnded is returned when the notification stream closes before any block.
	ErrStreamEnded = errors.New("finalized block stream ended")
)

// State is the gate lifecycle.
type State int

const (
	Waiting State = iota
	Observed
	TimedOut
	Failed
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Observed:
		return "observed"
	case TimedOut:
		return "timed_out"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Gate resolves once, on the first finalized block of its subscription.
type Gate struct {
	sub     chain.Subscription
	timeout time.Duration
	logger  *slog.Logger

	once  sync.Once
	mu    sync.Mutex
	state State
	block chain.FinalizedBlock
	err   error
}

// New builds a gate over sub. A zero timeout waits until ctx is done.
func New(sub chain.Subscription, timeout time.Duration, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{sub: sub, timeout: timeout, logger: logger}
}

// State reports where the gate is in its lifecycle.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Wait blocks until the first finalized block, the timeout, or ctx is done.
// The subscription is cancelled before Wait returns on every path. Later
// calls return the first outcome.
func (g *Gate) Wait(ctx context.Context) (chain.FinalizedBlock, error) {
	g.once.Do(func() {
		block, state, err := g.await(ctx)
		if uerr := g.sub.Unsubscribe(); uerr != nil {
			g.logger.Warn("unsubscribe finalized blocks", slog.Any("error", uerr))
		}
		g.mu.Lock()
		g.block, g.state, g.err = block, state, err
		g.mu.Unlock()
	})
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.block, g.err
}

func (g *Gate) await(ctx context.Context) (chain.FinalizedBlock, State, error) {
	var deadline <-chan time.Time
	if g.timeout > 0 {
		timer := time.NewTimer(g.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case block, ok := <-g.sub.Blocks():
		if !ok {
			if err := g.sub.Err(); err != nil {
				return chain.FinalizedBlock{}, Failed, fmt.Errorf("%w: %v", ErrStreamEnded, err)
			}
			return chain.FinalizedBlock{}, Failed, ErrStreamEnded
		}
		return block, Observed, nil
	case <-deadline:
		return chain.FinalizedBlock{}, TimedOut, fmt.Errorf("%w after %s", ErrSyncTimeout, g.timeout)
	case <-ctx.Done():
		return chain.FinalizedBlock{}, Failed, ctx.Err()
	}
}

// Wait subscribes to client's finalized blocks and waits on a fresh gate.
func Wait(ctx context.Context, client chain.Client, timeout time.Duration, logger *slog.Logger) (chain.FinalizedBlock, error) {
	sub, err := client.FinalizedBlocks(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return chain.FinalizedBlock{}, fmt.Errorf("subscribe finalized blocks: %w", err)
		}
		// A live context means the transport refused the subscription.
		return chain.FinalizedBlock{}, fmt.Errorf("%w: subscribe finalized blocks: %w", ErrStreamEnded, err)
	}
	return New(sub, timeout, logger).Wait(ctx)
}
