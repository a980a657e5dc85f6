// Package lightclienttest provides in-memory launchers, workers and clients
// for exercising the balance workflow without a real light client.
package lightclienttest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/congo-pay/dot_balance/internal/chain"
	"github.com/congo-pay/dot_balance/internal/lightclient"
	"github.com/congo-pay/dot_balance/internal/substrate/rpc"
)

// ErrNotSupported is returned by the fake provider's raw transport methods.
var ErrNotSupported = errors.New("fake provider does not speak json-rpc")

// Launcher is a configurable fake lightclient.Launcher.
type Launcher struct {
	ResolveErr   error
	StartErr     error
	AddChainErr  error
	TerminateErr error
	DestroyErr   error

	// Heads are emitted on every finalized block subscription. Nil means the
	// stream stays silent until unsubscribed.
	Heads []uint64
	// Accounts maps addresses to recorded state; missing addresses are absent.
	Accounts map[string]chain.AccountState
	// QueryErr, when set, is returned from every AccountInfo call.
	QueryErr error
	// SubscribeErr, when set, is returned from every FinalizedBlocks call.
	SubscribeErr error
	// StartGate, when set, holds every Start until it is closed.
	StartGate chan struct{}

	mu       sync.Mutex
	resolves int
	workers  []*Worker
	events   []string
}

// Resolve implements lightclient.Launcher.
func (l *Launcher) Resolve() (string, error) {
	l.mu.Lock()
	l.resolves++
	l.mu.Unlock()
	if l.ResolveErr != nil {
		return "", l.ResolveErr
	}
	return "fake://worker", nil
}

// Start implements lightclient.Launcher.
func (l *Launcher) Start(ctx context.Context, _ string) (lightclient.Worker, error) {
	if l.StartGate != nil {
		select {
		case <-l.StartGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.StartErr != nil {
		return nil, l.StartErr
	}
	w := &Worker{id: uuid.NewString(), launcher: l}
	l.mu.Lock()
	l.workers = append(l.workers, w)
	l.mu.Unlock()
	return w, nil
}

// Resolves counts Resolve calls.
func (l *Launcher) Resolves() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolves
}

// Workers returns every worker started so far.
func (l *Launcher) Workers() []*Worker {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Worker(nil), l.workers...)
}

// Terminations is the total number of Terminate calls across workers.
func (l *Launcher) Terminations() int {
	total := 0
	for _, w := range l.Workers() {
		total += w.Terminations()
	}
	return total
}

// Events lists teardown steps in the order they happened.
func (l *Launcher) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *Launcher) record(event string) {
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

// ClientFactory returns the fake client carried by the fake provider.
func ClientFactory(p lightclient.Provider) chain.Client {
	return p.(*Provider).client
}

// Worker is a fake lightclient.Worker.
type Worker struct {
	id       string
	launcher *Launcher
	client   *Client

	terminations atomic.Int32
}

// ID implements lightclient.Worker.
func (w *Worker) ID() string { return w.id }

// AddChain implements lightclient.Worker.
func (w *Worker) AddChain(_ context.Context, spec chain.Spec) (lightclient.Provider, error) {
	if w.launcher.AddChainErr != nil {
		return nil, w.launcher.AddChainErr
	}
	w.client = &Client{worker: w, spec: spec}
	return &Provider{client: w.client}, nil
}

// Terminate implements lightclient.Worker.
func (w *Worker) Terminate(context.Context) error {
	w.terminations.Add(1)
	w.launcher.record("worker.terminate:" + w.id)
	return w.launcher.TerminateErr
}

// Terminations counts Terminate calls on this worker.
func (w *Worker) Terminations() int { return int(w.terminations.Load()) }

// Client returns the client attached to this worker, if any.
func (w *Worker) Client() *Client { return w.client }

// Provider wraps a fake client so it can travel through lightclient.Provider.
type Provider struct {
	client *Client
}

func (p *Provider) Call(context.Context, any, string, ...any) error { return ErrNotSupported }

func (p *Provider) Subscribe(context.Context, string, string, ...any) (*rpc.Subscription, error) {
	return nil, ErrNotSupported
}

func (p *Provider) Close() error { return nil }

// Client is a fake chain.Client bound to one worker.
type Client struct {
	worker *Worker
	spec   chain.Spec

	mu      sync.Mutex
	subs    []*Subscription
	queries int
	destroy int
}

// FinalizedBlocks implements chain.Client.
func (c *Client) FinalizedBlocks(context.Context) (chain.Subscription, error) {
	if err := c.worker.launcher.SubscribeErr; err != nil {
		return nil, err
	}
	sub := newSubscription(c.worker.launcher.Heads)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub, nil
}

// AccountInfo implements chain.Client.
func (c *Client) AccountInfo(_ context.Context, address string) (chain.AccountState, bool, error) {
	c.mu.Lock()
	c.queries++
	c.mu.Unlock()
	l := c.worker.launcher
	if l.QueryErr != nil {
		return chain.AccountState{}, false, l.QueryErr
	}
	state, ok := l.Accounts[address]
	if !ok {
		return chain.EmptyAccountState(), false, nil
	}
	return state, true, nil
}

// Destroy implements chain.Client.
func (c *Client) Destroy() error {
	c.mu.Lock()
	c.destroy++
	c.mu.Unlock()
	c.worker.launcher.record("client.destroy:" + c.worker.id)
	return c.worker.launcher.DestroyErr
}

// Queries counts AccountInfo calls.
func (c *Client) Queries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queries
}

// Subscriptions returns every subscription opened on this client.
func (c *Client) Subscriptions() []*Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Subscription(nil), c.subs...)
}

// Subscription is a fake chain.Subscription that emits a fixed sequence of
// heads and then stays open until unsubscribed.
type Subscription struct {
	blocks chan chain.FinalizedBlock
	stop   chan struct{}
	exited chan struct{}
	once   sync.Once

	unsubscribes atomic.Int32
	delivered    atomic.Int32
}

func newSubscription(heads []uint64) *Subscription {
	s := &Subscription{
		blocks: make(chan chain.FinalizedBlock),
		stop:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go s.run(heads)
	return s
}

func (s *Subscription) run(heads []uint64) {
	defer close(s.exited)
	defer close(s.blocks)
	for _, h := range heads {
		select {
		case s.blocks <- chain.FinalizedBlock{Number: h}:
			s.delivered.Add(1)
		case <-s.stop:
			return
		}
	}
	<-s.stop
}

// Blocks implements chain.Subscription.
func (s *Subscription) Blocks() <-chan chain.FinalizedBlock { return s.blocks }

// Err implements chain.Subscription.
func (s *Subscription) Err() error { return nil }

// Unsubscribe implements chain.Subscription.
func (s *Subscription) Unsubscribe() error {
	s.unsubscribes.Add(1)
	s.once.Do(func() { close(s.stop) })
	<-s.exited
	return nil
}

// Unsubscribes counts Unsubscribe calls.
func (s *Subscription) Unsubscribes() int { return int(s.unsubscribes.Load()) }

// Delivered counts blocks handed to a receiver.
func (s *Subscription) Delivered() int { return int(s.delivered.Load()) }

// Account builds a recorded account state from smallest-unit amounts.
func Account(free, reserved, frozen uint64) chain.AccountState {
	state := chain.EmptyAccountState()
	state.Free.SetUint64(free)
	state.Reserved.SetUint64(reserved)
	state.Frozen.SetUint64(frozen)
	return state
}

// String implements fmt.Stringer for debugging test failures.
func (w *Worker) String() string {
	return fmt.Sprintf("worker(%s, terminations=%d)", w.id, w.Terminations())
}
