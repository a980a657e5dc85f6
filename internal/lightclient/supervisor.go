package lightclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/dot_balance/internal/chain"
)

const releaseTimeout = 10 * time.Second

// State is the lifecycle of a Connection.
type State int

const (
	Started State = iota
	Attached
	Released
)

func (s State) String() string {
	switch s {
	case Started:
		return "started"
	case Attached:
		return "attached"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// Connection is one live light-client session: a worker plus the typed
// client attached to it. It is owned by a single invocation at a time.
type Connection struct {
	ID        string
	CreatedAt time.Time

	worker Worker
	client chain.Client

	mu          sync.Mutex
	state       State
	invalid     bool
	releaseOnce sync.Once
}

// Worker returns the underlying worker.
func (c *Connection) Worker() Worker { return c.worker }

// Client returns the typed client; nil until attached.
func (c *Connection) Client() chain.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// State reports the lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Invalidate marks the connection unfit for reuse.
func (c *Connection) Invalidate() {
	c.mu.Lock()
	c.invalid = true
	c.mu.Unlock()
}

// Valid reports whether the connection may be reused.
func (c *Connection) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.invalid && c.state == Attached
}

// Supervisor owns worker lifecycles: it starts and attaches workers and
// guarantees their release.
type Supervisor struct {
	launcher  Launcher
	spec      chain.Spec
	newClient ClientFactory
	logger    *slog.Logger
}

// NewSupervisor builds a supervisor. newClient defaults to SubstrateClient.
func NewSupervisor(launcher Launcher, spec chain.Spec, newClient ClientFactory, logger *slog.Logger) *Supervisor {
	if newClient == nil {
		newClient = SubstrateClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{launcher: launcher, spec: spec, newClient: newClient, logger: logger}
}

// Acquire locates and starts a worker. Resolution failures happen before
// anything is spawned.
func (s *Supervisor) Acquire(ctx context.Context) (*Connection, error) {
	path, err := s.launcher.Resolve()
	if err != nil {
		if !errors.Is(err, ErrWorkerResolution) {
			err = fmt.Errorf("%w: %v", ErrWorkerResolution, err)
		}
		return nil, err
	}
	worker, err := s.launcher.Start(ctx, path)
	if err != nil {
		if !errors.Is(err, ErrWorkerStart) {
			err = fmt.Errorf("%w: %v", ErrWorkerStart, err)
		}
		return nil, err
	}
	conn := &Connection{ID: uuid.NewString(), CreatedAt: time.Now().UTC(), worker: worker, state: Started}
	s.logger.Debug("light client worker acquired",
		slog.String("connection_id", conn.ID),
		slog.String("worker_id", worker.ID()),
	)
	return conn, nil
}

// Attach binds the worker to the configured chain and builds the typed client.
func (s *Supervisor) Attach(ctx context.Context, conn *Connection) error {
	provider, err := conn.worker.AddChain(ctx, s.spec)
	if err != nil {
		if !errors.Is(err, ErrWorkerStart) {
			err = fmt.Errorf("%w: add chain %s: %v", ErrWorkerStart, s.spec.Name, err)
		}
		return err
	}
	client := s.newClient(provider)
	conn.mu.Lock()
	conn.client = client
	conn.state = Attached
	conn.mu.Unlock()
	s.logger.Debug("light client attached",
		slog.String("connection_id", conn.ID),
		slog.String("chain", s.spec.Name),
	)
	return nil
}

// Open acquires and attaches a connection, releasing it if attach fails.
func (s *Supervisor) Open(ctx context.Context) (*Connection, error) {
	conn, err := s.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Attach(ctx, conn); err != nil {
		s.Release(conn)
		return nil, err
	}
	return conn, nil
}

// Release destroys the client, then terminates the worker. It runs at most
// once per connection; failures are logged as ErrCleanup and not returned.
func (s *Supervisor) Release(conn *Connection) {
	if conn == nil {
		return
	}
	conn.releaseOnce.Do(func() {
		conn.mu.Lock()
		client := conn.client
		conn.state = Released
		conn.mu.Unlock()

		var errs []error
		if client != nil {
			if err := client.Destroy(); err != nil {
				errs = append(errs, fmt.Errorf("destroy client: %w", err))
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := conn.worker.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("terminate worker: %w", err))
		}

		if len(errs) > 0 {
			err := fmt.Errorf("%w: %w", ErrCleanup, errors.Join(errs...))
			s.logger.Warn("light client release failed",
				slog.String("connection_id", conn.ID),
				slog.Any("error", err),
			)
			return
		}
		s.logger.Debug("light client released", slog.String("connection_id", conn.ID))
	})
}
