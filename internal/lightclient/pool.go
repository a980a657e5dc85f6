package lightclient

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pool reuses attached connections across invocations. Each connection is
// checked out by exactly one borrower at a time. Callers must re-verify sync
// state after Open; Pool only tracks validity reported through Invalidate.
type Pool struct {
	sup    *Supervisor
	logger *slog.Logger

	idle   chan *Connection
	slots  chan struct{}
	closed chan struct{}

	// mu guards isClosed and every Add on busy, so Close never waits on a
	// WaitGroup that can still grow.
	mu       sync.Mutex
	isClosed bool
	busy     sync.WaitGroup
}

// NewPool builds a pool holding at most size live connections.
func NewPool(sup *Supervisor, size int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		sup:    sup,
		logger: logger,
		idle:   make(chan *Connection, size),
		slots:  make(chan struct{}, size),
		closed: make(chan struct{}),
	}
}

// Open checks out an idle connection or opens a new one when below capacity,
// waiting otherwise.
func (p *Pool) Open(ctx context.Context) (*Connection, error) {
	if !p.acquire() {
		return nil, ErrPoolClosed
	}
	conn, err := p.checkout(ctx)
	if err != nil {
		p.busy.Done()
		return nil, err
	}
	return conn, nil
}

func (p *Pool) checkout(ctx context.Context) (*Connection, error) {
	for {
		select {
		case conn := <-p.idle:
			if !conn.Valid() {
				p.discard(conn)
				continue
			}
			return conn, nil
		default:
		}

		select {
		case conn := <-p.idle:
			if !conn.Valid() {
				p.discard(conn)
				continue
			}
			return conn, nil
		case p.slots <- struct{}{}:
			conn, err := p.sup.Open(ctx)
			if err != nil {
				<-p.slots
				return nil, err
			}
			return conn, nil
		case <-p.closed:
			return nil, ErrPoolClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release returns conn to the pool, or tears it down if it was invalidated
// or the pool is closed.
func (p *Pool) Release(conn *Connection) {
	if conn == nil {
		return
	}
	defer p.busy.Done()
	if !conn.Valid() {
		p.discard(conn)
		return
	}
	p.park(conn)
}

// Warm opens up to n connections concurrently and parks them as idle. It
// fails with ErrPoolClosed once Close has started; connections that finish
// opening after that are torn down instead of parked.
func (p *Pool) Warm(ctx context.Context, n int) error {
	if n > cap(p.slots) {
		n = cap(p.slots)
	}
	g, gctx := errgroup.WithContext(ctx)
	stopped := false
	for i := 0; i < n; i++ {
		if !p.acquire() {
			stopped = true
			break
		}
		g.Go(func() error {
			defer p.busy.Done()
			select {
			case p.slots <- struct{}{}:
			default:
				return nil
			}
			conn, err := p.sup.Open(gctx)
			if err != nil {
				<-p.slots
				return err
			}
			if !p.park(conn) {
				return ErrPoolClosed
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil && stopped {
		return ErrPoolClosed
	}
	return err
}

// Close stops handing out connections, waits for borrowed and warming ones
// to come back and releases everything concurrently.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.isClosed {
		p.isClosed = true
		close(p.closed)
	}
	p.mu.Unlock()

	returned := make(chan struct{})
	go func() {
		p.busy.Wait()
		close(returned)
	}()
	select {
	case <-returned:
	case <-ctx.Done():
		return ctx.Err()
	}

	var g errgroup.Group
	for {
		select {
		case conn := <-p.idle:
			g.Go(func() error {
				p.discard(conn)
				return nil
			})
			continue
		default:
		}
		break
	}
	return g.Wait()
}

// acquire registers a borrower or warmer unless the pool is closed.
func (p *Pool) acquire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isClosed {
		return false
	}
	p.busy.Add(1)
	return true
}

// park puts conn on the idle list, or discards it when the pool is closed.
func (p *Pool) park(conn *Connection) bool {
	p.mu.Lock()
	if p.isClosed {
		p.mu.Unlock()
		p.discard(conn)
		return false
	}
	p.idle <- conn
	p.mu.Unlock()
	return true
}

func (p *Pool) discard(conn *Connection) {
	p.sup.Release(conn)
	<-p.slots
	p.logger.Debug("pooled connection discarded", slog.String("connection_id", conn.ID))
}
