package balance

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/dot_balance/internal/journal"
	"github.com/congo-pay/dot_balance/internal/lightclient"
	"github.com/congo-pay/dot_balance/internal/syncgate"
)

const journalTimeout = 2 * time.Second

// Connector hands out attached light-client connections and takes them back.
// Supervisor gives a cold connection per call; Pool reuses them.
type Connector interface {
	Open(ctx context.Context) (*lightclient.Connection, error)
	Release(conn *lightclient.Connection)
}

// Options tunes the workflow bounds.
type Options struct {
	// SyncTimeout bounds the wait for the first finalized block. Zero waits
	// until the request context is done.
	SyncTimeout time.Duration
	// QueryTimeout bounds the single state query. Zero means no extra bound.
	QueryTimeout time.Duration
	Decimals     int32
}

// Service resolves account balances through a light client.
type Service struct {
	connector Connector
	resolver  *Resolver
	journal   journal.Repository
	logger    *slog.Logger
	opts      Options
}

// NewService wires the balance workflow. journal may be nil.
func NewService(connector Connector, repo journal.Repository, logger *slog.Logger, opts Options) *Service {
	if opts.Decimals == 0 {
		opts.Decimals = DefaultDecimals
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		connector: connector,
		resolver:  NewResolver(opts.Decimals),
		journal:   repo,
		logger:    logger,
		opts:      opts,
	}
}

// Resolve connects, waits for sync, reads the account once and tears the
// connection down again, whatever the outcome.
func (s *Service) Resolve(ctx context.Context, address string) (Result, error) {
	start := time.Now()
	res, err := s.resolve(ctx, address)
	duration := time.Since(start)

	attrs := []any{
		slog.String("address", address),
		slog.Duration("duration", duration),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err), slog.Bool("retryable", Retryable(err)))
		s.logger.Error("balance lookup failed", attrs...)
	} else {
		attrs = append(attrs, slog.Uint64("block_number", res.Block), slog.String("total", res.Total.String()))
		s.logger.Info("balance lookup completed", attrs...)
	}
	s.record(address, res.Block, err, duration)
	return res, err
}

func (s *Service) resolve(ctx context.Context, address string) (res Result, err error) {
	conn, err := s.connector.Open(ctx)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if invalidates(err) {
			conn.Invalidate()
		}
		s.connector.Release(conn)
	}()

	logger := s.logger.With(slog.String("connection_id", conn.ID))
	logger.Debug("waiting for finalized block")
	block, err := syncgate.Wait(ctx, conn.Client(), s.opts.SyncTimeout, logger)
	if err != nil {
		return Result{}, err
	}
	logger.Debug("chain synced", slog.Uint64("block_number", block.Number))

	qctx := ctx
	if s.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, s.opts.QueryTimeout)
		defer cancel()
	}
	res, err = s.resolver.Resolve(qctx, conn.Client(), address)
	if err != nil {
		return Result{}, err
	}
	res.Block = block.Number
	return res, nil
}

func (s *Service) record(address string, block uint64, err error, duration time.Duration) {
	if s.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	entry := journal.Entry{
		ID:          uuid.NewString(),
		Address:     address,
		Outcome:     Outcome(err),
		BlockNumber: block,
		Duration:    duration,
		CreatedAt:   time.Now().UTC(),
	}
	if rerr := s.journal.Record(ctx, entry); rerr != nil {
		s.logger.Warn("record balance lookup", slog.String("address", address), slog.Any("error", rerr))
	}
}

// Recent lists the latest lookups from the journal.
func (s *Service) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.Recent(ctx, limit)
}
