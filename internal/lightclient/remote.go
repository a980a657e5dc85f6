package lightclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/congo-pay/dot_balance/internal/chain"
	"github.com/congo-pay/dot_balance/internal/substrate/rpc"
)

// RemoteLauncher treats an external JSON-RPC endpoint as the worker. Nothing
// is spawned locally; each worker owns its own WebSocket connection.
type RemoteLauncher struct {
	URL string
}

// Resolve validates the endpoint URL.
func (l *RemoteLauncher) Resolve() (string, error) {
	u, err := url.Parse(l.URL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWorkerResolution, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrWorkerResolution, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrWorkerResolution)
	}
	return u.String(), nil
}

// Start returns a handle on the endpoint.
func (l *RemoteLauncher) Start(ctx context.Context, endpoint string) (Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkerStart, err)
	}
	return &remoteWorker{id: uuid.NewString(), endpoint: endpoint}, nil
}

type remoteWorker struct {
	id       string
	endpoint string
}

func (w *remoteWorker) ID() string { return w.id }

func (w *remoteWorker) AddChain(ctx context.Context, _ chain.Spec) (Provider, error) {
	client, err := rpc.Dial(ctx, w.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkerStart, err)
	}
	return client, nil
}

func (w *remoteWorker) Terminate(context.Context) error { return nil }
