package lightclient

import (
	"context"

	"github.com/congo-pay/dot_balance/internal/chain"
	"github.com/congo-pay/dot_balance/internal/substrate"
)

// Launcher locates and starts light-client workers.
type Launcher interface {
	// Resolve locates the worker resource. It must not spawn anything.
	Resolve() (string, error)
	// Start runs the worker found at path.
	Start(ctx context.Context, path string) (Worker, error)
}

// Worker is a running light-client instance isolated from the caller.
type Worker interface {
	// ID identifies this worker instance.
	ID() string
	// AddChain binds the worker to a chain and returns a provider for it.
	AddChain(ctx context.Context, spec chain.Spec) (Provider, error)
	// Terminate stops the worker.
	Terminate(ctx context.Context) error
}

// Provider is the JSON-RPC transport a worker exposes for one chain.
type Provider interface {
	substrate.Transport
}

// ClientFactory builds a typed client over a provider.
type ClientFactory func(Provider) chain.Client

// SubstrateClient is the production ClientFactory.
func SubstrateClient(p Provider) chain.Client {
	return substrate.NewClient(p)
}
