package chain

import (
	"context"

	"github.com/holiman/uint256"
)

// Spec identifies the chain a light client instance is bound to.
type Spec struct {
	Name string
	Path string
}

// FinalizedBlock is emitted once the client observes finalized sync progress.
type FinalizedBlock struct {
	Number uint64
}

// AccountState is the ledger-native account record. Balance components are
// expressed in the chain's smallest indivisible unit.
type AccountState struct {
	Nonce    uint32
	Free     *uint256.Int
	Reserved *uint256.Int
	Frozen   *uint256.Int
	Flags    *uint256.Int
}

// EmptyAccountState is the state of an account with no recorded storage.
func EmptyAccountState() AccountState {
	return AccountState{
		Free:     new(uint256.Int),
		Reserved: new(uint256.Int),
		Frozen:   new(uint256.Int),
		Flags:    new(uint256.Int),
	}
}

// Subscription is a live stream of finalized block notifications.
type Subscription interface {
	// Blocks delivers notifications until the subscription ends. The channel
	// is closed once the stream terminates.
	Blocks() <-chan FinalizedBlock
	// Err reports the terminal stream error, if any, once Blocks is closed.
	Err() error
	// Unsubscribe cancels the stream. Safe to call more than once.
	Unsubscribe() error
}

// Client is the typed view over a light-client provider.
type Client interface {
	// FinalizedBlocks subscribes to finalized head notifications.
	FinalizedBlocks(ctx context.Context) (Subscription, error)
	// AccountInfo reads System.Account for the address. found is false when
	// the account has no recorded state.
	AccountInfo(ctx context.Context, address string) (state AccountState, found bool, err error)
	// Destroy tears down the client and its provider.
	Destroy() error
}
