// Package substrate adapts a Substrate JSON-RPC endpoint to the chain.Client
// capability: finalized head subscriptions and System.Account reads.
package substrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/congo-pay/dot_balance/internal/chain"
	"github.com/congo-pay/dot_balance/internal/substrate/rpc"
)

const (
	methodSubscribeFinalized   = "chain_subscribeFinalizedHeads"
	methodUnsubscribeFinalized = "chain_unsubscribeFinalizedHeads"
	methodGetStorage           = "state_getStorage"
)

// Transport is the subset of the JSON-RPC client used here.
type Transport interface {
	Call(ctx context.Context, result any, method string, params ...any) error
	Subscribe(ctx context.Context, method, unsubscribeMethod string, params ...any) (*rpc.Subscription, error)
	Close() error
}

// Client is a typed Substrate API over a JSON-RPC transport.
type Client struct {
	transport Transport
}

// NewClient builds a typed client over the given transport.
func NewClient(transport Transport) *Client {
	return &Client{transport: transport}
}

type header struct {
	Number string `json:"number"`
}

// FinalizedBlocks subscribes to finalized head notifications.
func (c *Client) FinalizedBlocks(ctx context.Context) (chain.Subscription, error) {
	sub, err := c.transport.Subscribe(ctx, methodSubscribeFinalized, methodUnsubscribeFinalized)
	if err != nil {
		return nil, fmt.Errorf("subscribe finalized heads: %w", err)
	}
	hs := &headSubscription{
		sub:    sub,
		blocks: make(chan chain.FinalizedBlock),
		stop:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go hs.run()
	return hs, nil
}

// AccountInfo reads System.Account for address. The address is decoded here,
// so a malformed identifier surfaces as a query error.
func (c *Client) AccountInfo(ctx context.Context, address string) (chain.AccountState, bool, error) {
	id, _, err := DecodeAddress(address)
	if err != nil {
		return chain.AccountState{}, false, &chain.QueryError{Address: address, Err: err}
	}

	var value *string
	if err := c.transport.Call(ctx, &value, methodGetStorage, HexEncode(SystemAccountKey(id))); err != nil {
		var rpcErr *rpc.Error
		return chain.AccountState{}, false, &chain.QueryError{
			Address:         address,
			ConnectionFault: !errors.As(err, &rpcErr),
			Err:             err,
		}
	}
	if value == nil {
		return chain.EmptyAccountState(), false, nil
	}

	raw, err := HexDecode(*value)
	if err != nil {
		return chain.AccountState{}, false, &chain.QueryError{Address: address, Err: err}
	}
	state, err := DecodeAccountInfo(raw)
	if err != nil {
		return chain.AccountState{}, false, &chain.QueryError{Address: address, Err: err}
	}
	return state, true, nil
}

// Destroy closes the underlying transport.
func (c *Client) Destroy() error {
	return c.transport.Close()
}

// headSubscription converts raw header notifications into FinalizedBlock values.
type headSubscription struct {
	sub    *rpc.Subscription
	blocks chan chain.FinalizedBlock

	mu     sync.Mutex
	err    error
	stop   chan struct{}
	exited chan struct{}
	once   sync.Once
}

func (h *headSubscription) Blocks() <-chan chain.FinalizedBlock { return h.blocks }

func (h *headSubscription) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *headSubscription) Unsubscribe() error {
	var err error
	h.once.Do(func() {
		close(h.stop)
		err = h.sub.Unsubscribe()
		<-h.exited
	})
	return err
}

func (h *headSubscription) run() {
	defer close(h.exited)
	defer close(h.blocks)
	for {
		select {
		case payload, ok := <-h.sub.Notifications():
			if !ok {
				h.setErr(h.sub.Err())
				return
			}
			number, err := parseHeaderNumber(payload)
			if err != nil {
				h.setErr(err)
				return
			}
			select {
			case h.blocks <- chain.FinalizedBlock{Number: number}:
			case <-h.stop:
				return
			}
		case <-h.stop:
			return
		}
	}
}

func (h *headSubscription) setErr(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}

func parseHeaderNumber(payload json.RawMessage) (uint64, error) {
	var hdr header
	if err := json.Unmarshal(payload, &hdr); err != nil {
		return 0, fmt.Errorf("decode header: %w", err)
	}
	n, err := strconv.ParseUint(trimHexPrefix(hdr.Number), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("decode header number %q: %w", hdr.Number, err)
	}
	return n, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
