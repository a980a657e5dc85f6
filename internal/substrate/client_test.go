package substrate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/dot_balance/internal/chain"
	"github.com/congo-pay/dot_balance/internal/substrate"
	"github.com/congo-pay/dot_balance/internal/substrate/rpc"
	"github.com/congo-pay/dot_balance/internal/substrate/substratetest"
)

const alice = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"

func dialNode(t *testing.T, node *substratetest.Node) *substrate.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	transport, err := rpc.Dial(ctx, node.URL())
	require.NoError(t, err)
	client := substrate.NewClient(transport)
	t.Cleanup(func() { _ = client.Destroy() })
	return client
}

func aliceKey(t *testing.T) string {
	t.Helper()
	id, _, err := substrate.DecodeAddress(alice)
	require.NoError(t, err)
	return substrate.HexEncode(substrate.SystemAccountKey(id))
}

func TestFinalizedBlocksDeliversHeads(t *testing.T) {
	node := substratetest.NewNode()
	defer node.Close()
	node.Heads = []uint64{100, 101}
	client := dialNode(t, node)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub, err := client.FinalizedBlocks(ctx)
	require.NoError(t, err)

	select {
	case block := <-sub.Blocks():
		assert.Equal(t, uint64(100), block.Number)
	case <-ctx.Done():
		t.Fatalf("no finalized block delivered")
	}
	require.NoError(t, sub.Unsubscribe())
	assert.Equal(t, 1, node.Unsubscribes())
	// Second unsubscribe is a no-op.
	require.NoError(t, sub.Unsubscribe())
	assert.Equal(t, 1, node.Unsubscribes())
}

func TestAccountInfoFound(t *testing.T) {
	node := substratetest.NewNode()
	defer node.Close()

	state := chain.EmptyAccountState()
	state.Free.SetUint64(1234500000000)
	state.Reserved.SetUint64(500)
	node.Storage[aliceKey(t)] = substrate.HexEncode(substrate.EncodeAccountInfo(state))
	client := dialNode(t, node)

	got, found, err := client.AccountInfo(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(1234500000000), got.Free.Uint64())
	assert.Equal(t, uint64(500), got.Reserved.Uint64())
	assert.Equal(t, 1, node.StorageReads())
}

func TestAccountInfoAbsentIsZero(t *testing.T) {
	node := substratetest.NewNode()
	defer node.Close()
	client := dialNode(t, node)

	got, found, err := client.AccountInfo(context.Background(), alice)
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, got.Free.IsZero())
	assert.True(t, got.Reserved.IsZero())
	assert.True(t, got.Frozen.IsZero())
}

func TestAccountInfoInvalidAddressNeverReachesNode(t *testing.T) {
	node := substratetest.NewNode()
	defer node.Close()
	client := dialNode(t, node)

	_, _, err := client.AccountInfo(context.Background(), "definitely-not-ss58")
	var qe *chain.QueryError
	require.ErrorAs(t, err, &qe)
	assert.False(t, qe.ConnectionFault)
	assert.ErrorIs(t, err, chain.ErrQuery)
	assert.ErrorIs(t, err, substrate.ErrInvalidAddress)
	assert.Equal(t, 0, node.StorageReads())
}

func TestAccountInfoNodeErrorIsNotConnectionFault(t *testing.T) {
	node := substratetest.NewNode()
	defer node.Close()
	node.StorageError = -32602
	client := dialNode(t, node)

	_, _, err := client.AccountInfo(context.Background(), alice)
	var qe *chain.QueryError
	require.ErrorAs(t, err, &qe)
	assert.False(t, qe.ConnectionFault)
	var rpcErr *rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32602, rpcErr.Code)
}

func TestAccountInfoDroppedConnectionIsConnectionFault(t *testing.T) {
	node := substratetest.NewNode()
	defer node.Close()
	client := dialNode(t, node)

	node.DropConnections()
	// Wait for the read loop to notice.
	deadline := time.Now().Add(5 * time.Second)
	var err error
	for time.Now().Before(deadline) {
		_, _, err = client.AccountInfo(context.Background(), alice)
		if err != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	var qe *chain.QueryError
	require.ErrorAs(t, err, &qe)
	assert.True(t, qe.ConnectionFault)
}

func TestFinalizedBlocksStreamEndsOnDisconnect(t *testing.T) {
	node := substratetest.NewNode()
	defer node.Close()
	client := dialNode(t, node)

	sub, err := client.FinalizedBlocks(context.Background())
	require.NoError(t, err)
	node.DropConnections()

	select {
	case _, ok := <-sub.Blocks():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatalf("stream not closed after disconnect")
	}
	assert.ErrorIs(t, sub.Err(), rpc.ErrClosed)
	require.NoError(t, sub.Unsubscribe())
}
